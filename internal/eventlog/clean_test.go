package eventlog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestClean(t *testing.T) {
	t.Run("drops undecodable lines", func(t *testing.T) {
		dir := t.TempDir()
		store := NewStore(dir)

		lines := strings.Join([]string{
			`{"hook":"merge-check","decision":"block","session_id":"s1"}`,
			`garbage line`,
			`{"hook":"merge-check","decision":"approve","session_id":"s1"}`,
			`{"truncated":`,
		}, "\n") + "\n"
		path := filepath.Join(dir, "hook-execution-s1.jsonl")
		if err := os.WriteFile(path, []byte(lines), 0644); err != nil {
			t.Fatalf("writing fixture: %v", err)
		}

		result, err := store.Clean(KindHookExecution, "s1")
		if err != nil {
			t.Fatalf("Clean failed: %v", err)
		}
		if result.Kept != 2 || result.Dropped != 2 {
			t.Errorf("result = kept %d dropped %d, want kept 2 dropped 2", result.Kept, result.Dropped)
		}

		got := store.ReadHook("s1")
		if len(got) != 2 {
			t.Errorf("after clean, read %d events, want 2", len(got))
		}

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("reading cleaned file: %v", err)
		}
		if strings.Contains(string(data), "garbage") {
			t.Error("cleaned file still contains dropped line")
		}
	})

	t.Run("missing file is a no-op", func(t *testing.T) {
		store := NewStore(t.TempDir())
		result, err := store.Clean(KindFlowProgress, "nope")
		if err != nil {
			t.Fatalf("Clean on missing file errored: %v", err)
		}
		if result.Kept != 0 || result.Dropped != 0 {
			t.Errorf("result = %+v, want zero", result)
		}
	})

	t.Run("clean file untouched", func(t *testing.T) {
		dir := t.TempDir()
		store := NewStore(dir)

		store.AppendHook("s1", HookEvent{Hook: "merge-check", Decision: "block", SessionID: "s1"})
		before, _ := os.ReadFile(filepath.Join(dir, "hook-execution-s1.jsonl"))

		result, err := store.Clean(KindHookExecution, "s1")
		if err != nil {
			t.Fatalf("Clean failed: %v", err)
		}
		if result.Dropped != 0 {
			t.Errorf("dropped %d lines from a clean file", result.Dropped)
		}

		after, _ := os.ReadFile(filepath.Join(dir, "hook-execution-s1.jsonl"))
		if string(before) != string(after) {
			t.Error("clean file was rewritten")
		}
	})
}
