package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
log-dir: /var/log/flowgate
expiry-hours: 48
lock-timeout: 2s
lookup-timeout: 4s
lookup-concurrency: 3
session-id: fallback-sess
github:
  owner: acme
  repo: widgets
  token: tok-123
`)

	cfg := Load(dir)

	if cfg.LogDir != "/var/log/flowgate" {
		t.Errorf("LogDir = %q", cfg.LogDir)
	}
	if cfg.ExpiryHours != 48 {
		t.Errorf("ExpiryHours = %d", cfg.ExpiryHours)
	}
	if cfg.SessionID != "fallback-sess" {
		t.Errorf("SessionID = %q", cfg.SessionID)
	}
	if cfg.GitHub.Owner != "acme" || cfg.GitHub.Repo != "widgets" || cfg.GitHub.Token != "tok-123" {
		t.Errorf("GitHub = %+v", cfg.GitHub)
	}
	if got := cfg.Expiry(); got != 48*time.Hour {
		t.Errorf("Expiry() = %v", got)
	}
	if got := cfg.LockTimeoutDuration(); got != 2*time.Second {
		t.Errorf("LockTimeoutDuration() = %v", got)
	}
	if got := cfg.LookupTimeoutDuration(); got != 4*time.Second {
		t.Errorf("LookupTimeoutDuration() = %v", got)
	}
}

func TestLoadMissingOrBroken(t *testing.T) {
	tests := []struct {
		name    string
		content string
		write   bool
	}{
		{name: "missing file", write: false},
		{name: "invalid yaml", content: "log-dir: [unclosed", write: true},
		{name: "wrong types", content: "expiry-hours: not-a-number", write: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			if tt.write {
				writeConfig(t, dir, tt.content)
			}

			cfg := Load(dir)
			if cfg == nil {
				t.Fatal("Load returned nil")
			}
			if cfg.LogDir != "" || cfg.ExpiryHours != 0 || cfg.SessionID != "" {
				t.Errorf("expected zero config, got %+v", cfg)
			}
		})
	}
}

func TestDurationDefaults(t *testing.T) {
	tests := []struct {
		name string
		cfg  LocalConfig
		want time.Duration
	}{
		{name: "unset is zero", cfg: LocalConfig{}, want: 0},
		{name: "garbage is zero", cfg: LocalConfig{LockTimeout: "soon"}, want: 0},
		{name: "negative is zero", cfg: LocalConfig{LockTimeout: "-5s"}, want: 0},
		{name: "valid parses", cfg: LocalConfig{LockTimeout: "1500ms"}, want: 1500 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.LockTimeoutDuration(); got != tt.want {
				t.Errorf("LockTimeoutDuration() = %v, want %v", got, tt.want)
			}
		})
	}

	if got := (&LocalConfig{ExpiryHours: -1}).Expiry(); got != 0 {
		t.Errorf("negative expiry-hours should fall back to default, got %v", got)
	}
}

func TestLoadWithEnv(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
session-id: from-file
log-dir: /from/file
github:
  token: file-token
`)

	t.Setenv("FLOWGATE_SESSION_ID", "from-env")
	t.Setenv("FLOWGATE_LOG_DIR", "/from/env")
	t.Setenv("FLOWGATE_GITHUB_TOKEN", "env-token")
	t.Setenv("GITHUB_TOKEN", "")

	cfg := LoadWithEnv(dir)

	if cfg.SessionID != "from-env" {
		t.Errorf("SessionID = %q, want env override", cfg.SessionID)
	}
	if cfg.LogDir != "/from/env" {
		t.Errorf("LogDir = %q, want env override", cfg.LogDir)
	}
	if cfg.GitHub.Token != "env-token" {
		t.Errorf("Token = %q, want env override", cfg.GitHub.Token)
	}
}

func TestGithubTokenFallback(t *testing.T) {
	t.Setenv("FLOWGATE_SESSION_ID", "")
	t.Setenv("FLOWGATE_LOG_DIR", "")
	t.Setenv("FLOWGATE_GITHUB_TOKEN", "")
	t.Setenv("GITHUB_TOKEN", "ambient-token")

	// GITHUB_TOKEN only fills an empty config token.
	cfg := LoadWithEnv(t.TempDir())
	if cfg.GitHub.Token != "ambient-token" {
		t.Errorf("Token = %q, want GITHUB_TOKEN fallback", cfg.GitHub.Token)
	}

	dir := t.TempDir()
	writeConfig(t, dir, "github:\n  token: file-token\n")
	cfg = LoadWithEnv(dir)
	if cfg.GitHub.Token != "file-token" {
		t.Errorf("Token = %q, config token should beat GITHUB_TOKEN", cfg.GitHub.Token)
	}
}

func TestLogDirOrDefault(t *testing.T) {
	cfg := &LocalConfig{}
	want := filepath.Join("/ws/.flowgate", "runtime", "logs")
	if got := cfg.LogDirOrDefault("/ws/.flowgate"); got != want {
		t.Errorf("LogDirOrDefault = %q, want %q", got, want)
	}

	cfg.LogDir = "/custom"
	if got := cfg.LogDirOrDefault("/ws/.flowgate"); got != "/custom" {
		t.Errorf("LogDirOrDefault = %q, want configured dir", got)
	}
}

func TestFindDir(t *testing.T) {
	t.Setenv("FLOWGATE_DIR", "")

	root := t.TempDir()
	ws := filepath.Join(root, "repo")
	nested := filepath.Join(ws, "internal", "deep")
	if err := os.MkdirAll(filepath.Join(ws, DirName), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	if got, want := FindDir(nested), filepath.Join(ws, DirName); got != want {
		t.Errorf("FindDir = %q, want walk-up hit %q", got, want)
	}

	// No .flowgate anywhere: fall back to startDir/.flowgate.
	lone := t.TempDir()
	if got, want := FindDir(lone), filepath.Join(lone, DirName); got != want {
		t.Errorf("FindDir = %q, want fallback %q", got, want)
	}

	t.Setenv("FLOWGATE_DIR", "/explicit/flowgate")
	if got := FindDir(nested); got != "/explicit/flowgate" {
		t.Errorf("FindDir = %q, want FLOWGATE_DIR override", got)
	}
}
