package eventlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/flowgate/flowgate/internal/debug"
	"github.com/flowgate/flowgate/internal/lockfile"
)

// DefaultLockTimeout bounds how long an append waits for the file lock
// before failing open.
const DefaultLockTimeout = 2 * time.Second

// maxLineBytes caps a single log line during replay. Lines beyond this are
// treated as corrupt.
const maxLineBytes = 4 * 1024 * 1024

// Log is the event log surface the engine and verifier replay. Store is the
// file-backed implementation; telemetry wraps it with an instrumented one.
type Log interface {
	AppendFlow(sessionID string, ev FlowEvent) bool
	ReadFlow(sessionID string) []FlowEvent
	AppendHook(sessionID string, ev HookEvent) bool
	ReadHook(sessionID string) []HookEvent
}

// Store persists session event logs under a single directory, one file per
// (kind, session) pair.
type Store struct {
	dir         string
	lockTimeout time.Duration
}

// NewStore creates a store rooted at dir. The directory is created lazily on
// first append.
func NewStore(dir string) *Store {
	return &Store{dir: dir, lockTimeout: DefaultLockTimeout}
}

// WithLockTimeout returns a copy of the store with a different append-lock
// timeout.
func (s *Store) WithLockTimeout(d time.Duration) *Store {
	out := *s
	out.lockTimeout = d
	return &out
}

// Dir returns the log directory.
func (s *Store) Dir() string {
	return s.dir
}

// eventFile returns the path of the log file for one (kind, session) pair.
// Session isolation lives here: the sanitized session id is part of the
// file name, so cross-session reads are structurally impossible.
func (s *Store) eventFile(kind Kind, sessionID string) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s-%s.jsonl", kind, SanitizeSessionID(sessionID)))
}

// AppendFlow appends one event to the session's flow-progress log.
// Returns false when the log is unavailable; callers fail open.
func (s *Store) AppendFlow(sessionID string, ev FlowEvent) bool {
	return s.append(KindFlowProgress, sessionID, ev)
}

// AppendHook appends one event to the session's hook-execution log.
func (s *Store) AppendHook(sessionID string, ev HookEvent) bool {
	return s.append(KindHookExecution, sessionID, ev)
}

func (s *Store) append(kind Kind, sessionID string, payload interface{}) bool {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		debug.Logf("eventlog: creating %s: %v\n", s.dir, err)
		return false
	}

	data, err := json.Marshal(payload)
	if err != nil {
		debug.Logf("eventlog: marshaling %s event: %v\n", kind, err)
		return false
	}

	f, err := os.OpenFile(s.eventFile(kind, sessionID), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		debug.Logf("eventlog: opening %s log: %v\n", kind, err)
		return false
	}
	defer f.Close()

	// Exclusive lock so concurrent hook processes never interleave lines.
	// A wedged lock fails open after the timeout instead of hanging a hook.
	if err := lockfile.LockExclusiveTimeout(f, s.lockTimeout); err != nil {
		debug.Logf("eventlog: locking %s log: %v\n", kind, err)
		return false
	}
	defer lockfile.Unlock(f)

	if _, err := f.Write(append(data, '\n')); err != nil {
		debug.Logf("eventlog: writing %s log: %v\n", kind, err)
		return false
	}
	return true
}

// ReadFlow replays the session's flow-progress log. Undecodable lines and
// lines missing the event kind or instance id are skipped with a diagnostic.
// A missing or unreadable file yields an empty history.
func (s *Store) ReadFlow(sessionID string) []FlowEvent {
	var events []FlowEvent
	s.eachLine(KindFlowProgress, sessionID, func(line []byte, n int) {
		var ev FlowEvent
		if err := json.Unmarshal(line, &ev); err != nil {
			debug.Logf("eventlog: skipping flow-progress line %d: %v\n", n, err)
			return
		}
		if ev.Event == "" || ev.FlowInstanceID == "" {
			debug.Logf("eventlog: skipping flow-progress line %d: missing event or instance id\n", n)
			return
		}
		events = append(events, ev)
	})
	return events
}

// ReadHook replays the session's hook-execution log. Undecodable lines and
// lines without a hook name are skipped with a diagnostic.
func (s *Store) ReadHook(sessionID string) []HookEvent {
	var events []HookEvent
	s.eachLine(KindHookExecution, sessionID, func(line []byte, n int) {
		var ev HookEvent
		if err := json.Unmarshal(line, &ev); err != nil {
			debug.Logf("eventlog: skipping hook-execution line %d: %v\n", n, err)
			return
		}
		if ev.Hook == "" {
			debug.Logf("eventlog: skipping hook-execution line %d: missing hook name\n", n)
			return
		}
		events = append(events, ev)
	})
	return events
}

// eachLine streams non-empty lines of one log file to fn with 1-based line
// numbers. All I/O errors degrade to an empty history.
func (s *Store) eachLine(kind Kind, sessionID string, fn func(line []byte, n int)) {
	f, err := os.Open(s.eventFile(kind, sessionID))
	if err != nil {
		if !os.IsNotExist(err) {
			debug.Logf("eventlog: reading %s log: %v\n", kind, err)
		}
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	n := 0
	for scanner.Scan() {
		n++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		fn(line, n)
	}
	if err := scanner.Err(); err != nil {
		debug.Logf("eventlog: scanning %s log: %v\n", kind, err)
	}
}
