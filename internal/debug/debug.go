// Package debug is the diagnostic side channel. Dropped log lines, unknown
// flow ids, and skipped step definitions are reported here, never in hook
// decision output. Hook handlers must only use Logf (stderr); stdout is
// reserved for decision JSON.
package debug

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

var (
	enabled = os.Getenv("FLOWGATE_DEBUG") != ""
	verbose bool
	quiet   bool
	eventMu sync.Mutex
)

// SetVerbose turns diagnostic output on regardless of FLOWGATE_DEBUG.
func SetVerbose(on bool) {
	verbose = on
}

// SetQuiet suppresses informational output printed through PrintNormal.
func SetQuiet(on bool) {
	quiet = on
}

func Logf(format string, args ...interface{}) {
	if enabled || verbose {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}

// PrintNormal prints informational output unless quiet mode is on. Primary
// command output never goes through here.
func PrintNormal(format string, args ...interface{}) {
	if !quiet {
		fmt.Printf(format, args...)
	}
}

// LogEvent appends a diagnostic event to .flowgate/diagnostics.log as
// TIMESTAMP|EVENT_CODE|SESSION_ID|DETAILS. Outside a workspace it is a
// silent no-op; diagnostics must never fail the operation they describe.
func LogEvent(eventCode, sessionID, details string) {
	root := workspaceRoot()
	if root == "" {
		return
	}

	if sessionID == "" {
		sessionID = os.Getenv("FLOWGATE_SESSION_ID")
		if sessionID == "" {
			sessionID = "none"
		}
	}

	entry := fmt.Sprintf("%s|%s|%s|%s\n",
		time.Now().UTC().Format(time.RFC3339), eventCode, sessionID, details)

	eventMu.Lock()
	defer eventMu.Unlock()

	logPath := filepath.Join(root, ".flowgate", "diagnostics.log")
	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return
	}
	defer f.Close()
	f.WriteString(entry)
}

// workspaceRoot walks up from the working directory to the directory that
// holds .flowgate. Returns "" when there is none.
func workspaceRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if fi, err := os.Stat(filepath.Join(dir, ".flowgate")); err == nil && fi.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
