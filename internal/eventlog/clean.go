package eventlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/flowgate/flowgate/internal/lockfile"
)

// CleanResult reports what a log-clean pass kept and dropped.
type CleanResult struct {
	Kept    int
	Dropped int
}

// Clean rewrites one session log, dropping lines that fail to decode as
// JSON objects. The file is held under an exclusive lock for the duration
// so concurrent appenders wait rather than lose lines. A missing log is
// a no-op.
func (s *Store) Clean(kind Kind, sessionID string) (*CleanResult, error) {
	path := s.eventFile(kind, sessionID)

	f, err := os.OpenFile(path, os.O_RDWR, 0644)
	if err != nil {
		if os.IsNotExist(err) {
			return &CleanResult{}, nil
		}
		return nil, fmt.Errorf("opening %s log: %w", kind, err)
	}
	defer f.Close()

	if err := lockfile.LockExclusive(f); err != nil {
		return nil, fmt.Errorf("locking %s log: %w", kind, err)
	}
	defer lockfile.Unlock(f)

	result := &CleanResult{}
	var kept []byte

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var obj map[string]interface{}
		if err := json.Unmarshal(line, &obj); err != nil {
			result.Dropped++
			continue
		}
		kept = append(kept, line...)
		kept = append(kept, '\n')
		result.Kept++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning %s log: %w", kind, err)
	}

	if result.Dropped == 0 {
		return result, nil
	}

	// Rewrite in place while holding the lock. Truncate+write keeps the
	// inode, so appenders blocked on the lock continue against the
	// cleaned file.
	if err := f.Truncate(0); err != nil {
		return nil, fmt.Errorf("truncating %s log: %w", kind, err)
	}
	if _, err := f.Seek(0, 0); err != nil {
		return nil, fmt.Errorf("rewinding %s log: %w", kind, err)
	}
	if _, err := f.Write(kept); err != nil {
		return nil, fmt.Errorf("rewriting %s log: %w", kind, err)
	}
	return result, nil
}
