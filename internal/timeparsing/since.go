package timeparsing

import (
	"fmt"
	"strings"
	"time"
)

// ParseSince resolves a lookback expression to a cutoff instant at or before
// now. Accepts Go durations ("90m", "2h30m"), compact durations ("2h", "1d",
// where an unsigned value means that far back), natural language ("2 hours
// ago", "yesterday"), and absolute dates. A cutoff after now is an error.
func ParseSince(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty since expression")
	}

	if d, err := time.ParseDuration(s); err == nil {
		if d < 0 {
			return time.Time{}, fmt.Errorf("negative since duration: %q", s)
		}
		return now.Add(-d), nil
	}

	if IsCompactDuration(s) {
		// Unsigned compact values look back ("2h" = the last two hours).
		lookback := s
		if !strings.HasPrefix(s, "+") && !strings.HasPrefix(s, "-") {
			lookback = "-" + s
		}
		cutoff, err := ParseCompactDuration(lookback, now)
		if err != nil {
			return time.Time{}, err
		}
		if cutoff.After(now) {
			return time.Time{}, fmt.Errorf("since cutoff is in the future: %q", s)
		}
		return cutoff, nil
	}

	cutoff, err := ParseRelativeTime(s, now)
	if err != nil {
		return time.Time{}, err
	}
	if cutoff.After(now) {
		return time.Time{}, fmt.Errorf("since cutoff is in the future: %q", s)
	}
	return cutoff, nil
}
