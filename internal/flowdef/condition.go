// Skip-condition evaluation for step definitions.
//
// A skip condition is a single small expression over a flow instance's
// context and the process environment:
//   - "context.key" - truthy check (non-empty, non-"false", non-"0")
//   - "!context.key" - negated truthy check
//   - "context.key == value" / "context.key != value"
//   - "env.NAME", "!env.NAME", "env.NAME == value", "env.NAME != value"
//   - "file.exists('path')"

package flowdef

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

var (
	// context.key or env.NAME, optionally negated
	condTruthyPattern = regexp.MustCompile(`^(!?)(context|env)\.([A-Za-z0-9_.-]+)$`)

	// context.key == value or env.NAME != value
	condComparePattern = regexp.MustCompile(`^(context|env)\.([A-Za-z0-9_.-]+)\s*(==|!=)\s*(.+)$`)

	// file.exists('path') with single or double quotes
	condFileExistsPattern = regexp.MustCompile(`^file\.exists\(\s*['"]([^'"]*)['"]\s*\)$`)
)

// EvaluateSkipCondition evaluates a step's skip condition against a flow
// instance's context. Returns true if the step may be skipped. An empty
// condition never allows skipping.
func EvaluateSkipCondition(condition string, fctx map[string]string) (bool, error) {
	condition = strings.TrimSpace(condition)

	if condition == "" {
		return false, nil
	}

	if m := condTruthyPattern.FindStringSubmatch(condition); m != nil {
		value := lookupCondValue(m[2], m[3], fctx)
		if m[1] == "!" {
			return !isTruthy(value), nil
		}
		return isTruthy(value), nil
	}

	if m := condComparePattern.FindStringSubmatch(condition); m != nil {
		actual := lookupCondValue(m[1], m[2], fctx)
		expected := unquoteValue(strings.TrimSpace(m[4]))

		switch m[3] {
		case "==":
			return actual == expected, nil
		case "!=":
			return actual != expected, nil
		}
	}

	if m := condFileExistsPattern.FindStringSubmatch(condition); m != nil {
		_, err := os.Stat(m[1])
		return err == nil, nil
	}

	return false, fmt.Errorf("invalid skip condition: %q (expected context.key, env.NAME, or file.exists('path'))", condition)
}

func lookupCondValue(source, key string, fctx map[string]string) string {
	switch source {
	case "context":
		return fctx[key]
	case "env":
		return os.Getenv(key)
	}
	return ""
}

// isTruthy returns true if a value is considered "truthy" for conditions.
// Falsy values: empty string, "false", "0", "no", "off"
func isTruthy(value string) bool {
	if value == "" {
		return false
	}
	switch strings.ToLower(value) {
	case "false", "0", "no", "off":
		return false
	}
	return true
}

// unquoteValue removes surrounding quotes from a value if present.
func unquoteValue(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
