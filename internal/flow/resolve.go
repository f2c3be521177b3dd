package flow

import (
	"fmt"
	"strings"
)

// ResolveInstanceID resolves a possibly-partial instance id against the
// session's instances. An exact id wins; otherwise a unique substring
// match does. Ambiguous input lists the candidates so the caller can
// add characters.
func ResolveInstanceID(statuses []*Status, input string) (string, error) {
	if input == "" {
		return "", fmt.Errorf("empty flow instance id")
	}

	var matches []string
	for _, st := range statuses {
		if st.FlowInstanceID == input {
			return input, nil
		}
		if strings.Contains(st.FlowInstanceID, input) {
			matches = append(matches, st.FlowInstanceID)
		}
	}

	if len(matches) == 0 {
		return "", fmt.Errorf("no flow instance matching %q", input)
	}
	if len(matches) > 1 {
		return "", fmt.Errorf("ambiguous instance id %q matches %d flows: %v\nUse more characters to disambiguate", input, len(matches), matches)
	}
	return matches[0], nil
}
