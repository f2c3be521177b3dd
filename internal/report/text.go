package report

import (
	"strings"
	"unicode/utf8"
)

// TruncateSimple caps text at maxLen runes, replacing the tail with
// "..." when it is too long.
func TruncateSimple(text string, maxLen int) string {
	runes := []rune(text)
	switch {
	case len(runes) <= maxLen:
		return text
	case maxLen <= 3:
		return "..."
	}
	return string(runes[:maxLen-3]) + "..."
}

// WrapText re-wraps text to maxWidth columns, breaking at word
// boundaries. Existing line breaks are kept; a word longer than the
// width stays on its own line unbroken.
func WrapText(text string, maxWidth int) string {
	if maxWidth <= 0 {
		maxWidth = 80
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = wrapLine(line, maxWidth)
	}
	return strings.Join(lines, "\n")
}

func wrapLine(line string, maxWidth int) string {
	if utf8.RuneCountInString(line) <= maxWidth {
		return line
	}

	var out strings.Builder
	width := 0
	for _, word := range strings.Fields(line) {
		n := utf8.RuneCountInString(word)
		switch {
		case width == 0:
			// First word on the line always fits, even oversized.
		case width+1+n <= maxWidth:
			out.WriteByte(' ')
			width++
		default:
			out.WriteByte('\n')
			width = 0
		}
		out.WriteString(word)
		width += n
	}
	return out.String()
}
