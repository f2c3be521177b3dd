package report

import (
	"strings"
	"testing"
)

func TestRenderMarkdownStyled(t *testing.T) {
	// Force the styled path even though go test runs without a TTY.
	t.Setenv("CLICOLOR_FORCE", "1")
	t.Setenv("NO_COLOR", "")
	t.Setenv("FLOWGATE_AGENT", "")
	t.Setenv("CLAUDECODE", "")
	t.Setenv("GLAMOUR_STYLE", "")

	input := "# Heading\n\nSome **bold** text."
	got := RenderMarkdown(input)

	if got == "" {
		t.Fatal("RenderMarkdown returned empty output")
	}
	if got == input {
		t.Error("styled path returned the input unchanged; renderer fell back")
	}
	if !strings.Contains(got, "Heading") {
		t.Errorf("rendered output lost the heading text: %q", got)
	}
}

func TestRenderMarkdownPlainWhenColorOff(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	t.Setenv("CLICOLOR_FORCE", "")
	t.Setenv("FLOWGATE_AGENT", "")
	t.Setenv("CLAUDECODE", "")

	input := "# Heading"
	if got := RenderMarkdown(input); got != input {
		t.Errorf("RenderMarkdown with colors off = %q, want input unchanged", got)
	}
}
