package report

import (
	"os"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// IsTerminal reports whether stdout is a TTY.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// IsAgentMode reports whether output is being consumed by an agent
// rather than a human. Agent mode suppresses markdown rendering and
// decorative output so the text stays parseable.
func IsAgentMode() bool {
	if os.Getenv("FLOWGATE_AGENT") != "" {
		return true
	}
	return os.Getenv("CLAUDECODE") != ""
}

// ShouldUseColor decides whether to emit color, honoring the usual
// conventions: NO_COLOR wins, then CLICOLOR_FORCE, then CLICOLOR=0,
// then TTY detection with the terminal's advertised profile.
func ShouldUseColor() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if force := os.Getenv("CLICOLOR_FORCE"); force != "" && force != "0" {
		return true
	}
	if os.Getenv("CLICOLOR") == "0" {
		return false
	}
	return IsTerminal() && termenv.EnvColorProfile() != termenv.Ascii
}

// ShouldUseEmoji reports whether status icons may use emoji.
// FLOWGATE_NO_EMOJI forces plain glyphs; otherwise emoji require a TTY.
func ShouldUseEmoji() bool {
	if os.Getenv("FLOWGATE_NO_EMOJI") != "" {
		return false
	}
	return IsTerminal()
}
