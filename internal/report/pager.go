package report

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"golang.org/x/term"
)

// PagerOptions controls how ToPager decides between paging and printing.
type PagerOptions struct {
	// NoPager forces direct printing (the --no-pager flag).
	NoPager bool
}

// ToPager sends content through the user's pager when stdout is an
// interactive terminal and the content overflows one screen. Everything
// else prints directly: agent harnesses and shell pipelines should never
// find a pager between themselves and the output.
func ToPager(content string, opts PagerOptions) error {
	if !pagerWanted(opts) || fitsOnScreen(content) {
		fmt.Print(content)
		return nil
	}

	argv := strings.Fields(pagerCommand())
	if len(argv) == 0 {
		fmt.Print(content)
		return nil
	}

	cmd := exec.Command(argv[0], argv[1:]...) // #nosec G204 - pager command is user-configurable by design
	cmd.Stdin = strings.NewReader(content)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = pagerEnv()
	return cmd.Run()
}

func pagerWanted(opts PagerOptions) bool {
	if opts.NoPager || os.Getenv("FLOWGATE_NO_PAGER") != "" {
		return false
	}
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// fitsOnScreen reports whether content fits the terminal with a line to
// spare for the prompt. Unknown terminal size reads as "does not fit"
// so the pager still gets a chance to shortcut via LESS -F.
func fitsOnScreen(content string) bool {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return false
	}
	_, height, err := term.GetSize(fd)
	if err != nil || height <= 0 {
		return false
	}
	lines := 0
	if content != "" {
		lines = strings.Count(content, "\n") + 1
	}
	return lines <= height-1
}

// pagerCommand picks the pager: FLOWGATE_PAGER, then PAGER, then less.
// The value may carry arguments, "less -R" style.
func pagerCommand() string {
	for _, env := range []string{"FLOWGATE_PAGER", "PAGER"} {
		if pager := os.Getenv(env); pager != "" {
			return pager
		}
	}
	return "less"
}

// pagerEnv seeds LESS with -R (pass ANSI colors through), -F (quit when
// one screen suffices), -X (keep output on exit) unless the user already
// set it.
func pagerEnv() []string {
	if os.Getenv("LESS") == "" {
		return append(os.Environ(), "LESS=-RFX")
	}
	return os.Environ()
}
