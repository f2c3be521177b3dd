package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/flowgate/flowgate/internal/config"
	"github.com/flowgate/flowgate/internal/debug"
	"github.com/flowgate/flowgate/internal/flowdef"
	"github.com/flowgate/flowgate/internal/verify"
)

var initInteractive bool

var initCmd = &cobra.Command{
	Use:     "init",
	GroupID: GroupSetup,
	Short:   "Create the .flowgate workspace skeleton",
	Long: `Create .flowgate/ in the current directory (or at --dir): config.yaml,
the expected-hooks.toml seed, a flows/ directory for flow overrides,
and the runtime directories. Existing files are left alone, so init
is safe to re-run.

--interactive walks through GitHub repo settings and flow seeding.`,
	Run: func(cmd *cobra.Command, args []string) {
		runInit()
	},
}

func init() {
	initCmd.Flags().BoolVarP(&initInteractive, "interactive", "i", false, "Prompt for settings")
	rootCmd.AddCommand(initCmd)
}

func runInit() {
	target := dirFlag
	if target == "" {
		cwd, err := os.Getwd()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		target = filepath.Join(cwd, config.DirName)
	}

	var owner, repo string
	seedChoice := "none"
	if initInteractive {
		if !runInitForm(&owner, &repo, &seedChoice) {
			return
		}
	}

	for _, dir := range []string{
		target,
		filepath.Join(target, "flows"),
		filepath.Join(target, "runtime", "logs"),
		filepath.Join(target, "runtime", "workflow"),
	} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	writeIfMissing(filepath.Join(target, config.ConfigFileName), configTemplate(owner, repo))
	writeIfMissing(filepath.Join(target, verify.CatalogFileName), hooksTemplate())

	if seedChoice != "none" {
		for _, def := range flowdef.BuiltinFlows() {
			if seedChoice == "blocking" && !def.BlockingOnSessionEnd {
				continue
			}
			if err := writeFlowFile(filepath.Join(target, "flows"), def); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: seeding %s: %v\n", def.Flow, err)
			}
		}
	}

	debug.PrintNormal("Initialized %s\n", target)
}

func runInitForm(owner, repo, seed *string) bool {
	confirmed := true
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("GitHub owner").
				Description("Used for closed-issue filtering at session end (optional)").
				Placeholder("e.g., acme").
				Value(owner),

			huh.NewInput().
				Title("GitHub repository").
				Description("Repository name for issue lookups (optional)").
				Placeholder("e.g., widgets").
				Value(repo),

			huh.NewSelect[string]().
				Title("Seed flow files").
				Description("Built-ins are always available; files in flows/ are editable overrides").
				Options(
					huh.NewOption("None", "none"),
					huh.NewOption("Blocking flows only", "blocking"),
					huh.NewOption("All built-in flows", "all"),
				).
				Value(seed),

			huh.NewConfirm().
				Title("Write workspace files?").
				Affirmative("Write").
				Negative("Cancel").
				Value(&confirmed),
		),
	).WithTheme(huh.ThemeDracula())

	if err := form.Run(); err != nil {
		if err == huh.ErrUserAborted {
			fmt.Fprintln(os.Stderr, "Init cancelled.")
			return false
		}
		fmt.Fprintf(os.Stderr, "Error: form error: %v\n", err)
		return false
	}
	if !confirmed {
		fmt.Fprintln(os.Stderr, "Init cancelled.")
	}
	return confirmed
}

// writeIfMissing writes the file unless it already exists.
func writeIfMissing(path, content string) {
	if _, err := os.Stat(path); err == nil {
		debug.PrintNormal("  %s exists, skipping\n", filepath.Base(path))
		return
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to create %s: %v\n", filepath.Base(path), err)
		return
	}
	debug.PrintNormal("  created %s\n", filepath.Base(path))
}

func writeFlowFile(dir string, def *flowdef.FlowDefinition) error {
	path := filepath.Join(dir, def.Flow+flowdef.FlowExtTOML)
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(def); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

func configTemplate(owner, repo string) string {
	github := `# github:
#   owner: ""
#   repo: ""
#   token: ""  # or set FLOWGATE_GITHUB_TOKEN / GITHUB_TOKEN`
	if owner != "" || repo != "" {
		github = fmt.Sprintf("github:\n  owner: %q\n  repo: %q\n  # token: \"\"  # or set FLOWGATE_GITHUB_TOKEN / GITHUB_TOKEN", owner, repo)
	}

	return fmt.Sprintf(`# flowgate configuration
# All settings can also be set via environment variables (FLOWGATE_* prefix)
# or overridden with command-line flags.

# Where session event logs live (default: .flowgate/runtime/logs)
# log-dir: ""

# Hours before an incomplete flow stops blocking session end
# expiry-hours: 24

# How long appends wait for the log file lock
# lock-timeout: "2s"

# Per-issue lookup timeout and parallelism for closed-issue filtering
# lookup-timeout: "4s"
# lookup-concurrency: 5

# Session ID fallback when no flag or environment variable is set
# session-id: ""

# Enable JSON output by default
# json: false

# GitHub repository for closed-issue filtering at session end
%s
`, github)
}

// hooksTemplate renders the built-in expectation catalog as an editable
// starting point.
func hooksTemplate() string {
	var b strings.Builder
	b.WriteString(`# Expected hook catalog
# Each entry says which hook should fire in which phase and what it
# should decide. flowgate session verify reports hooks that never
# fired, fired in the wrong phase, or decided differently.
`)
	for _, h := range verify.BuiltinHooks() {
		fmt.Fprintf(&b, "\n[[hooks]]\nhook = %q\nphase = %q\ntrigger = %q\nexpect = %q\n",
			h.Hook, h.Phase, h.Trigger, h.Expect)
	}
	return b.String()
}
