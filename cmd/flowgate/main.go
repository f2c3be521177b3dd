package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/flowgate/flowgate/internal/config"
	"github.com/flowgate/flowgate/internal/debug"
	"github.com/flowgate/flowgate/internal/eventlog"
	"github.com/flowgate/flowgate/internal/flow"
	"github.com/flowgate/flowgate/internal/flowdef"
	"github.com/flowgate/flowgate/internal/github"
	"github.com/flowgate/flowgate/internal/telemetry"
	"github.com/flowgate/flowgate/internal/verify"
)

var (
	dirFlag     string
	sessionFlag string
	jsonOutput  bool
	verboseFlag bool
	quietFlag   bool

	flowgateDir string
	cfg         *config.LocalConfig
	store       *eventlog.Store
	eventLog    eventlog.Log
	flowCatalog *flowdef.Catalog
	hookCatalog *verify.Catalog

	// Signal-aware context for graceful cancellation
	rootCtx    context.Context
	rootCancel context.CancelFunc
)

// Command groups for organized help output
const (
	GroupFlows   = "flows"
	GroupSession = "session"
	GroupSetup   = "setup"
)

func init() {
	rootCmd.PersistentFlags().StringVar(&dirFlag, "dir", "", "Path to the .flowgate directory (default: search upward from cwd)")
	rootCmd.PersistentFlags().StringVar(&sessionFlag, "session", "", "Session ID (default: $FLOWGATE_SESSION_ID, $CLAUDE_SESSION_ID, config)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Enable verbose/debug output")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "Suppress non-essential output (errors only)")

	// Add --version flag to root command (same behavior as version subcommand)
	rootCmd.Flags().BoolP("version", "V", false, "Print version information")

	rootCmd.AddGroup(&cobra.Group{ID: GroupFlows, Title: "Working With Flows:"})
	rootCmd.AddGroup(&cobra.Group{ID: GroupSession, Title: "Session & Verification:"})
	rootCmd.AddGroup(&cobra.Group{ID: GroupSetup, Title: "Setup & Maintenance:"})
}

var rootCmd = &cobra.Command{
	Use:   "flowgate",
	Short: "flowgate - Flow tracking and hook verification for agent sessions",
	Long: `Event-sourced flow tracking for AI coding agent sessions.

Flows declare the steps a piece of work must pass through; hook events
record the gate decisions made along the way. All state is replayed from
per-session JSONL logs, so it survives crashes and concurrent writers.`,
	Run: func(cmd *cobra.Command, args []string) {
		if v, _ := cmd.Flags().GetBool("version"); v {
			fmt.Printf("flowgate version %s (%s)\n", Version, Build)
			return
		}
		// No subcommand - show help
		_ = cmd.Help()
	},
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		debug.SetVerbose(verboseFlag)
		debug.SetQuiet(quietFlag)

		rootCtx, rootCancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

		flowgateDir = resolveDir()
		if !workspaceExists() && !isNoWorkspaceCommand(cmd) {
			emitNoWorkspaceError()
			os.Exit(1)
		}

		if err := config.Initialize(flowgateDir); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to read config: %v\n", err)
		}
		applyViperOverrides(cmd)

		cfg = config.LoadWithEnv(flowgateDir)

		if err := telemetry.Init(rootCtx, "flowgate", Version); err != nil {
			debug.Logf("telemetry init failed: %v\n", err)
		}

		store = eventlog.NewStore(cfg.LogDirOrDefault(flowgateDir))
		if d := cfg.LockTimeoutDuration(); d > 0 {
			store = store.WithLockTimeout(d)
		}
		eventLog = telemetry.WrapLog(store)

		flowCatalog = flowdef.NewCatalog()
		if err := flowCatalog.LoadSearchPaths(flowgateDir); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
		hookCatalog = verify.NewCatalog()
		if err := hookCatalog.LoadSearchPaths(flowgateDir); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		telemetry.Shutdown(ctx)
		cancel()

		if rootCancel != nil {
			rootCancel()
		}
	},
}

// resolveDir picks the .flowgate directory for this invocation: --dir
// wins, then FLOWGATE_DIR, then walking up from the cwd.
func resolveDir() string {
	if dirFlag != "" {
		return dirFlag
	}
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	return config.FindDir(cwd)
}

// workspaceExists reports whether the resolved .flowgate directory is on
// disk. FindDir falls back to <cwd>/.flowgate, which init creates.
func workspaceExists() bool {
	fi, err := os.Stat(flowgateDir)
	return err == nil && fi.IsDir()
}

// noWorkspaceCommands lists commands that run without a .flowgate
// directory. Hook handlers are here too: they fail open, never error.
var noWorkspaceCommands = []string{
	"__complete",
	"__completeNoDesc",
	"completion",
	"flows",
	"help",
	"hook",
	"init",
	"version",
}

func isNoWorkspaceCommand(cmd *cobra.Command) bool {
	if cmd.Parent() != nil && slices.Contains(noWorkspaceCommands, cmd.Parent().Name()) {
		return true
	}
	if slices.Contains(noWorkspaceCommands, cmd.Name()) {
		return true
	}

	// Root command with no subcommand just shows help.
	if cmd.Parent() == nil && cmd.Name() == cmd.Use {
		return true
	}

	if v, _ := cmd.Flags().GetBool("version"); v {
		return true
	}
	return false
}

func emitNoWorkspaceError() {
	fmt.Fprintf(os.Stderr, "Error: no .flowgate directory found\n")
	fmt.Fprintf(os.Stderr, "Hint: run 'flowgate init' to create one in the current directory\n")
	fmt.Fprintf(os.Stderr, "      or set FLOWGATE_DIR to point to your .flowgate directory\n")
}

// applyViperOverrides merges config-file and environment values into
// flags the user did not set. Priority: flags > config/env > defaults.
func applyViperOverrides(cmd *cobra.Command) {
	if !cmd.Flags().Changed("json") {
		jsonOutput = config.GetBool("json")
	}
	if !cmd.Flags().Changed("quiet") && config.GetBool("quiet") {
		quietFlag = true
		debug.SetQuiet(true)
	}
}

// resolveSessionID returns the session identity for this invocation:
// --session, then $FLOWGATE_SESSION_ID, then $CLAUDE_SESSION_ID, then
// the config file. Hook handlers prefer the stdin payload's session_id
// over all of these.
func resolveSessionID() string {
	if sessionFlag != "" {
		return sessionFlag
	}
	if s := os.Getenv("FLOWGATE_SESSION_ID"); s != "" {
		return s
	}
	if s := os.Getenv("CLAUDE_SESSION_ID"); s != "" {
		return s
	}
	return config.GetString("session-id")
}

// requireSessionID exits with an error when no session identity can be
// resolved. Only hook handlers run without one.
func requireSessionID() string {
	sid := resolveSessionID()
	if sid == "" {
		fmt.Fprintf(os.Stderr, "Error: no session ID (set --session or FLOWGATE_SESSION_ID)\n")
		os.Exit(1)
	}
	return sid
}

func newEngine() *flow.Engine {
	return flow.NewEngine(eventLog, flowCatalog)
}

// newAggregator builds the session-end aggregator from config: expiry
// window, lookup bounds, and a GitHub issue checker when a repo is
// configured.
func newAggregator() *flow.Aggregator {
	agg := flow.NewAggregator(flowCatalog).
		WithExpiry(cfg.Expiry()).
		WithLookupTimeout(cfg.LookupTimeoutDuration()).
		WithLookupConcurrency(cfg.LookupConcurrency)
	if cfg.GitHub.Owner != "" && cfg.GitHub.Repo != "" {
		agg = agg.WithIssueChecker(github.NewClient(cfg.GitHub.Token, cfg.GitHub.Owner, cfg.GitHub.Repo))
	}
	return agg
}

func outputJSON(v interface{}) {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
		os.Exit(1)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
