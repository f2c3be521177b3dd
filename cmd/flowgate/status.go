package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/flowgate/flowgate/internal/config"
	"github.com/flowgate/flowgate/internal/eventlog"
	"github.com/flowgate/flowgate/internal/flowdef"
	"github.com/flowgate/flowgate/internal/report"
	"github.com/flowgate/flowgate/internal/verify"
	"github.com/flowgate/flowgate/internal/workflowstate"
)

var statusWatch bool

var statusCmd = &cobra.Command{
	Use:     "status",
	GroupID: GroupSession,
	Short:   "One-screen session overview",
	Long: `Show the session at a glance: incomplete flows, which of them would
block session end right now, the active workflow's phase, and how many
expected hooks have fired.

--watch re-renders whenever the session's logs change.`,
	Run: func(cmd *cobra.Command, args []string) {
		sid := requireSessionID()
		if statusWatch && !jsonOutput {
			watchStatus(sid)
			return
		}
		displayStatus(sid)
	},
}

func init() {
	statusCmd.Flags().BoolVar(&statusWatch, "watch", false, "Auto-refresh on log changes")
	rootCmd.AddCommand(statusCmd)
}

func displayStatus(sid string) {
	engine := newEngine()
	statuses := engine.Incomplete(sid)
	blocking := newAggregator().BlockingFlows(rootCtx, statuses, time.Now())

	sum, err := verify.NewVerifier(eventLog, hookCatalog, flowCatalog.Phases(), sid).Summary(verify.SummaryOptions{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if jsonOutput {
		outputJSON(map[string]interface{}{
			"session_id":   sid,
			"flows":        statuses,
			"blocking":     len(blocking),
			"verification": sum,
		})
		return
	}

	fmt.Printf("Session %s\n", report.RenderAccent(sid))
	fmt.Println(report.RenderSeparator())

	if len(statuses) == 0 {
		fmt.Println("No incomplete flows.")
	} else {
		fmt.Printf("%d incomplete flow(s), %d blocking session end\n", len(statuses), len(blocking))
		for _, st := range statuses {
			name := st.FlowName
			if name == "" {
				name = st.FlowID
			}
			fmt.Printf("  %-24s %s\n", name,
				report.RenderMuted(fmt.Sprintf("%d/%d steps", len(st.CompletedSteps), len(st.ExpectedSteps))))
		}
	}

	phases := flowCatalog.Phases()
	wfDir := config.WorkflowDir(flowgateDir)
	if wfName, wf := workflowstate.SelectDisplay(workflowstate.Load(wfDir, sid), phases); wf != nil && wf.CurrentPhase != "" {
		fmt.Printf("Workflow %s in phase %s\n", wfName,
			report.RenderAccent(flowdef.PhaseByID(phases, wf.CurrentPhase).Name))
	}

	line := fmt.Sprintf("%d/%d expected hooks fired", sum.FiredHooks, sum.TotalHooks)
	if sum.IssuesTotal > 0 {
		line += ", " + report.RenderFail(fmt.Sprintf("%d issue(s)", sum.IssuesTotal))
	}
	fmt.Println(line)
}

// watchStatus re-renders the overview whenever this session's log or
// workflow state files change (GH-style live view, 500ms debounce).
func watchStatus(sid string) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating watcher: %v\n", err)
		return
	}
	defer func() { _ = watcher.Close() }()

	logDir := cfg.LogDirOrDefault(flowgateDir)
	wfDir := config.WorkflowDir(flowgateDir)
	for _, dir := range []string{logDir, wfDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return
		}
		if err := watcher.Add(dir); err != nil {
			fmt.Fprintf(os.Stderr, "Error watching %s: %v\n", dir, err)
			return
		}
	}

	displayStatus(sid)
	fmt.Fprintf(os.Stderr, "\nWatching for changes... (Press Ctrl+C to exit)\n")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Debounce timer
	var debounceTimer *time.Timer
	debounceDelay := 500 * time.Millisecond
	marker := eventlog.SanitizeSessionID(sid)

	for {
		select {
		case <-sigChan:
			fmt.Fprintf(os.Stderr, "\nStopped watching.\n")
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			// Only react to writes on this session's files
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				basename := filepath.Base(event.Name)
				if strings.Contains(basename, marker) {
					if debounceTimer != nil {
						debounceTimer.Stop()
					}
					debounceTimer = time.AfterFunc(debounceDelay, func() {
						displayStatus(sid)
						fmt.Fprintf(os.Stderr, "\nWatching for changes... (Press Ctrl+C to exit)\n")
					})
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			fmt.Fprintf(os.Stderr, "Watcher error: %v\n", err)
		}
	}
}
