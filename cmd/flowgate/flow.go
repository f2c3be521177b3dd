package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/flowgate/flowgate/internal/config"
	"github.com/flowgate/flowgate/internal/debug"
	"github.com/flowgate/flowgate/internal/eventlog"
	"github.com/flowgate/flowgate/internal/flow"
	"github.com/flowgate/flowgate/internal/report"
	"github.com/flowgate/flowgate/internal/workflowstate"
)

var (
	flowStartCtx []string
	flowListAll  bool
)

var flowCmd = &cobra.Command{
	Use:     "flow",
	GroupID: GroupFlows,
	Short:   "Track flow instances through their steps",
}

var flowStartCmd = &cobra.Command{
	Use:   "start <flow-id>",
	Short: "Start a flow instance (or return the active one)",
	Long: `Start an instance of a flow definition for this session.

Starting a flow whose context matches an active instance returns that
instance instead of creating a duplicate, so hooks can call start
idempotently.

Examples:
  flowgate flow start land-pr
  flowgate flow start issue-work --ctx issue_number=42
  flowgate flow start issue-work --ctx issue_number=42 --ctx skip_planning=true`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		sid := requireSessionID()
		fctx, err := parseCtxPairs(flowStartCtx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		engine := newEngine()
		instanceID, err := engine.Start(args[0], fctx, sid)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		syncWorkflow(sid, instanceID)

		if jsonOutput {
			st, err := engine.Status(instanceID, sid)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			outputJSON(st)
			return
		}
		debug.PrintNormal("Started %s (%s)\n", instanceID, args[0])
	},
}

var flowStepCmd = &cobra.Command{
	Use:   "step <instance-id> <step-id>",
	Short: "Record a step completion",
	Long: `Record that a step of a flow instance completed. Repeated completions
of the same step are recorded and counted but only count once toward
flow completion. Completing the last expected step completes the flow.

The instance id may be a unique fragment of the full id.

Examples:
  flowgate flow step flow-1712000000-abc tests-pass
  flowgate flow step 1712 tests-pass`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		sid := requireSessionID()
		stepID := args[1]

		engine := newEngine()

		// Resolve partial instance ids
		instanceID := resolveInstance(engine, sid, args[0])
		st, err := engine.Status(instanceID, sid)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if err := engine.CompleteStep(instanceID, stepID, st.FlowID, sid); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		syncWorkflow(sid, instanceID)

		if jsonOutput {
			st, err = engine.Status(instanceID, sid)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			outputJSON(st)
			return
		}
		debug.PrintNormal("Completed step %s\n", stepID)
	},
}

var flowCompleteCmd = &cobra.Command{
	Use:   "complete <instance-id>",
	Short: "Mark a flow instance complete",
	Long: `Explicitly complete a flow instance regardless of pending steps.
Use this when the work was finished outside the tracked steps.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		sid := requireSessionID()

		engine := newEngine()

		// Resolve partial instance ids
		instanceID := resolveInstance(engine, sid, args[0])
		st, err := engine.Status(instanceID, sid)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if err := engine.CompleteFlow(instanceID, st.FlowID, sid); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		syncWorkflow(sid, instanceID)

		if jsonOutput {
			st, err = engine.Status(instanceID, sid)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			outputJSON(st)
			return
		}
		debug.PrintNormal("Completed %s\n", instanceID)
	},
}

var flowStatusCmd = &cobra.Command{
	Use:   "status <instance-id>",
	Short: "Show one flow instance's progress",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		sid := requireSessionID()

		engine := newEngine()
		instanceID := resolveInstance(engine, sid, args[0])
		st, err := engine.Status(instanceID, sid)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if jsonOutput {
			outputJSON(st)
			return
		}
		def := flowCatalog.FlowDefinition(st.FlowID)
		fmt.Println(report.FlowProgress(st, def, flowCatalog.Phases()))
	},
}

var flowListCmd = &cobra.Command{
	Use:   "list",
	Short: "List this session's flow instances",
	Run: func(cmd *cobra.Command, args []string) {
		sid := requireSessionID()

		engine := newEngine()
		statuses := engine.Incomplete(sid)
		if flowListAll {
			statuses = engine.AllStatuses(sid)
		}
		if jsonOutput {
			outputJSON(statuses)
			return
		}
		if len(statuses) == 0 {
			fmt.Println("No flows.")
			return
		}
		for _, st := range statuses {
			name := st.FlowName
			if name == "" {
				name = st.FlowID
			}
			state := fmt.Sprintf("%d/%d steps", len(st.CompletedSteps), len(st.ExpectedSteps))
			if st.Complete {
				state = "complete"
			}
			fmt.Printf("%-40s %-20s %s\n", st.FlowInstanceID, name, state)
		}
	},
}

func init() {
	flowStartCmd.Flags().StringArrayVar(&flowStartCtx, "ctx", nil, "Flow context as key=value (repeatable)")
	flowListCmd.Flags().BoolVar(&flowListAll, "all", false, "Include completed instances")

	flowCmd.AddCommand(flowStartCmd)
	flowCmd.AddCommand(flowStepCmd)
	flowCmd.AddCommand(flowCompleteCmd)
	flowCmd.AddCommand(flowStatusCmd)
	flowCmd.AddCommand(flowListCmd)
	rootCmd.AddCommand(flowCmd)
}

// parseCtxPairs parses repeated --ctx key=value flags.
func parseCtxPairs(pairs []string) (eventlog.Context, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	fctx := make(eventlog.Context, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --ctx %q (want key=value)", p)
		}
		fctx[k] = v
	}
	return fctx, nil
}

// resolveInstance expands a possibly-partial instance id against every
// flow the session has recorded, completed instances included.
func resolveInstance(engine *flow.Engine, sessionID, input string) string {
	id, err := flow.ResolveInstanceID(engine.AllStatuses(sessionID), input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return id
}

// syncWorkflow projects a flow instance's progress onto the session's
// workflow state file and makes its workflow the active one.
func syncWorkflow(sid, instanceID string) {
	st, err := newEngine().Status(instanceID, sid)
	if err != nil {
		return
	}
	def := flowCatalog.FlowDefinition(st.FlowID)
	if def == nil {
		return
	}
	wfDir := config.WorkflowDir(flowgateDir)
	state := workflowstate.Load(wfDir, sid)
	name := workflowstate.WorkflowNameFor(st)
	workflowstate.SyncFlow(state.Workflow(name), st, def, flowCatalog.Phases())
	state.SetActive(name)
	if !state.Save(wfDir) {
		debug.Logf("workflow state save failed for %s\n", name)
	}
}
