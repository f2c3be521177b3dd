package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/flowgate/flowgate/internal/config"
	"github.com/flowgate/flowgate/internal/report"
	"github.com/flowgate/flowgate/internal/timeparsing"
	"github.com/flowgate/flowgate/internal/verify"
	"github.com/flowgate/flowgate/internal/workflowstate"
)

var sessionVerifySince string

var sessionCmd = &cobra.Command{
	Use:     "session",
	GroupID: GroupSession,
	Short:   "Verify and report on the current session",
}

var sessionVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check hook expectations against the session log",
	Long: `Replay the session's hook-execution log against the expectation
catalog and report, per phase, which hooks fired and whether their
decisions matched. Exits 1 when issues are found.

--since limits the window; it accepts Go durations ("90m"), compact
forms ("2h", "1d"), and natural language ("yesterday", "last monday").

Examples:
  flowgate session verify
  flowgate session verify --since 2h
  flowgate session verify --since "this morning" --json`,
	Run: func(cmd *cobra.Command, args []string) {
		sid := requireSessionID()

		opts := verify.SummaryOptions{}
		if sessionVerifySince != "" {
			cutoff, err := timeparsing.ParseSince(sessionVerifySince, time.Now())
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			window := time.Since(cutoff)
			opts.Since = &window
		}

		sum, err := verify.NewVerifier(eventLog, hookCatalog, flowCatalog.Phases(), sid).Summary(opts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if jsonOutput {
			outputJSON(sum)
		} else {
			wfDir := config.WorkflowDir(flowgateDir)
			wfName, wf := workflowstate.SelectDisplay(workflowstate.Load(wfDir, sid), flowCatalog.Phases())
			fmt.Println(report.VerificationBlock(wfName, wf, sum, flowCatalog.Phases()))
		}
		if sum.IssuesTotal > 0 {
			os.Exit(1)
		}
	},
}

var sessionReportCmd = &cobra.Command{
	Use:   "report",
	Short: "Combined flow progress and verification report",
	Run: func(cmd *cobra.Command, args []string) {
		sid := requireSessionID()

		statuses := newEngine().Incomplete(sid)
		sum, err := verify.NewVerifier(eventLog, hookCatalog, flowCatalog.Phases(), sid).Summary(verify.SummaryOptions{})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if jsonOutput {
			outputJSON(map[string]interface{}{
				"session_id":   sid,
				"flows":        statuses,
				"verification": sum,
			})
			return
		}

		phases := flowCatalog.Phases()
		var sections []string
		for _, st := range statuses {
			sections = append(sections, report.FlowProgress(st, flowCatalog.FlowDefinition(st.FlowID), phases))
		}
		wfDir := config.WorkflowDir(flowgateDir)
		wfName, wf := workflowstate.SelectDisplay(workflowstate.Load(wfDir, sid), phases)
		sections = append(sections, report.VerificationBlock(wfName, wf, sum, phases))
		fmt.Println(strings.Join(sections, "\n"))
	},
}

func init() {
	sessionVerifyCmd.Flags().StringVar(&sessionVerifySince, "since", "", "Only count hook events after this time")
	sessionCmd.AddCommand(sessionVerifyCmd)
	sessionCmd.AddCommand(sessionReportCmd)
	rootCmd.AddCommand(sessionCmd)
}
