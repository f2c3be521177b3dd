package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/flowgate/flowgate/internal/eventlog"
)

var logsCleanKind string

var logsCmd = &cobra.Command{
	Use:     "logs",
	GroupID: GroupSetup,
	Short:   "Maintain session event logs",
}

var logsCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Drop malformed lines from this session's logs",
	Long: `Rewrite the session's event logs, dropping lines that fail to decode.
Valid events are kept byte-for-byte. Use --kind to clean only one log.

Examples:
  flowgate logs clean
  flowgate logs clean --kind hook`,
	Run: func(cmd *cobra.Command, args []string) {
		sid := requireSessionID()

		kinds := []eventlog.Kind{eventlog.KindFlowProgress, eventlog.KindHookExecution}
		switch logsCleanKind {
		case "":
		case "flow":
			kinds = []eventlog.Kind{eventlog.KindFlowProgress}
		case "hook":
			kinds = []eventlog.Kind{eventlog.KindHookExecution}
		default:
			fmt.Fprintf(os.Stderr, "Error: unknown --kind %q (want flow or hook)\n", logsCleanKind)
			os.Exit(1)
		}

		results := make(map[string]*eventlog.CleanResult, len(kinds))
		for _, kind := range kinds {
			res, err := store.Clean(kind, sid)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			results[string(kind)] = res
		}

		if jsonOutput {
			outputJSON(results)
			return
		}
		for _, kind := range kinds {
			res := results[string(kind)]
			fmt.Printf("%-16s kept %d, dropped %d\n", kind, res.Kept, res.Dropped)
		}
	},
}

func init() {
	logsCleanCmd.Flags().StringVar(&logsCleanKind, "kind", "", "Log to clean: flow or hook (default: both)")
	logsCmd.AddCommand(logsCleanCmd)
	rootCmd.AddCommand(logsCmd)
}
