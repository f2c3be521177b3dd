package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/flowgate/flowgate/internal/flowdef"
	"github.com/flowgate/flowgate/internal/report"
)

var flowsNoPager bool

var flowsCmd = &cobra.Command{
	Use:     "flows",
	GroupID: GroupFlows,
	Short:   "List available flow definitions",
	Long: `List the flow definitions in the catalog: built-ins plus any
.flow.toml files in .flowgate/flows/ (files override built-ins with
the same flow id).`,
	Run: func(cmd *cobra.Command, args []string) {
		defs := flowCatalog.Flows()
		if jsonOutput {
			outputJSON(defs)
			return
		}
		for _, def := range defs {
			name := def.Name
			if name == "" {
				name = def.Flow
			}
			marker := ""
			if def.BlockingOnSessionEnd {
				marker = " [blocking]"
			}
			fmt.Printf("%-20s %-24s %d steps%s\n", def.Flow, name, len(def.Steps), marker)
		}
	},
}

var flowsShowCmd = &cobra.Command{
	Use:   "show <flow-id>",
	Short: "Show one flow definition",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		def := flowCatalog.FlowDefinition(args[0])
		if def == nil {
			fmt.Fprintf(os.Stderr, "Error: unknown flow %q\n", args[0])
			os.Exit(1)
		}
		if jsonOutput {
			outputJSON(def)
			return
		}
		out := report.RenderMarkdown(flowDoc(def))
		if err := report.ToPager(out, report.PagerOptions{NoPager: flowsNoPager}); err != nil {
			fmt.Print(out)
		}
	},
}

func init() {
	flowsShowCmd.Flags().BoolVar(&flowsNoPager, "no-pager", false, "Print directly instead of using a pager")
	flowsCmd.AddCommand(flowsShowCmd)
	rootCmd.AddCommand(flowsCmd)
}

// flowDoc renders a flow definition as markdown for glamour.
func flowDoc(def *flowdef.FlowDefinition) string {
	var b strings.Builder
	title := def.Name
	if title == "" {
		title = def.Flow
	}
	fmt.Fprintf(&b, "# %s (`%s`)\n\n", title, def.Flow)
	if def.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", def.Description)
	}
	if def.BlockingOnSessionEnd {
		b.WriteString("Incomplete instances block session end.\n\n")
	}
	if def.CompletionStep != "" {
		fmt.Fprintf(&b, "The flow completes as soon as `%s` completes.\n\n", def.CompletionStep)
	}

	b.WriteString("## Steps\n\n")
	phases := flowCatalog.Phases()
	for _, step := range def.Steps {
		name := step.Name
		if name == "" {
			name = step.ID
		}
		note := ""
		if !step.Required {
			note = " _(optional)_"
		}
		if step.SkipCondition != "" {
			note += fmt.Sprintf(" _(skipped when `%s`)_", step.SkipCondition)
		}
		fmt.Fprintf(&b, "- `%s`: %s, phase %s%s\n", step.ID, name, flowdef.PhaseByID(phases, step.Phase).Name, note)
	}
	return b.String()
}
