package main

import (
	"fmt"

	"github.com/aretw0/signoff/internal/presentation/graph"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph <workflow-id>",
	Short: "Export the workflow graph visualization",
	Long: `Outputs a Mermaid diagram (graph TD) of a workflow. With --instance the
nodes the instance visited and the one it waits at are highlighted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()
		ctx := cmd.Context()

		wf, err := rt.Engine.Workflow(ctx, args[0])
		if err != nil {
			return err
		}

		var overlay *graph.GraphOverlay
		if instanceID, _ := cmd.Flags().GetString("instance"); instanceID != "" {
			inst, err := rt.Engine.Instance(ctx, instanceID)
			if err != nil {
				return err
			}
			if inst.WorkflowID != wf.ID {
				return fmt.Errorf("instance %s belongs to workflow %s", inst.ID, inst.WorkflowID)
			}
			history, err := rt.Engine.History(ctx, instanceID)
			if err != nil {
				return err
			}
			overlay = graph.OverlayFromInstance(inst, history)
		}

		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(wf, overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().String("instance", "", "Highlight the path of this instance")
}
