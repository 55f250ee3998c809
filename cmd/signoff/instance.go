package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/aretw0/signoff/internal/presentation/tui"
	"github.com/aretw0/signoff/pkg/domain"
	"github.com/spf13/cobra"
)

var instanceCmd = &cobra.Command{
	Use:     "instance",
	Aliases: []string{"inst"},
	Short:   "Create, decide on and inspect workflow instances",
	Long: `Operates on instances in the configured store. The memory store does not
outlive a single command, so use the file or redis driver here.`,
}

var instanceApplyCmd = &cobra.Command{
	Use:   "apply <workflow-id>",
	Short: "Create a new instance of a workflow",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		applicant, _ := cmd.Flags().GetString("applicant")
		rawData, _ := cmd.Flags().GetString("data")
		initialize, _ := cmd.Flags().GetBool("init")

		data, err := parseData(rawData)
		if err != nil {
			return err
		}

		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()

		var inst *domain.Instance
		if initialize {
			inst, err = rt.Engine.Submit(cmd.Context(), args[0], applicant, data)
		} else {
			inst, err = rt.Engine.Apply(cmd.Context(), args[0], applicant, data)
		}
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), inst)
	},
}

var instanceInitCmd = &cobra.Command{
	Use:   "init <instance-id>",
	Short: "Enter the first node of an applied instance",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()

		status, err := rt.Engine.Initialize(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), tui.NewPrinter(cmd.OutOrStdout()).Status(status))
		return nil
	},
}

func decisionCommand(use, short, result string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use + " <instance-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, _ := cmd.Flags().GetString("actor")
			name, _ := cmd.Flags().GetString("name")
			comment, _ := cmd.Flags().GetString("comment")

			rt, err := newRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()

			out, err := rt.Engine.Approve(cmd.Context(), args[0], domain.Decision{
				ActorID:   actor,
				ActorName: name,
				Comment:   comment,
				Result:    result,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().String("actor", "", "Id of the acting approver")
	cmd.Flags().String("name", "", "Display name of the approver")
	cmd.Flags().StringP("comment", "m", "", "Comment recorded in the history")
	_ = cmd.MarkFlagRequired("actor")
	return cmd
}

var instanceWithdrawCmd = &cobra.Command{
	Use:   "withdraw <instance-id>",
	Short: "Close a pending instance without a decision",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		actor, _ := cmd.Flags().GetString("actor")
		comment, _ := cmd.Flags().GetString("comment")

		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()

		if err := rt.Engine.Withdraw(cmd.Context(), args[0], actor, comment); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), tui.NewPrinter(cmd.OutOrStdout()).Status(domain.StatusWithdrawn))
		return nil
	},
}

var instanceInspectCmd = &cobra.Command{
	Use:   "inspect <instance-id>",
	Short: "Print the stored instance",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()

		inst, err := rt.Engine.Instance(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), inst)
	},
}

var instanceReportCmd = &cobra.Command{
	Use:   "report <instance-id>",
	Short: "Render a readable summary of an instance and its history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, _ := cmd.Flags().GetBool("raw")

		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()
		ctx := cmd.Context()

		inst, err := rt.Engine.Instance(ctx, args[0])
		if err != nil {
			return err
		}
		history, err := rt.Engine.History(ctx, inst.ID)
		if err != nil {
			return err
		}
		var info *domain.NodeInfo
		if inst.CurrentNodeID != "" {
			if info, err = rt.Engine.CurrentNodeInfo(ctx, inst.ID); err != nil {
				return err
			}
		}

		md := tui.Report(inst, info, history)
		if raw || !isStdout(cmd) {
			fmt.Fprint(cmd.OutOrStdout(), md)
			return nil
		}
		rendered, err := tui.NewRenderer()(md)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), rendered)
		return nil
	},
}

// isStdout reports whether cmd writes to an interactive stdout.
func isStdout(cmd *cobra.Command) bool {
	f, ok := cmd.OutOrStdout().(*os.File)
	return ok && tui.IsTerminal(f)
}

var instanceLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List all stored instances",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()

		ids, err := rt.Engine.Instances(cmd.Context())
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No instances found.")
			return nil
		}
		for _, id := range ids {
			fmt.Fprintln(cmd.OutOrStdout(), id)
		}
		return nil
	},
}

var instanceHistoryCmd = &cobra.Command{
	Use:   "history <instance-id>",
	Short: "Print the audit trail of an instance",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()

		records, err := rt.Engine.History(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), records)
	},
}

var instanceApproversCmd = &cobra.Command{
	Use:   "approvers <instance-id>",
	Short: "List who may act on the instance now",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()

		approvers, err := rt.Engine.CurrentApprovers(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		for _, id := range approvers {
			fmt.Fprintln(cmd.OutOrStdout(), id)
		}
		return nil
	},
}

var instanceNodeCmd = &cobra.Command{
	Use:   "node <instance-id>",
	Short: "Describe the node the instance waits at",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()

		info, err := rt.Engine.CurrentNodeInfo(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), info)
	},
}

// parseData decodes a JSON object, keeping numbers exact for condition rules.
func parseData(raw string) (map[string]any, error) {
	data := map[string]any{}
	if raw == "" {
		return data, nil
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	if err := dec.Decode(&data); err != nil {
		return nil, fmt.Errorf("--data must be a JSON object: %w", err)
	}
	return data, nil
}

func init() {
	rootCmd.AddCommand(instanceCmd)

	instanceApplyCmd.Flags().String("applicant", "", "Id of the applicant")
	instanceApplyCmd.Flags().String("data", "", "Business data as a JSON object")
	instanceApplyCmd.Flags().Bool("init", false, "Initialize the instance right away")
	_ = instanceApplyCmd.MarkFlagRequired("applicant")

	instanceReportCmd.Flags().Bool("raw", false, "Print markdown without terminal rendering")

	instanceWithdrawCmd.Flags().String("actor", "", "Id of the withdrawing actor")
	instanceWithdrawCmd.Flags().StringP("comment", "m", "", "Comment recorded in the history")

	instanceCmd.AddCommand(
		instanceApplyCmd,
		instanceInitCmd,
		decisionCommand("approve", "Approve at the current node", domain.ResultApprove),
		decisionCommand("reject", "Reject the instance", domain.ResultReject),
		instanceWithdrawCmd,
		instanceInspectCmd,
		instanceReportCmd,
		instanceLsCmd,
		instanceHistoryCmd,
		instanceApproversCmd,
		instanceNodeCmd,
	)
}
