package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/signoff"
	"github.com/aretw0/signoff/internal/dto"
	"github.com/aretw0/signoff/internal/presentation/tui"
	"github.com/aretw0/signoff/internal/validator"
	"github.com/aretw0/signoff/pkg/domain"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [file...]",
	Short: "Check workflows for consistency",
	Long: `Validates the given workflow files, or every workflow in the configured
source when no file is given. Reports dangling connections, missing exits,
ambiguous routes and condition loops as errors and unreachable nodes as warnings.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var workflows []*domain.Workflow
		var failed bool
		printer := tui.NewPrinter(cmd.OutOrStdout())
		errPrinter := tui.NewPrinter(cmd.ErrOrStderr())

		if len(args) > 0 {
			for _, path := range args {
				wf, err := readWorkflowFile(path)
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", errPrinter.Fail(path), err)
					failed = true
					continue
				}
				workflows = append(workflows, wf)
			}
		} else {
			rt, err := newRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()

			ids, err := rt.Workflows.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("list workflows: %w", err)
			}
			for _, id := range ids {
				wf, err := rt.Workflows.Get(cmd.Context(), id)
				if err != nil {
					reportInvalid(cmd, errPrinter, id, err)
					failed = true
					continue
				}
				workflows = append(workflows, wf)
			}
		}

		for _, wf := range workflows {
			if err := signoff.Validate(wf); err != nil {
				reportInvalid(cmd, errPrinter, wf.ID, err)
				failed = true
				continue
			}
			fmt.Fprintln(cmd.OutOrStdout(), printer.Ok(wf.ID))
			for _, id := range validator.Unreachable(wf) {
				fmt.Fprintln(cmd.OutOrStdout(), printer.Warn(fmt.Sprintf("  warning: node %q is unreachable from start", id)))
			}
		}

		if failed {
			return errors.New("validation failed")
		}
		return nil
	},
}

func reportInvalid(cmd *cobra.Command, p *tui.Printer, id string, err error) {
	fmt.Fprintln(cmd.ErrOrStderr(), p.Fail(id))
	errs := validator.ValidationErrors(err)
	if len(errs) == 0 {
		errs = []error{err}
	}
	for _, e := range errs {
		fmt.Fprintf(cmd.ErrOrStderr(), "  - %v\n", e)
	}
}

// readWorkflowFile parses a workflow document, taking its id from the file name when unset.
func readWorkflowFile(path string) (*domain.Workflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	wf, err := dto.ParseWorkflow(data)
	if err != nil {
		return nil, err
	}
	if wf.ID == "" {
		wf.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return wf, nil
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
