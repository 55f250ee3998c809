package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/signoff"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of signoff",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "signoff version %s\n", strings.TrimSpace(signoff.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
