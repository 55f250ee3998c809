package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/aretw0/signoff/internal/cli"
	"github.com/aretw0/signoff/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	settings = viper.New()
	cfg      *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "signoff",
	Short: "Signoff is an approval workflow engine",
	Long: `Signoff routes business requests through approval workflows: single,
parallel and sequential sign-off gates joined by data-driven conditions.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		loaded, err := config.Load(settings, path)
		if err != nil {
			return err
		}
		cfg = loaded
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "Config file (default signoff.yaml in . or .signoff/)")
	flags.String("dir", "", "Directory containing workflow definitions")
	flags.String("store", "", "Instance store driver: memory, file or redis")
	flags.String("log-level", "", "Log level: debug, info, warn or error")
	flags.String("log-format", "", "Log format: text or json")

	bind("workflows.dir", "dir")
	bind("store.driver", "store")
	bind("log.level", "log-level")
	bind("log.format", "log-format")
}

// bind lets a flag override key only when it was set on the command line.
func bind(key, flag string) {
	if err := settings.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func newRuntime() (*cli.Runtime, error) {
	return cli.NewRuntime(cfg, cli.NewLogger(cfg))
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
