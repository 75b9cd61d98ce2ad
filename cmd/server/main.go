package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"property-governance-backend/config"
)

const programName = "governance-server"

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "0.1.0"

var configFile string

func rootCommand() *cobra.Command {
	var cfg *config.Config

	rootCmd := &cobra.Command{
		Use:           programName,
		Short:         "Proposal governance and weighted tally service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.LoadConfig(configFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			cfg = loaded
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return serveRun(cmd, cfg)
		},
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to YAML config file")

	load := func() *config.Config { return cfg }
	rootCmd.AddCommand(serveCommand(load))
	rootCmd.AddCommand(migrateCommand(load))
	rootCmd.AddCommand(tallyCommand(load))
	rootCmd.AddCommand(checkCommand(load))
	rootCmd.AddCommand(versionCommand())
	return rootCmd
}

func main() {
	if err := rootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", programName, err)
		os.Exit(1)
	}
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		// Skip config loading.
		PersistentPreRun: func(*cobra.Command, []string) {},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", programName, version)
		},
	}
}
