package main

import (
	"lecturehall/config"
	"lecturehall/internal/infra/persistence"

	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configDir string

	ctx := newCommandContext(func() (*config.Config, error) {
		if configDir != "" {
			return config.Load(configDir)
		}

		return config.New()
	}, openDatabase(persistence.Open))

	cmd := newRootCommandWithContext(ctx)
	cmd.PersistentFlags().StringVarP(&configDir, "config-dir", "c", "", "Directory containing config.yaml")

	return cmd
}

func newRootCommandWithContext(ctx *commandContext) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "hallctl",
		Short:         "Operator tool for the lecture library",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.AddCommand(newMigrateCommand(ctx))
	rootCmd.AddCommand(newAccountsCommand(ctx))
	rootCmd.AddCommand(newTreeCommand(ctx))

	return rootCmd
}
