package main

import (
	"fmt"

	"lecturehall/internal/infra/persistence/model"

	"github.com/spf13/cobra"
)

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEnvironment(cmd, func(env *environment) error {
				if err := model.Migrate(env.db); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Schema is up to date (%s)\n", env.cfg.Database.Driver)

				return nil
			})
		},
	}
}
