package main

import (
	"bufio"
	"fmt"
	"strings"

	"lecturehall/internal/domain/entity"
	"lecturehall/internal/usecase"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newAccountsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Inspect and administer accounts",
	}

	cmd.AddCommand(newAccountsListCommand(ctx))
	cmd.AddCommand(newAccountsCreateCommand(ctx))
	cmd.AddCommand(newAccountsSetRoleCommand(ctx))
	cmd.AddCommand(newAccountsSetCredentialCommand(ctx))

	return cmd
}

func newAccountsListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every account",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEnvironment(cmd, func(env *environment) error {
				accounts, err := env.identity().ListAccounts(cmd.Context())
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if len(accounts) == 0 {
					fmt.Fprintln(out, "No accounts registered")

					return nil
				}

				rows := make([][]string, 0, len(accounts))
				for _, account := range accounts {
					rows = append(rows, []string{
						account.ID.String(),
						account.Identifier,
						account.Role.String(),
						humanize.Time(account.CreatedAt),
					})
				}

				headers := []string{"ID", "Identifier", "Role", "Created"}
				fmt.Fprintln(out, renderTable(headers, rows, []columnAlignment{alignLeft, alignLeft, alignLeft, alignRight}))

				return nil
			})
		},
	}
}

func newAccountsCreateCommand(ctx *commandContext) *cobra.Command {
	var (
		credential string
		admin      bool
	)

	cmd := &cobra.Command{
		Use:   "create <identifier>",
		Short: "Register an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, err := readCredential(cmd, credential)
			if err != nil {
				return err
			}

			return ctx.withEnvironment(cmd, func(env *environment) error {
				identity := env.identity()

				account, err := identity.CreateAccount(cmd.Context(), &usecase.CreateAccountInput{
					Identifier: args[0],
					Credential: secret,
				})
				if err != nil {
					return err
				}

				if admin && !account.Role.IsAdmin() {
					if account, err = identity.SetRole(cmd.Context(), account.Identifier, entity.RoleAdmin); err != nil {
						return err
					}
				}

				fmt.Fprintf(cmd.OutOrStdout(), "Created %s (%s) as %s\n", account.Identifier, account.ID, account.Role)

				return nil
			})
		},
	}

	cmd.Flags().StringVar(&credential, "credential", "", "Credential for the account (read from stdin when empty)")
	cmd.Flags().BoolVar(&admin, "admin", false, "Grant the admin role")

	return cmd
}

func newAccountsSetRoleCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "set-role <identifier> <user|admin>",
		Short: "Change the role of an account",
		Long:  "Change the stored role of an account. Sessions issued before the change keep their role until they end.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			role := entity.Role(strings.ToLower(strings.TrimSpace(args[1])))
			if !role.IsValid() {
				return errors.Errorf("unknown role %q, expected user or admin", args[1])
			}

			return ctx.withEnvironment(cmd, func(env *environment) error {
				account, err := env.identity().SetRole(cmd.Context(), args[0], role)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", account.Identifier, account.Role)

				return nil
			})
		},
	}
}

func newAccountsSetCredentialCommand(ctx *commandContext) *cobra.Command {
	var credential string

	cmd := &cobra.Command{
		Use:   "set-credential <identifier>",
		Short: "Replace the credential of an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, err := readCredential(cmd, credential)
			if err != nil {
				return err
			}

			return ctx.withEnvironment(cmd, func(env *environment) error {
				if err := env.identity().SetCredential(cmd.Context(), args[0], secret); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Credential updated for %s\n", args[0])

				return nil
			})
		},
	}

	cmd.Flags().StringVar(&credential, "credential", "", "New credential (read from stdin when empty)")

	return cmd
}

// readCredential prefers the flag value and falls back to the first line of stdin.
func readCredential(cmd *cobra.Command, flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}

	scanner := bufio.NewScanner(cmd.InOrStdin())
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", errors.Wrap(err, "read credential")
		}

		return "", errors.New("credential required: pass --credential or pipe it on stdin")
	}

	secret := strings.TrimRight(scanner.Text(), "\r\n")
	if secret == "" {
		return "", errors.New("credential required: pass --credential or pipe it on stdin")
	}

	return secret, nil
}
