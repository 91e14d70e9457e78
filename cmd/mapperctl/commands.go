package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/communitymapper/community-mapper/internal/di/providers"
	"github.com/communitymapper/community-mapper/internal/export"
	"github.com/communitymapper/community-mapper/internal/service"
)

func newMigrateCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Open the database and apply the schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return g.withContainer(func(i do.Injector) error {
				pool := do.MustInvoke[*providers.PoolHandle](i)
				if err := pool.Ping(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "database ready (%s)\n", pool.Dialect())
				return nil
			})
		},
	}
}

func newUserCommand(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage accounts",
	}
	cmd.AddCommand(newUserCreateCommand(g))
	cmd.AddCommand(newUserListCommand(g))
	cmd.AddCommand(newUserDeleteCommand(g))
	return cmd
}

func newUserCreateCommand(g *globalFlags) *cobra.Command {
	var (
		email         string
		name          string
		passwordStdin bool
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an account",
		Long: `Create an account. The password is read from the first line of stdin
with --password-stdin, or from MAPPER_PASSWORD.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			password := os.Getenv("MAPPER_PASSWORD")
			if passwordStdin {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read password: %w", err)
				}
				password = strings.TrimRight(line, "\r\n")
			}
			if password == "" {
				return errors.New("no password given: use --password-stdin or MAPPER_PASSWORD")
			}

			return g.withContainer(func(i do.Injector) error {
				users := do.MustInvoke[*service.UserService](i)
				u, err := users.CreateUser(cmd.Context(), service.CreateUserRequest{
					Email: email, DisplayName: name, Password: password,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created user %s (%s)\n", u.Email, u.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from stdin")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func newUserListCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Short:   "List accounts",
		Aliases: []string{"ls"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return g.withContainer(func(i do.Injector) error {
				users, err := do.MustInvoke[*service.UserService](i).ListUsers(cmd.Context())
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tEMAIL\tNAME\tCREATED")
				for _, u := range users {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", u.ID, u.Email, u.DisplayName, u.CreatedAt.Format(time.DateOnly))
				}
				return w.Flush()
			})
		},
	}
}

func newUserDeleteCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <email>",
		Short: "Delete an account with its people, tags and media",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withContainer(func(i do.Injector) error {
				users := do.MustInvoke[*service.UserService](i)
				u, err := users.GetUserByEmail(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if err := users.DeleteUser(cmd.Context(), u.ID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted user %s\n", u.Email)
				return nil
			})
		},
	}
}

func newExportCommand(g *globalFlags) *cobra.Command {
	var (
		email string
		out   string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a user's people to an XLSX workbook",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return g.withContainer(func(i do.Injector) error {
				u, err := do.MustInvoke[*service.UserService](i).GetUserByEmail(cmd.Context(), email)
				if err != nil {
					return err
				}
				data, err := do.MustInvoke[*service.PersonService](i).Export(cmd.Context(), u.ID)
				if err != nil {
					return err
				}
				if out == "" {
					out = export.FileName(time.Now().Format(time.DateOnly))
				}
				if err := os.WriteFile(out, data, 0o600); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", out, len(data))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&email, "user", "", "Email of the account to export")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (default: dated name in the current directory)")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func newReindexCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the search index from the database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return g.withContainer(func(i do.Injector) error {
				searchService := do.MustInvoke[*service.SearchService](i)
				if !searchService.Enabled() {
					return errors.New("search is disabled by configuration")
				}
				n, err := searchService.Reindex(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "indexed %d people\n", n)
				return nil
			})
		},
	}
}

func newSessionsCommand(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Manage login sessions",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "prune",
		Short: "Delete expired sessions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return g.withContainer(func(i do.Injector) error {
				n, err := do.MustInvoke[*service.SessionService](i).DeleteExpiredSessions(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %d expired sessions\n", n)
				return nil
			})
		},
	})
	return cmd
}
