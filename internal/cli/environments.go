package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/mblydenburgh/postie/internal/core"
	"github.com/spf13/cobra"
)

func newEnvironmentsCommand(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "environments",
		Aliases: []string{"environment", "env"},
		Short:   "Manage environments",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List environments",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return root.withSession(cmd, func(_ context.Context, s *session) error {
					envs := s.app.Snapshot().Environments
					rows := make([][]string, 0, len(envs))
					for _, e := range envs {
						rows = append(rows, []string{e.ID, e.Name, strconv.Itoa(len(e.Values))})
					}
					printTable(cmd.OutOrStdout(), []string{"ID", "NAME", "VARIABLES"}, rows)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "show ID",
			Short: "Print the variables of an environment",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return root.withSession(cmd, func(_ context.Context, s *session) error {
					env, ok := findEnvironment(s.app.Snapshot().Environments, args[0])
					if !ok {
						return fmt.Errorf("environment %q: %w", args[0], core.ErrNotFound)
					}
					rows := make([][]string, 0, len(env.Values))
					for _, v := range env.Values {
						rows = append(rows, []string{v.Key, v.Value, strconv.FormatBool(v.Enabled)})
					}
					printTable(cmd.OutOrStdout(), []string{"KEY", "VALUE", "ENABLED"}, rows)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "new NAME",
			Short: "Create an environment with no variables",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return root.withSession(cmd, func(ctx context.Context, s *session) error {
					s.app.NewEnvironment(ctx, args[0])
					snap, err := s.finish(cmd)
					if err != nil {
						return err
					}
					for _, e := range snap.Environments {
						if e.Name == args[0] {
							fmt.Fprintln(cmd.OutOrStdout(), e.ID)
						}
					}
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "delete ID",
			Short: "Delete an environment",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return root.withSession(cmd, func(ctx context.Context, s *session) error {
					s.app.DeleteEnvironment(ctx, args[0])
					_, err := s.finish(cmd)
					return err
				})
			},
		},
		&cobra.Command{
			Use:   "set ID KEY VALUE",
			Short: "Set a variable in an environment",
			Args:  cobra.ExactArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				return root.withSession(cmd, func(ctx context.Context, s *session) error {
					env, ok := findEnvironment(s.app.Snapshot().Environments, args[0])
					if !ok || env.ID == core.DefaultEnvironment().ID {
						return fmt.Errorf("environment %q: %w", args[0], core.ErrNotFound)
					}
					env.Set(args[1], args[2])
					s.app.SaveEnvironment(ctx, env)
					_, err := s.finish(cmd)
					return err
				})
			},
		},
	)
	return cmd
}
