package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newTabsCommand(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tabs",
		Aliases: []string{"tab"},
		Short:   "Manage open tabs",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List tabs",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return root.withSession(cmd, func(_ context.Context, s *session) error {
					snap := s.app.Snapshot()
					rows := make([][]string, 0, len(snap.Tabs))
					for _, t := range snap.Tabs {
						active := ""
						if t.ID == snap.ActiveTab {
							active = "*"
						}
						rows = append(rows, []string{active, t.ID, string(t.Method), t.URL, t.ResStatus})
					}
					printTable(cmd.OutOrStdout(), []string{"", "ID", "METHOD", "URL", "STATUS"}, rows)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "new",
			Short: "Open a new tab",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return root.withSession(cmd, func(ctx context.Context, s *session) error {
					s.app.NewTab(ctx)
					snap, err := s.finish(cmd)
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), snap.ActiveTab)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "close ID",
			Short: "Close a tab",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return root.withSession(cmd, func(ctx context.Context, s *session) error {
					s.app.CloseTab(ctx, args[0])
					_, err := s.finish(cmd)
					return err
				})
			},
		},
	)
	return cmd
}
