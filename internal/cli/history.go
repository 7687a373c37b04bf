package cli

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

func newHistoryCommand(root *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List sent requests, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return root.withSession(cmd, func(_ context.Context, s *session) error {
				snap := s.app.Snapshot()

				history := snap.History
				sort.SliceStable(history, func(i, j int) bool {
					return history[i].SentAt.After(history[j].SentAt)
				})
				if limit > 0 && len(history) > limit {
					history = history[:limit]
				}

				rows := make([][]string, 0, len(history))
				for _, h := range history {
					req := snap.Requests[h.RequestID]
					status := ""
					if resp, ok := snap.Responses[h.ResponseID]; ok {
						status = strconv.Itoa(resp.StatusCode)
					}
					rows = append(rows, []string{
						h.SentAt.Local().Format(time.DateTime),
						req.Method,
						status,
						fmt.Sprintf("%dms", h.ResponseTime),
						req.URL,
					})
				}
				printTable(cmd.OutOrStdout(), []string{"SENT", "METHOD", "STATUS", "TIME", "URL"}, rows)
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of entries, 0 for all")
	return cmd
}
