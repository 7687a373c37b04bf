package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mblydenburgh/postie/internal/core"
	"github.com/mblydenburgh/postie/internal/exporter"
	"github.com/spf13/cobra"
)

func newCollectionsCommand(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "collections",
		Aliases: []string{"collection", "c"},
		Short:   "List, edit and export collections",
	}
	cmd.AddCommand(
		newCollectionsListCommand(root),
		newCollectionsShowCommand(root),
		newCollectionsNewCommand(root),
		newCollectionsAddFolderCommand(root),
		newCollectionsAddRequestCommand(root),
		newCollectionsDeleteCommand(root),
		newCollectionsExportCommand(root),
	)
	return cmd
}

func newCollectionsListCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved collections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return root.withSession(cmd, func(_ context.Context, s *session) error {
				snap := s.app.Snapshot()
				rows := make([][]string, 0, len(snap.Collections))
				for _, c := range snap.Collections {
					rows = append(rows, []string{c.Info.ID, c.Info.Name, strconv.Itoa(c.CountRequests())})
				}
				printTable(cmd.OutOrStdout(), []string{"ID", "NAME", "REQUESTS"}, rows)
				return nil
			})
		},
	}
}

func newCollectionsShowCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Print the folder and request tree of a collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return root.withSession(cmd, func(_ context.Context, s *session) error {
				c, ok := s.app.Snapshot().Collection(args[0])
				if !ok {
					return fmt.Errorf("collection %q: %w", args[0], core.ErrNotFound)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, headerStyle.Render(c.Info.Name))
				printNodes(out, c.Item, 1)
				return nil
			})
		},
	}
}

func printNodes(w io.Writer, nodes core.Nodes, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, n := range nodes {
		switch n := n.(type) {
		case core.Folder:
			fmt.Fprintf(w, "%s%s/\n", indent, n.Name)
			printNodes(w, n.Item, depth+1)
		case core.Item:
			fmt.Fprintf(w, "%s%s %s %s\n", indent, methodStyle.Render(string(n.Request.Method)), n.Name, dimStyle.Render(n.Request.URL.Raw))
		}
	}
}

func newCollectionsNewCommand(root *rootOptions) *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:   "new NAME",
		Short: "Create an empty collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return root.withSession(cmd, func(ctx context.Context, s *session) error {
				s.app.NewCollection(ctx, args[0], description)
				snap, err := s.finish(cmd)
				if err != nil {
					return err
				}
				for _, c := range snap.Collections {
					if c.Info.Name == args[0] {
						fmt.Fprintln(cmd.OutOrStdout(), c.Info.ID)
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&description, "description", "", "collection description")
	return cmd
}

func newCollectionsAddFolderCommand(root *rootOptions) *cobra.Command {
	var parent string

	cmd := &cobra.Command{
		Use:   "add-folder ID NAME",
		Short: "Add an empty folder",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return root.withSession(cmd, func(ctx context.Context, s *session) error {
				s.app.AddFolder(ctx, args[0], splitPath(parent), args[1])
				_, err := s.finish(cmd)
				return err
			})
		},
	}

	cmd.Flags().StringVar(&parent, "parent", "", "parent folder path (A/B)")
	return cmd
}

func newCollectionsAddRequestCommand(root *rootOptions) *cobra.Command {
	var (
		folder  string
		headers []string
		body    string
	)

	cmd := &cobra.Command{
		Use:   "add-request ID NAME METHOD URL",
		Short: "Save a request in a collection",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			method, err := core.ParseMethod(strings.ToUpper(args[2]))
			if err != nil {
				return err
			}
			parsed, err := parseHeaders(headers)
			if err != nil {
				return err
			}

			item := core.Item{
				Name: args[1],
				Request: core.CollectionRequest{
					Method: method,
					URL:    core.URL{Raw: args[3]},
				},
			}
			for _, h := range parsed {
				item.Request.Header = append(item.Request.Header, core.CollectionHeader{Key: h.Key, Value: h.Value, Type: "text"})
			}
			if body != "" {
				item.Request.Body = &core.CollectionBody{
					Mode:    "raw",
					Raw:     body,
					Options: &core.BodyOptions{Raw: &core.RawOptions{Language: "json"}},
				}
			}

			return root.withSession(cmd, func(ctx context.Context, s *session) error {
				s.app.AddRequest(ctx, args[0], splitPath(folder), item)
				_, err := s.finish(cmd)
				return err
			})
		},
	}

	cmd.Flags().StringVar(&folder, "folder", "", "folder path (A/B)")
	cmd.Flags().StringArrayVarP(&headers, "header", "H", nil, "request header (format: Key: Value)")
	cmd.Flags().StringVarP(&body, "data", "d", "", "raw JSON body")
	return cmd
}

func newCollectionsDeleteCommand(root *rootOptions) *cobra.Command {
	var (
		folder  string
		request string
	)

	cmd := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a collection, a folder or a request",
		Long: `Delete part of a collection.

  postie collections delete ID                          deletes the collection
  postie collections delete ID --folder A/B             deletes folder B inside A
  postie collections delete ID --folder A --request R   deletes request R inside A
  postie collections delete ID --request R              deletes top-level request R`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return root.withSession(cmd, func(ctx context.Context, s *session) error {
				s.app.DeleteNode(ctx, args[0], splitPath(folder), request)
				_, err := s.finish(cmd)
				return err
			})
		},
	}

	cmd.Flags().StringVar(&folder, "folder", "", "folder path (A/B)")
	cmd.Flags().StringVar(&request, "request", "", "request name")
	return cmd
}

func newCollectionsExportCommand(root *rootOptions) *cobra.Command {
	var (
		format string
		output string
		env    string
	)

	cmd := &cobra.Command{
		Use:   "export ID",
		Short: "Export a collection as Postman JSON, YAML or a curl script",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return root.withSession(cmd, func(ctx context.Context, s *session) error {
				snap := s.app.Snapshot()
				c, ok := snap.Collection(args[0])
				if !ok {
					return fmt.Errorf("collection %q: %w", args[0], core.ErrNotFound)
				}

				registry := exporter.DefaultRegistry()
				if env != "" {
					e, ok := findEnvironment(snap.Environments, env)
					if !ok {
						return fmt.Errorf("environment %q: %w", env, core.ErrNotFound)
					}
					curl := exporter.NewCurlExporter()
					curl.Environment = &e
					registry.Register(curl)
				}

				result, err := registry.Export(ctx, exporter.Format(format), c)
				if err != nil {
					return err
				}

				if output == "" || output == "-" {
					_, err = cmd.OutOrStdout().Write(result.Content)
					return err
				}
				if err := os.WriteFile(output, result.Content, 0o644); err != nil {
					return fmt.Errorf("failed to write export: %w", err)
				}
				fmt.Fprintln(cmd.ErrOrStderr(), okStyle.Render("Exported to "+output))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", string(exporter.FormatPostman), "postman, yaml or curl")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().StringVarP(&env, "env", "e", "", "environment ID substituted into curl output")
	return cmd
}

func findEnvironment(envs []core.EnvironmentFile, id string) (core.EnvironmentFile, bool) {
	for _, e := range envs {
		if e.ID == id {
			return e, true
		}
	}
	return core.EnvironmentFile{}, false
}
