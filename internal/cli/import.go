package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/mblydenburgh/postie/internal/core"
	"github.com/mblydenburgh/postie/internal/importer"
	"github.com/spf13/cobra"
)

func newImportCommand(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import collections, environments and curl commands",
	}
	cmd.AddCommand(
		newImportCollectionCommand(root),
		newImportEnvironmentCommand(root),
		newImportCurlCommand(root),
	)
	return cmd
}

func newImportCollectionCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "collection FILE",
		Short: "Import a Postman v2.1 collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return root.withSession(cmd, func(ctx context.Context, s *session) error {
				s.app.ImportCollection(ctx, args[0])
				_, err := s.finish(cmd)
				return err
			})
		},
	}
}

func newImportEnvironmentCommand(root *rootOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "environment FILE",
		Short: "Import a Postman environment or a dotenv file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := importer.ParseFormat(format)
			if err != nil {
				return err
			}
			return root.withSession(cmd, func(ctx context.Context, s *session) error {
				s.app.ImportEnvironment(ctx, args[0], f)
				_, err := s.finish(cmd)
				return err
			})
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "auto", "auto, postman-environment or dotenv")
	return cmd
}

func newImportCurlCommand(root *rootOptions) *cobra.Command {
	var (
		collectionID string
		folder       string
		file         string
		name         string
	)

	cmd := &cobra.Command{
		Use:   "curl --collection ID [--folder A/B] [-- curl ARGS... | --file FILE]",
		Short: "Save a curl command as a request in a collection",
		Long: `Parse a curl command and save it as a request.

Examples:
  postie import curl --collection c-1 -- curl -X POST https://api.example.com/users -d '{"name":"test"}'
  postie import curl --collection c-1 --folder Users --file create-user.sh`,
		RunE: func(cmd *cobra.Command, args []string) error {
			item, err := parseCurlInput(cmd.Context(), args, file)
			if err != nil {
				return err
			}
			if name != "" {
				item.Name = name
			}
			return root.withSession(cmd, func(ctx context.Context, s *session) error {
				s.app.AddRequest(ctx, collectionID, splitPath(folder), item)
				if _, err := s.finish(cmd); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", methodStyle.Render(string(item.Request.Method)), item.Name)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&collectionID, "collection", "c", "", "collection ID")
	cmd.Flags().StringVar(&folder, "folder", "", "folder path inside the collection (A/B)")
	cmd.Flags().StringVar(&file, "file", "", "read the curl command from a file")
	cmd.Flags().StringVar(&name, "name", "", "request name (default derived from the URL)")
	_ = cmd.MarkFlagRequired("collection")
	return cmd
}

func parseCurlInput(ctx context.Context, args []string, file string) (core.Item, error) {
	if file != "" {
		return importer.New(importer.OSReader{}).Curl(ctx, file)
	}
	if len(args) == 0 {
		return core.Item{}, fmt.Errorf("no curl command provided")
	}
	if args[0] == "curl" {
		args = args[1:]
	}
	quoted := make([]string, len(args))
	for i, a := range args {
		quoted[i] = "'" + strings.ReplaceAll(a, "'", `'\''`) + "'"
	}
	return importer.ParseCurl("curl " + strings.Join(quoted, " "))
}
