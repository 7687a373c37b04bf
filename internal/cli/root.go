package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mblydenburgh/postie/internal/app"
	"github.com/mblydenburgh/postie/internal/config"
	httpclient "github.com/mblydenburgh/postie/internal/protocol/http"
	"github.com/mblydenburgh/postie/internal/storage/sqlite"
	"github.com/spf13/cobra"
)

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	verbose    bool
}

// NewRootCommand creates the root command.
func NewRootCommand(version string) *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:     "postie",
		Short:   "Postie - a local HTTP client",
		Long:    "Postie keeps collections, environments, tabs and request history in a local database and sends requests from the terminal.",
		Version: version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// .env in the working directory may carry POSTIE_* overrides.
			if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: failed to load .env file: %v\n", err)
			}
			return nil
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default ~/.config/postie/config.yaml)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "also write log lines to stderr")

	cmd.AddCommand(
		newSendCommand(opts),
		newOAuth2Command(opts),
		newImportCommand(opts),
		newCollectionsCommand(opts),
		newEnvironmentsCommand(opts),
		newHistoryCommand(opts),
		newTabsCommand(opts),
		newConfigCommand(opts),
	)

	return cmd
}

// session is an opened App together with everything it holds open.
type session struct {
	cfg     *config.Config
	app     *app.App
	closers []io.Closer
}

// open loads the config, opens the database and builds a loaded App.
func (o *rootOptions) open(cmd *cobra.Command) (*session, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}

	var console io.Writer
	if o.verbose {
		console = cmd.ErrOrStderr()
	}
	logger, logFile, err := app.NewLogger(cfg.LogDir, app.ParseLevel(cfg.LogLevel), console)
	if err != nil {
		return nil, err
	}
	s := &session{cfg: cfg, closers: []io.Closer{logFile}}

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	store, err := sqlite.New(cfg.Database.Path, sqlite.WithLogger(logger))
	if err != nil {
		s.Close()
		return nil, err
	}
	s.closers = append([]io.Closer{store}, s.closers...)

	client := httpclient.NewClient(httpClientOptions(cfg.HTTP)...)
	s.app = app.New(store, client,
		app.WithLogger(logger.With("command", cmd.CommandPath())),
		app.WithHTTPClient(client.HTTPClient()),
	)

	if err := s.app.Load(cmd.Context()); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to load data: %w", err)
	}
	return s, nil
}

// Close waits for running commands and releases the store and log file.
func (s *session) Close() error {
	if s.app != nil {
		s.app.Wait()
	}
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

func httpClientOptions(cfg config.HTTPConfig) []httpclient.Option {
	opts := []httpclient.Option{
		httpclient.WithTimeout(cfg.Timeout),
		httpclient.WithRateLimit(cfg.RequestsPerSecond),
		httpclient.WithUserAgent(cfg.UserAgent),
	}
	if !cfg.FollowRedirects {
		opts = append(opts, httpclient.WithNoRedirects())
	}
	return opts
}

// finish waits for the issued commands and reports the final status. A
// failed command becomes the returned error.
func (s *session) finish(cmd *cobra.Command) (app.Snapshot, error) {
	s.app.Wait()
	snap := s.app.Snapshot()
	if snap.Err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), errorStyle.Render(snap.Status))
		return snap, fmt.Errorf("%s: %w", snap.Status, snap.Err)
	}
	fmt.Fprintln(cmd.ErrOrStderr(), okStyle.Render(snap.Status))
	return snap, nil
}

// withSession runs fn against an opened session.
func (o *rootOptions) withSession(cmd *cobra.Command, fn func(ctx context.Context, s *session) error) error {
	s, err := o.open(cmd)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(cmd.Context(), s)
}

// splitPath turns "A/B" into a folder path. Empty segments are dropped.
func splitPath(s string) []string {
	var path []string
	for _, seg := range strings.Split(s, "/") {
		if seg = strings.TrimSpace(seg); seg != "" {
			path = append(path, seg)
		}
	}
	return path
}
