package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/mblydenburgh/postie/internal/app"
	"github.com/mblydenburgh/postie/internal/core"
	"github.com/spf13/cobra"
)

type sendOptions struct {
	headers     []string
	body        string
	form        []string
	environment string
	auth        string
	authKey     string
	token       string
	tab         string
	name        string
	include     bool
	copy        bool
}

func newSendCommand(root *rootOptions) *cobra.Command {
	opts := &sendOptions{}

	cmd := &cobra.Command{
		Use:   "send METHOD URL",
		Short: "Send an HTTP request and record it in history",
		Long: `Send an HTTP request. {{VARIABLES}} in the URL are replaced from the
selected environment. Without --header the default headers are sent.

Examples:
  postie send GET '{{HOST_URL}}/get'
  postie send POST https://api.example.com/users -d '{"name":"test"}'
  postie send GET https://api.example.com/me --auth BEARER --token abc`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return root.withSession(cmd, func(ctx context.Context, s *session) error {
				return runSend(ctx, cmd, s, args[0], args[1], opts)
			})
		},
	}

	cmd.Flags().StringArrayVarP(&opts.headers, "header", "H", nil, "request header (format: Key: Value)")
	cmd.Flags().StringVarP(&opts.body, "data", "d", "", "JSON request body")
	cmd.Flags().StringArrayVar(&opts.form, "form", nil, "form field (format: key=value)")
	cmd.Flags().StringVarP(&opts.environment, "env", "e", "", "environment ID used for substitution")
	cmd.Flags().StringVar(&opts.auth, "auth", "NONE", "auth mode: NONE, APIKEY, BEARER or OAUTH2")
	cmd.Flags().StringVar(&opts.authKey, "auth-key", "", "header name for APIKEY auth")
	cmd.Flags().StringVar(&opts.token, "token", "", "token or key value for auth")
	cmd.Flags().StringVar(&opts.tab, "tab", "", "tab ID to record the request in")
	cmd.Flags().StringVar(&opts.name, "name", "", "name stored with the request")
	cmd.Flags().BoolVarP(&opts.include, "include", "i", false, "print response headers")
	cmd.Flags().BoolVar(&opts.copy, "copy", false, "copy the response body to the clipboard")
	cmd.MarkFlagsMutuallyExclusive("data", "form")

	return cmd
}

func runSend(ctx context.Context, cmd *cobra.Command, s *session, method, rawURL string, opts *sendOptions) error {
	m, err := core.ParseMethod(strings.ToUpper(method))
	if err != nil {
		return err
	}

	req := core.HTTPRequest{
		TabID:  opts.tab,
		Name:   opts.name,
		Method: m,
		URL:    rawURL,
		Auth: core.RequestAuth{
			Mode:  core.ParseAuthMode(strings.ToUpper(opts.auth)),
			Key:   opts.authKey,
			Value: opts.token,
		},
	}
	if req.Headers, err = parseHeaders(opts.headers); err != nil {
		return err
	}

	switch {
	case opts.body != "":
		if !json.Valid([]byte(opts.body)) {
			return fmt.Errorf("%w: --data is not valid JSON", core.ErrParse)
		}
		req.Body = core.JSONBody{Value: json.RawMessage(opts.body)}
	case len(opts.form) > 0:
		values, err := parseForm(opts.form)
		if err != nil {
			return err
		}
		req.Body = core.FormBody{Values: values}
	}

	if opts.environment != "" {
		s.app.SelectEnvironment(opts.environment)
		if snap := s.app.Snapshot(); snap.Err != nil {
			return snap.Err
		}
	}

	s.app.SubmitRequest(ctx, req)
	snap, err := s.finish(cmd)
	if err != nil {
		return err
	}
	printResponse(cmd, snap.LastResponse, opts.include)

	if opts.copy {
		copyText(cmd.ErrOrStderr(), snap.LastResponse.Body)
	}
	return nil
}

// parseHeaders reads "Key: Value" pairs. No flags means default headers.
func parseHeaders(raw []string) ([]core.Header, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	headers := make([]core.Header, 0, len(raw))
	for _, h := range raw {
		key, value, ok := strings.Cut(h, ":")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("%w: header %q is not Key: Value", core.ErrParse, h)
		}
		headers = append(headers, core.Header{Key: strings.TrimSpace(key), Value: strings.TrimSpace(value)})
	}
	return headers, nil
}

func parseForm(raw []string) (url.Values, error) {
	values := url.Values{}
	for _, f := range raw {
		key, value, ok := strings.Cut(f, "=")
		if !ok {
			return nil, fmt.Errorf("%w: form field %q is not key=value", core.ErrParse, f)
		}
		values.Add(key, value)
	}
	return values, nil
}

// printResponse writes the status line, optional headers and the body.
// JSON bodies are indented.
func printResponse(cmd *cobra.Command, resp *app.Response, include bool) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s %s\n",
		statusStyle(resp.StatusCode).Render(resp.Status),
		dimStyle.Render(fmt.Sprintf("(%dms)", resp.Elapsed.Milliseconds())))

	if include {
		for _, h := range resp.Headers {
			fmt.Fprintf(out, "%s: %s\n", headerStyle.Render(h.Key), h.Value)
		}
	}
	if resp.Body == "" {
		return
	}
	fmt.Fprintln(out)

	if resp.Data.Kind == core.ResponseJSON {
		if pretty, err := json.MarshalIndent(resp.Data.JSON, "", "  "); err == nil {
			fmt.Fprintln(out, string(pretty))
			return
		}
	}
	fmt.Fprintln(out, resp.Body)
}
