package cli

import (
	"context"
	"fmt"

	"github.com/mblydenburgh/postie/internal/core"
	"github.com/spf13/cobra"
)

type tokenOptions struct {
	tokenURL     string
	clientID     string
	clientSecret string
	grantType    string
	scope        string
	audience     string
	copy         bool
}

func newOAuth2Command(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "oauth2",
		Short: "OAuth2 helpers",
	}
	cmd.AddCommand(newTokenCommand(root))
	return cmd
}

func newTokenCommand(root *rootOptions) *cobra.Command {
	opts := &tokenOptions{}

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Request an access token with client credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return root.withSession(cmd, func(ctx context.Context, s *session) error {
				s.app.SubmitOAuth2Request(ctx, core.OAuth2Request{
					AccessTokenURL: opts.tokenURL,
					ClientID:       opts.clientID,
					ClientSecret:   opts.clientSecret,
					Request: core.OAuthRequestBody{
						GrantType: opts.grantType,
						Scope:     opts.scope,
						Audience:  opts.audience,
					},
				})
				snap, err := s.finish(cmd)
				if err != nil {
					return err
				}

				token := snap.LastToken
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, token.AccessToken)
				fmt.Fprintln(cmd.ErrOrStderr(), dimStyle.Render(fmt.Sprintf("%s token, expires in %ds", token.TokenType, token.ExpiresIn)))
				if opts.copy {
					copyText(cmd.ErrOrStderr(), token.AccessToken)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&opts.tokenURL, "url", "", "token endpoint URL")
	cmd.Flags().StringVar(&opts.clientID, "client-id", "", "client ID")
	cmd.Flags().StringVar(&opts.clientSecret, "client-secret", "", "client secret")
	cmd.Flags().StringVar(&opts.grantType, "grant-type", "client_credentials", "grant_type form value")
	cmd.Flags().StringVar(&opts.scope, "scope", "", "scope form value")
	cmd.Flags().StringVar(&opts.audience, "audience", "", "audience form value")
	cmd.Flags().BoolVar(&opts.copy, "copy", false, "copy the access token to the clipboard")
	_ = cmd.MarkFlagRequired("url")

	return cmd
}
