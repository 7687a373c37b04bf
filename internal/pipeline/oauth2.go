package pipeline

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mblydenburgh/postie/internal/core"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// FetchToken exchanges client credentials for an access token. The client
// ID and secret travel as HTTP Basic auth; grant type, scope and audience
// are posted as a form. Token calls are administrative and never recorded
// in history.
func (p *Pipeline) FetchToken(ctx context.Context, req core.OAuth2Request) (*core.OAuthResponse, error) {
	params := url.Values{}
	if req.Request.GrantType != "" {
		params.Set("grant_type", req.Request.GrantType)
	}
	if req.Request.Audience != "" {
		params.Set("audience", req.Request.Audience)
	}

	config := clientcredentials.Config{
		ClientID:       req.ClientID,
		ClientSecret:   req.ClientSecret,
		TokenURL:       req.AccessTokenURL,
		Scopes:         strings.Fields(req.Request.Scope),
		EndpointParams: params,
		AuthStyle:      oauth2.AuthStyleInHeader,
	}

	if p.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	}

	p.logger.Debug("requesting oauth2 token", "token_url", req.AccessTokenURL, "client_id", req.ClientID)
	token, err := config.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: oauth2 token request: %w", core.ErrNetwork, err)
	}

	return &core.OAuthResponse{
		AccessToken: token.AccessToken,
		ExpiresIn:   expiresIn(token, p.clock.Now()),
		TokenType:   token.TokenType,
	}, nil
}

func expiresIn(token *oauth2.Token, now time.Time) int {
	switch v := token.Extra("expires_in").(type) {
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	if token.Expiry.IsZero() {
		return 0
	}
	return int(token.Expiry.Sub(now).Seconds())
}
