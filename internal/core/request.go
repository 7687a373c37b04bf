package core

import (
	"encoding/json"
	"net/url"
)

// Header is a single ordered header entry.
type Header struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// MergeHeaders concatenates the given header lists and removes duplicate
// keys. Key comparison is case-sensitive; the last value for a key wins and
// keeps the position of the first occurrence.
func MergeHeaders(lists ...[]Header) []Header {
	index := make(map[string]int)
	var merged []Header
	for _, list := range lists {
		for _, h := range list {
			if i, ok := index[h.Key]; ok {
				merged[i].Value = h.Value
				continue
			}
			index[h.Key] = len(merged)
			merged = append(merged, h)
		}
	}
	return merged
}

// HeaderValue returns the first value stored under key.
func HeaderValue(headers []Header, key string) (string, bool) {
	for _, h := range headers {
		if h.Key == key {
			return h.Value, true
		}
	}
	return "", false
}

// DefaultHeaders are offered for a request that has none.
func DefaultHeaders() []Header {
	return []Header{
		{Key: "Content-Type", Value: "application/json"},
		{Key: "User-Agent", Value: "postie"},
		{Key: "Cache-Control", Value: "no-cache"},
	}
}

// HTTPRequest is a user request about to be executed.
type HTTPRequest struct {
	// TabID is the originating tab. An empty TabID opens a new tab.
	TabID       string
	Name        string
	Method      HttpMethod
	URL         string
	Headers     []Header
	Auth        RequestAuth
	Body        RequestBody
	Environment EnvironmentFile
}

// RequestBody is either a JSONBody or a FormBody.
type RequestBody interface {
	ContentType() string
	Encode() (string, error)
}

// JSONBody is sent as application/json.
type JSONBody struct {
	Value any
}

func (JSONBody) ContentType() string { return "application/json" }

func (b JSONBody) Encode() (string, error) {
	data, err := json.Marshal(b.Value)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// FormBody is sent as application/x-www-form-urlencoded.
type FormBody struct {
	Values url.Values
}

func (FormBody) ContentType() string { return "application/x-www-form-urlencoded" }

func (b FormBody) Encode() (string, error) {
	return b.Values.Encode(), nil
}

// OAuth2Request asks a token endpoint for an access token.
type OAuth2Request struct {
	AccessTokenURL string
	RefreshURL     string
	ClientID       string
	ClientSecret   string
	Request        OAuthRequestBody
}

// OAuthRequestBody is the form sent to the token endpoint.
type OAuthRequestBody struct {
	GrantType string `json:"grant_type"`
	Scope     string `json:"scope"`
	Audience  string `json:"audience"`
}

// OAuthResponse is the token endpoint reply.
type OAuthResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

// DBRequest is the persisted copy of an executed request. Rows are append
// only.
type DBRequest struct {
	ID      string   `json:"id"`
	Method  string   `json:"method"`
	URL     string   `json:"url"`
	Name    string   `json:"name,omitempty"`
	Headers []Header `json:"headers"`
	Body    *string  `json:"body,omitempty"`
}
