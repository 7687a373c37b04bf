package core

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// CollectionAuth is the auth block of a collection or saved request.
type CollectionAuth struct {
	Type   string      `json:"type"`
	Bearer []AuthValue `json:"bearer,omitempty"`
	OAuth2 []AuthValue `json:"oauth2,omitempty"`
	APIKey []AuthValue `json:"apikey,omitempty"`
}

// AuthValue is one key/value entry of an auth block.
type AuthValue struct {
	Key   string        `json:"key"`
	Value AuthValueData `json:"value"`
	Type  string        `json:"type"`
}

// AuthValueData is the loosely typed value of an AuthValue: either a string
// or any other JSON document. Raw is set only for the non-string case and is
// kept in compact form.
type AuthValueData struct {
	String string
	Raw    json.RawMessage
}

// StringValue wraps s as an AuthValueData.
func StringValue(s string) AuthValueData {
	return AuthValueData{String: s}
}

// IsString reports whether the value holds a string.
func (v AuthValueData) IsString() bool {
	return v.Raw == nil
}

// MarshalJSON writes the string or the raw document.
func (v AuthValueData) MarshalJSON() ([]byte, error) {
	if v.Raw != nil {
		return v.Raw, nil
	}
	return json.Marshal(v.String)
}

// UnmarshalJSON stores strings as String and anything else, null included,
// as compact Raw.
func (v *AuthValueData) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*v = AuthValueData{Raw: json.RawMessage("null")}
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = AuthValueData{String: s}
		return nil
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, data); err != nil {
		return fmt.Errorf("%w: auth value: %v", ErrParse, err)
	}
	*v = AuthValueData{Raw: json.RawMessage(buf.Bytes())}
	return nil
}

// Lookup returns the string value stored under key in values.
func Lookup(values []AuthValue, key string) (string, bool) {
	for _, v := range values {
		if v.Key == key && v.Value.IsString() {
			return v.Value.String, true
		}
	}
	return "", false
}

// AuthMode selects the auth-derived header added to an outgoing request.
type AuthMode string

const (
	AuthNone   AuthMode = "NONE"
	AuthAPIKey AuthMode = "APIKEY"
	AuthBearer AuthMode = "BEARER"
	AuthOAuth2 AuthMode = "OAUTH2"
)

// ParseAuthMode maps user input to an AuthMode. Unknown input is AuthNone.
func ParseAuthMode(s string) AuthMode {
	switch AuthMode(s) {
	case AuthAPIKey, AuthBearer, AuthOAuth2:
		return AuthMode(s)
	}
	return AuthNone
}

// RequestAuth is the active auth of an outgoing request. For AuthAPIKey,
// Key is the header name; for the bearer modes it is ignored.
type RequestAuth struct {
	Mode  AuthMode
	Key   string
	Value string
}

// Header returns the header derived from the auth mode, if any.
func (a RequestAuth) Header() (Header, bool) {
	switch a.Mode {
	case AuthAPIKey:
		if a.Key == "" {
			return Header{}, false
		}
		return Header{Key: a.Key, Value: a.Value}, true
	case AuthBearer, AuthOAuth2:
		return Header{Key: "Authorization", Value: "Bearer " + a.Value}, true
	}
	return Header{}, false
}

// AuthFromCollection derives the request auth from a saved auth block.
func AuthFromCollection(auth *CollectionAuth) RequestAuth {
	if auth == nil {
		return RequestAuth{Mode: AuthNone}
	}
	switch auth.Type {
	case "bearer":
		token, _ := Lookup(auth.Bearer, "token")
		return RequestAuth{Mode: AuthBearer, Value: token}
	case "oauth2":
		token, _ := Lookup(auth.OAuth2, "accessToken")
		return RequestAuth{Mode: AuthOAuth2, Value: token}
	case "apikey":
		key, _ := Lookup(auth.APIKey, "key")
		value, _ := Lookup(auth.APIKey, "value")
		return RequestAuth{Mode: AuthAPIKey, Key: key, Value: value}
	}
	return RequestAuth{Mode: AuthNone}
}
