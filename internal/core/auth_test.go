package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthValueData(t *testing.T) {
	t.Run("decodes strings", func(t *testing.T) {
		var v AuthValueData
		require.NoError(t, json.Unmarshal([]byte(`"secret"`), &v))
		assert.True(t, v.IsString())
		assert.Equal(t, "secret", v.String)
	})

	t.Run("keeps other documents raw and compact", func(t *testing.T) {
		var v AuthValueData
		require.NoError(t, json.Unmarshal([]byte(`{ "a" : [1, 2] }`), &v))
		assert.False(t, v.IsString())
		assert.JSONEq(t, `{"a":[1,2]}`, string(v.Raw))
		assert.Equal(t, `{"a":[1,2]}`, string(v.Raw))
	})

	t.Run("keeps null as raw", func(t *testing.T) {
		var v AuthValueData
		require.NoError(t, json.Unmarshal([]byte(`null`), &v))
		assert.False(t, v.IsString())
		assert.Equal(t, `null`, string(v.Raw))

		data, err := json.Marshal(AuthValue{Key: "token", Value: v})
		require.NoError(t, err)
		assert.JSONEq(t, `{"key":"token","value":null,"type":""}`, string(data))
	})

	t.Run("marshals back to the original shape", func(t *testing.T) {
		values := []AuthValue{
			{Key: "token", Value: StringValue("t"), Type: "string"},
			{Key: "flag", Value: AuthValueData{Raw: json.RawMessage(`true`)}, Type: "boolean"},
			{Key: "empty", Value: AuthValueData{Raw: json.RawMessage(`null`)}, Type: "any"},
		}
		data, err := json.Marshal(values)
		require.NoError(t, err)
		assert.JSONEq(t, `[{"key":"token","value":"t","type":"string"},{"key":"flag","value":true,"type":"boolean"},{"key":"empty","value":null,"type":"any"}]`, string(data))

		var back []AuthValue
		require.NoError(t, json.Unmarshal(data, &back))
		assert.Equal(t, values, back)
	})
}

func TestRequestAuth_Header(t *testing.T) {
	t.Run("api key uses the configured header name", func(t *testing.T) {
		h, ok := RequestAuth{Mode: AuthAPIKey, Key: "X-Api-Key", Value: "k"}.Header()
		require.True(t, ok)
		assert.Equal(t, Header{Key: "X-Api-Key", Value: "k"}, h)
	})

	t.Run("api key without a name adds nothing", func(t *testing.T) {
		_, ok := RequestAuth{Mode: AuthAPIKey, Value: "k"}.Header()
		assert.False(t, ok)
	})

	t.Run("bearer and oauth2 add authorization", func(t *testing.T) {
		for _, mode := range []AuthMode{AuthBearer, AuthOAuth2} {
			h, ok := RequestAuth{Mode: mode, Value: "tok"}.Header()
			require.True(t, ok)
			assert.Equal(t, Header{Key: "Authorization", Value: "Bearer tok"}, h)
		}
	})

	t.Run("none adds nothing", func(t *testing.T) {
		_, ok := RequestAuth{Mode: AuthNone}.Header()
		assert.False(t, ok)
	})
}

func TestAuthFromCollection(t *testing.T) {
	assert.Equal(t, RequestAuth{Mode: AuthNone}, AuthFromCollection(nil))

	bearer := &CollectionAuth{Type: "bearer", Bearer: []AuthValue{{Key: "token", Value: StringValue("b")}}}
	assert.Equal(t, RequestAuth{Mode: AuthBearer, Value: "b"}, AuthFromCollection(bearer))

	apikey := &CollectionAuth{Type: "apikey", APIKey: []AuthValue{
		{Key: "key", Value: StringValue("X-Key")},
		{Key: "value", Value: StringValue("v")},
	}}
	assert.Equal(t, RequestAuth{Mode: AuthAPIKey, Key: "X-Key", Value: "v"}, AuthFromCollection(apikey))

	oauth := &CollectionAuth{Type: "oauth2", OAuth2: []AuthValue{{Key: "accessToken", Value: StringValue("o")}}}
	assert.Equal(t, RequestAuth{Mode: AuthOAuth2, Value: "o"}, AuthFromCollection(oauth))
}

func TestParseAuthMode(t *testing.T) {
	assert.Equal(t, AuthBearer, ParseAuthMode("BEARER"))
	assert.Equal(t, AuthAPIKey, ParseAuthMode("APIKEY"))
	assert.Equal(t, AuthNone, ParseAuthMode("basic"))
}
