package importer

import (
	"context"
	"testing"

	"github.com/mblydenburgh/postie/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsCurl(t *testing.T) {
	assert.True(t, IsCurl("curl https://example.com"))
	assert.True(t, IsCurl("  curl\thttps://example.com"))
	assert.False(t, IsCurl("wget https://example.com"))
	assert.False(t, IsCurl(`{"info": {}}`))
}

func TestParseCurl(t *testing.T) {
	t.Run("simple GET", func(t *testing.T) {
		item, err := ParseCurl("curl https://api.example.com/users")
		require.NoError(t, err)
		assert.Equal(t, core.Item{
			Name: "users",
			Request: core.CollectionRequest{
				Method: core.MethodGet,
				URL:    core.URL{Raw: "https://api.example.com/users"},
			},
		}, item)
	})

	t.Run("data implies POST", func(t *testing.T) {
		item, err := ParseCurl(`curl -H 'Content-Type: application/json' -d '{"name":"ada"}' https://api.example.com/users`)
		require.NoError(t, err)
		assert.Equal(t, core.MethodPost, item.Request.Method)
		assert.Equal(t, []core.CollectionHeader{{Key: "Content-Type", Value: "application/json", Type: "text"}}, item.Request.Header)
		require.NotNil(t, item.Request.Body)
		assert.Equal(t, "raw", item.Request.Body.Mode)
		assert.Equal(t, `{"name":"ada"}`, item.Request.Body.Raw)
		assert.Equal(t, "json", item.Request.Body.Options.Raw.Language)
	})

	t.Run("explicit method wins over data", func(t *testing.T) {
		item, err := ParseCurl(`curl -X put --data-raw "a=b" https://x.test/items/7`)
		require.NoError(t, err)
		assert.Equal(t, core.MethodPut, item.Request.Method)
		assert.Equal(t, "text", item.Request.Body.Options.Raw.Language)
		assert.Equal(t, "7", item.Name)
	})

	t.Run("line continuations and repeated headers", func(t *testing.T) {
		item, err := ParseCurl("curl \\\n  -H 'X-A: 1' \\\n  -H 'X-A: 2' \\\n  -H \"X-B: two words\" \\\n  https://x.test/")
		require.NoError(t, err)
		assert.Equal(t, []core.CollectionHeader{
			{Key: "X-A", Value: "2", Type: "text"},
			{Key: "X-B", Value: "two words", Type: "text"},
		}, item.Request.Header)
		assert.Equal(t, "x.test", item.Name)
	})

	t.Run("user becomes basic auth", func(t *testing.T) {
		item, err := ParseCurl("curl -u ada:secret https://x.test/me")
		require.NoError(t, err)
		assert.Equal(t, []core.CollectionHeader{{Key: "Authorization", Value: "Basic YWRhOnNlY3JldA==", Type: "text"}}, item.Request.Header)
	})

	t.Run("json flag", func(t *testing.T) {
		item, err := ParseCurl(`curl --json '{"a":1}' https://x.test/a`)
		require.NoError(t, err)
		assert.Equal(t, core.MethodPost, item.Request.Method)
		v, ok := core.HeaderValue(item.Request.Headers(), "Accept")
		assert.True(t, ok)
		assert.Equal(t, "application/json", v)
	})

	t.Run("head and ignored flags", func(t *testing.T) {
		item, err := ParseCurl("curl -s -L -k -I https://x.test/health?verbose=1")
		require.NoError(t, err)
		assert.Equal(t, core.MethodHead, item.Request.Method)
		assert.Equal(t, "health", item.Name)
		assert.Equal(t, "https://x.test/health?verbose=1", item.Request.URL.Raw)
	})

	t.Run("output file is not the url", func(t *testing.T) {
		item, err := ParseCurl("curl -o out.json https://x.test/file")
		require.NoError(t, err)
		assert.Equal(t, "https://x.test/file", item.Request.URL.Raw)
	})

	t.Run("unsupported method", func(t *testing.T) {
		_, err := ParseCurl("curl -X BREW https://x.test/pot")
		assert.ErrorIs(t, err, core.ErrInvalidMethod)
	})

	t.Run("no url", func(t *testing.T) {
		_, err := ParseCurl("curl -X GET")
		assert.ErrorIs(t, err, core.ErrParse)
	})

	t.Run("not curl", func(t *testing.T) {
		_, err := ParseCurl("wget https://x.test")
		assert.ErrorIs(t, err, core.ErrParse)
	})
}

func TestImporter_Curl(t *testing.T) {
	imp := New(mapReader{"req.curl": "curl https://x.test/ping\n"})

	item, err := imp.Curl(context.Background(), "req.curl")
	require.NoError(t, err)
	assert.Equal(t, "ping", item.Name)

	_, err = imp.Curl(context.Background(), "missing.curl")
	assert.Error(t, err)
}
