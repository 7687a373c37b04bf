package exporter

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mblydenburgh/postie/internal/core"
	"github.com/mblydenburgh/postie/internal/importer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func testCollection() core.Collection {
	c := core.NewCollection("c-1", "Users API", "user endpoints")
	c.Auth = &core.CollectionAuth{
		Type:   "bearer",
		Bearer: []core.AuthValue{{Key: "token", Value: core.AuthValueData{String: "abc"}, Type: "string"}},
	}
	c.Item = core.Nodes{
		core.Folder{Name: "Users", Item: core.Nodes{
			core.Item{Name: "Create user", Request: core.CollectionRequest{
				Method: core.MethodPost,
				URL:    core.URL{Raw: "{{HOST_URL}}/users"},
				Header: []core.CollectionHeader{{Key: "Content-Type", Value: "application/json", Type: "text"}},
				Body: &core.CollectionBody{
					Mode:    "raw",
					Raw:     `{"name":"ada"}`,
					Options: &core.BodyOptions{Raw: &core.RawOptions{Language: "json"}},
				},
			}},
			core.Folder{Name: "Admin", Item: core.Nodes{}},
		}},
		core.Item{Name: "Health", Request: core.CollectionRequest{
			Method: core.MethodGet,
			URL:    core.URL{Raw: "{{HOST_URL}}/health"},
		}},
	}
	return c
}

func TestRegistry(t *testing.T) {
	ctx := context.Background()
	registry := DefaultRegistry()

	assert.Equal(t, []Format{FormatCurl, FormatPostman, FormatYAML}, registry.ListFormats())

	t.Run("json is the postman format", func(t *testing.T) {
		result, err := registry.Export(ctx, "JSON", testCollection())
		require.NoError(t, err)
		assert.Equal(t, FormatPostman, result.Format)
		assert.Equal(t, ".postman_collection.json", result.FileExtension)
	})

	t.Run("yml alias", func(t *testing.T) {
		result, err := registry.Export(ctx, "yml", testCollection())
		require.NoError(t, err)
		assert.Equal(t, FormatYAML, result.Format)
	})

	t.Run("unknown format", func(t *testing.T) {
		_, err := registry.Export(ctx, "har", testCollection())
		assert.ErrorIs(t, err, ErrUnknownFormat)
	})

	t.Run("register replaces", func(t *testing.T) {
		r := NewRegistry()
		custom := &CurlExporter{}
		r.Register(NewCurlExporter())
		r.Register(custom)

		got, ok := r.Get(FormatCurl)
		assert.True(t, ok)
		assert.Same(t, custom, got)
	})
}

func TestPostmanExporter(t *testing.T) {
	ctx := context.Background()

	t.Run("round trips through import", func(t *testing.T) {
		data, err := NewPostmanExporter().Export(ctx, testCollection())
		require.NoError(t, err)

		got, err := importer.ParseCollection(data)
		require.NoError(t, err)
		want := testCollection()
		want.Info.Schema = core.PostmanSchemaV21
		assert.Equal(t, want, got)
	})

	t.Run("writes the postman id and schema", func(t *testing.T) {
		c := testCollection()
		c.Info.Schema = ""
		data, err := NewPostmanExporter().Export(ctx, c)
		require.NoError(t, err)

		var doc struct {
			Info map[string]string `json:"info"`
		}
		require.NoError(t, json.Unmarshal(data, &doc))
		assert.Equal(t, "c-1", doc.Info["_postman_id"])
		assert.Equal(t, core.PostmanSchemaV21, doc.Info["schema"])
	})

	t.Run("nil items export as an empty array", func(t *testing.T) {
		c := core.Collection{Info: core.CollectionInfo{ID: "x", Name: "x"}}
		data, err := NewPostmanExporter().Export(ctx, c)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"item": []`)
	})

	t.Run("nested nil folder items import back", func(t *testing.T) {
		c := core.NewCollection("x", "x", "")
		c.Item = core.Nodes{core.Folder{Name: "Outer", Item: core.Nodes{core.Folder{Name: "Inner"}}}}

		data, err := NewPostmanExporter().Export(ctx, c)
		require.NoError(t, err)
		assert.NotContains(t, string(data), "null")

		got, err := importer.ParseCollection(data)
		require.NoError(t, err)
		inner := got.Item[0].(core.Folder).Item[0].(core.Folder)
		assert.Equal(t, "Inner", inner.Name)
		assert.Empty(t, inner.Item)

		assert.Nil(t, c.Item[0].(core.Folder).Item[0].(core.Folder).Item, "input collection is not modified")
	})
}

func TestYAMLExporter(t *testing.T) {
	ctx := context.Background()
	c := testCollection()

	yamlData, err := NewYAMLExporter().Export(ctx, c)
	require.NoError(t, err)
	jsonData, err := NewPostmanExporter().Export(ctx, c)
	require.NoError(t, err)

	t.Run("same document as json", func(t *testing.T) {
		var fromYAML, fromJSON any
		require.NoError(t, yaml.Unmarshal(yamlData, &fromYAML))
		require.NoError(t, json.Unmarshal(jsonData, &fromJSON))
		assert.Equal(t, fromJSON, fromYAML)
	})

	t.Run("block style in field order", func(t *testing.T) {
		text := string(yamlData)
		assert.True(t, strings.HasPrefix(text, "info:\n  _postman_id: c-1\n  name: Users API\n"), text)
		assert.Less(t, strings.Index(text, "info:"), strings.Index(text, "item:"))
		assert.Less(t, strings.Index(text, "item:"), strings.Index(text, "auth:"))
		assert.NotContains(t, text, "{\"")
	})
}

func TestCurlExporter(t *testing.T) {
	ctx := context.Background()
	c := testCollection()
	create, ok := c.FindItem("Create user")
	require.True(t, ok)

	t.Run("pretty command", func(t *testing.T) {
		got := NewCurlExporter().Command(create, c.Auth)
		assert.Equal(t, "curl \\\n"+
			"  -X POST \\\n"+
			"  -H 'Content-Type: application/json' \\\n"+
			"  -H 'Authorization: Bearer abc' \\\n"+
			"  --data-raw '{\"name\":\"ada\"}' \\\n"+
			"  '{{HOST_URL}}/users'", got)
	})

	t.Run("inline with environment and without auth", func(t *testing.T) {
		env := core.EnvironmentFile{Values: []core.EnvironmentValue{{Key: "HOST_URL", Value: "https://x.test", Enabled: true}}}
		exp := &CurlExporter{Environment: &env}

		health, _ := c.FindItem("Health")
		assert.Equal(t, "curl https://x.test/health", exp.Command(health, c.Auth))
	})

	t.Run("request auth wins", func(t *testing.T) {
		item := create
		item.Request.Auth = &core.CollectionAuth{
			Type: "apikey",
			APIKey: []core.AuthValue{
				{Key: "key", Value: core.AuthValueData{String: "X-Key"}},
				{Key: "value", Value: core.AuthValueData{String: "k"}},
			},
		}
		got := (&CurlExporter{IncludeAuth: true}).Command(item, c.Auth)
		assert.Contains(t, got, "-H 'X-Key: k'")
		assert.NotContains(t, got, "Bearer")
	})

	t.Run("script walks folders", func(t *testing.T) {
		data, err := NewCurlExporter().Export(ctx, c)
		require.NoError(t, err)
		script := string(data)

		assert.True(t, strings.HasPrefix(script, "#!/bin/sh\n# Collection: Users API\n# user endpoints\n"))
		assert.Contains(t, script, "# === Users ===")
		assert.Contains(t, script, "# === Users / Admin ===")
		assert.Contains(t, script, "# Create user\n")
		assert.Less(t, strings.Index(script, "# Create user"), strings.Index(script, "# Health"))
	})

	t.Run("exported commands parse back", func(t *testing.T) {
		item, err := importer.ParseCurl(NewCurlExporter().Command(create, nil))
		require.NoError(t, err)
		assert.Equal(t, create.Request.Method, item.Request.Method)
		assert.Equal(t, create.Request.URL, item.Request.URL)
		assert.Equal(t, create.Request.Header, item.Request.Header)
		assert.Equal(t, create.Request.Body.Raw, item.Request.Body.Raw)
	})
}

func TestShellQuote(t *testing.T) {
	assert.Equal(t, "plain", shellQuote("plain"))
	assert.Equal(t, "''", shellQuote(""))
	assert.Equal(t, "'a b'", shellQuote("a b"))
	assert.Equal(t, `'it'"'"'s'`, shellQuote("it's"))
}
