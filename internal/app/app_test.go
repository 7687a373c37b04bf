package app

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/mblydenburgh/postie/internal/core"
	"github.com/mblydenburgh/postie/internal/importer"
	httpclient "github.com/mblydenburgh/postie/internal/protocol/http"
	"github.com/mblydenburgh/postie/internal/storage/sqlite"
	"github.com/mblydenburgh/postie/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapReader map[string]string

func (m mapReader) ReadFile(path string) ([]byte, error) {
	content, ok := m[path]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return []byte(content), nil
}

const sampleCollection = `{
  "info": {"_postman_id": "c-1", "name": "Sample"},
  "item": [
    {"name": "Users", "item": [
      {"name": "List", "request": {"method": "GET", "url": "{{HOST_URL}}/users"}}
    ]}
  ]
}`

var files = mapReader{
	"sample.json": sampleCollection,
	"broken.json": `{"info": {"name": "x"}, "item": [{"name": "orphan"}]}`,
	"dev.env":     "HOST_URL=http://localhost:9000\n",
}

func newTestApp(t *testing.T, opts ...Option) (*App, *sqlite.Store, *testutil.RecordingLogger) {
	t.Helper()
	store, err := sqlite.NewInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	logger := &testutil.RecordingLogger{}
	base := []Option{
		WithLogger(logger),
		WithIDGenerator(testutil.NewStubIDGenerator()),
		WithFileReader(files),
	}
	a := New(store, httpclient.NewClient(), append(base, opts...)...)
	return a, store, logger
}

func TestApp_InitialState(t *testing.T) {
	a, _, _ := newTestApp(t)

	snap := a.Snapshot()
	assert.Equal(t, StatusReady, snap.Status)
	assert.Equal(t, []core.EnvironmentFile{core.DefaultEnvironment()}, snap.Environments)
	assert.Equal(t, core.DefaultEnvironment(), snap.SelectedEnvironment)
	assert.Equal(t, []core.Tab{core.NewTab("id-1")}, snap.Tabs)
	assert.Equal(t, "id-1", snap.ActiveTab)
	assert.Empty(t, snap.Collections)
	assert.Empty(t, snap.History)
	assert.Nil(t, snap.LastResponse)
}

func TestApp_SubmitRequest(t *testing.T) {
	ctx := context.Background()

	t.Run("records history and updates the tab", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/users", r.URL.Path)
			assert.Equal(t, "postie", r.Header.Get("User-Agent"))
			assert.Equal(t, "no-cache", r.Header.Get("Cache-Control"))
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"ok":true}`))
		}))
		defer server.Close()
		a, store, _ := newTestApp(t)

		env := core.EnvironmentFile{ID: "e", Name: "local"}
		env.Set("HOST_URL", server.URL)
		a.SubmitRequest(ctx, core.HTTPRequest{Method: core.MethodGet, URL: "{{HOST_URL}}/users", Environment: env})
		a.Wait()

		snap := a.Snapshot()
		require.NoError(t, snap.Err)
		assert.Equal(t, StatusRequestSent, snap.Status)
		require.NotNil(t, snap.LastResponse)
		assert.Equal(t, 200, snap.LastResponse.StatusCode)
		assert.Equal(t, map[string]any{"ok": true}, snap.LastResponse.Data.JSON)
		assert.Equal(t, "id-1", snap.LastResponse.TabID)

		require.Len(t, snap.History, 1)
		req, ok := snap.Requests[snap.History[0].RequestID]
		require.True(t, ok)
		assert.Equal(t, "{{HOST_URL}}/users", req.URL)
		_, ok = snap.Responses[snap.History[0].ResponseID]
		assert.True(t, ok)

		tab, ok := snap.Tab("id-1")
		require.True(t, ok)
		assert.Equal(t, "200 OK", tab.ResStatus)
		assert.Equal(t, `{"ok":true}`, tab.ResBody)

		stored, err := store.GetAllTabs(ctx)
		require.NoError(t, err)
		require.Len(t, stored, 1)
		assert.Equal(t, "id-1", stored[0].ID)
	})

	t.Run("uses the selected environment", func(t *testing.T) {
		var hits atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
		}))
		defer server.Close()
		a, store, _ := newTestApp(t)

		env := core.EnvironmentFile{ID: "local", Name: "local"}
		env.Set("HOST_URL", server.URL)
		require.NoError(t, store.SaveEnvironment(ctx, env))
		require.NoError(t, a.Load(ctx))
		a.SelectEnvironment("local")

		a.SubmitRequest(ctx, core.HTTPRequest{Method: core.MethodGet, URL: "{{HOST_URL}}/"})
		a.Wait()

		assert.Equal(t, int32(1), hits.Load())
		assert.NoError(t, a.Snapshot().Err)
	})

	t.Run("form body without headers is sent form encoded", func(t *testing.T) {
		type received struct{ contentType, a, userAgent string }
		got := make(chan received, 1)
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseForm())
			got <- received{r.Header.Get("Content-Type"), r.PostForm.Get("a"), r.Header.Get("User-Agent")}
		}))
		defer server.Close()
		a, _, _ := newTestApp(t)

		a.SubmitRequest(ctx, core.HTTPRequest{
			Method: core.MethodPost,
			URL:    server.URL,
			Body:   core.FormBody{Values: url.Values{"a": {"1"}}},
		})
		a.Wait()

		require.NoError(t, a.Snapshot().Err)
		r := <-got
		assert.Equal(t, "application/x-www-form-urlencoded", r.contentType)
		assert.Equal(t, "1", r.a)
		assert.Equal(t, "postie", r.userAgent)
	})

	t.Run("network failure records nothing", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
		addr := server.URL
		server.Close()
		a, store, logger := newTestApp(t)

		a.SubmitRequest(ctx, core.HTTPRequest{Method: core.MethodGet, URL: addr})
		a.Wait()

		snap := a.Snapshot()
		assert.Equal(t, StatusRequestFailed, snap.Status)
		assert.ErrorIs(t, snap.Err, core.ErrNetwork)
		assert.Nil(t, snap.LastResponse)
		assert.Equal(t, 1, logger.Count("ERROR"))

		history, err := store.GetAllHistoryItems(ctx)
		require.NoError(t, err)
		assert.Empty(t, history)
	})

	t.Run("concurrent submissions each get a history row", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
		defer server.Close()
		a, _, _ := newTestApp(t)

		for i := 0; i < 8; i++ {
			a.SubmitRequest(ctx, core.HTTPRequest{TabID: fmt.Sprintf("tab-%d", i%2), Method: core.MethodGet, URL: server.URL})
		}
		a.Wait()
		a.RefreshHistory(ctx)
		a.RefreshTabs(ctx)
		a.Wait()

		snap := a.Snapshot()
		assert.Len(t, snap.History, 8)
		assert.Len(t, snap.Requests, 8)
		assert.Len(t, snap.Tabs, 2)
	})
}

func TestApp_SubmitOAuth2Request(t *testing.T) {
	ctx := context.Background()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"tok","expires_in":60,"token_type":"Bearer"}`))
	}))
	defer server.Close()
	a, store, _ := newTestApp(t)

	a.SubmitOAuth2Request(ctx, core.OAuth2Request{AccessTokenURL: server.URL, ClientID: "c", ClientSecret: "s"})
	a.Wait()

	snap := a.Snapshot()
	assert.Equal(t, StatusTokenReceived, snap.Status)
	assert.Equal(t, &core.OAuthResponse{AccessToken: "tok", ExpiresIn: 60, TokenType: "Bearer"}, snap.LastToken)

	history, err := store.GetAllHistoryItems(ctx)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestApp_Import(t *testing.T) {
	ctx := context.Background()

	t.Run("collection", func(t *testing.T) {
		a, _, _ := newTestApp(t)

		a.ImportCollection(ctx, "sample.json")
		a.Wait()

		snap := a.Snapshot()
		assert.Equal(t, StatusImportSuccessful, snap.Status)
		require.Len(t, snap.Collections, 1)
		assert.Equal(t, "Sample", snap.Collections[0].Info.Name)
	})

	t.Run("malformed collection", func(t *testing.T) {
		a, _, _ := newTestApp(t)

		a.ImportCollection(ctx, "broken.json")
		a.Wait()

		snap := a.Snapshot()
		assert.Equal(t, StatusImportFailed, snap.Status)
		assert.ErrorIs(t, snap.Err, core.ErrParse)
		assert.Empty(t, snap.Collections)
	})

	t.Run("missing file", func(t *testing.T) {
		a, _, _ := newTestApp(t)

		a.ImportCollection(ctx, "nope.json")
		a.Wait()
		assert.Equal(t, StatusImportFailed, a.Snapshot().Status)
	})

	t.Run("save failure", func(t *testing.T) {
		a, store, _ := newTestApp(t)
		require.NoError(t, store.Close())

		a.ImportCollection(ctx, "sample.json")
		a.Wait()
		assert.Equal(t, StatusSaveCollectionFail, a.Snapshot().Status)
	})

	t.Run("dotenv environment", func(t *testing.T) {
		a, _, _ := newTestApp(t)

		a.ImportEnvironment(ctx, "dev.env", importer.FormatAuto)
		a.Wait()

		snap := a.Snapshot()
		assert.Equal(t, StatusImportSuccessful, snap.Status)
		require.Len(t, snap.Environments, 2)
		assert.Equal(t, "default", snap.Environments[0].ID)
		assert.Equal(t, "dev", snap.Environments[1].Name)
		v, ok := snap.Environments[1].Get("HOST_URL")
		assert.True(t, ok)
		assert.Equal(t, "http://localhost:9000", v)
	})
}

func TestApp_CollectionEditing(t *testing.T) {
	ctx := context.Background()
	a, _, _ := newTestApp(t)

	a.NewCollection(ctx, "API", "")
	a.Wait()
	snap := a.Snapshot()
	require.Len(t, snap.Collections, 1)
	id := snap.Collections[0].Info.ID
	assert.Equal(t, "id-2", id)

	a.AddFolder(ctx, id, nil, "Users")
	a.Wait()
	assert.Equal(t, StatusFolderAdded, a.Snapshot().Status)

	list := core.Item{Name: "List", Request: core.CollectionRequest{Method: core.MethodGet, URL: core.URL{Raw: "/users"}}}
	a.AddRequest(ctx, id, []string{"Users"}, list)
	a.AddRequest(ctx, id, nil, core.Item{Name: "Health", Request: core.CollectionRequest{Method: core.MethodHead, URL: core.URL{Raw: "/health"}}})
	a.Wait()

	c, ok := a.Snapshot().Collection(id)
	require.True(t, ok)
	assert.Equal(t, 2, c.CountRequests())

	a.DeleteNode(ctx, id, []string{"Users"}, "List")
	a.Wait()
	c, _ = a.Snapshot().Collection(id)
	assert.Equal(t, 1, c.CountRequests())
	assert.Len(t, c.Item, 2)

	a.DeleteNode(ctx, id, []string{"Users"}, "")
	a.Wait()
	c, _ = a.Snapshot().Collection(id)
	assert.Len(t, c.Item, 1)

	a.DeleteNode(ctx, id, []string{"Users"}, "")
	a.Wait()
	snap = a.Snapshot()
	assert.Equal(t, StatusNotFound, snap.Status)
	assert.ErrorIs(t, snap.Err, core.ErrNotFound)

	a.DeleteNode(ctx, id, nil, "")
	a.Wait()
	snap = a.Snapshot()
	assert.Equal(t, StatusDeleted, snap.Status)
	assert.Empty(t, snap.Collections)
}

func TestApp_ConcurrentTreeEdits(t *testing.T) {
	ctx := context.Background()
	a, _, _ := newTestApp(t)

	a.NewCollection(ctx, "API", "")
	a.Wait()
	id := a.Snapshot().Collections[0].Info.ID

	for i := 0; i < 20; i++ {
		a.AddRequest(ctx, id, nil, core.Item{
			Name:    fmt.Sprintf("r%d", i),
			Request: core.CollectionRequest{Method: core.MethodGet, URL: core.URL{Raw: "/"}},
		})
	}
	a.Wait()
	a.RefreshCollections(ctx)
	a.Wait()

	c, ok := a.Snapshot().Collection(id)
	require.True(t, ok)
	assert.Equal(t, 20, c.CountRequests())
}

func TestApp_Environments(t *testing.T) {
	ctx := context.Background()
	a, _, _ := newTestApp(t)

	a.NewEnvironment(ctx, "staging")
	a.Wait()
	snap := a.Snapshot()
	require.Len(t, snap.Environments, 2)
	env := snap.Environments[1]
	assert.Equal(t, "staging", env.Name)
	assert.Equal(t, []core.EnvironmentValue{}, env.Values)

	env.Set("TOKEN", "abc")
	a.SaveEnvironment(ctx, env)
	a.Wait()
	assert.Equal(t, StatusEnvironmentSaved, a.Snapshot().Status)

	a.SelectEnvironment(env.ID)
	snap = a.Snapshot()
	v, ok := snap.SelectedEnvironment.Get("TOKEN")
	assert.True(t, ok)
	assert.Equal(t, "abc", v)

	a.SelectEnvironment("ghost")
	snap = a.Snapshot()
	assert.Equal(t, StatusNotFound, snap.Status)
	assert.Equal(t, env.ID, snap.SelectedEnvironment.ID)

	a.DeleteEnvironment(ctx, env.ID)
	a.Wait()
	snap = a.Snapshot()
	assert.Equal(t, StatusDeleted, snap.Status)
	assert.Len(t, snap.Environments, 1)
	assert.Equal(t, "default", snap.SelectedEnvironment.ID)

	a.DeleteEnvironment(ctx, env.ID)
	a.Wait()
	assert.ErrorIs(t, a.Snapshot().Err, core.ErrNotFound)
}

func TestApp_Tabs(t *testing.T) {
	ctx := context.Background()
	a, store, _ := newTestApp(t)

	a.NewTab(ctx)
	a.Wait()
	snap := a.Snapshot()
	assert.Equal(t, StatusTabOpened, snap.Status)
	require.Len(t, snap.Tabs, 2)
	assert.Equal(t, "id-2", snap.ActiveTab)

	a.CloseTab(ctx, "id-2")
	a.Wait()
	snap = a.Snapshot()
	assert.Equal(t, StatusTabClosed, snap.Status)
	assert.Equal(t, []string{"id-1"}, tabIDs(snap.Tabs))
	assert.Equal(t, "id-1", snap.ActiveTab)

	tabs, err := store.GetAllTabs(ctx)
	require.NoError(t, err)
	assert.Empty(t, tabs)

	a.CloseTab(ctx, "id-1")
	a.Wait()
	snap = a.Snapshot()
	assert.Equal(t, []string{"id-3"}, tabIDs(snap.Tabs))
	assert.Equal(t, "id-3", snap.ActiveTab)

	a.CloseTab(ctx, "ghost")
	a.Wait()
	assert.Equal(t, StatusNotFound, a.Snapshot().Status)
}

func tabIDs(tabs []core.Tab) []string {
	ids := make([]string, len(tabs))
	for i, t := range tabs {
		ids[i] = t.ID
	}
	return ids
}

func TestApp_Load(t *testing.T) {
	ctx := context.Background()
	a, store, _ := newTestApp(t)

	require.NoError(t, store.SaveCollection(ctx, core.NewCollection("c", "saved", "")))
	require.NoError(t, store.SaveTab(ctx, core.NewTab("stored-tab")))

	require.NoError(t, a.Load(ctx))

	snap := a.Snapshot()
	require.Len(t, snap.Collections, 1)
	assert.Equal(t, "saved", snap.Collections[0].Info.Name)
	assert.Equal(t, []string{"stored-tab"}, tabIDs(snap.Tabs))
	assert.Equal(t, "stored-tab", snap.ActiveTab)

	require.NoError(t, store.Close())
	assert.Error(t, a.Load(ctx))
	assert.Equal(t, StatusLoadFailed, a.Snapshot().Status)
}

func TestApp_Snapshots(t *testing.T) {
	ctx := context.Background()

	t.Run("drops the oldest when the reader lags", func(t *testing.T) {
		a, _, _ := newTestApp(t, WithSnapshotBuffer(2))

		for i := 0; i < 5; i++ {
			a.NewCollection(ctx, fmt.Sprintf("c%d", i), "")
			a.Wait()
		}

		first := <-a.Snapshots()
		second := <-a.Snapshots()
		assert.Less(t, first.Version, second.Version)
		assert.Equal(t, a.Snapshot().Version, second.Version)
		assert.Len(t, second.Collections, 5)

		select {
		case s := <-a.Snapshots():
			t.Fatalf("unexpected extra snapshot %d", s.Version)
		default:
		}
	})

	t.Run("snapshots are independent copies", func(t *testing.T) {
		a, _, _ := newTestApp(t)
		a.ImportCollection(ctx, "sample.json")
		a.Wait()

		snap := a.Snapshot()
		snap.Collections[0].Info.Name = "mutated"
		snap.Collections[0].Item[0] = core.Item{Name: "mutated"}
		snap.Tabs[0].URL = "mutated"
		snap.Environments[0].Values[0].Value = "mutated"

		fresh := a.Snapshot()
		assert.Equal(t, "Sample", fresh.Collections[0].Info.Name)
		assert.Equal(t, "Users", fresh.Collections[0].Item[0].NodeName())
		assert.Equal(t, "", fresh.Tabs[0].URL)
		assert.Equal(t, "https://httpbin.org", fresh.Environments[0].Values[0].Value)
	})

	t.Run("concurrent readers", func(t *testing.T) {
		a, _, _ := newTestApp(t)

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 20; j++ {
					_ = a.Snapshot()
				}
			}()
			a.NewEnvironment(ctx, fmt.Sprintf("env-%d", i))
		}
		wg.Wait()
		a.Wait()

		assert.Len(t, a.Snapshot().Environments, 11)
	})
}
