package storage

import (
	"context"
	"testing"
	"time"

	"github.com/mblydenburgh/postie/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunStoreTests runs the standard store test suite against any Store implementation.
// Use this to verify that a Store implementation correctly implements the interface.
func RunStoreTests(t *testing.T, newStore func() (Store, func())) {
	t.Run("Collections", func(t *testing.T) {
		runCollectionTests(t, newStore)
	})
	t.Run("Environments", func(t *testing.T) {
		runEnvironmentTests(t, newStore)
	})
	t.Run("Tabs", func(t *testing.T) {
		runTabTests(t, newStore)
	})
	t.Run("History", func(t *testing.T) {
		runHistoryTests(t, newStore)
	})
	t.Run("RecordExecution", func(t *testing.T) {
		runRecordExecutionTests(t, newStore)
	})
	t.Run("Closed", func(t *testing.T) {
		runClosedTests(t, newStore)
	})
}

func testCollection(id, name string) core.Collection {
	c := core.NewCollection(id, name, "test collection")
	c.Item = core.Nodes{
		core.Item{
			Name:    "Root",
			Request: core.CollectionRequest{Method: core.MethodGet, URL: core.URL{Raw: "{{HOST}}/"}},
		},
		core.Folder{
			Name: "Users",
			Item: core.Nodes{
				core.Item{
					Name: "List",
					Request: core.CollectionRequest{
						Method: core.MethodGet,
						URL:    core.URL{Raw: "{{HOST}}/users"},
						Header: []core.CollectionHeader{{Key: "Accept", Value: "application/json", Type: "text"}},
					},
				},
				core.Folder{Name: "Empty", Item: core.Nodes{}},
			},
		},
	}
	c.Auth = &core.CollectionAuth{
		Type:   "bearer",
		Bearer: []core.AuthValue{{Key: "token", Value: core.StringValue("secret"), Type: "string"}},
	}
	return c
}

func runCollectionTests(t *testing.T, newStore func() (Store, func())) {
	ctx := context.Background()

	t.Run("saves and loads the full document", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()

		c := testCollection("c-1", "API")
		require.NoError(t, store.SaveCollection(ctx, c))

		got, err := store.GetCollection(ctx, "c-1")
		require.NoError(t, err)
		assert.Equal(t, c, got)
	})

	t.Run("save replaces the previous document", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()

		require.NoError(t, store.SaveCollection(ctx, testCollection("c-1", "API")))

		replacement := core.NewCollection("c-1", "Renamed", "")
		require.NoError(t, store.SaveCollection(ctx, replacement))

		all, err := store.GetAllCollections(ctx)
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, replacement, all[0])
	})

	t.Run("lists in insertion order", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()

		for _, id := range []string{"b", "a", "c"} {
			require.NoError(t, store.SaveCollection(ctx, core.NewCollection(id, id, "")))
		}

		all, err := store.GetAllCollections(ctx)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, "b", all[0].Info.ID)
		assert.Equal(t, "a", all[1].Info.ID)
		assert.Equal(t, "c", all[2].Info.ID)
	})

	t.Run("empty store lists nothing", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()

		all, err := store.GetAllCollections(ctx)
		require.NoError(t, err)
		assert.Empty(t, all)
	})

	t.Run("deletes by id", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()

		require.NoError(t, store.SaveCollection(ctx, core.NewCollection("keep", "keep", "")))
		require.NoError(t, store.SaveCollection(ctx, core.NewCollection("drop", "drop", "")))
		require.NoError(t, store.DeleteCollection(ctx, "drop"))

		all, err := store.GetAllCollections(ctx)
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, "keep", all[0].Info.ID)

		_, err = store.GetCollection(ctx, "drop")
		assert.ErrorIs(t, err, core.ErrNotFound)
	})

	t.Run("missing ids are not found", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()

		_, err := store.GetCollection(ctx, "nope")
		assert.ErrorIs(t, err, core.ErrNotFound)
		assert.ErrorIs(t, store.DeleteCollection(ctx, "nope"), core.ErrNotFound)
	})
}

func runEnvironmentTests(t *testing.T, newStore func() (Store, func())) {
	ctx := context.Background()

	t.Run("saves and lists", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()

		env := core.EnvironmentFile{
			ID:   "e-1",
			Name: "dev",
			Values: []core.EnvironmentValue{
				{Key: "HOST", Value: "http://localhost", Type: "default", Enabled: true},
				{Key: "OFF", Value: "x", Type: "secret", Enabled: false},
			},
		}
		require.NoError(t, store.SaveEnvironment(ctx, env))

		all, err := store.GetAllEnvironments(ctx)
		require.NoError(t, err)
		assert.Equal(t, []core.EnvironmentFile{env}, all)
	})

	t.Run("environment without values round trips", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()

		env := core.EnvironmentFile{ID: "e-2", Name: "bare"}
		require.NoError(t, store.SaveEnvironment(ctx, env))

		all, err := store.GetAllEnvironments(ctx)
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Nil(t, all[0].Values)
	})

	t.Run("save replaces by id", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()

		require.NoError(t, store.SaveEnvironment(ctx, core.EnvironmentFile{ID: "e", Name: "one"}))
		require.NoError(t, store.SaveEnvironment(ctx, core.EnvironmentFile{ID: "e", Name: "two"}))

		all, err := store.GetAllEnvironments(ctx)
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, "two", all[0].Name)
	})

	t.Run("deletes by id", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()

		require.NoError(t, store.SaveEnvironment(ctx, core.EnvironmentFile{ID: "e", Name: "one"}))
		require.NoError(t, store.DeleteEnvironment(ctx, "e"))
		assert.ErrorIs(t, store.DeleteEnvironment(ctx, "e"), core.ErrNotFound)

		all, err := store.GetAllEnvironments(ctx)
		require.NoError(t, err)
		assert.Empty(t, all)
	})
}

func runTabTests(t *testing.T, newStore func() (Store, func())) {
	ctx := context.Background()

	t.Run("saves and lists", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()

		tab := core.NewTab("t-1")
		require.NoError(t, store.SaveTab(ctx, tab))

		all, err := store.GetAllTabs(ctx)
		require.NoError(t, err)
		assert.Equal(t, []core.Tab{tab}, all)
	})

	t.Run("upsert updates the response fields", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()

		tab := core.NewTab("t-1")
		require.NoError(t, store.SaveTab(ctx, tab))

		tab.Method = core.MethodPost
		tab.URL = "http://example.com"
		tab.ReqBody = `{"a":1}`
		tab.ReqHeaders = []core.Header{{Key: "A", Value: "1"}}
		tab.ResStatus = "201 Created"
		tab.ResBody = "ok"
		tab.ResHeaders = []core.Header{{Key: "Content-Type", Value: "text/plain"}}
		require.NoError(t, store.SaveTab(ctx, tab))

		all, err := store.GetAllTabs(ctx)
		require.NoError(t, err)
		assert.Equal(t, []core.Tab{tab}, all)
	})

	t.Run("deletes by id", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()

		require.NoError(t, store.SaveTab(ctx, core.NewTab("a")))
		require.NoError(t, store.SaveTab(ctx, core.NewTab("b")))
		require.NoError(t, store.DeleteTab(ctx, "a"))
		assert.ErrorIs(t, store.DeleteTab(ctx, "a"), core.ErrNotFound)

		all, err := store.GetAllTabs(ctx)
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, "b", all[0].ID)
	})
}

func runHistoryTests(t *testing.T, newStore func() (Store, func())) {
	ctx := context.Background()

	t.Run("saving the same request twice appends two rows", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()

		body := `{"a":1}`
		req := core.DBRequest{
			Method:  "POST",
			URL:     "http://example.com",
			Name:    "create",
			Headers: []core.Header{{Key: "Content-Type", Value: "application/json"}},
			Body:    &body,
		}

		first, err := store.SaveRequest(ctx, req)
		require.NoError(t, err)
		second, err := store.SaveRequest(ctx, req)
		require.NoError(t, err)
		assert.NotEmpty(t, first.ID)
		assert.NotEqual(t, first.ID, second.ID)

		all, err := store.GetAllRequests(ctx)
		require.NoError(t, err)
		assert.Equal(t, []core.DBRequest{first, second}, all)
	})

	t.Run("a caller supplied id is replaced", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()

		first, err := store.SaveResponse(ctx, core.DBResponse{ID: "fixed", StatusCode: 200, Headers: []core.Header{}})
		require.NoError(t, err)
		second, err := store.SaveResponse(ctx, core.DBResponse{ID: "fixed", StatusCode: 200, Headers: []core.Header{}})
		require.NoError(t, err)
		assert.NotEqual(t, first.ID, second.ID)

		all, err := store.GetAllResponses(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})

	t.Run("responses keep status, headers and body", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()

		body := "hello"
		saved, err := store.SaveResponse(ctx, core.DBResponse{
			StatusCode: 404,
			Name:       "missing",
			Headers:    []core.Header{{Key: "X", Value: "y"}},
			Body:       &body,
		})
		require.NoError(t, err)

		all, err := store.GetAllResponses(ctx)
		require.NoError(t, err)
		assert.Equal(t, []core.DBResponse{saved}, all)
	})

	t.Run("history lists oldest first", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()

		base := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
		later, err := store.SaveHistoryItem(ctx, core.RequestHistoryItem{
			RequestID: "r2", ResponseID: "s2", SentAt: base.Add(time.Minute), ResponseTime: 20,
		})
		require.NoError(t, err)
		earlier, err := store.SaveHistoryItem(ctx, core.RequestHistoryItem{
			RequestID: "r1", ResponseID: "s1", SentAt: base, ResponseTime: 10,
		})
		require.NoError(t, err)

		all, err := store.GetAllHistoryItems(ctx)
		require.NoError(t, err)
		assert.Equal(t, []core.RequestHistoryItem{earlier, later}, all)
	})
}

func runRecordExecutionTests(t *testing.T, newStore func() (Store, func())) {
	ctx := context.Background()

	t.Run("writes exactly one linked row per table", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()

		tab := core.NewTab("tab-1")
		tab.URL = "http://example.com"
		tab.ResStatus = "200 OK"

		exec, err := store.RecordExecution(ctx, Execution{
			Request:  core.DBRequest{Method: "GET", URL: "http://example.com", Headers: []core.Header{}},
			Response: core.DBResponse{StatusCode: 200, Headers: []core.Header{}},
			History:  core.RequestHistoryItem{SentAt: time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC), ResponseTime: 42},
			Tab:      tab,
		})
		require.NoError(t, err)

		requests, err := store.GetAllRequests(ctx)
		require.NoError(t, err)
		responses, err := store.GetAllResponses(ctx)
		require.NoError(t, err)
		history, err := store.GetAllHistoryItems(ctx)
		require.NoError(t, err)
		tabs, err := store.GetAllTabs(ctx)
		require.NoError(t, err)

		require.Len(t, requests, 1)
		require.Len(t, responses, 1)
		require.Len(t, history, 1)
		require.Len(t, tabs, 1)

		assert.Equal(t, requests[0].ID, history[0].RequestID)
		assert.Equal(t, responses[0].ID, history[0].ResponseID)
		assert.Equal(t, exec.History, history[0])
		assert.Equal(t, int64(42), history[0].ResponseTime)
		assert.Equal(t, tab, tabs[0])
	})

	t.Run("upserts the originating tab", func(t *testing.T) {
		store, cleanup := newStore()
		defer cleanup()

		require.NoError(t, store.SaveTab(ctx, core.NewTab("tab-1")))

		tab := core.NewTab("tab-1")
		tab.ResStatus = "500 Internal Server Error"
		for i := 0; i < 2; i++ {
			_, err := store.RecordExecution(ctx, Execution{
				Request:  core.DBRequest{Method: "GET", URL: "u"},
				Response: core.DBResponse{StatusCode: 500},
				History:  core.RequestHistoryItem{SentAt: time.Now()},
				Tab:      tab,
			})
			require.NoError(t, err)
		}

		tabs, err := store.GetAllTabs(ctx)
		require.NoError(t, err)
		require.Len(t, tabs, 1)
		assert.Equal(t, "500 Internal Server Error", tabs[0].ResStatus)

		history, err := store.GetAllHistoryItems(ctx)
		require.NoError(t, err)
		assert.Len(t, history, 2)
	})
}

func runClosedTests(t *testing.T, newStore func() (Store, func())) {
	ctx := context.Background()
	store, cleanup := newStore()
	defer cleanup()

	require.NoError(t, store.Close())

	assert.ErrorIs(t, store.SaveCollection(ctx, core.NewCollection("c", "c", "")), ErrStoreClosed)
	_, err := store.GetAllCollections(ctx)
	assert.ErrorIs(t, err, ErrStoreClosed)
	_, err = store.SaveRequest(ctx, core.DBRequest{})
	assert.ErrorIs(t, err, ErrStoreClosed)
	_, err = store.RecordExecution(ctx, Execution{})
	assert.ErrorIs(t, err, ErrStoreClosed)
	assert.NoError(t, store.Close())
}
