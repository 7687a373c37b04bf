// Package app owns postie's in-memory state and exposes the commands the
// presentation layer issues. Commands run asynchronously; every state change
// is published as an immutable Snapshot.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/mblydenburgh/postie/internal/core"
	"github.com/mblydenburgh/postie/internal/importer"
	"github.com/mblydenburgh/postie/internal/pipeline"
	"github.com/mblydenburgh/postie/internal/storage"
	"github.com/mblydenburgh/postie/internal/tree"
)

// Status strings shown to the user. Details go to the log.
const (
	StatusReady              = "Ready"
	StatusImportSuccessful   = "Import successful"
	StatusImportFailed       = "Error with importing"
	StatusSaveCollectionFail = "Error saving collection"
	StatusSaveEnvFail        = "Error saving environment"
	StatusRequestSent        = "Request sent"
	StatusRequestFailed      = "Error sending request"
	StatusTokenReceived      = "Token received"
	StatusTokenFailed        = "Error requesting token"
	StatusCollectionCreated  = "Collection created"
	StatusEnvironmentCreated = "Environment created"
	StatusEnvironmentSaved   = "Environment saved"
	StatusFolderAdded        = "Folder added"
	StatusRequestAdded       = "Request added"
	StatusDeleted            = "Deleted"
	StatusNotFound           = "Not found"
	StatusDeleteFailed       = "Error deleting"
	StatusUpdateFailed       = "Error updating collection"
	StatusLoadFailed         = "Error loading data"
	StatusTabOpened          = "Tab opened"
	StatusTabClosed          = "Tab closed"
	StatusTabFailed          = "Error updating tabs"
)

// App is the application container. It owns all cached state behind one
// lock and never holds that lock across I/O.
type App struct {
	store    storage.Store
	pipeline *pipeline.Pipeline
	editor   *tree.Editor
	importer *importer.Importer
	ids      core.IDGenerator
	logger   core.Logger

	mu    sync.RWMutex
	state state

	pubMu     sync.Mutex
	snapshots chan Snapshot

	wg sync.WaitGroup
}

type options struct {
	logger     core.Logger
	clock      core.Clock
	ids        core.IDGenerator
	reader     importer.FileReader
	httpClient *http.Client
	buffer     int
}

// Option configures an App.
type Option func(*options)

// WithLogger sets the logger shared by every component.
func WithLogger(logger core.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithClock sets the clock used for request timing.
func WithClock(clock core.Clock) Option {
	return func(o *options) { o.clock = clock }
}

// WithIDGenerator sets the generator for new collections, environments and
// tabs.
func WithIDGenerator(ids core.IDGenerator) Option {
	return func(o *options) { o.ids = ids }
}

// WithFileReader sets the file-read capability used by imports.
func WithFileReader(reader importer.FileReader) Option {
	return func(o *options) { o.reader = reader }
}

// WithHTTPClient sets the client used for OAuth2 token requests.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) { o.httpClient = client }
}

// WithSnapshotBuffer sets how many unread snapshots are kept before the
// oldest is dropped.
func WithSnapshotBuffer(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.buffer = n
		}
	}
}

// New creates an App over store, sending requests through sender. The
// initial state holds the default environment and one unsaved default tab.
func New(store storage.Store, sender pipeline.Sender, opts ...Option) *App {
	o := options{
		logger: core.NopLogger{},
		clock:  core.RealClock{},
		ids:    core.UUIDGenerator{},
		reader: importer.OSReader{},
		buffer: 16,
	}
	for _, opt := range opts {
		opt(&o)
	}

	pipelineOpts := []pipeline.Option{
		pipeline.WithClock(o.clock),
		pipeline.WithIDGenerator(o.ids),
		pipeline.WithLogger(o.logger),
	}
	if o.httpClient != nil {
		pipelineOpts = append(pipelineOpts, pipeline.WithHTTPClient(o.httpClient))
	}

	a := &App{
		store:     store,
		pipeline:  pipeline.New(sender, store, pipelineOpts...),
		editor:    tree.NewEditor(store, tree.WithLogger(o.logger)),
		importer:  importer.New(o.reader, importer.WithIDGenerator(o.ids)),
		ids:       o.ids,
		logger:    o.logger,
		snapshots: make(chan Snapshot, o.buffer),
	}
	a.state = newState(core.NewTab(o.ids.New()))
	return a
}

// Snapshots returns the channel snapshots are published on. When the reader
// falls behind, the oldest unread snapshot is dropped.
func (a *App) Snapshots() <-chan Snapshot {
	return a.snapshots
}

// Snapshot returns the current state.
func (a *App) Snapshot() Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state.snapshot()
}

// Wait blocks until every command started so far has finished.
func (a *App) Wait() {
	a.wg.Wait()
}

// Load synchronously fills the caches from the store.
func (a *App) Load(ctx context.Context) error {
	var errs []error
	errs = append(errs, a.refreshCollections(ctx))
	errs = append(errs, a.refreshEnvironments(ctx))
	errs = append(errs, a.refreshTabs(ctx))
	errs = append(errs, a.refreshHistory(ctx))
	return errors.Join(errs...)
}

// goCommand runs fn as a tracked command.
func (a *App) goCommand(name string, fn func()) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.logger.Debug("command started", "command", name)
		fn()
	}()
}

// update applies fn under the write lock and publishes the result.
func (a *App) update(fn func(*state)) {
	a.mu.Lock()
	defer a.mu.Unlock()

	fn(&a.state)
	a.state.version++
	a.publish(a.state.snapshot())
}

func (a *App) publish(s Snapshot) {
	a.pubMu.Lock()
	defer a.pubMu.Unlock()

	for {
		select {
		case a.snapshots <- s:
			return
		default:
		}
		select {
		case <-a.snapshots:
		default:
		}
	}
}

func (a *App) succeed(status string) func(*state) {
	return func(s *state) {
		s.status = status
		s.err = nil
	}
}

// fail records status and err and logs the detail.
func (a *App) fail(status string, err error, args ...any) {
	a.logger.Error(status, append(args, "error", err)...)
	a.update(func(s *state) {
		s.status = status
		s.err = err
	})
}

// SubmitRequest executes req and records it in history. Empty headers are
// replaced by the default headers with the body's content type, an empty
// environment by the selected one and an empty tab ID by the active tab.
func (a *App) SubmitRequest(ctx context.Context, req core.HTTPRequest) {
	a.mu.RLock()
	if req.Headers == nil {
		req.Headers = core.DefaultHeaders()
		if req.Body != nil {
			req.Headers = core.MergeHeaders(req.Headers, []core.Header{{Key: "Content-Type", Value: req.Body.ContentType()}})
		}
	}
	if req.Environment.ID == "" && req.Environment.Values == nil {
		req.Environment = a.state.selectedEnvironment().Clone()
	}
	if req.TabID == "" {
		req.TabID = a.state.activeTab
	}
	a.mu.RUnlock()

	a.goCommand("submit request", func() {
		result, err := a.pipeline.Execute(ctx, req)
		if err != nil {
			a.fail(StatusRequestFailed, err, "method", req.Method, "url", req.URL)
			return
		}

		history, requests, responses, err := a.loadHistory(ctx)
		if err != nil {
			a.logger.Warn("failed to refresh history", "error", err)
		}

		a.update(func(s *state) {
			s.lastResponse = &Response{
				TabID:      result.Execution.Tab.ID,
				StatusCode: result.StatusCode,
				Status:     result.Status,
				Headers:    result.Headers,
				Body:       result.Body,
				Data:       result.Data,
				Elapsed:    result.Elapsed,
			}
			s.upsertTab(result.Execution.Tab)
			s.activeTab = result.Execution.Tab.ID
			if err == nil {
				s.setHistory(history, requests, responses)
			}
			s.status = StatusRequestSent
			s.err = nil
		})
	})
}

// SubmitOAuth2Request requests an access token. The token lands in the
// snapshot and is not recorded in history.
func (a *App) SubmitOAuth2Request(ctx context.Context, req core.OAuth2Request) {
	a.goCommand("submit oauth2 request", func() {
		token, err := a.pipeline.FetchToken(ctx, req)
		if err != nil {
			a.fail(StatusTokenFailed, err, "token_url", req.AccessTokenURL)
			return
		}
		a.update(func(s *state) {
			t := *token
			s.lastToken = &t
			s.status = StatusTokenReceived
			s.err = nil
		})
	})
}

// ImportCollection reads a Postman collection file and saves it.
func (a *App) ImportCollection(ctx context.Context, path string) {
	a.goCommand("import collection", func() {
		c, err := a.importer.Collection(ctx, path)
		if err != nil {
			a.fail(StatusImportFailed, err, "path", path)
			return
		}
		if err := a.editor.Save(ctx, c); err != nil {
			a.fail(StatusSaveCollectionFail, err, "path", path)
			return
		}
		a.logger.Info("collection imported", "path", path, "collection", c.Info.ID, "requests", c.CountRequests())
		a.reloadCollections(ctx, StatusImportSuccessful)
	})
}

// ImportEnvironment reads an environment file and saves it.
func (a *App) ImportEnvironment(ctx context.Context, path string, format importer.Format) {
	a.goCommand("import environment", func() {
		env, err := a.importer.Environment(ctx, path, format)
		if err != nil {
			a.fail(StatusImportFailed, err, "path", path)
			return
		}
		if err := a.store.SaveEnvironment(ctx, env); err != nil {
			a.fail(StatusSaveEnvFail, err, "path", path)
			return
		}
		a.logger.Info("environment imported", "path", path, "environment", env.ID)
		a.reloadEnvironments(ctx, StatusImportSuccessful)
	})
}

// NewCollection creates and saves an empty collection.
func (a *App) NewCollection(ctx context.Context, name, description string) {
	c := core.NewCollection(a.ids.New(), name, description)
	a.goCommand("new collection", func() {
		if err := a.editor.Save(ctx, c); err != nil {
			a.fail(StatusSaveCollectionFail, err, "name", name)
			return
		}
		a.reloadCollections(ctx, StatusCollectionCreated)
	})
}

// NewEnvironment creates and saves an environment with no variables.
func (a *App) NewEnvironment(ctx context.Context, name string) {
	env := core.EnvironmentFile{ID: a.ids.New(), Name: name, Values: []core.EnvironmentValue{}}
	a.goCommand("new environment", func() {
		if err := a.store.SaveEnvironment(ctx, env); err != nil {
			a.fail(StatusSaveEnvFail, err, "name", name)
			return
		}
		a.reloadEnvironments(ctx, StatusEnvironmentCreated)
	})
}

// SaveEnvironment replaces a stored environment.
func (a *App) SaveEnvironment(ctx context.Context, env core.EnvironmentFile) {
	env = env.Clone()
	a.goCommand("save environment", func() {
		if err := a.store.SaveEnvironment(ctx, env); err != nil {
			a.fail(StatusSaveEnvFail, err, "environment", env.ID)
			return
		}
		a.reloadEnvironments(ctx, StatusEnvironmentSaved)
	})
}

// DeleteEnvironment removes a stored environment. Deleting the selected
// environment selects the default one.
func (a *App) DeleteEnvironment(ctx context.Context, id string) {
	a.goCommand("delete environment", func() {
		if err := a.store.DeleteEnvironment(ctx, id); err != nil {
			a.fail(statusFor(err, StatusDeleteFailed), err, "environment", id)
			return
		}
		a.reloadEnvironments(ctx, StatusDeleted)
	})
}

// SelectEnvironment makes the environment with the given ID the one used
// for substitution. An unknown ID leaves the selection unchanged.
func (a *App) SelectEnvironment(id string) {
	a.update(func(s *state) {
		for _, env := range s.environments {
			if env.ID == id {
				s.selectedEnv = id
				s.status = StatusReady
				s.err = nil
				return
			}
		}
		s.status = StatusNotFound
		s.err = fmt.Errorf("environment %q: %w", id, core.ErrNotFound)
	})
}

// AddFolder adds an empty folder under parentPath in a collection.
func (a *App) AddFolder(ctx context.Context, collectionID string, parentPath []string, name string) {
	parentPath = append([]string(nil), parentPath...)
	a.goCommand("add folder", func() {
		if err := a.editor.AddFolder(ctx, collectionID, parentPath, name); err != nil {
			a.fail(statusFor(err, StatusUpdateFailed), err, "collection", collectionID)
			return
		}
		a.reloadCollections(ctx, StatusFolderAdded)
	})
}

// AddRequest saves item into the folder at folderPath.
func (a *App) AddRequest(ctx context.Context, collectionID string, folderPath []string, item core.Item) {
	folderPath = append([]string(nil), folderPath...)
	item.Request = item.Request.Clone()
	a.goCommand("add request", func() {
		if err := a.editor.AddRequest(ctx, collectionID, folderPath, item); err != nil {
			a.fail(statusFor(err, StatusUpdateFailed), err, "collection", collectionID)
			return
		}
		a.reloadCollections(ctx, StatusRequestAdded)
	})
}

// DeleteNode removes a request, a folder or a whole collection. With a
// request name the request inside folderPath is removed; with only a
// folder path the folder is removed; with neither the collection goes.
func (a *App) DeleteNode(ctx context.Context, collectionID string, folderPath []string, request string) {
	folderPath = append([]string(nil), folderPath...)
	a.goCommand("delete node", func() {
		var err error
		switch {
		case request != "":
			err = a.editor.DeleteRequest(ctx, collectionID, folderPath, request)
		case len(folderPath) > 0:
			err = a.editor.DeleteFolder(ctx, collectionID, folderPath)
		default:
			err = a.editor.DeleteCollection(ctx, collectionID)
		}
		if err != nil {
			a.fail(statusFor(err, StatusDeleteFailed), err,
				"collection", collectionID, "folder", folderPath, "request", request)
			return
		}
		a.reloadCollections(ctx, StatusDeleted)
	})
}

// RefreshCollections reloads collections from the store.
func (a *App) RefreshCollections(ctx context.Context) {
	a.goCommand("refresh collections", func() {
		_ = a.refreshCollections(ctx)
	})
}

// RefreshEnvironments reloads environments from the store.
func (a *App) RefreshEnvironments(ctx context.Context) {
	a.goCommand("refresh environments", func() {
		_ = a.refreshEnvironments(ctx)
	})
}

// RefreshHistory reloads history, requests and responses from the store.
func (a *App) RefreshHistory(ctx context.Context) {
	a.goCommand("refresh history", func() {
		_ = a.refreshHistory(ctx)
	})
}

// RefreshTabs reloads tabs from the store.
func (a *App) RefreshTabs(ctx context.Context) {
	a.goCommand("refresh tabs", func() {
		_ = a.refreshTabs(ctx)
	})
}

// NewTab opens, saves and activates a fresh tab.
func (a *App) NewTab(ctx context.Context) {
	tab := core.NewTab(a.ids.New())
	a.goCommand("new tab", func() {
		if err := a.store.SaveTab(ctx, tab); err != nil {
			a.fail(StatusTabFailed, err, "tab", tab.ID)
			return
		}
		a.update(func(s *state) {
			s.upsertTab(tab)
			s.activeTab = tab.ID
			s.status = StatusTabOpened
			s.err = nil
		})
	})
}

// CloseTab deletes a tab. Closing the last tab opens a new unsaved default
// tab.
func (a *App) CloseTab(ctx context.Context, id string) {
	a.goCommand("close tab", func() {
		if err := a.store.DeleteTab(ctx, id); err != nil && !errors.Is(err, core.ErrNotFound) {
			a.fail(StatusTabFailed, err, "tab", id)
			return
		}
		a.update(func(s *state) {
			if !s.removeTab(id) {
				s.status = StatusNotFound
				s.err = fmt.Errorf("tab %q: %w", id, core.ErrNotFound)
				return
			}
			if len(s.tabs) == 0 {
				s.tabs = []core.Tab{core.NewTab(a.ids.New())}
			}
			if s.activeTab == id {
				s.activeTab = s.tabs[len(s.tabs)-1].ID
			}
			s.status = StatusTabClosed
			s.err = nil
		})
	})
}

func (a *App) reloadCollections(ctx context.Context, status string) {
	collections, err := a.store.GetAllCollections(ctx)
	if err != nil {
		a.fail(StatusLoadFailed, err)
		return
	}
	a.update(func(s *state) {
		s.collections = collections
		a.succeed(status)(s)
	})
}

func (a *App) reloadEnvironments(ctx context.Context, status string) {
	envs, err := a.store.GetAllEnvironments(ctx)
	if err != nil {
		a.fail(StatusLoadFailed, err)
		return
	}
	a.update(func(s *state) {
		s.setEnvironments(envs)
		a.succeed(status)(s)
	})
}

func (a *App) refreshCollections(ctx context.Context) error {
	collections, err := a.store.GetAllCollections(ctx)
	if err != nil {
		a.fail(StatusLoadFailed, err)
		return err
	}
	a.update(func(s *state) { s.collections = collections })
	return nil
}

func (a *App) refreshEnvironments(ctx context.Context) error {
	envs, err := a.store.GetAllEnvironments(ctx)
	if err != nil {
		a.fail(StatusLoadFailed, err)
		return err
	}
	a.update(func(s *state) { s.setEnvironments(envs) })
	return nil
}

func (a *App) refreshTabs(ctx context.Context) error {
	tabs, err := a.store.GetAllTabs(ctx)
	if err != nil {
		a.fail(StatusLoadFailed, err)
		return err
	}
	a.update(func(s *state) { s.setTabs(tabs) })
	return nil
}

func (a *App) refreshHistory(ctx context.Context) error {
	history, requests, responses, err := a.loadHistory(ctx)
	if err != nil {
		a.fail(StatusLoadFailed, err)
		return err
	}
	a.update(func(s *state) { s.setHistory(history, requests, responses) })
	return nil
}

func (a *App) loadHistory(ctx context.Context) ([]core.RequestHistoryItem, []core.DBRequest, []core.DBResponse, error) {
	history, err := a.store.GetAllHistoryItems(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	requests, err := a.store.GetAllRequests(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	responses, err := a.store.GetAllResponses(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	return history, requests, responses, nil
}

func statusFor(err error, fallback string) string {
	if errors.Is(err, core.ErrNotFound) {
		return StatusNotFound
	}
	return fallback
}

// Response is the last response shown to the user.
type Response struct {
	TabID      string
	StatusCode int
	Status     string
	Headers    []core.Header
	Body       string
	Data       core.ResponseData
	Elapsed    time.Duration
}
