// Package storage defines the repository behind every postie entity.
package storage

import (
	"context"
	"errors"

	"github.com/mblydenburgh/postie/internal/core"
)

// ErrStoreClosed is returned by every operation on a closed store.
var ErrStoreClosed = errors.New("store is closed")

// Execution is everything one request submission persists.
type Execution struct {
	Request  core.DBRequest
	Response core.DBResponse
	History  core.RequestHistoryItem
	Tab      core.Tab
}

// Store persists collections, environments, tabs and the request history.
//
// Collections, environments and tabs are upserted by ID: a save replaces the
// stored document. Requests, responses and history items are append only:
// every save inserts a new row under a freshly generated ID.
//
// List operations never fail on a single malformed row; the row is returned
// with safe defaults in place of the broken fields.
type Store interface {
	// SaveCollection inserts or fully replaces a collection.
	SaveCollection(ctx context.Context, c core.Collection) error

	// GetCollection returns the collection with the given ID.
	GetCollection(ctx context.Context, id string) (core.Collection, error)

	// GetAllCollections returns every collection.
	GetAllCollections(ctx context.Context) ([]core.Collection, error)

	// DeleteCollection removes a collection by ID.
	DeleteCollection(ctx context.Context, id string) error

	// SaveEnvironment inserts or fully replaces an environment.
	SaveEnvironment(ctx context.Context, env core.EnvironmentFile) error

	// GetAllEnvironments returns every environment.
	GetAllEnvironments(ctx context.Context) ([]core.EnvironmentFile, error)

	// DeleteEnvironment removes an environment by ID.
	DeleteEnvironment(ctx context.Context, id string) error

	// SaveTab inserts or fully replaces a tab.
	SaveTab(ctx context.Context, tab core.Tab) error

	// GetAllTabs returns every open tab.
	GetAllTabs(ctx context.Context) ([]core.Tab, error)

	// DeleteTab removes a tab by ID.
	DeleteTab(ctx context.Context, id string) error

	// SaveRequest appends a request row and returns it with its new ID.
	SaveRequest(ctx context.Context, req core.DBRequest) (core.DBRequest, error)

	// SaveResponse appends a response row and returns it with its new ID.
	SaveResponse(ctx context.Context, resp core.DBResponse) (core.DBResponse, error)

	// SaveHistoryItem appends a history row and returns it with its new ID.
	SaveHistoryItem(ctx context.Context, item core.RequestHistoryItem) (core.RequestHistoryItem, error)

	// GetAllRequests returns every persisted request.
	GetAllRequests(ctx context.Context) ([]core.DBRequest, error)

	// GetAllResponses returns every persisted response.
	GetAllResponses(ctx context.Context) ([]core.DBResponse, error)

	// GetAllHistoryItems returns the history, oldest first.
	GetAllHistoryItems(ctx context.Context) ([]core.RequestHistoryItem, error)

	// RecordExecution appends the request, the response and a history row
	// linking them, then upserts the tab, in that order and atomically. The
	// returned Execution carries the generated IDs.
	RecordExecution(ctx context.Context, exec Execution) (Execution, error)

	// Close closes the store and releases resources.
	Close() error
}
