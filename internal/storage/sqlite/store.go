package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/mblydenburgh/postie/internal/core"
	"github.com/mblydenburgh/postie/internal/storage"
	"github.com/mblydenburgh/postie/internal/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// Store implements storage.Store using SQLite.
type Store struct {
	mu     sync.RWMutex
	db     *sql.DB
	closed bool
	ids    core.IDGenerator
	logger core.Logger
}

var _ storage.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithIDGenerator sets the generator used for append-only rows.
func WithIDGenerator(ids core.IDGenerator) Option {
	return func(s *Store) {
		s.ids = ids
	}
}

// WithLogger sets the logger that receives malformed-row warnings.
func WithLogger(logger core.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New opens (creating if needed) the database file at dbPath.
func New(dbPath string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return NewWithDB(db, opts...)
}

// NewInMemory creates a new in-memory SQLite store (useful for testing).
func NewInMemory(opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory database: %w", err)
	}
	// Every connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)

	return NewWithDB(db, opts...)
}

// NewWithDB wraps an open database and migrates it to the latest schema. The
// store takes ownership of db.
func NewWithDB(db *sql.DB, opts ...Option) (*Store, error) {
	store := &Store{
		db:     db,
		ids:    core.UUIDGenerator{},
		logger: core.NopLogger{},
	}
	for _, opt := range opts {
		opt(store)
	}

	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	return s.db.Close()
}

// withTx runs fn in its own transaction and commits it.
func (s *Store) withTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return persistenceErr(op, err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return persistenceErr(op, err)
	}
	return nil
}

func persistenceErr(op string, err error) error {
	return fmt.Errorf("failed to %s: %w: %w", op, core.ErrPersistence, err)
}

func marshalBlob(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode: %w", err)
	}
	return string(data), nil
}

// decodeBlob decodes a JSON column into dst. A malformed or missing blob
// leaves dst at its safe default and reports false; the caller logs it.
func (s *Store) decodeBlob(table, column, id string, blob sql.NullString, dst any) bool {
	if !blob.Valid || blob.String == "" {
		return true
	}
	if err := json.Unmarshal([]byte(blob.String), dst); err != nil {
		s.logger.Warn("malformed json column, using default",
			"table", table, "column", column, "id", id, "error", err)
		return false
	}
	return true
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullStringPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
