package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mblydenburgh/postie/internal/core"
	"github.com/mblydenburgh/postie/internal/storage"
)

// SaveCollection inserts or fully replaces a collection.
func (s *Store) SaveCollection(ctx context.Context, c core.Collection) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return storage.ErrStoreClosed
	}

	items := c.Item
	if items == nil {
		items = core.Nodes{}
	}
	itemJSON, err := marshalBlob(items)
	if err != nil {
		return fmt.Errorf("failed to save collection: %w", err)
	}

	var authJSON sql.NullString
	if c.Auth != nil {
		encoded, err := marshalBlob(c.Auth)
		if err != nil {
			return fmt.Errorf("failed to save collection: %w", err)
		}
		authJSON = nullString(encoded)
	}

	return s.withTx(ctx, "save collection", func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO collections (id, name, description, schema, item, auth)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				description = excluded.description,
				schema = excluded.schema,
				item = excluded.item,
				auth = excluded.auth
		`, c.Info.ID, c.Info.Name, nullString(c.Info.Description), nullString(c.Info.Schema), itemJSON, authJSON)
		if err != nil {
			return persistenceErr("save collection", err)
		}
		return nil
	})
}

// GetCollection returns the collection with the given ID.
func (s *Store) GetCollection(ctx context.Context, id string) (core.Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return core.Collection{}, storage.ErrStoreClosed
	}

	var c core.Collection
	err := s.withTx(ctx, "get collection", func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `
			SELECT id, name, description, schema, item, auth
			FROM collections WHERE id = ?
		`, id)

		var scanErr error
		c, scanErr = s.scanCollection(row)
		if errors.Is(scanErr, sql.ErrNoRows) {
			return fmt.Errorf("collection %q: %w", id, core.ErrNotFound)
		}
		if scanErr != nil {
			return persistenceErr("get collection", scanErr)
		}
		return nil
	})
	if err != nil {
		return core.Collection{}, err
	}
	return c, nil
}

// GetAllCollections returns every collection in insertion order.
func (s *Store) GetAllCollections(ctx context.Context) ([]core.Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, storage.ErrStoreClosed
	}

	collections := []core.Collection{}
	err := s.withTx(ctx, "list collections", func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `
			SELECT id, name, description, schema, item, auth
			FROM collections ORDER BY rowid
		`)
		if err != nil {
			return persistenceErr("list collections", err)
		}
		defer rows.Close()

		for rows.Next() {
			c, err := s.scanCollection(rows)
			if err != nil {
				return persistenceErr("scan collection", err)
			}
			collections = append(collections, c)
		}
		if err := rows.Err(); err != nil {
			return persistenceErr("list collections", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return collections, nil
}

// DeleteCollection removes a collection by ID.
func (s *Store) DeleteCollection(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return storage.ErrStoreClosed
	}

	return s.withTx(ctx, "delete collection", func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, "DELETE FROM collections WHERE id = ?", id)
		if err != nil {
			return persistenceErr("delete collection", err)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return fmt.Errorf("collection %q: %w", id, core.ErrNotFound)
		}
		return nil
	})
}

type scanner interface {
	Scan(dest ...any) error
}

func (s *Store) scanCollection(row scanner) (core.Collection, error) {
	var (
		c                                   core.Collection
		description, schema, itemJSON, auth sql.NullString
	)
	if err := row.Scan(&c.Info.ID, &c.Info.Name, &description, &schema, &itemJSON, &auth); err != nil {
		return core.Collection{}, err
	}
	c.Info.Description = description.String
	c.Info.Schema = schema.String

	if !s.decodeBlob("collections", "item", c.Info.ID, itemJSON, &c.Item) {
		c.Item = nil
	}
	if c.Item == nil {
		c.Item = core.Nodes{}
	}

	if auth.Valid && auth.String != "" {
		var a core.CollectionAuth
		if s.decodeBlob("collections", "auth", c.Info.ID, auth, &a) {
			c.Auth = &a
		}
	}

	return c, nil
}
