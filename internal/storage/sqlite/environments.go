package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mblydenburgh/postie/internal/core"
	"github.com/mblydenburgh/postie/internal/storage"
)

// SaveEnvironment inserts or fully replaces an environment.
func (s *Store) SaveEnvironment(ctx context.Context, env core.EnvironmentFile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return storage.ErrStoreClosed
	}

	var valuesJSON sql.NullString
	if env.Values != nil {
		encoded, err := marshalBlob(env.Values)
		if err != nil {
			return fmt.Errorf("failed to save environment: %w", err)
		}
		valuesJSON = nullString(encoded)
	}

	return s.withTx(ctx, "save environment", func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO environment (id, name, "values")
			VALUES (?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				"values" = excluded."values"
		`, env.ID, env.Name, valuesJSON)
		if err != nil {
			return persistenceErr("save environment", err)
		}
		return nil
	})
}

// GetAllEnvironments returns every environment in insertion order.
func (s *Store) GetAllEnvironments(ctx context.Context) ([]core.EnvironmentFile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, storage.ErrStoreClosed
	}

	envs := []core.EnvironmentFile{}
	err := s.withTx(ctx, "list environments", func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `SELECT id, name, "values" FROM environment ORDER BY rowid`)
		if err != nil {
			return persistenceErr("list environments", err)
		}
		defer rows.Close()

		for rows.Next() {
			var (
				env    core.EnvironmentFile
				values sql.NullString
			)
			if err := rows.Scan(&env.ID, &env.Name, &values); err != nil {
				return persistenceErr("scan environment", err)
			}
			if !s.decodeBlob("environment", "values", env.ID, values, &env.Values) {
				env.Values = []core.EnvironmentValue{}
			}
			envs = append(envs, env)
		}
		if err := rows.Err(); err != nil {
			return persistenceErr("list environments", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return envs, nil
}

// DeleteEnvironment removes an environment by ID.
func (s *Store) DeleteEnvironment(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return storage.ErrStoreClosed
	}

	return s.withTx(ctx, "delete environment", func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, "DELETE FROM environment WHERE id = ?", id)
		if err != nil {
			return persistenceErr("delete environment", err)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return fmt.Errorf("environment %q: %w", id, core.ErrNotFound)
		}
		return nil
	})
}
