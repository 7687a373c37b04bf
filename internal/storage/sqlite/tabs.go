package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mblydenburgh/postie/internal/core"
	"github.com/mblydenburgh/postie/internal/storage"
)

// SaveTab inserts or fully replaces a tab.
func (s *Store) SaveTab(ctx context.Context, tab core.Tab) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return storage.ErrStoreClosed
	}

	return s.withTx(ctx, "save tab", func(tx *sql.Tx) error {
		return upsertTab(ctx, tx, tab)
	})
}

func upsertTab(ctx context.Context, tx *sql.Tx, tab core.Tab) error {
	reqHeaders, err := marshalBlob(headersOrEmpty(tab.ReqHeaders))
	if err != nil {
		return fmt.Errorf("failed to save tab: %w", err)
	}
	resHeaders, err := marshalBlob(headersOrEmpty(tab.ResHeaders))
	if err != nil {
		return fmt.Errorf("failed to save tab: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO tabs (id, method, url, req_body, req_headers, res_status, res_body, res_headers)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			method = excluded.method,
			url = excluded.url,
			req_body = excluded.req_body,
			req_headers = excluded.req_headers,
			res_status = excluded.res_status,
			res_body = excluded.res_body,
			res_headers = excluded.res_headers
	`, tab.ID, tab.Method.String(), tab.URL, tab.ReqBody, reqHeaders,
		nullString(tab.ResStatus), tab.ResBody, resHeaders)
	if err != nil {
		return persistenceErr("save tab", err)
	}
	return nil
}

// GetAllTabs returns every tab in the order it was opened.
func (s *Store) GetAllTabs(ctx context.Context) ([]core.Tab, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, storage.ErrStoreClosed
	}

	tabs := []core.Tab{}
	err := s.withTx(ctx, "list tabs", func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `
			SELECT id, method, url, req_body, req_headers, res_status, res_body, res_headers
			FROM tabs ORDER BY rowid
		`)
		if err != nil {
			return persistenceErr("list tabs", err)
		}
		defer rows.Close()

		for rows.Next() {
			var (
				tab                    core.Tab
				method                 string
				reqHeaders, resHeaders sql.NullString
				resStatus              sql.NullString
			)
			if err := rows.Scan(&tab.ID, &method, &tab.URL, &tab.ReqBody, &reqHeaders,
				&resStatus, &tab.ResBody, &resHeaders); err != nil {
				return persistenceErr("scan tab", err)
			}

			tab.Method, err = core.ParseMethod(method)
			if err != nil {
				s.logger.Warn("malformed tab method, using GET", "id", tab.ID, "method", method)
				tab.Method = core.MethodGet
			}
			tab.ResStatus = resStatus.String
			if !s.decodeBlob("tabs", "req_headers", tab.ID, reqHeaders, &tab.ReqHeaders) || tab.ReqHeaders == nil {
				tab.ReqHeaders = []core.Header{}
			}
			if !s.decodeBlob("tabs", "res_headers", tab.ID, resHeaders, &tab.ResHeaders) || tab.ResHeaders == nil {
				tab.ResHeaders = []core.Header{}
			}
			tabs = append(tabs, tab)
		}
		if err := rows.Err(); err != nil {
			return persistenceErr("list tabs", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tabs, nil
}

// DeleteTab removes a tab by ID.
func (s *Store) DeleteTab(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return storage.ErrStoreClosed
	}

	return s.withTx(ctx, "delete tab", func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, "DELETE FROM tabs WHERE id = ?", id)
		if err != nil {
			return persistenceErr("delete tab", err)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return fmt.Errorf("tab %q: %w", id, core.ErrNotFound)
		}
		return nil
	})
}

func headersOrEmpty(h []core.Header) []core.Header {
	if h == nil {
		return []core.Header{}
	}
	return h
}
