package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mblydenburgh/postie/internal/core"
	"github.com/mblydenburgh/postie/internal/storage"
)

// sent_at is stored as UTC text so it sorts lexically.
const sentAtLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SaveRequest appends a request row under a new ID.
func (s *Store) SaveRequest(ctx context.Context, req core.DBRequest) (core.DBRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return core.DBRequest{}, storage.ErrStoreClosed
	}

	req.ID = s.ids.New()
	err := s.withTx(ctx, "save request", func(tx *sql.Tx) error {
		return insertRequest(ctx, tx, req)
	})
	if err != nil {
		return core.DBRequest{}, err
	}
	return req, nil
}

// SaveResponse appends a response row under a new ID.
func (s *Store) SaveResponse(ctx context.Context, resp core.DBResponse) (core.DBResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return core.DBResponse{}, storage.ErrStoreClosed
	}

	resp.ID = s.ids.New()
	err := s.withTx(ctx, "save response", func(tx *sql.Tx) error {
		return insertResponse(ctx, tx, resp)
	})
	if err != nil {
		return core.DBResponse{}, err
	}
	return resp, nil
}

// SaveHistoryItem appends a history row under a new ID.
func (s *Store) SaveHistoryItem(ctx context.Context, item core.RequestHistoryItem) (core.RequestHistoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return core.RequestHistoryItem{}, storage.ErrStoreClosed
	}

	item.ID = s.ids.New()
	err := s.withTx(ctx, "save history item", func(tx *sql.Tx) error {
		return insertHistoryItem(ctx, tx, item)
	})
	if err != nil {
		return core.RequestHistoryItem{}, err
	}
	return item, nil
}

// RecordExecution writes request, response, history row and tab in one
// transaction.
func (s *Store) RecordExecution(ctx context.Context, exec storage.Execution) (storage.Execution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return storage.Execution{}, storage.ErrStoreClosed
	}

	exec.Request.ID = s.ids.New()
	exec.Response.ID = s.ids.New()
	exec.History.ID = s.ids.New()
	exec.History.RequestID = exec.Request.ID
	exec.History.ResponseID = exec.Response.ID

	err := s.withTx(ctx, "record execution", func(tx *sql.Tx) error {
		if err := insertRequest(ctx, tx, exec.Request); err != nil {
			return err
		}
		if err := insertResponse(ctx, tx, exec.Response); err != nil {
			return err
		}
		if err := insertHistoryItem(ctx, tx, exec.History); err != nil {
			return err
		}
		return upsertTab(ctx, tx, exec.Tab)
	})
	if err != nil {
		return storage.Execution{}, err
	}
	return exec, nil
}

func insertRequest(ctx context.Context, tx *sql.Tx, req core.DBRequest) error {
	headers, err := marshalBlob(headersOrEmpty(req.Headers))
	if err != nil {
		return fmt.Errorf("failed to save request: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO request (id, method, url, name, headers, body)
		VALUES (?, ?, ?, ?, ?, ?)
	`, req.ID, req.Method, req.URL, nullString(req.Name), headers, nullStringPtr(req.Body))
	if err != nil {
		return persistenceErr("save request", err)
	}
	return nil
}

func insertResponse(ctx context.Context, tx *sql.Tx, resp core.DBResponse) error {
	headers, err := marshalBlob(headersOrEmpty(resp.Headers))
	if err != nil {
		return fmt.Errorf("failed to save response: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO response (id, status_code, name, headers, body)
		VALUES (?, ?, ?, ?, ?)
	`, resp.ID, resp.StatusCode, nullString(resp.Name), headers, nullStringPtr(resp.Body))
	if err != nil {
		return persistenceErr("save response", err)
	}
	return nil
}

func insertHistoryItem(ctx context.Context, tx *sql.Tx, item core.RequestHistoryItem) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO request_history (id, request_id, response_id, sent_at, response_time_ms)
		VALUES (?, ?, ?, ?, ?)
	`, item.ID, item.RequestID, item.ResponseID, item.SentAt.UTC().Format(sentAtLayout), item.ResponseTime)
	if err != nil {
		return persistenceErr("save history item", err)
	}
	return nil
}

// GetAllRequests returns every persisted request in insertion order.
func (s *Store) GetAllRequests(ctx context.Context) ([]core.DBRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, storage.ErrStoreClosed
	}

	requests := []core.DBRequest{}
	err := s.withTx(ctx, "list requests", func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `SELECT id, method, url, name, headers, body FROM request ORDER BY rowid`)
		if err != nil {
			return persistenceErr("list requests", err)
		}
		defer rows.Close()

		for rows.Next() {
			var (
				req           core.DBRequest
				name, headers sql.NullString
				body          sql.NullString
			)
			if err := rows.Scan(&req.ID, &req.Method, &req.URL, &name, &headers, &body); err != nil {
				return persistenceErr("scan request", err)
			}
			req.Name = name.String
			req.Body = stringPtr(body)
			if !s.decodeBlob("request", "headers", req.ID, headers, &req.Headers) || req.Headers == nil {
				req.Headers = []core.Header{}
			}
			requests = append(requests, req)
		}
		if err := rows.Err(); err != nil {
			return persistenceErr("list requests", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return requests, nil
}

// GetAllResponses returns every persisted response in insertion order.
func (s *Store) GetAllResponses(ctx context.Context) ([]core.DBResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, storage.ErrStoreClosed
	}

	responses := []core.DBResponse{}
	err := s.withTx(ctx, "list responses", func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `SELECT id, status_code, name, headers, body FROM response ORDER BY rowid`)
		if err != nil {
			return persistenceErr("list responses", err)
		}
		defer rows.Close()

		for rows.Next() {
			var (
				resp          core.DBResponse
				name, headers sql.NullString
				body          sql.NullString
			)
			if err := rows.Scan(&resp.ID, &resp.StatusCode, &name, &headers, &body); err != nil {
				return persistenceErr("scan response", err)
			}
			resp.Name = name.String
			resp.Body = stringPtr(body)
			if !s.decodeBlob("response", "headers", resp.ID, headers, &resp.Headers) || resp.Headers == nil {
				resp.Headers = []core.Header{}
			}
			responses = append(responses, resp)
		}
		if err := rows.Err(); err != nil {
			return persistenceErr("list responses", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return responses, nil
}

// GetAllHistoryItems returns the history, oldest first.
func (s *Store) GetAllHistoryItems(ctx context.Context) ([]core.RequestHistoryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, storage.ErrStoreClosed
	}

	items := []core.RequestHistoryItem{}
	err := s.withTx(ctx, "list history", func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `
			SELECT id, request_id, response_id, sent_at, response_time_ms
			FROM request_history ORDER BY sent_at, rowid
		`)
		if err != nil {
			return persistenceErr("list history", err)
		}
		defer rows.Close()

		for rows.Next() {
			var (
				item   core.RequestHistoryItem
				sentAt string
			)
			if err := rows.Scan(&item.ID, &item.RequestID, &item.ResponseID, &sentAt, &item.ResponseTime); err != nil {
				return persistenceErr("scan history item", err)
			}
			item.SentAt, err = time.Parse(sentAtLayout, sentAt)
			if err != nil {
				s.logger.Warn("malformed sent_at, using zero time", "id", item.ID, "sent_at", sentAt)
				item.SentAt = time.Time{}
			}
			items = append(items, item)
		}
		if err := rows.Err(); err != nil {
			return persistenceErr("list history", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}
