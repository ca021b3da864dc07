package sqlite

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/siriusexpedition/sirius/server/internal/store"
)

// Get returns the document stored under key, or store.ErrNotFound.
// Numbers decode as json.Number and timestamps as RFC 3339 strings; use
// store.Int64 and store.Time to read them.
func (s *Store) Get(ctx context.Context, key string) (store.Document, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM documents WHERE key = ?`, key).Scan(&body)
	if isNoRows(err) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get document %q: %w", key, err)
	}
	return decodeDocument(body)
}

// Set writes fields to the document under key inside a transaction.
func (s *Store) Set(ctx context.Context, key string, fields store.Document, opts store.SetOptions) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin set %q: %w", key, err)
	}
	defer tx.Rollback() //nolint:errcheck

	var current store.Document
	var body string
	err = tx.QueryRowContext(ctx, `SELECT body FROM documents WHERE key = ?`, key).Scan(&body)
	switch {
	case isNoRows(err):
	case err != nil:
		return fmt.Errorf("sqlite: read document %q: %w", key, err)
	default:
		if current, err = decodeDocument(body); err != nil {
			return err
		}
	}

	next, err := json.Marshal(encodable(store.Apply(current, fields, opts)))
	if err != nil {
		return fmt.Errorf("sqlite: encode document %q: %w", key, err)
	}

	if _, err := tx.ExecContext(ctx, `
INSERT INTO documents (key, body, updated_at) VALUES (?, ?, ?)
ON CONFLICT (key) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
		key, string(next), toMillis(s.now())); err != nil {
		return fmt.Errorf("sqlite: write document %q: %w", key, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit document %q: %w", key, err)
	}
	return nil
}

func decodeDocument(body string) (store.Document, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(body)))
	dec.UseNumber()
	var doc store.Document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("sqlite: decode document: %w", err)
	}
	if doc == nil {
		doc = store.Document{}
	}
	return doc, nil
}

// encodable converts time values to RFC 3339 so they survive the JSON round trip.
func encodable(doc store.Document) store.Document {
	out := make(store.Document, len(doc))
	for k, v := range doc {
		if t, ok := v.(time.Time); ok {
			out[k] = t.UTC().Format(time.RFC3339Nano)
			continue
		}
		out[k] = v
	}
	return out
}
