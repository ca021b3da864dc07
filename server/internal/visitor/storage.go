package visitor

import (
	"context"
	"fmt"

	"github.com/siriusexpedition/sirius/server/internal/store"
)

// KeyValue is a string key-value storage scope. Device storage persists
// across sessions; session storage is cleared when the session ends.
type KeyValue interface {
	Get(key string) (string, bool)
	Set(key, value string) error
}

// DocumentStore is the remote record store shared by every device.
type DocumentStore interface {
	Get(ctx context.Context, key string) (store.Document, error)
	Set(ctx context.Context, key string, fields store.Document, opts store.SetOptions) error
}

// Device storage keys.
const (
	KeyVisitorID     = "visitorId"
	KeyLastVisitDate = "lastVisitDate"
	KeyLocalTotal    = "local_visitor_total"
	KeyLocalToday    = "local_visitor_today"
)

// sessionMarkerPrefix is joined with the calendar date to form the session key.
const sessionMarkerPrefix = "visited_"

// SessionMarkerKey returns the session storage key that marks day as counted.
func SessionMarkerKey(day string) string {
	return sessionMarkerPrefix + day
}

// StorageError reports a failed device or session storage operation.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("visitor: storage %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// MapStorage is an in-memory KeyValue. The zero value is ready to use.
type MapStorage map[string]string

// Get implements KeyValue.
func (m MapStorage) Get(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

// Set implements KeyValue.
func (m MapStorage) Set(key, value string) error {
	m[key] = value
	return nil
}
