package store

import (
	"encoding/json"
	"errors"
	"math"
	"time"
)

// ErrNotFound is returned by Get when no document exists for the key.
var ErrNotFound = errors.New("store: document not found")

// Document is a flat record of named fields.
type Document map[string]any

// Increment is a field marker that adds its value to the stored number
// instead of overwriting it.
type Increment int64

// SetOptions controls how Set combines fields with an existing document.
type SetOptions struct {
	// Merge upserts the given fields and keeps all others. When false the
	// document is replaced by exactly the given fields.
	Merge bool
}

// Clone returns a shallow copy of d.
func (d Document) Clone() Document {
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Int64 reads field as an integer. Backends decode numbers differently
// (int32 from BSON, float64 from JSON), so every numeric kind is accepted.
// A missing or non-numeric field yields 0, false.
func Int64(d Document, field string) (int64, bool) {
	switch v := d[field].(type) {
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case Increment:
		return int64(v), true
	case float64:
		return int64(math.Round(v)), true
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			f, ferr := v.Float64()
			if ferr != nil {
				return 0, false
			}
			return int64(math.Round(f)), true
		}
		return n, true
	default:
		return 0, false
	}
}

// Time reads field as a timestamp. RFC 3339 strings and Unix milliseconds are
// accepted alongside time.Time.
func Time(d Document, field string) (time.Time, bool) {
	switch v := d[field].(type) {
	case time.Time:
		return v, true
	case string:
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	}
	if ms, ok := Int64(d, field); ok {
		return time.UnixMilli(ms).UTC(), true
	}
	return time.Time{}, false
}

// Apply computes the document produced by writing fields over current.
// current may be nil when no document exists yet. Backends that cannot push
// the merge down to the database use Apply inside their own transaction.
func Apply(current, fields Document, opts SetOptions) Document {
	var out Document
	if opts.Merge && current != nil {
		out = current.Clone()
	} else {
		out = make(Document, len(fields))
	}

	for k, v := range fields {
		inc, ok := v.(Increment)
		if !ok {
			out[k] = v
			continue
		}
		base := int64(0)
		if opts.Merge && current != nil {
			base, _ = Int64(current, k)
		}
		out[k] = base + int64(inc)
	}
	return out
}
