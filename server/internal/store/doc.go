// Package store defines the document-store contract used for shared site
// records (the visitor counter) and provides a thread-safe in-memory backend.
//
// A Document is a flat map of field names to values. Set writes fields to a
// keyed document; with SetOptions.Merge the write is an upsert that leaves
// unspecified fields intact, otherwise it replaces the document. A field value
// of Increment(n) atomically adds n to the stored number (missing fields start
// at 0). Get returns ErrNotFound when no document exists for the key.
//
// Persistent backends live in the sqlite and mongo sub-packages.
package store
