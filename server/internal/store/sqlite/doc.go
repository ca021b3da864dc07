// Package sqlite persists site documents and admin accounts in a single
// SQLite file using the pure-Go modernc.org/sqlite driver.
//
// Documents are stored as JSON bodies keyed by document key. Set reads,
// merges and writes inside one transaction, so Increment fields are atomic
// with respect to every other writer of the same database file.
//
// Open applies the embedded migrations at most once per file.
package sqlite
