// Package store provides the SQLite quote store shipped with the literary
// clock widget.
//
// The store holds a single table:
//
//	quotes(_id INTEGER PRIMARY KEY, minute INTEGER, text TEXT, author TEXT, book TEXT)
//
// # Write path
//
// Create drops and recreates the table, so every import starts from an
// empty table and _id values run densely from 1. Rows are appended through
// a Batch: one transaction with a prepared, parameterized INSERT. Values are
// never interpolated into SQL text.
//
// # Read path
//
// OpenReadOnly opens an existing store the way the widget does. Lookups by
// minute pick a random quote among the candidates (ORDER BY RANDOM()), and
// Lookup walks back minute by minute, wrapping at midnight, when a minute
// has no quote.
//
// # Database Configuration
//
//   - journal_mode=DELETE by default: the asset is a single file with no
//     -wal or -shm companions
//   - busy_timeout=5000
//   - one connection; the importer is the only writer
package store
