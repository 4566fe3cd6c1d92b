// Package database implements the SQLite-backed store for the media library:
// the filesystem mirror (directories, files, typed facets), the domain entity
// graph (audio and video hierarchies with their association tables), the
// affinity rows, and the full-text search index.
//
// Writes are serialized: the whole indexing pass runs inside one writable
// transaction obtained from BeginBatch, and short affinity transactions queue
// behind it. Readers run concurrently and never observe a partially applied
// pass.
//
// The search index uses the FTS5 module of mattn/go-sqlite3, which is only
// compiled in with the fts5 build tag (go build -tags 'fts5').
package database
