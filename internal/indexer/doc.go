// Package indexer drives the indexing pipeline for the media library.
//
// Each pass runs inside a single write transaction: the filesystem scan
// mirrors the directory tree into the store, reconciliation removes rows for
// vanished paths, stale files are probed and rebuilt into the entity graph,
// support files are resolved against their carrier siblings, orphaned
// entities are swept bottom-up, and the full-text search index is refreshed.
// Readers always observe either the previous pass or the new one, never a
// mixture.
//
// Between passes a lightweight poller watches the media root for changes
// (root mtime, top-level entry count, subdirectory mtime sample), which keeps
// change detection cheap on NFS mounts where recursive walks are expensive.
package indexer
