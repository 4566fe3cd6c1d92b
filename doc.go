// Package main provides the entry point for the media library server.
//
// The server indexes a media directory into a SQLite-backed entity graph
// (artists, albums, tracks, shows, seasons, episodes, movies) and exposes it
// over a JSON API with full-text search and playback affinity scoring.
//
// # Application Lifecycle
//
// The application follows a structured initialization sequence:
//
//  1. Configuration Loading: Reads environment variables and validates directories
//  2. Database Initialization: Opens SQLite database with FTS5 full-text search
//  3. Indexer: Runs the first indexing pass and schedules periodic re-indexing
//  4. Watcher: Starts the fsnotify filesystem watcher (if enabled)
//  5. HTTP Server Setup: Configures routes, middleware, and starts the server
//  6. Graceful Shutdown: Handles SIGINT/SIGTERM, stops all components cleanly
//
// # HTTP Servers
//
// The application runs two HTTP servers:
//
//  1. Main Server (default port 8080):
//     - API endpoints for browsing the entity graph
//     - Full-text search
//     - Playback event recording
//     - Health, readiness and version endpoints
//
//  2. Metrics Server (default port 9090, optional):
//     - Prometheus metrics endpoint (/metrics)
//
// # Build Requirements
//
// The application requires CGO for SQLite, and the FTS5 module of
// mattn/go-sqlite3 is only compiled in behind a build tag:
//
//	go build -tags 'fts5' -o media-library .
//
// Tests that touch the database need the same tag:
//
//	go test -tags 'fts5' ./...
//
// # Environment Variables
//
// Configuration is documented in the startup package; see
// internal/startup/doc.go for the full list.
package main
