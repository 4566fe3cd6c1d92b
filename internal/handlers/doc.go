// Package handlers implements the HTTP API over the indexed media library.
//
// Browse endpoints expose the entity hierarchy (artists, albums, tracks,
// shows, seasons, episodes, movies, years) with affinity values decayed to
// the moment of the request. Playback events arrive via POST /api/playback
// and propagate affinity up the ownership chain. Health, readiness and
// version endpoints follow the usual Kubernetes probe conventions.
package handlers
