package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"media-library/internal/affinity"
	"media-library/internal/database"
	"media-library/internal/logging"
	"media-library/internal/metrics"
)

// playbackKinds are the entity kinds a playback event may name directly.
var playbackKinds = map[string]bool{
	"track":   true,
	"episode": true,
	"movie":   true,
}

// PlaybackRequest is one reported playback event. Timestamp is unix
// milliseconds; zero means now.
type PlaybackRequest struct {
	Kind      string `json:"kind"`
	ID        string `json:"id"`
	User      string `json:"user"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

// RecordPlayback applies a playback event to the affinity of the named
// entity and its ancestors.
func (h *Handlers) RecordPlayback(w http.ResponseWriter, r *http.Request) {
	var req PlaybackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if !playbackKinds[req.Kind] {
		writeJSONError(w, "kind must be track, episode or movie", http.StatusBadRequest)
		return
	}
	if req.ID == "" || req.User == "" {
		writeJSONError(w, "id and user are required", http.StatusBadRequest)
		return
	}

	when := time.Now()
	if req.Timestamp != 0 {
		when = time.UnixMilli(req.Timestamp)
	}

	tx, err := h.db.BeginBatch()
	if err != nil {
		logging.Error("failed to begin playback transaction: %v", err)
		writeJSONError(w, "failed to record playback", http.StatusInternalServerError)
		return
	}

	err = h.scorer.Record(r.Context(), tx, req.Kind, req.ID, req.User, when)
	if endErr := h.db.EndBatch(tx, err); endErr != nil {
		if errors.Is(endErr, affinity.ErrUnknownEntity) || errors.Is(endErr, database.ErrUnknownKind) {
			writeJSONError(w, "entity not found", http.StatusNotFound)
			return
		}
		logging.Error("failed to record playback for %s %s: %v", req.Kind, req.ID, endErr)
		writeJSONError(w, "failed to record playback", http.StatusInternalServerError)
		return
	}

	metrics.PlaybackEventsTotal.Inc()
	writeJSONStatus(w, "recorded")
}

// TriggerReindex manually starts an indexing pass.
func (h *Handlers) TriggerReindex(w http.ResponseWriter, _ *http.Request) {
	if h.indexer.IsIndexing() {
		writeJSONStatus(w, "already_indexing")
		return
	}

	h.indexer.TriggerIndex()
	writeJSONStatus(w, "indexing_started")
}

// GetStats returns the library statistics from the last indexing pass.
func (h *Handlers) GetStats(w http.ResponseWriter, _ *http.Request) {
	stats := h.db.GetStats()

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, stats)
}
