package handlers

import (
	"net/http"
	"strconv"

	"media-library/internal/database"
	"media-library/internal/logging"
)

const (
	defaultSearchLimit = 50
	maxSearchLimit     = 200
)

// Search runs a full-text query over the entity search index, covering
// titles, names and subtitle cue text.
func (h *Handlers) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeJSONError(w, "missing query parameter q", http.StatusBadRequest)
		return
	}

	limit := defaultSearchLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			writeJSONError(w, "invalid limit", http.StatusBadRequest)
			return
		}
		if parsed > maxSearchLimit {
			parsed = maxSearchLimit
		}
		limit = parsed
	}

	offset := 0
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		parsed, err := strconv.Atoi(offsetStr)
		if err != nil || parsed < 0 {
			writeJSONError(w, "invalid offset", http.StatusBadRequest)
			return
		}
		offset = parsed
	}

	hits, err := h.db.Search(r.Context(), query, limit, offset)
	if err != nil {
		logging.Error("search failed for %q: %v", query, err)
		writeJSONError(w, "search failed", http.StatusInternalServerError)
		return
	}

	if hits == nil {
		hits = []database.SearchHit{}
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]interface{}{
		"query":   query,
		"results": hits,
	})
}
