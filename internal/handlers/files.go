package handlers

import (
	"database/sql"
	"encoding/hex"
	"errors"
	"net/http"
	"path"

	"github.com/gorilla/mux"

	"media-library/internal/logging"
)

// GetFilePath returns the path of a file relative to the media root, as both
// segments and a joined string. File identifiers travel as hex over the API.
func (h *Handlers) GetFilePath(w http.ResponseWriter, r *http.Request) {
	idHex := mux.Vars(r)["id"]
	id, err := hex.DecodeString(idHex)
	if err != nil {
		writeJSONError(w, "invalid file id", http.StatusBadRequest)
		return
	}

	segments, err := h.db.FilePathSegments(r.Context(), id)
	if errors.Is(err, sql.ErrNoRows) {
		writeJSONError(w, "file not found", http.StatusNotFound)
		return
	}
	if err != nil {
		logging.Error("failed to resolve file path %s: %v", idHex, err)
		writeJSONError(w, "failed to resolve file path", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]interface{}{
		"id":       idHex,
		"segments": segments,
		"path":     path.Join(segments...),
	})
}
