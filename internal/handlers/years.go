package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"media-library/internal/logging"
)

// GetYear returns the albums and movies of one calendar year.
func (h *Handlers) GetYear(w http.ResponseWriter, r *http.Request) {
	yearStr := mux.Vars(r)["year"]
	year, err := strconv.Atoi(yearStr)
	if err != nil {
		writeJSONError(w, "invalid year", http.StatusBadRequest)
		return
	}

	listing, err := h.db.GetYearListing(r.Context(), year)
	if errors.Is(err, sql.ErrNoRows) {
		writeJSONError(w, "year not found", http.StatusNotFound)
		return
	}
	if err != nil {
		logging.Error("failed to get year %d: %v", year, err)
		writeJSONError(w, "failed to get year", http.StatusInternalServerError)
		return
	}

	listing.Year.Affinity = adjusted(listing.Year.Affinity)
	for i := range listing.Albums {
		listing.Albums[i].Affinity = adjusted(listing.Albums[i].Affinity)
	}
	for i := range listing.Movies {
		listing.Movies[i].Affinity = adjusted(listing.Movies[i].Affinity)
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, listing)
}
