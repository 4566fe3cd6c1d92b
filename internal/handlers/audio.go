package handlers

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"media-library/internal/database"
	"media-library/internal/logging"
)

// ListArtists returns all artists with their current (decayed) affinity.
func (h *Handlers) ListArtists(w http.ResponseWriter, r *http.Request) {
	artists, err := h.db.ListArtists(r.Context())
	if err != nil {
		logging.Error("failed to list artists: %v", err)
		writeJSONError(w, "failed to list artists", http.StatusInternalServerError)
		return
	}

	for i := range artists {
		artists[i].Affinity = adjusted(artists[i].Affinity)
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]interface{}{"artists": artists})
}

// ArtistResponse is an artist with its albums.
type ArtistResponse struct {
	database.Artist
	Albums       []database.Album `json:"albums"`
	UserAffinity *float64         `json:"userAffinity,omitempty"`
}

// GetArtist returns one artist and its albums.
func (h *Handlers) GetArtist(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	artist, err := h.db.GetArtist(r.Context(), id)
	if errors.Is(err, sql.ErrNoRows) {
		writeJSONError(w, "artist not found", http.StatusNotFound)
		return
	}
	if err != nil {
		logging.Error("failed to get artist %s: %v", id, err)
		writeJSONError(w, "failed to get artist", http.StatusInternalServerError)
		return
	}

	albums, err := h.db.ArtistAlbums(r.Context(), id)
	if err != nil {
		logging.Error("failed to get artist albums %s: %v", id, err)
		writeJSONError(w, "failed to get artist albums", http.StatusInternalServerError)
		return
	}

	artist.Affinity = adjusted(artist.Affinity)
	for i := range albums {
		albums[i].Affinity = adjusted(albums[i].Affinity)
	}

	response := ArtistResponse{Artist: *artist, Albums: albums}
	h.addUserAffinity(r, "artist", id, &response.UserAffinity)

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, response)
}

// AlbumResponse is an album with its tracks in disc/track order.
type AlbumResponse struct {
	database.Album
	Tracks       []database.Track `json:"tracks"`
	UserAffinity *float64         `json:"userAffinity,omitempty"`
}

// GetAlbum returns one album and its tracks, ordered by disc then track
// number.
func (h *Handlers) GetAlbum(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	album, err := h.db.GetAlbum(r.Context(), id)
	if errors.Is(err, sql.ErrNoRows) {
		writeJSONError(w, "album not found", http.StatusNotFound)
		return
	}
	if err != nil {
		logging.Error("failed to get album %s: %v", id, err)
		writeJSONError(w, "failed to get album", http.StatusInternalServerError)
		return
	}

	tracks, err := h.db.AlbumTracks(r.Context(), id)
	if err != nil {
		logging.Error("failed to get album tracks %s: %v", id, err)
		writeJSONError(w, "failed to get album tracks", http.StatusInternalServerError)
		return
	}

	album.Affinity = adjusted(album.Affinity)
	for i := range tracks {
		tracks[i].Affinity = adjusted(tracks[i].Affinity)
	}

	response := AlbumResponse{Album: *album, Tracks: tracks}
	h.addUserAffinity(r, "album", id, &response.UserAffinity)

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, response)
}

// TrackResponse is a single track.
type TrackResponse struct {
	database.Track
	UserAffinity *float64 `json:"userAffinity,omitempty"`
}

// GetTrack returns one track.
func (h *Handlers) GetTrack(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	track, err := h.db.GetTrack(r.Context(), id)
	if errors.Is(err, sql.ErrNoRows) {
		writeJSONError(w, "track not found", http.StatusNotFound)
		return
	}
	if err != nil {
		logging.Error("failed to get track %s: %v", id, err)
		writeJSONError(w, "failed to get track", http.StatusInternalServerError)
		return
	}

	track.Affinity = adjusted(track.Affinity)

	response := TrackResponse{Track: *track}
	h.addUserAffinity(r, "track", id, &response.UserAffinity)

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, response)
}

// addUserAffinity fills dest with the caller's decayed per-user affinity when
// the request carries a user query parameter.
func (h *Handlers) addUserAffinity(r *http.Request, kind, entityID string, dest **float64) {
	user := r.URL.Query().Get("user")
	if user == "" {
		return
	}
	stored, err := h.db.GetUserAffinity(r.Context(), kind, entityID, user)
	if err != nil {
		logging.Warn("failed to get user affinity for %s %s: %v", kind, entityID, err)
		return
	}
	v := adjusted(stored)
	*dest = &v
}
