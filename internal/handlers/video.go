package handlers

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"media-library/internal/database"
	"media-library/internal/logging"
)

// ListShows returns all TV shows.
func (h *Handlers) ListShows(w http.ResponseWriter, r *http.Request) {
	shows, err := h.db.ListShows(r.Context())
	if err != nil {
		logging.Error("failed to list shows: %v", err)
		writeJSONError(w, "failed to list shows", http.StatusInternalServerError)
		return
	}

	for i := range shows {
		shows[i].Affinity = adjusted(shows[i].Affinity)
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]interface{}{"shows": shows})
}

// ShowResponse is a show with its seasons.
type ShowResponse struct {
	database.Show
	Seasons      []database.Season `json:"seasons"`
	UserAffinity *float64          `json:"userAffinity,omitempty"`
}

// GetShow returns one show and its seasons in season order.
func (h *Handlers) GetShow(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	show, err := h.db.GetShow(r.Context(), id)
	if errors.Is(err, sql.ErrNoRows) {
		writeJSONError(w, "show not found", http.StatusNotFound)
		return
	}
	if err != nil {
		logging.Error("failed to get show %s: %v", id, err)
		writeJSONError(w, "failed to get show", http.StatusInternalServerError)
		return
	}

	seasons, err := h.db.ShowSeasons(r.Context(), id)
	if err != nil {
		logging.Error("failed to get show seasons %s: %v", id, err)
		writeJSONError(w, "failed to get show seasons", http.StatusInternalServerError)
		return
	}

	show.Affinity = adjusted(show.Affinity)
	for i := range seasons {
		seasons[i].Affinity = adjusted(seasons[i].Affinity)
	}

	response := ShowResponse{Show: *show, Seasons: seasons}
	h.addUserAffinity(r, "show", id, &response.UserAffinity)

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, response)
}

// GetSeasonEpisodes returns the episodes of one season in episode order.
func (h *Handlers) GetSeasonEpisodes(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	episodes, err := h.db.SeasonEpisodes(r.Context(), id)
	if err != nil {
		logging.Error("failed to get season episodes %s: %v", id, err)
		writeJSONError(w, "failed to get season episodes", http.StatusInternalServerError)
		return
	}

	for i := range episodes {
		episodes[i].Affinity = adjusted(episodes[i].Affinity)
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]interface{}{"episodes": episodes})
}

// EpisodeResponse is a single episode.
type EpisodeResponse struct {
	database.Episode
	UserAffinity *float64 `json:"userAffinity,omitempty"`
}

// GetEpisode returns one episode.
func (h *Handlers) GetEpisode(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	episode, err := h.db.GetEpisode(r.Context(), id)
	if errors.Is(err, sql.ErrNoRows) {
		writeJSONError(w, "episode not found", http.StatusNotFound)
		return
	}
	if err != nil {
		logging.Error("failed to get episode %s: %v", id, err)
		writeJSONError(w, "failed to get episode", http.StatusInternalServerError)
		return
	}

	episode.Affinity = adjusted(episode.Affinity)

	response := EpisodeResponse{Episode: *episode}
	h.addUserAffinity(r, "episode", id, &response.UserAffinity)

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, response)
}

// ListMovies returns all movies.
func (h *Handlers) ListMovies(w http.ResponseWriter, r *http.Request) {
	movies, err := h.db.ListMovies(r.Context())
	if err != nil {
		logging.Error("failed to list movies: %v", err)
		writeJSONError(w, "failed to list movies", http.StatusInternalServerError)
		return
	}

	for i := range movies {
		movies[i].Affinity = adjusted(movies[i].Affinity)
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]interface{}{"movies": movies})
}

// MovieResponse is a single movie.
type MovieResponse struct {
	database.Movie
	UserAffinity *float64 `json:"userAffinity,omitempty"`
}

// GetMovie returns one movie.
func (h *Handlers) GetMovie(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	movie, err := h.db.GetMovie(r.Context(), id)
	if errors.Is(err, sql.ErrNoRows) {
		writeJSONError(w, "movie not found", http.StatusNotFound)
		return
	}
	if err != nil {
		logging.Error("failed to get movie %s: %v", id, err)
		writeJSONError(w, "failed to get movie", http.StatusInternalServerError)
		return
	}

	movie.Affinity = adjusted(movie.Affinity)

	response := MovieResponse{Movie: *movie}
	h.addUserAffinity(r, "movie", id, &response.UserAffinity)

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, response)
}
