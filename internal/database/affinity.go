package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"media-library/internal/metrics"
)

// affinityTables maps entity kinds to the table carrying the global affinity
// column. Kinds outside this map are rejected.
var affinityTables = map[string]string{
	"track":   "tracks",
	"disc":    "discs",
	"album":   "albums",
	"artist":  "artists",
	"episode": "episodes",
	"season":  "seasons",
	"show":    "shows",
	"movie":   "movies",
	"year":    "years",
}

// ErrUnknownKind is returned for an entity kind outside the affinity
// hierarchy.
var ErrUnknownKind = errors.New("unknown entity kind")

// AddAffinity adds a playback weight to an entity's global affinity and to
// the per-(entity, user) row, creating the row on first touch. An absent
// prior value is treated as zero.
func (d *Database) AddAffinity(tx *sql.Tx, kind, entityID, userID string, weight float64) error {
	table, ok := affinityTables[kind]
	if !ok {
		return ErrUnknownKind
	}
	ctx := context.Background()

	if _, err := tx.ExecContext(ctx,
		"UPDATE "+table+" SET affinity = affinity + ? WHERE id = ?", weight, entityID); err != nil {
		return err
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO user_affinities (kind, entity_id, user_id, affinity) VALUES (?, ?, ?, ?)
		ON CONFLICT(kind, entity_id, user_id) DO UPDATE SET
			affinity = user_affinities.affinity + excluded.affinity
	`, kind, entityID, userID, weight)
	if err == nil {
		metrics.AffinityUpdatesTotal.WithLabelValues(kind).Inc()
	}
	return err
}

// TrackChain holds the ownership ancestors of a track, the entities a
// playback event propagates to.
type TrackChain struct {
	DiscID    string
	AlbumID   string
	YearID    string
	ArtistIDs []string
}

// GetTrackChain resolves a track's ancestor identifiers.
func (d *Database) GetTrackChain(ctx context.Context, trackID string) (TrackChain, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("track_chain", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var chain TrackChain
	var yearID sql.NullString
	err = d.db.QueryRowContext(ctx, `
		SELECT ds.id, a.id, a.year_id FROM tracks t
		JOIN discs ds ON ds.id = t.disc_id
		JOIN albums a ON a.id = ds.album_id
		WHERE t.id = ?
	`, trackID).Scan(&chain.DiscID, &chain.AlbumID, &yearID)
	if err != nil {
		return chain, err
	}
	chain.YearID = yearID.String

	rows, err := d.db.QueryContext(ctx,
		"SELECT artist_id FROM track_artists WHERE track_id = ? ORDER BY position", trackID)
	if err != nil {
		return chain, err
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		if err = rows.Scan(&id); err != nil {
			return chain, err
		}
		chain.ArtistIDs = append(chain.ArtistIDs, id)
	}
	err = rows.Err()
	return chain, err
}

// EpisodeChain holds the ownership ancestors of an episode.
type EpisodeChain struct {
	SeasonID string
	ShowID   string
	YearID   string
}

// GetEpisodeChain resolves an episode's ancestor identifiers.
func (d *Database) GetEpisodeChain(ctx context.Context, episodeID string) (EpisodeChain, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("episode_chain", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var chain EpisodeChain
	var yearID sql.NullString
	err = d.db.QueryRowContext(ctx, `
		SELECT s.id, s.show_id, e.year_id FROM episodes e
		JOIN seasons s ON s.id = e.season_id
		WHERE e.id = ?
	`, episodeID).Scan(&chain.SeasonID, &chain.ShowID, &yearID)
	chain.YearID = yearID.String
	return chain, err
}

// GetMovieYear resolves a movie's year identifier, if any.
func (d *Database) GetMovieYear(ctx context.Context, movieID string) (string, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("movie_year", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var yearID sql.NullString
	err = d.db.QueryRowContext(ctx,
		"SELECT year_id FROM movies WHERE id = ?", movieID).Scan(&yearID)
	return yearID.String, err
}

// GetUserAffinity returns the stored per-user affinity for an entity, zero
// when no row exists.
func (d *Database) GetUserAffinity(ctx context.Context, kind, entityID, userID string) (float64, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("user_affinity", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var v float64
	err = d.db.QueryRowContext(ctx, `
		SELECT affinity FROM user_affinities WHERE kind = ? AND entity_id = ? AND user_id = ?
	`, kind, entityID, userID).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return v, err
}
