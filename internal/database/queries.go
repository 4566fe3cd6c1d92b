package database

import (
	"context"
	"database/sql"
	"time"
)

// Read-side lookups for the API layer. All of these run in read-only
// transactions that may interleave with an indexing pass; WAL guarantees they
// see either the pre-index or post-index graph.

func scanArtist(row interface{ Scan(...any) error }) (Artist, error) {
	var a Artist
	err := row.Scan(&a.ID, &a.Name, &a.Affinity)
	return a, err
}

// ListArtists returns all artists ordered by name.
func (d *Database) ListArtists(ctx context.Context) ([]Artist, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("list_artists", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, "SELECT id, name, affinity FROM artists ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Artist
	for rows.Next() {
		a, scanErr := scanArtist(rows)
		if scanErr != nil {
			err = scanErr
			return nil, err
		}
		out = append(out, a)
	}
	err = rows.Err()
	return out, err
}

// GetArtist looks up one artist by id.
func (d *Database) GetArtist(ctx context.Context, id string) (*Artist, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_artist", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	a, err := scanArtist(d.db.QueryRowContext(ctx,
		"SELECT id, name, affinity FROM artists WHERE id = ?", id))
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ArtistAlbums returns an artist's albums in association order.
func (d *Database) ArtistAlbums(ctx context.Context, artistID string) ([]Album, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("artist_albums", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, `
		SELECT a.id, a.title, COALESCE(a.year_id, ''), a.affinity FROM albums a
		JOIN album_artists aa ON aa.album_id = a.id
		WHERE aa.artist_id = ?
		ORDER BY aa.position, a.title
	`, artistID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Album
	for rows.Next() {
		var a Album
		if err = rows.Scan(&a.ID, &a.Title, &a.YearID, &a.Affinity); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	err = rows.Err()
	return out, err
}

// GetAlbum looks up one album by id.
func (d *Database) GetAlbum(ctx context.Context, id string) (*Album, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_album", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var a Album
	err = d.db.QueryRowContext(ctx,
		"SELECT id, title, COALESCE(year_id, ''), affinity FROM albums WHERE id = ?", id).
		Scan(&a.ID, &a.Title, &a.YearID, &a.Affinity)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// AlbumTracks returns an album's tracks ordered by disc and track number.
func (d *Database) AlbumTracks(ctx context.Context, albumID string) ([]Track, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("album_tracks", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, `
		SELECT t.id, t.disc_id, t.title, t.number, COALESCE(t.copyright, ''), t.affinity
		FROM tracks t
		JOIN discs ds ON ds.id = t.disc_id
		WHERE ds.album_id = ?
		ORDER BY ds.number, t.number
	`, albumID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Track
	for rows.Next() {
		var t Track
		if err = rows.Scan(&t.ID, &t.DiscID, &t.Title, &t.Number, &t.Copyright, &t.Affinity); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	err = rows.Err()
	return out, err
}

// GetTrack looks up one track by id.
func (d *Database) GetTrack(ctx context.Context, id string) (*Track, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_track", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var t Track
	err = d.db.QueryRowContext(ctx,
		"SELECT id, disc_id, title, number, COALESCE(copyright, ''), affinity FROM tracks WHERE id = ?", id).
		Scan(&t.ID, &t.DiscID, &t.Title, &t.Number, &t.Copyright, &t.Affinity)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ListShows returns all shows ordered by name.
func (d *Database) ListShows(ctx context.Context) ([]Show, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("list_shows", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx,
		"SELECT id, name, COALESCE(summary, ''), COALESCE(imdb, ''), affinity FROM shows ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Show
	for rows.Next() {
		var s Show
		if err = rows.Scan(&s.ID, &s.Name, &s.Summary, &s.IMDB, &s.Affinity); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	err = rows.Err()
	return out, err
}

// GetShow looks up one show by id.
func (d *Database) GetShow(ctx context.Context, id string) (*Show, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_show", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var s Show
	err = d.db.QueryRowContext(ctx,
		"SELECT id, name, COALESCE(summary, ''), COALESCE(imdb, ''), affinity FROM shows WHERE id = ?", id).
		Scan(&s.ID, &s.Name, &s.Summary, &s.IMDB, &s.Affinity)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ShowSeasons returns a show's seasons ordered by number.
func (d *Database) ShowSeasons(ctx context.Context, showID string) ([]Season, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("show_seasons", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx,
		"SELECT id, show_id, number, affinity FROM seasons WHERE show_id = ? ORDER BY number", showID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Season
	for rows.Next() {
		var s Season
		if err = rows.Scan(&s.ID, &s.ShowID, &s.Number, &s.Affinity); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	err = rows.Err()
	return out, err
}

// SeasonEpisodes returns a season's episodes ordered by number.
func (d *Database) SeasonEpisodes(ctx context.Context, seasonID string) ([]Episode, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("season_episodes", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, `
		SELECT id, season_id, title, number, COALESCE(year_id, ''), COALESCE(summary, ''), affinity
		FROM episodes WHERE season_id = ? ORDER BY number
	`, seasonID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Episode
	for rows.Next() {
		var e Episode
		if err = rows.Scan(&e.ID, &e.SeasonID, &e.Title, &e.Number, &e.YearID, &e.Summary, &e.Affinity); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	err = rows.Err()
	return out, err
}

// GetEpisode looks up one episode by id.
func (d *Database) GetEpisode(ctx context.Context, id string) (*Episode, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_episode", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var e Episode
	err = d.db.QueryRowContext(ctx, `
		SELECT id, season_id, title, number, COALESCE(year_id, ''), COALESCE(summary, ''), affinity
		FROM episodes WHERE id = ?
	`, id).Scan(&e.ID, &e.SeasonID, &e.Title, &e.Number, &e.YearID, &e.Summary, &e.Affinity)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ListMovies returns all movies ordered by title.
func (d *Database) ListMovies(ctx context.Context) ([]Movie, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("list_movies", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx,
		"SELECT id, title, COALESCE(year_id, ''), COALESCE(summary, ''), affinity FROM movies ORDER BY title")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Movie
	for rows.Next() {
		var m Movie
		if err = rows.Scan(&m.ID, &m.Title, &m.YearID, &m.Summary, &m.Affinity); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	err = rows.Err()
	return out, err
}

// GetMovie looks up one movie by id.
func (d *Database) GetMovie(ctx context.Context, id string) (*Movie, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_movie", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var m Movie
	err = d.db.QueryRowContext(ctx,
		"SELECT id, title, COALESCE(year_id, ''), COALESCE(summary, ''), affinity FROM movies WHERE id = ?", id).
		Scan(&m.ID, &m.Title, &m.YearID, &m.Summary, &m.Affinity)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// YearListing groups the entities referencing one year.
type YearListing struct {
	Year   Year    `json:"year"`
	Albums []Album `json:"albums"`
	Movies []Movie `json:"movies"`
}

// GetYearListing returns the albums and movies of one calendar year.
func (d *Database) GetYearListing(ctx context.Context, year int) (*YearListing, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("year_listing", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var listing YearListing
	err = d.db.QueryRowContext(ctx,
		"SELECT id, year, affinity FROM years WHERE year = ?", year).
		Scan(&listing.Year.ID, &listing.Year.Year, &listing.Year.Affinity)
	if err != nil {
		return nil, err
	}

	albumRows, err := d.db.QueryContext(ctx,
		"SELECT id, title, COALESCE(year_id, ''), affinity FROM albums WHERE year_id = ? ORDER BY title",
		listing.Year.ID)
	if err != nil {
		return nil, err
	}
	defer albumRows.Close()
	for albumRows.Next() {
		var a Album
		if err = albumRows.Scan(&a.ID, &a.Title, &a.YearID, &a.Affinity); err != nil {
			return nil, err
		}
		listing.Albums = append(listing.Albums, a)
	}
	if err = albumRows.Err(); err != nil {
		return nil, err
	}

	movieRows, err := d.db.QueryContext(ctx,
		"SELECT id, title, COALESCE(year_id, ''), COALESCE(summary, ''), affinity FROM movies WHERE year_id = ? ORDER BY title",
		listing.Year.ID)
	if err != nil {
		return nil, err
	}
	defer movieRows.Close()
	for movieRows.Next() {
		var m Movie
		if err = movieRows.Scan(&m.ID, &m.Title, &m.YearID, &m.Summary, &m.Affinity); err != nil {
			return nil, err
		}
		listing.Movies = append(listing.Movies, m)
	}
	err = movieRows.Err()
	return &listing, err
}

// Search runs a full-text query over the entity search index.
func (d *Database) Search(ctx context.Context, query string, limit, offset int) ([]SearchHit, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("search", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, `
		SELECT kind, entity_id, body FROM search_fts
		WHERE search_fts MATCH ?
		ORDER BY rank
		LIMIT ? OFFSET ?
	`, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SearchHit
	for rows.Next() {
		var h SearchHit
		if err = rows.Scan(&h.Kind, &h.EntityID, &h.Body); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	err = rows.Err()
	return out, err
}

// RefreshSearchIndex rebuilds the full-text index from the entity tables and
// cue text. Run at the end of an indexing pass, inside the pass transaction.
func (d *Database) RefreshSearchIndex(tx *sql.Tx) error {
	ctx := context.Background()

	if _, err := tx.ExecContext(ctx, "DELETE FROM search_fts"); err != nil {
		return err
	}

	sources := []string{
		"SELECT 'artist', id, name FROM artists",
		"SELECT 'album', id, title FROM albums",
		"SELECT 'track', id, title FROM tracks",
		"SELECT 'show', id, name FROM shows",
		"SELECT 'episode', id, title FROM episodes",
		"SELECT 'movie', id, title FROM movies",
		"SELECT 'cue', subtitle_id, lines FROM cues",
	}
	for _, src := range sources {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO search_fts (kind, entity_id, body) "+src); err != nil {
			return err
		}
	}
	return nil
}
