package database

import (
	"context"
	"database/sql"
)

// Entity upserts are idempotent inserts that combine with any existing row:
// a conflicting insert refreshes the descriptive fields but never resets the
// accumulated affinity.

// UpsertYear inserts the shared year dimension entity.
func (d *Database) UpsertYear(tx *sql.Tx, id string, year int) error {
	_, err := tx.ExecContext(context.Background(), `
		INSERT INTO years (id, year) VALUES (?, ?)
		ON CONFLICT(id) DO NOTHING
	`, id, year)
	return err
}

// UpsertArtist inserts or refreshes an artist.
func (d *Database) UpsertArtist(tx *sql.Tx, id, name string) error {
	_, err := tx.ExecContext(context.Background(), `
		INSERT INTO artists (id, name) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name
	`, id, name)
	return err
}

// UpsertAlbum inserts or refreshes an album. An empty yearID leaves any
// previously known year in place.
func (d *Database) UpsertAlbum(tx *sql.Tx, id, title, yearID string) error {
	_, err := tx.ExecContext(context.Background(), `
		INSERT INTO albums (id, title, year_id) VALUES (?, ?, NULLIF(?, ''))
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			year_id = COALESCE(excluded.year_id, albums.year_id)
	`, id, title, yearID)
	return err
}

// UpsertDisc inserts or refreshes a disc.
func (d *Database) UpsertDisc(tx *sql.Tx, id, albumID string, number int) error {
	_, err := tx.ExecContext(context.Background(), `
		INSERT INTO discs (id, album_id, number) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET album_id = excluded.album_id, number = excluded.number
	`, id, albumID, number)
	return err
}

// UpsertTrack inserts or refreshes a track.
func (d *Database) UpsertTrack(tx *sql.Tx, id, discID, title string, number int, copyright string) error {
	_, err := tx.ExecContext(context.Background(), `
		INSERT INTO tracks (id, disc_id, title, number, copyright) VALUES (?, ?, ?, ?, NULLIF(?, ''))
		ON CONFLICT(id) DO UPDATE SET
			disc_id = excluded.disc_id,
			title = excluded.title,
			number = excluded.number,
			copyright = COALESCE(excluded.copyright, tracks.copyright)
	`, id, discID, title, number, copyright)
	return err
}

// UpsertShow inserts or refreshes a show.
func (d *Database) UpsertShow(tx *sql.Tx, id, name, summary, imdb string) error {
	_, err := tx.ExecContext(context.Background(), `
		INSERT INTO shows (id, name, summary, imdb) VALUES (?, ?, NULLIF(?, ''), NULLIF(?, ''))
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			summary = COALESCE(excluded.summary, shows.summary),
			imdb = COALESCE(excluded.imdb, shows.imdb)
	`, id, name, summary, imdb)
	return err
}

// UpsertSeason inserts or refreshes a season.
func (d *Database) UpsertSeason(tx *sql.Tx, id, showID string, number int) error {
	_, err := tx.ExecContext(context.Background(), `
		INSERT INTO seasons (id, show_id, number) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET show_id = excluded.show_id, number = excluded.number
	`, id, showID, number)
	return err
}

// UpsertEpisode inserts or refreshes an episode.
func (d *Database) UpsertEpisode(tx *sql.Tx, id, seasonID, title string, number int, yearID, summary string) error {
	_, err := tx.ExecContext(context.Background(), `
		INSERT INTO episodes (id, season_id, title, number, year_id, summary)
		VALUES (?, ?, ?, ?, NULLIF(?, ''), NULLIF(?, ''))
		ON CONFLICT(id) DO UPDATE SET
			season_id = excluded.season_id,
			title = excluded.title,
			number = excluded.number,
			year_id = COALESCE(excluded.year_id, episodes.year_id),
			summary = COALESCE(excluded.summary, episodes.summary)
	`, id, seasonID, title, number, yearID, summary)
	return err
}

// UpsertMovie inserts or refreshes a movie.
func (d *Database) UpsertMovie(tx *sql.Tx, id, title, yearID, summary string) error {
	_, err := tx.ExecContext(context.Background(), `
		INSERT INTO movies (id, title, year_id, summary) VALUES (?, ?, NULLIF(?, ''), NULLIF(?, ''))
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			year_id = COALESCE(excluded.year_id, movies.year_id),
			summary = COALESCE(excluded.summary, movies.summary)
	`, id, title, yearID, summary)
	return err
}

// UpsertActor inserts a shared actor entity.
func (d *Database) UpsertActor(tx *sql.Tx, id, name string) error {
	_, err := tx.ExecContext(context.Background(), `
		INSERT INTO actors (id, name) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name
	`, id, name)
	return err
}

// UpsertGenre inserts a shared genre entity.
func (d *Database) UpsertGenre(tx *sql.Tx, id, name string) error {
	_, err := tx.ExecContext(context.Background(), `
		INSERT INTO genres (id, name) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name
	`, id, name)
	return err
}

// UpsertSubtitle records the subtitle entity for a file and replaces its
// cues.
func (d *Database) UpsertSubtitle(tx *sql.Tx, id string, fileID []byte) error {
	ctx := context.Background()
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO subtitles (id, file_id) VALUES (?, ?)
		ON CONFLICT(id) DO NOTHING
	`, id, fileID); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, "DELETE FROM cues WHERE subtitle_id = ?", id)
	return err
}

// InsertCue records one cue of a subtitle.
func (d *Database) InsertCue(tx *sql.Tx, subtitleID string, startMS, durationMS int64, lines string) error {
	_, err := tx.ExecContext(context.Background(), `
		INSERT OR IGNORE INTO cues (subtitle_id, start_ms, duration_ms, lines) VALUES (?, ?, ?, ?)
	`, subtitleID, startMS, durationMS, lines)
	return err
}

// assocTables whitelists association inserts: composite-key tables where
// re-inserting an identical pair is a no-op, never a duplicate.
var assocTables = map[string][2]string{
	"album_artists": {"album_id", "artist_id"},
	"track_artists": {"track_id", "artist_id"},
	"show_actors":   {"show_id", "actor_id"},
	"movie_actors":  {"movie_id", "actor_id"},
	"show_genres":   {"show_id", "genre_id"},
	"movie_genres":  {"movie_id", "genre_id"},
}

// LinkOrdered inserts an order-preserving association row into one of the
// whitelisted many-to-many tables.
func (d *Database) LinkOrdered(tx *sql.Tx, table, ownerID, memberID string, position int) error {
	cols, ok := assocTables[table]
	if !ok {
		return sql.ErrNoRows
	}
	_, err := tx.ExecContext(context.Background(),
		"INSERT OR IGNORE INTO "+table+" ("+cols[0]+", "+cols[1]+", position) VALUES (?, ?, ?)",
		ownerID, memberID, position)
	return err
}

// fileLinkTables whitelists the entity↔file linking tables.
var fileLinkTables = map[string]string{
	"track_files":   "track_id",
	"album_files":   "album_id",
	"episode_files": "episode_id",
	"show_files":    "show_id",
	"movie_files":   "movie_id",
}

// LinkFile attaches a physical file to an entity through one of the
// whitelisted linking tables.
func (d *Database) LinkFile(tx *sql.Tx, table, entityID string, fileID []byte) error {
	col, ok := fileLinkTables[table]
	if !ok {
		return sql.ErrNoRows
	}
	_, err := tx.ExecContext(context.Background(),
		"INSERT OR IGNORE INTO "+table+" ("+col+", file_id) VALUES (?, ?)",
		entityID, fileID)
	return err
}

// pruneStatements delete entities left without the references that justify
// their existence, in strict dependency order: leaves, then intermediates,
// then top-level entities, then shared dimensions. One pass per level is
// sufficient because the model is a DAG.
var pruneStatements = []struct {
	name string
	sql  string
}{
	// Leaf entities require at least one file association.
	{"tracks", "DELETE FROM tracks WHERE id NOT IN (SELECT track_id FROM track_files)"},
	{"episodes", "DELETE FROM episodes WHERE id NOT IN (SELECT episode_id FROM episode_files)"},
	{"movies", "DELETE FROM movies WHERE id NOT IN (SELECT movie_id FROM movie_files)"},
	{"track_artists", "DELETE FROM track_artists WHERE track_id NOT IN (SELECT id FROM tracks)"},
	{"movie_actors", "DELETE FROM movie_actors WHERE movie_id NOT IN (SELECT id FROM movies)"},
	{"movie_genres", "DELETE FROM movie_genres WHERE movie_id NOT IN (SELECT id FROM movies)"},

	// Intermediate entities require at least one child.
	{"discs", "DELETE FROM discs WHERE id NOT IN (SELECT disc_id FROM tracks)"},
	{"seasons", "DELETE FROM seasons WHERE id NOT IN (SELECT season_id FROM episodes)"},

	// Top-level entities require at least one child.
	{"albums", "DELETE FROM albums WHERE id NOT IN (SELECT album_id FROM discs)"},
	{"shows", "DELETE FROM shows WHERE id NOT IN (SELECT show_id FROM seasons)"},
	{"album_artists", "DELETE FROM album_artists WHERE album_id NOT IN (SELECT id FROM albums)"},
	{"album_files", "DELETE FROM album_files WHERE album_id NOT IN (SELECT id FROM albums)"},
	{"show_actors", "DELETE FROM show_actors WHERE show_id NOT IN (SELECT id FROM shows)"},
	{"show_genres", "DELETE FROM show_genres WHERE show_id NOT IN (SELECT id FROM shows)"},
	{"show_files", "DELETE FROM show_files WHERE show_id NOT IN (SELECT id FROM shows)"},

	// Shared dimensions require at least one remaining reference from any
	// direction.
	{"artists", `DELETE FROM artists WHERE id NOT IN
		(SELECT artist_id FROM album_artists UNION SELECT artist_id FROM track_artists)`},
	{"actors", `DELETE FROM actors WHERE id NOT IN
		(SELECT actor_id FROM show_actors UNION SELECT actor_id FROM movie_actors)`},
	{"genres", `DELETE FROM genres WHERE id NOT IN
		(SELECT genre_id FROM show_genres UNION SELECT genre_id FROM movie_genres)`},
	{"years", `DELETE FROM years WHERE id NOT IN (
		SELECT year_id FROM albums WHERE year_id IS NOT NULL
		UNION SELECT year_id FROM movies WHERE year_id IS NOT NULL
		UNION SELECT year_id FROM episodes WHERE year_id IS NOT NULL)`},
}

// userAffinityKinds maps user_affinities.kind values to the entity table
// whose deletion orphans them.
var userAffinityKinds = map[string]string{
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

// PruneOrphans sweeps the graph bottom-up, removing every entity whose file
// associations or children are gone, and returns per-table deletion counts.
func (d *Database) PruneOrphans(tx *sql.Tx) (map[string]int64, error) {
	ctx := context.Background()
	pruned := make(map[string]int64)

	for _, stmt := range pruneStatements {
		result, err := tx.ExecContext(ctx, stmt.sql)
		if err != nil {
			return pruned, err
		}
		if rows, err := result.RowsAffected(); err == nil && rows > 0 {
			pruned[stmt.name] += rows
		}
	}

	for kind, table := range userAffinityKinds {
		result, err := tx.ExecContext(ctx,
			"DELETE FROM user_affinities WHERE kind = ? AND entity_id NOT IN (SELECT id FROM "+table+")", kind)
		if err != nil {
			return pruned, err
		}
		if rows, err := result.RowsAffected(); err == nil && rows > 0 {
			pruned["user_affinities"] += rows
		}
	}

	return pruned, nil
}
