package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"media-library/internal/logging"
	"media-library/internal/metrics"
)

// Default timeout for read-side database operations
const defaultTimeout = 5 * time.Second

// Database manages the media library store: the filesystem mirror, the
// domain entity graph, and the affinity rows. Writes are serialized through
// BeginBatch/EndBatch so that at most one writable transaction is in flight;
// readers never observe a partially applied indexing pass.
type Database struct {
	db      *sql.DB
	dbPath  string
	mu      sync.Mutex // serializes writable transaction creation
	stats   IndexStats
	statsMu sync.RWMutex
	txStart time.Time
}

// New creates a new Database instance. dbPath is the full path to the
// database file; the parent directory must exist and be writable.
func New(ctx context.Context, dbPath string) (*Database, error) {
	logging.Info("Database path: %s", dbPath)

	// WAL allows concurrent readers while the indexing pass holds the write
	// transaction. busy_timeout prevents "database is locked" errors from
	// short affinity transactions queued behind an indexing pass.
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=10000&_busy_timeout=5000&_foreign_keys=on", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after ping failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(time.Hour)

	d := &Database{
		db:     db,
		dbPath: dbPath,
	}

	if err := d.initialize(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after initialization failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	logging.Info("Database initialized successfully at %s", dbPath)
	return d, nil
}

func (d *Database) initialize(ctx context.Context) error {
	schema := `
	-- Filesystem mirror. Identifiers are 8-byte content-addressed blobs
	-- derived from the parent id and normalized name.
	CREATE TABLE IF NOT EXISTS directories (
		id BLOB PRIMARY KEY,
		name TEXT NOT NULL,
		parent_id BLOB REFERENCES directories(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_directories_parent ON directories(parent_id);

	-- index_time is NULL exactly when the file has never been probed; it
	-- holds the filesystem mtime (unix ms) of the last probe attempt and is
	-- the sole staleness oracle.
	CREATE TABLE IF NOT EXISTS files (
		id BLOB PRIMARY KEY,
		name TEXT NOT NULL,
		parent_id BLOB REFERENCES directories(id) ON DELETE CASCADE,
		size INTEGER NOT NULL DEFAULT 0,
		index_time INTEGER
	);

	CREATE INDEX IF NOT EXISTS idx_files_parent ON files(parent_id);

	-- Typed file facets, one-to-one with files, at most one per file.
	CREATE TABLE IF NOT EXISTS audio_files (
		file_id BLOB PRIMARY KEY REFERENCES files(id) ON DELETE CASCADE,
		mime TEXT NOT NULL,
		duration_ms INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS image_files (
		file_id BLOB PRIMARY KEY REFERENCES files(id) ON DELETE CASCADE,
		mime TEXT NOT NULL,
		width INTEGER NOT NULL DEFAULT 0,
		height INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS video_files (
		file_id BLOB PRIMARY KEY REFERENCES files(id) ON DELETE CASCADE,
		mime TEXT NOT NULL,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		width INTEGER NOT NULL DEFAULT 0,
		height INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS subtitle_files (
		file_id BLOB PRIMARY KEY REFERENCES files(id) ON DELETE CASCADE,
		mime TEXT NOT NULL,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		language TEXT
	);

	CREATE TABLE IF NOT EXISTS metadata_files (
		file_id BLOB PRIMARY KEY REFERENCES files(id) ON DELETE CASCADE,
		mime TEXT NOT NULL
	);

	-- Shared dimension entities.
	CREATE TABLE IF NOT EXISTS years (
		id TEXT PRIMARY KEY,
		year INTEGER NOT NULL UNIQUE,
		affinity REAL NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS actors (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		affinity REAL NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS genres (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		affinity REAL NOT NULL DEFAULT 0
	);

	-- Audio hierarchy.
	CREATE TABLE IF NOT EXISTS artists (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		affinity REAL NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS albums (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		year_id TEXT REFERENCES years(id),
		affinity REAL NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS discs (
		id TEXT PRIMARY KEY,
		album_id TEXT NOT NULL REFERENCES albums(id),
		number INTEGER NOT NULL DEFAULT 1,
		affinity REAL NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_discs_album ON discs(album_id);

	CREATE TABLE IF NOT EXISTS tracks (
		id TEXT PRIMARY KEY,
		disc_id TEXT NOT NULL REFERENCES discs(id),
		title TEXT NOT NULL,
		number INTEGER NOT NULL DEFAULT 0,
		copyright TEXT,
		affinity REAL NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_tracks_disc ON tracks(disc_id);

	CREATE TABLE IF NOT EXISTS album_artists (
		album_id TEXT NOT NULL,
		artist_id TEXT NOT NULL,
		position INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (album_id, artist_id)
	);

	CREATE TABLE IF NOT EXISTS track_artists (
		track_id TEXT NOT NULL,
		artist_id TEXT NOT NULL,
		position INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (track_id, artist_id)
	);

	CREATE TABLE IF NOT EXISTS album_files (
		album_id TEXT NOT NULL,
		file_id BLOB NOT NULL REFERENCES files(id) ON DELETE CASCADE,
		PRIMARY KEY (album_id, file_id)
	);

	CREATE TABLE IF NOT EXISTS track_files (
		track_id TEXT NOT NULL,
		file_id BLOB NOT NULL REFERENCES files(id) ON DELETE CASCADE,
		PRIMARY KEY (track_id, file_id)
	);

	-- Video hierarchy.
	CREATE TABLE IF NOT EXISTS shows (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		summary TEXT,
		imdb TEXT,
		affinity REAL NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS seasons (
		id TEXT PRIMARY KEY,
		show_id TEXT NOT NULL REFERENCES shows(id),
		number INTEGER NOT NULL DEFAULT 0,
		affinity REAL NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_seasons_show ON seasons(show_id);

	CREATE TABLE IF NOT EXISTS episodes (
		id TEXT PRIMARY KEY,
		season_id TEXT NOT NULL REFERENCES seasons(id),
		title TEXT NOT NULL,
		number INTEGER NOT NULL DEFAULT 0,
		year_id TEXT REFERENCES years(id),
		summary TEXT,
		affinity REAL NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_episodes_season ON episodes(season_id);

	CREATE TABLE IF NOT EXISTS movies (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		year_id TEXT REFERENCES years(id),
		summary TEXT,
		affinity REAL NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS show_files (
		show_id TEXT NOT NULL,
		file_id BLOB NOT NULL REFERENCES files(id) ON DELETE CASCADE,
		PRIMARY KEY (show_id, file_id)
	);

	CREATE TABLE IF NOT EXISTS episode_files (
		episode_id TEXT NOT NULL,
		file_id BLOB NOT NULL REFERENCES files(id) ON DELETE CASCADE,
		PRIMARY KEY (episode_id, file_id)
	);

	CREATE TABLE IF NOT EXISTS movie_files (
		movie_id TEXT NOT NULL,
		file_id BLOB NOT NULL REFERENCES files(id) ON DELETE CASCADE,
		PRIMARY KEY (movie_id, file_id)
	);

	CREATE TABLE IF NOT EXISTS show_actors (
		show_id TEXT NOT NULL,
		actor_id TEXT NOT NULL,
		position INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (show_id, actor_id)
	);

	CREATE TABLE IF NOT EXISTS movie_actors (
		movie_id TEXT NOT NULL,
		actor_id TEXT NOT NULL,
		position INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (movie_id, actor_id)
	);

	CREATE TABLE IF NOT EXISTS show_genres (
		show_id TEXT NOT NULL,
		genre_id TEXT NOT NULL,
		position INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (show_id, genre_id)
	);

	CREATE TABLE IF NOT EXISTS movie_genres (
		movie_id TEXT NOT NULL,
		genre_id TEXT NOT NULL,
		position INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (movie_id, genre_id)
	);

	-- Subtitles and their fine-grained search units.
	CREATE TABLE IF NOT EXISTS subtitles (
		id TEXT PRIMARY KEY,
		file_id BLOB NOT NULL UNIQUE REFERENCES files(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS cues (
		subtitle_id TEXT NOT NULL REFERENCES subtitles(id) ON DELETE CASCADE,
		start_ms INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		lines TEXT NOT NULL,
		PRIMARY KEY (subtitle_id, start_ms)
	);

	-- Per-(entity, user) decayed scores, separate from the entity's own
	-- global affinity column.
	CREATE TABLE IF NOT EXISTS user_affinities (
		kind TEXT NOT NULL,
		entity_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		affinity REAL NOT NULL DEFAULT 0,
		PRIMARY KEY (kind, entity_id, user_id)
	);

	-- Full-text search over entity titles and cue text. Rebuilt at the end
	-- of every indexing pass.
	CREATE VIRTUAL TABLE IF NOT EXISTS search_fts USING fts5(
		kind UNINDEXED,
		entity_id UNINDEXED,
		body,
		tokenize='trigram'
	);
	`

	_, err := d.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (d *Database) Close() error {
	return d.db.Close()
}

// BeginBatch starts a writable transaction. At most one writable transaction
// is in flight at any time; the caller must finish it with EndBatch.
func (d *Database) BeginBatch() (*sql.Tx, error) {
	d.mu.Lock()
	txStart := time.Now()

	// Background context: the transaction lifetime is managed by EndBatch,
	// not a timeout.
	tx, err := d.db.BeginTx(context.Background(), nil)
	d.mu.Unlock()

	if err != nil {
		return nil, err
	}

	d.txStart = txStart
	return tx, nil
}

// EndBatch commits the transaction, or rolls it back when err is non-nil.
func (d *Database) EndBatch(tx *sql.Tx, err error) error {
	duration := time.Since(d.txStart).Seconds()

	if err != nil {
		metrics.DBTransactionDuration.WithLabelValues("rollback").Observe(duration)
		rbErr := tx.Rollback()
		if rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback also failed: %w", rbErr))
		}
		return err
	}

	metrics.DBTransactionDuration.WithLabelValues("commit").Observe(duration)
	return tx.Commit()
}

// UpdateStats updates the cached library statistics.
func (d *Database) UpdateStats(stats IndexStats) {
	d.statsMu.Lock()
	defer d.statsMu.Unlock()
	d.stats = stats
}

// GetStats returns the current library statistics.
func (d *Database) GetStats() IndexStats {
	d.statsMu.RLock()
	defer d.statsMu.RUnlock()
	return d.stats
}

// CalculateStats counts the library's entities.
func (d *Database) CalculateStats(ctx context.Context) (IndexStats, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("calculate_stats", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	stats := IndexStats{}
	counts := []struct {
		table string
		dest  *int
	}{
		{"directories", &stats.TotalDirectories},
		{"files", &stats.TotalFiles},
		{"artists", &stats.TotalArtists},
		{"albums", &stats.TotalAlbums},
		{"tracks", &stats.TotalTracks},
		{"shows", &stats.TotalShows},
		{"episodes", &stats.TotalEpisodes},
		{"movies", &stats.TotalMovies},
	}

	for _, c := range counts {
		if err = d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+c.table).Scan(c.dest); err != nil {
			return stats, err
		}
	}
	return stats, nil
}

// recordQuery records database query metrics.
func recordQuery(operation string, start time.Time, err error) {
	duration := time.Since(start).Seconds()
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.DBQueryTotal.WithLabelValues(operation, status).Inc()
	metrics.DBQueryDuration.WithLabelValues(operation).Observe(duration)
}

// UpdateDBMetrics updates database connection metrics.
func (d *Database) UpdateDBMetrics() {
	stats := d.db.Stats()
	metrics.DBConnectionsOpen.Set(float64(stats.OpenConnections))
}
