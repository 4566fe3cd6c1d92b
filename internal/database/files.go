package database

import (
	"context"
	"database/sql"
	"time"

	"media-library/internal/metrics"
)

// UpsertDirectory inserts or refreshes a directory row within a transaction.
func (d *Database) UpsertDirectory(tx *sql.Tx, dir *Directory) error {
	_, err := tx.ExecContext(context.Background(), `
		INSERT INTO directories (id, name, parent_id) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, parent_id = excluded.parent_id
	`, dir.ID, dir.Name, nullableBlob(dir.ParentID))
	return err
}

// UpsertFile inserts or refreshes a file row. index_time is deliberately left
// alone: it reflects the last probe attempt, not the last scan.
func (d *Database) UpsertFile(tx *sql.Tx, file *File) error {
	_, err := tx.ExecContext(context.Background(), `
		INSERT INTO files (id, name, parent_id, size) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			parent_id = excluded.parent_id,
			size = excluded.size
	`, file.ID, file.Name, nullableBlob(file.ParentID), file.Size)
	return err
}

// SetFileIndexed records the mtime observed when the file was probed.
func (d *Database) SetFileIndexed(tx *sql.Tx, fileID []byte, indexTime int64) error {
	_, err := tx.ExecContext(context.Background(),
		"UPDATE files SET index_time = ? WHERE id = ?", indexTime, fileID)
	return err
}

// StaleFile pairs a file row with its reconstructed relative path for
// probing.
type StaleFile struct {
	File    File
	RelPath string
}

// StaleFiles returns, inside the pass transaction, every file whose
// index_time is null or differs from the given per-file mtime check done by
// the caller. It returns all candidate rows with paths; the caller compares
// mtimes since only it can stat the filesystem.
func (d *Database) StaleFiles(tx *sql.Tx) ([]StaleFile, error) {
	dirs, err := d.directoryPaths(tx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.QueryContext(context.Background(),
		"SELECT id, name, parent_id, size, index_time FROM files")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StaleFile
	for rows.Next() {
		var f File
		var parent []byte
		var indexTime sql.NullInt64
		if err := rows.Scan(&f.ID, &f.Name, &parent, &f.Size, &indexTime); err != nil {
			return nil, err
		}
		f.ParentID = parent
		if indexTime.Valid {
			v := indexTime.Int64
			f.IndexTime = &v
		}
		out = append(out, StaleFile{File: f, RelPath: joinDirPath(dirs[string(parent)], f.Name)})
	}
	return out, rows.Err()
}

// AllDirectories returns every directory row, inside the pass transaction.
func (d *Database) AllDirectories(tx *sql.Tx) ([]Directory, error) {
	rows, err := tx.QueryContext(context.Background(),
		"SELECT id, name, parent_id FROM directories")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Directory
	for rows.Next() {
		var dir Directory
		var parent []byte
		if err := rows.Scan(&dir.ID, &dir.Name, &parent); err != nil {
			return nil, err
		}
		dir.ParentID = parent
		out = append(out, dir)
	}
	return out, rows.Err()
}

// DeleteDirectory removes a directory row; files and subdirectories beneath
// it cascade.
func (d *Database) DeleteDirectory(tx *sql.Tx, id []byte) error {
	result, err := tx.ExecContext(context.Background(),
		"DELETE FROM directories WHERE id = ?", id)
	if err == nil {
		if rows, _ := result.RowsAffected(); rows > 0 {
			metrics.DBRowsAffected.WithLabelValues("delete_directory").Observe(float64(rows))
		}
	}
	return err
}

// DeleteFile removes a file row; its facet and link rows cascade.
func (d *Database) DeleteFile(tx *sql.Tx, id []byte) error {
	result, err := tx.ExecContext(context.Background(),
		"DELETE FROM files WHERE id = ?", id)
	if err == nil {
		if rows, _ := result.RowsAffected(); rows > 0 {
			metrics.DBRowsAffected.WithLabelValues("delete_file").Observe(float64(rows))
		}
	}
	return err
}

// ClearFileFacets removes a file's facet rows, leaf links, and subtitle
// content ahead of a re-probe, so changed tags cannot leave stale graph
// links behind.
func (d *Database) ClearFileFacets(tx *sql.Tx, fileID []byte) error {
	ctx := context.Background()
	statements := []string{
		"DELETE FROM audio_files WHERE file_id = ?",
		"DELETE FROM image_files WHERE file_id = ?",
		"DELETE FROM video_files WHERE file_id = ?",
		"DELETE FROM subtitle_files WHERE file_id = ?",
		"DELETE FROM metadata_files WHERE file_id = ?",
		"DELETE FROM track_files WHERE file_id = ?",
		"DELETE FROM album_files WHERE file_id = ?",
		"DELETE FROM episode_files WHERE file_id = ?",
		"DELETE FROM show_files WHERE file_id = ?",
		"DELETE FROM movie_files WHERE file_id = ?",
		"DELETE FROM subtitles WHERE file_id = ?",
	}
	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt, fileID); err != nil {
			return err
		}
	}
	return nil
}

// InsertAudioFacet records the audio facet for a file.
func (d *Database) InsertAudioFacet(tx *sql.Tx, fileID []byte, mime string, durationMS int64) error {
	_, err := tx.ExecContext(context.Background(), `
		INSERT INTO audio_files (file_id, mime, duration_ms) VALUES (?, ?, ?)
		ON CONFLICT(file_id) DO UPDATE SET mime = excluded.mime, duration_ms = excluded.duration_ms
	`, fileID, mime, durationMS)
	return err
}

// InsertVideoFacet records the video facet for a file.
func (d *Database) InsertVideoFacet(tx *sql.Tx, fileID []byte, mime string, durationMS int64, width, height int) error {
	_, err := tx.ExecContext(context.Background(), `
		INSERT INTO video_files (file_id, mime, duration_ms, width, height) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(file_id) DO UPDATE SET mime = excluded.mime, duration_ms = excluded.duration_ms
	`, fileID, mime, durationMS, width, height)
	return err
}

// InsertImageFacet records the image facet for a file.
func (d *Database) InsertImageFacet(tx *sql.Tx, fileID []byte, mime string, width, height int) error {
	_, err := tx.ExecContext(context.Background(), `
		INSERT INTO image_files (file_id, mime, width, height) VALUES (?, ?, ?, ?)
		ON CONFLICT(file_id) DO UPDATE SET mime = excluded.mime
	`, fileID, mime, width, height)
	return err
}

// InsertSubtitleFacet records the subtitle facet for a file.
func (d *Database) InsertSubtitleFacet(tx *sql.Tx, fileID []byte, mime string, durationMS int64, language string) error {
	_, err := tx.ExecContext(context.Background(), `
		INSERT INTO subtitle_files (file_id, mime, duration_ms, language) VALUES (?, ?, ?, NULLIF(?, ''))
		ON CONFLICT(file_id) DO UPDATE SET
			mime = excluded.mime,
			duration_ms = excluded.duration_ms,
			language = COALESCE(excluded.language, subtitle_files.language)
	`, fileID, mime, durationMS, language)
	return err
}

// InsertMetadataFacet records the sidecar metadata facet for a file.
func (d *Database) InsertMetadataFacet(tx *sql.Tx, fileID []byte, mime string) error {
	_, err := tx.ExecContext(context.Background(), `
		INSERT INTO metadata_files (file_id, mime) VALUES (?, ?)
		ON CONFLICT(file_id) DO UPDATE SET mime = excluded.mime
	`, fileID, mime)
	return err
}

// directoryPaths builds the id → relative path map by walking parent links
// in memory.
func (d *Database) directoryPaths(tx *sql.Tx) (map[string]string, error) {
	dirs, err := d.AllDirectories(tx)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]Directory, len(dirs))
	for _, dir := range dirs {
		byID[string(dir.ID)] = dir
	}

	paths := make(map[string]string, len(dirs))
	var resolve func(id string) string
	resolve = func(id string) string {
		if p, ok := paths[id]; ok {
			return p
		}
		dir, ok := byID[id]
		if !ok {
			return ""
		}
		var p string
		if dir.ParentID == nil {
			p = dir.Name
		} else {
			p = joinDirPath(resolve(string(dir.ParentID)), dir.Name)
		}
		paths[id] = p
		return p
	}
	for _, dir := range dirs {
		resolve(string(dir.ID))
	}
	return paths, nil
}

// DirectoryPathsTx exposes the directory path map for the scanner's
// reconciliation walk.
func (d *Database) DirectoryPathsTx(tx *sql.Tx) (map[string]string, error) {
	return d.directoryPaths(tx)
}

// FilePathSegments reconstructs the path segments of a file, root first, by
// walking parent links. Used by consumers that need the physical location of
// source media.
func (d *Database) FilePathSegments(ctx context.Context, fileID []byte) ([]string, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("file_path", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var name string
	var parent []byte
	err = d.db.QueryRowContext(ctx,
		"SELECT name, parent_id FROM files WHERE id = ?", fileID).Scan(&name, &parent)
	if err != nil {
		return nil, err
	}

	segments := []string{name}
	for parent != nil {
		var dirName string
		var next []byte
		if err = d.db.QueryRowContext(ctx,
			"SELECT name, parent_id FROM directories WHERE id = ?", parent).Scan(&dirName, &next); err != nil {
			return nil, err
		}
		if dirName != "" {
			segments = append([]string{dirName}, segments...)
		}
		parent = next
	}
	return segments, nil
}

func joinDirPath(dir, name string) string {
	if dir == "" {
		return name
	}
	return dir + "/" + name
}

// nullableBlob maps a nil identifier to SQL NULL.
func nullableBlob(b []byte) any {
	if b == nil {
		return nil
	}
	return b
}
