package database

import (
	"context"
	"database/sql"
	"errors"
)

// ErrNoWork is returned when a carrier file does not belong to any
// work-level entity yet.
var ErrNoWork = errors.New("file is not associated with a work")

// SupportFile is a hierarchy-free file (cover art, subtitle, sidecar
// metadata) awaiting sibling resolution.
type SupportFile struct {
	File    File
	Facet   string // "image", "subtitle", or "metadata"
	RelPath string
}

// UnassociatedSupportFiles returns, inside the pass transaction, every
// image/subtitle/metadata file not yet attached to any entity.
func (d *Database) UnassociatedSupportFiles(tx *sql.Tx) ([]SupportFile, error) {
	dirs, err := d.directoryPaths(tx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.QueryContext(context.Background(), `
		SELECT f.id, f.name, f.parent_id, f.size, facets.facet FROM files f
		JOIN (
			SELECT file_id, 'image' AS facet FROM image_files
			UNION SELECT file_id, 'subtitle' FROM subtitle_files
			UNION SELECT file_id, 'metadata' FROM metadata_files
		) facets ON facets.file_id = f.id
		WHERE f.id NOT IN (
			SELECT file_id FROM album_files
			UNION SELECT file_id FROM show_files
			UNION SELECT file_id FROM movie_files
		)
		ORDER BY f.name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SupportFile
	for rows.Next() {
		var sf SupportFile
		var parent []byte
		if err := rows.Scan(&sf.File.ID, &sf.File.Name, &parent, &sf.File.Size, &sf.Facet); err != nil {
			return nil, err
		}
		sf.File.ParentID = parent
		sf.RelPath = joinDirPath(dirs[string(parent)], sf.File.Name)
		out = append(out, sf)
	}
	return out, rows.Err()
}

// CarrierFile is a sibling file whose format carries hierarchy information
// (audio or video facet).
type CarrierFile struct {
	File  File
	Facet string // "audio" or "video"
}

// CarrierSiblings returns the hierarchy-bearing files in a directory, sorted
// lexically by name.
func (d *Database) CarrierSiblings(tx *sql.Tx, parentID []byte) ([]CarrierFile, error) {
	rows, err := tx.QueryContext(context.Background(), `
		SELECT f.id, f.name, f.size, facets.facet FROM files f
		JOIN (
			SELECT file_id, 'audio' AS facet FROM audio_files
			UNION SELECT file_id, 'video' FROM video_files
		) facets ON facets.file_id = f.id
		WHERE f.parent_id IS ?
		ORDER BY f.name
	`, nullableBlob(parentID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CarrierFile
	for rows.Next() {
		var cf CarrierFile
		if err := rows.Scan(&cf.File.ID, &cf.File.Name, &cf.File.Size, &cf.Facet); err != nil {
			return nil, err
		}
		cf.File.ParentID = parentID
		out = append(out, cf)
	}
	return out, rows.Err()
}

// Work identifies the work-level entity (album, show, or movie) a carrier
// file belongs to. Art and subtitles associate at this level, never at a
// leaf track or episode.
type Work struct {
	Kind string // "album", "show", or "movie"
	ID   string
}

// WorkForFile resolves the work-level entity owning a carrier file.
func (d *Database) WorkForFile(tx *sql.Tx, fileID []byte) (Work, error) {
	ctx := context.Background()

	queries := []struct {
		kind string
		sql  string
	}{
		{"album", `SELECT ds.album_id FROM track_files tf
			JOIN tracks t ON t.id = tf.track_id
			JOIN discs ds ON ds.id = t.disc_id
			WHERE tf.file_id = ?`},
		{"show", `SELECT se.show_id FROM episode_files ef
			JOIN episodes e ON e.id = ef.episode_id
			JOIN seasons se ON se.id = e.season_id
			WHERE ef.file_id = ?`},
		{"movie", "SELECT movie_id FROM movie_files WHERE file_id = ?"},
	}

	for _, q := range queries {
		var id string
		err := tx.QueryRowContext(ctx, q.sql, fileID).Scan(&id)
		if err == nil {
			return Work{Kind: q.kind, ID: id}, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return Work{}, err
		}
	}
	return Work{}, ErrNoWork
}
