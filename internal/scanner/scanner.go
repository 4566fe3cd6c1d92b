// Package scanner walks the media root and mirrors it into Directory/File
// rows, and reconciles the stored tree against the live filesystem. The two
// walks together (downward creation, upward verification) converge the stored
// tree to the filesystem in a single pass even under concurrent renames
// between runs.
package scanner

import (
	"database/sql"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"media-library/internal/database"
	"media-library/internal/filesystem"
	"media-library/internal/identity"
	"media-library/internal/logging"
)

// Scanner mirrors a media root directory into the store.
type Scanner struct {
	db    *database.Database
	root  string
	retry filesystem.RetryConfig
}

// Stats counts the rows touched by a forward walk.
type Stats struct {
	Directories int
	Files       int
}

// New creates a Scanner for the given media root.
func New(db *database.Database, root string) *Scanner {
	return &Scanner{
		db:    db,
		root:  root,
		retry: filesystem.DefaultRetryConfig(),
	}
}

// RootID returns the deterministic identifier of the root directory row.
func RootID() []byte {
	return identity.Binary("")
}

// childID derives a directory or file identifier from its parent id and
// normalized name. Filesystem mirror identifiers are the one place ids are
// seeded from names rather than tags; domain entity ids never are.
func childID(parentID []byte, name string) []byte {
	return identity.Binary(hex.EncodeToString(parentID), name)
}

// Scan performs the forward walk: every directory entry not yet known is
// inserted, recursing into subdirectories. Runs inside the pass transaction.
func (s *Scanner) Scan(tx *sql.Tx) (Stats, error) {
	var stats Stats

	root := &database.Directory{ID: RootID(), Name: ""}
	if err := s.db.UpsertDirectory(tx, root); err != nil {
		return stats, fmt.Errorf("failed to upsert root directory: %w", err)
	}
	stats.Directories++

	if err := s.walk(tx, s.root, root.ID, &stats); err != nil {
		return stats, err
	}
	return stats, nil
}

func (s *Scanner) walk(tx *sql.Tx, dirPath string, dirID []byte, stats *Stats) error {
	entries, err := filesystem.ReadDirWithRetry(dirPath, s.retry)
	if err != nil {
		// A directory vanishing mid-walk is expected drift, not an error.
		logging.Warn("Error reading directory %s: %v", dirPath, err)
		return nil
	}

	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		id := childID(dirID, name)
		path := filepath.Join(dirPath, name)

		if entry.IsDir() {
			dir := &database.Directory{ID: id, Name: name, ParentID: dirID}
			if err := s.db.UpsertDirectory(tx, dir); err != nil {
				return fmt.Errorf("failed to upsert directory %s: %w", path, err)
			}
			stats.Directories++
			if err := s.walk(tx, path, id, stats); err != nil {
				return err
			}
			continue
		}

		info, err := entry.Info()
		if err != nil {
			logging.Warn("Error accessing %s: %v", path, err)
			continue
		}
		if !info.Mode().IsRegular() {
			continue
		}

		file := &database.File{ID: id, Name: name, ParentID: dirID, Size: info.Size()}
		if err := s.db.UpsertFile(tx, file); err != nil {
			return fmt.Errorf("failed to upsert file %s: %w", path, err)
		}
		stats.Files++
	}
	return nil
}

// Reconcile performs the verification walk: every stored row must still
// exist on disk with the expected type. Rows that fail verification are
// removed; directories are checked deepest-first so children are verified
// before their parent. A path changing type (file to directory or back) is
// treated as removal; the next forward walk recreates it fresh.
func (s *Scanner) Reconcile(tx *sql.Tx) (removed int, err error) {
	dirs, err := s.db.AllDirectories(tx)
	if err != nil {
		return 0, err
	}
	paths, err := s.db.DirectoryPathsTx(tx)
	if err != nil {
		return 0, err
	}

	type dirCheck struct {
		dir  database.Directory
		path string
	}
	checks := make([]dirCheck, 0, len(dirs))
	for _, dir := range dirs {
		if dir.ParentID == nil {
			continue // the root row is never removed
		}
		checks = append(checks, dirCheck{dir: dir, path: paths[string(dir.ID)]})
	}
	sort.Slice(checks, func(i, j int) bool {
		return strings.Count(checks[i].path, "/") > strings.Count(checks[j].path, "/")
	})

	for _, c := range checks {
		info, statErr := filesystem.StatWithRetry(filepath.Join(s.root, c.path), s.retry)
		if statErr == nil && info.IsDir() {
			continue
		}
		logging.Debug("Removing stale directory row: %s", c.path)
		if err := s.db.DeleteDirectory(tx, c.dir.ID); err != nil {
			return removed, err
		}
		removed++
	}

	files, err := s.db.StaleFiles(tx)
	if err != nil {
		return removed, err
	}
	for _, f := range files {
		info, statErr := filesystem.StatWithRetry(filepath.Join(s.root, f.RelPath), s.retry)
		if statErr == nil && info.Mode().IsRegular() {
			continue
		}
		logging.Debug("Removing stale file row: %s", f.RelPath)
		if err := s.db.DeleteFile(tx, f.File.ID); err != nil {
			return removed, err
		}
		removed++
	}

	return removed, nil
}

// Root returns the configured media root path.
func (s *Scanner) Root() string {
	return s.root
}
