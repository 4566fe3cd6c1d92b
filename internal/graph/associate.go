package graph

import (
	"database/sql"
	"errors"
	"path/filepath"
	"strconv"
	"strings"

	"media-library/internal/database"
	"media-library/internal/filesystem"
	"media-library/internal/identity"
	"media-library/internal/logging"
	"media-library/internal/probe"
)

// Resolver attaches hierarchy-free support files (cover art, subtitles, JSON
// sidecars) to the work-level entities their sibling carrier files belong
// to. Resolution is driven from the store, not an in-memory queue: a support
// file indexed before its carriers simply stays unassociated until a later
// pass finds siblings to bind it to.
type Resolver struct {
	db    *database.Database
	root  string
	retry filesystem.RetryConfig
}

// NewResolver creates a Resolver over the given store and media root.
func NewResolver(db *database.Database, root string) *Resolver {
	return &Resolver{
		db:    db,
		root:  root,
		retry: filesystem.DefaultRetryConfig(),
	}
}

// Resolve runs one association pass inside the pass transaction and returns
// the number of associations made. Per-file failures are absorbed: a bad
// sidecar never aborts the pass.
func (r *Resolver) Resolve(tx *sql.Tx) (int, error) {
	pending, err := r.db.UnassociatedSupportFiles(tx)
	if err != nil {
		return 0, err
	}

	made := 0
	for _, sf := range pending {
		n, err := r.resolveOne(tx, sf)
		if err != nil {
			logging.Warn("Error resolving support file %s: %v", sf.RelPath, err)
			continue
		}
		made += n
	}
	return made, nil
}

// resolveOne matches one support file against the carrier siblings in its
// directory: siblings sharing the stem (the name up to the first dot) when
// any exist, the full sibling set otherwise.
func (r *Resolver) resolveOne(tx *sql.Tx, sf database.SupportFile) (int, error) {
	siblings, err := r.db.CarrierSiblings(tx, sf.File.ParentID)
	if err != nil {
		return 0, err
	}
	if len(siblings) == 0 {
		return 0, nil
	}

	stem := Stem(sf.File.Name)
	matched := make([]database.CarrierFile, 0, len(siblings))
	for _, sib := range siblings {
		if Stem(sib.File.Name) == stem {
			matched = append(matched, sib)
		}
	}
	if len(matched) == 0 {
		matched = siblings
	}

	if sf.Facet == "metadata" {
		return r.applySidecar(tx, sf, matched)
	}

	// Art and subtitles attach to the works the matched carriers belong to,
	// one link per distinct work.
	made := 0
	seen := make(map[database.Work]bool)
	for _, sib := range matched {
		work, err := r.db.WorkForFile(tx, sib.File.ID)
		if errors.Is(err, database.ErrNoWork) {
			continue
		}
		if err != nil {
			return made, err
		}
		if seen[work] {
			continue
		}
		seen[work] = true
		if err := r.db.LinkFile(tx, work.Kind+"_files", work.ID, sf.File.ID); err != nil {
			return made, err
		}
		made++
	}
	return made, nil
}

// applySidecar re-reads a JSON sidecar and seeds or enriches the entities it
// describes, linking the matched sibling video files to them. This is how an
// untagged video file gains a place in the hierarchy.
func (r *Resolver) applySidecar(tx *sql.Tx, sf database.SupportFile, matched []database.CarrierFile) (int, error) {
	videos := make([]database.CarrierFile, 0, len(matched))
	for _, sib := range matched {
		if sib.Facet == "video" {
			videos = append(videos, sib)
		}
	}
	if len(videos) == 0 {
		return 0, nil
	}

	f, err := filesystem.OpenWithRetry(filepath.Join(r.root, sf.RelPath), r.retry)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	res, err := probe.File(f, strings.ToLower(filepath.Ext(sf.RelPath)))
	if err != nil || res.Sidecar == nil {
		// The facet row said metadata but the content no longer validates;
		// leave it for the next indexing pass to re-probe.
		return 0, nil
	}

	if res.Sidecar.Movie != nil {
		return r.applyMovieSidecar(tx, sf, res.Sidecar.Movie, videos)
	}
	return r.applyEpisodeSidecar(tx, sf, res.Sidecar.Episode, videos)
}

func (r *Resolver) applyMovieSidecar(tx *sql.Tx, sf database.SupportFile, m *probe.MovieSidecar, videos []database.CarrierFile) (int, error) {
	year := strconv.Itoa(m.Year)
	yearID := identity.Hex(year)
	if err := r.db.UpsertYear(tx, yearID, m.Year); err != nil {
		return 0, err
	}

	movieID := identity.Hex(m.Title, year)
	if err := r.db.UpsertMovie(tx, movieID, m.Title, yearID, m.Summary); err != nil {
		return 0, err
	}

	if err := r.linkPeople(tx, "movie_actors", "movie_genres", movieID, m.Actors, m.Genres); err != nil {
		return 0, err
	}

	made := 0
	for _, v := range videos {
		if err := r.db.LinkFile(tx, "movie_files", movieID, v.File.ID); err != nil {
			return made, err
		}
		made++
	}
	// The sidecar itself attaches to the movie so it is not re-resolved.
	if err := r.db.LinkFile(tx, "movie_files", movieID, sf.File.ID); err != nil {
		return made, err
	}
	return made + 1, nil
}

func (r *Resolver) applyEpisodeSidecar(tx *sql.Tx, sf database.SupportFile, e *probe.EpisodeSidecar, videos []database.CarrierFile) (int, error) {
	showID := identity.Hex(e.Show.Title)
	if err := r.db.UpsertShow(tx, showID, e.Show.Title, e.Show.Summary, ""); err != nil {
		return 0, err
	}
	if err := r.linkPeople(tx, "show_actors", "show_genres", showID, e.Show.Actors, e.Show.Genres); err != nil {
		return 0, err
	}

	seasonID := identity.Hex(showID, strconv.Itoa(e.Season))
	if err := r.db.UpsertSeason(tx, seasonID, showID, e.Season); err != nil {
		return 0, err
	}

	yearID := ""
	if e.Year != 0 {
		yearID = identity.Hex(strconv.Itoa(e.Year))
		if err := r.db.UpsertYear(tx, yearID, e.Year); err != nil {
			return 0, err
		}
	}

	episodeID := identity.Hex(seasonID, e.Title, strconv.Itoa(e.Episode))
	if err := r.db.UpsertEpisode(tx, episodeID, seasonID, e.Title, e.Episode, yearID, e.Summary); err != nil {
		return 0, err
	}

	made := 0
	for _, v := range videos {
		if err := r.db.LinkFile(tx, "episode_files", episodeID, v.File.ID); err != nil {
			return made, err
		}
		made++
	}
	if err := r.db.LinkFile(tx, "show_files", showID, sf.File.ID); err != nil {
		return made, err
	}
	return made + 1, nil
}

// linkPeople upserts the actor and genre dimensions named by a sidecar and
// links them to the owning entity in sidecar order.
func (r *Resolver) linkPeople(tx *sql.Tx, actorTable, genreTable, ownerID string, actors, genres []string) error {
	for i, name := range actors {
		id := identity.Hex(name)
		if err := r.db.UpsertActor(tx, id, name); err != nil {
			return err
		}
		if err := r.db.LinkOrdered(tx, actorTable, ownerID, id, i); err != nil {
			return err
		}
	}
	for i, name := range genres {
		id := identity.Hex(name)
		if err := r.db.UpsertGenre(tx, id, name); err != nil {
			return err
		}
		if err := r.db.LinkOrdered(tx, genreTable, ownerID, id, i); err != nil {
			return err
		}
	}
	return nil
}

// Stem returns the filename up to the first dot: "Cover.jpg" and
// "Cover.front.jpg" share the stem "Cover".
func Stem(name string) string {
	if i := strings.IndexByte(name, '.'); i >= 0 {
		return name[:i]
	}
	return name
}
