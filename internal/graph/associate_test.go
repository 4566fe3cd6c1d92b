package graph

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"media-library/internal/database"
	"media-library/internal/identity"
	"media-library/internal/probe"
)

// seedMovieFile inserts a video file row with its facet and movie entity.
func seedMovieFile(t *testing.T, db *database.Database, b *Builder, tx *sql.Tx, id []byte, name, title string, year int) {
	t.Helper()

	if err := db.UpsertFile(tx, &database.File{ID: id, Name: name, ParentID: []byte("root0000"), Size: 1}); err != nil {
		t.Fatalf("UpsertFile: %v", err)
	}
	res := &probe.Result{
		Facet: probe.FacetVideo, MIME: "video/mp4",
		Movie: &probe.MovieMeta{Title: title, Year: year},
	}
	if err := b.AddFile(tx, id, name, res); err != nil {
		t.Fatalf("AddFile: %v", err)
	}
}

// seedSupportFile inserts a file row plus a bare facet of the given kind.
func seedSupportFile(t *testing.T, db *database.Database, tx *sql.Tx, id []byte, name, facet string) {
	t.Helper()

	if err := db.UpsertFile(tx, &database.File{ID: id, Name: name, ParentID: []byte("root0000"), Size: 1}); err != nil {
		t.Fatalf("UpsertFile: %v", err)
	}
	var err error
	switch facet {
	case "image":
		err = db.InsertImageFacet(tx, id, "image/jpeg", 0, 0)
	case "subtitle":
		err = db.InsertSubtitleFacet(tx, id, "text/vtt", 0, SubtitleLanguage(name))
	case "metadata":
		err = db.InsertMetadataFacet(tx, id, "application/json")
	default:
		t.Fatalf("unknown facet %q", facet)
	}
	if err != nil {
		t.Fatalf("insert %s facet: %v", facet, err)
	}
}

func TestResolveSubtitleStemMatch(t *testing.T) {
	db := setupGraphDB(t)
	b := NewBuilder(db)
	r := NewResolver(db, t.TempDir())
	ctx := context.Background()

	// Two movies side by side; the subtitle's stem picks out one of them.
	inBatch(t, db, func(tx *sql.Tx) error {
		seedFile(t, db, tx, []byte("file0001"), "heat.mp4")
		seedMovieFile(t, db, b, tx, []byte("file0001"), "heat.mp4", "Heat", 1995)
		seedMovieFile(t, db, b, tx, []byte("file0002"), "ronin.mp4", "Ronin", 1998)
		seedSupportFile(t, db, tx, []byte("file0003"), "heat.en.vtt", "subtitle")

		made, err := r.Resolve(tx)
		if err != nil {
			return err
		}
		if made != 1 {
			t.Errorf("made = %d associations, want 1", made)
		}

		// The subtitle landed on Heat, not Ronin.
		work, err := db.WorkForFile(tx, []byte("file0003"))
		if err != nil {
			return err
		}
		if work.Kind != "movie" || work.ID != identity.Hex("Heat", "1995") {
			t.Errorf("subtitle attached to %+v, want the Heat movie", work)
		}
		return nil
	})

	if _, err := db.GetMovie(ctx, identity.Hex("Ronin", "1998")); err != nil {
		t.Fatalf("GetMovie: %v", err)
	}
}

func TestResolveArtFallsBackToAllSiblings(t *testing.T) {
	db := setupGraphDB(t)
	b := NewBuilder(db)
	r := NewResolver(db, t.TempDir())

	// No sibling shares the stem "Cover", so the art attaches to every
	// distinct work in the directory.
	inBatch(t, db, func(tx *sql.Tx) error {
		seedFile(t, db, tx, []byte("file0001"), "heat.mp4")
		seedMovieFile(t, db, b, tx, []byte("file0001"), "heat.mp4", "Heat", 1995)
		seedMovieFile(t, db, b, tx, []byte("file0002"), "heat-pt2.mp4", "Heat", 1995)
		seedSupportFile(t, db, tx, []byte("file0003"), "Cover.jpg", "image")

		made, err := r.Resolve(tx)
		if err != nil {
			return err
		}
		// Both carriers belong to the same movie: one link, not two.
		if made != 1 {
			t.Errorf("made = %d associations, want 1", made)
		}
		return nil
	})
}

func TestResolveLeavesOrphansPending(t *testing.T) {
	db := setupGraphDB(t)
	r := NewResolver(db, t.TempDir())

	// A subtitle with no carrier siblings stays unassociated for a later
	// pass rather than failing.
	inBatch(t, db, func(tx *sql.Tx) error {
		seedFile(t, db, tx, []byte("file0001"), "heat.en.vtt")
		if err := db.InsertSubtitleFacet(tx, []byte("file0001"), "text/vtt", 0, "en"); err != nil {
			return err
		}

		made, err := r.Resolve(tx)
		if err != nil {
			return err
		}
		if made != 0 {
			t.Errorf("made = %d associations, want 0", made)
		}

		pending, err := db.UnassociatedSupportFiles(tx)
		if err != nil {
			return err
		}
		if len(pending) != 1 {
			t.Errorf("got %d pending support files, want 1", len(pending))
		}
		return nil
	})
}

func TestResolveMovieSidecar(t *testing.T) {
	db := setupGraphDB(t)
	mediaDir := t.TempDir()
	r := NewResolver(db, mediaDir)
	ctx := context.Background()

	sidecar := `{
		"title": "Heat",
		"year": 1995,
		"summary": "A heist crew and the detective chasing them.",
		"actors": ["Al Pacino", "Robert De Niro"],
		"genres": ["Crime"]
	}`
	if err := os.WriteFile(filepath.Join(mediaDir, "heat.json"), []byte(sidecar), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	inBatch(t, db, func(tx *sql.Tx) error {
		seedFile(t, db, tx, []byte("file0001"), "heat.mp4")
		// The video itself is untagged: facet only, no movie entity yet.
		if err := db.InsertVideoFacet(tx, []byte("file0001"), "video/mp4", 0, 0, 0); err != nil {
			return err
		}
		seedSupportFile(t, db, tx, []byte("file0002"), "heat.json", "metadata")

		made, err := r.Resolve(tx)
		if err != nil {
			return err
		}
		// The video and the sidecar itself both attach to the movie.
		if made != 2 {
			t.Errorf("made = %d associations, want 2", made)
		}
		return nil
	})

	movie, err := db.GetMovie(ctx, identity.Hex("Heat", "1995"))
	if err != nil {
		t.Fatalf("sidecar did not seed the movie: %v", err)
	}
	if movie.Summary == "" {
		t.Error("movie summary not carried from sidecar")
	}

	// Once resolved, nothing is pending: the sidecar does not resolve again.
	inBatch(t, db, func(tx *sql.Tx) error {
		pending, err := db.UnassociatedSupportFiles(tx)
		if err != nil {
			return err
		}
		if len(pending) != 0 {
			t.Errorf("got %d pending support files after resolution, want 0", len(pending))
		}

		// The actor and genre dimensions are referenced, so a prune keeps
		// them.
		pruned, err := db.PruneOrphans(tx)
		if err != nil {
			return err
		}
		if pruned["actors"] != 0 || pruned["genres"] != 0 {
			t.Errorf("pruned %v, want actors and genres retained", pruned)
		}
		return nil
	})
}

func TestResolveEpisodeSidecar(t *testing.T) {
	db := setupGraphDB(t)
	mediaDir := t.TempDir()
	r := NewResolver(db, mediaDir)
	ctx := context.Background()

	sidecar := `{
		"show": {"title": "Deadwood", "actors": ["Ian McShane"], "genres": ["Western"]},
		"season": 1,
		"episode": 4,
		"title": "Here Was a Man",
		"year": 2004
	}`
	if err := os.WriteFile(filepath.Join(mediaDir, "s01e04.json"), []byte(sidecar), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	inBatch(t, db, func(tx *sql.Tx) error {
		seedFile(t, db, tx, []byte("file0001"), "s01e04.mp4")
		if err := db.InsertVideoFacet(tx, []byte("file0001"), "video/mp4", 0, 0, 0); err != nil {
			return err
		}
		seedSupportFile(t, db, tx, []byte("file0002"), "s01e04.json", "metadata")

		made, err := r.Resolve(tx)
		if err != nil {
			return err
		}
		if made != 2 {
			t.Errorf("made = %d associations, want 2", made)
		}
		return nil
	})

	show, err := db.GetShow(ctx, identity.Hex("Deadwood"))
	if err != nil {
		t.Fatalf("sidecar did not seed the show: %v", err)
	}
	seasons, err := db.ShowSeasons(ctx, show.ID)
	if err != nil {
		t.Fatalf("ShowSeasons: %v", err)
	}
	if len(seasons) != 1 {
		t.Fatalf("seasons = %+v", seasons)
	}
	episodes, err := db.SeasonEpisodes(ctx, seasons[0].ID)
	if err != nil {
		t.Fatalf("SeasonEpisodes: %v", err)
	}
	if len(episodes) != 1 || episodes[0].Title != "Here Was a Man" {
		t.Fatalf("episodes = %+v", episodes)
	}
}

func TestResolveBadSidecarAbsorbed(t *testing.T) {
	db := setupGraphDB(t)
	mediaDir := t.TempDir()
	r := NewResolver(db, mediaDir)

	// The file validated as a sidecar at probe time but has since been
	// overwritten with junk; the pass carries on.
	if err := os.WriteFile(filepath.Join(mediaDir, "heat.json"), []byte("not json"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	inBatch(t, db, func(tx *sql.Tx) error {
		seedFile(t, db, tx, []byte("file0001"), "heat.mp4")
		if err := db.InsertVideoFacet(tx, []byte("file0001"), "video/mp4", 0, 0, 0); err != nil {
			return err
		}
		seedSupportFile(t, db, tx, []byte("file0002"), "heat.json", "metadata")

		made, err := r.Resolve(tx)
		if err != nil {
			return err
		}
		if made != 0 {
			t.Errorf("made = %d associations from a junk sidecar, want 0", made)
		}
		return nil
	})
}
