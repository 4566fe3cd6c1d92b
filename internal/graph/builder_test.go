package graph

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"media-library/internal/database"
	"media-library/internal/identity"
	"media-library/internal/probe"
)

func setupGraphDB(t *testing.T) *database.Database {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := database.New(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func inBatch(t *testing.T, db *database.Database, fn func(tx *sql.Tx) error) {
	t.Helper()

	tx, err := db.BeginBatch()
	if err != nil {
		t.Fatalf("BeginBatch: %v", err)
	}
	if err := db.EndBatch(tx, fn(tx)); err != nil {
		t.Fatalf("batch failed: %v", err)
	}
}

// seedFile inserts the root directory and one file row under it.
func seedFile(t *testing.T, db *database.Database, tx *sql.Tx, id []byte, name string) {
	t.Helper()

	root := []byte("root0000")
	if err := db.UpsertDirectory(tx, &database.Directory{ID: root, Name: ""}); err != nil {
		t.Fatalf("UpsertDirectory: %v", err)
	}
	if err := db.UpsertFile(tx, &database.File{ID: id, Name: name, ParentID: root, Size: 1}); err != nil {
		t.Fatalf("UpsertFile: %v", err)
	}
}

func TestAddFileTrackChain(t *testing.T) {
	db := setupGraphDB(t)
	b := NewBuilder(db)
	ctx := context.Background()

	fileID := []byte("file0001")
	res := &probe.Result{
		Facet:      probe.FacetAudio,
		MIME:       "audio/mpeg",
		DurationMS: 170000,
		Track: &probe.TrackMeta{
			Title:       "Paranoid",
			Album:       "Paranoid",
			Year:        1970,
			TrackNumber: 2,
			Artists:     []string{"Black Sabbath"},
		},
	}

	inBatch(t, db, func(tx *sql.Tx) error {
		seedFile(t, db, tx, fileID, "paranoid.mp3")
		return b.AddFile(tx, fileID, "paranoid.mp3", res)
	})

	artistID := identity.Hex("Black Sabbath")
	artist, err := db.GetArtist(ctx, artistID)
	if err != nil {
		t.Fatalf("GetArtist: %v", err)
	}
	if artist.Name != "Black Sabbath" {
		t.Errorf("artist name = %q", artist.Name)
	}

	albums, err := db.ArtistAlbums(ctx, artistID)
	if err != nil {
		t.Fatalf("ArtistAlbums: %v", err)
	}
	if len(albums) != 1 || albums[0].Title != "Paranoid" {
		t.Fatalf("albums = %+v, want one album Paranoid", albums)
	}

	tracks, err := db.AlbumTracks(ctx, albums[0].ID)
	if err != nil {
		t.Fatalf("AlbumTracks: %v", err)
	}
	if len(tracks) != 1 || tracks[0].Title != "Paranoid" || tracks[0].Number != 2 {
		t.Fatalf("tracks = %+v", tracks)
	}
}

func TestAddFileTracksConvergeAcrossFiles(t *testing.T) {
	db := setupGraphDB(t)
	b := NewBuilder(db)
	ctx := context.Background()

	// The same track ripped twice, with cosmetically different tag casing,
	// lands on one entity chain.
	meta := func(title string) *probe.TrackMeta {
		return &probe.TrackMeta{
			Title: title, Album: "Paranoid", Year: 1970, TrackNumber: 2,
			Artists: []string{"Black Sabbath"},
		}
	}

	inBatch(t, db, func(tx *sql.Tx) error {
		seedFile(t, db, tx, []byte("file0001"), "paranoid.mp3")
		if err := db.UpsertFile(tx, &database.File{ID: []byte("file0002"), Name: "paranoid (flac).mp3", ParentID: []byte("root0000"), Size: 1}); err != nil {
			return err
		}
		if err := b.AddFile(tx, []byte("file0001"), "paranoid.mp3", &probe.Result{
			Facet: probe.FacetAudio, MIME: "audio/mpeg", Track: meta("PARANOID"),
		}); err != nil {
			return err
		}
		return b.AddFile(tx, []byte("file0002"), "paranoid (flac).mp3", &probe.Result{
			Facet: probe.FacetAudio, MIME: "audio/mpeg", Track: meta("Paranoid"),
		})
	})

	artists, err := db.ListArtists(ctx)
	if err != nil {
		t.Fatalf("ListArtists: %v", err)
	}
	if len(artists) != 1 {
		t.Fatalf("got %d artists, want 1", len(artists))
	}
	albums, err := db.ArtistAlbums(ctx, artists[0].ID)
	if err != nil {
		t.Fatalf("ArtistAlbums: %v", err)
	}
	if len(albums) != 1 {
		t.Fatalf("got %d albums, want 1", len(albums))
	}
	tracks, err := db.AlbumTracks(ctx, albums[0].ID)
	if err != nil {
		t.Fatalf("AlbumTracks: %v", err)
	}
	if len(tracks) != 1 {
		t.Errorf("got %d tracks, want 1 shared entity", len(tracks))
	}
}

func TestAddFileSparseTagsKeepFacetOnly(t *testing.T) {
	db := setupGraphDB(t)
	b := NewBuilder(db)
	ctx := context.Background()

	fileID := []byte("file0001")
	res := &probe.Result{
		Facet: probe.FacetAudio,
		MIME:  "audio/mpeg",
		// No album, no year: below the promotion minimum.
		Track: &probe.TrackMeta{Title: "Voice memo", Artists: []string{"me"}},
	}

	inBatch(t, db, func(tx *sql.Tx) error {
		seedFile(t, db, tx, fileID, "memo.mp3")
		return b.AddFile(tx, fileID, "memo.mp3", res)
	})

	artists, err := db.ListArtists(ctx)
	if err != nil {
		t.Fatalf("ListArtists: %v", err)
	}
	if len(artists) != 0 {
		t.Errorf("sparse tags created %d artists, want 0", len(artists))
	}

	stats, err := db.CalculateStats(ctx)
	if err != nil {
		t.Fatalf("CalculateStats: %v", err)
	}
	if stats.TotalTracks != 0 {
		t.Errorf("TotalTracks = %d, want 0", stats.TotalTracks)
	}
	if stats.TotalFiles != 1 {
		t.Errorf("TotalFiles = %d, want the facet-only file", stats.TotalFiles)
	}
}

func TestAddFileEpisode(t *testing.T) {
	db := setupGraphDB(t)
	b := NewBuilder(db)
	ctx := context.Background()

	fileID := []byte("file0001")
	res := &probe.Result{
		Facet: probe.FacetVideo,
		MIME:  "video/mp4",
		Episode: &probe.EpisodeMeta{
			Show: "The Wire", Season: 2, Episode: 5, Title: "Undertow", Year: 2003,
		},
	}

	inBatch(t, db, func(tx *sql.Tx) error {
		seedFile(t, db, tx, fileID, "undertow.mp4")
		return b.AddFile(tx, fileID, "undertow.mp4", res)
	})

	show, err := db.GetShow(ctx, identity.Hex("The Wire"))
	if err != nil {
		t.Fatalf("GetShow: %v", err)
	}
	seasons, err := db.ShowSeasons(ctx, show.ID)
	if err != nil {
		t.Fatalf("ShowSeasons: %v", err)
	}
	if len(seasons) != 1 || seasons[0].Number != 2 {
		t.Fatalf("seasons = %+v", seasons)
	}
	episodes, err := db.SeasonEpisodes(ctx, seasons[0].ID)
	if err != nil {
		t.Fatalf("SeasonEpisodes: %v", err)
	}
	if len(episodes) != 1 || episodes[0].Title != "Undertow" || episodes[0].Number != 5 {
		t.Fatalf("episodes = %+v", episodes)
	}
}

func TestAddFileMultiPartMovieConverges(t *testing.T) {
	db := setupGraphDB(t)
	b := NewBuilder(db)
	ctx := context.Background()

	inBatch(t, db, func(tx *sql.Tx) error {
		seedFile(t, db, tx, []byte("file0001"), "heat-pt1.mp4")
		if err := db.UpsertFile(tx, &database.File{ID: []byte("file0002"), Name: "heat-pt2.mp4", ParentID: []byte("root0000"), Size: 1}); err != nil {
			return err
		}
		for i, id := range [][]byte{[]byte("file0001"), []byte("file0002")} {
			res := &probe.Result{
				Facet: probe.FacetVideo, MIME: "video/mp4",
				Movie: &probe.MovieMeta{Title: "Heat", Year: 1995, Part: i + 1},
			}
			if err := b.AddFile(tx, id, "", res); err != nil {
				return err
			}
		}
		return nil
	})

	movies, err := db.ListMovies(ctx)
	if err != nil {
		t.Fatalf("ListMovies: %v", err)
	}
	if len(movies) != 1 {
		t.Fatalf("got %d movies, want the parts merged into 1", len(movies))
	}
	if movies[0].Title != "Heat" {
		t.Errorf("title = %q", movies[0].Title)
	}
}

func TestAddFileSubtitleCues(t *testing.T) {
	db := setupGraphDB(t)
	b := NewBuilder(db)

	fileID := []byte("file0001")
	res := &probe.Result{
		Facet:      probe.FacetSubtitle,
		MIME:       "text/vtt",
		DurationMS: 4000,
		Subtitle: &probe.SubtitleMeta{
			DurationMS: 4000,
			Cues: []probe.Cue{
				{StartMS: 1000, DurationMS: 3000, Lines: []string{"line one", "line two"}},
			},
		},
	}

	inBatch(t, db, func(tx *sql.Tx) error {
		seedFile(t, db, tx, fileID, "heat.en.vtt")
		if err := b.AddFile(tx, fileID, "heat.en.vtt", res); err != nil {
			return err
		}
		// Cue text is searchable after an index refresh.
		return db.RefreshSearchIndex(tx)
	})

	hits, err := db.Search(context.Background(), "\"line two\"", 10, 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].Kind != "cue" {
		t.Fatalf("hits = %+v, want one cue hit", hits)
	}
}

func TestStem(t *testing.T) {
	cases := map[string]string{
		"Cover.jpg":       "Cover",
		"Cover.front.jpg": "Cover",
		"Heat.en.vtt":     "Heat",
		"noext":           "noext",
	}
	for in, want := range cases {
		if got := Stem(in); got != want {
			t.Errorf("Stem(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSubtitleLanguage(t *testing.T) {
	cases := map[string]string{
		"Heat.en.vtt":      "en",
		"Heat.EN.vtt":      "en",
		"Heat.eng.vtt":     "eng",
		"Heat.vtt":         "",
		"Heat.1995.vtt":    "",
		"Heat.fr-CA.vtt":   "",
		"Heat.x.vtt":       "",
		"Heat.subs.en.vtt": "en",
	}
	for in, want := range cases {
		if got := SubtitleLanguage(in); got != want {
			t.Errorf("SubtitleLanguage(%q) = %q, want %q", in, got, want)
		}
	}
}
