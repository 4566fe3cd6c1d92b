// Package graph turns probe results into the entity hierarchy: artists,
// albums, discs and tracks on the audio side, shows, seasons, episodes and
// movies on the video side, plus the shared year, actor and genre dimensions.
// Entity identifiers are derived from normalized descriptive fields, so the
// same logical entity named from different files converges on one row.
package graph

import (
	"database/sql"
	"encoding/hex"
	"strconv"
	"strings"

	"media-library/internal/database"
	"media-library/internal/identity"
	"media-library/internal/probe"
)

// Builder writes the entity rows implied by one probed file.
type Builder struct {
	db *database.Database
}

// NewBuilder creates a Builder over the given store.
func NewBuilder(db *database.Database) *Builder {
	return &Builder{db: db}
}

// AddFile records the facet for a probed file and, when the probe recovered
// enough hierarchy information, upserts the entity chain and links the file
// to its leaf entity. Files whose tags are too sparse to place in the
// hierarchy keep their facet row only.
func (b *Builder) AddFile(tx *sql.Tx, fileID []byte, name string, res *probe.Result) error {
	switch res.Facet {
	case probe.FacetAudio:
		if err := b.db.InsertAudioFacet(tx, fileID, res.MIME, res.DurationMS); err != nil {
			return err
		}
		if res.Track != nil {
			return b.addTrack(tx, fileID, res.Track)
		}
		if res.Episode != nil {
			return b.addEpisode(tx, fileID, res.Episode)
		}
	case probe.FacetVideo:
		if err := b.db.InsertVideoFacet(tx, fileID, res.MIME, res.DurationMS, 0, 0); err != nil {
			return err
		}
		if res.Episode != nil {
			return b.addEpisode(tx, fileID, res.Episode)
		}
		if res.Movie != nil {
			return b.addMovie(tx, fileID, res.Movie)
		}
	case probe.FacetImage:
		return b.db.InsertImageFacet(tx, fileID, res.MIME, 0, 0)
	case probe.FacetSubtitle:
		lang := SubtitleLanguage(name)
		if err := b.db.InsertSubtitleFacet(tx, fileID, res.MIME, res.DurationMS, lang); err != nil {
			return err
		}
		if res.Subtitle != nil {
			return b.addSubtitle(tx, fileID, res.Subtitle)
		}
	case probe.FacetMetadata:
		// Sidecar content is consumed during sibling resolution, once the
		// carrier files it describes are known. Only the facet is recorded
		// here.
		return b.db.InsertMetadataFacet(tx, fileID, res.MIME)
	}
	return nil
}

// addTrack promotes a tagged audio file into the artist/album/disc/track
// chain. Title, album, year, track number and at least one artist are
// required; a missing disc number defaults to disc 1, and album artists fall
// back to the track artists.
func (b *Builder) addTrack(tx *sql.Tx, fileID []byte, t *probe.TrackMeta) error {
	if t.Title == "" || t.Album == "" || t.Year == 0 || t.TrackNumber == 0 || len(t.Artists) == 0 {
		return nil
	}

	year := strconv.Itoa(t.Year)
	yearID := identity.Hex(year)
	if err := b.db.UpsertYear(tx, yearID, t.Year); err != nil {
		return err
	}

	albumArtists := t.AlbumArtists
	if len(albumArtists) == 0 {
		albumArtists = t.Artists
	}

	albumID := identity.Hex(append(append([]string{}, albumArtists...), t.Album, year)...)
	if err := b.db.UpsertAlbum(tx, albumID, t.Album, yearID); err != nil {
		return err
	}

	discNum := t.DiscNumber
	if discNum == 0 {
		discNum = 1
	}
	discID := identity.Hex(albumID, strconv.Itoa(discNum))
	if err := b.db.UpsertDisc(tx, discID, albumID, discNum); err != nil {
		return err
	}

	trackID := identity.Hex(discID, t.Title, strconv.Itoa(t.TrackNumber))
	if err := b.db.UpsertTrack(tx, trackID, discID, t.Title, t.TrackNumber, t.Copyright); err != nil {
		return err
	}

	for i, artist := range albumArtists {
		artistID := identity.Hex(artist)
		if err := b.db.UpsertArtist(tx, artistID, artist); err != nil {
			return err
		}
		if err := b.db.LinkOrdered(tx, "album_artists", albumID, artistID, i); err != nil {
			return err
		}
	}
	for i, artist := range t.Artists {
		artistID := identity.Hex(artist)
		if err := b.db.UpsertArtist(tx, artistID, artist); err != nil {
			return err
		}
		if err := b.db.LinkOrdered(tx, "track_artists", trackID, artistID, i); err != nil {
			return err
		}
	}

	return b.db.LinkFile(tx, "track_files", trackID, fileID)
}

// addEpisode promotes a tagged file into the show/season/episode chain.
func (b *Builder) addEpisode(tx *sql.Tx, fileID []byte, e *probe.EpisodeMeta) error {
	if e.Show == "" || e.Title == "" || e.Season <= 0 || e.Episode <= 0 {
		return nil
	}

	showID := identity.Hex(e.Show)
	if err := b.db.UpsertShow(tx, showID, e.Show, "", ""); err != nil {
		return err
	}

	seasonID := identity.Hex(showID, strconv.Itoa(e.Season))
	if err := b.db.UpsertSeason(tx, seasonID, showID, e.Season); err != nil {
		return err
	}

	yearID := ""
	if e.Year != 0 {
		yearID = identity.Hex(strconv.Itoa(e.Year))
		if err := b.db.UpsertYear(tx, yearID, e.Year); err != nil {
			return err
		}
	}

	episodeID := identity.Hex(seasonID, e.Title, strconv.Itoa(e.Episode))
	if err := b.db.UpsertEpisode(tx, episodeID, seasonID, e.Title, e.Episode, yearID, e.Summary); err != nil {
		return err
	}

	return b.db.LinkFile(tx, "episode_files", episodeID, fileID)
}

// addMovie promotes a tagged video file into a movie entity. Multi-part
// movies converge on one entity because the identifier is derived from title
// and year only.
func (b *Builder) addMovie(tx *sql.Tx, fileID []byte, m *probe.MovieMeta) error {
	if m.Title == "" || m.Year == 0 {
		return nil
	}

	year := strconv.Itoa(m.Year)
	yearID := identity.Hex(year)
	if err := b.db.UpsertYear(tx, yearID, m.Year); err != nil {
		return err
	}

	movieID := identity.Hex(m.Title, year)
	if err := b.db.UpsertMovie(tx, movieID, m.Title, yearID, m.Summary); err != nil {
		return err
	}

	return b.db.LinkFile(tx, "movie_files", movieID, fileID)
}

// addSubtitle records the subtitle entity and its cues. The entity id is the
// file id itself (hex form): a subtitle has no descriptive identity beyond
// the file carrying it.
func (b *Builder) addSubtitle(tx *sql.Tx, fileID []byte, s *probe.SubtitleMeta) error {
	subtitleID := hex.EncodeToString(fileID)
	if err := b.db.UpsertSubtitle(tx, subtitleID, fileID); err != nil {
		return err
	}
	for _, cue := range s.Cues {
		lines := strings.Join(cue.Lines, "\n")
		if err := b.db.InsertCue(tx, subtitleID, cue.StartMS, cue.DurationMS, lines); err != nil {
			return err
		}
	}
	return nil
}

// SubtitleLanguage extracts the language hint from a subtitle filename of the
// form "Stem.lang.vtt". Returns "" when the name carries no hint.
func SubtitleLanguage(name string) string {
	parts := strings.Split(name, ".")
	if len(parts) < 3 {
		return ""
	}
	lang := strings.ToLower(parts[len(parts)-2])
	if len(lang) < 2 || len(lang) > 3 {
		return ""
	}
	for _, r := range lang {
		if r < 'a' || r > 'z' {
			return ""
		}
	}
	return lang
}
