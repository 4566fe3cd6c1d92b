package probe

import (
	"encoding/binary"
	"io"
	"strconv"
	"strings"
)

const mp4AtomHeaderLen = 8

// mp4Fields accumulates the metadata leaf atoms seen during the walk.
// Pointer fields distinguish "absent" from zero values, which matters for the
// classification rules.
type mp4Fields struct {
	durationMS int64

	title        *string
	album        *string
	artists      []string
	albumArtists []string
	comment      *string
	year         *int
	track        *int
	disc         *int
	show         *string
	season       *int
	episode      *int
}

// mp4Cursor is an explicit file position threaded through the recursive atom
// walk, so nested calls cannot desynchronize the offset.
type mp4Cursor struct {
	r   io.ReadSeeker
	off int64
}

func (c *mp4Cursor) readAt(off int64, n int) ([]byte, error) {
	if _, err := c.r.Seek(off, io.SeekStart); err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(c.r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// readMP4 walks the atom tree of an ISO/MP4 container and classifies the file
// as a music track, TV episode, or movie from the metadata atoms it finds.
func readMP4(r io.ReadSeeker) (*Result, error) {
	end, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, err
	}

	cur := &mp4Cursor{r: r}
	header, err := cur.readAt(0, mp4AtomHeaderLen)
	if err != nil {
		return nil, notThisFormat(err)
	}
	if string(header[4:8]) != "ftyp" {
		return nil, ErrNotThisFormat
	}

	fields := &mp4Fields{}
	if err := walkAtoms(cur, nil, 0, end, fields); err != nil {
		return nil, notThisFormat(err)
	}

	return classifyMP4(fields), nil
}

// containerPaths lists the atom paths the walk descends into. Everything else
// is skipped by advancing the cursor past the atom's declared length.
var containerPaths = map[string]bool{
	"moov":                true,
	"moov/udta":           true,
	"moov/udta/meta":      true,
	"moov/udta/meta/ilst": true,
}

// walkAtoms iterates the sibling atoms in [start, end), dispatching on the
// path of atom kinds seen so far.
func walkAtoms(cur *mp4Cursor, path []string, start, end int64, fields *mp4Fields) error {
	off := start
	for off+mp4AtomHeaderLen <= end {
		header, err := cur.readAt(off, mp4AtomHeaderLen)
		if err != nil {
			return err
		}
		size := int64(binary.BigEndian.Uint32(header[0:4]))
		kind := string(header[4:8])
		if size < mp4AtomHeaderLen || off+size > end {
			return ErrNotThisFormat
		}

		bodyStart := off + mp4AtomHeaderLen
		bodyEnd := off + size
		childPath := strings.Join(append(path, kind), "/")

		switch {
		case containerPaths[childPath]:
			// The meta atom carries a 4-byte version/flags prefix before
			// its first child.
			if kind == "meta" {
				bodyStart += 4
			}
			if err := walkAtoms(cur, append(path, kind), bodyStart, bodyEnd, fields); err != nil {
				return err
			}
		case childPath == "moov/mvhd":
			if err := readMovieHeader(cur, bodyStart, bodyEnd, fields); err != nil {
				return err
			}
		case strings.HasPrefix(childPath, "moov/udta/meta/ilst/"):
			if err := readMetadataLeaf(cur, kind, bodyStart, bodyEnd, fields); err != nil {
				return err
			}
		}

		off += size
	}
	return nil
}

// readMovieHeader extracts the overall duration from the mvhd atom via its
// timescale and duration fields.
func readMovieHeader(cur *mp4Cursor, start, end int64, fields *mp4Fields) error {
	if end-start < 20 {
		return ErrNotThisFormat
	}
	body, err := cur.readAt(start, 20)
	if err != nil {
		return err
	}

	// Version 0: 4 bytes each of ctime, mtime, timescale, duration after the
	// version/flags word.
	if body[0] != 0 {
		return nil
	}
	timescale := binary.BigEndian.Uint32(body[12:16])
	duration := binary.BigEndian.Uint32(body[16:20])
	if timescale > 0 {
		fields.durationMS = int64(duration) * 1000 / int64(timescale)
	}
	return nil
}

// readMetadataLeaf decodes one ilst leaf atom. The value sits behind a fixed
// 16-byte sub-header (the nested data atom's header, type, and locale words).
func readMetadataLeaf(cur *mp4Cursor, kind string, start, end int64, fields *mp4Fields) error {
	const subHeaderLen = 16
	if end-start <= subHeaderLen {
		return nil
	}
	value, err := cur.readAt(start+subHeaderLen, int(end-start-subHeaderLen))
	if err != nil {
		return err
	}

	text := func() *string {
		s := string(value)
		return &s
	}

	switch kind {
	case "\xa9nam":
		fields.title = text()
	case "\xa9alb":
		fields.album = text()
	case "\xa9ART":
		fields.artists = splitMulti(string(value))
	case "aART":
		fields.albumArtists = splitMulti(string(value))
	case "\xa9cmt":
		fields.comment = text()
	case "\xa9day":
		if y, err := strconv.Atoi(strings.TrimSpace(trimTo(string(value), 4))); err == nil {
			fields.year = &y
		}
	case "tvsh":
		fields.show = text()
	case "tvsn":
		n := packedInt(value)
		fields.season = &n
	case "tves":
		n := packedInt(value)
		fields.episode = &n
	case "trkn":
		if len(value) >= 4 {
			n := int(binary.BigEndian.Uint16(value[2:4]))
			fields.track = &n
		}
	case "disk":
		if len(value) >= 4 {
			n := int(binary.BigEndian.Uint16(value[2:4]))
			fields.disc = &n
		}
	}
	return nil
}

// packedInt reads a big-endian integer of up to 4 bytes.
func packedInt(b []byte) int {
	if len(b) > 4 {
		b = b[:4]
	}
	v := 0
	for _, c := range b {
		v = v<<8 | int(c)
	}
	return v
}

func trimTo(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// classifyMP4 applies the classification precedence: episode fields first,
// then the full music-track field set, then movie as the title+year fallback.
// The order is a heuristic: a movie mis-tagged with show-style atoms will be
// classified as an episode.
func classifyMP4(f *mp4Fields) *Result {
	res := &Result{
		Facet:      FacetVideo,
		MIME:       "video/mp4",
		DurationMS: f.durationMS,
	}

	switch {
	case f.show != nil && f.season != nil && f.episode != nil && f.title != nil:
		res.Episode = &EpisodeMeta{
			Show:    *f.show,
			Season:  *f.season,
			Episode: *f.episode,
			Title:   *f.title,
		}
		if f.year != nil {
			res.Episode.Year = *f.year
		}
	case f.albumArtists != nil && f.album != nil && f.year != nil &&
		f.disc != nil && f.track != nil && f.artists != nil && f.title != nil:
		res.Facet = FacetAudio
		res.MIME = "audio/mp4"
		res.Track = &TrackMeta{
			Title:        *f.title,
			Album:        *f.album,
			Year:         *f.year,
			TrackNumber:  *f.track,
			DiscNumber:   *f.disc,
			Artists:      f.artists,
			AlbumArtists: f.albumArtists,
		}
		if f.comment != nil {
			res.Track.Copyright = *f.comment
		}
	case f.title != nil && f.year != nil:
		res.Movie = &MovieMeta{
			Title: *f.title,
			Year:  *f.year,
		}
		if f.track != nil {
			res.Movie.Part = *f.track
		}
	}

	return res
}
