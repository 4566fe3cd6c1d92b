// Package probe contains the byte-level format decoders that recover embedded
// metadata from raw media files: ID3v2.4 audio tags, MP4 atom trees, PNG/JPEG
// signatures, WebVTT subtitles, and JSON sidecar metadata.
//
// Each decoder either returns structured metadata or reports ErrNotThisFormat;
// the top-level File function tries them in a fallthrough order seeded by the
// mediatypes extension classification and the first match wins.
package probe

import (
	"errors"
	"io"

	"media-library/internal/mediatypes"
)

// ErrNotThisFormat is returned by a decoder whose structural assumptions do
// not hold for the input. It is an expected, non-fatal outcome: the caller
// moves on to the next decoder.
var ErrNotThisFormat = errors.New("not this format")

// Facet is the typed file classification a successful probe yields.
type Facet int

const (
	// FacetAudio marks a file carrying an audio stream.
	FacetAudio Facet = iota
	// FacetVideo marks a file carrying a video stream.
	FacetVideo
	// FacetImage marks a still image.
	FacetImage
	// FacetSubtitle marks a subtitle track.
	FacetSubtitle
	// FacetMetadata marks a JSON sidecar metadata file.
	FacetMetadata
)

// TrackMeta holds the tag fields describing a music track. Fields the tag did
// not carry are left at their zero values; hierarchy promotion is decided by
// the graph builder, not here.
type TrackMeta struct {
	Title        string
	Album        string
	Year         int
	TrackNumber  int
	DiscNumber   int
	Artists      []string
	AlbumArtists []string
	Copyright    string
}

// EpisodeMeta holds the tag fields describing a TV episode.
type EpisodeMeta struct {
	Show    string
	Season  int
	Episode int
	Title   string
	Year    int
	Summary string
}

// MovieMeta holds the tag fields describing a movie (or one part of a
// multi-part movie, numbered via Part).
type MovieMeta struct {
	Title   string
	Year    int
	Part    int
	Summary string
}

// Cue is one timed text unit of a subtitle file.
type Cue struct {
	StartMS    int64
	DurationMS int64
	Lines      []string
}

// SubtitleMeta holds the parsed content of a subtitle file. DurationMS is the
// end timestamp of the last cue.
type SubtitleMeta struct {
	DurationMS int64
	Cues       []Cue
}

// Result is the typed output of a successful probe. Exactly one of the
// classification pointers is set when the format carried enough hierarchy
// information; a bare facet (e.g. an untagged MP4) leaves them all nil.
type Result struct {
	Facet      Facet
	MIME       string
	DurationMS int64

	Track    *TrackMeta
	Episode  *EpisodeMeta
	Movie    *MovieMeta
	Subtitle *SubtitleMeta
	Sidecar  *Sidecar
}

type decoder struct {
	kind mediatypes.Kind
	fn   func(io.ReadSeeker) (*Result, error)
}

// The base fallthrough order: ID3 audio tag, MP4 atom tree, PNG signature,
// JPEG signature, WebVTT subtitle, JSON sidecar.
var decoders = []decoder{
	{mediatypes.KindAudio, readID3},
	{mediatypes.KindVideo, readMP4},
	{mediatypes.KindImage, readPNG},
	{mediatypes.KindImage, readJPEG},
	{mediatypes.KindSubtitle, readWebVTT},
	{mediatypes.KindMetadata, readSidecar},
}

// decoderOrder moves the decoders matching the extension kind to the front of
// the fallthrough chain, keeping the base order within each half.
func decoderOrder(kind mediatypes.Kind) []decoder {
	if kind == mediatypes.KindOther {
		return decoders
	}
	ordered := make([]decoder, 0, len(decoders))
	for _, d := range decoders {
		if d.kind == kind {
			ordered = append(ordered, d)
		}
	}
	for _, d := range decoders {
		if d.kind != kind {
			ordered = append(ordered, d)
		}
	}
	return ordered
}

// File probes r, attempting each decoder in a fallthrough order seeded by the
// extension ext (lowercase, with the leading dot): decoders for the kind the
// extension suggests are tried first, the rest follow in the base order.
// Classification is decided by content, so a misnamed file still lands on the
// decoder its bytes match. The first success wins. ErrNotThisFormat is
// returned when no decoder matched; any other error is an I/O failure.
func File(r io.ReadSeeker, ext string) (*Result, error) {
	for _, d := range decoderOrder(mediatypes.GetKind(ext)) {
		if _, err := r.Seek(0, io.SeekStart); err != nil {
			return nil, err
		}
		res, err := d.fn(r)
		if err == nil {
			if res.Facet == FacetVideo && mediatypes.VideoExtensions[ext] {
				// The atom tree says video but not which container flavor;
				// the extension table does (.m4v, .mov).
				res.MIME = mediatypes.GetMimeType(ext)
			}
			return res, nil
		}
		if !errors.Is(err, ErrNotThisFormat) {
			return nil, err
		}
	}
	return nil, ErrNotThisFormat
}

// notThisFormat converts truncated reads into the non-fatal mismatch signal.
// A file shorter than a decoder's fixed structures simply is not that format.
func notThisFormat(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ErrNotThisFormat
	}
	return err
}
