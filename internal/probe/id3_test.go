package probe

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

// id3Frame builds one ID3v2.4 text frame with a leading UTF-8 encoding byte.
func id3Frame(id, value string) []byte {
	payload := append([]byte{0x03}, []byte(value)...)
	frame := make([]byte, 10, 10+len(payload))
	copy(frame, id)
	putSyncsafe(frame[4:8], len(payload))
	return append(frame, payload...)
}

// id3Tag wraps frames in an ID3v2.4 header.
func id3Tag(frames ...[]byte) []byte {
	body := bytes.Join(frames, nil)
	tag := make([]byte, 10, 10+len(body))
	copy(tag, "ID3")
	tag[3] = 4
	putSyncsafe(tag[6:10], len(body))
	return append(tag, body...)
}

func putSyncsafe(dst []byte, v int) {
	dst[0] = byte(v >> 21 & 0x7F)
	dst[1] = byte(v >> 14 & 0x7F)
	dst[2] = byte(v >> 7 & 0x7F)
	dst[3] = byte(v & 0x7F)
}

func TestSyncsafe(t *testing.T) {
	tests := []struct {
		name  string
		bytes []byte
		want  int
		ok    bool
	}{
		{"two five seven", []byte{0x00, 0x00, 0x02, 0x01}, 257, true},
		{"zero", []byte{0x00, 0x00, 0x00, 0x00}, 0, true},
		{"seven bits per byte", []byte{0x00, 0x00, 0x01, 0x7F}, 255, true},
		{"max", []byte{0x7F, 0x7F, 0x7F, 0x7F}, 0x0FFFFFFF, true},
		{"top bit set rejected", []byte{0x80, 0x00, 0x00, 0x00}, 0, false},
		{"top bit in low byte rejected", []byte{0x00, 0x00, 0x00, 0xFF}, 0, false},
		{"short input", []byte{0x01, 0x02}, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := syncsafe(tt.bytes)
			if ok != tt.ok || got != tt.want {
				t.Errorf("syncsafe(%v) = (%d, %v), want (%d, %v)", tt.bytes, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestReadID3FullTag(t *testing.T) {
	tag := id3Tag(
		id3Frame("TIT2", "Paranoid"),
		id3Frame("TALB", "Paranoid"),
		id3Frame("TDRC", "1970-09-18"),
		id3Frame("TRCK", "2/8"),
		id3Frame("TPOS", "1/1"),
		id3Frame("TPE1", "Black Sabbath"),
	)

	res, err := readID3(bytes.NewReader(tag))
	if err != nil {
		t.Fatalf("readID3 failed: %v", err)
	}

	if res.Facet != FacetAudio {
		t.Errorf("facet = %v, want FacetAudio", res.Facet)
	}
	if res.MIME != "audio/mpeg" {
		t.Errorf("mime = %q, want audio/mpeg", res.MIME)
	}

	tr := res.Track
	if tr == nil {
		t.Fatal("no track metadata")
	}
	if tr.Title != "Paranoid" || tr.Album != "Paranoid" {
		t.Errorf("title/album = %q/%q", tr.Title, tr.Album)
	}
	if tr.Year != 1970 {
		t.Errorf("year = %d, want 1970", tr.Year)
	}
	if tr.TrackNumber != 2 || tr.DiscNumber != 1 {
		t.Errorf("track/disc = %d/%d, want 2/1", tr.TrackNumber, tr.DiscNumber)
	}
	if len(tr.Artists) != 1 || tr.Artists[0] != "Black Sabbath" {
		t.Errorf("artists = %v", tr.Artists)
	}
}

func TestReadID3MultiArtist(t *testing.T) {
	tag := id3Tag(
		id3Frame("TIT2", "Under Pressure"),
		id3Frame("TPE1", "Queen; David Bowie"),
		id3Frame("TPE2", "Queen"),
	)

	res, err := readID3(bytes.NewReader(tag))
	if err != nil {
		t.Fatalf("readID3 failed: %v", err)
	}

	tr := res.Track
	if len(tr.Artists) != 2 || tr.Artists[0] != "Queen" || tr.Artists[1] != "David Bowie" {
		t.Errorf("artists = %v, want [Queen David Bowie]", tr.Artists)
	}
	if len(tr.AlbumArtists) != 1 || tr.AlbumArtists[0] != "Queen" {
		t.Errorf("album artists = %v, want [Queen]", tr.AlbumArtists)
	}
}

func TestReadID3TXXXAlbumArtistFallback(t *testing.T) {
	txxx := append([]byte{0x03}, []byte("ALBUM ARTIST\x00Various Artists")...)
	frame := make([]byte, 10, 10+len(txxx))
	copy(frame, "TXXX")
	putSyncsafe(frame[4:8], len(txxx))
	frame = append(frame, txxx...)

	tag := id3Tag(id3Frame("TIT2", "Song"), frame)

	res, err := readID3(bytes.NewReader(tag))
	if err != nil {
		t.Fatalf("readID3 failed: %v", err)
	}
	if len(res.Track.AlbumArtists) != 1 || res.Track.AlbumArtists[0] != "Various Artists" {
		t.Errorf("album artists = %v, want [Various Artists]", res.Track.AlbumArtists)
	}
}

func TestReadID3NotThisFormat(t *testing.T) {
	inputs := map[string][]byte{
		"empty":         {},
		"wrong magic":   []byte("RIF\x04\x00\x00\x00\x00\x00\x00"),
		"wrong version": append([]byte("ID3\x03\x00\x00"), 0, 0, 0, 0),
		"truncated":     []byte("ID3\x04"),
	}

	for name, input := range inputs {
		t.Run(name, func(t *testing.T) {
			_, err := readID3(bytes.NewReader(input))
			if !errors.Is(err, ErrNotThisFormat) {
				t.Errorf("readID3 = %v, want ErrNotThisFormat", err)
			}
		})
	}
}

func TestReadXingDuration(t *testing.T) {
	// MPEG-1 Layer III, 44100 Hz, stereo: side info is 32 bytes.
	frame := []byte{0xFF, 0xFB, 0x90, 0x00}
	frame = append(frame, make([]byte, 32)...)
	frame = append(frame, []byte("Xing")...)
	flags := make([]byte, 4)
	binary.BigEndian.PutUint32(flags, 1)
	frame = append(frame, flags...)
	frames := make([]byte, 4)
	binary.BigEndian.PutUint32(frames, 1000)
	frame = append(frame, frames...)

	tag := id3Tag(id3Frame("TIT2", "Song"))
	res, err := readID3(bytes.NewReader(append(tag, frame...)))
	if err != nil {
		t.Fatalf("readID3 failed: %v", err)
	}

	// 1000 frames * 1152 samples / 44100 Hz = 26122 ms.
	want := int64(1000) * 1152 * 1000 / 44100
	if res.DurationMS != want {
		t.Errorf("duration = %d ms, want %d ms", res.DurationMS, want)
	}
}

func TestReadID3WithoutXing(t *testing.T) {
	tag := id3Tag(id3Frame("TIT2", "Song"))
	res, err := readID3(bytes.NewReader(tag))
	if err != nil {
		t.Fatalf("readID3 failed: %v", err)
	}
	if res.DurationMS != 0 {
		t.Errorf("duration = %d, want 0 without a Xing header", res.DurationMS)
	}
}
