package probe

import (
	"bytes"
	"encoding/binary"
	"io"
	"strconv"
	"strings"
)

const (
	id3HeaderLen = 10
	id3FrameLen  = 10

	// Samples per MPEG-1 Layer III frame, used for Xing duration math.
	mpeg1Layer3Samples = 1152
)

var mpeg1SampleRates = [4]int{44100, 48000, 32000, 0}

// readID3 decodes an ID3v2.4 tag and, when present, the Xing VBR header of
// the MPEG audio frame immediately following it.
func readID3(r io.ReadSeeker) (*Result, error) {
	header := make([]byte, id3HeaderLen)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, notThisFormat(err)
	}

	if !bytes.Equal(header[0:3], []byte("ID3")) {
		return nil, ErrNotThisFormat
	}
	// Major version 4, any revision. Older tag versions are not this format.
	if header[3] != 4 {
		return nil, ErrNotThisFormat
	}

	bodyLen, ok := syncsafe(header[6:10])
	if !ok {
		return nil, ErrNotThisFormat
	}

	body := make([]byte, bodyLen)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, notThisFormat(err)
	}

	track := parseID3Frames(body)

	res := &Result{
		Facet: FacetAudio,
		MIME:  "audio/mpeg",
		Track: track,
	}
	// Duration is best effort: absence of a Xing header leaves it at zero.
	res.DurationMS = readXingDuration(r)
	return res, nil
}

// parseID3Frames walks the tag body frame by frame, collecting the recognized
// text frames into a TrackMeta.
func parseID3Frames(body []byte) *TrackMeta {
	track := &TrackMeta{}
	var txxxAlbumArtists []string

	off := 0
	for off+id3FrameLen <= len(body) {
		id := string(body[off : off+4])
		if id == "\x00\x00\x00\x00" {
			break
		}
		frameLen, ok := syncsafe(body[off+4 : off+8])
		if !ok {
			break
		}
		payloadStart := off + id3FrameLen
		payloadEnd := payloadStart + frameLen
		if payloadEnd > len(body) {
			break
		}
		payload := body[payloadStart:payloadEnd]

		switch id {
		case "TIT2":
			track.Title = id3Text(payload)
		case "TALB":
			track.Album = id3Text(payload)
		case "TDRC":
			if y := id3Text(payload); len(y) >= 4 {
				track.Year, _ = strconv.Atoi(y[:4])
			}
		case "TRCK":
			track.TrackNumber = id3Number(payload)
		case "TPOS":
			track.DiscNumber = id3Number(payload)
		case "TPE1":
			track.Artists = splitMulti(id3Text(payload))
		case "TPE2":
			track.AlbumArtists = splitMulti(id3Text(payload))
		case "TXXX":
			if key, value, ok := id3UserText(payload); ok && strings.EqualFold(key, "ALBUM ARTIST") {
				txxxAlbumArtists = splitMulti(value)
			}
		}

		off = payloadEnd
	}

	if len(track.AlbumArtists) == 0 {
		track.AlbumArtists = txxxAlbumArtists
	}
	return track
}

// syncsafe decodes a 4-byte syncsafe integer: 7 meaningful bits per byte,
// MSB first, the top bit of each byte always zero.
func syncsafe(b []byte) (int, bool) {
	if len(b) != 4 {
		return 0, false
	}
	v := 0
	for _, c := range b {
		if c&0x80 != 0 {
			return 0, false
		}
		v = v<<7 | int(c)
	}
	return v, true
}

// id3Text decodes a text frame payload: a leading encoding byte, then the
// value, then a trailing terminator.
func id3Text(payload []byte) string {
	if len(payload) < 1 {
		return ""
	}
	return strings.TrimRight(string(payload[1:]), "\x00")
}

// id3UserText decodes a TXXX payload: encoding byte, NUL-terminated key,
// then the value.
func id3UserText(payload []byte) (key, value string, ok bool) {
	if len(payload) < 2 {
		return "", "", false
	}
	rest := payload[1:]
	sep := bytes.IndexByte(rest, 0)
	if sep < 0 {
		return "", "", false
	}
	return string(rest[:sep]), strings.TrimRight(string(rest[sep+1:]), "\x00"), true
}

// id3Number parses the leading integer of a "n" or "n/total" text frame.
func id3Number(payload []byte) int {
	s := id3Text(payload)
	if slash := strings.IndexByte(s, '/'); slash >= 0 {
		s = s[:slash]
	}
	n, _ := strconv.Atoi(strings.TrimSpace(s))
	return n
}

// splitMulti splits a semicolon-separated multi-valued tag field, preserving
// source order.
func splitMulti(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// readXingDuration inspects the MPEG audio frame that follows the tag. If it
// is an MPEG-1 Layer III frame carrying a Xing (or Info) VBR header, the
// header's frame count yields the stream duration in milliseconds. Anything
// else yields zero.
func readXingDuration(r io.Reader) int64 {
	hdr := make([]byte, 4)
	if _, err := io.ReadFull(r, hdr); err != nil {
		return 0
	}

	// Frame sync plus MPEG-1 (version bits 11) Layer III (layer bits 01).
	if hdr[0] != 0xFF || hdr[1]&0xE0 != 0xE0 {
		return 0
	}
	if (hdr[1]>>3)&0x03 != 0x03 || (hdr[1]>>1)&0x03 != 0x01 {
		return 0
	}

	sampleRate := mpeg1SampleRates[(hdr[2]>>2)&0x03]
	if sampleRate == 0 {
		return 0
	}

	// The Xing header sits after the side info: 17 bytes for mono,
	// 32 bytes for every other channel mode.
	sideInfoLen := 32
	if hdr[3]>>6 == 3 {
		sideInfoLen = 17
	}

	buf := make([]byte, sideInfoLen+12)
	if _, err := io.ReadFull(r, buf); err != nil {
		return 0
	}

	tag := string(buf[sideInfoLen : sideInfoLen+4])
	if tag != "Xing" && tag != "Info" {
		return 0
	}

	flags := binary.BigEndian.Uint32(buf[sideInfoLen+4 : sideInfoLen+8])
	if flags&0x01 == 0 {
		return 0
	}
	frames := binary.BigEndian.Uint32(buf[sideInfoLen+8 : sideInfoLen+12])

	return int64(frames) * mpeg1Layer3Samples * 1000 / int64(sampleRate)
}
