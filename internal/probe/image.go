package probe

import (
	"bytes"
	"io"
)

var (
	pngSignature = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}

	jpegPrefix = []byte{0xFF, 0xD8, 0xFF, 0xE0}
	jfifMarker = []byte("JFIF")
)

// readPNG matches the fixed 8-byte PNG signature. No further decoding is
// attempted; dimensions are not part of the indexing pipeline.
func readPNG(r io.ReadSeeker) (*Result, error) {
	sig := make([]byte, len(pngSignature))
	if _, err := io.ReadFull(r, sig); err != nil {
		return nil, notThisFormat(err)
	}
	if !bytes.Equal(sig, pngSignature) {
		return nil, ErrNotThisFormat
	}
	return &Result{Facet: FacetImage, MIME: "image/png"}, nil
}

// readJPEG matches the 10-byte JFIF prefix: SOI + APP0 marker, a 2-byte
// segment length, then the literal "JFIF" identifier.
func readJPEG(r io.ReadSeeker) (*Result, error) {
	sig := make([]byte, 10)
	if _, err := io.ReadFull(r, sig); err != nil {
		return nil, notThisFormat(err)
	}
	if !bytes.Equal(sig[0:4], jpegPrefix) || !bytes.Equal(sig[6:10], jfifMarker) {
		return nil, ErrNotThisFormat
	}
	return &Result{Facet: FacetImage, MIME: "image/jpeg"}, nil
}
