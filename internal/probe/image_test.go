package probe

import (
	"bytes"
	"errors"
	"testing"
)

func TestReadPNG(t *testing.T) {
	data := append([]byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}, []byte("IHDR and friends")...)
	res, err := readPNG(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("readPNG: %v", err)
	}
	if res.Facet != FacetImage {
		t.Errorf("Facet = %v, want FacetImage", res.Facet)
	}
	if res.MIME != "image/png" {
		t.Errorf("MIME = %q, want image/png", res.MIME)
	}
}

func TestReadPNGNotThisFormat(t *testing.T) {
	inputs := map[string][]byte{
		"empty":       {},
		"truncated":   {0x89, 'P', 'N'},
		"wrong magic": []byte("GIF89a01"),
		// First byte high bit clear: plain-text impostor.
		"ascii png": []byte(".PNG\x0D\x0A\x1A\x0A"),
	}
	for name, data := range inputs {
		if _, err := readPNG(bytes.NewReader(data)); !errors.Is(err, ErrNotThisFormat) {
			t.Errorf("%s: err = %v, want ErrNotThisFormat", name, err)
		}
	}
}

func TestReadJPEG(t *testing.T) {
	data := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}
	res, err := readJPEG(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("readJPEG: %v", err)
	}
	if res.Facet != FacetImage {
		t.Errorf("Facet = %v, want FacetImage", res.Facet)
	}
	if res.MIME != "image/jpeg" {
		t.Errorf("MIME = %q, want image/jpeg", res.MIME)
	}
}

func TestReadJPEGNotThisFormat(t *testing.T) {
	inputs := map[string][]byte{
		"empty":     {},
		"truncated": {0xFF, 0xD8, 0xFF},
		// Exif-segmented JPEG (APP1, no JFIF marker) is not matched.
		"exif":    {0xFF, 0xD8, 0xFF, 0xE1, 0x00, 0x10, 'E', 'x', 'i', 'f'},
		"no jfif": {0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'X', 'X', 'X', 'X'},
	}
	for name, data := range inputs {
		if _, err := readJPEG(bytes.NewReader(data)); !errors.Is(err, ErrNotThisFormat) {
			t.Errorf("%s: err = %v, want ErrNotThisFormat", name, err)
		}
	}
}
