package probe

import (
	"bytes"
	"errors"
	"testing"
)

const sampleVTT = `WEBVTT

00:00:01.000 --> 00:00:04.000
Never gonna give you up

00:05.500 --> 00:09.250 align:start
Never gonna let you down
Never gonna run around

01:00:00.000 --> 01:00:02.500
And desert you
`

func TestReadWebVTT(t *testing.T) {
	res, err := readWebVTT(bytes.NewReader([]byte(sampleVTT)))
	if err != nil {
		t.Fatalf("readWebVTT: %v", err)
	}
	if res.Facet != FacetSubtitle {
		t.Errorf("Facet = %v, want FacetSubtitle", res.Facet)
	}
	if res.MIME != "text/vtt" {
		t.Errorf("MIME = %q, want text/vtt", res.MIME)
	}
	if res.Subtitle == nil {
		t.Fatal("Subtitle is nil")
	}
	cues := res.Subtitle.Cues
	if len(cues) != 3 {
		t.Fatalf("got %d cues, want 3", len(cues))
	}

	if cues[0].StartMS != 1000 || cues[0].DurationMS != 3000 {
		t.Errorf("cue 0 = %d+%d, want 1000+3000", cues[0].StartMS, cues[0].DurationMS)
	}
	if len(cues[0].Lines) != 1 || cues[0].Lines[0] != "Never gonna give you up" {
		t.Errorf("cue 0 lines = %v", cues[0].Lines)
	}

	// MM:SS.mmm form, with trailing cue settings after the end timestamp.
	if cues[1].StartMS != 5500 || cues[1].DurationMS != 3750 {
		t.Errorf("cue 1 = %d+%d, want 5500+3750", cues[1].StartMS, cues[1].DurationMS)
	}
	if len(cues[1].Lines) != 2 {
		t.Errorf("cue 1 lines = %v, want 2 lines", cues[1].Lines)
	}

	// Duration is the end of the last cue: 1h + 2.5s.
	want := int64(3600000 + 2500)
	if res.DurationMS != want {
		t.Errorf("DurationMS = %d, want %d", res.DurationMS, want)
	}
	if res.Subtitle.DurationMS != want {
		t.Errorf("Subtitle.DurationMS = %d, want %d", res.Subtitle.DurationMS, want)
	}
}

func TestReadWebVTTByteOrderMark(t *testing.T) {
	data := "\uFEFF" + sampleVTT
	res, err := readWebVTT(bytes.NewReader([]byte(data)))
	if err != nil {
		t.Fatalf("readWebVTT with BOM: %v", err)
	}
	if len(res.Subtitle.Cues) != 3 {
		t.Errorf("got %d cues, want 3", len(res.Subtitle.Cues))
	}
}

func TestReadWebVTTHeaderSuffix(t *testing.T) {
	data := "WEBVTT - some description\n\n00:00:01.000 --> 00:00:02.000\nhi\n"
	if _, err := readWebVTT(bytes.NewReader([]byte(data))); err != nil {
		t.Fatalf("readWebVTT with header suffix: %v", err)
	}
}

func TestReadWebVTTNotThisFormat(t *testing.T) {
	inputs := map[string]string{
		"empty":         "",
		"wrong header":  "SUBRIP\n\n00:00:01.000 --> 00:00:02.000\nhi\n",
		"glued header":  "WEBVTTX\n",
		"short millis":  "WEBVTT\n\n00:00:01.00 --> 00:00:02.000\nhi\n",
		"no millis":     "WEBVTT\n\n00:00:01 --> 00:00:02\nhi\n",
		"bare seconds":  "WEBVTT\n\n1.000 --> 2.000\nhi\n",
		"missing end":   "WEBVTT\n\n00:00:01.000 -->\nhi\n",
		"non-numeric":   "WEBVTT\n\n00:aa:01.000 --> 00:00:02.000\nhi\n",
		"too many cols": "WEBVTT\n\n0:00:00:01.000 --> 00:00:02.000\nhi\n",
	}
	for name, data := range inputs {
		if _, err := readWebVTT(bytes.NewReader([]byte(data))); !errors.Is(err, ErrNotThisFormat) {
			t.Errorf("%s: err = %v, want ErrNotThisFormat", name, err)
		}
	}
}

func TestReadWebVTTNoCues(t *testing.T) {
	// A header with no cues is still a valid, zero-length subtitle file.
	res, err := readWebVTT(bytes.NewReader([]byte("WEBVTT\n")))
	if err != nil {
		t.Fatalf("readWebVTT: %v", err)
	}
	if res.DurationMS != 0 || len(res.Subtitle.Cues) != 0 {
		t.Errorf("got duration %d, %d cues, want empty", res.DurationMS, len(res.Subtitle.Cues))
	}
}

func TestParseVTTTimestamp(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"00:00:00.000", 0},
		{"00:00:01.000", 1000},
		{"00:01:00.000", 60000},
		{"01:00:00.000", 3600000},
		{"01:02:03.456", 3723456},
		{"05.500", -1}, // single field rejected
		{"02:30.250", 150250},
	}
	for _, tc := range cases {
		got, err := parseVTTTimestamp(tc.in)
		if tc.want < 0 {
			if err == nil {
				t.Errorf("parseVTTTimestamp(%q) succeeded, want error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseVTTTimestamp(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("parseVTTTimestamp(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
