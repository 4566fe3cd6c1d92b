package mediatypes

import "testing"

func TestGetKind(t *testing.T) {
	tests := []struct {
		ext  string
		want Kind
	}{
		{".mp3", KindAudio},
		{".m4a", KindAudio},
		{".m4b", KindAudio},
		{".mp4", KindVideo},
		{".m4v", KindVideo},
		{".mov", KindVideo},
		{".png", KindImage},
		{".jpg", KindImage},
		{".vtt", KindSubtitle},
		{".json", KindMetadata},
		{".txt", KindOther},
		{"", KindOther},
	}
	for _, tt := range tests {
		if got := GetKind(tt.ext); got != tt.want {
			t.Errorf("GetKind(%q) = %v, want %v", tt.ext, got, tt.want)
		}
	}
}

func TestGetMimeType(t *testing.T) {
	tests := []struct {
		ext  string
		want string
	}{
		{".mp3", "audio/mpeg"},
		{".m4a", "audio/mp4"},
		{".m4v", "video/x-m4v"},
		{".mov", "video/quicktime"},
		{".vtt", "text/vtt"},
		{".unknown", "application/octet-stream"},
	}
	for _, tt := range tests {
		if got := GetMimeType(tt.ext); got != tt.want {
			t.Errorf("GetMimeType(%q) = %q, want %q", tt.ext, got, tt.want)
		}
	}
}
