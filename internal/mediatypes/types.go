package mediatypes

// Kind classifies a file by the role it plays in the library.
type Kind string

const (
	// KindAudio represents a tagged audio file (music track).
	KindAudio Kind = "audio"
	// KindVideo represents a video container (movie or episode).
	KindVideo Kind = "video"
	// KindImage represents cover art or another still image.
	KindImage Kind = "image"
	// KindSubtitle represents a subtitle track.
	KindSubtitle Kind = "subtitle"
	// KindMetadata represents a JSON sidecar metadata file.
	KindMetadata Kind = "metadata"
	// KindOther represents an unknown or unsupported file type.
	KindOther Kind = "other"
)

// AudioExtensions maps file extensions to whether they are audio formats
// the probes understand.
var AudioExtensions = map[string]bool{
	".mp3": true,
	".m4a": true,
	".m4b": true,
	".aac": true,
}

// VideoExtensions maps file extensions to whether they are video container
// formats the probes understand.
var VideoExtensions = map[string]bool{
	".mp4": true,
	".m4v": true,
	".mov": true,
}

// ImageExtensions maps file extensions to supported still image formats.
var ImageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

// SubtitleExtensions maps file extensions to supported subtitle formats.
var SubtitleExtensions = map[string]bool{
	".vtt": true,
}

// MetadataExtensions maps file extensions to sidecar metadata formats.
var MetadataExtensions = map[string]bool{
	".json": true,
}

// MimeTypes maps file extensions to their MIME types.
var MimeTypes = map[string]string{
	// Audio
	".mp3": "audio/mpeg",
	".m4a": "audio/mp4",
	".m4b": "audio/mp4",
	".aac": "audio/aac",

	// Video
	".mp4": "video/mp4",
	".m4v": "video/x-m4v",
	".mov": "video/quicktime",

	// Images
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",

	// Subtitles
	".vtt": "text/vtt",

	// Sidecar metadata
	".json": "application/json",
}

// GetKind returns the Kind for a given file extension.
// The extension should be lowercase and include the leading dot (e.g., ".mp3").
// Returns KindOther if the extension is not recognized.
func GetKind(ext string) Kind {
	switch {
	case AudioExtensions[ext]:
		return KindAudio
	case VideoExtensions[ext]:
		return KindVideo
	case ImageExtensions[ext]:
		return KindImage
	case SubtitleExtensions[ext]:
		return KindSubtitle
	case MetadataExtensions[ext]:
		return KindMetadata
	default:
		return KindOther
	}
}

// GetMimeType returns the MIME type for a given file extension.
// Returns "application/octet-stream" if the extension is not recognized.
func GetMimeType(ext string) string {
	if mime, ok := MimeTypes[ext]; ok {
		return mime
	}
	return "application/octet-stream"
}
