package database

import "time"

// Directory mirrors one filesystem directory. The root directory has a nil
// ParentID.
type Directory struct {
	ID       []byte `json:"-"`
	Name     string `json:"name"`
	ParentID []byte `json:"-"`
}

// File mirrors one filesystem file. IndexTime is nil until the file has been
// probed once; it then holds the filesystem modification time (unix ms) seen
// at probe time and is the staleness signal for re-probing.
type File struct {
	ID        []byte `json:"-"`
	Name      string `json:"name"`
	ParentID  []byte `json:"-"`
	Size      int64  `json:"size"`
	IndexTime *int64 `json:"indexTime,omitempty"`
}

// Artist is a music artist.
type Artist struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Affinity float64 `json:"affinity"`
}

// Album is a music album, optionally linked to a Year.
type Album struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	YearID   string  `json:"yearId,omitempty"`
	Affinity float64 `json:"affinity"`
}

// Disc is one disc of an album.
type Disc struct {
	ID       string  `json:"id"`
	AlbumID  string  `json:"albumId"`
	Number   int     `json:"number"`
	Affinity float64 `json:"affinity"`
}

// Track is a music track, the leaf of the audio hierarchy.
type Track struct {
	ID        string  `json:"id"`
	DiscID    string  `json:"discId"`
	Title     string  `json:"title"`
	Number    int     `json:"number"`
	Copyright string  `json:"copyright,omitempty"`
	Affinity  float64 `json:"affinity"`
}

// Show is a TV show.
type Show struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Summary  string  `json:"summary,omitempty"`
	IMDB     string  `json:"imdb,omitempty"`
	Affinity float64 `json:"affinity"`
}

// Season is one season of a show.
type Season struct {
	ID       string  `json:"id"`
	ShowID   string  `json:"showId"`
	Number   int     `json:"number"`
	Affinity float64 `json:"affinity"`
}

// Episode is one episode of a season, a leaf of the video hierarchy.
type Episode struct {
	ID       string  `json:"id"`
	SeasonID string  `json:"seasonId"`
	Title    string  `json:"title"`
	Number   int     `json:"number"`
	YearID   string  `json:"yearId,omitempty"`
	Summary  string  `json:"summary,omitempty"`
	Affinity float64 `json:"affinity"`
}

// Movie is a standalone movie, a leaf of the video hierarchy.
type Movie struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	YearID   string  `json:"yearId,omitempty"`
	Summary  string  `json:"summary,omitempty"`
	Affinity float64 `json:"affinity"`
}

// Actor is a shared person entity keyed by normalized name.
type Actor struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Affinity float64 `json:"affinity"`
}

// Genre is a shared genre entity keyed by normalized name.
type Genre struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Affinity float64 `json:"affinity"`
}

// Year is the shared "browse by year" dimension.
type Year struct {
	ID       string  `json:"id"`
	Year     int     `json:"year"`
	Affinity float64 `json:"affinity"`
}

// Subtitle is the entity for one subtitle file.
type Subtitle struct {
	ID     string `json:"id"`
	FileID []byte `json:"-"`
}

// Cue is one timed text unit of a subtitle.
type Cue struct {
	SubtitleID string `json:"subtitleId"`
	StartMS    int64  `json:"startMs"`
	DurationMS int64  `json:"durationMs"`
	Lines      string `json:"lines"`
}

// SearchHit is one full-text search result.
type SearchHit struct {
	Kind     string `json:"kind"`
	EntityID string `json:"id"`
	Body     string `json:"body"`
}

// IndexStats summarizes the library contents after an indexing pass.
type IndexStats struct {
	TotalDirectories int       `json:"totalDirectories"`
	TotalFiles       int       `json:"totalFiles"`
	TotalArtists     int       `json:"totalArtists"`
	TotalAlbums      int       `json:"totalAlbums"`
	TotalTracks      int       `json:"totalTracks"`
	TotalShows       int       `json:"totalShows"`
	TotalEpisodes    int       `json:"totalEpisodes"`
	TotalMovies      int       `json:"totalMovies"`
	LastIndexed      time.Time `json:"lastIndexed"`
	IndexDuration    string    `json:"indexDuration"`
}
