package probe

import (
	"encoding/json"
	"io"
)

// MovieSidecar is the movie-shaped JSON sidecar schema.
type MovieSidecar struct {
	Title   string   `json:"title"`
	Year    int      `json:"year"`
	Summary string   `json:"summary,omitempty"`
	Actors  []string `json:"actors"`
	Genres  []string `json:"genres"`
}

// ShowSidecar is the nested show object of an episode-shaped sidecar.
type ShowSidecar struct {
	Title   string   `json:"title"`
	Summary string   `json:"summary,omitempty"`
	Actors  []string `json:"actors"`
	Genres  []string `json:"genres"`
}

// EpisodeSidecar is the episode-shaped JSON sidecar schema.
type EpisodeSidecar struct {
	Show    ShowSidecar `json:"show"`
	Season  int         `json:"season"`
	Episode int         `json:"episode"`
	Title   string      `json:"title"`
	Year    int         `json:"year,omitempty"`
	Summary string      `json:"summary,omitempty"`
}

// Sidecar is the validated tagged variant of a JSON sidecar file: exactly one
// of Movie or Episode is set.
type Sidecar struct {
	Movie   *MovieSidecar
	Episode *EpisodeSidecar
}

// readSidecar parses a JSON sidecar metadata file and validates it against
// the movie or episode schema. Anything else, malformed JSON included, is not
// this format.
func readSidecar(r io.ReadSeeker) (*Result, error) {
	raw, err := io.ReadAll(io.LimitReader(r, 1<<20))
	if err != nil {
		return nil, err
	}

	var generic map[string]json.RawMessage
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, ErrNotThisFormat
	}

	sidecar := &Sidecar{}
	if _, ok := generic["show"]; ok {
		var ep EpisodeSidecar
		if err := json.Unmarshal(raw, &ep); err != nil {
			return nil, ErrNotThisFormat
		}
		if ep.Show.Title == "" || ep.Title == "" || ep.Season <= 0 || ep.Episode <= 0 {
			return nil, ErrNotThisFormat
		}
		sidecar.Episode = &ep
	} else {
		var mov MovieSidecar
		if err := json.Unmarshal(raw, &mov); err != nil {
			return nil, ErrNotThisFormat
		}
		if mov.Title == "" || mov.Year == 0 {
			return nil, ErrNotThisFormat
		}
		sidecar.Movie = &mov
	}

	return &Result{
		Facet:   FacetMetadata,
		MIME:    "application/json",
		Sidecar: sidecar,
	}, nil
}
