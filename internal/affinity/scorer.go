package affinity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"media-library/internal/database"
)

// ErrUnknownEntity is returned when a playback event names an entity that
// does not exist in the graph.
var ErrUnknownEntity = errors.New("unknown entity")

// Scorer applies playback events to the graph: the event's decayed weight is
// added to the named entity and every ownership ancestor, both globally and
// for the reporting user.
type Scorer struct {
	db *database.Database
}

// NewScorer creates a Scorer over the given store.
func NewScorer(db *database.Database) *Scorer {
	return &Scorer{db: db}
}

// target is one (kind, id) pair receiving the event weight.
type target struct {
	kind string
	id   string
}

// Record applies one playback event inside the given write transaction.
// Ancestors are resolved from committed data before the weight is written;
// a track event reaches its disc, album, artists and year, an episode event
// its season, show and year, a movie event its year.
func (s *Scorer) Record(ctx context.Context, tx *sql.Tx, kind, entityID, userID string, when time.Time) error {
	targets := []target{{kind, entityID}}

	switch kind {
	case "track":
		chain, err := s.db.GetTrackChain(ctx, entityID)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: track %s", ErrUnknownEntity, entityID)
		}
		if err != nil {
			return err
		}
		targets = append(targets, target{"disc", chain.DiscID}, target{"album", chain.AlbumID})
		for _, artistID := range chain.ArtistIDs {
			targets = append(targets, target{"artist", artistID})
		}
		if chain.YearID != "" {
			targets = append(targets, target{"year", chain.YearID})
		}
	case "episode":
		chain, err := s.db.GetEpisodeChain(ctx, entityID)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: episode %s", ErrUnknownEntity, entityID)
		}
		if err != nil {
			return err
		}
		targets = append(targets, target{"season", chain.SeasonID}, target{"show", chain.ShowID})
		if chain.YearID != "" {
			targets = append(targets, target{"year", chain.YearID})
		}
	case "movie":
		yearID, err := s.db.GetMovieYear(ctx, entityID)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: movie %s", ErrUnknownEntity, entityID)
		}
		if err != nil {
			return err
		}
		if yearID != "" {
			targets = append(targets, target{"year", yearID})
		}
	}

	weight := Weight(when.UnixMilli())
	for _, t := range targets {
		if err := s.db.AddAffinity(tx, t.kind, t.id, userID, weight); err != nil {
			return err
		}
	}
	return nil
}
