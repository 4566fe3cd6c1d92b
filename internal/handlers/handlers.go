package handlers

import (
	"time"

	"media-library/internal/affinity"
	"media-library/internal/database"
	"media-library/internal/indexer"
	"media-library/internal/startup"
)

type Handlers struct {
	db       *database.Database
	indexer  *indexer.Indexer
	scorer   *affinity.Scorer
	mediaDir string
}

func New(db *database.Database, idx *indexer.Indexer, config *startup.Config) *Handlers {
	return &Handlers{
		db:       db,
		indexer:  idx,
		scorer:   affinity.NewScorer(db),
		mediaDir: config.MediaDir,
	}
}

// adjusted projects a stored affinity to the current instant. Stored values
// only ever grow; the decay is applied when they are read.
func adjusted(stored float64) float64 {
	return affinity.Adjust(stored, time.Now())
}
