package graph

import (
	"database/sql"

	"media-library/internal/database"
	"media-library/internal/logging"
	"media-library/internal/metrics"
)

// Reconciler sweeps the entity graph after file rows have been removed,
// deleting every entity whose justifying references are gone.
type Reconciler struct {
	db *database.Database
}

// NewReconciler creates a Reconciler over the given store.
func NewReconciler(db *database.Database) *Reconciler {
	return &Reconciler{db: db}
}

// Prune runs the bottom-up orphan sweep inside the pass transaction and
// returns the total number of rows removed.
func (r *Reconciler) Prune(tx *sql.Tx) (int64, error) {
	pruned, err := r.db.PruneOrphans(tx)
	if err != nil {
		return 0, err
	}

	var total int64
	for table, count := range pruned {
		logging.Debug("Pruned %d orphaned rows from %s", count, table)
		metrics.IndexerEntitiesPruned.WithLabelValues(table).Add(float64(count))
		total += count
	}
	return total, nil
}
