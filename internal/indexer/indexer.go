package indexer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"media-library/internal/database"
	"media-library/internal/filesystem"
	"media-library/internal/graph"
	"media-library/internal/logging"
	"media-library/internal/metrics"
	"media-library/internal/probe"
	"media-library/internal/scanner"
)

const (
	// Default polling interval for change detection
	defaultPollInterval = 30 * time.Second
)

// Indexer orchestrates the indexing pipeline over the media directory:
// filesystem scan, reconciliation, probing of stale files, sibling
// resolution, orphan pruning and search index refresh. The whole pass runs
// inside one write transaction; a reader never observes a half-indexed
// library.
type Indexer struct {
	db            *database.Database
	mediaDir      string
	indexInterval time.Duration
	pollInterval  time.Duration
	stopChan      chan struct{}
	indexMu       sync.Mutex
	isIndexing    bool
	lastIndexTime time.Time

	initialIndexComplete bool
	initialIndexError    error
	startTime            time.Time

	scanner    *scanner.Scanner
	builder    *graph.Builder
	resolver   *graph.Resolver
	reconciler *graph.Reconciler
	retry      filesystem.RetryConfig

	// Progress tracking
	filesProbed   atomic.Int64
	indexProgress atomic.Value

	// Callback when indexing completes
	onIndexComplete func()

	// Last known state for lightweight change detection
	stateMu            sync.RWMutex
	lastRootModTime    time.Time
	lastTopLevelCount  int
	lastSubdirModTimes map[string]time.Time
}

// IndexProgress tracks the current indexing progress
type IndexProgress struct {
	FilesProbed int64     `json:"filesProbed"`
	IsIndexing  bool      `json:"isIndexing"`
	StartedAt   time.Time `json:"startedAt,omitempty"`
}

// New creates a new Indexer instance.
func New(db *database.Database, mediaDir string, indexInterval time.Duration) *Indexer {
	idx := &Indexer{
		db:                 db,
		mediaDir:           mediaDir,
		indexInterval:      indexInterval,
		pollInterval:       defaultPollInterval,
		stopChan:           make(chan struct{}),
		startTime:          time.Now(),
		scanner:            scanner.New(db, mediaDir),
		builder:            graph.NewBuilder(db),
		resolver:           graph.NewResolver(db, mediaDir),
		reconciler:         graph.NewReconciler(db),
		retry:              filesystem.DefaultRetryConfig(),
		lastSubdirModTimes: make(map[string]time.Time),
	}
	idx.indexProgress.Store(IndexProgress{})
	return idx
}

// SetPollInterval sets the interval for polling-based change detection.
func (idx *Indexer) SetPollInterval(interval time.Duration) {
	if interval > 0 {
		idx.pollInterval = interval
	}
}

// SetOnIndexComplete sets a callback to be invoked when indexing completes.
func (idx *Indexer) SetOnIndexComplete(callback func()) {
	idx.onIndexComplete = callback
}

// Start begins the indexing process.
func (idx *Indexer) Start() error {
	// Start initial index in background
	go func() {
		logging.Info("Starting initial index in background...")
		if err := idx.Index(); err != nil {
			logging.Error("Initial index error: %v", err)
			idx.indexMu.Lock()
			idx.initialIndexError = err
			idx.indexMu.Unlock()
		}
	}()

	// Start polling-based change detection
	go idx.pollForChanges()

	// Start periodic full re-index
	go idx.periodicIndex()

	return nil
}

// Stop stops the background polling and re-index loops. A pass already
// inside its write transaction runs to completion and commits; passes are
// never cancelled mid-flight.
func (idx *Indexer) Stop() {
	close(idx.stopChan)
}

// IsReady returns true once the initial indexing pass has committed.
func (idx *Indexer) IsReady() bool {
	idx.indexMu.Lock()
	defer idx.indexMu.Unlock()
	return idx.initialIndexComplete
}

// getProgress safely retrieves the current IndexProgress.
func (idx *Indexer) getProgress() IndexProgress {
	if progress, ok := idx.indexProgress.Load().(IndexProgress); ok {
		return progress
	}
	return IndexProgress{}
}

// GetHealthStatus returns detailed health information.
func (idx *Indexer) GetHealthStatus() HealthStatus {
	idx.indexMu.Lock()
	defer idx.indexMu.Unlock()

	progress := idx.getProgress()

	status := HealthStatus{
		Ready:       idx.initialIndexComplete,
		Indexing:    idx.isIndexing,
		StartTime:   idx.startTime,
		Uptime:      time.Since(idx.startTime).String(),
		LastIndexed: idx.lastIndexTime,
		FilesProbed: idx.filesProbed.Load(),
	}

	if idx.isIndexing {
		status.IndexProgress = &progress
	}

	if idx.initialIndexError != nil {
		status.InitialIndexError = idx.initialIndexError.Error()
	}

	return status
}

// HealthStatus contains health check information.
type HealthStatus struct {
	Ready             bool           `json:"ready"`
	Indexing          bool           `json:"indexing"`
	StartTime         time.Time      `json:"startTime"`
	Uptime            string         `json:"uptime"`
	LastIndexed       time.Time      `json:"lastIndexed,omitempty"`
	InitialIndexError string         `json:"initialIndexError,omitempty"`
	FilesProbed       int64          `json:"filesProbed"`
	IndexProgress     *IndexProgress `json:"indexProgress,omitempty"`
}

// pollForChanges periodically checks for file changes.
func (idx *Indexer) pollForChanges() {
	// Wait for initial index to complete
	for !idx.IsReady() {
		select {
		case <-time.After(1 * time.Second):
		case <-idx.stopChan:
			return
		}
	}

	logging.Info("Starting change detection polling (interval: %v)", idx.pollInterval)

	ticker := time.NewTicker(idx.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			changed, err := idx.detectChanges()
			if err != nil {
				logging.Error("Error detecting changes: %v", err)
				continue
			}
			if changed {
				logging.Info("File changes detected, triggering re-index")
				if err := idx.Index(); err != nil {
					logging.Error("Re-index after change detection failed: %v", err)
				}
			}
		case <-idx.stopChan:
			logging.Info("Change detection polling stopped")
			return
		}
	}
}

// detectChanges performs a lightweight check to detect if files have changed.
// It only checks the root directory's modification time and does a quick count
// of top-level entries, avoiding expensive recursive walks on NFS.
func (idx *Indexer) detectChanges() (bool, error) {
	start := time.Now()
	defer func() {
		metrics.IndexerPollDuration.Observe(time.Since(start).Seconds())
		metrics.IndexerPollChecksTotal.Inc()
	}()

	// Check if root directory has been modified
	rootInfo, err := os.Stat(idx.mediaDir)
	if err != nil {
		return false, fmt.Errorf("failed to stat media directory: %w", err)
	}

	idx.stateMu.RLock()
	lastRootModTime := idx.lastRootModTime
	lastTopLevelCount := idx.lastTopLevelCount
	idx.stateMu.RUnlock()

	// Check root directory modification time
	if rootInfo.ModTime().After(lastRootModTime) {
		logging.Debug("Root directory modified: %v > %v", rootInfo.ModTime(), lastRootModTime)
		metrics.IndexerPollChangesDetected.Inc()
		return true, nil
	}

	// Quick count of top-level entries (not recursive)
	entries, err := os.ReadDir(idx.mediaDir)
	if err != nil {
		return false, fmt.Errorf("failed to read media directory: %w", err)
	}

	topLevelCount := 0
	for _, entry := range entries {
		if !strings.HasPrefix(entry.Name(), ".") {
			topLevelCount++
		}
	}

	if topLevelCount != lastTopLevelCount {
		logging.Debug("Top-level count changed: %d -> %d", lastTopLevelCount, topLevelCount)
		metrics.IndexerPollChangesDetected.Inc()
		return true, nil
	}

	// Check a sample of subdirectories for modification
	if idx.checkSubdirectorySample(entries) {
		metrics.IndexerPollChangesDetected.Inc()
		return true, nil
	}

	return false, nil
}

// checkSubdirectorySample checks modification times of a sample of subdirectories.
// This catches changes in nested folders without walking the entire tree.
func (idx *Indexer) checkSubdirectorySample(entries []fs.DirEntry) bool {
	idx.stateMu.RLock()
	lastSubdirModTimes := idx.lastSubdirModTimes
	idx.stateMu.RUnlock()

	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}

		path := filepath.Join(idx.mediaDir, entry.Name())
		info, err := os.Stat(path)
		if err != nil {
			continue
		}

		if lastMod, exists := lastSubdirModTimes[entry.Name()]; exists {
			if info.ModTime().After(lastMod) {
				logging.Debug("Subdirectory %s modified: %v > %v", entry.Name(), info.ModTime(), lastMod)
				return true
			}
		} else {
			// New subdirectory
			logging.Debug("New subdirectory detected: %s", entry.Name())
			return true
		}
	}

	return false
}

// updateLastKnownState updates the cached state after indexing.
func (idx *Indexer) updateLastKnownState() {
	rootInfo, err := os.Stat(idx.mediaDir)
	if err != nil {
		logging.Warn("Failed to stat media directory for state update: %v", err)
		return
	}

	entries, err := os.ReadDir(idx.mediaDir)
	if err != nil {
		logging.Warn("Failed to read media directory for state update: %v", err)
		return
	}

	topLevelCount := 0
	subdirModTimes := make(map[string]time.Time)

	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		topLevelCount++

		if entry.IsDir() {
			path := filepath.Join(idx.mediaDir, entry.Name())
			if info, err := os.Stat(path); err == nil {
				subdirModTimes[entry.Name()] = info.ModTime()
			}
		}
	}

	idx.stateMu.Lock()
	idx.lastRootModTime = rootInfo.ModTime()
	idx.lastTopLevelCount = topLevelCount
	idx.lastSubdirModTimes = subdirModTimes
	idx.stateMu.Unlock()

	logging.Debug("Updated last known state: rootMod=%v, topLevel=%d, subdirs=%d",
		rootInfo.ModTime(), topLevelCount, len(subdirModTimes))
}

// Index performs a full indexing pass over the media directory. The pass is
// one write transaction: scan, reconcile, probe, resolve, prune, search
// refresh, then commit. Any pipeline-level error rolls the whole pass back;
// per-file probe failures are absorbed inside the pass.
func (idx *Indexer) Index() error {
	if !idx.tryStartIndexing() {
		logging.Info("Index already in progress, skipping...")
		return nil
	}
	defer idx.finishIndexing()

	metrics.IndexerIsRunning.Set(1)
	defer metrics.IndexerIsRunning.Set(0)
	metrics.IndexerRunsTotal.Inc()

	startTime := time.Now()
	logging.Info("Starting indexing pass...")

	idx.resetCounters(startTime)

	tx, err := idx.db.BeginBatch()
	if err != nil {
		metrics.IndexerErrors.Inc()
		return fmt.Errorf("failed to begin indexing transaction: %w", err)
	}

	err = idx.runPass(tx, startTime)
	if endErr := idx.db.EndBatch(tx, err); endErr != nil {
		metrics.IndexerErrors.Inc()
		return endErr
	}

	idx.finalizeIndex(startTime)

	// Update last known state for change detection
	idx.updateLastKnownState()

	metrics.IndexerLastRunTimestamp.Set(float64(time.Now().Unix()))
	metrics.IndexerLastRunDuration.Set(time.Since(startTime).Seconds())

	return nil
}

// runPass executes the pipeline stages inside the pass transaction.
func (idx *Indexer) runPass(tx *sql.Tx, startTime time.Time) error {
	scanStats, err := idx.scanner.Scan(tx)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}
	logging.Info("Scan found %d directories, %d files", scanStats.Directories, scanStats.Files)

	removed, err := idx.scanner.Reconcile(tx)
	if err != nil {
		return fmt.Errorf("reconciliation failed: %w", err)
	}
	if removed > 0 {
		logging.Info("Removed %d vanished filesystem rows", removed)
	}

	probed, err := idx.probeStale(tx, startTime)
	if err != nil {
		return fmt.Errorf("probing failed: %w", err)
	}
	logging.Info("Probed %d stale files", probed)

	associated, err := idx.resolver.Resolve(tx)
	if err != nil {
		return fmt.Errorf("sibling resolution failed: %w", err)
	}
	if associated > 0 {
		logging.Info("Resolved %d support file associations", associated)
	}

	pruned, err := idx.reconciler.Prune(tx)
	if err != nil {
		return fmt.Errorf("orphan sweep failed: %w", err)
	}
	if pruned > 0 {
		logging.Info("Pruned %d orphaned graph rows", pruned)
	}

	if err := idx.db.RefreshSearchIndex(tx); err != nil {
		return fmt.Errorf("search index refresh failed: %w", err)
	}

	return nil
}

// probeStale re-probes every file whose stored index time no longer matches
// its on-disk modification time. A changed file has its facet rows cleared
// first so stale tags cannot survive the rewrite. Per-file errors are logged
// and skipped; one corrupt file never aborts the pass.
func (idx *Indexer) probeStale(tx *sql.Tx, startTime time.Time) (int, error) {
	candidates, err := idx.db.StaleFiles(tx)
	if err != nil {
		return 0, err
	}

	probed := 0
	for _, c := range candidates {
		path := filepath.Join(idx.mediaDir, c.RelPath)
		info, err := filesystem.StatWithRetry(path, idx.retry)
		if err != nil {
			logging.Warn("Error accessing %s: %v", c.RelPath, err)
			metrics.IndexerErrors.Inc()
			continue
		}

		modTime := info.ModTime().UnixMilli()
		if c.File.IndexTime != nil && *c.File.IndexTime == modTime {
			continue
		}

		if err := idx.probeOne(tx, c, path, modTime); err != nil {
			logging.Warn("Error probing %s: %v", c.RelPath, err)
			metrics.IndexerErrors.Inc()
			continue
		}

		probed++
		idx.filesProbed.Add(1)
		metrics.IndexerFilesProbed.Inc()
		if probed%500 == 0 {
			idx.updateProgress(startTime)
			logging.Info("Probed %d files...", probed)
		}
	}

	idx.updateProgress(startTime)
	return probed, nil
}

// probeOne clears, probes and rebuilds one file's facet and entity links.
func (idx *Indexer) probeOne(tx *sql.Tx, c database.StaleFile, path string, modTime int64) error {
	if err := idx.db.ClearFileFacets(tx, c.File.ID); err != nil {
		return err
	}

	f, err := filesystem.OpenWithRetry(path, idx.retry)
	if err != nil {
		metrics.ProbeAttemptsTotal.WithLabelValues("none", "error").Inc()
		return errors.Join(err, idx.markProbeAttempt(tx, c.File.ID, modTime))
	}
	defer f.Close()

	res, err := probe.File(f, strings.ToLower(filepath.Ext(c.File.Name)))
	switch {
	case errors.Is(err, probe.ErrNotThisFormat):
		// Unrecognized content stays a plain file row.
		metrics.ProbeAttemptsTotal.WithLabelValues("none", "unmatched").Inc()
	case err != nil:
		metrics.ProbeAttemptsTotal.WithLabelValues("none", "error").Inc()
		return errors.Join(err, idx.markProbeAttempt(tx, c.File.ID, modTime))
	default:
		metrics.ProbeAttemptsTotal.WithLabelValues(facetName(res.Facet), "matched").Inc()
		if err := idx.builder.AddFile(tx, c.File.ID, c.File.Name, res); err != nil {
			return err
		}
	}

	return idx.db.SetFileIndexed(tx, c.File.ID, modTime)
}

// markProbeAttempt records the index time for a file whose probe failed with
// an I/O error. Without it an unreadable file would have its facets cleared
// and be re-probed on every pass; the mtime check still re-queues it once the
// content changes.
func (idx *Indexer) markProbeAttempt(tx *sql.Tx, fileID []byte, modTime int64) error {
	return idx.db.SetFileIndexed(tx, fileID, modTime)
}

// facetName maps a probe facet to its metrics label.
func facetName(f probe.Facet) string {
	switch f {
	case probe.FacetAudio:
		return "audio"
	case probe.FacetVideo:
		return "video"
	case probe.FacetImage:
		return "image"
	case probe.FacetSubtitle:
		return "subtitle"
	case probe.FacetMetadata:
		return "metadata"
	}
	return "unknown"
}

// tryStartIndexing attempts to start indexing, returns false if already in progress.
func (idx *Indexer) tryStartIndexing() bool {
	idx.indexMu.Lock()
	defer idx.indexMu.Unlock()

	if idx.isIndexing {
		return false
	}
	idx.isIndexing = true
	return true
}

// finishIndexing marks indexing as complete.
func (idx *Indexer) finishIndexing() {
	idx.indexMu.Lock()
	defer idx.indexMu.Unlock()

	idx.isIndexing = false
	idx.initialIndexComplete = true
}

// resetCounters resets the indexing counters.
func (idx *Indexer) resetCounters(startTime time.Time) {
	idx.filesProbed.Store(0)
	idx.indexProgress.Store(IndexProgress{
		IsIndexing: true,
		StartedAt:  startTime,
	})
}

// updateProgress updates the indexing progress.
func (idx *Indexer) updateProgress(startTime time.Time) {
	idx.indexProgress.Store(IndexProgress{
		FilesProbed: idx.filesProbed.Load(),
		IsIndexing:  true,
		StartedAt:   startTime,
	})
}

// finalizeIndex completes the indexing process and updates stats.
func (idx *Indexer) finalizeIndex(startTime time.Time) {
	duration := time.Since(startTime)

	idx.indexMu.Lock()
	idx.lastIndexTime = time.Now()
	idx.indexMu.Unlock()

	idx.indexProgress.Store(IndexProgress{
		FilesProbed: idx.filesProbed.Load(),
		IsIndexing:  false,
	})

	stats, err := idx.db.CalculateStats(context.Background())
	if err != nil {
		logging.Warn("Failed to calculate library stats: %v", err)
	}
	stats.LastIndexed = idx.lastIndexTime
	stats.IndexDuration = duration.String()
	idx.db.UpdateStats(stats)
	idx.db.UpdateDBMetrics()

	logging.Info("Indexing pass complete: %d files probed in %v", idx.filesProbed.Load(), duration)

	if idx.onIndexComplete != nil {
		idx.onIndexComplete()
	}
}

func (idx *Indexer) periodicIndex() {
	ticker := time.NewTicker(idx.indexInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			logging.Debug("Periodic re-index triggered")
			if err := idx.Index(); err != nil {
				logging.Error("periodic re-index failed: %v", err)
			}
		case <-idx.stopChan:
			return
		}
	}
}

// IsIndexing returns whether an index operation is currently in progress.
func (idx *Indexer) IsIndexing() bool {
	idx.indexMu.Lock()
	defer idx.indexMu.Unlock()
	return idx.isIndexing
}

// LastIndexTime returns the time of the last completed index operation.
func (idx *Indexer) LastIndexTime() time.Time {
	idx.indexMu.Lock()
	defer idx.indexMu.Unlock()
	return idx.lastIndexTime
}

// TriggerIndex manually triggers a re-index.
func (idx *Indexer) TriggerIndex() {
	go func() {
		if err := idx.Index(); err != nil {
			logging.Error("manually triggered re-index failed: %v", err)
		}
	}()
}

// GetProgress returns the current indexing progress.
func (idx *Indexer) GetProgress() IndexProgress {
	return idx.getProgress()
}
