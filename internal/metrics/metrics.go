package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_library_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_library_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_library_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_library_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_library_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	DBTransactionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_library_db_transaction_duration_seconds",
			Help:    "Write transaction duration in seconds by outcome",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
		},
		[]string{"outcome"},
	)

	DBRowsAffected = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_library_db_rows_affected",
			Help:    "Rows affected by write operations",
			Buckets: []float64{1, 10, 100, 1000, 10000},
		},
		[]string{"operation"},
	)

	DBConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_library_db_connections_open",
			Help: "Number of open database connections",
		},
	)
)

// Indexer metrics
var (
	IndexerRunsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_library_indexer_runs_total",
			Help: "Total number of indexing passes",
		},
	)

	IndexerIsRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_library_indexer_running",
			Help: "Whether an indexing pass is currently running (1 or 0)",
		},
	)

	IndexerLastRunTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_library_indexer_last_run_timestamp_seconds",
			Help: "Unix timestamp of the last completed indexing pass",
		},
	)

	IndexerLastRunDuration = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_library_indexer_last_run_duration_seconds",
			Help: "Duration of the last indexing pass in seconds",
		},
	)

	IndexerFilesProbed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_library_indexer_files_probed_total",
			Help: "Total number of files probed",
		},
	)

	IndexerErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_library_indexer_errors_total",
			Help: "Total number of indexing errors",
		},
	)

	IndexerEntitiesPruned = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_library_indexer_entities_pruned_total",
			Help: "Entities removed by the reconciliation sweep, by table",
		},
		[]string{"table"},
	)

	IndexerPollDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "media_library_indexer_poll_duration_seconds",
			Help:    "Duration of change-detection polls",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5},
		},
	)

	IndexerPollChecksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_library_indexer_poll_checks_total",
			Help: "Total number of change-detection polls",
		},
	)

	IndexerPollChangesDetected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_library_indexer_poll_changes_detected_total",
			Help: "Total number of polls that detected a filesystem change",
		},
	)
)

// Probe metrics
var (
	ProbeAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_library_probe_attempts_total",
			Help: "Probe outcomes by facet",
		},
		[]string{"facet", "status"},
	)
)

// Affinity metrics
var (
	AffinityUpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_library_affinity_updates_total",
			Help: "Affinity row updates by entity kind",
		},
		[]string{"kind"},
	)

	PlaybackEventsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_library_playback_events_total",
			Help: "Playback events received",
		},
	)
)

// Watcher metrics
var (
	WatcherEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_library_watcher_events_total",
			Help: "Filesystem watcher events by type",
		},
		[]string{"type"},
	)

	WatcherErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_library_watcher_errors_total",
			Help: "Filesystem watcher errors",
		},
	)

	WatchedDirectories = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_library_watched_directories",
			Help: "Directories currently registered with the filesystem watcher",
		},
	)
)

// Filesystem retry metrics (NFS stale handle handling)
var (
	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_library_filesystem_retry_attempts_total",
			Help: "Filesystem operation retries by operation and volume",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_library_filesystem_retry_success_total",
			Help: "Filesystem operations that succeeded after retry",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_library_filesystem_retry_failures_total",
			Help: "Filesystem operations that failed after all retries",
		},
		[]string{"operation", "volume"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_library_filesystem_stale_errors_total",
			Help: "NFS stale file handle errors observed",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_library_filesystem_retry_duration_seconds",
			Help:    "Total duration of filesystem operations including retries",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 2},
		},
		[]string{"operation", "volume"},
	)
)
