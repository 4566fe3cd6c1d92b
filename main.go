package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"media-library/internal/database"
	"media-library/internal/filesystem"
	"media-library/internal/handlers"
	"media-library/internal/indexer"
	"media-library/internal/logging"
	"media-library/internal/middleware"
	"media-library/internal/startup"
	"media-library/internal/watcher"

	"github.com/gorilla/mux"
)

func main() {
	startTime := time.Now()

	// Load configuration
	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	// Label filesystem retry metrics per volume
	filesystem.SetDefaultVolumeResolver(filesystem.NewVolumeResolver(map[string]string{
		"media":    config.MediaDir,
		"database": filepath.Dir(config.DatabasePath),
	}))

	// Initialize database
	dbStart := time.Now()
	db, err := database.New(context.Background(), config.DatabasePath)
	if err != nil {
		startup.LogFatal("Failed to initialize database: %v", err)
	}
	defer db.Close()
	startup.LogDatabaseInit(time.Since(dbStart))

	// Initialize indexer
	startup.LogIndexerInit(config.IndexInterval)
	idx := indexer.New(db, config.MediaDir, config.IndexInterval)
	idx.SetPollInterval(config.PollInterval)

	// Start indexer in background (non-blocking)
	go func() {
		if err := idx.Start(); err != nil {
			logging.Error("Failed to start indexer: %v", err)
		}
	}()
	startup.LogIndexerStarted()

	// Initialize filesystem watcher
	var w *watcher.Watcher
	if config.WatchEnabled {
		w = watcher.New(config.MediaDir, idx.TriggerIndex)
		w.Start()
	}
	startup.LogWatcherInit(config.WatchEnabled)

	// Initialize handlers
	h := handlers.New(db, idx, config)

	// Setup router
	router := setupRouter(h)

	// Log routes dynamically
	startup.LogHTTPRoutes(router, config.LogHealthChecks)

	// Apply compression middleware
	compressedRouter := middleware.Compression(middleware.DefaultCompressionConfig())(router)

	// Apply metrics middleware
	meteredRouter := middleware.Metrics(middleware.DefaultMetricsConfig())(compressedRouter)

	// Apply logging middleware
	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	handler := middleware.Logger(loggingConfig)(meteredRouter)

	// Create server
	srv := &http.Server{
		Addr:         ":" + config.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start metrics server on its own port
	var metricsSrv *http.Server
	if config.MetricsEnabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", h.MetricsHandler())
		metricsSrv = &http.Server{
			Addr:         ":" + config.MetricsPort,
			Handler:      metricsMux,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
		}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != http.ErrServerClosed {
				logging.Error("Metrics server error: %v", err)
			}
		}()
	}

	// Start graceful shutdown handler
	go handleShutdown(srv, metricsSrv, idx, w)

	// Start server
	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		startup.LogFatal("Server error: %v", err)
	}
}

func setupRouter(h *handlers.Handlers) *mux.Router {
	r := mux.NewRouter()

	// Health check and version routes
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods("GET")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/version", h.GetVersion).Methods("GET")
	api.HandleFunc("/stats", h.GetStats).Methods("GET")
	api.HandleFunc("/index", h.TriggerReindex).Methods("POST")
	api.HandleFunc("/search", h.Search).Methods("GET")
	api.HandleFunc("/playback", h.RecordPlayback).Methods("POST")
	api.HandleFunc("/files/{id}/path", h.GetFilePath).Methods("GET")

	// Audio hierarchy
	audio := api.PathPrefix("/audio").Subrouter()
	audio.HandleFunc("/artists", h.ListArtists).Methods("GET")
	audio.HandleFunc("/artists/{id}", h.GetArtist).Methods("GET")
	audio.HandleFunc("/albums/{id}", h.GetAlbum).Methods("GET")
	audio.HandleFunc("/tracks/{id}", h.GetTrack).Methods("GET")

	// Video hierarchy
	video := api.PathPrefix("/video").Subrouter()
	video.HandleFunc("/shows", h.ListShows).Methods("GET")
	video.HandleFunc("/shows/{id}", h.GetShow).Methods("GET")
	video.HandleFunc("/seasons/{id}/episodes", h.GetSeasonEpisodes).Methods("GET")
	video.HandleFunc("/episodes/{id}", h.GetEpisode).Methods("GET")
	video.HandleFunc("/movies", h.ListMovies).Methods("GET")
	video.HandleFunc("/movies/{id}", h.GetMovie).Methods("GET")

	// Shared dimensions
	api.HandleFunc("/years/{year}", h.GetYear).Methods("GET")

	return r
}

func handleShutdown(srv, metricsSrv *http.Server, idx *indexer.Indexer, w *watcher.Watcher) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if w != nil {
		startup.LogShutdownStep("Stopping filesystem watcher")
		w.Stop()
		startup.LogShutdownStepComplete("Filesystem watcher stopped")
	}

	startup.LogShutdownStep("Stopping indexer")
	idx.Stop()
	startup.LogShutdownStepComplete("Indexer stopped")

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	if metricsSrv != nil {
		startup.LogShutdownStep("Shutting down metrics server")
		if err := metricsSrv.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Metrics server stopped")
		}
	}

	startup.LogShutdownComplete()
}
