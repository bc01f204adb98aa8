package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/inngest/inngestgo"

	"clubsync/internal/club"
	"clubsync/internal/config"
	"clubsync/internal/database"
	"clubsync/internal/hub"
	server "clubsync/internal/http"
	inngestclient "clubsync/internal/inngest"
	"clubsync/internal/livestore"
	"clubsync/internal/metrics"
	"clubsync/internal/notifier/slack"
	"clubsync/internal/processor"
	"clubsync/internal/pubsub"
)

// streamEvents forwards relay stream lifecycle events to the processor so
// every broadcast start and stop is announced and published.
type streamEvents struct {
	processor *processor.Processor
}

func (s *streamEvents) StreamStarted(matchID, sessionID string) {
	s.processor.RecordStreamStarted(matchID, sessionID, false)
}

func (s *streamEvents) StreamStopped(matchID, sessionID string) {
	s.processor.RecordStreamStopped(matchID, sessionID, false)
}

func main() {
	// Start profiling timer
	startTime := time.Now()
	log.SetFormatter(log.JSONFormatter)
	cfg := config.Load()
	db, dbTeardown, err := database.InitDB(cfg.DBName, cfg.Turso.PrimaryURL, cfg.Turso.AuthToken, cfg.MigrationsDir)
	dbInitDuration := time.Since(startTime)
	log.Info("Database initialization time recorded", "duration_ms", dbInitDuration.Milliseconds())
	if err != nil {
		log.Fatalf("Failed to initialize database: %s", err)
	}
	defer func() {
		log.Info("Closing database connection")
		dbTeardown()
	}()

	dev := true
	options := inngestgo.ClientOpts{
		AppID:      cfg.Inngest.AppID,
		SigningKey: &cfg.Inngest.SigningKey,
		EventKey:   &cfg.Inngest.EventKey,
		Dev:        &dev,
	}
	inngestProvider, err := inngestgo.NewClient(options)
	if err != nil {
		log.Fatalf("Failed to initialize inngest: %s", err)
	}
	inngestClient := inngestclient.New(inngestProvider)

	clubStore := club.New(db)
	liveStore := livestore.New(db)
	metricsSvc := metrics.NewService()
	metricsHandler := metrics.NewMetricsHandler()
	notifier := slack.NewNotifier(cfg.Slack.Token, cfg.Slack.ChannelID, metricsSvc)
	pubsub := pubsub.New(cfg.ProjectID)
	proc := processor.New(liveStore, notifier, metricsSvc, pubsub, inngestClient)
	matchHub := hub.New()
	matchHub.SetStreamListener(&streamEvents{processor: proc})

	s := server.NewServer(
		clubStore,
		liveStore,
		metricsSvc,
		metricsHandler,
		cfg,
		notifier,
		proc,
		matchHub,
		pubsub,
		inngestClient,
	)

	// --- Record startup time ---
	startupDuration := time.Since(startTime)
	metricsSvc.SetStartupTime(startupDuration.Seconds())
	log.Info("Startup time recorded", "duration_ms", startupDuration.Milliseconds())

	// --- Graceful shutdown setup ---
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: s,
	}

	// Channel to listen for errors coming from the server
	serverErrors := make(chan error, 1)

	// Start the server in a goroutine
	go func() {
		log.Info("Server started", "port", cfg.Port)
		serverErrors <- srv.ListenAndServe()
	}()

	// Channel to listen for interrupt signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a signal or an error
	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	case sig := <-shutdown:
		log.Info("Shutdown signal received", "signal", sig)

		// Create a context with a timeout for the shutdown.
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		// Attempt to gracefully shut down the server.
		if err := srv.Shutdown(ctx); err != nil {
			log.Error("Server shutdown failed", "error", err)
		} else {
			log.Info("Server gracefully stopped")
		}
	}

	log.Info("Server process shutting down")
}
