package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/chronicare-ai/platform/pkg/api/auth"
	"github.com/chronicare-ai/platform/pkg/api/middleware"
	"github.com/chronicare-ai/platform/pkg/api/routes"
	"github.com/chronicare-ai/platform/pkg/cohort"
	"github.com/chronicare-ai/platform/pkg/common/config"
	"github.com/chronicare-ai/platform/pkg/common/database"
	"github.com/chronicare-ai/platform/pkg/common/kafka"
	"github.com/chronicare-ai/platform/pkg/common/logger"
	"github.com/chronicare-ai/platform/pkg/common/models"
	"github.com/chronicare-ai/platform/pkg/observability/metrics"
	"github.com/chronicare-ai/platform/pkg/snapshot"
)

const apiVersion = "1.0.0"

func main() {
	logger.Init()
	metrics.Init()
	cfg := config.Load()

	handle := snapshot.NewHandle()
	store := snapshot.NewFileStore(cfg.SnapshotPath)
	loadInitialSnapshot(store, handle)

	var mirror *snapshot.RedisMirror
	if client := database.GetRedis(); client != nil {
		mirror = snapshot.NewRedisMirror(client, cfg.SnapshotTTL, cfg.DetailCacheTTL)
	}

	service := cohort.NewQueryService(handle)

	oidcAuth, err := auth.NewOIDCAuthenticator(cfg.OIDCIssuer, cfg.OIDCClientID, cfg.OIDCClientSecret)
	if err != nil {
		logger.Log.WithError(err).Warn("OIDC authentication not configured, running without auth")
	}

	router := mux.NewRouter()
	router.Use(middleware.Logging)
	router.Use(middleware.Recovery)
	router.Use(middleware.CORS)
	if oidcAuth != nil {
		router.Use(middleware.Authenticate(oidcAuth))
	}

	routes.NewSystemHandler(service, apiVersion).Register(router)
	routes.NewPatientsHandler(service, mirror).Register(router)

	// Hot reload: a published snapshot event triggers a re-read of the
	// artifact and an atomic swap. In-flight requests finish on the old
	// version.
	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	defer stopConsumer()
	go consumeSnapshotEvents(consumerCtx, cfg, store, handle)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host": cfg.ServerHost,
			"port": cfg.ServerPort,
		}).Info("Risk API started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down Risk API...")
	stopConsumer()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Log.WithError(err).Error("Server forced to shutdown")
	}

	logger.Log.Info("Risk API stopped")
}

func loadInitialSnapshot(store *snapshot.FileStore, handle *snapshot.Handle) {
	snap, err := store.Load()
	if err != nil {
		logger.Log.WithError(err).Warn("No snapshot loaded at startup, serving 503 until one arrives")
		return
	}
	version := handle.Install(snap)
	observeSnapshot(snap, version)
	logger.Log.WithFields(map[string]interface{}{
		"total_patients": snap.Metadata.TotalPatients,
		"generated_at":   snap.Metadata.GeneratedAt,
	}).Info("Snapshot loaded")
}

func consumeSnapshotEvents(ctx context.Context, cfg *config.Config, store *snapshot.FileStore, handle *snapshot.Handle) {
	consumer := kafka.NewConsumer(cfg.SnapshotEventTopic, cfg.KafkaGroupID)
	defer consumer.Close()

	err := consumer.Consume(ctx, func(ctx context.Context, event models.Event) error {
		if event.Type != "snapshot.published" {
			return nil
		}
		snap, err := store.Load()
		if err != nil {
			logger.Log.WithError(err).Error("snapshot reload failed, keeping current version")
			return nil
		}
		version := handle.Install(snap)
		observeSnapshot(snap, version)
		logger.Log.WithFields(map[string]interface{}{
			"snapshot_version": version,
			"total_patients":   snap.Metadata.TotalPatients,
		}).Info("Snapshot swapped")
		return nil
	})
	if err != nil && ctx.Err() == nil {
		logger.Log.WithError(err).Warn("snapshot event consumer stopped")
	}
}

func observeSnapshot(snap *models.Snapshot, version uint64) {
	metrics.ObserveSnapshot(
		version,
		snap.Metadata.TotalPatients,
		snap.Metadata.ExcludedMalformed,
		snap.Metadata.ExcludedIneligible,
		snap.Metadata.ScoringFailures,
		0,
	)
}
