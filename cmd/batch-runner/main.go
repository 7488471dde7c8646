package main

import (
	"context"
	"os"
	"time"

	"github.com/chronicare-ai/platform/pkg/batch"
	"github.com/chronicare-ai/platform/pkg/common/config"
	"github.com/chronicare-ai/platform/pkg/common/database"
	"github.com/chronicare-ai/platform/pkg/common/kafka"
	"github.com/chronicare-ai/platform/pkg/common/logger"
	"github.com/chronicare-ai/platform/pkg/ehr"
	"github.com/chronicare-ai/platform/pkg/features"
	"github.com/chronicare-ai/platform/pkg/model"
	"github.com/chronicare-ai/platform/pkg/observability/metrics"
	"github.com/chronicare-ai/platform/pkg/snapshot"
)

func main() {
	logger.Init()
	metrics.Init()
	cfg := config.Load()

	thresholds, err := features.LoadThresholds(cfg.ThresholdsPath)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to load clinical thresholds")
	}
	rules, err := features.LoadConditionRules(cfg.ConditionRulesPath)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to load condition rules")
	}
	pipeline := features.NewPipeline(thresholds, rules)

	scorer := model.NewTimeoutScorer(model.NewLinearScorer(cfg.ModelArtifactPath), cfg.ModelTimeout)

	source, recordStore, opts := buildCollaborators(cfg)
	opts = append(opts, batch.WithStore(snapshot.NewFileStore(cfg.SnapshotPath)))

	runner := batch.NewRunner(pipeline, scorer, snapshot.NewHandle(), cfg.BatchWorkers, opts...)

	ctx := context.Background()
	records, err := source.Load(ctx)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to load raw records")
	}
	if len(records) == 0 {
		logger.Log.Fatal("No raw records to score")
	}
	// CSV runs mirror the extract into postgres so later runs can read from
	// the database directly.
	if cfg.RawSource == "csv" && recordStore != nil {
		if err := recordStore.Upsert(ctx, records); err != nil {
			logger.Log.WithError(err).Warn("Failed to mirror extract into postgres")
		}
	}

	start := time.Now()
	snap, version, err := runner.Run(ctx, records)
	if err != nil {
		logger.Log.WithError(err).Error("Scoring batch failed")
		os.Exit(1)
	}
	metrics.ObserveSnapshot(
		version,
		snap.Metadata.TotalPatients,
		snap.Metadata.ExcludedMalformed,
		snap.Metadata.ExcludedIneligible,
		snap.Metadata.ScoringFailures,
		time.Since(start).Milliseconds(),
	)

	logger.Log.WithFields(map[string]interface{}{
		"snapshot_path":  cfg.SnapshotPath,
		"total_patients": snap.Metadata.TotalPatients,
		"cohort_auroc":   snap.Metadata.CohortAUROC,
		"cohort_auprc":   snap.Metadata.CohortAUPRC,
	}).Info("Snapshot written")
}

// buildCollaborators wires the configured record source and the optional
// run ledger, event bus and redis mirror. Anything that fails to connect
// downgrades the run to file-only output instead of aborting it.
func buildCollaborators(cfg *config.Config) (ehr.Source, *ehr.Repository, []batch.RunnerOption) {
	var opts []batch.RunnerOption

	if cfg.ExplainSampleSize > 0 {
		opts = append(opts, batch.WithExplainSample(cfg.ExplainSampleSize))
	}

	var source ehr.Source
	if cfg.RawSource == "csv" {
		source = ehr.NewCSVSource(cfg.RawCSVPath)
	}

	var recordStore *ehr.Repository
	db, err := database.GetPostgres()
	if err != nil || db == nil {
		logger.Log.Warn("Postgres unavailable, skipping run ledger")
		if source == nil {
			logger.Log.Fatal("Postgres record source configured but unreachable")
		}
	} else {
		repo := batch.NewRepository(db)
		if err := repo.AutoMigrate(); err != nil {
			logger.Log.WithError(err).Warn("run ledger migration failed")
		} else {
			opts = append(opts, batch.WithRepository(repo))
		}
		recordStore = ehr.NewRepository(db)
		if err := recordStore.AutoMigrate(); err != nil {
			logger.Log.WithError(err).Fatal("ehr schema migration failed")
		}
		if source == nil {
			source = recordStore
		}
	}

	producer := kafka.NewProducer(cfg.SnapshotEventTopic)
	opts = append(opts, batch.WithPublisher(producer))

	if client := database.GetRedis(); client != nil {
		mirror := snapshot.NewRedisMirror(client, cfg.SnapshotTTL, cfg.DetailCacheTTL)
		opts = append(opts, batch.WithMirror(mirror))
	}

	return source, recordStore, opts
}
