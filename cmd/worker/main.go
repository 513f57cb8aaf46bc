// Asynchronous worker: consumes recompute jobs from the queue and rebuilds
// contest leaderboards, with metrics exposed on a side listener.
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/global-partner-dev/cocoa-judging/internal/app/ranking"
	"github.com/global-partner-dev/cocoa-judging/internal/app/scoring"
	"github.com/global-partner-dev/cocoa-judging/internal/app/worker"
	"github.com/global-partner-dev/cocoa-judging/internal/domain"
	"github.com/global-partner-dev/cocoa-judging/internal/platform/config"
	"github.com/global-partner-dev/cocoa-judging/internal/platform/health"
	"github.com/global-partner-dev/cocoa-judging/internal/platform/ids"
	"github.com/global-partner-dev/cocoa-judging/internal/platform/logger"
	"github.com/global-partner-dev/cocoa-judging/internal/platform/migrations"
	postgresstorage "github.com/global-partner-dev/cocoa-judging/internal/platform/storage/postgres"
	redisstorage "github.com/global-partner-dev/cocoa-judging/internal/platform/storage/redis"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("invalid configuration", "err", err)
	}

	// The worker shares the API's GORM setup so migrations and models match.
	db, err := postgresstorage.Open(ctx, cfg.PostgresDSN())
	if err != nil {
		logger.Fatal("failed to connect to postgres", "err", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("failed to get sql.DB", "err", err)
	}
	defer sqlDB.Close()

	if cfg.AutoMigrate {
		// Same conditional migration as the API to avoid schema drift.
		if err := migrations.Run(db); err != nil {
			logger.Fatal("automatic migration failed", "err", err)
		}
	}

	redisClient, err := redisstorage.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Fatal("failed to connect to redis", "err", err)
	}
	defer redisClient.Close()

	queue := redisstorage.NewRecomputeQueue(redisClient, cfg.QueueKeyPrefix)
	checker := health.NewChecker(sqlDB, redisClient)

	if cfg.WorkerMetricsAddress != "" {
		go func() {
			// Metrics keep observability up while the main goroutine drains the queue.
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			mux.HandleFunc("/readyz", checker.ReadyHandler())
			logger.Info("worker metrics listening", "addr", cfg.WorkerMetricsAddress)
			if err := http.ListenAndServe(cfg.WorkerMetricsAddress, mux); err != nil {
				logger.Error("worker metrics server error", "err", err)
			}
		}()
	}

	contestRepo := postgresstorage.NewContestRepository(db)
	evalRepo := postgresstorage.NewEvaluationRepository(db)
	resultRepo := postgresstorage.NewTopResultRepository(db)

	outlierCfg := scoring.OutlierConfig{
		SigmaThreshold:        cfg.OutlierSigmaThreshold,
		MinEvaluations:        cfg.OutlierMinEvaluations,
		Strategy:              scoring.OutlierStrategy(cfg.OutlierStrategy),
		WeightReductionFactor: cfg.OutlierWeightFactor,
	}

	aggregator := ranking.NewAggregator(contestRepo, evalRepo, resultRepo, ids.NewGenerator(), outlierCfg)
	processor := worker.NewRecomputeProcessor(aggregator)

	logger.Info("worker started, waiting for recompute jobs")
	err = queue.ConsumeRecomputes(ctx, func(ctx context.Context, contestID domain.ContestID) error {
		// One job at a time keeps the per-contest single-writer semantics.
		if err := processor.Process(ctx, contestID); err != nil {
			logger.Error("failed to process recompute", "contest", contestID, "err", err)
		}
		return nil
	})

	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		logger.Fatal("worker stopped with error", "err", err)
	}

	logger.Info("worker stopped")
}
