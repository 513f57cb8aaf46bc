// API binary: loads configuration, wires dependencies and serves HTTP.
package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/global-partner-dev/cocoa-judging/internal/app/contest"
	"github.com/global-partner-dev/cocoa-judging/internal/app/evaluation"
	"github.com/global-partner-dev/cocoa-judging/internal/app/httpapi"
	"github.com/global-partner-dev/cocoa-judging/internal/app/ranking"
	"github.com/global-partner-dev/cocoa-judging/internal/app/scoring"
	"github.com/global-partner-dev/cocoa-judging/internal/domain"
	"github.com/global-partner-dev/cocoa-judging/internal/platform/clock"
	"github.com/global-partner-dev/cocoa-judging/internal/platform/config"
	"github.com/global-partner-dev/cocoa-judging/internal/platform/health"
	"github.com/global-partner-dev/cocoa-judging/internal/platform/ids"
	"github.com/global-partner-dev/cocoa-judging/internal/platform/logger"
	"github.com/global-partner-dev/cocoa-judging/internal/platform/migrations"
	postgresstorage "github.com/global-partner-dev/cocoa-judging/internal/platform/storage/postgres"
	redisstorage "github.com/global-partner-dev/cocoa-judging/internal/platform/storage/redis"
	"github.com/global-partner-dev/cocoa-judging/internal/platform/throttle"
	"github.com/global-partner-dev/cocoa-judging/internal/platform/tracking"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("invalid configuration", "err", err)
	}

	// The shared connection serves the whole lifecycle: pool reuse and readiness.
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
		// Automatic migrations only run when enabled, to avoid production surprises.
		if err := migrations.Run(db); err != nil {
			logger.Fatal("automatic migration failed", "err", err)
		}
	}

	// Redis carries the recompute queue, progress counters and the throttle.
	redisClient, err := redisstorage.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Fatal("failed to connect to redis", "err", err)
	}
	defer redisClient.Close()

	contestRepo := postgresstorage.NewContestRepository(db)
	sampleRepo := postgresstorage.NewSampleRepository(db)
	physicalRepo := postgresstorage.NewPhysicalEvaluationRepository(db)
	evalRepo := postgresstorage.NewEvaluationRepository(db)
	resultRepo := postgresstorage.NewTopResultRepository(db)
	counters := redisstorage.NewCounters(redisClient, cfg.CounterKeyPrefix)
	queue := redisstorage.NewRecomputeQueue(redisClient, cfg.QueueKeyPrefix)
	clockSystem := clock.NewSystemClock()
	idGen := ids.NewGenerator()
	codeGen := tracking.NewGenerator()

	var limiter domain.Throttle = throttle.NewNoop()
	if cfg.ThrottleEnabled {
		window := time.Duration(cfg.ThrottleWindowSeconds) * time.Second
		limiter = throttle.NewRedisRateLimiter(redisClient, cfg.ThrottleMaxActions, window, cfg.ThrottleKeyPrefix)
	}

	outlierCfg := scoring.OutlierConfig{
		SigmaThreshold:        cfg.OutlierSigmaThreshold,
		MinEvaluations:        cfg.OutlierMinEvaluations,
		Strategy:              scoring.OutlierStrategy(cfg.OutlierStrategy),
		WeightReductionFactor: cfg.OutlierWeightFactor,
	}

	aggregator := ranking.NewAggregator(contestRepo, evalRepo, resultRepo, idGen, outlierCfg)
	contestService := contest.NewService(contestRepo, sampleRepo, clockSystem, idGen, codeGen)
	evaluationService := evaluation.NewService(
		sampleRepo,
		contestRepo,
		physicalRepo,
		evalRepo,
		counters,
		queue,
		limiter,
		aggregator,
		clockSystem,
		idGen,
	)

	mux := http.NewServeMux()
	checker := health.NewChecker(sqlDB, redisClient)

	// HTTP exposes the API, health checks and Prometheus metrics.
	api := httpapi.New(contestService, evaluationService, aggregator, cfg.ResultsTopN, logger.L())
	api.Register(mux)
	mux.HandleFunc("/readyz", checker.ReadyHandler())
	mux.Handle("/metrics", promhttp.Handler())

	logger.Info("api listening", "addr", cfg.HTTPAddress)
	if err := http.ListenAndServe(cfg.HTTPAddress, mux); err != nil {
		logger.Fatal("server error", "err", err)
	}
}
