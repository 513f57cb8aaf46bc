// Package config centralizes the environment variables consumed by the
// binaries.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config aggregates every parameter needed by the API and the worker.
type Config struct {
	HTTPAddress string

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	QueueKeyPrefix   string
	CounterKeyPrefix string

	ThrottleEnabled       bool
	ThrottleMaxActions    int
	ThrottleWindowSeconds int
	ThrottleKeyPrefix     string

	OutlierSigmaThreshold float64
	OutlierMinEvaluations int
	OutlierStrategy       string
	OutlierWeightFactor   float64

	ResultsTopN int

	AutoMigrate bool

	WorkerMetricsAddress string
}

func Load() (Config, error) {
	// Defaults favor local runs; variables override for Docker/K8s.
	cfg := Config{
		HTTPAddress:           getEnv("HTTP_ADDRESS", ":8080"),
		PostgresHost:          getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:          getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:          getEnv("POSTGRES_USER", "cocoa"),
		PostgresPassword:      getEnv("POSTGRES_PASSWORD", "cocoa"),
		PostgresDB:            getEnv("POSTGRES_DB", "cocoa_judging"),
		PostgresSSLMode:       getEnv("POSTGRES_SSLMODE", "disable"),
		RedisAddr:             getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:         os.Getenv("REDIS_PASSWORD"),
		QueueKeyPrefix:        getEnv("REDIS_QUEUE_PREFIX", "queue:recompute"),
		CounterKeyPrefix:      getEnv("REDIS_COUNTER_PREFIX", "counter"),
		ThrottleEnabled:       getEnv("THROTTLE_ENABLED", "true") == "true",
		ThrottleMaxActions:    getEnvAsInt("THROTTLE_MAX", 60),
		ThrottleWindowSeconds: getEnvAsInt("THROTTLE_WINDOW", 60),
		ThrottleKeyPrefix:     getEnv("THROTTLE_PREFIX", "throttle"),
		OutlierSigmaThreshold: getEnvAsFloat("OUTLIER_SIGMA_THRESHOLD", 2.0),
		OutlierMinEvaluations: getEnvAsInt("OUTLIER_MIN_EVALUATIONS", 3),
		OutlierStrategy:       getEnv("OUTLIER_STRATEGY", "reduce_weight"),
		OutlierWeightFactor:   getEnvAsFloat("OUTLIER_WEIGHT_FACTOR", 0.5),
		ResultsTopN:           getEnvAsInt("RESULTS_TOP_N", 10),
		AutoMigrate:           getEnvAsBool("DB_AUTO_MIGRATE", true),
		WorkerMetricsAddress:  getEnv("WORKER_METRICS_ADDRESS", ":9090"),
	}

	dbStr := getEnv("REDIS_DB", "0")
	dbInt, err := strconv.Atoi(dbStr)
	if err != nil {
		return Config{}, fmt.Errorf("config: invalid REDIS_DB: %w", err)
	}
	cfg.RedisDB = dbInt

	return cfg, nil
}

func (c Config) PostgresDSN() string {
	// DSN format stays compatible with GORM and migration tooling.
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.PostgresUser,
		c.PostgresPassword,
		c.PostgresHost,
		c.PostgresPort,
		c.PostgresDB,
		c.PostgresSSLMode,
	)
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getEnvAsInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return i
}

func getEnvAsFloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return f
}

func getEnvAsBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	switch value {
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return true
	}
}
