// Package logger holds the process-wide structured logger shared by the API
// and worker binaries. Output is JSON on stdout; the level is set once at
// boot from config.
package logger

import (
	"log/slog"
	"os"
)

var (
	defaultLogger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
)

// L exposes the shared logger for constructors that take a *slog.Logger
// instead of using the package-level helpers.
func L() *slog.Logger {
	return defaultLogger
}

func SetLevel(level slog.Level) {
	defaultLogger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

func Info(msg string, args ...any) {
	defaultLogger.Info(msg, args...)
}

func Error(msg string, args ...any) {
	defaultLogger.Error(msg, args...)
}

// Fatal logs and exits. Reserved for boot-time wiring failures in main.
func Fatal(msg string, args ...any) {
	defaultLogger.Error(msg, args...)
	os.Exit(1)
}
