package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

var (
	defaultLogger *slog.Logger
	level         = new(slog.LevelVar)
)

func Init(env string) {
	InitWith(env, "", os.Stdout)
}

// InitWith builds the process logger. An empty format picks json in
// production and text elsewhere.
func InitWith(env, format string, w io.Writer) {
	var handler slog.Handler

	if format == "" {
		format = "text"
		if env == "production" {
			format = "json"
		}
	}
	if env == "production" {
		level.Set(slog.LevelInfo)
	} else {
		level.Set(slog.LevelDebug)
	}

	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	defaultLogger = slog.New(handler)
	slog.SetDefault(defaultLogger)
}

// SetLevel changes the level of the process logger; unknown names are ignored.
func SetLevel(name string) {
	switch strings.ToLower(name) {
	case "debug":
		level.Set(slog.LevelDebug)
	case "info":
		level.Set(slog.LevelInfo)
	case "warn", "warning":
		level.Set(slog.LevelWarn)
	case "error":
		level.Set(slog.LevelError)
	}
}

func LoggerWrapper() *slog.Logger {
	if defaultLogger == nil {
		// lazy initialize a development logger to avoid nil pointer panics
		Init("development")
	}
	return defaultLogger
}
