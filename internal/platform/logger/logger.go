package logger

import (
	"log/slog"
	"os"
)

// New returns a JSON slog logger writing to stdout. Level is debug outside
// production so local runs show the full decision trail.
func New(env string) *slog.Logger {
	level := slog.LevelDebug
	if env == "prod" {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

// Err returns a slog.Attr with key "error" so error fields stay uniform
// across the codebase.
func Err(err error) slog.Attr {
	return slog.Attr{Key: "error", Value: slog.StringValue(err.Error())}
}
