package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
)

// Logger is the service-wide slog logger. Packages derive a child with
// Component and log through it.
type Logger struct {
	*slog.Logger
}

func New(cfg *Config) (*Logger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid logger config: %w", err)
	}
	return &Logger{slog.New(newHandler(os.Stdout, cfg))}, nil
}

// Nop returns a logger that drops every record.
func Nop() *Logger {
	return &Logger{slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// newHandler writes colored short lines for local runs and JSON otherwise.
func newHandler(w io.Writer, cfg *Config) slog.Handler {
	level := cfg.GetSlogLevel()

	if cfg.Format == FormatText {
		return tint.NewHandler(w, &tint.Options{
			Level:      level,
			AddSource:  cfg.AddSource,
			TimeFormat: "15:04:05.000",
		})
	}
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: cfg.AddSource,
	})
}

// Component tags every record with the emitting package, e.g. "service/pr".
func (l *Logger) Component(name string) *Logger {
	return &Logger{l.Logger.With("component", name)}
}
