package logger

import (
	"fmt"
	"log/slog"
	"strings"

	. "github.com/go-ozzo/ozzo-validation"
)

const (
	FormatText = "text"
	FormatJSON = "json"
)

// levels lists the accepted LOG_LEVEL names, fatal logs as error.
var levels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
	"fatal": slog.LevelError,
}

type Config struct {
	Level     string
	Format    string
	AddSource bool
}

func (c *Config) Validate() error {
	return ValidateStruct(c,
		Field(&c.Level, Required, By(knownLevel)),
		Field(&c.Format, Required, In(FormatJSON, FormatText)),
	)
}

func knownLevel(value interface{}) error {
	name, _ := value.(string)
	if _, ok := levels[strings.ToLower(name)]; !ok {
		return fmt.Errorf("unknown log level %q", name)
	}
	return nil
}

// GetSlogLevel falls back to info for names Validate rejects.
func (c *Config) GetSlogLevel() slog.Level {
	if level, ok := levels[strings.ToLower(c.Level)]; ok {
		return level
	}
	return slog.LevelInfo
}
