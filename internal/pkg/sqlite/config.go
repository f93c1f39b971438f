package sqlite

import (
	. "github.com/go-ozzo/ozzo-validation"
)

type Config struct {
	Path string `json:"path"`
	// SlowQuery marks queries logged at warn level, zero disables it.
	SlowQuery int64 `json:"slow_query_ms"`
}

func (c *Config) Validate() error {
	return ValidateStruct(c,
		Field(&c.Path, Required),
		Field(&c.SlowQuery, Min(int64(0))),
	)
}

func (c *Config) inMemory() bool {
	return c.Path == ":memory:"
}
