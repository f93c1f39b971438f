package github

import (
	"time"

	. "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

type Config struct {
	Token   string        `json:"-"`
	BaseURL string        `json:"base_url"`
	Timeout time.Duration `json:"timeout"`

	MaxRetries     uint64        `json:"max_retries"`
	RetryBaseDelay time.Duration `json:"retry_base_delay"`
	RetryMaxDelay  time.Duration `json:"retry_max_delay"`
}

func (c *Config) Validate() error {
	return ValidateStruct(c,
		Field(&c.BaseURL, Required, is.RequestURL),
		Field(&c.Timeout, Required, Min(100*time.Millisecond), Max(5*time.Minute)),
		Field(&c.MaxRetries, Max(uint64(10))),
		Field(&c.RetryBaseDelay, Required, Min(time.Millisecond)),
		Field(&c.RetryMaxDelay, Required, Min(time.Millisecond), Max(time.Minute)),
	)
}
