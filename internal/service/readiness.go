package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/ZertGraf/pr-readiness/internal/domain"
	"github.com/ZertGraf/pr-readiness/internal/readiness"
)

// Report is the readiness of one tracked pull request.
type Report struct {
	PRID   int64  `json:"pr_id"`
	PRURL  string `json:"pr_url"`
	Title  string `json:"title"`
	State  string `json:"state"`
	Merged bool   `json:"is_merged"`

	readiness.Score

	// MissingData lists sub-resources whose counts are unknown, the score
	// treats them as zero.
	MissingData []domain.Resource `json:"missing_data"`
	RateLimited bool              `json:"rate_limited"`
	ComputedAt  time.Time         `json:"computed_at"`
}

// Readiness scores a stored pull request. Results are cached per record and
// conversation count until the record is refreshed or the TTL passes.
func (s *PRService) Readiness(ctx context.Context, id int64, conversations int) (*Report, error) {
	if conversations < 0 {
		return nil, fmt.Errorf("%w: conversations must not be negative", domain.ErrInvalidData)
	}

	key := scoreKey{prID: id, conversations: conversations}
	if report, ok := s.scores.get(key); ok {
		s.logger.Debug("readiness cache hit", "id", id)
		return report, nil
	}

	pr, err := s.prRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get pr: %w", err)
	}

	report := &Report{
		PRID:        pr.ID,
		PRURL:       pr.URL,
		Title:       pr.Title,
		State:       string(pr.State),
		Merged:      pr.IsMerged,
		Score:       readiness.ScoreRecord(pr, conversations),
		MissingData: pr.MissingData,
		RateLimited: pr.RateLimited,
		ComputedAt:  time.Now().UTC(),
	}
	s.scores.set(key, report)

	s.logger.Debug("readiness computed",
		"id", id,
		"score", report.Overall,
		"status", report.Status,
	)

	return report, nil
}

// Calculate scores raw inputs without touching storage.
func (s *PRService) Calculate(in readiness.Inputs) readiness.Score {
	return readiness.Calculate(in)
}

type CacheConfig struct {
	// TTL of a cached readiness report, zero disables caching.
	TTL time.Duration
	// TimelineTTL of a cached timeline, zero disables caching.
	TimelineTTL time.Duration
	Capacity    uint64
}

type scoreKey struct {
	prID          int64
	conversations int
}

// ttlCache is a nil-safe wrapper around ttlcache, a nil cache never hits.
type ttlCache[K comparable, V any] struct {
	items *ttlcache.Cache[K, V]
}

func newTTLCache[K comparable, V any](ttl time.Duration, capacity uint64) *ttlCache[K, V] {
	if ttl <= 0 {
		return nil
	}

	opts := []ttlcache.Option[K, V]{
		ttlcache.WithTTL[K, V](ttl),
		ttlcache.WithDisableTouchOnHit[K, V](),
	}
	if capacity > 0 {
		opts = append(opts, ttlcache.WithCapacity[K, V](capacity))
	}

	c := &ttlCache[K, V]{items: ttlcache.New[K, V](opts...)}
	go c.items.Start()
	return c
}

func (c *ttlCache[K, V]) get(key K) (V, bool) {
	var zero V
	if c == nil {
		return zero, false
	}
	item := c.items.Get(key)
	if item == nil {
		return zero, false
	}
	return item.Value(), true
}

func (c *ttlCache[K, V]) set(key K, value V) {
	if c == nil {
		return
	}
	c.items.Set(key, value, ttlcache.DefaultTTL)
}

// deleteWhere drops every entry whose key matches.
func (c *ttlCache[K, V]) deleteWhere(match func(K) bool) {
	if c == nil {
		return
	}
	for _, key := range c.items.Keys() {
		if match(key) {
			c.items.Delete(key)
		}
	}
}

func (c *ttlCache[K, V]) stop() {
	if c == nil {
		return
	}
	c.items.Stop()
}
