package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"student-violation-service/internal/model"
)

// StatsCache keeps aggregate summaries in redis for a short TTL. It is purely
// best-effort: every failure is logged at debug level and treated as a miss.
type StatsCache struct {
	client *redis.Client
	ttl    time.Duration
	log    zerolog.Logger
}

func NewStatsCache(addr string, ttl time.Duration, log zerolog.Logger) *StatsCache {
	client := redis.NewClient(&redis.Options{Addr: addr})
	return &StatsCache{client: client, ttl: ttl, log: log}
}

func summaryKey(filter model.StatsFilter) string {
	year := filter.AcademicYear
	if year == "" {
		year = "all"
	}
	return fmt.Sprintf("violation-stats:summary:%s:%d", year, filter.Semester)
}

func (c *StatsCache) GetSummary(ctx context.Context, filter model.StatsFilter) (*model.StatsSummary, bool) {
	raw, err := c.client.Get(ctx, summaryKey(filter)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.Debug().Err(err).Msg("stats cache read failed")
		}
		return nil, false
	}
	var summary model.StatsSummary
	if err := json.Unmarshal(raw, &summary); err != nil {
		c.log.Debug().Err(err).Msg("stats cache entry corrupt")
		return nil, false
	}
	return &summary, true
}

func (c *StatsCache) SetSummary(ctx context.Context, filter model.StatsFilter, summary *model.StatsSummary) {
	raw, err := json.Marshal(summary)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, summaryKey(filter), raw, c.ttl).Err(); err != nil {
		c.log.Debug().Err(err).Msg("stats cache write failed")
	}
}

func (c *StatsCache) Close() error {
	return c.client.Close()
}
