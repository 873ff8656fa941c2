package service

import (
	"context"

	"student-violation-service/internal/model"
)

const defaultRepeatThreshold = 3

type statsStore interface {
	Summary(ctx context.Context, filter model.StatsFilter) (*model.StatsSummary, error)
	RepeatOffenders(ctx context.Context, academicYear string, minViolations int) ([]model.RepeatOffender, error)
}

// summaryCache is a best-effort read-through cache; misses and failures fall
// back to the store.
type summaryCache interface {
	GetSummary(ctx context.Context, filter model.StatsFilter) (*model.StatsSummary, bool)
	SetSummary(ctx context.Context, filter model.StatsFilter, summary *model.StatsSummary)
}

type StatsService struct {
	stats statsStore
	cache summaryCache
}

// NewStatsService builds the reporting service. cache may be nil, in which
// case every summary request hits the store.
func NewStatsService(stats statsStore, cache summaryCache) *StatsService {
	return &StatsService{stats: stats, cache: cache}
}

// Summary returns the active total plus per-status and per-severity counts.
// Soft-deleted records never contribute. Cached results may lag by the cache
// TTL; the aggregates tolerate that staleness.
func (s *StatsService) Summary(ctx context.Context, filter model.StatsFilter) (*model.StatsSummary, error) {
	if s.cache != nil {
		if summary, ok := s.cache.GetSummary(ctx, filter); ok {
			return summary, nil
		}
	}

	summary, err := s.stats.Summary(ctx, filter)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.SetSummary(ctx, filter, summary)
	}
	return summary, nil
}

// RepeatOffenders lists students whose violation count within the academic
// year meets the threshold (default 3), most frequent first.
func (s *StatsService) RepeatOffenders(ctx context.Context, academicYear string, minViolations int) ([]model.RepeatOffender, error) {
	if minViolations <= 0 {
		minViolations = defaultRepeatThreshold
	}
	return s.stats.RepeatOffenders(ctx, academicYear, minViolations)
}
