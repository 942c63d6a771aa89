package service

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-dashboard/internal/repository"
)

const statsCacheKey = "tickets:stats"

// StatusBucket is one per-status slice of the dashboard aggregates.
type StatusBucket struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// HandlerBucket is one per-handler slice of the dashboard aggregates.
type HandlerBucket struct {
	Handler string `json:"handler"`
	Count   int    `json:"count"`
}

// DashboardStats carries the read-side aggregates. Everything is computed
// from the ticket records on demand; there are no derived tables.
type DashboardStats struct {
	Total                    int             `json:"total"`
	PerStatus                []StatusBucket  `json:"per_status"`
	PerHandler               []HandlerBucket `json:"per_handler"`
	AvgCompletedDurationDays float64         `json:"avg_completed_duration_days"`
	GeneratedAt              time.Time       `json:"generated_at"`
}

// StatsService computes dashboard aggregates with a short-lived cache in
// front of the repository. Cache failures degrade to a direct computation.
type StatsService struct {
	tickets repository.TicketRepository
	cache   repository.StatsCache
	ttl     time.Duration
	logger  *zap.Logger
}

// NewStatsService constructs the service.
func NewStatsService(tickets repository.TicketRepository, cache repository.StatsCache, ttl time.Duration, logger *zap.Logger) *StatsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatsService{tickets: tickets, cache: cache, ttl: ttl, logger: logger}
}

// Stats returns the dashboard aggregates, served from cache when fresh.
func (s *StatsService) Stats(ctx context.Context) (*DashboardStats, error) {
	if cached := s.fromCache(ctx); cached != nil {
		return cached, nil
	}

	stats, err := s.compute(ctx)
	if err != nil {
		return nil, err
	}
	s.toCache(ctx, stats)
	return stats, nil
}

func (s *StatsService) compute(ctx context.Context) (*DashboardStats, error) {
	total, err := s.tickets.Count(ctx)
	if err != nil {
		return nil, &PersistenceError{Op: "count", Err: err}
	}
	byStatus, err := s.tickets.CountByStatus(ctx)
	if err != nil {
		return nil, &PersistenceError{Op: "count by status", Err: err}
	}
	byHandler, err := s.tickets.CountByHandler(ctx)
	if err != nil {
		return nil, &PersistenceError{Op: "count by handler", Err: err}
	}
	avg, err := s.tickets.AvgCompletedDurationDays(ctx)
	if err != nil {
		return nil, &PersistenceError{Op: "average completed duration", Err: err}
	}

	stats := &DashboardStats{
		Total:                    total,
		PerStatus:                make([]StatusBucket, 0, len(byStatus)),
		PerHandler:               make([]HandlerBucket, 0, len(byHandler)),
		AvgCompletedDurationDays: avg,
		GeneratedAt:              time.Now(),
	}
	for _, sc := range byStatus {
		stats.PerStatus = append(stats.PerStatus, StatusBucket{Status: string(sc.Status), Count: sc.Count})
	}
	for _, hc := range byHandler {
		stats.PerHandler = append(stats.PerHandler, HandlerBucket{Handler: hc.Handler, Count: hc.Count})
	}
	return stats, nil
}

func (s *StatsService) fromCache(ctx context.Context) *DashboardStats {
	if s.cache == nil {
		return nil
	}
	raw, ok, err := s.cache.Get(ctx, statsCacheKey)
	if err != nil {
		s.logger.Warn("stats cache read failed", zap.Error(err))
		return nil
	}
	if !ok {
		return nil
	}
	var stats DashboardStats
	if err := json.Unmarshal(raw, &stats); err != nil {
		s.logger.Warn("stats cache entry malformed", zap.Error(err))
		return nil
	}
	return &stats
}

func (s *StatsService) toCache(ctx context.Context, stats *DashboardStats) {
	if s.cache == nil || s.ttl <= 0 {
		return
	}
	raw, err := json.Marshal(stats)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, statsCacheKey, raw, s.ttl); err != nil {
		s.logger.Warn("stats cache write failed", zap.Error(err))
	}
}
