package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-dashboard/internal/domain"
)

func seedStatsRepo() *fakeTicketRepo {
	repo := newFakeTicketRepo()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	repo.byNumber["M-001"] = &domain.Ticket{
		ReportNumber: "M-001", Status: domain.TicketStatusActive, Handler: "Alice", ReportDate: start,
	}
	repo.byNumber["M-002"] = &domain.Ticket{
		ReportNumber: "M-002", Status: domain.TicketStatusCompleted, Handler: "Bob",
		ReportDate: start, TotalDurationDays: 4,
	}
	repo.byNumber["M-003"] = &domain.Ticket{
		ReportNumber: "M-003", Status: domain.TicketStatusCompleted, Handler: "Bob",
		ReportDate: start, TotalDurationDays: 8,
	}
	return repo
}

func TestStats_computesAggregates(t *testing.T) {
	repo := seedStatsRepo()
	cache := newFakeStatsCache()
	svc := NewStatsService(repo, cache, time.Minute, nil)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, stats.Total)
	require.InDelta(t, 6.0, stats.AvgCompletedDurationDays, 0.001)

	byStatus := map[string]int{}
	for _, b := range stats.PerStatus {
		byStatus[b.Status] = b.Count
	}
	require.Equal(t, 1, byStatus[string(domain.TicketStatusActive)])
	require.Equal(t, 2, byStatus[string(domain.TicketStatusCompleted)])

	byHandler := map[string]int{}
	for _, b := range stats.PerHandler {
		byHandler[b.Handler] = b.Count
	}
	require.Equal(t, 2, byHandler["Bob"])

	// computation result is written through to the cache
	_, ok, err := cache.Get(context.Background(), statsCacheKey)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestStats_servedFromCache(t *testing.T) {
	repo := seedStatsRepo()
	cache := newFakeStatsCache()
	svc := NewStatsService(repo, cache, time.Minute, nil)
	ctx := context.Background()

	cached := &DashboardStats{Total: 42, GeneratedAt: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)}
	raw, err := json.Marshal(cached)
	require.NoError(t, err)
	require.NoError(t, cache.Set(ctx, statsCacheKey, raw, time.Minute))

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, 42, stats.Total)
}

func TestStats_malformedCacheEntryIgnored(t *testing.T) {
	repo := seedStatsRepo()
	cache := newFakeStatsCache()
	svc := NewStatsService(repo, cache, time.Minute, nil)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, statsCacheKey, []byte("{not json"), time.Minute))

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, stats.Total)
}

func TestStats_nilCacheComputesDirectly(t *testing.T) {
	repo := seedStatsRepo()
	svc := NewStatsService(repo, nil, time.Minute, nil)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, stats.Total)
}
