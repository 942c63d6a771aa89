package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-dashboard/internal/config"
	"github.com/spec-kit/ticket-dashboard/internal/domain"
	"github.com/spec-kit/ticket-dashboard/internal/events"
	"github.com/spec-kit/ticket-dashboard/internal/repository"
)

type fakeTicketRepo struct {
	mu        sync.Mutex
	byNumber  map[string]*domain.Ticket
	createErr error
	updateErr error
	lookupErr error
	updates   int
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{byNumber: map[string]*domain.Ticket{}}
}

func (f *fakeTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	ticket.ID = "id-" + ticket.ReportNumber
	ticket.CreatedAt = time.Now()
	ticket.UpdatedAt = ticket.CreatedAt
	copied := *ticket
	f.byNumber[ticket.ReportNumber] = &copied
	return nil
}

func (f *fakeTicketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates++
	copied := *ticket
	f.byNumber[ticket.ReportNumber] = &copied
	return nil
}

func (f *fakeTicketRepo) GetByReportNumber(_ context.Context, number string) (*domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	if t, ok := f.byNumber[number]; ok {
		copied := *t
		return &copied, nil
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeTicketRepo) GetByTicketNumber(_ context.Context, number string) (*domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.byNumber {
		if t.TicketNumber != nil && *t.TicketNumber == number {
			copied := *t
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeTicketRepo) List(_ context.Context) ([]domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Ticket, 0, len(f.byNumber))
	for _, t := range f.byNumber {
		out = append(out, *t)
	}
	return out, nil
}

func (f *fakeTicketRepo) ListStale(_ context.Context, prefix string, excludeNumbers []string) ([]domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	excluded := map[string]struct{}{}
	for _, n := range excludeNumbers {
		excluded[n] = struct{}{}
	}
	var out []domain.Ticket
	for number, t := range f.byNumber {
		if len(number) < len(prefix) || number[:len(prefix)] != prefix {
			continue
		}
		if _, ok := excluded[number]; ok {
			continue
		}
		if t.Status == domain.TicketStatusCompleted {
			continue
		}
		out = append(out, *t)
	}
	return out, nil
}

func (f *fakeTicketRepo) DeleteAll(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := int64(len(f.byNumber))
	f.byNumber = map[string]*domain.Ticket{}
	return n, nil
}

func (f *fakeTicketRepo) Count(_ context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byNumber), nil
}

func (f *fakeTicketRepo) CountByStatus(_ context.Context) ([]repository.StatusCount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := map[domain.TicketStatus]int{}
	for _, t := range f.byNumber {
		counts[t.Status]++
	}
	out := make([]repository.StatusCount, 0, len(counts))
	for status, n := range counts {
		out = append(out, repository.StatusCount{Status: status, Count: n})
	}
	return out, nil
}

func (f *fakeTicketRepo) CountByHandler(_ context.Context) ([]repository.HandlerCount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := map[string]int{}
	for _, t := range f.byNumber {
		counts[t.Handler]++
	}
	out := make([]repository.HandlerCount, 0, len(counts))
	for handler, n := range counts {
		out = append(out, repository.HandlerCount{Handler: handler, Count: n})
	}
	return out, nil
}

func (f *fakeTicketRepo) AvgCompletedDurationDays(_ context.Context) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	total, n := 0, 0
	for _, t := range f.byNumber {
		if t.Status == domain.TicketStatusCompleted {
			total += t.TotalDurationDays
			n++
		}
	}
	if n == 0 {
		return 0, nil
	}
	return float64(total) / float64(n), nil
}

type fakeStatsCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	dels    int
}

func newFakeStatsCache() *fakeStatsCache {
	return &fakeStatsCache{entries: map[string][]byte{}}
}

func (f *fakeStatsCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	val, ok := f.entries[key]
	return val, ok, nil
}

func (f *fakeStatsCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[key] = value
	return nil
}

func (f *fakeStatsCache) Del(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.entries, key)
	f.dels++
	return nil
}

type capturingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *capturingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *capturingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *capturingDispatcher) ofType(t events.EventType) []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []events.Event
	for _, e := range d.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func testImportConfig() config.ImportConfig {
	return config.ImportConfig{
		MaxRows:              5000,
		SweepPrefix:          "M-",
		DefaultHandler:       "Service Support",
		SystemHandler:        "Systeem",
		StatsCacheTTLSeconds: 60,
		ActivityFeedSize:     100,
	}
}

func newTestTicketService(repo *fakeTicketRepo, clock func() time.Time) (*TicketService, *capturingDispatcher, *fakeStatsCache) {
	cfg := testImportConfig()
	dispatcher := &capturingDispatcher{}
	cache := newFakeStatsCache()
	svc := NewTicketService(cfg, TicketDependencies{
		TicketRepo: repo,
		Reconciler: NewReconciler(cfg.DefaultHandler, clock, nil),
		Dispatcher: dispatcher,
		StatsCache: cache,
	})
	return svc, dispatcher, cache
}

func TestImportBatch_emptyBatch(t *testing.T) {
	svc, _, _ := newTestTicketService(newFakeTicketRepo(), nil)
	_, err := svc.ImportBatch(context.Background(), nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "no tickets")
}

func TestImportBatch_classifiesOutcomes(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	repo := newFakeTicketRepo()
	svc, dispatcher, cache := newTestTicketService(repo, fixedClock(start))
	ctx := context.Background()

	first, err := svc.ImportBatch(ctx, []domain.CandidateTicket{
		newCandidate("M-001", domain.TicketStatusNew, "Alice", start),
		newCandidate("M-002", domain.TicketStatusActive, "Bob", start),
	})
	require.NoError(t, err)
	require.Equal(t, 2, first.Created)
	require.Equal(t, 0, first.Updated)
	require.Len(t, first.Tickets, 2)
	require.Len(t, dispatcher.ofType(events.EventTicketCreated), 2)

	later := start.AddDate(0, 0, 3)
	svc2, dispatcher2, _ := newTestTicketService(repo, fixedClock(later))
	second, err := svc2.ImportBatch(ctx, []domain.CandidateTicket{
		newCandidate("M-001", domain.TicketStatusInProgress, "Alice", start),
		newCandidate("M-002", domain.TicketStatusActive, "Bob", start),
	})
	require.NoError(t, err)
	require.Equal(t, 0, second.Created)
	require.Equal(t, 1, second.Updated)
	require.Equal(t, 1, second.Skipped)
	require.Equal(t, 2, second.Successes())

	changed := dispatcher2.ofType(events.EventTicketStatusChanged)
	require.Len(t, changed, 1)
	payload, ok := changed[0].Payload.(events.TicketStatusChangedPayload)
	require.True(t, ok)
	require.Equal(t, domain.TicketStatusNew, payload.OldStatus)
	require.Equal(t, domain.TicketStatusInProgress, payload.NewStatus)

	stored, err := repo.GetByReportNumber(ctx, "M-001")
	require.NoError(t, err)
	require.Len(t, stored.History, 2)
	require.Equal(t, 3, stored.TotalDurationDays)

	require.Positive(t, cache.dels)
}

func TestImportBatch_failureIsolation(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	repo := newFakeTicketRepo()
	svc, _, _ := newTestTicketService(repo, fixedClock(start))

	bad := newCandidate("M-BAD", domain.TicketStatusActive, "", start)
	bad.Row = 2
	result, err := svc.ImportBatch(context.Background(), []domain.CandidateTicket{
		newCandidate("M-001", domain.TicketStatusNew, "Alice", start),
		bad,
		newCandidate("M-003", domain.TicketStatusNew, "Carol", start),
	})
	require.NoError(t, err)
	require.Equal(t, 2, result.Created)
	require.Equal(t, 1, result.Failed)
	require.Len(t, result.Failures, 1)
	require.Equal(t, "M-BAD", result.Failures[0].ReportNumber)
	require.Equal(t, 2, result.Failures[0].Row)
	require.Len(t, result.Tickets, 2)
}

func TestImportBatch_persistenceFailureRecorded(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	repo := newFakeTicketRepo()
	repo.createErr = errors.New("connection refused")
	svc, _, _ := newTestTicketService(repo, fixedClock(start))

	result, err := svc.ImportBatch(context.Background(), []domain.CandidateTicket{
		newCandidate("M-001", domain.TicketStatusNew, "Alice", start),
	})
	require.NoError(t, err)
	require.Equal(t, 1, result.Failed)
	require.Contains(t, result.Failures[0].Reason, "connection refused")
}

func TestImportBatch_alternateIdentifierLookup(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	repo := newFakeTicketRepo()
	svc, _, _ := newTestTicketService(repo, fixedClock(start))
	ctx := context.Background()

	cand := newCandidate("M-050", domain.TicketStatusNew, "Alice", start)
	cand.TicketNumber = "T-900"
	_, err := svc.ImportBatch(ctx, []domain.CandidateTicket{cand})
	require.NoError(t, err)

	// a later row carrying only the alternate number resolves the same record
	later := start.AddDate(0, 0, 1)
	svc2, _, _ := newTestTicketService(repo, fixedClock(later))
	followUp := domain.CandidateTicket{
		TicketNumber: "T-900",
		ReportDate:   start,
		Status:       domain.TicketStatusInProgress,
		Handler:      "Alice",
		Priority:     domain.TicketPriorityMedium,
	}
	result, err := svc2.ImportBatch(ctx, []domain.CandidateTicket{followUp})
	require.NoError(t, err)
	require.Equal(t, 1, result.Updated)

	stored, err := repo.GetByReportNumber(ctx, "M-050")
	require.NoError(t, err)
	require.Equal(t, domain.TicketStatusInProgress, stored.Status)
	require.Len(t, stored.History, 2)
}

func TestSweepStale(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	repo := newFakeTicketRepo()
	svc, _, _ := newTestTicketService(repo, fixedClock(start))
	ctx := context.Background()

	_, err := svc.ImportBatch(ctx, []domain.CandidateTicket{
		newCandidate("M-001", domain.TicketStatusActive, "Alice", start),
		newCandidate("M-002", domain.TicketStatusInProgress, "Bob", start),
		newCandidate("T-100", domain.TicketStatusActive, "Carol", start),
	})
	require.NoError(t, err)

	// next batch only mentions M-001; M-002 is stale, T-100 is outside the series
	later := start.AddDate(0, 0, 4)
	svc2, dispatcher2, _ := newTestTicketService(repo, fixedClock(later))
	uploaded := map[string]struct{}{"M-001": {}}
	completed, err := svc2.SweepStale(ctx, uploaded)
	require.NoError(t, err)
	require.Equal(t, 1, completed)

	swept, err := repo.GetByReportNumber(ctx, "M-002")
	require.NoError(t, err)
	require.Equal(t, domain.TicketStatusCompleted, swept.Status)
	require.NotNil(t, swept.CompletedAt)
	require.Equal(t, later, *swept.CompletedAt)
	require.Equal(t, 4, swept.TotalDurationDays)
	require.Equal(t, domain.TicketStatusCompleted, swept.History[len(swept.History)-1].Status)

	kept, err := repo.GetByReportNumber(ctx, "M-001")
	require.NoError(t, err)
	require.Equal(t, domain.TicketStatusActive, kept.Status)

	outside, err := repo.GetByReportNumber(ctx, "T-100")
	require.NoError(t, err)
	require.Equal(t, domain.TicketStatusActive, outside.Status)

	auto := dispatcher2.ofType(events.EventTicketAutoCompleted)
	require.Len(t, auto, 1)
}

func TestSweepStale_noSeriesNumbersUploaded(t *testing.T) {
	repo := newFakeTicketRepo()
	svc, _, _ := newTestTicketService(repo, nil)

	completed, err := svc.SweepStale(context.Background(), map[string]struct{}{"T-100": {}})
	require.NoError(t, err)
	require.Zero(t, completed)
	require.Zero(t, repo.updates)
}

func TestSweepStale_systemHandlerFallback(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	repo := newFakeTicketRepo()
	repo.byNumber["M-009"] = &domain.Ticket{
		ReportNumber: "M-009",
		ReportDate:   start,
		Status:       domain.TicketStatusNew,
		Handler:      "",
		History: []domain.HistoryEntry{
			{Status: domain.TicketStatusNew, StartedAt: start},
		},
	}

	svc, _, _ := newTestTicketService(repo, fixedClock(start.AddDate(0, 0, 1)))
	completed, err := svc.SweepStale(context.Background(), map[string]struct{}{"M-001": {}})
	require.NoError(t, err)
	require.Equal(t, 1, completed)

	swept, err := repo.GetByReportNumber(context.Background(), "M-009")
	require.NoError(t, err)
	require.Equal(t, "Systeem", swept.Handler)
}

func TestReset(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	repo := newFakeTicketRepo()
	svc, dispatcher, _ := newTestTicketService(repo, fixedClock(start))
	ctx := context.Background()

	_, err := svc.ImportBatch(ctx, []domain.CandidateTicket{
		newCandidate("M-001", domain.TicketStatusNew, "Alice", start),
		newCandidate("M-002", domain.TicketStatusNew, "Bob", start),
	})
	require.NoError(t, err)

	deleted, err := svc.Reset(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), deleted)

	remaining, err := svc.ListTickets(ctx)
	require.NoError(t, err)
	require.Empty(t, remaining)

	resets := dispatcher.ofType(events.EventTicketsReset)
	require.Len(t, resets, 1)
	payload, ok := resets[0].Payload.(events.TicketsResetPayload)
	require.True(t, ok)
	require.Equal(t, int64(2), payload.DeletedCount)
}
