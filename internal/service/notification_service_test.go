package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-dashboard/internal/domain"
	"github.com/spec-kit/ticket-dashboard/internal/events"
)

type fakeActivityFeed struct {
	mu      sync.Mutex
	entries [][]byte
	clears  int
}

func (f *fakeActivityFeed) Push(_ context.Context, entry []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append([][]byte{entry}, f.entries...)
	return nil
}

func (f *fakeActivityFeed) Recent(_ context.Context, limit int) ([][]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if limit <= 0 || limit > len(f.entries) {
		limit = len(f.entries)
	}
	out := make([][]byte, limit)
	copy(out, f.entries[:limit])
	return out, nil
}

func (f *fakeActivityFeed) Clear(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = nil
	f.clears++
	return nil
}

func TestNotificationService_eventsLandInFeed(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	feed := &fakeActivityFeed{}
	svc := NewNotificationService(dispatcher, feed, zap.NewNop())
	svc.RegisterHandlers()
	ctx := context.Background()

	err := dispatcher.Publish(ctx, events.Event{
		ID:        "evt-1",
		Type:      events.EventTicketCreated,
		Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Payload:   events.TicketCreatedPayload{ReportNumber: "M-001", Status: domain.TicketStatusNew},
	})
	require.NoError(t, err)
	err = dispatcher.Publish(ctx, events.Event{
		ID:   "evt-2",
		Type: events.EventTicketStatusChanged,
		Payload: events.TicketStatusChangedPayload{
			ReportNumber: "M-001",
			OldStatus:    domain.TicketStatusNew,
			NewStatus:    domain.TicketStatusActive,
		},
	})
	require.NoError(t, err)

	recent, err := svc.RecentActivity(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	require.Equal(t, events.EventTicketStatusChanged, recent[0].Type)
	require.Equal(t, events.EventTicketCreated, recent[1].Type)
	require.Equal(t, "evt-1", recent[1].ID)
}

func TestNotificationService_resetClearsFeedFirst(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	feed := &fakeActivityFeed{}
	svc := NewNotificationService(dispatcher, feed, zap.NewNop())
	svc.RegisterHandlers()
	ctx := context.Background()

	require.NoError(t, dispatcher.Publish(ctx, events.Event{
		ID: "evt-1", Type: events.EventTicketCreated,
		Payload: events.TicketCreatedPayload{ReportNumber: "M-001"},
	}))
	require.NoError(t, dispatcher.Publish(ctx, events.Event{
		ID: "evt-2", Type: events.EventTicketsReset,
		Payload: events.TicketsResetPayload{DeletedCount: 1},
	}))

	require.Equal(t, 1, feed.clears)
	recent, err := svc.RecentActivity(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	require.Equal(t, events.EventTicketsReset, recent[0].Type)
}

func TestNotificationService_malformedFeedEntrySkipped(t *testing.T) {
	feed := &fakeActivityFeed{}
	svc := NewNotificationService(nil, feed, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, feed.Push(ctx, []byte("{broken")))
	require.NoError(t, feed.Push(ctx, []byte(`{"id":"evt-9","type":"ticket_created"}`)))

	recent, err := svc.RecentActivity(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	require.Equal(t, "evt-9", recent[0].ID)
}
