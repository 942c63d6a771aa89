package service

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-dashboard/internal/events"
	"github.com/spec-kit/ticket-dashboard/internal/repository"
)

// NotificationService mirrors domain events into the structured log and
// the dashboard's recent-activity feed.
type NotificationService struct {
	dispatcher events.Dispatcher
	feed       repository.ActivityFeed
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, feed repository.ActivityFeed, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		feed:       feed,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleEvent)
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.handleEvent)
	n.dispatcher.Subscribe(events.EventTicketAutoCompleted, n.handleEvent)
	n.dispatcher.Subscribe(events.EventImportCompleted, n.handleEvent)
	n.dispatcher.Subscribe(events.EventTicketsReset, n.handleReset)
}

func (n *NotificationService) handleEvent(ctx context.Context, event events.Event) error {
	n.logger.Info(string(event.Type), zap.Any("payload", event.Payload))
	n.pushToFeed(ctx, event)
	return nil
}

// handleReset clears the feed before recording the reset marker so the
// feed does not reference tickets that no longer exist.
func (n *NotificationService) handleReset(ctx context.Context, event events.Event) error {
	n.logger.Info(string(event.Type), zap.Any("payload", event.Payload))
	if n.feed != nil {
		if err := n.feed.Clear(ctx); err != nil {
			n.logger.Warn("activity feed clear failed", zap.Error(err))
		}
	}
	n.pushToFeed(ctx, event)
	return nil
}

func (n *NotificationService) pushToFeed(ctx context.Context, event events.Event) {
	if n.feed == nil {
		return
	}
	raw, err := json.Marshal(event)
	if err != nil {
		return
	}
	if err := n.feed.Push(ctx, raw); err != nil {
		n.logger.Warn("activity feed push failed", zap.Error(err))
	}
}

// RecentActivity returns up to limit most recent event records.
func (n *NotificationService) RecentActivity(ctx context.Context, limit int) ([]events.Event, error) {
	if n.feed == nil {
		return []events.Event{}, nil
	}
	entries, err := n.feed.Recent(ctx, limit)
	if err != nil {
		return nil, err
	}
	result := make([]events.Event, 0, len(entries))
	for _, raw := range entries {
		var event events.Event
		if err := json.Unmarshal(raw, &event); err != nil {
			continue
		}
		result = append(result, event)
	}
	return result, nil
}
