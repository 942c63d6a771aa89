package events

import (
	"time"

	"github.com/spec-kit/ticket-dashboard/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketAutoCompleted EventType = "ticket_auto_completed"
	EventImportCompleted     EventType = "import_completed"
	EventTicketsReset        EventType = "tickets_reset"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	ReportNumber string                `json:"report_number"`
	Status       domain.TicketStatus   `json:"status"`
	Handler      string                `json:"handler"`
	Priority     domain.TicketPriority `json:"priority"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	ReportNumber string              `json:"report_number"`
	OldStatus    domain.TicketStatus `json:"old_status"`
	NewStatus    domain.TicketStatus `json:"new_status"`
	Handler      string              `json:"handler"`
}

// TicketAutoCompletedPayload payload.
type TicketAutoCompletedPayload struct {
	ReportNumber string              `json:"report_number"`
	OldStatus    domain.TicketStatus `json:"old_status"`
	Handler      string              `json:"handler"`
}

// ImportCompletedPayload payload.
type ImportCompletedPayload struct {
	BatchID       string `json:"batch_id"`
	Created       int    `json:"created"`
	Updated       int    `json:"updated"`
	Skipped       int    `json:"skipped"`
	Failed        int    `json:"failed"`
	AutoCompleted int    `json:"auto_completed"`
}

// TicketsResetPayload payload.
type TicketsResetPayload struct {
	DeletedCount int64 `json:"deleted_count"`
}
