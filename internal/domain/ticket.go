package domain

import "time"

// TicketStatus enumerates lifecycle states for service tickets. The
// vocabulary mirrors the maintenance feed this dashboard ingests;
// transitions are unconstrained, any status may follow any other.
type TicketStatus string

const (
	TicketStatusNew                TicketStatus = "NEW"
	TicketStatusActive             TicketStatus = "ACTIVE"
	TicketStatusInProgress         TicketStatus = "IN_PROGRESS"
	TicketStatusWaitingForApproval TicketStatus = "WAITING_FOR_APPROVAL"
	TicketStatusWaitingForTenant   TicketStatus = "WAITING_FOR_TENANT"
	TicketStatusWaitingForSupplier TicketStatus = "WAITING_FOR_SUPPLIER"
	TicketStatusScheduled          TicketStatus = "SCHEDULED"
	TicketStatusQuoteRequested     TicketStatus = "QUOTE_REQUESTED"
	TicketStatusOrderSent          TicketStatus = "ORDER_SENT"
	TicketStatusOnHold             TicketStatus = "ON_HOLD"
	TicketStatusCompleted          TicketStatus = "COMPLETED"
	TicketStatusCancelled          TicketStatus = "CANCELLED"
)

// TicketPriority enumerates urgency levels.
type TicketPriority string

const (
	TicketPriorityLow      TicketPriority = "LOW"
	TicketPriorityMedium   TicketPriority = "MEDIUM"
	TicketPriorityHigh     TicketPriority = "HIGH"
	TicketPriorityCritical TicketPriority = "CRITICAL"
)

// HistoryEntry is one segment of a ticket's status timeline. The entry
// without EndedAt is the open entry and represents the current status.
type HistoryEntry struct {
	Status       TicketStatus `json:"status"`
	StartedAt    time.Time    `json:"started_at"`
	EndedAt      *time.Time   `json:"ended_at,omitempty"`
	Handler      string       `json:"handler"`
	DurationDays int          `json:"duration_days"`
}

// Ticket is the persisted aggregate: identity, current fields and the
// append-only status history.
type Ticket struct {
	ID                string
	ReportNumber      string
	TicketNumber      *string
	ReportDate        time.Time
	Object            string
	Problem           string
	Reporter          string
	Supplier          string
	Description       string
	Status            TicketStatus
	Handler           string
	Priority          TicketPriority
	History           []HistoryEntry
	TotalDurationDays int
	LastUpdatedAt     time.Time
	CompletedAt       *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// CandidateTicket is a normalized row parsed from an external source,
// not yet reconciled against persisted state. Optional fields are empty
// strings; an unparseable report date is the zero time.
type CandidateTicket struct {
	ReportNumber string
	TicketNumber string
	ReportDate   time.Time
	Object       string
	Problem      string
	Reporter     string
	Supplier     string
	Description  string
	Status       TicketStatus
	RawStatus    string
	Handler      string
	Priority     TicketPriority
	Row          int
}

// OpenEntry returns the currently open history entry, or nil when the
// history is empty or the last entry is already closed.
func (t *Ticket) OpenEntry() *HistoryEntry {
	if len(t.History) == 0 {
		return nil
	}
	last := &t.History[len(t.History)-1]
	if last.EndedAt != nil {
		return nil
	}
	return last
}

// ValidateHistory checks the structural invariants of the history log:
// entries ordered chronologically by StartedAt, every entry but the last
// closed, and the last entry open.
func (t *Ticket) ValidateHistory() error {
	if len(t.History) == 0 {
		return ErrEmptyHistory
	}
	for i := range t.History {
		entry := &t.History[i]
		if i < len(t.History)-1 {
			if entry.EndedAt == nil {
				return ErrDanglingOpenEntry
			}
			if t.History[i+1].StartedAt.Before(entry.StartedAt) {
				return ErrHistoryOutOfOrder
			}
		} else if entry.EndedAt != nil {
			return ErrNoOpenEntry
		}
	}
	return nil
}

// DayRound converts a duration to whole days, rounding half up. Both the
// per-entry durations and the total duration use this.
func DayRound(d time.Duration) int {
	const day = 24 * time.Hour
	if d < 0 {
		d = 0
	}
	return int((d + day/2) / day)
}
