package service

import (
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-dashboard/internal/domain"
)

// Outcome classifies a reconciliation result for batch statistics.
type Outcome int

const (
	OutcomeCreated Outcome = iota
	OutcomeUpdated
	OutcomeSkipped
)

// Reconciler merges candidate rows into persisted ticket records while
// maintaining the append-only status history. It performs no I/O; the
// batch importer supplies the existing record and persists the result.
type Reconciler struct {
	defaultHandler string
	now            func() time.Time
	logger         *zap.Logger
}

// NewReconciler constructs a reconciler. A nil clock defaults to time.Now.
func NewReconciler(defaultHandler string, now func() time.Time, logger *zap.Logger) *Reconciler {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{defaultHandler: defaultHandler, now: now, logger: logger}
}

// Reconcile decides how a candidate maps onto an existing record. The
// returned ticket is always a fresh value; the existing record is never
// mutated in place, which keeps the single-open-entry invariant checkable
// on both the input and the output.
func (r *Reconciler) Reconcile(existing *domain.Ticket, cand domain.CandidateTicket) (*domain.Ticket, Outcome, error) {
	if strings.TrimSpace(cand.ReportNumber) == "" {
		return nil, OutcomeSkipped, &MissingIdentifierError{Row: cand.Row}
	}

	if cand.Status == "" {
		cand.Status = domain.TicketStatusNew
	}
	if cand.Priority == "" {
		cand.Priority = domain.TicketPriorityMedium
	}

	cand, err := applyHandlerPolicy(cand, r.defaultHandler)
	if err != nil {
		return nil, OutcomeSkipped, err
	}

	now := r.now()
	if cand.ReportDate.IsZero() {
		dateErr := &InvalidDateError{ReportNumber: cand.ReportNumber}
		r.logger.Warn("recovering from malformed report date", zap.String("report_number", cand.ReportNumber), zap.Error(dateErr))
		cand.ReportDate = now
	}

	if existing == nil {
		return r.buildNew(cand, now), OutcomeCreated, nil
	}

	if existing.Status == cand.Status && existing.Handler == cand.Handler && existing.Priority == cand.Priority {
		return existing, OutcomeSkipped, nil
	}

	updated := cloneTicket(existing)
	if updated.Status != cand.Status {
		closeOpenEntry(updated, now)
		updated.History = append(updated.History, domain.HistoryEntry{
			Status:    cand.Status,
			StartedAt: now,
			Handler:   cand.Handler,
		})
	}

	updated.Status = cand.Status
	updated.Handler = cand.Handler
	updated.Priority = cand.Priority
	refreshDescriptiveFields(updated, cand)
	finalizeDurations(updated, now)
	return updated, OutcomeUpdated, nil
}

// AutoComplete performs the staleness transition: the same close-and-append
// operation as a status change, targeting COMPLETED, with the completion
// timestamp stamped.
func (r *Reconciler) AutoComplete(existing *domain.Ticket, systemHandler string) *domain.Ticket {
	now := r.now()
	handler := existing.Handler
	if strings.TrimSpace(handler) == "" {
		handler = systemHandler
	}

	updated := cloneTicket(existing)
	closeOpenEntry(updated, now)
	updated.History = append(updated.History, domain.HistoryEntry{
		Status:    domain.TicketStatusCompleted,
		StartedAt: now,
		Handler:   handler,
	})
	updated.Status = domain.TicketStatusCompleted
	updated.Handler = handler
	updated.CompletedAt = &now
	finalizeDurations(updated, now)
	return updated
}

func (r *Reconciler) buildNew(cand domain.CandidateTicket, now time.Time) *domain.Ticket {
	ticket := &domain.Ticket{
		ReportNumber: cand.ReportNumber,
		ReportDate:   cand.ReportDate,
		Object:       cand.Object,
		Problem:      cand.Problem,
		Reporter:     cand.Reporter,
		Supplier:     cand.Supplier,
		Description:  cand.Description,
		Status:       cand.Status,
		Handler:      cand.Handler,
		Priority:     cand.Priority,
		History: []domain.HistoryEntry{{
			Status:    cand.Status,
			StartedAt: cand.ReportDate,
			Handler:   cand.Handler,
		}},
	}
	if cand.TicketNumber != "" {
		num := cand.TicketNumber
		ticket.TicketNumber = &num
	}
	finalizeDurations(ticket, now)
	return ticket
}

func cloneTicket(t *domain.Ticket) *domain.Ticket {
	clone := *t
	clone.History = append([]domain.HistoryEntry(nil), t.History...)
	return &clone
}

func closeOpenEntry(t *domain.Ticket, now time.Time) {
	open := t.OpenEntry()
	if open == nil {
		return
	}
	endedAt := now
	open.EndedAt = &endedAt
	open.DurationDays = domain.DayRound(now.Sub(open.StartedAt))
}

// finalizeDurations recomputes the derived total duration and stamps the
// last-updated marker. The total runs from the first history entry to the
// completion timestamp when set, otherwise to now.
func finalizeDurations(t *domain.Ticket, now time.Time) {
	end := now
	if t.CompletedAt != nil {
		end = *t.CompletedAt
	}
	if len(t.History) > 0 {
		t.TotalDurationDays = domain.DayRound(end.Sub(t.History[0].StartedAt))
	}
	t.LastUpdatedAt = now
}

func refreshDescriptiveFields(t *domain.Ticket, cand domain.CandidateTicket) {
	if cand.Object != "" {
		t.Object = cand.Object
	}
	if cand.Problem != "" {
		t.Problem = cand.Problem
	}
	if cand.Reporter != "" {
		t.Reporter = cand.Reporter
	}
	if cand.Supplier != "" {
		t.Supplier = cand.Supplier
	}
	if cand.Description != "" {
		t.Description = cand.Description
	}
	if cand.TicketNumber != "" {
		num := cand.TicketNumber
		t.TicketNumber = &num
	}
}
