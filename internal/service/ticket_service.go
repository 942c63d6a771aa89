package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-dashboard/internal/config"
	"github.com/spec-kit/ticket-dashboard/internal/domain"
	"github.com/spec-kit/ticket-dashboard/internal/events"
	"github.com/spec-kit/ticket-dashboard/internal/repository"
	"github.com/spec-kit/ticket-dashboard/pkg/util"
)

// FailureDetail records one candidate that could not be reconciled.
type FailureDetail struct {
	ReportNumber string `json:"report_number"`
	Row          int    `json:"row"`
	Reason       string `json:"reason"`
}

// ImportResult accumulates per-batch statistics.
type ImportResult struct {
	BatchID       string
	Created       int
	Updated       int
	Skipped       int
	Failed        int
	AutoCompleted int
	Failures      []FailureDetail
	Tickets       []domain.Ticket
}

// Successes counts candidates that were reconciled without error.
func (r *ImportResult) Successes() int {
	return r.Created + r.Updated + r.Skipped
}

// TicketService coordinates batch ingestion, the staleness sweep, and
// record-level reads. Candidates are processed strictly in input order;
// every successful reconciliation is persisted immediately.
type TicketService struct {
	tickets    repository.TicketRepository
	reconciler *Reconciler
	dispatcher events.Dispatcher
	statsCache repository.StatsCache
	cfg        config.ImportConfig
	logger     *zap.Logger
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	Reconciler *Reconciler
	Dispatcher events.Dispatcher
	StatsCache repository.StatsCache
	Logger     *zap.Logger
}

// NewTicketService constructs the service.
func NewTicketService(cfg config.ImportConfig, deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		reconciler: deps.Reconciler,
		dispatcher: deps.Dispatcher,
		statsCache: deps.StatsCache,
		cfg:        cfg,
		logger:     logger,
	}
}

// ImportBatch reconciles a batch of candidates against persisted records.
// A failure on one candidate is captured into the result and does not
// abort the batch; there is no cross-ticket atomicity.
func (s *TicketService) ImportBatch(ctx context.Context, candidates []domain.CandidateTicket) (*ImportResult, error) {
	if len(candidates) == 0 {
		return nil, util.NewEmptyBatch("batch contains no tickets")
	}

	result := &ImportResult{BatchID: uuid.NewString()}
	for _, cand := range candidates {
		if cand.ReportNumber == "" && cand.TicketNumber != "" {
			cand.ReportNumber = cand.TicketNumber
		}

		existing, err := s.lookupExisting(ctx, cand)
		if err != nil {
			s.recordFailure(result, cand, &PersistenceError{Op: "lookup", Err: err})
			continue
		}

		oldStatus := domain.TicketStatus("")
		if existing != nil {
			oldStatus = existing.Status
		}

		ticket, outcome, err := s.reconciler.Reconcile(existing, cand)
		if err != nil {
			s.recordFailure(result, cand, err)
			continue
		}

		switch outcome {
		case OutcomeCreated:
			if err := s.tickets.Create(ctx, ticket); err != nil {
				s.recordFailure(result, cand, &PersistenceError{Op: "create", Err: err})
				continue
			}
			result.Created++
			s.publishEvent(ctx, events.Event{
				Type: events.EventTicketCreated,
				Payload: events.TicketCreatedPayload{
					ReportNumber: ticket.ReportNumber,
					Status:       ticket.Status,
					Handler:      ticket.Handler,
					Priority:     ticket.Priority,
				},
			})
		case OutcomeUpdated:
			if err := s.tickets.Update(ctx, ticket); err != nil {
				s.recordFailure(result, cand, &PersistenceError{Op: "update", Err: err})
				continue
			}
			result.Updated++
			if oldStatus != ticket.Status {
				s.publishEvent(ctx, events.Event{
					Type: events.EventTicketStatusChanged,
					Payload: events.TicketStatusChangedPayload{
						ReportNumber: ticket.ReportNumber,
						OldStatus:    oldStatus,
						NewStatus:    ticket.Status,
						Handler:      ticket.Handler,
					},
				})
			}
		case OutcomeSkipped:
			result.Skipped++
		}
		result.Tickets = append(result.Tickets, *ticket)
	}

	s.invalidateStats(ctx)
	s.logger.Info("batch imported",
		zap.String("batch_id", result.BatchID),
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

// SweepStale auto-completes tickets in the primary number series that are
// absent from the current batch. The import feed is authoritative:
// disappearance implies resolution. Runs strictly after ImportBatch using
// that batch's id set, never a cumulative one.
func (s *TicketService) SweepStale(ctx context.Context, uploadedNumbers map[string]struct{}) (int, error) {
	exclude := make([]string, 0, len(uploadedNumbers))
	for number := range uploadedNumbers {
		if strings.HasPrefix(number, s.cfg.SweepPrefix) {
			exclude = append(exclude, number)
		}
	}
	if len(exclude) == 0 {
		return 0, nil
	}

	stale, err := s.tickets.ListStale(ctx, s.cfg.SweepPrefix, exclude)
	if err != nil {
		return 0, &PersistenceError{Op: "list stale", Err: err}
	}

	completed := 0
	for i := range stale {
		ticket := &stale[i]
		oldStatus := ticket.Status
		updated := s.reconciler.AutoComplete(ticket, s.cfg.SystemHandler)
		if err := s.tickets.Update(ctx, updated); err != nil {
			s.logger.Error("auto-complete failed",
				zap.String("report_number", ticket.ReportNumber), zap.Error(err))
			continue
		}
		completed++
		s.publishEvent(ctx, events.Event{
			Type: events.EventTicketAutoCompleted,
			Payload: events.TicketAutoCompletedPayload{
				ReportNumber: updated.ReportNumber,
				OldStatus:    oldStatus,
				Handler:      updated.Handler,
			},
		})
	}

	if completed > 0 {
		s.invalidateStats(ctx)
	}
	s.logger.Info("staleness sweep finished", zap.Int("auto_completed", completed))
	return completed, nil
}

// PublishImportCompleted emits the batch summary event once import and
// sweep have both run.
func (s *TicketService) PublishImportCompleted(ctx context.Context, result *ImportResult) {
	s.publishEvent(ctx, events.Event{
		Type: events.EventImportCompleted,
		Payload: events.ImportCompletedPayload{
			BatchID:       result.BatchID,
			Created:       result.Created,
			Updated:       result.Updated,
			Skipped:       result.Skipped,
			Failed:        result.Failed,
			AutoCompleted: result.AutoCompleted,
		},
	})
}

// ListTickets returns all records, newest first.
func (s *TicketService) ListTickets(ctx context.Context) ([]domain.Ticket, error) {
	tickets, err := s.tickets.List(ctx)
	if err != nil {
		return nil, &PersistenceError{Op: "list", Err: err}
	}
	return tickets, nil
}

// Reset deletes every ticket record.
func (s *TicketService) Reset(ctx context.Context) (int64, error) {
	deleted, err := s.tickets.DeleteAll(ctx)
	if err != nil {
		return 0, &PersistenceError{Op: "delete all", Err: err}
	}
	s.invalidateStats(ctx)
	s.publishEvent(ctx, events.Event{
		Type:    events.EventTicketsReset,
		Payload: events.TicketsResetPayload{DeletedCount: deleted},
	})
	s.logger.Info("all tickets removed", zap.Int64("deleted", deleted))
	return deleted, nil
}

// lookupExisting tries the primary report number first, then the
// alternate ticket number. A miss on both is not an error.
func (s *TicketService) lookupExisting(ctx context.Context, cand domain.CandidateTicket) (*domain.Ticket, error) {
	if cand.ReportNumber != "" {
		ticket, err := s.tickets.GetByReportNumber(ctx, cand.ReportNumber)
		if err == nil {
			return ticket, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
	}
	if cand.TicketNumber != "" {
		ticket, err := s.tickets.GetByTicketNumber(ctx, cand.TicketNumber)
		if err == nil {
			return ticket, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
	}
	return nil, nil
}

func (s *TicketService) recordFailure(result *ImportResult, cand domain.CandidateTicket, err error) {
	result.Failed++
	result.Failures = append(result.Failures, FailureDetail{
		ReportNumber: cand.ReportNumber,
		Row:          cand.Row,
		Reason:       err.Error(),
	})
	s.logger.Warn("candidate rejected",
		zap.String("report_number", cand.ReportNumber),
		zap.Int("row", cand.Row),
		zap.Error(err),
	)
}

func (s *TicketService) invalidateStats(ctx context.Context) {
	if s.statsCache == nil {
		return
	}
	if err := s.statsCache.Del(ctx, statsCacheKey); err != nil {
		s.logger.Warn("stats cache invalidation failed", zap.Error(err))
	}
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
