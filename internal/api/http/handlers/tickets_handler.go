package handlers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-dashboard/internal/api/dto"
	"github.com/spec-kit/ticket-dashboard/internal/domain"
	"github.com/spec-kit/ticket-dashboard/internal/excel"
	"github.com/spec-kit/ticket-dashboard/internal/observability"
	"github.com/spec-kit/ticket-dashboard/internal/service"
	apperrors "github.com/spec-kit/ticket-dashboard/pkg/util"
)

// TicketsHandler manages the ticket ingestion and dashboard endpoints.
type TicketsHandler struct {
	tickets       *service.TicketService
	stats         *service.StatsService
	notifications *service.NotificationService
	parser        *excel.Parser
	metrics       *observability.Metrics
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(tickets *service.TicketService, stats *service.StatsService, notifications *service.NotificationService, parser *excel.Parser, metrics *observability.Metrics) *TicketsHandler {
	return &TicketsHandler{
		tickets:       tickets,
		stats:         stats,
		notifications: notifications,
		parser:        parser,
		metrics:       metrics,
	}
}

// List GET /tickets.
func (h *TicketsHandler) List(c *fiber.Ctx) error {
	tickets, err := h.tickets.ListTickets(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, dto.FromTicket(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Import POST /tickets: reconcile a JSON batch of candidates.
func (h *TicketsHandler) Import(c *fiber.Ctx) error {
	var req dto.ImportTicketsRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	candidates := make([]domain.CandidateTicket, 0, len(req.Tickets))
	for i, row := range req.Tickets {
		candidates = append(candidates, row.ToCandidate(i+1))
	}

	result, err := h.tickets.ImportBatch(c.UserContext(), candidates)
	if err != nil {
		return err
	}
	h.tickets.PublishImportCompleted(c.UserContext(), result)
	h.metrics.RecordImport(len(candidates), 0)
	return c.JSON(dto.FromImportResult(result, false))
}

// Upload POST /tickets/upload: parse a spreadsheet, import and sweep.
func (h *TicketsHandler) Upload(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return apperrors.NewValidationError("no file uploaded", nil)
	}
	file, err := fileHeader.Open()
	if err != nil {
		return apperrors.NewUnprocessableFile("could not read uploaded file", err)
	}
	defer file.Close()

	candidates, err := h.parser.Parse(file)
	if err != nil {
		return apperrors.NewUnprocessableFile("could not parse spreadsheet", err)
	}

	result, err := h.tickets.ImportBatch(c.UserContext(), candidates)
	if err != nil {
		return err
	}

	uploaded := make(map[string]struct{}, len(candidates))
	for _, cand := range candidates {
		if cand.ReportNumber != "" {
			uploaded[cand.ReportNumber] = struct{}{}
		}
	}
	autoCompleted, err := h.tickets.SweepStale(c.UserContext(), uploaded)
	if err != nil {
		return err
	}
	result.AutoCompleted = autoCompleted
	h.tickets.PublishImportCompleted(c.UserContext(), result)
	h.metrics.RecordImport(len(candidates), autoCompleted)
	return c.JSON(dto.FromImportResult(result, true))
}

// Reset POST /tickets/reset.
func (h *TicketsHandler) Reset(c *fiber.Ctx) error {
	deleted, err := h.tickets.Reset(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(dto.ResetResponse{
		Message:      fmt.Sprintf("all tickets removed (%d total)", deleted),
		DeletedCount: deleted,
	})
}

// Stats GET /tickets/stats.
func (h *TicketsHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.stats.Stats(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(stats)
}

// Activity GET /tickets/activity.
func (h *TicketsHandler) Activity(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 20)
	activity, err := h.notifications.RecentActivity(c.UserContext(), limit)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": activity})
}
