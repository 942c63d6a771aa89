package dto

import (
	"time"

	"github.com/spec-kit/ticket-dashboard/internal/domain"
	"github.com/spec-kit/ticket-dashboard/internal/service"
)

// CandidateTicketRequest is one loosely-typed row in a batch create
// request. Status, priority and date arrive as raw strings and are
// normalized at this boundary.
type CandidateTicketRequest struct {
	ReportNumber string `json:"report_number"`
	TicketNumber string `json:"ticket_number"`
	ReportDate   string `json:"report_date"`
	Object       string `json:"object"`
	Problem      string `json:"problem"`
	Reporter     string `json:"reporter"`
	Supplier     string `json:"supplier"`
	Description  string `json:"description"`
	Status       string `json:"status"`
	Handler      string `json:"handler"`
	Priority     string `json:"priority"`
}

// ToCandidate normalizes the request row into a well-typed candidate.
func (r CandidateTicketRequest) ToCandidate(row int) domain.CandidateTicket {
	return domain.CandidateTicket{
		ReportNumber: r.ReportNumber,
		TicketNumber: r.TicketNumber,
		ReportDate:   domain.ParseReportDate(r.ReportDate),
		Object:       r.Object,
		Problem:      r.Problem,
		Reporter:     r.Reporter,
		Supplier:     r.Supplier,
		Description:  r.Description,
		Status:       domain.ParseStatus(r.Status),
		RawStatus:    r.Status,
		Handler:      r.Handler,
		Priority:     domain.ParsePriority(r.Priority),
		Row:          row,
	}
}

// ImportTicketsRequest payload for POST /tickets.
type ImportTicketsRequest struct {
	Tickets []CandidateTicketRequest `json:"tickets"`
}

// HistoryEntryResponse is one status timeline segment.
type HistoryEntryResponse struct {
	Status       domain.TicketStatus `json:"status"`
	StartedAt    time.Time           `json:"started_at"`
	EndedAt      *time.Time          `json:"ended_at,omitempty"`
	Handler      string              `json:"handler"`
	DurationDays int                 `json:"duration_days"`
}

// TicketResponse is the full record representation.
type TicketResponse struct {
	ID                string                 `json:"id"`
	ReportNumber      string                 `json:"report_number"`
	TicketNumber      *string                `json:"ticket_number,omitempty"`
	ReportDate        time.Time              `json:"report_date"`
	Object            string                 `json:"object"`
	Problem           string                 `json:"problem"`
	Reporter          string                 `json:"reporter"`
	Supplier          string                 `json:"supplier"`
	Description       string                 `json:"description"`
	Status            domain.TicketStatus    `json:"status"`
	Handler           string                 `json:"handler"`
	Priority          domain.TicketPriority  `json:"priority"`
	History           []HistoryEntryResponse `json:"history"`
	TotalDurationDays int                    `json:"total_duration_days"`
	LastUpdatedAt     time.Time              `json:"last_updated_at"`
	CompletedAt       *time.Time             `json:"completed_at,omitempty"`
	CreatedAt         time.Time              `json:"created_at"`
	UpdatedAt         time.Time              `json:"updated_at"`
}

// ImportStats summarizes a batch import.
type ImportStats struct {
	Created       int `json:"created"`
	Updated       int `json:"updated"`
	Skipped       int `json:"skipped"`
	Failed        int `json:"failed"`
	AutoCompleted int `json:"auto_completed"`
}

// ImportResponse is returned by the batch create and upload endpoints.
type ImportResponse struct {
	Success        bool                    `json:"success"`
	Successes      int                     `json:"successes"`
	Failures       int                     `json:"failures"`
	FailureDetails []service.FailureDetail `json:"failure_details"`
	Tickets        []TicketResponse        `json:"tickets"`
	Stats          *ImportStats            `json:"stats,omitempty"`
}

// ResetResponse is returned by POST /tickets/reset.
type ResetResponse struct {
	Message      string `json:"message"`
	DeletedCount int64  `json:"deleted_count"`
}

// FromTicket maps a domain ticket onto its response representation.
func FromTicket(ticket *domain.Ticket) TicketResponse {
	history := make([]HistoryEntryResponse, 0, len(ticket.History))
	for _, entry := range ticket.History {
		history = append(history, HistoryEntryResponse{
			Status:       entry.Status,
			StartedAt:    entry.StartedAt,
			EndedAt:      entry.EndedAt,
			Handler:      entry.Handler,
			DurationDays: entry.DurationDays,
		})
	}
	return TicketResponse{
		ID:                ticket.ID,
		ReportNumber:      ticket.ReportNumber,
		TicketNumber:      ticket.TicketNumber,
		ReportDate:        ticket.ReportDate,
		Object:            ticket.Object,
		Problem:           ticket.Problem,
		Reporter:          ticket.Reporter,
		Supplier:          ticket.Supplier,
		Description:       ticket.Description,
		Status:            ticket.Status,
		Handler:           ticket.Handler,
		Priority:          ticket.Priority,
		History:           history,
		TotalDurationDays: ticket.TotalDurationDays,
		LastUpdatedAt:     ticket.LastUpdatedAt,
		CompletedAt:       ticket.CompletedAt,
		CreatedAt:         ticket.CreatedAt,
		UpdatedAt:         ticket.UpdatedAt,
	}
}

// FromImportResult maps a batch result onto the response shape.
func FromImportResult(result *service.ImportResult, withStats bool) ImportResponse {
	tickets := make([]TicketResponse, 0, len(result.Tickets))
	for i := range result.Tickets {
		tickets = append(tickets, FromTicket(&result.Tickets[i]))
	}
	details := result.Failures
	if details == nil {
		details = []service.FailureDetail{}
	}
	resp := ImportResponse{
		Success:        result.Failed == 0,
		Successes:      result.Successes(),
		Failures:       result.Failed,
		FailureDetails: details,
		Tickets:        tickets,
	}
	if withStats {
		resp.Stats = &ImportStats{
			Created:       result.Created,
			Updated:       result.Updated,
			Skipped:       result.Skipped,
			Failed:        result.Failed,
			AutoCompleted: result.AutoCompleted,
		}
	}
	return resp
}
