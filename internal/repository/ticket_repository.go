package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticket-dashboard/internal/domain"
)

// StatusCount is one aggregation bucket for the stats endpoint.
type StatusCount struct {
	Status domain.TicketStatus
	Count  int
}

// HandlerCount is one per-handler aggregation bucket.
type HandlerCount struct {
	Handler string
	Count   int
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByReportNumber(ctx context.Context, number string) (*domain.Ticket, error)
	GetByTicketNumber(ctx context.Context, number string) (*domain.Ticket, error)
	List(ctx context.Context) ([]domain.Ticket, error)
	ListStale(ctx context.Context, prefix string, excludeNumbers []string) ([]domain.Ticket, error)
	DeleteAll(ctx context.Context) (int64, error)
	Count(ctx context.Context) (int, error)
	CountByStatus(ctx context.Context) ([]StatusCount, error)
	CountByHandler(ctx context.Context) ([]HandlerCount, error)
	AvgCompletedDurationDays(ctx context.Context) (float64, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, report_number, ticket_number, report_date, object, problem, reporter,
               supplier, description, status, handler, priority, history, total_duration_days,
               last_updated_at, completed_at, created_at, updated_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (report_number, ticket_number, report_date, object, problem, reporter,
            supplier, description, status, handler, priority, history, total_duration_days,
            last_updated_at, completed_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.ReportNumber,
		ticket.TicketNumber,
		ticket.ReportDate,
		ticket.Object,
		ticket.Problem,
		ticket.Reporter,
		ticket.Supplier,
		ticket.Description,
		ticket.Status,
		ticket.Handler,
		ticket.Priority,
		ticket.History,
		ticket.TotalDurationDays,
		ticket.LastUpdatedAt,
		ticket.CompletedAt,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET ticket_number=$1, report_date=$2, object=$3, problem=$4, reporter=$5,
            supplier=$6, description=$7, status=$8, handler=$9, priority=$10, history=$11,
            total_duration_days=$12, last_updated_at=$13, completed_at=$14, updated_at=NOW()
        WHERE id=$15`
	cmd, err := r.pool.Exec(ctx, query,
		ticket.TicketNumber,
		ticket.ReportDate,
		ticket.Object,
		ticket.Problem,
		ticket.Reporter,
		ticket.Supplier,
		ticket.Description,
		ticket.Status,
		ticket.Handler,
		ticket.Priority,
		ticket.History,
		ticket.TotalDurationDays,
		ticket.LastUpdatedAt,
		ticket.CompletedAt,
		ticket.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) GetByReportNumber(ctx context.Context, number string) (*domain.Ticket, error) {
	const query = `SELECT ` + ticketColumns + ` FROM tickets WHERE report_number=$1`
	return r.fetchSingle(ctx, query, number)
}

func (r *ticketRepository) GetByTicketNumber(ctx context.Context, number string) (*domain.Ticket, error) {
	const query = `SELECT ` + ticketColumns + ` FROM tickets WHERE ticket_number=$1`
	return r.fetchSingle(ctx, query, number)
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := scanTicket(r.pool.QueryRow(ctx, query, arg), &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) List(ctx context.Context) ([]domain.Ticket, error) {
	const query = `SELECT ` + ticketColumns + ` FROM tickets ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

// ListStale returns tickets in the primary number series that are not yet
// terminal and whose report number is absent from the current batch.
func (r *ticketRepository) ListStale(ctx context.Context, prefix string, excludeNumbers []string) ([]domain.Ticket, error) {
	const query = `SELECT ` + ticketColumns + ` FROM tickets
             WHERE report_number LIKE $1 || '%'
               AND status <> $2
               AND NOT (report_number = ANY($3))`
	rows, err := r.pool.Query(ctx, query, prefix, domain.TicketStatusCompleted, excludeNumbers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) DeleteAll(ctx context.Context) (int64, error) {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM tickets`)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *ticketRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tickets`).Scan(&count)
	return count, err
}

func (r *ticketRepository) CountByStatus(ctx context.Context) ([]StatusCount, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM tickets GROUP BY status ORDER BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []StatusCount
	for rows.Next() {
		var sc StatusCount
		if err := rows.Scan(&sc.Status, &sc.Count); err != nil {
			return nil, err
		}
		result = append(result, sc)
	}
	return result, rows.Err()
}

func (r *ticketRepository) CountByHandler(ctx context.Context) ([]HandlerCount, error) {
	rows, err := r.pool.Query(ctx, `SELECT handler, COUNT(*) FROM tickets GROUP BY handler ORDER BY handler`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []HandlerCount
	for rows.Next() {
		var hc HandlerCount
		if err := rows.Scan(&hc.Handler, &hc.Count); err != nil {
			return nil, err
		}
		result = append(result, hc)
	}
	return result, rows.Err()
}

func (r *ticketRepository) AvgCompletedDurationDays(ctx context.Context) (float64, error) {
	const query = `SELECT COALESCE(AVG(total_duration_days), 0) FROM tickets WHERE status=$1`
	var avg float64
	err := r.pool.QueryRow(ctx, query, domain.TicketStatusCompleted).Scan(&avg)
	return avg, err
}

func scanTicket(row pgx.Row, ticket *domain.Ticket) error {
	return row.Scan(
		&ticket.ID,
		&ticket.ReportNumber,
		&ticket.TicketNumber,
		&ticket.ReportDate,
		&ticket.Object,
		&ticket.Problem,
		&ticket.Reporter,
		&ticket.Supplier,
		&ticket.Description,
		&ticket.Status,
		&ticket.Handler,
		&ticket.Priority,
		&ticket.History,
		&ticket.TotalDurationDays,
		&ticket.LastUpdatedAt,
		&ticket.CompletedAt,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	)
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := scanTicket(rows, &ticket); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
