package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flowtls/syncplus/internal/domain"
)

const ticketColumns = `id, title, description, priority, status, assigned_to, category, subcategory,
               created_at, updated_at, due_date, reporter, resolution, tags,
               estimated_hours, actual_hours, company_id, source,
               is_locked, locked_by, locked_at, modified_by, last_viewed_by, last_viewed_at`

// TicketFilter scopes a listing to what the caller may see. When ViewAll is
// false only tickets reported by or assigned to ViewerName are returned; this
// is the read-authorization boundary, enforced here rather than in callers.
type TicketFilter struct {
	ViewAll    bool
	ViewerName string
	Statuses   []domain.TicketStatus
	Priorities []domain.TicketPriority
	CompanyID  *string
	Limit      int
	Offset     int
}

// TicketRepository encapsulates ticket persistence. Creates and updates write
// their audit entries in the same transaction, so a ticket mutation can never
// land without its history.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket, entry *domain.TicketHistory) error
	Update(ctx context.Context, ticket *domain.Ticket, entries []domain.TicketHistory) error
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	MarkViewed(ctx context.Context, id int64, viewer string, at time.Time) error
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket, entry *domain.TicketHistory) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const query = `
        INSERT INTO tickets (title, description, priority, status, assigned_to, category, subcategory,
            due_date, reporter, resolution, tags, estimated_hours, actual_hours, company_id, source, modified_by)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
        RETURNING id, created_at`
	if err := tx.QueryRow(ctx, query,
		ticket.Title,
		ticket.Description,
		ticket.Priority,
		ticket.Status,
		ticket.AssignedTo,
		ticket.Category,
		ticket.Subcategory,
		ticket.DueDate,
		ticket.Reporter,
		ticket.Resolution,
		ticket.Tags,
		ticket.EstimatedHours,
		ticket.ActualHours,
		ticket.CompanyID,
		ticket.Source,
		ticket.ModifiedBy,
	).Scan(&ticket.ID, &ticket.CreatedAt); err != nil {
		return err
	}

	if entry != nil {
		entry.TicketID = ticket.ID
		if err := insertHistoryTx(ctx, tx, entry); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket, entries []domain.TicketHistory) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	// due_date is intentionally absent: it is fixed at creation and never
	// recomputed, even when priority changes.
	const query = `
        UPDATE tickets SET title=$1, description=$2, priority=$3, status=$4, assigned_to=$5,
            category=$6, subcategory=$7, resolution=$8, tags=$9, estimated_hours=$10,
            actual_hours=$11, company_id=$12, source=$13, modified_by=$14, updated_at=NOW()
        WHERE id=$15`
	cmd, err := tx.Exec(ctx, query,
		ticket.Title,
		ticket.Description,
		ticket.Priority,
		ticket.Status,
		ticket.AssignedTo,
		ticket.Category,
		ticket.Subcategory,
		ticket.Resolution,
		ticket.Tags,
		ticket.EstimatedHours,
		ticket.ActualHours,
		ticket.CompanyID,
		ticket.Source,
		ticket.ModifiedBy,
		ticket.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}

	for i := range entries {
		entries[i].TicketID = ticket.ID
		if err := insertHistoryTx(ctx, tx, &entries[i]); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *ticketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := scanTicket(r.pool.QueryRow(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id=$1`, id), &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	clauses := []string{"status <> 'Deleted'"}
	args := []any{}

	if !filter.ViewAll {
		args = append(args, filter.ViewerName)
		clauses = append(clauses, fmt.Sprintf("(reporter=$%d OR assigned_to=$%d)", len(args), len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.CompanyID != nil {
		args = append(args, *filter.CompanyID)
		clauses = append(clauses, fmt.Sprintf("company_id=$%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		ticketColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

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

func (r *ticketRepository) MarkViewed(ctx context.Context, id int64, viewer string, at time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE tickets SET last_viewed_by=$1, last_viewed_at=$2 WHERE id=$3`,
		viewer, at, id)
	return err
}

func scanTicket(row pgx.Row, ticket *domain.Ticket) error {
	return row.Scan(
		&ticket.ID,
		&ticket.Title,
		&ticket.Description,
		&ticket.Priority,
		&ticket.Status,
		&ticket.AssignedTo,
		&ticket.Category,
		&ticket.Subcategory,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.DueDate,
		&ticket.Reporter,
		&ticket.Resolution,
		&ticket.Tags,
		&ticket.EstimatedHours,
		&ticket.ActualHours,
		&ticket.CompanyID,
		&ticket.Source,
		&ticket.IsLocked,
		&ticket.LockedBy,
		&ticket.LockedAt,
		&ticket.ModifiedBy,
		&ticket.LastViewedBy,
		&ticket.LastViewedAt,
	)
}
