package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flowtls/syncplus/internal/domain"
)

// TicketCommentRepository stores the ticket_updates thread. Append-only.
type TicketCommentRepository interface {
	Create(ctx context.Context, comment *domain.TicketComment, entry *domain.TicketHistory) error
	ListByTicket(ctx context.Context, ticketID int64, includeInternal bool) ([]domain.TicketComment, error)
}

type ticketCommentRepository struct {
	pool *pgxpool.Pool
}

// NewTicketCommentRepository builds repository.
func NewTicketCommentRepository(pool *pgxpool.Pool) TicketCommentRepository {
	return &ticketCommentRepository{pool: pool}
}

// Create inserts the comment and its audit entry in one transaction.
func (r *ticketCommentRepository) Create(ctx context.Context, comment *domain.TicketComment, entry *domain.TicketHistory) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const query = `
        INSERT INTO ticket_updates (ticket_id, body, is_internal, created_by)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	if err := tx.QueryRow(ctx, query,
		comment.TicketID,
		comment.Text,
		comment.IsInternal,
		comment.CreatedBy,
	).Scan(&comment.ID, &comment.CreatedAt); err != nil {
		return err
	}

	if entry != nil {
		entry.TicketID = comment.TicketID
		if err := insertHistoryTx(ctx, tx, entry); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// ListByTicket returns the thread. Internal notes are filtered out here, at
// the listing boundary, for callers without the privileged flag.
func (r *ticketCommentRepository) ListByTicket(ctx context.Context, ticketID int64, includeInternal bool) ([]domain.TicketComment, error) {
	query := `
        SELECT id, ticket_id, body, is_internal, created_by, created_at
        FROM ticket_updates WHERE ticket_id=$1`
	if !includeInternal {
		query += ` AND NOT is_internal`
	}
	query += ` ORDER BY created_at ASC, id ASC`

	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketComment
	for rows.Next() {
		var comment domain.TicketComment
		if err := rows.Scan(
			&comment.ID,
			&comment.TicketID,
			&comment.Text,
			&comment.IsInternal,
			&comment.CreatedBy,
			&comment.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, comment)
	}
	return result, rows.Err()
}
