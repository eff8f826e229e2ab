package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flowtls/syncplus/internal/domain"
)

// TicketHistoryRepository stores audit entries. Insert-only: there is no
// update or delete path, by contract.
type TicketHistoryRepository interface {
	Create(ctx context.Context, entry *domain.TicketHistory) error
	ListByTicket(ctx context.Context, ticketID int64) ([]domain.TicketHistory, error)
}

type ticketHistoryRepository struct {
	pool *pgxpool.Pool
}

// NewTicketHistoryRepository builds repository.
func NewTicketHistoryRepository(pool *pgxpool.Pool) TicketHistoryRepository {
	return &ticketHistoryRepository{pool: pool}
}

func (r *ticketHistoryRepository) Create(ctx context.Context, entry *domain.TicketHistory) error {
	const query = `
        INSERT INTO ticket_history (ticket_id, action_type, field_changed, old_value, new_value, comment, created_by)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		entry.TicketID,
		entry.ActionType,
		entry.FieldChanged,
		entry.OldValue,
		entry.NewValue,
		entry.Comment,
		entry.CreatedBy,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *ticketHistoryRepository) ListByTicket(ctx context.Context, ticketID int64) ([]domain.TicketHistory, error) {
	const query = `
        SELECT id, ticket_id, action_type, field_changed, old_value, new_value, comment, created_by, created_at
        FROM ticket_history WHERE ticket_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketHistory
	for rows.Next() {
		var entry domain.TicketHistory
		if err := rows.Scan(
			&entry.ID,
			&entry.TicketID,
			&entry.ActionType,
			&entry.FieldChanged,
			&entry.OldValue,
			&entry.NewValue,
			&entry.Comment,
			&entry.CreatedBy,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}

// insertHistoryTx appends an audit entry within an open transaction, used by
// ticket and comment writes so the entry commits atomically with the change.
func insertHistoryTx(ctx context.Context, tx pgx.Tx, entry *domain.TicketHistory) error {
	const query = `
        INSERT INTO ticket_history (ticket_id, action_type, field_changed, old_value, new_value, comment, created_by)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at`
	return tx.QueryRow(ctx, query,
		entry.TicketID,
		entry.ActionType,
		entry.FieldChanged,
		entry.OldValue,
		entry.NewValue,
		entry.Comment,
		entry.CreatedBy,
	).Scan(&entry.ID, &entry.CreatedAt)
}
