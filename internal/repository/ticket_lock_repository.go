package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// LockState is the current advisory lock on a ticket.
type LockState struct {
	Locked   bool
	LockedBy string
	LockedAt *time.Time
}

// TicketLockRepository manages the advisory edit lease on tickets. Acquire is
// a single conditional UPDATE, so concurrent callers cannot both win the
// check-then-set race.
type TicketLockRepository interface {
	TryAcquire(ctx context.Context, ticketID int64, userName string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, ticketID int64, userName string) error
	Get(ctx context.Context, ticketID int64) (*LockState, error)
}

type ticketLockRepository struct {
	pool *pgxpool.Pool
}

// NewTicketLockRepository builds repository.
func NewTicketLockRepository(pool *pgxpool.Pool) TicketLockRepository {
	return &ticketLockRepository{pool: pool}
}

// TryAcquire takes the lease when the ticket is unlocked, already held by the
// caller, or the holder's lease has expired. Returns false when someone else
// holds a live lease.
func (r *ticketLockRepository) TryAcquire(ctx context.Context, ticketID int64, userName string, ttl time.Duration) (bool, error) {
	const query = `
        UPDATE tickets SET is_locked=TRUE, locked_by=$1, locked_at=NOW()
        WHERE id=$2 AND (NOT is_locked OR locked_by=$1 OR locked_at < NOW() - make_interval(secs => $3))`
	cmd, err := r.pool.Exec(ctx, query, userName, ticketID, ttl.Seconds())
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

// Release clears the lease only when held by userName; releasing someone
// else's lock is a silent no-op.
func (r *ticketLockRepository) Release(ctx context.Context, ticketID int64, userName string) error {
	const query = `
        UPDATE tickets SET is_locked=FALSE, locked_by='', locked_at=NULL
        WHERE id=$1 AND locked_by=$2`
	_, err := r.pool.Exec(ctx, query, ticketID, userName)
	return err
}

func (r *ticketLockRepository) Get(ctx context.Context, ticketID int64) (*LockState, error) {
	var state LockState
	err := r.pool.QueryRow(ctx,
		`SELECT is_locked, locked_by, locked_at FROM tickets WHERE id=$1`,
		ticketID).Scan(&state.Locked, &state.LockedBy, &state.LockedAt)
	if err != nil {
		return nil, err
	}
	return &state, nil
}
