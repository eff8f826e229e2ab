package domain

import "time"

// HistoryAction captures what kind of change a history entry records.
type HistoryAction string

const (
	HistoryActionCreated   HistoryAction = "created"
	HistoryActionUpdated   HistoryAction = "updated"
	HistoryActionCommented HistoryAction = "commented"
	HistoryActionDeleted   HistoryAction = "deleted"
)

// TicketHistory is an immutable audit trail entry. Rows are only ever
// inserted; there is no update or delete path.
type TicketHistory struct {
	ID           int64
	TicketID     int64
	ActionType   HistoryAction
	FieldChanged string
	OldValue     string
	NewValue     string
	Comment      string
	CreatedBy    string
	CreatedAt    time.Time
}

// TicketComment is a thread entry on a ticket. IsInternal comments are only
// visible to callers holding the manage-tickets capability.
type TicketComment struct {
	ID         int64
	TicketID   int64
	Text       string
	IsInternal bool
	CreatedBy  string
	CreatedAt  time.Time
}
