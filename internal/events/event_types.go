package events

import (
	"time"

	"github.com/flowtls/syncplus/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated   EventType = "ticket_created"
	EventTicketUpdated   EventType = "ticket_updated"
	EventTicketCommented EventType = "ticket_commented"
	EventTicketDeleted   EventType = "ticket_deleted"
	EventUserCreated     EventType = "user_created"
	EventUserDeactivated EventType = "user_deactivated"
)

// Event represents a domain event emitted by services. Actor is the display
// name of the user who performed the change.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  int64       `json:"ticket_id,omitempty"`
	Actor     string      `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Title     string                `json:"title"`
	Priority  domain.TicketPriority `json:"priority"`
	CompanyID string                `json:"company_id"`
	DueDate   *time.Time            `json:"due_date,omitempty"`
}

// FieldChange is one diffed field in an update event.
type FieldChange struct {
	Field    string `json:"field"`
	OldValue string `json:"old_value"`
	NewValue string `json:"new_value"`
}

// TicketUpdatedPayload payload.
type TicketUpdatedPayload struct {
	Changes []FieldChange `json:"changes"`
}

// TicketCommentedPayload payload.
type TicketCommentedPayload struct {
	CommentID  int64  `json:"comment_id"`
	IsInternal bool   `json:"is_internal"`
	Preview    string `json:"preview"`
}

// UserCreatedPayload payload.
type UserCreatedPayload struct {
	Username string      `json:"username"`
	Role     domain.Role `json:"role"`
}
