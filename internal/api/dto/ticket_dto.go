package dto

import (
	"time"

	"github.com/flowtls/syncplus/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title          string                `json:"title" validate:"required,max=200"`
	Description    string                `json:"description" validate:"required"`
	Priority       domain.TicketPriority `json:"priority" validate:"omitempty,oneof=Low Medium High Critical"`
	Status         domain.TicketStatus   `json:"status" validate:"omitempty,oneof=Open 'In Progress'"`
	AssignedTo     string                `json:"assigned_to"`
	Category       string                `json:"category"`
	Subcategory    string                `json:"subcategory"`
	Tags           string                `json:"tags"`
	EstimatedHours float64               `json:"estimated_hours" validate:"gte=0"`
	CompanyID      string                `json:"company_id" validate:"required"`
	Source         string                `json:"source"`
}

// UpdateTicketRequest payload; omitted fields are left unchanged. Due date
// is not accepted: it is fixed when the ticket is created.
type UpdateTicketRequest struct {
	Title          *string                `json:"title" validate:"omitempty,max=200"`
	Description    *string                `json:"description"`
	Priority       *domain.TicketPriority `json:"priority" validate:"omitempty,oneof=Low Medium High Critical"`
	Status         *domain.TicketStatus   `json:"status" validate:"omitempty,oneof=Open 'In Progress' 'On Hold' Resolved Closed"`
	AssignedTo     *string                `json:"assigned_to"`
	Category       *string                `json:"category"`
	Subcategory    *string                `json:"subcategory"`
	Resolution     *string                `json:"resolution"`
	Tags           *string                `json:"tags"`
	EstimatedHours *float64               `json:"estimated_hours" validate:"omitempty,gte=0"`
	ActualHours    *float64               `json:"actual_hours" validate:"omitempty,gte=0"`
	CompanyID      *string                `json:"company_id"`
	Source         *string                `json:"source"`
}

// TicketListQuery captures query filters.
type TicketListQuery struct {
	Statuses   []domain.TicketStatus
	Priorities []domain.TicketPriority
	CompanyID  *string
	Limit      int
	Offset     int
}

// TicketResponse is the full ticket view. IsOverdue is derived at render
// time and never stored.
type TicketResponse struct {
	ID             int64                 `json:"id"`
	Title          string                `json:"title"`
	Description    string                `json:"description"`
	Priority       domain.TicketPriority `json:"priority"`
	Status         domain.TicketStatus   `json:"status"`
	AssignedTo     string                `json:"assigned_to,omitempty"`
	Category       string                `json:"category,omitempty"`
	Subcategory    string                `json:"subcategory,omitempty"`
	CreatedAt      time.Time             `json:"created_date"`
	UpdatedAt      *time.Time            `json:"updated_date,omitempty"`
	DueDate        *time.Time            `json:"due_date,omitempty"`
	IsOverdue      bool                  `json:"is_overdue"`
	Reporter       string                `json:"reporter"`
	Resolution     string                `json:"resolution,omitempty"`
	Tags           string                `json:"tags,omitempty"`
	EstimatedHours float64               `json:"estimated_hours,omitempty"`
	ActualHours    float64               `json:"actual_hours,omitempty"`
	CompanyID      string                `json:"company_id"`
	Source         string                `json:"source,omitempty"`
	IsLocked       bool                  `json:"is_locked"`
	LockedBy       string                `json:"locked_by,omitempty"`
	LockedAt       *time.Time            `json:"locked_at,omitempty"`
	ModifiedBy     string                `json:"modified_by,omitempty"`
}

// CreateCommentRequest payload.
type CreateCommentRequest struct {
	Text       string `json:"text" validate:"required"`
	IsInternal bool   `json:"is_internal"`
}

// CommentResponse view.
type CommentResponse struct {
	ID         int64     `json:"id"`
	TicketID   int64     `json:"ticket_id"`
	Text       string    `json:"text"`
	IsInternal bool      `json:"is_internal"`
	CreatedBy  string    `json:"created_by"`
	CreatedAt  time.Time `json:"created_at"`
}

// HistoryResponse is one audit trail entry.
type HistoryResponse struct {
	ID           int64                `json:"id"`
	TicketID     int64                `json:"ticket_id"`
	ActionType   domain.HistoryAction `json:"action_type"`
	FieldChanged string               `json:"field_changed,omitempty"`
	OldValue     string               `json:"old_value,omitempty"`
	NewValue     string               `json:"new_value,omitempty"`
	Comment      string               `json:"comment,omitempty"`
	CreatedBy    string               `json:"created_by"`
	CreatedAt    time.Time            `json:"created_at"`
}
