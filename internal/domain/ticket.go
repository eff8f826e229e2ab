package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "Open"
	TicketStatusInProgress TicketStatus = "In Progress"
	TicketStatusOnHold     TicketStatus = "On Hold"
	TicketStatusResolved   TicketStatus = "Resolved"
	TicketStatusClosed     TicketStatus = "Closed"
	TicketStatusDeleted    TicketStatus = "Deleted"
)

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow      TicketPriority = "Low"
	TicketPriorityMedium   TicketPriority = "Medium"
	TicketPriorityHigh     TicketPriority = "High"
	TicketPriorityCritical TicketPriority = "Critical"
)

// slaHours maps priority to the hour offset used to derive the due date.
var slaHours = map[TicketPriority]int{
	TicketPriorityCritical: 4,
	TicketPriorityHigh:     8,
	TicketPriorityMedium:   24,
	TicketPriorityLow:      72,
}

// DueDateFor derives the due date from priority at creation time. The due
// date is computed exactly once; it is never recomputed when priority changes
// later.
func DueDateFor(priority TicketPriority, now time.Time) time.Time {
	hours, ok := slaHours[priority]
	if !ok {
		hours = slaHours[TicketPriorityMedium]
	}
	return now.Add(time.Duration(hours) * time.Hour)
}

// IsOverdue reports whether a ticket is past due. Overdue is always derived
// at read time, never stored: resolved and closed tickets are never overdue,
// regardless of the due date.
func IsOverdue(dueDate *time.Time, status TicketStatus, now time.Time) bool {
	if dueDate == nil {
		return false
	}
	if status == TicketStatusResolved || status == TicketStatusClosed {
		return false
	}
	return dueDate.Before(now)
}

// CanTransition is the single choke point for status changes. The policy is
// permissive except that Closed is terminal; Resolved may reopen. Tightening
// the state machine is a change to this function alone.
func CanTransition(from, to TicketStatus) bool {
	if from == to {
		return true
	}
	return from != TicketStatusClosed
}

// Ticket is the aggregate for support requests. AssignedTo and Reporter hold
// user display names, not foreign keys, matching the upstream data model.
type Ticket struct {
	ID             int64
	Title          string
	Description    string
	Priority       TicketPriority
	Status         TicketStatus
	AssignedTo     string
	Category       string
	Subcategory    string
	CreatedAt      time.Time
	UpdatedAt      *time.Time
	DueDate        *time.Time
	Reporter       string
	Resolution     string
	Tags           string
	EstimatedHours float64
	ActualHours    float64
	CompanyID      string
	Source         string

	// Advisory edit lease.
	IsLocked bool
	LockedBy string
	LockedAt *time.Time

	// Audit trail of the last writer/reader.
	ModifiedBy   string
	LastViewedBy string
	LastViewedAt *time.Time
}
