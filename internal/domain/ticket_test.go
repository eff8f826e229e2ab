package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDueDateFor(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		priority TicketPriority
		hours    int
	}{
		{TicketPriorityCritical, 4},
		{TicketPriorityHigh, 8},
		{TicketPriorityMedium, 24},
		{TicketPriorityLow, 72},
		{TicketPriority("Unknown"), 24},
	}
	for _, tt := range tests {
		t.Run(string(tt.priority), func(t *testing.T) {
			due := DueDateFor(tt.priority, now)
			assert.Equal(t, now.Add(time.Duration(tt.hours)*time.Hour), due)
		})
	}
}

func TestIsOverdue(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name    string
		dueDate *time.Time
		status  TicketStatus
		want    bool
	}{
		{"nil due date", nil, TicketStatusOpen, false},
		{"past due open", &past, TicketStatusOpen, true},
		{"past due in progress", &past, TicketStatusInProgress, true},
		{"past due on hold", &past, TicketStatusOnHold, true},
		{"past due resolved", &past, TicketStatusResolved, false},
		{"past due closed", &past, TicketStatusClosed, false},
		{"future due open", &future, TicketStatusOpen, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsOverdue(tt.dueDate, tt.status, now))
		})
	}
}

func TestCanTransition(t *testing.T) {
	statuses := []TicketStatus{
		TicketStatusOpen, TicketStatusInProgress, TicketStatusOnHold,
		TicketStatusResolved, TicketStatusClosed, TicketStatusDeleted,
	}

	for _, to := range statuses {
		assert.False(t, CanTransition(TicketStatusClosed, to) && to != TicketStatusClosed,
			"closed must not transition to %s", to)
	}
	assert.True(t, CanTransition(TicketStatusClosed, TicketStatusClosed))

	assert.True(t, CanTransition(TicketStatusOpen, TicketStatusClosed))
	assert.True(t, CanTransition(TicketStatusResolved, TicketStatusOpen))
	assert.True(t, CanTransition(TicketStatusOnHold, TicketStatusInProgress))
}
