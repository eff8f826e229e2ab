package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowtls/syncplus/internal/domain"
	"github.com/flowtls/syncplus/internal/events"
	apperrors "github.com/flowtls/syncplus/pkg/util"
)

type ticketFixture struct {
	svc        *TicketService
	tickets    *fakeTicketRepo
	comments   *fakeCommentRepo
	locks      *fakeLockRepo
	dispatcher *recordingDispatcher
	clock      time.Time
}

func newTicketFixture(t *testing.T) *ticketFixture {
	t.Helper()
	tickets := newFakeTicketRepo()
	comments := newFakeCommentRepo(tickets)
	locks := newFakeLockRepo()
	dispatcher := &recordingDispatcher{}
	svc := NewTicketService(TicketDependencies{
		TicketRepo:  tickets,
		CommentRepo: comments,
		HistoryRepo: newFakeHistoryRepo(tickets),
		LockRepo:    locks,
		Dispatcher:  dispatcher,
		LockTTL:     15 * time.Minute,
	})
	fx := &ticketFixture{
		svc:        svc,
		tickets:    tickets,
		comments:   comments,
		locks:      locks,
		dispatcher: dispatcher,
		clock:      time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
	}
	svc.now = func() time.Time { return fx.clock }
	locks.now = func() time.Time { return fx.clock }
	return fx
}

func (fx *ticketFixture) create(t *testing.T, session *domain.Session, input TicketCreateInput) *domain.Ticket {
	t.Helper()
	ticket, err := fx.svc.Create(context.Background(), session, input)
	require.NoError(t, err)
	return ticket
}

func TestCreateTicketDerivesDueDateFromPriority(t *testing.T) {
	fx := newTicketFixture(t)
	session := sessionFor(domain.RoleUser, "Sara Johnson")

	ticket := fx.create(t, session, TicketCreateInput{
		Title:       "VPN down",
		Description: "Tunnel drops hourly",
		Priority:    domain.TicketPriorityCritical,
		CompanyID:   "CLIENT001",
	})

	require.NotNil(t, ticket.DueDate)
	assert.Equal(t, fx.clock.Add(4*time.Hour), *ticket.DueDate)
	assert.Equal(t, "Sara Johnson", ticket.Reporter)
	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)

	history := fx.tickets.historyFor(ticket.ID)
	require.Len(t, history, 1)
	assert.Equal(t, domain.HistoryActionCreated, history[0].ActionType)

	created := fx.dispatcher.byType(events.EventTicketCreated)
	require.Len(t, created, 1)
	assert.Equal(t, ticket.ID, created[0].TicketID)
}

func TestCreateTicketDefaults(t *testing.T) {
	fx := newTicketFixture(t)
	ticket := fx.create(t, sessionFor(domain.RoleUser, "Sara Johnson"), TicketCreateInput{
		Title:       "Printer toner",
		Description: "Low toner on floor 3",
		CompanyID:   "CLIENT002",
	})

	assert.Equal(t, domain.TicketPriorityMedium, ticket.Priority)
	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	assert.Equal(t, "General", ticket.Category)
	assert.Equal(t, "Manual", ticket.Source)
	require.NotNil(t, ticket.DueDate)
	assert.Equal(t, fx.clock.Add(24*time.Hour), *ticket.DueDate)
}

func TestCreateTicketValidation(t *testing.T) {
	fx := newTicketFixture(t)
	session := sessionFor(domain.RoleUser, "Sara Johnson")

	_, err := fx.svc.Create(context.Background(), session, TicketCreateInput{
		Description: "no title", CompanyID: "C1",
	})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))

	_, err = fx.svc.Create(context.Background(), session, TicketCreateInput{
		Title: "bad status", Description: "x", CompanyID: "C1",
		Status: domain.TicketStatusResolved,
	})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))
}

func TestGetTicketVisibility(t *testing.T) {
	fx := newTicketFixture(t)
	reporter := sessionFor(domain.RoleUser, "Sara Johnson")
	ticket := fx.create(t, reporter, TicketCreateInput{
		Title: "VPN down", Description: "d", CompanyID: "C1",
	})

	// reporter sees their own ticket and the view is recorded
	got, err := fx.svc.Get(context.Background(), reporter, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, ticket.ID, got.ID)
	assert.Equal(t, "Sara Johnson", fx.tickets.viewed[ticket.ID])

	// an unrelated plain user is rejected
	stranger := sessionFor(domain.RoleUser, "Bob Stranger")
	_, err = fx.svc.Get(context.Background(), stranger, ticket.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))

	// an agent with view_all_tickets sees everything
	agent := sessionFor(domain.RoleAgent, "Amy Chen")
	_, err = fx.svc.Get(context.Background(), agent, ticket.ID)
	assert.NoError(t, err)

	_, err = fx.svc.Get(context.Background(), agent, 999)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestListTicketsScopedToViewer(t *testing.T) {
	fx := newTicketFixture(t)
	sara := sessionFor(domain.RoleUser, "Sara Johnson")
	bob := sessionFor(domain.RoleUser, "Bob Stranger")
	fx.create(t, sara, TicketCreateInput{Title: "A", Description: "d", CompanyID: "C1"})
	fx.create(t, bob, TicketCreateInput{Title: "B", Description: "d", CompanyID: "C1"})
	fx.create(t, sara, TicketCreateInput{Title: "C", Description: "d", CompanyID: "C1", AssignedTo: "Bob Stranger"})

	mine, err := fx.svc.List(context.Background(), bob, TicketListInput{})
	require.NoError(t, err)
	assert.Len(t, mine, 2) // reported B, assigned C

	all, err := fx.svc.List(context.Background(), sessionFor(domain.RoleManager, "John Smith"), TicketListInput{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestUpdateTicketRecordsFieldDiffs(t *testing.T) {
	fx := newTicketFixture(t)
	agent := sessionFor(domain.RoleAgent, "Amy Chen")
	ticket := fx.create(t, agent, TicketCreateInput{
		Title: "VPN down", Description: "d", CompanyID: "C1",
		Priority: domain.TicketPriorityLow,
	})
	originalDue := *ticket.DueDate

	newStatus := domain.TicketStatusInProgress
	newPriority := domain.TicketPriorityCritical
	assignee := "Amy Chen"
	updated, err := fx.svc.Update(context.Background(), agent, ticket.ID, TicketUpdateInput{
		Status:     &newStatus,
		Priority:   &newPriority,
		AssignedTo: &assignee,
	})
	require.NoError(t, err)

	// priority escalation does not move the due date
	require.NotNil(t, updated.DueDate)
	assert.Equal(t, originalDue, *updated.DueDate)
	assert.Equal(t, "Amy Chen", updated.ModifiedBy)

	history := fx.tickets.historyFor(ticket.ID)
	fields := map[string]bool{}
	for _, entry := range history {
		if entry.ActionType == domain.HistoryActionUpdated {
			fields[entry.FieldChanged] = true
		}
	}
	assert.True(t, fields["status"])
	assert.True(t, fields["priority"])
	assert.True(t, fields["assigned_to"])
	assert.Len(t, fields, 3)

	updatedEvents := fx.dispatcher.byType(events.EventTicketUpdated)
	require.Len(t, updatedEvents, 1)
	payload, ok := updatedEvents[0].Payload.(events.TicketUpdatedPayload)
	require.True(t, ok)
	assert.Len(t, payload.Changes, 3)
}

func TestUpdateTicketNoChangesIsNoop(t *testing.T) {
	fx := newTicketFixture(t)
	agent := sessionFor(domain.RoleAgent, "Amy Chen")
	ticket := fx.create(t, agent, TicketCreateInput{Title: "T", Description: "d", CompanyID: "C1"})

	sameTitle := ticket.Title
	_, err := fx.svc.Update(context.Background(), agent, ticket.ID, TicketUpdateInput{Title: &sameTitle})
	require.NoError(t, err)

	assert.Len(t, fx.tickets.historyFor(ticket.ID), 1) // only the created entry
	assert.Empty(t, fx.dispatcher.byType(events.EventTicketUpdated))
}

func TestUpdateTicketClosedIsTerminal(t *testing.T) {
	fx := newTicketFixture(t)
	agent := sessionFor(domain.RoleAgent, "Amy Chen")
	ticket := fx.create(t, agent, TicketCreateInput{Title: "T", Description: "d", CompanyID: "C1"})

	closed := domain.TicketStatusClosed
	_, err := fx.svc.Update(context.Background(), agent, ticket.ID, TicketUpdateInput{Status: &closed})
	require.NoError(t, err)

	reopen := domain.TicketStatusOpen
	_, err = fx.svc.Update(context.Background(), agent, ticket.ID, TicketUpdateInput{Status: &reopen})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))

	// resolved tickets may reopen
	other := fx.create(t, agent, TicketCreateInput{Title: "U", Description: "d", CompanyID: "C1"})
	resolved := domain.TicketStatusResolved
	_, err = fx.svc.Update(context.Background(), agent, other.ID, TicketUpdateInput{Status: &resolved})
	require.NoError(t, err)
	_, err = fx.svc.Update(context.Background(), agent, other.ID, TicketUpdateInput{Status: &reopen})
	assert.NoError(t, err)
}

func TestUpdateTicketRequiresManagePermission(t *testing.T) {
	fx := newTicketFixture(t)
	user := sessionFor(domain.RoleUser, "Sara Johnson")
	ticket := fx.create(t, user, TicketCreateInput{Title: "T", Description: "d", CompanyID: "C1"})

	title := "changed"
	_, err := fx.svc.Update(context.Background(), user, ticket.ID, TicketUpdateInput{Title: &title})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
}

func TestDeleteTicketIsSoft(t *testing.T) {
	fx := newTicketFixture(t)
	admin := sessionFor(domain.RoleAdmin, "System Administrator")
	agent := sessionFor(domain.RoleAgent, "Amy Chen")
	ticket := fx.create(t, admin, TicketCreateInput{Title: "T", Description: "d", CompanyID: "C1"})

	// agents lack delete_tickets
	err := fx.svc.Delete(context.Background(), agent, ticket.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))

	require.NoError(t, fx.svc.Delete(context.Background(), admin, ticket.ID))

	stored, err := fx.tickets.GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusDeleted, stored.Status)

	// deleted tickets drop out of listings
	listed, err := fx.svc.List(context.Background(), admin, TicketListInput{})
	require.NoError(t, err)
	assert.Empty(t, listed)

	// repeat delete is a no-op
	require.NoError(t, fx.svc.Delete(context.Background(), admin, ticket.ID))
	assert.Len(t, fx.dispatcher.byType(events.EventTicketDeleted), 1)
}

func TestCommentsInternalVisibility(t *testing.T) {
	fx := newTicketFixture(t)
	reporter := sessionFor(domain.RoleUser, "Sara Johnson")
	agent := sessionFor(domain.RoleAgent, "Amy Chen")
	ticket := fx.create(t, reporter, TicketCreateInput{Title: "T", Description: "d", CompanyID: "C1"})

	_, err := fx.svc.AddComment(context.Background(), reporter, ticket.ID, "any update on this?", false)
	require.NoError(t, err)
	_, err = fx.svc.AddComment(context.Background(), agent, ticket.ID, "customer is on legacy firmware", true)
	require.NoError(t, err)

	_, err = fx.svc.AddComment(context.Background(), reporter, ticket.ID, "   ", false)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))

	asReporter, err := fx.svc.ListComments(context.Background(), reporter, ticket.ID)
	require.NoError(t, err)
	assert.Len(t, asReporter, 1)

	asAgent, err := fx.svc.ListComments(context.Background(), agent, ticket.ID)
	require.NoError(t, err)
	assert.Len(t, asAgent, 2)

	history, err := fx.svc.History(context.Background(), agent, ticket.ID)
	require.NoError(t, err)
	assert.Len(t, history, 3) // created + two commented entries
}

func TestLockLifecycle(t *testing.T) {
	fx := newTicketFixture(t)
	amy := sessionFor(domain.RoleAgent, "Amy Chen")
	john := sessionFor(domain.RoleManager, "John Smith")
	ticket := fx.create(t, amy, TicketCreateInput{Title: "T", Description: "d", CompanyID: "C1"})

	require.NoError(t, fx.svc.AcquireLock(context.Background(), amy, ticket.ID))

	// reacquiring your own lease renews it
	require.NoError(t, fx.svc.AcquireLock(context.Background(), amy, ticket.ID))

	err := fx.svc.AcquireLock(context.Background(), john, ticket.ID)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeLockedByOther))
	assert.Contains(t, err.Error(), "Amy Chen")

	// release by a non-holder is a silent no-op, the lease survives
	require.NoError(t, fx.svc.ReleaseLock(context.Background(), john, ticket.ID))
	err = fx.svc.AcquireLock(context.Background(), john, ticket.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeLockedByOther))

	require.NoError(t, fx.svc.ReleaseLock(context.Background(), amy, ticket.ID))
	require.NoError(t, fx.svc.AcquireLock(context.Background(), john, ticket.ID))
}

func TestLockExpiresAfterTTL(t *testing.T) {
	fx := newTicketFixture(t)
	amy := sessionFor(domain.RoleAgent, "Amy Chen")
	john := sessionFor(domain.RoleManager, "John Smith")
	ticket := fx.create(t, amy, TicketCreateInput{Title: "T", Description: "d", CompanyID: "C1"})

	require.NoError(t, fx.svc.AcquireLock(context.Background(), amy, ticket.ID))

	fx.clock = fx.clock.Add(16 * time.Minute)
	assert.NoError(t, fx.svc.AcquireLock(context.Background(), john, ticket.ID))
}

func TestLockRequiresManagePermission(t *testing.T) {
	fx := newTicketFixture(t)
	user := sessionFor(domain.RoleUser, "Sara Johnson")
	ticket := fx.create(t, user, TicketCreateInput{Title: "T", Description: "d", CompanyID: "C1"})

	err := fx.svc.AcquireLock(context.Background(), user, ticket.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
}

func TestExportCSV(t *testing.T) {
	fx := newTicketFixture(t)
	manager := sessionFor(domain.RoleManager, "John Smith")
	agent := sessionFor(domain.RoleAgent, "Amy Chen")

	fx.create(t, manager, TicketCreateInput{
		Title: "Report export fails", Description: "d", CompanyID: "C1",
		Priority: domain.TicketPriorityCritical,
	})

	// agents lack export_data
	_, err := fx.svc.ExportCSV(context.Background(), agent, TicketListInput{})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))

	// past the 4h SLA window the row shows overdue
	fx.clock = fx.clock.Add(5 * time.Hour)
	data, err := fx.svc.ExportCSV(context.Background(), manager, TicketListInput{})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "is_overdue")
	assert.Contains(t, lines[1], "Report export fails")
	assert.Contains(t, lines[1], "true")
}

func TestOverdueNeverStoredForResolved(t *testing.T) {
	fx := newTicketFixture(t)
	agent := sessionFor(domain.RoleAgent, "Amy Chen")
	ticket := fx.create(t, agent, TicketCreateInput{
		Title: "T", Description: "d", CompanyID: "C1",
		Priority: domain.TicketPriorityCritical,
	})

	fx.clock = fx.clock.Add(5 * time.Hour)
	assert.True(t, fx.svc.IsOverdue(ticket))

	resolved := domain.TicketStatusResolved
	updated, err := fx.svc.Update(context.Background(), agent, ticket.ID, TicketUpdateInput{Status: &resolved})
	require.NoError(t, err)
	assert.False(t, fx.svc.IsOverdue(updated))
}
