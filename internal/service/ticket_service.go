package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/flowtls/syncplus/internal/domain"
	"github.com/flowtls/syncplus/internal/events"
	"github.com/flowtls/syncplus/internal/repository"
	apperrors "github.com/flowtls/syncplus/pkg/util"
)

// TicketService coordinates ticket workflows. Every mutating method
// re-checks the session's capability flags before touching storage; HTTP
// middleware is only the outer gate.
type TicketService struct {
	tickets    repository.TicketRepository
	comments   repository.TicketCommentRepository
	history    repository.TicketHistoryRepository
	locks      repository.TicketLockRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	lockTTL    time.Duration
	now        func() time.Time
}

// TicketDependencies bundles repositories for the ticket service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	CommentRepo repository.TicketCommentRepository
	HistoryRepo repository.TicketHistoryRepository
	LockRepo    repository.TicketLockRepository
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
	LockTTL     time.Duration
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	ttl := deps.LockTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		comments:   deps.CommentRepo,
		history:    deps.HistoryRepo,
		locks:      deps.LockRepo,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		lockTTL:    ttl,
		now:        time.Now,
	}
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title          string
	Description    string
	Priority       domain.TicketPriority
	Status         domain.TicketStatus
	AssignedTo     string
	Category       string
	Subcategory    string
	Tags           string
	EstimatedHours float64
	CompanyID      string
	Source         string
}

// TicketUpdateInput carries the mutable fields of a ticket; nil means leave
// the field alone. Due date is absent on purpose: it is fixed at creation.
type TicketUpdateInput struct {
	Title          *string
	Description    *string
	Priority       *domain.TicketPriority
	Status         *domain.TicketStatus
	AssignedTo     *string
	Category       *string
	Subcategory    *string
	Resolution     *string
	Tags           *string
	EstimatedHours *float64
	ActualHours    *float64
	CompanyID      *string
	Source         *string
}

// TicketListInput describes listing filters.
type TicketListInput struct {
	Statuses   []domain.TicketStatus
	Priorities []domain.TicketPriority
	CompanyID  *string
	Limit      int
	Offset     int
}

// Create opens a new ticket. Any authenticated user may create; the due date
// is derived from priority once, here, and never recomputed afterwards.
func (s *TicketService) Create(ctx context.Context, session *domain.Session, input TicketCreateInput) (*domain.Ticket, error) {
	if session == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}

	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	if title == "" || description == "" || strings.TrimSpace(input.CompanyID) == "" {
		return nil, apperrors.NewValidationError("title, description and company_id are required", nil)
	}

	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityMedium
	}
	status := input.Status
	if status == "" {
		status = domain.TicketStatusOpen
	}
	if status != domain.TicketStatusOpen && status != domain.TicketStatusInProgress {
		return nil, apperrors.NewValidationError("new tickets must start Open or In Progress", nil)
	}
	category := input.Category
	if category == "" {
		category = "General"
	}
	source := input.Source
	if source == "" {
		source = "Manual"
	}

	now := s.now()
	due := domain.DueDateFor(priority, now)
	ticket := &domain.Ticket{
		Title:          title,
		Description:    description,
		Priority:       priority,
		Status:         status,
		AssignedTo:     strings.TrimSpace(input.AssignedTo),
		Category:       category,
		Subcategory:    input.Subcategory,
		DueDate:        &due,
		Reporter:       session.FullName,
		Tags:           input.Tags,
		EstimatedHours: input.EstimatedHours,
		CompanyID:      input.CompanyID,
		Source:         source,
		ModifiedBy:     session.FullName,
	}

	entry := &domain.TicketHistory{
		ActionType: domain.HistoryActionCreated,
		NewValue:   title,
		CreatedBy:  session.FullName,
	}
	if err := s.tickets.Create(ctx, ticket, entry); err != nil {
		return nil, apperrors.NewStorageError(err)
	}

	s.publish(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    session.FullName,
		Payload: events.TicketCreatedPayload{
			Title:     ticket.Title,
			Priority:  ticket.Priority,
			CompanyID: ticket.CompanyID,
			DueDate:   ticket.DueDate,
		},
	})
	return ticket, nil
}

// Get fetches one ticket, enforcing the same visibility rule as List, and
// records the viewer on the row.
func (s *TicketService) Get(ctx context.Context, session *domain.Session, id int64) (*domain.Ticket, error) {
	if session == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, mapStorageErr(err, "ticket")
	}
	if !s.canSee(session, ticket) {
		return nil, apperrors.NewForbidden("access denied")
	}
	if err := s.tickets.MarkViewed(ctx, id, session.FullName, s.now()); err != nil {
		s.logger.Warn("failed to record ticket view", zap.Int64("ticket_id", id), zap.Error(err))
	}
	return ticket, nil
}

// List returns tickets visible to the session. The read-authorization split
// lives in the repository filter: view_all_tickets sees every non-deleted
// ticket, everyone else only their own (reporter or assignee).
func (s *TicketService) List(ctx context.Context, session *domain.Session, input TicketListInput) ([]domain.Ticket, error) {
	if session == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	filter := repository.TicketFilter{
		ViewAll:    session.Can(domain.CapViewAllTickets),
		ViewerName: session.FullName,
		Statuses:   input.Statuses,
		Priorities: input.Priorities,
		CompanyID:  input.CompanyID,
		Limit:      input.Limit,
		Offset:     input.Offset,
	}
	tickets, err := s.tickets.List(ctx, filter)
	if err != nil {
		return nil, apperrors.NewStorageError(err)
	}
	return tickets, nil
}

// IsOverdue derives overdue state at read time.
func (s *TicketService) IsOverdue(ticket *domain.Ticket) bool {
	return domain.IsOverdue(ticket.DueDate, ticket.Status, s.now())
}

// Update applies changes to a ticket and appends one history entry per
// changed field. Requires manage_tickets.
func (s *TicketService) Update(ctx context.Context, session *domain.Session, id int64, input TicketUpdateInput) (*domain.Ticket, error) {
	if !session.Can(domain.CapManageTickets) {
		return nil, apperrors.NewForbidden("manage_tickets permission required")
	}
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, mapStorageErr(err, "ticket")
	}

	if input.Status != nil && !domain.CanTransition(ticket.Status, *input.Status) {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("invalid status transition %s -> %s", ticket.Status, *input.Status), nil)
	}

	var changes []domain.TicketHistory
	record := func(field, oldVal, newVal string) {
		if oldVal == newVal {
			return
		}
		changes = append(changes, domain.TicketHistory{
			ActionType:   domain.HistoryActionUpdated,
			FieldChanged: field,
			OldValue:     oldVal,
			NewValue:     newVal,
			CreatedBy:    session.FullName,
		})
	}

	if input.Title != nil {
		record("title", ticket.Title, *input.Title)
		ticket.Title = *input.Title
	}
	if input.Description != nil {
		record("description", ticket.Description, *input.Description)
		ticket.Description = *input.Description
	}
	if input.Priority != nil {
		// Changes priority only; the due date keeps its creation-time value.
		record("priority", string(ticket.Priority), string(*input.Priority))
		ticket.Priority = *input.Priority
	}
	if input.Status != nil {
		record("status", string(ticket.Status), string(*input.Status))
		ticket.Status = *input.Status
	}
	if input.AssignedTo != nil {
		record("assigned_to", ticket.AssignedTo, *input.AssignedTo)
		ticket.AssignedTo = *input.AssignedTo
	}
	if input.Category != nil {
		record("category", ticket.Category, *input.Category)
		ticket.Category = *input.Category
	}
	if input.Subcategory != nil {
		record("subcategory", ticket.Subcategory, *input.Subcategory)
		ticket.Subcategory = *input.Subcategory
	}
	if input.Resolution != nil {
		record("resolution", ticket.Resolution, *input.Resolution)
		ticket.Resolution = *input.Resolution
	}
	if input.Tags != nil {
		record("tags", ticket.Tags, *input.Tags)
		ticket.Tags = *input.Tags
	}
	if input.EstimatedHours != nil {
		record("estimated_hours", formatHours(ticket.EstimatedHours), formatHours(*input.EstimatedHours))
		ticket.EstimatedHours = *input.EstimatedHours
	}
	if input.ActualHours != nil {
		record("actual_hours", formatHours(ticket.ActualHours), formatHours(*input.ActualHours))
		ticket.ActualHours = *input.ActualHours
	}
	if input.CompanyID != nil {
		record("company_id", ticket.CompanyID, *input.CompanyID)
		ticket.CompanyID = *input.CompanyID
	}
	if input.Source != nil {
		record("source", ticket.Source, *input.Source)
		ticket.Source = *input.Source
	}

	if len(changes) == 0 {
		return ticket, nil
	}

	ticket.ModifiedBy = session.FullName
	if err := s.tickets.Update(ctx, ticket, changes); err != nil {
		return nil, mapStorageErr(err, "ticket")
	}

	fieldChanges := make([]events.FieldChange, 0, len(changes))
	for _, change := range changes {
		fieldChanges = append(fieldChanges, events.FieldChange{
			Field:    change.FieldChanged,
			OldValue: change.OldValue,
			NewValue: change.NewValue,
		})
	}
	s.publish(ctx, events.Event{
		Type:     events.EventTicketUpdated,
		TicketID: ticket.ID,
		Actor:    session.FullName,
		Payload:  events.TicketUpdatedPayload{Changes: fieldChanges},
	})
	return ticket, nil
}

// Delete soft-deletes a ticket: status moves to Deleted and the row stays.
// Requires delete_tickets.
func (s *TicketService) Delete(ctx context.Context, session *domain.Session, id int64) error {
	if !session.Can(domain.CapDeleteTickets) {
		return apperrors.NewForbidden("delete_tickets permission required")
	}
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return mapStorageErr(err, "ticket")
	}
	if ticket.Status == domain.TicketStatusDeleted {
		return nil
	}

	entry := domain.TicketHistory{
		ActionType:   domain.HistoryActionDeleted,
		FieldChanged: "status",
		OldValue:     string(ticket.Status),
		NewValue:     string(domain.TicketStatusDeleted),
		CreatedBy:    session.FullName,
	}
	ticket.Status = domain.TicketStatusDeleted
	ticket.ModifiedBy = session.FullName
	if err := s.tickets.Update(ctx, ticket, []domain.TicketHistory{entry}); err != nil {
		return mapStorageErr(err, "ticket")
	}
	s.publish(ctx, events.Event{
		Type:     events.EventTicketDeleted,
		TicketID: ticket.ID,
		Actor:    session.FullName,
	})
	return nil
}

// AddComment appends to the ticket thread. Any participant may comment;
// manage_tickets is not required, only visibility of the ticket itself.
func (s *TicketService) AddComment(ctx context.Context, session *domain.Session, ticketID int64, text string, isInternal bool) (*domain.TicketComment, error) {
	if session == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	if strings.TrimSpace(text) == "" {
		return nil, apperrors.NewValidationError("comment text is required", nil)
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, mapStorageErr(err, "ticket")
	}
	if !s.canSee(session, ticket) {
		return nil, apperrors.NewForbidden("access denied")
	}

	comment := &domain.TicketComment{
		TicketID:   ticketID,
		Text:       strings.TrimSpace(text),
		IsInternal: isInternal,
		CreatedBy:  session.FullName,
	}
	entry := &domain.TicketHistory{
		ActionType: domain.HistoryActionCommented,
		Comment:    comment.Text,
		CreatedBy:  session.FullName,
	}
	if err := s.comments.Create(ctx, comment, entry); err != nil {
		return nil, apperrors.NewStorageError(err)
	}

	s.publish(ctx, events.Event{
		Type:     events.EventTicketCommented,
		TicketID: ticketID,
		Actor:    session.FullName,
		Payload: events.TicketCommentedPayload{
			CommentID:  comment.ID,
			IsInternal: comment.IsInternal,
			Preview:    preview(comment.Text, 120),
		},
	})
	return comment, nil
}

// ListComments returns the thread. Internal notes are filtered out for
// callers without manage_tickets at this boundary, not in the UI.
func (s *TicketService) ListComments(ctx context.Context, session *domain.Session, ticketID int64) ([]domain.TicketComment, error) {
	if session == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, mapStorageErr(err, "ticket")
	}
	if !s.canSee(session, ticket) {
		return nil, apperrors.NewForbidden("access denied")
	}
	comments, err := s.comments.ListByTicket(ctx, ticketID, session.Can(domain.CapManageTickets))
	if err != nil {
		return nil, apperrors.NewStorageError(err)
	}
	return comments, nil
}

// History returns the audit trail for a visible ticket.
func (s *TicketService) History(ctx context.Context, session *domain.Session, ticketID int64) ([]domain.TicketHistory, error) {
	if session == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, mapStorageErr(err, "ticket")
	}
	if !s.canSee(session, ticket) {
		return nil, apperrors.NewForbidden("access denied")
	}
	entries, err := s.history.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.NewStorageError(err)
	}
	return entries, nil
}

// AcquireLock takes the advisory edit lease on a ticket. The repository does
// the compare-and-set in one statement; on failure the holder is looked up
// for the error detail.
func (s *TicketService) AcquireLock(ctx context.Context, session *domain.Session, ticketID int64) error {
	if !session.Can(domain.CapManageTickets) {
		return apperrors.NewForbidden("manage_tickets permission required")
	}
	acquired, err := s.locks.TryAcquire(ctx, ticketID, session.FullName, s.lockTTL)
	if err != nil {
		return apperrors.NewStorageError(err)
	}
	if acquired {
		return nil
	}
	state, err := s.locks.Get(ctx, ticketID)
	if err != nil {
		return mapStorageErr(err, "ticket")
	}
	return apperrors.NewLockedByOther(state.LockedBy)
}

// ReleaseLock drops the lease when held by the caller; otherwise a no-op.
func (s *TicketService) ReleaseLock(ctx context.Context, session *domain.Session, ticketID int64) error {
	if session == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := s.locks.Release(ctx, ticketID, session.FullName); err != nil {
		return apperrors.NewStorageError(err)
	}
	return nil
}

// ExportCSV renders the caller-visible tickets as CSV. Requires export_data.
func (s *TicketService) ExportCSV(ctx context.Context, session *domain.Session, input TicketListInput) ([]byte, error) {
	if !session.Can(domain.CapExportData) {
		return nil, apperrors.NewForbidden("export_data permission required")
	}
	tickets, err := s.List(ctx, session, input)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	header := []string{"id", "title", "priority", "status", "assigned_to", "category",
		"created_date", "due_date", "reporter", "company_id", "is_overdue"}
	if err := w.Write(header); err != nil {
		return nil, apperrors.NewStorageError(err)
	}
	for i := range tickets {
		t := &tickets[i]
		due := ""
		if t.DueDate != nil {
			due = t.DueDate.Format(time.RFC3339)
		}
		row := []string{
			strconv.FormatInt(t.ID, 10),
			t.Title,
			string(t.Priority),
			string(t.Status),
			t.AssignedTo,
			t.Category,
			t.CreatedAt.Format(time.RFC3339),
			due,
			t.Reporter,
			t.CompanyID,
			strconv.FormatBool(s.IsOverdue(t)),
		}
		if err := w.Write(row); err != nil {
			return nil, apperrors.NewStorageError(err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, apperrors.NewStorageError(err)
	}
	return buf.Bytes(), nil
}

func (s *TicketService) canSee(session *domain.Session, ticket *domain.Ticket) bool {
	if session == nil {
		return false
	}
	if session.Can(domain.CapViewAllTickets) {
		return true
	}
	return ticket.Reporter == session.FullName || ticket.AssignedTo == session.FullName
}

func (s *TicketService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func formatHours(hours float64) string {
	return strconv.FormatFloat(hours, 'f', -1, 64)
}

func preview(body string, max int) string {
	body = strings.TrimSpace(body)
	if len(body) <= max {
		return body
	}
	if max <= 3 {
		return body[:max]
	}
	return body[:max-3] + "..."
}

// mapStorageErr translates a repository error into the domain taxonomy.
func mapStorageErr(err error, resource string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound(resource, nil)
	}
	return apperrors.NewStorageError(err)
}
