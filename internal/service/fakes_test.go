package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/flowtls/syncplus/internal/domain"
	"github.com/flowtls/syncplus/internal/events"
	"github.com/flowtls/syncplus/internal/repository"
)

type fakeUserRepo struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[int64]*domain.User)}
}

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	user.ID = r.nextID
	user.CreatedAt = time.Now()
	cloned := *user
	r.users[user.ID] = &cloned
	return nil
}

func (r *fakeUserRepo) UpdateProfile(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.users[user.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	stored.FirstName = user.FirstName
	stored.LastName = user.LastName
	stored.Role = user.Role
	stored.Department = user.Department
	stored.Phone = user.Phone
	stored.CompanyID = user.CompanyID
	stored.Permissions = user.Permissions
	return nil
}

func (r *fakeUserRepo) UpdateCredentials(_ context.Context, id int64, passwordHash, salt string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.users[id]
	if !ok {
		return pgx.ErrNoRows
	}
	stored.PasswordHash = passwordHash
	stored.Salt = salt
	return nil
}

func (r *fakeUserRepo) SetActive(_ context.Context, id int64, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.users[id]
	if !ok {
		return pgx.ErrNoRows
	}
	stored.IsActive = active
	return nil
}

func (r *fakeUserRepo) RecordLogin(_ context.Context, id int64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.users[id]
	if !ok {
		return pgx.ErrNoRows
	}
	stored.LastLoginAt = &at
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cloned := *stored
	return &cloned, nil
}

func (r *fakeUserRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, stored := range r.users {
		if stored.Username == username {
			cloned := *stored
			return &cloned, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeUserRepo) ExistsByUsernameOrEmail(_ context.Context, username, email string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, stored := range r.users {
		if stored.Username == username || stored.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeUserRepo) List(_ context.Context, includeInactive bool) ([]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.User, 0, len(r.users))
	for _, stored := range r.users {
		if !includeInactive && !stored.IsActive {
			continue
		}
		out = append(out, *stored)
	}
	return out, nil
}

type fakeTicketRepo struct {
	mu      sync.Mutex
	nextID  int64
	tickets map[int64]*domain.Ticket
	history []domain.TicketHistory
	viewed  map[int64]string
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{
		tickets: make(map[int64]*domain.Ticket),
		viewed:  make(map[int64]string),
	}
}

func (r *fakeTicketRepo) Create(_ context.Context, ticket *domain.Ticket, entry *domain.TicketHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	ticket.ID = r.nextID
	ticket.CreatedAt = time.Now()
	cloned := *ticket
	r.tickets[ticket.ID] = &cloned
	entry.TicketID = ticket.ID
	r.history = append(r.history, *entry)
	return nil
}

func (r *fakeTicketRepo) Update(_ context.Context, ticket *domain.Ticket, entries []domain.TicketHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tickets[ticket.ID]; !ok {
		return pgx.ErrNoRows
	}
	cloned := *ticket
	r.tickets[ticket.ID] = &cloned
	for i := range entries {
		entries[i].TicketID = ticket.ID
		r.history = append(r.history, entries[i])
	}
	return nil
}

func (r *fakeTicketRepo) GetByID(_ context.Context, id int64) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cloned := *stored
	return &cloned, nil
}

func (r *fakeTicketRepo) List(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.Ticket{}
	for _, stored := range r.tickets {
		if stored.Status == domain.TicketStatusDeleted {
			continue
		}
		if !filter.ViewAll && stored.Reporter != filter.ViewerName && stored.AssignedTo != filter.ViewerName {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, stored.Status) {
			continue
		}
		if len(filter.Priorities) > 0 && !containsPriority(filter.Priorities, stored.Priority) {
			continue
		}
		if filter.CompanyID != nil && stored.CompanyID != *filter.CompanyID {
			continue
		}
		out = append(out, *stored)
	}
	return out, nil
}

func (r *fakeTicketRepo) MarkViewed(_ context.Context, id int64, viewer string, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tickets[id]; !ok {
		return pgx.ErrNoRows
	}
	r.viewed[id] = viewer
	return nil
}

func (r *fakeTicketRepo) historyFor(id int64) []domain.TicketHistory {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.TicketHistory{}
	for _, entry := range r.history {
		if entry.TicketID == id {
			out = append(out, entry)
		}
	}
	return out
}

func containsStatus(list []domain.TicketStatus, status domain.TicketStatus) bool {
	for _, s := range list {
		if s == status {
			return true
		}
	}
	return false
}

func containsPriority(list []domain.TicketPriority, priority domain.TicketPriority) bool {
	for _, p := range list {
		if p == priority {
			return true
		}
	}
	return false
}

type fakeCommentRepo struct {
	mu       sync.Mutex
	nextID   int64
	comments []domain.TicketComment
	tickets  *fakeTicketRepo
}

func newFakeCommentRepo(tickets *fakeTicketRepo) *fakeCommentRepo {
	return &fakeCommentRepo{tickets: tickets}
}

func (r *fakeCommentRepo) Create(_ context.Context, comment *domain.TicketComment, entry *domain.TicketHistory) error {
	r.mu.Lock()
	r.nextID++
	comment.ID = r.nextID
	comment.CreatedAt = time.Now()
	r.comments = append(r.comments, *comment)
	r.mu.Unlock()

	entry.TicketID = comment.TicketID
	r.tickets.mu.Lock()
	r.tickets.history = append(r.tickets.history, *entry)
	r.tickets.mu.Unlock()
	return nil
}

func (r *fakeCommentRepo) ListByTicket(_ context.Context, ticketID int64, includeInternal bool) ([]domain.TicketComment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.TicketComment{}
	for _, comment := range r.comments {
		if comment.TicketID != ticketID {
			continue
		}
		if comment.IsInternal && !includeInternal {
			continue
		}
		out = append(out, comment)
	}
	return out, nil
}

type fakeHistoryRepo struct {
	tickets *fakeTicketRepo
}

func newFakeHistoryRepo(tickets *fakeTicketRepo) *fakeHistoryRepo {
	return &fakeHistoryRepo{tickets: tickets}
}

func (r *fakeHistoryRepo) Create(_ context.Context, entry *domain.TicketHistory) error {
	r.tickets.mu.Lock()
	defer r.tickets.mu.Unlock()
	r.tickets.history = append(r.tickets.history, *entry)
	return nil
}

func (r *fakeHistoryRepo) ListByTicket(_ context.Context, ticketID int64) ([]domain.TicketHistory, error) {
	return r.tickets.historyFor(ticketID), nil
}

type fakeLockRepo struct {
	mu    sync.Mutex
	locks map[int64]*repository.LockState
	now   func() time.Time
}

func newFakeLockRepo() *fakeLockRepo {
	return &fakeLockRepo{
		locks: make(map[int64]*repository.LockState),
		now:   time.Now,
	}
}

func (r *fakeLockRepo) TryAcquire(_ context.Context, ticketID int64, userName string, ttl time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, ok := r.locks[ticketID]
	now := r.now()
	expired := ok && state.LockedAt != nil && state.LockedAt.Add(ttl).Before(now)
	if !ok || !state.Locked || state.LockedBy == userName || expired {
		at := now
		r.locks[ticketID] = &repository.LockState{Locked: true, LockedBy: userName, LockedAt: &at}
		return true, nil
	}
	return false, nil
}

func (r *fakeLockRepo) Release(_ context.Context, ticketID int64, userName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, ok := r.locks[ticketID]
	if ok && state.LockedBy == userName {
		delete(r.locks, ticketID)
	}
	return nil
}

func (r *fakeLockRepo) Get(_ context.Context, ticketID int64) (*repository.LockState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, ok := r.locks[ticketID]
	if !ok {
		return &repository.LockState{}, nil
	}
	cloned := *state
	return &cloned, nil
}

type fakeCompanyRepo struct {
	mu        sync.Mutex
	nextID    int64
	companies map[string]*domain.Company
}

func newFakeCompanyRepo() *fakeCompanyRepo {
	return &fakeCompanyRepo{companies: make(map[string]*domain.Company)}
}

func (r *fakeCompanyRepo) Create(_ context.Context, company *domain.Company) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	company.ID = r.nextID
	company.CreatedAt = time.Now()
	cloned := *company
	r.companies[company.CompanyID] = &cloned
	return nil
}

func (r *fakeCompanyRepo) Update(_ context.Context, company *domain.Company) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.companies[company.CompanyID]; !ok {
		return pgx.ErrNoRows
	}
	cloned := *company
	r.companies[company.CompanyID] = &cloned
	return nil
}

func (r *fakeCompanyRepo) List(_ context.Context) ([]domain.Company, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Company, 0, len(r.companies))
	for _, company := range r.companies {
		out = append(out, *company)
	}
	return out, nil
}

func (r *fakeCompanyRepo) GetByCompanyID(_ context.Context, companyID string) (*domain.Company, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	company, ok := r.companies[companyID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cloned := *company
	return &cloned, nil
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) published() []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]events.Event{}, d.events...)
}

func (d *recordingDispatcher) byType(eventType events.EventType) []events.Event {
	out := []events.Event{}
	for _, event := range d.published() {
		if event.Type == eventType {
			out = append(out, event)
		}
	}
	return out
}

func sessionFor(role domain.Role, fullName string) *domain.Session {
	return &domain.Session{
		UserID:      1,
		Username:    strings.ToLower(strings.ReplaceAll(fullName, " ", "")),
		FullName:    fullName,
		Role:        role,
		Permissions: domain.DefaultPermissions(role),
	}
}
