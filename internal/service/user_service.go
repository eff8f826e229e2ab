package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/flowtls/syncplus/internal/auth"
	"github.com/flowtls/syncplus/internal/domain"
	"github.com/flowtls/syncplus/internal/events"
	"github.com/flowtls/syncplus/internal/repository"
	apperrors "github.com/flowtls/syncplus/pkg/util"
)

// UserService owns account and company administration. Whoever holds
// create_users administers accounts; there is no separate edit permission.
type UserService struct {
	users      repository.UserRepository
	companies  repository.CompanyRepository
	params     auth.Argon2Params
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// NewUserService constructs the service.
func NewUserService(users repository.UserRepository, companies repository.CompanyRepository, params auth.Argon2Params, dispatcher events.Dispatcher, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{
		users:      users,
		companies:  companies,
		params:     params,
		dispatcher: dispatcher,
		logger:     logger,
		now:        time.Now,
	}
}

// UserCreateInput is the account creation payload.
type UserCreateInput struct {
	Username    string
	Password    string
	Email       string
	FirstName   string
	LastName    string
	Role        domain.Role
	Department  string
	Phone       string
	CompanyID   string
	Permissions *domain.PermissionSet
}

// UserUpdateInput carries editable profile fields; username, email and
// credentials are immutable here. Nil pointers leave fields unchanged.
type UserUpdateInput struct {
	FirstName   *string
	LastName    *string
	Role        *domain.Role
	Department  *string
	Phone       *string
	CompanyID   *string
	Permissions *domain.PermissionSet
}

// CreateUser provisions an account. Requires create_users. Permission flags
// default from the role unless explicitly supplied.
func (s *UserService) CreateUser(ctx context.Context, session *domain.Session, input UserCreateInput) (*domain.User, error) {
	if !session.Can(domain.CapCreateUsers) {
		return nil, apperrors.NewForbidden("create_users permission required")
	}

	username := strings.TrimSpace(input.Username)
	email := strings.TrimSpace(input.Email)
	if username == "" || input.Password == "" || email == "" {
		return nil, apperrors.NewValidationError("username, password and email are required", nil)
	}

	exists, err := s.users.ExistsByUsernameOrEmail(ctx, username, email)
	if err != nil {
		return nil, apperrors.NewStorageError(err)
	}
	if exists {
		return nil, apperrors.NewDuplicate("username or email already in use", map[string]any{
			"username": username,
		})
	}

	role := input.Role
	if role == "" {
		role = domain.RoleUser
	}
	permissions := domain.DefaultPermissions(role)
	if input.Permissions != nil {
		permissions = *input.Permissions
	}

	salt, err := auth.GenerateSalt()
	if err != nil {
		return nil, apperrors.NewStorageError(err)
	}
	user := &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: auth.HashPassword(input.Password, salt, s.params),
		Salt:         salt,
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		Role:         role,
		Department:   input.Department,
		Phone:        input.Phone,
		CompanyID:    input.CompanyID,
		IsActive:     true,
		CreatedBy:    session.Username,
		Permissions:  permissions,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, apperrors.NewStorageError(err)
	}

	s.publish(ctx, events.Event{
		Type:  events.EventUserCreated,
		Actor: session.Username,
		Payload: events.UserCreatedPayload{
			Username: user.Username,
			Role:     user.Role,
		},
	})
	s.logger.Info("user created",
		zap.String("username", user.Username),
		zap.String("role", string(user.Role)),
		zap.String("created_by", session.Username))
	return user, nil
}

// UpdateUser edits profile fields and permission flags. Requires
// create_users; credentials go through ResetPassword instead.
func (s *UserService) UpdateUser(ctx context.Context, session *domain.Session, id int64, input UserUpdateInput) (*domain.User, error) {
	if !session.Can(domain.CapCreateUsers) {
		return nil, apperrors.NewForbidden("create_users permission required")
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, mapStorageErr(err, "user")
	}

	if input.FirstName != nil {
		user.FirstName = strings.TrimSpace(*input.FirstName)
	}
	if input.LastName != nil {
		user.LastName = strings.TrimSpace(*input.LastName)
	}
	if input.Role != nil {
		user.Role = *input.Role
	}
	if input.Department != nil {
		user.Department = *input.Department
	}
	if input.Phone != nil {
		user.Phone = *input.Phone
	}
	if input.CompanyID != nil {
		user.CompanyID = *input.CompanyID
	}
	if input.Permissions != nil {
		user.Permissions = *input.Permissions
	}

	if err := s.users.UpdateProfile(ctx, user); err != nil {
		return nil, mapStorageErr(err, "user")
	}
	return user, nil
}

// ResetPassword sets a new password with a freshly generated salt. Requires
// reset_passwords.
func (s *UserService) ResetPassword(ctx context.Context, session *domain.Session, id int64, newPassword string) error {
	if !session.Can(domain.CapResetPasswords) {
		return apperrors.NewForbidden("reset_passwords permission required")
	}
	if newPassword == "" {
		return apperrors.NewValidationError("password is required", nil)
	}
	if _, err := s.users.GetByID(ctx, id); err != nil {
		return mapStorageErr(err, "user")
	}

	salt, err := auth.GenerateSalt()
	if err != nil {
		return apperrors.NewStorageError(err)
	}
	hash := auth.HashPassword(newPassword, salt, s.params)
	if err := s.users.UpdateCredentials(ctx, id, hash, salt); err != nil {
		return mapStorageErr(err, "user")
	}
	s.logger.Info("password reset", zap.Int64("user_id", id), zap.String("reset_by", session.Username))
	return nil
}

// Deactivate disables an account; idempotent. Requires deactivate_users.
func (s *UserService) Deactivate(ctx context.Context, session *domain.Session, id int64) error {
	return s.setActive(ctx, session, id, false)
}

// Activate re-enables an account; idempotent. Requires deactivate_users.
func (s *UserService) Activate(ctx context.Context, session *domain.Session, id int64) error {
	return s.setActive(ctx, session, id, true)
}

func (s *UserService) setActive(ctx context.Context, session *domain.Session, id int64, active bool) error {
	if !session.Can(domain.CapDeactivateUsers) {
		return apperrors.NewForbidden("deactivate_users permission required")
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return mapStorageErr(err, "user")
	}
	if user.IsActive == active {
		return nil
	}
	if err := s.users.SetActive(ctx, id, active); err != nil {
		return mapStorageErr(err, "user")
	}
	if !active {
		s.publish(ctx, events.Event{
			Type:    events.EventUserDeactivated,
			Actor:   session.Username,
			Payload: events.UserCreatedPayload{Username: user.Username, Role: user.Role},
		})
	}
	return nil
}

// GetUser fetches one account. Requires create_users.
func (s *UserService) GetUser(ctx context.Context, session *domain.Session, id int64) (*domain.User, error) {
	if !session.Can(domain.CapCreateUsers) {
		return nil, apperrors.NewForbidden("create_users permission required")
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, mapStorageErr(err, "user")
	}
	return user, nil
}

// ListUsers returns accounts. Requires create_users.
func (s *UserService) ListUsers(ctx context.Context, session *domain.Session, includeInactive bool) ([]domain.User, error) {
	if !session.Can(domain.CapCreateUsers) {
		return nil, apperrors.NewForbidden("create_users permission required")
	}
	users, err := s.users.List(ctx, includeInactive)
	if err != nil {
		return nil, apperrors.NewStorageError(err)
	}
	return users, nil
}

// CompanyInput is the company create/update payload.
type CompanyInput struct {
	CompanyID    string
	CompanyName  string
	ContactEmail string
	Phone        string
	Address      string
	IsActive     *bool
}

// CreateCompany registers a client organization. Admin only.
func (s *UserService) CreateCompany(ctx context.Context, session *domain.Session, input CompanyInput) (*domain.Company, error) {
	if session == nil || session.Role != domain.RoleAdmin {
		return nil, apperrors.NewForbidden("admin role required")
	}
	if strings.TrimSpace(input.CompanyID) == "" || strings.TrimSpace(input.CompanyName) == "" {
		return nil, apperrors.NewValidationError("company_id and company_name are required", nil)
	}
	if _, err := s.companies.GetByCompanyID(ctx, input.CompanyID); err == nil {
		return nil, apperrors.NewDuplicate("company_id already in use", map[string]any{
			"company_id": input.CompanyID,
		})
	}

	company := &domain.Company{
		CompanyID:    strings.TrimSpace(input.CompanyID),
		CompanyName:  strings.TrimSpace(input.CompanyName),
		ContactEmail: input.ContactEmail,
		Phone:        input.Phone,
		Address:      input.Address,
		IsActive:     true,
	}
	if err := s.companies.Create(ctx, company); err != nil {
		return nil, apperrors.NewStorageError(err)
	}
	return company, nil
}

// UpdateCompany edits a company record. Admin only.
func (s *UserService) UpdateCompany(ctx context.Context, session *domain.Session, companyID string, input CompanyInput) (*domain.Company, error) {
	if session == nil || session.Role != domain.RoleAdmin {
		return nil, apperrors.NewForbidden("admin role required")
	}
	company, err := s.companies.GetByCompanyID(ctx, companyID)
	if err != nil {
		return nil, mapStorageErr(err, "company")
	}

	if strings.TrimSpace(input.CompanyName) != "" {
		company.CompanyName = strings.TrimSpace(input.CompanyName)
	}
	if input.ContactEmail != "" {
		company.ContactEmail = input.ContactEmail
	}
	if input.Phone != "" {
		company.Phone = input.Phone
	}
	if input.Address != "" {
		company.Address = input.Address
	}
	if input.IsActive != nil {
		company.IsActive = *input.IsActive
	}
	if err := s.companies.Update(ctx, company); err != nil {
		return nil, mapStorageErr(err, "company")
	}
	return company, nil
}

// ListCompanies returns every company; open to any authenticated session so
// ticket forms can populate their company picker.
func (s *UserService) ListCompanies(ctx context.Context, session *domain.Session) ([]domain.Company, error) {
	if session == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	companies, err := s.companies.List(ctx)
	if err != nil {
		return nil, apperrors.NewStorageError(err)
	}
	return companies, nil
}

// GetCompany returns one company by its business key.
func (s *UserService) GetCompany(ctx context.Context, session *domain.Session, companyID string) (*domain.Company, error) {
	if session == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	company, err := s.companies.GetByCompanyID(ctx, companyID)
	if err != nil {
		return nil, mapStorageErr(err, "company")
	}
	return company, nil
}

func (s *UserService) publish(ctx context.Context, event events.Event) {
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
