package dto

import (
	"time"

	"github.com/flowtls/syncplus/internal/domain"
)

// PermissionsPayload mirrors the seven capability flags.
type PermissionsPayload struct {
	CanCreateUsers     bool `json:"can_create_users"`
	CanDeactivateUsers bool `json:"can_deactivate_users"`
	CanResetPasswords  bool `json:"can_reset_passwords"`
	CanManageTickets   bool `json:"can_manage_tickets"`
	CanViewAllTickets  bool `json:"can_view_all_tickets"`
	CanDeleteTickets   bool `json:"can_delete_tickets"`
	CanExportData      bool `json:"can_export_data"`
}

// CreateUserRequest payload.
type CreateUserRequest struct {
	Username    string              `json:"username" validate:"required,min=3,max=64"`
	Password    string              `json:"password" validate:"required,min=8"`
	Email       string              `json:"email" validate:"required,email"`
	FirstName   string              `json:"first_name" validate:"required"`
	LastName    string              `json:"last_name" validate:"required"`
	Role        domain.Role         `json:"role" validate:"omitempty,oneof=Admin Manager Agent User"`
	Department  string              `json:"department"`
	Phone       string              `json:"phone"`
	CompanyID   string              `json:"company_id"`
	Permissions *PermissionsPayload `json:"permissions"`
}

// UpdateUserRequest payload; omitted fields are left unchanged.
type UpdateUserRequest struct {
	FirstName   *string             `json:"first_name"`
	LastName    *string             `json:"last_name"`
	Role        *domain.Role        `json:"role" validate:"omitempty,oneof=Admin Manager Agent User"`
	Department  *string             `json:"department"`
	Phone       *string             `json:"phone"`
	CompanyID   *string             `json:"company_id"`
	Permissions *PermissionsPayload `json:"permissions"`
}

// ResetPasswordRequest payload.
type ResetPasswordRequest struct {
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

// UserResponse is the public account view; credentials never appear here.
type UserResponse struct {
	ID          int64              `json:"id"`
	Username    string             `json:"username"`
	Email       string             `json:"email"`
	FirstName   string             `json:"first_name"`
	LastName    string             `json:"last_name"`
	FullName    string             `json:"full_name"`
	Role        domain.Role        `json:"role"`
	Department  string             `json:"department,omitempty"`
	Phone       string             `json:"phone,omitempty"`
	CompanyID   string             `json:"company_id,omitempty"`
	IsActive    bool               `json:"is_active"`
	CreatedAt   time.Time          `json:"created_at"`
	LastLoginAt *time.Time         `json:"last_login_at,omitempty"`
	Permissions PermissionsPayload `json:"permissions"`
}

// CompanyRequest payload for create and update.
type CompanyRequest struct {
	CompanyID    string `json:"company_id"`
	CompanyName  string `json:"company_name"`
	ContactEmail string `json:"contact_email" validate:"omitempty,email"`
	Phone        string `json:"phone"`
	Address      string `json:"address"`
	IsActive     *bool  `json:"is_active"`
}

// CompanyResponse view.
type CompanyResponse struct {
	ID           int64     `json:"id"`
	CompanyID    string    `json:"company_id"`
	CompanyName  string    `json:"company_name"`
	ContactEmail string    `json:"contact_email,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	Address      string    `json:"address,omitempty"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}
