package domain

import "time"

// Role enumerates the built-in user roles. Roles only supply permission
// defaults at creation time; the effective capability set is stored per user
// and may diverge from the role default.
type Role string

const (
	RoleAdmin   Role = "Admin"
	RoleManager Role = "Manager"
	RoleAgent   Role = "Agent"
	RoleUser    Role = "User"
)

// Capability names one of the independent permission flags.
type Capability string

const (
	CapCreateUsers     Capability = "create_users"
	CapDeactivateUsers Capability = "deactivate_users"
	CapResetPasswords  Capability = "reset_passwords"
	CapManageTickets   Capability = "manage_tickets"
	CapViewAllTickets  Capability = "view_all_tickets"
	CapDeleteTickets   Capability = "delete_tickets"
	CapExportData      Capability = "export_data"
)

// PermissionSet holds the seven per-user capability flags.
type PermissionSet struct {
	CreateUsers     bool `json:"can_create_users"`
	DeactivateUsers bool `json:"can_deactivate_users"`
	ResetPasswords  bool `json:"can_reset_passwords"`
	ManageTickets   bool `json:"can_manage_tickets"`
	ViewAllTickets  bool `json:"can_view_all_tickets"`
	DeleteTickets   bool `json:"can_delete_tickets"`
	ExportData      bool `json:"can_export_data"`
}

// Has reports whether the named capability is granted. Unknown capabilities
// are denied.
func (p PermissionSet) Has(cap Capability) bool {
	switch cap {
	case CapCreateUsers:
		return p.CreateUsers
	case CapDeactivateUsers:
		return p.DeactivateUsers
	case CapResetPasswords:
		return p.ResetPasswords
	case CapManageTickets:
		return p.ManageTickets
	case CapViewAllTickets:
		return p.ViewAllTickets
	case CapDeleteTickets:
		return p.DeleteTickets
	case CapExportData:
		return p.ExportData
	default:
		return false
	}
}

// DefaultPermissions returns the seed capability set for a role.
func DefaultPermissions(role Role) PermissionSet {
	switch role {
	case RoleAdmin:
		return PermissionSet{
			CreateUsers:     true,
			DeactivateUsers: true,
			ResetPasswords:  true,
			ManageTickets:   true,
			ViewAllTickets:  true,
			DeleteTickets:   true,
			ExportData:      true,
		}
	case RoleManager:
		return PermissionSet{
			ManageTickets:  true,
			ViewAllTickets: true,
			ExportData:     true,
		}
	case RoleAgent:
		return PermissionSet{
			ManageTickets:  true,
			ViewAllTickets: true,
		}
	default:
		return PermissionSet{}
	}
}

// User is the account record. Username and email are globally unique among
// all users, active or not. Accounts are deactivated rather than destroyed.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	Salt         string
	FirstName    string
	LastName     string
	Role         Role
	Department   string
	Phone        string
	CompanyID    string
	IsActive     bool
	CreatedAt    time.Time
	LastLoginAt  *time.Time
	CreatedBy    string
	Permissions  PermissionSet
}

// FullName returns the display name used as the ticket reporter/assignee key.
func (u *User) FullName() string {
	if u.FirstName == "" {
		return u.LastName
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
