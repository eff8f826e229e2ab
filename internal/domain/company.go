package domain

import "time"

// Company is shared reference data. Users and tickets point at it through
// CompanyID, a business key distinct from the internal numeric id; the
// reference is a lookup key, not an owning pointer.
type Company struct {
	ID           int64
	CompanyID    string
	CompanyName  string
	ContactEmail string
	Phone        string
	Address      string
	IsActive     bool
	CreatedAt    time.Time
}
