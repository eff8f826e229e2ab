package domain

// Session is the authenticated caller's identity, passed explicitly into
// every service call. There is no ambient current-user state; a nil session
// always denies.
type Session struct {
	UserID      int64
	Username    string
	FullName    string
	Role        Role
	CompanyID   string
	Permissions PermissionSet
}

// Can reports whether the session grants the capability. Fails closed on a
// nil session.
func (s *Session) Can(cap Capability) bool {
	if s == nil {
		return false
	}
	return s.Permissions.Has(cap)
}
