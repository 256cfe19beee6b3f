// Package access decides who may view a page.
package access

// Session roles with special meaning. Every other role is a group name.
const (
	RoleStaff = "staff"
	RoleAdmin = "admin"
)

// Principal is the authenticated user behind a request. A nil *Principal is
// the anonymous user.
type Principal struct {
	UserID      string   `json:"id"`
	Email       string   `json:"email,omitempty"`
	Roles       []string `json:"roles"`
	IsStaff     bool     `json:"is_staff"`
	IsSuperuser bool     `json:"is_superuser"`
}

// NewPrincipal derives staff and superuser flags from session roles. The
// admin role implies staff.
func NewPrincipal(userID, email string, roles []string) *Principal {
	p := &Principal{UserID: userID, Email: email, Roles: roles}
	for _, r := range roles {
		switch r {
		case RoleAdmin:
			p.IsSuperuser = true
			p.IsStaff = true
		case RoleStaff:
			p.IsStaff = true
		}
	}
	return p
}

// IsAuthenticated is false for the anonymous user
func (p *Principal) IsAuthenticated() bool {
	return p != nil
}

// InGroup reports membership of a named group
func (p *Principal) InGroup(name string) bool {
	if p == nil {
		return false
	}
	for _, r := range p.Roles {
		if r == name {
			return true
		}
	}
	return false
}

// InAnyGroup reports membership of at least one of names
func (p *Principal) InAnyGroup(names []string) bool {
	for _, n := range names {
		if p.InGroup(n) {
			return true
		}
	}
	return false
}
