package testutil

import (
	"github.com/localnerve/eventsdb/internal/access"
	"github.com/localnerve/eventsdb/internal/services"
)

// FakeValidator maps session cookies to principals
type FakeValidator map[string]*access.Principal

var _ services.SessionValidator = FakeValidator{}

func (f FakeValidator) ValidateSession(cookie string) (*access.Principal, error) {
	if p, ok := f[cookie]; ok {
		return p, nil
	}
	return nil, services.ErrInvalidSession
}

// Sessions holds one session cookie per kind of user
var Sessions = FakeValidator{
	"staff-session":  access.NewPrincipal("u-staff", "staff@example.org", []string{access.RoleStaff}),
	"admin-session":  access.NewPrincipal("u-admin", "admin@example.org", []string{access.RoleAdmin}),
	"member-session": access.NewPrincipal("u-member", "member@example.org", []string{"bureau"}),
	"owner-session":  access.NewPrincipal("owner-1", "owner@example.org", []string{"redaction"}),
}
