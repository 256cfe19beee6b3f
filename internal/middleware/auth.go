package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/eventsdb/internal/access"
	"github.com/localnerve/eventsdb/internal/services"
	"github.com/localnerve/eventsdb/internal/types"
	"github.com/sirupsen/logrus"
)

// SessionCookie is the cookie set by the Authorizer service
const SessionCookie = "cookie_session"

const principalKey = "principal"

// Authenticate resolves the session cookie to a principal and stores it in
// the request locals. Requests without a valid session continue as
// anonymous. A nil validator makes every request anonymous.
func Authenticate(validator services.SessionValidator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		session := c.Cookies(SessionCookie)
		if session == "" || validator == nil {
			return c.Next()
		}

		principal, err := validator.ValidateSession(session)
		if err != nil {
			entry := logrus.WithError(err).WithField("path", c.Path())
			if errors.Is(err, services.ErrInvalidSession) {
				entry.Debug("session rejected")
			} else {
				entry.Warn("session validation failed")
			}
			return c.Next()
		}

		c.Locals(principalKey, principal)
		return c.Next()
	}
}

// Principal returns the authenticated principal of the request, nil for
// anonymous requests
func Principal(c *fiber.Ctx) *access.Principal {
	p, _ := c.Locals(principalKey).(*access.Principal)
	return p
}

// RequireStaff refuses requests without a staff session
func RequireStaff() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p := Principal(c)
		if !p.IsAuthenticated() {
			return types.NewCustomError(fiber.StatusForbidden,
				"Authorizer cookie \""+SessionCookie+"\" not found or invalid", types.ErrorTypeAuth)
		}
		if !p.IsStaff {
			return types.NewCustomError(fiber.StatusForbidden,
				"Staff access required", types.ErrorTypeForbidden)
		}
		return c.Next()
	}
}
