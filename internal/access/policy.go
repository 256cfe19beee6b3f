package access

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/localnerve/eventsdb/internal/config"
	"github.com/localnerve/eventsdb/internal/models"
)

// StaffOnlyMessage is the body of the staff model's refusal
const StaffOnlyMessage = "Access restricted to staff members."

// Request is what a policy needs to know about a page view
type Request struct {
	Principal *Principal
	Page      *models.Page
	// Restrictions holds the view restrictions of the page and its ancestors
	Restrictions []models.PageViewRestriction
	// Path is the requested URL, used as the login redirect target
	Path string
}

// Decision is the outcome of a policy check
type Decision struct {
	Allowed  bool
	Status   int
	Location string
	Message  string
}

// Allow is the decision granting access
func Allow() Decision {
	return Decision{Allowed: true, Status: http.StatusOK}
}

// Policy decides whether a page may be served
type Policy interface {
	Decide(req Request) Decision
}

// NewPolicy returns the policy for an ACCESS_MODEL setting
func NewPolicy(model, loginURL string) (Policy, error) {
	switch model {
	case config.AccessStaff:
		return StaffOnly{LoginURL: loginURL}, nil
	case config.AccessRestriction:
		return ViewRestrictions{LoginURL: loginURL}, nil
	}
	return nil, fmt.Errorf("unknown access model %q", model)
}

// StaffOnly serves event pages to staff users only and answers 403 to
// everyone else. View restrictions are checked first, as in
// ViewRestrictions, so other page types are public unless restricted.
type StaffOnly struct {
	LoginURL string
}

func (s StaffOnly) Decide(req Request) Decision {
	if d := (ViewRestrictions{LoginURL: s.LoginURL}).Decide(req); !d.Allowed {
		return d
	}
	if req.Page == nil || req.Page.ContentType != models.PageTypeEvent {
		return Allow()
	}
	if !req.Principal.IsAuthenticated() || !req.Principal.IsStaff {
		return Decision{Status: http.StatusForbidden, Message: StaffOnlyMessage}
	}
	return Allow()
}

// ViewRestrictions applies the view restrictions attached to the page and
// its ancestors. A refused request is redirected to the login page.
type ViewRestrictions struct {
	LoginURL string
}

func (v ViewRestrictions) Decide(req Request) Decision {
	for i := range req.Restrictions {
		if !Accepts(&req.Restrictions[i], req.Principal) {
			return Decision{
				Status:   http.StatusFound,
				Location: LoginRedirect(v.LoginURL, req.Path),
			}
		}
	}
	return Allow()
}

// Accepts reports whether a restriction lets the principal through
func Accepts(r *models.PageViewRestriction, p *Principal) bool {
	switch r.RestrictionType {
	case models.RestrictionLogin:
		return p.IsAuthenticated()
	case models.RestrictionGroups:
		if !p.IsAuthenticated() {
			return false
		}
		return p.IsSuperuser || p.InAnyGroup(r.GroupNames())
	}
	return true
}

// LoginRedirect builds the login URL carrying the next target
func LoginRedirect(loginURL, next string) string {
	if next == "" {
		return loginURL
	}
	return loginURL + "?next=" + url.QueryEscape(next)
}
