package access

import (
	"net/http"
	"testing"

	"github.com/localnerve/eventsdb/internal/config"
	"github.com/localnerve/eventsdb/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	eventPage = &models.Page{ID: 3, ContentType: models.PageTypeEvent, URLPath: "/evenements/fete/"}
	indexPage = &models.Page{ID: 2, ContentType: models.PageTypeEventIndex, URLPath: "/evenements/"}

	staff  = NewPrincipal("u-staff", "staff@test.com", []string{RoleStaff})
	normal = NewPrincipal("u-normal", "normal@test.com", []string{"bureau"})
	admin  = NewPrincipal("u-admin", "admin@test.com", []string{RoleAdmin})
)

func TestNewPrincipalRoles(t *testing.T) {
	assert.True(t, staff.IsStaff)
	assert.False(t, staff.IsSuperuser)
	assert.True(t, admin.IsStaff)
	assert.True(t, admin.IsSuperuser)
	assert.False(t, normal.IsStaff)
	assert.True(t, normal.InGroup("bureau"))

	var anonymous *Principal
	assert.False(t, anonymous.IsAuthenticated())
	assert.False(t, anonymous.InGroup("bureau"))
}

func TestStaffOnly(t *testing.T) {
	policy, err := NewPolicy(config.AccessStaff, "/login/")
	require.NoError(t, err)

	cases := []struct {
		name      string
		principal *Principal
		page      *models.Page
		status    int
	}{
		{"anonymous gets 403", nil, eventPage, http.StatusForbidden},
		{"non staff gets 403", normal, eventPage, http.StatusForbidden},
		{"staff gets 200", staff, eventPage, http.StatusOK},
		{"index is public", nil, indexPage, http.StatusOK},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := policy.Decide(Request{Principal: tc.principal, Page: tc.page, Path: tc.page.URLPath})
			assert.Equal(t, tc.status, d.Status)
			assert.Equal(t, tc.status == http.StatusOK, d.Allowed)
		})
	}
}

func TestStaffOnlyChecksViewRestrictions(t *testing.T) {
	policy, err := NewPolicy(config.AccessStaff, "/login/")
	require.NoError(t, err)
	login := []models.PageViewRestriction{{RestrictionType: models.RestrictionLogin}}

	d := policy.Decide(Request{Page: indexPage, Restrictions: login, Path: "/evenements/"})
	assert.False(t, d.Allowed)
	assert.Equal(t, http.StatusFound, d.Status)
	assert.Equal(t, "/login/?next=%2Fevenements%2F", d.Location)

	d = policy.Decide(Request{Page: eventPage, Restrictions: login, Path: "/evenements/fete/"})
	assert.Equal(t, http.StatusFound, d.Status, "restriction before the staff check")

	d = policy.Decide(Request{Principal: normal, Page: eventPage, Restrictions: login})
	assert.Equal(t, http.StatusForbidden, d.Status)

	d = policy.Decide(Request{Principal: staff, Page: eventPage, Restrictions: login})
	assert.True(t, d.Allowed)
}

func TestViewRestrictions(t *testing.T) {
	policy, err := NewPolicy(config.AccessRestriction, "/login/")
	require.NoError(t, err)

	login := models.PageViewRestriction{RestrictionType: models.RestrictionLogin}
	groups := models.PageViewRestriction{
		RestrictionType: models.RestrictionGroups,
		Groups:          []models.Group{{Name: "bureau"}},
	}

	d := policy.Decide(Request{Page: eventPage, Path: "/evenements/fete/"})
	assert.True(t, d.Allowed, "unrestricted page is public")

	d = policy.Decide(Request{Page: eventPage, Restrictions: []models.PageViewRestriction{login}, Path: "/evenements/fete/"})
	assert.False(t, d.Allowed)
	assert.Equal(t, http.StatusFound, d.Status)
	assert.Equal(t, "/login/?next=%2Fevenements%2Ffete%2F", d.Location)

	d = policy.Decide(Request{Principal: normal, Page: eventPage, Restrictions: []models.PageViewRestriction{login}})
	assert.True(t, d.Allowed)

	d = policy.Decide(Request{Principal: staff, Page: eventPage, Restrictions: []models.PageViewRestriction{groups}})
	assert.False(t, d.Allowed, "staff outside the group is refused")

	d = policy.Decide(Request{Principal: normal, Page: eventPage, Restrictions: []models.PageViewRestriction{login, groups}})
	assert.True(t, d.Allowed)

	d = policy.Decide(Request{Principal: admin, Page: eventPage, Restrictions: []models.PageViewRestriction{groups}})
	assert.True(t, d.Allowed, "superusers pass group restrictions")
}

func TestUnknownPolicy(t *testing.T) {
	_, err := NewPolicy("everyone", "/login/")
	assert.Error(t, err)
}
