package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/localnerve/eventsdb/internal/access"
	"github.com/localnerve/eventsdb/internal/forms"
	"github.com/localnerve/eventsdb/internal/models"
	"github.com/localnerve/eventsdb/internal/services"
	"github.com/localnerve/eventsdb/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViewRestrictionsCoverDescendants(t *testing.T) {
	svc := testutil.NewTestService(t, nil)
	ctx := context.Background()
	index := testutil.CreateIndex(t, svc, "Agenda", 10)
	event := testutil.CreateEvent(t, svc, index.ID, "Concert", day, true)

	restrictions, err := services.RestrictionsFor(svc.DB, event)
	require.NoError(t, err)
	assert.Empty(t, restrictions)

	_, err = svc.SetViewRestriction(ctx, index.ID, services.RestrictionInput{RestrictionType: models.RestrictionLogin})
	require.NoError(t, err)
	r, err := svc.SetViewRestriction(ctx, event.ID, services.RestrictionInput{
		RestrictionType: models.RestrictionGroups,
		Groups:          []string{"bureau", " bureau "},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"bureau"}, r.GroupNames())

	restrictions, err = services.RestrictionsFor(svc.DB, event)
	require.NoError(t, err)
	require.Len(t, restrictions, 2)
	assert.Equal(t, models.RestrictionLogin, restrictions[0].RestrictionType)
	assert.Equal(t, []string{"bureau"}, restrictions[1].GroupNames())

	_, err = svc.SetViewRestriction(ctx, event.ID, services.RestrictionInput{RestrictionType: models.RestrictionNone})
	require.NoError(t, err)
	restrictions, err = services.RestrictionsFor(svc.DB, event)
	require.NoError(t, err)
	assert.Len(t, restrictions, 1)
}

func TestViewRestrictionValidation(t *testing.T) {
	svc := testutil.NewTestService(t, nil)
	ctx := context.Background()
	index := testutil.CreateIndex(t, svc, "Agenda", 10)

	_, err := svc.SetViewRestriction(ctx, index.ID, services.RestrictionInput{RestrictionType: models.RestrictionGroups})
	var ve *forms.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, []string{"Please select at least one group."}, ve.Fields["groups"])

	_, err = svc.SetViewRestriction(ctx, index.ID, services.RestrictionInput{RestrictionType: "password"})
	require.True(t, errors.As(err, &ve))
	assert.Contains(t, ve.Fields, "restriction_type")

	_, err = svc.SetViewRestriction(ctx, 999, services.RestrictionInput{RestrictionType: models.RestrictionLogin})
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestCanEdit(t *testing.T) {
	svc := testutil.NewTestService(t, nil)
	index := testutil.CreateIndex(t, svc, "Agenda", 10)
	event := testutil.CreateEvent(t, svc, index.ID, "Concert", day, true)

	editor := access.NewPrincipal("u-editor", "", []string{"redaction"})
	owner := access.NewPrincipal("owner-1", "", []string{"auteurs"})
	stranger := access.NewPrincipal("u-other", "", []string{"auteurs"})

	for _, p := range []*access.Principal{nil, editor, owner} {
		ok, err := services.CanEdit(svc.DB, event, p)
		require.NoError(t, err)
		assert.False(t, ok)
	}

	_, err := services.GrantPagePermission(svc.DB, index.ID, "redaction", models.PermissionChange)
	require.NoError(t, err)
	_, err = services.GrantPagePermission(svc.DB, index.ID, "auteurs", models.PermissionAdd)
	require.NoError(t, err)
	_, err = services.GrantPagePermission(svc.DB, index.ID, "redaction", models.PermissionChange)
	require.NoError(t, err, "granting twice is a no-op")

	ok, err := services.CanEdit(svc.DB, event, editor)
	require.NoError(t, err)
	assert.True(t, ok, "change on an ancestor")

	ok, err = services.CanEdit(svc.DB, event, owner)
	require.NoError(t, err)
	assert.True(t, ok, "add lets owners edit their pages")

	ok, err = services.CanEdit(svc.DB, event, stranger)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = services.GrantPagePermission(svc.DB, index.ID, "redaction", "delete")
	assert.Error(t, err)
}
