package services_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/localnerve/eventsdb/internal/access"
	"github.com/localnerve/eventsdb/internal/models"
	"github.com/localnerve/eventsdb/internal/services"
	"github.com/localnerve/eventsdb/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventIndexPagination(t *testing.T) {
	svc := testutil.NewTestService(t, nil)
	ctx := context.Background()
	index := testutil.CreateIndex(t, svc, "Agenda", 3)
	for i := 0; i < 7; i++ {
		testutil.CreateEvent(t, svc, index.ID, fmt.Sprintf("Événement %d", i+1), day.AddDate(0, 0, i), true)
	}
	testutil.CreateEvent(t, svc, index.ID, "Pas encore publié", day.AddDate(1, 0, 0), false)

	sizes := []int{3, 3, 1}
	for i, size := range sizes {
		listing, err := svc.EventIndex(ctx, index, fmt.Sprint(i+1))
		require.NoError(t, err)
		assert.Len(t, listing.Events, size, "page %d", i+1)
		assert.Equal(t, 3, listing.Pagination.NumPages)
		assert.Equal(t, int64(7), listing.Pagination.Count)
	}

	first, err := svc.EventIndex(ctx, index, "abc")
	require.NoError(t, err)
	assert.Equal(t, 1, first.Pagination.Number)
	assert.Equal(t, "Événement 7", first.Events[0].Title, "newest first")
	assert.Equal(t, "Événement 6", first.Events[1].Title)
	assert.Equal(t, "<p>Nos événements</p>", first.Intro)

	last, err := svc.EventIndex(ctx, index, "42")
	require.NoError(t, err)
	assert.Equal(t, 3, last.Pagination.Number)
	require.Len(t, last.Events, 1)
	assert.Equal(t, "Événement 1", last.Events[0].Title)
	assert.Equal(t, "/agenda/evenement-1/", last.Events[0].URL)
}

func TestEventIndexEmpty(t *testing.T) {
	svc := testutil.NewTestService(t, nil)
	index := testutil.CreateIndex(t, svc, "Agenda", 10)

	listing, err := svc.EventIndex(context.Background(), index, "3")
	require.NoError(t, err)
	assert.Empty(t, listing.Events)
	assert.Equal(t, 1, listing.Pagination.Number)
	assert.Equal(t, 1, listing.Pagination.NumPages)
}

func TestEventIndexSeesNewEvents(t *testing.T) {
	svc := testutil.NewTestService(t, nil)
	ctx := context.Background()
	index := testutil.CreateIndex(t, svc, "Agenda", 10)

	listing, err := svc.EventIndex(ctx, index, "")
	require.NoError(t, err)
	assert.Empty(t, listing.Events)

	testutil.CreateEvent(t, svc, index.ID, "Concert", day, true)

	listing, err = svc.EventIndex(ctx, index, "")
	require.NoError(t, err)
	assert.Len(t, listing.Events, 1, "creating a child drops the cached listing")
}

func TestEventDocumentsGroupedByCategory(t *testing.T) {
	svc := testutil.NewTestService(t, nil)
	ctx := context.Background()
	index := testutil.CreateIndex(t, svc, "Agenda", 10)
	event := testutil.CreateEvent(t, svc, index.ID, "Assemblée générale", day, true)

	finances := testutil.CreateCategory(t, svc, "Finances")
	minutes := testutil.CreateCategory(t, svc, "Procès-verbaux")
	docs := []*models.Document{
		testutil.CreateDocument(t, svc, "Bilan", &finances.ID, "2025-03-01"),
		testutil.CreateDocument(t, svc, "PV 2024", &minutes.ID, "2024-06-20"),
		testutil.CreateDocument(t, svc, "Budget", &finances.ID, ""),
		testutil.CreateDocument(t, svc, "Relevé", &finances.ID, "2025-01-10"),
	}
	inputs := make([]services.AttachDocumentInput, 0, len(docs))
	for _, d := range docs {
		inputs = append(inputs, services.AttachDocumentInput{DocumentID: d.ID})
	}
	attached, err := svc.AttachDocuments(ctx, event.ID, inputs)
	require.NoError(t, err)
	require.Len(t, attached, 4)
	assert.Equal(t, 3, attached[3].SortOrder)

	ordered, err := services.EventDocuments(svc.DB, event.ID)
	require.NoError(t, err)
	titles := make([]string, 0, len(ordered))
	for _, ed := range ordered {
		titles = append(titles, ed.Document.Title)
	}
	assert.Equal(t, []string{"PV 2024", "Relevé", "Bilan", "Budget"}, titles, "by date, undated last")

	groups := services.GroupDocumentsByCategory(ordered)
	require.Len(t, groups, 2)
	assert.Equal(t, "Procès-verbaux", groups[0].Category)
	assert.Equal(t, "Finances", groups[1].Category)
	total := 0
	for _, g := range groups {
		total += len(g.Documents)
	}
	assert.Equal(t, len(attached), total)
}

func TestGroupDocumentsSkipsUncategorised(t *testing.T) {
	docs := []models.EventDocument{
		{Document: &models.Document{Title: "a", Category: &models.DocumentCategory{Name: "Finances"}}},
		{Document: &models.Document{Title: "b"}},
		{Document: &models.Document{Title: "c", Category: &models.DocumentCategory{Name: "Finances"}}},
	}
	groups := services.GroupDocumentsByCategory(docs)
	require.Len(t, groups, 1)
	assert.Len(t, groups[0].Documents, 2)

	assert.Empty(t, services.GroupDocumentsByCategory(nil))
}

func TestEventContext(t *testing.T) {
	svc := testutil.NewTestService(t, nil)
	ctx := context.Background()
	index := testutil.CreateIndex(t, svc, "Agenda", 10)
	event := testutil.CreateEvent(t, svc, index.ID, "Concert", day, true)

	img := testutil.CreateImage(t, svc, "Affiche")
	attachedImage, err := svc.AttachImage(ctx, event.ID, services.AttachImageInput{ImageID: img.ID, Caption: "La scène"})
	require.NoError(t, err)

	anonymous, err := svc.Event(ctx, event, nil)
	require.NoError(t, err)
	assert.False(t, anonymous.CanEdit)
	assert.Empty(t, anonymous.EditURL)
	assert.Equal(t, "2025-06-21T18:00:00Z", anonymous.DateEvent)
	require.Len(t, anonymous.EventImages, 1)
	assert.Equal(t, "La scène", anonymous.EventImages[0].Caption)
	require.NotNil(t, anonymous.EventImages[0].Image)
	assert.Equal(t, "Affiche", anonymous.EventImages[0].Image.Title)

	admin := access.NewPrincipal("u-admin", "", []string{access.RoleAdmin})
	ctxAdmin, err := svc.Event(ctx, event, admin)
	require.NoError(t, err)
	assert.True(t, ctxAdmin.CanEdit)
	assert.Equal(t, services.EditURL(event.ID), ctxAdmin.EditURL)

	member := access.NewPrincipal("u-member", "", []string{"bureau"})
	ctxMember, err := svc.Event(ctx, event, member)
	require.NoError(t, err)
	assert.False(t, ctxMember.CanEdit)

	require.NoError(t, svc.DetachImage(ctx, event.ID, attachedImage.ID))
	assert.ErrorIs(t, svc.DetachImage(ctx, event.ID, attachedImage.ID), services.ErrNotFound)

	refreshed, err := svc.Event(ctx, event, nil)
	require.NoError(t, err)
	assert.Empty(t, refreshed.EventImages)
}

func TestAttachRequiresEvent(t *testing.T) {
	svc := testutil.NewTestService(t, nil)
	ctx := context.Background()
	index := testutil.CreateIndex(t, svc, "Agenda", 10)
	doc := testutil.CreateDocument(t, svc, "Programme", nil, "")

	_, err := svc.AttachDocuments(ctx, index.ID, []services.AttachDocumentInput{{DocumentID: doc.ID}})
	assert.ErrorIs(t, err, services.ErrNotAnEvent)

	event := testutil.CreateEvent(t, svc, index.ID, "Concert", day, true)
	_, err = svc.AttachDocuments(ctx, event.ID, []services.AttachDocumentInput{{DocumentID: 999}})
	assert.Error(t, err)
	_, err = svc.AttachImage(ctx, event.ID, services.AttachImageInput{ImageID: 999})
	assert.Error(t, err)
}

func TestReorderDocuments(t *testing.T) {
	svc := testutil.NewTestService(t, nil)
	ctx := context.Background()
	index := testutil.CreateIndex(t, svc, "Agenda", 10)
	event := testutil.CreateEvent(t, svc, index.ID, "Concert", day, true)
	a := testutil.CreateDocument(t, svc, "A", nil, "")
	b := testutil.CreateDocument(t, svc, "B", nil, "")

	attached, err := svc.AttachDocuments(ctx, event.ID, []services.AttachDocumentInput{{DocumentID: a.ID}, {DocumentID: b.ID}})
	require.NoError(t, err)

	require.NoError(t, svc.ReorderDocuments(ctx, event.ID, []uint{attached[1].ID, attached[0].ID}))
	ordered, err := services.EventDocuments(svc.DB, event.ID)
	require.NoError(t, err)
	assert.Equal(t, "B", ordered[0].Document.Title)

	err = svc.ReorderDocuments(ctx, event.ID, []uint{attached[0].ID})
	assert.ErrorIs(t, err, services.ErrInvalidInput)
}
