package services_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/localnerve/eventsdb/internal/config"
	"github.com/localnerve/eventsdb/internal/forms"
	"github.com/localnerve/eventsdb/internal/models"
	"github.com/localnerve/eventsdb/internal/services"
	"github.com/localnerve/eventsdb/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentDefaultsToRootCollection(t *testing.T) {
	svc := testutil.NewTestService(t, nil)

	doc := testutil.CreateDocument(t, svc, "Budget 2025", nil, "")
	require.NotNil(t, doc.Collection)
	assert.Equal(t, models.RootCollectionName, doc.Collection.Name)
	assert.Equal(t, "Budget 2025", doc.String())
	assert.Equal(t, int64(len("contenu Budget 2025")), doc.FileSize)
	assert.Len(t, doc.FileHash, 40)
}

func TestDocumentInChildCollection(t *testing.T) {
	svc := testutil.NewTestService(t, nil)
	root, err := services.RootCollection(svc.DB)
	require.NoError(t, err)
	archives, err := services.AddChildCollection(svc.DB, root.ID, "Archives")
	require.NoError(t, err)
	assert.Equal(t, 2, archives.Depth)

	doc, err := svc.CreateDocument(context.Background(), forms.DocumentInput{
		Title:        testutil.Ptr("PV assemblée"),
		CollectionID: &archives.ID,
	}, &services.Upload{Filename: "pv.pdf", Reader: strings.NewReader("%PDF")})
	require.NoError(t, err)
	require.NotNil(t, doc.Collection)
	assert.Equal(t, "Archives", doc.Collection.Name)
}

func TestCreateDocumentValidation(t *testing.T) {
	svc := testutil.NewTestService(t, nil)

	_, err := svc.CreateDocument(context.Background(), forms.DocumentInput{
		Title:        testutil.Ptr(""),
		DocumentDate: testutil.Ptr("31/12/2024"),
	}, nil)
	var ve *forms.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Contains(t, ve.Fields, forms.FieldTitle)
	assert.Contains(t, ve.Fields, forms.FieldFile)
	assert.Contains(t, ve.Fields, forms.FieldDocumentDate)

	_, err = svc.CreateDocument(context.Background(), forms.DocumentInput{
		Title:      testutil.Ptr("Facture"),
		CategoryID: testutil.Ptr(uint(999)),
	}, &services.Upload{Filename: "f.pdf", Reader: strings.NewReader("x")})
	require.True(t, errors.As(err, &ve))
	assert.Contains(t, ve.Fields, forms.FieldCategory)
}

func TestAddDocumentsDropsFileErrors(t *testing.T) {
	svc := testutil.NewTestService(t, nil)
	finances := testutil.CreateCategory(t, svc, "Finances")

	results, err := svc.AddDocuments(context.Background(), forms.DocumentInput{CategoryID: &finances.ID}, []services.Upload{
		{Filename: "Relevé mars.pdf", Reader: strings.NewReader("a")},
		{Filename: "releve-avril.pdf", Reader: strings.NewReader("b")},
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Nil(t, r.Errors)
		require.NotNil(t, r.Document)
		assert.Equal(t, "Finances", r.Document.CategoryName())
	}
	assert.Equal(t, "Relevé mars", results[0].Document.Title)

	results, err = svc.AddDocuments(context.Background(), forms.DocumentInput{
		Title: testutil.Ptr(strings.Repeat("x", 300)),
	}, []services.Upload{{Filename: "long.pdf", Reader: strings.NewReader("c")}})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.NotNil(t, results[0].Errors)
	assert.Contains(t, results[0].Errors.Fields, forms.FieldTitle)
	assert.NotContains(t, results[0].Errors.Fields, forms.FieldFile)
}

func TestUpdateDocumentReplacesFile(t *testing.T) {
	svc := testutil.NewTestService(t, nil)
	doc := testutil.CreateDocument(t, svc, "Statuts", nil, "2024-01-15")
	oldFile := doc.File

	updated, err := svc.UpdateDocument(context.Background(), doc.ID, forms.DocumentInput{
		Notes: testutil.Ptr("version signée"),
	}, &services.Upload{Filename: "statuts-signes.txt", Reader: strings.NewReader("signé")})
	require.NoError(t, err)
	assert.Equal(t, "version signée", updated.Notes)
	assert.Equal(t, "documents/statuts-signes.txt", updated.File)
	require.NotNil(t, updated.Date())
	assert.Equal(t, "2024-01-15", updated.Date().Format(forms.DateLayout))

	_, err = svc.Storage.Open(oldFile)
	assert.Error(t, err, "replaced file is removed")

	_, f, err := svc.OpenDocumentFile(doc.ID, "statuts-signes.txt")
	require.NoError(t, err)
	content, _ := io.ReadAll(f)
	f.Close()
	assert.Equal(t, "signé", string(content))

	_, _, err = svc.OpenDocumentFile(doc.ID, "other.txt")
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestDeleteCategoryProtect(t *testing.T) {
	svc := testutil.NewTestService(t, nil)
	invoices := testutil.CreateCategory(t, svc, "Factures")
	doc := testutil.CreateDocument(t, svc, "Facture 12", &invoices.ID, "")

	err := svc.DeleteCategory(context.Background(), invoices.ID)
	assert.ErrorIs(t, err, services.ErrCategoryProtected)

	reloaded, err := services.GetDocument(svc.DB, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "Factures", reloaded.CategoryName())

	empty := testutil.CreateCategory(t, svc, "Vide")
	require.NoError(t, svc.DeleteCategory(context.Background(), empty.ID))
	_, err = services.GetCategory(svc.DB, empty.ID)
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestDeleteCategorySetNull(t *testing.T) {
	svc := testutil.NewTestService(t, func(cfg *config.Config) {
		cfg.CategoryOnDelete = config.OnDeleteSetNull
	})
	invoices := testutil.CreateCategory(t, svc, "Factures")
	doc := testutil.CreateDocument(t, svc, "Facture 12", &invoices.ID, "")

	require.NoError(t, svc.DeleteCategory(context.Background(), invoices.ID))

	reloaded, err := services.GetDocument(svc.DB, doc.ID)
	require.NoError(t, err)
	assert.Nil(t, reloaded.CategoryID)
	assert.Nil(t, reloaded.Category)
}

func TestCategoryNamesAreUnique(t *testing.T) {
	svc := testutil.NewTestService(t, nil)
	testutil.CreateCategory(t, svc, "Factures")

	_, err := services.CreateCategory(svc.DB, " Factures ")
	var ve *forms.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Contains(t, ve.Fields, "name")

	other := testutil.CreateCategory(t, svc, "Relevés")
	renamed, err := svc.RenameCategory(context.Background(), other.ID, "Relevés bancaires")
	require.NoError(t, err)
	assert.Equal(t, "Relevés bancaires", renamed.Name)

	created, err := services.SeedCategories(svc.DB, []string{"Factures", "Contrats"})
	require.NoError(t, err)
	assert.Equal(t, 1, created)
}

func TestListDocuments(t *testing.T) {
	svc := testutil.NewTestService(t, nil)
	finances := testutil.CreateCategory(t, svc, "Finances")
	testutil.CreateDocument(t, svc, "Budget prévisionnel", &finances.ID, "")
	testutil.CreateDocument(t, svc, "Bilan", &finances.ID, "")
	testutil.CreateDocument(t, svc, "Affiche fête", nil, "")

	list, err := svc.ListDocuments(context.Background(), services.DocumentQuery{CategoryID: &finances.ID})
	require.NoError(t, err)
	assert.Len(t, list.Documents, 2)
	assert.Equal(t, int64(2), list.Pagination.Count)

	list, err = svc.ListDocuments(context.Background(), services.DocumentQuery{PerPage: 2, Page: "9"})
	require.NoError(t, err)
	assert.Equal(t, 2, list.Pagination.Number, "out of range falls back to the last page")
	assert.Len(t, list.Documents, 1)

	list, err = svc.ListDocuments(context.Background(), services.DocumentQuery{Q: "affiche"})
	require.NoError(t, err)
	require.Len(t, list.Documents, 1)
	assert.Equal(t, "Affiche fête", list.Documents[0].Title)
}

func TestListDocumentsFallsBackOnBadQuery(t *testing.T) {
	svc := testutil.NewTestService(t, nil)
	testutil.CreateDocument(t, svc, "Annexe title:(2025)", nil, "")
	testutil.CreateDocument(t, svc, "Bilan", nil, "")

	list, err := svc.ListDocuments(context.Background(), services.DocumentQuery{Q: "title:("})
	require.NoError(t, err)
	require.Len(t, list.Documents, 1)
	assert.Equal(t, "Annexe title:(2025)", list.Documents[0].Title)
}

func TestReindexDropsStaleEntries(t *testing.T) {
	svc := testutil.NewTestService(t, nil)
	kept := testutil.CreateDocument(t, svc, "Statuts", nil, "")
	stale := testutil.CreateDocument(t, svc, "Règlement", nil, "")
	require.NoError(t, svc.DB.Delete(&models.Document{}, stale.ID).Error)

	n, err := svc.Reindex(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	count, err := svc.Index.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
	hits, err := svc.Index.Search("statuts", 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, kept.ID, hits[0].DocumentID)
}

func TestDeleteDocument(t *testing.T) {
	svc := testutil.NewTestService(t, nil)
	doc := testutil.CreateDocument(t, svc, "Brouillon", nil, "")

	require.NoError(t, svc.DeleteDocument(context.Background(), doc.ID))
	_, err := services.GetDocument(svc.DB, doc.ID)
	assert.ErrorIs(t, err, services.ErrNotFound)

	list, err := svc.ListDocuments(context.Background(), services.DocumentQuery{Q: "brouillon"})
	require.NoError(t, err)
	assert.Empty(t, list.Documents)

	assert.ErrorIs(t, svc.DeleteDocument(context.Background(), doc.ID), services.ErrNotFound)
}

func TestUploadImage(t *testing.T) {
	svc := testutil.NewTestService(t, nil)
	img := testutil.CreateImage(t, svc, "Affiche")
	assert.Equal(t, 4, img.Width)
	assert.Equal(t, 3, img.Height)
	assert.Equal(t, "images/photo.png", img.File)

	_, err := svc.UploadImage(context.Background(), services.ImageInput{Title: "x"},
		&services.Upload{Filename: "fake.png", Reader: strings.NewReader("not an image")})
	var ve *forms.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Contains(t, ve.Fields, forms.FieldFile)
}
