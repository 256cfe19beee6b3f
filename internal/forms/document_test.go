package forms

import (
	"errors"
	"testing"

	"github.com/localnerve/eventsdb/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }
func uintPtr(u uint) *uint    { return &u }

func TestDocumentFormReportsExposedFieldErrors(t *testing.T) {
	doc := &models.Document{CollectionID: 1}
	form := NewDocumentForm(DocumentFormFields, DocumentInput{Title: strPtr("  ")})

	assert.False(t, form.IsValid(doc))
	assert.Contains(t, form.Errors.Fields, FieldTitle)
	assert.Contains(t, form.Errors.Fields, FieldFile)
}

func TestMultiUploadFormDropsFileError(t *testing.T) {
	doc := &models.Document{CollectionID: 1}
	form := NewDocumentForm(MultiUploadFormFields, DocumentInput{
		Title:        strPtr("Relevé mars"),
		DocumentDate: strPtr("2025-03-31"),
		CategoryID:   uintPtr(4),
	})

	require.True(t, form.IsValid(doc), form.Errors.Fields)
	assert.NotContains(t, form.Errors.Fields, FieldFile)
	assert.Equal(t, "Relevé mars", doc.Title)
	require.NotNil(t, doc.CategoryID)
	assert.Equal(t, uint(4), *doc.CategoryID)
	assert.Equal(t, 31, doc.Date().Day())
}

func TestMultiUploadFormKeepsOtherErrors(t *testing.T) {
	doc := &models.Document{CollectionID: 1}
	form := NewDocumentForm(MultiUploadFormFields, DocumentInput{
		Title:        strPtr(""),
		DocumentDate: strPtr("31/03/2025"),
	})

	assert.False(t, form.IsValid(doc))
	assert.Equal(t, []string{"This field is required."}, form.Errors.Fields[FieldTitle])
	assert.Equal(t, []string{"Enter a valid date."}, form.Errors.Fields[FieldDocumentDate])
	assert.NotContains(t, form.Errors.Fields, FieldFile)
}

func TestDocumentFormIgnoresFieldsItDoesNotExpose(t *testing.T) {
	doc := &models.Document{Title: "Original", File: "documents/a.pdf", CollectionID: 1}
	form := NewDocumentForm([]string{FieldNotes}, DocumentInput{
		Title: strPtr("Changed"),
		Notes: strPtr("contexte"),
	})

	require.True(t, form.IsValid(doc))
	assert.Equal(t, "Original", doc.Title)
	assert.Equal(t, "contexte", doc.Notes)
}

func TestDocumentFormClearsCategory(t *testing.T) {
	doc := &models.Document{Title: "A", File: "documents/a.pdf", CollectionID: 1, CategoryID: uintPtr(2)}
	form := NewDocumentForm(DocumentFormFields, DocumentInput{ClearCategory: true})

	require.True(t, form.IsValid(doc))
	assert.Nil(t, doc.CategoryID)
}

type cleanedModel struct {
	Name string `json:"name" validate:"required"`
}

func (m cleanedModel) Clean() error {
	if m.Name == "forbidden" {
		return errors.New("this name is reserved")
	}
	return nil
}

func TestCleanModelNonFieldErrors(t *testing.T) {
	assert.Nil(t, CleanModel(cleanedModel{Name: "ok"}))

	errs := CleanModel(cleanedModel{Name: "forbidden"})
	require.NotNil(t, errs)
	assert.Equal(t, []string{"this name is reserved"}, errs.Fields[NonFieldErrors])

	errs = CleanModel(cleanedModel{})
	require.NotNil(t, errs)
	assert.Equal(t, []string{"This field is required."}, errs.Fields["name"])
	assert.Contains(t, errs.Error(), "name: This field is required.")
}
