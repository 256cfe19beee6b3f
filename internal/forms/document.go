package forms

import (
	"strings"
	"time"

	"github.com/localnerve/eventsdb/internal/models"
	"gorm.io/datatypes"
)

// Document form field names
const (
	FieldTitle        = "title"
	FieldFile         = "file"
	FieldCollection   = "collection_id"
	FieldDocumentDate = "document_date"
	FieldNotes        = "notes"
	FieldCategory     = "category_id"
)

// DateLayout is the accepted document date format
const DateLayout = "2006-01-02"

// DocumentFormFields are the fields of the single document upload and edit form
var DocumentFormFields = []string{FieldTitle, FieldFile, FieldCollection, FieldDocumentDate, FieldNotes, FieldCategory}

// MultiUploadFormFields are the fields of the per-file form used by multiple
// upload. The file is attached after validation.
var MultiUploadFormFields = []string{FieldTitle, FieldCollection, FieldDocumentDate, FieldNotes, FieldCategory}

// DocumentInput carries submitted values. Nil pointers leave the instance
// value untouched.
type DocumentInput struct {
	Title        *string `json:"title" form:"title"`
	DocumentDate *string `json:"document_date" form:"document_date"`
	Notes        *string `json:"notes" form:"notes"`
	CategoryID   *uint   `json:"category_id" form:"category_id"`
	CollectionID *uint   `json:"collection_id" form:"collection_id"`
	// ClearCategory removes the category when set
	ClearCategory bool `json:"clear_category" form:"clear_category"`
}

// DocumentForm binds input onto a document and validates it
type DocumentForm struct {
	fields map[string]bool
	input  DocumentInput
	Errors *ValidationError
}

// NewDocumentForm builds a form exposing the given fields
func NewDocumentForm(fields []string, input DocumentInput) *DocumentForm {
	set := make(map[string]bool, len(fields))
	for _, f := range fields {
		set[f] = true
	}
	return &DocumentForm{fields: set, input: input, Errors: &ValidationError{}}
}

// HasField reports whether the form exposes field
func (f *DocumentForm) HasField(name string) bool {
	return f.fields[name]
}

// IsValid copies the submitted values onto doc and validates the result.
//
// Model validation can report errors on fields the form does not expose,
// such as the file of a document being created by multiple upload before
// its file is attached. Those errors are dropped; errors on exposed fields
// and non-field errors are kept.
func (f *DocumentForm) IsValid(doc *models.Document) bool {
	f.constructInstance(doc)

	if errs := CleanModel(doc); errs != nil {
		for field, messages := range errs.Fields {
			if f.fields[field] || field == NonFieldErrors {
				for _, m := range messages {
					f.Errors.Add(field, m)
				}
			}
		}
	}

	return !f.Errors.HasErrors()
}

func (f *DocumentForm) constructInstance(doc *models.Document) {
	in := f.input
	if in.Title != nil && f.fields[FieldTitle] {
		doc.Title = strings.TrimSpace(*in.Title)
	}
	if in.Notes != nil && f.fields[FieldNotes] {
		doc.Notes = *in.Notes
	}
	if f.fields[FieldCategory] {
		if in.ClearCategory {
			doc.CategoryID = nil
			doc.Category = nil
		} else if in.CategoryID != nil {
			id := *in.CategoryID
			doc.CategoryID = &id
			doc.Category = nil
		}
	}
	if in.CollectionID != nil && f.fields[FieldCollection] {
		doc.CollectionID = *in.CollectionID
		doc.Collection = nil
	}
	if in.DocumentDate != nil && f.fields[FieldDocumentDate] {
		raw := strings.TrimSpace(*in.DocumentDate)
		if raw == "" {
			doc.DocumentDate = nil
		} else if t, err := time.Parse(DateLayout, raw); err != nil {
			f.Errors.Add(FieldDocumentDate, "Enter a valid date.")
		} else {
			d := datatypes.Date(t)
			doc.DocumentDate = &d
		}
	}
}
