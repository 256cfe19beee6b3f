package models

import (
	"path"
	"time"

	"gorm.io/datatypes"
)

// DocumentCategory classifies documents (invoices, statements, minutes...)
type DocumentCategory struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;uniqueIndex;not null" json:"name" validate:"required,max=255"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName overrides the table name for DocumentCategory
func (DocumentCategory) TableName() string {
	return "document_categories"
}

// Document is an uploaded file with its descriptive fields
type Document struct {
	ID           uint              `gorm:"primaryKey" json:"id"`
	Title        string            `gorm:"size:255;not null" json:"title" validate:"required,max=255"`
	File         string            `gorm:"size:255;not null" json:"file" validate:"required,max=255"`
	FileSize     int64             `json:"file_size"`
	FileHash     string            `gorm:"size:40" json:"file_hash"`
	DocumentDate *datatypes.Date   `json:"document_date,omitempty"`
	Notes        string            `gorm:"type:text" json:"notes"`
	CategoryID   *uint             `gorm:"index" json:"category_id"`
	Category     *DocumentCategory `json:"category,omitempty" validate:"-"`
	CollectionID uint              `gorm:"index;not null" json:"collection_id" validate:"required"`
	Collection   *Collection       `json:"collection,omitempty" validate:"-"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// TableName overrides the table name for Document
func (Document) TableName() string {
	return "documents"
}

// String returns the document title
func (d Document) String() string {
	return d.Title
}

// Filename is the base name of the stored file
func (d *Document) Filename() string {
	if d.File == "" {
		return ""
	}
	return path.Base(d.File)
}

// CategoryName is empty for uncategorised documents or when the category
// was not preloaded.
func (d *Document) CategoryName() string {
	if d.Category == nil {
		return ""
	}
	return d.Category.Name
}

// Date returns the document date, nil when unset
func (d *Document) Date() *time.Time {
	if d.DocumentDate == nil {
		return nil
	}
	t := time.Time(*d.DocumentDate)
	return &t
}
