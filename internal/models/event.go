package models

import "time"

// DefaultEventsPerPage is used when an index page does not set its own
const DefaultEventsPerPage = 10

// EventIndexPage lists the events placed under it
type EventIndexPage struct {
	PageID        uint   `gorm:"primaryKey;autoIncrement:false" json:"-"`
	Page          Page   `gorm:"foreignKey:PageID" json:"page" validate:"-"`
	Intro         string `gorm:"type:text" json:"intro"`
	EventsPerPage int    `gorm:"not null" json:"events_per_page" validate:"gte=1"`
}

// TableName overrides the table name for EventIndexPage
func (EventIndexPage) TableName() string {
	return "event_index_pages"
}

// EventPage is a dated event with notes, images and documents
type EventPage struct {
	PageID    uint            `gorm:"primaryKey;autoIncrement:false" json:"-"`
	Page      Page            `gorm:"foreignKey:PageID" json:"page" validate:"-"`
	DateEvent time.Time       `gorm:"not null;index:idx_event_pages_date_event" json:"date_event" validate:"required"`
	Notes     StreamField     `json:"notes"`
	Images    []EventImage    `gorm:"foreignKey:PageID;constraint:OnDelete:CASCADE" json:"-"`
	Documents []EventDocument `gorm:"foreignKey:PageID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName overrides the table name for EventPage
func (EventPage) TableName() string {
	return "event_pages"
}

// EventImage attaches an image to an event page
type EventImage struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	PageID    uint   `gorm:"index;not null" json:"page_id"`
	SortOrder int    `gorm:"not null;default:0" json:"sort_order"`
	ImageID   uint   `gorm:"index;not null" json:"image_id"`
	Image     *Image `json:"image,omitempty" validate:"-"`
	Caption   string `gorm:"size:255" json:"caption" validate:"max=255"`
}

// TableName overrides the table name for EventImage
func (EventImage) TableName() string {
	return "event_images"
}

// EventDocument attaches a document to an event page
type EventDocument struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	PageID     uint      `gorm:"index;not null" json:"page_id"`
	SortOrder  int       `gorm:"not null;default:0" json:"sort_order"`
	DocumentID uint      `gorm:"index;not null" json:"document_id"`
	Document   *Document `json:"document,omitempty" validate:"-"`
	Notes      string    `gorm:"type:text" json:"notes"`
}

// TableName overrides the table name for EventDocument
func (EventDocument) TableName() string {
	return "event_documents"
}
