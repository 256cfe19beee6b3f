package models

import "time"

// Page content types
const (
	PageTypeBase       = "wagtailcore.page"
	PageTypeEventIndex = "events.eventindexpage"
	PageTypeEvent      = "events.eventpage"
)

// Page is a node of the public page tree. Typed content lives in the
// per-type tables keyed by PageID.
type Page struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	Path             string     `gorm:"size:255;uniqueIndex;not null" json:"-"`
	Depth            int        `gorm:"not null" json:"depth"`
	NumChild         int        `gorm:"not null;default:0" json:"numchild"`
	Title            string     `gorm:"size:255;not null" json:"title" validate:"required,max=255"`
	Slug             string     `gorm:"size:255;not null;index" json:"slug" validate:"required,max=255"`
	URLPath          string     `gorm:"size:1024;not null;index" json:"url_path"`
	ContentType      string     `gorm:"size:100;not null" json:"content_type"`
	Live             bool       `gorm:"not null" json:"live"`
	FirstPublishedAt *time.Time `json:"first_published_at,omitempty"`
	LastPublishedAt  *time.Time `json:"last_published_at,omitempty"`
	OwnerID          string     `gorm:"size:64" json:"owner_id,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// TableName overrides the table name for Page
func (Page) TableName() string {
	return "pages"
}

// IsRoot reports whether the page is the tree root
func (p *Page) IsRoot() bool {
	return p.Depth == 1
}

// URL is the public URL of the page
func (p *Page) URL() string {
	return p.URLPath
}
