package models

import (
	"time"
)

// RootCollectionName is the name of the depth-1 collection
const RootCollectionName = "Root"

// Collection is a folder in the hierarchical grouping of documents and images
type Collection struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Path      string    `gorm:"size:255;uniqueIndex;not null" json:"path"`
	Depth     int       `gorm:"not null" json:"depth"`
	NumChild  int       `gorm:"not null;default:0" json:"numchild"`
	Name      string    `gorm:"size:255;not null" json:"name" validate:"required,max=255"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName overrides the table name for Collection
func (Collection) TableName() string {
	return "collections"
}

// IsRoot reports whether the collection is the tree root
func (c *Collection) IsRoot() bool {
	return c.Depth == 1
}
