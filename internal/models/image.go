package models

import "time"

// Image is an uploaded picture that event pages can attach
type Image struct {
	ID           uint        `gorm:"primaryKey" json:"id"`
	Title        string      `gorm:"size:255;not null" json:"title" validate:"required,max=255"`
	File         string      `gorm:"size:255;not null" json:"file" validate:"required,max=255"`
	Width        int         `json:"width"`
	Height       int         `json:"height"`
	FileSize     int64       `json:"file_size"`
	CollectionID uint        `gorm:"index;not null" json:"collection_id" validate:"required"`
	Collection   *Collection `json:"collection,omitempty" validate:"-"`
	CreatedAt    time.Time   `json:"created_at"`
}

// TableName overrides the table name for Image
func (Image) TableName() string {
	return "images"
}
