package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// Stream block types accepted in an event's notes
const (
	BlockRichText = "richtext"
	BlockHeading  = "heading"
	BlockURL      = "url"
)

// StreamBlock is one typed entry of a StreamField
type StreamBlock struct {
	ID    string `json:"id,omitempty"`
	Type  string `json:"type"`
	Value string `json:"value"`
}

// StreamField is an ordered list of blocks stored as a JSON column
type StreamField []StreamBlock

// Value encodes the blocks through datatypes.JSON, an empty field as []
func (s StreamField) Value() (driver.Value, error) {
	if s == nil {
		s = StreamField{}
	}
	raw, err := json.Marshal([]StreamBlock(s))
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw).Value()
}

// Scan decodes a JSON column into blocks
func (s *StreamField) Scan(value interface{}) error {
	if value == nil {
		*s = StreamField{}
		return nil
	}
	var raw datatypes.JSON
	if err := raw.Scan(value); err != nil {
		return err
	}
	if len(raw) == 0 || string(raw) == "null" {
		*s = StreamField{}
		return nil
	}
	var blocks []StreamBlock
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return fmt.Errorf("invalid stream field: %w", err)
	}
	*s = blocks
	return nil
}

// GormDataType is the generic type name used by migrators
func (StreamField) GormDataType() string {
	return "json"
}

// GormDBDataType ensures the correct data type is used for each database driver.
// MSSQL does not support the 'json' data type.
func (StreamField) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	switch db.Dialector.Name() {
	case "mysql":
		return "JSON"
	case "postgres":
		return "JSONB"
	case "sqlserver", "mssql":
		return "NVARCHAR(MAX)"
	case "sqlite":
		return "JSON"
	}
	return "TEXT"
}
