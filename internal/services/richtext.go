package services

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/localnerve/eventsdb/internal/forms"
	"github.com/localnerve/eventsdb/internal/models"
	"github.com/microcosm-cc/bluemonday"
)

var richTextPolicy = bluemonday.UGCPolicy()

// SanitizeRichText strips markup that is not allowed in rich text
func SanitizeRichText(html string) string {
	return strings.TrimSpace(richTextPolicy.Sanitize(html))
}

// CleanStreamField sanitises rich text blocks, trims headings, checks links
// and gives every block an id. Errors are keyed notes.<index>.
func CleanStreamField(field models.StreamField) (models.StreamField, *forms.ValidationError) {
	errs := &forms.ValidationError{}
	out := make(models.StreamField, 0, len(field))

	for i, block := range field {
		key := fmt.Sprintf("notes.%d", i)
		if block.ID == "" {
			block.ID = uuid.NewString()
		}

		switch block.Type {
		case models.BlockRichText:
			block.Value = SanitizeRichText(block.Value)
		case models.BlockHeading:
			block.Value = strings.TrimSpace(block.Value)
			if block.Value == "" {
				errs.Add(key, "This field is required.")
			} else if len([]rune(block.Value)) > 255 {
				errs.Add(key, "Ensure this value has at most 255 characters.")
			}
		case models.BlockURL:
			block.Value = strings.TrimSpace(block.Value)
			lower := strings.ToLower(block.Value)
			if forms.Var(block.Value, "required,url") != nil ||
				!(strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")) {
				errs.Add(key, "Enter a valid URL.")
			}
		default:
			errs.Add(key, fmt.Sprintf("Unknown block type %q.", block.Type))
		}

		out = append(out, block)
	}

	if errs.HasErrors() {
		return nil, errs
	}
	return out, nil
}
