package data

import (
	_ "embed"
	"encoding/json"
)

//go:embed seed/categories.json
var seedCategories []byte

// SeedCategories returns the document categories created by the seed command
func SeedCategories() ([]string, error) {
	var names []string
	if err := json.Unmarshal(seedCategories, &names); err != nil {
		return nil, err
	}
	return names, nil
}
