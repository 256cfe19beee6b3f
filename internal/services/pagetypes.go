package services

import (
	"github.com/localnerve/eventsdb/internal/models"
)

// PageType describes where pages of a content type may be created
type PageType struct {
	Name  string `json:"name"`
	Label string `json:"label"`
	// Creatable is false for types that only exist as the tree root
	Creatable bool `json:"-"`
	// ParentTypes restricts the parent type; nil means any type
	ParentTypes []string `json:"-"`
	// SubpageTypes restricts the child types; nil means any, empty means none
	SubpageTypes []string `json:"-"`
}

var pageTypes = map[string]PageType{
	models.PageTypeBase: {
		Name:  models.PageTypeBase,
		Label: "Page",
	},
	models.PageTypeEventIndex: {
		Name:         models.PageTypeEventIndex,
		Label:        "Index des événements",
		Creatable:    true,
		SubpageTypes: []string{models.PageTypeEvent},
	},
	models.PageTypeEvent: {
		Name:         models.PageTypeEvent,
		Label:        "Événement",
		Creatable:    true,
		ParentTypes:  []string{models.PageTypeEventIndex},
		SubpageTypes: []string{},
	},
}

// pageTypeOrder lists the registered types in a stable order
var pageTypeOrder = []string{models.PageTypeBase, models.PageTypeEventIndex, models.PageTypeEvent}

// LookupPageType returns the registered type named name
func LookupPageType(name string) (PageType, bool) {
	pt, ok := pageTypes[name]
	return pt, ok
}

func contains(list []string, name string) bool {
	for _, v := range list {
		if v == name {
			return true
		}
	}
	return false
}

// CanCreateAt reports whether a page of childType may be created below a
// page of parentType. Both types must allow the relation.
func CanCreateAt(parentType, childType string) bool {
	parent, ok := pageTypes[parentType]
	if !ok {
		return false
	}
	child, ok := pageTypes[childType]
	if !ok || !child.Creatable {
		return false
	}
	if child.ParentTypes != nil && !contains(child.ParentTypes, parentType) {
		return false
	}
	if parent.SubpageTypes != nil && !contains(parent.SubpageTypes, childType) {
		return false
	}
	return true
}

// AllowedSubpageTypes lists the types creatable below a page of parentType
func AllowedSubpageTypes(parentType string) []PageType {
	allowed := []PageType{}
	for _, name := range pageTypeOrder {
		if CanCreateAt(parentType, name) {
			allowed = append(allowed, pageTypes[name])
		}
	}
	return allowed
}
