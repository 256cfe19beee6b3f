package services

import (
	"testing"

	"github.com/localnerve/eventsdb/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestCanCreateAt(t *testing.T) {
	cases := []struct {
		parent, child string
		allowed       bool
	}{
		{models.PageTypeEventIndex, models.PageTypeEvent, true},
		{models.PageTypeBase, models.PageTypeEvent, false},
		{models.PageTypeEvent, models.PageTypeEvent, false},
		{models.PageTypeEventIndex, models.PageTypeEventIndex, false},
		{models.PageTypeBase, models.PageTypeEventIndex, true},
		{models.PageTypeBase, models.PageTypeBase, false},
		{models.PageTypeEvent, models.PageTypeEventIndex, false},
		{"blog.blogpage", models.PageTypeEvent, false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.allowed, CanCreateAt(tc.parent, tc.child), "%s under %s", tc.child, tc.parent)
	}
}

func TestAllowedSubpageTypes(t *testing.T) {
	names := func(types []PageType) []string {
		out := []string{}
		for _, pt := range types {
			out = append(out, pt.Name)
		}
		return out
	}

	assert.Equal(t, []string{models.PageTypeEvent}, names(AllowedSubpageTypes(models.PageTypeEventIndex)))
	assert.Empty(t, AllowedSubpageTypes(models.PageTypeEvent))
	assert.Equal(t, []string{models.PageTypeEventIndex}, names(AllowedSubpageTypes(models.PageTypeBase)))
}
