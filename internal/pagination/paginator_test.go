package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumPages(t *testing.T) {
	assert.Equal(t, 3, New(7, 3).NumPages())
	assert.Equal(t, 1, New(3, 3).NumPages())
	assert.Equal(t, 1, New(0, 3).NumPages())
	assert.Equal(t, 0, (&Paginator{Count: 0, PerPage: 3}).NumPages())
	assert.Equal(t, 7, New(7, 0).NumPages())
}

func TestValidateNumber(t *testing.T) {
	p := New(7, 3)

	n, err := p.ValidateNumber("2")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	for _, raw := range []string{"3.0", "2.0", "1e1", "2.5"} {
		_, err = p.ValidateNumber(raw)
		assert.ErrorIs(t, err, ErrPageNotAnInteger, raw)
	}

	_, err = p.ValidateNumber("abc")
	assert.ErrorIs(t, err, ErrPageNotAnInteger)
	_, err = p.ValidateNumber("2.5")
	assert.ErrorIs(t, err, ErrPageNotAnInteger)
	_, err = p.ValidateNumber("0")
	assert.ErrorIs(t, err, ErrEmptyPage)
	_, err = p.ValidateNumber("4")
	assert.ErrorIs(t, err, ErrEmptyPage)

	n, err = New(0, 3).ValidateNumber("1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestResolveFallbacks(t *testing.T) {
	p := New(7, 3)

	first := p.Resolve("1")
	assert.Equal(t, 1, first.Number)
	assert.Equal(t, 3, first.Size)
	assert.Equal(t, 0, first.Offset)
	assert.True(t, first.HasNext)
	assert.False(t, first.HasPrevious)

	second := p.Resolve("2")
	assert.Equal(t, 3, second.Size)
	assert.Equal(t, 3, second.Offset)
	assert.Equal(t, 3, second.NextPageNumber())
	assert.Equal(t, 1, second.PreviousPageNumber())

	last := p.Resolve("3")
	assert.Equal(t, 1, last.Size)
	assert.False(t, last.HasNext)
	assert.Equal(t, 0, last.NextPageNumber())

	assert.Equal(t, 1, p.Resolve("abc").Number)
	assert.Equal(t, 1, p.Resolve("").Number)
	assert.Equal(t, 1, p.Resolve("2.0").Number)
	assert.Equal(t, 1, p.Resolve("1e1").Number)
	assert.Equal(t, 3, p.Resolve("99").Number)
	assert.Equal(t, 3, p.Resolve("-1").Number)

	empty := New(0, 10).Resolve("5")
	assert.Equal(t, 1, empty.Number)
	assert.Equal(t, 0, empty.Size)
}
