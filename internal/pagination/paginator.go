// Package pagination splits counted result sets into numbered pages.
package pagination

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

var (
	ErrPageNotAnInteger = errors.New("that page number is not an integer")
	ErrEmptyPage        = errors.New("that page contains no results")
)

// Paginator describes a result set of Count items split PerPage at a time
type Paginator struct {
	Count               int64
	PerPage             int
	AllowEmptyFirstPage bool
}

// New returns a paginator that allows an empty first page. A non-positive
// perPage is treated as 1.
func New(count int64, perPage int) *Paginator {
	if perPage < 1 {
		perPage = 1
	}
	return &Paginator{Count: count, PerPage: perPage, AllowEmptyFirstPage: true}
}

// NumPages is the total number of pages
func (p *Paginator) NumPages() int {
	if p.Count == 0 && !p.AllowEmptyFirstPage {
		return 0
	}
	hits := p.Count
	if hits < 1 {
		hits = 1
	}
	return int(math.Ceil(float64(hits) / float64(p.PerPage)))
}

// ValidateNumber parses a page number and checks it is in range
func (p *Paginator) ValidateNumber(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	number, err := strconv.Atoi(raw)
	if err != nil {
		return 0, ErrPageNotAnInteger
	}
	if number < 1 {
		return 0, ErrEmptyPage
	}
	if number > p.NumPages() {
		if number == 1 && p.AllowEmptyFirstPage {
			return number, nil
		}
		return 0, ErrEmptyPage
	}
	return number, nil
}

// Page returns the page for a validated number
func (p *Paginator) Page(number int) Page {
	offset := (number - 1) * p.PerPage
	top := int64(offset + p.PerPage)
	if top > p.Count {
		top = p.Count
	}
	size := int(top) - offset
	if size < 0 {
		size = 0
	}
	numPages := p.NumPages()
	return Page{
		Number:      number,
		NumPages:    numPages,
		Count:       p.Count,
		PerPage:     p.PerPage,
		Offset:      offset,
		Size:        size,
		HasNext:     number < numPages,
		HasPrevious: number > 1,
	}
}

// Resolve returns the requested page, falling back to the first page when
// raw is not an integer and to the last page when it is out of range.
func (p *Paginator) Resolve(raw string) Page {
	number, err := p.ValidateNumber(raw)
	switch {
	case errors.Is(err, ErrPageNotAnInteger):
		number = 1
	case errors.Is(err, ErrEmptyPage):
		number = p.NumPages()
	}
	if number < 1 {
		number = 1
	}
	return p.Page(number)
}

// Page is one numbered slice of a paginated result set
type Page struct {
	Number      int   `json:"number"`
	NumPages    int   `json:"num_pages"`
	Count       int64 `json:"count"`
	PerPage     int   `json:"per_page"`
	Offset      int   `json:"-"`
	Size        int   `json:"size"`
	HasNext     bool  `json:"has_next"`
	HasPrevious bool  `json:"has_previous"`
}

// NextPageNumber is zero on the last page
func (pg Page) NextPageNumber() int {
	if !pg.HasNext {
		return 0
	}
	return pg.Number + 1
}

// PreviousPageNumber is zero on the first page
func (pg Page) PreviousPageNumber() int {
	if !pg.HasPrevious {
		return 0
	}
	return pg.Number - 1
}
