package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrCategoryProtected  = errors.New("category is used by documents")
	ErrPageTypeNotAllowed = errors.New("page type not allowed here")
	ErrRootPage           = errors.New("operation not allowed on the root")
	ErrNotAnEvent         = errors.New("page is not an event page")
	ErrInvalidInput       = errors.New("invalid input")
)

// notFound maps a missing record to ErrNotFound, naming what was looked up
func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return err
}
