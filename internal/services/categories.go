package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/localnerve/eventsdb/internal/config"
	"github.com/localnerve/eventsdb/internal/forms"
	"github.com/localnerve/eventsdb/internal/models"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const categoryExistsMessage = "Document category with this Name already exists."

// ListCategories returns all categories by name
func ListCategories(db *gorm.DB) ([]models.DocumentCategory, error) {
	var categories []models.DocumentCategory
	if err := db.Order("name").Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

// GetCategory finds a category by id
func GetCategory(db *gorm.DB, id uint) (*models.DocumentCategory, error) {
	var c models.DocumentCategory
	if err := quiet(db).First(&c, id).Error; err != nil {
		return nil, notFound(err, "category")
	}
	return &c, nil
}

func checkCategoryName(db *gorm.DB, c *models.DocumentCategory) error {
	c.Name = strings.TrimSpace(c.Name)
	if errs := forms.CleanModel(c); errs != nil {
		return errs
	}
	var count int64
	if err := db.Model(&models.DocumentCategory{}).
		Where("name = ? AND id <> ?", c.Name, c.ID).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return forms.NewValidationError("name", categoryExistsMessage)
	}
	return nil
}

// CreateCategory adds a category with a unique name
func CreateCategory(db *gorm.DB, name string) (*models.DocumentCategory, error) {
	c := models.DocumentCategory{Name: name}
	if err := checkCategoryName(db, &c); err != nil {
		return nil, err
	}
	if err := db.Create(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// RenameCategory changes the name of a category
func (s *Service) RenameCategory(ctx context.Context, id uint, name string) (*models.DocumentCategory, error) {
	c, err := GetCategory(s.DB, id)
	if err != nil {
		return nil, err
	}
	c.Name = name
	if err := checkCategoryName(s.DB, c); err != nil {
		return nil, err
	}
	if err := s.DB.Model(c).Update("name", c.Name).Error; err != nil {
		return nil, err
	}
	s.invalidatePages(ctx)
	s.reindexCategory(id)
	return c, nil
}

// DeleteCategory removes a category. Under the protect policy a category
// still referenced by documents is refused with ErrCategoryProtected; under
// set_null its documents lose their category.
func (s *Service) DeleteCategory(ctx context.Context, id uint) error {
	if err := DeleteCategory(s.DB, id, s.Config.CategoryOnDelete); err != nil {
		return err
	}
	s.invalidatePages(ctx)
	s.reindexCategory(0)
	return nil
}

// DeleteCategory applies the onDelete policy and removes the category
func DeleteCategory(db *gorm.DB, id uint, onDelete string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var c models.DocumentCategory
		if err := tx.First(&c, id).Error; err != nil {
			return notFound(err, "category")
		}

		var count int64
		if err := tx.Model(&models.Document{}).Where("category_id = ?", id).Count(&count).Error; err != nil {
			return err
		}

		if count > 0 {
			switch onDelete {
			case config.OnDeleteSetNull:
				if err := tx.Model(&models.Document{}).
					Where("category_id = ?", id).
					Update("category_id", nil).Error; err != nil {
					return err
				}
			default:
				return fmt.Errorf("%q has %d documents: %w", c.Name, count, ErrCategoryProtected)
			}
		}

		return tx.Delete(&c).Error
	})
}

// SeedCategories creates the named categories that do not exist yet
func SeedCategories(db *gorm.DB, names []string) (int, error) {
	created := 0
	for _, name := range names {
		var count int64
		if err := db.Model(&models.DocumentCategory{}).Where("name = ?", name).Count(&count).Error; err != nil {
			return created, err
		}
		if count > 0 {
			continue
		}
		if err := db.Create(&models.DocumentCategory{Name: name}).Error; err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}

// reindexCategory refreshes the indexed category names of documents. A zero
// id refreshes documents without a category.
func (s *Service) reindexCategory(id uint) {
	if s.Index == nil {
		return
	}
	q := s.DB.Preload("Category").Preload("Collection")
	if id == 0 {
		q = q.Where("category_id IS NULL")
	} else {
		q = q.Where("category_id = ?", id)
	}
	var docs []models.Document
	if err := q.Find(&docs).Error; err != nil {
		logrus.WithError(err).Warn("reindex category: load documents")
		return
	}
	if err := s.Index.IndexBatch(docs); err != nil {
		logrus.WithError(err).Warn("reindex category")
	}
}
