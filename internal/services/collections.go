package services

import (
	"fmt"
	"strings"

	"github.com/localnerve/eventsdb/internal/forms"
	"github.com/localnerve/eventsdb/internal/models"
	"github.com/localnerve/eventsdb/internal/tree"
	"gorm.io/gorm"
)

// EnsureRootCollection creates the "Root" collection when the table is empty
func EnsureRootCollection(db *gorm.DB) (*models.Collection, error) {
	root := models.Collection{}
	err := db.Where("depth = ?", 1).
		Attrs(models.Collection{Path: tree.Root(), Depth: 1, Name: models.RootCollectionName}).
		FirstOrCreate(&root).Error
	if err != nil {
		return nil, fmt.Errorf("ensure root collection: %w", err)
	}
	return &root, nil
}

// RootCollection returns the depth-1 collection
func RootCollection(db *gorm.DB) (*models.Collection, error) {
	var root models.Collection
	if err := quiet(db).Where("depth = ?", 1).First(&root).Error; err != nil {
		return nil, notFound(err, "root collection")
	}
	return &root, nil
}

// GetCollection finds a collection by id
func GetCollection(db *gorm.DB, id uint) (*models.Collection, error) {
	var c models.Collection
	if err := quiet(db).First(&c, id).Error; err != nil {
		return nil, notFound(err, "collection")
	}
	return &c, nil
}

// ListCollections returns all collections in tree order
func ListCollections(db *gorm.DB) ([]models.Collection, error) {
	var collections []models.Collection
	if err := db.Order("path").Find(&collections).Error; err != nil {
		return nil, err
	}
	return collections, nil
}

// AddChildCollection creates a collection as the last child of parentID
func AddChildCollection(db *gorm.DB, parentID uint, name string) (*models.Collection, error) {
	child := models.Collection{Name: strings.TrimSpace(name)}
	if errs := forms.CleanModel(&child); errs != nil {
		return nil, errs
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		var parent models.Collection
		if err := lockNode(tx, &parent, parentID); err != nil {
			return notFound(err, "parent collection")
		}

		path, err := nextChildPath(tx, &models.Collection{}, parent.Path)
		if err != nil {
			return err
		}
		child.Path = path
		child.Depth = parent.Depth + 1

		if err := tx.Create(&child).Error; err != nil {
			return err
		}
		return tx.Model(&parent).UpdateColumn("num_child", gorm.Expr("num_child + ?", 1)).Error
	})
	if err != nil {
		return nil, err
	}
	return &child, nil
}
