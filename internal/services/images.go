package services

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"strings"

	"github.com/localnerve/eventsdb/internal/forms"
	"github.com/localnerve/eventsdb/internal/models"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	imagesDir           = "images"
	invalidImageMessage = "Upload a valid image. The file you uploaded was either not an image or a corrupted image."
)

// ImageInput carries the fields of the image upload form
type ImageInput struct {
	Title        string `json:"title" form:"title"`
	CollectionID *uint  `json:"collection_id" form:"collection_id"`
}

// GetImage finds an image by id
func GetImage(db *gorm.DB, id uint) (*models.Image, error) {
	var img models.Image
	if err := quiet(db).Preload("Collection").First(&img, id).Error; err != nil {
		return nil, notFound(err, "image")
	}
	return &img, nil
}

// ListImages returns images, newest first
func ListImages(db *gorm.DB, collectionID *uint) ([]models.Image, error) {
	q := db.Order("created_at DESC, id DESC")
	if collectionID != nil {
		q = q.Where("collection_id = ?", *collectionID)
	}
	var images []models.Image
	if err := q.Find(&images).Error; err != nil {
		return nil, err
	}
	return images, nil
}

// UploadImage reads the image dimensions and stores the file
func (s *Service) UploadImage(ctx context.Context, in ImageInput, upload *Upload) (*models.Image, error) {
	if upload == nil {
		return nil, forms.NewValidationError(forms.FieldFile, "This field is required.")
	}

	img := &models.Image{Title: strings.TrimSpace(in.Title)}
	if img.Title == "" {
		img.Title = titleFromFilename(upload.Filename)
	}
	if in.CollectionID != nil {
		if _, err := GetCollection(s.DB, *in.CollectionID); err != nil {
			return nil, forms.NewValidationError(forms.FieldCollection, invalidChoiceMessage)
		}
		img.CollectionID = *in.CollectionID
	} else {
		root, err := RootCollection(s.DB)
		if err != nil {
			return nil, err
		}
		img.CollectionID = root.ID
	}

	var head bytes.Buffer
	cfg, _, err := image.DecodeConfig(io.TeeReader(upload.Reader, &head))
	if err != nil {
		return nil, forms.NewValidationError(forms.FieldFile, invalidImageMessage)
	}
	img.Width = cfg.Width
	img.Height = cfg.Height
	img.File = upload.Filename

	if errs := forms.CleanModel(img); errs != nil {
		return nil, errs
	}

	stored, err := s.Storage.Save(imagesDir, upload.Filename, io.MultiReader(&head, upload.Reader))
	if err != nil {
		return nil, fmt.Errorf("store image file: %w", err)
	}
	img.File = stored.Name
	img.FileSize = stored.Size

	if err := s.DB.Omit(clause.Associations).Create(img).Error; err != nil {
		_ = s.Storage.Delete(stored.Name)
		return nil, err
	}

	logrus.WithFields(logrus.Fields{"id": img.ID, "file": img.File}).Info("image uploaded")
	return img, nil
}

// DeleteImage removes an image, its event attachments and its file
func (s *Service) DeleteImage(ctx context.Context, id uint) error {
	var file string
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var img models.Image
		if err := tx.First(&img, id).Error; err != nil {
			return notFound(err, "image")
		}
		file = img.File
		if err := tx.Where("image_id = ?", id).Delete(&models.EventImage{}).Error; err != nil {
			return err
		}
		return tx.Delete(&img).Error
	})
	if err != nil {
		return err
	}
	if err := s.Storage.Delete(file); err != nil {
		logrus.WithError(err).WithField("file", file).Warn("remove image file")
	}
	s.invalidatePages(ctx)
	return nil
}
