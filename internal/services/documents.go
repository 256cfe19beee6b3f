package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/localnerve/eventsdb/internal/forms"
	"github.com/localnerve/eventsdb/internal/models"
	"github.com/localnerve/eventsdb/internal/pagination"
	"github.com/localnerve/eventsdb/internal/search"
	"github.com/localnerve/eventsdb/internal/storage"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	documentsDir = "documents"

	invalidChoiceMessage = "Select a valid choice. That choice is not one of the available choices."

	// DefaultDocumentsPerPage sizes admin document listings
	DefaultDocumentsPerPage = 20
	maxSearchResults        = 1000
)

// Upload is a submitted file
type Upload struct {
	Filename string
	Reader   io.Reader
}

// DocumentQuery filters the admin document listing
type DocumentQuery struct {
	Q            string
	CategoryID   *uint
	CollectionID *uint
	Page         string
	PerPage      int
}

// DocumentList is one page of documents
type DocumentList struct {
	Documents  []models.Document `json:"documents"`
	Pagination pagination.Page   `json:"pagination"`
}

// MultiUploadResult is the outcome for one file of a multiple upload
type MultiUploadResult struct {
	Filename string                 `json:"filename"`
	Document *models.Document       `json:"document,omitempty"`
	Errors   *forms.ValidationError `json:"errors,omitempty"`
}

// GetDocument finds a document with its category and collection
func GetDocument(db *gorm.DB, id uint) (*models.Document, error) {
	var doc models.Document
	if err := quiet(db).Preload("Category").Preload("Collection").First(&doc, id).Error; err != nil {
		return nil, notFound(err, "document")
	}
	return &doc, nil
}

// checkDocumentRefs reports unknown category and collection ids as field errors
func checkDocumentRefs(db *gorm.DB, doc *models.Document) error {
	errs := &forms.ValidationError{}
	var count int64

	if doc.CategoryID != nil {
		if err := db.Model(&models.DocumentCategory{}).Where("id = ?", *doc.CategoryID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			errs.Add(forms.FieldCategory, invalidChoiceMessage)
		}
	}

	if err := db.Model(&models.Collection{}).Where("id = ?", doc.CollectionID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		errs.Add(forms.FieldCollection, invalidChoiceMessage)
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

// defaultCollection puts a document without a collection in the root one
func defaultCollection(db *gorm.DB, doc *models.Document, in forms.DocumentInput) error {
	if in.CollectionID != nil || doc.CollectionID != 0 {
		return nil
	}
	root, err := RootCollection(db)
	if err != nil {
		return err
	}
	doc.CollectionID = root.ID
	return nil
}

// titleFromFilename derives a default title the way multiple upload does
func titleFromFilename(filename string) string {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	return strings.TrimSpace(strings.TrimSuffix(base, path.Ext(base)))
}

// CreateDocument validates the single document form and stores the upload.
// A document created without a collection lands in the root collection.
func (s *Service) CreateDocument(ctx context.Context, in forms.DocumentInput, upload *Upload) (*models.Document, error) {
	doc := &models.Document{}
	if err := defaultCollection(s.DB, doc, in); err != nil {
		return nil, err
	}
	if upload != nil {
		doc.File = storage.ValidFilename(upload.Filename)
	}

	form := forms.NewDocumentForm(forms.DocumentFormFields, in)
	if !form.IsValid(doc) {
		return nil, form.Errors
	}

	return s.saveNewDocument(ctx, doc, upload)
}

// AddDocuments creates one document per uploaded file. Each is validated
// with the multiple upload form, which has no file field, so only the
// remaining fields can fail. Titles default to the file names.
func (s *Service) AddDocuments(ctx context.Context, in forms.DocumentInput, uploads []Upload) ([]MultiUploadResult, error) {
	results := make([]MultiUploadResult, 0, len(uploads))

	for i := range uploads {
		upload := uploads[i]
		result := MultiUploadResult{Filename: upload.Filename}

		perFile := in
		if perFile.Title == nil || strings.TrimSpace(*perFile.Title) == "" {
			title := titleFromFilename(upload.Filename)
			perFile.Title = &title
		}

		doc := &models.Document{}
		if err := defaultCollection(s.DB, doc, perFile); err != nil {
			return results, err
		}

		form := forms.NewDocumentForm(forms.MultiUploadFormFields, perFile)
		if !form.IsValid(doc) {
			result.Errors = form.Errors
			results = append(results, result)
			continue
		}

		saved, err := s.saveNewDocument(ctx, doc, &upload)
		if ve, ok := err.(*forms.ValidationError); ok {
			result.Errors = ve
		} else if err != nil {
			return results, err
		} else {
			result.Document = saved
		}
		results = append(results, result)
	}

	return results, nil
}

func (s *Service) saveNewDocument(ctx context.Context, doc *models.Document, upload *Upload) (*models.Document, error) {
	if err := checkDocumentRefs(s.DB, doc); err != nil {
		return nil, err
	}
	if upload == nil {
		return nil, forms.NewValidationError(forms.FieldFile, "This field is required.")
	}

	stored, err := s.Storage.Save(documentsDir, upload.Filename, upload.Reader)
	if err != nil {
		return nil, fmt.Errorf("store document file: %w", err)
	}
	doc.File = stored.Name
	doc.FileSize = stored.Size
	doc.FileHash = stored.SHA1

	if err := s.DB.Omit(clause.Associations).Create(doc).Error; err != nil {
		_ = s.Storage.Delete(stored.Name)
		return nil, err
	}

	saved, err := GetDocument(s.DB, doc.ID)
	if err != nil {
		return nil, err
	}
	s.indexDocument(saved)
	s.invalidatePages(ctx)

	logrus.WithFields(logrus.Fields{"id": saved.ID, "file": saved.File}).Info("document created")
	return saved, nil
}

// UpdateDocument applies the edit form and optionally replaces the file
func (s *Service) UpdateDocument(ctx context.Context, id uint, in forms.DocumentInput, upload *Upload) (*models.Document, error) {
	doc, err := GetDocument(s.DB, id)
	if err != nil {
		return nil, err
	}
	oldFile := doc.File
	if upload != nil {
		doc.File = storage.ValidFilename(upload.Filename)
	}

	form := forms.NewDocumentForm(forms.DocumentFormFields, in)
	if !form.IsValid(doc) {
		return nil, form.Errors
	}
	if err := checkDocumentRefs(s.DB, doc); err != nil {
		return nil, err
	}

	if upload != nil {
		stored, err := s.Storage.Save(documentsDir, upload.Filename, upload.Reader)
		if err != nil {
			return nil, fmt.Errorf("store document file: %w", err)
		}
		doc.File = stored.Name
		doc.FileSize = stored.Size
		doc.FileHash = stored.SHA1
	}

	if err := s.DB.Omit(clause.Associations).Save(doc).Error; err != nil {
		if upload != nil {
			_ = s.Storage.Delete(doc.File)
		}
		return nil, err
	}
	if upload != nil && oldFile != doc.File {
		if err := s.Storage.Delete(oldFile); err != nil {
			logrus.WithError(err).WithField("file", oldFile).Warn("remove replaced document file")
		}
	}

	saved, err := GetDocument(s.DB, id)
	if err != nil {
		return nil, err
	}
	s.indexDocument(saved)
	s.invalidatePages(ctx)
	return saved, nil
}

// DeleteDocument removes a document, its event attachments and its file
func (s *Service) DeleteDocument(ctx context.Context, id uint) error {
	var file string
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var doc models.Document
		if err := tx.First(&doc, id).Error; err != nil {
			return notFound(err, "document")
		}
		file = doc.File
		if err := tx.Where("document_id = ?", id).Delete(&models.EventDocument{}).Error; err != nil {
			return err
		}
		return tx.Delete(&doc).Error
	})
	if err != nil {
		return err
	}

	if err := s.Storage.Delete(file); err != nil {
		logrus.WithError(err).WithField("file", file).Warn("remove document file")
	}
	if s.Index != nil {
		if err := s.Index.Delete(id); err != nil {
			logrus.WithError(err).WithField("id", id).Warn("remove document from index")
		}
	}
	s.invalidatePages(ctx)
	return nil
}

// ListDocuments pages through documents, newest first. A search query
// ranks matches by relevance.
func (s *Service) ListDocuments(ctx context.Context, q DocumentQuery) (*DocumentList, error) {
	perPage := q.PerPage
	if perPage < 1 {
		perPage = DefaultDocumentsPerPage
	}

	query := s.DB.WithContext(ctx).Model(&models.Document{})
	if q.CategoryID != nil {
		query = query.Where("category_id = ?", *q.CategoryID)
	}
	if q.CollectionID != nil {
		query = query.Where("collection_id = ?", *q.CollectionID)
	}

	term := strings.TrimSpace(q.Q)
	if term != "" && s.Index != nil {
		hits, err := s.Index.Search(term, maxSearchResults)
		if err == nil {
			return s.searchDocuments(query, hits, q.Page, perPage)
		}
		logrus.WithError(err).WithField("q", term).Warn("search index query failed, matching titles")
	}
	if term != "" {
		query = query.Where("LOWER(title) LIKE ?", "%"+strings.ToLower(term)+"%")
	}
	query = query.Session(&gorm.Session{})

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return nil, err
	}
	page := pagination.New(count, perPage).Resolve(q.Page)

	var docs []models.Document
	if err := query.Preload("Category").Preload("Collection").
		Order("created_at DESC, id DESC").
		Offset(page.Offset).Limit(perPage).
		Find(&docs).Error; err != nil {
		return nil, err
	}

	return &DocumentList{Documents: docs, Pagination: page}, nil
}

func (s *Service) searchDocuments(query *gorm.DB, hits []search.SearchResult, rawPage string, perPage int) (*DocumentList, error) {
	rank := make(map[uint]int, len(hits))
	ids := make([]uint, 0, len(hits))
	for i, h := range hits {
		rank[h.DocumentID] = i
		ids = append(ids, h.DocumentID)
	}

	var docs []models.Document
	if len(ids) > 0 {
		if err := query.Preload("Category").Preload("Collection").
			Where("id IN ?", ids).Find(&docs).Error; err != nil {
			return nil, err
		}
	}
	sort.SliceStable(docs, func(i, j int) bool { return rank[docs[i].ID] < rank[docs[j].ID] })

	page := pagination.New(int64(len(docs)), perPage).Resolve(rawPage)
	end := page.Offset + page.Size
	return &DocumentList{Documents: docs[page.Offset:end], Pagination: page}, nil
}

// OpenDocumentFile opens the file of a document. filename must be the
// stored file's base name.
func (s *Service) OpenDocumentFile(id uint, filename string) (*models.Document, *os.File, error) {
	doc, err := GetDocument(s.DB, id)
	if err != nil {
		return nil, nil, err
	}
	if doc.Filename() != filename {
		return nil, nil, fmt.Errorf("document file %q: %w", filename, ErrNotFound)
	}
	f, err := s.Storage.Open(doc.File)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("document file %q: %w", doc.File, ErrNotFound)
		}
		return nil, nil, err
	}
	return doc, f, nil
}

// DocumentURL is the public download URL of a document
func DocumentURL(doc *models.Document) string {
	return fmt.Sprintf("/documents/%d/%s", doc.ID, doc.Filename())
}

// Reindex rebuilds the search index from the database
func (s *Service) Reindex(ctx context.Context) (int, error) {
	if s.Index == nil {
		return 0, nil
	}
	var docs []models.Document
	if err := s.DB.WithContext(ctx).Preload("Category").Preload("Collection").Find(&docs).Error; err != nil {
		return 0, err
	}
	if err := s.Index.Rebuild(docs); err != nil {
		return 0, err
	}
	return len(docs), nil
}

func (s *Service) indexDocument(doc *models.Document) {
	if s.Index == nil {
		return
	}
	if err := s.Index.IndexDocument(doc); err != nil {
		logrus.WithError(err).WithField("id", doc.ID).Warn("index document")
	}
}
