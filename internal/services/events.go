package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/localnerve/eventsdb/internal/access"
	"github.com/localnerve/eventsdb/internal/cache"
	"github.com/localnerve/eventsdb/internal/forms"
	"github.com/localnerve/eventsdb/internal/models"
	"github.com/localnerve/eventsdb/internal/pagination"
	"github.com/localnerve/eventsdb/internal/tree"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/hints"
)

// EventSummary is an event as listed on its index page
type EventSummary struct {
	ID        uint   `json:"id"`
	Title     string `json:"title"`
	URL       string `json:"url"`
	DateEvent string `json:"date_event"`
}

// EventIndexContext is the context of an event index page
type EventIndexContext struct {
	Page       models.Page     `json:"page"`
	Intro      string          `json:"intro"`
	Events     []EventSummary  `json:"events"`
	Pagination pagination.Page `json:"pagination"`
}

// CategoryDocuments is the bucket of one category
type CategoryDocuments struct {
	Category  string                 `json:"category"`
	Documents []models.EventDocument `json:"documents"`
}

// EventContext is the context of an event page
type EventContext struct {
	Page                models.Page         `json:"page"`
	DateEvent           string              `json:"date_event"`
	Notes               models.StreamField  `json:"notes"`
	EventImages         []models.EventImage `json:"event_images"`
	DocumentsByCategory []CategoryDocuments `json:"documents_by_category"`
	CanEdit             bool                `json:"can_edit"`
	EditURL             string              `json:"wagtail_edit_url,omitempty"`
}

// AttachImageInput attaches an image to an event
type AttachImageInput struct {
	ImageID uint   `json:"image_id"`
	Caption string `json:"caption"`
}

// AttachDocumentInput attaches a document to an event
type AttachDocumentInput struct {
	DocumentID uint   `json:"document_id"`
	Notes      string `json:"notes"`
}

const dateEventLayout = "2006-01-02T15:04:05Z07:00"

// EventIndex builds the listing of the live events below an index page,
// newest first. rawPage falls back to the first page when it is not a
// number and to the last page when out of range.
func (s *Service) EventIndex(ctx context.Context, page *models.Page, rawPage string) (*EventIndexContext, error) {
	var index models.EventIndexPage
	if err := s.DB.WithContext(ctx).First(&index, "page_id = ?", page.ID).Error; err != nil {
		return nil, notFound(err, "event index page")
	}

	events := s.DB.WithContext(ctx).
		Model(&models.EventPage{}).
		Joins("JOIN pages ON pages.id = event_pages.page_id").
		Where("pages.path LIKE ? AND pages.depth = ? AND pages.live = ?", tree.ChildPattern(page.Path), page.Depth+1, true).
		Session(&gorm.Session{})

	var count int64
	if err := events.Count(&count).Error; err != nil {
		return nil, err
	}
	paged := pagination.New(count, index.EventsPerPage).Resolve(rawPage)

	key := cache.PageKey(page.ID, fmt.Sprintf("p=%d", paged.Number))
	var cached EventIndexContext
	if found, err := s.Cache.Get(ctx, key, &cached); err != nil {
		logrus.WithError(err).Warn("page cache read failed")
	} else if found {
		return &cached, nil
	}

	var rows []models.EventPage
	if err := events.
		Clauses(hints.CommentBefore("select", "event_index")).
		Preload("Page").
		Order("event_pages.date_event DESC, pages.path").
		Offset(paged.Offset).
		Limit(paged.PerPage).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	result := &EventIndexContext{
		Page:       *page,
		Intro:      index.Intro,
		Events:     make([]EventSummary, 0, len(rows)),
		Pagination: paged,
	}
	for _, ev := range rows {
		result.Events = append(result.Events, EventSummary{
			ID:        ev.PageID,
			Title:     ev.Page.Title,
			URL:       ev.Page.URL(),
			DateEvent: ev.DateEvent.Format(dateEventLayout),
		})
	}

	if err := s.Cache.Set(ctx, key, result, s.cacheTTL()); err != nil {
		logrus.WithError(err).Warn("page cache write failed")
	}
	return result, nil
}

// EventDocuments returns the documents attached to an event, ordered by
// document date (undated last) and then by their sort order.
func EventDocuments(db *gorm.DB, pageID uint) ([]models.EventDocument, error) {
	var docs []models.EventDocument
	if err := db.Preload("Document.Category").
		Where("page_id = ?", pageID).
		Order("sort_order, id").
		Find(&docs).Error; err != nil {
		return nil, err
	}
	sortEventDocuments(docs)
	return docs, nil
}

func documentDate(ed models.EventDocument) *time.Time {
	if ed.Document == nil {
		return nil
	}
	return ed.Document.Date()
}

func sortEventDocuments(docs []models.EventDocument) {
	sort.SliceStable(docs, func(i, j int) bool {
		ti, tj := documentDate(docs[i]), documentDate(docs[j])
		if ti == nil || tj == nil {
			return ti != nil && tj == nil
		}
		return ti.Before(*tj)
	})
}

// GroupDocumentsByCategory buckets event documents by category name in
// order of first appearance. Uncategorised documents are left out.
func GroupDocumentsByCategory(docs []models.EventDocument) []CategoryDocuments {
	groups := []CategoryDocuments{}
	position := map[string]int{}

	for _, ed := range docs {
		if ed.Document == nil || ed.Document.Category == nil {
			continue
		}
		name := ed.Document.Category.Name
		i, ok := position[name]
		if !ok {
			i = len(groups)
			position[name] = i
			groups = append(groups, CategoryDocuments{Category: name})
		}
		groups[i].Documents = append(groups[i].Documents, ed)
	}

	return groups
}

// EventImages returns the images of an event in sort order
func EventImages(db *gorm.DB, pageID uint) ([]models.EventImage, error) {
	var images []models.EventImage
	err := db.Preload("Image").
		Where("page_id = ?", pageID).
		Order("sort_order, id").
		Find(&images).Error
	return images, err
}

// Event builds the context of an event page. can_edit and the edit URL are
// computed for authenticated principals only, so they are not cached.
func (s *Service) Event(ctx context.Context, page *models.Page, p *access.Principal) (*EventContext, error) {
	key := cache.PageKey(page.ID, "event")

	var result EventContext
	found, err := s.Cache.Get(ctx, key, &result)
	if err != nil {
		logrus.WithError(err).Warn("page cache read failed")
	}

	if !found {
		var ev models.EventPage
		if err := s.DB.WithContext(ctx).First(&ev, "page_id = ?", page.ID).Error; err != nil {
			return nil, notFound(err, "event page")
		}
		images, err := EventImages(s.DB.WithContext(ctx), page.ID)
		if err != nil {
			return nil, err
		}
		docs, err := EventDocuments(s.DB.WithContext(ctx), page.ID)
		if err != nil {
			return nil, err
		}

		result = EventContext{
			Page:                *page,
			DateEvent:           ev.DateEvent.Format(dateEventLayout),
			Notes:               ev.Notes,
			EventImages:         images,
			DocumentsByCategory: GroupDocumentsByCategory(docs),
		}
		if err := s.Cache.Set(ctx, key, &result, s.cacheTTL()); err != nil {
			logrus.WithError(err).Warn("page cache write failed")
		}
	}

	result.CanEdit = false
	result.EditURL = ""
	if p.IsAuthenticated() {
		canEdit, err := CanEdit(s.DB.WithContext(ctx), page, p)
		if err != nil {
			return nil, err
		}
		result.CanEdit = canEdit
		result.EditURL = EditURL(page.ID)
	}
	return &result, nil
}

// eventPage checks that pageID is an event page
func eventPage(db *gorm.DB, pageID uint) (*models.Page, error) {
	page, err := GetPage(db, pageID)
	if err != nil {
		return nil, err
	}
	if page.ContentType != models.PageTypeEvent {
		return nil, fmt.Errorf("page %d: %w", pageID, ErrNotAnEvent)
	}
	return page, nil
}

func nextSortOrder(tx *gorm.DB, model interface{}, pageID uint) (int, error) {
	var max *int
	if err := tx.Model(model).Where("page_id = ?", pageID).
		Select("MAX(sort_order)").Scan(&max).Error; err != nil {
		return 0, err
	}
	if max == nil {
		return 0, nil
	}
	return *max + 1, nil
}

// AttachImage appends an image to an event
func (s *Service) AttachImage(ctx context.Context, pageID uint, in AttachImageInput) (*models.EventImage, error) {
	if _, err := eventPage(s.DB, pageID); err != nil {
		return nil, err
	}
	img, err := GetImage(s.DB, in.ImageID)
	if err != nil {
		return nil, forms.NewValidationError("image_id", invalidChoiceMessage)
	}

	attached := models.EventImage{PageID: pageID, ImageID: img.ID, Caption: strings.TrimSpace(in.Caption)}
	if errs := forms.CleanModel(&attached); errs != nil {
		return nil, errs
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		order, err := nextSortOrder(tx, &models.EventImage{}, pageID)
		if err != nil {
			return err
		}
		attached.SortOrder = order
		return tx.Omit(clause.Associations).Create(&attached).Error
	})
	if err != nil {
		return nil, err
	}

	s.invalidatePage(ctx, pageID)
	attached.Image = img
	return &attached, nil
}

// AttachDocuments appends documents to an event in the given order
func (s *Service) AttachDocuments(ctx context.Context, pageID uint, in []AttachDocumentInput) ([]models.EventDocument, error) {
	if _, err := eventPage(s.DB, pageID); err != nil {
		return nil, err
	}
	if len(in) == 0 {
		return nil, forms.NewValidationError("document_id", "This field is required.")
	}

	ids := make([]uint, 0, len(in))
	for _, a := range in {
		ids = append(ids, a.DocumentID)
	}
	var known []uint
	if err := s.DB.Model(&models.Document{}).Where("id IN ?", ids).Pluck("id", &known).Error; err != nil {
		return nil, err
	}
	exists := make(map[uint]bool, len(known))
	for _, id := range known {
		exists[id] = true
	}
	for _, id := range ids {
		if !exists[id] {
			return nil, forms.NewValidationError("document_id", invalidChoiceMessage)
		}
	}

	attached := make([]models.EventDocument, 0, len(in))
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		order, err := nextSortOrder(tx, &models.EventDocument{}, pageID)
		if err != nil {
			return err
		}
		for i, a := range in {
			attached = append(attached, models.EventDocument{
				PageID:     pageID,
				DocumentID: a.DocumentID,
				Notes:      a.Notes,
				SortOrder:  order + i,
			})
		}
		return tx.Omit(clause.Associations).Create(&attached).Error
	})
	if err != nil {
		return nil, err
	}

	s.invalidatePage(ctx, pageID)
	return attached, nil
}

// DetachImage removes an attached image from an event
func (s *Service) DetachImage(ctx context.Context, pageID, attachmentID uint) error {
	res := s.DB.Where("id = ? AND page_id = ?", attachmentID, pageID).Delete(&models.EventImage{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("event image %d: %w", attachmentID, ErrNotFound)
	}
	s.invalidatePage(ctx, pageID)
	return nil
}

// DetachDocument removes an attached document from an event
func (s *Service) DetachDocument(ctx context.Context, pageID, attachmentID uint) error {
	res := s.DB.Where("id = ? AND page_id = ?", attachmentID, pageID).Delete(&models.EventDocument{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("event document %d: %w", attachmentID, ErrNotFound)
	}
	s.invalidatePage(ctx, pageID)
	return nil
}

// ReorderImages sets the sort order of an event's images to the order of ids
func (s *Service) ReorderImages(ctx context.Context, pageID uint, ids []uint) error {
	return s.reorder(ctx, &models.EventImage{}, pageID, ids)
}

// ReorderDocuments sets the sort order of an event's documents to the order of ids
func (s *Service) ReorderDocuments(ctx context.Context, pageID uint, ids []uint) error {
	return s.reorder(ctx, &models.EventDocument{}, pageID, ids)
}

func (s *Service) reorder(ctx context.Context, model interface{}, pageID uint, ids []uint) error {
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var current []uint
		if err := tx.Model(model).Where("page_id = ?", pageID).Pluck("id", &current).Error; err != nil {
			return err
		}
		if len(current) != len(ids) {
			return fmt.Errorf("%w: expected %d ids, got %d", ErrInvalidInput, len(current), len(ids))
		}
		known := make(map[uint]bool, len(current))
		for _, id := range current {
			known[id] = true
		}
		for i, id := range ids {
			if !known[id] {
				return fmt.Errorf("%w: %d is not attached to page %d", ErrInvalidInput, id, pageID)
			}
			delete(known, id)
			if err := tx.Model(model).Where("id = ?", id).UpdateColumn("sort_order", i).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.invalidatePage(ctx, pageID)
	return nil
}
