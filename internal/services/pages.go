// pages.go
//
// Document and event content service built on the jam-build data service stack
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of eventsdb.
// eventsdb is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// eventsdb is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with eventsdb.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"github.com/localnerve/eventsdb/internal/cache"
	"github.com/localnerve/eventsdb/internal/forms"
	"github.com/localnerve/eventsdb/internal/models"
	"github.com/localnerve/eventsdb/internal/tree"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const rootPageTitle = "Root"

// PageInput carries the editable fields of every page type. Fields of
// other types are ignored.
type PageInput struct {
	Type  string  `json:"type"`
	Title *string `json:"title"`
	Slug  *string `json:"slug"`
	// Live publishes the page on creation
	Live bool `json:"live"`

	Intro         *string             `json:"intro,omitempty"`
	EventsPerPage *int                `json:"events_per_page,omitempty"`
	DateEvent     *time.Time          `json:"date_event,omitempty"`
	Notes         *models.StreamField `json:"notes,omitempty"`
}

// PageDetail is a page with its typed content and tree context
type PageDetail struct {
	Page                models.Page   `json:"page"`
	Specific            interface{}   `json:"specific,omitempty"`
	Children            []models.Page `json:"children"`
	AllowedSubpageTypes []PageType    `json:"allowed_subpage_types"`
	EditURL             string        `json:"edit_url"`
}

// EditURL is the admin edit view of a page
func EditURL(pageID uint) string {
	return fmt.Sprintf("/admin/pages/%d/edit/", pageID)
}

// EnsureRootPage creates the root of the page tree when missing
func EnsureRootPage(db *gorm.DB) (*models.Page, error) {
	root := models.Page{}
	err := db.Where("depth = ?", 1).
		Attrs(models.Page{
			Path:        tree.Root(),
			Depth:       1,
			Title:       rootPageTitle,
			Slug:        "root",
			URLPath:     "/",
			ContentType: models.PageTypeBase,
			Live:        true,
		}).
		FirstOrCreate(&root).Error
	if err != nil {
		return nil, fmt.Errorf("ensure root page: %w", err)
	}
	return &root, nil
}

// EnsureRoots creates the root page and the root collection
func EnsureRoots(db *gorm.DB) error {
	if _, err := EnsureRootPage(db); err != nil {
		return err
	}
	_, err := EnsureRootCollection(db)
	return err
}

// GetPage finds a page by id
func GetPage(db *gorm.DB, id uint) (*models.Page, error) {
	var p models.Page
	if err := quiet(db).First(&p, id).Error; err != nil {
		return nil, notFound(err, "page")
	}
	return &p, nil
}

// Children returns the direct children of page in tree order
func Children(db *gorm.DB, page *models.Page) ([]models.Page, error) {
	var children []models.Page
	err := db.Where("path LIKE ? AND depth = ?", tree.ChildPattern(page.Path), page.Depth+1).
		Order("path").
		Find(&children).Error
	return children, err
}

// Ancestors returns the ancestors of page, root first
func Ancestors(db *gorm.DB, page *models.Page) ([]models.Page, error) {
	paths := tree.Ancestors(page.Path)
	if len(paths) == 0 {
		return []models.Page{}, nil
	}
	var pages []models.Page
	err := db.Where("path IN ?", paths).Order("path").Find(&pages).Error
	return pages, err
}

// normalizeURLPath turns a request path into the url_path form "/a/b/"
func normalizeURLPath(p string) string {
	p = "/" + strings.Trim(p, "/")
	if p != "/" {
		p += "/"
	}
	return p
}

// FindLivePage finds the live page served at a request path
func FindLivePage(db *gorm.DB, requestPath string) (*models.Page, error) {
	var p models.Page
	err := quiet(db).Where("url_path = ? AND live = ?", normalizeURLPath(requestPath), true).
		First(&p).Error
	if err != nil {
		return nil, notFound(err, "page")
	}
	return &p, nil
}

// SpecificPage loads the typed content of page. The base type has none.
func SpecificPage(db *gorm.DB, page *models.Page) (interface{}, error) {
	switch page.ContentType {
	case models.PageTypeEventIndex:
		var idx models.EventIndexPage
		if err := db.First(&idx, "page_id = ?", page.ID).Error; err != nil {
			return nil, notFound(err, "event index page")
		}
		idx.Page = *page
		return &idx, nil
	case models.PageTypeEvent:
		var ev models.EventPage
		if err := db.First(&ev, "page_id = ?", page.ID).Error; err != nil {
			return nil, notFound(err, "event page")
		}
		ev.Page = *page
		return &ev, nil
	}
	return nil, nil
}

// PageDetails assembles the admin view of a page
func PageDetails(db *gorm.DB, id uint) (*PageDetail, error) {
	page, err := GetPage(db, id)
	if err != nil {
		return nil, err
	}
	specific, err := SpecificPage(db, page)
	if err != nil {
		return nil, err
	}
	children, err := Children(db, page)
	if err != nil {
		return nil, err
	}
	return &PageDetail{
		Page:                *page,
		Specific:            specific,
		Children:            children,
		AllowedSubpageTypes: AllowedSubpageTypes(page.ContentType),
		EditURL:             EditURL(page.ID),
	}, nil
}

// slugInUse reports whether a sibling below parentPath already has s
func slugInUse(tx *gorm.DB, parentPath string, depth int, s string, exceptID uint) (bool, error) {
	var count int64
	err := tx.Model(&models.Page{}).
		Where("path LIKE ? AND depth = ? AND slug = ? AND id <> ?", tree.ChildPattern(parentPath), depth, s, exceptID).
		Count(&count).Error
	return count > 0, err
}

// applyPageFields copies title and slug, deriving the slug from the title
// when none is given
func applyPageFields(page *models.Page, in PageInput, errs *forms.ValidationError) {
	if in.Title != nil {
		page.Title = strings.TrimSpace(*in.Title)
	}
	if in.Slug != nil {
		page.Slug = strings.TrimSpace(*in.Slug)
	}
	if page.Slug == "" {
		page.Slug = slug.Make(page.Title)
	} else if !slug.IsSlug(page.Slug) {
		errs.Add("slug", "Enter a valid slug consisting of lowercase letters, numbers, underscores or hyphens.")
	}
	if verrs := forms.CleanModel(page); verrs != nil {
		errs.Merge(verrs)
	}
}

// buildSpecific validates the typed fields of a new or edited page
func buildSpecific(page *models.Page, existing interface{}, in PageInput, errs *forms.ValidationError) interface{} {
	switch page.ContentType {
	case models.PageTypeEventIndex:
		idx, _ := existing.(*models.EventIndexPage)
		if idx == nil {
			idx = &models.EventIndexPage{EventsPerPage: models.DefaultEventsPerPage}
		}
		if in.Intro != nil {
			idx.Intro = SanitizeRichText(*in.Intro)
		}
		if in.EventsPerPage != nil {
			idx.EventsPerPage = *in.EventsPerPage
		}
		if verrs := forms.CleanModel(idx); verrs != nil {
			errs.Merge(verrs)
		}
		return idx

	case models.PageTypeEvent:
		ev, _ := existing.(*models.EventPage)
		if ev == nil {
			ev = &models.EventPage{}
		}
		if in.DateEvent != nil {
			ev.DateEvent = *in.DateEvent
		}
		if in.Notes != nil {
			notes, verrs := CleanStreamField(*in.Notes)
			if verrs != nil {
				errs.Merge(verrs)
			} else {
				ev.Notes = notes
			}
		}
		if verrs := forms.CleanModel(ev); verrs != nil {
			errs.Merge(verrs)
		}
		return ev
	}
	return nil
}

// CreatePage adds a page of in.Type as the last child of parentID
func (s *Service) CreatePage(ctx context.Context, parentID uint, in PageInput, ownerID string) (*PageDetail, error) {
	var created models.Page

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var parent models.Page
		if err := lockNode(tx, &parent, parentID); err != nil {
			return notFound(err, "parent page")
		}
		if !CanCreateAt(parent.ContentType, in.Type) {
			return fmt.Errorf("%q under %q: %w", in.Type, parent.ContentType, ErrPageTypeNotAllowed)
		}

		page := models.Page{ContentType: in.Type, OwnerID: ownerID, Depth: parent.Depth + 1}
		errs := &forms.ValidationError{}
		applyPageFields(&page, in, errs)
		specific := buildSpecific(&page, nil, in, errs)
		if page.Slug != "" {
			taken, err := slugInUse(tx, parent.Path, page.Depth, page.Slug, 0)
			if err != nil {
				return err
			}
			if taken {
				errs.Add("slug", fmt.Sprintf("The slug '%s' is already in use within the parent page", page.Slug))
			}
		}
		if errs.HasErrors() {
			return errs
		}

		path, err := nextChildPath(tx, &models.Page{}, parent.Path)
		if err != nil {
			return err
		}
		page.Path = path
		page.URLPath = parent.URLPath + page.Slug + "/"
		if in.Live {
			now := time.Now()
			page.Live = true
			page.FirstPublishedAt = &now
			page.LastPublishedAt = &now
		}

		if err := tx.Create(&page).Error; err != nil {
			return err
		}
		if err := createSpecific(tx, page.ID, specific); err != nil {
			return err
		}
		if err := tx.Model(&parent).UpdateColumn("num_child", gorm.Expr("num_child + ?", 1)).Error; err != nil {
			return err
		}
		created = page
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidatePage(ctx, parentID)
	logrus.WithFields(logrus.Fields{"id": created.ID, "type": created.ContentType, "url": created.URLPath}).Info("page created")
	return PageDetails(s.DB, created.ID)
}

func createSpecific(tx *gorm.DB, pageID uint, specific interface{}) error {
	switch sp := specific.(type) {
	case *models.EventIndexPage:
		sp.PageID = pageID
		return tx.Omit(clause.Associations).Create(sp).Error
	case *models.EventPage:
		sp.PageID = pageID
		return tx.Omit(clause.Associations).Create(sp).Error
	}
	return nil
}

// UpdatePage edits a page. A new slug moves the url_path of the whole subtree.
func (s *Service) UpdatePage(ctx context.Context, id uint, in PageInput) (*PageDetail, error) {
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		page, err := GetPage(tx, id)
		if err != nil {
			return err
		}
		existing, err := SpecificPage(tx, page)
		if err != nil {
			return err
		}
		oldURL := page.URLPath

		errs := &forms.ValidationError{}
		if page.IsRoot() && in.Slug != nil && *in.Slug != page.Slug {
			errs.Add("slug", "The root page slug cannot be changed.")
		}
		applyPageFields(page, in, errs)
		specific := buildSpecific(page, existing, in, errs)
		if !page.IsRoot() {
			parentPath := tree.Parent(page.Path)
			taken, err := slugInUse(tx, parentPath, page.Depth, page.Slug, page.ID)
			if err != nil {
				return err
			}
			if taken {
				errs.Add("slug", fmt.Sprintf("The slug '%s' is already in use within the parent page", page.Slug))
			}
		}
		if errs.HasErrors() {
			return errs
		}

		if !page.IsRoot() {
			page.URLPath = oldURL[:len(oldURL)-len(lastSegment(oldURL))] + page.Slug + "/"
		}
		if err := tx.Omit(clause.Associations).Save(page).Error; err != nil {
			return err
		}
		switch sp := specific.(type) {
		case *models.EventIndexPage:
			if err := tx.Omit(clause.Associations).Save(sp).Error; err != nil {
				return err
			}
		case *models.EventPage:
			if err := tx.Omit(clause.Associations).Save(sp).Error; err != nil {
				return err
			}
		}

		if page.URLPath != oldURL {
			return moveDescendantURLs(tx, page.Path, oldURL, page.URLPath)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidatePages(ctx)
	return PageDetails(s.DB, id)
}

// lastSegment is the final "slug/" segment of a url_path
func lastSegment(urlPath string) string {
	trimmed := strings.TrimSuffix(urlPath, "/")
	i := strings.LastIndex(trimmed, "/")
	return urlPath[i+1:]
}

func moveDescendantURLs(tx *gorm.DB, path, oldURL, newURL string) error {
	var descendants []models.Page
	if err := tx.Where("path LIKE ? AND path <> ?", tree.DescendantPattern(path), path).
		Find(&descendants).Error; err != nil {
		return err
	}
	for _, d := range descendants {
		if !strings.HasPrefix(d.URLPath, oldURL) {
			continue
		}
		moved := newURL + strings.TrimPrefix(d.URLPath, oldURL)
		if err := tx.Model(&models.Page{}).Where("id = ?", d.ID).UpdateColumn("url_path", moved).Error; err != nil {
			return err
		}
	}
	return nil
}

// PublishPage makes a page live
func (s *Service) PublishPage(ctx context.Context, id uint) (*models.Page, error) {
	page, err := GetPage(s.DB, id)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	updates := map[string]interface{}{"live": true, "last_published_at": now}
	if page.FirstPublishedAt == nil {
		updates["first_published_at"] = now
	}
	if err := s.DB.Model(page).Updates(updates).Error; err != nil {
		return nil, err
	}
	s.invalidateWithParent(ctx, page)
	return GetPage(s.DB, id)
}

// UnpublishPage takes a page offline. The root stays live.
func (s *Service) UnpublishPage(ctx context.Context, id uint) (*models.Page, error) {
	page, err := GetPage(s.DB, id)
	if err != nil {
		return nil, err
	}
	if page.IsRoot() {
		return nil, fmt.Errorf("unpublish: %w", ErrRootPage)
	}
	if err := s.DB.Model(page).Update("live", false).Error; err != nil {
		return nil, err
	}
	s.invalidateWithParent(ctx, page)
	return GetPage(s.DB, id)
}

// DeletePage removes a page with all its descendants and their content
func (s *Service) DeletePage(ctx context.Context, id uint) (int, error) {
	var removed int
	var parentID uint

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		page, err := GetPage(tx, id)
		if err != nil {
			return err
		}
		if page.IsRoot() {
			return fmt.Errorf("delete: %w", ErrRootPage)
		}

		var parent models.Page
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("path = ?", tree.Parent(page.Path)).
			First(&parent).Error; err != nil {
			return notFound(err, "parent page")
		}
		parentID = parent.ID

		var ids []uint
		if err := tx.Model(&models.Page{}).
			Where("path LIKE ?", tree.DescendantPattern(page.Path)).
			Pluck("id", &ids).Error; err != nil {
			return err
		}
		removed = len(ids)

		var restrictionIDs []uint
		if err := tx.Model(&models.PageViewRestriction{}).Where("page_id IN ?", ids).Pluck("id", &restrictionIDs).Error; err != nil {
			return err
		}
		if len(restrictionIDs) > 0 {
			if err := tx.Exec("DELETE FROM page_view_restriction_groups WHERE page_view_restriction_id IN ?",
				restrictionIDs).Error; err != nil {
				return err
			}
		}

		for _, model := range []interface{}{
			&models.EventImage{},
			&models.EventDocument{},
			&models.EventPage{},
			&models.EventIndexPage{},
			&models.PageViewRestriction{},
			&models.GroupPagePermission{},
		} {
			if err := tx.Where("page_id IN ?", ids).Delete(model).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("id IN ?", ids).Delete(&models.Page{}).Error; err != nil {
			return err
		}

		return tx.Model(&parent).UpdateColumn("num_child", gorm.Expr("num_child - ?", 1)).Error
	})
	if err != nil {
		return 0, err
	}

	s.invalidatePage(ctx, id)
	s.invalidatePage(ctx, parentID)
	logrus.WithFields(logrus.Fields{"id": id, "removed": removed}).Info("page deleted")
	return removed, nil
}

func (s *Service) invalidatePage(ctx context.Context, pageID uint) {
	if err := s.Cache.DeletePrefix(ctx, cache.PagePrefix(pageID)); err != nil {
		logrus.WithError(err).WithField("page", pageID).Warn("page cache invalidation failed")
	}
}

// invalidateWithParent drops the page and its parent, whose listing shows it
func (s *Service) invalidateWithParent(ctx context.Context, page *models.Page) {
	s.invalidatePage(ctx, page.ID)
	if parentPath := tree.Parent(page.Path); parentPath != "" {
		var parent models.Page
		if err := quiet(s.DB).Where("path = ?", parentPath).First(&parent).Error; err == nil {
			s.invalidatePage(ctx, parent.ID)
		}
	}
}
