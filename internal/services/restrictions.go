package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/localnerve/eventsdb/internal/access"
	"github.com/localnerve/eventsdb/internal/forms"
	"github.com/localnerve/eventsdb/internal/models"
	"github.com/localnerve/eventsdb/internal/tree"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RestrictionInput sets the view restriction of a page
type RestrictionInput struct {
	RestrictionType string   `json:"restriction_type"`
	Groups          []string `json:"groups"`
}

// EnsureGroups returns the named groups once each, creating missing ones
func EnsureGroups(db *gorm.DB, names []string) ([]models.Group, error) {
	groups := make([]models.Group, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		g := models.Group{}
		if err := db.Where("name = ?", name).Attrs(models.Group{Name: name}).FirstOrCreate(&g).Error; err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, nil
}

// RestrictionsFor returns the view restrictions on page and its ancestors
func RestrictionsFor(db *gorm.DB, page *models.Page) ([]models.PageViewRestriction, error) {
	var restrictions []models.PageViewRestriction
	err := db.Preload("Groups").
		Joins("JOIN pages ON pages.id = page_view_restrictions.page_id").
		Where("pages.path IN ?", tree.AncestorsOrSelf(page.Path)).
		Order("pages.path").
		Find(&restrictions).Error
	return restrictions, err
}

// SetViewRestriction replaces the restriction of a page. The type none
// removes it.
func (s *Service) SetViewRestriction(ctx context.Context, pageID uint, in RestrictionInput) (*models.PageViewRestriction, error) {
	if in.RestrictionType == models.RestrictionGroups && len(in.Groups) == 0 {
		return nil, forms.NewValidationError("groups", "Please select at least one group.")
	}
	if in.RestrictionType != models.RestrictionNone {
		probe := models.PageViewRestriction{RestrictionType: in.RestrictionType}
		if errs := forms.CleanModel(&probe); errs != nil {
			return nil, errs
		}
	}

	var result *models.PageViewRestriction
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if _, err := GetPage(tx, pageID); err != nil {
			return err
		}

		var existing models.PageViewRestriction
		err := tx.Where("page_id = ?", pageID).First(&existing).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		found := err == nil

		if in.RestrictionType == models.RestrictionNone {
			if found {
				if err := tx.Model(&existing).Association("Groups").Clear(); err != nil {
					return err
				}
				return tx.Delete(&existing).Error
			}
			return nil
		}

		var groups []models.Group
		if in.RestrictionType == models.RestrictionGroups {
			if groups, err = EnsureGroups(tx, in.Groups); err != nil {
				return err
			}
		}

		existing.PageID = pageID
		existing.RestrictionType = in.RestrictionType
		if err := tx.Omit(clause.Associations).Save(&existing).Error; err != nil {
			return err
		}
		if err := tx.Model(&existing).Association("Groups").Replace(groups); err != nil {
			return err
		}
		existing.Groups = groups
		result = &existing
		return nil
	})
	if err != nil {
		return nil, err
	}

	// restrictions cover descendants, which may be cached anywhere
	s.invalidatePages(ctx)
	return result, nil
}

// GrantPagePermission gives a group a permission on a page and its descendants
func GrantPagePermission(db *gorm.DB, pageID uint, groupName, permission string) (*models.GroupPagePermission, error) {
	perm := models.GroupPagePermission{PageID: pageID, Permission: permission}
	if errs := forms.CleanModel(&perm); errs != nil {
		return nil, errs
	}
	if _, err := GetPage(db, pageID); err != nil {
		return nil, err
	}

	groups, err := EnsureGroups(db, []string{groupName})
	if err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		return nil, forms.NewValidationError("group", "This field is required.")
	}
	perm.GroupID = groups[0].ID

	if err := db.Where(&models.GroupPagePermission{GroupID: perm.GroupID, PageID: pageID, Permission: permission}).
		FirstOrCreate(&perm).Error; err != nil {
		return nil, fmt.Errorf("grant permission: %w", err)
	}
	perm.Group = groups[0]
	return &perm, nil
}

// CanEdit reports whether the principal may edit page: superusers can,
// so can members of a group holding change on the page or an ancestor,
// and the owner when a group grants add.
func CanEdit(db *gorm.DB, page *models.Page, p *access.Principal) (bool, error) {
	if !p.IsAuthenticated() {
		return false, nil
	}
	if p.IsSuperuser {
		return true, nil
	}
	if len(p.Roles) == 0 {
		return false, nil
	}

	var perms []string
	err := db.Model(&models.GroupPagePermission{}).
		Joins("JOIN auth_groups ON auth_groups.id = group_page_permissions.group_id").
		Joins("JOIN pages ON pages.id = group_page_permissions.page_id").
		Where("auth_groups.name IN ? AND pages.path IN ?", p.Roles, tree.AncestorsOrSelf(page.Path)).
		Pluck("group_page_permissions.permission", &perms).Error
	if err != nil {
		return false, err
	}

	for _, perm := range perms {
		switch perm {
		case models.PermissionChange:
			return true, nil
		case models.PermissionAdd:
			if page.OwnerID != "" && page.OwnerID == p.UserID {
				return true, nil
			}
		}
	}
	return false, nil
}
