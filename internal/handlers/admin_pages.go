// admin_pages.go
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

package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/eventsdb/internal/middleware"
	"github.com/localnerve/eventsdb/internal/models"
	"github.com/localnerve/eventsdb/internal/services"
	"github.com/localnerve/eventsdb/internal/types"
	"github.com/localnerve/eventsdb/internal/utils"
)

// AttachImageRequest is one image to attach to an event
type AttachImageRequest struct {
	ImageID types.FlexID `json:"image_id"`
	Caption string       `json:"caption"`
}

// AttachDocumentRequest is one document to attach to an event
type AttachDocumentRequest struct {
	DocumentID types.FlexID `json:"document_id"`
	Notes      string       `json:"notes"`
}

// ReorderRequest lists attachment ids in their new order
type ReorderRequest struct {
	IDs []types.FlexID `json:"ids"`
}

// PermissionRequest grants a group a permission on a page
type PermissionRequest struct {
	Group      string `json:"group"`
	Permission string `json:"permission"`
}

// GetPage handles GET /admin/api/pages/:id
// @Summary Get a page
// @Description The page with its typed content, children and the types that can be created below it
// @Tags Pages
// @Produce json
// @Security CookieAuth
// @Param id path int true "Page ID"
// @Success 200 {object} services.PageDetail
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /admin/api/pages/{id} [get]
func (h *AdminHandler) GetPage(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	detail, err := services.PageDetails(h.Service.DB.WithContext(c.UserContext()), id)
	if err != nil {
		return handleError(c, err, "getPage")
	}
	return c.JSON(detail)
}

// EditPage handles GET /admin/pages/:id/edit/
// @Summary Page edit view
// @Description The page details with the editing rights of the current user
// @Tags Pages
// @Produce json
// @Security CookieAuth
// @Param id path int true "Page ID"
// @Success 200 {object} services.PageDetail
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /admin/pages/{id}/edit/ [get]
func (h *AdminHandler) EditPage(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	db := h.Service.DB.WithContext(c.UserContext())
	detail, err := services.PageDetails(db, id)
	if err != nil {
		return handleError(c, err, "editPage")
	}
	canEdit, err := services.CanEdit(db, &detail.Page, middleware.Principal(c))
	if err != nil {
		return handleError(c, err, "editPage")
	}
	if !canEdit {
		return types.NewCustomError(fiber.StatusForbidden,
			"You do not have permission to edit this page", types.ErrorTypeForbidden)
	}
	ancestors, err := services.Ancestors(db, &detail.Page)
	if err != nil {
		return handleError(c, err, "editPage")
	}
	return c.JSON(fiber.Map{"detail": detail, "ancestors": ancestors})
}

// CreatePage handles POST /admin/api/pages/:id/children
// @Summary Create a child page
// @Description The type must be allowed below the parent page
// @Tags Pages
// @Accept json
// @Produce json
// @Security CookieAuth
// @Param id path int true "Parent page ID"
// @Param page body services.PageInput true "Page"
// @Success 201 {object} services.PageDetail
// @Failure 400 {object} utils.ValidationErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /admin/api/pages/{id}/children [post]
func (h *AdminHandler) CreatePage(c *fiber.Ctx) error {
	parentID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var in services.PageInput
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, err)
	}
	owner := ""
	if p := middleware.Principal(c); p != nil {
		owner = p.UserID
	}
	detail, err := h.Service.CreatePage(c.UserContext(), parentID, in, owner)
	if err != nil {
		return handleError(c, err, "createPage")
	}
	return utils.SuccessResponse(c, detail, fiber.StatusCreated)
}

// UpdatePage handles PUT /admin/api/pages/:id
// @Summary Edit a page
// @Tags Pages
// @Accept json
// @Produce json
// @Security CookieAuth
// @Param id path int true "Page ID"
// @Param page body services.PageInput true "Page"
// @Success 200 {object} services.PageDetail
// @Failure 400 {object} utils.ValidationErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /admin/api/pages/{id} [put]
func (h *AdminHandler) UpdatePage(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var in services.PageInput
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, err)
	}
	detail, err := h.Service.UpdatePage(c.UserContext(), id, in)
	if err != nil {
		return handleError(c, err, "updatePage")
	}
	return c.JSON(detail)
}

// PublishPage handles POST /admin/api/pages/:id/publish
// @Summary Publish a page
// @Tags Pages
// @Produce json
// @Security CookieAuth
// @Param id path int true "Page ID"
// @Success 200 {object} models.Page
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /admin/api/pages/{id}/publish [post]
func (h *AdminHandler) PublishPage(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	page, err := h.Service.PublishPage(c.UserContext(), id)
	if err != nil {
		return handleError(c, err, "publishPage")
	}
	return c.JSON(page)
}

// UnpublishPage handles POST /admin/api/pages/:id/unpublish
// @Summary Unpublish a page
// @Tags Pages
// @Produce json
// @Security CookieAuth
// @Param id path int true "Page ID"
// @Success 200 {object} models.Page
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /admin/api/pages/{id}/unpublish [post]
func (h *AdminHandler) UnpublishPage(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	page, err := h.Service.UnpublishPage(c.UserContext(), id)
	if err != nil {
		return handleError(c, err, "unpublishPage")
	}
	return c.JSON(page)
}

// DeletePage handles DELETE /admin/api/pages/:id
// @Summary Delete a page and its descendants
// @Tags Pages
// @Produce json
// @Security CookieAuth
// @Param id path int true "Page ID"
// @Success 200 {object} utils.DeletedResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /admin/api/pages/{id} [delete]
func (h *AdminHandler) DeletePage(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	removed, err := h.Service.DeletePage(c.UserContext(), id)
	if err != nil {
		return handleError(c, err, "deletePage")
	}
	return utils.DeletedResponse(c, removed)
}

// AttachImages handles POST /admin/api/pages/:id/images
// @Summary Attach images to an event
// @Description Accepts one image object or an array of them
// @Tags Events
// @Accept json
// @Produce json
// @Security CookieAuth
// @Param id path int true "Event page ID"
// @Param images body []AttachImageRequest true "Images"
// @Success 201 {array} models.EventImage
// @Failure 400 {object} utils.ValidationErrorResponseStruct
// @Router /admin/api/pages/{id}/images [post]
func (h *AdminHandler) AttachImages(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req types.FlexList[AttachImageRequest]
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, err)
	}

	attached := make([]*models.EventImage, 0, len(req))
	for _, item := range req.Slice() {
		img, err := h.Service.AttachImage(c.UserContext(), id, services.AttachImageInput{
			ImageID: item.ImageID.Uint(),
			Caption: item.Caption,
		})
		if err != nil {
			return handleError(c, err, "attachImages")
		}
		attached = append(attached, img)
	}
	return utils.SuccessResponse(c, attached, fiber.StatusCreated)
}

// AttachDocuments handles POST /admin/api/pages/:id/documents
// @Summary Attach documents to an event
// @Description Accepts one document object or an array of them, attached in order
// @Tags Events
// @Accept json
// @Produce json
// @Security CookieAuth
// @Param id path int true "Event page ID"
// @Param documents body []AttachDocumentRequest true "Documents"
// @Success 201 {array} models.EventDocument
// @Failure 400 {object} utils.ValidationErrorResponseStruct
// @Router /admin/api/pages/{id}/documents [post]
func (h *AdminHandler) AttachDocuments(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req types.FlexList[AttachDocumentRequest]
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, err)
	}

	in := make([]services.AttachDocumentInput, 0, len(req))
	for _, item := range req.Slice() {
		in = append(in, services.AttachDocumentInput{DocumentID: item.DocumentID.Uint(), Notes: item.Notes})
	}
	attached, err := h.Service.AttachDocuments(c.UserContext(), id, in)
	if err != nil {
		return handleError(c, err, "attachDocuments")
	}
	return utils.SuccessResponse(c, attached, fiber.StatusCreated)
}

// DetachImage handles DELETE /admin/api/pages/:id/images/:attachment
// @Summary Remove an image from an event
// @Tags Events
// @Produce json
// @Security CookieAuth
// @Param id path int true "Event page ID"
// @Param attachment path int true "Event image ID"
// @Success 200 {object} utils.DeletedResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /admin/api/pages/{id}/images/{attachment} [delete]
func (h *AdminHandler) DetachImage(c *fiber.Ctx) error {
	return h.detach(c, h.Service.DetachImage, "detachImage")
}

// DetachDocument handles DELETE /admin/api/pages/:id/documents/:attachment
// @Summary Remove a document from an event
// @Tags Events
// @Produce json
// @Security CookieAuth
// @Param id path int true "Event page ID"
// @Param attachment path int true "Event document ID"
// @Success 200 {object} utils.DeletedResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /admin/api/pages/{id}/documents/{attachment} [delete]
func (h *AdminHandler) DetachDocument(c *fiber.Ctx) error {
	return h.detach(c, h.Service.DetachDocument, "detachDocument")
}

func (h *AdminHandler) detach(c *fiber.Ctx, remove func(ctx context.Context, pageID, attachmentID uint) error, op string) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	attachment, err := paramID(c, "attachment")
	if err != nil {
		return err
	}
	if err := remove(c.UserContext(), id, attachment); err != nil {
		return handleError(c, err, op)
	}
	return utils.DeletedResponse(c, 1)
}

// ReorderImages handles PUT /admin/api/pages/:id/images/order
// @Summary Reorder the images of an event
// @Description ids must list every attached image exactly once
// @Tags Events
// @Accept json
// @Produce json
// @Security CookieAuth
// @Param id path int true "Event page ID"
// @Param order body ReorderRequest true "New order"
// @Success 204
// @Failure 400 {object} utils.ErrorResponseStruct
// @Router /admin/api/pages/{id}/images/order [put]
func (h *AdminHandler) ReorderImages(c *fiber.Ctx) error {
	return h.reorder(c, h.Service.ReorderImages, "reorderImages")
}

// ReorderDocuments handles PUT /admin/api/pages/:id/documents/order
// @Summary Reorder the documents of an event
// @Description ids must list every attached document exactly once
// @Tags Events
// @Accept json
// @Produce json
// @Security CookieAuth
// @Param id path int true "Event page ID"
// @Param order body ReorderRequest true "New order"
// @Success 204
// @Failure 400 {object} utils.ErrorResponseStruct
// @Router /admin/api/pages/{id}/documents/order [put]
func (h *AdminHandler) ReorderDocuments(c *fiber.Ctx) error {
	return h.reorder(c, h.Service.ReorderDocuments, "reorderDocuments")
}

func (h *AdminHandler) reorder(c *fiber.Ctx, apply func(ctx context.Context, pageID uint, ids []uint) error, op string) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req ReorderRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, err)
	}
	if err := apply(c.UserContext(), id, types.IDs(req.IDs)); err != nil {
		return handleError(c, err, op)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// SetViewRestriction handles PUT /admin/api/pages/:id/restriction
// @Summary Set the view restriction of a page
// @Description restriction_type is none, login or groups. The restriction covers the page and its descendants.
// @Tags Access
// @Accept json
// @Produce json
// @Security CookieAuth
// @Param id path int true "Page ID"
// @Param restriction body services.RestrictionInput true "Restriction"
// @Success 200 {object} models.PageViewRestriction
// @Success 204 "Restriction removed"
// @Failure 400 {object} utils.ValidationErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /admin/api/pages/{id}/restriction [put]
func (h *AdminHandler) SetViewRestriction(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var in services.RestrictionInput
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, err)
	}
	restriction, err := h.Service.SetViewRestriction(c.UserContext(), id, in)
	if err != nil {
		return handleError(c, err, "setViewRestriction")
	}
	if restriction == nil {
		return c.SendStatus(fiber.StatusNoContent)
	}
	return c.JSON(restriction)
}

// GrantPermission handles POST /admin/api/pages/:id/permissions
// @Summary Grant a group a permission on a page
// @Description permission is add, change or publish. It covers the page and its descendants.
// @Tags Access
// @Accept json
// @Produce json
// @Security CookieAuth
// @Param id path int true "Page ID"
// @Param permission body PermissionRequest true "Permission"
// @Success 201 {object} models.GroupPagePermission
// @Failure 400 {object} utils.ValidationErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /admin/api/pages/{id}/permissions [post]
func (h *AdminHandler) GrantPermission(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req PermissionRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, err)
	}
	perm, err := services.GrantPagePermission(h.Service.DB.WithContext(c.UserContext()), id, req.Group, req.Permission)
	if err != nil {
		return handleError(c, err, "grantPermission")
	}
	return utils.SuccessResponse(c, perm, fiber.StatusCreated)
}
