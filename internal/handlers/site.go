package handlers

import (
	"mime"
	"path"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/eventsdb/internal/access"
	"github.com/localnerve/eventsdb/internal/middleware"
	"github.com/localnerve/eventsdb/internal/models"
	"github.com/localnerve/eventsdb/internal/services"
	"github.com/localnerve/eventsdb/internal/types"
	"github.com/localnerve/eventsdb/internal/utils"
)

// SiteHandler serves the public page tree and document downloads
type SiteHandler struct {
	Service *services.Service
	Policy  access.Policy
}

// ServePage handles GET /* for live pages
// @Summary Render a page
// @Description Returns the context of the live page at the path. Event index pages are paginated with ?page=N. Event pages may be restricted by the access model.
// @Tags Site
// @Produce json
// @Param path path string true "Page URL path"
// @Param page query string false "Page number of an event index"
// @Success 200 {object} services.EventContext
// @Success 302 "Redirect to the login page"
// @Failure 403 {string} string "Access restricted to staff members."
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /{path} [get]
func (h *SiteHandler) ServePage(c *fiber.Ctx) error {
	ctx := c.UserContext()
	db := h.Service.DB.WithContext(ctx)

	page, err := services.FindLivePage(db, c.Path())
	if err != nil {
		return handleError(c, err, "servePage")
	}

	principal := middleware.Principal(c)
	req := access.Request{Principal: principal, Page: page, Path: c.OriginalURL()}
	if req.Restrictions, err = services.RestrictionsFor(db, page); err != nil {
		return handleError(c, err, "servePage")
	}

	decision := h.Policy.Decide(req)
	if !decision.Allowed {
		switch decision.Status {
		case fiber.StatusFound:
			return c.Redirect(decision.Location, fiber.StatusFound)
		case fiber.StatusForbidden:
			return c.Status(fiber.StatusForbidden).SendString(decision.Message)
		}
		return utils.ErrorResponse(c, decision.Message, decision.Status, types.ErrorTypeForbidden)
	}

	switch page.ContentType {
	case models.PageTypeEventIndex:
		result, err := h.Service.EventIndex(ctx, page, c.Query("page"))
		if err != nil {
			return handleError(c, err, "serveEventIndex")
		}
		return c.JSON(result)
	case models.PageTypeEvent:
		result, err := h.Service.Event(ctx, page, principal)
		if err != nil {
			return handleError(c, err, "serveEvent")
		}
		return c.JSON(result)
	}

	children, err := services.Children(db, page)
	if err != nil {
		return handleError(c, err, "servePage")
	}
	return c.JSON(fiber.Map{"page": page, "children": children})
}

// ServeDocument handles GET /documents/:id/:filename
// @Summary Download a document
// @Description Streams the stored file of a document. The file name must match the stored one.
// @Tags Site
// @Produce octet-stream
// @Param id path int true "Document ID"
// @Param filename path string true "Stored file name"
// @Success 200 {file} file
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /documents/{id}/{filename} [get]
func (h *SiteHandler) ServeDocument(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	doc, f, err := h.Service.OpenDocumentFile(id, c.Params("filename"))
	if err != nil {
		return handleError(c, err, "serveDocument")
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return handleError(c, err, "serveDocument")
	}

	contentType := mime.TypeByExtension(path.Ext(doc.File))
	if contentType == "" {
		contentType = fiber.MIMEOctetStream
	}
	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderContentDisposition, "attachment; filename="+strconv.Quote(doc.Filename()))
	return c.SendStream(f, int(info.Size()))
}
