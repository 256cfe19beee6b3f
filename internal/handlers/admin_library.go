package handlers

import (
	"mime/multipart"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/eventsdb/internal/forms"
	"github.com/localnerve/eventsdb/internal/services"
	"github.com/localnerve/eventsdb/internal/utils"
)

// AdminHandler serves the staff administration API
type AdminHandler struct {
	Service *services.Service
}

// CollectionRequest creates a child collection
type CollectionRequest struct {
	ParentID uint   `json:"parent_id"`
	Name     string `json:"name"`
}

// CategoryRequest names a category
type CategoryRequest struct {
	Name string `json:"name"`
}

// ListCollections handles GET /admin/api/collections
// @Summary List collections
// @Tags Collections
// @Produce json
// @Security CookieAuth
// @Success 200 {array} models.Collection
// @Failure 403 {object} utils.ErrorResponseStruct
// @Router /admin/api/collections [get]
func (h *AdminHandler) ListCollections(c *fiber.Ctx) error {
	collections, err := services.ListCollections(h.Service.DB.WithContext(c.UserContext()))
	if err != nil {
		return handleError(c, err, "listCollections")
	}
	return c.JSON(collections)
}

// CreateCollection handles POST /admin/api/collections
// @Summary Create a collection
// @Description Adds a collection as the last child of parent_id, the root collection when omitted
// @Tags Collections
// @Accept json
// @Produce json
// @Security CookieAuth
// @Param collection body CollectionRequest true "Collection"
// @Success 201 {object} models.Collection
// @Failure 400 {object} utils.ValidationErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /admin/api/collections [post]
func (h *AdminHandler) CreateCollection(c *fiber.Ctx) error {
	var req CollectionRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, err)
	}
	db := h.Service.DB.WithContext(c.UserContext())
	if req.ParentID == 0 {
		root, err := services.RootCollection(db)
		if err != nil {
			return handleError(c, err, "createCollection")
		}
		req.ParentID = root.ID
	}
	collection, err := services.AddChildCollection(db, req.ParentID, req.Name)
	if err != nil {
		return handleError(c, err, "createCollection")
	}
	return utils.SuccessResponse(c, collection, fiber.StatusCreated)
}

// ListCategories handles GET /admin/api/categories
// @Summary List document categories
// @Tags Categories
// @Produce json
// @Security CookieAuth
// @Success 200 {array} models.DocumentCategory
// @Router /admin/api/categories [get]
func (h *AdminHandler) ListCategories(c *fiber.Ctx) error {
	categories, err := services.ListCategories(h.Service.DB.WithContext(c.UserContext()))
	if err != nil {
		return handleError(c, err, "listCategories")
	}
	return c.JSON(categories)
}

// CreateCategory handles POST /admin/api/categories
// @Summary Create a document category
// @Tags Categories
// @Accept json
// @Produce json
// @Security CookieAuth
// @Param category body CategoryRequest true "Category"
// @Success 201 {object} models.DocumentCategory
// @Failure 400 {object} utils.ValidationErrorResponseStruct
// @Router /admin/api/categories [post]
func (h *AdminHandler) CreateCategory(c *fiber.Ctx) error {
	var req CategoryRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, err)
	}
	category, err := services.CreateCategory(h.Service.DB.WithContext(c.UserContext()), req.Name)
	if err != nil {
		return handleError(c, err, "createCategory")
	}
	return utils.SuccessResponse(c, category, fiber.StatusCreated)
}

// RenameCategory handles PUT /admin/api/categories/:id
// @Summary Rename a document category
// @Tags Categories
// @Accept json
// @Produce json
// @Security CookieAuth
// @Param id path int true "Category ID"
// @Param category body CategoryRequest true "Category"
// @Success 200 {object} models.DocumentCategory
// @Failure 400 {object} utils.ValidationErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /admin/api/categories/{id} [put]
func (h *AdminHandler) RenameCategory(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req CategoryRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, err)
	}
	category, err := h.Service.RenameCategory(c.UserContext(), id, req.Name)
	if err != nil {
		return handleError(c, err, "renameCategory")
	}
	return c.JSON(category)
}

// DeleteCategory handles DELETE /admin/api/categories/:id
// @Summary Delete a document category
// @Description Refused with 409 while documents use the category, unless CATEGORY_ON_DELETE=set_null
// @Tags Categories
// @Produce json
// @Security CookieAuth
// @Param id path int true "Category ID"
// @Success 200 {object} utils.DeletedResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Router /admin/api/categories/{id} [delete]
func (h *AdminHandler) DeleteCategory(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.Service.DeleteCategory(c.UserContext(), id); err != nil {
		return handleError(c, err, "deleteCategory")
	}
	return utils.DeletedResponse(c, 1)
}

// ListDocuments handles GET /admin/api/documents
// @Summary List documents
// @Description Newest first, or by relevance when q is given
// @Tags Documents
// @Produce json
// @Security CookieAuth
// @Param q query string false "Full text search"
// @Param category_id query int false "Category filter"
// @Param collection_id query int false "Collection filter"
// @Param page query string false "Page number"
// @Success 200 {object} services.DocumentList
// @Router /admin/api/documents [get]
func (h *AdminHandler) ListDocuments(c *fiber.Ctx) error {
	list, err := h.Service.ListDocuments(c.UserContext(), services.DocumentQuery{
		Q:            c.Query("q"),
		CategoryID:   queryID(c, "category_id"),
		CollectionID: queryID(c, "collection_id"),
		Page:         c.Query("page"),
		PerPage:      c.QueryInt("per_page", services.DefaultDocumentsPerPage),
	})
	if err != nil {
		return handleError(c, err, "listDocuments")
	}
	return c.JSON(list)
}

// GetDocument handles GET /admin/api/documents/:id
// @Summary Get a document
// @Tags Documents
// @Produce json
// @Security CookieAuth
// @Param id path int true "Document ID"
// @Success 200 {object} models.Document
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /admin/api/documents/{id} [get]
func (h *AdminHandler) GetDocument(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	doc, err := services.GetDocument(h.Service.DB.WithContext(c.UserContext()), id)
	if err != nil {
		return handleError(c, err, "getDocument")
	}
	return c.JSON(fiber.Map{"document": doc, "url": services.DocumentURL(doc)})
}

// openUpload opens the multipart file of field, nil when absent
func openUpload(c *fiber.Ctx, field string) (*services.Upload, func(), error) {
	header, err := c.FormFile(field)
	if err != nil {
		return nil, func() {}, nil
	}
	return openHeader(header)
}

func openHeader(header *multipart.FileHeader) (*services.Upload, func(), error) {
	f, err := header.Open()
	if err != nil {
		return nil, func() {}, err
	}
	return &services.Upload{Filename: header.Filename, Reader: f}, func() { f.Close() }, nil
}

// documentInput reads the document form fields of a multipart or JSON body
func documentInput(c *fiber.Ctx) (forms.DocumentInput, error) {
	var in forms.DocumentInput
	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		form, err := c.MultipartForm()
		if err != nil {
			return in, err
		}
		value := func(name string) *string {
			if v, ok := form.Value[name]; ok && len(v) > 0 {
				return &v[0]
			}
			return nil
		}
		in.Title = value(forms.FieldTitle)
		in.DocumentDate = value(forms.FieldDocumentDate)
		in.Notes = value(forms.FieldNotes)
		if v := value(forms.FieldCategory); v != nil {
			if *v == "" {
				in.ClearCategory = true
			} else if id, err := parseUint(*v); err == nil {
				in.CategoryID = &id
			} else {
				return in, err
			}
		}
		if v := value(forms.FieldCollection); v != nil && *v != "" {
			id, err := parseUint(*v)
			if err != nil {
				return in, err
			}
			in.CollectionID = &id
		}
		return in, nil
	}
	if len(c.Body()) == 0 {
		return in, nil
	}
	err := c.BodyParser(&in)
	return in, err
}

// CreateDocument handles POST /admin/api/documents
// @Summary Upload a document
// @Tags Documents
// @Accept multipart/form-data
// @Produce json
// @Security CookieAuth
// @Param file formData file true "Document file"
// @Param title formData string true "Title"
// @Param collection_id formData int false "Collection, Root when omitted"
// @Param category_id formData int false "Category"
// @Param document_date formData string false "Date (YYYY-MM-DD)"
// @Param notes formData string false "Notes"
// @Success 201 {object} models.Document
// @Failure 400 {object} utils.ValidationErrorResponseStruct
// @Router /admin/api/documents [post]
func (h *AdminHandler) CreateDocument(c *fiber.Ctx) error {
	in, err := documentInput(c)
	if err != nil {
		return badRequest(c, err)
	}
	upload, done, err := openUpload(c, forms.FieldFile)
	if err != nil {
		return handleError(c, err, "createDocument")
	}
	defer done()

	doc, err := h.Service.CreateDocument(c.UserContext(), in, upload)
	if err != nil {
		return handleError(c, err, "createDocument")
	}
	return utils.SuccessResponse(c, doc, fiber.StatusCreated)
}

// AddDocuments handles POST /admin/api/documents/multiple
// @Summary Upload several documents
// @Description Creates one document per file of the files field. The other fields apply to every file; titles default to the file names. Each file reports its own errors.
// @Tags Documents
// @Accept multipart/form-data
// @Produce json
// @Security CookieAuth
// @Param files formData file true "Document files"
// @Param collection_id formData int false "Collection"
// @Param category_id formData int false "Category"
// @Success 200 {array} services.MultiUploadResult
// @Failure 400 {object} utils.ErrorResponseStruct
// @Router /admin/api/documents/multiple [post]
func (h *AdminHandler) AddDocuments(c *fiber.Ctx) error {
	in, err := documentInput(c)
	if err != nil {
		return badRequest(c, err)
	}
	form, err := c.MultipartForm()
	if err != nil {
		return badRequest(c, err)
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		return utils.ValidationErrorResponse(c, forms.NewValidationError("files", "This field is required."))
	}

	uploads := make([]services.Upload, 0, len(headers))
	for _, header := range headers {
		upload, done, err := openHeader(header)
		if err != nil {
			return handleError(c, err, "addDocuments")
		}
		defer done()
		uploads = append(uploads, *upload)
	}

	results, err := h.Service.AddDocuments(c.UserContext(), in, uploads)
	if err != nil {
		return handleError(c, err, "addDocuments")
	}
	return c.JSON(results)
}

// UpdateDocument handles PUT /admin/api/documents/:id
// @Summary Edit a document
// @Description Updates the submitted fields. A file replaces the stored one.
// @Tags Documents
// @Accept multipart/form-data
// @Accept json
// @Produce json
// @Security CookieAuth
// @Param id path int true "Document ID"
// @Param file formData file false "Replacement file"
// @Success 200 {object} models.Document
// @Failure 400 {object} utils.ValidationErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /admin/api/documents/{id} [put]
func (h *AdminHandler) UpdateDocument(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	in, err := documentInput(c)
	if err != nil {
		return badRequest(c, err)
	}
	var upload *services.Upload
	done := func() {}
	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		if upload, done, err = openUpload(c, forms.FieldFile); err != nil {
			return handleError(c, err, "updateDocument")
		}
	}
	defer done()

	doc, err := h.Service.UpdateDocument(c.UserContext(), id, in, upload)
	if err != nil {
		return handleError(c, err, "updateDocument")
	}
	return c.JSON(doc)
}

// DeleteDocument handles DELETE /admin/api/documents/:id
// @Summary Delete a document
// @Tags Documents
// @Produce json
// @Security CookieAuth
// @Param id path int true "Document ID"
// @Success 200 {object} utils.DeletedResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /admin/api/documents/{id} [delete]
func (h *AdminHandler) DeleteDocument(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.Service.DeleteDocument(c.UserContext(), id); err != nil {
		return handleError(c, err, "deleteDocument")
	}
	return utils.DeletedResponse(c, 1)
}

// ListImages handles GET /admin/api/images
// @Summary List images
// @Tags Images
// @Produce json
// @Security CookieAuth
// @Param collection_id query int false "Collection filter"
// @Success 200 {array} models.Image
// @Router /admin/api/images [get]
func (h *AdminHandler) ListImages(c *fiber.Ctx) error {
	images, err := services.ListImages(h.Service.DB.WithContext(c.UserContext()), queryID(c, "collection_id"))
	if err != nil {
		return handleError(c, err, "listImages")
	}
	return c.JSON(images)
}

// UploadImage handles POST /admin/api/images
// @Summary Upload an image
// @Tags Images
// @Accept multipart/form-data
// @Produce json
// @Security CookieAuth
// @Param file formData file true "Image file"
// @Param title formData string false "Title, the file name when omitted"
// @Param collection_id formData int false "Collection"
// @Success 201 {object} models.Image
// @Failure 400 {object} utils.ValidationErrorResponseStruct
// @Router /admin/api/images [post]
func (h *AdminHandler) UploadImage(c *fiber.Ctx) error {
	in := services.ImageInput{Title: c.FormValue("title")}
	if raw := c.FormValue("collection_id"); raw != "" {
		id, err := parseUint(raw)
		if err != nil {
			return badRequest(c, err)
		}
		in.CollectionID = &id
	}
	upload, done, err := openUpload(c, forms.FieldFile)
	if err != nil {
		return handleError(c, err, "uploadImage")
	}
	defer done()

	img, err := h.Service.UploadImage(c.UserContext(), in, upload)
	if err != nil {
		return handleError(c, err, "uploadImage")
	}
	return utils.SuccessResponse(c, img, fiber.StatusCreated)
}

// DeleteImage handles DELETE /admin/api/images/:id
// @Summary Delete an image
// @Tags Images
// @Produce json
// @Security CookieAuth
// @Param id path int true "Image ID"
// @Success 200 {object} utils.DeletedResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /admin/api/images/{id} [delete]
func (h *AdminHandler) DeleteImage(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.Service.DeleteImage(c.UserContext(), id); err != nil {
		return handleError(c, err, "deleteImage")
	}
	return utils.DeletedResponse(c, 1)
}
