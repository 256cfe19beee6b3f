package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/eventsdb/internal/access"
	"github.com/localnerve/eventsdb/internal/middleware"
	"github.com/localnerve/eventsdb/internal/services"
)

// Register mounts the health check, the admin API, document downloads and
// the page catch-all on app. The caller mounts anything that must take
// precedence over the catch-all first.
func Register(app fiber.Router, svc *services.Service, policy access.Policy, validator services.SessionValidator) {
	health := &HealthHandler{Service: svc}
	site := &SiteHandler{Service: svc, Policy: policy}
	admin := &AdminHandler{Service: svc}

	app.Get("/health", health.Health)

	app.Use(middleware.Authenticate(validator))

	staff := middleware.RequireStaff()
	app.Get("/admin/pages/:id/edit", staff, admin.EditPage)

	api := app.Group("/admin/api", staff)
	api.Get("/collections", admin.ListCollections)
	api.Post("/collections", admin.CreateCollection)

	api.Get("/categories", admin.ListCategories)
	api.Post("/categories", admin.CreateCategory)
	api.Put("/categories/:id", admin.RenameCategory)
	api.Delete("/categories/:id", admin.DeleteCategory)

	api.Get("/documents", admin.ListDocuments)
	api.Post("/documents", admin.CreateDocument)
	api.Post("/documents/multiple", admin.AddDocuments)
	api.Get("/documents/:id", admin.GetDocument)
	api.Put("/documents/:id", admin.UpdateDocument)
	api.Delete("/documents/:id", admin.DeleteDocument)

	api.Get("/images", admin.ListImages)
	api.Post("/images", admin.UploadImage)
	api.Delete("/images/:id", admin.DeleteImage)

	api.Get("/pages/:id", admin.GetPage)
	api.Put("/pages/:id", admin.UpdatePage)
	api.Delete("/pages/:id", admin.DeletePage)
	api.Post("/pages/:id/children", admin.CreatePage)
	api.Post("/pages/:id/publish", admin.PublishPage)
	api.Post("/pages/:id/unpublish", admin.UnpublishPage)
	api.Post("/pages/:id/images", admin.AttachImages)
	api.Put("/pages/:id/images/order", admin.ReorderImages)
	api.Delete("/pages/:id/images/:attachment", admin.DetachImage)
	api.Post("/pages/:id/documents", admin.AttachDocuments)
	api.Put("/pages/:id/documents/order", admin.ReorderDocuments)
	api.Delete("/pages/:id/documents/:attachment", admin.DetachDocument)
	api.Put("/pages/:id/restriction", admin.SetViewRestriction)
	api.Post("/pages/:id/permissions", admin.GrantPermission)

	app.Get("/documents/:id/:filename", site.ServeDocument)
	app.Get("/*", site.ServePage)
}
