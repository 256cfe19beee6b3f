package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/eventsdb/internal/services"
)

// HealthHandler reports the state of the service dependencies
type HealthHandler struct {
	Service *services.Service
}

// Health handles GET /health
// @Summary Health check
// @Description Checks the database, the authorizer, the cache and the search index
// @Tags Health
// @Produce json
// @Success 200 {object} services.HealthCheckResult
// @Failure 503 {object} services.HealthCheckResult
// @Router /health [get]
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	s := h.Service
	result := services.HealthCheck(c.UserContext(), s.Config, s.DB, s.Cache, s.Index)
	status := fiber.StatusOK
	if result.Status != "healthy" {
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(result)
}
