package services

import (
	"context"
	"fmt"

	"github.com/localnerve/eventsdb/internal/cache"
	"github.com/localnerve/eventsdb/internal/config"
	"github.com/localnerve/eventsdb/internal/search"
	"github.com/localnerve/eventsdb/internal/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// HealthCheckResult represents the result of a health check
type HealthCheckResult struct {
	Status       string            `json:"status"`
	Database     string            `json:"database"`
	Authorizer   string            `json:"authorizer"`
	Cache        string            `json:"cache"`
	Search       string            `json:"search"`
	Details      map[string]string `json:"details,omitempty"`
	ErrorMessage string            `json:"error,omitempty"`
}

func (r *HealthCheckResult) fail(component, message string, err error) {
	r.Status = "unhealthy"
	r.Details[component+"_error"] = err.Error()
	msg := fmt.Sprintf("%s: %v", message, err)
	if r.ErrorMessage == "" {
		r.ErrorMessage = msg
	} else {
		r.ErrorMessage += "; " + msg
	}
	logrus.WithError(err).Warnf("health check failed - %s", component)
}

// HealthCheck checks the database, the authorizer when configured, the
// cache and the search index
func HealthCheck(ctx context.Context, cfg *config.Config, db *gorm.DB, c cache.Cache, index *search.Index) HealthCheckResult {
	result := HealthCheckResult{
		Status:  "healthy",
		Details: make(map[string]string),
	}

	sqlDB, err := db.DB()
	if err != nil {
		result.Database = "error"
		result.fail("database", "Database connection error", err)
	} else if err := sqlDB.PingContext(ctx); err != nil {
		result.Database = "unreachable"
		result.fail("database", "Database ping failed", err)
	} else {
		result.Database = "ok"
		result.Details["database_type"] = cfg.DBType
		result.Details["database_name"] = cfg.DBDatabase
	}

	if cfg.AuthzURL == "" {
		result.Authorizer = "disabled"
	} else if err := utils.PingAuthorizer(cfg.AuthzURL); err != nil {
		result.Authorizer = "unreachable"
		result.fail("authorizer", "Authorizer ping failed", err)
	} else {
		result.Authorizer = "ok"
		result.Details["authorizer_url"] = cfg.AuthzURL
	}

	if c == nil {
		result.Cache = "disabled"
	} else if err := c.Ping(ctx); err != nil {
		result.Cache = "unreachable"
		result.fail("cache", "Cache ping failed", err)
	} else {
		result.Cache = "ok"
	}

	if index == nil {
		result.Search = "disabled"
	} else if count, err := index.Count(); err != nil {
		result.Search = "error"
		result.fail("search", "Search index error", err)
	} else {
		result.Search = "ok"
		result.Details["search_documents"] = fmt.Sprintf("%d", count)
	}

	return result
}
