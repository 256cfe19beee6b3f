package services

import (
	"context"
	"time"

	"github.com/localnerve/eventsdb/internal/cache"
	"github.com/localnerve/eventsdb/internal/config"
	"github.com/localnerve/eventsdb/internal/search"
	"github.com/localnerve/eventsdb/internal/storage"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Service runs the operations that touch more than the database: stored
// files, the search index and the page cache.
type Service struct {
	DB      *gorm.DB
	Config  *config.Config
	Storage storage.Storage
	Index   *search.Index
	Cache   cache.Cache
}

// New builds a Service. index may be nil to disable search, c may be nil to
// disable caching.
func New(db *gorm.DB, cfg *config.Config, store storage.Storage, index *search.Index, c cache.Cache) *Service {
	if c == nil {
		c = cache.Nop{}
	}
	return &Service{DB: db, Config: cfg, Storage: store, Index: index, Cache: c}
}

func (s *Service) cacheTTL() time.Duration {
	return time.Duration(s.Config.CacheTTLSeconds) * time.Second
}

// invalidatePages drops every cached page context. Documents, images and
// categories can show on any event page so their changes clear them all.
func (s *Service) invalidatePages(ctx context.Context) {
	if err := s.Cache.DeletePrefix(ctx, cache.AllPagesPrefix); err != nil {
		logrus.WithError(err).Warn("page cache invalidation failed")
	}
}

// quiet returns a session that does not log queries
func quiet(db *gorm.DB) *gorm.DB {
	return db.Session(&gorm.Session{Logger: db.Logger.LogMode(logger.Silent)})
}
