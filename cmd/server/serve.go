package main

import (
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	swagger "github.com/gofiber/swagger"
	"github.com/google/uuid"
	"github.com/localnerve/eventsdb/internal/access"
	"github.com/localnerve/eventsdb/internal/cache"
	"github.com/localnerve/eventsdb/internal/config"
	"github.com/localnerve/eventsdb/internal/database"
	"github.com/localnerve/eventsdb/internal/handlers"
	"github.com/localnerve/eventsdb/internal/middleware"
	"github.com/localnerve/eventsdb/internal/search"
	"github.com/localnerve/eventsdb/internal/services"
	"github.com/localnerve/eventsdb/internal/storage"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Run: func(cmd *cobra.Command, args []string) {
			serve()
		},
	}
}

// publicHost guesses the host the authorizer redirects back to
func publicHost(cfg *config.Config) (protocol, host string) {
	protocol = "http"
	if cfg.IsProduction() {
		protocol = "https"
	}
	for _, h := range cfg.AllowedHosts {
		if h != "*" && !strings.HasPrefix(h, ".") {
			return protocol, h
		}
	}
	return protocol, "localhost:" + cfg.Port
}

func serve() {
	cfg, db := bootstrap()
	defer database.Close(db)

	store, err := storage.NewLocalStorage(cfg.MediaRoot, cfg.MediaURL)
	if err != nil {
		logrus.Fatalf("Failed to prepare media storage: %v", err)
	}

	index, err := search.Open(cfg.SearchIndexPath)
	if err != nil {
		logrus.Fatalf("Failed to open search index: %v", err)
	}
	defer index.Close()

	pageCache, err := cache.New(cfg.RedisURL, time.Duration(cfg.CacheTTLSeconds)*time.Second)
	if err != nil {
		logrus.Fatalf("Failed to connect to cache: %v", err)
	}
	defer pageCache.Close()

	policy, err := access.NewPolicy(cfg.AccessModel, cfg.LoginURL)
	if err != nil {
		logrus.Fatalf("Invalid access model: %v", err)
	}

	var validator services.SessionValidator
	if cfg.AuthzURL != "" {
		protocol, host := publicHost(cfg)
		validator = &services.AuthorizerValidator{Config: cfg, Protocol: protocol, Host: host}
		logrus.Info("Authorizer will be initialized on first authenticated request")
	} else {
		logrus.Warn("AUTHZ_URL is not set, every request is anonymous")
	}

	svc := services.New(db, cfg, store, index, pageCache)

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler,
		BodyLimit:    64 * 1024 * 1024,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(logger.New(logger.Config{
		Format: "${time} ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(compress.New())
	app.Use(middleware.AllowedHosts(cfg.AllowedHosts))

	// Prometheus metrics
	prometheus := fiberprometheus.New("eventsdb")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	app.Static(cfg.MediaURL, cfg.MediaRoot)

	handlers.Register(app, svc, policy, validator)

	// Graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		logrus.Info("Gracefully shutting down...")
		_ = app.Shutdown()
	}()

	logrus.WithFields(logrus.Fields{
		"port":   cfg.Port,
		"env":    cfg.Env,
		"access": cfg.AccessModel,
	}).Info("starting server")
	if err := app.Listen(":" + cfg.Port); err != nil {
		logrus.Fatalf("Failed to start server: %v", err)
	}

	logrus.Info("Server stopped")
}
