package main

import (
	"os"

	"github.com/localnerve/eventsdb/internal/config"
	"github.com/localnerve/eventsdb/internal/database"
	"github.com/localnerve/eventsdb/internal/logging"
	"github.com/localnerve/eventsdb/internal/services"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var rootCmd = &cobra.Command{
	Use:   "eventsdb",
	Short: "documents and events service",
	Example: `eventsdb serve
eventsdb migrate
eventsdb seed
eventsdb reindex`,
}

// Execute runs the command line
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd(), migrateCmd(), seedCmd(), reindexCmd())
	rootCmd.CompletionOptions.HiddenDefaultCmd = true
	cobra.EnableCommandSorting = false
}

// bootstrap loads the configuration, sets up logging and opens the
// migrated database holding the root page and collection
func bootstrap() (*config.Config, *gorm.DB) {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	logging.Setup(cfg)

	db, err := database.Connect(cfg)
	if err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		logrus.Fatalf("Failed to run migrations: %v", err)
	}
	if err := services.EnsureRoots(db); err != nil {
		logrus.Fatalf("Failed to create the tree roots: %v", err)
	}
	return cfg, db
}
