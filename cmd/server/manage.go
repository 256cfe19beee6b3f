package main

import (
	"context"

	"github.com/localnerve/eventsdb/data"
	"github.com/localnerve/eventsdb/internal/database"
	"github.com/localnerve/eventsdb/internal/search"
	"github.com/localnerve/eventsdb/internal/services"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Migrate the database and create the tree roots",
		Run: func(cmd *cobra.Command, args []string) {
			_, db := bootstrap()
			defer database.Close(db)
			logrus.Info("database migrated")
		},
	}
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create the default document categories",
		Run: func(cmd *cobra.Command, args []string) {
			_, db := bootstrap()
			defer database.Close(db)

			names, err := data.SeedCategories()
			if err != nil {
				logrus.Fatalf("Failed to read seed categories: %v", err)
			}
			created, err := services.SeedCategories(db, names)
			if err != nil {
				logrus.Fatalf("Failed to seed categories: %v", err)
			}
			logrus.WithField("created", created).Info("categories seeded")
		},
	}
}

func reindexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the document search index",
		Run: func(cmd *cobra.Command, args []string) {
			cfg, db := bootstrap()
			defer database.Close(db)

			index, err := search.Open(cfg.SearchIndexPath)
			if err != nil {
				logrus.Fatalf("Failed to open search index: %v", err)
			}
			defer index.Close()

			svc := services.New(db, cfg, nil, index, nil)
			count, err := svc.Reindex(context.Background())
			if err != nil {
				logrus.Fatalf("Failed to rebuild search index: %v", err)
			}
			logrus.WithField("documents", count).Info("search index rebuilt")
		},
	}
}
