package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/localnerve/eventsdb/internal/database"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Prints the SQLite schema GORM migrates for every model
func main() {
	driver := flag.String("driver", database.SQLiteCGO, "sqlite driver, cgo or pure")
	flag.Parse()

	db, err := gorm.Open(database.SQLiteDialector(*driver, ":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		log.Fatal(err)
	}

	if err := database.AutoMigrate(db); err != nil {
		log.Fatal(err)
	}

	var tables []string
	db.Raw("SELECT name FROM sqlite_master WHERE type='table' ORDER BY name").Scan(&tables)

	for _, table := range tables {
		fmt.Printf("\n=== Table: %s ===\n", table)
		var schema string
		db.Raw("SELECT sql FROM sqlite_master WHERE name = ?", table).Scan(&schema)
		fmt.Println(schema)

		var indexes []string
		db.Raw("SELECT sql FROM sqlite_master WHERE type='index' AND tbl_name = ? AND sql IS NOT NULL", table).Scan(&indexes)
		for _, index := range indexes {
			fmt.Println(index)
		}
	}
}
