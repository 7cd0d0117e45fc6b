package main

import (
	"context"
	"log"
	"os"

	"github.com/hetulpatel/bqusers/internal/storage/sqlite"
	"github.com/hetulpatel/bqusers/internal/warehouse"
)

func main() {
	target := warehouse.DefaultTarget()
	store, err := sqlite.Open(os.Getenv("SQLITE_PATH"), target.Dataset)
	if err != nil {
		log.Fatalf("open sqlite: %v", err)
	}
	defer store.Close()

	if err := store.DropTables(context.Background(), target.Table); err != nil {
		log.Fatalf("drop tables: %v", err)
	}
	log.Printf("SQLite table %s dropped at %s", target.FullName(), store.Path())
}
