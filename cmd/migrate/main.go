// Applies database migrations from the migrations/ directory.
//
// Usage:
//
//	migrate -dir migrations up
//	migrate -dir migrations down 1
package main

import (
	"database/sql"
	"errors"
	"flag"
	"log"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
)

func main() {
	dir := flag.String("dir", "migrations", "Directory containing migration files")
	flag.Parse()

	if flag.NArg() < 1 {
		log.Fatal("Usage: migrate [-dir migrations] up|down [steps]")
	}
	command := flag.Arg(0)

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		log.Fatalf("Failed to create migrate driver: %v", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+*dir, "postgres", driver)
	if err != nil {
		log.Fatalf("Failed to create migrator: %v", err)
	}

	switch command {
	case "up":
		err = m.Up()
	case "down":
		steps := 1
		if flag.NArg() > 1 {
			steps, err = strconv.Atoi(flag.Arg(1))
			if err != nil {
				log.Fatalf("Invalid step count %q: %v", flag.Arg(1), err)
			}
		}
		err = m.Steps(-steps)
	default:
		log.Fatalf("Unknown command %q (want up or down)", command)
	}

	if errors.Is(err, migrate.ErrNoChange) {
		log.Println("No pending migrations")
		return
	}
	if err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		log.Fatalf("Failed to read version: %v", err)
	}
	log.Printf("Migrated to version %d (dirty: %v)", version, dirty)
}
