package main

import (
	"database/sql"
	"flag"
	"log"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"ms-tableside/internal/config"
	"ms-tableside/internal/database/migrations"
)

func main() {
	direction := flag.String("direction", "up", "migration direction: up or down")
	dir := flag.String("dir", "./migrations", "directory containing migration files")
	seed := flag.Bool("seed", false, "also run menu seed migrations")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()

	sqldb, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		log.Fatalf("Failed to open PostgreSQL: %v", err)
	}
	defer sqldb.Close()

	if err := sqldb.Ping(); err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}

	bunDB := bun.NewDB(sqldb, pgdialect.New())

	opts := migrations.MigrateOptions{
		MigrationsDir: *dir,
		SeedMenu:      *seed,
	}
	runner := migrations.NewRunner(bunDB, opts)
	defer runner.Close()

	switch *direction {
	case "up":
		if *seed {
			err = runner.MigrateUp()
		} else {
			err = runner.RunMigrations()
		}
	case "down":
		err = runner.MigrateDown()
	default:
		log.Fatalf("Unknown direction %q, expected up or down", *direction)
	}
	if err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	log.Println("Migration complete")
}
