// Command migrate applies or rolls back the relational schema used by
// the worker process. Grounded on golang-migrate/v4, the same library
// the teacher pack uses for Postgres schema management.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"citywords/internal/config"
)

func main() {
	configPath := flag.String("conf", "config.yml", "path to config file")
	migrationsDir := flag.String("migrations-dir", "migrations", "path to migrations directory")
	steps := flag.Int("steps", 0, "for 'down': number of steps to roll back (default 1)")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: migrate [-conf config.yml] [-migrations-dir migrations] <up|down|version>")
		os.Exit(2)
	}

	conf := config.MustLoad(*configPath)

	m, err := migrate.New("file://"+*migrationsDir, conf.Postgres.DSN())
	if err != nil {
		log.Fatalf("migrate: create migrator: %v", err)
	}
	defer m.Close()

	switch flag.Arg(0) {
	case "up":
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatalf("migrate up: %v", err)
		}
		log.Println("migrate: up complete")

	case "down":
		n := *steps
		if n <= 0 {
			n = 1
		}
		if err := m.Steps(-n); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatalf("migrate down: %v", err)
		}
		log.Println("migrate: down complete")

	case "version":
		v, dirty, err := m.Version()
		if err != nil {
			log.Fatalf("migrate version: %v", err)
		}
		fmt.Printf("version: %d, dirty: %v\n", v, dirty)

	default:
		fmt.Fprintf(os.Stderr, "unknown subcommand %q\n", flag.Arg(0))
		os.Exit(2)
	}
}
