package migrations

import (
	"embed"
	"errors"
	"fmt"
	"log"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// The embedded files are the source of truth for the licensing schema.
// cmd/server falls back to GORM AutoMigrate when they cannot be applied
// (e.g. a database user without DDL rights on the migrations table).
//
//go:embed sql/*.sql
var schemaFiles embed.FS

// Run applies all pending up migrations against the given database URL
func Run(dbURL string) error {
	m, err := newMigrator(dbURL)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Println("📦 Schema is up to date")
			return nil
		}
		return fmt.Errorf("migration failed: %w", err)
	}

	version, dirty, _ := m.Version()
	log.Printf("✅ Schema migrated (version: %d, dirty: %v)", version, dirty)
	return nil
}

// Rollback reverts the most recent migration
func Rollback(dbURL string) error {
	m, err := newMigrator(dbURL)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Steps(-1); err != nil {
		return fmt.Errorf("rollback failed: %w", err)
	}

	log.Println("✅ Rolled back the last migration")
	return nil
}

func newMigrator(dbURL string) (*migrate.Migrate, error) {
	source, err := iofs.New(schemaFiles, "sql")
	if err != nil {
		return nil, fmt.Errorf("failed to read migration files: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrator: %w", err)
	}
	return m, nil
}
