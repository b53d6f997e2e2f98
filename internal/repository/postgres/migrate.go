package postgres

import (
	"embed"
	"errors"
	"log"

	"edrs-docstore/internal/config"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate applies the embedded schema migrations.
func Migrate(cfg *config.DatabaseConfig) error {
	source, err := iofs.New(migrationsFS, migrationsDir)
	if err != nil {
		return errFailedOpenMigrations(err)
	}

	m, err := migrate.NewWithSourceInstance(migrationsSourceName, source, cfg.MigrationURL())
	if err != nil {
		return errFailedInitMigrations(err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return errFailedApplyMigrations(err)
	}

	version, dirty, _ := m.Version()
	log.Printf("database schema at version %d (dirty=%t)", version, dirty)
	return nil
}
