package database

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/richxcame/trust-risk/pkg/config"
	"github.com/richxcame/trust-risk/pkg/logger"
	"go.uber.org/zap"
)

// NewMigrator builds a migrator over db using the SQL files in src.
func NewMigrator(db *sql.DB, src fs.FS) (*migrate.Migrate, error) {
	source, err := iofs.New(src, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrator: %w", err)
	}
	return m, nil
}

// MigrateUp opens a dedicated connection and applies every pending
// migration. An up-to-date schema is not an error.
func MigrateUp(cfg *config.DatabaseConfig, src fs.FS) error {
	db, err := NewSQLDB(cfg)
	if err != nil {
		return err
	}

	m, err := NewMigrator(db, src)
	if err != nil {
		db.Close()
		return err
	}
	// Closing the migrator also closes db.
	defer m.Close()

	return Up(m)
}

// Up applies pending migrations on m and logs the resulting version.
func Up(m *migrate.Migrate) error {
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	logger.Info("database schema up to date", zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}
