// Command migrate manages the risk engine's database schema.
//
// Usage:
//
//	go run ./cmd/migrate up          # Apply all pending migrations
//	go run ./cmd/migrate down        # Roll back the last migration
//	go run ./cmd/migrate version     # Show current schema version
//	go run ./cmd/migrate force <v>   # Mark version v as clean after a failed run
package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	"github.com/richxcame/trust-risk/migrations"
	"github.com/richxcame/trust-risk/pkg/config"
	"github.com/richxcame/trust-risk/pkg/database"
	"github.com/richxcame/trust-risk/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: migrate <command>")
		fmt.Println("Commands: up, down, version, force <version>")
		os.Exit(1)
	}

	cfg, err := config.Load("risk-migrate")
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}
	if err := logger.Init(cfg.Server.Environment); err != nil {
		logger.Fatal("failed to initialize logger", zap.Error(err))
	}
	defer logger.Sync()

	db, err := database.NewSQLDB(&cfg.Database)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}

	m, err := database.NewMigrator(db, migrations.FS)
	if err != nil {
		db.Close()
		logger.Fatal("failed to create migrator", zap.Error(err))
	}
	defer m.Close()

	if err := run(m, os.Args[1], os.Args[2:]); err != nil {
		logger.Fatal("migration failed", zap.String("command", os.Args[1]), zap.Error(err))
	}
}

func run(m *migrate.Migrate, command string, args []string) error {
	switch command {
	case "up":
		return database.Up(m)
	case "down":
		if err := m.Steps(-1); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return err
		}
		return nil
	case "version":
		version, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			fmt.Println("no migrations applied")
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Printf("version %d (dirty: %t)\n", version, dirty)
		return nil
	case "force":
		if len(args) != 1 {
			return fmt.Errorf("force requires a version")
		}
		v, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", args[0], err)
		}
		return m.Force(v)
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}
