package database

import (
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"photoshelf/internal/config"
)

//go:embed migrations
var migrationsFS embed.FS

// Migrate applies all pending up migrations for the configured driver.
// Running it against an up-to-date schema is a no-op.
func Migrate(cfg config.DatabaseConfig) error {
	target, err := migrationURL(cfg)
	if err != nil {
		return err
	}

	src, err := iofs.New(migrationsFS, "migrations/"+cfg.Driver)
	if err != nil {
		return fmt.Errorf("load migration source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, target)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

func migrationURL(cfg config.DatabaseConfig) (string, error) {
	conn := cfg.ConnString()
	switch cfg.Driver {
	case config.DatabaseDriverPostgres:
		for _, scheme := range []string{"postgres://", "postgresql://"} {
			if strings.HasPrefix(conn, scheme) {
				return "pgx5://" + strings.TrimPrefix(conn, scheme), nil
			}
		}
		return "", fmt.Errorf("postgres dsn must be a postgres:// url")
	case config.DatabaseDriverSQLite:
		if conn == "" || strings.Contains(conn, ":memory:") {
			return "", fmt.Errorf("sqlite migrations need a file-backed database")
		}
		return "sqlite://" + strings.TrimPrefix(conn, "file:"), nil
	default:
		return "", fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}
}
