// Package db opens the database pool and applies the embedded migrations.
package db

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"focus-tasks-backend/migrations"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// sqlite pragmas applied to every connection unless the DSN already sets them.
var sqliteParams = []string{
	"_pragma=foreign_keys(1)",
	"_pragma=busy_timeout(5000)",
	"_time_format=sqlite",
}

// Connect opens the pool, pings it and applies pending migrations.
func Connect(driver, dsn string, maxOpenConns int, logger *zap.Logger) (*sqlx.DB, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if driver == DriverSQLite {
		dsn = sqliteDSN(dsn)
	}

	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	switch {
	case driver == DriverSQLite:
		// a single writer avoids SQLITE_BUSY under concurrent requests
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	case maxOpenConns > 0:
		db.SetMaxOpenConns(maxOpenConns)
	}
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := Migrate(db.DB, driver, logger); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logger.Error("closing database after migration failure", zap.Error(closeErr))
		}
		return nil, err
	}

	logger.Info("database connected", zap.String("driver", driver))
	return db, nil
}

// Close closes the pool and logs any error.
func Close(db *sqlx.DB, logger *zap.Logger) {
	if db == nil {
		return
	}
	if err := db.Close(); err != nil && logger != nil {
		logger.Error("closing database", zap.Error(err))
	}
}

// Migrate applies every pending migration for driver.
func Migrate(db *sql.DB, driver string, logger *zap.Logger) error {
	if db == nil {
		return errors.New("database connection is nil, cannot apply migrations")
	}

	sub, err := fs.Sub(migrations.FS, driver)
	if err != nil {
		return fmt.Errorf("no migrations for driver %q: %w", driver, err)
	}
	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	var target database.Driver
	switch driver {
	case DriverSQLite:
		target, err = sqlite.WithInstance(db, &sqlite.Config{})
	case DriverPostgres:
		target, err = postgres.WithInstance(db, &postgres.Config{})
	default:
		return fmt.Errorf("unsupported database driver %q", driver)
	}
	if err != nil {
		return fmt.Errorf("failed to create %s migration driver: %w", driver, err)
	}

	m, err := migrate.NewWithInstance("iofs", source, driver, target)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Debug("no database migrations to apply")
			return nil
		}
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	logger.Info("database migrations applied")
	return nil
}

func sqliteDSN(dsn string) string {
	var missing []string
	for _, p := range sqliteParams {
		key := p[:strings.IndexByte(p, '=')]
		if key == "_pragma" {
			if strings.Contains(dsn, p) {
				continue
			}
		} else if strings.Contains(dsn, key+"=") {
			continue
		}
		missing = append(missing, p)
	}
	if len(missing) == 0 {
		return dsn
	}

	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(missing, "&")
}
