package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
)

// Direction selects which way migrations run.
type Direction int

const (
	Up Direction = iota
	Down
)

// Migrate applies the embedded schema of r to db. Already-applied migrations
// are not an error.
func Migrate(ctx context.Context, db *sqlx.DB, r *Resolved, dir Direction) error {
	if err := Ping(ctx, db); err != nil {
		return fmt.Errorf("failed to reach %s database: %w", r.Dialect, err)
	}

	files, err := r.Schema.Files()
	if err != nil {
		return fmt.Errorf("failed to load %s migrations: %w", r.Dialect, err)
	}

	src, err := iofs.New(files, ".")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}
	defer src.Close()

	driver, err := migrationDriver(db, r.Dialect)
	if err != nil {
		return fmt.Errorf("failed to create %s migration driver: %w", r.Dialect, err)
	}

	// The migrate instance is not closed: closing it would close the shared pool.
	m, err := migrate.NewWithInstance("iofs", src, string(r.Dialect), driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	switch dir {
	case Down:
		err = m.Steps(-1)
	default:
		err = m.Up()
	}

	if err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return nil
		}
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

func migrationDriver(db *sqlx.DB, d Dialect) (migratedb.Driver, error) {
	switch d {
	case PostgreSQL:
		return postgres.WithInstance(db.DB, &postgres.Config{})
	case MySQL:
		return migratemysql.WithInstance(db.DB, &migratemysql.Config{})
	case SQLite:
		return sqlite3.WithInstance(db.DB, &sqlite3.Config{})
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidDialect, string(d))
	}
}
