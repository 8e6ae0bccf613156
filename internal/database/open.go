package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// PoolConfig bounds the connection pool.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Open builds the connection pool for r. No connection is made until the pool
// is first used.
func Open(r *Resolved, pool PoolConfig) (*sqlx.DB, error) {
	db, err := sqlx.Open(r.DriverName, r.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s pool: %w", r.Dialect, err)
	}

	if pool.MaxOpenConns > 0 {
		db.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns >= 0 {
		db.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(pool.ConnMaxLifetime)
	}

	return db, nil
}

// Ping verifies the pool can reach the database.
func Ping(ctx context.Context, db *sqlx.DB) error {
	if db == nil {
		return fmt.Errorf("not connected to database")
	}
	return db.PingContext(ctx)
}
