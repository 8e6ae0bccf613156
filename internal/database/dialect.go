package database

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// Dialect identifies one of the supported SQL backends.
type Dialect string

const (
	PostgreSQL Dialect = "postgresql"
	MySQL      Dialect = "mysql"
	SQLite     Dialect = "sqlite"
)

var (
	ErrInvalidDialect = errors.New("invalid database dialect")
	ErrSchemeMismatch = errors.New("database URL does not match dialect")
)

// Dialects lists every supported dialect in a stable order.
func Dialects() []Dialect {
	return []Dialect{PostgreSQL, MySQL, SQLite}
}

// ParseDialect converts a configuration value into a Dialect.
func ParseDialect(value string) (Dialect, error) {
	switch d := Dialect(strings.ToLower(strings.TrimSpace(value))); d {
	case PostgreSQL, MySQL, SQLite:
		return d, nil
	default:
		return "", fmt.Errorf("%w: %q (expected one of postgresql, mysql, sqlite)", ErrInvalidDialect, value)
	}
}

// URLPrefix is the lexical prefix a connection string must carry for the dialect.
func (d Dialect) URLPrefix() string {
	switch d {
	case PostgreSQL:
		return "postgres://"
	case MySQL:
		return "mysql://"
	case SQLite:
		return "file:"
	default:
		return ""
	}
}

// DriverName is the database/sql driver registered for the dialect.
func (d Dialect) DriverName() string {
	switch d {
	case PostgreSQL:
		return "postgres"
	case MySQL:
		return "mysql"
	case SQLite:
		return "sqlite3"
	default:
		return ""
	}
}

// BindType is the sqlx placeholder style used by the dialect's driver.
func (d Dialect) BindType() int {
	if d == PostgreSQL {
		return sqlx.DOLLAR
	}
	return sqlx.QUESTION
}

func (d Dialect) displayName() string {
	switch d {
	case PostgreSQL:
		return "PostgreSQL"
	case MySQL:
		return "MySQL"
	case SQLite:
		return "SQLite"
	default:
		return string(d)
	}
}

func (d Dialect) String() string {
	return string(d)
}

// ValidateURL fails unless url starts with the prefix required by d.
func ValidateURL(d Dialect, url string) error {
	prefix := d.URLPrefix()
	if prefix == "" {
		return fmt.Errorf("%w: %q", ErrInvalidDialect, string(d))
	}
	if !strings.HasPrefix(url, prefix) {
		return fmt.Errorf("%w: DATABASE_URL must start with '%s' for %s dialect",
			ErrSchemeMismatch, prefix, d.displayName())
	}
	return nil
}
