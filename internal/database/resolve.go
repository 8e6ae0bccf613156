package database

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// Resolved is the backend bundle chosen at startup. It is built once and passed
// explicitly to whatever needs a database.
type Resolved struct {
	Dialect    Dialect
	DriverName string
	// DSN is the driver-native form of the configured connection string.
	DSN    string
	Schema Schema
}

// Resolve validates rawURL against the dialect and derives the driver DSN.
// appEnv selects TLS for PostgreSQL: staging and production require it.
func Resolve(dialect, rawURL, appEnv string) (*Resolved, error) {
	d, err := ParseDialect(dialect)
	if err != nil {
		return nil, err
	}

	if err := ValidateURL(d, rawURL); err != nil {
		return nil, err
	}

	var dsn string
	switch d {
	case PostgreSQL:
		dsn, err = postgresDSN(rawURL, requiresTLS(appEnv))
	case MySQL:
		dsn, err = mysqlDSN(rawURL)
	case SQLite:
		dsn = rawURL
	}
	if err != nil {
		return nil, fmt.Errorf("resolve %s connection string: %w", d, err)
	}

	return &Resolved{
		Dialect:    d,
		DriverName: d.DriverName(),
		DSN:        dsn,
		Schema:     SchemaFor(d),
	}, nil
}

func requiresTLS(appEnv string) bool {
	switch strings.ToLower(appEnv) {
	case "production", "staging":
		return true
	default:
		return false
	}
}

func postgresDSN(rawURL string, tls bool) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}

	q := u.Query()
	if u.Host == "" && q.Get("host") == "" {
		return "", fmt.Errorf("missing host")
	}
	// The server never negotiates TLS over a unix socket.
	socket := u.Host == "" && strings.HasPrefix(q.Get("host"), "/")

	if q.Get("sslmode") == "" {
		if tls && !socket {
			q.Set("sslmode", "require")
		} else {
			q.Set("sslmode", "disable")
		}
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}

func mysqlDSN(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if u.Host == "" {
		return "", fmt.Errorf("missing host")
	}

	cfg := mysql.NewConfig()
	cfg.Net = "tcp"
	cfg.Addr = u.Host
	if _, _, err := net.SplitHostPort(u.Host); err != nil {
		cfg.Addr = net.JoinHostPort(u.Host, "3306")
	}
	if u.User != nil {
		cfg.User = u.User.Username()
		cfg.Passwd, _ = u.User.Password()
	}
	cfg.DBName = strings.TrimPrefix(u.Path, "/")
	cfg.ParseTime = true

	if query := u.Query(); len(query) > 0 {
		if cfg.Params == nil {
			cfg.Params = make(map[string]string, len(query))
		}
		for key, values := range query {
			if len(values) > 0 {
				cfg.Params[key] = values[0]
			}
		}
	}

	return cfg.FormatDSN(), nil
}
