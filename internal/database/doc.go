// Package database resolves the configured SQL backend. It maps a dialect and a
// connection string onto a driver, a driver-native DSN and the embedded schema
// migrations for that dialect, and opens the process-wide connection pool.
package database
