// Package healthcheck periodically checks a dependency, such as the database
// pool, and keeps its last known status for the health endpoint.
package healthcheck
