// Package api serves the JSON HTTP API: the demo user CRUD endpoints, the
// fixed sample endpoints, the health report, the landing document behind the
// homepage alias and the proxy metrics.
package api
