// Package rewrite implements the ordered request rewrite table. Each rule maps a
// path pattern either to an internal path, served by the application itself, or
// to an absolute URL on an external host, reached through a reverse proxy.
package rewrite
