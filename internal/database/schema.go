package database

import (
	"embed"
	"io/fs"
)

// UsersTable is the table backing the demo user store in every dialect.
const UsersTable = "users"

//go:embed migrations
var migrationFiles embed.FS

// Schema points at the migrations defining the table shapes for one dialect.
type Schema struct {
	Dialect Dialect
	Dir     string
}

// SchemaFor returns the schema bundle of d.
func SchemaFor(d Dialect) Schema {
	return Schema{Dialect: d, Dir: "migrations/" + string(d)}
}

// Files returns the migration files of the schema.
func (s Schema) Files() (fs.FS, error) {
	return fs.Sub(migrationFiles, s.Dir)
}
