// Package migrations embeds SQL migration files.
package migrations

import "embed"

// SchemaFS contains the versioned migrations for the users and identities tables.
// {{identity_table}} is replaced with the configured (quoted) identity table name.
//
//go:embed schema/*.sql
var SchemaFS embed.FS

// SchemaDir is the directory within SchemaFS where migrations live.
const SchemaDir = "schema"
