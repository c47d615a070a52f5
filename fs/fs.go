package appfs

import "embed"

// FS holds the SQL migrations and the email templates.
//
//go:embed migrations all:assets
var FS embed.FS

const (
	MigrationsDir     = "migrations"
	EmailTemplatesDir = "assets/templates/email"
)
