// Package db carries the embedded SQL migrations for the service.
package db

import "embed"

// Migrations holds the goose SQL migration files.
//
//go:embed migrations/*.sql
var Migrations embed.FS
