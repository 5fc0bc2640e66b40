// Package migrations embeds the goose SQL migrations for both supported
// database dialects. The repository manager picks the subdirectory matching
// its dialect.
package migrations

import "embed"

//go:embed postgres sqlite
var Migrations embed.FS
