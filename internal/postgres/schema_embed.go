package postgres

import _ "embed"

// Schema holds the bootstrap SQL for local development and tests.
//
//go:embed schema.sql
var Schema string
