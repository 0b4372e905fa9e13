// Package db ships the schema and the demo catalog inside the binaries.
package db

import _ "embed"

// Schema creates every table and index. Statements are idempotent.
//
//go:embed migrations/001_schema.sql
var Schema string

// Seed is the default seed-db payload: demo sellers, buyers and products.
//
//go:embed seed/seed.json
var Seed []byte
