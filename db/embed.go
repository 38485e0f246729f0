// Package db provides the embedded seed catalog.
package db

import _ "embed"

// SeedProducts is the JSON seed catalog written by the seed-data command.
//
//go:embed seed/products.json
var SeedProducts []byte
