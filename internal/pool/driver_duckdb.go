//go:build cgo

package pool

import (
	// The duckdb driver wraps the DuckDB C library and cannot be compiled
	// with CGO_ENABLED=0, so it is registered only in cgo builds.
	_ "github.com/marcboeker/go-duckdb"
)
