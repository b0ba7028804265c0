//go:build cgo && duckdb && linux && (amd64 || arm64)

// DuckDB needs CGO, so it is only wired in for Linux builds that opt in with
// the duckdb tag:
//
//	CGO_ENABLED=1 go build -tags duckdb
package drivers

import (
	_ "github.com/marcboeker/go-duckdb"
)
