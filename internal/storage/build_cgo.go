//go:build sqlite_cgo

package storage

// Compiled with CGO_ENABLED=1 go build -tags sqlite_cgo.
// Driver: github.com/mattn/go-sqlite3 (C SQLite, faster bulk writes).

import (
	_ "github.com/mattn/go-sqlite3"
)

const (
	// DriverName is the database/sql driver in use.
	DriverName = "sqlite3"

	// BuildMode describes the current build configuration.
	BuildMode = "cgo"
)
