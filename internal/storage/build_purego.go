//go:build !sqlite_cgo

package storage

// Default build. No C compiler required.
// Driver: modernc.org/sqlite (pure Go SQLite).

import (
	_ "modernc.org/sqlite"
)

const (
	// DriverName is the database/sql driver in use.
	DriverName = "sqlite"

	// BuildMode describes the current build configuration.
	BuildMode = "purego"
)
