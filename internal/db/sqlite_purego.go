//go:build purego

package db

import (
	_ "modernc.org/sqlite" // pure Go SQLite driver
)

const (
	sqliteDriverName    = "sqlite"
	sqliteDriverPackage = "modernc.org/sqlite"
)
