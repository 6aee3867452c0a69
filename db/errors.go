package db

import (
	"strings"

	"github.com/teranos/hirepanel/errors"
)

// ErrDatabaseClosed marks storage calls made after Close, typically a
// file-watcher callback racing process shutdown
var ErrDatabaseClosed = errors.New("database is closed")

// IsDatabaseClosed reports whether err is ErrDatabaseClosed or the raw
// database/sql error for a closed handle, which the driver returns as a
// plain string error
func IsDatabaseClosed(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrDatabaseClosed) {
		return true
	}
	return strings.Contains(err.Error(), "sql: database is closed")
}
