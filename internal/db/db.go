// Package db opens SQLite databases with the pragmas every store relies on and
// applies embedded golang-migrate migrations to them.
package db

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps a SQLite connection pool.
type DB struct {
	*sql.DB
}

// Per-connection pragmas, applied through the DSN so every pooled connection
// gets them.
var pragmas = []string{
	"busy_timeout(5000)",
	"journal_mode(WAL)",
	"foreign_keys(ON)",
	"synchronous(NORMAL)",
	"temp_store(MEMORY)",
}

// DSN builds the modernc.org/sqlite data source name for path.
func DSN(path string) string {
	q := url.Values{}
	for _, p := range pragmas {
		q.Add("_pragma", p)
	}
	return "file:" + path + "?" + q.Encode()
}

// Open opens (creating if needed) the database at path.
func Open(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", DSN(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	return &DB{sqlDB}, nil
}

const (
	busyRetries = 5
	busyBackoff = 50 * time.Millisecond
)

// IsBusy reports whether err is SQLite's busy/locked condition.
func IsBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

// RetryOnBusy runs fn, retrying with linear backoff while it fails with a
// busy error. Any other error is returned immediately.
func RetryOnBusy(fn func() error) error {
	var err error
	for attempt := 0; attempt < busyRetries; attempt++ {
		err = fn()
		if !IsBusy(err) {
			return err
		}
		time.Sleep(time.Duration(attempt+1) * busyBackoff)
	}
	return errors.Join(fmt.Errorf("database still busy after %d attempts", busyRetries), err)
}
