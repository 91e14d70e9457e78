// Package sqlstore implements the record repository on top of store.Pool.
// Every query is written once with "?" placeholders and runs on both
// SQLite and PostgreSQL.
package sqlstore

import (
	_ "embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/communitymapper/community-mapper/internal/store"
)

//go:embed schema_sqlite.sql
var schemaSQLite string

//go:embed schema_postgres.sql
var schemaPostgres string

// Schema returns the idempotent DDL for a dialect. Pass it as
// store.PoolConfig.Schema so it is applied when the pool first opens.
func Schema(d store.Dialect) string {
	if d == store.DialectPostgres {
		return schemaPostgres
	}
	return schemaSQLite
}

// Store provides relational persistence for users, sessions, people, tags
// and relationships.
type Store struct {
	pool   *store.Pool
	logger *slog.Logger
}

// New wraps a pool. It does not touch the database.
func New(pool *store.Pool, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, logger: logger}
}

// Pool returns the underlying connection pool.
func (s *Store) Pool() *store.Pool {
	return s.pool
}

// timeLayout is RFC3339 with a fixed nine-digit fraction so stored values
// sort correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// now is swapped in tests that need deterministic timestamps.
var now = func() time.Time { return time.Now().UTC() }

// formatTime formats a time.Time in UTC for storage.
func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// parseTime parses a stored timestamp. PostgreSQL TIMESTAMPTZ columns scanned
// into a string arrive as RFC3339Nano, which parses the same way.
func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t.UTC(), nil
}

// parseCreatedUpdated fills the two timestamps every table carries.
func parseCreatedUpdated(createdAt, updatedAt string, created, updated *time.Time) error {
	var err error
	if *created, err = parseTime(createdAt); err != nil {
		return err
	}
	*updated, err = parseTime(updatedAt)
	return err
}

// rowsAffected turns a zero-row mutation into store.ErrNotFound.
func rowsAffected(res interface{ RowsAffected() (int64, error) }, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return store.Classify(err)
	}
	if n == 0 {
		return store.ErrNotFound.WithMessage(what + " not found")
	}
	return nil
}
