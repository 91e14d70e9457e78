package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"net"
	"strings"
	"syscall"

	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Classify maps a driver or database/sql error onto the storage taxonomy.
// Errors it cannot place are returned unchanged and treated as unknown by
// the service layer.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	var classified *Error
	if errors.As(err, &classified) {
		return err
	}

	switch {
	case errors.Is(err, sql.ErrNoRows):
		return ErrNotFound.WithCause(err)
	case errors.Is(err, context.DeadlineExceeded):
		return ErrTimeout.WithCause(err)
	case errors.Is(err, context.Canceled):
		return ErrTimeout.WithMessage("database call canceled").WithCause(err)
	case errors.Is(err, driver.ErrBadConn), errors.Is(err, sql.ErrConnDone):
		return ErrUnavailable.WithCause(err)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return classifyPostgres(pqErr)
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return classifySQLite(liteErr)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return ErrTimeout.WithCause(err)
		}
		return ErrUnavailable.WithCause(err)
	}

	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ErrUnavailable.WithCause(err)
	}

	// Older driver paths only surface the constraint in the message.
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return ErrAlreadyExists.WithCause(err)
	}

	return err
}

func classifyPostgres(err *pq.Error) error {
	switch {
	case err.Code == "23505":
		return ErrAlreadyExists.WithCause(err)
	case err.Code == "57014":
		return ErrTimeout.WithCause(err)
	case err.Code == "57P01", err.Code == "57P02", err.Code == "57P03":
		return ErrUnavailable.WithCause(err)
	}

	switch err.Code.Class() {
	case "08", "28", "53":
		// connection exception, invalid authorization, insufficient resources
		return ErrUnavailable.WithCause(err)
	default:
		return ErrRejected.WithCause(err)
	}
}

func classifySQLite(err *sqlite.Error) error {
	code := err.Code()
	switch code {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return ErrAlreadyExists.WithCause(err)
	}

	switch code & 0xff {
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED, sqlite3.SQLITE_CANTOPEN,
		sqlite3.SQLITE_NOTADB, sqlite3.SQLITE_IOERR, sqlite3.SQLITE_FULL:
		return ErrUnavailable.WithCause(err)
	case sqlite3.SQLITE_INTERRUPT:
		return ErrTimeout.WithCause(err)
	default:
		return ErrRejected.WithCause(err)
	}
}
