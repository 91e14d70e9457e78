package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestClassify_Postgres(t *testing.T) {
	tests := []struct {
		code pq.ErrorCode
		want *Error
	}{
		{"23505", ErrAlreadyExists}, // unique_violation
		{"23503", ErrRejected},      // foreign_key_violation
		{"23514", ErrRejected},      // check_violation
		{"42601", ErrRejected},      // syntax_error
		{"57014", ErrTimeout},       // query_canceled
		{"08006", ErrUnavailable},   // connection_failure
		{"28P01", ErrUnavailable},   // invalid_password
		{"53300", ErrUnavailable},   // too_many_connections
		{"57P01", ErrUnavailable},   // admin_shutdown
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			err := Classify(fmt.Errorf("exec: %w", &pq.Error{Code: tt.code, Message: "x"}))
			assert.Equal(t, tt.want.Kind, KindOf(err))

			var pqErr *pq.Error
			assert.True(t, errors.As(err, &pqErr), "driver error stays reachable")
		})
	}
}

func TestClassify_ConnectionLevel(t *testing.T) {
	refused := &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}

	assert.ErrorIs(t, Classify(refused), ErrUnavailable)
	assert.ErrorIs(t, Classify(driver.ErrBadConn), ErrUnavailable)
	assert.ErrorIs(t, Classify(sql.ErrConnDone), ErrUnavailable)
	assert.ErrorIs(t, Classify(fmt.Errorf("read: %w", syscall.ECONNRESET)), ErrUnavailable)
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassify_Timeouts(t *testing.T) {
	assert.ErrorIs(t, Classify(context.DeadlineExceeded), ErrTimeout)
	assert.ErrorIs(t, Classify(context.Canceled), ErrTimeout)
	assert.ErrorIs(t, Classify(&net.OpError{Op: "read", Err: timeoutErr{}}), ErrTimeout)
}

func TestClassify_NoRowsAndPassthrough(t *testing.T) {
	assert.Nil(t, Classify(nil))
	assert.ErrorIs(t, Classify(fmt.Errorf("scan: %w", sql.ErrNoRows)), ErrNotFound)

	already := ErrRejected.WithCause(errors.New("x"))
	assert.Same(t, already, Classify(already))

	unknown := errors.New("something odd")
	assert.Equal(t, unknown, Classify(unknown))
	assert.Equal(t, Kind(0), KindOf(unknown))
}

func TestError_AlreadyExistsIsRejected(t *testing.T) {
	err := ErrAlreadyExists.WithCause(errors.New("dup"))

	assert.ErrorIs(t, err, ErrAlreadyExists)
	assert.ErrorIs(t, err, ErrRejected)
	assert.NotErrorIs(t, ErrRejected, ErrAlreadyExists)
	assert.NotErrorIs(t, err, ErrUnavailable)
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(ErrUnavailable))
	assert.True(t, Retryable(fmt.Errorf("wrapped: %w", ErrTimeout)))
	assert.False(t, Retryable(ErrRejected))
	assert.False(t, Retryable(ErrAlreadyExists))
	assert.False(t, Retryable(ErrNotFound))
	assert.False(t, Retryable(errors.New("plain")))
}
