// Package store owns the relational connection pool and the storage error taxonomy.
//
// The pool opens lazily: the first caller that needs a connection opens the
// database while every concurrent caller waits for that same attempt.
// Repositories run statements through Querier, which both *Pool and *Tx
// implement, so the same SQL can run inside or outside a transaction.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	_ "github.com/lib/pq"    // registers the "postgres" driver
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// Dialect selects the SQL driver and placeholder style.
type Dialect string

// Supported dialects.
const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// PoolConfig configures a Pool.
type PoolConfig struct {
	Dialect         Dialect
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnectTimeout  time.Duration // bounds the open + ping + schema step
	QueryTimeout    time.Duration // applied to every call without an earlier deadline
	Schema          string        // idempotent DDL run once after the pool opens
}

// Scanner is satisfied by *sql.Row and *sql.Rows.
type Scanner interface {
	Scan(dest ...any) error
}

// Querier runs statements written with "?" placeholders.
type Querier interface {
	Exec(ctx context.Context, query string, args ...any) (sql.Result, error)
	Get(ctx context.Context, query string, args []any, scan func(Scanner) error) error
	Select(ctx context.Context, query string, args []any, scan func(Scanner) error) error
}

// Pool is a lazily opened, bounded set of database connections.
type Pool struct {
	cfg    PoolConfig
	logger *slog.Logger
	opener func(ctx context.Context) (*sql.DB, error)

	mu      sync.Mutex
	db      *sql.DB
	pending *openCall
	closed  bool
}

// openCall is the single in-flight attempt to open the database.
type openCall struct {
	done chan struct{}
	db   *sql.DB
	err  error
}

// NewPool returns a pool that has not connected yet.
func NewPool(cfg PoolConfig, logger *slog.Logger) *Pool {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pool{cfg: cfg, logger: logger}
	p.opener = p.openDB
	return p
}

// Dialect returns the configured dialect.
func (p *Pool) Dialect() Dialect { return p.cfg.Dialect }

// DB returns the underlying *sql.DB, opening it on first use.
// Concurrent first callers share one open attempt. A failed attempt is
// reported to everyone waiting on it and the next call tries again.
func (p *Pool) DB(ctx context.Context) (*sql.DB, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrUnavailable.WithMessage("pool is closed")
	}
	if p.db != nil {
		db := p.db
		p.mu.Unlock()
		return db, nil
	}
	call := p.pending
	if call == nil {
		call = &openCall{done: make(chan struct{})}
		p.pending = call
		go p.runOpen(call)
	}
	p.mu.Unlock()

	select {
	case <-call.done:
		return call.db, call.err
	case <-ctx.Done():
		return nil, Classify(ctx.Err())
	}
}

func (p *Pool) runOpen(call *openCall) {
	// Detached from any caller so one canceled request cannot fail the open
	// for everyone else waiting on it.
	ctx, cancel := context.WithTimeout(context.Background(), p.cfg.ConnectTimeout)
	defer cancel()

	start := time.Now()
	db, err := p.opener(ctx)

	p.mu.Lock()
	if err == nil && p.closed {
		_ = db.Close()
		db, err = nil, ErrUnavailable.WithMessage("pool is closed")
	}
	if err == nil {
		p.db = db
	}
	p.pending = nil
	p.mu.Unlock()

	if err != nil {
		err = Classify(err)
		p.logger.Warn("database open failed",
			"dialect", p.cfg.Dialect,
			"kind", KindOf(err).String(),
			"error", err,
		)
	} else {
		p.logger.Info("database pool opened",
			"dialect", p.cfg.Dialect,
			"max_open_conns", p.cfg.MaxOpenConns,
			"duration", time.Since(start),
		)
	}

	call.db, call.err = db, err
	close(call.done)
}

func (p *Pool) openDB(ctx context.Context) (*sql.DB, error) {
	db, err := sql.Open(string(p.cfg.Dialect), p.cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", p.cfg.Dialect, err)
	}

	if p.cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(p.cfg.MaxOpenConns)
	}
	db.SetMaxIdleConns(p.cfg.MaxIdleConns)
	if p.cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(p.cfg.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", p.cfg.Dialect, err)
	}

	if p.cfg.Schema != "" {
		if _, err := db.ExecContext(ctx, p.cfg.Schema); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply schema: %w", err)
		}
	}

	return db, nil
}

// Ping verifies the database is reachable, opening the pool if needed.
func (p *Pool) Ping(ctx context.Context) error {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	db, err := p.DB(ctx)
	if err != nil {
		return err
	}
	return Classify(db.PingContext(ctx))
}

// Stats returns pool statistics, or zero values before the pool opens.
func (p *Pool) Stats() sql.DBStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.db == nil {
		return sql.DBStats{}
	}
	return p.db.Stats()
}

// Close tears the pool down. It is safe on a pool that never opened.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	if p.db == nil {
		return nil
	}
	err := p.db.Close()
	p.db = nil
	return err
}

// Exec runs a statement that returns no rows.
func (p *Pool) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	db, err := p.DB(ctx)
	if err != nil {
		return nil, err
	}
	res, err := db.ExecContext(ctx, p.rebind(query), args...)
	return res, Classify(err)
}

// Get runs a query expected to return one row and hands it to scan.
// No rows yields ErrNotFound.
func (p *Pool) Get(ctx context.Context, query string, args []any, scan func(Scanner) error) error {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	db, err := p.DB(ctx)
	if err != nil {
		return err
	}
	return getRow(ctx, db, p.rebind(query), args, scan)
}

// Select runs a query and calls scan once per row. Rows are always closed.
func (p *Pool) Select(ctx context.Context, query string, args []any, scan func(Scanner) error) error {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	db, err := p.DB(ctx)
	if err != nil {
		return err
	}
	return selectRows(ctx, db, p.rebind(query), args, scan)
}

// WithTx runs fn in a transaction. The transaction commits when fn returns
// nil and rolls back on error or panic. The query timeout covers the whole
// transaction.
func (p *Pool) WithTx(ctx context.Context, fn func(tx *Tx) error) (err error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	db, err := p.DB(ctx)
	if err != nil {
		return err
	}

	sqlTx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return Classify(err)
	}

	defer func() {
		if r := recover(); r != nil {
			_ = sqlTx.Rollback()
			panic(r)
		}
		if err != nil {
			_ = sqlTx.Rollback()
		}
	}()

	if err = fn(&Tx{tx: sqlTx, rebind: p.rebind}); err != nil {
		return err
	}
	return Classify(sqlTx.Commit())
}

// withTimeout applies the configured query timeout unless ctx already
// expires sooner.
func (p *Pool) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.cfg.QueryTimeout <= 0 {
		return ctx, func() {}
	}
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < p.cfg.QueryTimeout {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, p.cfg.QueryTimeout)
}

func (p *Pool) rebind(query string) string {
	if p.cfg.Dialect == DialectPostgres {
		return Rebind(query)
	}
	return query
}

// Tx is a transaction handle. It satisfies Querier.
type Tx struct {
	tx     *sql.Tx
	rebind func(string) string
}

// Exec runs a statement inside the transaction.
func (t *Tx) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	res, err := t.tx.ExecContext(ctx, t.rebind(query), args...)
	return res, Classify(err)
}

// Get runs a single-row query inside the transaction.
func (t *Tx) Get(ctx context.Context, query string, args []any, scan func(Scanner) error) error {
	return getRow(ctx, t.tx, t.rebind(query), args, scan)
}

// Select runs a multi-row query inside the transaction.
func (t *Tx) Select(ctx context.Context, query string, args []any, scan func(Scanner) error) error {
	return selectRows(ctx, t.tx, t.rebind(query), args, scan)
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getRow(ctx context.Context, q queryer, query string, args []any, scan func(Scanner) error) error {
	row := q.QueryRowContext(ctx, query, args...)
	if err := row.Err(); err != nil {
		return Classify(err)
	}
	return Classify(scan(row))
}

func selectRows(ctx context.Context, q queryer, query string, args []any, scan func(Scanner) error) error {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return Classify(err)
	}
	defer rows.Close()

	for rows.Next() {
		if err := scan(rows); err != nil {
			return Classify(err)
		}
	}
	return Classify(rows.Err())
}

// Rebind rewrites "?" placeholders as "$1", "$2", ... for PostgreSQL.
// Question marks inside single-quoted literals are left alone.
func Rebind(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)

	n := 0
	inQuote := false
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'':
			inQuote = !inQuote
			b.WriteByte(c)
		case c == '?' && !inQuote:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
