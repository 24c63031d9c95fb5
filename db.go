// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package sqlfmt

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/canonical/sqlfmt/dialect"
	"github.com/canonical/sqlfmt/internal/expr"
)

const defaultCacheSize = 64

type options struct {
	logger    *slog.Logger
	cacheSize int
}

// Option configures a [DB].
type Option func(*options)

// WithLogger sets the logger receiving a debug record for every query run and
// a warning for every template that fails to render. It defaults to
// [slog.Default].
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithCacheSize sets how many statements [DB.Prepare] keeps open.
func WithCacheSize(size int) Option {
	return func(o *options) {
		o.cacheSize = size
	}
}

// DB runs templates on a database.
type DB struct {
	// sqldb is the underlying database/sql DB object.
	sqldb   *sql.DB
	dialect dialect.Dialect
	parser  *expr.Parser
	logger  *slog.Logger
	stmts   *statementCache
}

// NewDB creates a new [DB] from a [sql.DB]. Templates are rendered for the
// dialect d.
func NewDB(sqldb *sql.DB, d dialect.Dialect, opts ...Option) *DB {
	if sqldb == nil {
		return nil
	}
	o := options{
		logger:    slog.Default(),
		cacheSize: defaultCacheSize,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &DB{
		sqldb:   sqldb,
		dialect: d,
		parser:  expr.NewParser(d),
		logger:  o.logger,
		stmts:   newStatementCache(o.cacheSize),
	}
}

// PlainDB returns the underlying database object.
func (db *DB) PlainDB() *sql.DB {
	return db.sqldb
}

// Dialect returns the dialect templates are rendered for.
func (db *DB) Dialect() dialect.Dialect {
	return db.dialect
}

// Close closes the prepared statements and the database.
func (db *DB) Close() error {
	db.stmts.purge()
	return db.sqldb.Close()
}

// Translate renders a template for the dialect of the database.
func (db *DB) Translate(args ...any) (string, error) {
	query, err := translate(db.parser, args)
	var ferr *FormatError
	if errors.As(err, &ferr) {
		db.logger.Warn("cannot format query", "sql", quoteSummary(query), "problems", ferr.Problems)
	}
	return query, err
}

// Query renders a template and runs it, returning the rows.
func (db *DB) Query(ctx context.Context, args ...any) (*sql.Rows, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	query, err := db.Translate(args...)
	if err != nil {
		return nil, err
	}
	defer db.logQuery(ctx, query, time.Now())
	stmt, _ := db.stmts.lookup(query)
	rows, err := db.query(ctx, query, stmt)
	if err != nil {
		return nil, fmt.Errorf("cannot run query: %w", err)
	}
	return rows, nil
}

// query runs query on stmt, or directly on the database if stmt is nil.
// A statement evicted from the cache since it was looked up may be closed
// already; the query is then run on the database.
func (db *DB) query(ctx context.Context, query string, stmt *sql.Stmt) (*sql.Rows, error) {
	if stmt != nil {
		rows, err := stmt.QueryContext(ctx)
		if err == nil || !db.stmts.evicted(query, stmt) {
			return rows, err
		}
	}
	return db.sqldb.QueryContext(ctx, query)
}

// Exec renders a template and runs it without returning rows.
func (db *DB) Exec(ctx context.Context, args ...any) (sql.Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	query, err := db.Translate(args...)
	if err != nil {
		return nil, err
	}
	defer db.logQuery(ctx, query, time.Now())
	stmt, _ := db.stmts.lookup(query)
	result, err := db.exec(ctx, query, stmt)
	if err != nil {
		return nil, fmt.Errorf("cannot run query: %w", err)
	}
	return result, nil
}

// exec is the same as query for statements that return no rows.
func (db *DB) exec(ctx context.Context, query string, stmt *sql.Stmt) (sql.Result, error) {
	if stmt != nil {
		result, err := stmt.ExecContext(ctx)
		if err == nil || !db.stmts.evicted(query, stmt) {
			return result, err
		}
	}
	return db.sqldb.ExecContext(ctx, query)
}

// FetchAll renders a template, runs it and reads every row into an [M]
// keyed by column name.
func (db *DB) FetchAll(ctx context.Context, args ...any) ([]M, error) {
	rows, err := db.Query(ctx, args...)
	if err != nil {
		return nil, err
	}
	return scanAll(rows)
}

// Prepare renders a template and prepares it on the database. Statements are
// kept in a cache keyed by the rendered SQL, so preparing the same query
// twice returns the same statement, and [DB.Query] and [DB.Exec] use it. The
// statement is owned by the cache: it must not be closed, and it is closed
// when it is evicted or the DB is closed.
func (db *DB) Prepare(ctx context.Context, args ...any) (*sql.Stmt, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	query, err := db.Translate(args...)
	if err != nil {
		return nil, err
	}
	sqlstmt, err := db.stmts.prepareStmt(ctx, db.sqldb, query)
	if err != nil {
		return nil, fmt.Errorf("cannot prepare query: %w", err)
	}
	return sqlstmt, nil
}

func (db *DB) logQuery(ctx context.Context, query string, start time.Time) {
	db.logger.DebugContext(ctx, "query", "sql", quoteSummary(query), "duration", time.Since(start))
}

func scanAll(rows *sql.Rows) ([]M, error) {
	defer rows.Close()
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var result []M
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(M, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

// TX represents a transaction on the database.
type TX struct {
	sqltx *sql.Tx
	db    *DB
	done  int32
}

func (tx *TX) isDone() bool {
	return atomic.LoadInt32(&tx.done) == 1
}

func (tx *TX) setDone() error {
	if !atomic.CompareAndSwapInt32(&tx.done, 0, 1) {
		return ErrTXDone
	}
	return nil
}

// Begin starts a transaction. A transaction must be ended
// with a [TX.Commit] or [TX.Rollback].
func (db *DB) Begin(ctx context.Context, opts *TXOptions) (*TX, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	sqltx, err := db.sqldb.BeginTx(ctx, opts.plainTXOptions())
	if err != nil {
		return nil, fmt.Errorf("cannot begin transaction: %w", err)
	}
	db.logger.DebugContext(ctx, "begin transaction")
	return &TX{sqltx: sqltx, db: db}, nil
}

// Commit commits the transaction.
func (tx *TX) Commit() error {
	err := tx.setDone()
	if err == nil {
		err = tx.sqltx.Commit()
	}
	tx.db.logger.Debug("commit transaction", "err", err)
	return err
}

// Rollback aborts the transaction.
func (tx *TX) Rollback() error {
	err := tx.setDone()
	if err == nil {
		err = tx.sqltx.Rollback()
	}
	tx.db.logger.Debug("rollback transaction", "err", err)
	return err
}

// TXOptions holds the transaction options to be used in [DB.Begin].
type TXOptions struct {
	// Isolation is the transaction isolation level.
	// If zero, the driver or database's default level is used.
	Isolation sql.IsolationLevel
	ReadOnly  bool
}

func (txopts *TXOptions) plainTXOptions() *sql.TxOptions {
	if txopts == nil {
		return nil
	}
	return &sql.TxOptions{Isolation: txopts.Isolation, ReadOnly: txopts.ReadOnly}
}

// query runs query in the transaction, on the transaction's version of
// stmt if it is not nil. As in [DB.query], a statement evicted since it was
// looked up is bypassed.
func (tx *TX) query(ctx context.Context, query string, stmt *sql.Stmt) (*sql.Rows, error) {
	if stmt != nil {
		// This does not re-prepare the statement on the driver. The txstmt
		// is closed by database/sql when the transaction is commited or
		// rolled back.
		rows, err := tx.sqltx.StmtContext(ctx, stmt).QueryContext(ctx)
		if err == nil || !tx.db.stmts.evicted(query, stmt) {
			return rows, err
		}
	}
	return tx.sqltx.QueryContext(ctx, query)
}

func (tx *TX) exec(ctx context.Context, query string, stmt *sql.Stmt) (sql.Result, error) {
	if stmt != nil {
		result, err := tx.sqltx.StmtContext(ctx, stmt).ExecContext(ctx)
		if err == nil || !tx.db.stmts.evicted(query, stmt) {
			return result, err
		}
	}
	return tx.sqltx.ExecContext(ctx, query)
}

// Query renders a template and runs it in the transaction.
func (tx *TX) Query(ctx context.Context, args ...any) (*sql.Rows, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if tx.isDone() {
		return nil, ErrTXDone
	}
	query, err := tx.db.Translate(args...)
	if err != nil {
		return nil, err
	}
	defer tx.db.logQuery(ctx, query, time.Now())
	stmt, _ := tx.db.stmts.lookup(query)
	rows, err := tx.query(ctx, query, stmt)
	if err != nil {
		return nil, fmt.Errorf("cannot run query: %w", err)
	}
	return rows, nil
}

// Exec renders a template and runs it in the transaction without returning
// rows.
func (tx *TX) Exec(ctx context.Context, args ...any) (sql.Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if tx.isDone() {
		return nil, ErrTXDone
	}
	query, err := tx.db.Translate(args...)
	if err != nil {
		return nil, err
	}
	defer tx.db.logQuery(ctx, query, time.Now())
	stmt, _ := tx.db.stmts.lookup(query)
	result, err := tx.exec(ctx, query, stmt)
	if err != nil {
		return nil, fmt.Errorf("cannot run query: %w", err)
	}
	return result, nil
}

// FetchAll is the same as [DB.FetchAll] but runs in the transaction.
func (tx *TX) FetchAll(ctx context.Context, args ...any) ([]M, error) {
	rows, err := tx.Query(ctx, args...)
	if err != nil {
		return nil, err
	}
	return scanAll(rows)
}
