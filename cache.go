// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package sqlfmt

import (
	"context"
	"database/sql"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// statementCache holds the statements prepared with DB.Prepare, keyed by
// their SQL. The least recently used statement is closed when the cache is
// full.
//
// The mutex serialises inserts so that a query prepared concurrently is only
// kept once.
type statementCache struct {
	stmts *lru.Cache[string, *sql.Stmt]
	mutex sync.Mutex
}

func newStatementCache(size int) *statementCache {
	if size <= 0 {
		size = defaultCacheSize
	}
	stmts, err := lru.NewWithEvict(size, func(_ string, sqlstmt *sql.Stmt) {
		sqlstmt.Close()
	})
	if err != nil {
		// Only returned for a non-positive size.
		panic(err)
	}
	return &statementCache{stmts: stmts}
}

// prepareSubstrate is an object that queries can be prepared on, e.g. a sql.DB
// or sql.Conn. It is used in prepareStmt.
type prepareSubstrate interface {
	PrepareContext(context.Context, string) (*sql.Stmt, error)
}

// prepareStmt prepares a query on a prepareSubstrate. It first checks in
// the cache to see if it has already been prepared.
func (sc *statementCache) prepareStmt(ctx context.Context, ps prepareSubstrate, query string) (*sql.Stmt, error) {
	if sqlstmt, ok := sc.stmts.Get(query); ok {
		return sqlstmt, nil
	}
	sqlstmt, err := ps.PrepareContext(ctx, query)
	if err != nil {
		return nil, err
	}
	sc.mutex.Lock()
	defer sc.mutex.Unlock()
	// Check if a statement has been inserted by someone else since we last
	// checked.
	if sqlstmtAlt, ok := sc.stmts.Get(query); ok {
		sqlstmt.Close()
		return sqlstmtAlt, nil
	}
	sc.stmts.Add(query, sqlstmt)
	return sqlstmt, nil
}

func (sc *statementCache) lookup(query string) (*sql.Stmt, bool) {
	return sc.stmts.Get(query)
}

// evicted reports whether stmt is no longer the cached statement for query.
func (sc *statementCache) evicted(query string, stmt *sql.Stmt) bool {
	cached, ok := sc.stmts.Peek(query)
	return !ok || cached != stmt
}

func (sc *statementCache) len() int {
	return sc.stmts.Len()
}

// purge closes every statement.
func (sc *statementCache) purge() {
	sc.mutex.Lock()
	defer sc.mutex.Unlock()
	sc.stmts.Purge()
}
