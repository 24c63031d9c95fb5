// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package sqlfmt

import (
	"context"
	"database/sql"

	. "gopkg.in/check.v1"

	"github.com/canonical/sqlfmt/dialect"
)

type CacheSuite struct{}

var _ = Suite(&CacheSuite{})

func (s *CacheSuite) TearDownSuite(_ *C) {
	stmtRegistryMutex.Lock()
	defer stmtRegistryMutex.Unlock()

	// Reset prepared statements trackers.
	closedStmts = map[string]map[uintptr]bool{}
	openedStmts = map[string]map[uintptr]string{}

	queriesRunMutex.Lock()
	defer queriesRunMutex.Unlock()

	// Reset query counters.
	dbQueriesRun = map[string]int{}
	stmtQueriesRun = map[string]int{}
}

func (s *CacheSuite) TestPreparedStatementReuse(c *C) {
	db := s.openDB(c)
	defer db.Close()

	stmt, err := db.Prepare(context.Background(), "SELECT %s", "test")
	c.Assert(err, IsNil)
	c.Check(db.stmts.len(), Equals, 1)
	s.checkDriverStmtsOpened(c, 1)

	// Preparing the same SQL again returns the cached statement.
	again, err := db.Prepare(context.Background(), "SELECT  'test'")
	c.Assert(err, IsNil)
	c.Check(again, Equals, stmt)
	c.Check(db.stmts.len(), Equals, 1)
	s.checkDriverStmtsOpened(c, 1)

	// Queries rendering to the prepared SQL run on the statement.
	rows, err := db.FetchAll(context.Background(), "SELECT %s", "test")
	c.Assert(err, IsNil)
	c.Check(rows, HasLen, 1)
	s.checkQueriesRunOnStmt(c, 1)
	s.checkQueriesRunOnDB(c, 0)

	// Other queries run directly on the database.
	_, err = db.FetchAll(context.Background(), "SELECT %s", "other")
	c.Assert(err, IsNil)
	s.checkQueriesRunOnStmt(c, 1)
	s.checkQueriesRunOnDB(c, 1)
	s.checkDriverStmtsOpened(c, 1)
}

func (s *CacheSuite) TestClosingDB(c *C) {
	db := s.openDB(c)

	_, err := db.Prepare(context.Background(), "SELECT 1")
	c.Assert(err, IsNil)
	_, err = db.Prepare(context.Background(), "SELECT 2")
	c.Assert(err, IsNil)
	s.checkDriverStmtsOpened(c, 2)

	err = db.Close()
	c.Assert(err, IsNil)
	c.Check(db.stmts.len(), Equals, 0)
	s.checkDriverStmtsAllClosed(c)
}

func (s *CacheSuite) TestEviction(c *C) {
	db := s.openDB(c, WithCacheSize(1))
	defer db.Close()

	first, err := db.Prepare(context.Background(), "SELECT 1")
	c.Assert(err, IsNil)
	_, err = db.Prepare(context.Background(), "SELECT 2")
	c.Assert(err, IsNil)
	c.Check(db.stmts.len(), Equals, 1)
	s.checkDriverStmtsOpened(c, 2)
	s.checkDriverStmtsClosed(c, 1)

	_, ok := db.stmts.lookup("SELECT 1")
	c.Check(ok, Equals, false)
	_, err = first.Exec()
	c.Check(err, ErrorMatches, "sql: statement is closed")

	// The evicted query still runs, directly on the database.
	_, err = db.Exec(context.Background(), "SELECT 1")
	c.Assert(err, IsNil)
	s.checkQueriesRunOnDB(c, 1)
}

func (s *CacheSuite) TestEvictedStatementRunsOnDB(c *C) {
	db := s.openDB(c, WithCacheSize(1))
	defer db.Close()
	ctx := context.Background()

	// The statement is looked up by a query, then evicted and closed by a
	// concurrent Prepare before the query runs.
	stale, err := db.Prepare(ctx, "SELECT 1")
	c.Assert(err, IsNil)
	_, err = db.Prepare(ctx, "SELECT 2")
	c.Assert(err, IsNil)
	_, err = stale.Exec()
	c.Assert(err, ErrorMatches, "sql: statement is closed")

	rows, err := db.query(ctx, "SELECT 1", stale)
	c.Assert(err, IsNil)
	c.Assert(rows.Close(), IsNil)
	_, err = db.exec(ctx, "SELECT 1", stale)
	c.Assert(err, IsNil)
	s.checkQueriesRunOnDB(c, 2)
	s.checkQueriesRunOnStmt(c, 0)

	tx, err := db.Begin(ctx, nil)
	c.Assert(err, IsNil)
	rows, err = tx.query(ctx, "SELECT 1", stale)
	c.Assert(err, IsNil)
	c.Assert(rows.Close(), IsNil)
	_, err = tx.exec(ctx, "SELECT 1", stale)
	c.Assert(err, IsNil)
	c.Assert(tx.Commit(), IsNil)

	// Only a statement that is no longer cached is bypassed.
	current, err := db.Prepare(ctx, "SELECT 2")
	c.Assert(err, IsNil)
	c.Assert(db.stmts.evicted("SELECT 2", current), Equals, false)
	c.Assert(db.stmts.evicted("SELECT 1", stale), Equals, true)
}

func (s *CacheSuite) TestPrepareError(c *C) {
	db := s.openDB(c)
	defer db.Close()

	_, err := db.Prepare(context.Background(), "SELEC 1")
	c.Assert(err, ErrorMatches, `cannot prepare query: near "SELEC": syntax error`)
	c.Check(db.stmts.len(), Equals, 0)

	// Templates that cannot be rendered are never prepared.
	_, err = db.Prepare(context.Background(), "SELECT %z", 1)
	c.Assert(err, ErrorMatches, "cannot format SQL: unknown modifier %z")
	c.Check(db.stmts.len(), Equals, 0)
	s.checkDriverStmtsOpened(c, 0)
}

func (s *CacheSuite) TestPreparedStatementsInTX(c *C) {
	db := s.openDB(c)
	defer db.Close()

	tx, err := db.Begin(context.Background(), nil)
	c.Assert(err, IsNil)

	// A query executed on a transaction will reuse a prepared statement if it
	// exists, but it will not create one if it does not.
	_, err = tx.FetchAll(context.Background(), "SELECT %s", "test")
	c.Assert(err, IsNil)
	c.Check(db.stmts.len(), Equals, 0)
	s.checkQueriesRunOnDB(c, 1)
	s.checkQueriesRunOnStmt(c, 0)
	err = tx.Commit()
	c.Assert(err, IsNil)

	_, err = db.Prepare(context.Background(), "SELECT %s", "test")
	c.Assert(err, IsNil)

	tx, err = db.Begin(context.Background(), nil)
	c.Assert(err, IsNil)
	_, err = tx.FetchAll(context.Background(), "SELECT %s", "test")
	c.Assert(err, IsNil)
	s.checkQueriesRunOnDB(c, 1)
	s.checkQueriesRunOnStmt(c, 1)
	err = tx.Commit()
	c.Assert(err, IsNil)

	// The transaction's copy of the statement is closed with it; the
	// cached statement stays open.
	_, ok := db.stmts.lookup("SELECT  'test'")
	c.Check(ok, Equals, true)
}

// openDB opens a database on the statement tracking driver. A single
// connection is used so that every statement is prepared on it.
func (s *CacheSuite) openDB(c *C, opts ...Option) *DB {
	sqldb, err := sql.Open("sqlite3_stmtChecked", "file:test.db?cache=shared&mode=memory&"+testNameTag+"="+c.TestName())
	c.Assert(err, IsNil)
	sqldb.SetMaxOpenConns(1)
	return NewDB(sqldb, dialect.SQLite{}, opts...)
}

func (s *CacheSuite) checkDriverStmtsAllClosed(c *C) {
	stmtRegistryMutex.RLock()
	defer stmtRegistryMutex.RUnlock()
	c.Check(len(openedStmts[c.TestName()]), Equals, len(closedStmts[c.TestName()]))
}

func (s *CacheSuite) checkDriverStmtsOpened(c *C, n int) {
	stmtRegistryMutex.RLock()
	defer stmtRegistryMutex.RUnlock()
	c.Check(openedStmts[c.TestName()], HasLen, n)
}

func (s *CacheSuite) checkDriverStmtsClosed(c *C, n int) {
	stmtRegistryMutex.RLock()
	defer stmtRegistryMutex.RUnlock()
	c.Check(closedStmts[c.TestName()], HasLen, n)
}

func (s *CacheSuite) checkQueriesRunOnDB(c *C, n int) {
	queriesRunMutex.RLock()
	defer queriesRunMutex.RUnlock()
	c.Check(dbQueriesRun[c.TestName()], Equals, n)
}

func (s *CacheSuite) checkQueriesRunOnStmt(c *C, n int) {
	queriesRunMutex.RLock()
	defer queriesRunMutex.RUnlock()
	c.Check(stmtQueriesRun[c.TestName()], Equals, n)
}
