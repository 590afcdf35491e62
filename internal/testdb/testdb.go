// Package testdb provides a stub database/sql connection for unit tests.
//
// The connection accepts transactions and nothing else: Begin, Commit and
// Rollback work, every statement fails. In-memory store fakes hold the
// actual data, so tests driving store.RunInTransaction only need the
// transaction plumbing to function. The Recorder reports how each
// transaction ended and can inject failures at the boundaries.
package testdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"sync"
	"testing"
)

// Recorder observes transaction outcomes on a stub connection.
// BeginErr and CommitErr, when set before the transaction starts, fail the
// corresponding call.
type Recorder struct {
	mu        sync.Mutex
	commits   int
	rollbacks int

	BeginErr  error
	CommitErr error
}

// Commits returns the number of committed transactions.
func (r *Recorder) Commits() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.commits
}

// Rollbacks returns the number of rolled-back transactions.
func (r *Recorder) Rollbacks() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rollbacks
}

// New returns a stub-backed *sql.DB and its Recorder. The connection is
// closed automatically when the test finishes.
func New(t *testing.T) (*sql.DB, *Recorder) {
	t.Helper()

	rec := &Recorder{}
	db := sql.OpenDB(connector{rec: rec})
	t.Cleanup(func() { _ = db.Close() })
	return db, rec
}

// connector hands out stub connections without a driver-name registration,
// so every test gets its own recorder.
type connector struct {
	rec *Recorder
}

func (c connector) Connect(context.Context) (driver.Conn, error) {
	return &conn{rec: c.rec}, nil
}

func (c connector) Driver() driver.Driver { return stubDriver{} }

type stubDriver struct{}

func (stubDriver) Open(string) (driver.Conn, error) {
	return nil, errors.New("testdb: open by name not supported")
}

type conn struct {
	rec *Recorder
}

func (c *conn) Prepare(string) (driver.Stmt, error) {
	return nil, errors.New("testdb: statements not supported")
}

func (c *conn) Close() error { return nil }

func (c *conn) Begin() (driver.Tx, error) {
	c.rec.mu.Lock()
	defer c.rec.mu.Unlock()
	if c.rec.BeginErr != nil {
		return nil, c.rec.BeginErr
	}
	return tx{rec: c.rec}, nil
}

type tx struct {
	rec *Recorder
}

func (t tx) Commit() error {
	t.rec.mu.Lock()
	defer t.rec.mu.Unlock()
	if t.rec.CommitErr != nil {
		return t.rec.CommitErr
	}
	t.rec.commits++
	return nil
}

func (t tx) Rollback() error {
	t.rec.mu.Lock()
	defer t.rec.mu.Unlock()
	t.rec.rollbacks++
	return nil
}
