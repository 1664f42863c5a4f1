// Package testutil provides an in-memory database/sql driver that speaks the
// handful of statements the postgres snapshot store issues against its
// state(bucket, payload) table.
package testutil

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
)

// ErrUnsupported is returned for statements outside the snapshot store's
// vocabulary.
var ErrUnsupported = errors.New("testutil: unsupported statement")

type statement int

const (
	stmtUnknown statement = iota
	stmtCreateState
	stmtSelectState
	stmtUpsertState
)

func classify(query string) statement {
	q := strings.ToUpper(strings.Join(strings.Fields(query), " "))
	switch {
	case strings.HasPrefix(q, "CREATE TABLE IF NOT EXISTS STATE "):
		return stmtCreateState
	case strings.HasPrefix(q, "SELECT BUCKET, PAYLOAD FROM STATE"):
		return stmtSelectState
	case strings.HasPrefix(q, "INSERT INTO STATE(BUCKET,PAYLOAD)") && strings.Contains(q, "ON CONFLICT(BUCKET)"):
		return stmtUpsertState
	default:
		return stmtUnknown
	}
}

// StateConn holds the state table in memory. Upserts issued inside a
// transaction are staged and only land on Commit.
type StateConn struct {
	mu         sync.Mutex
	statements []string
	created    bool
	buckets    map[string][]byte
	pending    map[string][]byte

	FailPing   bool
	FailBegin  bool
	FailCommit bool

	// FailBucket makes upserts of the named bucket fail.
	FailBucket string

	// RowsErr is reported once the state rows are exhausted.
	RowsErr error
}

// NewStateDB returns a sql.DB whose connections all share the returned
// StateConn.
func NewStateDB() (*sql.DB, *StateConn) {
	conn := &StateConn{buckets: make(map[string][]byte)}
	return sql.OpenDB(connector{conn: conn}), conn
}

type connector struct{ conn *StateConn }

func (c connector) Connect(context.Context) (driver.Conn, error) { return c.conn, nil }
func (c connector) Driver() driver.Driver                        { return stateDriver(c) }

type stateDriver struct{ conn *StateConn }

func (d stateDriver) Open(string) (driver.Conn, error) { return d.conn, nil }

// Statements returns every statement executed or queried, in order.
func (c *StateConn) Statements() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.statements...)
}

// Created reports whether the state table DDL ran.
func (c *StateConn) Created() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.created
}

// Buckets lists the committed bucket names in sorted order.
func (c *StateConn) Buckets() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0, len(c.buckets))
	for name := range c.buckets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Bucket returns the committed payload of a bucket.
func (c *StateConn) Bucket(name string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	payload, ok := c.buckets[name]
	return payload, ok
}

// SetBucket stores a committed payload directly, bypassing SQL.
func (c *StateConn) SetBucket(name string, payload []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.buckets[name] = append([]byte(nil), payload...)
}

// Prepare implements driver.Conn. Only the context-aware fast paths are supported.
func (c *StateConn) Prepare(query string) (driver.Stmt, error) {
	return nil, fmt.Errorf("%w: prepare %q", ErrUnsupported, query)
}

// Close implements driver.Conn.
func (c *StateConn) Close() error { return nil }

// Begin implements driver.Conn.
func (c *StateConn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

// Ping implements driver.Pinger.
func (c *StateConn) Ping(context.Context) error {
	if c.FailPing {
		return errors.New("testutil: ping refused")
	}
	return nil
}

// BeginTx implements driver.ConnBeginTx.
func (c *StateConn) BeginTx(context.Context, driver.TxOptions) (driver.Tx, error) {
	if c.FailBegin {
		return nil, errors.New("testutil: begin refused")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending != nil {
		return nil, errors.New("testutil: transaction already open")
	}
	c.pending = make(map[string][]byte)
	return stateTx{conn: c}, nil
}

// ExecContext implements driver.ExecerContext.
func (c *StateConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statements = append(c.statements, query)
	switch classify(query) {
	case stmtCreateState:
		c.created = true
		return driver.RowsAffected(0), nil
	case stmtUpsertState:
		return c.upsert(args)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupported, query)
	}
}

func (c *StateConn) upsert(args []driver.NamedValue) (driver.Result, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("testutil: upsert wants 2 args, got %d", len(args))
	}
	bucket, ok := args[0].Value.(string)
	if !ok {
		return nil, fmt.Errorf("testutil: bucket must be text, got %T", args[0].Value)
	}
	payload, ok := args[1].Value.([]byte)
	if !ok {
		return nil, fmt.Errorf("testutil: payload must be bytes, got %T", args[1].Value)
	}
	if bucket == c.FailBucket {
		return nil, fmt.Errorf("testutil: upsert of %s refused", bucket)
	}
	target := c.buckets
	if c.pending != nil {
		target = c.pending
	}
	target[bucket] = append([]byte(nil), payload...)
	return driver.RowsAffected(1), nil
}

// QueryContext implements driver.QueryerContext.
func (c *StateConn) QueryContext(_ context.Context, query string, _ []driver.NamedValue) (driver.Rows, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statements = append(c.statements, query)
	if classify(query) != stmtSelectState {
		return nil, fmt.Errorf("%w: %q", ErrUnsupported, query)
	}
	names := make([]string, 0, len(c.buckets))
	for name := range c.buckets {
		names = append(names, name)
	}
	sort.Strings(names)
	rows := &stateRows{err: c.RowsErr}
	for _, name := range names {
		rows.rows = append(rows.rows, [2]driver.Value{name, append([]byte(nil), c.buckets[name]...)})
	}
	return rows, nil
}

type stateTx struct{ conn *StateConn }

func (t stateTx) Commit() error {
	c := t.conn
	c.mu.Lock()
	defer c.mu.Unlock()
	staged := c.pending
	c.pending = nil
	if c.FailCommit {
		return errors.New("testutil: commit refused")
	}
	for bucket, payload := range staged {
		c.buckets[bucket] = payload
	}
	return nil
}

func (t stateTx) Rollback() error {
	t.conn.mu.Lock()
	t.conn.pending = nil
	t.conn.mu.Unlock()
	return nil
}

type stateRows struct {
	rows [][2]driver.Value
	next int
	err  error
}

func (r *stateRows) Columns() []string { return []string{"bucket", "payload"} }
func (r *stateRows) Close() error      { return nil }

func (r *stateRows) Next(dest []driver.Value) error {
	if r.next >= len(r.rows) {
		if r.err != nil {
			return r.err
		}
		return io.EOF
	}
	dest[0], dest[1] = r.rows[r.next][0], r.rows[r.next][1]
	r.next++
	return nil
}
