package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
)

// fakeDB is a minimal database/sql driver: queries are answered from
// canned results matched by substring, execs are recorded.
type fakeDB struct {
	mu      sync.Mutex
	results map[string]fakeResult
	execs   []fakeCall
}

type fakeResult struct {
	cols []string
	rows [][]driver.Value
	err  error
}

type fakeCall struct {
	query string
	args  []driver.Value
}

func newFakeDB(t *testing.T) (*fakeDB, *sql.DB) {
	t.Helper()
	f := &fakeDB{results: make(map[string]fakeResult)}
	db := sql.OpenDB(f)
	t.Cleanup(func() { _ = db.Close() })
	return f, db
}

func (f *fakeDB) on(fragment string, r fakeResult) { f.results[fragment] = r }

func (f *fakeDB) Connect(context.Context) (driver.Conn, error) { return &fakeConn{f}, nil }
func (f *fakeDB) Driver() driver.Driver                        { return fakeDriver{f} }

type fakeDriver struct{ f *fakeDB }

func (d fakeDriver) Open(string) (driver.Conn, error) { return &fakeConn{d.f}, nil }

type fakeConn struct{ f *fakeDB }

func (c *fakeConn) Prepare(q string) (driver.Stmt, error) { return &fakeStmt{c.f, q}, nil }
func (c *fakeConn) Close() error                          { return nil }
func (c *fakeConn) Begin() (driver.Tx, error)             { return nil, errors.New("fake: no transactions") }

type fakeStmt struct {
	f *fakeDB
	q string
}

func (s *fakeStmt) Close() error  { return nil }
func (s *fakeStmt) NumInput() int { return -1 }

func (s *fakeStmt) Exec(args []driver.Value) (driver.Result, error) {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	s.f.execs = append(s.f.execs, fakeCall{query: s.q, args: args})
	return driver.RowsAffected(1), nil
}

func (s *fakeStmt) Query([]driver.Value) (driver.Rows, error) {
	for frag, r := range s.f.results {
		if strings.Contains(s.q, frag) {
			if r.err != nil {
				return nil, r.err
			}
			return &fakeRows{cols: r.cols, rows: r.rows}, nil
		}
	}
	return &fakeRows{}, nil
}

type fakeRows struct {
	cols []string
	rows [][]driver.Value
	i    int
}

func (r *fakeRows) Columns() []string { return r.cols }
func (r *fakeRows) Close() error      { return nil }

func (r *fakeRows) Next(dest []driver.Value) error {
	if r.i >= len(r.rows) {
		return io.EOF
	}
	copy(dest, r.rows[r.i])
	r.i++
	return nil
}
