package db

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"sync"
	"testing"
	"time"
)

type nopDriver struct{}

func (d nopDriver) Open(name string) (driver.Conn, error) {
	return nopConn{}, nil
}

type nopConn struct{}

func (nopConn) Prepare(query string) (driver.Stmt, error) { return nopStmt{}, nil }
func (nopConn) Close() error                              { return nil }
func (nopConn) Begin() (driver.Tx, error)                 { return nopTx{}, nil }
func (nopConn) Ping(ctx context.Context) error            { return nil }

type nopStmt struct{}

func (nopStmt) Close() error                                   { return nil }
func (nopStmt) NumInput() int                                  { return -1 }
func (nopStmt) Exec(args []driver.Value) (driver.Result, error) { return nopResult{}, nil }
func (nopStmt) Query(args []driver.Value) (driver.Rows, error)  { return nopRows{}, nil }

type nopTx struct{}

func (nopTx) Commit() error   { return nil }
func (nopTx) Rollback() error { return nil }

type nopResult struct{}

func (nopResult) LastInsertId() (int64, error) { return 0, nil }
func (nopResult) RowsAffected() (int64, error) { return 0, nil }

type nopRows struct{}

func (nopRows) Columns() []string              { return []string{} }
func (nopRows) Close() error                   { return nil }
func (nopRows) Next(dest []driver.Value) error { return driver.ErrBadConn }

var registerTestDriverOnce sync.Once

func ensureTestDriverRegistered() {
	registerTestDriverOnce.Do(func() {
		sql.Register("dbtest", nopDriver{})
	})
}

func withTestDriver(t *testing.T) func() {
	t.Helper()
	ensureTestDriverRegistered()
	prev := openDB
	openDB = func(name, dsn string) (*sql.DB, error) {
		return sql.Open("dbtest", dsn)
	}
	return func() {
		openDB = prev
	}
}

func resetShared(t *testing.T) {
	t.Helper()
	shared.mu.Lock()
	shared.conn = nil
	shared.mu.Unlock()
	t.Cleanup(func() {
		shared.mu.Lock()
		shared.conn = nil
		shared.mu.Unlock()
	})
}

func TestSharedReusesPool(t *testing.T) {
	restore := withTestDriver(t)
	defer restore()
	resetShared(t)

	first, err := Shared(context.Background(), "postgres://ignored", OptionsFor(ProfileLambda))
	if err != nil {
		t.Fatalf("Shared first: %v", err)
	}
	second, err := Shared(context.Background(), "postgres://ignored", OptionsFor(ProfileLambda))
	if err != nil {
		t.Fatalf("Shared second: %v", err)
	}
	if first != second {
		t.Fatalf("expected the same pool")
	}
	if got := first.Stats().MaxOpenConnections; got != 2 {
		t.Fatalf("expected lambda pool of 2, got %d", got)
	}
}

func TestSharedRetriesAfterFailure(t *testing.T) {
	ensureTestDriverRegistered()
	resetShared(t)
	attempts := 0
	prev := openDB
	openDB = func(name, dsn string) (*sql.DB, error) {
		attempts++
		if attempts == 1 {
			return nil, driver.ErrBadConn
		}
		return sql.Open("dbtest", dsn)
	}
	defer func() { openDB = prev }()

	if _, err := Shared(context.Background(), "postgres://ignored", OptionsFor(ProfileServer)); err == nil {
		t.Fatalf("expected first connect to fail")
	}
	conn, err := Shared(context.Background(), "postgres://ignored", OptionsFor(ProfileServer))
	if err != nil || conn == nil {
		t.Fatalf("expected retry to connect, got %v", err)
	}
}

func TestOptionsForAppliesEnvOverrides(t *testing.T) {
	restore := withTestDriver(t)
	defer restore()

	t.Setenv("DB_MAX_OPEN_CONNS", "7")
	t.Setenv("DB_MAX_IDLE_CONNS", "3")
	t.Setenv("DB_CONN_MAX_LIFETIME", "20m")
	t.Setenv("DB_CONN_MAX_IDLE_TIME", "45s")
	t.Setenv("DB_PING_TIMEOUT", "1s")

	opts := OptionsFor(ProfileCLI)
	conn, err := Connect(context.Background(), "postgres://ignored", opts)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer conn.Close()

	if got := conn.Stats().MaxOpenConnections; got != 7 {
		t.Fatalf("expected MaxOpenConnections=7, got %d", got)
	}
	want := Options{MaxOpenConns: 7, MaxIdleConns: 3, ConnMaxLifetime: 20 * time.Minute, ConnMaxIdleTime: 45 * time.Second, PingTimeout: time.Second}
	if opts != want {
		t.Fatalf("OptionsFor = %+v, want %+v", opts, want)
	}
}

func TestOptionsForIgnoresInvalidEnv(t *testing.T) {
	t.Setenv("DB_MAX_OPEN_CONNS", "-1")
	t.Setenv("DB_PING_TIMEOUT", "soon")
	opts := OptionsFor(ProfileServer)
	if opts.MaxOpenConns != 10 || opts.PingTimeout != 5*time.Second {
		t.Fatalf("expected server defaults, got %+v", opts)
	}
	if got := OptionsFor(Profile("unknown")); got.MaxOpenConns != 10 {
		t.Fatalf("unknown profile should fall back to server, got %+v", got)
	}
}

func TestConnectRequiresURL(t *testing.T) {
	if _, err := Connect(context.Background(), " ", OptionsFor(ProfileCLI)); err == nil {
		t.Fatalf("expected error for empty url")
	}
}
