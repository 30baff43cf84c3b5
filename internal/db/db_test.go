package db

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		uri     string
		want    Kind
		wantErr bool
	}{
		{"mongodb://localhost:27017", KindMongo, false},
		{"mongodb+srv://user:pw@cluster0.example.net/?retryWrites=true", KindMongo, false},
		{"postgres://u:p@localhost:5432/catalog?sslmode=disable", KindPostgres, false},
		{"postgresql://localhost/catalog", KindPostgres, false},
		{"memory://", KindMemory, false},
		{"mysql://localhost", "", true},
		{"://bad", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			got, err := KindOf(tt.uri)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRedact(t *testing.T) {
	assert.Equal(t, "postgres://app:xxxxx@db:5432/catalog", Redact("postgres://app:s3cret@db:5432/catalog"))
	assert.Equal(t, "mongodb://localhost:27017", Redact("mongodb://localhost:27017"))
	assert.Equal(t, "memory://", Redact("memory://"))
}

func TestOpen_Memory(t *testing.T) {
	c, err := Open(context.Background(), "memory://", "catalog")
	require.NoError(t, err)
	assert.Equal(t, KindMemory, c.Kind)
	assert.NoError(t, c.Close(context.Background()))
}

func TestOpen_UnsupportedScheme(t *testing.T) {
	c, err := Open(context.Background(), "redis://localhost", "catalog")
	assert.Error(t, err)
	assert.Nil(t, c)
}

// --- Mock Driver for the happy path of sql.Open and PingContext ---

type mockDriver struct{}

func (m *mockDriver) Open(name string) (driver.Conn, error) {
	return &mockConn{}, nil
}

type mockConn struct{}

func (c *mockConn) Prepare(query string) (driver.Stmt, error) { return &mockStmt{}, nil }
func (c *mockConn) Close() error                              { return nil }
func (c *mockConn) Begin() (driver.Tx, error)                 { return nil, nil }

type mockStmt struct{}

func (s *mockStmt) Close() error                                    { return nil }
func (s *mockStmt) NumInput() int                                   { return 0 }
func (s *mockStmt) Exec(args []driver.Value) (driver.Result, error) { return nil, nil }
func (s *mockStmt) Query(args []driver.Value) (driver.Rows, error)  { return nil, nil }

type failingDriver struct{}

func (f *failingDriver) Open(name string) (driver.Conn, error) {
	return nil, errors.New("connection refused")
}

func init() {
	sql.Register("mock_driver_success", &mockDriver{})
	sql.Register("mock_driver_failing", &failingDriver{})
}

func TestOpenSQLWithDriver(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		sqlDB, err := openSQLWithDriver(context.Background(), "mock_driver_success", "anything")
		require.NoError(t, err)
		assert.NotNil(t, sqlDB)
		_ = sqlDB.Close()
	})

	t.Run("Invalid driver", func(t *testing.T) {
		sqlDB, err := openSQLWithDriver(context.Background(), "invalid_driver_name", "")
		assert.Error(t, err)
		assert.Nil(t, sqlDB)
		assert.Contains(t, err.Error(), "failed to connect to DB")
	})

	t.Run("Ping failure", func(t *testing.T) {
		sqlDB, err := openSQLWithDriver(context.Background(), "mock_driver_failing", "")
		assert.Error(t, err)
		assert.Nil(t, sqlDB)
		assert.Contains(t, err.Error(), "failed to ping DB")
	})
}

func TestLazy_ConcurrentFirstUseOpensOnce(t *testing.T) {
	var calls int32
	release := make(chan struct{})

	lazy, err := NewLazy("memory://", "catalog", WithOpener(func(ctx context.Context, uri, name string) (*Conn, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return &Conn{Kind: KindMemory}, nil
	}))
	require.NoError(t, err)

	const callers = 16
	conns := make([]*Conn, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := lazy.Get(context.Background())
			assert.NoError(t, err)
			conns[i] = c
		}(i)
	}

	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	for _, c := range conns {
		assert.Same(t, conns[0], c)
	}
}

func TestLazy_FailureIsNotMemoized(t *testing.T) {
	var calls int32
	lazy, err := NewLazy("memory://", "catalog", WithOpener(func(ctx context.Context, uri, name string) (*Conn, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return nil, errors.New("failed to ping DB: timeout")
		}
		return &Conn{Kind: KindMemory}, nil
	}))
	require.NoError(t, err)

	_, err = lazy.Get(context.Background())
	assert.Error(t, err)

	c, err := lazy.Get(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, c)

	_, err = lazy.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestLazy_OnConnect(t *testing.T) {
	t.Run("Runs once", func(t *testing.T) {
		var hooks int32
		lazy, err := NewLazy("memory://", "catalog", WithOnConnect(func(ctx context.Context, c *Conn) error {
			atomic.AddInt32(&hooks, 1)
			return nil
		}))
		require.NoError(t, err)

		for i := 0; i < 3; i++ {
			_, err := lazy.Get(context.Background())
			require.NoError(t, err)
		}
		assert.Equal(t, int32(1), atomic.LoadInt32(&hooks))
	})

	t.Run("Error discards connection", func(t *testing.T) {
		lazy, err := NewLazy("memory://", "catalog", WithOnConnect(func(ctx context.Context, c *Conn) error {
			return errors.New("index build failed")
		}))
		require.NoError(t, err)

		c, err := lazy.Get(context.Background())
		assert.Nil(t, c)
		assert.ErrorContains(t, err, "failed to prepare DB")
	})
}

func TestLazy_CanceledCallerDoesNotAbortDial(t *testing.T) {
	lazy, err := NewLazy("memory://", "catalog", WithOpener(func(ctx context.Context, uri, name string) (*Conn, error) {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return &Conn{Kind: KindMemory}, nil
	}))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c, err := lazy.Get(ctx)
	require.NoError(t, err)
	assert.NotNil(t, c)
}

func TestLazy_WrongBackend(t *testing.T) {
	lazy, err := NewLazy("memory://", "catalog")
	require.NoError(t, err)
	assert.Equal(t, KindMemory, lazy.Kind())

	_, err = lazy.SQL(context.Background())
	assert.ErrorIs(t, err, ErrWrongBackend)

	_, err = lazy.Database(context.Background())
	assert.ErrorIs(t, err, ErrWrongBackend)
}

func TestLazy_SQLAndClose(t *testing.T) {
	lazy, err := NewLazy("postgres://localhost/catalog", "catalog", WithOpener(func(ctx context.Context, uri, name string) (*Conn, error) {
		sqlDB, err := openSQLWithDriver(ctx, "mock_driver_success", uri)
		if err != nil {
			return nil, err
		}
		return &Conn{Kind: KindPostgres, SQL: sqlDB}, nil
	}))
	require.NoError(t, err)

	sqlDB, err := lazy.SQL(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, sqlDB)

	assert.NoError(t, lazy.Close(context.Background()))
	assert.NoError(t, lazy.Close(context.Background()))
}

func TestNewLazy_InvalidURL(t *testing.T) {
	lazy, err := NewLazy("ftp://example", "catalog")
	assert.Error(t, err)
	assert.Nil(t, lazy)
}
