package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"golang.org/x/sync/singleflight"
)

var ErrWrongBackend = errors.New("database handle is not of the requested kind")

type OpenFunc func(ctx context.Context, uri, dbName string) (*Conn, error)

// Lazy is the process-wide connection handle. The first call to Get opens
// the connection; concurrent first callers share that single attempt. A
// successful connection is kept for the life of the process, a failed one
// is not, so the next caller tries again.
type Lazy struct {
	uri    string
	dbName string
	kind   Kind

	open      OpenFunc
	onConnect func(ctx context.Context, c *Conn) error

	group singleflight.Group
	mu    sync.RWMutex
	conn  *Conn
}

type Option func(*Lazy)

// WithOpener replaces the function used to dial the backend.
func WithOpener(open OpenFunc) Option {
	return func(l *Lazy) { l.open = open }
}

// WithOnConnect runs fn once after the connection is established, before it
// is handed to any caller. An error discards the connection.
func WithOnConnect(fn func(ctx context.Context, c *Conn) error) Option {
	return func(l *Lazy) { l.onConnect = fn }
}

func NewLazy(uri, dbName string, opts ...Option) (*Lazy, error) {
	kind, err := KindOf(uri)
	if err != nil {
		return nil, err
	}

	l := &Lazy{uri: uri, dbName: dbName, kind: kind, open: Open}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

func (l *Lazy) Kind() Kind {
	return l.kind
}

func (l *Lazy) Get(ctx context.Context) (*Conn, error) {
	l.mu.RLock()
	conn := l.conn
	l.mu.RUnlock()
	if conn != nil {
		return conn, nil
	}

	v, err, _ := l.group.Do("connect", func() (any, error) {
		l.mu.RLock()
		existing := l.conn
		l.mu.RUnlock()
		if existing != nil {
			return existing, nil
		}

		// The attempt is shared, so one caller giving up must not cancel it
		// for the others.
		dialCtx := context.WithoutCancel(ctx)

		c, err := l.open(dialCtx, l.uri, l.dbName)
		if err != nil {
			return nil, err
		}

		if l.onConnect != nil {
			if err := l.onConnect(dialCtx, c); err != nil {
				_ = c.Close(dialCtx)
				return nil, fmt.Errorf("failed to prepare DB: %w", err)
			}
		}

		logConnected(ctx, c.Kind, l.uri)

		l.mu.Lock()
		l.conn = c
		l.mu.Unlock()
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Conn), nil
}

// Database returns the mongo database, connecting on first use.
func (l *Lazy) Database(ctx context.Context) (*mongo.Database, error) {
	c, err := l.Get(ctx)
	if err != nil {
		return nil, err
	}
	if c.Database == nil {
		return nil, ErrWrongBackend
	}
	return c.Database, nil
}

// SQL returns the sql pool, connecting on first use.
func (l *Lazy) SQL(ctx context.Context) (*sql.DB, error) {
	c, err := l.Get(ctx)
	if err != nil {
		return nil, err
	}
	if c.SQL == nil {
		return nil, ErrWrongBackend
	}
	return c.SQL, nil
}

// Close releases the connection if one was opened.
func (l *Lazy) Close(ctx context.Context) error {
	l.mu.Lock()
	c := l.conn
	l.conn = nil
	l.mu.Unlock()

	if c == nil {
		return nil
	}
	return c.Close(ctx)
}

// StaticSQL serves an already opened pool, for commands and tests that
// manage the connection themselves.
type StaticSQL struct {
	DB *sql.DB
}

func (s StaticSQL) SQL(context.Context) (*sql.DB, error) {
	return s.DB, nil
}

// StaticMongo serves an already opened mongo database.
type StaticMongo struct {
	DB *mongo.Database
}

func (s StaticMongo) Database(context.Context) (*mongo.Database, error) {
	return s.DB, nil
}
