package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	"catalog-be/internal/logger"

	_ "github.com/lib/pq"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"
)

type Kind string

const (
	KindMongo    Kind = "mongo"
	KindPostgres Kind = "postgres"
	KindMemory   Kind = "memory"
)

// KindOf picks the backend from the scheme of a connection string.
func KindOf(uri string) (Kind, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("invalid database url: %w", err)
	}

	switch strings.ToLower(u.Scheme) {
	case "mongodb", "mongodb+srv":
		return KindMongo, nil
	case "postgres", "postgresql":
		return KindPostgres, nil
	case "memory":
		return KindMemory, nil
	default:
		return "", fmt.Errorf("unsupported database scheme %q", u.Scheme)
	}
}

// Conn is an open handle to one of the supported backends. Only the fields
// matching Kind are set.
type Conn struct {
	Kind     Kind
	Client   *mongo.Client
	Database *mongo.Database
	SQL      *sql.DB
}

func (c *Conn) Close(ctx context.Context) error {
	switch {
	case c.Client != nil:
		return c.Client.Disconnect(ctx)
	case c.SQL != nil:
		return c.SQL.Close()
	}
	return nil
}

// Open connects to uri and verifies the connection with a ping.
func Open(ctx context.Context, uri, dbName string) (*Conn, error) {
	kind, err := KindOf(uri)
	if err != nil {
		return nil, err
	}

	switch kind {
	case KindMongo:
		return openMongo(ctx, uri, dbName)
	case KindPostgres:
		sqlDB, err := openSQLWithDriver(ctx, "postgres", uri)
		if err != nil {
			return nil, err
		}
		return &Conn{Kind: KindPostgres, SQL: sqlDB}, nil
	default:
		return &Conn{Kind: KindMemory}, nil
	}
}

func openMongo(ctx context.Context, uri, dbName string) (*Conn, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to DB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping DB: %w", err)
	}

	return &Conn{Kind: KindMongo, Client: client, Database: client.Database(dbName)}, nil
}

func openSQLWithDriver(ctx context.Context, driverName, dsn string) (*sql.DB, error) {
	sqlDB, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to DB: %w", err)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping DB: %w", err)
	}

	return sqlDB, nil
}

// Redact hides the password of a connection string for logging.
func Redact(uri string) string {
	u, err := url.Parse(uri)
	if err != nil || u.User == nil {
		return uri
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}

func logConnected(ctx context.Context, kind Kind, uri string) {
	logger.FromCtx(ctx).Info("Database connection established",
		zap.String("backend", string(kind)),
		zap.String("url", Redact(uri)),
	)
}
