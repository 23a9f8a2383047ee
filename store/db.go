package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"
)

const (
	driverPostgres = "postgres"
	driverSQLite   = "sqlite3"
)

// Open connects to the database named by dsn and verifies the connection.
//
// Postgres URLs (postgres://, postgresql://) use lib/pq. Everything else is
// treated as SQLite: sqlite:///relative.db, sqlite:////abs/path.db,
// sqlite:///:memory:, bare file paths and file: URIs.
func Open(ctx context.Context, dsn string, logger log.Logger) (*bun.DB, error) {
	driver, source, err := parseDSN(dsn)
	if err != nil {
		return nil, err
	}

	sqldb, err := sql.Open(driver, source)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}

	var dialect schema.Dialect
	switch driver {
	case driverPostgres:
		dialect = pgdialect.New()
	default:
		dialect = sqlitedialect.New()
		// SQLite allows a single writer, and every :memory: connection is a
		// separate database.
		sqldb.SetMaxOpenConns(1)
	}

	db := bun.NewDB(sqldb, dialect)
	if logger != nil {
		db.AddQueryHook(&queryLogger{logger: logger})
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect to %s database: %w", driver, err)
	}

	return db, nil
}

func parseDSN(dsn string) (driver, source string, err error) {
	dsn = strings.TrimSpace(dsn)
	switch {
	case dsn == "":
		return "", "", fmt.Errorf("database url is empty")
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return driverPostgres, dsn, nil
	case strings.HasPrefix(dsn, "sqlite://"):
		path := strings.TrimPrefix(dsn, "sqlite://")
		// sqlite:///students.db is relative, sqlite:////var/db/students.db is absolute.
		path = strings.TrimPrefix(path, "/")
		if path == "" {
			path = ":memory:"
		}
		return driverSQLite, path, nil
	default:
		return driverSQLite, dsn, nil
	}
}

// queryLogger is a bun.QueryHook that writes every query at debug level.
type queryLogger struct {
	logger log.Logger
}

func (h *queryLogger) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (h *queryLogger) AfterQuery(_ context.Context, event *bun.QueryEvent) {
	keyvals := []any{
		"msg", "query",
		"operation", event.Operation(),
		"duration", time.Since(event.StartTime),
		"query", event.Query,
	}
	if event.Err != nil && event.Err != sql.ErrNoRows {
		level.Warn(h.logger).Log(append(keyvals, "err", event.Err)...)
		return
	}
	level.Debug(h.logger).Log(keyvals...)
}
