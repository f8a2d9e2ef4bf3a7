package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"gosim/internal/errors"
)

const (
	driverPostgres = "postgres"
	driverSQLite   = "sqlite"
)

func init() {
	sqlx.BindDriver(driverSQLite, sqlx.QUESTION)
}

// ParseURL picks the driver for a database URL. postgres:// and
// postgresql:// URLs go to lib/pq; sqlite://path, file: URIs and bare paths
// go to the embedded SQLite driver.
func ParseURL(url string) (driver, dsn string) {
	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return driverPostgres, url
	case strings.HasPrefix(url, "sqlite://"):
		return driverSQLite, strings.TrimPrefix(url, "sqlite://")
	default:
		return driverSQLite, url
	}
}

// Open connects to the database named by url and verifies the connection
func Open(ctx context.Context, url string, maxOpenConns int) (*sqlx.DB, error) {
	driver, dsn := ParseURL(url)
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, errors.DatabaseError("failed to open database", err)
	}

	if driver == driverSQLite {
		// one connection keeps :memory: databases shared and writes serialized
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(maxOpenConns)
		db.SetConnMaxIdleTime(5 * time.Minute)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.DatabaseError("failed to connect to database", err)
	}
	if driver == driverSQLite {
		if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, errors.DatabaseError("failed to enable foreign keys", err)
		}
	}
	return db, nil
}
