package load

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	_ "github.com/go-sql-driver/mysql" // registers "mysql"
	_ "github.com/mattn/go-sqlite3"    // registers "sqlite3"
	"github.com/xo/dburl"
)

// Target is a parsed destination identifier.
type Target struct {
	Driver string // database/sql driver name, or "postgres"
	DSN    string // driver-specific connection string
	Safe   string // identifier with any password removed, for logs
}

// ParseDestination resolves dest to a driver and DSN. A value without a
// scheme is a SQLite file path.
func ParseDestination(dest string) (Target, error) {
	dest = strings.TrimSpace(dest)
	if dest == "" {
		return Target{}, fmt.Errorf("destination is empty")
	}
	if isPlainPath(dest) {
		return Target{Driver: "sqlite3", DSN: dest, Safe: dest}, nil
	}

	u, err := dburl.Parse(dest)
	if err != nil {
		return Target{}, fmt.Errorf("parse destination: %w", err)
	}

	t := Target{Driver: u.Driver, DSN: u.DSN, Safe: u.URL.Redacted()}
	switch u.Driver {
	case "postgres", "pgx":
		t.Driver = "postgres"
	case "sqlite3", "mysql":
	default:
		return Target{}, fmt.Errorf("unsupported destination driver %q", u.Driver)
	}
	return t, nil
}

// isPlainPath reports whether dest has no URL scheme.
func isPlainPath(dest string) bool {
	if filepath.VolumeName(dest) != "" {
		return true
	}
	scheme, _, ok := strings.Cut(dest, ":")
	if !ok {
		return true
	}
	return strings.ContainsAny(scheme, `/\.`)
}

// Describe returns dest in a form safe to log.
func Describe(dest string) string {
	t, err := ParseDestination(dest)
	if err != nil {
		if isPlainPath(dest) {
			return dest
		}
		return "[unparseable destination]"
	}
	return t.Safe
}

// DriverOpener opens destinations through their native drivers.
type DriverOpener struct {
	opts Options
}

// Open implements Opener.
func (o *DriverOpener) Open(ctx context.Context, dest string) (Destination, error) {
	target, err := ParseDestination(dest)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, o.opts.ConnectTimeout)
	defer cancel()

	var d Destination
	switch target.Driver {
	case "postgres":
		pg, err := openPostgres(ctx, target.DSN, o.opts)
		if err != nil {
			return nil, err
		}
		d = pg
	case "sqlite3", "mysql":
		dl := sqliteDialect
		if target.Driver == "mysql" {
			dl = mysqlDialect
		}
		s, err := openSQL(ctx, target.Driver, target.DSN, dl, o.opts)
		if err != nil {
			return nil, err
		}
		d = s
	default:
		return nil, fmt.Errorf("unsupported destination driver %q", target.Driver)
	}
	return d, nil
}

// openSQL opens a database/sql handle and verifies it with a ping. A handle
// that fails the ping is closed before returning.
func openSQL(ctx context.Context, driver, dsn string, d dialect, opts Options) (*sqlDestination, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	// One writer, one connection.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return &sqlDestination{db: db, dialect: d, batchSize: opts.BatchSize}, nil
}
