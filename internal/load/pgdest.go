package load

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/JonMunkholm/csvetl/internal/logging"
	"github.com/JonMunkholm/csvetl/internal/table"
)

// pgCloseTimeout bounds the graceful close of a Postgres connection.
const pgCloseTimeout = 5 * time.Second

// pgDestination writes to PostgreSQL over a single pgx connection.
// Rows go in with the COPY protocol; if COPY fails the rows are rolled back
// to a savepoint and inserted with batched INSERT statements instead.
type pgDestination struct {
	conn      *pgx.Conn
	batchSize int
}

func openPostgres(ctx context.Context, dsn string, opts Options) (*pgDestination, error) {
	cfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	cfg.ConnectTimeout = opts.ConnectTimeout

	conn, err := pgx.ConnectConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close(context.Background())
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &pgDestination{conn: conn, batchSize: opts.BatchSize}, nil
}

// Replace implements Destination. Postgres DDL is transactional, so a failed
// load leaves the previous table untouched.
func (d *pgDestination) Replace(ctx context.Context, name string, t *table.Table) error {
	tx, err := d.conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // No-op if already committed

	if _, err := tx.Exec(ctx, postgresDialect.dropTableSQL(name)); err != nil {
		return fmt.Errorf("drop table: %w", err)
	}
	if _, err := tx.Exec(ctx, postgresDialect.createTableSQL(name, t)); err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	if t.NumRows() > 0 {
		if err := d.copyRows(ctx, tx, name, t); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (d *pgDestination) copyRows(ctx context.Context, tx pgx.Tx, name string, t *table.Table) error {
	if _, err := tx.Exec(ctx, "SAVEPOINT copy_rows"); err != nil {
		return fmt.Errorf("savepoint: %w", err)
	}

	n, copyErr := tx.CopyFrom(ctx, pgx.Identifier{name}, t.Names(), &tableSource{t: t, row: -1})
	if copyErr == nil {
		if n != int64(t.NumRows()) {
			return fmt.Errorf("copy wrote %d of %d rows", n, t.NumRows())
		}
		_, err := tx.Exec(ctx, "RELEASE SAVEPOINT copy_rows")
		return err
	}

	logging.FromContext(ctx).Warn("COPY failed, falling back to INSERT", "table", name, "error", copyErr)
	if _, err := tx.Exec(ctx, "ROLLBACK TO SAVEPOINT copy_rows"); err != nil {
		return fmt.Errorf("rollback to savepoint: %w", err)
	}
	return d.insertRows(ctx, tx, name, t)
}

func (d *pgDestination) insertRows(ctx context.Context, tx pgx.Tx, name string, t *table.Table) error {
	per := postgresDialect.rowsPerInsert(d.batchSize, t.NumColumns())
	args := make([]any, 0, per*t.NumColumns())

	for start := 0; start < t.NumRows(); start += per {
		end := min(start+per, t.NumRows())

		args = args[:0]
		for r := start; r < end; r++ {
			for _, c := range t.Columns {
				args = append(args, postgresDialect.bind(c.Values[r]))
			}
		}
		if _, err := tx.Exec(ctx, postgresDialect.insertSQL(name, t, end-start), args...); err != nil {
			return fmt.Errorf("insert rows %d-%d: %w", start+1, end, err)
		}
	}
	return nil
}

// Close implements Destination.
func (d *pgDestination) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), pgCloseTimeout)
	defer cancel()
	return d.conn.Close(ctx)
}

// tableSource feeds table rows to CopyFrom. It implements pgx.CopyFromSource.
type tableSource struct {
	t   *table.Table
	row int
}

func (s *tableSource) Next() bool {
	s.row++
	return s.row < s.t.NumRows()
}

func (s *tableSource) Values() ([]any, error) {
	values := make([]any, s.t.NumColumns())
	for i, c := range s.t.Columns {
		values[i] = c.Values[s.row]
	}
	return values, nil
}

func (s *tableSource) Err() error {
	return nil
}
