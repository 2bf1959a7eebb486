package load

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/JonMunkholm/csvetl/internal/table"
)

// sqlDestination writes through database/sql (SQLite and MySQL).
type sqlDestination struct {
	db        *sql.DB
	dialect   dialect
	batchSize int
}

// Replace runs drop, create, and batched inserts in one transaction.
// MySQL commits DDL implicitly, so on MySQL a failure after the drop leaves
// the table dropped or partially filled.
func (d *sqlDestination) Replace(ctx context.Context, name string, t *table.Table) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() // No-op if already committed

	if _, err := tx.ExecContext(ctx, d.dialect.dropTableSQL(name)); err != nil {
		return fmt.Errorf("drop table: %w", err)
	}
	if _, err := tx.ExecContext(ctx, d.dialect.createTableSQL(name, t)); err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	if err := d.insertRows(ctx, tx, name, t); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// insertRows writes all rows with multi-row INSERT statements. Full-size
// batches share one prepared statement; the remainder gets its own.
func (d *sqlDestination) insertRows(ctx context.Context, tx *sql.Tx, name string, t *table.Table) error {
	total := t.NumRows()
	if total == 0 {
		return nil
	}

	per := d.dialect.rowsPerInsert(d.batchSize, t.NumColumns())
	var full *sql.Stmt
	if total >= per {
		stmt, err := tx.PrepareContext(ctx, d.dialect.insertSQL(name, t, per))
		if err != nil {
			return fmt.Errorf("prepare insert: %w", err)
		}
		defer stmt.Close()
		full = stmt
	}

	args := make([]any, 0, per*t.NumColumns())
	for start := 0; start < total; start += per {
		end := min(start+per, total)

		args = args[:0]
		for r := start; r < end; r++ {
			for _, c := range t.Columns {
				args = append(args, d.dialect.bind(c.Values[r]))
			}
		}

		var err error
		if end-start == per {
			_, err = full.ExecContext(ctx, args...)
		} else {
			_, err = tx.ExecContext(ctx, d.dialect.insertSQL(name, t, end-start), args...)
		}
		if err != nil {
			return fmt.Errorf("insert rows %d-%d: %w", start+1, end, err)
		}
	}
	return nil
}

// Close implements Destination.
func (d *sqlDestination) Close() error {
	return d.db.Close()
}
