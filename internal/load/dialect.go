package load

import (
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/csvetl/internal/table"
)

// dialect holds the per-engine SQL details the writers need.
type dialect struct {
	name  string
	quote func(ident string) string
	types map[table.Kind]string
	// placeholder returns the bind marker for the n-th parameter (1-based).
	placeholder func(n int) string
	// maxParams is the engine's bind-parameter limit per statement.
	maxParams int
	// bind converts a cell to the argument handed to the driver.
	bind func(v table.Value) any
}

// SQLite has no date type. Dates are stored as YYYY-MM-DD text, which
// sorts and compares in calendar order.
var sqliteDialect = dialect{
	name:  "sqlite",
	quote: quoteWith(`"`),
	types: map[table.Kind]string{
		table.KindText:    "TEXT",
		table.KindInteger: "INTEGER",
		table.KindFloat:   "REAL",
		table.KindDate:    "TEXT",
	},
	placeholder: func(int) string { return "?" },
	maxParams:   32766,
	bind:        bindDateAsText,
}

var mysqlDialect = dialect{
	name:  "mysql",
	quote: quoteWith("`"),
	types: map[table.Kind]string{
		table.KindText:    "TEXT",
		table.KindInteger: "BIGINT",
		table.KindFloat:   "DOUBLE",
		table.KindDate:    "DATE",
	},
	placeholder: func(int) string { return "?" },
	maxParams:   65535,
	bind:        bindDateAsText,
}

var postgresDialect = dialect{
	name:  "postgres",
	quote: func(ident string) string { return pgx.Identifier{ident}.Sanitize() },
	types: map[table.Kind]string{
		table.KindText:    "TEXT",
		table.KindInteger: "BIGINT",
		table.KindFloat:   "DOUBLE PRECISION",
		table.KindDate:    "DATE",
	},
	placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
	maxParams:   65535,
	bind:        func(v table.Value) any { return v },
}

// quoteWith wraps ident in q, doubling any q inside it.
func quoteWith(q string) func(string) string {
	return func(ident string) string {
		return q + strings.ReplaceAll(ident, q, q+q) + q
	}
}

// bindDateAsText writes dates as YYYY-MM-DD strings and passes every other
// value through.
func bindDateAsText(v table.Value) any {
	if d, ok := v.(pgtype.Date); ok {
		if !d.Valid {
			return nil
		}
		return d.Time.Format(table.DateLayout)
	}
	return v
}

func (d dialect) dropTableSQL(name string) string {
	return "DROP TABLE IF EXISTS " + d.quote(name)
}

func (d dialect) createTableSQL(name string, t *table.Table) string {
	var b strings.Builder
	b.WriteString("CREATE TABLE ")
	b.WriteString(d.quote(name))
	b.WriteString(" (")
	for i, c := range t.Columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(d.quote(c.Name))
		b.WriteByte(' ')
		b.WriteString(d.types[c.Kind])
	}
	b.WriteString(")")
	return b.String()
}

// rowsPerInsert returns how many rows fit in one INSERT given the batch size
// and the engine's parameter limit.
func (d dialect) rowsPerInsert(batchSize, columns int) int {
	n := batchSize
	if limit := d.maxParams / columns; limit < n {
		n = limit
	}
	if n < 1 {
		n = 1
	}
	return n
}

// insertSQL builds a multi-row INSERT for rows rows.
func (d dialect) insertSQL(name string, t *table.Table, rows int) string {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(d.quote(name))
	b.WriteString(" (")
	for i, c := range t.Columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(d.quote(c.Name))
	}
	b.WriteString(") VALUES ")

	n := 1
	for r := 0; r < rows; r++ {
		if r > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for c := range t.Columns {
			if c > 0 {
				b.WriteString(", ")
			}
			b.WriteString(d.placeholder(n))
			n++
		}
		b.WriteByte(')')
	}
	return b.String()
}
