// Package transform cleans an extracted table before it is loaded.
//
// Steps run in order, each producing a new table:
//
//  1. Column names are trimmed, lower-cased, and internal spaces become
//     underscores.
//  2. Rows with a null in any column are dropped.
//  3. If the date column exists (order_date by default), its values are
//     coerced to dates. Unparseable values become null and their rows are
//     dropped, then rows before the cutoff are dropped. The cutoff day itself
//     is kept.
//
// The input table is never modified.
package transform

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/csvetl/internal/table"
)

// ErrDuplicateColumn is returned under OnDuplicateFail when two columns
// normalize to the same name.
var ErrDuplicateColumn = errors.New("duplicate column")

// DefaultDateColumn is the column the recency filter looks for.
const DefaultDateColumn = "order_date"

// DefaultCutoff is the earliest date kept by the recency filter.
var DefaultCutoff = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// DuplicatePolicy decides what happens when normalized names collide.
type DuplicatePolicy string

const (
	// OnDuplicateLastWins keeps one column per name; the later column's
	// values replace the earlier one's, at the earlier position.
	OnDuplicateLastWins DuplicatePolicy = "last_wins"

	// OnDuplicateFail rejects the table with ErrDuplicateColumn.
	OnDuplicateFail DuplicatePolicy = "fail"
)

// ParseDuplicatePolicy validates a policy name.
func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	switch p := DuplicatePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case OnDuplicateLastWins, OnDuplicateFail:
		return p, nil
	case "":
		return OnDuplicateLastWins, nil
	default:
		return "", fmt.Errorf("unknown duplicate column policy %q (want %s or %s)", s, OnDuplicateLastWins, OnDuplicateFail)
	}
}

// Options configures Apply. The zero value uses the defaults.
type Options struct {
	DateColumn  string
	Cutoff      time.Time
	OnDuplicate DuplicatePolicy
}

func (o Options) withDefaults() Options {
	if o.DateColumn == "" {
		o.DateColumn = DefaultDateColumn
	}
	if o.Cutoff.IsZero() {
		o.Cutoff = DefaultCutoff
	}
	if o.OnDuplicate == "" {
		o.OnDuplicate = OnDuplicateLastWins
	}
	return o
}

// Summary describes what Apply did.
type Summary struct {
	InputRows      int
	OutputRows     int
	NullDropped    int
	DateFiltered   bool
	DateDropped    int
	DuplicateNames []string
}

// Transform applies all steps with default options. It cannot fail: the
// default duplicate policy never rejects a table.
func Transform(t *table.Table) *table.Table {
	out, _, _ := Apply(t, Options{})
	return out
}

// Apply runs the transformation steps on a copy of t.
func Apply(t *table.Table, opts Options) (*table.Table, Summary, error) {
	opts = opts.withDefaults()
	sum := Summary{InputRows: t.NumRows()}

	out, dups, err := normalizeColumns(t.Clone(), opts.OnDuplicate)
	if err != nil {
		return nil, sum, err
	}
	sum.DuplicateNames = dups

	before := out.NumRows()
	out = dropNullRows(out)
	sum.NullDropped = before - out.NumRows()

	if idx := out.Index(opts.DateColumn); idx >= 0 {
		sum.DateFiltered = true
		before = out.NumRows()
		out = filterRecent(out, idx, opts.Cutoff)
		sum.DateDropped = before - out.NumRows()
	}

	sum.OutputRows = out.NumRows()
	return out, sum, nil
}

// NormalizeColumnName trims, lower-cases, and replaces spaces with
// underscores: " Order ID " becomes "order_id".
func NormalizeColumnName(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}

// normalizeColumns renames columns in place on t, which must already be a
// copy. It returns the names that collided.
func normalizeColumns(t *table.Table, policy DuplicatePolicy) (*table.Table, []string, error) {
	pos := make(map[string]int, len(t.Columns))
	cols := make([]table.Column, 0, len(t.Columns))
	var dups []string

	for _, c := range t.Columns {
		original := c.Name
		c.Name = NormalizeColumnName(c.Name)

		i, seen := pos[c.Name]
		if !seen {
			pos[c.Name] = len(cols)
			cols = append(cols, c)
			continue
		}

		if policy == OnDuplicateFail {
			return nil, nil, fmt.Errorf("%w: %q and %q both normalize to %q",
				ErrDuplicateColumn, t.Columns[i].Name, original, c.Name)
		}
		dups = append(dups, c.Name)
		cols[i] = c
	}

	t.Columns = cols
	return t, dups, nil
}

// dropNullRows keeps rows with no null in any column.
func dropNullRows(t *table.Table) *table.Table {
	return t.Filter(func(row int) bool {
		for _, c := range t.Columns {
			if table.IsNull(c.Values[row]) {
				return false
			}
		}
		return true
	})
}

// filterRecent coerces column idx to dates and keeps rows on or after cutoff.
func filterRecent(t *table.Table, idx int, cutoff time.Time) *table.Table {
	col := &t.Columns[idx]
	dates := make([]table.Value, len(col.Values))
	for i, v := range col.Values {
		dates[i] = toDate(v)
	}
	col.Values = dates
	col.Kind = table.KindDate

	cutoffDay := truncateDay(cutoff)
	return t.Filter(func(row int) bool {
		d, ok := dates[row].(pgtype.Date)
		if !ok || !d.Valid || d.InfinityModifier != pgtype.Finite {
			return false
		}
		return !truncateDay(d.Time).Before(cutoffDay)
	})
}

// toDate coerces any cell to pgtype.Date. Cells that are already dates pass
// through; everything else is parsed from its text form.
func toDate(v table.Value) table.Value {
	if d, ok := v.(pgtype.Date); ok {
		return d
	}
	return table.ToPgDate(table.String(v))
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
