// Package extract reads a comma-separated file into a table.Table.
//
// The first record is the header and supplies column names verbatim. Every
// following record must have exactly as many fields as the header. Cells are
// trimmed and an empty cell is null.
//
// Column types are inferred once per column after the whole file is read:
// integer if every non-null cell is an integer, float if every non-null cell
// is numeric, text otherwise. Dates are left as text.
package extract

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/JonMunkholm/csvetl/internal/logging"
	"github.com/JonMunkholm/csvetl/internal/table"
)

var (
	// ErrSourceNotFound means the path does not name a readable file.
	ErrSourceNotFound = errors.New("source not found")

	// ErrMalformedSource means the file is not a well-formed header + rows CSV.
	ErrMalformedSource = errors.New("malformed source")
)

// ContextCheckInterval is how often, in records, to check for cancellation.
var ContextCheckInterval = 1000

// Extract reads the CSV file at path.
func Extract(ctx context.Context, path string) (*table.Table, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceNotFound, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrSourceNotFound, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceNotFound, err)
	}
	defer f.Close()

	src, counter := wrapSource(f)

	t, err := Read(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	logging.FromContext(ctx).Debug("source read",
		"path", path,
		"bytes", counter.BytesRead,
		"rows", t.NumRows(),
		"columns", t.NumColumns(),
	)
	return t, nil
}

// Read parses CSV from r. It applies no BOM or encoding cleanup; Extract does
// that before calling Read.
func Read(ctx context.Context, r io.Reader) (*table.Table, error) {
	cr := csv.NewReader(r)
	// Field counts are checked below so the error can name both counts.
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: empty file, no header row", ErrMalformedSource)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrMalformedSource, err)
	}

	raw := make([][]string, len(header))
	for n := 0; ; n++ {
		if n%ContextCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedSource, err)
		}
		if len(record) != len(header) {
			line, _ := cr.FieldPos(0)
			return nil, fmt.Errorf("%w: line %d has %d fields, header has %d",
				ErrMalformedSource, line, len(record), len(header))
		}
		for i, cell := range record {
			raw[i] = append(raw[i], cell)
		}
	}

	t := &table.Table{Columns: make([]table.Column, len(header))}
	for i, name := range header {
		t.Columns[i] = buildColumn(name, raw[i])
	}
	return t, nil
}

// buildColumn infers the column kind and converts every cell to it.
func buildColumn(name string, cells []string) table.Column {
	kind := inferKind(cells)
	values := make([]table.Value, len(cells))
	for i, c := range cells {
		values[i] = table.Parse(kind, c)
	}
	return table.Column{Name: name, Kind: kind, Values: values}
}

// inferKind picks the narrowest kind every non-empty cell converts to.
// A column with no non-empty cells is text.
func inferKind(cells []string) table.Kind {
	allInt, allFloat, seen := true, true, false
	for _, c := range cells {
		if !table.ToPgText(c).Valid {
			continue
		}
		seen = true
		if allInt && !table.ToPgInt8(c).Valid {
			allInt = false
		}
		if !table.ToPgFloat8(c).Valid {
			allFloat = false
			break
		}
	}
	switch {
	case !seen:
		return table.KindText
	case allInt:
		return table.KindInteger
	case allFloat:
		return table.KindFloat
	default:
		return table.KindText
	}
}
