package extract

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/JonMunkholm/csvetl/internal/table"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestExtract_HeaderVerbatim(t *testing.T) {
	path := writeCSV(t, "Order ID, Order Date, Amount\n1, 2024-02-01, 9.99\n2, 2023-05-01, 3.00\n3, 2024-03-01, \n")

	tbl, err := Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	want := []string{"Order ID", " Order Date", " Amount"}
	if diff := cmp.Diff(want, tbl.Names()); diff != "" {
		t.Errorf("Names() mismatch (-want +got):\n%s", diff)
	}
	if tbl.NumRows() != 3 {
		t.Errorf("NumRows() = %d, want 3", tbl.NumRows())
	}
	if err := tbl.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestExtract_TypeInference(t *testing.T) {
	path := writeCSV(t, "id,amount,label,when,blank\n1,9.99,a,2024-01-01,\n2,3,b,2024-01-02,\n")

	tbl, err := Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	kinds := map[string]table.Kind{
		"id":     table.KindInteger,
		"amount": table.KindFloat,
		"label":  table.KindText,
		"when":   table.KindText,
		"blank":  table.KindText,
	}
	for _, c := range tbl.Columns {
		if c.Kind != kinds[c.Name] {
			t.Errorf("column %q kind = %v, want %v", c.Name, c.Kind, kinds[c.Name])
		}
	}
	if got := table.String(tbl.Columns[1].Values[1]); got != "3" {
		t.Errorf("amount[1] = %q, want 3", got)
	}
}

func TestExtract_EmptyCellsAreNull(t *testing.T) {
	path := writeCSV(t, "a,b\n1,\n, x \n")

	tbl, err := Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if !table.IsNull(tbl.Columns[1].Values[0]) {
		t.Error("empty cell should be null")
	}
	if !table.IsNull(tbl.Columns[0].Values[1]) {
		t.Error("empty integer cell should be null")
	}
	if got := table.String(tbl.Columns[1].Values[1]); got != "x" {
		t.Errorf("trimmed cell = %q, want x", got)
	}
}

func TestExtract_HeaderOnly(t *testing.T) {
	path := writeCSV(t, "a,b\n")

	tbl, err := Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if tbl.NumColumns() != 2 || tbl.NumRows() != 0 {
		t.Errorf("got %d columns / %d rows, want 2 / 0", tbl.NumColumns(), tbl.NumRows())
	}
}

func TestExtract_BOMAndQuotes(t *testing.T) {
	path := writeCSV(t, "\xEF\xBB\xBFname,note\n\"Smith, J\",\"said \"\"hi\"\"\"\n")

	tbl, err := Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if tbl.Columns[0].Name != "name" {
		t.Errorf("first column = %q, want name (BOM stripped)", tbl.Columns[0].Name)
	}
	if got := table.String(tbl.Columns[0].Values[0]); got != "Smith, J" {
		t.Errorf("quoted cell = %q", got)
	}
	if got := table.String(tbl.Columns[1].Values[0]); got != `said "hi"` {
		t.Errorf("escaped quotes = %q", got)
	}
}

func TestExtract_SourceNotFound(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{"missing file", filepath.Join(t.TempDir(), "nope.csv")},
		{"directory", t.TempDir()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Extract(context.Background(), tt.path)
			if !errors.Is(err, ErrSourceNotFound) {
				t.Errorf("Extract() error = %v, want ErrSourceNotFound", err)
			}
		})
	}
}

func TestExtract_MalformedSource(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantMsg string
	}{
		{"empty file", "", "no header"},
		{"short row", "a,b,c\n1,2,3\n4,5\n", "line 3 has 2 fields, header has 3"},
		{"long row", "a,b\n1,2,3\n", "line 2 has 3 fields, header has 2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Extract(context.Background(), writeCSV(t, tt.content))
			if !errors.Is(err, ErrMalformedSource) {
				t.Fatalf("Extract() error = %v, want ErrMalformedSource", err)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q does not mention %q", err, tt.wantMsg)
			}
		})
	}
}

func TestExtract_DoesNotModifyFile(t *testing.T) {
	content := "a,b\n1,2\n"
	path := writeCSV(t, content)

	if _, err := Extract(context.Background(), path); err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(got) != content {
		t.Errorf("file changed: %q", got)
	}
}

func TestRead_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Read(ctx, strings.NewReader("a\n1\n"))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Read() error = %v, want context.Canceled", err)
	}
}

func TestInferKind(t *testing.T) {
	tests := []struct {
		name  string
		cells []string
		want  table.Kind
	}{
		{"all ints", []string{"1", "2", "-3"}, table.KindInteger},
		{"ints with blanks", []string{"1", "", "3"}, table.KindInteger},
		{"mixed numeric", []string{"1", "2.5"}, table.KindFloat},
		{"text wins", []string{"1", "x"}, table.KindText},
		{"all blank", []string{"", " "}, table.KindText},
		{"no cells", nil, table.KindText},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := inferKind(tt.cells); got != tt.want {
				t.Errorf("inferKind(%q) = %v, want %v", tt.cells, got, tt.want)
			}
		})
	}
}
