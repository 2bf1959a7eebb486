package transform

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/JonMunkholm/csvetl/internal/extract"
	"github.com/JonMunkholm/csvetl/internal/table"
)

// build reads CSV text through the extractor so fixtures get real inference.
func build(t *testing.T, csv string) *table.Table {
	t.Helper()
	tbl, err := extract.Read(t.Context(), strings.NewReader(csv))
	if err != nil {
		t.Fatalf("extract.Read() error = %v", err)
	}
	return tbl
}

// ============================================================================
// Column name normalization
// ============================================================================

func TestNormalizeColumnName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{" Order ID ", "order_id"},
		{"Order Date", "order_date"},
		{"AMOUNT", "amount"},
		{"already_clean", "already_clean"},
		{"\tCustomer  Name\n", "customer__name"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeColumnName(tt.input); got != tt.want {
			t.Errorf("NormalizeColumnName(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestApply_DuplicateLastWins(t *testing.T) {
	in := build(t, "Name,x,NAME\nfirst,1,second\n")

	out, sum, err := Apply(in, Options{})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if diff := cmp.Diff([]string{"name", "x"}, out.Names()); diff != "" {
		t.Errorf("Names() mismatch (-want +got):\n%s", diff)
	}
	if got := table.String(out.Columns[0].Values[0]); got != "second" {
		t.Errorf("name = %q, want second (later column wins)", got)
	}
	if diff := cmp.Diff([]string{"name"}, sum.DuplicateNames); diff != "" {
		t.Errorf("DuplicateNames mismatch (-want +got):\n%s", diff)
	}
}

func TestApply_DuplicateFail(t *testing.T) {
	in := build(t, "Order Date,order_date\n2024-01-01,2024-01-02\n")

	_, _, err := Apply(in, Options{OnDuplicate: OnDuplicateFail})
	if !errors.Is(err, ErrDuplicateColumn) {
		t.Fatalf("Apply() error = %v, want ErrDuplicateColumn", err)
	}
	if !strings.Contains(err.Error(), `"Order Date"`) {
		t.Errorf("error %q should name the original column", err)
	}
}

func TestParseDuplicatePolicy(t *testing.T) {
	tests := []struct {
		input   string
		want    DuplicatePolicy
		wantErr bool
	}{
		{"last_wins", OnDuplicateLastWins, false},
		{"FAIL", OnDuplicateFail, false},
		{"", OnDuplicateLastWins, false},
		{"first_wins", "", true},
	}
	for _, tt := range tests {
		got, err := ParseDuplicatePolicy(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseDuplicatePolicy(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseDuplicatePolicy(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

// ============================================================================
// Null filtering
// ============================================================================

func TestApply_NullFilteringCompleteness(t *testing.T) {
	in := build(t, "a,b,c\n1,x,2.5\n,y,1\n3,,1\n4,z,\n5,w,0\n")

	out, sum, err := Apply(in, Options{})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	for _, c := range out.Columns {
		for i, v := range c.Values {
			if table.IsNull(v) {
				t.Errorf("column %q row %d is null after filtering", c.Name, i)
			}
		}
	}
	if want := "a,b,c\n1,x,2.5\n5,w,0"; out.String() != want {
		t.Errorf("output = %q, want %q", out.String(), want)
	}
	if sum.NullDropped != 3 {
		t.Errorf("NullDropped = %d, want 3", sum.NullDropped)
	}
}

// ============================================================================
// Recency filter
// ============================================================================

func TestApply_RecencyBoundary(t *testing.T) {
	in := build(t, "id,order_date\n1,2024-01-01\n2,2023-12-31\n3,not a date\n4,2024-06-30\n5,2023-12-31 23:59:59\n")

	out, sum, err := Apply(in, Options{})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	if want := "id,order_date\n1,2024-01-01\n4,2024-06-30"; out.String() != want {
		t.Errorf("output = %q, want %q", out.String(), want)
	}
	if !sum.DateFiltered || sum.DateDropped != 3 {
		t.Errorf("summary = %+v, want DateFiltered with 3 dropped", sum)
	}
	if kind := out.Columns[out.Index("order_date")].Kind; kind != table.KindDate {
		t.Errorf("order_date kind = %v, want date", kind)
	}
}

func TestApply_CustomCutoffAndColumn(t *testing.T) {
	in := build(t, "id,Shipped On\n1,2022-05-01\n2,2021-01-01\n")

	out, _, err := Apply(in, Options{
		DateColumn: "shipped_on",
		Cutoff:     time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if out.NumRows() != 1 {
		t.Errorf("rows = %d, want 1", out.NumRows())
	}
}

func TestApply_IntegerDateColumn(t *testing.T) {
	// A compact date column is inferred as integer by the extractor.
	in := build(t, "order_date\n20240102\n20231231\n")

	out := Transform(in)
	if want := "order_date\n2024-01-02"; out.String() != want {
		t.Errorf("output = %q, want %q", out.String(), want)
	}
}

func TestApply_NoDateColumnKeepsRows(t *testing.T) {
	in := build(t, "Id,Created\n1,1999-01-01\n2,2000-01-01\n")

	out, sum, err := Apply(in, Options{})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if out.NumRows() != 2 {
		t.Errorf("rows = %d, want 2", out.NumRows())
	}
	if sum.DateFiltered {
		t.Error("DateFiltered = true without an order_date column")
	}
	if out.Columns[1].Kind != table.KindText {
		t.Errorf("created kind = %v, want text (no coercion)", out.Columns[1].Kind)
	}
}

func TestApply_ExactNameOnly(t *testing.T) {
	// "order date" normalizes to order_date; "orderdate" does not.
	in := build(t, "orderdate\n1999-01-01\n")
	if out := Transform(in); out.NumRows() != 1 {
		t.Errorf("rows = %d, want 1", out.NumRows())
	}
}

// ============================================================================
// Purity
// ============================================================================

func TestTransform_DoesNotMutateInput(t *testing.T) {
	in := build(t, " Order ID ,Order Date\n1,2020-01-01\n2,\n")
	snapshot := in.String()
	kinds := []table.Kind{in.Columns[0].Kind, in.Columns[1].Kind}

	_ = Transform(in)

	if in.String() != snapshot {
		t.Errorf("input changed:\n got %q\nwant %q", in.String(), snapshot)
	}
	if in.Columns[0].Kind != kinds[0] || in.Columns[1].Kind != kinds[1] {
		t.Error("input column kinds changed")
	}
	if in.NumRows() != 2 {
		t.Errorf("input rows = %d, want 2", in.NumRows())
	}
}

func TestTransform_EndToEndScenario(t *testing.T) {
	in := build(t, "Order ID, Order Date, Amount\n1, 2024-02-01, 9.99\n2, 2023-05-01, 3.00\n3, 2024-03-01, \n")

	out, sum, err := Apply(in, Options{})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	if diff := cmp.Diff([]string{"order_id", "order_date", "amount"}, out.Names()); diff != "" {
		t.Errorf("Names() mismatch (-want +got):\n%s", diff)
	}
	if want := "order_id,order_date,amount\n1,2024-02-01,9.99"; out.String() != want {
		t.Errorf("output = %q, want %q", out.String(), want)
	}
	if sum.NullDropped != 1 || sum.DateDropped != 1 {
		t.Errorf("summary = %+v, want 1 null drop and 1 date drop", sum)
	}
}

func TestTransform_EmptyTable(t *testing.T) {
	out := Transform(build(t, "Order Date\n"))
	if out.NumRows() != 0 || out.Names()[0] != "order_date" {
		t.Errorf("got %q", out.String())
	}
}
