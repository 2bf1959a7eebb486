package table

// convert.go turns raw CSV text into typed cell values.
//
// All To* functions return pgtype values with Valid=false for empty or
// uncoercible input, so a failed coercion is indistinguishable from a
// missing value downstream.

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// DateLayout is the canonical rendering of a date value.
const DateLayout = "2006-01-02"

// numericRegex matches integers, decimals, and scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// integerRegex matches an optionally signed run of digits.
var integerRegex = regexp.MustCompile(`^[+-]?\d+$`)

// TwoDigitYearPivot defines how 2-digit years are interpreted.
// Years that would land more than this many years in the future are
// assumed to be in the previous century.
var TwoDigitYearPivot = 20

var (
	twoDigitYearLayouts = []string{
		"1/2/06", "01/02/06", "1-2-06", "1.2.06", "01.02.06",
	}
	fourDigitYearLayouts = []string{
		"2006-01-02", "2006/01/02", "2006.01.02",
		"1/2/2006", "01/02/2006", "1-2-2006", "01-02-2006", "1.2.2006", "01.02.2006",
		"Jan 2, 2006", "January 2, 2006", "2 Jan 2006", "2 January 2006",
		"20060102",
	}
	timestampLayouts = []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
		"2006-01-02 15:04:05Z07:00",
	}
)

// ToPgText converts a string to pgtype.Text.
// Returns invalid if the string is empty or only whitespace.
func ToPgText(s string) pgtype.Text {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: s, Valid: true}
}

// ToPgInt8 converts a string to pgtype.Int8.
func ToPgInt8(s string) pgtype.Int8 {
	s = strings.TrimSpace(s)
	if !integerRegex.MatchString(s) {
		return pgtype.Int8{Valid: false}
	}
	i, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return pgtype.Int8{Valid: false}
	}
	return pgtype.Int8{Int64: i, Valid: true}
}

// ToPgFloat8 converts a string to pgtype.Float8.
// Only plain numeric forms are accepted; "NaN" and "Inf" are rejected.
func ToPgFloat8(s string) pgtype.Float8 {
	s = strings.TrimSpace(s)
	if !numericRegex.MatchString(s) {
		return pgtype.Float8{Valid: false}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return pgtype.Float8{Valid: false}
	}
	return pgtype.Float8{Float64: f, Valid: true}
}

// ToPgDate converts a string to pgtype.Date.
// Supports multiple date formats, handles 2-digit years with a pivot, and
// truncates timestamps to their calendar day.
func ToPgDate(s string) pgtype.Date {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Date{Valid: false}
	}

	// 4-digit years first, they are unambiguous
	for _, layout := range fourDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return pgtype.Date{Time: t, Valid: true}
		}
	}

	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			y, m, d := t.Date()
			return pgtype.Date{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC), Valid: true}
		}
	}

	pivotYear := time.Now().Year() + TwoDigitYearPivot
	for _, layout := range twoDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			if t.Year() > pivotYear {
				t = t.AddDate(-100, 0, 0)
			}
			return pgtype.Date{Time: t, Valid: true}
		}
	}

	return pgtype.Date{Valid: false}
}

// Parse converts raw text to a value of the given kind.
func Parse(k Kind, s string) Value {
	switch k {
	case KindInteger:
		return ToPgInt8(s)
	case KindFloat:
		return ToPgFloat8(s)
	case KindDate:
		return ToPgDate(s)
	default:
		return ToPgText(s)
	}
}

// IsNull reports whether v is absent or holds SQL NULL.
func IsNull(v Value) bool {
	if v == nil {
		return true
	}
	dv, err := v.Value()
	return err != nil || dv == nil
}

// String renders a value as text. Null renders as "".
func String(v Value) string {
	if IsNull(v) {
		return ""
	}
	switch x := v.(type) {
	case pgtype.Text:
		return x.String
	case pgtype.Int8:
		return strconv.FormatInt(x.Int64, 10)
	case pgtype.Float8:
		return strconv.FormatFloat(x.Float64, 'f', -1, 64)
	case pgtype.Date:
		return x.Time.Format(DateLayout)
	}
	dv, _ := v.Value()
	switch x := dv.(type) {
	case string:
		return x
	case time.Time:
		return x.Format(time.RFC3339)
	}
	return fmt.Sprint(dv)
}
