package core

// convert.go turns raw spreadsheet cells into typed member values.
//
// Cells arrive from two very different sources: CSV text typed by hand and
// raw XLSX cell values, where dates are stored as Excel serial day numbers.
// Both go through CleanCell first.

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/xuri/excelize/v2"
)

// Date layouts tried in order. ISO forms come first so they always win.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006/01/02",
	"2006.01.02",
	"1/2/2006", "01/02/2006", "1-2-2006", "01-02-2006",
	"Jan 2, 2006", "2 Jan 2006",
	"20060102",
}

// maxExcelSerial is 9999-12-31 in the 1900 date system.
const maxExcelSerial = 2958465

// minSerialDigits keeps bare years and day numbers ("2026", "31") from being
// read as serials. Five digits starts at 1927-05-18.
const minSerialDigits = 5

// ParseDate parses a calendar date from a cell. Besides the text layouts it
// accepts Excel serial day numbers as written by XLSX files. Slash and dash
// dates are read month first (3/31/2026).
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, fmt.Errorf("invalid date: empty value")
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DateOf(t), nil
		}
	}

	if isSerial(s) {
		if serial, err := strconv.ParseFloat(s, 64); err == nil && serial <= maxExcelSerial {
			if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
				return DateOf(t), nil
			}
		}
	}

	return Date{}, fmt.Errorf("invalid date %q (use YYYY-MM-DD)", s)
}

// isSerial reports whether s looks like an Excel serial: at least
// minSerialDigits digits, optionally followed by a fraction.
func isSerial(s string) bool {
	whole, frac, _ := strings.Cut(s, ".")
	if len(whole) < minSerialDigits {
		return false
	}
	for _, part := range []string{whole, frac} {
		for _, r := range part {
			if r < '0' || r > '9' {
				return false
			}
		}
	}
	return true
}

// HeaderIndex maps normalized column names to their position in a row.
type HeaderIndex map[string]int

// normalizeHeader makes header matching case- and whitespace-insensitive:
// " Member Number " and "membernumber" are the same column.
func normalizeHeader(s string) string {
	s = strings.ToLower(CleanCell(s))
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// MakeHeaderIndex builds a HeaderIndex from a header row. Blank header
// cells are skipped; when a name repeats, the first column wins.
func MakeHeaderIndex(header []string) HeaderIndex {
	idx := make(HeaderIndex, len(header))
	for i, h := range header {
		key := normalizeHeader(h)
		if key == "" {
			continue
		}
		if _, dup := idx[key]; !dup {
			idx[key] = i
		}
	}
	return idx
}

// Has reports whether the header contains the named column.
func (h HeaderIndex) Has(name Field) bool {
	_, ok := h[normalizeHeader(string(name))]
	return ok
}

// Cell returns the cleaned value of the named column in row, or "" when the
// column is absent or the row is short.
func (h HeaderIndex) Cell(row []string, name Field) string {
	i, ok := h[normalizeHeader(string(name))]
	if !ok || i >= len(row) {
		return ""
	}
	return CleanCell(row[i])
}

// CleanCell removes common spreadsheet artifacts from a cell value:
// surrounding whitespace, the Excel text-formula wrapper (="...") and
// surrounding quotes.
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	s = strings.Trim(s, `"'`)
	return strings.TrimSpace(s)
}

// optional returns nil for an empty cell.
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
