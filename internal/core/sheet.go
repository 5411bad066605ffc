package core

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

// zipMagic prefixes every XLSX file.
var zipMagic = []byte("PK\x03\x04")

var utf8BOM = []byte("\xEF\xBB\xBF")

// ReadSheet returns the cell grid of an uploaded spreadsheet. XLSX files are
// read from their first sheet; anything else is treated as CSV.
func ReadSheet(fileName string, data []byte) ([][]string, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrEmptySheet)
	}

	if bytes.HasPrefix(data, zipMagic) || strings.EqualFold(filepath.Ext(fileName), ".xlsx") {
		return readXLSX(data)
	}
	return readCSV(data)
}

func readXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableFile, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrEmptySheet)
	}

	// Raw values keep dates as serial numbers instead of locale formatted text.
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%w: read sheet %q: %v", ErrUnreadableFile, sheets[0], err)
	}
	return rows, nil
}

// readCSV returns one grid row per file line, starting at the header line.
// encoding/csv skips blank lines, so they are put back as empty rows to keep
// row numbers matching the file. A quoted field spanning several lines
// likewise leaves empty rows behind it.
func readCSV(data []byte) ([][]string, error) {
	data = sanitizeUTF8(bytes.TrimPrefix(data, utf8BOM))

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var (
		records    [][]string
		headerLine int
	)
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: invalid csv: %v", ErrUnreadableFile, err)
		}

		line, _ := r.FieldPos(0)
		if records == nil {
			headerLine = line
		}
		for len(records) < line-headerLine {
			records = append(records, nil)
		}
		records = append(records, record)
	}
	return records, nil
}

// sanitizeUTF8 replaces invalid byte sequences so a stray Latin-1 export
// still parses instead of failing the whole file.
func sanitizeUTF8(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}

	var buf bytes.Buffer
	buf.Grow(len(data))

	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			buf.WriteRune('\uFFFD')
			data = data[1:]
		} else {
			buf.WriteRune(r)
			data = data[size:]
		}
	}

	return buf.Bytes()
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
