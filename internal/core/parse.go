package core

// parse.go is the schema validator: it turns raw upload bytes into a
// validated, ordered sequence of EquipmentRecord.
//
// Validation happens in three stages, each short-circuiting the next:
//  1. Upload preconditions: .csv extension and size cap, checked
//     before any byte of the body is parsed.
//  2. Header validation: exactly the five expected columns, in any
//     order.
//  3. Row validation: every data row is checked independently and ALL
//     failures are collected before a single RowErrors failure is
//     raised, so one upload attempt reports every broken row.
//
// A valid header with zero data rows is not an error here; Summarize
// rejects empty datasets. ParseCSV is a pure function of its input.

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

// ParseCSV validates raw CSV bytes and returns the records in original
// row order. maxSize caps the accepted byte length; pass
// MaxUploadSize unless configured otherwise.
func ParseCSV(raw []byte, filename string, maxSize int64) ([]EquipmentRecord, error) {
	if !strings.HasSuffix(strings.ToLower(filename), ".csv") {
		return nil, &InvalidUploadError{Filename: filename, Reason: "only .csv files are accepted"}
	}
	if int64(len(raw)) > maxSize {
		return nil, &InvalidUploadError{
			Filename: filename,
			Reason:   fmt.Sprintf("file size %d exceeds %d byte limit", len(raw), maxSize),
		}
	}

	rows, err := readAll(sanitizeUTF8(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableCSV, err)
	}
	if len(rows) == 0 {
		return nil, &SchemaError{Missing: Columns}
	}

	idx, err := validateHeader(rows[0])
	if err != nil {
		return nil, err
	}

	records := make([]EquipmentRecord, 0, len(rows)-1)
	var rowErrs RowErrors

	for i, row := range rows[1:] {
		line := i + 2 // header is line 1

		if isEmptyRow(row) {
			continue
		}

		rec, errs := parseRow(row, idx, line)
		if len(errs) > 0 {
			rowErrs = append(rowErrs, errs...)
			continue
		}
		records = append(records, rec)
	}

	if len(rowErrs) > 0 {
		return nil, rowErrs
	}
	return records, nil
}

// validateHeader checks that the header contains exactly the five
// expected columns (case-sensitive, any order) and returns a column
// name to position index.
func validateHeader(header []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	var unexpected []string
	for pos, cell := range header {
		name := cleanCell(cell)
		if _, want := expectedColumns[name]; !want {
			unexpected = append(unexpected, name)
			continue
		}
		if _, dup := idx[name]; dup {
			unexpected = append(unexpected, name)
			continue
		}
		idx[name] = pos
	}

	var missing []string
	for _, col := range Columns {
		if _, ok := idx[col]; !ok {
			missing = append(missing, col)
		}
	}

	if len(missing) > 0 || len(unexpected) > 0 {
		return nil, &SchemaError{Missing: missing, Unexpected: unexpected}
	}
	return idx, nil
}

var expectedColumns = func() map[string]struct{} {
	m := make(map[string]struct{}, len(Columns))
	for _, c := range Columns {
		m[c] = struct{}{}
	}
	return m
}()

// parseRow converts one data row into an EquipmentRecord, returning
// every validation failure in the row rather than just the first.
func parseRow(row []string, idx map[string]int, line int) (EquipmentRecord, []RowError) {
	var errs []RowError

	cell := func(col string) (string, bool) {
		pos := idx[col]
		if pos >= len(row) {
			errs = append(errs, RowError{Line: line, Field: col, Message: "missing value"})
			return "", false
		}
		return cleanCell(row[pos]), true
	}

	text := func(col string) string {
		v, ok := cell(col)
		if ok && v == "" {
			errs = append(errs, RowError{Line: line, Field: col, Message: "required field is empty"})
		}
		return v
	}

	number := func(col string) float64 {
		v, ok := cell(col)
		if !ok {
			return 0
		}
		if v == "" {
			errs = append(errs, RowError{Line: line, Field: col, Message: "required field is empty"})
			return 0
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			errs = append(errs, RowError{Line: line, Field: col, Value: v, Message: "not a finite number"})
			return 0
		}
		return f
	}

	rec := EquipmentRecord{
		Name:          text(ColName),
		EquipmentType: text(ColType),
		Flowrate:      number(ColFlowrate),
		Pressure:      number(ColPressure),
		Temperature:   number(ColTemperature),
	}
	if len(errs) > 0 {
		return EquipmentRecord{}, errs
	}
	return rec, nil
}

// readAll parses the whole input as CSV. Variable-width rows are
// tolerated at this stage; parseRow reports short rows per field.
func readAll(data []byte) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	return r.ReadAll()
}

// cleanCell trims whitespace and a UTF-8 BOM from a cell value.
func cleanCell(s string) string {
	s = strings.TrimPrefix(s, "\ufeff")
	return strings.TrimSpace(s)
}

// isEmptyRow reports whether every cell is blank. Fully blank lines
// are skipped rather than reported as errors.
func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// sanitizeUTF8 replaces invalid byte sequences with the Unicode
// replacement character so encoding/csv never chokes on mojibake.
func sanitizeUTF8(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}

	var buf bytes.Buffer
	buf.Grow(len(data))

	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			buf.WriteRune('\ufffd')
			data = data[1:]
		} else {
			buf.WriteRune(r)
			data = data[size:]
		}
	}

	return buf.Bytes()
}
