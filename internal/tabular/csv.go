// Package tabular turns a CSV export into a typed table and encodes it as
// Parquet. Column types are inferred from the data the way an analytical
// engine's CSV sniffer does, and every column is nullable.
package tabular

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrEmptyInput is returned for a body with no header row.
	ErrEmptyInput = errors.New("csv input is empty")
	// ErrMalformedRow is returned when a record's field count differs from the header's.
	ErrMalformedRow = errors.New("malformed csv row")
)

// ColumnType is the inferred logical type of a column.
type ColumnType int

const (
	Bool ColumnType = iota
	Int64
	Double
	Timestamp
	String
)

func (t ColumnType) String() string {
	switch t {
	case Bool:
		return "BOOLEAN"
	case Int64:
		return "BIGINT"
	case Double:
		return "DOUBLE"
	case Timestamp:
		return "TIMESTAMP"
	default:
		return "VARCHAR"
	}
}

// Column is one named, typed column.
type Column struct {
	Name string
	Type ColumnType
}

// Table holds parsed rows. Each cell is nil (NULL) or a bool, int64, float64,
// time.Time in UTC, or string, matching its column's type.
type Table struct {
	Columns []Column
	Rows    [][]any
}

// NumRows returns the number of data rows.
func (t *Table) NumRows() int64 {
	return int64(len(t.Rows))
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ParseCSV reads a header row plus records and infers a type per column.
// Empty cells are NULL. A header with no records yields a zero-row table whose
// columns are all String.
func ParseCSV(body []byte) (*Table, error) {
	body = bytes.TrimPrefix(body, utf8BOM)
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, ErrEmptyInput
	}

	r := csv.NewReader(bytes.NewReader(body))

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	names := columnNames(header)

	var records [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if errors.Is(err, csv.ErrFieldCount) {
			return nil, fmt.Errorf("%w: %w", ErrMalformedRow, err)
		}
		if err != nil {
			return nil, fmt.Errorf("read csv record: %w", err)
		}
		records = append(records, rec)
	}

	cols := make([]Column, len(names))
	for i, name := range names {
		cols[i] = Column{Name: name, Type: inferColumn(records, i)}
	}

	rows := make([][]any, len(records))
	for ri, rec := range records {
		row := make([]any, len(cols))
		for ci, col := range cols {
			row[ci] = convert(rec[ci], col.Type)
		}
		rows[ri] = row
	}
	return &Table{Columns: cols, Rows: rows}, nil
}

// columnNames fills blank headers with positional names and suffixes repeats.
func columnNames(header []string) []string {
	used := make(map[string]bool, len(header))
	out := make([]string, len(header))
	for i, h := range header {
		base := strings.TrimSpace(h)
		if base == "" {
			base = fmt.Sprintf("column%02d", i)
		}
		name := base
		for n := 1; used[name]; n++ {
			name = fmt.Sprintf("%s_%d", base, n)
		}
		used[name] = true
		out[i] = name
	}
	return out
}

// inferColumn returns the narrowest type that every non-empty cell parses as.
// A column with no non-empty cells is String.
func inferColumn(records [][]string, col int) ColumnType {
	for candidate := Bool; candidate < String; candidate++ {
		nonEmpty := false
		fits := true
		for _, rec := range records {
			cell := rec[col]
			if cell == "" {
				continue
			}
			nonEmpty = true
			if !parses(cell, candidate) {
				fits = false
				break
			}
		}
		if !nonEmpty {
			return String
		}
		if fits {
			return candidate
		}
	}
	return String
}

func parses(cell string, t ColumnType) bool {
	switch t {
	case Bool:
		_, ok := parseBool(cell)
		return ok
	case Int64:
		_, err := strconv.ParseInt(cell, 10, 64)
		return err == nil
	case Double:
		_, err := strconv.ParseFloat(cell, 64)
		return err == nil
	case Timestamp:
		_, err := parseTimestamp(cell)
		return err == nil
	default:
		return true
	}
}

func parseBool(cell string) (bool, bool) {
	switch strings.ToLower(cell) {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return false, false
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

func parseTimestamp(cell string) (time.Time, error) {
	var firstErr error
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, cell)
		if err == nil {
			return t.UTC(), nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}

// convert parses a cell already known to fit t.
func convert(cell string, t ColumnType) any {
	if cell == "" {
		return nil
	}
	switch t {
	case Bool:
		b, _ := parseBool(cell)
		return b
	case Int64:
		n, _ := strconv.ParseInt(cell, 10, 64)
		return n
	case Double:
		f, _ := strconv.ParseFloat(cell, 64)
		return f
	case Timestamp:
		ts, _ := parseTimestamp(cell)
		return ts
	default:
		return cell
	}
}
