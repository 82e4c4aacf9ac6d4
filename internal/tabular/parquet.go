package tabular

import (
	"fmt"
	"io"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress"
)

// Codec maps a compression name to its Parquet codec. An empty name selects
// zstd, the same default the DuckDB engine applies.
func Codec(name string) (compress.Codec, error) {
	switch name {
	case "zstd", "":
		return &parquet.Zstd, nil
	case "snappy":
		return &parquet.Snappy, nil
	case "gzip":
		return &parquet.Gzip, nil
	case "uncompressed":
		return &parquet.Uncompressed, nil
	default:
		return nil, fmt.Errorf("unsupported parquet compression %q", name)
	}
}

// Schema returns the Parquet schema for t. Every column is optional.
// Parquet groups order their fields by name, so the file's column order is
// alphabetical rather than the CSV header order.
func Schema(t *Table) *parquet.Schema {
	group := make(parquet.Group, len(t.Columns))
	for _, c := range t.Columns {
		group[c.Name] = parquet.Optional(node(c.Type))
	}
	return parquet.NewSchema("earthquake", group)
}

func node(t ColumnType) parquet.Node {
	switch t {
	case Bool:
		return parquet.Leaf(parquet.BooleanType)
	case Int64:
		return parquet.Int(64)
	case Double:
		return parquet.Leaf(parquet.DoubleType)
	case Timestamp:
		return parquet.Timestamp(parquet.Millisecond)
	default:
		return parquet.String()
	}
}

// WriteParquet encodes t to w with the named compression codec. The footer is
// written before it returns, so w holds a complete file on success.
func WriteParquet(w io.Writer, t *Table, compression string) error {
	codec, err := Codec(compression)
	if err != nil {
		return err
	}
	schema := Schema(t)

	// Schema field order differs from table column order.
	fields := schema.Fields()
	source := make([]int, len(fields))
	byName := make(map[string]int, len(t.Columns))
	for i, c := range t.Columns {
		byName[c.Name] = i
	}
	for i, f := range fields {
		source[i] = byName[f.Name()]
	}

	pw := parquet.NewWriter(w, schema, parquet.Compression(codec))
	rows := make([]parquet.Row, len(t.Rows))
	for ri, cells := range t.Rows {
		row := make(parquet.Row, len(fields))
		for ci := range fields {
			row[ci] = value(cells[source[ci]], ci)
		}
		rows[ri] = row
	}
	if len(rows) > 0 {
		if _, err := pw.WriteRows(rows); err != nil {
			return fmt.Errorf("write parquet rows: %w", err)
		}
	}
	if err := pw.Close(); err != nil {
		return fmt.Errorf("close parquet writer: %w", err)
	}
	return nil
}

func value(cell any, column int) parquet.Value {
	var v parquet.Value
	switch c := cell.(type) {
	case nil:
		return parquet.NullValue().Level(0, 0, column)
	case bool:
		v = parquet.BooleanValue(c)
	case int64:
		v = parquet.Int64Value(c)
	case float64:
		v = parquet.DoubleValue(c)
	case time.Time:
		v = parquet.Int64Value(c.UnixMilli())
	case string:
		v = parquet.ByteArrayValue([]byte(c))
	default:
		v = parquet.ByteArrayValue([]byte(fmt.Sprint(c)))
	}
	return v.Level(0, 1, column)
}
