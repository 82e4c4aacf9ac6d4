package tabular

import (
	"bytes"
	"fmt"
	"slices"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/format"
)

// FileInfo summarizes a Parquet file.
type FileInfo struct {
	Rows    int64
	Columns []string
	// Codecs lists each distinct column-chunk compression codec, sorted.
	Codecs []string
	Size   int64
}

// Inspect opens an in-memory Parquet file and reads its footer.
func Inspect(data []byte) (FileInfo, error) {
	f, err := parquet.OpenFile(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return FileInfo{}, fmt.Errorf("open parquet: %w", err)
	}

	info := FileInfo{Rows: f.NumRows(), Size: int64(len(data))}
	for _, field := range f.Schema().Fields() {
		info.Columns = append(info.Columns, field.Name())
	}
	for _, rg := range f.Metadata().RowGroups {
		for _, col := range rg.Columns {
			name := codecName(col.MetaData.Codec)
			if !slices.Contains(info.Codecs, name) {
				info.Codecs = append(info.Codecs, name)
			}
		}
	}
	slices.Sort(info.Codecs)
	return info, nil
}

func codecName(c format.CompressionCodec) string {
	switch c {
	case format.Uncompressed:
		return "uncompressed"
	case format.Snappy:
		return "snappy"
	case format.Gzip:
		return "gzip"
	case format.Zstd:
		return "zstd"
	default:
		return fmt.Sprintf("codec(%d)", c)
	}
}
