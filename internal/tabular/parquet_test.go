package tabular

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/format"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encode(t *testing.T, body, compression string) *bytes.Reader {
	t.Helper()
	tbl, err := ParseCSV([]byte(body))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteParquet(&buf, tbl, compression))
	return bytes.NewReader(buf.Bytes())
}

func fieldIndex(t *testing.T, f *parquet.File) map[string]int {
	t.Helper()
	idx := make(map[string]int)
	for i, field := range f.Schema().Fields() {
		idx[field.Name()] = i
	}
	return idx
}

func TestWriteParquet_RoundTrip(t *testing.T) {
	r := encode(t, usgsSample, "zstd")
	f, err := parquet.OpenFile(r, r.Size())
	require.NoError(t, err)

	assert.Equal(t, int64(2), f.NumRows())

	var names []string
	for _, field := range f.Schema().Fields() {
		names = append(names, field.Name())
		assert.True(t, field.Optional(), "%s should be optional", field.Name())
	}
	assert.Equal(t, []string{"depth", "id", "latitude", "longitude", "mag", "magType", "nst", "place", "reviewed", "time"}, names)

	rg := f.Metadata().RowGroups
	require.NotEmpty(t, rg)
	for _, col := range rg[0].Columns {
		assert.Equal(t, format.Zstd, col.MetaData.Codec)
	}

	rows := make([]parquet.Row, 4)
	reader := parquet.NewReader(r)
	defer reader.Close()
	n, err := reader.ReadRows(rows)
	if err != nil && !errors.Is(err, io.EOF) {
		require.NoError(t, err)
	}
	require.Equal(t, 2, n)

	idx := fieldIndex(t, f)
	first := rows[0]
	assert.Equal(t, "nc75183146", string(first[idx["id"]].ByteArray()))
	assert.InDelta(t, 0.9, first[idx["mag"]].Double(), 1e-9)
	assert.Equal(t, int64(12), first[idx["nst"]].Int64())
	assert.True(t, first[idx["reviewed"]].Boolean())
	want := time.Date(2025, 6, 1, 23, 52, 11, 440_000_000, time.UTC).UnixMilli()
	assert.Equal(t, want, first[idx["time"]].Int64())

	assert.True(t, rows[1][idx["nst"]].IsNull())
}

func TestWriteParquet_HeaderOnly(t *testing.T) {
	r := encode(t, "time,latitude,mag\n", "zstd")
	f, err := parquet.OpenFile(r, r.Size())
	require.NoError(t, err)

	assert.Zero(t, f.NumRows())
	assert.Len(t, f.Schema().Fields(), 3)
}

func TestWriteParquet_Codecs(t *testing.T) {
	tests := []struct {
		name string
		want format.CompressionCodec
	}{
		{"snappy", format.Snappy},
		{"gzip", format.Gzip},
		{"uncompressed", format.Uncompressed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := encode(t, "id,mag\na,1.5\n", tt.name)
			f, err := parquet.OpenFile(r, r.Size())
			require.NoError(t, err)
			require.NotEmpty(t, f.Metadata().RowGroups)
			assert.Equal(t, tt.want, f.Metadata().RowGroups[0].Columns[0].MetaData.Codec)
		})
	}
}

func TestCodec_DefaultsToZstd(t *testing.T) {
	c, err := Codec("")
	require.NoError(t, err)
	assert.Equal(t, format.Zstd, c.CompressionCodec())

	r := encode(t, "id,mag\na,1.5\n", "")
	f, err := parquet.OpenFile(r, r.Size())
	require.NoError(t, err)
	require.NotEmpty(t, f.Metadata().RowGroups)
	assert.Equal(t, format.Zstd, f.Metadata().RowGroups[0].Columns[0].MetaData.Codec)
}

func TestCodec_Unknown(t *testing.T) {
	_, err := Codec("lzo")
	require.Error(t, err)
}
