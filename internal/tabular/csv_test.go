package tabular

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const usgsSample = `time,latitude,longitude,depth,mag,magType,nst,id,place,reviewed
2025-06-01T23:52:11.440Z,38.8235,-122.8085,2.1,0.9,md,12,nc75183146,"7 km NW of The Geysers, CA",true
2025-06-01T22:10:03.120Z,61.2,-150.1,35,2.4,ml,,ak025,"Southern Alaska",false
`

func TestParseCSV_InfersTypes(t *testing.T) {
	tbl, err := ParseCSV([]byte(usgsSample))
	require.NoError(t, err)

	want := []Column{
		{"time", Timestamp},
		{"latitude", Double},
		{"longitude", Double},
		{"depth", Double},
		{"mag", Double},
		{"magType", String},
		{"nst", Int64},
		{"id", String},
		{"place", String},
		{"reviewed", Bool},
	}
	assert.Equal(t, want, tbl.Columns)
	assert.Equal(t, int64(2), tbl.NumRows())

	first := tbl.Rows[0]
	assert.Equal(t, time.Date(2025, 6, 1, 23, 52, 11, 440_000_000, time.UTC), first[0])
	assert.InDelta(t, 38.8235, first[1], 1e-9)
	assert.Equal(t, int64(12), first[6])
	assert.Equal(t, "7 km NW of The Geysers, CA", first[8])
	assert.Equal(t, true, first[9])

	assert.Nil(t, tbl.Rows[1][6], "empty cell is NULL")
}

func TestParseCSV_HeaderOnly(t *testing.T) {
	tbl, err := ParseCSV([]byte("time,latitude,mag\n"))
	require.NoError(t, err)
	assert.Zero(t, tbl.NumRows())
	require.Len(t, tbl.Columns, 3)
	for _, c := range tbl.Columns {
		assert.Equal(t, String, c.Type)
	}
}

func TestParseCSV_Empty(t *testing.T) {
	for _, body := range []string{"", "\n", "  \r\n"} {
		_, err := ParseCSV([]byte(body))
		require.ErrorIs(t, err, ErrEmptyInput)
	}
}

func TestParseCSV_Malformed(t *testing.T) {
	_, err := ParseCSV([]byte("a,b\n1,2\n3\n"))
	require.ErrorIs(t, err, ErrMalformedRow)
}

func TestParseCSV_StripsBOM(t *testing.T) {
	tbl, err := ParseCSV(append([]byte{0xEF, 0xBB, 0xBF}, "id\n1\n"...))
	require.NoError(t, err)
	assert.Equal(t, "id", tbl.Columns[0].Name)
}

func TestParseCSV_AllNullColumnIsString(t *testing.T) {
	tbl, err := ParseCSV([]byte("a,b\n1,\n2,\n"))
	require.NoError(t, err)
	assert.Equal(t, Int64, tbl.Columns[0].Type)
	assert.Equal(t, String, tbl.Columns[1].Type)
}

func TestColumnNames(t *testing.T) {
	got := columnNames([]string{"id", "", "id", " mag ", "id"})
	assert.Equal(t, []string{"id", "column01", "id_1", "mag", "id_2"}, got)
}

func TestInferColumn_Widening(t *testing.T) {
	tests := []struct {
		name  string
		cells []string
		want  ColumnType
	}{
		{"bools", []string{"true", "FALSE"}, Bool},
		{"ints", []string{"1", "-2"}, Int64},
		{"int then float", []string{"1", "2.5"}, Double},
		{"timestamps", []string{"2025-06-01T00:00:00Z", "2025-06-01 01:02:03"}, Timestamp},
		{"number then text", []string{"1", "abc"}, String},
		{"bool then int", []string{"true", "1"}, String},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := make([][]string, len(tt.cells))
			for i, c := range tt.cells {
				records[i] = []string{c}
			}
			assert.Equal(t, tt.want, inferColumn(records, 0))
		})
	}
}
