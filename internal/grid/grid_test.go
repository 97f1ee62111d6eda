package grid

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestValueAt(t *testing.T) {
	g, err := New(map[[2]int]string{
		{1, 1}: "Monday",
		{1, 3}: "1 course",
		{2, 2}: "  ",
		{5, 5}: "own",
	}, []MergeRange{
		{MinRow: 1, MinCol: 1, MaxRow: 4, MaxCol: 1}, // rows only
		{MinRow: 1, MinCol: 3, MaxRow: 1, MaxCol: 6}, // columns only
	})
	require.NoError(t, err)

	tests := []struct {
		name     string
		row, col int
		want     string
	}{
		{"anchor", 1, 1, "Monday"},
		{"vertical continuation", 4, 1, "Monday"},
		{"horizontal continuation", 1, 6, "1 course"},
		{"own value", 5, 5, "own"},
		{"whitespace is empty", 2, 2, ""},
		{"outside everything", 9, 9, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, g.ValueAt(tt.row, tt.col))
		})
	}

	assert.Equal(t, "", g.RawValue(4, 1))
	assert.Equal(t, 5, g.MaxRow())
	assert.Equal(t, 6, g.MaxCol())
}

func TestMergeRangeContaining(t *testing.T) {
	m := MergeRange{MinRow: 7, MinCol: 3, MaxRow: 8, MaxCol: 4}
	g, err := New(map[[2]int]string{{7, 3}: "Databases 12 к.3"}, []MergeRange{m})
	require.NoError(t, err)

	got, ok := g.MergeRangeContaining(8, 4)
	require.True(t, ok)
	assert.Equal(t, m, got)
	assert.Equal(t, 2, got.Rows())
	assert.Equal(t, 2, got.Cols())

	_, ok = g.MergeRangeContaining(9, 3)
	assert.False(t, ok)
}

func TestNewRejectsInvalidInput(t *testing.T) {
	_, err := New(nil, []MergeRange{{MinRow: 3, MinCol: 1, MaxRow: 2, MaxCol: 1}})
	assert.Error(t, err)

	_, err = New(nil, []MergeRange{
		{MinRow: 1, MinCol: 1, MaxRow: 2, MaxCol: 2},
		{MinRow: 2, MinCol: 2, MaxRow: 3, MaxCol: 3},
	})
	assert.Error(t, err, "overlapping ranges")

	_, err = New(map[[2]int]string{{0, 1}: "x"}, nil)
	assert.Error(t, err)
}

func TestReadXLSX(t *testing.T) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetCellValue(sheet, "A7", "Monday"))
	require.NoError(t, f.MergeCell(sheet, "A7", "A10"))
	require.NoError(t, f.SetCellValue(sheet, "C3", "2 course"))
	require.NoError(t, f.MergeCell(sheet, "C3", "E3"))
	require.NoError(t, f.SetCellValue(sheet, "C7", "Operating Systems\n201 к.305"))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	g, err := ReadXLSX(bytes.NewReader(buf.Bytes()), "")
	require.NoError(t, err)

	assert.Equal(t, "Monday", g.ValueAt(9, 1))
	assert.Equal(t, "2 course", g.ValueAt(3, 5))
	assert.Equal(t, "Operating Systems\n201 к.305", g.ValueAt(7, 3))
	r, ok := g.MergeRangeContaining(10, 1)
	require.True(t, ok)
	assert.Equal(t, MergeRange{MinRow: 7, MinCol: 1, MaxRow: 10, MaxCol: 1}, r)
}

func TestCellName(t *testing.T) {
	assert.Equal(t, "A1", CellName(1, 1))
	assert.Equal(t, "Q1", CellName(1, 17))
	assert.Equal(t, "R0C0", CellName(0, 0))
}

func TestParseCellName(t *testing.T) {
	row, col, err := ParseCellName("Q1")
	require.NoError(t, err)
	assert.Equal(t, 1, row)
	assert.Equal(t, 17, col)

	_, _, err = ParseCellName("not a cell")
	assert.Error(t, err)
}
