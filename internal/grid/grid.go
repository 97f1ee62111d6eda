package grid

import (
	"fmt"
	"strings"
)

// MergeRange is a rectangular block of cells sharing the value of its
// top-left anchor. Bounds are 1-based and inclusive.
type MergeRange struct {
	MinRow int
	MinCol int
	MaxRow int
	MaxCol int
}

// Contains reports whether (row, col) lies inside the range.
func (r MergeRange) Contains(row, col int) bool {
	return row >= r.MinRow && row <= r.MaxRow && col >= r.MinCol && col <= r.MaxCol
}

// Rows returns the number of rows the range spans.
func (r MergeRange) Rows() int {
	return r.MaxRow - r.MinRow + 1
}

// Cols returns the number of columns the range spans.
func (r MergeRange) Cols() int {
	return r.MaxCol - r.MinCol + 1
}

func (r MergeRange) String() string {
	return fmt.Sprintf("R%dC%d:R%dC%d", r.MinRow, r.MinCol, r.MaxRow, r.MaxCol)
}

type cell struct {
	row, col int
}

// Grid is a sparse, read-only 2-D view of a worksheet. Rows and columns
// are 1-based, matching spreadsheet coordinates.
type Grid struct {
	values map[cell]string
	merges []MergeRange
	// index maps every covered cell to its position in merges
	index  map[cell]int
	maxRow int
	maxCol int
}

// New builds a Grid from explicit cell values and merge ranges. Empty or
// whitespace-only values are treated as absent.
func New(values map[[2]int]string, merges []MergeRange) (*Grid, error) {
	g := &Grid{
		values: make(map[cell]string, len(values)),
		index:  make(map[cell]int),
	}
	for rc, v := range values {
		if rc[0] < 1 || rc[1] < 1 {
			return nil, fmt.Errorf("invalid cell coordinates row=%d col=%d", rc[0], rc[1])
		}
		g.set(rc[0], rc[1], v)
	}
	for _, m := range merges {
		if err := g.addMerge(m); err != nil {
			return nil, err
		}
	}
	return g, nil
}

func (g *Grid) set(row, col int, v string) {
	if strings.TrimSpace(v) == "" {
		return
	}
	g.values[cell{row, col}] = v
	g.grow(row, col)
}

func (g *Grid) grow(row, col int) {
	if row > g.maxRow {
		g.maxRow = row
	}
	if col > g.maxCol {
		g.maxCol = col
	}
}

func (g *Grid) addMerge(m MergeRange) error {
	if m.MinRow < 1 || m.MinCol < 1 || m.MaxRow < m.MinRow || m.MaxCol < m.MinCol {
		return fmt.Errorf("invalid merge range %s", m)
	}
	pos := len(g.merges)
	for r := m.MinRow; r <= m.MaxRow; r++ {
		for c := m.MinCol; c <= m.MaxCol; c++ {
			if other, ok := g.index[cell{r, c}]; ok {
				return fmt.Errorf("merge range %s overlaps %s", m, g.merges[other])
			}
			g.index[cell{r, c}] = pos
		}
	}
	g.merges = append(g.merges, m)
	g.grow(m.MaxRow, m.MaxCol)
	return nil
}

// RawValue returns the cell's own value, ignoring merges.
func (g *Grid) RawValue(row, col int) string {
	return g.values[cell{row, col}]
}

// ValueAt returns the cell's own value if present, else the anchor value of
// the merge range containing it, else "".
func (g *Grid) ValueAt(row, col int) string {
	if v, ok := g.values[cell{row, col}]; ok {
		return v
	}
	m, ok := g.MergeRangeContaining(row, col)
	if !ok {
		return ""
	}
	return g.values[cell{m.MinRow, m.MinCol}]
}

// MergeRangeContaining returns the merge range that covers (row, col).
func (g *Grid) MergeRangeContaining(row, col int) (MergeRange, bool) {
	pos, ok := g.index[cell{row, col}]
	if !ok {
		return MergeRange{}, false
	}
	return g.merges[pos], true
}

// MergeRanges returns a copy of all merge ranges.
func (g *Grid) MergeRanges() []MergeRange {
	out := make([]MergeRange, len(g.merges))
	copy(out, g.merges)
	return out
}

// MaxRow is the largest row holding a value or covered by a merge.
func (g *Grid) MaxRow() int { return g.maxRow }

// MaxCol is the largest column holding a value or covered by a merge.
func (g *Grid) MaxCol() int { return g.maxCol }
