package grid

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// LoadXLSX reads a workbook from disk and returns the grid of the given
// sheet, or of the active sheet when sheet is empty.
func LoadXLSX(path, sheet string) (*Grid, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	return fromFile(f, sheet)
}

// ReadXLSX is like LoadXLSX but reads the workbook from r.
func ReadXLSX(r io.Reader, sheet string) (*Grid, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read workbook: %w", err)
	}
	defer func() { _ = f.Close() }()
	return fromFile(f, sheet)
}

func fromFile(f *excelize.File, sheet string) (*Grid, error) {
	if sheet == "" {
		sheet = f.GetSheetName(f.GetActiveSheetIndex())
	}
	if sheet == "" {
		return nil, fmt.Errorf("workbook has no worksheets")
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows of sheet %q: %w", sheet, err)
	}
	values := make(map[[2]int]string)
	for r, row := range rows {
		for c, v := range row {
			if v != "" {
				values[[2]int{r + 1, c + 1}] = v
			}
		}
	}

	mergeCells, err := f.GetMergeCells(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read merged cells of sheet %q: %w", sheet, err)
	}
	merges := make([]MergeRange, 0, len(mergeCells))
	for _, mc := range mergeCells {
		minCol, minRow, err := excelize.CellNameToCoordinates(mc.GetStartAxis())
		if err != nil {
			return nil, fmt.Errorf("invalid merge start %q: %w", mc.GetStartAxis(), err)
		}
		maxCol, maxRow, err := excelize.CellNameToCoordinates(mc.GetEndAxis())
		if err != nil {
			return nil, fmt.Errorf("invalid merge end %q: %w", mc.GetEndAxis(), err)
		}
		merges = append(merges, MergeRange{MinRow: minRow, MinCol: minCol, MaxRow: maxRow, MaxCol: maxCol})
		// excelize reports the anchor value on the merge itself; keep it even
		// when GetRows skipped the cell.
		if v := mc.GetCellValue(); v != "" {
			if _, ok := values[[2]int{minRow, minCol}]; !ok {
				values[[2]int{minRow, minCol}] = v
			}
		}
	}

	return New(values, merges)
}

// CellName converts 1-based coordinates to an "A1" style reference for logs.
func CellName(row, col int) string {
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return fmt.Sprintf("R%dC%d", row, col)
	}
	return name
}

// ParseCellName converts an "A1" style reference to 1-based (row, col).
func ParseCellName(ref string) (row, col int, err error) {
	col, row, err = excelize.CellNameToCoordinates(ref)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid cell reference %q: %w", ref, err)
	}
	return row, col, nil
}
