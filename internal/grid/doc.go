// Package grid exposes a worksheet as a sparse cell grid with merge-range
// metadata.
//
// Merged cells are resolved transparently: ValueAt returns the value stored
// on the merge anchor (its top-left cell) for every cell the merge covers,
// while RawValue only returns what the cell itself holds. The extractor
// relies on that distinction to tell vertically duplicated lessons and
// alternating-week rows apart.
//
// Workbooks are loaded with excelize:
//
//	g, err := grid.LoadXLSX("faculty.xlsx", "")
//	if err != nil {
//	    return err
//	}
//	fmt.Println(g.ValueAt(3, 5))
package grid
