package schedule

import (
	"errors"
	"fmt"

	"github.com/nubip/schedsync/internal/grid"
)

// Per-cell extraction failures. None of them stops an extraction pass.
var (
	// ErrMalformedHeader marks a column whose course, specialty or group
	// header is missing.
	ErrMalformedHeader = errors.New("malformed group header")

	// ErrMissingLessonNumber marks a lesson cell whose row has no usable
	// lesson number.
	ErrMissingLessonNumber = errors.New("missing lesson number")

	// ErrUnparsableLessonInfo marks lesson text without a room designator.
	ErrUnparsableLessonInfo = errors.New("unparsable lesson info")
)

// CellError records a failure at a worksheet cell.
type CellError struct {
	Row int
	Col int
	Err error
}

func (e *CellError) Error() string {
	return fmt.Sprintf("cell %s: %v", grid.CellName(e.Row, e.Col), e.Err)
}

func (e *CellError) Unwrap() error {
	return e.Err
}

// Cell returns the "A1" style reference of the failing cell.
func (e *CellError) Cell() string {
	return grid.CellName(e.Row, e.Col)
}
