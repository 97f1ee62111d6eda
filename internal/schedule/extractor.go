package schedule

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/nubip/schedsync/internal/grid"
	"github.com/nubip/schedsync/internal/logging"
	"github.com/nubip/schedsync/internal/model"
)

const daysPerWeek = 7

var errBlankColumn = errors.New("blank column")

// RawGroup is a column's group header as written in the sheet.
type RawGroup struct {
	// Course is the course label, e.g. "2 курс".
	Course string
	// Specialty is the specialty code, e.g. "КН".
	Specialty string
	// Number is the group number within the specialty.
	Number string
}

func (g RawGroup) String() string {
	return fmt.Sprintf("%s/%s/%s", g.Course, g.Specialty, g.Number)
}

// RawLesson is a lesson as extracted from the sheet, before its names are
// resolved to persisted entities.
type RawLesson struct {
	Day       model.DayOfWeek
	Number    int
	Frequency model.WeekFrequency
	Name      string
	Location  string
	Room      string
	Building  string
	Groups    []RawGroup

	// Row and Col locate the cell the lesson was first read from.
	Row int
	Col int
}

func (l RawLesson) key() lessonKey {
	return lessonKey{day: l.Day, number: l.Number, name: l.Name, location: l.Location}
}

func (l *RawLesson) addGroup(g RawGroup) {
	for _, existing := range l.Groups {
		if existing == g {
			return
		}
	}
	l.Groups = append(l.Groups, g)
}

type lessonKey struct {
	day      model.DayOfWeek
	number   int
	name     string
	location string
}

// Result is the outcome of one extraction pass.
type Result struct {
	Faculty string
	// Lessons are in sheet order: column by column, top to bottom.
	Lessons []RawLesson
	// Errors are the skipped cells and columns.
	Errors []*CellError
}

// Extractor reconstructs lessons from a schedule grid.
type Extractor struct {
	layout Layout
	logger *slog.Logger
}

// NewExtractor creates an extractor for the given sheet geometry.
// If logger is nil, slog.Default() is used.
func NewExtractor(layout Layout, logger *slog.Logger) (*Extractor, error) {
	if err := layout.Validate(); err != nil {
		return nil, fmt.Errorf("invalid layout: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		layout: layout,
		logger: logging.WithOperation(logger, "schedule.extract"),
	}, nil
}

type dayBand struct {
	day   model.DayOfWeek
	first int
	last  int
}

// Extract walks the grid column by column and returns the lessons found.
// Cell level problems are collected in Result.Errors; they never abort the pass.
func (e *Extractor) Extract(g *grid.Grid) *Result {
	res := &Result{Faculty: e.faculty(g)}

	bands := e.dayBands(g)
	if len(bands) == 0 {
		e.logger.Warn("no week-day labels found", slog.Int("column", e.layout.DayColumn), slog.Int("start_row", e.layout.DaysStartRow))
		return res
	}

	index := make(map[lessonKey]int)
	for col := e.layout.TitleColumns + 1; col <= e.maxCol(g); col++ {
		group, err := e.header(g, col)
		if err != nil {
			if !errors.Is(err, errBlankColumn) {
				e.fail(res, e.layout.GroupRow, col, err)
			}
			continue
		}

		for _, band := range bands {
			for row := band.first; row <= band.last; row++ {
				lesson, ok, err := e.lessonAt(g, row, col, band.day)
				if err != nil {
					e.fail(res, row, col, err)
					continue
				}
				if !ok {
					continue
				}

				k := lesson.key()
				if i, seen := index[k]; seen {
					res.Lessons[i].addGroup(group)
					continue
				}
				lesson.Groups = []RawGroup{group}
				index[k] = len(res.Lessons)
				res.Lessons = append(res.Lessons, lesson)
			}
		}
	}

	e.logger.Info("schedule extracted",
		slog.String("faculty", res.Faculty),
		slog.Int("lessons", len(res.Lessons)),
		slog.Int("errors", len(res.Errors)))
	return res
}

func (e *Extractor) fail(res *Result, row, col int, err error) {
	ce := &CellError{Row: row, Col: col, Err: err}
	res.Errors = append(res.Errors, ce)
	e.logger.Warn("skipping cell", logging.Cell(ce.Cell()), logging.Err(err))
}

func (e *Extractor) faculty(g *grid.Grid) string {
	if e.layout.FacultyCell == "" {
		return ""
	}
	row, col, err := grid.ParseCellName(e.layout.FacultyCell)
	if err != nil {
		e.logger.Warn("invalid faculty cell", logging.Err(err))
		return ""
	}
	return strings.TrimSpace(g.ValueAt(row, col))
}

func (e *Extractor) maxRow(g *grid.Grid) int {
	if e.layout.MaxRow > 0 && e.layout.MaxRow < g.MaxRow() {
		return e.layout.MaxRow
	}
	return g.MaxRow()
}

func (e *Extractor) maxCol(g *grid.Grid) int {
	if e.layout.MaxCol > 0 && e.layout.MaxCol < g.MaxCol() {
		return e.layout.MaxCol
	}
	return g.MaxCol()
}

// dayBands scans the day column. Every labelled cell not covered by the
// previous band opens the next day; the band spans the label's merge range.
func (e *Extractor) dayBands(g *grid.Grid) []dayBand {
	var bands []dayBand
	covered := e.layout.DaysStartRow - 1
	col := e.layout.DayColumn

	for row := e.layout.DaysStartRow; row <= e.maxRow(g); row++ {
		if row <= covered || g.ValueAt(row, col) == "" {
			continue
		}
		if len(bands) == daysPerWeek {
			e.logger.Warn("ignoring extra week-day label", logging.Cell(grid.CellName(row, col)))
			break
		}
		last := row
		if m, ok := g.MergeRangeContaining(row, col); ok {
			last = m.MaxRow
		}
		bands = append(bands, dayBand{day: model.DayOfWeek(len(bands)), first: row, last: last})
		covered = last
	}
	return bands
}

// header reads the course, specialty and group rows of a column.
// A column without any header is blank, not malformed.
func (e *Extractor) header(g *grid.Grid, col int) (RawGroup, error) {
	group := RawGroup{
		Course:    strings.TrimSpace(g.ValueAt(e.layout.CourseRow, col)),
		Specialty: strings.TrimSpace(g.ValueAt(e.layout.SpecialtyRow, col)),
		Number:    strings.TrimSpace(g.ValueAt(e.layout.GroupRow, col)),
	}
	switch {
	case group.Course == "" && group.Specialty == "" && group.Number == "":
		return group, errBlankColumn
	case group.Course == "", group.Specialty == "", group.Number == "":
		return group, fmt.Errorf("%w: course=%q specialty=%q group=%q",
			ErrMalformedHeader, group.Course, group.Specialty, group.Number)
	}
	return group, nil
}

// lessonAt reads the lesson cell at (row, col). ok is false for empty cells
// and for continuation rows of a vertically merged lesson.
func (e *Extractor) lessonAt(g *grid.Grid, row, col int, day model.DayOfWeek) (RawLesson, bool, error) {
	text := g.ValueAt(row, col)
	if text == "" {
		return RawLesson{}, false, nil
	}
	m, merged := g.MergeRangeContaining(row, col)
	if merged && g.RawValue(row, col) == "" && m.MinRow != row {
		return RawLesson{}, false, nil
	}

	number, err := e.lessonNumber(g, row)
	if err != nil {
		return RawLesson{}, false, err
	}

	freq := model.EachWeek
	if !merged || m.Rows() == 1 {
		if g.RawValue(row, e.layout.LessonNumberColumn) == "" {
			freq = model.Denominator
		} else {
			freq = model.Numerator
		}
	}

	info, err := ParseLessonInfo(text)
	if err != nil {
		return RawLesson{}, false, err
	}

	return RawLesson{
		Day:       day,
		Number:    number,
		Frequency: freq,
		Name:      info.Name,
		Location:  info.Location,
		Room:      info.Room,
		Building:  info.Building,
		Row:       row,
		Col:       col,
	}, true, nil
}

func (e *Extractor) lessonNumber(g *grid.Grid, row int) (int, error) {
	raw := strings.TrimSpace(g.ValueAt(row, e.layout.LessonNumberColumn))
	if raw == "" {
		return 0, ErrMissingLessonNumber
	}
	n, err := strconv.Atoi(strings.TrimSuffix(raw, ".0"))
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrMissingLessonNumber, raw)
	}
	if _, ok := e.layout.LessonTimes[n]; !ok {
		return 0, fmt.Errorf("%w: no timeslot for lesson %d", ErrMissingLessonNumber, n)
	}
	return n, nil
}
