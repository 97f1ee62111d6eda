package schedule

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nubip/schedsync/internal/model"
)

// SlotTime is a timeslot entry of the layout file, e.g. {start: "08:30", end: "09:50"}.
type SlotTime struct {
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

// Layout describes the fixed header geometry of a faculty schedule sheet.
// Rows and columns are 1-based.
type Layout struct {
	// Sheet is the worksheet name; empty selects the active sheet.
	Sheet string `yaml:"sheet"`

	// FacultyCell holds the faculty name, e.g. "Q1".
	FacultyCell string `yaml:"faculty_cell"`

	// TitleColumns are the leading columns holding titles, weekday names and lesson numbers.
	TitleColumns int `yaml:"title_columns"`
	// TitleRows are the leading rows holding faculty, course and group headers.
	TitleRows int `yaml:"title_rows"`

	CourseRow          int `yaml:"course_row"`
	SpecialtyRow       int `yaml:"specialty_row"`
	GroupRow           int `yaml:"group_row"`
	DaysStartRow       int `yaml:"days_start_row"`
	DayColumn          int `yaml:"day_column"`
	LessonNumberColumn int `yaml:"lesson_number_column"`

	// MaxRow and MaxCol limit the scan; zero means the grid extent.
	MaxRow int `yaml:"max_row"`
	MaxCol int `yaml:"max_col"`

	// LessonTimes maps a lesson number to its daily timeslot.
	LessonTimes map[int]SlotTime `yaml:"lesson_times"`
}

// DefaultLayout returns the geometry used by the faculty schedule files.
func DefaultLayout() Layout {
	return Layout{
		FacultyCell:        "Q1",
		TitleColumns:       2,
		TitleRows:          6,
		CourseRow:          3,
		SpecialtyRow:       4,
		GroupRow:           5,
		DaysStartRow:       7,
		DayColumn:          1,
		LessonNumberColumn: 2,
		LessonTimes: map[int]SlotTime{
			1: {"08:30", "09:50"},
			2: {"10:10", "11:30"},
			3: {"11:50", "13:10"},
			4: {"14:00", "15:20"},
			5: {"15:40", "17:00"},
			6: {"17:20", "18:40"},
			7: {"19:00", "20:20"},
		},
	}
}

// LoadLayout reads a YAML layout file. Missing keys keep their defaults;
// a missing file yields DefaultLayout.
func LoadLayout(path string) (Layout, error) {
	layout := DefaultLayout()
	if path == "" {
		return layout, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return layout, nil
		}
		return layout, fmt.Errorf("failed to read layout file: %w", err)
	}

	if err := yaml.Unmarshal(data, &layout); err != nil {
		return layout, fmt.Errorf("failed to parse layout file %s: %w", path, err)
	}
	if err := layout.Validate(); err != nil {
		return layout, fmt.Errorf("invalid layout file %s: %w", path, err)
	}
	return layout, nil
}

// Validate checks that header rows precede the data area and that every
// lesson time is well formed.
func (l Layout) Validate() error {
	for name, v := range map[string]int{
		"course_row":           l.CourseRow,
		"specialty_row":        l.SpecialtyRow,
		"group_row":            l.GroupRow,
		"days_start_row":       l.DaysStartRow,
		"day_column":           l.DayColumn,
		"lesson_number_column": l.LessonNumberColumn,
	} {
		if v < 1 {
			return fmt.Errorf("%s must be positive, got %d", name, v)
		}
	}
	if l.TitleRows < l.GroupRow {
		return fmt.Errorf("title_rows (%d) must include the group row (%d)", l.TitleRows, l.GroupRow)
	}
	if l.LessonNumberColumn > l.TitleColumns || l.DayColumn > l.TitleColumns {
		return fmt.Errorf("day and lesson number columns must lie within title_columns (%d)", l.TitleColumns)
	}
	_, err := l.LessonNumbers()
	return err
}

// LessonNumbers converts the lesson time table into model slots ordered by number.
func (l Layout) LessonNumbers() ([]model.LessonNumber, error) {
	out := make([]model.LessonNumber, 0, len(l.LessonTimes))
	for n, st := range l.LessonTimes {
		start, err := parseClock(st.Start)
		if err != nil {
			return nil, fmt.Errorf("lesson %d start: %w", n, err)
		}
		end, err := parseClock(st.End)
		if err != nil {
			return nil, fmt.Errorf("lesson %d end: %w", n, err)
		}
		if end <= start {
			return nil, fmt.Errorf("lesson %d ends before it starts", n)
		}
		out = append(out, model.LessonNumber{Number: n, StartMinute: start, EndMinute: end})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	return t.Hour()*60 + t.Minute(), nil
}
