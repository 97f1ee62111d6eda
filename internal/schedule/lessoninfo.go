package schedule

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// lessonInfoPattern splits "<name> <room> к.<building>" on the last room
// designator. The name may span several lines.
var lessonInfoPattern = regexp.MustCompile(`(?s)^(.+)\s+(\d+\s*к\..+)$`)

var lineBreaks = regexp.MustCompile(`\s*\n\s*`)

// LessonInfo is the parsed content of a lesson cell.
type LessonInfo struct {
	// Name is the subject title with line breaks collapsed.
	Name string
	// Location is the full room designator, e.g. "201 к.305".
	Location string
	// Room is the number before "к.", e.g. "201".
	Room string
	// Building is the text after "к.", e.g. "305".
	Building string
}

// ParseLessonInfo parses lesson cell text such as "Operating Systems\n201 к.305".
// Text without a room designator yields ErrUnparsableLessonInfo.
func ParseLessonInfo(text string) (LessonInfo, error) {
	text = strings.TrimSpace(plainSpaces(text))
	m := lessonInfoPattern.FindStringSubmatch(text)
	if m == nil {
		return LessonInfo{}, fmt.Errorf("%w: %q", ErrUnparsableLessonInfo, text)
	}

	info := LessonInfo{
		Name:     collapse(m[1]),
		Location: collapse(m[2]),
	}
	if info.Name == "" {
		return LessonInfo{}, fmt.Errorf("%w: empty subject name in %q", ErrUnparsableLessonInfo, text)
	}

	room, building, _ := strings.Cut(info.Location, "к.")
	info.Room = strings.TrimSpace(room)
	info.Building = strings.TrimSpace(building)
	return info, nil
}

// plainSpaces replaces Unicode space separators, e.g. the no-break space
// spreadsheets put between a name and its room, with ASCII spaces.
func plainSpaces(s string) string {
	return strings.Map(func(r rune) rune {
		if r != ' ' && unicode.Is(unicode.Zs, r) {
			return ' '
		}
		return r
	}, s)
}

func collapse(s string) string {
	return strings.TrimSpace(lineBreaks.ReplaceAllString(s, " "))
}
