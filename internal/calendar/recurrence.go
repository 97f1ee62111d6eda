package calendar

import (
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"
)

const rrulePrefix = "RRULE:"

// RecurrenceRule renders a weekly rule repeating every interval weeks
// through the whole of the until date in loc.
func RecurrenceRule(interval int, until time.Time, loc *time.Location) (string, error) {
	if interval != 1 && interval != 2 {
		return "", fmt.Errorf("unsupported weekly interval %d", interval)
	}
	if until.IsZero() {
		return "", fmt.Errorf("recurrence needs an end date")
	}
	y, m, d := until.Date()
	last := time.Date(y, m, d, 23, 59, 59, 0, loc)
	opt := rrule.ROption{
		Freq:     rrule.WEEKLY,
		Interval: interval,
		Until:    last,
	}
	return rrulePrefix + opt.RRuleString(), nil
}

// ParseRecurrence extracts the weekly interval and end date from an
// event's recurrence lines. Anything but a single RRULE yields zero
// values, which never equal a computed event.
func ParseRecurrence(lines []string, loc *time.Location) (int, time.Time) {
	var rules []string
	for _, l := range lines {
		if strings.HasPrefix(strings.ToUpper(l), rrulePrefix) {
			rules = append(rules, l)
		}
	}
	if len(rules) != 1 || len(lines) != 1 {
		return 0, time.Time{}
	}
	opt, err := rrule.StrToROptionInLocation(rules[0], loc)
	if err != nil || opt.Freq != rrule.WEEKLY {
		return 0, time.Time{}
	}
	interval := opt.Interval
	if interval == 0 {
		interval = 1
	}
	return interval, untilDate(opt.Until, loc)
}
