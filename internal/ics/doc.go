// Package ics writes computed lesson events as an iCalendar file, for
// people who subscribe to their schedule instead of granting calendar
// access.
package ics
