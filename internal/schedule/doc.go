// Package schedule extracts lessons from a faculty schedule sheet.
//
// The sheet has a fixed header geometry (see Layout): the first columns hold
// week-day labels and lesson numbers, the first rows hold course, specialty
// and group headers, and every other column is one group's timetable.
//
// Week frequency is inferred from merges. A lesson cell merged over both rows
// of a lesson number happens every week. A single-row cell belongs to the
// numerator week when its row carries the lesson number itself, and to the
// denominator week when the number only comes from the merge above it.
//
// Identical lessons found in several group columns are returned once, with
// all their groups.
package schedule
