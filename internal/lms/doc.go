// Package lms reads the learning management system database.
//
// The directory answers which courses a person is enrolled in, which
// cohorts they belong to, whether they teach or study, and who teaches
// a course. Table names carry the configurable Moodle prefix.
package lms
