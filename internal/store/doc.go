// Package store persists the canonical schedule: semesters, faculties,
// specialties, groups, subjects, lesson timeslots, lessons and uploaded
// schedule files.
//
// Postgres is the production implementation built on sqlx. Memory keeps
// the same semantics in process and backs dry runs and tests.
package store
