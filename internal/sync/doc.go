// Package sync turns lessons into recurring calendar events and keeps a
// person's calendar equal to them.
//
// Engine diffs the desired events against the events tagged with the
// application's source and issues the creates, updates and deletes that
// close the gap. Syncer decides which lessons concern a person, renders
// role-specific descriptions and runs the engine against their calendar.
package sync
