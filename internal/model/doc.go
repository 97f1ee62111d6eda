// Package model defines the schedule domain types shared by the parser,
// the persistence layer and the calendar sync engine.
package model
