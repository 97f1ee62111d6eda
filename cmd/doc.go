// Package cmd implements the command-line interface for schedsync.
//
// This package provides the following commands:
//   - import, upload, watch: read schedule workbooks into the lesson database
//   - semester, lessons: manage semesters and edit lessons
//   - sync, clear, export: write a person's lessons to Google Calendar or iCalendar
//   - auth: store a person's Google Calendar grant
//   - migrate: create the database schema
//   - serve: start the MCP server for AI assistants
//   - generate-docs: generate markdown documentation for all MCP tools
//   - version: display version information
package cmd
