// Package schedule_tools exposes schedule import, lesson administration
// and calendar sync as MCP tools.
//
// Tools that change lessons or calendars are registered only when the
// server is not read-only.
package schedule_tools
