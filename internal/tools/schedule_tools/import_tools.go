package schedule_tools

import (
	"context"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/nubip/schedsync/internal/importer"
	"github.com/nubip/schedsync/internal/schedule"
	"github.com/nubip/schedsync/internal/server"
	"github.com/nubip/schedsync/internal/watcher"
)

type problemView struct {
	Cell  string `json:"cell"`
	Error string `json:"error"`
}

type rawLessonView struct {
	Cell      string   `json:"cell"`
	Day       string   `json:"day"`
	Number    int      `json:"number"`
	Frequency string   `json:"frequency"`
	Name      string   `json:"name"`
	Location  string   `json:"location"`
	Groups    []string `json:"groups"`
}

type reportView struct {
	File       string          `json:"file,omitempty"`
	Faculty    string          `json:"faculty,omitempty"`
	SemesterID int64           `json:"semesterId,omitempty"`
	Created    int             `json:"created"`
	Updated    int             `json:"updated"`
	Skipped    int             `json:"skipped"`
	Deleted    int64           `json:"deleted"`
	Problems   []problemView   `json:"problems,omitempty"`
	Lessons    []rawLessonView `json:"lessons,omitempty"`
}

func newReportView(r *importer.Report) reportView {
	v := reportView{
		File:       r.File,
		Faculty:    r.Faculty,
		SemesterID: r.SemesterID,
		Created:    r.Created,
		Updated:    r.Updated,
		Skipped:    r.Skipped,
		Deleted:    r.Deleted,
	}
	for _, p := range r.Problems {
		v.Problems = append(v.Problems, problemView{Cell: p.Cell(), Error: p.Err.Error()})
	}
	for _, l := range r.Lessons {
		v.Lessons = append(v.Lessons, newRawLessonView(l))
	}
	return v
}

func newRawLessonView(l schedule.RawLesson) rawLessonView {
	groups := make([]string, 0, len(l.Groups))
	for _, g := range l.Groups {
		groups = append(groups, g.String())
	}
	return rawLessonView{
		Cell:      (&schedule.CellError{Row: l.Row, Col: l.Col}).Cell(),
		Day:       l.Day.String(),
		Number:    l.Number,
		Frequency: l.Frequency.String(),
		Name:      l.Name,
		Location:  l.Location,
		Groups:    groups,
	}
}

type semesterView struct {
	ID       int64  `json:"id"`
	Start    string `json:"start"`
	End      string `json:"end"`
	WeekType string `json:"weekType"`
}

func registerImportTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	listSemestersTool := mcp.NewTool("list_semesters",
		mcp.WithDescription("List configured semesters with their dates and the parity of their first week"),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	addTool(s, sc, listSemestersTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		semesters, err := sc.Store().Semesters(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to list semesters: %v", err)), nil
		}
		views := make([]semesterView, 0, len(semesters))
		for _, sem := range semesters {
			views = append(views, semesterView{
				ID:       sem.ID,
				Start:    sem.StartDate.Format(time.DateOnly),
				End:      sem.EndDate.Format(time.DateOnly),
				WeekType: sem.WeekType.String(),
			})
		}
		return jsonResult(views)
	})

	previewTool := mcp.NewTool("preview_schedule",
		mcp.WithDescription("Parse a schedule workbook and list the lessons it contains without storing anything"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path of the .xlsx workbook on the server"),
		),
		mcp.WithString("faculty",
			mcp.Description("Faculty name overriding the one read from the sheet"),
		),
	)
	addTool(s, sc, previewTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return runImport(ctx, sc, request, true)
	})

	if readOnly {
		return nil
	}

	importTool := mcp.NewTool("import_schedule",
		mcp.WithDescription("Import a schedule workbook into the lesson database"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path of the .xlsx workbook on the server"),
		),
		mcp.WithNumber("semester_id",
			mcp.Required(),
			mcp.Description("Semester the lessons belong to"),
		),
		mcp.WithString("faculty",
			mcp.Description("Faculty name overriding the one read from the sheet"),
		),
		mcp.WithBoolean("reload",
			mcp.Description("Delete the semester's lessons before importing"),
		),
		mcp.WithDestructiveHintAnnotation(true),
	)
	addTool(s, sc, importTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return runImport(ctx, sc, request, false)
	})

	uploadTool := mcp.NewTool("queue_schedule",
		mcp.WithDescription("Copy a schedule workbook into the upload directory so the watcher imports it"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path of the .xlsx workbook on the server"),
		),
		mcp.WithNumber("semester_id",
			mcp.Required(),
			mcp.Description("Semester the lessons belong to"),
		),
		mcp.WithString("faculty",
			mcp.Description("Faculty name overriding the one read from the sheet"),
		),
	)
	addTool(s, sc, uploadTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		path, err := request.RequireString("path")
		if err != nil {
			return mcp.NewToolResultError("path is required"), nil
		}
		semesterID, err := request.RequireInt("semester_id")
		if err != nil || semesterID <= 0 {
			return mcp.NewToolResultError("semester_id must be a positive number"), nil
		}
		if _, err := sc.Store().Semester(ctx, int64(semesterID)); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Semester %d: %v", semesterID, err)), nil
		}
		f, err := watcher.Upload(ctx, sc.Store(), sc.UploadDir(), path, int64(semesterID), request.GetString("faculty", ""))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to queue %s: %v", path, err)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Queued %s as file %d; it is imported on the next watcher pass", path, f.ID)), nil
	})

	return nil
}

func runImport(ctx context.Context, sc *server.ServerContext, request mcp.CallToolRequest, dryRun bool) (*mcp.CallToolResult, error) {
	im := sc.Importer()
	if im == nil {
		return mcp.NewToolResultError("schedule import is not configured on this server"), nil
	}
	path, err := request.RequireString("path")
	if err != nil || path == "" {
		return mcp.NewToolResultError("path is required"), nil
	}
	semesterID := request.GetInt("semester_id", 0)
	if !dryRun {
		if semesterID, err = request.RequireInt("semester_id"); err != nil || semesterID <= 0 {
			return mcp.NewToolResultError("semester_id must be a positive number"), nil
		}
	}
	report, err := im.Import(ctx, path, importer.Options{
		SemesterID: int64(semesterID),
		Faculty:    request.GetString("faculty", ""),
		Reload:     request.GetBool("reload", false),
		DryRun:     dryRun,
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to import %s: %v", path, err)), nil
	}
	return jsonResult(newReportView(report))
}

