package schedule_tools

import (
	"context"
	"fmt"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/nubip/schedsync/internal/model"
	"github.com/nubip/schedsync/internal/server"
	"github.com/nubip/schedsync/internal/store"
	"github.com/nubip/schedsync/internal/tools/common"
)

type lessonView struct {
	ID         string   `json:"id"`
	Subject    string   `json:"subject"`
	Day        string   `json:"day"`
	Number     int      `json:"number"`
	Frequency  string   `json:"frequency"`
	SemesterID int64    `json:"semesterId"`
	Location   string   `json:"location,omitempty"`
	MeetingURL string   `json:"meetingUrl,omitempty"`
	Type       string   `json:"type"`
	CourseID   *int64   `json:"courseId,omitempty"`
	Groups     []string `json:"groups"`
}

func newLessonView(l model.Lesson) lessonView {
	return lessonView{
		ID:         l.ID,
		Subject:    l.SubjectTitle,
		Day:        l.DayOfWeek.String(),
		Number:     l.LessonNumber,
		Frequency:  l.Frequency.String(),
		SemesterID: l.SemesterID,
		Location:   l.Location,
		MeetingURL: l.MeetingURL,
		Type:       l.Type.String(),
		CourseID:   l.CourseID,
		Groups:     l.Groups,
	}
}

func registerLessonTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	listLessonsTool := mcp.NewTool("list_lessons",
		mcp.WithDescription("List stored lessons, optionally narrowed by semester, lesson IDs or group names"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithNumber("semester_id",
			mcp.Description("Only lessons of this semester"),
		),
		mcp.WithArray("ids",
			mcp.Description("Only these lesson IDs"),
			mcp.WithStringItems(),
		),
		mcp.WithArray("groups",
			mcp.Description("Only lessons attended by one of these groups"),
			mcp.WithStringItems(),
		),
	)
	addTool(s, sc, listLessonsTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		var f store.LessonFilter
		if ids := common.StringsFromArgs(args, "ids"); len(ids) > 0 {
			f.IDs = ids
		}
		if groups := common.StringsFromArgs(args, "groups"); len(groups) > 0 {
			f.GroupNames = groups
		}
		if id := request.GetInt("semester_id", 0); id > 0 {
			f.SemesterIDs = []int64{int64(id)}
		}
		lessons, err := sc.Store().Lessons(ctx, f)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to list lessons: %v", err)), nil
		}
		views := make([]lessonView, 0, len(lessons))
		for _, l := range lessons {
			views = append(views, newLessonView(l))
		}
		return jsonResult(views)
	})

	if readOnly {
		return nil
	}

	setMeetingURLTool := mcp.NewTool("set_meeting_url",
		mcp.WithDescription("Set the online meeting link of one or more lessons"),
		mcp.WithArray("ids",
			mcp.Required(),
			mcp.Description("Lesson IDs"),
			mcp.WithStringItems(),
		),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("Absolute http(s) meeting URL"),
		),
	)
	addTool(s, sc, setMeetingURLTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ids := common.StringsFromArgs(request.GetArguments(), "ids")
		if len(ids) == 0 {
			return mcp.NewToolResultError("ids is required"), nil
		}
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}
		if err := model.ValidateMeetingURL(url); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		n, err := sc.Store().SetMeetingURL(ctx, ids, url)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to set meeting url: %v", err)), nil
		}
		return mcp.NewToolResultText(updatedText(n)), nil
	})

	setTypeTool := mcp.NewTool("set_lesson_type",
		mcp.WithDescription("Mark one or more lessons as lectures or practice"),
		mcp.WithArray("ids",
			mcp.Required(),
			mcp.Description("Lesson IDs"),
			mcp.WithStringItems(),
		),
		mcp.WithString("type",
			mcp.Required(),
			mcp.Description("Lesson type"),
			mcp.Enum("lecture", "practice", "unknown"),
		),
	)
	addTool(s, sc, setTypeTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ids := common.StringsFromArgs(request.GetArguments(), "ids")
		if len(ids) == 0 {
			return mcp.NewToolResultError("ids is required"), nil
		}
		lessonType, err := model.ParseLessonType(request.GetString("type", ""))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		n, err := sc.Store().SetLessonType(ctx, ids, lessonType)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to set lesson type: %v", err)), nil
		}
		return mcp.NewToolResultText(updatedText(n)), nil
	})

	return nil
}

func updatedText(n int64) string {
	if n == 1 {
		return "Updated 1 lesson"
	}
	return "Updated " + strconv.FormatInt(n, 10) + " lessons"
}
