package schedule_tools

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/nubip/schedsync/internal/server"
	"github.com/nubip/schedsync/internal/tools/common"
)

// RegisterScheduleTools registers every schedule tool with the MCP server.
func RegisterScheduleTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	if err := registerImportTools(s, sc, readOnly); err != nil {
		return fmt.Errorf("failed to register import tools: %w", err)
	}
	if err := registerLessonTools(s, sc, readOnly); err != nil {
		return fmt.Errorf("failed to register lesson tools: %w", err)
	}
	if err := registerCalendarTools(s, sc, readOnly); err != nil {
		return fmt.Errorf("failed to register calendar tools: %w", err)
	}
	return nil
}

func addTool(s *mcpserver.MCPServer, sc *server.ServerContext, tool mcp.Tool, handler mcpserver.ToolHandlerFunc) {
	s.AddTool(tool, common.InstrumentedToolHandler(tool.Name, sc, handler))
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

var emailParam = mcp.WithString("email",
	mcp.Required(),
	mcp.Description("Email of the student or teacher, as registered in the LMS"),
)
