package cmd

import (
	"context"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/nubip/schedsync/internal/server"
	"github.com/nubip/schedsync/internal/store"
)

func newGenerateDocsCmd() *cobra.Command {
	var outputFile string

	cmd := &cobra.Command{
		Use:   "generate-docs",
		Short: "Generate MCP tool documentation",
		Long: `Generate markdown documentation for all available MCP tools.
The tools are registered against an in-memory store and introspected, so
the output always matches the tool definitions.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if outputFile == "" {
				return runGenerateDocs(cmd.Context(), cmd.OutOrStdout())
			}
			f, err := os.Create(outputFile)
			if err != nil {
				return fmt.Errorf("failed to create output file: %w", err)
			}
			if err := runGenerateDocs(cmd.Context(), f); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Documentation written to: %s\n", outputFile)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")
	return cmd
}

func runGenerateDocs(ctx context.Context, w io.Writer) error {
	serverContext, err := server.NewServerContext(ctx, server.Services{Store: store.NewMemory()})
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() {
		_ = serverContext.Shutdown()
	}()

	mcpSrv := mcpserver.NewMCPServer("schedsync", version,
		mcpserver.WithToolCapabilities(true),
	)

	// Write mode registers every tool.
	if err := registerAllTools(mcpSrv, serverContext, false); err != nil {
		return err
	}

	serverTools := mcpSrv.ListTools()
	tools := make([]mcp.Tool, 0, len(serverTools))
	for _, serverTool := range serverTools {
		tools = append(tools, serverTool.Tool)
	}

	_, err = io.WriteString(w, generateToolsMarkdown(tools))
	return err
}

func generateToolsMarkdown(tools []mcp.Tool) string {
	var sb strings.Builder

	sb.WriteString("# MCP Tools Reference\n\n")
	sb.WriteString("This document lists the tools available when running `schedsync serve`.\n\n")
	sb.WriteString("**Note:** This documentation is automatically generated from the tool definitions.\n\n")

	byCategory := make(map[string][]mcp.Tool)
	for _, tool := range tools {
		category := getCategoryFromToolName(tool.Name)
		byCategory[category] = append(byCategory[category], tool)
	}
	categories := slices.Sorted(maps.Keys(byCategory))

	sb.WriteString("## Table of Contents\n\n")
	for _, category := range categories {
		fmt.Fprintf(&sb, "- [%s](#%s)\n", category, strings.ToLower(strings.ReplaceAll(category, " ", "-")))
	}

	sb.WriteString("\n## Read-Only Mode\n\n")
	sb.WriteString("Without `--yolo` only inspection tools are registered. Tools marked ")
	sb.WriteString("*requires `--yolo`* import schedules, edit lessons or write to calendars.\n\n")

	for _, category := range categories {
		categoryTools := byCategory[category]
		slices.SortFunc(categoryTools, func(a, b mcp.Tool) int { return strings.Compare(a.Name, b.Name) })

		fmt.Fprintf(&sb, "## %s\n\n", category)
		for _, tool := range categoryTools {
			writeToolMarkdown(&sb, tool)
		}
	}
	return sb.String()
}

func getCategoryFromToolName(name string) string {
	switch {
	case strings.HasSuffix(name, "_schedule"), strings.HasSuffix(name, "_semesters"):
		return "Schedule Tools"
	case strings.Contains(name, "lesson"), strings.Contains(name, "meeting"):
		return "Lesson Tools"
	case strings.Contains(name, "calendar"), strings.HasSuffix(name, "_ics"):
		return "Calendar Tools"
	default:
		return "Other"
	}
}

func isReadOnly(tool mcp.Tool) bool {
	hint := tool.Annotations.ReadOnlyHint
	return hint != nil && *hint
}

func writeToolMarkdown(sb *strings.Builder, tool mcp.Tool) {
	fmt.Fprintf(sb, "### %s\n\n", tool.Name)
	if tool.Description != "" {
		fmt.Fprintf(sb, "%s\n\n", tool.Description)
	}
	if !isReadOnly(tool) {
		sb.WriteString("*requires `--yolo`*\n\n")
	}

	props := tool.InputSchema.Properties
	if len(props) == 0 {
		return
	}
	sb.WriteString("**Arguments:**\n")
	for _, name := range slices.Sorted(maps.Keys(props)) {
		prop, ok := props[name].(map[string]any)
		if !ok {
			continue
		}
		required := "optional"
		if slices.Contains(tool.InputSchema.Required, name) {
			required = "required"
		}
		desc, ok := prop["description"].(string)
		if !ok {
			desc = getPropertyType(prop) + " parameter"
		}
		fmt.Fprintf(sb, "- `%s` (%s): %s", name, required, desc)
		if values := enumValues(prop); len(values) > 0 {
			fmt.Fprintf(sb, " One of: `%s`.", strings.Join(values, "`, `"))
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
}

func enumValues(prop map[string]any) []string {
	switch v := prop["enum"].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, fmt.Sprint(item))
		}
		return out
	}
	return nil
}

func getPropertyType(prop map[string]any) string {
	if t, ok := prop["type"].(string); ok {
		return t
	}
	return "any"
}
