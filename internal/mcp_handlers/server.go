package mcp_handlers

import (
	"embed"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mcp-testmo/testmo-mcp-server/internal/fieldmap"
	"github.com/mcp-testmo/testmo-mcp-server/internal/hierarchy"
	"github.com/mcp-testmo/testmo-mcp-server/internal/promptreader"
	"github.com/mcp-testmo/testmo-mcp-server/internal/testmo"
	"github.com/mcp-testmo/testmo-mcp-server/internal/utils"
)

//go:embed prompts/*.yaml
var promptFiles embed.FS

const serverName = "testmo-mcp-server"

// Options configures the tools exposed by the server.
type Options struct {
	// DefaultProjectID is used when a tool call carries no project_id; 0 disables it.
	DefaultProjectID int64
	// FieldMappings backs testmo_get_field_mappings; nil selects the embedded defaults.
	FieldMappings fieldmap.Mappings
}

func NewServer(version string, client *testmo.Client, opts Options) (*server.MCPServer, error) {
	s := server.NewMCPServer(
		serverName,
		version,
		server.WithRecovery(),
		server.WithLogging(),
		server.WithResourceCapabilities(true, true),
		server.WithPromptCapabilities(true),
		server.WithToolCapabilities(true),
	)

	tools := Tools(client, opts)
	for i := range tools {
		tools[i].Handler = utils.WithToolLogging(tools[i].Tool.Name, tools[i].Handler)
	}
	s.AddTools(tools...)

	folders := NewRecursiveResources(client, opts.DefaultProjectID)
	s.AddResourceTemplate(folders.resourceFolderTree())

	prompts, err := promptreader.LoadPromptsFromFS(promptFiles, "prompts")
	if err != nil {
		return nil, fmt.Errorf("failed to load prompts: %w", err)
	}
	s.AddPrompts(prompts...)

	slog.Info("MCP server initialized",
		"tools", len(tools),
		"prompts", len(prompts),
		"default_project_id", opts.DefaultProjectID)
	return s, nil
}

// Tools returns the full tool table in registration order.
func Tools(client *testmo.Client, opts Options) []server.ServerTool {
	mappings := opts.FieldMappings
	if mappings == nil {
		mappings = fieldmap.Defaults()
	}

	recursive := NewRecursiveResources(client, opts.DefaultProjectID)
	projects := NewProjectResources(client, opts.DefaultProjectID)
	folders := NewFolderResources(client, opts.DefaultProjectID)
	cases := NewCaseResources(client, opts.DefaultProjectID)
	runs := NewRunResources(client, opts.DefaultProjectID)
	attachments := NewAttachmentResources(client)
	integrations := NewIntegrationResources(client, opts.DefaultProjectID)
	utility := NewUtilityResources(client, mappings, opts.DefaultProjectID)

	table := []func() (mcp.Tool, server.ToolHandlerFunc){
		recursive.toolGetFoldersRecursive,
		recursive.toolGetCasesRecursive,
		recursive.toolSearchCasesRecursive,

		projects.toolListProjects,
		projects.toolGetProject,
		projects.toolListMilestones,
		projects.toolGetMilestone,

		folders.toolListFolders,
		folders.toolGetFolder,
		folders.toolCreateFolder,
		folders.toolUpdateFolder,
		folders.toolDeleteFolder,
		folders.toolFindFolderByName,

		cases.toolListCases,
		cases.toolGetAllCases,
		cases.toolGetCase,
		cases.toolCreateCase,
		cases.toolCreateCases,
		cases.toolBatchCreateCases,
		cases.toolUpdateCase,
		cases.toolDeleteCase,
		cases.toolBatchDeleteCases,
		cases.toolSearchCases,

		runs.toolListRuns,
		runs.toolGetRun,
		runs.toolListRunResults,

		attachments.toolListCaseAttachments,
		attachments.toolUploadCaseAttachment,
		attachments.toolDeleteCaseAttachments,

		integrations.toolListIssueConnections,
		integrations.toolGetIssueConnection,
		integrations.toolListAutomationSources,
		integrations.toolGetAutomationSource,
		integrations.toolListAutomationRuns,
		integrations.toolGetAutomationRun,

		utility.toolGetFieldMappings,
		utility.toolGetWebURL,
	}

	tools := make([]server.ServerTool, 0, len(table))
	for _, build := range table {
		tool, handler := build()
		tools = append(tools, server.ServerTool{Tool: tool, Handler: handler})
	}
	return tools
}

// toolResult renders a successful value as JSON text, or err as an error result.
func toolResult(v any, err error) (*mcp.CallToolResult, error) {
	if err != nil {
		return utils.ToolError(err), nil
	}
	return utils.FormatResult(v)
}

func newAggregator(client *testmo.Client) *hierarchy.Aggregator {
	return hierarchy.NewAggregator(client, client.Pacer())
}
