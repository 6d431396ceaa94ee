package mcp_handlers

import (
	"context"
	"net/url"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mcp-testmo/testmo-mcp-server/internal/testmo"
	"github.com/mcp-testmo/testmo-mcp-server/internal/utils"
)

// IntegrationResources exposes issue tracker connections and automation sources and runs.
type IntegrationResources struct {
	client           *testmo.Client
	defaultProjectID int64
	projectParameter mcp.ToolOption
}

func NewIntegrationResources(client *testmo.Client, defaultProjectID int64) *IntegrationResources {
	return &IntegrationResources{
		client:           client,
		defaultProjectID: defaultProjectID,
		projectParameter: utils.NewProjectParameter(defaultProjectID),
	}
}

func (ir *IntegrationResources) toolListIssueConnections() (mcp.Tool, server.ToolHandlerFunc) {
	options := []mcp.ToolOption{
		mcp.WithDescription(
			"List available issue integrations (GitHub, Jira, etc.). " +
				"Use the connection IDs to link issues to test cases and results.",
		),
		mcp.WithNumber("project_id",
			mcp.Description("Filter by project ID (optional)"),
		),
		mcp.WithString("integration_type",
			mcp.Description("Filter by integration type (e.g., 'github', 'jira', 'azure_devops')"),
		),
		mcp.WithBoolean("is_active",
			mcp.Description("Filter by active status (optional)"),
		),
	}
	options = append(options, utils.SetPaginationOptions()...)

	return mcp.NewTool("testmo_list_issue_connections", options...),
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			query := url.Values{}
			utils.ApplyPaginationOptions(query, request)
			if err := utils.AddIntParam(query, request, "project_id"); err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			utils.AddStringParam(query, request, "integration_type")
			utils.AddBoolParam(query, request, "is_active")
			return toolResult(ir.client.ListIssueConnections(ctx, query))
		}
}

func (ir *IntegrationResources) toolGetIssueConnection() (mcp.Tool, server.ToolHandlerFunc) {
	return mcp.NewTool("testmo_get_issue_connection",
			mcp.WithDescription("Get details of a specific issue connection."),
			mcp.WithNumber("connection_id",
				mcp.Description("The issue connection ID"),
				mcp.Required(),
			),
			utils.ExpandsOption(),
		), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			connectionID, err := utils.RequireID(request, "connection_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			query := url.Values{}
			utils.AddListParam(query, request, "expands")
			return toolResult(ir.client.GetIssueConnection(ctx, connectionID, query))
		}
}

func (ir *IntegrationResources) toolListAutomationSources() (mcp.Tool, server.ToolHandlerFunc) {
	options := []mcp.ToolOption{
		mcp.WithDescription("List automation sources (CI pipelines, test frameworks) of a project."),
		ir.projectParameter,
		mcp.WithBoolean("is_retired",
			mcp.Description("Filter by retired status (optional)"),
		),
	}
	options = append(options, utils.SetPaginationOptions()...)

	return mcp.NewTool("testmo_list_automation_sources", options...),
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			projectID, err := utils.ExtractProjectID(ctx, request, ir.defaultProjectID)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			query := url.Values{}
			utils.ApplyPaginationOptions(query, request)
			utils.AddBoolParam(query, request, "is_retired")
			return toolResult(ir.client.ListAutomationSources(ctx, projectID, query))
		}
}

func (ir *IntegrationResources) toolGetAutomationSource() (mcp.Tool, server.ToolHandlerFunc) {
	return mcp.NewTool("testmo_get_automation_source",
			mcp.WithDescription("Get details of a specific automation source."),
			mcp.WithNumber("automation_source_id",
				mcp.Description("The automation source ID"),
				mcp.Required(),
			),
			utils.ExpandsOption(),
		), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			sourceID, err := utils.RequireID(request, "automation_source_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			query := url.Values{}
			utils.AddListParam(query, request, "expands")
			return toolResult(ir.client.GetAutomationSource(ctx, sourceID, query))
		}
}

func (ir *IntegrationResources) toolListAutomationRuns() (mcp.Tool, server.ToolHandlerFunc) {
	options := []mcp.ToolOption{
		mcp.WithDescription("List automation runs in a project with optional filters."),
		ir.projectParameter,
		mcp.WithString("source_id",
			mcp.Description("Comma-separated automation source IDs to filter by"),
		),
		mcp.WithString("milestone_id",
			mcp.Description("Comma-separated milestone IDs to filter by"),
		),
		mcp.WithString("status",
			mcp.Description("Comma-separated status values (2=Success, 3=Failure, 4=Running)"),
		),
		mcp.WithString("created_after",
			mcp.Description("Filter runs created after (ISO8601 format)"),
		),
		mcp.WithString("created_before",
			mcp.Description("Filter runs created before (ISO8601 format)"),
		),
		mcp.WithString("tags",
			mcp.Description("Comma-separated tags to filter by"),
		),
	}
	options = append(options, utils.SetPaginationOptions()...)

	return mcp.NewTool("testmo_list_automation_runs", options...),
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			projectID, err := utils.ExtractProjectID(ctx, request, ir.defaultProjectID)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			query := url.Values{}
			utils.ApplyPaginationOptions(query, request)
			for _, key := range []string{"source_id", "milestone_id", "status", "created_after", "created_before", "tags"} {
				utils.AddStringParam(query, request, key)
			}
			return toolResult(ir.client.ListAutomationRuns(ctx, projectID, query))
		}
}

func (ir *IntegrationResources) toolGetAutomationRun() (mcp.Tool, server.ToolHandlerFunc) {
	return mcp.NewTool("testmo_get_automation_run",
			mcp.WithDescription("Get details of a specific automation run."),
			mcp.WithNumber("automation_run_id",
				mcp.Description("The automation run ID"),
				mcp.Required(),
			),
			utils.ExpandsOption(),
		), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			runID, err := utils.RequireID(request, "automation_run_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			query := url.Values{}
			utils.AddListParam(query, request, "expands")
			return toolResult(ir.client.GetAutomationRun(ctx, runID, query))
		}
}
