package mcp_handlers

import (
	"context"
	"net/url"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mcp-testmo/testmo-mcp-server/internal/testmo"
	"github.com/mcp-testmo/testmo-mcp-server/internal/utils"
)

// RunResources exposes manual test runs and their results.
type RunResources struct {
	client           *testmo.Client
	defaultProjectID int64
	projectParameter mcp.ToolOption
}

func NewRunResources(client *testmo.Client, defaultProjectID int64) *RunResources {
	return &RunResources{
		client:           client,
		defaultProjectID: defaultProjectID,
		projectParameter: utils.NewProjectParameter(defaultProjectID),
	}
}

func (rr *RunResources) toolListRuns() (mcp.Tool, server.ToolHandlerFunc) {
	options := []mcp.ToolOption{
		mcp.WithDescription("List test runs in a project."),
		rr.projectParameter,
		mcp.WithBoolean("is_closed",
			mcp.Description("Filter by closed status (optional)"),
		),
		mcp.WithNumber("milestone_id",
			mcp.Description("Filter by milestone ID (optional)"),
		),
	}
	options = append(options, utils.SetPaginationOptions()...)

	return mcp.NewTool("testmo_list_runs", options...),
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			projectID, err := utils.ExtractProjectID(ctx, request, rr.defaultProjectID)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			query := url.Values{}
			utils.ApplyPaginationOptions(query, request)
			utils.AddBoolParam(query, request, "is_closed")
			if err := utils.AddIntParam(query, request, "milestone_id"); err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return toolResult(rr.client.ListRuns(ctx, projectID, query))
		}
}

func (rr *RunResources) toolGetRun() (mcp.Tool, server.ToolHandlerFunc) {
	return mcp.NewTool("testmo_get_run",
			mcp.WithDescription("Get details of a specific test run."),
			mcp.WithNumber("run_id",
				mcp.Description("The test run ID"),
				mcp.Required(),
			),
			utils.ExpandsOption(),
		), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			runID, err := utils.RequireID(request, "run_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			query := url.Values{}
			utils.AddListParam(query, request, "expands")
			return toolResult(rr.client.GetRun(ctx, runID, query))
		}
}

func (rr *RunResources) toolListRunResults() (mcp.Tool, server.ToolHandlerFunc) {
	options := []mcp.ToolOption{
		mcp.WithDescription("List test results for a run with optional filters."),
		mcp.WithNumber("run_id",
			mcp.Description("The test run ID"),
			mcp.Required(),
		),
		mcp.WithString("status_id",
			mcp.Description("Comma-separated status IDs (1=Untested, 2=Passed, 3=Failed, 4=Retest, 5=Blocked, 6=Skipped)"),
		),
		mcp.WithString("assignee_id",
			mcp.Description("Comma-separated assignee IDs to filter by"),
		),
		mcp.WithString("created_by",
			mcp.Description("Comma-separated user IDs who created results"),
		),
		mcp.WithString("created_after",
			mcp.Description("Filter results created after (ISO8601 format)"),
		),
		mcp.WithString("created_before",
			mcp.Description("Filter results created before (ISO8601 format)"),
		),
		mcp.WithBoolean("get_latest_result",
			mcp.Description("If true, return only the latest result per test"),
		),
	}
	options = append(options, utils.SetPaginationOptions()...)

	return mcp.NewTool("testmo_list_run_results", options...),
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			runID, err := utils.RequireID(request, "run_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			query := url.Values{}
			utils.ApplyPaginationOptions(query, request)
			for _, key := range []string{"status_id", "assignee_id", "created_by", "created_after", "created_before"} {
				utils.AddStringParam(query, request, key)
			}
			utils.AddBoolParam(query, request, "get_latest_result")
			return toolResult(rr.client.ListRunResults(ctx, runID, query))
		}
}
