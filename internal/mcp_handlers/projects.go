package mcp_handlers

import (
	"context"
	"net/url"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mcp-testmo/testmo-mcp-server/internal/testmo"
	"github.com/mcp-testmo/testmo-mcp-server/internal/utils"
)

// ProjectResources exposes projects and their milestones.
type ProjectResources struct {
	client           *testmo.Client
	defaultProjectID int64
	projectParameter mcp.ToolOption
}

func NewProjectResources(client *testmo.Client, defaultProjectID int64) *ProjectResources {
	return &ProjectResources{
		client:           client,
		defaultProjectID: defaultProjectID,
		projectParameter: utils.NewProjectParameter(defaultProjectID),
	}
}

func (pr *ProjectResources) toolListProjects() (mcp.Tool, server.ToolHandlerFunc) {
	return mcp.NewTool("testmo_list_projects",
			mcp.WithDescription("List all accessible Testmo projects. Returns project IDs, names, and metadata."),
		), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return toolResult(pr.client.ListProjects(ctx))
		}
}

func (pr *ProjectResources) toolGetProject() (mcp.Tool, server.ToolHandlerFunc) {
	return mcp.NewTool("testmo_get_project",
			mcp.WithDescription("Get details of a specific Testmo project by ID."),
			pr.projectParameter,
		), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			projectID, err := utils.ExtractProjectID(ctx, request, pr.defaultProjectID)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return toolResult(pr.client.GetProject(ctx, projectID))
		}
}

func (pr *ProjectResources) toolListMilestones() (mcp.Tool, server.ToolHandlerFunc) {
	options := []mcp.ToolOption{
		mcp.WithDescription("List milestones in a project, optionally filtered by completion status."),
		pr.projectParameter,
		mcp.WithBoolean("is_completed",
			mcp.Description("Filter by completion status (optional)"),
		),
	}
	options = append(options, utils.SetPaginationOptions()...)

	return mcp.NewTool("testmo_list_milestones", options...),
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			projectID, err := utils.ExtractProjectID(ctx, request, pr.defaultProjectID)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			query := url.Values{}
			utils.ApplyPaginationOptions(query, request)
			utils.AddBoolParam(query, request, "is_completed")
			return toolResult(pr.client.ListMilestones(ctx, projectID, query))
		}
}

func (pr *ProjectResources) toolGetMilestone() (mcp.Tool, server.ToolHandlerFunc) {
	return mcp.NewTool("testmo_get_milestone",
			mcp.WithDescription("Get details of a specific milestone."),
			mcp.WithNumber("milestone_id",
				mcp.Description("The milestone ID"),
				mcp.Required(),
			),
			utils.ExpandsOption(),
		), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			milestoneID, err := utils.RequireID(request, "milestone_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			query := url.Values{}
			utils.AddListParam(query, request, "expands")
			return toolResult(pr.client.GetMilestone(ctx, milestoneID, query))
		}
}
