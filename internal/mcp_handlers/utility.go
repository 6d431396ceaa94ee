package mcp_handlers

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mcp-testmo/testmo-mcp-server/internal/fieldmap"
	"github.com/mcp-testmo/testmo-mcp-server/internal/testmo"
	"github.com/mcp-testmo/testmo-mcp-server/internal/utils"
)

const defaultWebResourceType = "repositories"

// UtilityResources exposes helpers that need no project data from the API.
type UtilityResources struct {
	client           *testmo.Client
	mappings         fieldmap.Mappings
	defaultProjectID int64
	projectParameter mcp.ToolOption
}

func NewUtilityResources(
	client *testmo.Client,
	mappings fieldmap.Mappings,
	defaultProjectID int64,
) *UtilityResources {
	return &UtilityResources{
		client:           client,
		mappings:         mappings,
		defaultProjectID: defaultProjectID,
		projectParameter: utils.NewProjectParameter(defaultProjectID),
	}
}

func (ur *UtilityResources) toolGetFieldMappings() (mcp.Tool, server.ToolHandlerFunc) {
	return mcp.NewTool("testmo_get_field_mappings",
			mcp.WithDescription(
				"Get the field value mappings for Testmo API. Returns mappings for:\n"+
					"- project_id: Project name to ID mapping\n"+
					"- custom_priority: Priority levels (Critical, High, Medium, Low)\n"+
					"- custom_type: Test types (Functional, Acceptance, Security, etc.)\n"+
					"- configurations: Platform IDs\n"+
					"- state_id: Test case states (Draft, Review, Approved, Active, Deprecated)\n"+
					"- result_status_id: Test result statuses (Untested, Passed, Failed, Retest, Blocked, Skipped)\n"+
					"- automation_run_status: Automation run statuses (Success, Failure, Running)\n"+
					"- tags: Tag categories\n\n"+
					"Use this to understand correct field values before creating/updating test cases.",
			),
			mcp.WithString("field",
				mcp.Description("Return only the mapping of this field (optional)"),
			),
		), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			field := request.GetString("field", "")
			if field == "" {
				return utils.FormatResult(ur.mappings)
			}
			section, err := ur.mappings.Section(field)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return utils.FormatResult(map[string]any{field: section})
		}
}

func (ur *UtilityResources) toolGetWebURL() (mcp.Tool, server.ToolHandlerFunc) {
	return mcp.NewTool("testmo_get_web_url",
			mcp.WithDescription("Generate a web URL for viewing a resource in Testmo."),
			ur.projectParameter,
			mcp.WithString("resource_type",
				mcp.Description("Type of resource (repositories, runs)"),
				mcp.DefaultString(defaultWebResourceType),
			),
			mcp.WithNumber("resource_id",
				mcp.Description("Resource ID (e.g., folder ID)"),
			),
		), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			projectID, err := utils.ExtractProjectID(ctx, request, ur.defaultProjectID)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			resourceID, _, err := utils.OptionalID(request, "resource_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			resourceType := request.GetString("resource_type", defaultWebResourceType)
			if resourceType == "" {
				resourceType = defaultWebResourceType
			}
			return utils.FormatResult(map[string]string{
				"url": ur.client.WebURL(projectID, resourceType, resourceID),
			})
		}
}
