package mcp_handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mcp-testmo/testmo-mcp-server/internal/testmo"
	"github.com/mcp-testmo/testmo-mcp-server/internal/utils"
)

// CaseResources exposes test case CRUD, batch operations and single-page search.
type CaseResources struct {
	client           *testmo.Client
	defaultProjectID int64
	projectParameter mcp.ToolOption
}

func NewCaseResources(client *testmo.Client, defaultProjectID int64) *CaseResources {
	return &CaseResources{
		client:           client,
		defaultProjectID: defaultProjectID,
		projectParameter: utils.NewProjectParameter(defaultProjectID),
	}
}

func pageParameters() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithNumber("page",
			mcp.DefaultNumber(utils.FirstPage),
			mcp.Description("Page number (default: 1)"),
		),
		mcp.WithNumber("per_page",
			mcp.DefaultNumber(utils.DefaultPageSize),
			mcp.Description("Results per page (default: 100, max: 100)"),
		),
	}
}

const caseFieldsHelp = `Case fields:
- name (required)
- folder_id: target folder
- template_id: 4=BDD/Gherkin, 1=Steps Table
- state_id: 1=Draft, 2=Review, 3=Approved, 4=Active, 5=Deprecated
- custom_priority: 52=Critical, 1=High, 2=Medium, 3=Low
- tags: list of tag strings
Use testmo_get_field_mappings for the full list of ids.`

func (cr *CaseResources) toolListCases() (mcp.Tool, server.ToolHandlerFunc) {
	options := []mcp.ToolOption{
		mcp.WithDescription("List test cases in a project, optionally limited to one folder. Returns a single page."),
		cr.projectParameter,
		mcp.WithNumber("folder_id",
			mcp.Description("Filter by folder ID (optional)"),
		),
	}
	options = append(options, pageParameters()...)

	return mcp.NewTool("testmo_list_cases", options...),
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			projectID, err := utils.ExtractProjectID(ctx, request, cr.defaultProjectID)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			folderID, _, err := utils.OptionalID(request, "folder_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			page, perPage := utils.PageOptions(request)
			return toolResult(cr.client.ListCasesPage(ctx, projectID, folderID, page, perPage))
		}
}

func (cr *CaseResources) toolGetAllCases() (mcp.Tool, server.ToolHandlerFunc) {
	return mcp.NewTool("testmo_get_all_cases",
			mcp.WithDescription(
				"Get all test cases in a project or folder, following pagination automatically. "+
					"Use with caution on large projects.",
			),
			cr.projectParameter,
			mcp.WithNumber("folder_id",
				mcp.Description("Filter by folder ID (optional)"),
			),
		), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			projectID, err := utils.ExtractProjectID(ctx, request, cr.defaultProjectID)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			folderID, _, err := utils.OptionalID(request, "folder_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			cases, err := cr.client.AllCases(ctx, projectID, folderID)
			if err != nil {
				return utils.ToolError(err), nil
			}
			return utils.FormatResult(map[string]any{
				"total": len(cases),
				"cases": cases,
			})
		}
}

func (cr *CaseResources) toolGetCase() (mcp.Tool, server.ToolHandlerFunc) {
	return mcp.NewTool("testmo_get_case",
			mcp.WithDescription("Get details of a specific test case."),
			cr.projectParameter,
			mcp.WithNumber("case_id",
				mcp.Description("The test case ID"),
				mcp.Required(),
			),
		), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			projectID, err := utils.ExtractProjectID(ctx, request, cr.defaultProjectID)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			caseID, err := utils.RequireID(request, "case_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return toolResult(cr.client.GetCase(ctx, projectID, caseID))
		}
}

func (cr *CaseResources) toolCreateCase() (mcp.Tool, server.ToolHandlerFunc) {
	return mcp.NewTool("testmo_create_case",
			mcp.WithDescription("Create a single test case.\n\n"+caseFieldsHelp),
			cr.projectParameter,
			mcp.WithObject("case_data",
				mcp.Description("Test case data object"),
				mcp.Required(),
			),
		), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			projectID, err := utils.ExtractProjectID(ctx, request, cr.defaultProjectID)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			data, err := utils.RequireObject(request, "case_data")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			if name, _ := data["name"].(string); strings.TrimSpace(name) == "" {
				return mcp.NewToolResultError("case_data.name is required"), nil
			}
			return toolResult(cr.client.CreateCase(ctx, projectID, data))
		}
}

func (cr *CaseResources) toolCreateCases() (mcp.Tool, server.ToolHandlerFunc) {
	return mcp.NewTool("testmo_create_cases",
			mcp.WithDescription(fmt.Sprintf(
				"Create up to %d test cases in one request. Use testmo_batch_create_cases for more.",
				testmo.MaxCasesPerRequest,
			)),
			cr.projectParameter,
			mcp.WithArray("cases",
				mcp.Description("Array of test case objects"),
				mcp.Items(map[string]any{"type": "object"}),
				mcp.Required(),
			),
		), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			projectID, err := utils.ExtractProjectID(ctx, request, cr.defaultProjectID)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			cases, err := utils.RequireObjectList(request, "cases")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return toolResult(cr.client.CreateCases(ctx, projectID, cases))
		}
}

func (cr *CaseResources) toolBatchCreateCases() (mcp.Tool, server.ToolHandlerFunc) {
	return mcp.NewTool("testmo_batch_create_cases",
			mcp.WithDescription(fmt.Sprintf(
				"Create any number of test cases, submitted in batches of %d. "+
					"Failed batches are reported in errors while the remaining batches continue.",
				testmo.MaxCasesPerRequest,
			)),
			cr.projectParameter,
			mcp.WithArray("cases",
				mcp.Description("Array of test case objects"),
				mcp.Items(map[string]any{"type": "object"}),
				mcp.Required(),
			),
		), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			projectID, err := utils.ExtractProjectID(ctx, request, cr.defaultProjectID)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			cases, err := utils.RequireObjectList(request, "cases")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return toolResult(cr.client.BatchCreateCases(ctx, projectID, cases))
		}
}

func (cr *CaseResources) toolUpdateCase() (mcp.Tool, server.ToolHandlerFunc) {
	return mcp.NewTool("testmo_update_case",
			mcp.WithDescription("Update an existing test case. Only the supplied fields change."),
			cr.projectParameter,
			mcp.WithNumber("case_id",
				mcp.Description("The test case ID"),
				mcp.Required(),
			),
			mcp.WithObject("data",
				mcp.Description("Fields to update"),
				mcp.Required(),
			),
		), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			projectID, err := utils.ExtractProjectID(ctx, request, cr.defaultProjectID)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			caseID, err := utils.RequireID(request, "case_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			data, err := utils.RequireObject(request, "data")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return toolResult(cr.client.UpdateCase(ctx, projectID, caseID, data))
		}
}

func (cr *CaseResources) toolDeleteCase() (mcp.Tool, server.ToolHandlerFunc) {
	return mcp.NewTool("testmo_delete_case",
			mcp.WithDescription("Delete a test case."),
			cr.projectParameter,
			mcp.WithNumber("case_id",
				mcp.Description("The test case ID"),
				mcp.Required(),
			),
		), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			projectID, err := utils.ExtractProjectID(ctx, request, cr.defaultProjectID)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			caseID, err := utils.RequireID(request, "case_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return toolResult(cr.client.DeleteCase(ctx, projectID, caseID))
		}
}

func (cr *CaseResources) toolBatchDeleteCases() (mcp.Tool, server.ToolHandlerFunc) {
	return mcp.NewTool("testmo_batch_delete_cases",
			mcp.WithDescription("Delete several test cases one at a time. Failures are reported per case."),
			cr.projectParameter,
			mcp.WithArray("case_ids",
				mcp.Description("IDs of the test cases to delete"),
				mcp.Items(map[string]any{"type": "integer"}),
				mcp.Required(),
			),
		), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			projectID, err := utils.ExtractProjectID(ctx, request, cr.defaultProjectID)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			caseIDs, err := utils.RequireIDList(request, "case_ids")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return toolResult(cr.client.BatchDeleteCases(ctx, projectID, caseIDs))
		}
}

func (cr *CaseResources) toolSearchCases() (mcp.Tool, server.ToolHandlerFunc) {
	options := []mcp.ToolOption{
		mcp.WithDescription(
			"Search test cases with filters. Returns a single page; use testmo_search_cases_recursive " +
				"to search a folder subtree or to apply client-side filters.",
		),
		cr.projectParameter,
		mcp.WithString("query",
			mcp.Description("Search query (searches name and description)"),
		),
		mcp.WithNumber("folder_id",
			mcp.Description("Filter by folder ID"),
		),
		mcp.WithArray("tags",
			mcp.Description("Filter by tags"),
			mcp.Items(map[string]any{"type": "string"}),
		),
		mcp.WithNumber("state_id",
			mcp.Description("Filter by state (1=Draft, 2=Review, 3=Approved, 4=Active, 5=Deprecated)"),
		),
	}
	options = append(options, pageParameters()...)

	return mcp.NewTool("testmo_search_cases", options...),
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			projectID, err := utils.ExtractProjectID(ctx, request, cr.defaultProjectID)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			search := testmo.CaseSearch{
				Query: strings.TrimSpace(request.GetString("query", "")),
				Tags:  request.GetStringSlice("tags", nil),
			}
			if search.FolderID, _, err = utils.OptionalID(request, "folder_id"); err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			if search.StateID, _, err = utils.OptionalID(request, "state_id"); err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			page, perPage := utils.PageOptions(request)
			return toolResult(cr.client.SearchCasesPage(ctx, projectID, search, page, perPage))
		}
}
