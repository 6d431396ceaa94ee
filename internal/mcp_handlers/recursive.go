package mcp_handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/yosida95/uritemplate/v3"

	"github.com/mcp-testmo/testmo-mcp-server/internal/hierarchy"
	"github.com/mcp-testmo/testmo-mcp-server/internal/testmo"
	"github.com/mcp-testmo/testmo-mcp-server/internal/utils"
)

// RecursiveResources exposes operations over a folder and all of its descendants.
type RecursiveResources struct {
	aggregator       *hierarchy.Aggregator
	defaultProjectID int64
	projectParameter mcp.ToolOption
}

func NewRecursiveResources(client *testmo.Client, defaultProjectID int64) *RecursiveResources {
	return &RecursiveResources{
		aggregator:       newAggregator(client),
		defaultProjectID: defaultProjectID,
		projectParameter: utils.NewProjectParameter(defaultProjectID),
	}
}

// aggregateResult renders an unknown root folder as an error document rather than a failed call.
func aggregateResult(v any, err error) (*mcp.CallToolResult, error) {
	var notFound *hierarchy.FolderNotFoundError
	if errors.As(err, &notFound) {
		return utils.FormatResult(map[string]string{"error": notFound.Error()})
	}
	return toolResult(v, err)
}

func (rr *RecursiveResources) toolGetFoldersRecursive() (mcp.Tool, server.ToolHandlerFunc) {
	return mcp.NewTool("testmo_get_folders_recursive",
			mcp.WithDescription(
				"Get a folder and all its descendant subfolders as a nested tree. "+
					"Returns the complete folder hierarchy under the given folder ID in a "+
					"single call, avoiding multiple round-trips.",
			),
			rr.projectParameter,
			mcp.WithNumber("folder_id",
				mcp.Description("The root folder ID to start recursion from"),
				mcp.Required(),
			),
		), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			projectID, err := utils.ExtractProjectID(ctx, request, rr.defaultProjectID)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			folderID, err := utils.RequireID(request, "folder_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return aggregateResult(rr.aggregator.FolderTree(ctx, projectID, folderID))
		}
}

func (rr *RecursiveResources) toolGetCasesRecursive() (mcp.Tool, server.ToolHandlerFunc) {
	return mcp.NewTool("testmo_get_cases_recursive",
			mcp.WithDescription(
				"Get all test cases from a folder and all its subfolders in a single call. "+
					"Returns a flat list of cases annotated with folder name and path. "+
					"Includes per-folder case counts in the summary.",
			),
			rr.projectParameter,
			mcp.WithNumber("folder_id",
				mcp.Description("The root folder ID to collect cases from recursively"),
				mcp.Required(),
			),
			mcp.WithBoolean("include_folder_path",
				mcp.Description("Include folder path on each case (default: true)"),
				mcp.DefaultBool(true),
			),
		), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			projectID, err := utils.ExtractProjectID(ctx, request, rr.defaultProjectID)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			folderID, err := utils.RequireID(request, "folder_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			includePath := request.GetBool("include_folder_path", true)
			return aggregateResult(rr.aggregator.Cases(ctx, projectID, folderID, includePath))
		}
}

func (rr *RecursiveResources) toolSearchCasesRecursive() (mcp.Tool, server.ToolHandlerFunc) {
	return mcp.NewTool("testmo_search_cases_recursive",
			mcp.WithDescription(
				"Search for test cases recursively within a folder and all its subfolders, "+
					"or across the whole project when folder_id is omitted. "+
					"Supports API-level filters (query, tags, state_id) plus client-side "+
					"custom_filters, array_filters and issue_key for matching on any case property "+
					"(e.g., custom_priority, configurations, linked issues). "+
					"Returns matching cases with folder context.",
			),
			rr.projectParameter,
			mcp.WithNumber("folder_id",
				mcp.Description("The root folder ID to search recursively within. Omit to search the whole project"),
			),
			mcp.WithString("query",
				mcp.Description("Search query (searches name and description)"),
			),
			mcp.WithArray("tags",
				mcp.Description("Filter by tags"),
				mcp.Items(map[string]any{"type": "string"}),
			),
			mcp.WithNumber("state_id",
				mcp.Description("Filter by state (1=Draft, 2=Review, 3=Approved, 4=Active, 5=Deprecated)"),
			),
			mcp.WithObject("custom_filters",
				mcp.Description(
					`Key-value pairs to match on case properties. Example: {"custom_priority": 1, "custom_type": 59}`,
				),
			),
			mcp.WithString("match_mode",
				mcp.Description(
					"How string values in custom_filters are compared: exact equality, "+
						"or case-insensitive substring (contains)",
				),
				mcp.Enum(string(hierarchy.MatchExact), string(hierarchy.MatchContains)),
				mcp.DefaultString(string(hierarchy.MatchExact)),
			),
			mcp.WithObject("array_filters",
				mcp.Description(
					"List properties that must contain at least one of the given values. "+
						`Example: {"tags": ["regression", "smoke"], "configurations": [4]}`,
				),
			),
			mcp.WithString("issue_key",
				mcp.Description("Keep only cases linked to this issue display id (e.g., PROJ-123)"),
			),
		), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			projectID, err := utils.ExtractProjectID(ctx, request, rr.defaultProjectID)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			searchReq := hierarchy.SearchRequest{
				ProjectID: projectID,
				Query:     strings.TrimSpace(request.GetString("query", "")),
				Tags:      request.GetStringSlice("tags", nil),
			}
			if folderID, ok, err := utils.OptionalID(request, "folder_id"); err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			} else if ok {
				searchReq.FolderID = &folderID
			}
			if searchReq.StateID, _, err = utils.OptionalID(request, "state_id"); err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			if searchReq.Filters, err = extractFilters(request); err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return aggregateResult(rr.aggregator.Search(ctx, searchReq))
		}
}

// extractFilters reads the client-side filter arguments. A scalar array filter value
// is treated as a single acceptable value.
func extractFilters(request mcp.CallToolRequest) (hierarchy.Filters, error) {
	args := request.GetArguments()
	filters := hierarchy.Filters{
		IssueKey: strings.TrimSpace(request.GetString("issue_key", "")),
	}

	mode := hierarchy.MatchMode(request.GetString("match_mode", string(hierarchy.MatchExact)))
	switch mode {
	case hierarchy.MatchExact, hierarchy.MatchContains:
		filters.Mode = mode
	default:
		return filters, fmt.Errorf("invalid match_mode %q: must be exact or contains", mode)
	}

	if raw, ok := args["custom_filters"]; ok && raw != nil {
		custom, isObj := raw.(map[string]any)
		if !isObj {
			return filters, errors.New("custom_filters must be an object")
		}
		filters.Custom = custom
	}

	if raw, ok := args["array_filters"]; ok && raw != nil {
		arrays, isObj := raw.(map[string]any)
		if !isObj {
			return filters, errors.New("array_filters must be an object")
		}
		filters.Arrays = make(map[string][]any, len(arrays))
		for key, value := range arrays {
			if list, isList := value.([]any); isList {
				filters.Arrays[key] = list
			} else {
				filters.Arrays[key] = []any{value}
			}
		}
	}
	return filters, nil
}

func (rr *RecursiveResources) resourceFolderTree() (mcp.ResourceTemplate, server.ResourceTemplateHandlerFunc) {
	tmpl := uritemplate.MustNew("testmo://{project_id}/folders/{folder_id}/tree")

	return mcp.NewResourceTemplate(tmpl.Raw(), "testmo-folder-tree",
			mcp.WithTemplateDescription("A Testmo folder and all of its subfolders as a nested tree"),
			mcp.WithTemplateMIMEType("application/json"),
		),
		func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
			paramValues := tmpl.Match(request.Params.URI)
			if len(paramValues) == 0 {
				return nil, fmt.Errorf("incorrect URI: %s", request.Params.URI)
			}
			projectID, err := strconv.ParseInt(paramValues.Get("project_id").String(), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid project_id in URI %s: %w", request.Params.URI, err)
			}
			folderID, err := strconv.ParseInt(paramValues.Get("folder_id").String(), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid folder_id in URI %s: %w", request.Params.URI, err)
			}

			tree, err := rr.aggregator.FolderTree(ctx, projectID, folderID)
			if err != nil {
				return nil, err
			}
			payload, err := json.Marshal(tree)
			if err != nil {
				return nil, fmt.Errorf("failed to marshal folder tree: %w", err)
			}
			return []mcp.ResourceContents{
				mcp.TextResourceContents{
					URI:      request.Params.URI,
					MIMEType: "application/json",
					Text:     string(payload),
				},
			}, nil
		}
}
