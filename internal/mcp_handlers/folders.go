package mcp_handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mcp-testmo/testmo-mcp-server/internal/hierarchy"
	"github.com/mcp-testmo/testmo-mcp-server/internal/testmo"
	"github.com/mcp-testmo/testmo-mcp-server/internal/utils"
)

// FolderResources exposes folder CRUD.
type FolderResources struct {
	client           *testmo.Client
	defaultProjectID int64
	projectParameter mcp.ToolOption
}

func NewFolderResources(client *testmo.Client, defaultProjectID int64) *FolderResources {
	return &FolderResources{
		client:           client,
		defaultProjectID: defaultProjectID,
		projectParameter: utils.NewProjectParameter(defaultProjectID),
	}
}

func (fr *FolderResources) toolListFolders() (mcp.Tool, server.ToolHandlerFunc) {
	return mcp.NewTool("testmo_list_folders",
			mcp.WithDescription(
				"List all folders in a Testmo project. Returns folder hierarchy with IDs, names, "+
					"parent relationships and the full path of every folder.",
			),
			fr.projectParameter,
		), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			projectID, err := utils.ExtractProjectID(ctx, request, fr.defaultProjectID)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			folders, err := fr.client.AllFolders(ctx, projectID)
			if err != nil {
				return utils.ToolError(err), nil
			}

			ix := hierarchy.BuildIndex(folders)
			out := make([]map[string]any, 0, len(folders))
			for _, f := range folders {
				path, err := ix.Path(f.ID)
				if err != nil {
					return utils.ToolError(err), nil
				}
				fields := f.Fields()
				fields["full_path"] = path
				out = append(out, fields)
			}
			return utils.FormatResult(out)
		}
}

func (fr *FolderResources) toolGetFolder() (mcp.Tool, server.ToolHandlerFunc) {
	return mcp.NewTool("testmo_get_folder",
			mcp.WithDescription("Get details of a specific folder."),
			fr.projectParameter,
			mcp.WithNumber("folder_id",
				mcp.Description("The folder ID"),
				mcp.Required(),
			),
		), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			projectID, err := utils.ExtractProjectID(ctx, request, fr.defaultProjectID)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			folderID, err := utils.RequireID(request, "folder_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return toolResult(fr.client.GetFolder(ctx, projectID, folderID))
		}
}

func (fr *FolderResources) toolCreateFolder() (mcp.Tool, server.ToolHandlerFunc) {
	return mcp.NewTool("testmo_create_folder",
			mcp.WithDescription("Create a new folder in a project."),
			fr.projectParameter,
			mcp.WithString("name",
				mcp.Description("Folder name"),
				mcp.Required(),
			),
			mcp.WithNumber("parent_id",
				mcp.Description("Parent folder ID (optional, omit for a top-level folder)"),
			),
		), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			projectID, err := utils.ExtractProjectID(ctx, request, fr.defaultProjectID)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			name, err := request.RequireString("name")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			if strings.TrimSpace(name) == "" {
				return mcp.NewToolResultError("folder name must not be empty"), nil
			}
			parentID, _, err := utils.OptionalID(request, "parent_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return toolResult(fr.client.CreateFolder(ctx, projectID, name, parentID))
		}
}

func (fr *FolderResources) toolUpdateFolder() (mcp.Tool, server.ToolHandlerFunc) {
	return mcp.NewTool("testmo_update_folder",
			mcp.WithDescription("Update a folder's name or move it under another parent."),
			fr.projectParameter,
			mcp.WithNumber("folder_id",
				mcp.Description("The folder ID"),
				mcp.Required(),
			),
			mcp.WithString("name",
				mcp.Description("New folder name"),
			),
			mcp.WithNumber("parent_id",
				mcp.Description("New parent folder ID"),
			),
		), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			projectID, err := utils.ExtractProjectID(ctx, request, fr.defaultProjectID)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			folderID, err := utils.RequireID(request, "folder_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			var upd testmo.FolderUpdate
			if name := request.GetString("name", ""); name != "" {
				upd.Name = &name
			}
			parentID, ok, err := utils.OptionalID(request, "parent_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			if ok {
				upd.ParentID = &parentID
			}
			if upd.Name == nil && upd.ParentID == nil {
				return mcp.NewToolResultError("nothing to update: provide name or parent_id"), nil
			}
			return toolResult(fr.client.UpdateFolder(ctx, projectID, folderID, upd))
		}
}

func (fr *FolderResources) toolDeleteFolder() (mcp.Tool, server.ToolHandlerFunc) {
	return mcp.NewTool("testmo_delete_folder",
			mcp.WithDescription("Delete a folder. The folder must be empty."),
			fr.projectParameter,
			mcp.WithNumber("folder_id",
				mcp.Description("The folder ID"),
				mcp.Required(),
			),
		), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			projectID, err := utils.ExtractProjectID(ctx, request, fr.defaultProjectID)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			folderID, err := utils.RequireID(request, "folder_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return toolResult(fr.client.DeleteFolder(ctx, projectID, folderID))
		}
}

func (fr *FolderResources) toolFindFolderByName() (mcp.Tool, server.ToolHandlerFunc) {
	return mcp.NewTool("testmo_find_folder_by_name",
			mcp.WithDescription("Find a folder by its name within a project."),
			fr.projectParameter,
			mcp.WithString("name",
				mcp.Description("Folder name to search for"),
				mcp.Required(),
			),
			mcp.WithNumber("parent_id",
				mcp.Description("Parent folder ID to search within (optional, omit for root level)"),
			),
		), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			projectID, err := utils.ExtractProjectID(ctx, request, fr.defaultProjectID)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			name, err := request.RequireString("name")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			parentID, _, err := utils.OptionalID(request, "parent_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			folder, err := fr.client.FindFolderByName(ctx, projectID, name, parentID)
			if err != nil {
				return utils.ToolError(err), nil
			}
			if folder == nil {
				return utils.FormatResult(map[string]any{
					"found":   false,
					"message": fmt.Sprintf("Folder '%s' not found", name),
				})
			}
			return utils.FormatResult(folder)
		}
}
