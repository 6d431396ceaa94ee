package mcp_handlers

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/url"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mcp-testmo/testmo-mcp-server/internal/testmo"
	"github.com/mcp-testmo/testmo-mcp-server/internal/utils"
)

const defaultAttachmentContentType = "application/octet-stream"

// AttachmentResources exposes the file attachments of test cases.
type AttachmentResources struct {
	client *testmo.Client
}

func NewAttachmentResources(client *testmo.Client) *AttachmentResources {
	return &AttachmentResources{client: client}
}

func (ar *AttachmentResources) toolListCaseAttachments() (mcp.Tool, server.ToolHandlerFunc) {
	options := []mcp.ToolOption{
		mcp.WithDescription("List the file attachments of a test case."),
		mcp.WithNumber("case_id",
			mcp.Description("The test case ID"),
			mcp.Required(),
		),
	}
	options = append(options, utils.SetPaginationOptions()...)

	return mcp.NewTool("testmo_list_case_attachments", options...),
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			caseID, err := utils.RequireID(request, "case_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			query := url.Values{}
			utils.ApplyPaginationOptions(query, request)
			return toolResult(ar.client.ListCaseAttachments(ctx, caseID, query))
		}
}

func (ar *AttachmentResources) toolUploadCaseAttachment() (mcp.Tool, server.ToolHandlerFunc) {
	return mcp.NewTool("testmo_upload_case_attachment",
			mcp.WithDescription(
				"Upload a single file attachment to a test case.\n\n"+
					"Provide the file content as base64-encoded string. Common content types:\n"+
					"- image/png, image/jpeg - Screenshots\n"+
					"- application/pdf - Documents\n"+
					"- text/plain - Log files\n"+
					"- application/json - JSON data",
			),
			mcp.WithNumber("case_id",
				mcp.Description("The test case ID"),
				mcp.Required(),
			),
			mcp.WithString("filename",
				mcp.Description("Name of the file (e.g., 'screenshot.png')"),
				mcp.Required(),
			),
			mcp.WithString("content_base64",
				mcp.Description("Base64-encoded file content"),
				mcp.Required(),
			),
			mcp.WithString("content_type",
				mcp.Description("MIME type (default: 'application/octet-stream')"),
				mcp.DefaultString(defaultAttachmentContentType),
			),
		), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			caseID, err := utils.RequireID(request, "case_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			filename, err := request.RequireString("filename")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			encoded, err := request.RequireString("content_base64")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			content, err := base64.StdEncoding.DecodeString(encoded)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("content_base64 is not valid base64: %v", err)), nil
			}
			contentType := request.GetString("content_type", defaultAttachmentContentType)
			return toolResult(ar.client.UploadCaseAttachment(ctx, caseID, filename, contentType, content))
		}
}

func (ar *AttachmentResources) toolDeleteCaseAttachments() (mcp.Tool, server.ToolHandlerFunc) {
	return mcp.NewTool("testmo_delete_case_attachments",
			mcp.WithDescription("Delete one or more attachments of a test case."),
			mcp.WithNumber("case_id",
				mcp.Description("The test case ID"),
				mcp.Required(),
			),
			mcp.WithArray("attachment_ids",
				mcp.Description("IDs of the attachments to delete"),
				mcp.Items(map[string]any{"type": "integer"}),
				mcp.Required(),
			),
		), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			caseID, err := utils.RequireID(request, "case_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			ids, err := utils.RequireIDList(request, "attachment_ids")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			if len(ids) == 0 {
				return mcp.NewToolResultError("attachment_ids must not be empty"), nil
			}
			return toolResult(ar.client.DeleteCaseAttachments(ctx, caseID, ids))
		}
}
