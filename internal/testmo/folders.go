package testmo

import (
	"context"
	"encoding/json"
	"fmt"

	"resty.dev/v3"
)

// ListFoldersPage fetches one page of the project's folders.
func (c *Client) ListFoldersPage(
	ctx context.Context,
	projectID int64,
	page, perPage int,
) (*Page[Folder], error) {
	body, err := c.execute(ctx, resty.MethodGet, "/projects/{project_id}/folders",
		func(r *resty.Request) {
			r.SetPathParam("project_id", fmtID(projectID)).
				SetQueryParams(pageQuery(page, perPage))
		})
	if err != nil {
		return nil, err
	}
	return decodePage[Folder](body)
}

// AllFolders fetches every folder of the project.
func (c *Client) AllFolders(ctx context.Context, projectID int64) ([]Folder, error) {
	folders, err := CollectPages(ctx, c.pacer, func(ctx context.Context, page int) (*Page[Folder], error) {
		return c.ListFoldersPage(ctx, projectID, page, DefaultPerPage)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list folders of project %d: %w", projectID, err)
	}
	return folders, nil
}

func (c *Client) GetFolder(ctx context.Context, projectID, folderID int64) (json.RawMessage, error) {
	body, err := c.execute(ctx, resty.MethodGet, "/projects/{project_id}/folders/{folder_id}",
		func(r *resty.Request) {
			r.SetPathParams(map[string]string{
				"project_id": fmtID(projectID),
				"folder_id":  fmtID(folderID),
			})
		})
	if err != nil {
		return nil, err
	}
	return unwrapResult(body), nil
}

// CreateFolder creates a folder. parentID 0 creates it at the top level.
func (c *Client) CreateFolder(
	ctx context.Context,
	projectID int64,
	name string,
	parentID int64,
) (json.RawMessage, error) {
	payload := map[string]any{"name": name}
	if parentID != 0 {
		payload["parent_id"] = parentID
	}
	body, err := c.execute(ctx, resty.MethodPost, "/projects/{project_id}/folders",
		func(r *resty.Request) {
			r.SetPathParam("project_id", fmtID(projectID)).SetBody(payload)
		})
	if err != nil {
		return nil, err
	}
	return unwrapResult(body), nil
}

// FolderUpdate lists the folder properties to change; nil fields are left alone.
type FolderUpdate struct {
	Name     *string
	ParentID *int64
}

func (c *Client) UpdateFolder(
	ctx context.Context,
	projectID, folderID int64,
	upd FolderUpdate,
) (json.RawMessage, error) {
	payload := map[string]any{}
	if upd.Name != nil {
		payload["name"] = *upd.Name
	}
	if upd.ParentID != nil {
		payload["parent_id"] = *upd.ParentID
	}
	body, err := c.execute(ctx, resty.MethodPut, "/projects/{project_id}/folders/{folder_id}",
		func(r *resty.Request) {
			r.SetPathParams(map[string]string{
				"project_id": fmtID(projectID),
				"folder_id":  fmtID(folderID),
			}).SetBody(payload)
		})
	if err != nil {
		return nil, err
	}
	return unwrapResult(body), nil
}

func (c *Client) DeleteFolder(ctx context.Context, projectID, folderID int64) (json.RawMessage, error) {
	body, err := c.execute(ctx, resty.MethodDelete, "/projects/{project_id}/folders/{folder_id}",
		func(r *resty.Request) {
			r.SetPathParams(map[string]string{
				"project_id": fmtID(projectID),
				"folder_id":  fmtID(folderID),
			})
		})
	if err != nil {
		return nil, err
	}
	return json.RawMessage(body), nil
}

// FindFolderByName returns the first folder named name directly under parentID
// (0 for the top level), or nil when there is none.
func (c *Client) FindFolderByName(
	ctx context.Context,
	projectID int64,
	name string,
	parentID int64,
) (*Folder, error) {
	folders, err := c.AllFolders(ctx, projectID)
	if err != nil {
		return nil, err
	}
	for i := range folders {
		if folders[i].Name == name && folders[i].ParentID == parentID {
			return &folders[i], nil
		}
	}
	return nil, nil
}
