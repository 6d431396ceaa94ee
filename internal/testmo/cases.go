package testmo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"resty.dev/v3"
)

// CaseSearch holds the server-side filters of a case search. Zero values are not sent.
type CaseSearch struct {
	Query    string
	FolderID int64
	Tags     []string
	StateID  int64
}

func (s CaseSearch) params() map[string]string {
	p := map[string]string{}
	if s.Query != "" {
		p["query"] = s.Query
	}
	if s.FolderID != 0 {
		p["folder_id"] = fmtID(s.FolderID)
	}
	if len(s.Tags) > 0 {
		p["tags"] = strings.Join(s.Tags, ",")
	}
	if s.StateID != 0 {
		p["state_id"] = fmtID(s.StateID)
	}
	return p
}

// ListCasesPage fetches one page of cases; folderID 0 lists the whole project.
func (c *Client) ListCasesPage(
	ctx context.Context,
	projectID, folderID int64,
	page, perPage int,
) (*Page[Case], error) {
	return c.SearchCasesPage(ctx, projectID, CaseSearch{FolderID: folderID}, page, perPage)
}

// SearchCasesPage fetches one page of cases matching the server-side filters.
func (c *Client) SearchCasesPage(
	ctx context.Context,
	projectID int64,
	search CaseSearch,
	page, perPage int,
) (*Page[Case], error) {
	body, err := c.execute(ctx, resty.MethodGet, "/projects/{project_id}/cases",
		func(r *resty.Request) {
			r.SetPathParam("project_id", fmtID(projectID)).
				SetQueryParams(pageQuery(page, perPage)).
				SetQueryParams(search.params())
		})
	if err != nil {
		return nil, err
	}
	return decodePage[Case](body)
}

// AllCases fetches every case of a folder (or of the project when folderID is 0).
func (c *Client) AllCases(ctx context.Context, projectID, folderID int64) ([]Case, error) {
	return c.SearchAllCases(ctx, projectID, CaseSearch{FolderID: folderID})
}

// SearchAllCases walks every page of a case search.
func (c *Client) SearchAllCases(ctx context.Context, projectID int64, search CaseSearch) ([]Case, error) {
	cases, err := CollectPages(ctx, c.pacer, func(ctx context.Context, page int) (*Page[Case], error) {
		return c.SearchCasesPage(ctx, projectID, search, page, DefaultPerPage)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list cases of project %d: %w", projectID, err)
	}
	return cases, nil
}

func (c *Client) GetCase(ctx context.Context, projectID, caseID int64) (json.RawMessage, error) {
	body, err := c.execute(ctx, resty.MethodGet, "/projects/{project_id}/cases/{case_id}",
		func(r *resty.Request) {
			r.SetPathParams(map[string]string{
				"project_id": fmtID(projectID),
				"case_id":    fmtID(caseID),
			})
		})
	if err != nil {
		return nil, err
	}
	return unwrapResult(body), nil
}

// CreateCases creates up to MaxCasesPerRequest cases in one request.
func (c *Client) CreateCases(
	ctx context.Context,
	projectID int64,
	cases []map[string]any,
) (json.RawMessage, error) {
	if len(cases) > MaxCasesPerRequest {
		return nil, fmt.Errorf("%w: %d, max is %d, use batch creation for larger sets",
			ErrTooManyCases, len(cases), MaxCasesPerRequest)
	}
	body, err := c.execute(ctx, resty.MethodPost, "/projects/{project_id}/cases",
		func(r *resty.Request) {
			r.SetPathParam("project_id", fmtID(projectID)).
				SetBody(map[string]any{"cases": cases})
		})
	if err != nil {
		return nil, err
	}
	return json.RawMessage(body), nil
}

// CreateCase creates a single case and returns it.
func (c *Client) CreateCase(
	ctx context.Context,
	projectID int64,
	data map[string]any,
) (json.RawMessage, error) {
	body, err := c.CreateCases(ctx, projectID, []map[string]any{data})
	if err != nil {
		return nil, err
	}
	var created struct {
		Result []json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(body, &created); err == nil && len(created.Result) > 0 {
		return created.Result[0], nil
	}
	return body, nil
}

// BatchCreateResult summarizes a chunked case creation.
type BatchCreateResult struct {
	Result         []json.RawMessage `json:"result"`
	TotalSubmitted int               `json:"total_submitted"`
	TotalCreated   int               `json:"total_created"`
	Errors         []string          `json:"errors"`
}

// BatchCreateCases creates any number of cases in chunks of MaxCasesPerRequest,
// pacing between chunks. A chunk rejected by the API is recorded in Errors and
// the remaining chunks are still submitted.
func (c *Client) BatchCreateCases(
	ctx context.Context,
	projectID int64,
	cases []map[string]any,
) (*BatchCreateResult, error) {
	out := &BatchCreateResult{
		Result:         make([]json.RawMessage, 0, len(cases)),
		TotalSubmitted: len(cases),
	}
	for start := 0; start < len(cases); start += MaxCasesPerRequest {
		end := min(start+MaxCasesPerRequest, len(cases))
		batchNum := start/MaxCasesPerRequest + 1

		body, err := c.CreateCases(ctx, projectID, cases[start:end])
		var apiErr *APIError
		switch {
		case errors.As(err, &apiErr):
			out.Errors = append(out.Errors, fmt.Sprintf("Batch %d: %s", batchNum, apiErr.Message))
		case err != nil:
			return nil, err
		default:
			var created struct {
				Result []json.RawMessage `json:"result"`
			}
			if err := json.Unmarshal(body, &created); err != nil {
				return nil, fmt.Errorf("failed to decode batch %d: %w", batchNum, err)
			}
			out.Result = append(out.Result, created.Result...)
		}

		if end < len(cases) {
			if err := c.pacer.Wait(ctx); err != nil {
				return nil, err
			}
		}
	}
	out.TotalCreated = len(out.Result)
	return out, nil
}

func (c *Client) UpdateCase(
	ctx context.Context,
	projectID, caseID int64,
	data map[string]any,
) (json.RawMessage, error) {
	body, err := c.execute(ctx, resty.MethodPut, "/projects/{project_id}/cases/{case_id}",
		func(r *resty.Request) {
			r.SetPathParams(map[string]string{
				"project_id": fmtID(projectID),
				"case_id":    fmtID(caseID),
			}).SetBody(data)
		})
	if err != nil {
		return nil, err
	}
	return unwrapResult(body), nil
}

func (c *Client) DeleteCase(ctx context.Context, projectID, caseID int64) (json.RawMessage, error) {
	body, err := c.execute(ctx, resty.MethodDelete, "/projects/{project_id}/cases/{case_id}",
		func(r *resty.Request) {
			r.SetPathParams(map[string]string{
				"project_id": fmtID(projectID),
				"case_id":    fmtID(caseID),
			})
		})
	if err != nil {
		return nil, err
	}
	return json.RawMessage(body), nil
}

// BatchDeleteResult summarizes a case-by-case deletion.
type BatchDeleteResult struct {
	Deleted      []int64  `json:"deleted"`
	TotalDeleted int      `json:"total_deleted"`
	Errors       []string `json:"errors"`
}

// BatchDeleteCases deletes the cases one at a time, pacing after each call.
func (c *Client) BatchDeleteCases(
	ctx context.Context,
	projectID int64,
	caseIDs []int64,
) (*BatchDeleteResult, error) {
	out := &BatchDeleteResult{Deleted: make([]int64, 0, len(caseIDs))}
	for _, caseID := range caseIDs {
		_, err := c.DeleteCase(ctx, projectID, caseID)
		var apiErr *APIError
		switch {
		case errors.As(err, &apiErr):
			out.Errors = append(out.Errors, fmt.Sprintf("Case %d: %s", caseID, apiErr.Message))
		case err != nil:
			return nil, err
		default:
			out.Deleted = append(out.Deleted, caseID)
		}
		if err := c.pacer.Wait(ctx); err != nil {
			return nil, err
		}
	}
	out.TotalDeleted = len(out.Deleted)
	return out, nil
}
