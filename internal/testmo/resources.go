package testmo

import (
	"bytes"
	"context"
	"encoding/json"
	"net/url"

	"resty.dev/v3"
)

// fetch issues a GET and returns the JSON body. Listing endpoints keep their
// pagination envelope; single-object endpoints are unwrapped from "result".
func (c *Client) fetch(
	ctx context.Context,
	path string,
	pathParams map[string]string,
	query url.Values,
	unwrap bool,
) (json.RawMessage, error) {
	body, err := c.execute(ctx, resty.MethodGet, path, func(r *resty.Request) {
		r.SetPathParams(pathParams)
		if len(query) > 0 {
			r.SetQueryParamsFromValues(query)
		}
	})
	if err != nil {
		return nil, err
	}
	if unwrap {
		return unwrapResult(body), nil
	}
	return json.RawMessage(body), nil
}

// ListProjects returns every project the token can access.
func (c *Client) ListProjects(ctx context.Context) (json.RawMessage, error) {
	return c.fetch(ctx, "/projects", nil, nil, true)
}

func (c *Client) GetProject(ctx context.Context, projectID int64) (json.RawMessage, error) {
	return c.fetch(ctx, "/projects/{project_id}",
		map[string]string{"project_id": fmtID(projectID)}, nil, true)
}

func (c *Client) ListMilestones(ctx context.Context, projectID int64, query url.Values) (json.RawMessage, error) {
	return c.fetch(ctx, "/projects/{project_id}/milestones",
		map[string]string{"project_id": fmtID(projectID)}, query, false)
}

func (c *Client) GetMilestone(ctx context.Context, milestoneID int64, query url.Values) (json.RawMessage, error) {
	return c.fetch(ctx, "/milestones/{milestone_id}",
		map[string]string{"milestone_id": fmtID(milestoneID)}, query, true)
}

func (c *Client) ListRuns(ctx context.Context, projectID int64, query url.Values) (json.RawMessage, error) {
	return c.fetch(ctx, "/projects/{project_id}/runs",
		map[string]string{"project_id": fmtID(projectID)}, query, false)
}

func (c *Client) GetRun(ctx context.Context, runID int64, query url.Values) (json.RawMessage, error) {
	return c.fetch(ctx, "/runs/{run_id}",
		map[string]string{"run_id": fmtID(runID)}, query, true)
}

func (c *Client) ListRunResults(ctx context.Context, runID int64, query url.Values) (json.RawMessage, error) {
	return c.fetch(ctx, "/runs/{run_id}/results",
		map[string]string{"run_id": fmtID(runID)}, query, false)
}

// ListIssueConnections lists the issue tracker connections; query may carry project_id.
func (c *Client) ListIssueConnections(ctx context.Context, query url.Values) (json.RawMessage, error) {
	return c.fetch(ctx, "/issues/connections", nil, query, false)
}

func (c *Client) GetIssueConnection(ctx context.Context, connectionID int64, query url.Values) (json.RawMessage, error) {
	return c.fetch(ctx, "/issues/connections/{connection_id}",
		map[string]string{"connection_id": fmtID(connectionID)}, query, true)
}

func (c *Client) ListAutomationSources(
	ctx context.Context,
	projectID int64,
	query url.Values,
) (json.RawMessage, error) {
	return c.fetch(ctx, "/projects/{project_id}/automation/sources",
		map[string]string{"project_id": fmtID(projectID)}, query, false)
}

func (c *Client) GetAutomationSource(ctx context.Context, sourceID int64, query url.Values) (json.RawMessage, error) {
	return c.fetch(ctx, "/automation/sources/{source_id}",
		map[string]string{"source_id": fmtID(sourceID)}, query, true)
}

func (c *Client) ListAutomationRuns(ctx context.Context, projectID int64, query url.Values) (json.RawMessage, error) {
	return c.fetch(ctx, "/projects/{project_id}/automation/runs",
		map[string]string{"project_id": fmtID(projectID)}, query, false)
}

func (c *Client) GetAutomationRun(ctx context.Context, runID int64, query url.Values) (json.RawMessage, error) {
	return c.fetch(ctx, "/automation/runs/{automation_run_id}",
		map[string]string{"automation_run_id": fmtID(runID)}, query, true)
}

func (c *Client) ListCaseAttachments(ctx context.Context, caseID int64, query url.Values) (json.RawMessage, error) {
	return c.fetch(ctx, "/cases/{case_id}/attachments",
		map[string]string{"case_id": fmtID(caseID)}, query, false)
}

// UploadCaseAttachment uploads one file to a case as multipart form data.
func (c *Client) UploadCaseAttachment(
	ctx context.Context,
	caseID int64,
	filename, contentType string,
	content []byte,
) (json.RawMessage, error) {
	body, err := c.execute(ctx, resty.MethodPost, "/cases/{case_id}/attachments/single",
		func(r *resty.Request) {
			r.SetPathParam("case_id", fmtID(caseID)).
				SetMultipartField("file", filename, contentType, bytes.NewReader(content))
		})
	if err != nil {
		return nil, err
	}
	return unwrapResult(body), nil
}

func (c *Client) DeleteCaseAttachments(
	ctx context.Context,
	caseID int64,
	attachmentIDs []int64,
) (json.RawMessage, error) {
	body, err := c.execute(ctx, resty.MethodDelete, "/cases/{case_id}/attachments",
		func(r *resty.Request) {
			r.SetPathParam("case_id", fmtID(caseID)).
				SetAllowMethodDeletePayload(true).
				SetBody(map[string]any{"ids": attachmentIDs})
		})
	if err != nil {
		return nil, err
	}
	return json.RawMessage(body), nil
}
