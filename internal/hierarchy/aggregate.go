package hierarchy

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/mcp-testmo/testmo-mcp-server/internal/testmo"
)

// rootFolderName annotates cases whose folder is not part of the listing.
const rootFolderName = "root"

// Source is the part of the Testmo API the aggregator reads from. *testmo.Client implements it.
type Source interface {
	ListFoldersPage(ctx context.Context, projectID int64, page, perPage int) (*testmo.Page[testmo.Folder], error)
	ListCasesPage(ctx context.Context, projectID, folderID int64, page, perPage int) (*testmo.Page[testmo.Case], error)
	SearchCasesPage(
		ctx context.Context,
		projectID int64,
		search testmo.CaseSearch,
		page, perPage int,
	) (*testmo.Page[testmo.Case], error)
}

// FolderNotFoundError reports a root folder id missing from the project's folders.
// Tools return it to the caller as data rather than as a failure.
type FolderNotFoundError struct {
	ProjectID int64
	FolderID  int64
}

func (e *FolderNotFoundError) Error() string {
	return fmt.Sprintf("Folder %d not found in project %d", e.FolderID, e.ProjectID)
}

// FolderSummary counts the cases one folder contributed.
type FolderSummary struct {
	FolderID   int64   `json:"folder_id"`
	FolderName string  `json:"folder_name"`
	FolderPath *string `json:"folder_path"`
	CaseCount  int     `json:"case_count,omitempty"`
	MatchCount int     `json:"match_count,omitempty"`
}

type TreeResult struct {
	TotalFolders int       `json:"total_folders"`
	Tree         *TreeNode `json:"tree"`
}

type CasesResult struct {
	TotalCases           int             `json:"total_cases"`
	TotalFoldersSearched int             `json:"total_folders_searched"`
	FolderSummary        []FolderSummary `json:"folder_summary"`
	Cases                []testmo.Case   `json:"cases"`
}

type SearchResult struct {
	TotalMatches         int             `json:"total_matches"`
	TotalFoldersSearched int             `json:"total_folders_searched"`
	FolderSummary        []FolderSummary `json:"folder_summary"`
	Cases                []testmo.Case   `json:"cases"`
}

// SearchRequest describes a recursive case search.
type SearchRequest struct {
	ProjectID int64
	// FolderID limits the search to a subtree; nil searches the whole project.
	FolderID *int64
	Query    string
	Tags     []string
	StateID  int64
	Filters  Filters
}

// Aggregator walks folder subtrees one remote call at a time, waiting on the
// pacer between consecutive calls.
type Aggregator struct {
	src   Source
	pacer testmo.Pacer
}

func NewAggregator(src Source, pacer testmo.Pacer) *Aggregator {
	if pacer == nil {
		pacer = testmo.FixedDelay(testmo.RateLimitDelay)
	}
	return &Aggregator{src: src, pacer: pacer}
}

// Index fetches every folder of the project and indexes them.
func (a *Aggregator) Index(ctx context.Context, projectID int64) (*Index, error) {
	folders, err := testmo.CollectPages(ctx, a.pacer,
		func(ctx context.Context, page int) (*testmo.Page[testmo.Folder], error) {
			return a.src.ListFoldersPage(ctx, projectID, page, testmo.DefaultPerPage)
		})
	if err != nil {
		return nil, fmt.Errorf("failed to list folders of project %d: %w", projectID, err)
	}
	return BuildIndex(folders), nil
}

// FolderTree returns the folder and all its descendants as a nested tree.
func (a *Aggregator) FolderTree(ctx context.Context, projectID, folderID int64) (*TreeResult, error) {
	ix, err := a.Index(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !ix.Has(folderID) {
		return nil, &FolderNotFoundError{ProjectID: projectID, FolderID: folderID}
	}

	subtree := ix.Subtree(folderID)
	tree, err := BuildTree(ix, subtree, folderID)
	if err != nil {
		return nil, err
	}
	return &TreeResult{TotalFolders: len(subtree), Tree: tree}, nil
}

// Cases returns every case of the folder and its descendants, visiting folders in ascending id order.
func (a *Aggregator) Cases(
	ctx context.Context,
	projectID, folderID int64,
	includePath bool,
) (*CasesResult, error) {
	ix, err := a.Index(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !ix.Has(folderID) {
		return nil, &FolderNotFoundError{ProjectID: projectID, FolderID: folderID}
	}

	subtree := ix.Subtree(folderID).Sorted()
	out := &CasesResult{
		TotalFoldersSearched: len(subtree),
		FolderSummary:        make([]FolderSummary, 0),
		Cases:                make([]testmo.Case, 0),
	}

	for i, fid := range subtree {
		if i > 0 {
			if err := a.pacer.Wait(ctx); err != nil {
				return nil, err
			}
		}

		cases, err := testmo.CollectPages(ctx, a.pacer,
			func(ctx context.Context, page int) (*testmo.Page[testmo.Case], error) {
				return a.src.ListCasesPage(ctx, projectID, fid, page, testmo.DefaultPerPage)
			})
		if err != nil {
			return nil, fmt.Errorf("failed to list cases of folder %d: %w", fid, err)
		}
		slog.Debug("collected folder cases", "project_id", projectID, "folder_id", fid, "count", len(cases))

		name := ix.Name(fid)
		var path *string
		if includePath {
			p, err := ix.Path(fid)
			if err != nil {
				return nil, err
			}
			path = &p
		}

		if len(cases) > 0 {
			out.FolderSummary = append(out.FolderSummary, FolderSummary{
				FolderID:   fid,
				FolderName: name,
				FolderPath: path,
				CaseCount:  len(cases),
			})
		}
		for _, c := range cases {
			c.FolderName = &name
			c.FolderPath = path
			out.Cases = append(out.Cases, c)
		}
	}

	out.TotalCases = len(out.Cases)
	return out, nil
}

// Search runs the server-side search per subtree folder (or once for the whole project
// when no folder is given), then applies the client-side filters.
func (a *Aggregator) Search(ctx context.Context, req SearchRequest) (*SearchResult, error) {
	ix, err := a.Index(ctx, req.ProjectID)
	if err != nil {
		return nil, err
	}
	if req.FolderID == nil {
		return a.searchProject(ctx, ix, req)
	}
	if !ix.Has(*req.FolderID) {
		return nil, &FolderNotFoundError{ProjectID: req.ProjectID, FolderID: *req.FolderID}
	}
	return a.searchSubtree(ctx, ix, req)
}

func (a *Aggregator) searchSubtree(ctx context.Context, ix *Index, req SearchRequest) (*SearchResult, error) {
	subtree := ix.Subtree(*req.FolderID).Sorted()
	out := &SearchResult{
		TotalFoldersSearched: len(subtree),
		FolderSummary:        make([]FolderSummary, 0),
		Cases:                make([]testmo.Case, 0),
	}

	for i, fid := range subtree {
		if i > 0 {
			if err := a.pacer.Wait(ctx); err != nil {
				return nil, err
			}
		}

		found, err := a.searchAll(ctx, req, fid)
		if err != nil {
			return nil, fmt.Errorf("failed to search cases of folder %d: %w", fid, err)
		}
		matches := req.Filters.Apply(found)

		name := ix.Name(fid)
		path, err := ix.Path(fid)
		if err != nil {
			return nil, err
		}
		if len(matches) > 0 {
			out.FolderSummary = append(out.FolderSummary, FolderSummary{
				FolderID:   fid,
				FolderName: name,
				FolderPath: &path,
				MatchCount: len(matches),
			})
		}
		for _, c := range matches {
			c.FolderName = &name
			c.FolderPath = &path
			out.Cases = append(out.Cases, c)
		}
	}

	out.TotalMatches = len(out.Cases)
	return out, nil
}

func (a *Aggregator) searchProject(ctx context.Context, ix *Index, req SearchRequest) (*SearchResult, error) {
	found, err := a.searchAll(ctx, req, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to search cases of project %d: %w", req.ProjectID, err)
	}
	matches := req.Filters.Apply(found)

	out := &SearchResult{
		TotalFoldersSearched: ix.Len(),
		FolderSummary:        make([]FolderSummary, 0),
		Cases:                make([]testmo.Case, 0, len(matches)),
	}
	counts := map[int64]*FolderSummary{}
	for _, c := range matches {
		name, path := rootFolderName, ""
		if ix.Has(c.FolderID) {
			name = ix.Name(c.FolderID)
			if path, err = ix.Path(c.FolderID); err != nil {
				return nil, err
			}
		}
		c.FolderName = &name
		c.FolderPath = &path
		out.Cases = append(out.Cases, c)

		if s, ok := counts[c.FolderID]; ok {
			s.MatchCount++
			continue
		}
		counts[c.FolderID] = &FolderSummary{
			FolderID:   c.FolderID,
			FolderName: name,
			FolderPath: &path,
			MatchCount: 1,
		}
	}

	ids := make([]int64, 0, len(counts))
	for fid := range counts {
		ids = append(ids, fid)
	}
	slices.Sort(ids)
	for _, fid := range ids {
		out.FolderSummary = append(out.FolderSummary, *counts[fid])
	}

	out.TotalMatches = len(out.Cases)
	return out, nil
}

// searchAll pages through one server-side search; folderID 0 searches the whole project.
func (a *Aggregator) searchAll(ctx context.Context, req SearchRequest, folderID int64) ([]testmo.Case, error) {
	search := testmo.CaseSearch{
		Query:    req.Query,
		FolderID: folderID,
		Tags:     req.Tags,
		StateID:  req.StateID,
	}
	return testmo.CollectPages(ctx, a.pacer,
		func(ctx context.Context, page int) (*testmo.Page[testmo.Case], error) {
			return a.src.SearchCasesPage(ctx, req.ProjectID, search, page, testmo.DefaultPerPage)
		})
}
