package hierarchy

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcp-testmo/testmo-mcp-server/internal/testmo"
)

type fakeSource struct {
	folders []testmo.Folder
	cases   map[int64][]testmo.Case
	search  func(search testmo.CaseSearch, page int) (*testmo.Page[testmo.Case], error)

	folderCalls int
	caseCalls   int
	searches    []testmo.CaseSearch
	pages       []int
}

func (f *fakeSource) ListFoldersPage(
	_ context.Context,
	_ int64,
	_, _ int,
) (*testmo.Page[testmo.Folder], error) {
	f.folderCalls++
	return &testmo.Page[testmo.Folder]{Result: f.folders}, nil
}

func (f *fakeSource) ListCasesPage(
	_ context.Context,
	_, folderID int64,
	_, _ int,
) (*testmo.Page[testmo.Case], error) {
	f.caseCalls++
	return &testmo.Page[testmo.Case]{Result: f.cases[folderID]}, nil
}

func (f *fakeSource) SearchCasesPage(
	_ context.Context,
	_ int64,
	search testmo.CaseSearch,
	page, _ int,
) (*testmo.Page[testmo.Case], error) {
	f.searches = append(f.searches, search)
	f.pages = append(f.pages, page)
	if f.search == nil {
		return &testmo.Page[testmo.Case]{}, nil
	}
	return f.search(search, page)
}

func onePage(cases []testmo.Case) *testmo.Page[testmo.Case] {
	return &testmo.Page[testmo.Case]{Result: cases}
}

func TestFolderTree(t *testing.T) {
	src := &fakeSource{folders: flatFolders()}
	agg := NewAggregator(src, &countingPacer{})

	res, err := agg.FolderTree(context.Background(), 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 4, res.TotalFolders)
	assert.Equal(t, "Root A", res.Tree.Name)
	assert.Len(t, res.Tree.Children, 2)
}

func TestFolderTreeNotFound(t *testing.T) {
	agg := NewAggregator(&fakeSource{folders: flatFolders()}, &countingPacer{})

	_, err := agg.FolderTree(context.Background(), 1, 999)
	var notFound *FolderNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "Folder 999 not found in project 1", notFound.Error())
}

func TestCasesCollectsSubtree(t *testing.T) {
	src := &fakeSource{
		folders: flatFolders(),
		cases: map[int64][]testmo.Case{
			1: decodeCases(t, `[{"id":10,"name":"Case in root","folder_id":1}]`),
			2: decodeCases(t, `[{"id":20,"name":"Case in child","folder_id":2}]`),
			3: {},
			4: decodeCases(t, `[{"id":30,"name":"Case in grandchild","folder_id":4}]`),
		},
	}
	pacer := &countingPacer{}
	agg := NewAggregator(src, pacer)

	res, err := agg.Cases(context.Background(), 1, 1, true)
	require.NoError(t, err)

	assert.Equal(t, 3, res.TotalCases)
	assert.Equal(t, 4, res.TotalFoldersSearched)
	assert.Equal(t, 4, src.caseCalls)
	assert.Equal(t, 3, pacer.calls, "one delay between each pair of folders")
	assert.Equal(t, []string{"Case in root", "Case in child", "Case in grandchild"}, caseNames(res.Cases))

	require.Len(t, res.FolderSummary, 3)
	for _, s := range res.FolderSummary {
		assert.NotEqual(t, int64(3), s.FolderID, "empty folders get no summary entry")
		assert.Equal(t, 1, s.CaseCount)
	}
	assert.Equal(t, "Root A / Child A1 / Grandchild A1a", *res.FolderSummary[2].FolderPath)

	for _, c := range res.Cases {
		require.NotNil(t, c.FolderName)
		require.NotNil(t, c.FolderPath)
	}
	assert.Equal(t, "Child A1", *res.Cases[1].FolderName)
	assert.Equal(t, "Root A / Child A1", *res.Cases[1].FolderPath)
}

func TestCasesWithoutFolderPath(t *testing.T) {
	src := &fakeSource{
		folders: flatFolders(),
		cases:   map[int64][]testmo.Case{4: decodeCases(t, `[{"id":10,"name":"Case","folder_id":4}]`)},
	}
	agg := NewAggregator(src, &countingPacer{})

	res, err := agg.Cases(context.Background(), 1, 4, false)
	require.NoError(t, err)
	require.Len(t, res.Cases, 1)

	data, err := json.Marshal(res)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))

	c := decoded["cases"].([]any)[0].(map[string]any)
	assert.Equal(t, "Grandchild A1a", c[testmo.FolderNameKey])
	assert.NotContains(t, c, testmo.FolderPathKey)

	summary := decoded["folder_summary"].([]any)[0].(map[string]any)
	assert.Contains(t, summary, "folder_path")
	assert.Nil(t, summary["folder_path"])
	assert.Equal(t, float64(1), summary["case_count"])
	assert.NotContains(t, summary, "match_count")
}

func TestCasesNotFoundMakesNoCaseCalls(t *testing.T) {
	src := &fakeSource{folders: flatFolders()}
	agg := NewAggregator(src, &countingPacer{})

	_, err := agg.Cases(context.Background(), 1, 999, true)
	var notFound *FolderNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Zero(t, src.caseCalls)
}

func TestSearchAcrossSubtree(t *testing.T) {
	src := &fakeSource{
		folders: flatFolders(),
		search: func(search testmo.CaseSearch, _ int) (*testmo.Page[testmo.Case], error) {
			if search.FolderID == 2 {
				return onePage(decodeCases(t, `[{"id":20,"name":"Login Test","folder_id":2}]`)), nil
			}
			return onePage(nil), nil
		},
	}
	pacer := &countingPacer{}
	agg := NewAggregator(src, pacer)

	folderID := int64(1)
	res, err := agg.Search(context.Background(), SearchRequest{
		ProjectID: 1,
		FolderID:  &folderID,
		Query:     "Login",
		Tags:      []string{"smoke"},
		StateID:   4,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, res.TotalMatches)
	assert.Equal(t, 4, res.TotalFoldersSearched)
	assert.Equal(t, "Login Test", res.Cases[0].Name)
	assert.Equal(t, "Root A / Child A1", *res.Cases[0].FolderPath)
	require.Len(t, src.searches, 4)
	for i, want := range []int64{1, 2, 3, 4} {
		assert.Equal(t, want, src.searches[i].FolderID)
		assert.Equal(t, "Login", src.searches[i].Query)
		assert.Equal(t, []string{"smoke"}, src.searches[i].Tags)
		assert.Equal(t, int64(4), src.searches[i].StateID)
	}
	assert.Equal(t, 3, pacer.calls)
	require.Len(t, res.FolderSummary, 1)
	assert.Equal(t, 1, res.FolderSummary[0].MatchCount)
}

func TestSearchPaginatesWithinFolder(t *testing.T) {
	page1 := make([]testmo.Case, 100)
	for i := range page1 {
		page1[i] = testmo.Case{ID: int64(i), Name: fmt.Sprintf("Case %d", i), FolderID: 4}
	}
	page2 := make([]testmo.Case, 50)
	for i := range page2 {
		page2[i] = testmo.Case{ID: int64(100 + i), Name: fmt.Sprintf("Case %d", 100+i), FolderID: 4}
	}

	src := &fakeSource{
		folders: flatFolders(),
		search: func(_ testmo.CaseSearch, page int) (*testmo.Page[testmo.Case], error) {
			switch page {
			case 1:
				next := 2
				return &testmo.Page[testmo.Case]{Result: page1, NextPage: &next}, nil
			case 2:
				return &testmo.Page[testmo.Case]{Result: page2}, nil
			}
			t.Fatalf("unexpected page %d", page)
			return nil, nil
		},
	}
	pacer := &countingPacer{}
	agg := NewAggregator(src, pacer)

	leaf := int64(4)
	res, err := agg.Search(context.Background(), SearchRequest{ProjectID: 1, FolderID: &leaf})
	require.NoError(t, err)

	assert.Equal(t, 150, res.TotalMatches)
	assert.Equal(t, []int{1, 2}, src.pages)
	assert.Equal(t, 1, pacer.calls, "exactly one delay between the two pages")
}

func TestSearchNotFoundMakesNoSearchCalls(t *testing.T) {
	src := &fakeSource{folders: flatFolders()}
	agg := NewAggregator(src, &countingPacer{})

	missing := int64(999)
	_, err := agg.Search(context.Background(), SearchRequest{ProjectID: 1, FolderID: &missing})
	var notFound *FolderNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "Folder 999 not found in project 1", err.Error())
	assert.Empty(t, src.searches)
	assert.Zero(t, src.caseCalls)
}

func TestSearchAppliesClientFilters(t *testing.T) {
	tests := []struct {
		name    string
		cases   string
		filters Filters
		want    []string
	}{
		{
			name:    "custom filters",
			cases:   `[{"id":1,"name":"High priority","folder_id":4,"custom_priority":1},{"id":2,"name":"Low priority","folder_id":4,"custom_priority":3}]`,
			filters: Filters{Custom: map[string]any{"custom_priority": 1}},
			want:    []string{"High priority"},
		},
		{
			name: "contains match mode",
			cases: `[{"id":1,"name":"TC1","folder_id":4,"custom_references":"IUG-1169, IUG-1170"},
				{"id":2,"name":"TC2","folder_id":4,"custom_references":"IUG-2000"},
				{"id":3,"name":"TC3","folder_id":4,"custom_references":"iug-1169"}]`,
			filters: Filters{Custom: map[string]any{"custom_references": "IUG-1169"}, Mode: MatchContains},
			want:    []string{"TC1", "TC3"},
		},
		{
			name: "tags any-of",
			cases: `[{"id":1,"name":"TC1","folder_id":4,"tags":["regression","smoke"]},
				{"id":2,"name":"TC2","folder_id":4,"tags":["smoke"]},
				{"id":3,"name":"TC3","folder_id":4,"tags":["regression","e2e"]}]`,
			filters: Filters{Arrays: map[string][]any{"tags": {"regression"}}},
			want:    []string{"TC1", "TC3"},
		},
		{
			name: "configurations any-of",
			cases: `[{"id":1,"name":"TC1","folder_id":4,"configurations":[4,5]},
				{"id":2,"name":"TC2","folder_id":4,"configurations":[10]},
				{"id":3,"name":"TC3","folder_id":4,"configurations":[5,10]}]`,
			filters: Filters{Arrays: map[string][]any{"configurations": {float64(5)}}},
			want:    []string{"TC1", "TC3"},
		},
		{
			name: "issue key",
			cases: `[{"id":1,"name":"TC1","folder_id":4,"issues":[{"display_id":"IUG-1169","integration_id":1}]},
				{"id":2,"name":"TC2","folder_id":4,"issues":[{"display_id":"IUG-2000","integration_id":1}]},
				{"id":3,"name":"TC3","folder_id":4,"issues":[]},
				{"id":4,"name":"TC4","folder_id":4}]`,
			filters: Filters{IssueKey: "IUG-1169"},
			want:    []string{"TC1"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &fakeSource{
				folders: flatFolders(),
				search: func(testmo.CaseSearch, int) (*testmo.Page[testmo.Case], error) {
					return onePage(decodeCases(t, tt.cases)), nil
				},
			}
			agg := NewAggregator(src, &countingPacer{})

			leaf := int64(4)
			res, err := agg.Search(context.Background(), SearchRequest{
				ProjectID: 1,
				FolderID:  &leaf,
				Filters:   tt.filters,
			})
			require.NoError(t, err)
			assert.Equal(t, len(tt.want), res.TotalMatches)
			assert.Equal(t, tt.want, caseNames(res.Cases))
		})
	}
}

func TestSearchProjectWide(t *testing.T) {
	src := &fakeSource{
		folders: flatFolders(),
		search: func(search testmo.CaseSearch, _ int) (*testmo.Page[testmo.Case], error) {
			assert.Zero(t, search.FolderID)
			return onePage(decodeCases(t, `[
				{"id":1,"name":"TC1","folder_id":5},
				{"id":2,"name":"TC2","folder_id":2},
				{"id":3,"name":"TC3","folder_id":1},
				{"id":4,"name":"TC4","folder_id":2},
				{"id":5,"name":"TC5","folder_id":404}
			]`)), nil
		},
	}
	pacer := &countingPacer{}
	agg := NewAggregator(src, pacer)

	res, err := agg.Search(context.Background(), SearchRequest{ProjectID: 1, Query: "TC"})
	require.NoError(t, err)

	assert.Equal(t, 5, res.TotalMatches)
	assert.Equal(t, 6, res.TotalFoldersSearched)
	assert.Len(t, src.searches, 1)
	assert.Zero(t, pacer.calls)

	assert.Equal(t, "Root B", *res.Cases[0].FolderName)
	assert.Equal(t, "Child A1", *res.Cases[1].FolderName)
	assert.Equal(t, "Root A / Child A1", *res.Cases[1].FolderPath)
	assert.Equal(t, "Root A", *res.Cases[2].FolderName)
	assert.Equal(t, "root", *res.Cases[4].FolderName)
	assert.Equal(t, "", *res.Cases[4].FolderPath)

	require.Len(t, res.FolderSummary, 4)
	var ids []int64
	for _, s := range res.FolderSummary {
		ids = append(ids, s.FolderID)
	}
	assert.Equal(t, []int64{1, 2, 5, 404}, ids)
	assert.Equal(t, 2, res.FolderSummary[1].MatchCount)
	assert.Equal(t, "root", res.FolderSummary[3].FolderName)
}

func TestSearchProjectWideSummaryFollowsFilteredCases(t *testing.T) {
	src := &fakeSource{
		folders: flatFolders(),
		search: func(testmo.CaseSearch, int) (*testmo.Page[testmo.Case], error) {
			return onePage(decodeCases(t, `[
				{"id":1,"name":"TC1","folder_id":1,"tags":["smoke"]},
				{"id":2,"name":"TC2","folder_id":2,"tags":["regression"]}
			]`)), nil
		},
	}
	agg := NewAggregator(src, &countingPacer{})

	res, err := agg.Search(context.Background(), SearchRequest{
		ProjectID: 1,
		Filters:   Filters{Arrays: map[string][]any{"tags": {"regression"}}},
	})
	require.NoError(t, err)
	require.Len(t, res.FolderSummary, 1)
	assert.Equal(t, int64(2), res.FolderSummary[0].FolderID)
}

func TestSearchFailureAbortsWalk(t *testing.T) {
	src := &fakeSource{
		folders: flatFolders(),
		search: func(search testmo.CaseSearch, _ int) (*testmo.Page[testmo.Case], error) {
			if search.FolderID == 2 {
				return nil, &testmo.APIError{StatusCode: http.StatusInternalServerError, Message: "Request failed: Internal Server Error"}
			}
			return onePage(decodeCases(t, `[{"id":1,"name":"TC1","folder_id":1}]`)), nil
		},
	}
	agg := NewAggregator(src, &countingPacer{})

	root := int64(1)
	res, err := agg.Search(context.Background(), SearchRequest{ProjectID: 1, FolderID: &root})
	assert.Nil(t, res)
	var apiErr *testmo.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Len(t, src.searches, 2, "no folder is searched after the failure")
}

func TestCancelledContextStopsBetweenFolders(t *testing.T) {
	src := &fakeSource{folders: flatFolders()}
	agg := NewAggregator(src, testmo.FixedDelay(0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := agg.Cases(ctx, 1, 1, true)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, src.caseCalls)
}
