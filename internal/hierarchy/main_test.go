package hierarchy

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/mcp-testmo/testmo-mcp-server/internal/testmo"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// flatFolders is the forest used across the tests:
//
//	Root A(1) -> Child A1(2) -> Grandchild A1a(4)
//	Root A(1) -> Child A2(3)
//	Root B(5) -> Child B1(6)
func flatFolders() []testmo.Folder {
	return []testmo.Folder{
		{ID: 1, Name: "Root A"},
		{ID: 2, Name: "Child A1", ParentID: 1},
		{ID: 3, Name: "Child A2", ParentID: 1},
		{ID: 4, Name: "Grandchild A1a", ParentID: 2},
		{ID: 5, Name: "Root B"},
		{ID: 6, Name: "Child B1", ParentID: 5},
	}
}

// decodeCases builds cases the way they arrive from the API.
func decodeCases(t *testing.T, raw string) []testmo.Case {
	t.Helper()
	var cases []testmo.Case
	require.NoError(t, json.Unmarshal([]byte(raw), &cases))
	return cases
}

func caseNames(cases []testmo.Case) []string {
	names := make([]string, len(cases))
	for i, c := range cases {
		names[i] = c.Name
	}
	return names
}

type countingPacer struct {
	calls int
}

func (p *countingPacer) Wait(ctx context.Context) error {
	p.calls++
	return ctx.Err()
}
