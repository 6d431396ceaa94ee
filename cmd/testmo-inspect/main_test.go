package main

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"

	"github.com/mcp-testmo/testmo-mcp-server/internal/hierarchy"
	"github.com/mcp-testmo/testmo-mcp-server/internal/testmo"
)

func init() {
	color.NoColor = true
}

func TestPrintTree(t *testing.T) {
	res := &hierarchy.TreeResult{
		TotalFolders: 4,
		Tree: &hierarchy.TreeNode{
			Folder:   testmo.Folder{ID: 1, Name: "Auth"},
			FullPath: "Auth",
			Children: []*hierarchy.TreeNode{
				{
					Folder:   testmo.Folder{ID: 2, Name: "Login", ParentID: 1},
					FullPath: "Auth > Login",
					Children: []*hierarchy.TreeNode{
						{Folder: testmo.Folder{ID: 4, Name: "SSO", ParentID: 2}, FullPath: "Auth > Login > SSO"},
					},
				},
				{Folder: testmo.Folder{ID: 3, Name: "Signup", ParentID: 1}, FullPath: "Auth > Signup"},
			},
		},
	}

	var buf bytes.Buffer
	printTree(&buf, res)
	assert.Equal(t, "Auth (4 folders)\n"+
		"├── Login #2\n"+
		"│   └── SSO #4\n"+
		"└── Signup #3\n", buf.String())
}

func TestPrintCases(t *testing.T) {
	path := "Auth > Login"
	res := &hierarchy.CasesResult{
		TotalCases:           2,
		TotalFoldersSearched: 3,
		FolderSummary: []hierarchy.FolderSummary{
			{FolderID: 2, FolderName: "Login", FolderPath: &path, CaseCount: 2},
		},
		Cases: []testmo.Case{{ID: 10, Name: "Valid login"}, {ID: 11, Name: "Locked account"}},
	}

	var buf bytes.Buffer
	printCases(&buf, res, false)
	assert.Equal(t, "2 cases in 3 folders\n    2  Auth > Login\n", buf.String())

	buf.Reset()
	printCases(&buf, res, true)
	assert.Contains(t, buf.String(), "#10     Valid login\n")
	assert.Contains(t, buf.String(), "#11     Locked account\n")
}
