// Package hierarchy turns a project's flat folder listing into trees and
// aggregates or filters test cases across folder subtrees.
package hierarchy

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/mcp-testmo/testmo-mcp-server/internal/testmo"
)

// PathSeparator joins folder names in a full path.
const PathSeparator = " / "

// rootParent is the parent id of top-level folders.
const rootParent int64 = 0

// ErrFolderCycle is returned when the parent chain of a folder loops back on itself.
var ErrFolderCycle = errors.New("folder hierarchy contains a cycle")

// IDSet is a set of folder ids.
type IDSet map[int64]struct{}

func (s IDSet) Has(id int64) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the ids in ascending order.
func (s IDSet) Sorted() []int64 {
	ids := make([]int64, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Index is a read-only lookup over one folder listing. It is built per request.
type Index struct {
	folders  []testmo.Folder
	byID     map[int64]testmo.Folder
	children map[int64][]int64
}

// BuildIndex indexes folders by id and by parent. Children keep the listing order.
func BuildIndex(folders []testmo.Folder) *Index {
	ix := &Index{
		folders:  folders,
		byID:     make(map[int64]testmo.Folder, len(folders)),
		children: make(map[int64][]int64),
	}
	for _, f := range folders {
		ix.byID[f.ID] = f
		parent := f.ParentID
		if parent < 0 {
			parent = rootParent
		}
		ix.children[parent] = append(ix.children[parent], f.ID)
	}
	return ix
}

// Len returns the number of folders in the listing.
func (ix *Index) Len() int {
	return len(ix.folders)
}

// Folders returns the folders in listing order.
func (ix *Index) Folders() []testmo.Folder {
	return ix.folders
}

func (ix *Index) Has(id int64) bool {
	_, ok := ix.byID[id]
	return ok
}

func (ix *Index) Folder(id int64) (testmo.Folder, bool) {
	f, ok := ix.byID[id]
	return f, ok
}

// Children returns the direct children of id in listing order.
func (ix *Index) Children(id int64) []int64 {
	return ix.children[id]
}

// Name returns the folder name, or the id itself for an unknown folder.
func (ix *Index) Name(id int64) string {
	if f, ok := ix.byID[id]; ok {
		return f.Name
	}
	return strconv.FormatInt(id, 10)
}

// Subtree returns rootID and every folder below it. An unknown rootID yields {rootID};
// use Has to tell a missing folder from a leaf.
func (ix *Index) Subtree(rootID int64) IDSet {
	set := IDSet{rootID: {}}
	stack := []int64{rootID}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, child := range ix.children[current] {
			if set.Has(child) {
				continue
			}
			set[child] = struct{}{}
			stack = append(stack, child)
		}
	}
	return set
}

// Path returns the names from the top-level ancestor down to id, joined by PathSeparator.
// The walk stops at a top-level folder or at a parent missing from the listing.
// An unknown id yields "".
func (ix *Index) Path(id int64) (string, error) {
	f, ok := ix.byID[id]
	if !ok {
		return "", nil
	}

	names := []string{f.Name}
	seen := map[int64]struct{}{id: {}}
	for parent := f.ParentID; parent != rootParent; {
		p, ok := ix.byID[parent]
		if !ok {
			break
		}
		if _, loop := seen[parent]; loop {
			return "", fmt.Errorf("%w: folder %d is its own ancestor", ErrFolderCycle, parent)
		}
		seen[parent] = struct{}{}
		names = append(names, p.Name)
		parent = p.ParentID
	}

	slices.Reverse(names)
	return strings.Join(names, PathSeparator), nil
}
