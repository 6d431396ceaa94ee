package hierarchy

import (
	"encoding/json"
	"fmt"

	"github.com/mcp-testmo/testmo-mcp-server/internal/testmo"
)

// TreeNode is a folder with its full path and the children that belong to the requested subtree.
type TreeNode struct {
	testmo.Folder
	FullPath string
	Children []*TreeNode
}

func (n *TreeNode) MarshalJSON() ([]byte, error) {
	m := n.Fields()
	m["full_path"] = n.FullPath
	children := n.Children
	if children == nil {
		children = []*TreeNode{}
	}
	m["children"] = children
	return json.Marshal(m)
}

// Count returns the number of nodes in the tree.
func (n *TreeNode) Count() int {
	total := 1
	for _, c := range n.Children {
		total += c.Count()
	}
	return total
}

// BuildTree nests the folders of subtree under rootID. It returns nil when rootID
// is not in the index.
func BuildTree(ix *Index, subtree IDSet, rootID int64) (*TreeNode, error) {
	if !ix.Has(rootID) {
		return nil, nil
	}
	return buildNode(ix, subtree, rootID, map[int64]struct{}{})
}

func buildNode(ix *Index, subtree IDSet, id int64, onPath map[int64]struct{}) (*TreeNode, error) {
	if _, loop := onPath[id]; loop {
		return nil, fmt.Errorf("%w: folder %d is its own ancestor", ErrFolderCycle, id)
	}
	onPath[id] = struct{}{}
	defer delete(onPath, id)

	folder, _ := ix.Folder(id)
	path, err := ix.Path(id)
	if err != nil {
		return nil, err
	}

	node := &TreeNode{Folder: folder, FullPath: path}
	for _, childID := range ix.Children(id) {
		if !subtree.Has(childID) {
			continue
		}
		child, err := buildNode(ix, subtree, childID, onPath)
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, child)
	}
	return node, nil
}
