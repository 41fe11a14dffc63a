package tree

import (
	"fmt"

	"github.com/grovetools/treenote/pkg/models"
)

// ContentLoader materializes the content of a node that was loaded as a
// skeleton. The active storage backend implements it.
type ContentLoader interface {
	DelayedContent(id models.NodeID, syntax string) (*models.Content, error)
}

// Node is a single entry of the document tree. A node starts either
// materialized (created in memory) or as a skeleton whose content is fetched
// from the tree's loader on first access.
type Node struct {
	id       models.NodeID
	props    models.NodeProperties
	sequence int
	content  *models.Content

	// Hierarchy
	parent   *Node
	children []*Node
	tree     *Tree
}

func (n *Node) ID() models.NodeID                 { return n.id }
func (n *Node) Name() string                      { return n.props.Name }
func (n *Node) Properties() models.NodeProperties { return n.props }
func (n *Node) Sequence() int                     { return n.sequence }
func (n *Node) Parent() *Node                     { return n.parent }

// ParentID is 0 for root-level nodes.
func (n *Node) ParentID() models.NodeID {
	if n.parent == nil {
		return 0
	}
	return n.parent.id
}

// Children returns a copy of the ordered child list.
func (n *Node) Children() []*Node {
	return append([]*Node(nil), n.children...)
}

// Depth is 0 for root-level nodes.
func (n *Node) Depth() int {
	d := 0
	for p := n.parent; p != nil; p = p.parent {
		d++
	}
	return d
}

// IsMaterialized reports whether the content is already in memory.
func (n *Node) IsMaterialized() bool {
	return n.content != nil
}

// Content returns the node content, loading it on first access. The returned
// value is shared with the tree: use Tree.SetContent to change it.
func (n *Node) Content() (*models.Content, error) {
	if n.content != nil {
		return n.content, nil
	}
	if n.tree == nil || n.tree.loader == nil {
		n.content = &models.Content{}
		return n.content, nil
	}
	c, err := n.tree.loader.DelayedContent(n.id, n.props.Syntax)
	if err != nil {
		return nil, fmt.Errorf("load content of node %d: %w", n.id, err)
	}
	if c == nil {
		c = &models.Content{}
	}
	n.content = c
	return c, nil
}

// Record flattens the node without its content.
func (n *Node) Record() models.NodeRecord {
	return models.NodeRecord{
		ID:             n.id,
		ParentID:       n.ParentID(),
		Sequence:       n.sequence,
		NodeProperties: n.props,
	}
}

func (n *Node) isAncestorOf(other *Node) bool {
	for p := other; p != nil; p = p.parent {
		if p == n {
			return true
		}
	}
	return false
}
