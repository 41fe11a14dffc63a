package tree

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/grovetools/treenote/pkg/models"
)

// Graft copies every node of src under parent (nil for root level). Each
// copied node gets a fresh id from this tree, whether or not its original id
// collides, and internal links between copied nodes are rewritten to the new
// ids. Returns the copies of src's root nodes.
func (t *Tree) Graft(parent *Node, src *Tree) ([]*Node, error) {
	remap := make(map[models.NodeID]models.NodeID)
	var created []*Node
	var tops []*Node

	var copyGroup func(dst *Node, nodes []*Node) error
	copyGroup = func(dst *Node, nodes []*Node) error {
		for _, sn := range nodes {
			c, err := sn.Content()
			if err != nil {
				return fmt.Errorf("graft node %d: %w", sn.id, err)
			}
			props := sn.props
			nn, err := t.AppendNode(dst, props, c.Clone())
			if err != nil {
				return err
			}
			// keep the source timestamps
			nn.props.CreatedAt = props.CreatedAt
			nn.props.ModifiedAt = props.ModifiedAt
			remap[sn.id] = nn.id
			created = append(created, nn)
			if dst == parent {
				tops = append(tops, nn)
			}
			if err := copyGroup(nn, sn.children); err != nil {
				return err
			}
		}
		return nil
	}
	if err := copyGroup(parent, src.roots); err != nil {
		return nil, err
	}

	for _, n := range created {
		rewriteLinks(n.content, remap)
	}
	return tops, nil
}

// Node links look like "node <id>" optionally followed by an anchor name.
func rewriteLinks(c *models.Content, remap map[models.NodeID]models.NodeID) {
	for i := range c.Runs {
		if link, ok := c.Runs[i].Attrs["link"]; ok {
			c.Runs[i].Attrs["link"] = remapLink(link, remap)
		}
	}
	for _, o := range c.Objects {
		if img, ok := o.(*models.Image); ok {
			img.Link = remapLink(img.Link, remap)
		}
	}
}

func remapLink(link string, remap map[models.NodeID]models.NodeID) string {
	fields := strings.SplitN(link, " ", 3)
	if len(fields) < 2 || fields[0] != "node" {
		return link
	}
	old, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return link
	}
	nid, ok := remap[models.NodeID(old)]
	if !ok {
		return link
	}
	fields[1] = strconv.FormatInt(int64(nid), 10)
	return strings.Join(fields, " ")
}
