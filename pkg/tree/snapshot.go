package tree

import (
	"github.com/grovetools/treenote/pkg/models"
	"github.com/grovetools/treenote/pkg/pending"
)

// Snapshot is a copy of the tree detached from later edits, taken at the
// start of a save.
type Snapshot struct {
	// Records are in depth-first order, parents before children.
	Records   []models.NodeRecord
	Bookmarks []models.NodeID
	// Full is set when every record carries its content.
	Full bool
}

// Freeze copies the tree for a save. With a nil batch every node is
// materialized and copied with its content. Otherwise content is copied for
// the nodes the batch rewrites and for nodes already in memory; skeleton
// nodes keep a nil Content.
func (t *Tree) Freeze(batch *pending.Batch) (*Snapshot, error) {
	snap := &Snapshot{
		Records:   make([]models.NodeRecord, 0, len(t.byID)),
		Bookmarks: t.Bookmarks(),
		Full:      batch == nil,
	}
	err := t.Walk(func(n *Node) error {
		rec := n.Record()
		wantContent := batch == nil || n.content != nil
		if !wantContent {
			if st, ok := batch.Nodes[n.id]; ok && st.Has(pending.Content) {
				wantContent = true
			}
		}
		if wantContent {
			c, err := n.Content()
			if err != nil {
				return err
			}
			rec.Content = c.Clone()
		}
		snap.Records = append(snap.Records, rec)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// Index maps ids to positions in Records.
func (s *Snapshot) Index() map[models.NodeID]int {
	idx := make(map[models.NodeID]int, len(s.Records))
	for i, r := range s.Records {
		idx[r.ID] = i
	}
	return idx
}

// Children groups the records by parent id, keeping sibling order.
func (s *Snapshot) Children() map[models.NodeID][]int {
	out := make(map[models.NodeID][]int)
	for i, r := range s.Records {
		out[r.ParentID] = append(out[r.ParentID], i)
	}
	return out
}
