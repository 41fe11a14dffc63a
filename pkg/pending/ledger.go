// Package pending tracks which parts of a document changed since the last
// save so that incremental backends rewrite only what is needed.
package pending

import (
	"sort"
	"sync"

	"github.com/grovetools/treenote/pkg/models"
)

// State is the per-node set of pending rewrites.
type State uint8

const (
	// Prop asks for the node properties to be rewritten.
	Prop State = 1 << iota
	// Content asks for the text and anchored objects to be rewritten.
	Content
	// Hier asks for the parent and sequence to be rewritten.
	Hier
	// Update marks a node whose row already exists in the backing store.
	Update
)

// All facets of a brand-new node.
const New = Prop | Content | Hier

func (s State) Has(f State) bool { return s&f == f }

// Ledger accumulates pending writes between saves. It is safe for concurrent
// use so that a background save can commit or roll back its batch while the
// tree keeps recording edits.
type Ledger struct {
	mu        sync.Mutex
	nodes     map[models.NodeID]State
	removals  map[models.NodeID]struct{}
	bookmarks bool
	fixTables bool
	inflight  map[*Batch]struct{}
	retired   models.NodeID
}

func NewLedger() *Ledger {
	return &Ledger{
		nodes:    make(map[models.NodeID]State),
		removals: make(map[models.NodeID]struct{}),
		inflight: make(map[*Batch]struct{}),
	}
}

func (l *Ledger) EditProperties(id models.NodeID) { l.edit(id, Prop) }
func (l *Ledger) EditContent(id models.NodeID)    { l.edit(id, Content) }
func (l *Ledger) EditHierarchy(id models.NodeID)  { l.edit(id, Hier) }

func (l *Ledger) edit(id models.NodeID, facet State) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, removed := l.removals[id]; removed {
		return
	}
	st, ok := l.nodes[id]
	if !ok {
		st = Update
	}
	l.nodes[id] = st | facet
}

// AddNode records a node that has no row in the backing store yet.
func (l *Ledger) AddNode(id models.NodeID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nodes[id] = New
}

// RemoveNodes queues ids for deletion and discards their pending writes.
func (l *Ledger) RemoveNodes(ids ...models.NodeID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, id := range ids {
		delete(l.nodes, id)
		l.removals[id] = struct{}{}
	}
}

func (l *Ledger) EditBookmarks() {
	l.mu.Lock()
	l.bookmarks = true
	l.mu.Unlock()
}

// RequestSchemaFix asks the relational backend to upgrade an old schema on
// the next save.
func (l *Ledger) RequestSchemaFix() {
	l.mu.Lock()
	l.fixTables = true
	l.mu.Unlock()
}

// State returns the pending state of id.
func (l *Ledger) State(id models.NodeID) (State, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	st, ok := l.nodes[id]
	return st, ok
}

func (l *Ledger) IsRemoved(id models.NodeID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.removals[id]
	return ok
}

func (l *Ledger) BookmarksChanged() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.bookmarks
}

// IsEmpty reports whether nothing needs saving.
func (l *Ledger) IsEmpty() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.nodes) == 0 && len(l.removals) == 0 && !l.bookmarks && !l.fixTables
}

// Clear drops every pending entry. Ids already retired stay reserved.
func (l *Ledger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nodes = make(map[models.NodeID]State)
	l.removals = make(map[models.NodeID]struct{})
	l.bookmarks = false
	l.fixTables = false
}

// PendingRemovals lists ids queued for removal, including those of batches
// currently being saved, in ascending order.
func (l *Ledger) PendingRemovals() []models.NodeID {
	l.mu.Lock()
	defer l.mu.Unlock()
	set := make(map[models.NodeID]struct{}, len(l.removals))
	for id := range l.removals {
		set[id] = struct{}{}
	}
	for b := range l.inflight {
		for _, id := range b.Removals {
			set[id] = struct{}{}
		}
	}
	return sortedIDs(set)
}

// MaxReserved is the highest id that must not be handed out again: ids
// pending removal and ids whose removal was committed during this session.
func (l *Ledger) MaxReserved() models.NodeID {
	highest := l.retiredID()
	for _, id := range l.PendingRemovals() {
		if id > highest {
			highest = id
		}
	}
	return highest
}

func (l *Ledger) retiredID() models.NodeID {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.retired
}

// Batch is a frozen set of pending writes handed to a backend.
type Batch struct {
	Nodes     map[models.NodeID]State
	Removals  []models.NodeID
	Bookmarks bool
	FixTables bool
}

// NodeIDs returns the ids with pending writes in ascending order.
func (b *Batch) NodeIDs() []models.NodeID {
	set := make(map[models.NodeID]struct{}, len(b.Nodes))
	for id := range b.Nodes {
		set[id] = struct{}{}
	}
	return sortedIDs(set)
}

func (b *Batch) IsEmpty() bool {
	return len(b.Nodes) == 0 && len(b.Removals) == 0 && !b.Bookmarks && !b.FixTables
}

// Begin moves every pending entry into a new batch. The batch's removed ids
// stay reserved until Commit or Rollback.
func (l *Ledger) Begin() *Batch {
	l.mu.Lock()
	defer l.mu.Unlock()
	b := &Batch{
		Nodes:     l.nodes,
		Removals:  sortedIDs(l.removals),
		Bookmarks: l.bookmarks,
		FixTables: l.fixTables,
	}
	l.nodes = make(map[models.NodeID]State)
	l.removals = make(map[models.NodeID]struct{})
	l.bookmarks = false
	l.fixTables = false
	l.inflight[b] = struct{}{}
	return b
}

// Commit marks the batch as written.
func (l *Ledger) Commit(b *Batch) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.inflight, b)
	for _, id := range b.Removals {
		if id > l.retired {
			l.retired = id
		}
	}
}

// Rollback merges an unwritten batch back into the ledger.
func (l *Ledger) Rollback(b *Batch) {
	l.merge(b, false)
}

// Requeue merges back a batch whose rows reached the backing store although
// the save as a whole failed. Every node of the batch now has a row, so its
// entries come back marked Update and the next save replaces them.
func (l *Ledger) Requeue(b *Batch) {
	l.merge(b, true)
}

func (l *Ledger) merge(b *Batch, written bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.inflight, b)
	for _, id := range b.Removals {
		l.removals[id] = struct{}{}
		delete(l.nodes, id)
	}
	for id, st := range b.Nodes {
		if _, removed := l.removals[id]; removed {
			continue
		}
		if written {
			st |= Update
		}
		cur, ok := l.nodes[id]
		if !ok {
			l.nodes[id] = st
			continue
		}
		merged := (cur | st) &^ Update
		if cur.Has(Update) && st.Has(Update) {
			merged |= Update
		}
		l.nodes[id] = merged
	}
	l.bookmarks = l.bookmarks || b.Bookmarks
	l.fixTables = l.fixTables || b.FixTables
}

func sortedIDs(set map[models.NodeID]struct{}) []models.NodeID {
	ids := make([]models.NodeID, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
