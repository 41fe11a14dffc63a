// Package tree holds the in-memory document: a forest of nodes with
// per-document id allocation, bookmarks, used tags and a name index. Every
// mutation records the matching entry in the document's pending ledger.
package tree

import (
	"errors"
	"fmt"
	"sort"

	"github.com/gobwas/glob"
	"golang.org/x/text/cases"

	"github.com/grovetools/treenote/pkg/models"
	"github.com/grovetools/treenote/pkg/pending"
)

var (
	// ErrNodeNotFound is returned when an id does not belong to the tree.
	ErrNodeNotFound = errors.New("node not found")
	// ErrCycle is returned when a node would be moved under itself.
	ErrCycle = errors.New("cannot move a node under its own subtree")
	// ErrDuplicateID is returned when a loaded node reuses an existing id.
	ErrDuplicateID = errors.New("duplicate node id")
	// ErrAlreadyBookmarked is returned when a bookmark already exists.
	ErrAlreadyBookmarked = errors.New("node already bookmarked")
)

type Tree struct {
	roots     []*Node
	byID      map[models.NodeID]*Node
	bookmarks []models.NodeID
	tags      map[string]struct{}
	names     map[string]map[models.NodeID]*Node
	fold      cases.Caser
	loader    ContentLoader
	ledger    *pending.Ledger
	maxID     models.NodeID // highest id ever indexed
}

// New creates an empty tree recording into ledger. A nil ledger gets a fresh one.
func New(ledger *pending.Ledger) *Tree {
	if ledger == nil {
		ledger = pending.NewLedger()
	}
	return &Tree{
		byID:   make(map[models.NodeID]*Node),
		tags:   make(map[string]struct{}),
		names:  make(map[string]map[models.NodeID]*Node),
		fold:   cases.Fold(),
		ledger: ledger,
	}
}

func (t *Tree) Ledger() *pending.Ledger { return t.ledger }

// SetLoader sets the backend used to materialize skeleton nodes.
func (t *Tree) SetLoader(l ContentLoader) { t.loader = l }

func (t *Tree) Len() int { return len(t.byID) }

func (t *Tree) Get(id models.NodeID) (*Node, bool) {
	n, ok := t.byID[id]
	return n, ok
}

// MustGet is Get returning ErrNodeNotFound.
func (t *Tree) MustGet(id models.NodeID) (*Node, error) {
	n, ok := t.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrNodeNotFound, id)
	}
	return n, nil
}

func (t *Tree) Roots() []*Node {
	return append([]*Node(nil), t.roots...)
}

// Walk visits every node depth-first, parents before children, siblings in
// sequence order. Returning an error stops the walk.
func (t *Tree) Walk(fn func(n *Node) error) error {
	var visit func(nodes []*Node) error
	visit = func(nodes []*Node) error {
		for _, n := range nodes {
			if err := fn(n); err != nil {
				return err
			}
			if err := visit(n.children); err != nil {
				return err
			}
		}
		return nil
	}
	return visit(t.roots)
}

// NewNodeID returns an id greater than every id in the tree, every id pending
// removal and every id removed during this session.
func (t *Tree) NewNodeID() models.NodeID {
	highest := t.ledger.MaxReserved()
	if t.maxID > highest {
		highest = t.maxID
	}
	return highest + 1
}

// AttachLoaded appends a node read from storage under its parent. Records
// must arrive parents first and siblings in order. A stored sequence that
// differs from the dense one assigned here is recorded as a hierarchy rewrite;
// nothing else is recorded. Zero means the backend keeps no sequence. A nil
// Content leaves the node as a skeleton.
func (t *Tree) AttachLoaded(rec models.NodeRecord) (*Node, error) {
	if _, exists := t.byID[rec.ID]; exists {
		return nil, fmt.Errorf("%w: %d", ErrDuplicateID, rec.ID)
	}
	var parent *Node
	if rec.ParentID != 0 {
		p, ok := t.byID[rec.ParentID]
		if !ok {
			return nil, fmt.Errorf("attach node %d: parent %w: %d", rec.ID, ErrNodeNotFound, rec.ParentID)
		}
		parent = p
	}
	n := &Node{id: rec.ID, props: rec.NodeProperties, content: rec.Content, tree: t}
	group := t.siblings(parent)
	*group = append(*group, n)
	n.parent = parent
	n.sequence = len(*group)
	t.index(n)
	if rec.Sequence != 0 && rec.Sequence != n.sequence {
		t.ledger.EditHierarchy(n.id)
	}
	return n, nil
}

// LoadBookmarks replaces the bookmark list without recording a change.
// Unknown and repeated ids are dropped.
func (t *Tree) LoadBookmarks(ids []models.NodeID) {
	t.bookmarks = t.bookmarks[:0]
	seen := make(map[models.NodeID]bool, len(ids))
	for _, id := range ids {
		if _, ok := t.byID[id]; !ok || seen[id] {
			continue
		}
		seen[id] = true
		t.bookmarks = append(t.bookmarks, id)
	}
}

// AppendNode adds a new last child of parent (nil for root level).
func (t *Tree) AppendNode(parent *Node, props models.NodeProperties, content *models.Content) (*Node, error) {
	return t.InsertNode(parent, -1, props, content)
}

// InsertNode adds a new node at index among parent's children. An index out
// of range appends.
func (t *Tree) InsertNode(parent *Node, index int, props models.NodeProperties, content *models.Content) (*Node, error) {
	if parent != nil && parent.tree != t {
		return nil, fmt.Errorf("insert node: parent %w", ErrNodeNotFound)
	}
	now := models.Now()
	if props.CreatedAt.IsZero() {
		props.CreatedAt = now
	}
	if props.ModifiedAt.IsZero() {
		props.ModifiedAt = now
	}
	if props.Syntax == "" {
		props.Syntax = models.SyntaxRichText
	}
	if content == nil {
		content = &models.Content{}
	}
	n := &Node{id: t.NewNodeID(), props: props, content: content, tree: t}
	t.ledger.AddNode(n.id)
	t.insertAt(parent, index, n)
	t.index(n)
	t.fixGroup(parent)
	return n, nil
}

// SetProperties replaces the node properties and bumps the modification time.
// Switching between rich text and any other syntax rewrites the content too.
func (t *Tree) SetProperties(n *Node, props models.NodeProperties) {
	t.unindexName(n)
	if props.CreatedAt.IsZero() {
		props.CreatedAt = n.props.CreatedAt
	}
	props.ModifiedAt = models.Now()
	syntaxFlip := props.IsRichText() != n.props.IsRichText()
	n.props = props
	t.index(n)
	t.ledger.EditProperties(n.id)
	if syntaxFlip {
		t.ledger.EditContent(n.id)
	}
}

func (t *Tree) Rename(n *Node, name string) {
	props := n.props
	props.Name = name
	t.SetProperties(n, props)
}

// SetContent replaces the node content.
func (t *Tree) SetContent(n *Node, c *models.Content) {
	if c == nil {
		c = &models.Content{}
	}
	n.content = c
	n.props.ModifiedAt = models.Now()
	t.ledger.EditContent(n.id)
}

// MoveNode re-parents n at index among newParent's children (nil for root
// level, index out of range appends).
func (t *Tree) MoveNode(n, newParent *Node, index int) error {
	if n == nil || n.tree != t {
		return fmt.Errorf("move node: %w", ErrNodeNotFound)
	}
	if newParent != nil && newParent.tree != t {
		return fmt.Errorf("move node: parent %w", ErrNodeNotFound)
	}
	if newParent != nil && n.isAncestorOf(newParent) {
		return ErrCycle
	}
	oldParent := n.parent
	t.detach(n)
	t.insertAt(newParent, index, n)
	t.ledger.EditHierarchy(n.id)
	t.fixGroup(oldParent)
	if oldParent != newParent {
		t.fixGroup(newParent)
	}
	return nil
}

// DeleteNode removes n and its whole subtree and queues every removed id.
// Nodes not in t are ignored.
func (t *Tree) DeleteNode(n *Node) {
	if n == nil || n.tree != t {
		return
	}
	var ids []models.NodeID
	var collect func(x *Node)
	collect = func(x *Node) {
		ids = append(ids, x.id)
		for _, c := range x.children {
			collect(c)
		}
	}
	collect(n)

	parent := n.parent
	t.detach(n)
	for _, id := range ids {
		x := t.byID[id]
		t.unindexName(x)
		delete(t.byID, id)
		x.tree = nil
	}
	t.dropBookmarks(ids)
	t.ledger.RemoveNodes(ids...)
	t.fixGroup(parent)
}

// SortChildren reorders the children of parent (nil for root level).
func (t *Tree) SortChildren(parent *Node, less func(a, b *Node) bool) {
	group := t.siblings(parent)
	sort.SliceStable(*group, func(i, j int) bool { return less((*group)[i], (*group)[j]) })
	t.fixGroup(parent)
}

// FixSequences renumbers the children of parent 1..N, recording a hierarchy
// rewrite for every node whose sequence changed.
func (t *Tree) FixSequences(parent *Node, recursive bool) {
	t.fixGroup(parent)
	if !recursive {
		return
	}
	for _, c := range *t.siblings(parent) {
		t.FixSequences(c, true)
	}
}

func (t *Tree) Bookmarks() []models.NodeID {
	return append([]models.NodeID(nil), t.bookmarks...)
}

func (t *Tree) IsBookmarked(id models.NodeID) bool {
	for _, b := range t.bookmarks {
		if b == id {
			return true
		}
	}
	return false
}

func (t *Tree) AddBookmark(id models.NodeID) error {
	if _, ok := t.byID[id]; !ok {
		return fmt.Errorf("%w: %d", ErrNodeNotFound, id)
	}
	if t.IsBookmarked(id) {
		return fmt.Errorf("%w: %d", ErrAlreadyBookmarked, id)
	}
	t.bookmarks = append(t.bookmarks, id)
	t.ledger.EditBookmarks()
	return nil
}

// RemoveBookmark reports whether id was bookmarked.
func (t *Tree) RemoveBookmark(id models.NodeID) bool {
	for i, b := range t.bookmarks {
		if b == id {
			t.bookmarks = append(t.bookmarks[:i], t.bookmarks[i+1:]...)
			t.ledger.EditBookmarks()
			return true
		}
	}
	return false
}

// UsedTags lists every tag seen in this document, sorted.
func (t *Tree) UsedTags() []string {
	out := make([]string, 0, len(t.tags))
	for tag := range t.tags {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}

// FindByName matches names case-insensitively, in ascending id order.
func (t *Tree) FindByName(name string) []*Node {
	bucket := t.names[t.fold.String(name)]
	out := make([]*Node, 0, len(bucket))
	for _, n := range bucket {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// FindByPattern matches names against a glob pattern, in tree order.
func (t *Tree) FindByPattern(pattern string) ([]*Node, error) {
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile pattern %q: %w", pattern, err)
	}
	var out []*Node
	_ = t.Walk(func(n *Node) error {
		if g.Match(n.props.Name) {
			out = append(out, n)
		}
		return nil
	})
	return out, nil
}

// Summary counts nodes and anchored objects. Every node gets materialized.
func (t *Tree) Summary() (models.Summary, error) {
	var s models.Summary
	err := t.Walk(func(n *Node) error {
		c, err := n.Content()
		if err != nil {
			return err
		}
		s.Add(n.props, c)
		return nil
	})
	return s, err
}

func (t *Tree) siblings(parent *Node) *[]*Node {
	if parent == nil {
		return &t.roots
	}
	return &parent.children
}

func (t *Tree) insertAt(parent *Node, index int, n *Node) {
	group := t.siblings(parent)
	if index < 0 || index > len(*group) {
		index = len(*group)
	}
	*group = append(*group, nil)
	copy((*group)[index+1:], (*group)[index:])
	(*group)[index] = n
	n.parent = parent
}

func (t *Tree) detach(n *Node) {
	group := t.siblings(n.parent)
	for i, c := range *group {
		if c == n {
			*group = append((*group)[:i], (*group)[i+1:]...)
			break
		}
	}
	n.parent = nil
}

func (t *Tree) fixGroup(parent *Node) {
	for i, c := range *t.siblings(parent) {
		if c.sequence != i+1 {
			c.sequence = i + 1
			t.ledger.EditHierarchy(c.id)
		}
	}
}

func (t *Tree) index(n *Node) {
	t.byID[n.id] = n
	if n.id > t.maxID {
		t.maxID = n.id
	}
	key := t.fold.String(n.props.Name)
	bucket, ok := t.names[key]
	if !ok {
		bucket = make(map[models.NodeID]*Node)
		t.names[key] = bucket
	}
	bucket[n.id] = n
	for _, tag := range n.props.TagList() {
		t.tags[tag] = struct{}{}
	}
}

func (t *Tree) unindexName(n *Node) {
	key := t.fold.String(n.props.Name)
	if bucket, ok := t.names[key]; ok {
		delete(bucket, n.id)
		if len(bucket) == 0 {
			delete(t.names, key)
		}
	}
}

func (t *Tree) dropBookmarks(ids []models.NodeID) {
	gone := make(map[models.NodeID]bool, len(ids))
	for _, id := range ids {
		gone[id] = true
	}
	kept := t.bookmarks[:0]
	for _, b := range t.bookmarks {
		if !gone[b] {
			kept = append(kept, b)
		}
	}
	if len(kept) != len(t.bookmarks) {
		t.ledger.EditBookmarks()
	}
	t.bookmarks = kept
}
