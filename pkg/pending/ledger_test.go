package pending

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grovetools/treenote/pkg/models"
)

func TestEditMarksExistingRow(t *testing.T) {
	l := NewLedger()
	l.EditProperties(7)
	l.EditHierarchy(7)

	st, ok := l.State(7)
	require.True(t, ok)
	assert.True(t, st.Has(Prop|Hier|Update))
	assert.False(t, st.Has(Content))
}

func TestNewNodeStaysInsert(t *testing.T) {
	l := NewLedger()
	l.AddNode(3)
	l.EditContent(3)

	st, _ := l.State(3)
	assert.Equal(t, New, st)
	assert.False(t, st.Has(Update))
}

func TestRemovalWins(t *testing.T) {
	l := NewLedger()
	l.EditContent(4)
	l.RemoveNodes(4, 5)
	l.EditProperties(4)

	_, ok := l.State(4)
	assert.False(t, ok)
	assert.True(t, l.IsRemoved(4))
	assert.Equal(t, []models.NodeID{4, 5}, l.PendingRemovals())
	assert.Equal(t, models.NodeID(5), l.MaxReserved())
}

func TestBeginCommitKeepsRemovedIDsReserved(t *testing.T) {
	l := NewLedger()
	l.RemoveNodes(9)
	l.EditBookmarks()

	b := l.Begin()
	assert.True(t, l.IsEmpty())
	assert.Equal(t, []models.NodeID{9}, b.Removals)
	assert.True(t, b.Bookmarks)
	assert.Equal(t, models.NodeID(9), l.MaxReserved(), "in-flight removal stays reserved")

	l.Commit(b)
	assert.Empty(t, l.PendingRemovals())
	assert.Equal(t, models.NodeID(9), l.MaxReserved(), "committed removal is retired")
}

func TestRollbackMergesBack(t *testing.T) {
	l := NewLedger()
	l.AddNode(1)
	l.EditProperties(2)
	l.RemoveNodes(3)

	b := l.Begin()
	// edits made while the batch is being written
	l.EditContent(1)
	l.EditContent(2)

	l.Rollback(b)

	st1, _ := l.State(1)
	assert.Equal(t, New, st1, "node 1 has no row yet")
	st2, _ := l.State(2)
	assert.Equal(t, Prop|Content|Update, st2)
	assert.True(t, l.IsRemoved(3))
}

func TestRequeueMarksWrittenRows(t *testing.T) {
	l := NewLedger()
	l.AddNode(1)
	l.EditProperties(2)
	l.RemoveNodes(3)

	b := l.Begin()
	l.EditContent(1)

	l.Requeue(b)

	st1, _ := l.State(1)
	assert.Equal(t, New|Update, st1, "node 1 was inserted by the failed save")
	st2, _ := l.State(2)
	assert.Equal(t, Prop|Update, st2)
	assert.True(t, l.IsRemoved(3))
	assert.Equal(t, models.NodeID(3), l.MaxReserved())
}

func TestBatchNodeIDsSorted(t *testing.T) {
	l := NewLedger()
	for _, id := range []models.NodeID{5, 1, 3} {
		l.EditProperties(id)
	}
	b := l.Begin()
	assert.Equal(t, []models.NodeID{1, 3, 5}, b.NodeIDs())
	assert.False(t, b.IsEmpty())
}

func TestClear(t *testing.T) {
	l := NewLedger()
	l.EditProperties(1)
	l.RemoveNodes(2)
	l.EditBookmarks()
	l.RequestSchemaFix()
	require.False(t, l.IsEmpty())

	l.Clear()
	assert.True(t, l.IsEmpty())
	assert.False(t, l.BookmarksChanged())
}
