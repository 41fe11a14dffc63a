package sqlitestore

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grovetools/treenote/pkg/models"
	"github.com/grovetools/treenote/pkg/pending"
	"github.com/grovetools/treenote/pkg/tree"
)

func plainProps(name string) models.NodeProperties {
	return models.NodeProperties{Name: name, Syntax: models.SyntaxPlainText}
}

// sampleTree builds Alpha(1) > [Beta(2), Gamma(3)] plus a rich node Delta(4)
// carrying one of every anchored object.
func sampleTree(t *testing.T) *tree.Tree {
	t.Helper()
	tr := tree.New(nil)
	alpha, err := tr.AppendNode(nil, models.NodeProperties{
		Name: "Alpha", Syntax: models.SyntaxRichText, Tags: "top level",
		Bold: true, Foreground: "#ff8000", CustomIconID: 7, ReadOnly: true,
		ExcludeChildrenFromSearch: true,
	}, &models.Content{Runs: []models.Run{{Text: "root"}}})
	require.NoError(t, err)
	_, err = tr.AppendNode(alpha, plainProps("Beta"), models.PlainContent("hello"))
	require.NoError(t, err)
	_, err = tr.AppendNode(alpha, models.NodeProperties{Name: "Gamma", Syntax: "python"}, models.PlainContent("print(1)\n"))
	require.NoError(t, err)

	stamp := models.FromUnix(1700000000)
	_, err = tr.AppendNode(nil, models.NodeProperties{Name: "Delta", Syntax: models.SyntaxRichText, ExcludeFromSearch: true}, &models.Content{
		Runs: []models.Run{
			{Text: "Heading\n", Attrs: map[string]string{"scale": "h1", "weight": "heavy"}},
			{Text: "body with <xml> & stuff\n"},
		},
		Objects: []models.AnchoredObject{
			&models.Image{Placement: models.Placement{Offset: 1, Justification: models.JustifyCenter}, PNG: []byte{0x89, 'P', 'N', 'G'}, Link: "webs https://example.com"},
			&models.Anchor{Placement: models.Placement{Offset: 2, Justification: models.JustifyLeft}, Name: "here"},
			&models.EmbeddedFile{Placement: models.Placement{Offset: 3, Justification: models.JustifyLeft}, FileName: "a.txt", Data: []byte("attached"), Time: stamp},
			&models.CodeBox{Placement: models.Placement{Offset: 4, Justification: models.JustifyRight}, Text: "x := 1", Syntax: "go", Width: 500, Height: 100, WidthInPixels: true, ShowLineNumbers: true},
			&models.Table{Placement: models.Placement{Offset: 5, Justification: models.JustifyLeft}, Rows: [][]string{{"k", "v"}, {"a", "1"}}, ColMin: 40, ColMax: 60, ColWidths: []int{40, 60}},
		},
	})
	require.NoError(t, err)
	require.NoError(t, tr.AddBookmark(4))
	require.NoError(t, tr.AddBookmark(2))
	return tr
}

func saveNew(t *testing.T, tr *tree.Tree, path string) *Store {
	t.Helper()
	snap, err := tr.Freeze(nil)
	require.NoError(t, err)
	s := New(nil)
	require.NoError(t, s.Save(context.Background(), path, snap, nil))
	tr.Ledger().Clear()
	return s
}

func load(t *testing.T, path string) (*tree.Tree, *Store) {
	t.Helper()
	s := New(nil)
	tr := tree.New(nil)
	require.NoError(t, s.Populate(context.Background(), path, tr))
	t.Cleanup(func() { s.Close() })
	return tr, s
}

func requireSameTree(t *testing.T, want, got *tree.Tree) {
	t.Helper()
	wantSnap, err := want.Freeze(nil)
	require.NoError(t, err)
	gotSnap, err := got.Freeze(nil)
	require.NoError(t, err)
	require.Equal(t, wantSnap.Records, gotSnap.Records)
	require.Equal(t, wantSnap.Bookmarks, gotSnap.Bookmarks)
}

func TestRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.ctb")
	orig := sampleTree(t)
	s := saveNew(t, orig, path)
	defer s.Close()

	loaded, _ := load(t, path)
	requireSameTree(t, orig, loaded)
}

func TestPopulateLeavesNodesLazy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.ctb")
	s := saveNew(t, sampleTree(t), path)
	s.Close()

	loaded, _ := load(t, path)
	n, ok := loaded.Get(2)
	require.True(t, ok)
	assert.False(t, n.IsMaterialized())

	c, err := n.Content()
	require.NoError(t, err)
	assert.Equal(t, "hello", c.Text())
	assert.True(t, loaded.Ledger().IsEmpty())
}

func TestScenarioChildrenOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.ctb")
	s := saveNew(t, sampleTree(t), path)
	s.Close()

	loaded, _ := load(t, path)
	alpha, ok := loaded.Get(1)
	require.True(t, ok)
	kids := alpha.Children()
	require.Len(t, kids, 2)
	assert.Equal(t, "Beta", kids[0].Name())
	assert.Equal(t, 1, kids[0].Sequence())
	assert.Equal(t, "Gamma", kids[1].Name())
	assert.Equal(t, 2, kids[1].Sequence())
}

func saveIncremental(t *testing.T, tr *tree.Tree, s *Store) {
	t.Helper()
	batch := tr.Ledger().Begin()
	snap, err := tr.Freeze(batch)
	require.NoError(t, err)
	require.NoError(t, s.Save(context.Background(), s.Path(), snap, batch))
	tr.Ledger().Commit(batch)
}

func nodeRows(t *testing.T, path string, except models.NodeID) [][]any {
	t.Helper()
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()
	rows, err := db.Query("SELECT * FROM node WHERE node_id != ? ORDER BY node_id", except)
	require.NoError(t, err)
	defer rows.Close()
	cols, _ := rows.Columns()
	var out [][]any
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		require.NoError(t, rows.Scan(ptrs...))
		out = append(out, vals)
	}
	return out
}

func TestPropertyOnlySaveTouchesOneRow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.ctb")
	orig := sampleTree(t)
	saveNew(t, orig, path).Close()
	before := nodeRows(t, path, 2)

	tr, s := load(t, path)
	beta, _ := tr.Get(2)
	tr.Rename(beta, "Beta2")
	st, _ := tr.Ledger().State(2)
	require.Equal(t, pending.Prop|pending.Update, st)
	assert.False(t, beta.IsMaterialized())

	saveIncremental(t, tr, s)
	require.NoError(t, s.Close())

	assert.Equal(t, before, nodeRows(t, path, 2))

	reloaded, _ := load(t, path)
	b, _ := reloaded.Get(2)
	assert.Equal(t, "Beta2", b.Name())
	c, err := b.Content()
	require.NoError(t, err)
	assert.Equal(t, "hello", c.Text())

	wantSnap, err := orig.Freeze(nil)
	require.NoError(t, err)
	gotSnap, err := reloaded.Freeze(nil)
	require.NoError(t, err)
	require.Len(t, gotSnap.Records, len(wantSnap.Records))
	for i := range wantSnap.Records {
		if wantSnap.Records[i].ID == 2 {
			continue
		}
		assert.Equal(t, wantSnap.Records[i], gotSnap.Records[i])
	}
}

func TestIncrementalDeleteAndNewID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.ctb")
	saveNew(t, sampleTree(t), path).Close()

	tr, s := load(t, path)
	gamma, _ := tr.Get(3)
	tr.DeleteNode(gamma)
	assert.Equal(t, models.NodeID(5), tr.NewNodeID())
	saveIncremental(t, tr, s)
	require.NoError(t, s.Close())

	reloaded, _ := load(t, path)
	alpha, _ := reloaded.Get(1)
	kids := alpha.Children()
	require.Len(t, kids, 1)
	assert.Equal(t, "Beta", kids[0].Name())
	_, ok := reloaded.Get(3)
	assert.False(t, ok)
	assert.GreaterOrEqual(t, int64(reloaded.NewNodeID()), int64(4))
}

func TestIncrementalMixedEdits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.ctb")
	saveNew(t, sampleTree(t), path).Close()

	tr, s := load(t, path)
	alpha, _ := tr.Get(1)
	delta, _ := tr.Get(4)
	beta, _ := tr.Get(2)

	// content edit on a rich node drops and rewrites its objects
	tr.SetContent(delta, &models.Content{
		Runs:    []models.Run{{Text: "short"}},
		Objects: []models.AnchoredObject{&models.Anchor{Placement: models.Placement{Offset: 0, Justification: models.JustifyLeft}, Name: "only"}},
	})
	// move Beta to the root, add a new subtree under Alpha, delete Delta's bookmark
	require.NoError(t, tr.MoveNode(beta, nil, 0))
	n, err := tr.AppendNode(alpha, plainProps("Epsilon"), models.PlainContent("new"))
	require.NoError(t, err)
	_, err = tr.AppendNode(n, plainProps("Zeta"), nil)
	require.NoError(t, err)
	assert.True(t, tr.RemoveBookmark(4))

	saveIncremental(t, tr, s)

	reloaded, _ := load(t, path)
	requireSameTree(t, tr, reloaded)
}

func TestFullRewriteOfExistingStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.ctb")
	orig := sampleTree(t)
	s := saveNew(t, orig, path)

	tr := tree.New(nil)
	_, err := tr.AppendNode(nil, plainProps("only"), nil)
	require.NoError(t, err)
	snap, err := tr.Freeze(nil)
	require.NoError(t, err)
	require.NoError(t, s.Save(context.Background(), path, snap, nil))
	require.NoError(t, s.Close())

	reloaded, _ := load(t, path)
	requireSameTree(t, tr, reloaded)
}

func TestCreateRefusesExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.ctb")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	snap, err := tree.New(nil).Freeze(nil)
	require.NoError(t, err)
	assert.Error(t, New(nil).Save(context.Background(), path, snap, nil))
}

func TestLegacySchemaUpgradedOnSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.ctb")
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	for _, stmt := range []string{
		"CREATE TABLE node (node_id INTEGER UNIQUE, name TEXT, txt TEXT, syntax TEXT, tags TEXT, is_ro INTEGER, is_richtxt INTEGER, has_codebox INTEGER, has_table INTEGER, has_image INTEGER, level INTEGER)",
		"CREATE TABLE codebox (node_id INTEGER, offset INTEGER, justification TEXT, txt TEXT, syntax TEXT, width INTEGER, height INTEGER, is_width_pix INTEGER, do_highl_bra INTEGER, do_show_linenum INTEGER)",
		"CREATE TABLE grid (node_id INTEGER, offset INTEGER, justification TEXT, txt TEXT, col_min INTEGER, col_max INTEGER)",
		"CREATE TABLE image (node_id INTEGER, offset INTEGER, justification TEXT, anchor TEXT, png BLOB)",
		"CREATE TABLE children (node_id INTEGER UNIQUE, father_id INTEGER, sequence INTEGER)",
		"CREATE TABLE bookmark (node_id INTEGER UNIQUE, sequence INTEGER)",
		"INSERT INTO node VALUES (1, 'old', '<?xml version=\"1.0\"?><node><rich_text>legacy</rich_text></node>', 'custom-colors', '', 0, 1, 0, 0, 1, 0)",
		"INSERT INTO image VALUES (1, 0, '', 'anchor1', NULL)",
		"INSERT INTO children VALUES (1, 0, 1)",
	} {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}
	require.NoError(t, db.Close())

	tr, s := load(t, path)
	n, ok := tr.Get(1)
	require.True(t, ok)
	assert.True(t, n.Properties().CreatedAt.IsZero())
	c, err := n.Content()
	require.NoError(t, err)
	assert.Equal(t, "legacy", c.Text())
	require.Len(t, c.Objects, 1)
	assert.Equal(t, &models.Anchor{Placement: models.Placement{Justification: models.JustifyLeft}, Name: "anchor1"}, c.Objects[0])
	assert.False(t, tr.Ledger().IsEmpty(), "schema fix requested")

	tr.Rename(n, "upgraded")
	saveIncremental(t, tr, s)
	require.NoError(t, s.Close())

	reloaded, _ := load(t, path)
	assert.True(t, reloaded.Ledger().IsEmpty())
	r, _ := reloaded.Get(1)
	assert.Equal(t, "upgraded", r.Name())
}

func TestIntegrityCleanFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.ctb")
	saveNew(t, sampleTree(t), path).Close()

	_, s := load(t, path)
	assert.Empty(t, s.IntegrityIssues())
}

func TestTestConnection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.ctb")
	s := saveNew(t, sampleTree(t), path)
	s.SetRetryDelay(time.Millisecond)
	ctx := context.Background()

	require.NoError(t, s.TestConnection(ctx))

	// a closed handle is reopened transparently
	require.NoError(t, s.Close())
	require.NoError(t, s.TestConnection(ctx))

	require.NoError(t, s.Close())
	require.NoError(t, os.Remove(path))
	err := s.TestConnection(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file is missing")
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "reopen must not recreate the file")
}

func TestVacuum(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.ctb")
	s := saveNew(t, sampleTree(t), path)
	defer s.Close()
	require.NoError(t, s.Vacuum(context.Background()))

	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Vacuum(context.Background()), ErrNotOpen)
}

func TestBitfields(t *testing.T) {
	p := models.NodeProperties{Syntax: models.SyntaxRichText, ReadOnly: true, CustomIconID: 12, Bold: true, Foreground: "#0a0b0c"}
	var got models.NodeProperties
	unpackReadOnly(packReadOnly(p), &got)
	unpackRichText(packRichText(p), &got)
	assert.True(t, got.ReadOnly)
	assert.Equal(t, 12, got.CustomIconID)
	assert.True(t, got.Bold)
	assert.Equal(t, "#0a0b0c", got.Foreground)
	assert.Equal(t, int64(0x0a0b0c<<3|0b111), packRichText(p))

	long := models.NodeProperties{Foreground: "#ffff00000000"}
	unpackRichText(packRichText(long), &got)
	assert.Equal(t, "#ff0000", got.Foreground)
}

func execSQL(t *testing.T, path string, stmts ...string) {
	t.Helper()
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()
	for _, stmt := range stmts {
		_, err := db.Exec(stmt)
		require.NoError(t, err, stmt)
	}
}

func TestSparseSequencesKeepOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.ctb")
	saveNew(t, sampleTree(t), path).Close()
	execSQL(t, path,
		"UPDATE children SET sequence = 3 WHERE node_id = 2",
		"UPDATE children SET sequence = 5 WHERE node_id = 3")

	tr, s := load(t, path)
	alpha, _ := tr.Get(1)
	_, err := tr.AppendNode(alpha, plainProps("Eps"), models.PlainContent("e"))
	require.NoError(t, err)
	saveIncremental(t, tr, s)
	require.NoError(t, s.Close())

	reloaded, _ := load(t, path)
	a, _ := reloaded.Get(1)
	var names []string
	var seqs []int
	for _, c := range a.Children() {
		names = append(names, c.Name())
		seqs = append(seqs, c.Sequence())
	}
	assert.Equal(t, []string{"Beta", "Gamma", "Eps"}, names)
	assert.Equal(t, []int{1, 2, 3}, seqs)
	assert.True(t, reloaded.Ledger().IsEmpty(), "stored sequences are dense again")
}

func TestNullObjectSizes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.ctb")
	saveNew(t, sampleTree(t), path).Close()
	execSQL(t, path,
		"UPDATE codebox SET width = NULL, height = NULL",
		"UPDATE grid SET col_min = NULL, col_max = NULL")

	tr, _ := load(t, path)
	delta, _ := tr.Get(4)
	c, err := delta.Content()
	require.NoError(t, err)
	var sawCode, sawTable bool
	for _, o := range c.Objects {
		switch obj := o.(type) {
		case *models.CodeBox:
			sawCode = true
			assert.Equal(t, "x := 1", obj.Text)
			assert.Zero(t, obj.Width)
			assert.Zero(t, obj.Height)
		case *models.Table:
			sawTable = true
			assert.Zero(t, obj.ColMin)
			assert.Zero(t, obj.ColMax)
		}
	}
	assert.True(t, sawCode)
	assert.True(t, sawTable)
}
