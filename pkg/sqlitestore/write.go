package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/grovetools/treenote/pkg/markup"
	"github.com/grovetools/treenote/pkg/migration"
	"github.com/grovetools/treenote/pkg/models"
	"github.com/grovetools/treenote/pkg/pending"
	"github.com/grovetools/treenote/pkg/tree"
)

// Save writes snap to path. The first save of a store creates the file and
// writes every node; later saves rewrite only the rows named by batch, or
// every row when batch is nil.
func (s *Store) Save(ctx context.Context, path string, snap *tree.Snapshot, batch *pending.Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil || path != s.path {
		return s.create(ctx, path, snap)
	}
	if batch == nil {
		return s.inTx(ctx, func(tx *sql.Tx) error {
			for _, table := range tables {
				if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
					return fmt.Errorf("clear %s: %w", table, err)
				}
			}
			return writeAll(ctx, tx, snap)
		})
	}
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		return s.writeBatch(ctx, tx, snap, batch)
	})
	if err == nil && batch.FixTables {
		s.missing = nil
	}
	return err
}

func (s *Store) create(ctx context.Context, path string, snap *tree.Snapshot) error {
	if !snap.Full {
		return fmt.Errorf("create %s: snapshot is missing node content", path)
	}
	_ = s.closeLocked()
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("create %s: file already exists", path)
	}
	db, err := open(ctx, path, true)
	if err != nil {
		return err
	}
	s.db = db
	s.path = path
	s.missing = nil
	s.issues = nil

	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, ddl := range schema {
			if _, err := tx.ExecContext(ctx, ddl); err != nil {
				return fmt.Errorf("create schema: %w", err)
			}
		}
		return writeAll(ctx, tx, snap)
	})
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func writeAll(ctx context.Context, tx *sql.Tx, snap *tree.Snapshot) error {
	for _, rec := range snap.Records {
		if err := writeNode(ctx, tx, rec, pending.New); err != nil {
			return err
		}
	}
	return writeBookmarks(ctx, tx, snap.Bookmarks)
}

func (s *Store) writeBatch(ctx context.Context, tx *sql.Tx, snap *tree.Snapshot, batch *pending.Batch) error {
	if batch.FixTables {
		if err := migration.NewMigrator(tx, migration.MigrationOptions{}, nil, s.logger).Run(ctx); err != nil {
			return fmt.Errorf("upgrade schema: %w", err)
		}
	}
	if batch.Bookmarks {
		if err := writeBookmarks(ctx, tx, snap.Bookmarks); err != nil {
			return err
		}
	}
	idx := snap.Index()
	for _, id := range batch.NodeIDs() {
		i, ok := idx[id]
		if !ok {
			// removed again after the edit was recorded
			continue
		}
		if err := writeNode(ctx, tx, snap.Records[i], batch.Nodes[id]); err != nil {
			return err
		}
	}
	for _, id := range batch.Removals {
		if err := removeWithChildren(ctx, tx, id); err != nil {
			return err
		}
	}
	return nil
}

// writeNode writes the facets of rec named by st. Rows of an existing node
// are replaced for rewritten facets and left alone otherwise.
func writeNode(ctx context.Context, tx *sql.Tx, rec models.NodeRecord, st pending.State) error {
	upd := st.Has(pending.Update)
	prop := st.Has(pending.Prop)
	buff := st.Has(pending.Content)
	hier := st.Has(pending.Hier)

	if buff && rec.Content == nil {
		return fmt.Errorf("write node %d: content not loaded", rec.ID)
	}

	if upd && buff {
		for _, table := range []string{"codebox", "grid", "image"} {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE node_id = ?", rec.ID); err != nil {
				return fmt.Errorf("clear %s of node %d: %w", table, rec.ID, err)
			}
		}
		if prop {
			if _, err := tx.ExecContext(ctx, "DELETE FROM node WHERE node_id = ?", rec.ID); err != nil {
				return fmt.Errorf("delete node %d: %w", rec.ID, err)
			}
		}
	}
	if upd && hier {
		if _, err := tx.ExecContext(ctx, "DELETE FROM children WHERE node_id = ?", rec.ID); err != nil {
			return fmt.Errorf("delete hierarchy of node %d: %w", rec.ID, err)
		}
	}

	if hier {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO children (node_id, father_id, sequence) VALUES (?, ?, ?)",
			rec.ID, rec.ParentID, rec.Sequence); err != nil {
			return fmt.Errorf("write hierarchy of node %d: %w", rec.ID, err)
		}
	}

	isRO := packReadOnly(rec.NodeProperties)
	isRich := packRichText(rec.NodeProperties)
	level := packLevel(rec.NodeProperties)

	var hasCode, hasTable, hasImage bool
	if buff && rec.IsRichText() {
		for _, o := range rec.Content.Objects {
			if err := writeObject(ctx, tx, rec.ID, o); err != nil {
				return err
			}
			switch o.Kind() {
			case models.KindCodeBox:
				hasCode = true
			case models.KindTable:
				hasTable = true
			default:
				hasImage = true
			}
		}
	}

	switch {
	case prop && !buff:
		_, err := tx.ExecContext(ctx,
			"UPDATE node SET name = ?, syntax = ?, tags = ?, is_ro = ?, is_richtxt = ?, level = ? WHERE node_id = ?",
			rec.Name, rec.Syntax, rec.Tags, isRO, isRich, level, rec.ID)
		if err != nil {
			return fmt.Errorf("update properties of node %d: %w", rec.ID, err)
		}
	case buff:
		txt, err := nodeText(rec)
		if err != nil {
			return err
		}
		if prop {
			_, err = tx.ExecContext(ctx,
				"INSERT INTO node VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
				rec.ID, rec.Name, txt, rec.Syntax, rec.Tags, isRO, isRich,
				boolInt(hasCode), boolInt(hasTable), boolInt(hasImage), level,
				models.UnixSeconds(rec.CreatedAt), models.UnixSeconds(rec.ModifiedAt))
		} else {
			_, err = tx.ExecContext(ctx,
				"UPDATE node SET txt = ?, syntax = ?, is_richtxt = ?, has_codebox = ?, has_table = ?, has_image = ?, ts_lastsave = ? WHERE node_id = ?",
				txt, rec.Syntax, isRich, boolInt(hasCode), boolInt(hasTable), boolInt(hasImage),
				models.UnixSeconds(rec.ModifiedAt), rec.ID)
		}
		if err != nil {
			return fmt.Errorf("write node %d: %w", rec.ID, err)
		}
	}
	return nil
}

func nodeText(rec models.NodeRecord) (string, error) {
	if !rec.IsRichText() {
		return rec.Content.Text(), nil
	}
	txt, err := markup.EncodeRuns(rec.Content.Runs)
	if err != nil {
		return "", fmt.Errorf("encode rich text of node %d: %w", rec.ID, err)
	}
	return txt, nil
}

func writeObject(ctx context.Context, tx *sql.Tx, id models.NodeID, o models.AnchoredObject) error {
	pos := o.Position()
	just := string(models.ParseJustification(string(pos.Justification)))
	const insertImage = "INSERT INTO image VALUES (?, ?, ?, ?, ?, ?, ?, ?)"

	var err error
	switch obj := o.(type) {
	case *models.Image:
		_, err = tx.ExecContext(ctx, insertImage, id, pos.Offset, just, "", obj.PNG, "", obj.Link, 0)
	case *models.Anchor:
		_, err = tx.ExecContext(ctx, insertImage, id, pos.Offset, just, obj.Name, nil, "", "", 0)
	case *models.EmbeddedFile:
		_, err = tx.ExecContext(ctx, insertImage, id, pos.Offset, just, "", obj.Data, obj.FileName, "",
			models.UnixSeconds(obj.Time))
	case *models.CodeBox:
		_, err = tx.ExecContext(ctx, "INSERT INTO codebox VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
			id, pos.Offset, just, obj.Text, obj.Syntax, obj.Width, obj.Height,
			boolInt(obj.WidthInPixels), boolInt(obj.HighlightBrackets), boolInt(obj.ShowLineNumbers))
	case *models.Table:
		var txt string
		txt, err = markup.EncodeTable(obj)
		if err == nil {
			_, err = tx.ExecContext(ctx, "INSERT INTO grid VALUES (?, ?, ?, ?, ?, ?)",
				id, pos.Offset, just, txt, obj.ColMin, obj.ColMax)
		}
	default:
		err = fmt.Errorf("unknown object kind %q", o.Kind())
	}
	if err != nil {
		return fmt.Errorf("write %s of node %d: %w", o.Kind(), id, err)
	}
	return nil
}

func writeBookmarks(ctx context.Context, tx *sql.Tx, ids []models.NodeID) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM bookmark"); err != nil {
		return fmt.Errorf("clear bookmarks: %w", err)
	}
	for i, id := range ids {
		if _, err := tx.ExecContext(ctx, "INSERT INTO bookmark VALUES (?, ?)", id, i+1); err != nil {
			return fmt.Errorf("write bookmark %d: %w", id, err)
		}
	}
	return nil
}

func removeWithChildren(ctx context.Context, tx *sql.Tx, id models.NodeID) error {
	children, err := childIDs(ctx, tx, id)
	if err != nil {
		return err
	}
	for _, table := range []string{"codebox", "grid", "image", "node", "children"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE node_id = ?", id); err != nil {
			return fmt.Errorf("remove node %d from %s: %w", id, table, err)
		}
	}
	for _, child := range children {
		if err := removeWithChildren(ctx, tx, child); err != nil {
			return err
		}
	}
	return nil
}

func childIDs(ctx context.Context, tx *sql.Tx, parent models.NodeID) ([]models.NodeID, error) {
	rows, err := tx.QueryContext(ctx, "SELECT node_id FROM children WHERE father_id = ? ORDER BY sequence ASC", parent)
	if err != nil {
		return nil, fmt.Errorf("query children of %d: %w", parent, err)
	}
	defer rows.Close()

	var ids []models.NodeID
	for rows.Next() {
		var id models.NodeID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
