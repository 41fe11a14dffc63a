package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"

	"github.com/grovetools/treenote/pkg/markup"
	"github.com/grovetools/treenote/pkg/migration"
	"github.com/grovetools/treenote/pkg/models"
	"github.com/grovetools/treenote/pkg/tree"
)

// Populate opens path and attaches every node to t as a skeleton. Content is
// read later through DelayedContent. A failed integrity check is logged and
// reported by IntegrityIssues but does not fail the load.
func (s *Store) Populate(ctx context.Context, path string, t *tree.Tree) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s: %w", path, fs.ErrInvalid)
	}

	_ = s.closeLocked()
	db, err := open(ctx, path, false)
	if err != nil {
		return err
	}
	s.db = db
	s.path = path
	s.checkIntegrity(ctx)

	missing, err := migration.NewAnalyzer(db).Missing(ctx)
	if err != nil {
		return fmt.Errorf("inspect schema: %w", err)
	}
	s.missing = missing
	if len(missing) > 0 {
		s.logger.WithField("path", path).Info("Document uses an older schema, it will be upgraded on save")
		t.Ledger().RequestSchemaFix()
	}

	if err := s.loadNodes(ctx, t); err != nil {
		return err
	}
	bookmarks, err := s.loadBookmarks(ctx)
	if err != nil {
		return err
	}
	t.LoadBookmarks(bookmarks)
	t.SetLoader(s)
	return nil
}

func (s *Store) column(table, name, fallback string) string {
	if s.missing[table+"."+name] {
		return fallback
	}
	return name
}

func (s *Store) loadNodes(ctx context.Context, t *tree.Tree) error {
	query := fmt.Sprintf(`SELECT n.node_id, c.father_id, c.sequence, n.name, n.syntax, n.tags,
		n.is_ro, n.is_richtxt, n.level, %s, %s
		FROM node n JOIN children c ON c.node_id = n.node_id
		ORDER BY c.father_id, c.sequence`,
		s.column("node", "ts_creation", "0"), s.column("node", "ts_lastsave", "0"))
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("query nodes: %w", err)
	}
	defer rows.Close()

	byParent := make(map[models.NodeID][]models.NodeRecord)
	for rows.Next() {
		var (
			rec                 models.NodeRecord
			name, syntax, tags  sql.NullString
			isRO, isRich, level sql.NullInt64
			created, saved      sql.NullInt64
		)
		if err := rows.Scan(&rec.ID, &rec.ParentID, &rec.Sequence, &name, &syntax, &tags,
			&isRO, &isRich, &level, &created, &saved); err != nil {
			return fmt.Errorf("scan node: %w", err)
		}
		rec.Name = name.String
		rec.Syntax = syntax.String
		rec.Tags = tags.String
		unpackReadOnly(isRO.Int64, &rec.NodeProperties)
		unpackRichText(isRich.Int64, &rec.NodeProperties)
		unpackLevel(level.Int64, &rec.NodeProperties)
		rec.CreatedAt = models.FromUnix(created.Int64)
		rec.ModifiedAt = models.FromUnix(saved.Int64)
		byParent[rec.ParentID] = append(byParent[rec.ParentID], rec)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("query nodes: %w", err)
	}

	var attach func(parent models.NodeID) error
	attach = func(parent models.NodeID) error {
		for _, rec := range byParent[parent] {
			if _, err := t.AttachLoaded(rec); err != nil {
				if errors.Is(err, tree.ErrDuplicateID) {
					s.logger.WithField("node_id", rec.ID).Warn("Skipping node listed twice")
					continue
				}
				return err
			}
			if err := attach(rec.ID); err != nil {
				return err
			}
		}
		return nil
	}
	return attach(0)
}

func (s *Store) loadBookmarks(ctx context.Context) ([]models.NodeID, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT node_id FROM bookmark ORDER BY sequence ASC")
	if err != nil {
		return nil, fmt.Errorf("query bookmarks: %w", err)
	}
	defer rows.Close()

	var ids []models.NodeID
	for rows.Next() {
		var id models.NodeID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan bookmark: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DelayedContent reads the text and anchored objects of one node.
func (s *Store) DelayedContent(id models.NodeID, syntax string) (*models.Content, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, ErrNotOpen
	}
	ctx := context.Background()

	var (
		txt                      sql.NullString
		hasCode, hasTable, hasImg sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT txt, has_codebox, has_table, has_image FROM node WHERE node_id = ?", id).
		Scan(&txt, &hasCode, &hasTable, &hasImg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("node %d: %w", id, tree.ErrNodeNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query node %d: %w", id, err)
	}

	if syntax != models.SyntaxRichText {
		return models.PlainContent(txt.String), nil
	}

	runs, err := markup.DecodeRuns(txt.String)
	if err != nil {
		return nil, fmt.Errorf("node %d: %w", id, err)
	}
	c := &models.Content{Runs: runs}
	if hasImg.Int64 != 0 {
		if err := s.readImages(ctx, id, c); err != nil {
			return nil, err
		}
	}
	if hasCode.Int64 != 0 {
		if err := s.readCodeBoxes(ctx, id, c); err != nil {
			return nil, err
		}
	}
	if hasTable.Int64 != 0 {
		if err := s.readTables(ctx, id, c); err != nil {
			return nil, err
		}
	}
	sort.SliceStable(c.Objects, func(i, j int) bool {
		return c.Objects[i].Position().Offset < c.Objects[j].Position().Offset
	})
	return c, nil
}

func (s *Store) readImages(ctx context.Context, id models.NodeID, c *models.Content) error {
	query := fmt.Sprintf(`SELECT offset, justification, anchor, png, %s, %s, %s
		FROM image WHERE node_id = ? ORDER BY offset ASC`,
		s.column("image", "filename", "''"), s.column("image", "link", "''"), s.column("image", "time", "0"))
	rows, err := s.db.QueryContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("query images of node %d: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			offset                         int
			just, anchor, filename, link   sql.NullString
			png                            []byte
			ts                             sql.NullInt64
		)
		if err := rows.Scan(&offset, &just, &anchor, &png, &filename, &link, &ts); err != nil {
			return fmt.Errorf("scan image of node %d: %w", id, err)
		}
		pl := models.Placement{Offset: offset, Justification: models.ParseJustification(just.String)}
		switch {
		case anchor.String != "":
			c.Objects = append(c.Objects, &models.Anchor{Placement: pl, Name: anchor.String})
		case filename.String != "":
			c.Objects = append(c.Objects, &models.EmbeddedFile{
				Placement: pl, FileName: filename.String, Data: png, Time: models.FromUnix(ts.Int64),
			})
		default:
			c.Objects = append(c.Objects, &models.Image{Placement: pl, PNG: png, Link: link.String})
		}
	}
	return rows.Err()
}

func (s *Store) readCodeBoxes(ctx context.Context, id models.NodeID, c *models.Content) error {
	rows, err := s.db.QueryContext(ctx, `SELECT offset, justification, txt, syntax, width, height,
		is_width_pix, do_highl_bra, do_show_linenum
		FROM codebox WHERE node_id = ? ORDER BY offset ASC`, id)
	if err != nil {
		return fmt.Errorf("query codeboxes of node %d: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cb                     models.CodeBox
			just, txt, syntax      sql.NullString
			width, height          sql.NullInt64
			widthPix, brackets, ln sql.NullInt64
		)
		if err := rows.Scan(&cb.Offset, &just, &txt, &syntax, &width, &height,
			&widthPix, &brackets, &ln); err != nil {
			return fmt.Errorf("scan codebox of node %d: %w", id, err)
		}
		cb.Width = int(width.Int64)
		cb.Height = int(height.Int64)
		cb.Justification = models.ParseJustification(just.String)
		cb.Text = txt.String
		cb.Syntax = syntax.String
		cb.WidthInPixels = widthPix.Int64 != 0
		cb.HighlightBrackets = brackets.Int64 != 0
		cb.ShowLineNumbers = ln.Int64 != 0
		c.Objects = append(c.Objects, &cb)
	}
	return rows.Err()
}

func (s *Store) readTables(ctx context.Context, id models.NodeID, c *models.Content) error {
	rows, err := s.db.QueryContext(ctx, `SELECT offset, justification, txt, col_min, col_max
		FROM grid WHERE node_id = ? ORDER BY offset ASC`, id)
	if err != nil {
		return fmt.Errorf("query tables of node %d: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			tbl            models.Table
			just, txt      sql.NullString
			colMin, colMax sql.NullInt64
		)
		if err := rows.Scan(&tbl.Offset, &just, &txt, &colMin, &colMax); err != nil {
			return fmt.Errorf("scan table of node %d: %w", id, err)
		}
		tbl.ColMin = int(colMin.Int64)
		tbl.ColMax = int(colMax.Int64)
		tbl.Justification = models.ParseJustification(just.String)
		if err := markup.DecodeTable(txt.String, &tbl); err != nil {
			return fmt.Errorf("node %d: %w", id, err)
		}
		c.Objects = append(c.Objects, &tbl)
	}
	return rows.Err()
}
