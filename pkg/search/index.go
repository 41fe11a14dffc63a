package search

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/grovetools/treenote/pkg/models"
	"github.com/grovetools/treenote/pkg/tree"
)

// Index is an in-memory full-text index over the nodes of one document.
type Index struct {
	db     *sql.DB
	useFTS bool
}

// Hit is one matching node.
type Hit struct {
	ID      models.NodeID `json:"id"`
	Name    string        `json:"name"`
	Snippet string        `json:"snippet,omitempty"`
}

// NewIndex creates an empty index
func NewIndex() (*Index, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, err
	}
	// every connection to :memory: is a separate database
	db.SetMaxOpenConns(1)

	idx := &Index{db: db}
	if err := idx.init(); err != nil {
		db.Close()
		return nil, err
	}

	return idx, nil
}

// init creates the database schema
func (idx *Index) init() error {
	// First, check if FTS5 is available
	idx.useFTS = idx.checkFTS5Support()

	metaSchema := `
	CREATE TABLE IF NOT EXISTS nodes_meta (
		id INTEGER PRIMARY KEY,
		name TEXT,
		tags TEXT,
		syntax TEXT,
		content TEXT,
		modified_at TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_nodes_meta_name ON nodes_meta(name);
	`

	if _, err := idx.db.Exec(metaSchema); err != nil {
		return fmt.Errorf("create search schema: %w", err)
	}

	if idx.useFTS {
		ftsSchema := `
		CREATE VIRTUAL TABLE IF NOT EXISTS nodes_fts USING fts5(
			id UNINDEXED,
			name,
			tags,
			content,
			tokenize = 'porter unicode61'
		);
		`

		if _, err := idx.db.Exec(ftsSchema); err != nil {
			// If FTS creation fails, disable FTS and continue
			idx.useFTS = false
		}
	}

	return nil
}

// checkFTS5Support checks if FTS5 module is available
func (idx *Index) checkFTS5Support() bool {
	_, err := idx.db.Exec("CREATE VIRTUAL TABLE IF NOT EXISTS fts5_test USING fts5(content)")
	if err != nil {
		return false
	}

	_, _ = idx.db.Exec("DROP TABLE IF EXISTS fts5_test")
	return true
}

// IndexTree indexes every searchable node of t. Nodes flagged to be
// excluded from search are skipped, and so are all descendants of nodes
// whose children are excluded. Content is materialized as needed.
func (idx *Index) IndexTree(t *tree.Tree) (int, error) {
	count := 0
	var visit func(nodes []*tree.Node) error
	visit = func(nodes []*tree.Node) error {
		for _, n := range nodes {
			props := n.Properties()
			if !props.ExcludeFromSearch {
				if err := idx.IndexNode(n); err != nil {
					return err
				}
				count++
			}
			if props.ExcludeChildrenFromSearch {
				continue
			}
			if err := visit(n.Children()); err != nil {
				return err
			}
		}
		return nil
	}
	if err := visit(t.Roots()); err != nil {
		return count, err
	}
	return count, nil
}

// IndexNode indexes or reindexes a node
func (idx *Index) IndexNode(n *tree.Node) error {
	content, err := n.Content()
	if err != nil {
		return err
	}
	props := n.Properties()

	tx, err := idx.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := removeNode(tx, n.ID(), idx.useFTS); err != nil {
		return err
	}

	if idx.useFTS {
		_, err = tx.Exec(`
			INSERT INTO nodes_fts (id, name, tags, content)
			VALUES (?, ?, ?, ?)
		`, int64(n.ID()), props.Name, props.Tags, content.Text())
		if err != nil {
			return err
		}
	}

	_, err = tx.Exec(`
		INSERT INTO nodes_meta (id, name, tags, syntax, content, modified_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, int64(n.ID()), props.Name, props.Tags, props.Syntax, content.Text(), props.ModifiedAt)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// Options for searching
type Options struct {
	// Tag restricts the search to nodes carrying this tag.
	Tag   string
	Limit int
}

// Search returns the nodes whose name, tags or text contain every word of
// query.
func (idx *Index) Search(query string, opts *Options) ([]Hit, error) {
	if opts == nil {
		opts = &Options{Limit: 50}
	}
	if opts.Limit == 0 {
		opts.Limit = 50
	}
	terms := strings.Fields(query)
	if len(terms) == 0 {
		return nil, nil
	}

	if idx.useFTS {
		return idx.searchWithFTS(terms, opts)
	}
	return idx.searchWithoutFTS(terms, opts)
}

func tagCondition(column string, opts *Options, conditions []string, args []any) ([]string, []any) {
	if opts.Tag == "" {
		return conditions, args
	}
	conditions = append(conditions, "(' ' || "+column+" || ' ') LIKE ?")
	return conditions, append(args, "% "+opts.Tag+" %")
}

// ftsQuery quotes every term so that user input never reads as FTS syntax.
func ftsQuery(terms []string) string {
	quoted := make([]string, len(terms))
	for i, t := range terms {
		quoted[i] = `"` + strings.ReplaceAll(t, `"`, `""`) + `"`
	}
	return strings.Join(quoted, " ")
}

// searchWithFTS performs search using FTS5
func (idx *Index) searchWithFTS(terms []string, opts *Options) ([]Hit, error) {
	conditions := []string{"nodes_fts MATCH ?"}
	args := []any{ftsQuery(terms)}
	conditions, args = tagCondition("m.tags", opts, conditions, args)

	searchQuery := fmt.Sprintf(`
		SELECT
			m.id, m.name,
			snippet(nodes_fts, 3, '[', ']', '...', 12) as snippet
		FROM nodes_fts f
		JOIN nodes_meta m ON f.id = m.id
		WHERE %s
		ORDER BY rank
		LIMIT ?
	`, strings.Join(conditions, " AND "))

	args = append(args, opts.Limit)

	rows, err := idx.db.Query(searchQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer rows.Close()

	var results []Hit
	for rows.Next() {
		var h Hit
		if err := rows.Scan(&h.ID, &h.Name, &h.Snippet); err != nil {
			return nil, err
		}
		results = append(results, h)
	}

	return results, rows.Err()
}

// searchWithoutFTS performs search using LIKE queries on metadata table
func (idx *Index) searchWithoutFTS(terms []string, opts *Options) ([]Hit, error) {
	var conditions []string
	var args []any
	for _, t := range terms {
		pattern := "%" + t + "%"
		conditions = append(conditions, "(name LIKE ? OR tags LIKE ? OR content LIKE ?)")
		args = append(args, pattern, pattern, pattern)
	}
	conditions, args = tagCondition("tags", opts, conditions, args)

	searchQuery := fmt.Sprintf(`
		SELECT id, name, content
		FROM nodes_meta
		WHERE %s
		ORDER BY modified_at DESC, id
		LIMIT ?
	`, strings.Join(conditions, " AND "))

	args = append(args, opts.Limit)

	rows, err := idx.db.Query(searchQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer rows.Close()

	var results []Hit
	for rows.Next() {
		var h Hit
		var content string
		if err := rows.Scan(&h.ID, &h.Name, &content); err != nil {
			return nil, err
		}
		h.Snippet = snippet(content, terms[0], 40)
		results = append(results, h)
	}

	return results, rows.Err()
}

// snippet cuts the text around the first case-insensitive occurrence of term.
func snippet(text, term string, radius int) string {
	runes := []rune(text)
	lower := []rune(strings.ToLower(text))
	needle := []rune(strings.ToLower(term))
	at := -1
	if len(lower) == len(runes) {
		for i := 0; i+len(needle) <= len(lower); i++ {
			if string(lower[i:i+len(needle)]) == string(needle) {
				at = i
				break
			}
		}
	}
	if at < 0 {
		at = 0
		needle = nil
	}

	start, end := at-radius, at+len(needle)+radius
	prefix, suffix := "...", "..."
	if start <= 0 {
		start, prefix = 0, ""
	}
	if end >= len(runes) {
		end, suffix = len(runes), ""
	}
	out := string(runes[start:at])
	if needle != nil {
		out += "[" + string(runes[at:at+len(needle)]) + "]"
	}
	out += string(runes[at+len(needle) : end])
	return prefix + strings.Join(strings.Fields(out), " ") + suffix
}

// RemoveNode drops a node from the index
func (idx *Index) RemoveNode(id models.NodeID) error {
	tx, err := idx.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := removeNode(tx, id, idx.useFTS); err != nil {
		return err
	}
	return tx.Commit()
}

func removeNode(tx *sql.Tx, id models.NodeID, fts bool) error {
	if fts {
		if _, err := tx.Exec("DELETE FROM nodes_fts WHERE id = ?", int64(id)); err != nil {
			return err
		}
	}
	_, err := tx.Exec("DELETE FROM nodes_meta WHERE id = ?", int64(id))
	return err
}

// Close closes the index
func (idx *Index) Close() error {
	return idx.db.Close()
}
