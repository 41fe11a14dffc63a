package recent

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/grovetools/treenote/pkg/models"
)

// Registry stores the recent list in a small SQLite database
type Registry struct {
	db      *sql.DB
	dataDir string
	limit   int
}

// NewRegistry opens the registry in dataDir, keeping at most limit entries
// (DefaultLimit when limit is not positive).
func NewRegistry(dataDir string, limit int) (*Registry, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	dbPath := filepath.Join(dataDir, "recent.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	r := &Registry{
		db:      db,
		dataDir: dataDir,
		limit:   limit,
	}

	if err := r.init(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize registry: %w", err)
	}

	return r, nil
}

// init creates the database schema
func (r *Registry) init() error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		path TEXT PRIMARY KEY,
		format TEXT NOT NULL,
		encrypted BOOLEAN NOT NULL DEFAULT 0,
		last_node INTEGER NOT NULL DEFAULT 0,
		open_count INTEGER NOT NULL DEFAULT 0,
		first_seen TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		last_used TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_documents_last_used ON documents(last_used);
	`

	_, err := r.db.Exec(schema)
	return err
}

// Touch records that d was opened now. An existing entry keeps its first
// seen time and open count, and keeps its last node when d has none.
func (r *Registry) Touch(d *Document) error {
	if err := d.Validate(); err != nil {
		return fmt.Errorf("validate document: %w", err)
	}

	query := `
	INSERT INTO documents (path, format, encrypted, last_node, open_count, first_seen, last_used)
	VALUES (?, ?, ?, ?, 1, ?, ?)
	ON CONFLICT(path) DO UPDATE SET
		format = excluded.format,
		encrypted = excluded.encrypted,
		last_node = CASE WHEN excluded.last_node <> 0 THEN excluded.last_node ELSE documents.last_node END,
		open_count = documents.open_count + 1,
		last_used = excluded.last_used
	`

	now := time.Now()
	if _, err := r.db.Exec(query, d.Path, d.Format, d.Encrypted, int64(d.LastNode), now, now); err != nil {
		return err
	}
	return r.Prune(r.limit)
}

// Get retrieves the entry of path
func (r *Registry) Get(path string) (*Document, error) {
	query := `
	SELECT path, format, encrypted, last_node, open_count, first_seen, last_used
	FROM documents WHERE path = ?
	`

	d, err := scanDocument(r.db.QueryRow(query, path))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return d, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(s scanner) (*Document, error) {
	d := &Document{}
	var lastNode int64
	err := s.Scan(&d.Path, &d.Format, &d.Encrypted, &lastNode, &d.OpenCount, &d.FirstSeen, &d.LastUsed)
	if err != nil {
		return nil, err
	}
	d.LastNode = models.NodeID(lastNode)
	return d, nil
}

// List returns the entries, most recently used first
func (r *Registry) List() ([]*Document, error) {
	query := `
	SELECT path, format, encrypted, last_node, open_count, first_seen, last_used
	FROM documents ORDER BY last_used DESC, path
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}

	return docs, rows.Err()
}

// Prune drops all but the keep most recently used entries
func (r *Registry) Prune(keep int) error {
	_, err := r.db.Exec(`
	DELETE FROM documents WHERE path NOT IN (
		SELECT path FROM documents ORDER BY last_used DESC, path LIMIT ?
	)`, keep)
	return err
}

// Remove removes a document from the registry
func (r *Registry) Remove(path string) error {
	_, err := r.db.Exec("DELETE FROM documents WHERE path = ?", path)
	return err
}

// Close closes the registry database
func (r *Registry) Close() error {
	return r.db.Close()
}
