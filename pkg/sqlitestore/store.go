// Package sqlitestore persists a document tree in a single SQLite file with
// one row per node plus side tables for anchored objects. Saves after the
// first only rewrite the rows named by the pending ledger.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

// ErrNotOpen is returned when the store has no open database.
var ErrNotOpen = errors.New("database is not open")

// DefaultRetryDelay is the wait before reopening a broken connection.
const DefaultRetryDelay = 500 * time.Millisecond

type Store struct {
	mu         sync.Mutex
	path       string
	db         *sql.DB
	missing    map[string]bool
	issues     []string
	retryDelay time.Duration
	logger     *logrus.Entry
}

func New(logger *logrus.Entry) *Store {
	if logger == nil {
		logger = logrus.NewEntry(logrus.New())
	}
	return &Store{
		retryDelay: DefaultRetryDelay,
		logger:     logger.WithField("component", "sqlitestore"),
	}
}

// SetRetryDelay overrides DefaultRetryDelay.
func (s *Store) SetRetryDelay(d time.Duration) { s.retryDelay = d }

// Path is the file the store operates on, empty before the first load or save.
func (s *Store) Path() string { return s.path }

func dsn(path string, create bool) string {
	mode := "rw"
	if create {
		mode = "rwc"
	}
	escaped := strings.NewReplacer("%", "%25", "?", "%3f", "#", "%23").Replace(path)
	return fmt.Sprintf("file:%s?mode=%s&_busy_timeout=5000", escaped, mode)
}

// open connects to path. Without create a missing file is an error.
func open(ctx context.Context, path string, create bool) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dsn(path, create))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeLocked()
}

func (s *Store) closeLocked() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Reopen connects again to the file of the last load or save.
func (s *Store) Reopen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reopenLocked(context.Background())
}

func (s *Store) reopenLocked(ctx context.Context) error {
	if s.db != nil {
		return nil
	}
	if s.path == "" {
		return ErrNotOpen
	}
	db, err := open(ctx, s.path, false)
	if err != nil {
		return err
	}
	s.db = db
	return nil
}

// TestConnection verifies the file is still writable. A failing probe is
// retried once after closing, waiting and reopening.
func (s *Store) TestConnection(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.path == "" {
		return nil
	}
	if s.db != nil && s.probe(ctx) == nil {
		return nil
	}
	s.logger.WithField("path", s.path).Debug("Connection test failed, reopening")
	_ = s.closeLocked()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.retryDelay):
	}

	if _, err := os.Stat(s.path); errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s write failed - file is missing", s.path)
	}
	if err := s.reopenLocked(ctx); err != nil {
		return fmt.Errorf("%s write failed - file is missing: %w", s.path, err)
	}
	if err := s.probe(ctx); err != nil {
		return fmt.Errorf("%s write failed - is file blocked by a sync program?: %w", s.path, err)
	}
	s.checkIntegrity(ctx)
	return nil
}

func (s *Store) probe(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS test_table (id)"); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, "DROP TABLE IF EXISTS test_table")
	return err
}

// IntegrityIssues returns the problems reported by the last quick check.
func (s *Store) IntegrityIssues() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.issues...)
}

func (s *Store) checkIntegrity(ctx context.Context) {
	issues, err := quickCheck(ctx, s.db)
	if err != nil {
		issues = []string{err.Error()}
	}
	s.issues = issues
	if len(issues) > 0 {
		s.logger.WithFields(logrus.Fields{
			"path":   s.path,
			"issues": strings.Join(issues, "; "),
		}).Warn("Database integrity check failed")
	}
}

func quickCheck(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx, "PRAGMA quick_check")
	if err != nil {
		return nil, fmt.Errorf("quick check: %w", err)
	}
	defer rows.Close()

	var issues []string
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return nil, fmt.Errorf("quick check: %w", err)
		}
		if line != "ok" {
			issues = append(issues, line)
		}
	}
	return issues, rows.Err()
}

// Vacuum rebuilds the file to reclaim free pages.
func (s *Store) Vacuum(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return ErrNotOpen
	}
	s.logger.Debug("VACUUM")
	for _, stmt := range []string{"VACUUM", "REINDEX"} {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%s: %w", strings.ToLower(stmt), err)
		}
	}
	return nil
}
