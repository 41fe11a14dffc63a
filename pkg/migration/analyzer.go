package migration

import (
	"context"
	"fmt"
)

// RequiredColumns lists the columns added after the first relational format.
// Documents written before them get the columns added with these defaults.
var RequiredColumns = []Column{
	{Table: "node", Name: "ts_creation", Decl: "INTEGER DEFAULT 0"},
	{Table: "node", Name: "ts_lastsave", Decl: "INTEGER DEFAULT 0"},
	{Table: "image", Name: "filename", Decl: "TEXT DEFAULT ''"},
	{Table: "image", Name: "link", Decl: "TEXT DEFAULT ''"},
	{Table: "image", Name: "time", Decl: "INTEGER DEFAULT 0"},
}

type Analyzer struct {
	db DB
}

func NewAnalyzer(db DB) *Analyzer {
	return &Analyzer{db: db}
}

// Columns returns the column names of table.
func (a *Analyzer) Columns(ctx context.Context, table string) (map[string]bool, error) {
	rows, err := a.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, fmt.Errorf("read table info of %s: %w", table, err)
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notNull int
			dflt    any
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("scan table info of %s: %w", table, err)
		}
		cols[name] = true
	}
	return cols, rows.Err()
}

// Analyze reports every required column missing from an existing table.
// Tables that do not exist at all are not reported.
func (a *Analyzer) Analyze(ctx context.Context) ([]MigrationIssue, int, error) {
	var issues []MigrationIssue
	known := make(map[string]map[string]bool)
	for _, col := range RequiredColumns {
		cols, ok := known[col.Table]
		if !ok {
			var err error
			cols, err = a.Columns(ctx, col.Table)
			if err != nil {
				return nil, 0, err
			}
			known[col.Table] = cols
		}
		if len(cols) == 0 || cols[col.Name] {
			continue
		}
		issues = append(issues, MigrationIssue{
			Type:        "missing_column",
			Description: fmt.Sprintf("column %s.%s is missing", col.Table, col.Name),
			Column:      col,
		})
	}
	return issues, len(known), nil
}

// Missing is Analyze reduced to a set keyed "table.column".
func (a *Analyzer) Missing(ctx context.Context) (map[string]bool, error) {
	issues, _, err := a.Analyze(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(issues))
	for _, is := range issues {
		out[is.Column.Table+"."+is.Column.Name] = true
	}
	return out, nil
}
