package migration

import (
	"context"
	"database/sql"
	"time"
)

// DB is satisfied by *sql.DB and *sql.Tx.
type DB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Column is a column that older documents may lack.
type Column struct {
	Table string
	Name  string
	Decl  string
}

type MigrationIssue struct {
	Type        string
	Description string
	Column      Column
}

type MigrationReport struct {
	TablesChecked int
	ColumnsAdded  int
	IssuesFound   int
	Errors        []string
	StartTime     time.Time
	EndTime       time.Time
}

type MigrationOptions struct {
	DryRun  bool
	Verbose bool
}

func NewMigrationReport() *MigrationReport {
	return &MigrationReport{StartTime: time.Now()}
}

func (r *MigrationReport) AddError(err error) {
	r.Errors = append(r.Errors, err.Error())
}

func (r *MigrationReport) Complete() {
	r.EndTime = time.Now()
}

func (r *MigrationReport) Duration() time.Duration {
	return r.EndTime.Sub(r.StartTime)
}
