// Package migration upgrades relational documents written by older versions.
package migration

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

type Migrator struct {
	db       DB
	options  MigrationOptions
	analyzer *Analyzer
	report   *MigrationReport
	output   io.Writer
	logger   *logrus.Entry
}

func NewMigrator(db DB, options MigrationOptions, output io.Writer, logger *logrus.Entry) *Migrator {
	if logger == nil {
		logger = logrus.NewEntry(logrus.New()) // Fallback to a null logger
	}
	if output == nil {
		output = io.Discard
	}
	return &Migrator{
		db:       db,
		options:  options,
		analyzer: NewAnalyzer(db),
		report:   NewMigrationReport(),
		output:   output,
		logger:   logger.WithField("sub-component", "migrator"),
	}
}

// Run adds every missing column.
func (m *Migrator) Run(ctx context.Context) error {
	defer m.report.Complete()

	issues, tables, err := m.analyzer.Analyze(ctx)
	if err != nil {
		m.report.AddError(err)
		return err
	}
	m.report.TablesChecked = tables
	m.report.IssuesFound = len(issues)

	if len(issues) == 0 {
		m.logger.Debug("Schema is up to date, skipping.")
		return nil
	}

	for _, issue := range issues {
		if m.options.Verbose {
			fmt.Fprintf(m.output, "  - %s: %s\n", issue.Type, issue.Description)
		}
		if m.options.DryRun {
			continue
		}
		col := issue.Column
		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", col.Table, col.Name, col.Decl)
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			err = fmt.Errorf("add column %s.%s: %w", col.Table, col.Name, err)
			m.report.AddError(err)
			return err
		}
		m.report.ColumnsAdded++
		m.logger.WithField("column", col.Table+"."+col.Name).Info("Added missing column")
	}
	return nil
}

func (m *Migrator) GetReport() *MigrationReport {
	return m.report
}
