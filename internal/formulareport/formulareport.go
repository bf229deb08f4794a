// Package formulareport writes the Formula Fields Report (spec §6/§8): one
// CSV row per source custom field whose type is Formula, which has no live
// equivalent on the target and is therefore surfaced to the operator
// instead of silently dropped. Grounded on the teacher's
// costTracker.exportCSV (internal/agent/app/cost_tracker.go in the
// elephant.ai example), adapted from an in-memory buffer to a file writer
// since this report is written once per run rather than served over HTTP.
package formulareport

import (
	"encoding/csv"
	"fmt"
	"os"
	"sync"
)

// Row is one discovered Formula-type custom field.
type Row struct {
	ProjectID  string
	EntityKind string
	FieldName  string
	Formula    string
}

// Writer accumulates rows in memory and writes them to a CSV file on WriteFile.
// It is safe for concurrent use by orchestrator pipelines running across
// multiple projects.
type Writer struct {
	mu   sync.Mutex
	rows []Row
}

// New returns an empty Writer.
func New() *Writer {
	return &Writer{}
}

// ReportFormulaField implements orchestrator.FormulaFieldReporter.
func (w *Writer) ReportFormulaField(projectID, entityKind, fieldName, formula string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rows = append(w.rows, Row{ProjectID: projectID, EntityKind: entityKind, FieldName: fieldName, Formula: formula})
}

// Rows returns a snapshot of the rows recorded so far.
func (w *Writer) Rows() []Row {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]Row, len(w.rows))
	copy(out, w.rows)
	return out
}

// WriteFile writes every recorded row to path as CSV, header first. When no
// Formula fields were ever discovered it still creates the file, holding
// only the header.
func (w *Writer) WriteFile(path string) error {
	w.mu.Lock()
	rows := make([]Row, len(w.rows))
	copy(rows, w.rows)
	w.mu.Unlock()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create formula fields report %s: %w", path, err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write([]string{"Project ID", "Entity", "Field Name", "Formula"}); err != nil {
		return fmt.Errorf("write formula fields report header: %w", err)
	}
	for _, r := range rows {
		if err := cw.Write([]string{r.ProjectID, r.EntityKind, r.FieldName, r.Formula}); err != nil {
			return fmt.Errorf("write formula fields report row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
