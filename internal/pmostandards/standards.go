// Package pmostandards implements the PMOStandards component from spec
// §4.5: a single tenant-wide workspace named "PMO Standards" holding
// namespaced reference sheets whose values are union-merged (never
// replaced) across runs, serialized per sheet name to tolerate concurrent
// projects discovering the same lookup sheet. Grounded on the teacher's
// shared in-process caching (services/context_cache_worker.go) generalized
// from a read cache to a write-serializing reference-data store.
package pmostandards

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/pinggolf/pmo-smartsheet-migrator/internal/logging"
	"github.com/pinggolf/pmo-smartsheet-migrator/internal/migerr"
	"github.com/pinggolf/pmo-smartsheet-migrator/internal/model"
	"github.com/pinggolf/pmo-smartsheet-migrator/internal/resiliency"
)

// WorkspaceName is the fixed, tenant-wide workspace name.
const WorkspaceName = "PMO Standards"

const nameColumnTitle = "Name"

// StandardSheet describes one of the six fixed reference sheets created
// unconditionally on first run.
type StandardSheet struct {
	Name   string
	Values []string
}

// StandardSheets is the fixed value set from spec §4.5.
var StandardSheets = []StandardSheet{
	{Name: "Project - Status", Values: []string{"Active", "Planning", "Completed", "On Hold", "Cancelled"}},
	{Name: "Project - Priority", Values: []string{"Lowest", "Very Low", "Lower", "Medium", "Higher", "Very High", "Highest"}},
	{Name: "Task - Status", Values: []string{"Not Started", "In Progress", "Complete"}},
	{Name: "Task - Priority", Values: []string{"Lowest", "Very Low", "Lower", "Medium", "Higher", "Very High", "Highest"}},
	{Name: "Task - Constraint Type", Values: []string{"ASAP", "ALAP", "SNET", "SNLT", "FNET", "FNLT", "MSO", "MFO"}},
	{Name: "Resource - Type", Values: []string{"Work", "Material", "Cost"}},
}

// TargetAPI is the subset of the target client PMOStandards depends on,
// beyond what ResiliencyOps already wraps.
type TargetAPI interface {
	AddRows(ctx context.Context, sheetID int64, rows []model.Row, columnIDByTitle map[string]int64) ([]model.Row, error)
	GetWorkspaceChildren(ctx context.Context, workspaceID int64) ([]model.WorkspaceChild, error)
}

// Manager ensures the PMO Standards workspace and its reference sheets
// exist, with union-merge semantics on rerun.
type Manager struct {
	ops          *resiliency.Ops
	target       TargetAPI
	log          *logging.Logger
	workspaceID  int64
	mu           sync.Mutex // guards sheetsByName and discovered-sheet merges
	sheetsByName map[string]*model.Sheet
}

// New builds a Manager. workspaceID, when non-zero, is a pre-provisioned
// workspace ID (spec §6's PMO_STANDARDS_WORKSPACE_ID); zero means the
// workspace must be created on first Ensure call.
func New(ops *resiliency.Ops, target TargetAPI, log *logging.Logger, workspaceID int64) *Manager {
	return &Manager{
		ops:          ops,
		target:       target,
		log:          log,
		workspaceID:  workspaceID,
		sheetsByName: make(map[string]*model.Sheet),
	}
}

// Ensure provisions the PMO Standards workspace and its six fixed
// reference sheets, union-merging fixed values into any that already
// exist. Safe to call once per run regardless of project concurrency: the
// caller is expected to invoke it exactly once before any project pipeline
// starts (spec §4.7 stage 1).
func (m *Manager) Ensure(ctx context.Context) error {
	if m.workspaceID == 0 {
		ws, err := m.ops.GetOrCreateWorkspace(ctx, WorkspaceName)
		if err != nil {
			if kind, ok := migerr.KindOf(err); ok && kind == migerr.KindPermission {
				return migerr.Permission(fmt.Sprintf("owner access required on %q workspace", WorkspaceName), err)
			}
			return err
		}
		m.workspaceID = ws.ID
	}

	for _, std := range StandardSheets {
		if err := m.ensureStandardSheet(ctx, std); err != nil {
			return err
		}
	}

	m.log.Done("PMO Standards workspace ready (id=%d)", m.workspaceID)
	return nil
}

func (m *Manager) ensureStandardSheet(ctx context.Context, std StandardSheet) error {
	sheet, err := m.ops.GetOrCreateSheet(ctx, m.workspaceID, std.Name, []model.ColumnSpec{
		{Title: nameColumnTitle, Type: model.ColumnTextNumber, Primary: true, Index: 0},
	})
	if err != nil {
		return err
	}

	if err := m.unionMergeValues(ctx, sheet, std.Values); err != nil {
		return err
	}
	m.sheetsByName[std.Name] = sheet
	return nil
}

// unionMergeValues appends any values not already present as a row, never
// removing or replacing existing rows, per spec §4.5.
func (m *Manager) unionMergeValues(ctx context.Context, sheet *model.Sheet, values []string) error {
	existing := map[string]struct{}{}
	for _, row := range sheet.Rows {
		for _, cell := range row.Cells {
			if s, ok := cell.Value.(string); ok {
				existing[s] = struct{}{}
			}
		}
	}

	var missing []string
	for _, v := range values {
		if _, ok := existing[v]; !ok {
			missing = append(missing, v)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)

	col := sheet.ColumnByTitle(nameColumnTitle)
	if col == nil {
		return migerr.Data(fmt.Sprintf("sheet %q is missing its Name column", sheet.Name), nil)
	}

	rows := make([]model.Row, len(missing))
	for i, v := range missing {
		rows[i] = model.Row{Cells: []model.Cell{{ColumnID: nameColumnTitle, Value: v}}}
	}

	newRows, err := m.target.AddRows(ctx, sheet.ID, rows, map[string]int64{nameColumnTitle: col.ID})
	if err != nil {
		return err
	}
	for i, r := range newRows {
		sheet.Rows = append(sheet.Rows, model.Row{ID: r.ID, Cells: []model.Cell{{ColumnID: nameColumnTitle, Value: missing[i]}}})
	}
	m.log.Debugf("union-merged %d new values into %q", len(missing), sheet.Name)
	return nil
}

// EnsureDiscoveredSheet ensures a namespaced lookup sheet exists for a
// discovered field (e.g. "Resource - Department", a custom lookup),
// seeding it with the given values and union-merging on rerun.
func (m *Manager) EnsureDiscoveredSheet(ctx context.Context, kind model.EntityKind, fieldLabel string, values []string) (*model.Sheet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	name := fmt.Sprintf("%s - %s", kind, fieldLabel)
	if sheet, ok := m.sheetsByName[name]; ok {
		if err := m.unionMergeValues(ctx, sheet, values); err != nil {
			return nil, err
		}
		return sheet, nil
	}

	sheet, err := m.ops.GetOrCreateSheet(ctx, m.workspaceID, name, []model.ColumnSpec{
		{Title: nameColumnTitle, Type: model.ColumnTextNumber, Primary: true, Index: 0},
	})
	if err != nil {
		return nil, err
	}
	if err := m.unionMergeValues(ctx, sheet, values); err != nil {
		return nil, err
	}
	m.sheetsByName[name] = sheet
	return sheet, nil
}

// SheetRef returns the (sheetID, columnID) reference for a standard or
// discovered sheet's Name column, used by the Orchestrator to anchor
// picklist columns per spec §4.7 stage 10.
func (m *Manager) SheetRef(name string) (*model.SourceSheetRef, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sheet, ok := m.sheetsByName[name]
	if !ok {
		return nil, false
	}
	col := sheet.ColumnByTitle(nameColumnTitle)
	if col == nil {
		return nil, false
	}
	return &model.SourceSheetRef{SheetID: sheet.ID, ColumnID: col.ID}, true
}

// WorkspaceID returns the PMO Standards workspace's ID, valid after Ensure.
func (m *Manager) WorkspaceID() int64 { return m.workspaceID }
