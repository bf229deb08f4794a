package pmostandards

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pinggolf/pmo-smartsheet-migrator/internal/logging"
	"github.com/pinggolf/pmo-smartsheet-migrator/internal/model"
	"github.com/pinggolf/pmo-smartsheet-migrator/internal/resiliency"
)

// fakeTarget is a minimal in-memory double satisfying both
// resiliency.TargetAPI and pmostandards.TargetAPI.
type fakeTarget struct {
	workspaces map[int64]*model.Workspace
	children   map[int64][]model.WorkspaceChild
	sheets     map[int64]*model.Sheet
	nextID     int64
	addRowsCalls int
}

func newFakeTarget() *fakeTarget {
	return &fakeTarget{
		workspaces: make(map[int64]*model.Workspace),
		children:   make(map[int64][]model.WorkspaceChild),
		sheets:     make(map[int64]*model.Sheet),
		nextID:     1000,
	}
}

func (f *fakeTarget) newID() int64 { f.nextID++; return f.nextID }

func (f *fakeTarget) ListWorkspaces(ctx context.Context) ([]model.Workspace, error) {
	out := make([]model.Workspace, 0, len(f.workspaces))
	for _, ws := range f.workspaces {
		out = append(out, *ws)
	}
	return out, nil
}

func (f *fakeTarget) CreateWorkspace(ctx context.Context, name string) (*model.Workspace, error) {
	id := f.newID()
	ws := &model.Workspace{ID: id, Name: name}
	f.workspaces[id] = ws
	return ws, nil
}

func (f *fakeTarget) GetWorkspaceChildren(ctx context.Context, workspaceID int64) ([]model.WorkspaceChild, error) {
	return f.children[workspaceID], nil
}

func (f *fakeTarget) GetSheet(ctx context.Context, id int64) (*model.Sheet, error) {
	return f.sheets[id], nil
}

func (f *fakeTarget) CreateSheetInWorkspace(ctx context.Context, workspaceID int64, name string, columns []model.ColumnSpec) (*model.Sheet, error) {
	id := f.newID()
	cols := make([]model.Column, len(columns))
	for i, c := range columns {
		cols[i] = model.Column{ID: f.newID(), Title: c.Title, Type: c.Type, Primary: c.Primary}
	}
	sheet := &model.Sheet{ID: id, Name: name, WorkspaceID: workspaceID, Columns: cols}
	f.sheets[id] = sheet
	f.children[workspaceID] = append(f.children[workspaceID], model.WorkspaceChild{ID: id, Name: name, Kind: model.KindSheet})
	return sheet, nil
}

func (f *fakeTarget) AddColumns(ctx context.Context, sheetID int64, specs []model.ColumnSpec) ([]model.Column, error) {
	cols := make([]model.Column, len(specs))
	for i, s := range specs {
		cols[i] = model.Column{ID: f.newID(), Title: s.Title, Type: s.Type}
	}
	return cols, nil
}

func (f *fakeTarget) DeleteAllRows(ctx context.Context, sheetID int64, rowIDs []int64) error { return nil }
func (f *fakeTarget) RenameWorkspace(ctx context.Context, id int64, newName string) error    { return nil }
func (f *fakeTarget) RenameSheet(ctx context.Context, sheetID int64, newName string) error   { return nil }

func (f *fakeTarget) AddRows(ctx context.Context, sheetID int64, rows []model.Row, columnIDByTitle map[string]int64) ([]model.Row, error) {
	f.addRowsCalls++
	out := make([]model.Row, len(rows))
	for i := range rows {
		out[i] = model.Row{ID: f.newID(), Cells: rows[i].Cells}
	}
	return out, nil
}

func newManager(ft *fakeTarget) *Manager {
	ops := resiliency.New(ft, logging.New(logging.LevelSilent))
	return New(ops, ft, logging.New(logging.LevelSilent), 0)
}

func TestEnsureCreatesWorkspaceAndAllStandardSheets(t *testing.T) {
	ft := newFakeTarget()
	m := newManager(ft)

	err := m.Ensure(context.Background())
	require.NoError(t, err)
	assert.NotZero(t, m.WorkspaceID())
	assert.Len(t, ft.children[m.WorkspaceID()], len(StandardSheets))
}

func TestEnsureSeedsFixedValuesIntoEachStandardSheet(t *testing.T) {
	ft := newFakeTarget()
	m := newManager(ft)
	require.NoError(t, m.Ensure(context.Background()))

	ref, ok := m.SheetRef("Task - Status")
	require.True(t, ok)
	sheet := ft.sheets[ref.SheetID]
	assert.Len(t, sheet.Rows, 3, "Task - Status has 3 fixed values")
}

func TestEnsureIsIdempotentAndUnionMergesWithoutDuplicates(t *testing.T) {
	ft := newFakeTarget()
	m1 := newManager(ft)
	require.NoError(t, m1.Ensure(context.Background()))

	// Simulate a second run against the same backing store, reusing the
	// discovered workspace ID as the spec's PMO_STANDARDS_WORKSPACE_ID would.
	m2 := New(resiliency.New(ft, logging.New(logging.LevelSilent)), ft, logging.New(logging.LevelSilent), m1.WorkspaceID())
	require.NoError(t, m2.Ensure(context.Background()))

	ref, ok := m2.SheetRef("Resource - Type")
	require.True(t, ok)
	sheet := ft.sheets[ref.SheetID]
	assert.Len(t, sheet.Rows, 3, "rerun must not duplicate the fixed Resource - Type values")
}

func TestEnsureDiscoveredSheetCreatesNamespacedSheetAndMerges(t *testing.T) {
	ft := newFakeTarget()
	m := newManager(ft)
	require.NoError(t, m.Ensure(context.Background()))

	sheet, err := m.EnsureDiscoveredSheet(context.Background(), model.EntityKind("Resource"), "Department", []string{"Engineering", "Finance"})
	require.NoError(t, err)
	assert.Equal(t, "Resource - Department", sheet.Name)
	assert.Len(t, sheet.Rows, 2)

	sheet2, err := m.EnsureDiscoveredSheet(context.Background(), model.EntityKind("Resource"), "Department", []string{"Engineering", "Legal"})
	require.NoError(t, err)
	assert.Len(t, sheet2.Rows, 3, "union-merge adds Legal without duplicating Engineering")
}

func TestSheetRefMissingReturnsFalse(t *testing.T) {
	ft := newFakeTarget()
	m := newManager(ft)
	_, ok := m.SheetRef("Nonexistent - Sheet")
	assert.False(t, ok)
}
