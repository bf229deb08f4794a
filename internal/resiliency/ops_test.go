package resiliency

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pinggolf/pmo-smartsheet-migrator/internal/logging"
	"github.com/pinggolf/pmo-smartsheet-migrator/internal/model"
)

// fakeTarget is an in-memory TargetAPI double used to verify ResiliencyOps
// call counts without touching the network.
type fakeTarget struct {
	workspaces      map[int64]*model.Workspace
	children        map[int64][]model.WorkspaceChild
	sheets          map[int64]*model.Sheet
	nextID          int64
	createSheetCalls int
	addColumnsCalls int
}

func newFakeTarget() *fakeTarget {
	return &fakeTarget{
		workspaces: make(map[int64]*model.Workspace),
		children:   make(map[int64][]model.WorkspaceChild),
		sheets:     make(map[int64]*model.Sheet),
		nextID:     1000,
	}
}

func (f *fakeTarget) newID() int64 {
	f.nextID++
	return f.nextID
}

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
	f.createSheetCalls++
	id := f.newID()
	cols := make([]model.Column, len(columns))
	for i, c := range columns {
		cols[i] = model.Column{ID: f.newID(), Title: c.Title, Type: c.Type}
	}
	sheet := &model.Sheet{ID: id, Name: name, WorkspaceID: workspaceID, Columns: cols}
	f.sheets[id] = sheet
	f.children[workspaceID] = append(f.children[workspaceID], model.WorkspaceChild{ID: id, Name: name, Kind: model.KindSheet})
	return sheet, nil
}

func (f *fakeTarget) AddColumns(ctx context.Context, sheetID int64, specs []model.ColumnSpec) ([]model.Column, error) {
	f.addColumnsCalls++
	cols := make([]model.Column, len(specs))
	for i, s := range specs {
		cols[i] = model.Column{ID: f.newID(), Title: s.Title, Type: s.Type}
	}
	return cols, nil
}

func (f *fakeTarget) DeleteAllRows(ctx context.Context, sheetID int64, rowIDs []int64) error { return nil }
func (f *fakeTarget) RenameWorkspace(ctx context.Context, id int64, newName string) error    { return nil }
func (f *fakeTarget) RenameSheet(ctx context.Context, sheetID int64, newName string) error   { return nil }

func TestGetOrCreateWorkspaceCreatesOnceThenReuses(t *testing.T) {
	ft := newFakeTarget()
	ops := New(ft, logging.New(logging.LevelSilent))

	ws1, err := ops.GetOrCreateWorkspace(context.Background(), "Website Revamp")
	require.NoError(t, err)
	require.NotNil(t, ws1)
	assert.Len(t, ft.workspaces, 1)

	ws2, err := ops.GetOrCreateWorkspace(context.Background(), "Website Revamp")
	require.NoError(t, err)
	assert.Equal(t, ws1.ID, ws2.ID)
	assert.Len(t, ft.workspaces, 1, "a second call for the same workspace name must not create a duplicate")
}

func TestGetOrCreateSheetCreatesOnceThenReuses(t *testing.T) {
	ft := newFakeTarget()
	ops := New(ft, logging.New(logging.LevelSilent))

	s1, err := ops.GetOrCreateSheet(context.Background(), 1, "Tasks", []model.ColumnSpec{{Title: "Task Name", Index: -1}})
	require.NoError(t, err)
	require.NotNil(t, s1)
	assert.Equal(t, 1, ft.createSheetCalls)

	s2, err := ops.GetOrCreateSheet(context.Background(), 1, "Tasks", []model.ColumnSpec{{Title: "Task Name", Index: -1}})
	require.NoError(t, err)
	assert.Equal(t, s1.ID, s2.ID)
	assert.Equal(t, 1, ft.createSheetCalls, "a second call for the same sheet name must not create again")
}

func TestAddColumnsIfNotExistSkipsExistingAndBatchesMissing(t *testing.T) {
	ft := newFakeTarget()
	ops := New(ft, logging.New(logging.LevelSilent))

	sheet := &model.Sheet{ID: 1, Columns: []model.Column{{ID: 1, Title: "Task Name"}}}
	specs := []model.ColumnSpec{
		{Title: "Task Name", Index: -1},
		{Title: "Owner", Index: -1},
		{Title: "Priority", Index: -1},
	}

	added, err := ops.AddColumnsIfNotExist(context.Background(), sheet, specs)
	require.NoError(t, err)
	assert.Len(t, added, 2, "only the two missing columns should be added")
	assert.Equal(t, 1, ft.addColumnsCalls, "adding multiple missing columns must be a single batch call")
	assert.Len(t, sheet.Columns, 3)
}

func TestAddColumnsIfNotExistNoopWhenAllPresent(t *testing.T) {
	ft := newFakeTarget()
	ops := New(ft, logging.New(logging.LevelSilent))

	sheet := &model.Sheet{ID: 1, Columns: []model.Column{{ID: 1, Title: "Task Name"}}}
	added, err := ops.AddColumnsIfNotExist(context.Background(), sheet, []model.ColumnSpec{{Title: "Task Name", Index: -1}})
	require.NoError(t, err)
	assert.Nil(t, added)
	assert.Equal(t, 0, ft.addColumnsCalls)
}

func TestFindSheetByPartialNameMatchesNamespacePrefix(t *testing.T) {
	ft := newFakeTarget()
	ft.children[1] = []model.WorkspaceChild{
		{ID: 10, Name: "Task - Phase", Kind: model.KindSheet},
		{ID: 11, Name: "Unrelated", Kind: model.KindSheet},
	}
	ops := New(ft, logging.New(logging.LevelSilent))

	found, err := ops.FindSheetByPartialName(context.Background(), 1, "Task - ")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, int64(10), found.ID)
}
