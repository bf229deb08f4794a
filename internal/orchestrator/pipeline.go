package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/pinggolf/pmo-smartsheet-migrator/internal/migerr"
	"github.com/pinggolf/pmo-smartsheet-migrator/internal/model"
	"github.com/pinggolf/pmo-smartsheet-migrator/internal/progress"
	"github.com/pinggolf/pmo-smartsheet-migrator/internal/resiliency"
	"github.com/pinggolf/pmo-smartsheet-migrator/internal/transform"
)

const (
	tasksSheetName     = "Tasks"
	resourcesSheetName = "Resources"
	summarySheetName   = "Summary"
)

// runProject executes the ten-stage pipeline from spec §4.7 for a single
// project and always returns a ProjectResult; it never panics or returns an
// error the caller must unwrap, so a single project's failure can't take
// down its siblings in Orchestrator.Run's fan-out.
func (o *Orchestrator) runProject(ctx context.Context, project *model.Project) (result ProjectResult) {
	result = ProjectResult{ProjectID: project.ID, ProjectName: project.Name}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if o.progress != nil {
		_ = o.progress.CancelWatcher(ctx, project.ID, cancel)
	}

	if o.store != nil {
		if err := o.store.CreateProject(ctx, project.ID, o.cfg.RunID, project.ID, project.Name); err != nil {
			o.log.Warnf("persist project %s state: %v", project.ID, err)
		}
	}

	p := &projectPipeline{o: o, project: project, runID: o.cfg.RunID}

	stages := []func(context.Context) error{
		p.extract,
		p.prepare,
		p.loadResources,
		p.loadTasks,
		p.loadSummary,
		p.configure,
	}
	var err error
	for _, stage := range stages {
		if err = stage(ctx); err != nil {
			break
		}
	}

	result.WorkspaceID = p.workspaceID
	result.TasksLoaded = len(p.hierarchy)
	result.ResLoaded = len(p.resources)

	switch {
	case ctx.Err() != nil:
		result.Cancelled = true
		o.publish(project.ID, progress.StageCancelled, result.TasksLoaded, len(p.hierarchy), "cancelled")
		o.finishStore(ctx, project.ID, func(s StateStore) error {
			return s.CancelProject(ctx, project.ID, "context cancelled")
		})
	case err != nil:
		result.Err = err
		o.publish(project.ID, progress.StageFailed, result.TasksLoaded, len(p.hierarchy), migerr.Summary(err))
		o.finishStore(ctx, project.ID, func(s StateStore) error {
			return s.FailProject(ctx, project.ID, err.Error())
		})
	default:
		o.publish(project.ID, progress.StageDone, result.TasksLoaded, len(p.hierarchy), "")
		o.finishStore(ctx, project.ID, func(s StateStore) error {
			return s.CompleteProject(ctx, project.ID)
		})
	}
	return result
}

func (o *Orchestrator) publish(projectID string, stage progress.Stage, completed, total int, message string) {
	if o.progress != nil {
		o.progress.Publish(projectID, stage, completed, total, message)
	}
	if o.store != nil {
		_ = o.store.UpdateProjectStage(context.Background(), projectID, string(stage))
	}
}

func (o *Orchestrator) finishStore(ctx context.Context, projectID string, fn func(StateStore) error) {
	if o.store == nil {
		return
	}
	if err := fn(o.store); err != nil {
		o.log.Warnf("persist terminal state for project %s: %v", projectID, err)
	}
}

// projectPipeline carries per-project intermediate state across stages.
type projectPipeline struct {
	o       *Orchestrator
	project *model.Project
	runID   string

	tasks        []model.Task
	resources    []model.Resource
	assignments  []model.Assignment
	taskFields   []model.CustomField
	resFields    []model.CustomField

	workspaceID  int64
	tasksSheet   *model.Sheet
	resSheet     *model.Sheet
	summarySheet *model.Sheet
	hierarchy    []transform.HierarchyNode
}

// extract is pipeline stage 2: pull tasks/resources/assignments/custom
// field schemas for this project from the source tenant.
func (p *projectPipeline) extract(ctx context.Context) error {
	p.o.publish(p.project.ID, progress.StageExtracting, 0, 0, "extracting")

	for t, err := range p.o.source.ListTasks(ctx, p.project.ID) {
		if err != nil {
			return fmt.Errorf("extract tasks for project %s: %w", p.project.ID, err)
		}
		p.tasks = append(p.tasks, *t)
	}
	for r, err := range p.o.source.ListResources(ctx) {
		if err != nil {
			return fmt.Errorf("extract resources for project %s: %w", p.project.ID, err)
		}
		p.resources = append(p.resources, *r)
	}
	for a, err := range p.o.source.ListAssignments(ctx, p.project.ID) {
		if err != nil {
			return fmt.Errorf("extract assignments for project %s: %w", p.project.ID, err)
		}
		p.assignments = append(p.assignments, *a)
	}

	var err error
	p.taskFields, err = p.o.source.GetCustomFieldSchema(ctx, model.EntityTask)
	if err != nil {
		return fmt.Errorf("extract task custom field schema: %w", err)
	}
	p.resFields, err = p.o.source.GetCustomFieldSchema(ctx, model.EntityResource)
	if err != nil {
		return fmt.Errorf("extract resource custom field schema: %w", err)
	}

	p.hierarchy = transform.ReconstructHierarchy(p.tasks)
	return nil
}

// prepare is pipeline stages 3-6: sanitize the workspace name,
// get-or-create the workspace, get-or-create the three sheets, and
// reconcile each sheet's dynamic (custom-field) columns.
func (p *projectPipeline) prepare(ctx context.Context) error {
	p.o.publish(p.project.ID, progress.StagePreparing, 0, 0, "preparing workspace")

	ops := p.o.standardsOps()
	name := transform.SanitizeName(p.project.Name)
	ws, err := ops.GetOrCreateWorkspace(ctx, name)
	if err != nil {
		return fmt.Errorf("get-or-create workspace for %s: %w", p.project.Name, err)
	}
	p.workspaceID = ws.ID
	if p.o.store != nil {
		_ = p.o.store.SetProjectWorkspace(ctx, p.project.ID, ws.ID)
	}

	prefix := transform.ProjectPrefix(p.project.Name)

	p.tasksSheet, err = ops.GetOrCreateSheet(ctx, ws.ID, tasksSheetName, transform.TaskBaseColumns(prefix))
	if err != nil {
		return fmt.Errorf("get-or-create Tasks sheet: %w", err)
	}
	p.resSheet, err = ops.GetOrCreateSheet(ctx, ws.ID, resourcesSheetName, transform.ResourceBaseColumns(prefix))
	if err != nil {
		return fmt.Errorf("get-or-create Resources sheet: %w", err)
	}
	p.summarySheet, err = ops.GetOrCreateSheet(ctx, ws.ID, summarySheetName, transform.SummaryColumns())
	if err != nil {
		return fmt.Errorf("get-or-create Summary sheet: %w", err)
	}

	taskCustomFields := transform.NonEmptyCustomFields(
		transform.DiscoverCustomFields(p.taskFields),
		valuesPerTask(p.tasks),
	)
	for _, f := range taskCustomFields {
		if f.FieldType == model.FieldTypeFormula && p.o.reporter != nil {
			p.o.reporter.ReportFormulaField(p.project.ID, string(model.EntityTask), transform.CustomFieldColumnTitle(f), f.Formula)
		}
		if f.FieldType == model.FieldTypeFormula && p.o.store != nil {
			_ = p.o.store.RecordFormulaField(ctx, p.runID, p.project.ID, string(model.EntityTask), transform.CustomFieldColumnTitle(f), f.Formula)
		}
	}
	taskSpecs := make([]model.ColumnSpec, 0, len(taskCustomFields))
	for _, f := range taskCustomFields {
		if f.FieldType == model.FieldTypeFormula {
			continue // formulas have no live equivalent on the target; reported, not migrated
		}
		taskSpecs = append(taskSpecs, transform.CustomFieldColumnSpec(f))
	}

	resourceByID := make(map[string]model.Resource, len(p.resources))
	for _, r := range p.resources {
		resourceByID[r.ID] = r
	}
	taskSpecs = append(taskSpecs, assignmentColumnSpecsFor(p.assignments, resourceByID)...)

	if _, err := ops.AddColumnsIfNotExist(ctx, p.tasksSheet, taskSpecs); err != nil {
		return fmt.Errorf("reconcile Tasks dynamic columns: %w", err)
	}

	resCustomFields := transform.NonEmptyCustomFields(
		transform.DiscoverCustomFields(p.resFields),
		valuesPerResource(p.resources),
	)
	resSpecs := make([]model.ColumnSpec, 0, len(resCustomFields))
	for _, f := range resCustomFields {
		if f.FieldType == model.FieldTypeFormula {
			if p.o.reporter != nil {
				p.o.reporter.ReportFormulaField(p.project.ID, string(model.EntityResource), transform.CustomFieldColumnTitle(f), f.Formula)
			}
			if p.o.store != nil {
				_ = p.o.store.RecordFormulaField(ctx, p.runID, p.project.ID, string(model.EntityResource), transform.CustomFieldColumnTitle(f), f.Formula)
			}
			continue
		}
		resSpecs = append(resSpecs, transform.CustomFieldColumnSpec(f))
	}
	if _, err := ops.AddColumnsIfNotExist(ctx, p.resSheet, resSpecs); err != nil {
		return fmt.Errorf("reconcile Resources dynamic columns: %w", err)
	}

	return nil
}

// loadResources is pipeline stage 7.
func (p *projectPipeline) loadResources(ctx context.Context) error {
	p.o.publish(p.project.ID, progress.StageLoadingResources, 0, len(p.resources), "loading resources")

	colIDs := columnIDsByTitle(p.resSheet)
	rows := make([]model.Row, 0, len(p.resources))
	for _, r := range p.resources {
		rows = append(rows, p.resourceRow(r))
	}
	if p.o.cfg.DryRun || len(rows) == 0 {
		return nil
	}
	if _, err := p.o.target.AddRows(ctx, p.resSheet.ID, rows, colIDs); err != nil {
		return fmt.Errorf("load resource rows: %w", err)
	}
	p.o.publish(p.project.ID, progress.StageLoadingResources, len(rows), len(p.resources), "")
	if p.o.store != nil {
		_ = p.o.store.UpdateProjectCounts(ctx, p.project.ID, 0, len(rows))
	}
	return nil
}

// loadTasks is pipeline stage 8: tasks are written level-by-level, root
// outline level first, so that by the time a child row's batch is built its
// parent's target row ID is already known. Smartsheet only accepts a
// parentId that names a row which already exists, so a single flat batch
// across every level would leave every child's ParentID unresolved; per
// spec §4.6.9/§4.7 stage 8, each level's batch is pipelined in
// parent-before-child order and resolves parent_id from the source-GUID ->
// target-row-ID map built by the levels before it.
func (p *projectPipeline) loadTasks(ctx context.Context) error {
	p.o.publish(p.project.ID, progress.StageLoadingTasks, 0, len(p.hierarchy), "loading tasks")

	resourceByID := make(map[string]model.Resource, len(p.resources))
	for _, r := range p.resources {
		resourceByID[r.ID] = r
	}
	assignmentsByTask := make(map[string][]model.Assignment)
	for _, a := range p.assignments {
		assignmentsByTask[a.TaskID] = append(assignmentsByTask[a.TaskID], a)
	}
	rowIndexByTaskID := make(map[string]int, len(p.hierarchy))
	for i, n := range p.hierarchy {
		rowIndexByTaskID[n.Task.ID] = i + 1 // 1-based row position, per spec §4.6.10
	}

	indicesByLevel := make(map[int][]int)
	var levels []int
	for i, n := range p.hierarchy {
		lvl := n.Task.OutlineLevel
		if _, ok := indicesByLevel[lvl]; !ok {
			levels = append(levels, lvl)
		}
		indicesByLevel[lvl] = append(indicesByLevel[lvl], i)
	}
	sort.Ints(levels)

	colIDs := columnIDsByTitle(p.tasksSheet)
	targetRowIDByGUID := make(map[string]int64, len(p.hierarchy))
	loaded := 0

	for _, lvl := range levels {
		idxs := indicesByLevel[lvl]
		rows := make([]model.Row, 0, len(idxs))
		for _, i := range idxs {
			n := p.hierarchy[i]
			row, warnings := p.taskRow(n, resourceByID, assignmentsByTask[n.Task.ID], rowIndexByTaskID)
			for _, w := range warnings {
				p.o.log.Warnf("project %s task %s: %v", p.project.ID, n.Task.ID, w)
			}
			if n.ParentID != "" {
				row.ParentID = targetRowIDByGUID[n.ParentID]
			}
			rows = append(rows, row)
		}

		if p.o.cfg.DryRun || len(rows) == 0 {
			continue
		}
		created, err := p.o.target.AddRows(ctx, p.tasksSheet.ID, rows, colIDs)
		if err != nil {
			return fmt.Errorf("load task rows at outline level %d: %w", lvl, err)
		}
		for j, i := range idxs {
			targetRowIDByGUID[p.hierarchy[i].Task.ID] = created[j].ID
		}
		loaded += len(rows)
	}

	p.o.publish(p.project.ID, progress.StageLoadingTasks, loaded, len(p.hierarchy), "")
	if p.o.store != nil {
		_ = p.o.store.UpdateProjectCounts(ctx, p.project.ID, loaded, len(p.resources))
	}
	return nil
}

// loadSummary is pipeline stage 9: a key/value sheet of project-level
// scalars.
func (p *projectPipeline) loadSummary(ctx context.Context) error {
	p.o.publish(p.project.ID, progress.StageLoadingSummary, 0, 1, "loading summary")

	fields := []struct{ field, value string }{
		{"Name", p.project.Name},
		{"Description", p.project.Description},
		{"Owner", p.project.Owner},
		{"Status", p.project.Status},
		{"Priority", transform.PriorityLabel(p.project.Priority)},
		{"Start Date", transform.DateOnlyUTC(p.project.Start)},
		{"Finish Date", transform.DateOnlyUTC(p.project.Finish)},
		{"% Complete", transform.MaxUnitsPercentText(p.project.PercentComplete)},
	}
	colIDs := columnIDsByTitle(p.summarySheet)
	rows := make([]model.Row, 0, len(fields))
	for _, f := range fields {
		rows = append(rows, model.Row{Cells: []model.Cell{
			{ColumnID: "Field", Value: f.field},
			{ColumnID: "Value", Value: f.value},
		}})
	}
	if p.o.cfg.DryRun {
		return nil
	}
	if _, err := p.o.target.AddRows(ctx, p.summarySheet.ID, rows, colIDs); err != nil {
		return fmt.Errorf("load summary rows: %w", err)
	}
	return nil
}

// configure is pipeline stage 10: bind PICKLIST/MULTI_PICKLIST columns to
// their PMO Standards reference sheets with lenient validation, per spec
// §4.5/§4.6.11.
func (p *projectPipeline) configure(ctx context.Context) error {
	p.o.publish(p.project.ID, progress.StageConfiguring, 0, 1, "configuring picklists")

	bindings := []struct {
		sheet     *model.Sheet
		column    string
		standard  string
	}{
		{p.tasksSheet, "Status", "Task - Status"},
		{p.tasksSheet, "Priority", "Task - Priority"},
		{p.tasksSheet, "Constraint Type", "Task - Constraint Type"},
		{p.resSheet, "Type", "Resource - Type"},
	}
	// Smartsheet has no live cross-sheet dropdown reference, so these
	// columns are already created lenient (no enforced Options list);
	// recording Source here is provenance only, tying each PICKLIST back
	// to the PMO Standards sheet that defines its canonical values.
	for _, b := range bindings {
		ref, ok := p.o.standards.SheetRef(b.standard)
		if !ok {
			continue
		}
		col := b.sheet.ColumnByTitle(b.column)
		if col == nil {
			continue
		}
		col.Source = ref
	}

	deptSet := map[string]struct{}{}
	for _, r := range p.resources {
		if r.Department != "" {
			deptSet[r.Department] = struct{}{}
		}
	}
	departments := make([]string, 0, len(deptSet))
	for d := range deptSet {
		departments = append(departments, d)
	}
	sort.Strings(departments)
	if len(departments) > 0 {
		if _, err := p.o.standards.EnsureDiscoveredSheet(ctx, model.EntityResource, "Department", departments); err != nil {
			return fmt.Errorf("ensure discovered Department sheet: %w", err)
		}
	}
	return nil
}

func (p *projectPipeline) resourceRow(r model.Resource) model.Row {
	return model.Row{
		SourceGUID: r.ID,
		Cells: []model.Cell{
			{ColumnID: "Resource Name", Value: r.Name},
			{ColumnID: "Source GUID", Value: r.ID},
			{ColumnID: "Email", Object: contactObjectOrNil(r.Name, r.Email)},
			{ColumnID: "Type", Value: string(r.Type)},
			{ColumnID: "Max Units", Value: transform.MaxUnitsPercentText(r.MaxUnits)},
			{ColumnID: "Standard Rate", Value: floatOrEmpty(r.StandardRate)},
			{ColumnID: "Overtime Rate", Value: floatOrEmpty(r.OvertimeRate)},
			{ColumnID: "Cost Per Use", Value: floatOrEmpty(r.CostPerUse)},
			{ColumnID: "Department", Value: r.Department},
			{ColumnID: "Code", Value: r.Code},
			{ColumnID: "Active", Value: r.IsActive},
			{ColumnID: "Generic", Value: r.IsGeneric},
			{ColumnID: "Project Online Created Date", Value: r.CreatedAt.UTC().Format("2006-01-02")},
			{ColumnID: "Project Online Modified Date", Value: r.ModifiedAt.UTC().Format("2006-01-02")},
		},
	}
}

func (p *projectPipeline) taskRow(n transform.HierarchyNode, resourceByID map[string]model.Resource, assignments []model.Assignment, rowIndexByTaskID map[string]int) (model.Row, []error) {
	t := n.Task
	predText, warnings := transform.FormatPredecessors(t.Predecessors, rowIndexByTaskID)
	cells := p.assignmentCells(assignments, resourceByID)

	durationText, _ := transform.DurationToHoursText(t.Duration)
	workText, _ := transform.DurationToHoursText(t.Work)
	actualWorkText, _ := transform.DurationToHoursText(t.ActualWork)

	row := model.Row{
		SourceGUID: t.ID,
		Cells: []model.Cell{
			{ColumnID: "Task Name", Value: t.Name},
			{ColumnID: "Source GUID", Value: t.ID},
			{ColumnID: "Start Date", Value: transform.DateOnlyUTC(t.Start)},
			{ColumnID: "Finish Date", Value: transform.DateOnlyUTC(t.Finish)},
			{ColumnID: "Duration", Value: durationText},
			{ColumnID: "Work", Value: workText},
			{ColumnID: "Actual Work", Value: actualWorkText},
			{ColumnID: "% Complete", Value: percentText(t.PercentComplete)},
			{ColumnID: "Status", Value: transform.TaskStatus(t.PercentComplete)},
			{ColumnID: "Priority", Value: transform.PriorityLabel(t.Priority)},
			{ColumnID: "Milestone", Value: t.IsMilestone},
			{ColumnID: "Notes", Value: t.Notes},
			{ColumnID: "Constraint Type", Value: string(t.ConstraintType)},
			{ColumnID: "Constraint Date", Value: transform.DateOnlyUTC(t.ConstraintDate)},
			{ColumnID: "Deadline", Value: transform.DateOnlyUTC(t.Deadline)},
			{ColumnID: "Predecessors", Value: predText},
			{ColumnID: "Project Online Created Date", Value: t.CreatedAt.UTC().Format("2006-01-02")},
			{ColumnID: "Project Online Modified Date", Value: t.ModifiedAt.UTC().Format("2006-01-02")},
		},
	}
	if cells.TeamMembers != nil {
		row.Cells = append(row.Cells, model.Cell{ColumnID: transform.TeamMembersColumn, Object: cells.TeamMembers})
	}
	if cells.Equipment != nil {
		row.Cells = append(row.Cells, model.Cell{ColumnID: transform.EquipmentColumn, Object: cells.Equipment})
	}
	if cells.CostCenters != nil {
		row.Cells = append(row.Cells, model.Cell{ColumnID: transform.CostCentersColumn, Object: cells.CostCenters})
	}
	return row, warnings
}

func (p *projectPipeline) assignmentCells(assignments []model.Assignment, resourceByID map[string]model.Resource) transform.AssignmentCells {
	return transform.BuildAssignmentCells(assignments, resourceByID)
}

func contactObjectOrNil(name, email string) *model.ObjectValue {
	c, ok := transform.ContactFrom(name, email)
	if !ok {
		return nil
	}
	return transform.MultiContactObject([]model.Contact{c})
}

func floatOrEmpty(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}

func percentText(v *float64) string {
	if v == nil {
		return "0%"
	}
	return strconv.FormatFloat(*v, 'f', 0, 64) + "%"
}

func columnIDsByTitle(sheet *model.Sheet) map[string]int64 {
	m := make(map[string]int64, len(sheet.Columns))
	for _, c := range sheet.Columns {
		m[c.Title] = c.ID
	}
	return m
}

func valuesPerTask(tasks []model.Task) [][]model.CustomFieldValue {
	out := make([][]model.CustomFieldValue, len(tasks))
	for i, t := range tasks {
		out[i] = t.CustomFields
	}
	return out
}

func valuesPerResource(resources []model.Resource) [][]model.CustomFieldValue {
	out := make([][]model.CustomFieldValue, len(resources))
	for i, r := range resources {
		out[i] = r.CustomFields
	}
	return out
}

// assignmentColumnSpecsFor derives the Tasks-sheet assignment columns this
// project actually needs, one per distinct resource type referenced by its
// assignments (spec §4.6.11's "discovered from this project's assignments").
func assignmentColumnSpecsFor(assignments []model.Assignment, resourceByID map[string]model.Resource) []model.ColumnSpec {
	seen := make(map[model.ResourceType]bool)
	var specs []model.ColumnSpec
	for _, a := range assignments {
		r, ok := resourceByID[a.ResourceID]
		if !ok || seen[r.Type] {
			continue
		}
		seen[r.Type] = true
		specs = append(specs, transform.AssignmentColumnFor(r.Type, nil))
	}
	return specs
}

// standardsOps exposes the resiliency.Ops instance the orchestrator shares
// with pmostandards, since get-or-create workspace/sheet/column semantics
// must be identical (and serialized) across both callers.
func (o *Orchestrator) standardsOps() *resiliency.Ops {
	return o.ops
}
