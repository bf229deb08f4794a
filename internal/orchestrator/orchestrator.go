// Package orchestrator runs the per-project migration pipeline from spec
// §4.7 and fans it out across projects with bounded concurrency, grounded
// on the teacher's services.SnapshotService.RefreshAll (phase-numbered
// pipeline with a progress callback) generalized from a single fixed
// sequence to a per-project state machine running N-wide.
package orchestrator

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/pinggolf/pmo-smartsheet-migrator/internal/logging"
	"github.com/pinggolf/pmo-smartsheet-migrator/internal/model"
	"github.com/pinggolf/pmo-smartsheet-migrator/internal/progress"
	"github.com/pinggolf/pmo-smartsheet-migrator/internal/resiliency"
)

// SourceAPI is the subset of source.Client the orchestrator depends on.
type SourceAPI interface {
	ListProjects(ctx context.Context) func(yield func(*model.Project, error) bool)
	ListTasks(ctx context.Context, projectID string) func(yield func(*model.Task, error) bool)
	ListResources(ctx context.Context) func(yield func(*model.Resource, error) bool)
	ListAssignments(ctx context.Context, projectID string) func(yield func(*model.Assignment, error) bool)
	GetCustomFieldSchema(ctx context.Context, kind model.EntityKind) ([]model.CustomField, error)
}

// TargetAPI is the subset of target.Client the orchestrator calls directly
// (row/cell writes), beyond what ResiliencyOps already wraps for
// get-or-create column/sheet/workspace operations.
type TargetAPI interface {
	AddRows(ctx context.Context, sheetID int64, rows []model.Row, columnIDByTitle map[string]int64) ([]model.Row, error)
	UpdateRows(ctx context.Context, sheetID int64, rows []model.Row, columnIDByTitle map[string]int64) error
	DeleteAllRows(ctx context.Context, sheetID int64, rowIDs []int64) error
}

// StandardsAPI is the subset of pmostandards.Manager the orchestrator uses
// to anchor picklist columns at shared reference sheets.
type StandardsAPI interface {
	SheetRef(name string) (*model.SourceSheetRef, bool)
	EnsureDiscoveredSheet(ctx context.Context, kind model.EntityKind, fieldLabel string, values []string) (*model.Sheet, error)
}

// StateStore is the subset of store.Queries the orchestrator persists
// resumable state through. A nil StateStore is valid: the pipeline runs
// without durable resumability, relying solely on Smartsheet-side
// idempotence.
type StateStore interface {
	CreateProject(ctx context.Context, projectID, runID, sourceProjectID, projectName string) error
	UpdateProjectStage(ctx context.Context, projectID string, stage string) error
	SetProjectWorkspace(ctx context.Context, projectID string, workspaceID int64) error
	UpdateProjectCounts(ctx context.Context, projectID string, tasksLoaded, resourcesLoaded int) error
	CompleteProject(ctx context.Context, projectID string) error
	FailProject(ctx context.Context, projectID, errMsg string) error
	CancelProject(ctx context.Context, projectID, message string) error
	RecordFormulaField(ctx context.Context, runID, projectID, entityKind, fieldName, formula string) error
	CompletedSourceProjectIDs(ctx context.Context, runID string) ([]string, error)
}

// FormulaFieldReporter receives one row per discovered Formula-type custom
// field per project, feeding the Formula Fields Report (spec §8). It is
// distinct from StateStore.RecordFormulaField so the CSV writer and the
// Postgres mirror can both subscribe without the orchestrator knowing
// about either concretely.
type FormulaFieldReporter interface {
	ReportFormulaField(projectID, entityKind, fieldName, formula string)
}

// Config controls the orchestrator's run-level behavior.
type Config struct {
	RunID                 string
	MaxConcurrentProjects int
	DryRun                bool
}

// Orchestrator runs the ten-stage pipeline (spec §4.7) for each project
// discovered from the source tenant, with bounded cross-project
// concurrency.
type Orchestrator struct {
	source    SourceAPI
	target    TargetAPI
	standards StandardsAPI
	ops       *resiliency.Ops
	store     StateStore
	reporter  FormulaFieldReporter
	progress  *progress.Sink
	log       *logging.Logger
	cfg       Config
}

// New builds an Orchestrator. ops is the same resiliency.Ops instance used
// to build the pmostandards.Manager passed as standards, so get-or-create
// workspace/sheet/column calls for project workspaces and the PMO
// Standards workspace share one per-name lock table. store, reporter, and
// sink may be nil.
func New(source SourceAPI, target TargetAPI, standards StandardsAPI, ops *resiliency.Ops, store StateStore, reporter FormulaFieldReporter, sink *progress.Sink, log *logging.Logger, cfg Config) *Orchestrator {
	if cfg.MaxConcurrentProjects <= 0 {
		cfg.MaxConcurrentProjects = 3
	}
	return &Orchestrator{
		source: source, target: target, standards: standards, ops: ops, store: store,
		reporter: reporter, progress: sink, log: log, cfg: cfg,
	}
}

// ProjectResult summarizes one project's pipeline outcome.
type ProjectResult struct {
	ProjectID   string
	ProjectName string
	WorkspaceID int64
	TasksLoaded int
	ResLoaded   int
	Err         error
	Cancelled   bool
}

// Run discovers every project from the source tenant and migrates each one,
// bounded to cfg.MaxConcurrentProjects concurrent pipelines. It returns as
// soon as every project has reached a terminal stage (Done, Failed, or
// Cancelled); a per-project failure does not abort sibling pipelines.
func (o *Orchestrator) Run(ctx context.Context) ([]ProjectResult, error) {
	sem := semaphore.NewWeighted(int64(o.cfg.MaxConcurrentProjects))
	g, gctx := errgroup.WithContext(ctx)

	var results []ProjectResult
	var mu sync.Mutex

	alreadyDone := map[string]bool{}
	if o.store != nil {
		ids, err := o.store.CompletedSourceProjectIDs(ctx, o.cfg.RunID)
		if err != nil {
			o.log.Warnf("resume lookup for run %s failed, starting every project fresh: %v", o.cfg.RunID, err)
		}
		for _, id := range ids {
			alreadyDone[id] = true
		}
	}

	for project, err := range o.source.ListProjects(ctx) {
		if err != nil {
			return results, fmt.Errorf("list projects: %w", err)
		}
		project := project

		if alreadyDone[project.ID] {
			o.log.Infof("skipping project %q (%s): already completed in run %s", project.Name, project.ID, o.cfg.RunID)
			mu.Lock()
			results = append(results, ProjectResult{ProjectID: project.ID, ProjectName: project.Name})
			mu.Unlock()
			continue
		}

		if err := sem.Acquire(gctx, 1); err != nil {
			// Context was cancelled while waiting for a slot; stop
			// launching new pipelines but let in-flight ones unwind.
			break
		}

		g.Go(func() error {
			defer sem.Release(1)
			res := o.runProject(gctx, project)
			mu.Lock()
			results = append(results, res)
			mu.Unlock()
			return nil // per-project errors are captured in ProjectResult, not propagated
		})
	}

	_ = g.Wait()
	return results, nil
}
