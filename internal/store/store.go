// Package store persists resumable migration-run and per-project state in
// Postgres, adapted from the teacher's internal/db Queries wrapper and
// refresh_jobs/refresh_job_phases tracking tables (db/queries.go, db/jobs.go).
// This is local bookkeeping layered on top of, not instead of, the
// target-side idempotence ResiliencyOps already provides: losing this table
// never corrupts a Smartsheet workspace, it only loses resumability.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Queries provides access to all migration_runs/migration_projects/
// formula_field_reports operations.
type Queries struct {
	db *sql.DB
}

// New creates a new Queries instance.
func New(db *sql.DB) *Queries {
	return &Queries{db: db}
}

// DB returns the underlying connection, e.g. for RunMigrations.
func (q *Queries) DB() *sql.DB { return q.db }

// RunStatus mirrors the orchestrator's run-level lifecycle.
type RunStatus string

const (
	RunPending   RunStatus = "pending"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// ProjectStage mirrors the orchestrator's per-project state machine
// (spec §4.7): Pending -> Extracting -> Preparing -> LoadingResources ->
// LoadingTasks -> LoadingSummary -> Configuring -> Done|Failed|Cancelled.
type ProjectStage string

const (
	StagePending          ProjectStage = "pending"
	StageExtracting       ProjectStage = "extracting"
	StagePreparing        ProjectStage = "preparing"
	StageLoadingResources ProjectStage = "loading_resources"
	StageLoadingTasks     ProjectStage = "loading_tasks"
	StageLoadingSummary   ProjectStage = "loading_summary"
	StageConfiguring      ProjectStage = "configuring"
	StageDone             ProjectStage = "done"
	StageFailed           ProjectStage = "failed"
	StageCancelled        ProjectStage = "cancelled"
)

// Run is a single invocation of the migration engine across a tenant's
// projects.
type Run struct {
	ID                string
	TenantID          string
	SolutionType      string
	Status            RunStatus
	TotalProjects     int
	CompletedProjects int
	FailedProjects    int
	StartedAt         sql.NullTime
	CompletedAt       sql.NullTime
	ErrorMessage      sql.NullString
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Project is one project's resumable migration state within a run.
type Project struct {
	ID              string
	RunID           string
	SourceProjectID string
	ProjectName     string
	WorkspaceID     sql.NullInt64
	Stage           ProjectStage
	TasksLoaded     int
	ResourcesLoaded int
	RetryCount      int
	StartedAt       sql.NullTime
	CompletedAt     sql.NullTime
	ErrorMessage    sql.NullString
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// CompletedSourceProjectIDs returns the source_project_id of every project
// already in a Done stage for runID, letting a resumed run (same RunID
// passed via RESUME_RUN_ID) skip re-driving projects the prior attempt
// finished, per SPEC_FULL.md §5.7's resume-at-first-incomplete-project
// requirement.
func (q *Queries) CompletedSourceProjectIDs(ctx context.Context, runID string) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT source_project_id FROM migration_projects WHERE run_id = $1 AND stage = $2
	`, runID, string(StageDone))
	if err != nil {
		return nil, fmt.Errorf("list completed projects for run %s: %w", runID, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan completed project id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// CreateRun inserts a new migration run in pending state.
func (q *Queries) CreateRun(ctx context.Context, runID, tenantID, solutionType string, totalProjects int) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO migration_runs (id, tenant_id, solution_type, status, total_projects)
		VALUES ($1, $2, $3, 'pending', $4)
	`, runID, tenantID, solutionType, totalProjects)
	return err
}

// StartRun marks a run as running.
func (q *Queries) StartRun(ctx context.Context, runID string) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE migration_runs SET status = 'running', started_at = NOW(), updated_at = NOW() WHERE id = $1
	`, runID)
	return err
}

// CompleteRun marks a run as completed with final project tallies.
func (q *Queries) CompleteRun(ctx context.Context, runID string, completed, failed int) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE migration_runs
		SET status = 'completed', completed_projects = $2, failed_projects = $3,
		    completed_at = NOW(), updated_at = NOW()
		WHERE id = $1
	`, runID, completed, failed)
	return err
}

// FailRun marks a run as failed with an error message.
func (q *Queries) FailRun(ctx context.Context, runID, errMsg string) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE migration_runs
		SET status = 'failed', error_message = $2, completed_at = NOW(), updated_at = NOW()
		WHERE id = $1
	`, runID, errMsg)
	return err
}

// GetRun fetches a run by ID.
func (q *Queries) GetRun(ctx context.Context, runID string) (*Run, error) {
	r := &Run{}
	err := q.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, solution_type, status, total_projects, completed_projects,
		       failed_projects, started_at, completed_at, error_message, created_at, updated_at
		FROM migration_runs WHERE id = $1
	`, runID).Scan(
		&r.ID, &r.TenantID, &r.SolutionType, &r.Status, &r.TotalProjects, &r.CompletedProjects,
		&r.FailedProjects, &r.StartedAt, &r.CompletedAt, &r.ErrorMessage, &r.CreatedAt, &r.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run not found: %s", runID)
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return r, nil
}

// CreateProject inserts a project row in pending state, idempotent across
// reruns of the same run+source project pair.
func (q *Queries) CreateProject(ctx context.Context, projectID, runID, sourceProjectID, projectName string) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO migration_projects (id, run_id, source_project_id, project_name, stage)
		VALUES ($1, $2, $3, $4, 'pending')
		ON CONFLICT (run_id, source_project_id) DO NOTHING
	`, projectID, runID, sourceProjectID, projectName)
	return err
}

// UpdateProjectStage advances a project's stage marker, called on every
// pipeline transition (spec §4.7). Resume does not read this marker: a
// resumed run skips only projects in the Done stage (see
// CompletedSourceProjectIDs) and re-runs every other project from its start.
func (q *Queries) UpdateProjectStage(ctx context.Context, projectID string, stage string) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE migration_projects SET stage = $2, updated_at = NOW() WHERE id = $1
	`, projectID, stage)
	return err
}

// SetProjectWorkspace records the resolved target workspace ID once
// get-or-create resolves it.
func (q *Queries) SetProjectWorkspace(ctx context.Context, projectID string, workspaceID int64) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE migration_projects SET workspace_id = $2, updated_at = NOW() WHERE id = $1
	`, projectID, workspaceID)
	return err
}

// UpdateProjectCounts records running tallies of loaded tasks/resources.
func (q *Queries) UpdateProjectCounts(ctx context.Context, projectID string, tasksLoaded, resourcesLoaded int) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE migration_projects
		SET tasks_loaded = $2, resources_loaded = $3, updated_at = NOW()
		WHERE id = $1
	`, projectID, tasksLoaded, resourcesLoaded)
	return err
}

// IncrementProjectRetryCount bumps the retry counter, mirroring the
// teacher's IncrementRetryCount.
func (q *Queries) IncrementProjectRetryCount(ctx context.Context, projectID string) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE migration_projects SET retry_count = retry_count + 1, updated_at = NOW() WHERE id = $1
	`, projectID)
	return err
}

// StartProject marks a project as started.
func (q *Queries) StartProject(ctx context.Context, projectID string) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE migration_projects SET started_at = NOW(), updated_at = NOW() WHERE id = $1
	`, projectID)
	return err
}

// CompleteProject marks a project Done.
func (q *Queries) CompleteProject(ctx context.Context, projectID string) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE migration_projects
		SET stage = 'done', completed_at = NOW(), updated_at = NOW()
		WHERE id = $1
	`, projectID)
	return err
}

// FailProject marks a project Failed with an error message.
func (q *Queries) FailProject(ctx context.Context, projectID, errMsg string) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE migration_projects
		SET stage = 'failed', error_message = $2, completed_at = NOW(), updated_at = NOW()
		WHERE id = $1
	`, projectID, errMsg)
	return err
}

// CancelProject marks a project Cancelled, only from a non-terminal stage.
func (q *Queries) CancelProject(ctx context.Context, projectID, message string) error {
	result, err := q.db.ExecContext(ctx, `
		UPDATE migration_projects
		SET stage = 'cancelled', error_message = $2, completed_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND stage NOT IN ('done', 'failed', 'cancelled')
	`, projectID, message)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("project not found or already in a terminal state: %s", projectID)
	}
	return nil
}

// GetProject fetches a project by ID.
func (q *Queries) GetProject(ctx context.Context, projectID string) (*Project, error) {
	p := &Project{}
	err := q.db.QueryRowContext(ctx, `
		SELECT id, run_id, source_project_id, project_name, workspace_id, stage,
		       tasks_loaded, resources_loaded, retry_count, started_at, completed_at,
		       error_message, created_at, updated_at
		FROM migration_projects WHERE id = $1
	`, projectID).Scan(
		&p.ID, &p.RunID, &p.SourceProjectID, &p.ProjectName, &p.WorkspaceID, &p.Stage,
		&p.TasksLoaded, &p.ResourcesLoaded, &p.RetryCount, &p.StartedAt, &p.CompletedAt,
		&p.ErrorMessage, &p.CreatedAt, &p.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("project not found: %s", projectID)
	}
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	return p, nil
}

// ListProjectsByRun returns every project tracked for a run, in creation
// order.
func (q *Queries) ListProjectsByRun(ctx context.Context, runID string) ([]Project, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, run_id, source_project_id, project_name, workspace_id, stage,
		       tasks_loaded, resources_loaded, retry_count, started_at, completed_at,
		       error_message, created_at, updated_at
		FROM migration_projects WHERE run_id = $1 ORDER BY created_at
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("list projects for run %s: %w", runID, err)
	}
	defer rows.Close()

	var out []Project
	for rows.Next() {
		var p Project
		if err := rows.Scan(
			&p.ID, &p.RunID, &p.SourceProjectID, &p.ProjectName, &p.WorkspaceID, &p.Stage,
			&p.TasksLoaded, &p.ResourcesLoaded, &p.RetryCount, &p.StartedAt, &p.CompletedAt,
			&p.ErrorMessage, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// RecordFormulaField appends one row to the durable Postgres mirror of the
// Formula Fields Report (spec §8): every custom field whose type is
// Formula, which the migration cannot carry a live formula for, is logged
// here in addition to the CSV output.
func (q *Queries) RecordFormulaField(ctx context.Context, runID, projectID, entityKind, fieldName, formula string) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO formula_field_reports (run_id, project_id, entity_kind, field_name, formula)
		VALUES ($1, $2, $3, $4, $5)
	`, runID, projectID, entityKind, fieldName, formula)
	return err
}

// ListFormulaFields returns every formula-field row recorded for a run, used
// to regenerate the CSV report or audit prior runs.
func (q *Queries) ListFormulaFields(ctx context.Context, runID string) ([]FormulaFieldRow, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT project_id, entity_kind, field_name, formula, created_at
		FROM formula_field_reports WHERE run_id = $1 ORDER BY created_at
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("list formula fields for run %s: %w", runID, err)
	}
	defer rows.Close()

	var out []FormulaFieldRow
	for rows.Next() {
		var r FormulaFieldRow
		if err := rows.Scan(&r.ProjectID, &r.EntityKind, &r.FieldName, &r.Formula, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan formula field row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// FormulaFieldRow is one entry of the Formula Fields Report.
type FormulaFieldRow struct {
	ProjectID  string
	EntityKind string
	FieldName  string
	Formula    sql.NullString
	CreatedAt  time.Time
}
