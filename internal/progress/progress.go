// Package progress publishes per-project migration progress over NATS and
// listens for operator-issued cancellation signals, generalized from the
// teacher's internal/queue Manager and its Subject*/Get*Subject conventions.
package progress

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/pinggolf/pmo-smartsheet-migrator/internal/logging"
)

// Subject patterns, generalized from the teacher's snapshot.* subjects to
// per-project migration progress/cancellation.
const (
	SubjectProjectProgress = "migration.project.progress.%s" // migration.project.progress.{projectID}
	SubjectProjectComplete = "migration.project.complete.%s" // migration.project.complete.{projectID}
	SubjectProjectError    = "migration.project.error.%s"    // migration.project.error.{projectID}
	SubjectProjectCancel   = "migration.project.cancel.%s"   // migration.project.cancel.{projectID}
	SubjectRunProgress     = "migration.run.progress.%s"     // migration.run.progress.{runID}

	QueueGroupMigration = "migration-workers"
)

// GetProjectProgressSubject returns the progress subject for a project.
func GetProjectProgressSubject(projectID string) string {
	return fmt.Sprintf(SubjectProjectProgress, projectID)
}

// GetProjectCompleteSubject returns the completion subject for a project.
func GetProjectCompleteSubject(projectID string) string {
	return fmt.Sprintf(SubjectProjectComplete, projectID)
}

// GetProjectErrorSubject returns the error subject for a project.
func GetProjectErrorSubject(projectID string) string {
	return fmt.Sprintf(SubjectProjectError, projectID)
}

// GetProjectCancelSubject returns the cancellation subject for a project.
func GetProjectCancelSubject(projectID string) string {
	return fmt.Sprintf(SubjectProjectCancel, projectID)
}

// GetRunProgressSubject returns the aggregate run-level progress subject.
func GetRunProgressSubject(runID string) string {
	return fmt.Sprintf(SubjectRunProgress, runID)
}

// Stage names a pipeline stage for progress events, mirroring the
// orchestrator's per-project state machine.
type Stage string

const (
	StagePending         Stage = "pending"
	StageExtracting      Stage = "extracting"
	StagePreparing       Stage = "preparing"
	StageLoadingResources Stage = "loading_resources"
	StageLoadingTasks    Stage = "loading_tasks"
	StageLoadingSummary  Stage = "loading_summary"
	StageConfiguring     Stage = "configuring"
	StageDone            Stage = "done"
	StageFailed          Stage = "failed"
	StageCancelled       Stage = "cancelled"
)

// Event is the payload published on a project's progress subject.
type Event struct {
	ProjectID string    `json:"project_id"`
	Stage     Stage     `json:"stage"`
	Completed int       `json:"completed"`
	Total     int       `json:"total"`
	Message   string    `json:"message,omitempty"`
	Time      time.Time `json:"time"`
}

// Sink publishes progress events and listens for cancellation. A Sink with
// no connection (constructed with NewNoop) is a valid no-op sink so the orchestrator can
// run without NATS configured (spec's collaborator boundary: NATS wiring
// is optional infrastructure, not a hard dependency of the pipeline).
type Sink struct {
	conn *nats.Conn
	log  *logging.Logger

	// throttle enforces the "at most 1/sec except on stage transitions"
	// publish rule per spec §4.7; keyed by projectID.
	lastPublish map[string]time.Time
	lastStage   map[string]Stage
}

// Connect dials NATS with the teacher's reconnect/backoff options.
func Connect(natsURL string, log *logging.Logger) (*Sink, error) {
	conn, err := nats.Connect(natsURL,
		nats.Name("PMO Smartsheet Migrator"),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				log.Warnf("NATS disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Infof("NATS reconnected to %s", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	log.Done("connected to NATS at %s", natsURL)
	return &Sink{conn: conn, log: log, lastPublish: map[string]time.Time{}, lastStage: map[string]Stage{}}, nil
}

// NewNoop returns a Sink that discards all events, for dry runs or when
// NATS isn't configured.
func NewNoop(log *logging.Logger) *Sink {
	return &Sink{log: log, lastPublish: map[string]time.Time{}, lastStage: map[string]Stage{}}
}

// Close closes the underlying NATS connection, if any.
func (s *Sink) Close() {
	if s.conn != nil {
		s.conn.Close()
	}
}

// Publish emits a progress event, throttled to at most one per second per
// project unless the stage has changed since the last publish.
func (s *Sink) Publish(projectID string, stage Stage, completed, total int, message string) {
	now := time.Now()
	if last, ok := s.lastPublish[projectID]; ok && s.lastStage[projectID] == stage && now.Sub(last) < time.Second {
		return
	}
	s.lastPublish[projectID] = now
	s.lastStage[projectID] = stage

	evt := Event{ProjectID: projectID, Stage: stage, Completed: completed, Total: total, Message: message, Time: now}
	if s.conn == nil {
		s.log.Debugf("progress[%s] %s %d/%d %s", projectID, stage, completed, total, message)
		return
	}
	data, err := json.Marshal(evt)
	if err != nil {
		s.log.Warnf("marshal progress event for %s: %v", projectID, err)
		return
	}
	if err := s.conn.Publish(GetProjectProgressSubject(projectID), data); err != nil {
		s.log.Warnf("publish progress for %s: %v", projectID, err)
	}
	if stage == StageDone || stage == StageFailed || stage == StageCancelled {
		subject := GetProjectCompleteSubject(projectID)
		if stage == StageFailed {
			subject = GetProjectErrorSubject(projectID)
		}
		if err := s.conn.Publish(subject, data); err != nil {
			s.log.Warnf("publish terminal event for %s: %v", projectID, err)
		}
	}
}

// CancelWatcher subscribes to a project's cancel subject and invokes
// cancel() on receipt, used by the orchestrator to wire operator-issued
// cancellation into a context.CancelFunc with sub-second latency.
func (s *Sink) CancelWatcher(ctx context.Context, projectID string, cancel context.CancelFunc) error {
	if s.conn == nil {
		return nil
	}
	sub, err := s.conn.Subscribe(GetProjectCancelSubject(projectID), func(msg *nats.Msg) {
		s.log.Infof("cancellation received for project %s", projectID)
		cancel()
	})
	if err != nil {
		return fmt.Errorf("subscribe to cancel subject for %s: %w", projectID, err)
	}
	go func() {
		<-ctx.Done()
		_ = sub.Unsubscribe()
	}()
	return nil
}
