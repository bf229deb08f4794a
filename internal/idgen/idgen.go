// Package idgen generates correlation IDs for runs and projects, replacing
// the teacher's ad hoc generateRandomState (auth/manager.go) with a real
// UUID generator now that every ID needs to survive a round trip through
// Postgres and NATS subjects rather than live only for an OAuth redirect.
package idgen

import "github.com/google/uuid"

// NewRunID returns a fresh identifier for one migration run.
func NewRunID() string {
	return uuid.NewString()
}

// NewProjectID returns a fresh identifier for one project's pipeline
// instance, distinct from the source project ID so the same source project
// migrated across two runs gets two independent state-store rows.
func NewProjectID() string {
	return uuid.NewString()
}
