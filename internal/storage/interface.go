package storage

import (
	"context"
	"time"
)

// Run is one recorded backup run. The snapshot files themselves live in
// the output directory; the history store only keeps the run ledger.
type Run struct {
	SnapshotID   string
	OrgName      string
	Timestamp    time.Time
	BackupType   string
	Members      int
	Teams        int
	Memberships  int
	Repositories int
	FailedTeams  int
	OutputDir    string
}

// History is the abstract interface for the run history store
type History interface {
	// RecordRun appends one completed run to the ledger
	RecordRun(ctx context.Context, run *Run) error

	// ListRuns returns the most recent runs, newest first. An empty org
	// returns runs for every organization.
	ListRuns(ctx context.Context, org string, limit int) ([]*Run, error)

	// Migration
	Migrate(ctx context.Context) error

	// Connection management
	Close() error
}
