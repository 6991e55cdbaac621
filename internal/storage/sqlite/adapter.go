package sqlite

import (
	"context"
	"database/sql"

	_ "github.com/mattn/go-sqlite3"

	"github.com/cpk-labs/github-teams-backup/internal/storage"
)

// sqliteHistory implements the History interface for SQLite
type sqliteHistory struct {
	db *sql.DB
}

// NewHistory opens (or creates) a SQLite-backed run history
func NewHistory(dbPath string) (storage.History, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	s := &sqliteHistory{db: db}
	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Migrate runs database migrations
func (s *sqliteHistory) Migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		snapshot_id TEXT PRIMARY KEY,
		org_name TEXT NOT NULL,
		timestamp TIMESTAMP NOT NULL,
		backup_type TEXT NOT NULL,
		members INTEGER NOT NULL,
		teams INTEGER NOT NULL,
		memberships INTEGER NOT NULL,
		repositories INTEGER NOT NULL,
		failed_teams INTEGER NOT NULL,
		output_dir TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_runs_org ON runs(org_name);
	CREATE INDEX IF NOT EXISTS idx_runs_timestamp ON runs(timestamp);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// RecordRun appends one completed run
func (s *sqliteHistory) RecordRun(ctx context.Context, run *storage.Run) error {
	query := `
		INSERT OR REPLACE INTO runs
			(snapshot_id, org_name, timestamp, backup_type, members, teams, memberships, repositories, failed_teams, output_dir)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		run.SnapshotID,
		run.OrgName,
		run.Timestamp,
		run.BackupType,
		run.Members,
		run.Teams,
		run.Memberships,
		run.Repositories,
		run.FailedTeams,
		run.OutputDir,
	)
	return err
}

// ListRuns returns the most recent runs, newest first
func (s *sqliteHistory) ListRuns(ctx context.Context, org string, limit int) ([]*storage.Run, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT snapshot_id, org_name, timestamp, backup_type, members, teams, memberships, repositories, failed_teams, output_dir
		FROM runs
	`
	args := []any{}
	if org != "" {
		query += ` WHERE org_name = ?`
		args = append(args, org)
	}
	query += ` ORDER BY timestamp DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*storage.Run
	for rows.Next() {
		var r storage.Run
		err := rows.Scan(
			&r.SnapshotID, &r.OrgName, &r.Timestamp, &r.BackupType,
			&r.Members, &r.Teams, &r.Memberships, &r.Repositories,
			&r.FailedTeams, &r.OutputDir,
		)
		if err != nil {
			return nil, err
		}
		runs = append(runs, &r)
	}

	return runs, rows.Err()
}

// Close closes the database connection
func (s *sqliteHistory) Close() error {
	return s.db.Close()
}
