package export

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/cpk-labs/github-teams-backup/internal/domain"
)

const sqliteSchema = `
CREATE TABLE snapshot (
	id TEXT PRIMARY KEY,
	org_name TEXT NOT NULL,
	backup_timestamp TIMESTAMP NOT NULL,
	backup_type TEXT NOT NULL
);

CREATE TABLE members (
	login TEXT PRIMARY KEY,
	user_id INTEGER NOT NULL,
	email TEXT,
	role TEXT NOT NULL,
	two_factor_enabled INTEGER NOT NULL
);

CREATE TABLE teams (
	id INTEGER PRIMARY KEY,
	slug TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL,
	description TEXT,
	privacy TEXT NOT NULL,
	parent_id INTEGER
);

CREATE TABLE team_memberships (
	team_slug TEXT NOT NULL,
	login TEXT NOT NULL,
	role TEXT NOT NULL,
	PRIMARY KEY (team_slug, login)
);

CREATE TABLE team_repositories (
	team_slug TEXT NOT NULL,
	repo_full_name TEXT NOT NULL,
	permission TEXT NOT NULL,
	PRIMARY KEY (team_slug, repo_full_name)
);

CREATE TABLE fetch_errors (
	team_slug TEXT PRIMARY KEY,
	kind TEXT NOT NULL,
	message TEXT NOT NULL
);

CREATE INDEX idx_memberships_login ON team_memberships(login);
`

// WriteSQLite writes the snapshot into a standalone SQLite database file
func WriteSQLite(snapshot *domain.BackupSnapshot, path string) error {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := db.Exec(sqliteSchema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO snapshot (id, org_name, backup_timestamp, backup_type) VALUES (?, ?, ?, ?)`,
		snapshot.ID, snapshot.OrgName, snapshot.Timestamp, snapshot.BackupType,
	); err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}

	for _, m := range snapshot.Members {
		if _, err := tx.Exec(
			`INSERT INTO members (login, user_id, email, role, two_factor_enabled) VALUES (?, ?, ?, ?, ?)`,
			m.Login, m.ID, m.Email, string(m.Role), m.TwoFactorEnabled,
		); err != nil {
			return fmt.Errorf("insert member %s: %w", m.Login, err)
		}
	}

	for _, t := range snapshot.Teams {
		if _, err := tx.Exec(
			`INSERT INTO teams (id, slug, name, description, privacy, parent_id) VALUES (?, ?, ?, ?, ?, ?)`,
			t.ID, t.Slug, t.Name, t.Description, string(t.Privacy), t.ParentID,
		); err != nil {
			return fmt.Errorf("insert team %s: %w", t.Slug, err)
		}
	}

	for _, m := range snapshot.Memberships {
		if _, err := tx.Exec(
			`INSERT INTO team_memberships (team_slug, login, role) VALUES (?, ?, ?)`,
			m.TeamSlug, m.Login, string(m.Role),
		); err != nil {
			return fmt.Errorf("insert membership %s/%s: %w", m.TeamSlug, m.Login, err)
		}
	}

	for _, r := range snapshot.Repositories {
		if _, err := tx.Exec(
			`INSERT INTO team_repositories (team_slug, repo_full_name, permission) VALUES (?, ?, ?)`,
			r.TeamSlug, r.RepoFullName, r.Permission,
		); err != nil {
			return fmt.Errorf("insert team repo %s/%s: %w", r.TeamSlug, r.RepoFullName, err)
		}
	}

	for _, e := range snapshot.Errors {
		if _, err := tx.Exec(
			`INSERT INTO fetch_errors (team_slug, kind, message) VALUES (?, ?, ?)`,
			e.TeamSlug, string(e.Kind), e.Message,
		); err != nil {
			return fmt.Errorf("insert fetch error %s: %w", e.TeamSlug, err)
		}
	}

	return tx.Commit()
}
