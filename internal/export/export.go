// Package export translates a backup snapshot into on-disk formats. The
// exporters only read the snapshot; none of them feed back into the
// backup engine.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	"github.com/cpk-labs/github-teams-backup/internal/domain"
)

// Options selects which formats to write and where
type Options struct {
	// OutputDir is the backup directory. It is removed and recreated on
	// every run.
	OutputDir string

	// BaseName is the filename stem shared by all produced files
	BaseName string

	CSV            bool
	MultiCSV       bool
	Excel          bool
	StructuredJSON bool
	SQLite         bool
}

// Run writes the snapshot in the selected formats and returns the paths of
// the files produced. The full JSON dump is always written; when no other
// format is selected, Excel is used as the default.
func Run(snapshot *domain.BackupSnapshot, opts Options, logger *zap.Logger) ([]string, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := os.RemoveAll(opts.OutputDir); err != nil {
		return nil, fmt.Errorf("clean output directory: %w", err)
	}
	for _, sub := range []string{"json", "csv", "excel", "sqlite"} {
		if err := os.MkdirAll(filepath.Join(opts.OutputDir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("create output directory: %w", err)
		}
	}

	if !opts.CSV && !opts.MultiCSV && !opts.Excel && !opts.StructuredJSON && !opts.SQLite {
		logger.Info("no export format selected, defaulting to excel")
		opts.Excel = true
	}

	var written []string
	record := func(path string, err error) error {
		if err != nil {
			return err
		}
		logger.Info("exported", zap.String("file", path))
		written = append(written, path)
		return nil
	}

	jsonPath := filepath.Join(opts.OutputDir, "json", opts.BaseName+".json")
	if err := record(jsonPath, WriteJSON(snapshot, jsonPath)); err != nil {
		return written, err
	}

	if opts.StructuredJSON {
		path := filepath.Join(opts.OutputDir, "json", opts.BaseName+"_structured.json")
		if err := record(path, WriteStructuredJSON(snapshot, path)); err != nil {
			return written, err
		}
	}

	if opts.CSV {
		path := filepath.Join(opts.OutputDir, "csv", opts.BaseName+".csv")
		if err := record(path, WriteCSV(snapshot, path)); err != nil {
			return written, err
		}
	}

	if opts.MultiCSV {
		paths, err := WriteMultiCSV(snapshot, filepath.Join(opts.OutputDir, "csv", opts.BaseName))
		if err != nil {
			return written, err
		}
		for _, path := range paths {
			_ = record(path, nil)
		}
	}

	if opts.Excel {
		path := filepath.Join(opts.OutputDir, "excel", opts.BaseName+".xlsx")
		if err := record(path, WriteExcel(snapshot, path)); err != nil {
			return written, err
		}
	}

	if opts.SQLite {
		path := filepath.Join(opts.OutputDir, "sqlite", opts.BaseName+".db")
		if err := record(path, WriteSQLite(snapshot, path)); err != nil {
			return written, err
		}
	}

	return written, nil
}

// snapshotIndex holds the per-team and per-member lookups the exporters
// share. The snapshot's lists are already sorted, so iteration over the
// index follows snapshot order.
type snapshotIndex struct {
	teamsBySlug        map[string]domain.Team
	membershipsBySlug  map[string][]domain.TeamMembership
	membershipsByLogin map[string][]domain.TeamMembership
	reposBySlug        map[string][]domain.TeamRepository
}

func indexSnapshot(s *domain.BackupSnapshot) *snapshotIndex {
	idx := &snapshotIndex{
		teamsBySlug:        make(map[string]domain.Team, len(s.Teams)),
		membershipsBySlug:  make(map[string][]domain.TeamMembership),
		membershipsByLogin: make(map[string][]domain.TeamMembership),
		reposBySlug:        make(map[string][]domain.TeamRepository),
	}
	for _, team := range s.Teams {
		idx.teamsBySlug[team.Slug] = team
	}
	for _, m := range s.Memberships {
		idx.membershipsBySlug[m.TeamSlug] = append(idx.membershipsBySlug[m.TeamSlug], m)
		idx.membershipsByLogin[m.Login] = append(idx.membershipsByLogin[m.Login], m)
	}
	for _, r := range s.Repositories {
		idx.reposBySlug[r.TeamSlug] = append(idx.reposBySlug[r.TeamSlug], r)
	}
	return idx
}

func (idx *snapshotIndex) repoNames(slug string) []string {
	repos := idx.reposBySlug[slug]
	names := make([]string, 0, len(repos))
	for _, r := range repos {
		names = append(names, r.RepoFullName)
	}
	sort.Strings(names)
	return names
}
