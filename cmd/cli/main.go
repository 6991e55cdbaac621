package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cpk-labs/github-teams-backup/internal/backup"
	"github.com/cpk-labs/github-teams-backup/internal/collector"
	"github.com/cpk-labs/github-teams-backup/internal/config"
	"github.com/cpk-labs/github-teams-backup/internal/domain"
	apperrors "github.com/cpk-labs/github-teams-backup/internal/errors"
	"github.com/cpk-labs/github-teams-backup/internal/export"
	"github.com/cpk-labs/github-teams-backup/internal/storage"
	"github.com/cpk-labs/github-teams-backup/internal/storage/sqlite"
)

var (
	token          string
	batchSize      int
	maxWorkers     int
	limitUsers     int
	outputName     string
	outputDir      string
	exportCSV      bool
	exportMultiCSV bool
	exportExcel    bool
	exportStructJS bool
	exportSQLite   bool
	historyPath    string
	runsLimit      int
)

const defaultHistoryPath = "backup_history.db"

var rootCmd = &cobra.Command{
	Use:   "github-teams-backup",
	Short: "GitHub organization teams backup tool",
	Long: `A CLI tool that captures a GitHub organization's team structure before
SSO enforcement: members, teams, team-membership roles and team-repository
access. SSO enforcement discards team visibility while preserving direct
repository grants, so the snapshot is the only record to recreate teams from.`,
}

var backupCmd = &cobra.Command{
	Use:   "backup [org]",
	Short: "Back up an organization's team structure",
	Long: `Capture a point-in-time snapshot of the organization's members, teams,
team memberships and team repository access, then export it to the selected
formats (Excel by default).`,
	Args: cobra.ExactArgs(1),
	RunE: runBackup,
}

var runsCmd = &cobra.Command{
	Use:   "runs [org]",
	Short: "List previous backup runs",
	Long: `Show the run ledger kept in the local history database: when each backup
ran, what it captured and where the files went. Without an organization
argument every recorded run is listed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRuns,
}

func init() {
	backupCmd.Flags().StringVar(&token, "token", "", "GitHub token with admin:org permissions (default: GITHUB_TOKEN env)")
	backupCmd.Flags().IntVar(&batchSize, "batch-size", config.DefaultBatchSize, "number of teams to process per batch")
	backupCmd.Flags().IntVar(&maxWorkers, "max-workers", config.DefaultMaxWorkers, "maximum number of concurrent workers per batch")
	backupCmd.Flags().IntVar(&limitUsers, "limit-users", 0, "limit number of members to back up (for testing)")
	backupCmd.Flags().StringVar(&outputName, "output", "", "base filename (default: {org}_teams_backup_{timestamp})")
	backupCmd.Flags().StringVar(&outputDir, "output-dir", "", "output directory (default: ./github_backup_{org})")
	backupCmd.Flags().BoolVar(&exportCSV, "csv", false, "export to single CSV format")
	backupCmd.Flags().BoolVar(&exportMultiCSV, "multi-csv", false, "export to multiple focused CSV files")
	backupCmd.Flags().BoolVar(&exportExcel, "excel", false, "export to formatted Excel file (default when no format selected)")
	backupCmd.Flags().BoolVar(&exportStructJS, "structured-json", false, "export to clean, team-focused JSON format")
	backupCmd.Flags().BoolVar(&exportSQLite, "sqlite", false, "export to a standalone SQLite database file")
	backupCmd.Flags().StringVar(&historyPath, "history", defaultHistoryPath, "path of the local run history database")

	runsCmd.Flags().StringVar(&historyPath, "history", defaultHistoryPath, "path of the local run history database")
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "maximum number of runs to list")

	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(runsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newLogger sets up a console logger with human readable timestamps
func newLogger() *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeDuration = zapcore.StringDurationEncoder
	logger, _ := cfg.Build()
	return logger
}

func runBackup(cmd *cobra.Command, args []string) error {
	org := args[0]

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cfg.OrgName = org
	if token != "" {
		cfg.Token = token
	}
	if cmd.Flags().Changed("batch-size") {
		cfg.BatchSize = batchSize
	}
	if cmd.Flags().Changed("max-workers") {
		cfg.MaxWorkers = maxWorkers
	}
	if cmd.Flags().Changed("limit-users") {
		cfg.LimitUsers = limitUsers
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := newLogger()
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	budget := collector.NewRateBudget(logger)
	api := collector.NewGitHubAPI(cfg.Token, cfg.RequestTimeout, budget, logger)
	orchestrator := backup.NewOrchestrator(cfg, api, budget, logger)

	snapshot, err := orchestrator.Run(ctx)
	if err != nil {
		if apperrors.IsCancelled(err) {
			return fmt.Errorf("backup cancelled")
		}
		return fmt.Errorf("backup failed: %w", err)
	}

	printSummary(snapshot)

	opts := export.Options{
		OutputDir:      outputDir,
		BaseName:       outputName,
		CSV:            exportCSV,
		MultiCSV:       exportMultiCSV,
		Excel:          exportExcel,
		StructuredJSON: exportStructJS,
		SQLite:         exportSQLite,
	}
	testSuffix := ""
	if cfg.LimitUsers > 0 {
		testSuffix = "_test"
	}
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("github_backup_%s%s", org, testSuffix)
	}
	if opts.BaseName == "" {
		timestamp := snapshot.Timestamp.Format("20060102_150405")
		opts.BaseName = fmt.Sprintf("%s_teams_backup_%s%s", org, timestamp, testSuffix)
	}

	written, err := export.Run(snapshot, opts, logger)
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	absDir, _ := filepath.Abs(opts.OutputDir)
	fmt.Printf("\nCreated files in %s:\n", absDir)
	for _, path := range written {
		fmt.Printf("  %s\n", filepath.Base(path))
	}

	if err := recordRun(ctx, snapshot, absDir); err != nil {
		logger.Warn("failed to record run in history", zap.Error(err))
	}

	return nil
}

func recordRun(ctx context.Context, snapshot *domain.BackupSnapshot, outputDir string) error {
	history, err := sqlite.NewHistory(historyPath)
	if err != nil {
		return err
	}
	defer history.Close()

	return history.RecordRun(ctx, &storage.Run{
		SnapshotID:   snapshot.ID,
		OrgName:      snapshot.OrgName,
		Timestamp:    snapshot.Timestamp,
		BackupType:   snapshot.BackupType,
		Members:      snapshot.Summary.TotalMembers,
		Teams:        snapshot.Summary.TotalTeams,
		Memberships:  snapshot.Summary.TotalMemberships,
		Repositories: snapshot.Summary.TotalTeamRepos,
		FailedTeams:  snapshot.Summary.FailedTeams,
		OutputDir:    outputDir,
	})
}

func runRuns(cmd *cobra.Command, args []string) error {
	org := ""
	if len(args) == 1 {
		org = args[0]
	}

	history, err := sqlite.NewHistory(historyPath)
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	defer history.Close()

	runs, err := history.ListRuns(cmd.Context(), org, runsLimit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Println("No recorded backup runs.")
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Time", "Org", "Members", "Teams", "Memberships", "Failed", "Output"})
	for _, r := range runs {
		table.Append([]string{
			r.Timestamp.Format(time.RFC3339),
			r.OrgName,
			fmt.Sprintf("%d", r.Members),
			fmt.Sprintf("%d", r.Teams),
			fmt.Sprintf("%d", r.Memberships),
			fmt.Sprintf("%d", r.FailedTeams),
			r.OutputDir,
		})
	}
	table.Render()

	return nil
}

func printSummary(snapshot *domain.BackupSnapshot) {
	fmt.Printf("\nTeams Backup Summary: %s\n", snapshot.OrgName)
	fmt.Printf("Backup Time: %s\n\n", snapshot.Timestamp.Format(time.RFC3339))

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Metric", "Value"})
	table.Append([]string{"Total Members", fmt.Sprintf("%d", snapshot.Summary.TotalMembers)})
	table.Append([]string{"Total Teams", fmt.Sprintf("%d", snapshot.Summary.TotalTeams)})
	table.Append([]string{"Team Memberships", fmt.Sprintf("%d", snapshot.Summary.TotalMemberships)})
	table.Append([]string{"Team Repositories", fmt.Sprintf("%d", snapshot.Summary.TotalTeamRepos)})
	table.Append([]string{"Members With Teams", fmt.Sprintf("%d", snapshot.Summary.MembersWithTeams)})
	table.Append([]string{"Members Without Teams", fmt.Sprintf("%d", snapshot.Summary.MembersWithNoTeam)})
	table.Append([]string{"Failed Teams", fmt.Sprintf("%d", snapshot.Summary.FailedTeams)})
	table.Render()

	if len(snapshot.Errors) > 0 {
		fmt.Printf("\nTeams that could not be fetched:\n")
		errTable := tablewriter.NewWriter(os.Stdout)
		errTable.SetHeader([]string{"Team", "Kind", "Message"})
		for _, e := range snapshot.Errors {
			errTable.Append([]string{e.TeamSlug, string(e.Kind), e.Message})
		}
		errTable.Render()
	}
}
