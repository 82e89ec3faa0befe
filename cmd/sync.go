package cmd

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ocnguye/epa-dash-sub000/config"
	"github.com/ocnguye/epa-dash-sub000/pkg/pipeline"
)

// SyncCommandDeps holds the dependencies for the sync command.
type SyncCommandDeps struct {
	LoadConfig  func() (*config.CLIConfig, error)
	BuildRunner func(ctx context.Context, cfg *config.CLIConfig, reviewDir string) (Runner, func(), error)
}

// DefaultSyncDeps returns the default dependencies for production use.
func DefaultSyncDeps() *SyncCommandDeps {
	return &SyncCommandDeps{
		LoadConfig:  config.LoadConfig,
		BuildRunner: buildRunner,
	}
}

// NewSyncCommand creates the sync command.
func NewSyncCommand(deps *SyncCommandDeps) *cobra.Command {
	if deps == nil {
		deps = DefaultSyncDeps()
	}

	var (
		limit     int
		write     bool
		workers   int
		reviewOut string
		output    string
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Extract EPA scores from reports and assign them to participants",
		Long: `Scan candidate procedure reports, extract EPA score assertions from their
narrative text, resolve the extracted names against each report's
participants, and record one score per matched participant.

The run is a dry run by default: every report is processed and the
summary shows what would change, but nothing is written. Pass --write
to persist score assignments.

Unresolved assertions (ambiguous or unmatched names) never block the
run. They are collected into a review artifact, one JSON file per run,
for manual follow-up.

Re-running is safe: a participant whose recorded score already matches
the extracted score is counted as unchanged.`,
		Example: `  # Dry run over the default batch
  epadash sync

  # Apply score assignments
  epadash sync --write

  # Smaller batch, more workers, custom review directory
  epadash sync --write --limit 50 --workers 8 --review-out /tmp/review

  # Machine-readable summary
  epadash sync --output json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := deps.LoadConfig()
			if err != nil {
				return fmt.Errorf("loading configuration: %w", err)
			}

			if limit <= 0 {
				limit = cfg.Sync.Limit
			}
			if workers <= 0 {
				workers = cfg.Sync.Workers
			}
			reviewDir := reviewOut
			if reviewDir == "" {
				reviewDir, err = cfg.ResolveReviewDir()
				if err != nil {
					return fmt.Errorf("resolving review directory: %w", err)
				}
			}

			runner, closer, err := deps.BuildRunner(cmd.Context(), cfg, reviewDir)
			if err != nil {
				return err
			}
			defer closer()

			summary, err := runner.Run(cmd.Context(), pipeline.Config{
				Limit:   limit,
				Write:   write,
				Workers: workers,
			})
			if err != nil {
				return err
			}

			if resolveFormat(cfg, output) == config.OutputFormatJSON {
				return outputJSON(cmd.OutOrStdout(), summary)
			}
			renderSummary(cmd, summary)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum candidate reports to scan (default from config)")
	cmd.Flags().BoolVar(&write, "write", false, "Persist score assignments (default is a dry run)")
	cmd.Flags().IntVar(&workers, "workers", 0, "Concurrent report workers (default from config)")
	cmd.Flags().StringVar(&reviewOut, "review-out", "", "Directory for review artifacts (default from config)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output format: text, json")

	return cmd
}

// renderSummary prints a run summary in human-readable form.
func renderSummary(cmd *cobra.Command, s *pipeline.Summary) {
	out := cmd.OutOrStdout()

	mode := "write"
	if s.DryRun {
		mode = "dry run"
	}
	fmt.Fprintf(out, "Sync run %s (%s)\n", s.RunID, mode)
	fmt.Fprintf(out, "  Reports scanned: %d", s.ReportsScanned)
	if s.ReportsFailed > 0 {
		fmt.Fprintf(out, " (%d failed)", s.ReportsFailed)
	}
	fmt.Fprintln(out)
	fmt.Fprintf(out, "  Pairs found:     %d\n", s.PairsFound)
	fmt.Fprintf(out, "  Inserted: %d  Updated: %d  Unchanged: %d\n", s.Inserted, s.Updated, s.Unchanged)
	fmt.Fprintf(out, "  Ambiguous: %d  Unmatched: %d\n", s.Ambiguous, s.Unmatched)

	if len(s.ScanTypes) > 0 {
		types := make([]string, 0, len(s.ScanTypes))
		for name := range s.ScanTypes {
			types = append(types, name)
		}
		sort.Strings(types)
		parts := make([]string, 0, len(types))
		for _, name := range types {
			parts = append(parts, fmt.Sprintf("%s: %d", name, s.ScanTypes[name]))
		}
		fmt.Fprintf(out, "  Scan types: %s\n", strings.Join(parts, ", "))
	}
	if s.AttendingFound > 0 || s.TraineeFound > 0 {
		fmt.Fprintf(out, "  Personnel extracted: %d attending, %d trainee\n", s.AttendingFound, s.TraineeFound)
	}

	fmt.Fprintf(out, "  Duration: %s\n", s.FinishedAt.Sub(s.StartedAt).Round(time.Millisecond))
	if s.Ambiguous+s.Unmatched > 0 {
		fmt.Fprintf(out, "\n%d assertion(s) need manual review. See the review artifact for this run.\n",
			s.Ambiguous+s.Unmatched)
	}
}
