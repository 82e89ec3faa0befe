package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ocnguye/epa-dash-sub000/config"
	"github.com/ocnguye/epa-dash-sub000/pkg/pipeline"
	"github.com/ocnguye/epa-dash-sub000/pkg/resolver"
)

// PreviewCommandDeps holds the dependencies for the preview command.
type PreviewCommandDeps struct {
	LoadConfig  func() (*config.CLIConfig, error)
	BuildRunner func(ctx context.Context, cfg *config.CLIConfig, reviewDir string) (Runner, func(), error)
}

// DefaultPreviewDeps returns the default dependencies for production use.
func DefaultPreviewDeps() *PreviewCommandDeps {
	return &PreviewCommandDeps{
		LoadConfig:  config.LoadConfig,
		BuildRunner: buildRunner,
	}
}

// NewPreviewCommand creates the preview command.
func NewPreviewCommand(deps *PreviewCommandDeps) *cobra.Command {
	if deps == nil {
		deps = DefaultPreviewDeps()
	}

	var output string

	cmd := &cobra.Command{
		Use:   "preview <report-id>",
		Short: "Show what a sync run would extract from one report",
		Long: `Run the full extraction and resolution path for a single report and show
the result without writing anything.

The output covers the classified scan type, the attending and trainee
names found in the narrative, the report's participants, and each
extracted EPA assertion with its resolution and the outcome a write run
would produce.`,
		Example: `  # Inspect report 1234
  epadash preview 1234

  # Machine-readable detail
  epadash preview 1234 --output json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reportID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid report ID %q: %w", args[0], err)
			}

			cfg, err := deps.LoadConfig()
			if err != nil {
				return fmt.Errorf("loading configuration: %w", err)
			}

			reviewDir, err := cfg.ResolveReviewDir()
			if err != nil {
				return fmt.Errorf("resolving review directory: %w", err)
			}

			runner, closer, err := deps.BuildRunner(cmd.Context(), cfg, reviewDir)
			if err != nil {
				return err
			}
			defer closer()

			detail, err := runner.Preview(cmd.Context(), reportID)
			if err != nil {
				return err
			}

			if resolveFormat(cfg, output) == config.OutputFormatJSON {
				return outputJSON(cmd.OutOrStdout(), detail)
			}
			renderDetail(cmd, detail)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output format: text, json")

	return cmd
}

// renderDetail prints a report preview in human-readable form.
func renderDetail(cmd *cobra.Command, d *pipeline.Detail) {
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Report %d\n", d.ReportID)
	fmt.Fprintf(out, "  Scan type: %s\n", valueOrDash(d.ScanType))
	fmt.Fprintf(out, "  Attending: %s\n", valueOrDash(d.Attending))
	fmt.Fprintf(out, "  Trainee:   %s\n", valueOrDash(d.Trainee))

	fmt.Fprintf(out, "\nParticipants (%d):\n", len(d.Candidates))
	for _, c := range d.Candidates {
		linked := "-"
		if c.UserID != nil {
			linked = fmt.Sprintf("user %d", *c.UserID)
		}
		fmt.Fprintf(out, "  %-6d %-10s %-10s %s\n", c.ID, c.Role, linked, valueOrDash(c.SourceLabel))
	}

	if len(d.Pairs) == 0 {
		fmt.Fprintln(out, "\nNo EPA assertions found in the narrative.")
		return
	}

	fmt.Fprintf(out, "\nAssertions (%d):\n", len(d.Pairs))
	for _, p := range d.Pairs {
		fmt.Fprintf(out, "  %q -> EPA %d: ", p.Assertion.RawName, p.Assertion.Score)
		switch p.Resolution.Kind {
		case resolver.KindUnique:
			fmt.Fprintf(out, "participant %d via %s (would be %s)\n",
				p.Resolution.Candidate.ID, p.Resolution.Method, p.Outcome)
		case resolver.KindAmbiguous:
			fmt.Fprintf(out, "ambiguous between %d participants\n", len(p.Resolution.Matches))
		default:
			fmt.Fprintln(out, "no matching participant")
		}
	}
}

// valueOrDash returns the value if non-empty, otherwise a dash.
func valueOrDash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}
