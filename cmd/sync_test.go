// Package cmd provides CLI commands for the epadash tool.
package cmd

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ocnguye/epa-dash-sub000/config"
	"github.com/ocnguye/epa-dash-sub000/pkg/pipeline"
)

// findSubcommand locates a direct subcommand by name.
func findSubcommand(cmd *cobra.Command, name string) *cobra.Command {
	for _, sub := range cmd.Commands() {
		if sub.Name() == name {
			return sub
		}
	}
	return nil
}

// fakeRunner records the pipeline config it was invoked with.
type fakeRunner struct {
	gotCfg  pipeline.Config
	summary *pipeline.Summary
	detail  *pipeline.Detail
	err     error
}

func (f *fakeRunner) Run(ctx context.Context, cfg pipeline.Config) (*pipeline.Summary, error) {
	f.gotCfg = cfg
	return f.summary, f.err
}

func (f *fakeRunner) Preview(ctx context.Context, reportID int64) (*pipeline.Detail, error) {
	return f.detail, f.err
}

// testSyncDeps returns deps backed by the given fake runner.
func testSyncDeps(t *testing.T, runner *fakeRunner) *SyncCommandDeps {
	t.Helper()
	t.Setenv("EPADASH_CONFIG_DIR", t.TempDir())
	return &SyncCommandDeps{
		LoadConfig: func() (*config.CLIConfig, error) { return config.DefaultConfig(), nil },
		BuildRunner: func(ctx context.Context, cfg *config.CLIConfig, reviewDir string) (Runner, func(), error) {
			return runner, func() {}, nil
		},
	}
}

// TestSyncCommand tests the sync command structure.
func TestSyncCommand(t *testing.T) {
	cmd := NewSyncCommand(nil)

	if cmd == nil {
		t.Fatal("NewSyncCommand returned nil")
	}
	if cmd.Use != "sync" {
		t.Errorf("Use = %q, want %q", cmd.Use, "sync")
	}
	if cmd.Short == "" {
		t.Error("Short description is empty")
	}
	if cmd.Long == "" {
		t.Error("Long description is empty")
	}
}

// TestSyncCommandFlags tests the flags on the sync command.
func TestSyncCommandFlags(t *testing.T) {
	cmd := NewSyncCommand(nil)

	expectedFlags := []string{"limit", "write", "workers", "review-out", "output"}
	for _, flagName := range expectedFlags {
		if cmd.Flags().Lookup(flagName) == nil {
			t.Errorf("Missing flag --%s", flagName)
		}
	}

	writeFlag := cmd.Flags().Lookup("write")
	if writeFlag.Value.Type() != "bool" {
		t.Errorf("Flag --write should be bool, got %s", writeFlag.Value.Type())
	}
	if writeFlag.DefValue != "false" {
		t.Errorf("Flag --write should default to false, got %s", writeFlag.DefValue)
	}
}

// TestSyncCommand_DryRunByDefault verifies the command runs without --write
// and falls back to configured batch settings.
func TestSyncCommand_DryRunByDefault(t *testing.T) {
	runner := &fakeRunner{summary: &pipeline.Summary{
		RunID:      uuid.New(),
		DryRun:     true,
		StartedAt:  time.Now(),
		FinishedAt: time.Now().Add(time.Second),
	}}

	cmd := NewSyncCommand(testSyncDeps(t, runner))
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if runner.gotCfg.Write {
		t.Error("Write should be false without --write")
	}
	if runner.gotCfg.Limit != config.DefaultSyncLimit {
		t.Errorf("Limit = %d, want config default %d", runner.gotCfg.Limit, config.DefaultSyncLimit)
	}
	if runner.gotCfg.Workers != config.DefaultSyncWorkers {
		t.Errorf("Workers = %d, want config default %d", runner.gotCfg.Workers, config.DefaultSyncWorkers)
	}
	if !strings.Contains(buf.String(), "dry run") {
		t.Errorf("output should mention dry run, got:\n%s", buf.String())
	}
}

// TestSyncCommand_FlagsOverrideConfig verifies flag precedence.
func TestSyncCommand_FlagsOverrideConfig(t *testing.T) {
	runner := &fakeRunner{summary: &pipeline.Summary{
		RunID:      uuid.New(),
		StartedAt:  time.Now(),
		FinishedAt: time.Now(),
	}}

	cmd := NewSyncCommand(testSyncDeps(t, runner))
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{"--write", "--limit", "25", "--workers", "2"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if !runner.gotCfg.Write {
		t.Error("Write should be true with --write")
	}
	if runner.gotCfg.Limit != 25 {
		t.Errorf("Limit = %d, want 25", runner.gotCfg.Limit)
	}
	if runner.gotCfg.Workers != 2 {
		t.Errorf("Workers = %d, want 2", runner.gotCfg.Workers)
	}
}

// TestSyncCommand_SummaryOutput verifies the human-readable summary.
func TestSyncCommand_SummaryOutput(t *testing.T) {
	runner := &fakeRunner{summary: &pipeline.Summary{
		RunID:          uuid.New(),
		DryRun:         false,
		StartedAt:      time.Now(),
		FinishedAt:     time.Now().Add(900 * time.Millisecond),
		ReportsScanned: 12,
		ReportsFailed:  1,
		PairsFound:     9,
		Inserted:       5,
		Updated:        1,
		Unchanged:      1,
		Ambiguous:      1,
		Unmatched:      1,
		ScanTypes:      map[string]int{"CT": 7, "Ultrasound": 5},
	}}

	cmd := NewSyncCommand(testSyncDeps(t, runner))
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{"--write"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"Reports scanned: 12 (1 failed)",
		"Inserted: 5  Updated: 1  Unchanged: 1",
		"Ambiguous: 1  Unmatched: 1",
		"CT: 7, Ultrasound: 5",
		"need manual review",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q, got:\n%s", want, out)
		}
	}
}

// TestSyncCommand_JSONOutput verifies --output json yields JSON.
func TestSyncCommand_JSONOutput(t *testing.T) {
	runner := &fakeRunner{summary: &pipeline.Summary{
		RunID:      uuid.New(),
		DryRun:     true,
		StartedAt:  time.Now(),
		FinishedAt: time.Now(),
		Inserted:   3,
	}}

	cmd := NewSyncCommand(testSyncDeps(t, runner))
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{"--output", "json"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if !strings.Contains(buf.String(), "\"Inserted\": 3") {
		t.Errorf("JSON output missing inserted count, got:\n%s", buf.String())
	}
}
