package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ocnguye/epa-dash-sub000/config"
	"github.com/ocnguye/epa-dash-sub000/pkg/db"
)

// HealthReport holds the results of the connectivity checks.
type HealthReport struct {
	Database DatabaseHealth `json:"database"`
	Cache    *CacheHealth   `json:"cache,omitempty"`
}

// DatabaseHealth describes the dashboard database check.
type DatabaseHealth struct {
	Healthy       bool    `json:"healthy"`
	LatencyMs     float64 `json:"latency_ms"`
	TotalConns    int32   `json:"total_conns"`
	IdleConns     int32   `json:"idle_conns"`
	AcquiredConns int32   `json:"acquired_conns"`
	Error         string  `json:"error,omitempty"`
}

// CacheHealth describes the optional Redis check.
type CacheHealth struct {
	Healthy   bool    `json:"healthy"`
	Addr      string  `json:"addr"`
	LatencyMs float64 `json:"latency_ms"`
	Error     string  `json:"error,omitempty"`
}

// HealthCommandDeps holds the dependencies for the health command.
type HealthCommandDeps struct {
	LoadConfig func() (*config.CLIConfig, error)
	Check      func(ctx context.Context, cfg *config.CLIConfig) *HealthReport
}

// DefaultHealthDeps returns the default dependencies for production use.
func DefaultHealthDeps() *HealthCommandDeps {
	return &HealthCommandDeps{
		LoadConfig: config.LoadConfig,
		Check:      runHealthChecks,
	}
}

// NewHealthCommand creates the health command.
func NewHealthCommand(deps *HealthCommandDeps) *cobra.Command {
	if deps == nil {
		deps = DefaultHealthDeps()
	}

	var output string

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check connectivity to the dashboard database and cache",
		Long: `Check that the dashboard database is reachable and, when a Redis cache
is configured, that it responds to pings.

The command exits non-zero when the database check fails. A failing
cache check is reported but does not fail the command, because sync
runs degrade gracefully without the cache.`,
		Example: `  epadash health
  epadash health --output json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := deps.LoadConfig()
			if err != nil {
				return fmt.Errorf("loading configuration: %w", err)
			}

			report := deps.Check(cmd.Context(), cfg)

			if resolveFormat(cfg, output) == config.OutputFormatJSON {
				if err := outputJSON(cmd.OutOrStdout(), report); err != nil {
					return err
				}
			} else {
				renderHealth(cmd, report)
			}

			if !report.Database.Healthy {
				return fmt.Errorf("database is unreachable")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output format: text, json")

	return cmd
}

// runHealthChecks performs the real connectivity checks.
func runHealthChecks(ctx context.Context, cfg *config.CLIConfig) *HealthReport {
	report := &HealthReport{}

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := connectDatabase(checkCtx, cfg)
	if err != nil {
		report.Database.Error = err.Error()
	} else {
		defer db.Close(pool)
		status := db.Check(checkCtx, pool)
		report.Database.Healthy = status.Healthy
		report.Database.LatencyMs = float64(status.Latency.Microseconds()) / 1000
		report.Database.TotalConns = status.TotalConns
		report.Database.IdleConns = status.IdleConns
		report.Database.AcquiredConns = status.AcquiredConns
		if status.Error != nil {
			report.Database.Error = status.Error.Error()
		}
	}

	if rdb := connectRedis(cfg); rdb != nil {
		defer rdb.Close()
		cache := &CacheHealth{Addr: cfg.Redis.Addr}
		start := time.Now()
		if err := rdb.Ping(checkCtx).Err(); err != nil {
			cache.Error = err.Error()
		} else {
			cache.Healthy = true
		}
		cache.LatencyMs = float64(time.Since(start).Microseconds()) / 1000
		report.Cache = cache
	}

	return report
}

// renderHealth prints the health report in human-readable form.
func renderHealth(cmd *cobra.Command, report *HealthReport) {
	out := cmd.OutOrStdout()

	dbStatus := "UNHEALTHY"
	if report.Database.Healthy {
		dbStatus = "HEALTHY"
	}
	fmt.Fprintf(out, "Database: %s\n", dbStatus)
	if report.Database.Healthy {
		fmt.Fprintf(out, "  Latency:     %.1fms\n", report.Database.LatencyMs)
		fmt.Fprintf(out, "  Connections: %d total, %d idle, %d acquired\n",
			report.Database.TotalConns, report.Database.IdleConns, report.Database.AcquiredConns)
	}
	if report.Database.Error != "" {
		fmt.Fprintf(out, "  Error: %s\n", report.Database.Error)
	}

	if report.Cache == nil {
		fmt.Fprintln(out, "Cache: not configured")
		return
	}
	cacheStatus := "UNHEALTHY"
	if report.Cache.Healthy {
		cacheStatus = "HEALTHY"
	}
	fmt.Fprintf(out, "Cache: %s (%s)\n", cacheStatus, report.Cache.Addr)
	if report.Cache.Healthy {
		fmt.Fprintf(out, "  Latency: %.1fms\n", report.Cache.LatencyMs)
	}
	if report.Cache.Error != "" {
		fmt.Fprintf(out, "  Error: %s\n", report.Cache.Error)
	}
}
