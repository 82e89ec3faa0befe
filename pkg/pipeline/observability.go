package pipeline

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the name of the tracer for sync operations.
const TracerName = "epadash-sync"

// Span attribute keys.
const (
	AttrRunID    = "run_id"
	AttrReportID = "report_id"
	AttrDryRun   = "dry_run"
	AttrScanType = "scan_type"
	AttrPairs    = "pairs"
)

// Metrics holds all Prometheus metrics for the sync pipeline.
type Metrics struct {
	ReportsTotal     *prometheus.CounterVec
	PairsTotal       *prometheus.CounterVec
	AssignmentsTotal *prometheus.CounterVec
	ReviewCasesTotal *prometheus.CounterVec
	ReportSeconds    prometheus.Histogram
}

// DefaultMetrics creates metrics on the default registerer.
func DefaultMetrics() *Metrics {
	return NewMetrics(prometheus.DefaultRegisterer)
}

// NewMetrics creates a new set of sync pipeline metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ReportsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "epadash_sync_reports_total",
				Help: "Reports processed per sync run, by status",
			},
			[]string{"status"},
		),
		PairsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "epadash_sync_pairs_total",
				Help: "Extracted (name, score) pairs, by resolution kind",
			},
			[]string{"resolution"},
		),
		AssignmentsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "epadash_sync_assignments_total",
				Help: "Score assignment outcomes",
			},
			[]string{"outcome"},
		),
		ReviewCasesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "epadash_sync_review_cases_total",
				Help: "Review cases emitted, by reason",
			},
			[]string{"reason"},
		),
		ReportSeconds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "epadash_sync_report_seconds",
				Help:    "Wall time spent processing one report",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
		),
	}
}

// Tracer provides spans for sync runs and per-report processing.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer creates a pipeline tracer.
func NewTracer() *Tracer {
	return &Tracer{tracer: otel.Tracer(TracerName)}
}

// StartRunSpan starts the root span for one sync run.
func (t *Tracer) StartRunSpan(ctx context.Context, runID string, dryRun bool) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "sync.run",
		trace.WithAttributes(
			attribute.String(AttrRunID, runID),
			attribute.Bool(AttrDryRun, dryRun),
		),
	)
}

// StartReportSpan starts a span for processing one report.
func (t *Tracer) StartReportSpan(ctx context.Context, reportID int64) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "sync.report",
		trace.WithAttributes(
			attribute.Int64(AttrReportID, reportID),
		),
	)
}
