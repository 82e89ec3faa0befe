// Package pipeline orchestrates sync runs: extracting EPA assertions from
// candidate reports, resolving them against report participants, and
// recording scores.
package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	ederrors "github.com/ocnguye/epa-dash-sub000/pkg/errors"
	"github.com/ocnguye/epa-dash-sub000/pkg/extract"
	"github.com/ocnguye/epa-dash-sub000/pkg/logging"
	"github.com/ocnguye/epa-dash-sub000/pkg/participants"
	"github.com/ocnguye/epa-dash-sub000/pkg/reports"
	"github.com/ocnguye/epa-dash-sub000/pkg/resolver"
	"github.com/ocnguye/epa-dash-sub000/pkg/review"
	"github.com/ocnguye/epa-dash-sub000/pkg/scores"
)

// Config controls one sync run.
type Config struct {
	// Limit caps how many candidate reports the run considers.
	Limit int

	// Write applies score assignments. When false the run is a dry run:
	// outcomes are computed against current store state but nothing is
	// written.
	Write bool

	// Workers sets how many reports are processed concurrently.
	// Defaults to 4.
	Workers int
}

const defaultWorkers = 4

// Summary is the final tally of one sync run.
type Summary struct {
	RunID      uuid.UUID
	DryRun     bool
	StartedAt  time.Time
	FinishedAt time.Time

	ReportsScanned int
	ReportsFailed  int
	PairsFound     int

	Inserted  int
	Updated   int
	Unchanged int
	Ambiguous int
	Unmatched int

	// ScanTypes tallies classified imaging modalities across the run.
	ScanTypes map[string]int

	// AttendingFound and TraineeFound count reports whose narrative
	// yielded an attending or trainee name.
	AttendingFound int
	TraineeFound   int
}

// Pipeline wires the extractors, resolver, and stores into a batch runner.
type Pipeline struct {
	reports  reports.Source
	parts    participants.Source
	store    scores.Store
	sink     review.Sink
	resolver *resolver.Resolver
	metrics  *Metrics
	tracer   *Tracer
	logger   logging.Logger
}

// Option configures the pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger.
func WithLogger(logger logging.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

// WithMetrics sets the metrics set. Useful for tests with private
// registries.
func WithMetrics(m *Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// New creates a pipeline over the given sources and sinks.
func New(rs reports.Source, ps participants.Source, ss scores.Store, sink review.Sink, opts ...Option) *Pipeline {
	p := &Pipeline{
		reports: rs,
		parts:   ps,
		store:   ss,
		sink:    sink,
		tracer:  NewTracer(),
		logger:  logging.MustGlobal(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.metrics == nil {
		p.metrics = sharedMetrics()
	}
	p.logger = p.logger.With(logging.F("component", "sync_pipeline"))
	p.resolver = resolver.New(ps, resolver.WithLogger(p.logger))
	return p
}

var (
	sharedMetricsOnce sync.Once
	sharedMetricsSet  *Metrics
)

// sharedMetrics registers the default metric set exactly once per process.
func sharedMetrics() *Metrics {
	sharedMetricsOnce.Do(func() {
		sharedMetricsSet = DefaultMetrics()
	})
	return sharedMetricsSet
}

// reportResult carries one report's tallies back to the aggregator.
type reportResult struct {
	reportID  int64
	scanType  string
	attending string
	trainee   string
	pairs     int
	inserted  int
	updated   int
	unchanged int
	ambiguous int
	unmatched int
	cases     []review.Case
	err       error
}

// Run executes one sync run and returns its summary. Per-report failures
// are logged and counted; only listing candidates or flushing the review
// batch can fail the run as a whole.
func (p *Pipeline) Run(ctx context.Context, cfg Config) (*Summary, error) {
	runID := uuid.New()
	logger := p.logger.With(logging.F("run_id", runID.String()))

	ctx, span := p.tracer.StartRunSpan(ctx, runID.String(), !cfg.Write)
	defer span.End()

	summary := &Summary{
		RunID:     runID,
		DryRun:    !cfg.Write,
		StartedAt: time.Now().UTC(),
		ScanTypes: make(map[string]int),
	}

	reps, err := p.reports.ListCandidates(ctx, cfg.Limit)
	if err != nil {
		return nil, ederrors.WrapStage(ederrors.StageFetch, 0, err)
	}
	logger.Info("Sync run started",
		logging.F("candidates", len(reps)),
		logging.F("dry_run", summary.DryRun))

	workers := cfg.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	if workers > len(reps) {
		workers = len(reps)
	}

	jobs := make(chan reports.Report)
	results := make(chan reportResult)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for rep := range jobs {
				results <- p.processReport(ctx, rep, cfg.Write, logger)
			}
		}()
	}
	go func() {
		defer close(jobs)
		for _, rep := range reps {
			select {
			case jobs <- rep:
			case <-ctx.Done():
				return
			}
		}
	}()
	go func() {
		wg.Wait()
		close(results)
	}()

	var cases []review.Case
	for res := range results {
		summary.ReportsScanned++
		if res.err != nil {
			summary.ReportsFailed++
			p.metrics.ReportsTotal.WithLabelValues("failed").Inc()
			logger.Error("Report processing failed",
				logging.Err(res.err),
				logging.F("report_id", res.reportID))
			continue
		}
		p.metrics.ReportsTotal.WithLabelValues("ok").Inc()

		if res.scanType != "" {
			summary.ScanTypes[res.scanType]++
		}
		if res.attending != "" {
			summary.AttendingFound++
		}
		if res.trainee != "" {
			summary.TraineeFound++
		}
		summary.PairsFound += res.pairs
		summary.Inserted += res.inserted
		summary.Updated += res.updated
		summary.Unchanged += res.unchanged
		summary.Ambiguous += res.ambiguous
		summary.Unmatched += res.unmatched
		cases = append(cases, res.cases...)
	}
	summary.FinishedAt = time.Now().UTC()

	batch := review.Batch{
		RunID:      runID,
		StartedAt:  summary.StartedAt,
		FinishedAt: summary.FinishedAt,
		DryRun:     summary.DryRun,
		Cases:      cases,
	}
	if err := p.sink.Flush(ctx, batch); err != nil {
		return summary, ederrors.WrapStage(ederrors.StageReview, 0, err)
	}

	logger.Info("Sync run finished",
		logging.F("reports_scanned", summary.ReportsScanned),
		logging.F("reports_failed", summary.ReportsFailed),
		logging.F("pairs", summary.PairsFound),
		logging.F("inserted", summary.Inserted),
		logging.F("updated", summary.Updated),
		logging.F("unchanged", summary.Unchanged),
		logging.F("review_cases", len(cases)))

	return summary, nil
}

// processReport runs extraction and resolution for one report. Store
// failures abort this report's unit of work, never the run.
func (p *Pipeline) processReport(ctx context.Context, rep reports.Report, write bool, logger logging.Logger) reportResult {
	start := time.Now()
	ctx, span := p.tracer.StartReportSpan(ctx, rep.ID)
	defer span.End()
	defer func() {
		p.metrics.ReportSeconds.Observe(time.Since(start).Seconds())
	}()

	res := reportResult{reportID: rep.ID}
	res.scanType = string(extract.ClassifyScan(rep.Narrative))
	res.attending = extract.ExtractAttending(rep.Narrative)
	res.trainee = extract.ExtractTrainee(rep.Narrative)
	span.SetAttributes(attribute.String(AttrScanType, res.scanType))

	pairs := extract.ExtractPairs(rep.Narrative)
	span.SetAttributes(attribute.Int(AttrPairs, len(pairs)))
	logger.Debug("Report extracted",
		logging.F("report_id", rep.ID),
		logging.F("scan_type", res.scanType),
		logging.F("attending", res.attending),
		logging.F("trainee", res.trainee),
		logging.F("pairs", len(pairs)))
	if len(pairs) == 0 {
		// Extraction miss: not an error, just zero work for this report.
		return res
	}
	res.pairs = len(pairs)

	cands, err := p.parts.ListByReport(ctx, rep.ID)
	if err != nil {
		res.err = ederrors.WrapStage(ederrors.StageFetch, rep.ID, err)
		return res
	}
	idx, err := p.resolver.Prepare(ctx, cands)
	if err != nil {
		res.err = ederrors.WrapStage(ederrors.StageResolve, rep.ID, err)
		return res
	}

	for _, pair := range pairs {
		resolution := idx.Resolve(pair.RawName, participants.RoleTrainee)
		p.metrics.PairsTotal.WithLabelValues(string(resolution.Kind)).Inc()

		switch resolution.Kind {
		case resolver.KindUnique:
			if resolution.Method == resolver.MethodSoleCandidate {
				logger.Warn("Assigning via sole-candidate fallback",
					logging.F("report_id", rep.ID),
					logging.F("raw_name", pair.RawName),
					logging.F("participant_id", resolution.Candidate.ID))
			}
			outcome, err := p.apply(ctx, resolution, pair.Score, write)
			if err != nil {
				res.err = ederrors.WrapStage(ederrors.StageAssign, rep.ID, err)
				return res
			}
			p.metrics.AssignmentsTotal.WithLabelValues(string(outcome)).Inc()
			switch outcome {
			case scores.OutcomeInserted:
				res.inserted++
			case scores.OutcomeUpdated:
				res.updated++
			case scores.OutcomeUnchanged:
				res.unchanged++
			}

		case resolver.KindAmbiguous:
			res.ambiguous++
			p.metrics.ReviewCasesTotal.WithLabelValues(string(review.ReasonAmbiguous)).Inc()
			res.cases = append(res.cases, review.Case{
				ReportID:   rep.ID,
				RawName:    pair.RawName,
				Score:      pair.Score,
				Reason:     review.ReasonAmbiguous,
				Candidates: review.Snapshot(resolution.Matches),
			})

		case resolver.KindNoMatch:
			res.unmatched++
			p.metrics.ReviewCasesTotal.WithLabelValues(string(review.ReasonNoMatch)).Inc()
			res.cases = append(res.cases, review.Case{
				ReportID:   rep.ID,
				RawName:    pair.RawName,
				Score:      pair.Score,
				Reason:     review.ReasonNoMatch,
				Candidates: review.Snapshot(cands),
			})
		}
	}

	return res
}

// apply records (or, on a dry run, predicts) one score assignment.
func (p *Pipeline) apply(ctx context.Context, resolution resolver.Resolution, score int, write bool) (scores.Outcome, error) {
	participantID := resolution.Candidate.ID

	if write {
		result, err := p.store.Upsert(ctx, scores.Assignment{
			ParticipantID: participantID,
			Score:         score,
			Method:        string(resolution.Method),
		})
		if err != nil {
			return "", err
		}
		return result.Outcome, nil
	}

	existing, err := p.store.Get(ctx, participantID)
	if ederrors.IsNotFound(err) {
		return scores.OutcomeInserted, nil
	}
	if err != nil {
		return "", err
	}
	if existing.Score == score {
		return scores.OutcomeUnchanged, nil
	}
	return scores.OutcomeUpdated, nil
}
