package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ederrors "github.com/ocnguye/epa-dash-sub000/pkg/errors"
	"github.com/ocnguye/epa-dash-sub000/pkg/logging"
	"github.com/ocnguye/epa-dash-sub000/pkg/participants"
	"github.com/ocnguye/epa-dash-sub000/pkg/reports"
	"github.com/ocnguye/epa-dash-sub000/pkg/review"
	"github.com/ocnguye/epa-dash-sub000/pkg/scores"
)

type fakeReports struct {
	reps []reports.Report
	err  error
}

func (f *fakeReports) ListCandidates(ctx context.Context, limit int) ([]reports.Report, error) {
	if f.err != nil {
		return nil, f.err
	}
	if limit < len(f.reps) {
		return f.reps[:limit], nil
	}
	return f.reps, nil
}

func (f *fakeReports) GetReport(ctx context.Context, id int64) (*reports.Report, error) {
	for _, r := range f.reps {
		if r.ID == id {
			rep := r
			return &rep, nil
		}
	}
	return nil, fmt.Errorf("report %d: %w", id, ederrors.ErrNotFound)
}

type fakeParts struct {
	byReport map[int64][]participants.Candidate
	names    map[int64][]string
}

func (f *fakeParts) ListByReport(ctx context.Context, reportID int64) ([]participants.Candidate, error) {
	return f.byReport[reportID], nil
}

func (f *fakeParts) UserNames(ctx context.Context, ids []int64) (map[int64][]string, error) {
	out := make(map[int64][]string)
	for _, id := range ids {
		if n, ok := f.names[id]; ok {
			out[id] = n
		}
	}
	return out, nil
}

type memStore struct {
	mu      sync.Mutex
	rows    map[int64]scores.Assignment
	failFor map[int64]bool
}

func newMemStore() *memStore {
	return &memStore{rows: map[int64]scores.Assignment{}, failFor: map[int64]bool{}}
}

func (s *memStore) Get(ctx context.Context, participantID int64) (*scores.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.rows[participantID]
	if !ok {
		return nil, fmt.Errorf("participant %d: %w", participantID, ederrors.ErrNotFound)
	}
	return &a, nil
}

func (s *memStore) Upsert(ctx context.Context, a scores.Assignment) (scores.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failFor[a.ParticipantID] {
		return scores.Result{}, errors.New("connection reset")
	}
	old, ok := s.rows[a.ParticipantID]
	s.rows[a.ParticipantID] = a
	switch {
	case !ok:
		return scores.Result{Outcome: scores.OutcomeInserted}, nil
	case old.Score == a.Score:
		return scores.Result{Outcome: scores.OutcomeUnchanged}, nil
	default:
		return scores.Result{Outcome: scores.OutcomeUpdated, OldScore: old.Score}, nil
	}
}

const (
	uniqueNarrative    = "Procedural Personnel:\nJane Doe Trainee EPA: 4\n\nCT-guided biopsy of the left lower lobe."
	ambiguousNarrative = "Procedural Personnel:\nA. Smith Trainee EPA: 3\n\nUltrasound-guided thoracentesis."
)

func testPipeline(t *testing.T, rs *fakeReports, ps *fakeParts, store scores.Store, sink review.Sink) *Pipeline {
	t.Helper()
	return New(rs, ps, store, sink,
		WithLogger(logging.NewNopLogger()),
		WithMetrics(NewMetrics(prometheus.NewRegistry())))
}

func TestRun_EndToEnd(t *testing.T) {
	rs := &fakeReports{reps: []reports.Report{
		{ID: 1, Narrative: uniqueNarrative},
		{ID: 2, Narrative: ambiguousNarrative},
	}}
	ps := &fakeParts{byReport: map[int64][]participants.Candidate{
		1: {
			{ID: 10, ReportID: 1, Role: participants.RoleTrainee, SourceLabel: "Jane Doe"},
			{ID: 11, ReportID: 1, Role: participants.RoleAttending, SourceLabel: "John Roe"},
		},
		2: {
			{ID: 20, ReportID: 2, Role: participants.RoleTrainee, SourceLabel: "Jane Smith"},
			{ID: 21, ReportID: 2, Role: participants.RoleTrainee, SourceLabel: "John Smith"},
		},
	}}
	store := newMemStore()
	sink := &review.MemorySink{}

	summary, err := testPipeline(t, rs, ps, store, sink).Run(context.Background(), Config{Limit: 10, Write: true})
	require.NoError(t, err)

	assert.Equal(t, 2, summary.ReportsScanned)
	assert.Equal(t, 0, summary.ReportsFailed)
	assert.Equal(t, 2, summary.PairsFound)
	assert.Equal(t, 1, summary.Inserted)
	assert.Equal(t, 1, summary.Ambiguous)
	assert.Equal(t, 0, summary.Unmatched)
	assert.False(t, summary.DryRun)
	assert.Equal(t, 1, summary.ScanTypes["CT"])
	assert.Equal(t, 1, summary.ScanTypes["Ultrasound"])

	// Jane Doe's score landed on her participant row.
	a, err := store.Get(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 4, a.Score)
	assert.Equal(t, "exact_name", a.Method)

	// One review batch, one ambiguous case, with both Smith candidates.
	require.Len(t, sink.Batches, 1)
	batch := sink.Batches[0]
	assert.Equal(t, summary.RunID, batch.RunID)
	require.Len(t, batch.Cases, 1)
	c := batch.Cases[0]
	assert.Equal(t, review.ReasonAmbiguous, c.Reason)
	assert.Equal(t, int64(2), c.ReportID)
	assert.Equal(t, "A. Smith", c.RawName)
	assert.Equal(t, 3, c.Score)
	assert.Len(t, c.Candidates, 2)
}

func TestRun_DryRunWritesNothing(t *testing.T) {
	rs := &fakeReports{reps: []reports.Report{{ID: 1, Narrative: uniqueNarrative}}}
	ps := &fakeParts{byReport: map[int64][]participants.Candidate{
		1: {{ID: 10, ReportID: 1, Role: participants.RoleTrainee, SourceLabel: "Jane Doe"}},
	}}
	store := newMemStore()
	sink := &review.MemorySink{}

	summary, err := testPipeline(t, rs, ps, store, sink).Run(context.Background(), Config{Limit: 10, Write: false})
	require.NoError(t, err)

	assert.True(t, summary.DryRun)
	assert.Equal(t, 1, summary.Inserted, "dry run should predict the insert")
	assert.Empty(t, store.rows, "dry run must not write")

	require.Len(t, sink.Batches, 1)
	assert.True(t, sink.Batches[0].DryRun)
}

func TestRun_Idempotent(t *testing.T) {
	rs := &fakeReports{reps: []reports.Report{{ID: 1, Narrative: uniqueNarrative}}}
	ps := &fakeParts{byReport: map[int64][]participants.Candidate{
		1: {{ID: 10, ReportID: 1, Role: participants.RoleTrainee, SourceLabel: "Jane Doe"}},
	}}
	store := newMemStore()
	p := testPipeline(t, rs, ps, store, &review.MemorySink{})

	first, err := p.Run(context.Background(), Config{Limit: 10, Write: true})
	require.NoError(t, err)
	assert.Equal(t, 1, first.Inserted)

	second, err := p.Run(context.Background(), Config{Limit: 10, Write: true})
	require.NoError(t, err)
	assert.Equal(t, 0, second.Inserted)
	assert.Equal(t, 1, second.Unchanged, "re-run must converge without writes")
}

func TestRun_StoreFailureAbortsReportOnly(t *testing.T) {
	rs := &fakeReports{reps: []reports.Report{
		{ID: 1, Narrative: uniqueNarrative},
		{ID: 2, Narrative: "Procedural Personnel:\nBob Stone Trainee EPA: 5\n\nMRI brain."},
	}}
	ps := &fakeParts{byReport: map[int64][]participants.Candidate{
		1: {{ID: 10, ReportID: 1, Role: participants.RoleTrainee, SourceLabel: "Jane Doe"}},
		2: {{ID: 20, ReportID: 2, Role: participants.RoleTrainee, SourceLabel: "Bob Stone"}},
	}}
	store := newMemStore()
	store.failFor[10] = true
	sink := &review.MemorySink{}

	summary, err := testPipeline(t, rs, ps, store, sink).Run(context.Background(), Config{Limit: 10, Write: true, Workers: 1})
	require.NoError(t, err, "a store failure must not fail the run")

	assert.Equal(t, 2, summary.ReportsScanned)
	assert.Equal(t, 1, summary.ReportsFailed)
	assert.Equal(t, 1, summary.Inserted)

	_, err = store.Get(context.Background(), 20)
	assert.NoError(t, err, "the healthy report should still be processed")
}

func TestRun_ExtractionMissIsNotAFailure(t *testing.T) {
	rs := &fakeReports{reps: []reports.Report{{ID: 1, Narrative: "CT chest without contrast. Unremarkable."}}}
	ps := &fakeParts{byReport: map[int64][]participants.Candidate{}}
	store := newMemStore()

	summary, err := testPipeline(t, rs, ps, store, &review.MemorySink{}).Run(context.Background(), Config{Limit: 10, Write: true})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.ReportsScanned)
	assert.Equal(t, 0, summary.ReportsFailed)
	assert.Equal(t, 0, summary.PairsFound)
}

func TestRun_RespectsLimit(t *testing.T) {
	rs := &fakeReports{reps: []reports.Report{
		{ID: 1, Narrative: "no pairs here"},
		{ID: 2, Narrative: "no pairs here"},
		{ID: 3, Narrative: "no pairs here"},
	}}
	ps := &fakeParts{}
	summary, err := testPipeline(t, rs, ps, newMemStore(), &review.MemorySink{}).Run(context.Background(), Config{Limit: 2, Write: false})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.ReportsScanned)
}

func TestPreview(t *testing.T) {
	rs := &fakeReports{reps: []reports.Report{{
		ID: 1,
		Narrative: "Procedural Personnel: Resident(s) PGY1-5: Jane Doe\n" +
			"Attending: Dr. John Roe, MD\n\n" +
			"Jane Doe Trainee EPA: 4\nCT-guided biopsy.",
	}}}
	ps := &fakeParts{byReport: map[int64][]participants.Candidate{
		1: {
			{ID: 10, ReportID: 1, Role: participants.RoleTrainee, SourceLabel: "Jane Doe"},
			{ID: 11, ReportID: 1, Role: participants.RoleAttending, SourceLabel: "John Roe"},
		},
	}}
	store := newMemStore()
	p := testPipeline(t, rs, ps, store, &review.MemorySink{})

	detail, err := p.Preview(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, "CT", detail.ScanType)
	assert.Equal(t, "John Roe", detail.Attending)
	assert.Equal(t, "Jane Doe", detail.Trainee)
	assert.Len(t, detail.Candidates, 2)
	require.Len(t, detail.Pairs, 1)
	assert.Equal(t, "Jane Doe", detail.Pairs[0].Assertion.RawName)
	assert.Equal(t, 4, detail.Pairs[0].Assertion.Score)
	assert.Equal(t, scores.OutcomeInserted, detail.Pairs[0].Outcome)
	assert.Empty(t, store.rows, "preview must not write")

	_, err = p.Preview(context.Background(), 99)
	assert.True(t, ederrors.IsNotFound(err))
}
