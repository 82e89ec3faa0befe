package pipeline

import (
	"context"

	"github.com/ocnguye/epa-dash-sub000/pkg/extract"
	"github.com/ocnguye/epa-dash-sub000/pkg/participants"
	"github.com/ocnguye/epa-dash-sub000/pkg/resolver"
	"github.com/ocnguye/epa-dash-sub000/pkg/scores"
)

// PreviewPair is one extracted assertion with its resolution and the outcome
// a write run would produce.
type PreviewPair struct {
	Assertion  extract.Assertion
	Resolution resolver.Resolution
	Outcome    scores.Outcome
}

// Detail is everything the pipeline would derive from one report, computed
// without writing.
type Detail struct {
	ReportID   int64
	ScanType   string
	Attending  string
	Trainee    string
	Candidates []participants.Candidate
	Pairs      []PreviewPair
}

// Preview runs the full extraction and resolution path for a single report
// and reports what a write run would do. Nothing is persisted.
func (p *Pipeline) Preview(ctx context.Context, reportID int64) (*Detail, error) {
	rep, err := p.reports.GetReport(ctx, reportID)
	if err != nil {
		return nil, err
	}

	detail := &Detail{
		ReportID:  rep.ID,
		ScanType:  string(extract.ClassifyScan(rep.Narrative)),
		Attending: extract.ExtractAttending(rep.Narrative),
		Trainee:   extract.ExtractTrainee(rep.Narrative),
	}

	cands, err := p.parts.ListByReport(ctx, rep.ID)
	if err != nil {
		return nil, err
	}
	detail.Candidates = cands

	idx, err := p.resolver.Prepare(ctx, cands)
	if err != nil {
		return nil, err
	}

	for _, pair := range extract.ExtractPairs(rep.Narrative) {
		pp := PreviewPair{
			Assertion:  pair,
			Resolution: idx.Resolve(pair.RawName, participants.RoleTrainee),
		}
		if pp.Resolution.Kind == resolver.KindUnique {
			outcome, err := p.apply(ctx, pp.Resolution, pair.Score, false)
			if err != nil {
				return nil, err
			}
			pp.Outcome = outcome
		}
		detail.Pairs = append(detail.Pairs, pp)
	}

	return detail, nil
}
