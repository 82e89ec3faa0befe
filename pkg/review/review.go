// Package review collects unresolved extraction cases and emits them as a
// single per-run artifact for human triage.
package review

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ocnguye/epa-dash-sub000/pkg/participants"
)

// Reason says why a case needs review.
type Reason string

const (
	ReasonNoMatch   Reason = "no_match"
	ReasonAmbiguous Reason = "ambiguous"
)

// CandidateSnapshot freezes the candidate state a reviewer needs to decide
// the case without re-querying the database.
type CandidateSnapshot struct {
	ParticipantID int64  `json:"participant_id"`
	Role          string `json:"role"`
	UserID        *int64 `json:"user_id,omitempty"`
	SourceLabel   string `json:"source_label"`
}

// Case is one unresolved (name, score) assertion.
type Case struct {
	ReportID   int64               `json:"report_id"`
	RawName    string              `json:"raw_name"`
	Score      int                 `json:"score"`
	Reason     Reason              `json:"reason"`
	Candidates []CandidateSnapshot `json:"candidates"`
}

// Batch is the full review output of one sync run. It is written once at
// end of run, never incrementally, so a reviewer consumes one file per run.
type Batch struct {
	RunID      uuid.UUID `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	DryRun     bool      `json:"dry_run"`
	Cases      []Case    `json:"cases"`
}

// Sink receives the review batch at end of run.
type Sink interface {
	Flush(ctx context.Context, batch Batch) error
}

// Snapshot converts participant candidates into review snapshots.
func Snapshot(cands []participants.Candidate) []CandidateSnapshot {
	out := make([]CandidateSnapshot, 0, len(cands))
	for _, c := range cands {
		out = append(out, CandidateSnapshot{
			ParticipantID: c.ID,
			Role:          string(c.Role),
			UserID:        c.UserID,
			SourceLabel:   c.SourceLabel,
		})
	}
	return out
}
