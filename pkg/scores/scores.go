// Package scores persists EPA score assignments, one per participant.
package scores

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	ederrors "github.com/ocnguye/epa-dash-sub000/pkg/errors"
	"github.com/ocnguye/epa-dash-sub000/pkg/logging"
)

// Assignment is one score recorded against a participant.
type Assignment struct {
	ParticipantID int64
	Score         int
	Method        string
	AssignedAt    time.Time
}

// Outcome classifies what an upsert did.
type Outcome string

const (
	OutcomeInserted  Outcome = "inserted"
	OutcomeUpdated   Outcome = "updated"
	OutcomeUnchanged Outcome = "unchanged"
)

// Result describes one upsert. OldScore is set when Outcome is
// OutcomeUpdated.
type Result struct {
	Outcome  Outcome
	OldScore int
}

// Store reads and writes score assignments.
type Store interface {
	// Get returns the assignment for a participant, or ErrNotFound.
	Get(ctx context.Context, participantID int64) (*Assignment, error)

	// Upsert records a score for a participant, converging to the same
	// state no matter how many times it runs. Last write wins on score
	// conflicts; an equal score writes nothing.
	Upsert(ctx context.Context, a Assignment) (Result, error)
}

// Repository provides database operations for score assignments.
type Repository struct {
	pool   *pgxpool.Pool
	logger logging.Logger
}

// NewRepository creates a new score repository.
func NewRepository(pool *pgxpool.Pool, logger logging.Logger) *Repository {
	return &Repository{
		pool:   pool,
		logger: logger.With(logging.F("component", "score_repository")),
	}
}

// Get returns the assignment for a participant.
func (r *Repository) Get(ctx context.Context, participantID int64) (*Assignment, error) {
	query := `
		SELECT participant_id, score, method, assigned_at
		FROM epa_scores
		WHERE participant_id = $1
	`

	a := &Assignment{}
	err := r.pool.QueryRow(ctx, query, participantID).Scan(
		&a.ParticipantID, &a.Score, &a.Method, &a.AssignedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("assignment for participant %d: %w", participantID, ederrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}

	return a, nil
}

// Upsert records a score for a participant. The existing row is read under a
// row lock so the compare-and-write is atomic; the unique constraint on
// participant_id is the correctness guarantee against concurrent inserts.
func (r *Repository) Upsert(ctx context.Context, a Assignment) (Result, error) {
	if a.Score < 1 || a.Score > 5 {
		return Result{}, fmt.Errorf("score %d out of range: %w", a.Score, ederrors.ErrValidation)
	}
	if a.AssignedAt.IsZero() {
		a.AssignedAt = time.Now().UTC()
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var oldScore int
	err = tx.QueryRow(ctx,
		`SELECT score FROM epa_scores WHERE participant_id = $1 FOR UPDATE`,
		a.ParticipantID,
	).Scan(&oldScore)

	switch {
	case err == pgx.ErrNoRows:
		_, err = tx.Exec(ctx, `
			INSERT INTO epa_scores (participant_id, score, method, assigned_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (participant_id) DO UPDATE
			SET score = EXCLUDED.score, method = EXCLUDED.method, assigned_at = EXCLUDED.assigned_at
		`, a.ParticipantID, a.Score, a.Method, a.AssignedAt)
		if err != nil {
			return Result{}, fmt.Errorf("failed to insert assignment: %w", err)
		}
		if err := tx.Commit(ctx); err != nil {
			return Result{}, fmt.Errorf("failed to commit transaction: %w", err)
		}
		r.logger.Debug("Score inserted",
			logging.F("participant_id", a.ParticipantID),
			logging.F("score", a.Score),
			logging.F("method", a.Method))
		return Result{Outcome: OutcomeInserted}, nil

	case err != nil:
		return Result{}, fmt.Errorf("failed to read existing assignment: %w", err)

	case oldScore == a.Score:
		// Converged already; nothing to write.
		if err := tx.Commit(ctx); err != nil {
			return Result{}, fmt.Errorf("failed to commit transaction: %w", err)
		}
		return Result{Outcome: OutcomeUnchanged}, nil

	default:
		_, err = tx.Exec(ctx, `
			UPDATE epa_scores
			SET score = $2, method = $3, assigned_at = $4
			WHERE participant_id = $1
		`, a.ParticipantID, a.Score, a.Method, a.AssignedAt)
		if err != nil {
			return Result{}, fmt.Errorf("failed to update assignment: %w", err)
		}
		if err := tx.Commit(ctx); err != nil {
			return Result{}, fmt.Errorf("failed to commit transaction: %w", err)
		}
		r.logger.Info("Score updated",
			logging.F("participant_id", a.ParticipantID),
			logging.F("old_score", oldScore),
			logging.F("new_score", a.Score))
		return Result{Outcome: OutcomeUpdated, OldScore: oldScore}, nil
	}
}
