// Package reports provides read access to procedure reports.
package reports

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	ederrors "github.com/ocnguye/epa-dash-sub000/pkg/errors"
	"github.com/ocnguye/epa-dash-sub000/pkg/logging"
)

// Report is a procedure report with its free-text narrative.
type Report struct {
	ID        int64
	Narrative string
}

// Source lists candidate reports for a sync run and fetches single reports
// for preview.
type Source interface {
	// ListCandidates returns up to limit reports whose narrative mentions an
	// EPA score, oldest first. The coarse text filter happens in SQL; precise
	// extraction happens in the pipeline.
	ListCandidates(ctx context.Context, limit int) ([]Report, error)

	// GetReport returns a single report by ID, or ErrNotFound.
	GetReport(ctx context.Context, id int64) (*Report, error)
}

// Repository provides database operations for procedure reports.
type Repository struct {
	pool   *pgxpool.Pool
	logger logging.Logger
}

// NewRepository creates a new report repository.
func NewRepository(pool *pgxpool.Pool, logger logging.Logger) *Repository {
	return &Repository{
		pool:   pool,
		logger: logger.With(logging.F("component", "report_repository")),
	}
}

// ListCandidates returns up to limit reports whose narrative mentions "EPA".
func (r *Repository) ListCandidates(ctx context.Context, limit int) ([]Report, error) {
	query := `
		SELECT id, narrative_text
		FROM reports
		WHERE narrative_text ILIKE '%EPA%'
		ORDER BY id
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidate reports: %w", err)
	}
	defer rows.Close()

	var out []Report
	for rows.Next() {
		var rep Report
		if err := rows.Scan(&rep.ID, &rep.Narrative); err != nil {
			return nil, fmt.Errorf("failed to scan report row: %w", err)
		}
		out = append(out, rep)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read report rows: %w", err)
	}

	r.logger.Debug("Candidate reports listed",
		logging.F("count", len(out)),
		logging.F("limit", limit))

	return out, nil
}

// GetReport returns a single report by ID.
func (r *Repository) GetReport(ctx context.Context, id int64) (*Report, error) {
	query := `
		SELECT id, narrative_text
		FROM reports
		WHERE id = $1
	`

	rep := &Report{}
	err := r.pool.QueryRow(ctx, query, id).Scan(&rep.ID, &rep.Narrative)
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("report %d: %w", id, ederrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	return rep, nil
}
