package participants

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ocnguye/epa-dash-sub000/pkg/logging"
)

// Repository provides database operations for report participants and users.
type Repository struct {
	pool   *pgxpool.Pool
	logger logging.Logger
}

// NewRepository creates a new participant repository.
func NewRepository(pool *pgxpool.Pool, logger logging.Logger) *Repository {
	return &Repository{
		pool:   pool,
		logger: logger.With(logging.F("component", "participant_repository")),
	}
}

// ListByReport returns every participant attached to the report.
func (r *Repository) ListByReport(ctx context.Context, reportID int64) ([]Candidate, error) {
	query := `
		SELECT id, report_id, role, user_id, COALESCE(source_label, '')
		FROM report_participants
		WHERE report_id = $1
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query, reportID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	defer rows.Close()

	var out []Candidate
	for rows.Next() {
		var c Candidate
		if err := rows.Scan(&c.ID, &c.ReportID, &c.Role, &c.UserID, &c.SourceLabel); err != nil {
			return nil, fmt.Errorf("failed to scan participant row: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read participant rows: %w", err)
	}

	return out, nil
}

// UserNames returns the known name variants for each requested user ID.
func (r *Repository) UserNames(ctx context.Context, ids []int64) (map[int64][]string, error) {
	result := make(map[int64][]string, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	query := `
		SELECT id,
		       COALESCE(preferred_name, ''),
		       COALESCE(first_name, ''),
		       COALESCE(last_name, '')
		FROM users
		WHERE id = ANY($1)
	`

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query user names: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var preferred, first, last string
		if err := rows.Scan(&id, &preferred, &first, &last); err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		result[id] = nameVariants(preferred, first, last)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read user rows: %w", err)
	}

	r.logger.Debug("User names loaded",
		logging.F("requested", len(ids)),
		logging.F("found", len(result)))

	return result, nil
}

// nameVariants builds the deduplicated name variant list for one user:
// preferred name, "first last", and bare last name.
func nameVariants(preferred, first, last string) []string {
	var variants []string
	seen := make(map[string]bool, 3)

	add := func(name string) {
		name = strings.TrimSpace(name)
		if name == "" {
			return
		}
		key := strings.ToLower(name)
		if seen[key] {
			return
		}
		seen[key] = true
		variants = append(variants, name)
	}

	add(preferred)
	if first != "" || last != "" {
		add(strings.TrimSpace(first + " " + last))
	}
	add(last)

	return variants
}
