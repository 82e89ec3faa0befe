// Package participants provides access to the role-tagged people attached to
// each procedure report, and to the user records behind them.
package participants

import "context"

// Role tags which side of the supervision relationship a participant is on.
type Role string

const (
	RoleTrainee   Role = "trainee"
	RoleAttending Role = "attending"
)

// Candidate is one participant row attached to a report. UserID is nil when
// the participant was entered free-text and never linked to a user record.
type Candidate struct {
	ID          int64
	ReportID    int64
	Role        Role
	UserID      *int64
	SourceLabel string
}

// Source provides participant candidates and user name lookups.
type Source interface {
	// ListByReport returns every participant attached to the report, in
	// stable insertion order.
	ListByReport(ctx context.Context, reportID int64) ([]Candidate, error)

	// UserNames returns the known name variants for each requested user ID:
	// preferred name, "first last", and last name, deduplicated. IDs with no
	// user record are simply absent from the map.
	UserNames(ctx context.Context, ids []int64) (map[int64][]string, error)
}
