package scores

import (
	"context"
	"testing"

	ederrors "github.com/ocnguye/epa-dash-sub000/pkg/errors"
	"github.com/ocnguye/epa-dash-sub000/pkg/logging"
)

func TestUpsert_RejectsOutOfRangeScores(t *testing.T) {
	repo := NewRepository(nil, logging.NewNopLogger())

	for _, score := range []int{0, -1, 6, 100} {
		_, err := repo.Upsert(context.Background(), Assignment{ParticipantID: 1, Score: score})
		if !ederrors.IsValidation(err) {
			t.Errorf("Upsert(score=%d) error = %v, want validation error", score, err)
		}
	}
}
