package review

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ocnguye/epa-dash-sub000/pkg/logging"
)

// FileSink writes each review batch as a pretty-printed JSON file named
// after the run ID, under a fixed output directory.
type FileSink struct {
	dir    string
	logger logging.Logger
}

// NewFileSink creates a sink writing under dir, creating it if needed.
func NewFileSink(dir string, logger logging.Logger) (*FileSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create review directory: %w", err)
	}
	return &FileSink{
		dir:    dir,
		logger: logger.With(logging.F("component", "review_file_sink")),
	}, nil
}

// Flush writes the batch atomically: to a temp file first, then renamed into
// place, so a crashed run never leaves a truncated artifact.
func (s *FileSink) Flush(ctx context.Context, batch Batch) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(batch, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal review batch: %w", err)
	}

	final := filepath.Join(s.dir, fmt.Sprintf("review-%s.json", batch.RunID))
	tmp := final + ".tmp"

	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write review batch: %w", err)
	}
	if err := os.Rename(tmp, final); err != nil {
		return fmt.Errorf("failed to finalize review batch: %w", err)
	}

	s.logger.Info("Review batch written",
		logging.F("path", final),
		logging.F("cases", len(batch.Cases)))

	return nil
}

// MemorySink keeps flushed batches in memory for tests and previews.
type MemorySink struct {
	Batches []Batch
}

// Flush records the batch.
func (s *MemorySink) Flush(ctx context.Context, batch Batch) error {
	s.Batches = append(s.Batches, batch)
	return nil
}
