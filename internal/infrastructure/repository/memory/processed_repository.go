package memory

import (
	"context"

	"github.com/riskibarqy/opendota-monitor/internal/domain/processed"
)

// ProcessedRepository keeps the processed-match set in memory only. Useful
// for tests and local runs where durability does not matter.
type ProcessedRepository struct {
	snapshot processed.Set
}

func NewProcessedRepository() *ProcessedRepository {
	return &ProcessedRepository{snapshot: processed.NewSet()}
}

func (r *ProcessedRepository) Load(_ context.Context) (processed.Set, error) {
	return r.snapshot.Clone(), nil
}

func (r *ProcessedRepository) Save(_ context.Context, set processed.Set) error {
	r.snapshot = set.Clone()
	return nil
}
