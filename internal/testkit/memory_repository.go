package testkit

import (
	"context"
	"fmt"
	"sync"

	"gosim/domain/core"
	"gosim/domain/result"
	"gosim/domain/run"
	"gosim/domain/summary"
	"gosim/ports"
)

// InMemoryRunRepository implements RunRepository for testing
type InMemoryRunRepository struct {
	runs      map[core.RunID]*run.Run
	trials    map[core.RunID][]ports.TrialRow
	summaries map[core.RunID]*summary.Table
	order     []core.RunID
	mu        sync.RWMutex
}

var _ ports.RunRepository = (*InMemoryRunRepository)(nil)

func NewInMemoryRunRepository() *InMemoryRunRepository {
	return &InMemoryRunRepository{
		runs:      make(map[core.RunID]*run.Run),
		trials:    make(map[core.RunID][]ports.TrialRow),
		summaries: make(map[core.RunID]*summary.Table),
	}
}

func (r *InMemoryRunRepository) SaveRun(ctx context.Context, rn *run.Run, trials *result.Table, sum *summary.Table) error {
	if err := rn.Manifest.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	id := rn.Manifest.RunID
	if _, exists := r.runs[id]; !exists {
		r.order = append(r.order, id)
	}
	stored := *rn
	r.runs[id] = &stored
	if trials != nil {
		r.trials[id] = ports.TrialRows(trials)
	}
	r.summaries[id] = sum
	return nil
}

func (r *InMemoryRunRepository) GetRun(ctx context.Context, id core.RunID) (*run.Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rn, ok := r.runs[id]
	if !ok {
		return nil, fmt.Errorf("%w %s", core.ErrRunNotFound, id)
	}
	copied := *rn
	return &copied, nil
}

// ListRuns returns runs newest first
func (r *InMemoryRunRepository) ListRuns(ctx context.Context, limit, offset int) ([]*run.Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := append([]core.RunID(nil), r.order...)
	for i, j := 0, len(ids)-1; i < j; i, j = i+1, j-1 {
		ids[i], ids[j] = ids[j], ids[i]
	}
	if offset >= len(ids) {
		return []*run.Run{}, nil
	}
	ids = ids[offset:]
	if limit > 0 && limit < len(ids) {
		ids = ids[:limit]
	}
	out := make([]*run.Run, len(ids))
	for i, id := range ids {
		copied := *r.runs[id]
		out[i] = &copied
	}
	return out, nil
}

func (r *InMemoryRunRepository) GetSummary(ctx context.Context, id core.RunID) (*summary.Table, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sum, ok := r.summaries[id]
	if !ok || sum == nil {
		return nil, fmt.Errorf("%w %s: no summary", core.ErrRunNotFound, id)
	}
	return sum, nil
}

func (r *InMemoryRunRepository) GetTrials(ctx context.Context, id core.RunID) ([]ports.TrialRow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.runs[id]; !ok {
		return nil, fmt.Errorf("%w %s", core.ErrRunNotFound, id)
	}
	return append([]ports.TrialRow(nil), r.trials[id]...), nil
}

func (r *InMemoryRunRepository) DeleteRun(ctx context.Context, id core.RunID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.runs[id]; !ok {
		return fmt.Errorf("%w %s", core.ErrRunNotFound, id)
	}
	delete(r.runs, id)
	delete(r.trials, id)
	delete(r.summaries, id)
	for i, other := range r.order {
		if other == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}
