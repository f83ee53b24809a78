package memory

import (
	"context"
	"sync"

	fees "library-fees/internal/fees/domain"
)

// ReportRunRepository is an in-memory repository for report runs.
type ReportRunRepository struct {
	mu    sync.RWMutex
	order []string
	data  map[string]*fees.ReportRun
}

// NewReportRunRepository constructs a repository.
func NewReportRunRepository() *ReportRunRepository {
	return &ReportRunRepository{data: make(map[string]*fees.ReportRun)}
}

// Save stores a run (overwrites an existing id).
func (r *ReportRunRepository) Save(ctx context.Context, run *fees.ReportRun) error {
	_ = ctx
	if run == nil {
		return fees.ErrNilReportRun
	}
	copy := run.Clone()
	r.mu.Lock()
	if _, ok := r.data[run.ID]; !ok {
		r.order = append(r.order, run.ID)
	}
	r.data[run.ID] = copy
	r.mu.Unlock()
	return nil
}

// Get loads a run with its rows.
func (r *ReportRunRepository) Get(ctx context.Context, id string) (*fees.ReportRun, error) {
	_ = ctx
	r.mu.RLock()
	run := r.data[id]
	r.mu.RUnlock()
	if run == nil {
		return nil, fees.ErrReportRunNotFound
	}
	return run.Clone(), nil
}

// ListRecent returns runs newest first without rows.
func (r *ReportRunRepository) ListRecent(ctx context.Context, branchID string, limit int) ([]fees.ReportRun, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []fees.ReportRun
	for i := len(r.order) - 1; i >= 0; i-- {
		run := r.data[r.order[i]]
		if branchID != "" && run.BranchID != branchID {
			continue
		}
		summary := *run
		summary.Rows = nil
		result = append(result, summary)
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}
