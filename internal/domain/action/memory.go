package action

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/turtacn/CashFlow-Sentinel/pkg/errors"
)

// MemoryRepository is a threadsafe in-memory Repository used by the CLI
// workflows and tests, where no database is configured.
type MemoryRepository struct {
	mu      sync.RWMutex
	actions map[string]*Action
}

// NewMemoryRepository returns an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{actions: make(map[string]*Action)}
}

func (r *MemoryRepository) Save(_ context.Context, a *Action) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.actions[a.ID]; exists {
		return errors.New(errors.ErrCodeConflict, "action already exists").WithDetail("action_id=" + a.ID)
	}
	clone := *a
	r.actions[a.ID] = &clone
	return nil
}

func (r *MemoryRepository) SaveBatch(ctx context.Context, actions []*Action) error {
	for _, a := range actions {
		if err := r.Save(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id string) (*Action, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.actions[id]
	if !ok {
		return nil, errors.New(errors.ErrCodeAttemptNotFound, "action not found").WithDetail("action_id=" + id)
	}
	clone := *a
	return &clone, nil
}

func (r *MemoryRepository) List(_ context.Context, f Filter) ([]*Action, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Action, 0, len(r.actions))
	for _, a := range r.actions {
		if !matches(a, f) {
			continue
		}
		clone := *a
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ScheduledAt.Equal(out[j].ScheduledAt) {
			return out[i].ScheduledAt.Before(out[j].ScheduledAt)
		}
		return out[i].ID < out[j].ID
	})
	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return nil, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(out) {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r *MemoryRepository) Update(_ context.Context, a *Action) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.actions[a.ID]; !ok {
		return errors.New(errors.ErrCodeAttemptNotFound, "action not found").WithDetail("action_id=" + a.ID)
	}
	clone := *a
	r.actions[a.ID] = &clone
	return nil
}

func (r *MemoryRepository) CountByInvoice(_ context.Context, invoiceID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, a := range r.actions {
		if a.InvoiceID == invoiceID {
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepository) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, a := range r.actions {
		if a.CreatedAt.Before(cutoff) {
			delete(r.actions, id)
			n++
		}
	}
	return n, nil
}

func matches(a *Action, f Filter) bool {
	if f.InvoiceID != "" && a.InvoiceID != f.InvoiceID {
		return false
	}
	if f.CustomerID != "" && a.CustomerID != f.CustomerID {
		return false
	}
	if f.Status != "" && string(a.Status) != f.Status {
		return false
	}
	if f.Type != "" && string(a.Type) != f.Type {
		return false
	}
	if !f.Since.IsZero() && a.ScheduledAt.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && a.ScheduledAt.After(f.Until) {
		return false
	}
	return true
}
