package snapshot

import (
	"context"
	"sync"
)

// Repository persists records and the current-record pointer. Each write
// replaces a whole record.
type Repository interface {
	Put(ctx context.Context, rec *Record) error
	Delete(ctx context.Context, id string) error
	// Get loads one record; ok is false when it does not exist.
	Get(ctx context.Context, id string) (rec *Record, ok bool, err error)
	List(ctx context.Context) ([]*Record, error)
	SetCurrent(ctx context.Context, id string) error
	Current(ctx context.Context) (string, error)
}

// MemoryRepository keeps records in process memory. It backs tests and runs
// where no database path is configured.
type MemoryRepository struct {
	mu      sync.RWMutex
	records map[string]*Record
	current string
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{records: map[string]*Record{}}
}

func (r *MemoryRepository) Put(_ context.Context, rec *Record) error {
	cp := *rec
	r.mu.Lock()
	r.records[rec.ID] = &cp
	r.mu.Unlock()
	return nil
}

func (r *MemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	delete(r.records, id)
	r.mu.Unlock()
	return nil
}

func (r *MemoryRepository) Get(_ context.Context, id string) (*Record, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[id]
	if !ok {
		return nil, false, nil
	}
	cp := *rec
	return &cp, true, nil
}

func (r *MemoryRepository) List(_ context.Context) ([]*Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Record, 0, len(r.records))
	for _, rec := range r.records {
		cp := *rec
		out = append(out, &cp)
	}
	return out, nil
}

func (r *MemoryRepository) SetCurrent(_ context.Context, id string) error {
	r.mu.Lock()
	r.current = id
	r.mu.Unlock()
	return nil
}

func (r *MemoryRepository) Current(_ context.Context) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current, nil
}
