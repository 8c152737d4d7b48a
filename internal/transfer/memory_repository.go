package transfer

import (
	"context"
	"errors"
	"sync"
)

type memoryRepository struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewMemoryRepository constructs an in-memory settlement record store for tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{records: make(map[string]Record)}
}

func (r *memoryRepository) Create(_ context.Context, record Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.records[record.ID]; exists {
		return errors.New("record exists")
	}
	r.records[record.ID] = record
	return nil
}

func (r *memoryRepository) FindByReference(_ context.Context, reference string) (Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rec := range r.records {
		if rec.Reference == reference {
			return rec, nil
		}
	}
	return Record{}, ErrRecordNotFound
}
