package terminology

import (
	"context"
	"sync"
)

const DefaultHistoryCapacity = 100

type historyRepoMemory struct {
	mu       sync.RWMutex
	entries  []*HistoryEntry // newest first
	capacity int
}

// NewHistoryRepoMemory keeps at most capacity entries, evicting the oldest.
func NewHistoryRepoMemory(capacity int) HistoryRepository {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &historyRepoMemory{capacity: capacity}
}

func (r *historyRepoMemory) Add(_ context.Context, e *HistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append([]*HistoryEntry{e}, r.entries...)
	if len(r.entries) > r.capacity {
		r.entries = r.entries[:r.capacity]
	}
	return nil
}

func (r *historyRepoMemory) List(_ context.Context, limit, offset int) ([]*HistoryEntry, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	total := len(r.entries)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if limit <= 0 || end > total {
		end = total
	}
	out := make([]*HistoryEntry, end-offset)
	copy(out, r.entries[offset:end])
	return out, total, nil
}

func (r *historyRepoMemory) Clear(_ context.Context) error {
	r.mu.Lock()
	r.entries = nil
	r.mu.Unlock()
	return nil
}
