package terminology

import "context"

// HistoryRepository stores recent translations, newest first.
type HistoryRepository interface {
	Add(ctx context.Context, e *HistoryEntry) error
	List(ctx context.Context, limit, offset int) ([]*HistoryEntry, int, error)
	Clear(ctx context.Context) error
}
