package terminology

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func entry(i int) *HistoryEntry {
	return &HistoryEntry{
		ID:           fmt.Sprintf("h-%d", i),
		Result:       TranslationResult{Success: true, OriginalCode: Concept{System: "s", Code: fmt.Sprintf("C%d", i)}},
		TranslatedAt: time.Unix(int64(i), 0),
	}
}

func TestHistoryRepoMemory_NewestFirst(t *testing.T) {
	r := NewHistoryRepoMemory(10)
	ctx := context.Background()
	for i := 1; i <= 3; i++ {
		r.Add(ctx, entry(i))
	}
	got, total, err := r.List(ctx, 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 3 || got[0].ID != "h-3" || got[2].ID != "h-1" {
		t.Errorf("expected newest first, got %v", ids(got))
	}
}

func TestHistoryRepoMemory_Capacity(t *testing.T) {
	r := NewHistoryRepoMemory(2)
	ctx := context.Background()
	for i := 1; i <= 5; i++ {
		r.Add(ctx, entry(i))
	}
	got, total, _ := r.List(ctx, 10, 0)
	if total != 2 || got[0].ID != "h-5" || got[1].ID != "h-4" {
		t.Errorf("expected the two newest entries, got %v", ids(got))
	}
}

func TestHistoryRepoMemory_Paging(t *testing.T) {
	r := NewHistoryRepoMemory(10)
	ctx := context.Background()
	for i := 1; i <= 5; i++ {
		r.Add(ctx, entry(i))
	}
	got, total, _ := r.List(ctx, 2, 1)
	if total != 5 || len(got) != 2 || got[0].ID != "h-4" {
		t.Errorf("unexpected page %v", ids(got))
	}
	got, _, _ = r.List(ctx, 2, 10)
	if len(got) != 0 {
		t.Errorf("expected empty page past the end, got %v", ids(got))
	}
}

func TestHistoryRepoMemory_Clear(t *testing.T) {
	r := NewHistoryRepoMemory(10)
	ctx := context.Background()
	r.Add(ctx, entry(1))
	r.Clear(ctx)
	if _, total, _ := r.List(ctx, 10, 0); total != 0 {
		t.Errorf("expected empty history, got %d", total)
	}
}

func ids(entries []*HistoryEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.ID)
	}
	return out
}
