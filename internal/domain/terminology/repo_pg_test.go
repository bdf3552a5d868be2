package terminology

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/namaste/namaste/internal/platform/db"
)

// Runs only when TEST_DATABASE_URL points at a disposable PostgreSQL.
func newTestRepoPG(t *testing.T, capacity int) *historyRepoPG {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := db.NewPool(ctx, db.PoolOptions{URL: url, MaxConns: 2, MinConns: 1, AppName: "namaste-test"})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)

	r := NewHistoryRepoPG(pool, capacity)
	if err := r.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := r.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	return r
}

func TestHistoryRepoPG_RoundTrip(t *testing.T) {
	r := newTestRepoPG(t, 10)
	ctx := context.Background()

	score := 0.95
	e := &HistoryEntry{
		ID: "h-pg-1",
		Result: TranslationResult{
			Success:      true,
			OriginalCode: Concept{System: "s", Code: "AY001", Display: "Vata"},
			MappedCodes:  []MappedCode{{System: "icd", Code: "TM2.001", Equivalence: EquivalenceEquivalent, Score: &score}},
			Message:      "Found 1 mapping(s)",
		},
		TranslatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
	if err := r.Add(ctx, e); err != nil {
		t.Fatalf("add: %v", err)
	}

	got, total, err := r.List(ctx, 10, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 1 || got[0].Result.OriginalCode.Code != "AY001" {
		t.Fatalf("unexpected history %+v", got)
	}
	mc := got[0].Result.MappedCodes
	if len(mc) != 1 || mc[0].Score == nil || *mc[0].Score != 0.95 {
		t.Errorf("expected mapped codes restored from jsonb, got %+v", mc)
	}
}

func TestHistoryRepoPG_Prunes(t *testing.T) {
	r := newTestRepoPG(t, 2)
	ctx := context.Background()
	for i := 1; i <= 3; i++ {
		e := entry(i)
		e.Result.MappedCodes = []MappedCode{}
		if err := r.Add(ctx, e); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	got, total, _ := r.List(ctx, 10, 0)
	if total != 2 || got[0].ID != "h-3" {
		t.Errorf("expected the two newest rows, got %v", ids(got))
	}
}
