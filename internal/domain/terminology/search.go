package terminology

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

// ErrSuperseded is returned to a search replaced by a newer one before it
// completed.
var ErrSuperseded = errors.New("search superseded by a newer query")

const (
	DefaultSearchDebounce  = 300 * time.Millisecond
	DefaultSearchMinLength = 2
)

// Expander is satisfied by Service.
type Expander interface {
	Expand(ctx context.Context, filter string, count int) ([]Concept, error)
}

type SearchOptions struct {
	Debounce  time.Duration
	MinLength int
	Count     int
}

// Searcher implements search-as-you-type: each query waits out the
// debounce, and only the most recently issued query may deliver results.
// Issuing a query cancels the one in flight.
type Searcher struct {
	expander  Expander
	debounce  time.Duration
	minLength int
	count     int

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
}

func NewSearcher(expander Expander, opts SearchOptions) *Searcher {
	if opts.Debounce < 0 {
		opts.Debounce = 0
	}
	if opts.MinLength < 1 {
		opts.MinLength = DefaultSearchMinLength
	}
	if opts.Count <= 0 {
		opts.Count = 10
	}
	return &Searcher{
		expander:  expander,
		debounce:  opts.Debounce,
		minLength: opts.MinLength,
		count:     opts.Count,
	}
}

// Search runs query unless a newer call arrives first. Queries shorter
// than the minimum length return no results without a request.
func (s *Searcher) Search(ctx context.Context, query string) ([]Concept, error) {
	query = strings.TrimSpace(query)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	s.gen++
	gen := s.gen
	if s.cancel != nil {
		s.cancel()
	}
	s.cancel = cancel
	s.mu.Unlock()

	if len([]rune(query)) < s.minLength {
		return []Concept{}, nil
	}

	if s.debounce > 0 {
		t := time.NewTimer(s.debounce)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return nil, s.cancelled(ctx, gen)
		}
	}
	if !s.current(gen) {
		return nil, ErrSuperseded
	}

	res, err := s.expander.Expand(ctx, query, s.count)
	if !s.current(gen) {
		return nil, ErrSuperseded
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Searcher) current(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen == gen
}

func (s *Searcher) cancelled(ctx context.Context, gen uint64) error {
	if !s.current(gen) {
		return ErrSuperseded
	}
	return ctx.Err()
}
