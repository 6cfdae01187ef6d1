package cart

import (
	"sync"
)

// Store holds the local cart view. The Synchronizer is its only writer; everything else reads
// snapshots or subscribes to changes.
type Store struct {
	mu      sync.RWMutex
	pricing Pricing
	view    View
	applied uint64 // generation of the fetch that produced view

	subMu  sync.Mutex
	nextID int
	subs   map[int]func(View)

	// deliverMu orders apply+notify so subscribers see views in generation order
	deliverMu sync.Mutex
}

// NewStore returns an empty store priced with pricing.
func NewStore(pricing Pricing) *Store {
	s := &Store{
		pricing: pricing,
		subs:    map[int]func(View){},
	}
	s.view = View{Lines: []Line{}, Totals: pricing.Calculate(nil)}
	return s
}

// Snapshot returns a copy of the current view.
func (s *Store) Snapshot() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return View{Lines: cloneLines(s.view.Lines), Totals: s.view.Totals}
}

// Pricing returns the store's delivery rules.
func (s *Store) Pricing() Pricing { return s.pricing }

// Subscribe registers fn to receive every new view. The returned func unsubscribes.
// fn is called synchronously by the writer and must not call back into the synchronizer.
func (s *Store) Subscribe(fn func(View)) (unsubscribe func()) {
	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

// replace installs lines fetched at generation gen. A fetch older than the applied one is dropped
// and replace returns false.
func (s *Store) replace(gen uint64, lines []Line) bool {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()

	s.mu.Lock()
	if gen < s.applied {
		s.mu.Unlock()
		return false
	}
	s.applied = gen
	lines = cloneLines(lines)
	s.view = View{Lines: lines, Totals: s.pricing.Calculate(lines)}
	next := View{Lines: cloneLines(lines), Totals: s.view.Totals}
	s.mu.Unlock()

	s.notify(next)
	return true
}

func (s *Store) notify(v View) {
	s.subMu.Lock()
	fns := make([]func(View), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(View{Lines: cloneLines(v.Lines), Totals: v.Totals})
	}
}
