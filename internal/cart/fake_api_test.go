package cart

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// fakeAPI is an in-memory remote cart that applies ±1 mutations like the real server.
type fakeAPI struct {
	mu       sync.Mutex
	lines    map[string]Line
	fetches  int
	incs     int
	decs     int
	removes  int
	clears   int
	failOn   int // fail the Nth mutation call (1-based), 0 disables
	calls    int
	fetchErr error
	delay    time.Duration

	// fetchGate, when set, holds FetchCart until closed; fetchStarted is signalled on entry
	fetchGate    chan struct{}
	fetchStarted chan struct{}

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func newFakeAPI(lines ...Line) *fakeAPI {
	f := &fakeAPI{lines: map[string]Line{}}
	for _, l := range lines {
		f.lines[l.ProductID] = l
	}
	return f
}

var errBoom = errors.New("boom")

func (f *fakeAPI) enter() func() {
	n := f.inFlight.Add(1)
	for {
		m := f.maxInFlight.Load()
		if n <= m || f.maxInFlight.CompareAndSwap(m, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return func() { f.inFlight.Add(-1) }
}

func (f *fakeAPI) mutation() error {
	f.calls++
	if f.failOn > 0 && f.calls == f.failOn {
		return errBoom
	}
	return nil
}

func (f *fakeAPI) FetchCart(ctx context.Context) ([]Line, error) {
	if f.fetchGate != nil {
		if f.fetchStarted != nil {
			select {
			case f.fetchStarted <- struct{}{}:
			default:
			}
		}
		<-f.fetchGate
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	out := make([]Line, 0, len(f.lines))
	for _, l := range f.lines {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out, nil
}

func (f *fakeAPI) IncrementLine(ctx context.Context, productID string) error {
	done := f.enter()
	defer done()
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.mutation(); err != nil {
		return err
	}
	f.incs++
	l := f.lines[productID]
	l.ProductID = productID
	l.Quantity++
	f.lines[productID] = l
	return nil
}

func (f *fakeAPI) DecrementLine(ctx context.Context, productID string, removeAll bool) error {
	done := f.enter()
	defer done()
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.mutation(); err != nil {
		return err
	}
	if removeAll {
		f.removes++
		delete(f.lines, productID)
		return nil
	}
	f.decs++
	l, ok := f.lines[productID]
	if !ok {
		return nil
	}
	l.Quantity--
	if l.Quantity <= 0 {
		delete(f.lines, productID)
		return nil
	}
	f.lines[productID] = l
	return nil
}

func (f *fakeAPI) ClearCart(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.mutation(); err != nil {
		return err
	}
	f.clears++
	f.lines = map[string]Line{}
	return nil
}

func (f *fakeAPI) quantity(productID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lines[productID].Quantity
}
