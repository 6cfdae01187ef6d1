package cart

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	apperrors "github.com/imrishuroy/storefront-checkout/pkg/errors"
)

// API is the subset of the remote commerce API the synchronizer drives.
// The remote cart only changes quantities one unit at a time.
type API interface {
	FetchCart(ctx context.Context) ([]Line, error)
	IncrementLine(ctx context.Context, productID string) error
	DecrementLine(ctx context.Context, productID string, removeAll bool) error
	ClearCart(ctx context.Context) error
}

// resyncTimeout bounds the refresh that follows a mutation sequence, which runs even when the
// caller's context has been cancelled.
const resyncTimeout = 10 * time.Second

// Synchronizer keeps a Store eventually consistent with the remote cart.
type Synchronizer struct {
	api    API
	store  *Store
	logger *zap.Logger

	mu  sync.Mutex // one mutation sequence at a time
	gen atomic.Uint64
	sfg singleflight.Group
}

// NewSynchronizer returns a synchronizer writing into store.
func NewSynchronizer(api API, store *Store, logger *zap.Logger) *Synchronizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Synchronizer{api: api, store: store, logger: logger}
}

// Store returns the store this synchronizer writes to.
func (s *Synchronizer) Store() *Store { return s.store }

// Snapshot returns the current local view.
func (s *Synchronizer) Snapshot() View { return s.store.Snapshot() }

// Refresh fetches the remote cart and replaces the local view. Concurrent callers share one fetch,
// which is detached from any single caller's cancellation. A caller whose ctx ends stops waiting
// but the shared fetch still completes for the others.
// On failure the previous view is kept and the error is returned.
func (s *Synchronizer) Refresh(ctx context.Context) (View, error) {
	ch := s.sfg.DoChan("refresh", func() (interface{}, error) {
		return nil, s.resync(ctx)
	})
	select {
	case <-ctx.Done():
		return s.store.Snapshot(), apperrors.E(apperrors.KindNetwork, "cart.Refresh", ctx.Err())
	case r := <-ch:
		return s.store.Snapshot(), r.Err
	}
}

// fetch bypasses coalescing so a mutation never adopts a fetch that started before it finished.
func (s *Synchronizer) fetch(ctx context.Context) error {
	gen := s.gen.Add(1)
	lines, err := s.api.FetchCart(ctx)
	if err != nil {
		s.logger.Warn("cart refresh failed", zap.Error(err))
		return classify("cart.Refresh", err)
	}
	if !s.store.replace(gen, lines) {
		s.logger.Debug("discarded stale cart fetch", zap.Uint64("generation", gen))
	}
	return nil
}

// SetQuantity moves a line to target by issuing one increment or decrement per unit of difference,
// each awaited before the next. Targets below 1 are rejected without any remote call.
// Whatever happens, the view is resynchronized once the sequence ends.
func (s *Synchronizer) SetQuantity(ctx context.Context, productID string, target int) (View, error) {
	const op = "cart.SetQuantity"
	if target < 1 {
		return s.store.Snapshot(), apperrors.Newf(apperrors.KindValidation, op, "quantity must be at least 1, got %d", target)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	line, ok := s.store.Snapshot().Line(productID)
	if !ok {
		return s.store.Snapshot(), apperrors.Newf(apperrors.KindNotFound, op, "product %s is not in the cart", productID)
	}

	delta := target - line.Quantity
	if delta == 0 {
		return s.store.Snapshot(), nil
	}

	steps := delta
	step := func(ctx context.Context) error { return s.api.IncrementLine(ctx, productID) }
	if delta < 0 {
		steps = -delta
		step = func(ctx context.Context) error { return s.api.DecrementLine(ctx, productID, false) }
	}

	var stepErr error
	applied := 0
	for applied < steps {
		if err := ctx.Err(); err != nil {
			stepErr = apperrors.E(apperrors.KindNetwork, op, err)
			break
		}
		if err := step(ctx); err != nil {
			stepErr = classify(op, err)
			break
		}
		applied++
	}
	if stepErr != nil {
		s.logger.Warn("quantity change aborted",
			zap.String("product_id", productID),
			zap.Int("applied", applied),
			zap.Int("requested", steps),
			zap.Error(stepErr),
		)
		stepErr = fmt.Errorf("applied %d of %d quantity steps: %w", applied, steps, stepErr)
	}

	refreshErr := s.resync(ctx)
	if stepErr != nil {
		return s.store.Snapshot(), stepErr
	}
	return s.store.Snapshot(), refreshErr
}

// Remove deletes a line with a single remove-all decrement, then resynchronizes.
func (s *Synchronizer) Remove(ctx context.Context, productID string) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.api.DecrementLine(ctx, productID, true); err != nil {
		err = classify("cart.Remove", err)
		s.logger.Warn("remove line failed", zap.String("product_id", productID), zap.Error(err))
		_ = s.resync(ctx)
		return s.store.Snapshot(), err
	}
	err := s.resync(ctx)
	return s.store.Snapshot(), err
}

// Clear empties the remote cart. Once the server has accepted the clear, a failed resync installs an
// empty view instead of keeping lines the server no longer has; only the clear call's error is returned.
func (s *Synchronizer) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.api.ClearCart(ctx); err != nil {
		err = classify("cart.Clear", err)
		s.logger.Warn("clear cart failed", zap.Error(err))
		return err
	}
	if err := s.resync(ctx); err != nil {
		s.store.replace(s.gen.Add(1), nil)
	}
	return nil
}

func (s *Synchronizer) resync(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), resyncTimeout)
	defer cancel()
	return s.fetch(ctx)
}

// classify keeps kinds assigned by the API client and treats anything else as transient.
func classify(op string, err error) error {
	if apperrors.KindOf(err) != apperrors.KindUnknown {
		return err
	}
	return apperrors.E(apperrors.KindNetwork, op, err)
}
