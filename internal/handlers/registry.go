package handlers

import (
	"context"
	"sync"
	"time"

	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/imrishuroy/storefront-checkout/internal/cart"
	"github.com/imrishuroy/storefront-checkout/internal/checkout"
	"github.com/imrishuroy/storefront-checkout/internal/session"
)

// CommerceAPI is everything the storefront calls on the remote commerce API.
type CommerceAPI interface {
	cart.API
	checkout.API
}

// Session bundles the cart and checkout state of one shopper.
type Session struct {
	ID       string
	Cart     *cart.Synchronizer
	Checkout *checkout.Engine

	lastSeen time.Time
}

// Registry owns the live sessions of this process. A session id not seen before (for example after
// a cold start) is rebuilt on first use and its stored order reference restored.
type Registry struct {
	api       CommerceAPI
	refs      session.Store
	observers []checkout.Observer
	pricing   cart.Pricing
	validate  *validatorv10.Validate
	maxIdle   time.Duration
	logger    *zap.Logger
	now       func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry returns an empty registry. Sessions idle longer than maxIdle are dropped from memory.
func NewRegistry(api CommerceAPI, refs session.Store, observers []checkout.Observer, pricing cart.Pricing, v *validatorv10.Validate, maxIdle time.Duration, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		api:       api,
		refs:      refs,
		observers: observers,
		pricing:   pricing,
		validate:  v,
		maxIdle:   maxIdle,
		logger:    logger,
		now:       time.Now,
		sessions:  map[string]*Session{},
	}
}

// Create starts a new session with a fresh id.
func (r *Registry) Create() *Session {
	id := uuid.NewString()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evictLocked()
	s := r.newSession(id)
	r.sessions[id] = s
	return s
}

// Get returns the session for id, rebuilding it if this process has not seen it.
func (r *Registry) Get(ctx context.Context, id string) *Session {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if ok {
		s.lastSeen = r.now()
		r.mu.Unlock()
		return s
	}
	s = r.newSession(id)
	r.sessions[id] = s
	r.mu.Unlock()

	if _, err := s.Checkout.Restore(ctx); err != nil {
		r.logger.Warn("restore session failed", zap.String("session_id", id), zap.Error(err))
	}
	return s
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *Registry) newSession(id string) *Session {
	logger := r.logger.With(zap.String("session_id", id))
	synchronizer := cart.NewSynchronizer(r.api, cart.NewStore(r.pricing), logger)
	engine := checkout.NewEngine(checkout.Config{
		SessionID: id,
		API:       r.api,
		Cart:      synchronizer,
		Refs:      r.refs,
		Observers: r.observers,
		Validate:  r.validate,
		Logger:    r.logger,
	})
	return &Session{ID: id, Cart: synchronizer, Checkout: engine, lastSeen: r.now()}
}

// evictLocked must be called with mu held.
func (r *Registry) evictLocked() {
	if r.maxIdle <= 0 {
		return
	}
	cutoff := r.now().Add(-r.maxIdle)
	for id, s := range r.sessions {
		if s.lastSeen.Before(cutoff) {
			delete(r.sessions, id)
		}
	}
}
