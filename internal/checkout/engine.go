package checkout

import (
	"context"
	"strings"
	"sync"
	"time"

	validatorv10 "github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/imrishuroy/storefront-checkout/internal/cart"
	"github.com/imrishuroy/storefront-checkout/internal/commerce"
	"github.com/imrishuroy/storefront-checkout/internal/orders"
	"github.com/imrishuroy/storefront-checkout/internal/session"
	"github.com/imrishuroy/storefront-checkout/internal/validation"
	apperrors "github.com/imrishuroy/storefront-checkout/pkg/errors"
)

// API is the part of the remote commerce API the engine drives.
type API interface {
	CreateOrder(ctx context.Context, receiver orders.Receiver) (string, error)
	InitiateCheckout(ctx context.Context, orderID, paymentMethod string) (*commerce.CheckoutSession, error)
	VerifyPayment(ctx context.Context, reference string) (*commerce.Verification, error)
	GetOrder(ctx context.Context, orderID string) (*orders.Order, error)
}

// Cart is what the engine needs from the cart synchronizer.
type Cart interface {
	Snapshot() cart.View
	Clear(ctx context.Context) error
}

// Observer receives every state change after it has been applied.
type Observer interface {
	OnTransition(ctx context.Context, t Transition)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, t Transition)

func (f ObserverFunc) OnTransition(ctx context.Context, t Transition) { f(ctx, t) }

// DefaultPollInterval is used by PollVerification when no interval is given.
const DefaultPollInterval = 5 * time.Second

// Config wires an Engine. Refs and Observers are optional.
type Config struct {
	SessionID string
	API       API
	Cart      Cart
	Refs      session.Store
	Observers []Observer
	Validate  *validatorv10.Validate
	Logger    *zap.Logger
}

// Engine is the checkout state machine of one session. Operations that call the remote API are
// single-flight: a second one started while another is running fails with KindConflict.
type Engine struct {
	sessionID string
	api       API
	cart      Cart
	refs      session.Store
	tracker   *orders.Tracker
	observers []Observer
	validate  *validatorv10.Validate
	logger    *zap.Logger
	now       func() time.Time

	flight sync.Mutex // held for the whole of a remote sequence

	mu          sync.Mutex
	status      Status
	delivery    validation.DeliveryInfo
	gen         uint64 // bumped by Cancel and Reset; responses from older generations are dropped
	cartCleared bool
}

// NewEngine returns an engine in StateIdle.
func NewEngine(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	v := cfg.Validate
	if v == nil {
		v = validation.New()
	}
	e := &Engine{
		sessionID: cfg.SessionID,
		api:       cfg.API,
		cart:      cfg.Cart,
		refs:      cfg.Refs,
		observers: cfg.Observers,
		validate:  v,
		logger:    logger.With(zap.String("session_id", cfg.SessionID)),
		now:       time.Now,
	}
	var clearer orders.RefClearer
	if cfg.Refs != nil {
		clearer = cfg.Refs
	}
	e.tracker = orders.NewTracker(cfg.API, clearer, e.logger)
	e.status = Status{SessionID: cfg.SessionID, State: StateIdle, UpdatedAt: e.now()}
	return e
}

// Status returns a snapshot of the session.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// PlaceOrder validates the cart and delivery info, creates the order and initiates payment.
// It is accepted from StateIdle, or from StateFailed when no order has been created yet.
// The returned error is nil when the session ends up awaiting payment or completed.
func (e *Engine) PlaceOrder(ctx context.Context, info validation.DeliveryInfo, paymentMethod string) (Status, error) {
	const op = "checkout.PlaceOrder"
	if !e.flight.TryLock() {
		return e.Status(), e.busy(op)
	}
	defer e.flight.Unlock()

	e.mu.Lock()
	st := e.status.State
	if st != StateIdle && !(st == StateFailed && e.status.OrderID == "") {
		e.mu.Unlock()
		return e.Status(), e.invalid(op, st)
	}
	gen := e.gen
	e.mu.Unlock()

	info = validation.DeliveryInfo{
		Name:    strings.TrimSpace(info.Name),
		Phone:   strings.TrimSpace(info.Phone),
		Address: strings.TrimSpace(info.Address),
	}
	e.transitionIf(ctx, gen, StateValidatingInput, func(s *Status) {
		*s = Status{SessionID: e.sessionID, PaymentMethod: paymentMethod}
	})

	if reason, msg := e.precondition(info); reason != ReasonNone {
		return e.fail(ctx, gen, StepValidate, reason, &apperrors.Error{Kind: apperrors.KindValidation, Op: op, Message: msg})
	}

	e.mu.Lock()
	e.delivery = info
	e.cartCleared = false
	e.mu.Unlock()

	return e.createOrder(ctx, gen)
}

// precondition checks in a fixed order: empty cart, then name, phone and address.
func (e *Engine) precondition(info validation.DeliveryInfo) (Reason, string) {
	if e.cart.Snapshot().Empty() {
		return ReasonEmptyCart, "cart is empty"
	}
	err := e.validate.Struct(info)
	if err == nil {
		return ReasonNone, ""
	}
	switch validation.FirstInvalidField(err) {
	case "name":
		return ReasonMissingName, "receiver name is required"
	case "phone":
		return ReasonMissingPhone, "receiver phone is required"
	case "address":
		return ReasonMissingAddress, "delivery address is required"
	default:
		return ReasonMissingName, err.Error()
	}
}

func (e *Engine) createOrder(ctx context.Context, gen uint64) (Status, error) {
	const op = "checkout.createOrder"
	if !e.transitionIf(ctx, gen, StateCreatingOrder, nil) {
		return e.superseded(op)
	}

	e.mu.Lock()
	receiver := orders.Receiver{Name: e.delivery.Name, Phone: e.delivery.Phone, Address: e.delivery.Address}
	e.mu.Unlock()

	orderID, err := e.api.CreateOrder(ctx, receiver)
	if err != nil {
		reason, kind := ReasonOrderCreationFailed, apperrors.KindOrderCreationFailed
		if apperrors.IsKind(err, apperrors.KindAuthRequired) {
			reason, kind = ReasonAuthRequired, apperrors.KindAuthRequired
		}
		return e.fail(ctx, gen, StepCreateOrder, reason, &apperrors.Error{Kind: kind, Op: op, Err: err})
	}

	if !e.transitionIf(ctx, gen, StateInitiatingPayment, func(s *Status) { s.OrderID = orderID }) {
		return e.superseded(op)
	}
	e.persistOrderRef(ctx, orderID)
	return e.initiatePayment(ctx, gen)
}

// persistOrderRef stores the order id for resume. The order already exists remotely, so a storage
// failure is logged rather than failing checkout.
func (e *Engine) persistOrderRef(ctx context.Context, orderID string) {
	if e.refs == nil {
		return
	}
	if err := e.refs.SaveOrderRef(ctx, e.sessionID, orderID); err != nil {
		e.logger.Warn("persist order ref failed", zap.String("order_id", orderID), zap.Error(err))
	}
}

// initiatePayment expects the session to already be in StateInitiatingPayment.
func (e *Engine) initiatePayment(ctx context.Context, gen uint64) (Status, error) {
	const op = "checkout.initiatePayment"
	e.mu.Lock()
	orderID, method := e.status.OrderID, e.status.PaymentMethod
	e.mu.Unlock()

	cs, err := e.api.InitiateCheckout(ctx, orderID, method)
	if err != nil {
		reason, kind := ReasonCheckoutFailed, apperrors.KindCheckoutFailed
		if apperrors.IsKind(err, apperrors.KindAuthRequired) {
			reason, kind = ReasonAuthRequired, apperrors.KindAuthRequired
		}
		return e.fail(ctx, gen, StepInitiatePayment, reason, &apperrors.Error{Kind: kind, Op: op, Err: err})
	}

	if cs.Hosted() {
		ok := e.transitionIf(ctx, gen, StateAwaitingPaymentConfirmation, func(s *Status) {
			s.Reference = cs.Reference
			s.AuthorizationURL = cs.AuthorizationURL
			s.AccessCode = cs.AccessCode
		})
		if !ok {
			return e.superseded(op)
		}
		return e.Status(), nil
	}

	if !directCompleted(cs.Status) {
		return e.fail(ctx, gen, StepInitiatePayment, ReasonCheckoutFailed, &apperrors.Error{
			Kind:    apperrors.KindCheckoutFailed,
			Op:      op,
			Message: "checkout returned status " + cs.Status,
		})
	}
	return e.clearCart(ctx, gen)
}

// directCompleted accepts the statuses a synchronous checkout reports on success. An empty status
// with no authorization target is treated as success.
func directCompleted(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "", "completed", "complete", "success", "successful", "paid":
		return true
	default:
		return false
	}
}

// Verify asks the provider whether the hosted payment went through. It is accepted from
// StateAwaitingPaymentConfirmation, and from StateFailed after a verification failure.
func (e *Engine) Verify(ctx context.Context) (Status, error) {
	const op = "checkout.Verify"
	if !e.flight.TryLock() {
		return e.Status(), e.busy(op)
	}
	defer e.flight.Unlock()

	e.mu.Lock()
	st, step, ref := e.status.State, e.status.FailedStep, e.status.Reference
	gen := e.gen
	e.mu.Unlock()

	switch {
	case st == StateAwaitingPaymentConfirmation:
	case st == StateFailed && step == StepVerifyPayment && ref != "":
	default:
		return e.Status(), e.invalid(op, st)
	}
	return e.verifyPayment(ctx, gen)
}

func (e *Engine) verifyPayment(ctx context.Context, gen uint64) (Status, error) {
	const op = "checkout.verifyPayment"
	var ref string
	ok := e.transitionIf(ctx, gen, StateVerifyingPayment, func(s *Status) {
		s.VerifyAttempts++
		ref = s.Reference
	})
	if !ok {
		return e.superseded(op)
	}

	v, err := e.api.VerifyPayment(ctx, ref)
	if err != nil {
		return e.fail(ctx, gen, StepVerifyPayment, ReasonVerificationError, &apperrors.Error{Kind: apperrors.KindVerification, Op: op, Err: err})
	}
	if !v.Succeeded() {
		msg := v.Message
		if msg == "" {
			msg = "payment status: " + v.Status
		}
		return e.fail(ctx, gen, StepVerifyPayment, ReasonPaymentRejected, &apperrors.Error{Kind: apperrors.KindPaymentRejected, Op: op, Message: msg})
	}
	return e.clearCart(ctx, gen)
}

// clearCart empties the cart at most once per checkout, then completes the session.
func (e *Engine) clearCart(ctx context.Context, gen uint64) (Status, error) {
	const op = "checkout.clearCart"
	e.mu.Lock()
	cleared := e.cartCleared
	e.mu.Unlock()

	if !cleared {
		if err := e.cart.Clear(ctx); err != nil {
			kind := apperrors.KindOf(err)
			if kind == apperrors.KindUnknown {
				kind = apperrors.KindNetwork
			}
			return e.fail(ctx, gen, StepClearCart, ReasonCartClearFailed, &apperrors.Error{Kind: kind, Op: op, Err: err})
		}
		e.mu.Lock()
		e.cartCleared = true
		e.mu.Unlock()
	}

	ok := e.transitionIf(ctx, gen, StateCompleted, func(s *Status) {
		s.AuthorizationURL = ""
		s.AccessCode = ""
	})
	if !ok {
		return e.superseded(op)
	}
	return e.Status(), nil
}

// Retry re-runs the step that failed using the retained order id, reference and delivery info.
// Only failures reported as Retryable are re-run. Precondition failures need PlaceOrder with
// corrected input; auth failures need the user to sign in again and then Retry is refused.
func (e *Engine) Retry(ctx context.Context) (Status, error) {
	const op = "checkout.Retry"
	if !e.flight.TryLock() {
		return e.Status(), e.busy(op)
	}
	defer e.flight.Unlock()

	e.mu.Lock()
	st, step := e.status.State, e.status.FailedStep
	retryable := e.status.Retryable
	hosted := e.status.Reference != ""
	gen := e.gen
	e.mu.Unlock()

	if st != StateFailed {
		return e.Status(), e.invalid(op, st)
	}
	if !retryable {
		return e.Status(), apperrors.Newf(apperrors.KindConflict, op, "failure at step %q cannot be retried; place the order again", step)
	}

	switch step {
	case StepCreateOrder:
		return e.createOrder(ctx, gen)
	case StepInitiatePayment:
		if !e.transitionIf(ctx, gen, StateInitiatingPayment, nil) {
			return e.superseded(op)
		}
		return e.initiatePayment(ctx, gen)
	case StepVerifyPayment:
		return e.verifyPayment(ctx, gen)
	case StepClearCart:
		resume := StateInitiatingPayment
		if hosted {
			resume = StateVerifyingPayment
		}
		if !e.transitionIf(ctx, gen, resume, nil) {
			return e.superseded(op)
		}
		return e.clearCart(ctx, gen)
	default:
		return e.Status(), apperrors.Newf(apperrors.KindConflict, op, "failure at step %q cannot be retried; place the order again", step)
	}
}

// Cancel abandons a hosted payment. No remote call is made and the order is left as the server has it.
// A verification response still in flight is discarded when it arrives.
func (e *Engine) Cancel(ctx context.Context) (Status, error) {
	const op = "checkout.Cancel"
	e.mu.Lock()
	st := e.status.State
	if st != StateAwaitingPaymentConfirmation {
		e.mu.Unlock()
		return e.Status(), e.invalid(op, st)
	}
	e.gen++
	t := e.apply(StateCancelled, func(s *Status) {
		s.AuthorizationURL = ""
		s.AccessCode = ""
	})
	status := e.status
	e.mu.Unlock()

	e.emit(ctx, t)
	return status, nil
}

// Reset returns a finished session to StateIdle so a new order can be placed.
func (e *Engine) Reset(ctx context.Context) (Status, error) {
	const op = "checkout.Reset"
	e.mu.Lock()
	st := e.status.State
	if !st.IsTerminal() && st != StateFailed {
		e.mu.Unlock()
		return e.Status(), e.invalid(op, st)
	}
	e.gen++
	e.delivery = validation.DeliveryInfo{}
	e.cartCleared = false
	t := e.apply(StateIdle, func(s *Status) {
		*s = Status{SessionID: e.sessionID}
	})
	status := e.status
	e.mu.Unlock()

	e.emit(ctx, t)
	return status, nil
}

// Restore loads the persisted order id of an idle session so its order can be tracked after a
// reload. The session stays idle; payment state is never persisted.
func (e *Engine) Restore(ctx context.Context) (Status, error) {
	if e.refs == nil {
		return e.Status(), nil
	}
	ref, err := e.refs.GetOrderRef(ctx, e.sessionID)
	if err != nil {
		return e.Status(), apperrors.E(apperrors.KindNetwork, "checkout.Restore", err)
	}
	if ref == nil {
		return e.Status(), nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.status.State == StateIdle && e.status.OrderID == "" {
		e.status.OrderID = ref.OrderID
		e.logger.Info("restored order ref", zap.String("order_id", ref.OrderID))
	}
	return e.status, nil
}

// TrackOrder fetches the session's order. Once it is delivered or cancelled the stored reference
// is released.
func (e *Engine) TrackOrder(ctx context.Context) (*orders.Order, error) {
	e.mu.Lock()
	orderID := e.status.OrderID
	e.mu.Unlock()

	if orderID == "" {
		return nil, apperrors.Newf(apperrors.KindNotFound, "checkout.TrackOrder", "no order for this session")
	}
	return e.tracker.Track(ctx, e.sessionID, orderID)
}

// WatchOrder polls the session's order every interval, handing each projection to fn, until the
// order is delivered or cancelled or ctx is done.
func (e *Engine) WatchOrder(ctx context.Context, interval time.Duration, fn func(*orders.Order)) error {
	e.mu.Lock()
	orderID := e.status.OrderID
	e.mu.Unlock()

	if orderID == "" {
		return apperrors.Newf(apperrors.KindNotFound, "checkout.WatchOrder", "no order for this session")
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return e.tracker.Watch(ctx, e.sessionID, orderID, interval, fn)
}

// PollVerification checks a hosted payment every interval, up to maxAttempts times, while the
// session awaits confirmation. Polls that do not find a successful payment leave the state
// untouched, so the manual Verify path keeps working. It returns when the payment is confirmed,
// the session leaves StateAwaitingPaymentConfirmation, attempts are exhausted or ctx is done.
func (e *Engine) PollVerification(ctx context.Context, interval time.Duration, maxAttempts int) (Status, error) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for attempt := 0; attempt < maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return e.Status(), ctx.Err()
		case <-ticker.C:
		}

		status, done, err := e.pollOnce(ctx)
		if done {
			return status, err
		}
	}
	return e.Status(), nil
}

func (e *Engine) pollOnce(ctx context.Context) (Status, bool, error) {
	const op = "checkout.PollVerification"
	if !e.flight.TryLock() {
		// a manual verify or retry is running
		return e.Status(), false, nil
	}
	defer e.flight.Unlock()

	e.mu.Lock()
	st, ref, gen := e.status.State, e.status.Reference, e.gen
	e.mu.Unlock()
	if st != StateAwaitingPaymentConfirmation {
		return e.Status(), true, nil
	}

	v, err := e.api.VerifyPayment(ctx, ref)
	if err != nil {
		e.logger.Debug("verification poll failed", zap.String("reference", ref), zap.Error(err))
		return e.Status(), false, nil
	}
	if !v.Succeeded() {
		return e.Status(), false, nil
	}

	if !e.transitionIf(ctx, gen, StateVerifyingPayment, func(s *Status) { s.VerifyAttempts++ }) {
		status, err := e.superseded(op)
		return status, true, err
	}
	status, err := e.clearCart(ctx, gen)
	return status, true, err
}

// transitionIf moves to `to` unless a Cancel or Reset happened since gen was read.
func (e *Engine) transitionIf(ctx context.Context, gen uint64, to State, mutate func(*Status)) bool {
	e.mu.Lock()
	if e.gen != gen {
		e.mu.Unlock()
		return false
	}
	t := e.apply(to, mutate)
	e.mu.Unlock()

	e.emit(ctx, t)
	return true
}

// apply must be called with mu held.
func (e *Engine) apply(to State, mutate func(*Status)) Transition {
	from := e.status.State
	if mutate != nil {
		mutate(&e.status)
	}
	e.status.SessionID = e.sessionID
	e.status.State = to
	if to != StateFailed {
		e.status.Reason = ReasonNone
		e.status.Message = ""
		e.status.FailedStep = StepNone
		e.status.Retryable = false
	}
	e.status.UpdatedAt = e.now()

	return Transition{
		SessionID: e.sessionID,
		From:      from,
		To:        to,
		Reason:    e.status.Reason,
		OrderID:   e.status.OrderID,
		Reference: e.status.Reference,
		At:        e.status.UpdatedAt,
	}
}

func (e *Engine) fail(ctx context.Context, gen uint64, step Step, reason Reason, err *apperrors.Error) (Status, error) {
	msg := apperrors.Message(err)
	ok := e.transitionIf(ctx, gen, StateFailed, func(s *Status) {
		s.Reason = reason
		s.Message = msg
		s.FailedStep = step
		s.Retryable = step != StepValidate && reason != ReasonAuthRequired
	})
	if !ok {
		return e.superseded(err.Op)
	}
	e.logger.Warn("checkout step failed",
		zap.String("step", string(step)),
		zap.String("reason", string(reason)),
		zap.String("order_id", e.Status().OrderID),
		zap.Error(err),
	)
	return e.Status(), err
}

func (e *Engine) emit(ctx context.Context, t Transition) {
	e.logger.Info("checkout transition",
		zap.String("from", string(t.From)),
		zap.String("to", string(t.To)),
		zap.String("reason", string(t.Reason)),
		zap.String("order_id", t.OrderID),
	)
	for _, o := range e.observers {
		o.OnTransition(ctx, t)
	}
}

func (e *Engine) superseded(op string) (Status, error) {
	e.logger.Info("discarded response after cancel or reset", zap.String("op", op))
	return e.Status(), apperrors.Newf(apperrors.KindConflict, op, "checkout was cancelled or reset while the request was in flight")
}

func (e *Engine) busy(op string) error {
	return apperrors.Newf(apperrors.KindConflict, op, "another checkout step is in progress")
}

func (e *Engine) invalid(op string, st State) error {
	return apperrors.Newf(apperrors.KindConflict, op, "not allowed in state %s", st)
}
