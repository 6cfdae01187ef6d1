package checkout

import (
	"context"
	"sync"

	"github.com/imrishuroy/storefront-checkout/internal/cart"
	"github.com/imrishuroy/storefront-checkout/internal/commerce"
	"github.com/imrishuroy/storefront-checkout/internal/orders"
)

type fakeAPI struct {
	mu sync.Mutex

	createCalls, initiateCalls, verifyCalls, getCalls int

	orderID   string
	createErr error
	session   *commerce.CheckoutSession
	initErr   error
	order     *orders.Order

	// verifyErrs are returned first, then verdicts in order with the last one repeating
	verifyErrs []error
	verdicts   []*commerce.Verification

	// verifyHook runs inside VerifyPayment before it returns
	verifyHook func()
}

func hostedAPI() *fakeAPI {
	return &fakeAPI{
		orderID:  "ord-1",
		session:  &commerce.CheckoutSession{AuthorizationURL: "https://pay.example/x", AccessCode: "x", Reference: "ref-1"},
		verdicts: []*commerce.Verification{{Status: "success"}},
	}
}

func directAPI() *fakeAPI {
	return &fakeAPI{orderID: "ord-2", session: &commerce.CheckoutSession{Status: "completed"}}
}

func (f *fakeAPI) CreateOrder(ctx context.Context, r orders.Receiver) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.createErr != nil {
		return "", f.createErr
	}
	return f.orderID, nil
}

func (f *fakeAPI) InitiateCheckout(ctx context.Context, orderID, method string) (*commerce.CheckoutSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.initiateCalls++
	if f.initErr != nil {
		return nil, f.initErr
	}
	s := *f.session
	return &s, nil
}

func (f *fakeAPI) VerifyPayment(ctx context.Context, ref string) (*commerce.Verification, error) {
	f.mu.Lock()
	f.verifyCalls++
	hook := f.verifyHook
	var err error
	var v *commerce.Verification
	if len(f.verifyErrs) > 0 {
		err = f.verifyErrs[0]
		f.verifyErrs = f.verifyErrs[1:]
	} else {
		v = f.verdicts[0]
		if len(f.verdicts) > 1 {
			f.verdicts = f.verdicts[1:]
		}
	}
	f.mu.Unlock()

	if hook != nil {
		hook()
	}
	return v, err
}

func (f *fakeAPI) GetOrder(ctx context.Context, orderID string) (*orders.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	o := *f.order
	return &o, nil
}

func (f *fakeAPI) remoteCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.createCalls + f.initiateCalls + f.verifyCalls + f.getCalls
}

type fakeCart struct {
	mu       sync.Mutex
	view     cart.View
	clears   int
	clearErr error
}

func cartWith(lines ...cart.Line) *fakeCart {
	return &fakeCart{view: cart.View{Lines: lines, Totals: cart.DefaultPricing().Calculate(lines)}}
}

func (c *fakeCart) Snapshot() cart.View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

func (c *fakeCart) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clears++
	if c.clearErr != nil {
		return c.clearErr
	}
	c.view = cart.View{Lines: []cart.Line{}, Totals: cart.DefaultPricing().Calculate(nil)}
	return nil
}

func (c *fakeCart) clearCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clears
}

// recorder collects the states an engine moved through.
type recorder struct {
	mu     sync.Mutex
	states []State
}

func (r *recorder) OnTransition(ctx context.Context, t Transition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, t.To)
}

func (r *recorder) visited(s State) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range r.states {
		if v == s {
			return true
		}
	}
	return false
}
