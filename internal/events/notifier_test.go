package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imrishuroy/storefront-checkout/internal/checkout"
	"github.com/imrishuroy/storefront-checkout/internal/commerce"
)

type sent struct {
	body  string
	attrs map[string]string
	delay int32
}

type fakeSender struct {
	msgs []sent
	err  error
}

func (f *fakeSender) Send(ctx context.Context, body string, attrs map[string]string, delay int32) error {
	f.msgs = append(f.msgs, sent{body, attrs, delay})
	return f.err
}

type fakeCounter struct {
	names []string
	dims  []map[string]string
}

func (f *fakeCounter) Count(ctx context.Context, name string, value float64, dims map[string]string) error {
	f.names = append(f.names, name)
	f.dims = append(f.dims, dims)
	return nil
}

func TestNotifier_PublishesTerminalStates(t *testing.T) {
	s, c := &fakeSender{}, &fakeCounter{}
	n := NewNotifier(s, c, nil)
	ctx := commerce.WithCorrelationID(context.Background(), "corr-9")
	at := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

	n.OnTransition(ctx, checkout.Transition{SessionID: "s1", From: checkout.StateIdle, To: checkout.StateValidatingInput, At: at})
	n.OnTransition(ctx, checkout.Transition{SessionID: "s1", To: checkout.StateCompleted, OrderID: "o1", Reference: "r1", At: at})

	require.Len(t, s.msgs, 1)
	ev, err := Decode(s.msgs[0].body)
	require.NoError(t, err)
	assert.Equal(t, TypeCheckoutCompleted, ev.Type)
	assert.Equal(t, "o1", ev.OrderID)
	assert.Equal(t, "corr-9", ev.CorrelationID)
	assert.Equal(t, at, ev.OccurredAt)
	assert.Equal(t, "o1", s.msgs[0].attrs["order_id"])

	assert.Equal(t, []string{MetricCheckoutTransition, MetricCheckoutTransition}, c.names)
	assert.Equal(t, "COMPLETED", c.dims[1]["State"])
}

func TestNotifier_FailedCarriesReason(t *testing.T) {
	s := &fakeSender{}
	n := NewNotifier(s, nil, nil)

	n.OnTransition(context.Background(), checkout.Transition{SessionID: "s1", To: checkout.StateFailed, Reason: checkout.ReasonPaymentRejected})

	require.Len(t, s.msgs, 1)
	ev, err := Decode(s.msgs[0].body)
	require.NoError(t, err)
	assert.Equal(t, TypeCheckoutFailed, ev.Type)
	assert.Equal(t, "PaymentRejected", ev.Reason)
}

func TestNotifier_SendErrorIsSwallowed(t *testing.T) {
	s := &fakeSender{err: errors.New("throttled")}
	n := NewNotifier(s, nil, nil)

	assert.NotPanics(t, func() {
		n.OnTransition(context.Background(), checkout.Transition{SessionID: "s1", To: checkout.StateCancelled})
	})
	assert.Len(t, s.msgs, 1)
}

func TestDecode_RejectsIncomplete(t *testing.T) {
	_, err := Decode(`{"order_id":"o1"}`)
	assert.Error(t, err)
	_, err = Decode(`not json`)
	assert.Error(t, err)
}
