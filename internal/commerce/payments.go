package commerce

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	apperrors "github.com/imrishuroy/storefront-checkout/pkg/errors"
)

// CheckoutSession is the outcome of initiating checkout. Hosted payments carry an authorization
// target; direct payments are already complete.
type CheckoutSession struct {
	AuthorizationURL string `json:"authorization_url,omitempty"`
	AccessCode       string `json:"access_code,omitempty"`
	Reference        string `json:"reference,omitempty"`
	Status           string `json:"status,omitempty"`
}

// Hosted reports whether the payment must be collected by the provider's own UI.
func (s *CheckoutSession) Hosted() bool { return s.AuthorizationURL != "" }

type checkoutRequest struct {
	PaymentMethod string `json:"payment_method,omitempty"`
}

// InitiateCheckout starts payment for orderID. paymentMethod may be empty for the server default.
func (c *Client) InitiateCheckout(ctx context.Context, orderID, paymentMethod string) (*CheckoutSession, error) {
	const op = "commerce.InitiateCheckout"
	var s CheckoutSession
	path := "/orders/" + url.PathEscape(orderID) + "/checkout"
	if err := c.do(ctx, op, http.MethodPost, path, checkoutRequest{PaymentMethod: paymentMethod}, &s); err != nil {
		return nil, err
	}
	if s.Hosted() && s.Reference == "" {
		return nil, &apperrors.Error{Kind: apperrors.KindRejected, Op: op, Message: "hosted checkout returned no payment reference"}
	}
	return &s, nil
}

// Verification is the provider's verdict on a payment reference.
type Verification struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Succeeded is true only for an explicit "success" status.
func (v *Verification) Succeeded() bool { return strings.EqualFold(v.Status, "success") }

// VerifyPayment asks the provider whether reference has been paid.
func (c *Client) VerifyPayment(ctx context.Context, reference string) (*Verification, error) {
	var v Verification
	if err := c.do(ctx, "commerce.VerifyPayment", http.MethodGet, "/payments/verify/"+url.PathEscape(reference), nil, &v); err != nil {
		return nil, err
	}
	return &v, nil
}
