package validation

import "time"

// Payment methods offered at checkout.
const (
	PaymentCard     = "card"
	PaymentTransfer = "transfer"
	PaymentWallet   = "wallet"
)

// DeliveryInfo is who receives the order. All fields must be non-blank after trimming.
type DeliveryInfo struct {
	Name    string `json:"name" validate:"notblank"`
	Phone   string `json:"phone" validate:"notblank"`
	Address string `json:"address" validate:"notblank"`
}

// PlaceOrderRequest is the payload for POST /sessions/:id/checkout.
// Delivery fields are checked by the checkout engine so it can report which one is missing.
type PlaceOrderRequest struct {
	Delivery      DeliveryInfo `json:"delivery"`
	PaymentMethod string       `json:"payment_method,omitempty" validate:"omitempty,oneof=card transfer wallet"`
}

// SetQuantityRequest is the payload for PUT /sessions/:id/cart/items/:productId.
// Quantities below 1 are passed through and rejected by the cart synchronizer.
type SetQuantityRequest struct {
	Quantity *int `json:"quantity" validate:"required"`
}

// PollQuery is the query string of the polling endpoints, e.g. ?interval=3s&attempts=20.
// Zero values fall back to the server defaults.
type PollQuery struct {
	Interval time.Duration `form:"interval" json:"interval" validate:"omitempty,min=10ms,max=1m"`
	Attempts int           `form:"attempts" json:"attempts" validate:"omitempty,min=1,max=120"`
}
