package orders

import "time"

// FulfillmentStatus is the delivery progress of an order. It is owned by the commerce API and only
// ever read here.
type FulfillmentStatus string

const (
	StatusPending   FulfillmentStatus = "pending"
	StatusAccepted  FulfillmentStatus = "accepted"
	StatusTransit   FulfillmentStatus = "transit"
	StatusDelivered FulfillmentStatus = "delivered"
	StatusCancelled FulfillmentStatus = "cancelled"
)

var progression = []FulfillmentStatus{StatusPending, StatusAccepted, StatusTransit, StatusDelivered}

// IsValid reports whether s is a known status.
func (s FulfillmentStatus) IsValid() bool {
	return s == StatusCancelled || s.step() >= 0
}

// IsTerminal is true for delivered and cancelled orders; nothing moves them further.
func (s FulfillmentStatus) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// CanTransitionTo reports whether next is a legal successor of s. Staying put is allowed.
func (s FulfillmentStatus) CanTransitionTo(next FulfillmentStatus) bool {
	if s == next {
		return true
	}
	if s.IsTerminal() {
		return false
	}
	if next == StatusCancelled {
		return true
	}
	from, to := s.step(), next.step()
	return from >= 0 && to > from
}

// Step returns the 0-based position in pending → accepted → transit → delivered, or -1 for cancelled
// and unknown statuses.
func (s FulfillmentStatus) Step() int { return s.step() }

func (s FulfillmentStatus) step() int {
	for i, p := range progression {
		if p == s {
			return i
		}
	}
	return -1
}

func (s FulfillmentStatus) String() string { return string(s) }

// Receiver is who the order is delivered to.
type Receiver struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// Item is one ordered product.
type Item struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int    `json:"quantity"`
}

// Order is the read-only projection of a server-side order.
type Order struct {
	OrderID       string            `json:"order_id"`
	Cost          int64             `json:"cost"`        // goods subtotal
	Fee           int64             `json:"fee"`         // delivery fee
	TotalPrice    int64             `json:"total_price"` // cost + fee
	PaymentStatus string            `json:"payment_status"`
	Status        FulfillmentStatus `json:"status"`
	Receiver      Receiver          `json:"receiver"`
	Items         []Item            `json:"items,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
}
