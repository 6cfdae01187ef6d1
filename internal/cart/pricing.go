package cart

// Default pricing constants, overridable through configuration.
const (
	DefaultFreeDeliveryThreshold int64 = 5000
	DefaultFlatDeliveryFee       int64 = 500
)

// Pricing holds the delivery fee rules.
type Pricing struct {
	FreeDeliveryThreshold int64
	FlatDeliveryFee       int64
}

// DefaultPricing returns the storefront's standard delivery rules.
func DefaultPricing() Pricing {
	return Pricing{
		FreeDeliveryThreshold: DefaultFreeDeliveryThreshold,
		FlatDeliveryFee:       DefaultFlatDeliveryFee,
	}
}

// Totals are the derived amounts shown alongside a cart view.
type Totals struct {
	Subtotal                 int64 `json:"subtotal"`
	DeliveryFee              int64 `json:"delivery_fee"`
	Total                    int64 `json:"total"`
	ItemCount                int   `json:"item_count"`
	RemainingForFreeDelivery int64 `json:"remaining_for_free_delivery"`
}

// Calculate computes totals for lines. It is pure and safe to call on any view.
func (p Pricing) Calculate(lines []Line) Totals {
	var t Totals
	for _, l := range lines {
		t.Subtotal += l.UnitPrice * int64(l.Quantity)
		t.ItemCount += l.Quantity
	}
	if t.Subtotal < p.FreeDeliveryThreshold {
		t.DeliveryFee = p.FlatDeliveryFee
		t.RemainingForFreeDelivery = p.FreeDeliveryThreshold - t.Subtotal
	}
	t.Total = t.Subtotal + t.DeliveryFee
	return t
}
