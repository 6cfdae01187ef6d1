package cart

// Line is one product's presence in the cart. Quantity is at least 1 while the line exists.
type Line struct {
	ProductID   string `json:"product_id"`
	DisplayName string `json:"name"`
	UnitPrice   int64  `json:"unit_price"` // whole currency units (e.g. Naira)
	Quantity    int    `json:"quantity"`
	ImageRef    string `json:"image,omitempty"`
	InStock     bool   `json:"in_stock"`
}

// View is the cart as currently known locally, always replaced in full from the remote cart.
type View struct {
	Lines  []Line `json:"lines"`
	Totals Totals `json:"totals"`
}

// Empty reports whether the view has no lines.
func (v View) Empty() bool { return len(v.Lines) == 0 }

// Line returns the line for productID, if present.
func (v View) Line(productID string) (Line, bool) {
	for _, l := range v.Lines {
		if l.ProductID == productID {
			return l, true
		}
	}
	return Line{}, false
}

func cloneLines(lines []Line) []Line {
	if lines == nil {
		return []Line{}
	}
	out := make([]Line, len(lines))
	copy(out, lines)
	return out
}
