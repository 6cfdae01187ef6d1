package commerce

import (
	"context"
	"net/http"
	"net/url"

	"github.com/imrishuroy/storefront-checkout/internal/cart"
)

type cartItem struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int    `json:"quantity"`
	Image     string `json:"image"`
	InStock   bool   `json:"in_stock"`
}

type cartResponse struct {
	Items []cartItem `json:"items"`
}

type decrementRequest struct {
	RemoveAll bool `json:"remove_all"`
}

// FetchCart returns the authoritative cart. Lines with a non-positive quantity are dropped.
func (c *Client) FetchCart(ctx context.Context) ([]cart.Line, error) {
	var resp cartResponse
	if err := c.do(ctx, "commerce.FetchCart", http.MethodGet, "/cart", nil, &resp); err != nil {
		return nil, err
	}
	lines := make([]cart.Line, 0, len(resp.Items))
	for _, it := range resp.Items {
		if it.Quantity < 1 {
			continue
		}
		lines = append(lines, cart.Line{
			ProductID:   it.ProductID,
			DisplayName: it.Name,
			UnitPrice:   it.UnitPrice,
			Quantity:    it.Quantity,
			ImageRef:    it.Image,
			InStock:     it.InStock,
		})
	}
	return lines, nil
}

// IncrementLine adds one unit of productID.
func (c *Client) IncrementLine(ctx context.Context, productID string) error {
	return c.do(ctx, "commerce.IncrementLine", http.MethodPost, "/cart/items/"+url.PathEscape(productID)+"/increment", nil, nil)
}

// DecrementLine removes one unit of productID, or the whole line when removeAll is set.
func (c *Client) DecrementLine(ctx context.Context, productID string, removeAll bool) error {
	return c.do(ctx, "commerce.DecrementLine", http.MethodPost, "/cart/items/"+url.PathEscape(productID)+"/decrement",
		decrementRequest{RemoveAll: removeAll}, nil)
}

// ClearCart empties the cart.
func (c *Client) ClearCart(ctx context.Context) error {
	return c.do(ctx, "commerce.ClearCart", http.MethodDelete, "/cart", nil, nil)
}
