package commerce

import (
	"context"
	"net/http"
	"net/url"

	"github.com/imrishuroy/storefront-checkout/internal/orders"
	apperrors "github.com/imrishuroy/storefront-checkout/pkg/errors"
)

type createOrderRequest struct {
	Receiver orders.Receiver `json:"receiver"`
}

type createOrderResponse struct {
	OrderID string `json:"order_id"`
}

// CreateOrder creates an order from the current cart for receiver and returns its id.
func (c *Client) CreateOrder(ctx context.Context, receiver orders.Receiver) (string, error) {
	const op = "commerce.CreateOrder"
	var resp createOrderResponse
	if err := c.do(ctx, op, http.MethodPost, "/orders", createOrderRequest{Receiver: receiver}, &resp); err != nil {
		return "", err
	}
	if resp.OrderID == "" {
		return "", &apperrors.Error{Kind: apperrors.KindRejected, Op: op, Message: "response carried no order id"}
	}
	return resp.OrderID, nil
}

// GetOrder fetches the full order projection.
func (c *Client) GetOrder(ctx context.Context, orderID string) (*orders.Order, error) {
	var o orders.Order
	if err := c.do(ctx, "commerce.GetOrder", http.MethodGet, "/orders/"+url.PathEscape(orderID), nil, &o); err != nil {
		return nil, err
	}
	return &o, nil
}
