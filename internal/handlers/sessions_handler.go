package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/imrishuroy/storefront-checkout/internal/cart"
	"github.com/imrishuroy/storefront-checkout/internal/checkout"
	"github.com/imrishuroy/storefront-checkout/internal/orders"
	"github.com/imrishuroy/storefront-checkout/internal/session"
	"github.com/imrishuroy/storefront-checkout/internal/validation"
	apperrors "github.com/imrishuroy/storefront-checkout/pkg/errors"
)

// HandlerConfig groups dependencies for the session handlers.
type HandlerConfig struct {
	Commerce  CommerceAPI
	Refs      session.Store // optional
	Observers []checkout.Observer
	Pricing   cart.Pricing
	MaxIdle   time.Duration
	Logger    *zap.Logger
}

type sessionsHandler struct {
	registry *Registry
	v        *validatorv10.Validate
}

// RegisterSessionRoutes registers the cart and checkout routes and returns the session registry
// backing them.
func RegisterSessionRoutes(r *gin.Engine, cfg HandlerConfig) *Registry {
	v := validation.New()
	h := &sessionsHandler{
		registry: NewRegistry(cfg.Commerce, cfg.Refs, cfg.Observers, cfg.Pricing, v, cfg.MaxIdle, cfg.Logger),
		v:        v,
	}

	r.POST("/sessions", h.createSession)

	s := r.Group("/sessions/:id", h.loadSession)
	s.GET("/cart", h.getCart)
	s.PUT("/cart/items/:productId", h.setQuantity)
	s.DELETE("/cart/items/:productId", h.removeItem)
	s.GET("/checkout", h.getCheckout)
	s.POST("/checkout", h.placeOrder)
	s.POST("/checkout/verify", h.verify)
	s.POST("/checkout/poll", h.poll)
	s.POST("/checkout/retry", h.retry)
	s.POST("/checkout/cancel", h.cancel)
	s.POST("/checkout/reset", h.reset)
	s.GET("/order", h.getOrder)
	s.GET("/order/events", h.orderEvents)

	return h.registry
}

const sessionKey = "session"

// defaults for the polling endpoints
const (
	defaultPollAttempts  = 12
	defaultWatchInterval = 15 * time.Second
)

func (h *sessionsHandler) createSession(c *gin.Context) {
	s := h.registry.Create()
	c.Header("Location", "/sessions/"+s.ID)
	c.JSON(http.StatusCreated, gin.H{"session_id": s.ID})
}

func (h *sessionsHandler) loadSession(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid_session_id"})
		return
	}
	c.Set(sessionKey, h.registry.Get(c.Request.Context(), id))
	c.Next()
}

func current(c *gin.Context) *Session {
	return c.MustGet(sessionKey).(*Session)
}

func (h *sessionsHandler) getCart(c *gin.Context) {
	view, err := current(c).Cart.Refresh(c.Request.Context())
	if err != nil {
		writeError(c, 0, err, gin.H{"cart": view})
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *sessionsHandler) setQuantity(c *gin.Context) {
	var req validation.SetQuantityRequest
	if err := validation.BindAndValidate(c, &req, h.v); err != nil {
		// BindAndValidate already wrote a 400
		return
	}
	s := current(c)
	ctx := c.Request.Context()

	// the local view may be stale in a fresh process
	if s.Cart.Snapshot().Empty() {
		if _, err := s.Cart.Refresh(ctx); err != nil {
			writeError(c, 0, err, nil)
			return
		}
	}
	view, err := s.Cart.SetQuantity(ctx, c.Param("productId"), *req.Quantity)
	if err != nil {
		writeError(c, 0, err, gin.H{"cart": view})
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *sessionsHandler) removeItem(c *gin.Context) {
	view, err := current(c).Cart.Remove(c.Request.Context(), c.Param("productId"))
	if err != nil {
		writeError(c, 0, err, gin.H{"cart": view})
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *sessionsHandler) getCheckout(c *gin.Context) {
	c.JSON(http.StatusOK, current(c).Checkout.Status())
}

func (h *sessionsHandler) placeOrder(c *gin.Context) {
	var req validation.PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request_body", "msg": err.Error()})
		return
	}
	// delivery fields are left to the engine, which names the missing one
	if err := h.v.Var(req.PaymentMethod, "omitempty,oneof=card transfer wallet"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_failed", "fields": gin.H{"payment_method": err.Error()}})
		return
	}

	s := current(c)
	ctx := c.Request.Context()
	if _, err := s.Cart.Refresh(ctx); err != nil {
		writeError(c, 0, err, nil)
		return
	}

	st, err := s.Checkout.PlaceOrder(ctx, req.Delivery, req.PaymentMethod)
	h.writeCheckout(c, st, err)
}

func (h *sessionsHandler) verify(c *gin.Context) {
	st, err := current(c).Checkout.Verify(c.Request.Context())
	h.writeCheckout(c, st, err)
}

// poll keeps the request open while the hosted payment is checked a few times.
func (h *sessionsHandler) poll(c *gin.Context) {
	var q validation.PollQuery
	if err := validation.BindQueryAndValidate(c, &q, h.v); err != nil {
		return
	}
	if q.Attempts == 0 {
		q.Attempts = defaultPollAttempts
	}
	st, err := current(c).Checkout.PollVerification(c.Request.Context(), q.Interval, q.Attempts)
	h.writeCheckout(c, st, err)
}

func (h *sessionsHandler) retry(c *gin.Context) {
	st, err := current(c).Checkout.Retry(c.Request.Context())
	h.writeCheckout(c, st, err)
}

func (h *sessionsHandler) cancel(c *gin.Context) {
	st, err := current(c).Checkout.Cancel(c.Request.Context())
	h.writeCheckout(c, st, err)
}

func (h *sessionsHandler) reset(c *gin.Context) {
	st, err := current(c).Checkout.Reset(c.Request.Context())
	h.writeCheckout(c, st, err)
}

func (h *sessionsHandler) writeCheckout(c *gin.Context, st checkout.Status, err error) {
	if err == nil {
		c.JSON(http.StatusOK, st)
		return
	}
	status := 0
	if apperrors.IsKind(err, apperrors.KindValidation) {
		// a well-formed request the cart or delivery info cannot satisfy
		status = http.StatusUnprocessableEntity
	}
	writeError(c, status, err, gin.H{"checkout": st})
}

func (h *sessionsHandler) getOrder(c *gin.Context) {
	o, err := current(c).Checkout.TrackOrder(c.Request.Context())
	if err != nil {
		writeError(c, 0, err, nil)
		return
	}
	c.JSON(http.StatusOK, o)
}

// orderEvents streams the order as server-sent "order" events until it is delivered or cancelled
// or the client goes away.
func (h *sessionsHandler) orderEvents(c *gin.Context) {
	var q validation.PollQuery
	if err := validation.BindQueryAndValidate(c, &q, h.v); err != nil {
		return
	}
	if q.Interval == 0 {
		q.Interval = defaultWatchInterval
	}
	s := current(c)
	if s.Checkout.Status().OrderID == "" {
		writeError(c, 0, apperrors.Newf(apperrors.KindNotFound, "handlers.orderEvents", "no order for this session"), nil)
		return
	}

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	err := s.Checkout.WatchOrder(c.Request.Context(), q.Interval, func(o *orders.Order) {
		c.SSEvent("order", o)
		c.Writer.Flush()
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		c.SSEvent("error", errorBody(err))
	}
}
