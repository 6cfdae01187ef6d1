package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/imrishuroy/storefront-checkout/internal/commerce"
)

// RequestContext forwards the caller's bearer token to the commerce client and tags the request with
// a correlation id, generating one when the caller did not send it.
func RequestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		corr := c.GetHeader(commerce.HeaderCorrelationID)
		if corr == "" {
			corr = c.GetHeader("X-Request-Id")
		}
		if corr == "" {
			corr = uuid.NewString()
		}
		c.Header(commerce.HeaderCorrelationID, corr)

		ctx := commerce.WithCorrelationID(c.Request.Context(), corr)
		if tok := commerce.BearerToken(c.GetHeader("Authorization")); tok != "" {
			ctx = commerce.WithToken(ctx, tok)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
