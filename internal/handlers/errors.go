package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "github.com/imrishuroy/storefront-checkout/pkg/errors"
)

func statusFor(kind apperrors.Kind) int {
	switch kind {
	case apperrors.KindAuthRequired:
		return http.StatusUnauthorized
	case apperrors.KindValidation:
		return http.StatusBadRequest
	case apperrors.KindNotFound:
		return http.StatusNotFound
	case apperrors.KindConflict:
		return http.StatusConflict
	case apperrors.KindNetwork, apperrors.KindVerification:
		return http.StatusBadGateway
	case apperrors.KindOrderCreationFailed, apperrors.KindCheckoutFailed, apperrors.KindPaymentRejected, apperrors.KindRejected:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func errorBody(err error) gin.H {
	code := strings.ToLower(string(apperrors.KindOf(err)))
	if code == "" {
		code = "internal_error"
	}
	body := gin.H{"error": code}
	if msg := apperrors.Message(err); msg != "" {
		body["message"] = msg
	}
	return body
}

// writeError renders err with the status of its kind. extra fields are merged into the body.
func writeError(c *gin.Context, status int, err error, extra gin.H) {
	kind := apperrors.KindOf(err)
	body := errorBody(err)
	for k, v := range extra {
		body[k] = v
	}
	if status == 0 {
		status = statusFor(kind)
	}
	c.JSON(status, body)
}
