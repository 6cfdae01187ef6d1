package validation

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeliveryInfo_Valid(t *testing.T) {
	v := New()
	info := DeliveryInfo{Name: "Ada", Phone: "+234 800 000 0000", Address: "12 Marina, Lagos"}
	assert.NoError(t, v.Struct(info))
}

func TestDeliveryInfo_BlankFieldsReportedInOrder(t *testing.T) {
	v := New()

	cases := []struct {
		info DeliveryInfo
		want string
	}{
		{DeliveryInfo{Name: "  ", Phone: "", Address: ""}, "name"},
		{DeliveryInfo{Name: "Ada", Phone: "\t", Address: ""}, "phone"},
		{DeliveryInfo{Name: "Ada", Phone: "080", Address: "   "}, "address"},
	}
	for _, tc := range cases {
		err := v.Struct(tc.info)
		require.Error(t, err)
		assert.Equal(t, tc.want, FirstInvalidField(err))
	}
}

func TestPlaceOrderRequest_PaymentMethod(t *testing.T) {
	v := New()

	delivery := DeliveryInfo{Name: "Ada", Phone: "080", Address: "Lagos"}

	for _, m := range []string{"", PaymentCard, PaymentTransfer, PaymentWallet} {
		req := PlaceOrderRequest{Delivery: delivery, PaymentMethod: m}
		assert.NoError(t, v.Struct(req), m)
	}

	err := v.Struct(PlaceOrderRequest{Delivery: delivery, PaymentMethod: "cash"})
	require.Error(t, err)
	assert.Equal(t, "payment_method", FirstInvalidField(err))
}

func TestFirstInvalidField_NonValidationError(t *testing.T) {
	assert.Equal(t, "", FirstInvalidField(assert.AnError))
}

func TestBindAndValidate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	v := New()

	cases := []struct {
		body   string
		status int
	}{
		{`{"quantity": 3}`, http.StatusOK},
		{`{"quantity": 0}`, http.StatusOK},
		{`{}`, http.StatusBadRequest},
		{`not json`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodPut, "/", strings.NewReader(tc.body))
		c.Request.Header.Set("Content-Type", "application/json")

		var req SetQuantityRequest
		if err := BindAndValidate(c, &req, v); err == nil {
			c.Status(http.StatusOK)
		}
		assert.Equal(t, tc.status, w.Code, tc.body)
	}
}
