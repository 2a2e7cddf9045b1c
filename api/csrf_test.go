package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSRFTokenEndpoint_MintsTokenAndCookie(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(http.MethodGet, "/api/auth/csrf", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decodeJSON(t, rec)["csrfToken"])
	assert.NotEmpty(t, rec.Result().Cookies())
}

func TestAdminMutation_RejectedWithoutCSRFToken(t *testing.T) {
	f := newAPIFixture(t)
	seedOrder(f.backend, "ord-1", "pending")

	rec := f.do(http.MethodPut, "/api/admin/orders/ord-1/status",
		`{"status":"processing"}`, asUser(adminToken))

	require.Equal(t, http.StatusForbidden, rec.Code)
	body := decodeJSON(t, rec)
	assert.Equal(t, "permission_denied", body["kind"])
	assert.Equal(t, false, body["retryable"])
	assert.Contains(t, body["error"], "CSRF")
}

func TestAdminMutation_AllowedWithCSRFToken(t *testing.T) {
	f := newAPIFixture(t)
	seedOrder(f.backend, "ord-1", "pending")

	rec := f.do(http.MethodPut, "/api/admin/orders/ord-1/status",
		`{"status":"processing","note":"picking started"}`,
		asUser(adminToken), f.withCSRF())

	require.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())
	order := child(t, decodeJSON(t, rec), "order")
	assert.Equal(t, "processing", order["status"])
}

func TestStorefrontMutations_SkipCSRF(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(http.MethodPost, "/api/checkout/orders", `{
		"customerId": "cust-1",
		"customerName": "Jo Doe",
		"customerEmail": "jo@example.com",
		"items": [{"productId": "prod-1", "name": "Mug", "price": 19.99, "quantity": 2}]
	}`)

	require.Equal(t, http.StatusCreated, rec.Code, "body: %s", rec.Body.String())
	order := child(t, decodeJSON(t, rec), "order")
	assert.NotEmpty(t, order["id"])
}
