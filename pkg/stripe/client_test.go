package stripe

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfirmPaymentIntentSendsForm(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/payment_intents", r.URL.Path)
		assert.Equal(t, "Bearer sk_test_123", r.Header.Get("Authorization"))
		assert.Equal(t, "pay-1", r.Header.Get("Idempotency-Key"))

		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "2999", r.PostForm.Get("amount"))
		assert.Equal(t, "usd", r.PostForm.Get("currency"))
		assert.Equal(t, "pm_card_visa", r.PostForm.Get("payment_method"))
		assert.Equal(t, "true", r.PostForm.Get("confirm"))
		assert.Equal(t, "never", r.PostForm.Get("automatic_payment_methods[allow_redirects]"))
		assert.Equal(t, "course-1", r.PostForm.Get("metadata[courseId]"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"pi_123","status":"succeeded","amount":2999,"currency":"usd"}`))
	}))
	defer srv.Close()

	intent, err := NewClient("sk_test_123", srv.URL+"/").ConfirmPaymentIntent(context.Background(), PaymentIntentParams{
		Amount:         2999,
		Currency:       "USD",
		PaymentMethod:  "pm_card_visa",
		Metadata:       map[string]string{"courseId": "course-1"},
		IdempotencyKey: "pay-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "pi_123", intent.ID)
	assert.Equal(t, StatusSucceeded, intent.Status)
}

func TestConfirmPaymentIntentDecline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte(`{"error":{"type":"card_error","code":"card_declined","decline_code":"insufficient_funds","message":"Your card has insufficient funds.","payment_intent":{"id":"pi_456","status":"requires_payment_method"}}}`))
	}))
	defer srv.Close()

	_, err := NewClient("sk", srv.URL).ConfirmPaymentIntent(context.Background(), PaymentIntentParams{Amount: 100, Currency: "usd"})

	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.True(t, apiErr.Declined())
	assert.Equal(t, http.StatusPaymentRequired, apiErr.HTTPStatus)
	assert.Equal(t, "pi_456", apiErr.PaymentIntent.ID)
}

func TestConfirmPaymentIntentServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream unavailable"))
	}))
	defer srv.Close()

	_, err := NewClient("sk", srv.URL).ConfirmPaymentIntent(context.Background(), PaymentIntentParams{Amount: 100, Currency: "usd"})
	require.Error(t, err)

	var apiErr *Error
	assert.False(t, errors.As(err, &apiErr))
	assert.Contains(t, err.Error(), "status=502")
}
