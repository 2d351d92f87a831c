package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const userAgent = "EdTech-Server-Go/1.0.0"

// Intent statuses returned by the PaymentIntents API.
const (
	StatusSucceeded             = "succeeded"
	StatusProcessing            = "processing"
	StatusRequiresPaymentMethod = "requires_payment_method"
	StatusRequiresAction        = "requires_action"
	StatusCanceled              = "canceled"
)

// Client confirms payments through the Stripe REST API.
type Client struct {
	secretKey  string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Stripe client. baseURL is normally https://api.stripe.com.
func NewClient(secretKey, baseURL string) *Client {
	return &Client{
		secretKey: secretKey,
		baseURL:   strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// PaymentIntentParams describes a charge to create and confirm in one call.
type PaymentIntentParams struct {
	Amount         int64
	Currency       string
	PaymentMethod  string
	Description    string
	Metadata       map[string]string
	IdempotencyKey string
}

// PaymentIntent is the subset of the API object the server reads.
type PaymentIntent struct {
	ID               string `json:"id"`
	Status           string `json:"status"`
	Amount           int64  `json:"amount"`
	Currency         string `json:"currency"`
	LastPaymentError *Error `json:"last_payment_error,omitempty"`
}

// Error is an API error body. Card declines arrive as type "card_error".
type Error struct {
	HTTPStatus    int            `json:"-"`
	Type          string         `json:"type"`
	Code          string         `json:"code"`
	DeclineCode   string         `json:"decline_code"`
	Message       string         `json:"message"`
	PaymentIntent *PaymentIntent `json:"payment_intent,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("stripe API error: status=%d, type=%s, code=%s, message=%s", e.HTTPStatus, e.Type, e.Code, e.Message)
}

// Declined reports whether the error is a card decline rather than a
// request or server problem.
func (e *Error) Declined() bool {
	return e.Type == "card_error"
}

// ConfirmPaymentIntent creates a PaymentIntent with confirm=true.
// Redirect-based payment methods are disabled.
func (c *Client) ConfirmPaymentIntent(ctx context.Context, params PaymentIntentParams) (PaymentIntent, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(params.Amount, 10))
	form.Set("currency", strings.ToLower(params.Currency))
	form.Set("payment_method", params.PaymentMethod)
	form.Set("confirm", "true")
	form.Set("automatic_payment_methods[enabled]", "true")
	form.Set("automatic_payment_methods[allow_redirects]", "never")
	if params.Description != "" {
		form.Set("description", params.Description)
	}
	for k, v := range params.Metadata {
		form.Set("metadata["+k+"]", v)
	}

	endpoint := c.baseURL + "/v1/payment_intents"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return PaymentIntent{}, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", userAgent)
	if params.IdempotencyKey != "" {
		req.Header.Set("Idempotency-Key", params.IdempotencyKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return PaymentIntent{}, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return PaymentIntent{}, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var envelope struct {
			Error Error `json:"error"`
		}
		if err := json.Unmarshal(body, &envelope); err != nil || envelope.Error.Type == "" {
			return PaymentIntent{}, fmt.Errorf("stripe API error: status=%d, body=%s", resp.StatusCode, string(body))
		}
		envelope.Error.HTTPStatus = resp.StatusCode
		return PaymentIntent{}, &envelope.Error
	}

	var intent PaymentIntent
	if err := json.Unmarshal(body, &intent); err != nil {
		return PaymentIntent{}, fmt.Errorf("failed to decode response: %w", err)
	}
	return intent, nil
}
