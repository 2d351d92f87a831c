package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/iamabdullah-dev/EdTech/pkg/stripe"
	"github.com/iamabdullah-dev/EdTech/pkg/types"
)

// ErrOutcomeUnknown means the processor accepted the charge but has not
// settled it. The returned Confirmation still carries the reference.
var ErrOutcomeUnknown = errors.New("payment outcome not yet known")

// Charge is a request to take money for one course.
type Charge struct {
	Amount          types.Money
	Currency        types.Currency
	PaymentMethodID string
	Description     string
	Metadata        map[string]string
	// IdempotencyKey lets the processor recognise a retried charge.
	IdempotencyKey string
}

// ConfirmationStatus is the processor's verdict on a charge.
type ConfirmationStatus string

const (
	ConfirmationSucceeded ConfirmationStatus = "succeeded"
	ConfirmationFailed    ConfirmationStatus = "failed"
)

// Confirmation is the result of a charge.
type Confirmation struct {
	Status        ConfirmationStatus
	Reference     string
	FailureReason string
}

// Processor confirms charges with an external payment provider.
type Processor interface {
	Confirm(ctx context.Context, charge Charge) (Confirmation, error)
}

// NewProcessor returns a Stripe-backed processor, or a disabled one when no
// secret key is configured.
func NewProcessor(secretKey, baseURL string) Processor {
	if secretKey == "" {
		return DisabledProcessor{}
	}
	return NewStripeProcessor(stripe.NewClient(secretKey, baseURL))
}

// DisabledProcessor rejects every charge.
type DisabledProcessor struct{}

// Confirm always fails with ErrProcessorUnavailable.
func (DisabledProcessor) Confirm(context.Context, Charge) (Confirmation, error) {
	return Confirmation{}, ErrProcessorUnavailable
}

// StripeProcessor confirms charges as Stripe PaymentIntents.
type StripeProcessor struct {
	client *stripe.Client
}

// NewStripeProcessor wraps a Stripe client.
func NewStripeProcessor(client *stripe.Client) *StripeProcessor {
	return &StripeProcessor{client: client}
}

// Confirm creates and confirms a PaymentIntent. Card declines are reported
// as a failed Confirmation, not as an error.
func (p *StripeProcessor) Confirm(ctx context.Context, charge Charge) (Confirmation, error) {
	intent, err := p.client.ConfirmPaymentIntent(ctx, stripe.PaymentIntentParams{
		Amount:         charge.Amount.MinorUnits(),
		Currency:       string(charge.Currency),
		PaymentMethod:  charge.PaymentMethodID,
		Description:    charge.Description,
		Metadata:       charge.Metadata,
		IdempotencyKey: charge.IdempotencyKey,
	})
	if err != nil {
		var apiErr *stripe.Error
		if errors.As(err, &apiErr) && apiErr.Declined() {
			conf := Confirmation{Status: ConfirmationFailed, FailureReason: apiErr.Message}
			if apiErr.PaymentIntent != nil {
				conf.Reference = apiErr.PaymentIntent.ID
			}
			return conf, nil
		}
		return Confirmation{}, err
	}

	switch intent.Status {
	case stripe.StatusSucceeded:
		return Confirmation{Status: ConfirmationSucceeded, Reference: intent.ID}, nil
	case stripe.StatusProcessing:
		return Confirmation{Reference: intent.ID}, fmt.Errorf("payment intent %s: %w", intent.ID, ErrOutcomeUnknown)
	default:
		reason := "payment not completed: " + intent.Status
		if intent.LastPaymentError != nil && intent.LastPaymentError.Message != "" {
			reason = intent.LastPaymentError.Message
		}
		return Confirmation{Status: ConfirmationFailed, Reference: intent.ID, FailureReason: reason}, nil
	}
}
