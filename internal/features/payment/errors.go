package payment

import (
	"errors"

	"github.com/iamabdullah-dev/EdTech/pkg/types"
)

var (
	ErrPaymentNotFound      = errors.New("payment not found")
	ErrInvalidTransition    = errors.New("payment is not in a state that allows this change")
	ErrProcessorUnavailable = errors.New("payment processor is not configured")
)

const (
	StatusPending     = types.PaymentStatusPending
	StatusCompleted   = types.PaymentStatusCompleted
	StatusFailed      = types.PaymentStatusFailed
	StatusNeedsReview = types.PaymentStatusNeedsReview
)
