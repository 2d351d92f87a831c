package checkout

import (
	"errors"

	"github.com/google/uuid"
)

var (
	ErrPaymentFailed          = errors.New("payment failed")
	ErrPaymentMethodRequired  = errors.New("payment method is required for paid courses")
	ErrReconciliationRequired = errors.New("payment was taken but enrollment could not be completed")
)

// DeclinedError is returned when the processor refuses a charge.
type DeclinedError struct {
	PaymentID uuid.UUID
	Reason    string
}

func (e *DeclinedError) Error() string { return "payment declined: " + e.Reason }

// Is makes a DeclinedError match ErrPaymentFailed.
func (e *DeclinedError) Is(target error) bool { return target == ErrPaymentFailed }
