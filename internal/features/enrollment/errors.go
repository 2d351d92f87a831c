package enrollment

import "errors"

var (
	ErrEnrollmentNotFound = errors.New("enrollment not found")
	ErrPaymentRequired    = errors.New("a completed payment for this course is required")
)
