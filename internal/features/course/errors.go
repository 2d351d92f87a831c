package course

import "errors"

// ErrCourseNotFound is also returned for drafts the caller may not see.
var ErrCourseNotFound = errors.New("course not found")

// Validation failures on create and update.
var (
	ErrTitleRequired   = errors.New("course title is required")
	ErrNegativePrice   = errors.New("course price cannot be negative")
	ErrPriceTooPrecise = errors.New("course price cannot have more than two decimal places")
	ErrPriceTooLarge   = errors.New("course price exceeds 99999999.99")
)
