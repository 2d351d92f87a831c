package user

import "errors"

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrTutorNotFound = errors.New("tutor not found")
	ErrEmailTaken    = errors.New("email already exists")
)

// Account field validation.
var (
	ErrInvalidPassword = errors.New("password must be at least 8 characters")
	ErrWrongPassword   = errors.New("current password is incorrect")
	ErrInvalidEmail    = errors.New("invalid email format")
	ErrInvalidRole     = errors.New("role must be student or tutor")
	ErrMissingName     = errors.New("full name is required")
	ErrNothingToUpdate = errors.New("no update fields provided")
)
