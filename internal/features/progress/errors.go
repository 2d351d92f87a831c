package progress

import "errors"

var (
	ErrEnrollmentNotFound = errors.New("enrollment not found")
	ErrVideoNotFound      = errors.New("video not found or not part of this course")
	ErrInvalidPosition    = errors.New("last position cannot be negative")
)
