package video

import "errors"

var (
	ErrVideoNotFound   = errors.New("video not found")
	ErrTitleRequired   = errors.New("video title is required")
	ErrURLRequired     = errors.New("video url is required")
	ErrInvalidDuration = errors.New("video duration must be a positive number of seconds")
	ErrInvalidOrder    = errors.New("sequence order cannot be negative")
)
