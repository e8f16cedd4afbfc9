package domain

import "errors"

var (
	// ErrJobNotFound is returned when a job does not exist or belongs to
	// another user.
	ErrJobNotFound = errors.New("job not found")

	// ErrUserNotFound is returned when no Gmail token record exists for a user.
	ErrUserNotFound = errors.New("user not found")
)
