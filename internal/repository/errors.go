package repository

import "errors"

// ErrNotFound and ErrUserNotFound are what stores return for a missing row or document.
var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("version conflict")
	ErrUserNotFound    = errors.New("user not found")
	ErrLockNotAcquired = errors.New("lock not acquired")
)
