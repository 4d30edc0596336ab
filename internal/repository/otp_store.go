package repository

import (
	"context"
	"errors"
	"time"
)

var (
	ErrOTPNotFound        = errors.New("otp not found or expired")
	ErrOTPMismatch        = errors.New("otp mismatch")
	ErrOTPTooManyAttempts = errors.New("too many otp attempts")
)

// OTPStore keeps hashed login codes with a TTL and an attempt counter.
type OTPStore interface {
	Save(ctx context.Context, email string, code string, ttl time.Duration) error
	// Verify consumes the code on success.
	Verify(ctx context.Context, email string, code string) error
}
