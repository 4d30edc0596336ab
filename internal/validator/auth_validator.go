package validator

import (
	"errors"
	"regexp"
	"strings"
)

var (
	ErrInvalidEmail = errors.New("invalid email")
	ErrInvalidOTP   = errors.New("otp must be 6 digits")
)

var (
	emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	otpRe   = regexp.MustCompile(`^\d{6}$`)
)

// NormalizeEmail trims and lowercases an address and checks its shape.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || len(email) > 254 || !emailRe.MatchString(email) {
		return "", ErrInvalidEmail
	}
	return email, nil
}

func ValidateOTP(code string) error {
	if !otpRe.MatchString(strings.TrimSpace(code)) {
		return ErrInvalidOTP
	}
	return nil
}
