package model

import "errors"

// lifecycle errors; usecases answer them with 400
var (
	ErrInvalidStage             = errors.New("invalid order stage")
	ErrInvalidStatus            = errors.New("invalid order status")
	ErrIllegalTransition        = errors.New("illegal stage transition")
	ErrStatusConflictsWithStage = errors.New("status conflicts with order stage")
	ErrInvalidPaymentID         = errors.New("invalid payment id")
)
