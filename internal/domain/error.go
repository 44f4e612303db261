package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound            = errors.New("entity not found")
	ErrAlreadyExists       = errors.New("entity already exists")
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrInvalidExecContext  = errors.New("invalid query execution context")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrBanned              = errors.New("account is banned")
	ErrMaintenanceMode     = errors.New("maintenance mode is active")
	ErrNotAuthorized       = errors.New("account is not authorized")
	ErrPremiumDisabled     = errors.New("premium purchases are disabled")
	ErrPackageNotFound     = errors.New("credit package not found")
	ErrCodeNotFound        = errors.New("invite code not found")
	ErrCodeAlreadyUsed     = errors.New("invite code already used")

	// Pipeline errors
	ErrExtractionFailed = errors.New("match extraction failed")
	ErrSynthesisFailed  = errors.New("report synthesis failed")
	ErrFormattingFailed = errors.New("report formatting failed")
)
