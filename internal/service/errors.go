package service

import "errors"

// Error taxonomy for the transfer path. The API layer maps these to HTTP
// status codes; nothing else crosses the store boundary untyped.
var (
	ErrUnauthenticated    = errors.New("authentication required")
	ErrInvalidRequest     = errors.New("invalid transfer request")
	ErrInvalidAmount      = errors.New("amount must be greater than zero")
	ErrLimitExceeded      = errors.New("amount exceeds per-transaction limit")
	ErrAccountUnavailable = errors.New("account is not active")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrAccountNotFound    = errors.New("account not found")
	ErrTransferFailed     = errors.New("transfer failed")
)
