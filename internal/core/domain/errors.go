package domain

import "errors"

// Sentinel errors returned by repositories and domain rules. Services map
// them onto apperror codes.
var (
	ErrNotFound               = errors.New("not found")
	ErrInsufficientBalance    = errors.New("insufficient balance")
	ErrInvalidTransition      = errors.New("invalid status transition")
	ErrUnknownTransactionType = errors.New("unknown transaction type")
	ErrDuplicate              = errors.New("duplicate record")
	ErrWalletClosed           = errors.New("wallet is closed")
	ErrInvalidEvent           = errors.New("invalid settlement event")
)
