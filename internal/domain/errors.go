package domain

import "errors"

// Domain validation errors.
var (
	// ErrConfigInvalid is returned when a token configuration or ledger
	// parameter fails validation. One bad token does not block others.
	ErrConfigInvalid = errors.New("invalid configuration")

	// ErrInvalidUTXO is returned when a box fails constructor-time checks.
	ErrInvalidUTXO = errors.New("invalid utxo")
)
