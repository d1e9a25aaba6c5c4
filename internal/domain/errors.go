package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrUnparseableStatement is returned when statement content cannot be
	// parsed. No writes happen after it.
	ErrUnparseableStatement = errors.New("unparseable statement")

	// ErrStore wraps any failure reported by the storage backend.
	ErrStore = errors.New("store error")

	// ErrDuplicateTransaction is returned when a transaction with the same
	// checksum already exists.
	ErrDuplicateTransaction = errors.New("duplicate transaction")

	// ErrRevisionConflict is returned when a write carries a stale revision.
	ErrRevisionConflict = errors.New("revision conflict")

	ErrAccountNotFound     = errors.New("ACCOUNT_NOT_FOUND")
	ErrTransactionNotFound = errors.New("TRANSACTION_NOT_FOUND")

	// ErrInvalidAccount is the parent of every account validation error.
	ErrInvalidAccount = errors.New("invalid account")
)

// Validation error codes.
const (
	CodeRequiredField      = "REQUIRED_FIELD"
	CodeInvalidAccountType = "INVALID_ACCOUNT_TYPE"
)

// ValidationError describes a rejected account field.
type ValidationError struct {
	Code  string
	Field string
	Value string
}

func (e *ValidationError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("%s: %s=%q", e.Code, e.Field, e.Value)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Field)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidAccount
}
