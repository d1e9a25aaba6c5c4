package repository

import (
	"errors"
	"fmt"

	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/dvloznov/finance-ledger/internal/store"
)

// translate maps a store error onto the domain sentinels while keeping the
// original in the chain. notFound is the sentinel for a missing document.
func translate(op string, err error, notFound error) error {
	switch {
	case errors.Is(err, store.ErrNotFound) && notFound != nil:
		return fmt.Errorf("%s: %w: %w", op, notFound, err)
	case errors.Is(err, store.ErrDuplicate):
		return fmt.Errorf("%s: %w: %w", op, domain.ErrDuplicateTransaction, err)
	case errors.Is(err, store.ErrRevisionConflict):
		return fmt.Errorf("%s: %w: %w", op, domain.ErrRevisionConflict, err)
	default:
		return fmt.Errorf("%s: %w: %w", op, domain.ErrStore, err)
	}
}
