package pipeline

import (
	"context"

	"github.com/dvloznov/finance-ledger/internal/domain"
)

// DuplicateChecker answers whether a checksum is already stored.
type DuplicateChecker interface {
	Exists(ctx context.Context, checksum string) (bool, error)
}

// TransactionWriter persists new transactions. Create must fail with
// domain.ErrDuplicateTransaction when the checksum already exists.
type TransactionWriter interface {
	Create(ctx context.Context, t *domain.Transaction) error
}

// AccountWriter persists account changes. Update must fail with
// domain.ErrRevisionConflict when the account revision is stale.
type AccountWriter interface {
	Update(ctx context.Context, a *domain.Account) error
}

// Archiver keeps a copy of raw statement content and returns its location.
type Archiver interface {
	Archive(ctx context.Context, accountID string, content []byte) (string, error)
}
