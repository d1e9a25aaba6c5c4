package fetch

import (
	"context"

	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/dvloznov/finance-ledger/internal/repository"
)

// TransactionFinder loads transactions matching a filter.
type TransactionFinder interface {
	Find(ctx context.Context, f repository.TransactionFilter) ([]*domain.Transaction, error)
}

// AccountResolver batch-loads accounts. Missing ids are absent from the
// returned map.
type AccountResolver interface {
	GetMany(ctx context.Context, ids []string) (map[string]*domain.Account, error)
}
