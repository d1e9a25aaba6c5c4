// Package links finds transactions that may offset a given one, such as
// the two sides of a transfer between accounts.
package links

import (
	"context"
	"fmt"
	"sort"

	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/dvloznov/finance-ledger/internal/logger"
	"github.com/dvloznov/finance-ledger/internal/repository"
	"github.com/shopspring/decimal"
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

// Matcher discovers link candidates.
type Matcher struct {
	txns     TransactionFinder
	accounts AccountResolver
}

// NewMatcher creates a Matcher.
func NewMatcher(txns TransactionFinder, accounts AccountResolver) *Matcher {
	return &Matcher{txns: txns, accounts: accounts}
}

// FindCandidates returns every other transaction whose amount is the exact
// negation of txn's, most recent first. Ties keep store order. Candidates
// with an unresolved account are kept with a nil Account.
func (m *Matcher) FindCandidates(ctx context.Context, txn *domain.Transaction) ([]domain.LinkCandidate, error) {
	amount, err := decimal.NewFromString(txn.Amount)
	if err != nil {
		return nil, fmt.Errorf("FindCandidates: amount %q of %s: %w", txn.Amount, txn.ID, err)
	}

	matches, err := m.txns.Find(ctx, repository.TransactionFilter{Amount: amount.Neg().String()})
	if err != nil {
		return nil, fmt.Errorf("FindCandidates: %w", err)
	}

	candidates := make([]domain.LinkCandidate, 0, len(matches))
	ids := make([]string, 0, len(matches))
	for _, t := range matches {
		if t.ID == txn.ID {
			continue
		}
		candidates = append(candidates, domain.LinkCandidate{Transaction: *t})
		ids = append(ids, t.AccountID)
	}
	if len(candidates) == 0 {
		return candidates, nil
	}

	accounts, err := m.accounts.GetMany(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("FindCandidates: resolving accounts: %w", err)
	}
	for i := range candidates {
		candidates[i].Account = accounts[candidates[i].AccountID]
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Date.After(candidates[j].Date)
	})

	log := logger.WithComponent(ctx, "links")
	log.Debug().
		Str("transaction_id", txn.ID).
		Int("candidates", len(candidates)).
		Msg("found link candidates")

	return candidates, nil
}
