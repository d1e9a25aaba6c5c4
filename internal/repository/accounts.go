package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/dvloznov/finance-ledger/internal/store"
)

// AccountRepository persists accounts as store documents.
type AccountRepository struct {
	store store.DocumentStore
}

// NewAccountRepository creates a repository over s.
func NewAccountRepository(s store.DocumentStore) *AccountRepository {
	return &AccountRepository{store: s}
}

// Create inserts a and sets its ID and Rev.
func (r *AccountRepository) Create(ctx context.Context, a *domain.Account) error {
	doc, err := encodeAccount(a)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}

	id, rev, err := r.store.Post(ctx, doc)
	if err != nil {
		return translate("Create", err, nil)
	}
	a.ID, a.Rev = id, rev
	return nil
}

// Get returns the account with the given id.
func (r *AccountRepository) Get(ctx context.Context, id string) (*domain.Account, error) {
	doc, err := r.store.Get(ctx, id)
	if err != nil {
		return nil, translate("Get", err, domain.ErrAccountNotFound)
	}
	if doc.Type != store.TypeAccount {
		return nil, fmt.Errorf("Get: %s is a %s: %w", id, doc.Type, domain.ErrAccountNotFound)
	}
	return decodeAccount(doc)
}

// GetMany resolves ids to accounts. Ids that do not resolve to an account
// are absent from the result; any other failure is returned.
func (r *AccountRepository) GetMany(ctx context.Context, ids []string) (map[string]*domain.Account, error) {
	accounts := make(map[string]*domain.Account, len(ids))
	for _, id := range ids {
		if _, seen := accounts[id]; seen || id == "" {
			continue
		}
		acct, err := r.Get(ctx, id)
		if errors.Is(err, domain.ErrAccountNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("GetMany: %w", err)
		}
		accounts[id] = acct
	}
	return accounts, nil
}

// Update writes a back, failing with domain.ErrRevisionConflict when a.Rev
// is stale. On success a.Rev is advanced.
func (r *AccountRepository) Update(ctx context.Context, a *domain.Account) error {
	doc, err := encodeAccount(a)
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}

	rev, err := r.store.Put(ctx, doc)
	if err != nil {
		return translate("Update", err, domain.ErrAccountNotFound)
	}
	a.Rev = rev
	return nil
}

// List returns every account in insertion order.
func (r *AccountRepository) List(ctx context.Context) ([]*domain.Account, error) {
	docs, err := r.store.Find(ctx, store.Query{Selector: store.Selector{Type: store.TypeAccount}})
	if err != nil {
		return nil, translate("List", err, nil)
	}

	accounts := make([]*domain.Account, 0, len(docs))
	for _, doc := range docs {
		acct, err := decodeAccount(doc)
		if err != nil {
			return nil, fmt.Errorf("List: %w", err)
		}
		accounts = append(accounts, acct)
	}
	return accounts, nil
}

// Delete removes the account with the given id.
func (r *AccountRepository) Delete(ctx context.Context, id string) error {
	acct, err := r.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	if err := r.store.Delete(ctx, id, acct.Rev); err != nil {
		return translate("Delete", err, domain.ErrAccountNotFound)
	}
	return nil
}
