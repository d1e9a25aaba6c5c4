package repository

import (
	"context"
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/dvloznov/finance-ledger/internal/store"
)

// TransactionFilter narrows a transaction query. Nil and empty fields
// match everything.
type TransactionFilter struct {
	AccountID   string
	Checksum    string
	Amount      string
	DateFrom    *civil.Date
	DateTo      *civil.Date
	Categorized *bool
	Limit       int
}

func (f TransactionFilter) query() store.Query {
	sel := store.Selector{
		Type:        store.TypeTransaction,
		AccountID:   f.AccountID,
		Checksum:    f.Checksum,
		Amount:      f.Amount,
		Categorized: f.Categorized,
	}
	if amount, err := canonicalAmount(f.Amount); err == nil {
		sel.Amount = amount
	}
	if f.DateFrom != nil {
		sel.DateFrom = f.DateFrom.String()
	}
	if f.DateTo != nil {
		sel.DateTo = f.DateTo.String()
	}
	return store.Query{Selector: sel, Limit: f.Limit}
}

// TransactionRepository persists transactions as store documents.
type TransactionRepository struct {
	store store.DocumentStore
}

// NewTransactionRepository creates a repository over s.
func NewTransactionRepository(s store.DocumentStore) *TransactionRepository {
	return &TransactionRepository{store: s}
}

// Create inserts t and sets its ID and Rev. A transaction whose checksum
// already exists fails with domain.ErrDuplicateTransaction.
func (r *TransactionRepository) Create(ctx context.Context, t *domain.Transaction) error {
	doc, err := encodeTransaction(t)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}

	id, rev, err := r.store.Post(ctx, doc)
	if err != nil {
		return translate("Create", err, nil)
	}
	t.ID, t.Rev = id, rev
	return nil
}

// Get returns the transaction with the given id.
func (r *TransactionRepository) Get(ctx context.Context, id string) (*domain.Transaction, error) {
	doc, err := r.store.Get(ctx, id)
	if err != nil {
		return nil, translate("Get", err, domain.ErrTransactionNotFound)
	}
	if doc.Type != store.TypeTransaction {
		return nil, fmt.Errorf("Get: %s is a %s: %w", id, doc.Type, domain.ErrTransactionNotFound)
	}
	return decodeTransaction(doc)
}

// Update writes t back, failing with domain.ErrRevisionConflict when t.Rev
// is stale. On success t.Rev is advanced.
func (r *TransactionRepository) Update(ctx context.Context, t *domain.Transaction) error {
	doc, err := encodeTransaction(t)
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}

	rev, err := r.store.Put(ctx, doc)
	if err != nil {
		return translate("Update", err, domain.ErrTransactionNotFound)
	}
	t.Rev = rev
	return nil
}

// Find returns the transactions matching f in insertion order.
func (r *TransactionRepository) Find(ctx context.Context, f TransactionFilter) ([]*domain.Transaction, error) {
	docs, err := r.store.Find(ctx, f.query())
	if err != nil {
		return nil, translate("Find", err, nil)
	}

	txns := make([]*domain.Transaction, 0, len(docs))
	for _, doc := range docs {
		t, err := decodeTransaction(doc)
		if err != nil {
			return nil, fmt.Errorf("Find: %w", err)
		}
		txns = append(txns, t)
	}
	return txns, nil
}

// ExistsByChecksum reports whether a transaction with the checksum exists.
func (r *TransactionRepository) ExistsByChecksum(ctx context.Context, checksum string) (bool, error) {
	docs, err := r.store.Find(ctx, TransactionFilter{Checksum: checksum, Limit: 1}.query())
	if err != nil {
		return false, translate("ExistsByChecksum", err, nil)
	}
	return len(docs) > 0, nil
}

// UpdateCategory assigns categoryID to the transaction and returns it.
// An empty categoryID clears the category.
func (r *TransactionRepository) UpdateCategory(ctx context.Context, id, categoryID string) (*domain.Transaction, error) {
	t, err := r.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("UpdateCategory: %w", err)
	}

	t.CategoryID = categoryID
	if err := r.Update(ctx, t); err != nil {
		return nil, fmt.Errorf("UpdateCategory: %w", err)
	}
	return t, nil
}
