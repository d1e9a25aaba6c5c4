package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/dvloznov/finance-ledger/internal/store"
	"github.com/dvloznov/finance-ledger/internal/store/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingStore fails every call with err.
type failingStore struct {
	store.DocumentStore
	err error
}

func (f failingStore) Find(ctx context.Context, q store.Query) ([]*store.Document, error) {
	return nil, f.err
}

func (f failingStore) Get(ctx context.Context, id string) (*store.Document, error) {
	return nil, f.err
}

func newTxn(date civil.Date, amount, name, checksum string) *domain.Transaction {
	return &domain.Transaction{
		Date:      date,
		AccountID: "acct-1",
		Name:      name,
		Amount:    amount,
		Checksum:  checksum,
	}
}

func TestTransactionRepository_CreateGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewTransactionRepository(memory.NewStore())

	txn := newTxn(civil.Date{Year: 2017, Month: 3, Day: 4}, "-12.5", "Coffee", "sum-1")
	txn.Memo = "flat white"
	require.NoError(t, repo.Create(ctx, txn))
	require.NotEmpty(t, txn.ID)
	require.NotEmpty(t, txn.Rev)

	got, err := repo.Get(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, txn, got)
}

func TestTransactionRepository_CreateDuplicate(t *testing.T) {
	ctx := context.Background()
	repo := NewTransactionRepository(memory.NewStore())

	require.NoError(t, repo.Create(ctx, newTxn(civil.Date{Year: 2017, Month: 1, Day: 1}, "1", "A", "same")))
	err := repo.Create(ctx, newTxn(civil.Date{Year: 2017, Month: 1, Day: 1}, "1", "A", "same"))

	assert.ErrorIs(t, err, domain.ErrDuplicateTransaction)
	assert.ErrorIs(t, err, store.ErrDuplicate)
	assert.False(t, errors.Is(err, domain.ErrStore))
}

func TestTransactionRepository_GetMissing(t *testing.T) {
	_, err := NewTransactionRepository(memory.NewStore()).Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrTransactionNotFound)
}

func TestTransactionRepository_Find(t *testing.T) {
	ctx := context.Background()
	repo := NewTransactionRepository(memory.NewStore())

	for _, txn := range []*domain.Transaction{
		newTxn(civil.Date{Year: 2016, Month: 12, Day: 31}, "-5", "old", "c1"),
		newTxn(civil.Date{Year: 2017, Month: 5, Day: 1}, "-5", "mid", "c2"),
		newTxn(civil.Date{Year: 2018, Month: 1, Day: 1}, "7", "new", "c3"),
	} {
		require.NoError(t, repo.Create(ctx, txn))
	}

	from := civil.Date{Year: 2017, Month: 1, Day: 1}
	to := civil.Date{Year: 2017, Month: 12, Day: 31}
	got, err := repo.Find(ctx, TransactionFilter{DateFrom: &from, DateTo: &to})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "mid", got[0].Name)

	got, err = repo.Find(ctx, TransactionFilter{Amount: "-5"})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	exists, err := repo.ExistsByChecksum(ctx, "c3")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ExistsByChecksum(ctx, "nope")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestTransactionRepository_StoreErrorsWrapErrStore(t *testing.T) {
	boom := errors.New("connection reset")
	repo := NewTransactionRepository(failingStore{err: boom})

	_, err := repo.ExistsByChecksum(context.Background(), "c")
	assert.ErrorIs(t, err, domain.ErrStore)
	assert.ErrorIs(t, err, boom)

	_, err = repo.Find(context.Background(), TransactionFilter{})
	assert.ErrorIs(t, err, domain.ErrStore)
}

func TestTransactionRepository_UpdateCategory(t *testing.T) {
	ctx := context.Background()
	repo := NewTransactionRepository(memory.NewStore())

	txn := newTxn(civil.Date{Year: 2017, Month: 1, Day: 1}, "-3", "Bus", "c1")
	require.NoError(t, repo.Create(ctx, txn))

	updated, err := repo.UpdateCategory(ctx, txn.ID, "transport")
	require.NoError(t, err)
	assert.Equal(t, "transport", updated.CategoryID)
	assert.NotEqual(t, txn.Rev, updated.Rev)

	yes := true
	categorized, err := repo.Find(ctx, TransactionFilter{Categorized: &yes})
	require.NoError(t, err)
	require.Len(t, categorized, 1)
	assert.Equal(t, txn.ID, categorized[0].ID)

	// The original copy is stale now.
	txn.CategoryID = "food"
	assert.ErrorIs(t, repo.Update(ctx, txn), domain.ErrRevisionConflict)

	_, err = repo.UpdateCategory(ctx, "missing", "x")
	assert.ErrorIs(t, err, domain.ErrTransactionNotFound)
}

func TestAccountRepository_Lifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewAccountRepository(memory.NewStore())

	acct := &domain.Account{Name: "Main", FinancialInstitution: "Bank", Type: domain.AccountTypeChecking, Currency: "USD"}
	require.NoError(t, repo.Create(ctx, acct))

	acct.AddBalanceSnapshot(domain.BalanceSnapshot{DateTime: time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), Balance: "100"})
	require.NoError(t, repo.Update(ctx, acct))

	got, err := repo.Get(ctx, acct.ID)
	require.NoError(t, err)
	assert.Equal(t, "Main", got.Name)
	assert.Equal(t, domain.AccountTypeChecking, got.Type)
	require.Len(t, got.History, 1)
	assert.Equal(t, "100", got.History[0].Balance)
	assert.True(t, got.History[0].DateTime.Equal(time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)))

	list, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, repo.Delete(ctx, acct.ID))
	_, err = repo.Get(ctx, acct.ID)
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, acct.ID), domain.ErrAccountNotFound)
}

func TestAccountRepository_StaleUpdateConflicts(t *testing.T) {
	ctx := context.Background()
	repo := NewAccountRepository(memory.NewStore())

	acct := &domain.Account{Name: "Main", FinancialInstitution: "Bank", Type: domain.AccountTypeSavings}
	require.NoError(t, repo.Create(ctx, acct))

	first, err := repo.Get(ctx, acct.ID)
	require.NoError(t, err)
	second, err := repo.Get(ctx, acct.ID)
	require.NoError(t, err)

	first.AddBalanceSnapshot(domain.BalanceSnapshot{DateTime: time.Now(), Balance: "1"})
	require.NoError(t, repo.Update(ctx, first))

	second.AddBalanceSnapshot(domain.BalanceSnapshot{DateTime: time.Now(), Balance: "2"})
	assert.ErrorIs(t, repo.Update(ctx, second), domain.ErrRevisionConflict)
}

func TestAccountRepository_GetMany(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	repo := NewAccountRepository(s)

	a := &domain.Account{Name: "A", FinancialInstitution: "Bank", Type: domain.AccountTypeChecking}
	require.NoError(t, repo.Create(ctx, a))

	// A transaction id must not resolve as an account.
	txns := NewTransactionRepository(s)
	txn := newTxn(civil.Date{Year: 2017, Month: 1, Day: 1}, "1", "x", "c")
	require.NoError(t, txns.Create(ctx, txn))

	got, err := repo.GetMany(ctx, []string{a.ID, "missing", a.ID, txn.ID, ""})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "A", got[a.ID].Name)
}

func TestTransactionRepository_AmountsAreCanonical(t *testing.T) {
	ctx := context.Background()
	repo := NewTransactionRepository(memory.NewStore())

	txn := newTxn(civil.Date{Year: 2020, Month: 1, Day: 1}, "-50.00", "Groceries", "c1")
	require.NoError(t, repo.Create(ctx, txn))

	got, err := repo.Get(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, "-50", got.Amount)

	found, err := repo.Find(ctx, TransactionFilter{Amount: "-50.0"})
	require.NoError(t, err)
	require.Len(t, found, 1)

	err = repo.Create(ctx, newTxn(civil.Date{Year: 2020, Month: 1, Day: 1}, "fifty", "Bad", "c2"))
	assert.Error(t, err)
}
