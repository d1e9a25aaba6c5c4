// Package storetest holds the behavioural tests every store.DocumentStore
// implementation must pass.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/dvloznov/finance-ledger/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns a fresh, empty store. The test owns closing it.
type Factory func(t *testing.T) store.DocumentStore

// Run executes the contract suite against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s store.DocumentStore)
	}{
		{"PostAndGet", testPostAndGet},
		{"GetMissing", testGetMissing},
		{"DuplicateChecksum", testDuplicateChecksum},
		{"ConcurrentDuplicatePosts", testConcurrentDuplicatePosts},
		{"PutRevision", testPutRevision},
		{"Delete", testDelete},
		{"FindSelectors", testFindSelectors},
		{"FindInsertionOrderAndLimit", testFindInsertionOrderAndLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			t.Cleanup(func() { _ = s.Close() })
			tt.fn(t, s)
		})
	}
}

func txnDoc(checksum, account, date, amount, category string) *store.Document {
	return &store.Document{
		Type:       store.TypeTransaction,
		Checksum:   checksum,
		AccountID:  account,
		Date:       date,
		Amount:     amount,
		CategoryID: category,
		Body:       []byte(fmt.Sprintf(`{"checksum":%q}`, checksum)),
	}
}

func testPostAndGet(t *testing.T, s store.DocumentStore) {
	ctx := context.Background()

	id, rev, err := s.Post(ctx, txnDoc("c1", "a1", "2024-01-05", "-50", ""))
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.NotEmpty(t, rev)

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, rev, got.Rev)
	assert.Equal(t, "c1", got.Checksum)
	assert.Equal(t, "2024-01-05", got.Date)
	assert.Equal(t, "-50", got.Amount)
	assert.JSONEq(t, `{"checksum":"c1"}`, string(got.Body))

	withID := txnDoc("", "", "", "", "")
	withID.ID = "fixed-id"
	id2, _, err := s.Post(ctx, withID)
	require.NoError(t, err)
	assert.Equal(t, "fixed-id", id2)
}

func testGetMissing(t *testing.T, s store.DocumentStore) {
	_, err := s.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testDuplicateChecksum(t *testing.T, s store.DocumentStore) {
	ctx := context.Background()

	_, _, err := s.Post(ctx, txnDoc("dup", "a1", "2024-01-05", "-50", ""))
	require.NoError(t, err)

	_, _, err = s.Post(ctx, txnDoc("dup", "a1", "2024-01-05", "-50", ""))
	assert.ErrorIs(t, err, store.ErrDuplicate)

	// Documents without a checksum never collide.
	_, _, err = s.Post(ctx, &store.Document{Type: store.TypeAccount, Body: []byte(`{}`)})
	require.NoError(t, err)
	_, _, err = s.Post(ctx, &store.Document{Type: store.TypeAccount, Body: []byte(`{}`)})
	require.NoError(t, err)

	docs, err := s.Find(ctx, store.Query{Selector: store.Selector{Checksum: "dup"}})
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func testConcurrentDuplicatePosts(t *testing.T, s store.DocumentStore) {
	ctx := context.Background()
	const writers = 8

	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		ok, dupErr int
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := s.Post(ctx, txnDoc("race", "a1", "2024-01-05", "-1", ""))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, store.ErrDuplicate):
				dupErr++
			default:
				t.Errorf("unexpected Post error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, writers-1, dupErr)
}

func testPutRevision(t *testing.T, s store.DocumentStore) {
	ctx := context.Background()

	id, rev, err := s.Post(ctx, &store.Document{Type: store.TypeAccount, Body: []byte(`{"v":1}`)})
	require.NoError(t, err)

	doc, err := s.Get(ctx, id)
	require.NoError(t, err)
	doc.Body = []byte(`{"v":2}`)

	newRev, err := s.Put(ctx, doc)
	require.NoError(t, err)
	assert.NotEqual(t, rev, newRev)

	// The first reader's revision is now stale.
	stale := doc.Clone()
	stale.Rev = rev
	stale.Body = []byte(`{"v":3}`)
	_, err = s.Put(ctx, stale)
	assert.ErrorIs(t, err, store.ErrRevisionConflict)

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, newRev, got.Rev)
	assert.JSONEq(t, `{"v":2}`, string(got.Body))

	_, err = s.Put(ctx, &store.Document{ID: "missing", Rev: "1-x", Type: store.TypeAccount})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testDelete(t *testing.T, s store.DocumentStore) {
	ctx := context.Background()

	id, rev, err := s.Post(ctx, txnDoc("del", "a1", "2024-01-05", "-1", ""))
	require.NoError(t, err)

	assert.ErrorIs(t, s.Delete(ctx, id, "0-stale"), store.ErrRevisionConflict)
	require.NoError(t, s.Delete(ctx, id, rev))

	_, err = s.Get(ctx, id)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, id, rev), store.ErrNotFound)

	// The checksum is free again.
	_, _, err = s.Post(ctx, txnDoc("del", "a1", "2024-01-05", "-1", ""))
	assert.NoError(t, err)
}

func testFindSelectors(t *testing.T, s store.DocumentStore) {
	ctx := context.Background()

	seed := []*store.Document{
		txnDoc("f1", "a1", "2016-12-31", "-10", ""),
		txnDoc("f2", "a1", "2017-01-01", "10", "groceries"),
		txnDoc("f3", "a2", "2017-06-30", "-10", ""),
		txnDoc("f4", "a2", "2017-12-31", "25.5", "rent"),
		txnDoc("f5", "a1", "2018-01-01", "-10", ""),
		{Type: store.TypeAccount, AccountID: "", Body: []byte(`{}`)},
	}
	for _, d := range seed {
		_, _, err := s.Post(ctx, d)
		require.NoError(t, err)
	}

	yes, no := true, false
	tests := []struct {
		name string
		sel  store.Selector
		want []string
	}{
		{"all transactions", store.Selector{Type: store.TypeTransaction}, []string{"f1", "f2", "f3", "f4", "f5"}},
		{"by checksum", store.Selector{Type: store.TypeTransaction, Checksum: "f3"}, []string{"f3"}},
		{"by account", store.Selector{Type: store.TypeTransaction, AccountID: "a2"}, []string{"f3", "f4"}},
		{"by amount", store.Selector{Type: store.TypeTransaction, Amount: "-10"}, []string{"f1", "f3", "f5"}},
		{"year 2017", store.Selector{Type: store.TypeTransaction, DateFrom: "2017-01-01", DateTo: "2017-12-31"}, []string{"f2", "f3", "f4"}},
		{"from only", store.Selector{Type: store.TypeTransaction, DateFrom: "2017-12-31"}, []string{"f4", "f5"}},
		{"categorized", store.Selector{Type: store.TypeTransaction, Categorized: &yes}, []string{"f2", "f4"}},
		{"uncategorized in a1", store.Selector{Type: store.TypeTransaction, AccountID: "a1", Categorized: &no}, []string{"f1", "f5"}},
		{"no match", store.Selector{Type: store.TypeTransaction, Checksum: "missing"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs, err := s.Find(ctx, store.Query{Selector: tt.sel})
			require.NoError(t, err)
			got := []string{}
			for _, d := range docs {
				got = append(got, d.Checksum)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func testFindInsertionOrderAndLimit(t *testing.T, s store.DocumentStore) {
	ctx := context.Background()

	// Dates deliberately out of order: Find must not sort by them.
	for i, date := range []string{"2020-03-01", "2019-01-01", "2021-07-01", "2018-05-05"} {
		_, _, err := s.Post(ctx, txnDoc(fmt.Sprintf("o%d", i), "a1", date, "1", ""))
		require.NoError(t, err)
	}

	docs, err := s.Find(ctx, store.Query{Selector: store.Selector{Type: store.TypeTransaction}})
	require.NoError(t, err)
	got := []string{}
	for _, d := range docs {
		got = append(got, d.Checksum)
	}
	assert.Equal(t, []string{"o0", "o1", "o2", "o3"}, got)

	limited, err := s.Find(ctx, store.Query{Selector: store.Selector{Type: store.TypeTransaction}, Limit: 2})
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, "o0", limited[0].Checksum)
	assert.Equal(t, "o1", limited[1].Checksum)
}
