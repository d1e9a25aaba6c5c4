package memory

import (
	"context"
	"testing"

	"github.com/dvloznov/finance-ledger/internal/store"
	"github.com/dvloznov/finance-ledger/internal/store/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.DocumentStore {
		return NewStore()
	})
}

func TestStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	id, _, err := s.Post(ctx, &store.Document{Type: store.TypeAccount, Body: []byte(`{"name":"a"}`)})
	require.NoError(t, err)

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	got.Body = []byte(`{"name":"mutated"}`)
	got.Rev = "bogus"

	again, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"a"}`, string(again.Body))
	assert.NotEqual(t, "bogus", again.Rev)
}

func TestStore_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := NewStore().Post(ctx, &store.Document{Type: store.TypeAccount})
	assert.ErrorIs(t, err, context.Canceled)
}
