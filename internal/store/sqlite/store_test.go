package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/dvloznov/finance-ledger/internal/store"
	"github.com/dvloznov/finance-ledger/internal/store/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.DocumentStore {
		s, err := Open(filepath.Join(t.TempDir(), "ledger.db"))
		require.NoError(t, err)
		return s
	})
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "ledger.db")

	s, err := Open(path)
	require.NoError(t, err)
	id, _, err := s.Post(ctx, &store.Document{Type: store.TypeTransaction, Checksum: "keep", Body: []byte(`{}`)})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "keep", got.Checksum)

	_, _, err = reopened.Post(ctx, &store.Document{Type: store.TypeTransaction, Checksum: "keep"})
	assert.ErrorIs(t, err, store.ErrDuplicate)
}
