package dedup

import (
	"context"
	"errors"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/dvloznov/finance-ledger/internal/repository"
	"github.com/dvloznov/finance-ledger/internal/store/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockLookup struct {
	ExistsByChecksumFunc func(ctx context.Context, checksum string) (bool, error)
}

func (m *mockLookup) ExistsByChecksum(ctx context.Context, checksum string) (bool, error) {
	return m.ExistsByChecksumFunc(ctx, checksum)
}

func TestGate_Exists(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewTransactionRepository(memory.NewStore())
	require.NoError(t, repo.Create(ctx, &domain.Transaction{
		Date:     civil.Date{Year: 2024, Month: 1, Day: 5},
		Amount:   "-1",
		Checksum: "present",
	}))

	gate := NewGate(repo)

	found, err := gate.Exists(ctx, "present")
	require.NoError(t, err)
	assert.True(t, found)

	found, err = gate.Exists(ctx, "absent")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestGate_PropagatesLookupErrors(t *testing.T) {
	boom := errors.New("store offline")
	gate := NewGate(&mockLookup{
		ExistsByChecksumFunc: func(ctx context.Context, checksum string) (bool, error) {
			return false, boom
		},
	})

	found, err := gate.Exists(context.Background(), "x")
	assert.False(t, found)
	assert.ErrorIs(t, err, boom)
}

func TestGate_RejectsEmptyChecksum(t *testing.T) {
	called := false
	gate := NewGate(&mockLookup{
		ExistsByChecksumFunc: func(ctx context.Context, checksum string) (bool, error) {
			called = true
			return false, nil
		},
	})

	_, err := gate.Exists(context.Background(), "")
	assert.Error(t, err)
	assert.False(t, called)
}
