package fingerprint

import (
	"testing"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprint_Stable(t *testing.T) {
	date := civil.Date{Year: 2024, Month: 1, Day: 5}
	a := Fingerprint(date, decimal.RequireFromString("-50.00"), "Coffee Shop", "acct-1")
	b := Fingerprint(date, decimal.RequireFromString("-50"), "  Coffee Shop ", "acct-1")

	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestFingerprint_DiffersOnAnyField(t *testing.T) {
	date := civil.Date{Year: 2024, Month: 1, Day: 5}
	base := Fingerprint(date, decimal.RequireFromString("-50"), "Coffee Shop", "acct-1")

	tests := []struct {
		name string
		got  string
	}{
		{"date", Fingerprint(civil.Date{Year: 2024, Month: 1, Day: 6}, decimal.RequireFromString("-50"), "Coffee Shop", "acct-1")},
		{"amount", Fingerprint(date, decimal.RequireFromString("-50.01"), "Coffee Shop", "acct-1")},
		{"sign", Fingerprint(date, decimal.RequireFromString("50"), "Coffee Shop", "acct-1")},
		{"name", Fingerprint(date, decimal.RequireFromString("-50"), "Coffee Shop 2", "acct-1")},
		{"name case", Fingerprint(date, decimal.RequireFromString("-50"), "coffee shop", "acct-1")},
		{"account", Fingerprint(date, decimal.RequireFromString("-50"), "Coffee Shop", "acct-2")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotEqual(t, base, tt.got)
		})
	}
}

func TestCanonicalName_NFC(t *testing.T) {
	decomposed := "Cafe\u0301"
	composed := "Caf\u00e9"
	assert.Equal(t, CanonicalName(composed), CanonicalName(decomposed))
}

func TestCanonicalName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"trimmed", "  Coffee Shop ", "Coffee Shop"},
		{"inner runs", "Coffee   Shop", "Coffee Shop"},
		{"tabs and newlines", "Coffee\t\nShop", "Coffee Shop"},
		{"case kept", "COFFEE shop", "COFFEE shop"},
		{"empty", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanonicalName(tt.in))
		})
	}
}

func TestFingerprint_CollapsesWhitespace(t *testing.T) {
	date := civil.Date{Year: 2024, Month: 1, Day: 5}
	amount := decimal.RequireFromString("-50")
	assert.Equal(t,
		Fingerprint(date, amount, "Coffee Shop", "acct-1"),
		Fingerprint(date, amount, "Coffee    Shop", "acct-1"))
}

func TestFingerprint_FieldBoundaries(t *testing.T) {
	date := civil.Date{Year: 2024, Month: 1, Day: 5}
	amount := decimal.RequireFromString("-50")

	assert.NotEqual(t,
		Fingerprint(date, amount, "a|b", "c"),
		Fingerprint(date, amount, "a", "b|c"))
	assert.NotEqual(t,
		Fingerprint(date, amount, "a:1", "b"),
		Fingerprint(date, amount, "a", "1:b"))
}

func TestOfTransaction(t *testing.T) {
	txn := &domain.Transaction{
		Date:      civil.Date{Year: 2024, Month: 1, Day: 5},
		Amount:    "-50.00",
		Name:      "Coffee Shop",
		AccountID: "acct-1",
	}
	got, err := OfTransaction(txn)
	require.NoError(t, err)
	assert.Equal(t, Fingerprint(txn.Date, decimal.RequireFromString("-50"), "Coffee Shop", "acct-1"), got)

	txn.Amount = "not-a-number"
	_, err = OfTransaction(txn)
	assert.Error(t, err)
}
