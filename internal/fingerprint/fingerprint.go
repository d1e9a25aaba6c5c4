// Package fingerprint derives the deterministic content checksum used to
// deduplicate imported transactions.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"
)

// Fingerprint returns the SHA-256 hex digest of the canonical tuple
// (date, amount, name, accountID).
//
// The date is rendered as YYYY-MM-DD, the amount as its canonical decimal
// form (so "-50.00" and "-50" agree) and the name as CanonicalName. Each
// field is length-prefixed, so no field content can shift a boundary.
func Fingerprint(date civil.Date, amount decimal.Decimal, name, accountID string) string {
	var b strings.Builder
	for _, field := range []string{date.String(), amount.String(), CanonicalName(name), accountID} {
		b.WriteString(strconv.Itoa(len(field)))
		b.WriteByte(':')
		b.WriteString(field)
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// OfTransaction fingerprints a transaction whose Amount is a decimal string.
func OfTransaction(t *domain.Transaction) (string, error) {
	amount, err := decimal.NewFromString(t.Amount)
	if err != nil {
		return "", err
	}
	return Fingerprint(t.Date, amount, t.Name, t.AccountID), nil
}

// CanonicalName normalises a transaction name for fingerprinting: NFC,
// trimmed, inner whitespace runs collapsed to one space. Case is preserved.
func CanonicalName(name string) string {
	return strings.Join(strings.Fields(norm.NFC.String(name)), " ")
}
