package domain

import (
	"cloud.google.com/go/civil"
)

// Transaction represents one posted entry on an account. Amount is a
// canonical signed decimal string (positive = inflow, negative = outflow).
// Checksum is the content fingerprint computed when the transaction was
// first built from a statement; it is stored, never recomputed.
type Transaction struct {
	ID  string
	Rev string

	Date      civil.Date
	AccountID string
	Name      string
	Memo      string
	Amount    string

	CategoryID          string
	Checksum            string
	LinkedTransactionID string

	// Account is resolved at fetch time and is nil when the referenced
	// account does not exist. It is never persisted.
	Account *Account
}

// IsCategorized reports whether a category has been assigned.
func (t *Transaction) IsCategorized() bool {
	return t.CategoryID != ""
}

// ImportResult summarises one statement import.
// NumImported + NumSkipped always equals the number of parsed entries.
// NumFailed counts the skipped entries that failed for a reason other
// than an existing duplicate.
type ImportResult struct {
	NumImported int
	NumSkipped  int
	NumFailed   int
}

// LinkCandidate is a transaction that may offset another one, with its
// account resolved (nil when unresolved).
type LinkCandidate struct {
	Transaction
}
