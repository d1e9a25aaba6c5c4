// Package statement parses OFX bank statements into plain entries.
package statement

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Entry is one transaction line read from a statement, before it is
// attributed to an account.
type Entry struct {
	Date   civil.Date
	Amount decimal.Decimal
	Name   string
	Memo   string

	FITID string
	Type  string
}

// Balance is the ledger balance reported by a statement.
type Balance struct {
	DateTime time.Time
	Amount   decimal.Decimal
}

// Statement is the parsed form of one statement file.
type Statement struct {
	Institution   string
	AccountNumber string
	AccountType   string
	Currency      string

	// Entries are in file order. An empty slice is a valid statement.
	Entries []Entry

	// LedgerBalance is nil when the statement reports no balance.
	LedgerBalance *Balance
}
