package statement_test

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/dvloznov/finance-ledger/internal/statement"
	"github.com/dvloznov/finance-ledger/internal/statement/ofxtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_BankStatement(t *testing.T) {
	content := ofxtest.Bank("9876543210",
		&ofxtest.Ledger{Amount: "2000.00", AsOf: "20240131235959"},
		ofxtest.Txn{Date: "20240105", Amount: "-50.00", FITID: "TXN001", Name: "Test Transaction 1", Memo: "Coffee Shop"},
		ofxtest.Txn{Date: "20240115", Amount: "1000.00", FITID: "TXN002", Name: "Paycheck"},
		ofxtest.Txn{Date: "20240120", Amount: "-12.345", FITID: "TXN003", Memo: "Memo only"},
	)

	stmt, err := statement.Parse(content)
	require.NoError(t, err)

	assert.Equal(t, "TESTBANK", stmt.Institution)
	assert.Equal(t, "9876543210", stmt.AccountNumber)
	assert.Equal(t, "CHECKING", stmt.AccountType)
	assert.Equal(t, "USD", stmt.Currency)

	require.Len(t, stmt.Entries, 3)

	first := stmt.Entries[0]
	assert.Equal(t, civil.Date{Year: 2024, Month: 1, Day: 5}, first.Date)
	assert.Equal(t, "-50", first.Amount.String())
	assert.Equal(t, "Test Transaction 1", first.Name)
	assert.Equal(t, "Coffee Shop", first.Memo)
	assert.Equal(t, "TXN001", first.FITID)
	assert.Equal(t, "DEBIT", first.Type)

	assert.Equal(t, "1000", stmt.Entries[1].Amount.String())
	assert.Equal(t, "CREDIT", stmt.Entries[1].Type)

	third := stmt.Entries[2]
	assert.Equal(t, "-12.345", third.Amount.String())
	assert.Equal(t, "Memo only", third.Name, "name falls back to memo")

	require.NotNil(t, stmt.LedgerBalance)
	assert.Equal(t, "2000", stmt.LedgerBalance.Amount.String())
	assert.True(t, stmt.LedgerBalance.DateTime.Equal(time.Date(2024, 1, 31, 23, 59, 59, 0, time.UTC)))
}

func TestParse_PreservesFileOrder(t *testing.T) {
	content := ofxtest.Bank("1",
		&ofxtest.Ledger{Amount: "0", AsOf: "20240131000000"},
		ofxtest.Txn{Date: "20240120", Amount: "-1", FITID: "c", Name: "C"},
		ofxtest.Txn{Date: "20240101", Amount: "-2", FITID: "a", Name: "A"},
		ofxtest.Txn{Date: "20240110", Amount: "-3", FITID: "b", Name: "B"},
	)

	stmt, err := statement.Parse(content)
	require.NoError(t, err)

	var names []string
	for _, e := range stmt.Entries {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"C", "A", "B"}, names)
}

func TestParse_NoTransactions(t *testing.T) {
	content := ofxtest.Bank("1", &ofxtest.Ledger{Amount: "150.25", AsOf: "20240131000000"})

	stmt, err := statement.Parse(content)
	require.NoError(t, err)
	assert.Empty(t, stmt.Entries)
	require.NotNil(t, stmt.LedgerBalance)
	assert.Equal(t, "150.25", stmt.LedgerBalance.Amount.String())
}

func TestParse_CreditCard(t *testing.T) {
	content := ofxtest.CreditCard("4111",
		&ofxtest.Ledger{Amount: "-320.10", AsOf: "20240131000000"},
		ofxtest.Txn{Date: "20240103", Amount: "-20.10", FITID: "CC1", Name: "Groceries"},
		ofxtest.Txn{Date: "20240125", Amount: "300.00", FITID: "CC2", Type: "PAYMENT", Name: "Payment received"},
	)

	stmt, err := statement.Parse(content)
	require.NoError(t, err)
	assert.Equal(t, "4111", stmt.AccountNumber)
	assert.Equal(t, string(domain.AccountTypeCreditCard), stmt.AccountType)
	require.Len(t, stmt.Entries, 2)
	assert.Equal(t, "PAYMENT", stmt.Entries[1].Type)
	assert.Equal(t, "-320.1", stmt.LedgerBalance.Amount.String())
}

func TestParse_InvestmentCashLines(t *testing.T) {
	content := ofxtest.Investment("987654321", "5000.00",
		ofxtest.InvLine{Cash: &ofxtest.Txn{Date: "20240120", Amount: "-15.00", FITID: "INV002", Name: "Account Fee"}},
		ofxtest.InvLine{Buy: &ofxtest.Buy{Date: "20240110", FITID: "BUY1", CUSIP: "037833100", Units: "10", UnitPrice: "185.50", Total: "-1855.00"}},
		ofxtest.InvLine{Cash: &ofxtest.Txn{Date: "20240115", Amount: "100.00", FITID: "INV001", Name: "Dividend Payment", Memo: "Quarterly dividend"}},
	)

	stmt, err := statement.Parse(content)
	require.NoError(t, err)

	assert.Equal(t, "987654321", stmt.AccountNumber)
	assert.Equal(t, string(domain.AccountTypeInvestment), stmt.AccountType)
	assert.Equal(t, "USD", stmt.Currency)

	require.Len(t, stmt.Entries, 2, "security trades carry no cash entry")
	assert.Equal(t, "INV002", stmt.Entries[0].FITID)
	assert.Equal(t, "-15", stmt.Entries[0].Amount.String())
	assert.Equal(t, civil.Date{Year: 2024, Month: 1, Day: 20}, stmt.Entries[0].Date)
	assert.Equal(t, "INV001", stmt.Entries[1].FITID)
	assert.Equal(t, "100", stmt.Entries[1].Amount.String())
	assert.Equal(t, "Dividend Payment", stmt.Entries[1].Name)
	assert.Equal(t, "Quarterly dividend", stmt.Entries[1].Memo)

	assert.Nil(t, stmt.LedgerBalance, "investment balances are not a ledger balance")
}

func TestParse_InvestmentTradesOnly(t *testing.T) {
	content := ofxtest.Investment("1", "0",
		ofxtest.InvLine{Buy: &ofxtest.Buy{Date: "20240110", FITID: "BUY1", CUSIP: "037833100", Units: "1", UnitPrice: "10", Total: "-10"}},
	)

	stmt, err := statement.Parse(content)
	require.NoError(t, err)
	assert.NotNil(t, stmt.Entries)
	assert.Empty(t, stmt.Entries)
}

func TestParse_Unparseable(t *testing.T) {
	tests := []struct {
		name    string
		content []byte
	}{
		{"empty", nil},
		{"whitespace", []byte("   \n\t")},
		{"csv", []byte("Date,Description,Amount\n2024-01-01,Coffee,-3.00\n")},
		{"truncated ofx", ofxtest.Bank("1", nil)[:200]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt, err := statement.Parse(tt.content)
			assert.Nil(t, stmt)
			assert.ErrorIs(t, err, domain.ErrUnparseableStatement)
		})
	}
}
