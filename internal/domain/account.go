package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// AccountType classifies an account.
type AccountType string

const (
	AccountTypeChecking   AccountType = "CHECKING"
	AccountTypeSavings    AccountType = "SAVINGS"
	AccountTypeCreditCard AccountType = "CREDIT_CARD"
	AccountTypeInvestment AccountType = "INVESTMENT"
	AccountTypeLoan       AccountType = "LOAN"
	AccountTypeCash       AccountType = "CASH"
)

// AccountTypes lists every accepted account type.
var AccountTypes = []AccountType{
	AccountTypeChecking,
	AccountTypeSavings,
	AccountTypeCreditCard,
	AccountTypeInvestment,
	AccountTypeLoan,
	AccountTypeCash,
}

// ParseAccountType normalises s and checks it against AccountTypes.
func ParseAccountType(s string) (AccountType, error) {
	t := AccountType(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range AccountTypes {
		if t == known {
			return t, nil
		}
	}
	return "", &ValidationError{Code: CodeInvalidAccountType, Field: "type", Value: s}
}

// BalanceSnapshot records the balance of an account at a point in time.
type BalanceSnapshot struct {
	DateTime time.Time
	Balance  string
}

// Account is a financial account whose transactions are imported from
// statements. History is kept ordered by DateTime (non-decreasing).
type Account struct {
	ID  string
	Rev string

	Name                 string
	FinancialInstitution string
	Type                 AccountType
	Currency             string

	History []BalanceSnapshot
}

// AddBalanceSnapshot appends a snapshot to the history, keeping it ordered
// by DateTime. Snapshots with equal DateTime keep their insertion order.
func (a *Account) AddBalanceSnapshot(s BalanceSnapshot) {
	i := sort.Search(len(a.History), func(i int) bool {
		return a.History[i].DateTime.After(s.DateTime)
	})
	a.History = append(a.History, BalanceSnapshot{})
	copy(a.History[i+1:], a.History[i:])
	a.History[i] = s
}

// CurrentBalance returns the latest snapshot, or false if none exists.
func (a *Account) CurrentBalance() (BalanceSnapshot, bool) {
	if len(a.History) == 0 {
		return BalanceSnapshot{}, false
	}
	return a.History[len(a.History)-1], true
}

// Validate checks the fields required to create an account.
func (a *Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return &ValidationError{Code: CodeRequiredField, Field: "name"}
	}
	if strings.TrimSpace(a.FinancialInstitution) == "" {
		return &ValidationError{Code: CodeRequiredField, Field: "financialInstitution"}
	}
	if a.Type == "" {
		return &ValidationError{Code: CodeRequiredField, Field: "type"}
	}
	t, err := ParseAccountType(string(a.Type))
	if err != nil {
		return err
	}
	a.Type = t
	return nil
}

// Copy returns a deep copy of the account.
func (a *Account) Copy() *Account {
	c := *a
	c.History = append([]BalanceSnapshot(nil), a.History...)
	return &c
}

func (a *Account) String() string {
	return fmt.Sprintf("%s (%s, %s)", a.Name, a.FinancialInstitution, a.Type)
}
