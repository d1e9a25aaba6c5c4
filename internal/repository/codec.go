package repository

import (
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/dvloznov/finance-ledger/internal/store"
	"github.com/shopspring/decimal"
)

type transactionBody struct {
	Date                string `json:"date"`
	AccountID           string `json:"accountId"`
	Name                string `json:"name"`
	Memo                string `json:"memo,omitempty"`
	Amount              string `json:"amount"`
	CategoryID          string `json:"categoryId,omitempty"`
	Checksum            string `json:"checksum"`
	LinkedTransactionID string `json:"linkedTransactionId,omitempty"`
}

type balanceBody struct {
	DateTime time.Time `json:"dateTime"`
	Balance  string    `json:"balance"`
}

type accountBody struct {
	Name                 string        `json:"name"`
	FinancialInstitution string        `json:"financialInstitution"`
	Type                 string        `json:"type"`
	Currency             string        `json:"currency,omitempty"`
	History              []balanceBody `json:"history"`
}

// canonicalAmount parses a decimal amount and returns its canonical form,
// so that equal amounts index identically.
func canonicalAmount(s string) (string, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return "", err
	}
	return d.String(), nil
}

func encodeTransaction(t *domain.Transaction) (*store.Document, error) {
	amount, err := canonicalAmount(t.Amount)
	if err != nil {
		return nil, fmt.Errorf("encoding transaction amount %q: %w", t.Amount, err)
	}

	body, err := json.Marshal(transactionBody{
		Date:                t.Date.String(),
		AccountID:           t.AccountID,
		Name:                t.Name,
		Memo:                t.Memo,
		Amount:              amount,
		CategoryID:          t.CategoryID,
		Checksum:            t.Checksum,
		LinkedTransactionID: t.LinkedTransactionID,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding transaction: %w", err)
	}

	return &store.Document{
		ID:         t.ID,
		Rev:        t.Rev,
		Type:       store.TypeTransaction,
		Checksum:   t.Checksum,
		AccountID:  t.AccountID,
		Date:       t.Date.String(),
		Amount:     amount,
		CategoryID: t.CategoryID,
		Body:       body,
	}, nil
}

func decodeTransaction(doc *store.Document) (*domain.Transaction, error) {
	var body transactionBody
	if err := json.Unmarshal(doc.Body, &body); err != nil {
		return nil, fmt.Errorf("decoding transaction %s: %w", doc.ID, err)
	}
	date, err := civil.ParseDate(body.Date)
	if err != nil {
		return nil, fmt.Errorf("decoding transaction %s date: %w", doc.ID, err)
	}

	return &domain.Transaction{
		ID:                  doc.ID,
		Rev:                 doc.Rev,
		Date:                date,
		AccountID:           body.AccountID,
		Name:                body.Name,
		Memo:                body.Memo,
		Amount:              body.Amount,
		CategoryID:          body.CategoryID,
		Checksum:            body.Checksum,
		LinkedTransactionID: body.LinkedTransactionID,
	}, nil
}

func encodeAccount(a *domain.Account) (*store.Document, error) {
	history := make([]balanceBody, 0, len(a.History))
	for _, s := range a.History {
		history = append(history, balanceBody{DateTime: s.DateTime, Balance: s.Balance})
	}

	body, err := json.Marshal(accountBody{
		Name:                 a.Name,
		FinancialInstitution: a.FinancialInstitution,
		Type:                 string(a.Type),
		Currency:             a.Currency,
		History:              history,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding account: %w", err)
	}

	return &store.Document{
		ID:   a.ID,
		Rev:  a.Rev,
		Type: store.TypeAccount,
		Body: body,
	}, nil
}

func decodeAccount(doc *store.Document) (*domain.Account, error) {
	var body accountBody
	if err := json.Unmarshal(doc.Body, &body); err != nil {
		return nil, fmt.Errorf("decoding account %s: %w", doc.ID, err)
	}

	acct := &domain.Account{
		ID:                   doc.ID,
		Rev:                  doc.Rev,
		Name:                 body.Name,
		FinancialInstitution: body.FinancialInstitution,
		Type:                 domain.AccountType(body.Type),
		Currency:             body.Currency,
	}
	for _, s := range body.History {
		acct.History = append(acct.History, domain.BalanceSnapshot{DateTime: s.DateTime, Balance: s.Balance})
	}
	return acct, nil
}
