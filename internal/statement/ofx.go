package statement

import (
	"bytes"
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/aclindsa/ofxgo"
	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

// amountScale bounds the fractional digits kept from OFX amounts.
const amountScale = 8

// Parse reads OFX (SGML 1.x or XML 2.x) content. Bank, credit card and
// investment cash statements are supported; only the first statement in
// the file is read. Every failure wraps domain.ErrUnparseableStatement.
func Parse(content []byte) (*Statement, error) {
	if len(bytes.TrimSpace(content)) == 0 {
		return nil, fmt.Errorf("Parse: empty content: %w", domain.ErrUnparseableStatement)
	}

	resp, err := ofxgo.ParseResponse(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("Parse: decoding OFX: %v: %w", err, domain.ErrUnparseableStatement)
	}

	var stmt *Statement
	switch {
	case len(resp.Bank) > 0:
		stmt, err = parseBank(resp)
	case len(resp.CreditCard) > 0:
		stmt, err = parseCreditCard(resp)
	case len(resp.InvStmt) > 0:
		stmt, err = parseInvestment(resp)
	default:
		return nil, fmt.Errorf("Parse: no bank, credit card or investment statement found: %w", domain.ErrUnparseableStatement)
	}
	if err != nil {
		return nil, fmt.Errorf("Parse: %v: %w", err, domain.ErrUnparseableStatement)
	}

	stmt.Institution = resp.Signon.Org.String()
	return stmt, nil
}

func parseBank(resp *ofxgo.Response) (*Statement, error) {
	bank, ok := resp.Bank[0].(*ofxgo.StatementResponse)
	if !ok {
		return nil, fmt.Errorf("unexpected bank message %T", resp.Bank[0])
	}

	entries, err := parseTransactionList(bank.BankTranList)
	if err != nil {
		return nil, err
	}

	return &Statement{
		AccountNumber: bank.BankAcctFrom.AcctID.String(),
		AccountType:   bank.BankAcctFrom.AcctType.String(),
		Currency:      bank.CurDef.String(),
		Entries:       entries,
		LedgerBalance: ledgerBalance(bank.BalAmt, bank.DtAsOf),
	}, nil
}

func parseCreditCard(resp *ofxgo.Response) (*Statement, error) {
	cc, ok := resp.CreditCard[0].(*ofxgo.CCStatementResponse)
	if !ok {
		return nil, fmt.Errorf("unexpected credit card message %T", resp.CreditCard[0])
	}

	entries, err := parseTransactionList(cc.BankTranList)
	if err != nil {
		return nil, err
	}

	return &Statement{
		AccountNumber: cc.CCAcctFrom.AcctID.String(),
		AccountType:   string(domain.AccountTypeCreditCard),
		Currency:      cc.CurDef.String(),
		Entries:       entries,
		LedgerBalance: ledgerBalance(cc.BalAmt, cc.DtAsOf),
	}, nil
}

// parseInvestment reads the cash movements of an investment statement.
// Security trades carry no cash entry of their own and are ignored.
func parseInvestment(resp *ofxgo.Response) (*Statement, error) {
	inv, ok := resp.InvStmt[0].(*ofxgo.InvStatementResponse)
	if !ok {
		return nil, fmt.Errorf("unexpected investment message %T", resp.InvStmt[0])
	}

	entries := []Entry{}
	if inv.InvTranList != nil {
		for _, bankTxns := range inv.InvTranList.BankTransactions {
			for i, txn := range bankTxns.Transactions {
				entry, err := toEntry(txn)
				if err != nil {
					return nil, fmt.Errorf("investment transaction %d: %w", i, err)
				}
				entries = append(entries, entry)
			}
		}
	}

	return &Statement{
		AccountNumber: inv.InvAcctFrom.AcctID.String(),
		AccountType:   string(domain.AccountTypeInvestment),
		Currency:      inv.CurDef.String(),
		Entries:       entries,
	}, nil
}

func parseTransactionList(list *ofxgo.TransactionList) ([]Entry, error) {
	if list == nil {
		return []Entry{}, nil
	}

	entries := make([]Entry, 0, len(list.Transactions))
	for i, txn := range list.Transactions {
		entry, err := toEntry(txn)
		if err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i, err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func toEntry(txn ofxgo.Transaction) (Entry, error) {
	if txn.DtPosted.IsZero() {
		return Entry{}, fmt.Errorf("transaction %s has no posted date", txn.FiTID.String())
	}

	amount, err := decimal.NewFromString(txn.TrnAmt.FloatString(amountScale))
	if err != nil {
		return Entry{}, fmt.Errorf("transaction %s amount: %w", txn.FiTID.String(), err)
	}

	name := strings.TrimSpace(txn.Name.String())
	if name == "" && txn.Payee != nil {
		name = strings.TrimSpace(txn.Payee.Name.String())
	}
	memo := strings.TrimSpace(txn.Memo.String())
	if name == "" {
		name = memo
	}

	return Entry{
		Date:   civil.DateOf(txn.DtPosted.Time),
		Amount: amount,
		Name:   name,
		Memo:   memo,
		FITID:  txn.FiTID.String(),
		Type:   txn.TrnType.String(),
	}, nil
}

func ledgerBalance(amt ofxgo.Amount, asOf ofxgo.Date) *Balance {
	if asOf.IsZero() {
		return nil
	}
	balance, err := decimal.NewFromString(amt.FloatString(amountScale))
	if err != nil {
		return nil
	}
	return &Balance{DateTime: asOf.Time, Amount: balance}
}
