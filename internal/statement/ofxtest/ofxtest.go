// Package ofxtest builds synthetic OFX statements for tests.
package ofxtest

import (
	"fmt"
	"strings"
)

// Txn is one STMTTRN block. Date is YYYYMMDD.
type Txn struct {
	Type   string
	Date   string
	Amount string
	FITID  string
	Name   string
	Memo   string
}

// Ledger is the LEDGERBAL block. AsOf is YYYYMMDDHHMMSS.
type Ledger struct {
	Amount string
	AsOf   string
}

const header = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20240201120000
<LANGUAGE>ENG
<FI>
<ORG>TESTBANK
<FID>12345
</FI>
</SONRS>
</SIGNONMSGSRSV1>
`

// Bank renders a bank statement for account acctID. A nil ledger omits
// the LEDGERBAL block.
func Bank(acctID string, ledger *Ledger, txns ...Txn) []byte {
	var b strings.Builder
	b.WriteString(header)
	b.WriteString("<BANKMSGSRSV1>\n<STMTTRNRS>\n<TRNUID>1\n<STATUS>\n<CODE>0\n<SEVERITY>INFO\n</STATUS>\n<STMTRS>\n<CURDEF>USD\n")
	fmt.Fprintf(&b, "<BANKACCTFROM>\n<BANKID>123456789\n<ACCTID>%s\n<ACCTTYPE>CHECKING\n</BANKACCTFROM>\n", acctID)
	writeTranList(&b, txns)
	writeLedger(&b, ledger)
	b.WriteString("</STMTRS>\n</STMTTRNRS>\n</BANKMSGSRSV1>\n</OFX>\n")
	return []byte(b.String())
}

// CreditCard renders a credit card statement for account acctID.
func CreditCard(acctID string, ledger *Ledger, txns ...Txn) []byte {
	var b strings.Builder
	b.WriteString(header)
	b.WriteString("<CREDITCARDMSGSRSV1>\n<CCSTMTTRNRS>\n<TRNUID>1\n<STATUS>\n<CODE>0\n<SEVERITY>INFO\n</STATUS>\n<CCSTMTRS>\n<CURDEF>USD\n")
	fmt.Fprintf(&b, "<CCACCTFROM>\n<ACCTID>%s\n</CCACCTFROM>\n", acctID)
	writeTranList(&b, txns)
	writeLedger(&b, ledger)
	b.WriteString("</CCSTMTRS>\n</CCSTMTTRNRS>\n</CREDITCARDMSGSRSV1>\n</OFX>\n")
	return []byte(b.String())
}

// Buy is a BUYSTOCK trade. Date is YYYYMMDD; Total is the signed cash
// effect of the trade.
type Buy struct {
	Date      string
	FITID     string
	CUSIP     string
	Units     string
	UnitPrice string
	Total     string
}

// InvLine is one INVTRANLIST child: a cash line or a stock purchase.
type InvLine struct {
	Cash *Txn
	Buy  *Buy
}

// Investment renders an investment statement for account acctID with
// lines in the given order and an INVBAL block holding availCash.
func Investment(acctID, availCash string, lines ...InvLine) []byte {
	var b strings.Builder
	b.WriteString(header)
	b.WriteString("<INVSTMTMSGSRSV1>\n<INVSTMTTRNRS>\n<TRNUID>1\n<STATUS>\n<CODE>0\n<SEVERITY>INFO\n</STATUS>\n<INVSTMTRS>\n")
	b.WriteString("<DTASOF>20240131235959\n<CURDEF>USD\n")
	fmt.Fprintf(&b, "<INVACCTFROM>\n<BROKERID>TESTBROKER\n<ACCTID>%s\n</INVACCTFROM>\n", acctID)
	b.WriteString("<INVTRANLIST>\n<DTSTART>20240101000000\n<DTEND>20240131235959\n")
	for _, l := range lines {
		switch {
		case l.Cash != nil:
			b.WriteString("<INVBANKTRAN>\n")
			writeTxn(&b, *l.Cash)
			b.WriteString("<SUBACCTFUND>CASH\n</INVBANKTRAN>\n")
		case l.Buy != nil:
			t := l.Buy
			b.WriteString("<BUYSTOCK>\n<INVBUY>\n")
			fmt.Fprintf(&b, "<INVTRAN>\n<FITID>%s\n<DTTRADE>%s120000\n</INVTRAN>\n", t.FITID, t.Date)
			fmt.Fprintf(&b, "<SECID>\n<UNIQUEID>%s\n<UNIQUEIDTYPE>CUSIP\n</SECID>\n", t.CUSIP)
			fmt.Fprintf(&b, "<UNITS>%s\n<UNITPRICE>%s\n<TOTAL>%s\n", t.Units, t.UnitPrice, t.Total)
			b.WriteString("<SUBACCTSEC>CASH\n<SUBACCTFUND>CASH\n</INVBUY>\n<BUYTYPE>BUY\n</BUYSTOCK>\n")
		}
	}
	b.WriteString("</INVTRANLIST>\n")
	fmt.Fprintf(&b, "<INVBAL>\n<AVAILCASH>%s\n<MARGINBALANCE>0\n<SHORTBALANCE>0\n</INVBAL>\n", availCash)
	b.WriteString("</INVSTMTRS>\n</INVSTMTTRNRS>\n</INVSTMTMSGSRSV1>\n</OFX>\n")
	return []byte(b.String())
}

func writeTranList(b *strings.Builder, txns []Txn) {
	b.WriteString("<BANKTRANLIST>\n<DTSTART>20240101000000\n<DTEND>20240131235959\n")
	for _, t := range txns {
		writeTxn(b, t)
	}
	b.WriteString("</BANKTRANLIST>\n")
}

func writeTxn(b *strings.Builder, t Txn) {
	typ := t.Type
	if typ == "" {
		typ = "DEBIT"
		if !strings.HasPrefix(t.Amount, "-") {
			typ = "CREDIT"
		}
	}
	b.WriteString("<STMTTRN>\n")
	fmt.Fprintf(b, "<TRNTYPE>%s\n<DTPOSTED>%s120000\n<TRNAMT>%s\n<FITID>%s\n", typ, t.Date, t.Amount, t.FITID)
	if t.Name != "" {
		fmt.Fprintf(b, "<NAME>%s\n", t.Name)
	}
	if t.Memo != "" {
		fmt.Fprintf(b, "<MEMO>%s\n", t.Memo)
	}
	b.WriteString("</STMTTRN>\n")
}

func writeLedger(b *strings.Builder, ledger *Ledger) {
	if ledger == nil {
		return
	}
	fmt.Fprintf(b, "<LEDGERBAL>\n<BALAMT>%s\n<DTASOF>%s\n</LEDGERBAL>\n", ledger.Amount, ledger.AsOf)
}
