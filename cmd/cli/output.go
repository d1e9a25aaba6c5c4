package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/fatih/color"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow, color.Bold)
	blue   = color.New(color.FgBlue)
	red    = color.New(color.FgRed)
)

func header(w io.Writer, text string) {
	line := strings.Repeat("=", 60)
	green.Fprintf(w, "\n%s\n%s\n%s\n", line, text, line)
}

func success(w io.Writer, format string, args ...interface{}) {
	green.Fprintf(w, "  → %s\n", fmt.Sprintf(format, args...))
}

func warning(w io.Writer, format string, args ...interface{}) {
	yellow.Fprintf(w, "  ⚠ %s\n", fmt.Sprintf(format, args...))
}

func printError(w io.Writer, err error) {
	red.Fprintf(w, "Error: %v\n", err)
}

// amount prints outflows red and inflows green.
func amount(s string) string {
	if strings.HasPrefix(s, "-") {
		return red.Sprint(s)
	}
	return green.Sprint(s)
}

func accountName(a *domain.Account) string {
	if a == nil {
		return "(unknown account)"
	}
	return a.Name
}

func printTransaction(w io.Writer, i int, t *domain.Transaction) {
	fmt.Fprintf(w, "\n%d. %s\n", i, t.Name)
	fmt.Fprintf(w, "   ID:       %s\n", t.ID)
	fmt.Fprintf(w, "   Date:     %s\n", t.Date)
	fmt.Fprintf(w, "   Amount:   %s\n", amount(t.Amount))
	fmt.Fprintf(w, "   Account:  %s\n", accountName(t.Account))
	if t.Memo != "" {
		fmt.Fprintf(w, "   Memo:     %s\n", t.Memo)
	}
	if t.IsCategorized() {
		fmt.Fprintf(w, "   Category: %s\n", blue.Sprint(t.CategoryID))
	}
}

func printAccount(w io.Writer, a *domain.Account) {
	fmt.Fprintf(w, "\n%s\n", a)
	fmt.Fprintf(w, "   ID:       %s\n", a.ID)
	if a.Currency != "" {
		fmt.Fprintf(w, "   Currency: %s\n", a.Currency)
	}
	if bal, ok := a.CurrentBalance(); ok {
		fmt.Fprintf(w, "   Balance:  %s (as of %s)\n", amount(bal.Balance), bal.DateTime.Format("2006-01-02"))
	}
}
