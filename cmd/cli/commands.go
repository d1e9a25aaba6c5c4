package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/finance-ledger/internal/accounts"
	"github.com/dvloznov/finance-ledger/internal/archive"
	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/dvloznov/finance-ledger/internal/export"
	"github.com/dvloznov/finance-ledger/internal/fetch"
	"github.com/dvloznov/finance-ledger/internal/logger"
)

func newFlagSet(name string, w io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(w)
	return fs
}

func (a *app) runImport(ctx context.Context, args []string, w io.Writer) error {
	fs := newFlagSet("import", w)
	accountID := fs.String("account", "", "Account ID to import into")
	filePath := fs.String("file", "", "Path to a local OFX/QFX statement")
	uri := fs.String("uri", "", "gs:// URI of an archived statement")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *accountID == "" || (*filePath == "") == (*uri == "") {
		return errors.New("usage: cli import -account ID (-file PATH | -uri gs://BUCKET/OBJECT)")
	}

	account, err := a.accounts.Get(ctx, *accountID)
	if err != nil {
		return err
	}

	content, err := a.readStatement(ctx, *filePath, *uri)
	if err != nil {
		return err
	}

	log := logger.FromContext(ctx)
	log.Info().
		Str("account_id", account.ID).
		Int("bytes", len(content)).
		Msg("Starting import")

	result, err := a.importer.Import(ctx, account, content)
	if err != nil {
		return err
	}

	header(w, fmt.Sprintf("Imported into %s", account.Name))
	success(w, "%d imported", result.NumImported)
	success(w, "%d skipped", result.NumSkipped)
	if result.NumFailed > 0 {
		warning(w, "%d of the skipped entries failed, see the log", result.NumFailed)
	}
	if bal, ok := account.CurrentBalance(); ok {
		success(w, "balance %s as of %s", bal.Balance, bal.DateTime.Format("2006-01-02"))
	}
	return nil
}

func (a *app) readStatement(ctx context.Context, filePath, uri string) ([]byte, error) {
	if filePath != "" {
		content, err := os.ReadFile(filePath)
		if err != nil {
			return nil, fmt.Errorf("read statement %q: %w", filePath, err)
		}
		return content, nil
	}

	fetcher := a.archiver
	if fetcher == nil {
		var err error
		fetcher, err = archive.NewGCSArchiver(ctx, "")
		if err != nil {
			return nil, err
		}
		defer fetcher.Close()
	}
	return fetcher.Fetch(ctx, uri)
}

func parseDateFlag(name, value string) (*civil.Date, error) {
	if value == "" {
		return nil, nil
	}
	d, err := civil.ParseDate(value)
	if err != nil {
		return nil, fmt.Errorf("-%s: %w", name, err)
	}
	return &d, nil
}

func parseCategorizedFlag(value string) (*bool, error) {
	switch strings.ToLower(value) {
	case "":
		return nil, nil
	case "yes", "true":
		v := true
		return &v, nil
	case "no", "false":
		v := false
		return &v, nil
	}
	return nil, fmt.Errorf("-categorized: want yes or no, got %q", value)
}

func (a *app) runTransactions(ctx context.Context, args []string, w io.Writer) error {
	def := fetch.DefaultOptions()

	fs := newFlagSet("transactions", w)
	accountID := fs.String("account", "", "Only transactions of this account")
	from := fs.String("from", "", "Earliest date, YYYY-MM-DD")
	to := fs.String("to", "", "Latest date, YYYY-MM-DD")
	categorized := fs.String("categorized", "", "yes or no")
	order := fs.String("order", string(def.OrderBy.Key), "Sort key: date, amount or name")
	dir := fs.String("dir", string(def.OrderBy.Direction), "Sort direction: asc or desc")
	page := fs.Int("page", def.Pagination.Page, "Page number, starting at 1")
	perPage := fs.Int("per-page", a.cfg.Fetch.PerPage, "Transactions per page")
	exportPath := fs.String("export", "", "Also write the page to a .csv or .xlsx file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var format export.Format
	if *exportPath != "" {
		var err error
		if format, err = export.FormatFromPath(*exportPath); err != nil {
			return err
		}
	}

	orderBy, err := fetch.ParseOrderBy(*order, *dir)
	if err != nil {
		return err
	}
	opts := fetch.Options{
		OrderBy:    orderBy,
		Filters:    fetch.Filters{AccountID: *accountID},
		Pagination: fetch.Pagination{Page: *page, PerPage: *perPage},
	}
	if opts.Filters.DateFrom, err = parseDateFlag("from", *from); err != nil {
		return err
	}
	if opts.Filters.DateTo, err = parseDateFlag("to", *to); err != nil {
		return err
	}
	if opts.Filters.Categorized, err = parseCategorizedFlag(*categorized); err != nil {
		return err
	}

	result, err := a.fetcher.Fetch(ctx, opts)
	if err != nil {
		return err
	}

	header(w, fmt.Sprintf("Transactions (page %d, %d of %d)", *page, len(result.Result), result.Total))
	for i, t := range result.Result {
		printTransaction(w, (*page-1)*(*perPage)+i+1, t)
	}
	fmt.Fprintln(w)

	if *exportPath != "" {
		if err := writeExport(*exportPath, format, result.Result); err != nil {
			return err
		}
		success(w, "wrote %d transactions to %s", len(result.Result), *exportPath)
	}
	return nil
}

func writeExport(path string, format export.Format, txns []*domain.Transaction) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	if err := export.Write(f, format, txns); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func (a *app) runLinks(ctx context.Context, args []string, w io.Writer) error {
	fs := newFlagSet("links", w)
	id := fs.String("id", "", "Transaction ID to find offsetting transactions for")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return errors.New("usage: cli links -id TRANSACTION_ID")
	}

	txn, err := a.transactions.Get(ctx, *id)
	if err != nil {
		return err
	}

	candidates, err := a.matcher.FindCandidates(ctx, txn)
	if err != nil {
		return err
	}

	header(w, fmt.Sprintf("Link candidates for %s %s (%d)", txn.Name, txn.Amount, len(candidates)))
	if len(candidates) == 0 {
		warning(w, "no transaction offsets %s", txn.Amount)
	}
	for i := range candidates {
		printTransaction(w, i+1, &candidates[i].Transaction)
	}
	fmt.Fprintln(w)
	return nil
}

func (a *app) runCategorize(ctx context.Context, args []string, w io.Writer) error {
	fs := newFlagSet("categorize", w)
	id := fs.String("id", "", "Transaction ID")
	category := fs.String("category", "", "Category ID; empty clears the category")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return errors.New("usage: cli categorize -id TRANSACTION_ID [-category CATEGORY_ID]")
	}

	txn, err := a.transactions.UpdateCategory(ctx, *id, *category)
	if err != nil {
		return err
	}
	if txn.IsCategorized() {
		success(w, "%s categorized as %s", txn.ID, txn.CategoryID)
	} else {
		success(w, "%s category cleared", txn.ID)
	}
	return nil
}

func (a *app) runAccounts(ctx context.Context, args []string, w io.Writer) error {
	sub := "list"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		sub, args = args[0], args[1:]
	}

	switch sub {
	case "list":
		accts, err := a.accounts.List(ctx)
		if err != nil {
			return err
		}
		header(w, fmt.Sprintf("Accounts (%d)", len(accts)))
		for _, acct := range accts {
			printAccount(w, acct)
		}
		fmt.Fprintln(w)
		return nil

	case "create":
		fs := newFlagSet("accounts create", w)
		req := accounts.CreateRequest{}
		fs.StringVar(&req.Name, "name", "", "Account name")
		fs.StringVar(&req.FinancialInstitution, "institution", "", "Financial institution")
		fs.StringVar(&req.Type, "type", "", "CHECKING, SAVINGS, CREDIT_CARD, INVESTMENT, LOAN or CASH")
		fs.StringVar(&req.Currency, "currency", "", "ISO currency code")
		if err := fs.Parse(args); err != nil {
			return err
		}
		acct, err := a.accounts.Create(ctx, req)
		if err != nil {
			return err
		}
		success(w, "created %s with ID %s", acct, acct.ID)
		return nil

	case "delete":
		fs := newFlagSet("accounts delete", w)
		id := fs.String("id", "", "Account ID")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if *id == "" {
			return errors.New("usage: cli accounts delete -id ACCOUNT_ID")
		}
		if err := a.accounts.Delete(ctx, *id); err != nil {
			return err
		}
		success(w, "deleted account %s", *id)
		return nil
	}
	return fmt.Errorf("unknown accounts command %q", sub)
}

func (a *app) runRuns(ctx context.Context, args []string, w io.Writer) error {
	fs := newFlagSet("runs", w)
	accountID := fs.String("account", "", "Only runs of this account")
	limit := fs.Int("limit", 20, "Maximum number of runs")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if a.runs == nil {
		return errors.New("import run history needs bigquery.project_id to be configured")
	}

	runs, err := a.runs.ListRecent(ctx, *accountID, *limit)
	if err != nil {
		return err
	}

	header(w, fmt.Sprintf("Import runs (%d)", len(runs)))
	for _, r := range runs {
		fmt.Fprintf(w, "\n%s  %s\n", r.StartedAt.Format("2006-01-02 15:04:05"), r.ID)
		fmt.Fprintf(w, "   Account:  %s\n", r.AccountID)
		fmt.Fprintf(w, "   Status:   %s\n", r.Status)
		fmt.Fprintf(w, "   Result:   %d imported, %d skipped, %d failed\n", r.NumImported, r.NumSkipped, r.NumFailed)
		if r.ArchiveURI != "" {
			fmt.Fprintf(w, "   Archive:  %s\n", r.ArchiveURI)
		}
		if r.ErrorMessage != "" {
			fmt.Fprintf(w, "   Error:    %s\n", red.Sprint(r.ErrorMessage))
		}
	}
	fmt.Fprintln(w)
	return nil
}
