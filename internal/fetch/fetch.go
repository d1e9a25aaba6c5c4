// Package fetch serves sorted, filtered and paginated transaction listings
// with each transaction's account attached.
package fetch

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/dvloznov/finance-ledger/internal/logger"
	"github.com/dvloznov/finance-ledger/internal/repository"
	"github.com/shopspring/decimal"
)

// DefaultPerPage is the page size used when none is configured.
const DefaultPerPage = 5

// SortKey names the transaction field a listing is ordered by.
type SortKey string

const (
	SortByDate   SortKey = "date"
	SortByAmount SortKey = "amount"
	SortByName   SortKey = "name"
)

// Direction is the sort direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// OrderBy selects the sort key and direction.
type OrderBy struct {
	Key       SortKey
	Direction Direction
}

// Filters restricts the listed transactions. Date bounds are inclusive.
type Filters struct {
	DateFrom    *civil.Date
	DateTo      *civil.Date
	AccountID   string
	Categorized *bool
}

// Pagination selects a 1-based page.
type Pagination struct {
	Page    int
	PerPage int
}

// Options controls a Fetch call.
type Options struct {
	OrderBy    OrderBy
	Filters    Filters
	Pagination Pagination
}

// DefaultOptions returns date ascending, first page, DefaultPerPage rows.
func DefaultOptions() Options {
	return Options{
		OrderBy:    OrderBy{Key: SortByDate, Direction: Asc},
		Pagination: Pagination{Page: 1, PerPage: DefaultPerPage},
	}
}

// ParseOrderBy parses a key and direction such as "date" and "desc".
func ParseOrderBy(key, direction string) (OrderBy, error) {
	ob := OrderBy{Key: SortKey(strings.ToLower(key)), Direction: Direction(strings.ToLower(direction))}
	switch ob.Key {
	case SortByDate, SortByAmount, SortByName:
	default:
		return OrderBy{}, fmt.Errorf("ParseOrderBy: unknown sort key %q", key)
	}
	switch ob.Direction {
	case Asc, Desc:
	default:
		return OrderBy{}, fmt.Errorf("ParseOrderBy: unknown direction %q", direction)
	}
	return ob, nil
}

// Page is one page of a listing. Total is the size of the filtered set
// before pagination.
type Page struct {
	Result []*domain.Transaction
	Total  int
}

// Fetcher lists transactions.
type Fetcher struct {
	txns     TransactionFinder
	accounts AccountResolver
}

// NewFetcher creates a Fetcher.
func NewFetcher(txns TransactionFinder, accounts AccountResolver) *Fetcher {
	return &Fetcher{txns: txns, accounts: accounts}
}

// Fetch loads the transactions matching opts.Filters, attaches their
// accounts, sorts them stably and returns the requested page.
//
// A transaction whose account cannot be found keeps a nil Account. Zero
// OrderBy or Pagination fields fall back to DefaultOptions.
func (f *Fetcher) Fetch(ctx context.Context, opts Options) (*Page, error) {
	opts = withDefaults(opts)
	if opts.Pagination.Page < 1 || opts.Pagination.PerPage < 1 {
		return nil, fmt.Errorf("Fetch: invalid pagination page=%d perPage=%d", opts.Pagination.Page, opts.Pagination.PerPage)
	}

	txns, err := f.txns.Find(ctx, repository.TransactionFilter{
		AccountID:   opts.Filters.AccountID,
		DateFrom:    opts.Filters.DateFrom,
		DateTo:      opts.Filters.DateTo,
		Categorized: opts.Filters.Categorized,
	})
	if err != nil {
		return nil, fmt.Errorf("Fetch: finding transactions: %w", err)
	}

	if err := attachAccounts(ctx, f.accounts, txns); err != nil {
		return nil, fmt.Errorf("Fetch: %w", err)
	}

	if err := sortTransactions(txns, opts.OrderBy); err != nil {
		return nil, fmt.Errorf("Fetch: %w", err)
	}

	total := len(txns)
	start := (opts.Pagination.Page - 1) * opts.Pagination.PerPage
	end := start + opts.Pagination.PerPage
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	log := logger.WithComponent(ctx, "fetch")
	log.Debug().
		Int("total", total).
		Int("page", opts.Pagination.Page).
		Int("per_page", opts.Pagination.PerPage).
		Msg("fetched transactions")

	return &Page{Result: txns[start:end], Total: total}, nil
}

func withDefaults(opts Options) Options {
	def := DefaultOptions()
	if opts.OrderBy.Key == "" {
		opts.OrderBy.Key = def.OrderBy.Key
	}
	if opts.OrderBy.Direction == "" {
		opts.OrderBy.Direction = def.OrderBy.Direction
	}
	if opts.Pagination.Page == 0 {
		opts.Pagination.Page = def.Pagination.Page
	}
	if opts.Pagination.PerPage == 0 {
		opts.Pagination.PerPage = def.Pagination.PerPage
	}
	return opts
}

// attachAccounts resolves every distinct account referenced by txns in one
// batch. Unresolved accounts are left nil.
func attachAccounts(ctx context.Context, resolver AccountResolver, txns []*domain.Transaction) error {
	ids := make([]string, 0, len(txns))
	for _, t := range txns {
		if t.AccountID != "" {
			ids = append(ids, t.AccountID)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	accounts, err := resolver.GetMany(ctx, ids)
	if err != nil {
		return fmt.Errorf("resolving accounts: %w", err)
	}
	for _, t := range txns {
		t.Account = accounts[t.AccountID]
	}
	return nil
}

func sortTransactions(txns []*domain.Transaction, ob OrderBy) error {
	var less func(a, b *domain.Transaction) int
	switch ob.Key {
	case SortByDate:
		less = func(a, b *domain.Transaction) int { return compareDates(a.Date, b.Date) }
	case SortByName:
		less = func(a, b *domain.Transaction) int { return strings.Compare(a.Name, b.Name) }
	case SortByAmount:
		amounts := make(map[*domain.Transaction]decimal.Decimal, len(txns))
		for _, t := range txns {
			d, err := decimal.NewFromString(t.Amount)
			if err != nil {
				return fmt.Errorf("transaction %s: amount %q: %w", t.ID, t.Amount, err)
			}
			amounts[t] = d
		}
		less = func(a, b *domain.Transaction) int { return amounts[a].Cmp(amounts[b]) }
	default:
		return fmt.Errorf("unknown sort key %q", ob.Key)
	}

	sign := 1
	if ob.Direction == Desc {
		sign = -1
	}
	sort.SliceStable(txns, func(i, j int) bool {
		return sign*less(txns[i], txns[j]) < 0
	})
	return nil
}

func compareDates(a, b civil.Date) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}
