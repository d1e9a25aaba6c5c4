package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dvloznov/finance-ledger/internal/config"
	"github.com/dvloznov/finance-ledger/internal/fetch"
	"github.com/dvloznov/finance-ledger/internal/logger"
	"github.com/dvloznov/finance-ledger/internal/statement/ofxtest"
	"github.com/dvloznov/finance-ledger/internal/store/memory"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) (*app, context.Context) {
	t.Helper()
	color.NoColor = true

	cfg := &config.Config{
		Store:  config.StoreConfig{Driver: config.DriverMemory},
		Import: config.ImportConfig{MaxConcurrency: 2},
		Fetch:  config.FetchConfig{PerPage: 5},
	}
	a := &app{cfg: cfg, store: memory.NewStore()}
	a.wire()
	t.Cleanup(a.Close)

	return a, logger.WithContext(context.Background(), logger.NewWithWriter(io.Discard))
}

func runCmd(t *testing.T, a *app, ctx context.Context, name string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := commands[name](a, ctx, args, &out)
	return out.String(), err
}

func createAccount(t *testing.T, a *app, ctx context.Context) string {
	t.Helper()
	out, err := runCmd(t, a, ctx, "accounts", "create", "-name", "Main", "-institution", "TESTBANK", "-type", "checking")
	require.NoError(t, err)
	require.Contains(t, out, "created Main (TESTBANK, CHECKING)")

	accts, err := a.accounts.List(ctx)
	require.NoError(t, err)
	require.Len(t, accts, 1)
	return accts[0].ID
}

func writeStatement(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "statement.ofx")
	content := ofxtest.Bank("1234",
		&ofxtest.Ledger{Amount: "900.00", AsOf: "20240131000000"},
		ofxtest.Txn{Date: "20240110", Amount: "-250.00", FITID: "1", Name: "Transfer to savings"},
		ofxtest.Txn{Date: "20240112", Amount: "250.00", FITID: "2", Name: "Transfer from checking"},
		ofxtest.Txn{Date: "20240115", Amount: "-12.34", FITID: "3", Name: "Lunch"},
	)
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return path
}

func TestCLI_ImportListAndLink(t *testing.T) {
	a, ctx := newTestApp(t)
	accountID := createAccount(t, a, ctx)
	path := writeStatement(t)

	out, err := runCmd(t, a, ctx, "import", "-account", accountID, "-file", path)
	require.NoError(t, err)
	assert.Contains(t, out, "3 imported")
	assert.Contains(t, out, "0 skipped")
	assert.Contains(t, out, "balance 900 as of 2024-01-31")

	out, err = runCmd(t, a, ctx, "import", "-account", accountID, "-file", path)
	require.NoError(t, err)
	assert.Contains(t, out, "0 imported")
	assert.Contains(t, out, "3 skipped")

	out, err = runCmd(t, a, ctx, "transactions", "-order", "amount", "-dir", "desc")
	require.NoError(t, err)
	assert.Contains(t, out, "3 of 3")
	first := strings.Index(out, "Transfer from checking")
	last := strings.Index(out, "Transfer to savings")
	require.True(t, first >= 0 && last >= 0)
	assert.Less(t, first, last)

	out, err = runCmd(t, a, ctx, "transactions", "-from", "2024-01-11", "-per-page", "1", "-page", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "page 2, 1 of 2")
	assert.Contains(t, out, "Lunch")

	page, err := a.fetcher.Fetch(ctx, allTransactions())
	require.NoError(t, err)
	require.NotEmpty(t, page.Result)

	var outflowID string
	for _, txn := range page.Result {
		if txn.Name == "Transfer to savings" {
			outflowID = txn.ID
		}
	}
	require.NotEmpty(t, outflowID)

	out, err = runCmd(t, a, ctx, "links", "-id", outflowID)
	require.NoError(t, err)
	assert.Contains(t, out, "(1)")
	assert.Contains(t, out, "Transfer from checking")
	assert.Contains(t, out, "Main")
}

func TestCLI_TransactionsExport(t *testing.T) {
	a, ctx := newTestApp(t)
	accountID := createAccount(t, a, ctx)
	_, err := runCmd(t, a, ctx, "import", "-account", accountID, "-file", writeStatement(t))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "page.csv")
	out, err := runCmd(t, a, ctx, "transactions", "-export", path)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote 3 transactions")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[1], "2024-01-10,Main,Transfer to savings,"))

	_, err = runCmd(t, a, ctx, "transactions", "-export", filepath.Join(t.TempDir(), "page.pdf"))
	assert.Error(t, err)
}

func TestCLI_Categorize(t *testing.T) {
	a, ctx := newTestApp(t)
	accountID := createAccount(t, a, ctx)
	_, err := runCmd(t, a, ctx, "import", "-account", accountID, "-file", writeStatement(t))
	require.NoError(t, err)

	page, err := a.fetcher.Fetch(ctx, allTransactions())
	require.NoError(t, err)
	id := page.Result[0].ID

	out, err := runCmd(t, a, ctx, "categorize", "-id", id, "-category", "transfers")
	require.NoError(t, err)
	assert.Contains(t, out, "categorized as transfers")

	out, err = runCmd(t, a, ctx, "transactions", "-categorized", "yes")
	require.NoError(t, err)
	assert.Contains(t, out, "1 of 1")
	assert.Contains(t, out, "Category: transfers")

	out, err = runCmd(t, a, ctx, "categorize", "-id", id)
	require.NoError(t, err)
	assert.Contains(t, out, "category cleared")
}

func TestCLI_AccountsDelete(t *testing.T) {
	a, ctx := newTestApp(t)
	accountID := createAccount(t, a, ctx)

	out, err := runCmd(t, a, ctx, "accounts", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Accounts (1)")

	_, err = runCmd(t, a, ctx, "accounts", "delete", "-id", accountID)
	require.NoError(t, err)

	_, err = runCmd(t, a, ctx, "accounts", "delete", "-id", accountID)
	assert.ErrorContains(t, err, "ACCOUNT_NOT_FOUND")
}

func TestCLI_UsageErrors(t *testing.T) {
	a, ctx := newTestApp(t)

	tests := []struct {
		name string
		cmd  string
		args []string
	}{
		{"import without account", "import", []string{"-file", "x.ofx"}},
		{"import with file and uri", "import", []string{"-account", "a", "-file", "x", "-uri", "gs://b/o"}},
		{"invalid account type", "accounts", []string{"create", "-name", "n", "-institution", "i", "-type", "piggy"}},
		{"unknown accounts command", "accounts", []string{"rename"}},
		{"bad date", "transactions", []string{"-from", "01/02/2024"}},
		{"bad order", "transactions", []string{"-order", "checksum"}},
		{"bad categorized", "transactions", []string{"-categorized", "maybe"}},
		{"links without id", "links", nil},
		{"categorize without id", "categorize", nil},
		{"runs without bigquery", "runs", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCmd(t, a, ctx, tt.cmd, tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestRun_UnknownCommand(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"frobnicate"}, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "Unknown command: frobnicate")
}

func TestRun_Help(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 0, run([]string{"help"}, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "Commands:")
}

func allTransactions() fetch.Options {
	return fetch.Options{Pagination: fetch.Pagination{Page: 1, PerPage: 100}}
}
