package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dvloznov/finance-ledger/internal/config"
	"github.com/dvloznov/finance-ledger/internal/logger"
)

type command func(a *app, ctx context.Context, args []string, w io.Writer) error

var commands = map[string]command{
	"import":       (*app).runImport,
	"transactions": (*app).runTransactions,
	"links":        (*app).runLinks,
	"categorize":   (*app).runCategorize,
	"accounts":     (*app).runAccounts,
	"runs":         (*app).runRuns,
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	global := flag.NewFlagSet("cli", flag.ContinueOnError)
	global.SetOutput(stderr)
	configPath := global.String("config", "", "Path to a ledger config file")
	global.Usage = func() { printUsage(stderr) }
	if err := global.Parse(args); err != nil {
		return 2
	}

	args = global.Args()
	if len(args) == 0 {
		printUsage(stderr)
		return 1
	}

	name := args[0]
	if name == "help" || name == "-h" || name == "--help" {
		printUsage(stdout)
		return 0
	}
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(stderr, "Unknown command: %s\n\n", name)
		printUsage(stderr)
		return 1
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		printError(stderr, err)
		return 1
	}

	log := logger.NewWithLevel(cfg.Log.Level)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	a, err := newApp(ctx, cfg)
	if err != nil {
		printError(stderr, err)
		return 1
	}
	defer a.Close()

	if err := cmd(a, ctx, args[1:], stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		log.Error().Err(err).Str("command", name).Msg("command failed")
		printError(stderr, err)
		return 1
	}
	return 0
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Finance Ledger CLI")
	fmt.Fprintln(w, "\nUsage:")
	fmt.Fprintln(w, "  cli [-config FILE] <command> [options]")
	fmt.Fprintln(w, "\nCommands:")
	fmt.Fprintln(w, "  import         Import an OFX/QFX statement into an account")
	fmt.Fprintln(w, "  transactions   List transactions with filters, ordering and paging")
	fmt.Fprintln(w, "  links          Find transactions offsetting a transaction")
	fmt.Fprintln(w, "  categorize     Set or clear a transaction's category")
	fmt.Fprintln(w, "  accounts       List, create or delete accounts")
	fmt.Fprintln(w, "  runs           Show recent import runs (needs BigQuery)")
	fmt.Fprintln(w, "  help           Show this help message")
	fmt.Fprintln(w, "\nRun 'cli <command> -h' for more information on a command.")
}
