package main

import (
	"context"
	"fmt"

	"github.com/dvloznov/finance-ledger/internal/accounts"
	"github.com/dvloznov/finance-ledger/internal/archive"
	"github.com/dvloznov/finance-ledger/internal/config"
	"github.com/dvloznov/finance-ledger/internal/dedup"
	"github.com/dvloznov/finance-ledger/internal/fetch"
	infraBQ "github.com/dvloznov/finance-ledger/internal/infra/bigquery"
	"github.com/dvloznov/finance-ledger/internal/links"
	"github.com/dvloznov/finance-ledger/internal/pipeline"
	"github.com/dvloznov/finance-ledger/internal/repository"
	"github.com/dvloznov/finance-ledger/internal/store"
	"github.com/dvloznov/finance-ledger/internal/store/firestore"
	"github.com/dvloznov/finance-ledger/internal/store/memory"
	"github.com/dvloznov/finance-ledger/internal/store/sqlite"
)

// app wires the ledger services over one document store.
type app struct {
	cfg *config.Config

	store        store.DocumentStore
	transactions *repository.TransactionRepository
	accounts     *accounts.Service
	importer     *pipeline.Importer
	fetcher      *fetch.Fetcher
	matcher      *links.Matcher

	runs     *infraBQ.ImportRunRepository
	archiver *archive.GCSArchiver
}

func openStore(ctx context.Context, cfg *config.Config) (store.DocumentStore, error) {
	switch cfg.Store.Driver {
	case config.DriverMemory:
		return memory.NewStore(), nil
	case config.DriverSQLite:
		return sqlite.Open(cfg.Store.SQLite.Path)
	case config.DriverFirestore:
		return firestore.NewStore(ctx, cfg.Store.Firestore.ProjectID, nil,
			firestore.WithCollectionPrefix(cfg.Store.Firestore.CollectionPrefix))
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}

// newApp opens the configured store and, when configured, the BigQuery
// run recorder and the GCS archiver.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	s, err := openStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", cfg.Store.Driver, err)
	}

	var opts []pipeline.Option
	a := &app{cfg: cfg, store: s}

	if cfg.BigQuery.ProjectID != "" {
		a.runs, err = infraBQ.NewImportRunRepository(ctx, cfg.BigQuery.ProjectID, cfg.BigQuery.Dataset)
		if err != nil {
			a.Close()
			return nil, err
		}
		opts = append(opts, pipeline.WithRecorder(a.runs))
	}
	if cfg.Archive.Bucket != "" {
		a.archiver, err = archive.NewGCSArchiver(ctx, cfg.Archive.Bucket)
		if err != nil {
			a.Close()
			return nil, err
		}
		opts = append(opts, pipeline.WithArchiver(a.archiver))
	}

	a.wire(opts...)
	return a, nil
}

func (a *app) wire(opts ...pipeline.Option) {
	txns := repository.NewTransactionRepository(a.store)
	accts := repository.NewAccountRepository(a.store)

	opts = append(opts, pipeline.WithMaxConcurrency(a.cfg.Import.MaxConcurrency))

	a.transactions = txns
	a.accounts = accounts.NewService(accts)
	a.importer = pipeline.NewImporter(dedup.NewGate(txns), txns, accts, opts...)
	a.fetcher = fetch.NewFetcher(txns, accts)
	a.matcher = links.NewMatcher(txns, accts)
}

func (a *app) Close() {
	if a.archiver != nil {
		_ = a.archiver.Close()
	}
	if a.runs != nil {
		_ = a.runs.Close()
	}
	if a.store != nil {
		_ = a.store.Close()
	}
}
