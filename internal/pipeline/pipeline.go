// Package pipeline imports bank statements into an account: parse,
// fingerprint, deduplicate, write, then record the statement balance.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/dvloznov/finance-ledger/internal/importrun"
	"github.com/dvloznov/finance-ledger/internal/logger"
)

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []Step
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...Step) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps in the pipeline sequentially.
func (p *Pipeline) Execute(ctx context.Context, state *ImportState) error {
	for i, step := range p.steps {
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline step %d failed: %w", i+1, err)
		}
	}
	return nil
}

// Importer is the statement import entry point.
type Importer struct {
	gate     DuplicateChecker
	txns     TransactionWriter
	accounts AccountWriter

	recorder       importrun.Recorder
	archiver       Archiver
	maxConcurrency int
}

// Option configures an Importer.
type Option func(*Importer)

// WithRecorder records every import run.
func WithRecorder(r importrun.Recorder) Option {
	return func(i *Importer) { i.recorder = r }
}

// WithArchiver archives raw statement content before parsing.
func WithArchiver(a Archiver) Option {
	return func(i *Importer) { i.archiver = a }
}

// WithMaxConcurrency bounds concurrent per-entry work.
func WithMaxConcurrency(n int) Option {
	return func(i *Importer) { i.maxConcurrency = n }
}

// NewImporter creates an Importer.
func NewImporter(gate DuplicateChecker, txns TransactionWriter, accounts AccountWriter, opts ...Option) *Importer {
	imp := &Importer{
		gate:           gate,
		txns:           txns,
		accounts:       accounts,
		recorder:       importrun.NopRecorder{},
		maxConcurrency: DefaultMaxConcurrency,
	}
	for _, opt := range opts {
		opt(imp)
	}
	return imp
}

// Import parses content as a statement for account, writes every entry not
// already stored and appends the statement balance to the account history.
//
// An unparseable statement fails with domain.ErrUnparseableStatement before
// anything is archived or written. Per-entry failures are counted as skipped. A failure to
// persist the account is returned together with the counts so far; the
// transactions written before it stay written. On success account reflects
// the persisted state, including its new revision.
func (imp *Importer) Import(ctx context.Context, account *domain.Account, content []byte) (domain.ImportResult, error) {
	if account == nil || account.ID == "" {
		return domain.ImportResult{}, errors.New("Import: account with an ID is required")
	}

	log := logger.WithComponent(ctx, componentName).With().Str("account_id", account.ID).Logger()

	state := &ImportState{
		Account: account,
		Content: content,
		Run:     importrun.NewRun(account.ID, content),
	}
	if err := imp.recorder.StartRun(ctx, state.Run); err != nil {
		log.Warn().Err(err).Str("run_id", state.Run.ID).Msg("recording import run start failed")
	}

	p := NewPipeline(
		&ParseStep{},
		&ArchiveStep{Archiver: imp.archiver},
		&BuildCandidatesStep{},
		&PersistEntriesStep{Gate: imp.gate, Transactions: imp.txns, MaxConcurrency: imp.maxConcurrency},
		&RecordBalanceStep{Accounts: imp.accounts},
	)

	err := p.Execute(ctx, state)
	if err != nil {
		state.Run.Fail(state.Result, err)
	} else {
		state.Run.Succeed(state.Result)
	}
	if recErr := imp.recorder.FinishRun(ctx, state.Run); recErr != nil {
		log.Warn().Err(recErr).Str("run_id", state.Run.ID).Msg("recording import run finish failed")
	}

	if err != nil {
		log.Error().Err(err).Str("run_id", state.Run.ID).Msg("import failed")
		return state.Result, fmt.Errorf("Import: %w", err)
	}

	log.Info().
		Str("run_id", state.Run.ID).
		Int("entries", len(state.Candidates)).
		Int("imported", state.Result.NumImported).
		Int("skipped", state.Result.NumSkipped).
		Int("failed", state.Result.NumFailed).
		Msg("import finished")

	return state.Result, nil
}
