package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/dvloznov/finance-ledger/internal/fingerprint"
	"github.com/dvloznov/finance-ledger/internal/importrun"
	"github.com/dvloznov/finance-ledger/internal/logger"
	"github.com/dvloznov/finance-ledger/internal/statement"
	"golang.org/x/sync/semaphore"
)

// Step is a single stage of a statement import.
type Step interface {
	Execute(ctx context.Context, state *ImportState) error
}

// ImportState holds the shared state across all import steps.
type ImportState struct {
	Account *domain.Account
	Content []byte
	Run     *importrun.Run

	Statement  *statement.Statement
	Candidates []*domain.Transaction
	Result     domain.ImportResult
}

// ArchiveStep stores the raw content of a parsed statement. Archive
// failures are logged and do not stop the import.
type ArchiveStep struct {
	Archiver Archiver
}

func (s *ArchiveStep) Execute(ctx context.Context, state *ImportState) error {
	if s.Archiver == nil {
		return nil
	}
	uri, err := s.Archiver.Archive(ctx, state.Account.ID, state.Content)
	if err != nil {
		log := logger.WithComponent(ctx, componentName)
		log.Warn().Err(err).Str("account_id", state.Account.ID).Msg("archiving statement failed")
		return nil
	}
	state.Run.ArchiveURI = uri
	return nil
}

// ParseStep parses the statement content. It fails with
// domain.ErrUnparseableStatement before anything is written.
type ParseStep struct{}

func (s *ParseStep) Execute(ctx context.Context, state *ImportState) error {
	stmt, err := statement.Parse(state.Content)
	if err != nil {
		return err
	}
	state.Statement = stmt
	return nil
}

// BuildCandidatesStep turns parsed entries into fingerprinted transactions
// for the target account, in file order.
type BuildCandidatesStep struct{}

func (s *BuildCandidatesStep) Execute(ctx context.Context, state *ImportState) error {
	accountID := state.Account.ID
	candidates := make([]*domain.Transaction, 0, len(state.Statement.Entries))
	for _, e := range state.Statement.Entries {
		candidates = append(candidates, &domain.Transaction{
			Date:      e.Date,
			AccountID: accountID,
			Name:      e.Name,
			Memo:      e.Memo,
			Amount:    e.Amount.String(),
			Checksum:  fingerprint.Fingerprint(e.Date, e.Amount, e.Name, accountID),
		})
	}
	state.Candidates = candidates
	return nil
}

type outcome int

const (
	outcomeImported outcome = iota
	outcomeDuplicate
	outcomeFailed
)

// PersistEntriesStep runs the dedup check and write for every candidate
// concurrently. Per-entry failures are counted and logged, never returned.
type PersistEntriesStep struct {
	Gate           DuplicateChecker
	Transactions   TransactionWriter
	MaxConcurrency int
}

func (s *PersistEntriesStep) Execute(ctx context.Context, state *ImportState) error {
	log := logger.WithComponent(ctx, componentName).With().Str("account_id", state.Account.ID).Logger()

	outcomes := make([]outcome, len(state.Candidates))
	limit := s.MaxConcurrency
	if limit <= 0 {
		limit = DefaultMaxConcurrency
	}
	sem := semaphore.NewWeighted(int64(limit))

	var wg sync.WaitGroup
	for i, txn := range state.Candidates {
		// A canceled context fails the entries not yet started.
		if err := sem.Acquire(ctx, 1); err != nil {
			outcomes[i] = outcomeFailed
			log.Error().Err(err).Int("entry", i).Str("checksum", txn.Checksum).Msg("entry not imported")
			continue
		}

		wg.Add(1)
		go func(i int, txn *domain.Transaction) {
			defer wg.Done()
			defer sem.Release(1)

			out, err := s.persist(ctx, txn)
			outcomes[i] = out
			switch out {
			case outcomeDuplicate:
				log.Debug().Int("entry", i).Str("checksum", txn.Checksum).Msg("skipping duplicate entry")
			case outcomeFailed:
				log.Error().Err(err).Int("entry", i).Str("checksum", txn.Checksum).Msg("entry not imported")
			}
		}(i, txn)
	}
	wg.Wait()

	result := domain.ImportResult{}
	for _, out := range outcomes {
		switch out {
		case outcomeImported:
			result.NumImported++
		case outcomeDuplicate:
			result.NumSkipped++
		case outcomeFailed:
			result.NumSkipped++
			result.NumFailed++
		}
	}
	state.Result = result
	return nil
}

// persist checks then writes one candidate. The write is the final
// arbiter: a duplicate rejected by the store counts as a duplicate.
func (s *PersistEntriesStep) persist(ctx context.Context, txn *domain.Transaction) (outcome, error) {
	exists, err := s.Gate.Exists(ctx, txn.Checksum)
	if err != nil {
		return outcomeFailed, fmt.Errorf("dedup lookup: %w", err)
	}
	if exists {
		return outcomeDuplicate, nil
	}

	if err := s.Transactions.Create(ctx, txn); err != nil {
		if errors.Is(err, domain.ErrDuplicateTransaction) {
			return outcomeDuplicate, nil
		}
		return outcomeFailed, fmt.Errorf("write: %w", err)
	}
	return outcomeImported, nil
}

// RecordBalanceStep appends the statement's ledger balance to the account
// history and persists the account. Statements without a balance leave
// the account untouched.
type RecordBalanceStep struct {
	Accounts AccountWriter
}

func (s *RecordBalanceStep) Execute(ctx context.Context, state *ImportState) error {
	bal := state.Statement.LedgerBalance
	if bal == nil {
		return nil
	}

	updated := state.Account.Copy()
	updated.AddBalanceSnapshot(domain.BalanceSnapshot{
		DateTime: bal.DateTime,
		Balance:  bal.Amount.String(),
	})
	if err := s.Accounts.Update(ctx, updated); err != nil {
		return fmt.Errorf("RecordBalance: persisting account %s: %w", updated.ID, err)
	}

	*state.Account = *updated
	return nil
}
