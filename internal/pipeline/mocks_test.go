package pipeline_test

import (
	"context"
	"sync"

	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/dvloznov/finance-ledger/internal/importrun"
)

// MockDuplicateChecker is a mock implementation of DuplicateChecker for testing.
type MockDuplicateChecker struct {
	ExistsFunc func(ctx context.Context, checksum string) (bool, error)
}

func (m *MockDuplicateChecker) Exists(ctx context.Context, checksum string) (bool, error) {
	if m.ExistsFunc != nil {
		return m.ExistsFunc(ctx, checksum)
	}
	return false, nil
}

// MockTransactionWriter is a mock implementation of TransactionWriter for testing.
type MockTransactionWriter struct {
	CreateFunc func(ctx context.Context, t *domain.Transaction) error
}

func (m *MockTransactionWriter) Create(ctx context.Context, t *domain.Transaction) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, t)
	}
	return nil
}

// MockAccountWriter is a mock implementation of AccountWriter for testing.
type MockAccountWriter struct {
	UpdateFunc func(ctx context.Context, a *domain.Account) error
}

func (m *MockAccountWriter) Update(ctx context.Context, a *domain.Account) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, a)
	}
	return nil
}

// MockArchiver is a mock implementation of Archiver for testing.
type MockArchiver struct {
	ArchiveFunc func(ctx context.Context, accountID string, content []byte) (string, error)
}

func (m *MockArchiver) Archive(ctx context.Context, accountID string, content []byte) (string, error) {
	if m.ArchiveFunc != nil {
		return m.ArchiveFunc(ctx, accountID, content)
	}
	return "mock://archive", nil
}

// recordingRecorder keeps every run it is given.
type recordingRecorder struct {
	mu       sync.Mutex
	started  []importrun.Run
	finished []importrun.Run
}

func (r *recordingRecorder) StartRun(ctx context.Context, run *importrun.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = append(r.started, *run)
	return nil
}

func (r *recordingRecorder) FinishRun(ctx context.Context, run *importrun.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished = append(r.finished, *run)
	return nil
}
