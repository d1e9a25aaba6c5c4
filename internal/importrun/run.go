// Package importrun describes the audit record written for every
// statement import.
package importrun

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
	"unicode/utf8"

	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/google/uuid"
)

// Status of an import run.
type Status string

const (
	StatusRunning Status = "RUNNING"
	StatusSuccess Status = "SUCCESS"
	StatusFailed  Status = "FAILED"
)

// maxErrorLen caps stored error messages, in bytes.
const maxErrorLen = 2000

// Run is one import attempt of one statement into one account.
type Run struct {
	ID            string
	AccountID     string
	ContentSHA256 string

	StartedAt  time.Time
	FinishedAt time.Time

	Status       Status
	ErrorMessage string

	// ArchiveURI is where the raw statement was archived, if it was.
	ArchiveURI string

	domain.ImportResult
}

// NewRun starts a run record for content imported into accountID.
func NewRun(accountID string, content []byte) *Run {
	sum := sha256.Sum256(content)
	return &Run{
		ID:            uuid.NewString(),
		AccountID:     accountID,
		ContentSHA256: hex.EncodeToString(sum[:]),
		StartedAt:     time.Now().UTC(),
		Status:        StatusRunning,
	}
}

// Succeed marks the run finished with result.
func (r *Run) Succeed(result domain.ImportResult) {
	r.ImportResult = result
	r.Status = StatusSuccess
	r.FinishedAt = time.Now().UTC()
}

// Fail marks the run finished with err. result holds whatever was counted
// before the failure.
func (r *Run) Fail(result domain.ImportResult, err error) {
	r.ImportResult = result
	r.Status = StatusFailed
	r.FinishedAt = time.Now().UTC()
	if err != nil {
		r.ErrorMessage = truncate(err.Error(), maxErrorLen)
	}
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// Recorder persists run records.
type Recorder interface {
	StartRun(ctx context.Context, run *Run) error
	FinishRun(ctx context.Context, run *Run) error
}

// NopRecorder discards runs.
type NopRecorder struct{}

func (NopRecorder) StartRun(ctx context.Context, run *Run) error  { return nil }
func (NopRecorder) FinishRun(ctx context.Context, run *Run) error { return nil }
