// Package bigquery records statement import runs in BigQuery.
package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/finance-ledger/internal/importrun"
)

// ImportRunRepository writes import runs to <dataset>.import_runs. It
// holds one client for its lifetime.
type ImportRunRepository struct {
	client  *bigquery.Client
	dataset string
}

// NewImportRunRepository creates a repository with its own client.
func NewImportRunRepository(ctx context.Context, projectID, dataset string) (*ImportRunRepository, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewImportRunRepository: creating client: %w", err)
	}
	return NewImportRunRepositoryWithClient(client, dataset), nil
}

// NewImportRunRepositoryWithClient creates a repository over client.
func NewImportRunRepositoryWithClient(client *bigquery.Client, dataset string) *ImportRunRepository {
	return &ImportRunRepository{client: client, dataset: dataset}
}

// Close closes the BigQuery client connection.
func (r *ImportRunRepository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

func (r *ImportRunRepository) StartRun(ctx context.Context, run *importrun.Run) error {
	return StartImportRunWithClient(ctx, r.client, r.dataset, run)
}

func (r *ImportRunRepository) FinishRun(ctx context.Context, run *importrun.Run) error {
	return FinishImportRunWithClient(ctx, r.client, r.dataset, run)
}

// ListRecent returns up to limit runs, newest first.
func (r *ImportRunRepository) ListRecent(ctx context.Context, accountID string, limit int) ([]*importrun.Run, error) {
	return ListImportRunsWithClient(ctx, r.client, r.dataset, accountID, limit)
}

var _ importrun.Recorder = (*ImportRunRepository)(nil)
