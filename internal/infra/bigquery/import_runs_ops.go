package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/finance-ledger/internal/importrun"
	"github.com/dvloznov/finance-ledger/internal/logger"
	"google.golang.org/api/iterator"
)

// StartImportRunWithClient inserts run into <dataset>.import_runs with its
// current status.
func StartImportRunWithClient(ctx context.Context, client *bigquery.Client, dataset string, run *importrun.Run) error {
	q := client.Query(fmt.Sprintf(`
		INSERT %s.%s (
			import_run_id,
			account_id,
			content_sha256,
			started_ts,
			status
		)
		VALUES (
			@import_run_id,
			@account_id,
			@content_sha256,
			@started_ts,
			@status
		)
	`, dataset, importRunsTable))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "import_run_id", Value: run.ID},
		{Name: "account_id", Value: run.AccountID},
		{Name: "content_sha256", Value: run.ContentSHA256},
		{Name: "started_ts", Value: run.StartedAt},
		{Name: "status", Value: string(run.Status)},
	}

	if err := runAndWait(ctx, q); err != nil {
		return fmt.Errorf("StartImportRun: %w", err)
	}
	return nil
}

// FinishImportRunWithClient sets the final status, finished_ts, counts,
// error_message and archive_uri of run.
func FinishImportRunWithClient(ctx context.Context, client *bigquery.Client, dataset string, run *importrun.Run) error {
	q := client.Query(fmt.Sprintf(`
		UPDATE %s.%s
		SET status = @status,
		    finished_ts = @finished_ts,
		    num_imported = @num_imported,
		    num_skipped = @num_skipped,
		    num_failed = @num_failed,
		    error_message = @error_message,
		    archive_uri = @archive_uri
		WHERE import_run_id = @import_run_id
	`, dataset, importRunsTable))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: string(run.Status)},
		{Name: "finished_ts", Value: run.FinishedAt},
		{Name: "num_imported", Value: run.NumImported},
		{Name: "num_skipped", Value: run.NumSkipped},
		{Name: "num_failed", Value: run.NumFailed},
		{Name: "error_message", Value: run.ErrorMessage},
		{Name: "archive_uri", Value: run.ArchiveURI},
		{Name: "import_run_id", Value: run.ID},
	}

	if err := runAndWait(ctx, q); err != nil {
		return fmt.Errorf("FinishImportRun: %w", err)
	}
	return nil
}

// ListImportRunsWithClient returns the most recent runs, newest first.
// An empty accountID lists runs of every account.
func ListImportRunsWithClient(ctx context.Context, client *bigquery.Client, dataset, accountID string, limit int) ([]*importrun.Run, error) {
	log := logger.FromContext(ctx)

	query := fmt.Sprintf(`
		SELECT *
		FROM %s.%s
		WHERE (@account_id = "" OR account_id = @account_id)
		ORDER BY started_ts DESC
		LIMIT @limit
	`, dataset, importRunsTable)

	q := client.Query(query)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "account_id", Value: accountID},
		{Name: "limit", Value: limit},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListImportRunsWithClient: reading query: %w", err)
	}

	var runs []*importrun.Run
	for {
		var row ImportRunRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListImportRunsWithClient: iterating: %w", err)
		}
		runs = append(runs, row.Run())
	}

	log.Debug().Int("count", len(runs)).Msg("listed import runs")
	return runs, nil
}

func runAndWait(ctx context.Context, q *bigquery.Query) error {
	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("job error: %w", err)
	}
	return nil
}
