package bigquery

import (
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/dvloznov/finance-ledger/internal/importrun"
)

const importRunsTable = "import_runs"

type ImportRunRow struct {
	ImportRunID   string `bigquery:"import_run_id"`  // REQUIRED
	AccountID     string `bigquery:"account_id"`     // REQUIRED
	ContentSHA256 string `bigquery:"content_sha256"` // REQUIRED

	StartedTS  time.Time              `bigquery:"started_ts"`  // REQUIRED
	FinishedTS bigquery.NullTimestamp `bigquery:"finished_ts"` // NULLABLE

	Status       string              `bigquery:"status"`        // NULLABLE
	ErrorMessage bigquery.NullString `bigquery:"error_message"` // NULLABLE
	ArchiveURI   bigquery.NullString `bigquery:"archive_uri"`   // NULLABLE

	NumImported bigquery.NullInt64 `bigquery:"num_imported"` // NULLABLE
	NumSkipped  bigquery.NullInt64 `bigquery:"num_skipped"`  // NULLABLE
	NumFailed   bigquery.NullInt64 `bigquery:"num_failed"`   // NULLABLE
}

// NewImportRunRow converts a run to its table row.
func NewImportRunRow(run *importrun.Run) *ImportRunRow {
	row := &ImportRunRow{
		ImportRunID:   run.ID,
		AccountID:     run.AccountID,
		ContentSHA256: run.ContentSHA256,
		StartedTS:     run.StartedAt,
		Status:        string(run.Status),
		ErrorMessage:  nullString(run.ErrorMessage),
		ArchiveURI:    nullString(run.ArchiveURI),
	}
	if !run.FinishedAt.IsZero() {
		row.FinishedTS = bigquery.NullTimestamp{Timestamp: run.FinishedAt, Valid: true}
		row.NumImported = bigquery.NullInt64{Int64: int64(run.NumImported), Valid: true}
		row.NumSkipped = bigquery.NullInt64{Int64: int64(run.NumSkipped), Valid: true}
		row.NumFailed = bigquery.NullInt64{Int64: int64(run.NumFailed), Valid: true}
	}
	return row
}

// Run converts the row back to a run.
func (r *ImportRunRow) Run() *importrun.Run {
	run := &importrun.Run{
		ID:            r.ImportRunID,
		AccountID:     r.AccountID,
		ContentSHA256: r.ContentSHA256,
		StartedAt:     r.StartedTS,
		Status:        importrun.Status(r.Status),
		ErrorMessage:  r.ErrorMessage.StringVal,
		ArchiveURI:    r.ArchiveURI.StringVal,
		ImportResult: domain.ImportResult{
			NumImported: int(r.NumImported.Int64),
			NumSkipped:  int(r.NumSkipped.Int64),
			NumFailed:   int(r.NumFailed.Int64),
		},
	}
	if r.FinishedTS.Valid {
		run.FinishedAt = r.FinishedTS.Timestamp
	}
	return run
}

func nullString(s string) bigquery.NullString {
	return bigquery.NullString{StringVal: s, Valid: s != ""}
}
