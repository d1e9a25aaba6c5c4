package main

import (
	"context"
	"crypto/sha256"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/finance-ledger/internal/config"
	"github.com/dvloznov/finance-ledger/internal/logger"
	"github.com/dvloznov/finance-ledger/internal/store/sqlite"
	"github.com/rs/zerolog"
	"google.golang.org/api/iterator"
)

// Migration is a single migration file.
type Migration struct {
	Version  int
	Name     string
	Filename string
	SQL      string
	Checksum string
}

// AppliedMigration is a migration recorded in schema_migrations.
type AppliedMigration struct {
	Version   int
	Name      string
	AppliedAt time.Time
	Checksum  string
	AppliedBy string
}

var migrationPattern = regexp.MustCompile(`^(\d{4})_(.+)\.sql$`)

var (
	configPath    = flag.String("config", "", "Path to a ledger config file (optional)")
	projectID     = flag.String("project", "", "GCP project ID (defaults to bigquery.project_id)")
	datasetID     = flag.String("dataset", "", "BigQuery dataset ID (defaults to bigquery.dataset)")
	appliedBy     = flag.String("applied-by", "migrate-cli", "Name of the tool applying migrations")
	migrationsDir = flag.String("migrations", "migrations/bigquery", "Path to migrations directory")
	skipSQLite    = flag.Bool("skip-sqlite", false, "Do not migrate the SQLite document store")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewWithLevel(cfg.Log.Level)
	ctx := logger.WithContext(context.Background(), log)

	if cfg.Store.Driver == config.DriverSQLite && !*skipSQLite {
		if err := migrateSQLite(cfg.Store.SQLite.Path); err != nil {
			log.Fatal().Err(err).Msg("sqlite migration failed")
		}
		log.Info().Str("path", cfg.Store.SQLite.Path).Msg("sqlite document store is up to date")
	}

	project := firstNonEmpty(*projectID, cfg.BigQuery.ProjectID)
	dataset := firstNonEmpty(*datasetID, cfg.BigQuery.Dataset)
	if project == "" {
		log.Info().Msg("no BigQuery project configured, skipping BigQuery migrations")
		return
	}

	if err := migrateBigQuery(ctx, project, dataset); err != nil {
		log.Fatal().Err(err).Msg("bigquery migration failed")
	}
}

// migrateSQLite opens the store, which creates or updates its schema.
func migrateSQLite(path string) error {
	s, err := sqlite.Open(path)
	if err != nil {
		return fmt.Errorf("migrateSQLite: %w", err)
	}
	return s.Close()
}

func migrateBigQuery(ctx context.Context, project, dataset string) error {
	log := logger.FromContext(ctx).With().Str("project", project).Str("dataset", dataset).Logger()

	client, err := bigquery.NewClient(ctx, project)
	if err != nil {
		return fmt.Errorf("creating BigQuery client: %w", err)
	}
	defer client.Close()

	log.Info().Msg("connected to BigQuery")

	if err := ensureSchemaMigrationsTable(ctx, client, project, dataset); err != nil {
		return fmt.Errorf("ensuring schema_migrations table: %w", err)
	}

	dir, err := resolveMigrationsDir(*migrationsDir)
	if err != nil {
		return err
	}
	migrations, err := readMigrations(log, dir, project, dataset)
	if err != nil {
		return fmt.Errorf("reading migrations: %w", err)
	}
	log.Info().Int("count", len(migrations)).Msg("found migration files")

	applied, err := getAppliedMigrations(ctx, client, project, dataset)
	if err != nil {
		return fmt.Errorf("getting applied migrations: %w", err)
	}

	pending := pendingMigrations(migrations, applied)
	for _, m := range pending {
		log.Info().Int("version", m.Version).Str("name", m.Name).Msg("applying migration")

		if err := runQuery(ctx, client.Query(m.SQL)); err != nil {
			return fmt.Errorf("executing migration %04d_%s: %w", m.Version, m.Name, err)
		}
		if err := recordMigration(ctx, client, project, dataset, m); err != nil {
			return fmt.Errorf("recording migration %04d_%s: %w", m.Version, m.Name, err)
		}
	}

	if len(pending) == 0 {
		log.Info().Msg("no new migrations to apply")
	} else {
		log.Info().Int("applied", len(pending)).Msg("migrations applied")
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// resolveMigrationsDir also tries the path relative to the repository root
// when run from cmd/migrate.
func resolveMigrationsDir(dir string) (string, error) {
	if _, err := os.Stat(dir); err == nil {
		return dir, nil
	}
	alt := filepath.Join("..", "..", dir)
	if _, err := os.Stat(alt); err == nil {
		return alt, nil
	}
	return "", fmt.Errorf("migrations directory not found: %s", dir)
}

// parseMigrationFilename extracts the version and name of 0001_name.sql.
func parseMigrationFilename(filename string) (int, string, bool) {
	matches := migrationPattern.FindStringSubmatch(filename)
	if matches == nil {
		return 0, "", false
	}
	version, err := strconv.Atoi(matches[1])
	if err != nil {
		return 0, "", false
	}
	return version, matches[2], true
}

// readMigrations loads every migration file in dir, sorted by version,
// with {{PROJECT_ID}} and {{DATASET_ID}} substituted. The checksum covers
// the file as written, before substitution.
func readMigrations(log zerolog.Logger, dir, project, dataset string) ([]Migration, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading migrations directory: %w", err)
	}

	var migrations []Migration
	for _, file := range files {
		if file.IsDir() {
			continue
		}

		version, name, ok := parseMigrationFilename(file.Name())
		if !ok {
			log.Warn().Str("file", file.Name()).Msg("skipping file with invalid name")
			continue
		}

		content, err := os.ReadFile(filepath.Join(dir, file.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading file %s: %w", file.Name(), err)
		}

		sql := strings.ReplaceAll(string(content), "{{PROJECT_ID}}", project)
		sql = strings.ReplaceAll(sql, "{{DATASET_ID}}", dataset)

		migrations = append(migrations, Migration{
			Version:  version,
			Name:     name,
			Filename: file.Name(),
			SQL:      sql,
			Checksum: fmt.Sprintf("%x", sha256.Sum256(content)),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

// pendingMigrations returns the migrations whose version is not applied.
func pendingMigrations(all []Migration, applied []AppliedMigration) []Migration {
	done := make(map[int]bool, len(applied))
	for _, am := range applied {
		done[am.Version] = true
	}

	var pending []Migration
	for _, m := range all {
		if !done[m.Version] {
			pending = append(pending, m)
		}
	}
	return pending
}

func ensureSchemaMigrationsTable(ctx context.Context, client *bigquery.Client, project, dataset string) error {
	sql := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS `+"`%s.%s.schema_migrations`"+` (
			version       INT64 NOT NULL,
			name          STRING NOT NULL,
			applied_at    TIMESTAMP NOT NULL,
			checksum      STRING,
			applied_by    STRING
		)
	`, project, dataset)

	return runQuery(ctx, client.Query(sql))
}

func getAppliedMigrations(ctx context.Context, client *bigquery.Client, project, dataset string) ([]AppliedMigration, error) {
	sql := fmt.Sprintf(`
		SELECT version, name, applied_at, checksum, applied_by
		FROM `+"`%s.%s.schema_migrations`"+`
		ORDER BY version ASC
	`, project, dataset)

	it, err := client.Query(sql).Read(ctx)
	if err != nil {
		if strings.Contains(err.Error(), "Not found") {
			return []AppliedMigration{}, nil
		}
		return nil, fmt.Errorf("reading applied migrations: %w", err)
	}

	var applied []AppliedMigration
	for {
		var row struct {
			Version   int64
			Name      string
			AppliedAt time.Time
			Checksum  bigquery.NullString
			AppliedBy bigquery.NullString
		}

		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterating results: %w", err)
		}

		applied = append(applied, AppliedMigration{
			Version:   int(row.Version),
			Name:      row.Name,
			AppliedAt: row.AppliedAt,
			Checksum:  row.Checksum.StringVal,
			AppliedBy: row.AppliedBy.StringVal,
		})
	}
	return applied, nil
}

func recordMigration(ctx context.Context, client *bigquery.Client, project, dataset string, m Migration) error {
	sql := fmt.Sprintf(`
		INSERT INTO `+"`%s.%s.schema_migrations`"+`
		(version, name, applied_at, checksum, applied_by)
		VALUES (@version, @name, CURRENT_TIMESTAMP(), @checksum, @applied_by)
	`, project, dataset)

	q := client.Query(sql)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "version", Value: m.Version},
		{Name: "name", Value: m.Name},
		{Name: "checksum", Value: m.Checksum},
		{Name: "applied_by", Value: *appliedBy},
	}
	return runQuery(ctx, q)
}

func runQuery(ctx context.Context, q *bigquery.Query) error {
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
