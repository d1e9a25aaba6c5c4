// Package config loads ledger settings from an optional YAML file, a .env
// file and LEDGER_-prefixed environment variables, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Store drivers.
const (
	DriverMemory    = "memory"
	DriverSQLite    = "sqlite"
	DriverFirestore = "firestore"
)

type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

type FirestoreConfig struct {
	ProjectID        string `mapstructure:"project_id"`
	CollectionPrefix string `mapstructure:"collection_prefix"`
}

type StoreConfig struct {
	Driver    string          `mapstructure:"driver"`
	SQLite    SQLiteConfig    `mapstructure:"sqlite"`
	Firestore FirestoreConfig `mapstructure:"firestore"`
}

// BigQueryConfig enables import run recording when ProjectID is set.
type BigQueryConfig struct {
	ProjectID string `mapstructure:"project_id"`
	Dataset   string `mapstructure:"dataset"`
}

// ArchiveConfig enables statement archiving when Bucket is set.
type ArchiveConfig struct {
	Bucket string `mapstructure:"bucket"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type ImportConfig struct {
	MaxConcurrency int `mapstructure:"max_concurrency"`
}

type FetchConfig struct {
	PerPage int `mapstructure:"per_page"`
}

type Config struct {
	Store    StoreConfig    `mapstructure:"store"`
	BigQuery BigQueryConfig `mapstructure:"bigquery"`
	Archive  ArchiveConfig  `mapstructure:"archive"`
	Log      LogConfig      `mapstructure:"log"`
	Import   ImportConfig   `mapstructure:"import"`
	Fetch    FetchConfig    `mapstructure:"fetch"`
}

const envPrefix = "LEDGER"

func setDefaults(v *viper.Viper) {
	v.SetDefault("store.driver", DriverSQLite)
	v.SetDefault("store.sqlite.path", "ledger.db")
	v.SetDefault("store.firestore.project_id", "")
	v.SetDefault("store.firestore.collection_prefix", "")
	v.SetDefault("bigquery.project_id", "")
	v.SetDefault("bigquery.dataset", "finance")
	v.SetDefault("archive.bucket", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("import.max_concurrency", 8)
	v.SetDefault("fetch.per_page", 5)
}

// Load reads configuration. path names a YAML file and may be empty, in
// which case only defaults, .env and the environment apply. A missing
// .env file is ignored.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("Load: reading .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	// LEDGER_STORE_DRIVER overrides store.driver.
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("Load: read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("Load: unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("Load: %w", err)
	}
	return &c, nil
}

// Validate checks settings that would otherwise fail late.
func (c *Config) Validate() error {
	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	switch c.Store.Driver {
	case DriverMemory:
	case DriverSQLite:
		if c.Store.SQLite.Path == "" {
			return errors.New("store.sqlite.path is required for the sqlite driver")
		}
	case DriverFirestore:
		if c.Store.Firestore.ProjectID == "" {
			return errors.New("store.firestore.project_id is required for the firestore driver")
		}
	default:
		return fmt.Errorf("unknown store.driver %q", c.Store.Driver)
	}
	if c.BigQuery.ProjectID != "" && c.BigQuery.Dataset == "" {
		return errors.New("bigquery.dataset is required when bigquery.project_id is set")
	}
	if c.Import.MaxConcurrency < 1 {
		return fmt.Errorf("import.max_concurrency must be positive, got %d", c.Import.MaxConcurrency)
	}
	if c.Fetch.PerPage < 1 {
		return fmt.Errorf("fetch.per_page must be positive, got %d", c.Fetch.PerPage)
	}
	return nil
}
