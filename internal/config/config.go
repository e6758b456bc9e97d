// Package config loads fpsearch configuration from defaults, the user config
// file, the project config file and FPSEARCH_* environment variables, in
// increasing order of precedence.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	fperrors "github.com/Aman-CERP/fpsearch/internal/errors"
	"github.com/Aman-CERP/fpsearch/internal/fingerprint"
	"github.com/Aman-CERP/fpsearch/internal/hashing"
	"github.com/Aman-CERP/fpsearch/internal/store"
)

// ProjectConfigNames are the project config file names, in lookup order.
var ProjectConfigNames = []string{".fpsearch.yaml", ".fpsearch.yml"}

// Config is the complete fpsearch configuration.
type Config struct {
	Version int           `yaml:"version" json:"version"`
	Backend BackendConfig `yaml:"backend" json:"backend"`
	Query   QueryConfig   `yaml:"query" json:"query"`
	Hashing HashingConfig `yaml:"hashing" json:"hashing"`
	Tracks  TracksConfig  `yaml:"tracks" json:"tracks"`
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// BackendConfig selects the search backend that stores sub-fingerprints.
type BackendConfig struct {
	// Type is "bleve" (embedded, default) or "solr".
	Type string `yaml:"type" json:"type"`

	// IndexPath is the bleve index directory. Empty means in-memory for
	// library use; the CLI substitutes a directory under ~/.fpsearch/data.
	IndexPath string `yaml:"index_path" json:"index_path"`

	SolrURL  string `yaml:"solr_url" json:"solr_url"`
	SolrCore string `yaml:"solr_core" json:"solr_core"`

	// Timeout bounds one Solr HTTP request.
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
	// MaxRetries applies to Solr reads only; writes are never retried.
	MaxRetries int `yaml:"max_retries" json:"max_retries"`
	// RequestsPerSecond limits Solr traffic. 0 = unlimited.
	RequestsPerSecond float64 `yaml:"requests_per_second" json:"requests_per_second"`
	// MaxRows is the Solr rows parameter.
	MaxRows int `yaml:"max_rows" json:"max_rows"`
}

// QueryConfig is captured once when the lookup engine is built.
type QueryConfig struct {
	QueryBatchSize    int  `yaml:"query_batch_size" json:"query_batch_size"`
	PreferLocalShards bool `yaml:"prefer_local_shards" json:"prefer_local_shards"`
}

// HashingConfig must match the configuration that produced the stored data.
type HashingConfig struct {
	NumberOfLSHTables         int `yaml:"number_of_lsh_tables" json:"number_of_lsh_tables"`
	NumberOfMinHashesPerTable int `yaml:"number_of_min_hashes_per_table" json:"number_of_min_hashes_per_table"`
}

// TracksConfig configures the track metadata database.
type TracksConfig struct {
	// DatabasePath is the SQLite file. Empty means in-memory for library use;
	// the CLI substitutes a file under ~/.fpsearch/data.
	DatabasePath string `yaml:"database_path" json:"database_path"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
}

// NewConfig returns a Config with default values.
func NewConfig() *Config {
	solr := store.DefaultSolrOptions()
	hash := hashing.DefaultConfig()
	return &Config{
		Version: 1,
		Backend: BackendConfig{
			Type:       string(store.BackendBleve),
			SolrURL:    solr.URL,
			SolrCore:   solr.Core,
			Timeout:    solr.Timeout,
			MaxRetries: solr.Retry.MaxRetries,
			MaxRows:    solr.MaxRows,
		},
		Query: QueryConfig{
			QueryBatchSize: fingerprint.DefaultQueryBatchSize,
		},
		Hashing: HashingConfig{
			NumberOfLSHTables:         hash.NumberOfLSHTables,
			NumberOfMinHashesPerTable: hash.NumberOfMinHashesPerTable,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// GetUserConfigPath returns ~/.config/fpsearch/config.yaml, honouring XDG_CONFIG_HOME.
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "fpsearch", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "fpsearch", "config.yaml")
	}
	return filepath.Join(home, ".config", "fpsearch", "config.yaml")
}

// GetUserConfigDir returns the directory holding the user config file.
func GetUserConfigDir() string {
	return filepath.Dir(GetUserConfigPath())
}

// UserConfigExists reports whether a user config file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// DefaultDataDir returns ~/.fpsearch/data, where the CLI keeps its index and
// track database when the config leaves their paths empty.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".fpsearch", "data")
	}
	return filepath.Join(home, ".fpsearch", "data")
}

// Load builds the effective configuration for a project directory.
//
// Precedence, lowest first: defaults, user config, project config
// (.fpsearch.yaml, then .fpsearch.yml), environment variables.
// The result is validated.
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if path := GetUserConfigPath(); fileExists(path) {
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	}

	if path := FindProjectConfig(dir); path != "" {
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FindProjectConfig returns the project config file in dir, or "" if none.
func FindProjectConfig(dir string) string {
	for _, name := range ProjectConfigNames {
		path := filepath.Join(dir, name)
		if fileExists(path) {
			return path
		}
	}
	return ""
}

// loadYAML overlays the keys present in path onto c. Keys absent from the
// file keep their current value; explicit zero values are honoured.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fperrors.New(fperrors.ErrCodeConfigNotFound, fmt.Sprintf("failed to read config file %s", path), err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fperrors.ConfigError(fmt.Sprintf("failed to parse config file %s", path), err).
			WithDetail("path", path)
	}
	return nil
}

// applyEnvOverrides applies FPSEARCH_* variables. Unparseable values are ignored.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("FPSEARCH_BACKEND"); v != "" {
		c.Backend.Type = strings.ToLower(v)
	}
	if v := os.Getenv("FPSEARCH_INDEX_PATH"); v != "" {
		c.Backend.IndexPath = v
	}
	if v := os.Getenv("FPSEARCH_SOLR_URL"); v != "" {
		c.Backend.SolrURL = v
	}
	if v := os.Getenv("FPSEARCH_SOLR_CORE"); v != "" {
		c.Backend.SolrCore = v
	}
	if v := os.Getenv("FPSEARCH_QUERY_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Query.QueryBatchSize = n
		}
	}
	if v := os.Getenv("FPSEARCH_PREFER_LOCAL_SHARDS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Query.PreferLocalShards = b
		}
	}
	if v := os.Getenv("FPSEARCH_TRACKS_DB"); v != "" {
		c.Tracks.DatabasePath = v
	}
	if v := os.Getenv("FPSEARCH_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate checks the configuration for values the engine cannot run with.
func (c *Config) Validate() error {
	switch c.Backend.Type {
	case string(store.BackendBleve), string(store.BackendSolr):
	default:
		return fperrors.ConfigError(fmt.Sprintf("backend.type must be 'bleve' or 'solr', got %q", c.Backend.Type), nil)
	}
	if c.Backend.Type == string(store.BackendSolr) {
		if c.Backend.SolrURL == "" || c.Backend.SolrCore == "" {
			return fperrors.ConfigError("backend.solr_url and backend.solr_core are required for the solr backend", nil)
		}
	}
	if c.Backend.Timeout < 0 {
		return fperrors.ConfigError(fmt.Sprintf("backend.timeout must be non-negative, got %s", c.Backend.Timeout), nil)
	}
	if c.Backend.MaxRetries < 0 {
		return fperrors.ConfigError(fmt.Sprintf("backend.max_retries must be non-negative, got %d", c.Backend.MaxRetries), nil)
	}
	if c.Backend.RequestsPerSecond < 0 {
		return fperrors.ConfigError(fmt.Sprintf("backend.requests_per_second must be non-negative, got %g", c.Backend.RequestsPerSecond), nil)
	}
	if c.Backend.MaxRows <= 0 {
		return fperrors.ConfigError(fmt.Sprintf("backend.max_rows must be positive, got %d", c.Backend.MaxRows), nil)
	}

	if c.Query.QueryBatchSize <= 0 {
		return fperrors.ConfigError(fmt.Sprintf("query.query_batch_size must be positive, got %d", c.Query.QueryBatchSize), nil)
	}

	if c.Hashing.NumberOfLSHTables <= 0 {
		return fperrors.ConfigError(fmt.Sprintf("hashing.number_of_lsh_tables must be positive, got %d", c.Hashing.NumberOfLSHTables), nil)
	}
	if c.Hashing.NumberOfMinHashesPerTable <= 0 || c.Hashing.NumberOfMinHashesPerTable > 8 {
		return fperrors.ConfigError(fmt.Sprintf("hashing.number_of_min_hashes_per_table must be between 1 and 8, got %d", c.Hashing.NumberOfMinHashesPerTable), nil)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fperrors.ConfigError(fmt.Sprintf("logging.level must be 'debug', 'info', 'warn', or 'error', got %s", c.Logging.Level), nil)
	}

	return nil
}

// WriteYAML writes the configuration to path, creating parent directories.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// HashingParams returns the hashing constants in engine form.
func (c *Config) HashingParams() hashing.Config {
	return hashing.Config{
		NumberOfLSHTables:         c.Hashing.NumberOfLSHTables,
		NumberOfMinHashesPerTable: c.Hashing.NumberOfMinHashesPerTable,
	}
}

// FingerprintOptions returns the immutable options of the lookup engine.
func (c *Config) FingerprintOptions() fingerprint.Options {
	return fingerprint.Options{
		QueryBatchSize:    c.Query.QueryBatchSize,
		PreferLocalShards: c.Query.PreferLocalShards,
		Hashing:           c.HashingParams(),
	}
}

// BackendOptions returns the options for store.NewBackend.
func (c *Config) BackendOptions() store.BackendOptions {
	solr := store.DefaultSolrOptions()
	solr.URL = c.Backend.SolrURL
	solr.Core = c.Backend.SolrCore
	solr.Timeout = c.Backend.Timeout
	solr.MaxRows = c.Backend.MaxRows
	solr.RequestsPerSecond = c.Backend.RequestsPerSecond
	solr.Retry.MaxRetries = c.Backend.MaxRetries

	return store.BackendOptions{
		Kind:      c.Backend.Type,
		IndexPath: c.Backend.IndexPath,
		Solr:      solr,
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
