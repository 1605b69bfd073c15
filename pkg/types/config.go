// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// OpenEndedPolicy selects how one-sided ranges ("<N", ">N") become records.
type OpenEndedPolicy string

const (
	// OpenEndedDrop emits no record for a one-sided range.
	OpenEndedDrop OpenEndedPolicy = "drop"

	// OpenEndedBound maps "<N" to 0..N and ">N" to N..+Inf.
	OpenEndedBound OpenEndedPolicy = "bound"
)

// Valid reports whether p names a supported policy.
func (p OpenEndedPolicy) Valid() bool {
	return p == OpenEndedDrop || p == OpenEndedBound
}

// StoreConfig holds settings for the parameter store.
type StoreConfig struct {
	// Path is the SQLite database file (default "labref.db").
	Path string `json:"path" yaml:"path" mapstructure:"path"`
}

// CatalogConfig holds settings for catalog flattening.
type CatalogConfig struct {
	// RootKey is the top-level key holding the categories (default "NICU_Tests").
	RootKey string `json:"root_key" yaml:"root_key" mapstructure:"root_key"`

	// DefaultAgeGroup labels single-string ranges (default "All").
	DefaultAgeGroup string `json:"default_age_group" yaml:"default_age_group" mapstructure:"default_age_group"`

	// OpenEnded selects the one-sided range policy: drop or bound.
	OpenEnded OpenEndedPolicy `json:"open_ended" yaml:"open_ended" mapstructure:"open_ended"`

	// CacheSize bounds the extraction cache; zero disables it.
	CacheSize int `json:"cache_size" yaml:"cache_size" mapstructure:"cache_size"`
}

// FetchConfig holds settings for catalogs fetched over HTTP.
type FetchConfig struct {
	Timeout    time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
	MaxRetries int           `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`
	UserAgent  string        `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`

	// Token is sent as a bearer token when set. When empty it is read from
	// the catalog-token file in SecretsDir.
	Token      string `json:"-" yaml:"-" mapstructure:"token"`
	SecretsDir string `json:"secrets_dir" yaml:"secrets_dir" mapstructure:"secrets_dir"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	// Level is a logrus level name (default "info").
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// Format is "text" or "json".
	Format string `json:"format" yaml:"format" mapstructure:"format"`
}

// ExportConfig holds settings for export and purge backups.
type ExportConfig struct {
	// Dir receives export files (default "exports").
	Dir string `json:"dir" yaml:"dir" mapstructure:"dir"`
}

// Config groups all settings for the labref CLI.
type Config struct {
	Store   StoreConfig   `json:"store" yaml:"store" mapstructure:"store"`
	Catalog CatalogConfig `json:"catalog" yaml:"catalog" mapstructure:"catalog"`
	Fetch   FetchConfig   `json:"fetch" yaml:"fetch" mapstructure:"fetch"`
	Log     LogConfig     `json:"log" yaml:"log" mapstructure:"log"`
	Export  ExportConfig  `json:"export" yaml:"export" mapstructure:"export"`
}

// DefaultConfig returns the settings used when no config file is present.
func DefaultConfig() Config {
	return Config{
		Store: StoreConfig{Path: "labref.db"},
		Catalog: CatalogConfig{
			RootKey:         "NICU_Tests",
			DefaultAgeGroup: DefaultAgeGroup,
			OpenEnded:       OpenEndedDrop,
			CacheSize:       1024,
		},
		Fetch: FetchConfig{
			Timeout:    30 * time.Second,
			MaxRetries: 3,
			UserAgent:  "labref/0.1",
			SecretsDir: ".secrets",
		},
		Log:    LogConfig{Level: "info", Format: "text"},
		Export: ExportConfig{Dir: "exports"},
	}
}
