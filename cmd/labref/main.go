// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the labref CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/labref/internal/logging"
	"github.com/pdiddy/labref/internal/secrets"
	"github.com/pdiddy/labref/internal/store"
	"github.com/pdiddy/labref/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// cfg and logger are populated before any subcommand runs.
var (
	cfg    types.Config
	logger *logrus.Logger
)

// rootCmd is the base command for the labref CLI.
var rootCmd = &cobra.Command{
	Use:   "labref",
	Short: "Import and query clinical laboratory reference ranges",
	Long: `labref turns nested catalogs of laboratory tests into a flat, queryable
store of reference ranges keyed by parameter name and age group.

Catalogs are JSON or YAML documents whose range strings ("3.5-5.5 mmol/L",
"<10 mg/L", per-age mappings) are parsed into numeric bounds and units.
Use import or watch to load catalogs, params and check to query them, and
export or purge to maintain the store.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadConfig()
		if err != nil {
			return err
		}
		cfg = c

		l, err := logging.Install(cfg.Log, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		logger = l

		s, err := secrets.Load(cfg.Fetch.SecretsDir)
		if err != nil {
			return err
		}
		cfg.Fetch.Token = s.Or(secrets.CatalogToken, cfg.Fetch.Token)
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./labref.yaml or ~/.config/labref/labref.yaml)")
	rootCmd.PersistentFlags().String("db", "", "parameter database path (overrides store.path)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")

	viper.BindPFlag("store.path", rootCmd.PersistentFlags().Lookup("db"))
	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	setDefaults()

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("labref")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "labref"))
		}
	}

	viper.SetEnvPrefix("LABREF")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// setDefaults registers every config key so environment variables and
// flags bound to unset keys are honored by Unmarshal.
func setDefaults() {
	d := types.DefaultConfig()
	viper.SetDefault("store.path", d.Store.Path)
	viper.SetDefault("catalog.root_key", d.Catalog.RootKey)
	viper.SetDefault("catalog.default_age_group", d.Catalog.DefaultAgeGroup)
	viper.SetDefault("catalog.open_ended", string(d.Catalog.OpenEnded))
	viper.SetDefault("catalog.cache_size", d.Catalog.CacheSize)
	viper.SetDefault("fetch.timeout", d.Fetch.Timeout)
	viper.SetDefault("fetch.max_retries", d.Fetch.MaxRetries)
	viper.SetDefault("fetch.user_agent", d.Fetch.UserAgent)
	viper.SetDefault("fetch.token", d.Fetch.Token)
	viper.SetDefault("fetch.secrets_dir", d.Fetch.SecretsDir)
	viper.SetDefault("log.level", d.Log.Level)
	viper.SetDefault("log.format", d.Log.Format)
	viper.SetDefault("export.dir", d.Export.Dir)
}

func loadConfig() (types.Config, error) {
	var c types.Config
	if err := viper.Unmarshal(&c); err != nil {
		return types.Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if !c.Catalog.OpenEnded.Valid() {
		return types.Config{}, fmt.Errorf("catalog.open_ended: unknown policy %q (want drop or bound)", c.Catalog.OpenEnded)
	}
	return c, nil
}

// openStore opens the configured parameter store.
func openStore() (*store.Store, error) {
	return store.Open(cfg.Store, logger)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
