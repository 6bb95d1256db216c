// Package config loads application configuration from file and environment
// and initializes the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Load      LoadConfig      `yaml:"load" mapstructure:"load"`
	Backfill  BackfillConfig  `yaml:"backfill" mapstructure:"backfill"`
	Reconcile ReconcileConfig `yaml:"reconcile" mapstructure:"reconcile"`
	Audit     AuditConfig     `yaml:"audit" mapstructure:"audit"`
	Backup    BackupConfig    `yaml:"backup" mapstructure:"backup"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the SQLite store.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// LoadConfig configures the bulk load.
type LoadConfig struct {
	BatchSize int  `yaml:"batch_size" mapstructure:"batch_size"`
	Workers   int  `yaml:"workers" mapstructure:"workers"`
	BulkMode  bool `yaml:"bulk_mode" mapstructure:"bulk_mode"`
}

// BackfillConfig configures the reference backfill engine.
type BackfillConfig struct {
	RulesPath string `yaml:"rules_path" mapstructure:"rules_path"`
}

// ReconcileConfig configures the reconciliation checks.
type ReconcileConfig struct {
	ToleranceThousands float64  `yaml:"tolerance_thousands" mapstructure:"tolerance_thousands"`
	RollupOrg          string   `yaml:"rollup_org" mapstructure:"rollup_org"`
	ExhibitPairs       []string `yaml:"exhibit_pairs" mapstructure:"exhibit_pairs"`
}

// AuditConfig configures the extraction quality audit.
type AuditConfig struct {
	MaxListed int `yaml:"max_listed" mapstructure:"max_listed"`
}

// BackupConfig configures backup snapshots.
type BackupConfig struct {
	Dir    string `yaml:"dir" mapstructure:"dir"`
	Prefix string `yaml:"prefix" mapstructure:"prefix"`
	Keep   int    `yaml:"keep" mapstructure:"keep"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("BUDGETDB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.path", "budget.db")
	v.SetDefault("load.batch_size", 2000)
	v.SetDefault("load.workers", 4)
	v.SetDefault("load.bulk_mode", true)
	v.SetDefault("reconcile.tolerance_thousands", 100.0)
	v.SetDefault("reconcile.rollup_org", "total")
	v.SetDefault("reconcile.exhibit_pairs", []string{"p-1:p-40", "r-1:r-2", "o-1:o-1a"})
	v.SetDefault("audit.max_listed", 25)
	v.SetDefault("backup.dir", "backups")
	v.SetDefault("backup.prefix", "budgetdb")
	v.SetDefault("backup.keep", 5)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
