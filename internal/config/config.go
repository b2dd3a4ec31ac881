// Package config loads application configuration from file and
// environment and initializes the global logger.
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
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Census   CensusConfig   `yaml:"census" mapstructure:"census"`
	Tiger    TigerConfig    `yaml:"tiger" mapstructure:"tiger"`
	Analysis AnalysisConfig `yaml:"analysis" mapstructure:"analysis"`
	Output   OutputConfig   `yaml:"output" mapstructure:"output"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the run-record database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`             // sqlite or postgres
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"` // DSN, or file path for sqlite
}

// CensusConfig holds ACS API settings.
type CensusConfig struct {
	APIKey     string   `yaml:"api_key" mapstructure:"api_key"`
	Year       int      `yaml:"year" mapstructure:"year"`
	Dataset    string   `yaml:"dataset" mapstructure:"dataset"`
	EventVars  []string `yaml:"event_vars" mapstructure:"event_vars"`
	PopVar     string   `yaml:"pop_var" mapstructure:"pop_var"`
	MaxRetries int      `yaml:"max_retries" mapstructure:"max_retries"`
}

// TigerConfig configures TIGER/Line shapefile acquisition.
type TigerConfig struct {
	Year        int    `yaml:"year" mapstructure:"year"`
	TempDir     string `yaml:"temp_dir" mapstructure:"temp_dir"`
	Concurrency int    `yaml:"concurrency" mapstructure:"concurrency"`
}

// AnalysisConfig holds default analysis parameters.
type AnalysisConfig struct {
	Permutations int     `yaml:"permutations" mapstructure:"permutations"`
	Seed         int64   `yaml:"seed" mapstructure:"seed"`
	Alpha        float64 `yaml:"alpha" mapstructure:"alpha"`
	EBAdjusted   bool    `yaml:"eb_adjusted" mapstructure:"eb_adjusted"`
	Workers      int     `yaml:"workers" mapstructure:"workers"`
}

// OutputConfig configures result artifact locations.
type OutputConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// ServerConfig configures the results server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
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
	v.SetEnvPrefix("LISA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "lisa.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("census.year", 2022)
	v.SetDefault("census.dataset", "acs/acs5")
	v.SetDefault("census.max_retries", 3)
	// B25070: gross rent as a percentage of household income. The 007-010
	// brackets cover households paying 30% or more; 001 is the universe.
	v.SetDefault("census.event_vars", []string{
		"B25070_007E", "B25070_008E", "B25070_009E", "B25070_010E",
	})
	v.SetDefault("census.pop_var", "B25070_001E")
	v.SetDefault("tiger.year", 2024)
	v.SetDefault("tiger.temp_dir", "/tmp/tiger")
	v.SetDefault("tiger.concurrency", 3)
	v.SetDefault("analysis.permutations", 999)
	v.SetDefault("analysis.seed", 42)
	v.SetDefault("analysis.alpha", 0.05)
	v.SetDefault("analysis.eb_adjusted", false)
	v.SetDefault("output.dir", "out")

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
