// Package config loads application configuration from file and environment.
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
	Data       DataConfig       `yaml:"data" mapstructure:"data"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Context    ContextConfig    `yaml:"context" mapstructure:"context"`
	Fetch      FetchConfig      `yaml:"fetch" mapstructure:"fetch"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// DataConfig locates the static datasets loaded at startup.
type DataConfig struct {
	GrantsPath    string `yaml:"grants_path" mapstructure:"grants_path"`
	FinancialPath string `yaml:"financial_path" mapstructure:"financial_path"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key         string  `yaml:"key" mapstructure:"key"`
	Model       string  `yaml:"model" mapstructure:"model"`
	MaxTokens   int64   `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float64 `yaml:"temperature" mapstructure:"temperature"`
}

// ContextConfig bounds prompt assembly.
type ContextConfig struct {
	MaxGrants         int  `yaml:"max_grants" mapstructure:"max_grants"`
	MaxHistoryTurns   int  `yaml:"max_history_turns" mapstructure:"max_history_turns"`
	MaxFetchedContent int  `yaml:"max_fetched_content" mapstructure:"max_fetched_content"`
	FinancialEnabled  bool `yaml:"financial_enabled" mapstructure:"financial_enabled"`
}

// FetchConfig configures the web content fetcher.
type FetchConfig struct {
	TimeoutSecs int `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// StoreConfig configures transcript persistence. Driver is "sqlite",
// "postgres", or "none".
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Path        string `yaml:"path" mapstructure:"path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the HTTP server.
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
	v.SetEnvPrefix("GRANTS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("data.grants_path", "data/independent_school_district_grants.json")
	v.SetDefault("data.financial_path", "data/simulated_financial_data.json")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 800)
	v.SetDefault("anthropic.temperature", 0.5)
	v.SetDefault("context.max_grants", 5)
	v.SetDefault("context.max_history_turns", 10)
	v.SetDefault("context.max_fetched_content", 4000)
	v.SetDefault("context.financial_enabled", true)
	v.SetDefault("fetch.timeout_secs", 15)
	v.SetDefault("store.driver", "none")
	v.SetDefault("store.path", "data/transcripts.db")
	v.SetDefault("server.port", 8080)
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

// Validate checks the configuration for the given run mode. Modes that
// serve questions ("serve", "ask") need the context and fetch bounds;
// "ingest" only touches the filesystem.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch mode {
	case "serve", "ask":
		if c.Context.MaxGrants < 1 {
			problems = append(problems, "context.max_grants must be >= 1")
		}
		if c.Context.MaxHistoryTurns < 1 {
			problems = append(problems, "context.max_history_turns must be >= 1")
		}
		if c.Context.MaxFetchedContent < 1 {
			problems = append(problems, "context.max_fetched_content must be >= 1")
		}
		if c.Fetch.TimeoutSecs < 1 {
			problems = append(problems, "fetch.timeout_secs must be >= 1")
		}
		switch c.Store.Driver {
		case "none", "sqlite", "postgres":
		default:
			problems = append(problems, "store.driver must be none, sqlite, or postgres")
		}
		if c.Store.Driver == "postgres" && c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required for the postgres driver")
		}
		if mode == "serve" && c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
	case "ingest":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
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
