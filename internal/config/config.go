// Package config loads corpus-cli settings from config.yaml and CORPUS_*
// environment variables and installs the global logger.
package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Datasets  []DatasetConfig `yaml:"datasets" mapstructure:"datasets"`
	Ingest    IngestConfig    `yaml:"ingest" mapstructure:"ingest"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Export    ExportConfig    `yaml:"export" mapstructure:"export"`
	Serp      SerpConfig      `yaml:"serp" mapstructure:"serp"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// DatasetConfig names a directory of subdomain files and the adapter that
// shapes them.
type DatasetConfig struct {
	Name    string `yaml:"name" mapstructure:"name"`
	Dir     string `yaml:"dir" mapstructure:"dir"`
	Adapter string `yaml:"adapter" mapstructure:"adapter"`
	Pattern string `yaml:"pattern" mapstructure:"pattern"`
}

// IngestConfig configures the ingestion engine.
type IngestConfig struct {
	Workers       int    `yaml:"workers" mapstructure:"workers"`
	IDMode        string `yaml:"id_mode" mapstructure:"id_mode"`
	KeyMode       string `yaml:"key_mode" mapstructure:"key_mode"`
	Separator     string `yaml:"separator" mapstructure:"separator"`
	ReservedField string `yaml:"reserved_field" mapstructure:"reserved_field"`
}

// StoreConfig configures the database backend results are saved to.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ExportConfig configures file exports.
type ExportConfig struct {
	XLSXPath     string `yaml:"xlsx_path" mapstructure:"xlsx_path"`
	SchemaFormat string `yaml:"schema_format" mapstructure:"schema_format"`
}

// SerpConfig holds SerpAPI search settings. Locale and device hints are
// passed to the API unmodified.
type SerpConfig struct {
	Key          string  `yaml:"key" mapstructure:"key"`
	BaseURL      string  `yaml:"base_url" mapstructure:"base_url"`
	ResultCount  int     `yaml:"result_count" mapstructure:"result_count"`
	Engine       string  `yaml:"engine" mapstructure:"engine"`
	GoogleDomain string  `yaml:"google_domain" mapstructure:"google_domain"`
	HL           string  `yaml:"hl" mapstructure:"hl"`
	GL           string  `yaml:"gl" mapstructure:"gl"`
	Device       string  `yaml:"device" mapstructure:"device"`
	RatePerSec   float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// AnthropicConfig holds Anthropic API settings for the completion tool.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// ServerConfig configures the HTTP browser.
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
	v.SetEnvPrefix("CORPUS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("ingest.workers", 1)
	v.SetDefault("ingest.id_mode", "stable")
	v.SetDefault("ingest.key_mode", "short")
	v.SetDefault("ingest.separator", "_")
	v.SetDefault("ingest.reserved_field", "specification")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "corpus.db")
	v.SetDefault("export.xlsx_path", "corpus.xlsx")
	v.SetDefault("export.schema_format", "text")
	v.SetDefault("serp.base_url", "https://serpapi.com")
	v.SetDefault("serp.result_count", 15)
	v.SetDefault("serp.engine", "google")
	v.SetDefault("serp.google_domain", "google.com")
	v.SetDefault("serp.hl", "en")
	v.SetDefault("serp.gl", "us")
	v.SetDefault("serp.device", "desktop")
	v.SetDefault("serp.rate_per_sec", 1.0)
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 1024)
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

// Validate checks the settings a command mode depends on. Valid modes are
// "ingest", "store", "serve" and "search".
func (c *Config) Validate(mode string) error {
	var errs []string
	switch mode {
	case "ingest":
		errs = append(errs, c.validateIngest()...)
	case "store":
		errs = append(errs, c.validateIngest()...)
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required")
		}
		if c.Store.Driver != "sqlite" && c.Store.Driver != "postgres" {
			errs = append(errs, "store.driver must be sqlite or postgres")
		}
	case "serve":
		errs = append(errs, c.validateIngest()...)
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
	case "search":
		if c.Serp.Key == "" {
			errs = append(errs, "serp.key is required")
		}
		if c.Serp.ResultCount < 1 || c.Serp.ResultCount > 100 {
			errs = append(errs, "serp.result_count must be between 1 and 100")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateIngest() []string {
	var errs []string
	if len(c.Datasets) == 0 {
		errs = append(errs, "at least one dataset is required")
	}
	seen := make(map[string]bool, len(c.Datasets))
	for i, ds := range c.Datasets {
		if ds.Name == "" {
			errs = append(errs, fmt.Sprintf("datasets[%d].name is required", i))
			continue
		}
		if ds.Dir == "" {
			errs = append(errs, fmt.Sprintf("dataset %q: dir is required", ds.Name))
		}
		if seen[ds.Name] {
			errs = append(errs, fmt.Sprintf("dataset %q is defined twice", ds.Name))
		}
		seen[ds.Name] = true
	}
	if c.Ingest.Workers < 1 || c.Ingest.Workers > 64 {
		errs = append(errs, "ingest.workers must be between 1 and 64")
	}
	return errs
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
