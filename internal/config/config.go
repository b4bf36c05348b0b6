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
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Pipeline PipelineConfig `yaml:"pipeline" mapstructure:"pipeline"`
	Batch    BatchConfig    `yaml:"batch" mapstructure:"batch"`
	Tracker  TrackerConfig  `yaml:"tracker" mapstructure:"tracker"`
	Notify   NotifyConfig   `yaml:"notify" mapstructure:"notify"`
	CRM      CRMConfig      `yaml:"crm" mapstructure:"crm"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the telemetry store backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // "sqlite" or "postgres"
	Path        string `yaml:"path" mapstructure:"path"`     // sqlite file path
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ServerConfig configures the analysis API server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// PipelineConfig configures orchestrator behavior.
type PipelineConfig struct {
	// PaceMs inserts a presentation delay between pipeline steps so a live
	// stream reads naturally. Ordering never depends on it; keep 0 for tests.
	PaceMs int `yaml:"pace_ms" mapstructure:"pace_ms"`
}

// BatchConfig configures the batch analyze command.
type BatchConfig struct {
	MaxConcurrent int `yaml:"max_concurrent" mapstructure:"max_concurrent"`
}

// TrackerConfig configures the issue-tracker integration.
type TrackerConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Project string `yaml:"project" mapstructure:"project"`
}

// NotifyConfig configures the chat notifier.
type NotifyConfig struct {
	RatePerSec float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// CRMConfig configures the CRM opportunity writer. Provider "mock" synthesizes
// records locally; "salesforce" writes real Opportunity records via JWT auth.
type CRMConfig struct {
	Provider string  `yaml:"provider" mapstructure:"provider"`
	BaseURL  string  `yaml:"base_url" mapstructure:"base_url"`
	ClientID string  `yaml:"client_id" mapstructure:"client_id"`
	Username string  `yaml:"username" mapstructure:"username"`
	KeyPath  string  `yaml:"key_path" mapstructure:"key_path"`
	LoginURL string  `yaml:"login_url" mapstructure:"login_url"`
	RateRPS  float64 `yaml:"rate_rps" mapstructure:"rate_rps"`
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
	v.SetEnvPrefix("SENTINEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "sentinel.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("pipeline.pace_ms", 0)
	v.SetDefault("batch.max_concurrent", 4)
	v.SetDefault("tracker.base_url", "https://tracker.sentinel.local")
	v.SetDefault("tracker.project", "CSRE")
	v.SetDefault("notify.rate_per_sec", 0)
	v.SetDefault("crm.provider", "mock")
	v.SetDefault("crm.base_url", "https://crm.sentinel.local")
	v.SetDefault("crm.login_url", "https://login.salesforce.com")
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

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "sqlite":
		if c.Store.Path == "" {
			return eris.New("config: store.path required for sqlite driver")
		}
	case "postgres":
		if c.Store.DatabaseURL == "" {
			return eris.New("config: store.database_url required for postgres driver")
		}
	default:
		return eris.Errorf("config: unknown store driver %q", c.Store.Driver)
	}

	if c.CRM.Provider == "salesforce" {
		if c.CRM.ClientID == "" || c.CRM.Username == "" || c.CRM.KeyPath == "" {
			return eris.New("config: crm.client_id, crm.username, and crm.key_path required for salesforce provider")
		}
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
