package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/concordnow/concord-export/internal/store"
)

// Config holds the full application configuration.
type Config struct {
	API    APIConfig    `yaml:"api" mapstructure:"api"`
	Export ExportConfig `yaml:"export" mapstructure:"export"`
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// APIConfig holds Concord API credentials and endpoints.
type APIConfig struct {
	Key            string  `yaml:"key" mapstructure:"key"`
	BaseURL        string  `yaml:"base_url" mapstructure:"base_url"`
	AppBaseURL     string  `yaml:"app_base_url" mapstructure:"app_base_url"`
	OrganizationID string  `yaml:"organization_id" mapstructure:"organization_id"`
	RateLimit      float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	RateBurst      int     `yaml:"rate_burst" mapstructure:"rate_burst"`
}

// ExportConfig tunes the export pipeline.
type ExportConfig struct {
	PageSize    int    `yaml:"page_size" mapstructure:"page_size"`
	MaxPages    int    `yaml:"max_pages" mapstructure:"max_pages"`
	Concurrency int    `yaml:"concurrency" mapstructure:"concurrency"`
	Format      string `yaml:"format" mapstructure:"format"`
}

// StoreConfig configures the run-ledger backend.
type StoreConfig struct {
	Driver      string           `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string           `yaml:"database_url" mapstructure:"database_url"`
	Pool        store.PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// ServerConfig configures the HTTP trigger server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from ./config.yaml (optional) and CONCORD_* env vars.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("CONCORD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only resolves keys viper already knows about, and the
	// credentials have no default. Bind them so CONCORD_API_KEY and
	// CONCORD_API_ORGANIZATION_ID work without a config file.
	for _, key := range []string{"api.key", "api.organization_id"} {
		if err := v.BindEnv(key); err != nil {
			return nil, eris.Wrapf(err, "config: bind env %s", key)
		}
	}

	v.SetDefault("api.base_url", "https://api.concordnow.com")
	v.SetDefault("api.app_base_url", "https://secure.concordnow.com")
	v.SetDefault("api.rate_limit", 10.0)
	v.SetDefault("api.rate_burst", 10)
	v.SetDefault("export.page_size", 5000)
	v.SetDefault("export.max_pages", 1000)
	v.SetDefault("export.concurrency", 1)
	v.SetDefault("export.format", "csv")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "concord-export.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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

// RequireAPIKey fails with guidance when no API key is configured.
func (c *Config) RequireAPIKey() error {
	if c.API.Key == "" {
		return eris.New("config: no API key configured; set CONCORD_API_KEY or api.key in config.yaml (generate one at https://secure.concordnow.com/#/automations/integrations)")
	}
	return nil
}

// RequireOrganization fails with guidance when no organization id is
// configured. The approval workflow targets a single organization.
func (c *Config) RequireOrganization() error {
	if c.API.OrganizationID == "" {
		return eris.New("config: no organization id configured; set CONCORD_API_ORGANIZATION_ID or api.organization_id in config.yaml")
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
