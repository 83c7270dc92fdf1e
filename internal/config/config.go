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
	Ingest    IngestConfig    `yaml:"ingest" mapstructure:"ingest"`
	SMTP      SMTPConfig      `yaml:"smtp" mapstructure:"smtp"`
	Webhook   WebhookConfig   `yaml:"webhook" mapstructure:"webhook"`
	Scheduler SchedulerConfig `yaml:"scheduler" mapstructure:"scheduler"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// IngestConfig configures archive locations and member-file mapping.
type IngestConfig struct {
	IncomingDir string `yaml:"incoming_dir" mapstructure:"incoming_dir"`
	OutputDir   string `yaml:"output_dir" mapstructure:"output_dir"`
	ArchiveDir  string `yaml:"archive_dir" mapstructure:"archive_dir"`
	// MappingFile optionally overrides the built-in table-to-member mapping.
	MappingFile string `yaml:"mapping_file" mapstructure:"mapping_file"`
}

// SMTPConfig configures email delivery of run results.
type SMTPConfig struct {
	Host       string   `yaml:"host" mapstructure:"host"`
	Port       int      `yaml:"port" mapstructure:"port"`
	Username   string   `yaml:"username" mapstructure:"username"`
	Password   string   `yaml:"password" mapstructure:"password"`
	From       string   `yaml:"from" mapstructure:"from"`
	Recipients []string `yaml:"recipients" mapstructure:"recipients"`
}

// WebhookConfig configures webhook notification delivery.
type WebhookConfig struct {
	URL string `yaml:"url" mapstructure:"url"`
	// RatePerMinute bounds outgoing webhook posts.
	RatePerMinute int `yaml:"rate_per_minute" mapstructure:"rate_per_minute"`
}

// SchedulerConfig configures scheduled ingestion.
type SchedulerConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Cron    string `yaml:"cron" mapstructure:"cron"`
}

// ServerConfig configures the status API server.
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
	v.SetEnvPrefix("LINKEDIN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "linkedin.db")
	v.SetDefault("ingest.incoming_dir", "data/incoming")
	v.SetDefault("ingest.output_dir", "data/output")
	v.SetDefault("ingest.archive_dir", "data/archive")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("webhook.rate_per_minute", 30)
	v.SetDefault("scheduler.enabled", false)
	v.SetDefault("scheduler.cron", "0 2 * * *")
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
