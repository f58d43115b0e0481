package config

import (
	"time"

	"github.com/driveos/filecore/pkg/catalog/store"
)

// ApplyDefaults fills in zero values with sensible defaults.
// Called after unmarshaling so partial config files work.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyShutdownTimeoutDefaults(cfg)
	applyDatabaseDefaults(&cfg.Database)
	applyMetricsDefaults(&cfg.Metrics)
	applyEventsDefaults(&cfg.Events)
	cfg.API.ApplyDefaults()
	cfg.Catalog.ApplyDefaults()
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyShutdownTimeoutDefaults(cfg *Config) {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
}

func applyDatabaseDefaults(cfg *store.Config) {
	cfg.ApplyDefaults()
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Port == 0 {
		cfg.Port = 9090
	}
}

func applyEventsDefaults(cfg *EventsConfig) {
	if cfg.Sink == "" {
		cfg.Sink = "log"
	}
	if cfg.Redis.Channel == "" {
		cfg.Redis.Channel = "filecore.events"
	}
}

// GetDefaultConfig returns a configuration with all defaults applied.
// Used when no config file exists, and by 'filecore init'.
func GetDefaultConfig() *Config {
	cfg := &Config{
		Database: store.Config{
			Type: store.DatabaseTypeSQLite,
		},
	}

	ApplyDefaults(cfg)
	return cfg
}
