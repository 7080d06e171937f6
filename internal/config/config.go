package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/dvloznov/recon-engine/internal/engine"
)

// Config is the file-level application configuration: engine settings plus
// orchestrator options.
type Config struct {
	Settings engine.Settings `mapstructure:"settings"`
	Bulk     BulkConfig      `mapstructure:"bulk"`
}

// BulkConfig holds orchestrator options.
type BulkConfig struct {
	// Workers bounds job concurrency; 0 means one worker per core.
	Workers int `mapstructure:"workers"`
}

// Load reads configuration from an optional TOML file plus RECON_*
// environment overrides. An empty path yields defaults. The returned
// settings are already validated.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("RECON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := engine.DefaultSettings()
	v.SetDefault("settings.possible_threshold", defaults.PossibleThreshold)
	v.SetDefault("settings.definite_threshold", defaults.DefiniteThreshold)
	v.SetDefault("settings.amount_tolerance_cents", defaults.AmountToleranceCents)
	v.SetDefault("settings.date_window_days", defaults.DateWindowDays)
	v.SetDefault("settings.weights.amount", defaults.Weights.Amount)
	v.SetDefault("settings.weights.date", defaults.Weights.Date)
	v.SetDefault("settings.weights.description", defaults.Weights.Description)
	v.SetDefault("settings.weights.identifier", defaults.Weights.Identifier)
	v.SetDefault("settings.cluster_policy", string(defaults.ClusterPolicy))
	v.SetDefault("bulk.workers", 0)

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Settings.Validate(); err != nil {
		return nil, err
	}
	if config.Bulk.Workers < 0 {
		return nil, fmt.Errorf("bulk workers must be non-negative, got %d", config.Bulk.Workers)
	}

	return &config, nil
}
