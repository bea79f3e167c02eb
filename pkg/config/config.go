package config

// Package config provides a reusable loader for FuelVM node configuration
// files and environment variables. It is versioned so that applications can
// depend on a stable API contract.
//
// Version: v0.1.0

import (
	"fmt"

	"github.com/spf13/viper"

	"fuelvm/pkg/utils"
)

// Version is the semantic version of this configuration package.
const Version = "v0.1.0"

// Config represents the unified configuration for a FuelVM execution node.
// It mirrors the structure of the YAML files under cmd/config.
type Config struct {
	Consensus struct {
		ChainID         uint64 `mapstructure:"chain_id" json:"chain_id"`
		MaxScriptLength uint64 `mapstructure:"max_script_length" json:"max_script_length"`
		MaxScriptData   uint64 `mapstructure:"max_script_data_length" json:"max_script_data_length"`
		MaxInstructions uint64 `mapstructure:"max_instructions" json:"max_instructions"`
	} `mapstructure:"consensus" json:"consensus"`

	Gas struct {
		GasPriceFactor uint64            `mapstructure:"gas_price_factor" json:"gas_price_factor"`
		MaxGasPerTx    uint64            `mapstructure:"max_gas_per_tx" json:"max_gas_per_tx"`
		Overrides      map[string]uint64 `mapstructure:"overrides" json:"overrides"`
	} `mapstructure:"gas" json:"gas"`

	VM struct {
		MemoryPages  uint64 `mapstructure:"memory_pages" json:"memory_pages"`
		ProfileRun   bool   `mapstructure:"profile_run" json:"profile_run"`
		WrappingMath bool   `mapstructure:"wrapping_math" json:"wrapping_math"`
	} `mapstructure:"vm" json:"vm"`

	Logging struct {
		Level string `mapstructure:"level" json:"level"`
		File  string `mapstructure:"file" json:"file"`
	} `mapstructure:"logging" json:"logging"`
}

// AppConfig holds the configuration loaded via Load or LoadFromEnv.
var AppConfig Config

// Load reads configuration files and merges any environment specific
// overrides. The resulting configuration is stored in AppConfig and returned.
//
// The function uses the provided environment name to merge additional config
// files. If env is empty, only the default configuration is loaded.
func Load(env string) (*Config, error) {
	viper.SetConfigName("default")
	viper.AddConfigPath("cmd/config")
	viper.AddConfigPath("config")
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		return nil, utils.Wrap(err, "load config")
	}

	if env != "" {
		viper.SetConfigName(env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, utils.Wrap(err, fmt.Sprintf("merge %s config", env))
		}
	}

	viper.AutomaticEnv() // picks up from .env

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return nil, utils.Wrap(err, "unmarshal config")
	}
	return &AppConfig, nil
}

// LoadFromEnv loads configuration using the FUEL_ENV environment variable.
func LoadFromEnv() (*Config, error) {
	return Load(utils.EnvOrDefault("FUEL_ENV", ""))
}
