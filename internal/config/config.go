// Package config loads application configuration from file and
// environment.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"keyrun/internal/observability"
)

// Config is the full application configuration.
type Config struct {
	Logger  observability.Config `mapstructure:"logger"`
	Engine  EngineConfig         `mapstructure:"engine"`
	API     APIConfig            `mapstructure:"api"`
	Scripts ScriptsConfig        `mapstructure:"scripts"`
}

// EngineConfig tunes script execution.
type EngineConfig struct {
	// KeyHoldMs is how long press and write keep keys held, in
	// milliseconds.
	KeyHoldMs int `mapstructure:"key_hold_ms"`
}

// APIConfig configures the remote trigger HTTP server.
type APIConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
	// Token, when set, is required as a bearer token on every request
	// except the health check.
	Token string `mapstructure:"token"`
}

// ScriptsConfig locates the script file.
type ScriptsConfig struct {
	File string `mapstructure:"file"`
}

// Load reads configuration from cfgFile, or from keyrun.yaml in the
// working directory when cfgFile is empty, with KEYRUN_* environment
// variables taking precedence. A missing config file is not an error;
// defaults apply.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("keyrun")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("KEYRUN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("engine.key_hold_ms", 5)
	v.SetDefault("api.enabled", false)
	v.SetDefault("api.port", 18089)
	v.SetDefault("scripts.file", "scripts.txt")

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}
