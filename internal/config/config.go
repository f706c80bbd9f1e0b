package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all AquaSentry configuration.
type Config struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
	Dispatch DispatchConfig `mapstructure:"dispatch"`
	Store    StoreConfig    `mapstructure:"store"`
	History  HistoryConfig  `mapstructure:"history"`
	Server   ServerConfig   `mapstructure:"server"`
	Glossary GlossaryConfig `mapstructure:"glossary"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// TelegramConfig defines the messaging channel credential and endpoints.
type TelegramConfig struct {
	Token       string `mapstructure:"token"`
	APIBase     string `mapstructure:"api_base"`
	PollTimeout string `mapstructure:"poll_timeout"`
}

// DispatchConfig bounds the outbound alert call.
type DispatchConfig struct {
	Timeout string `mapstructure:"timeout"`
}

// StoreConfig locates the shared state directory.
type StoreConfig struct {
	Dir string `mapstructure:"dir"`
}

// HistoryConfig locates the alert audit database.
type HistoryConfig struct {
	Path string `mapstructure:"path"`
}

// ServerConfig defines the evaluation API settings.
type ServerConfig struct {
	Listen       string `mapstructure:"listen"`
	ReadTimeout  string `mapstructure:"read_timeout"`
	WriteTimeout string `mapstructure:"write_timeout"`
}

// GlossaryConfig points at an optional parameter-definition override file.
type GlossaryConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("find home directory: %w", err)
		}

		v.AddConfigPath(filepath.Join(home, ".aquasentry"))
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	// Defaults
	home, _ := os.UserHomeDir()
	v.SetDefault("telegram.api_base", "https://api.telegram.org")
	v.SetDefault("telegram.poll_timeout", "30s")
	v.SetDefault("dispatch.timeout", "10s")
	v.SetDefault("store.dir", filepath.Join(home, ".aquasentry", "state"))
	v.SetDefault("history.path", filepath.Join(home, ".aquasentry", "history.db"))
	v.SetDefault("server.listen", ":8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Environment variables
	v.SetEnvPrefix("AQUASENTRY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}
