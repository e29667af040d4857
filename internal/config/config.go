package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Database DatabaseConfig
	Feed     FeedConfig
	UI       UIConfig
}

// DatabaseConfig holds sqlite settings.
type DatabaseConfig struct {
	Path string
}

// FeedConfig holds aggregation provider settings. The API secret is never
// stored in the config file; SecretEnv names the environment variable that
// carries it.
type FeedConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	ClientID  string `mapstructure:"client_id"`
	SecretEnv string `mapstructure:"secret_env"`
}

// Secret resolves the feed API secret from the environment.
func (f FeedConfig) Secret() string {
	return os.Getenv(f.SecretEnv)
}

// UIConfig holds presentation settings.
type UIConfig struct {
	DateFormat     string `mapstructure:"date_format"`
	CurrencySymbol string `mapstructure:"currency_symbol"`
	Timezone       string
}

// Load reads configuration from file and env. Env var overrides use prefix ENVELOPES_.
func Load() (Config, error) {
	v := viper.New()

	// default values
	v.SetDefault("database.path", filepath.Join(os.Getenv("HOME"), ".local", "share", "envelopes", "envelopes.db"))
	v.SetDefault("feed.base_url", "https://sandbox.plaid.com")
	v.SetDefault("feed.client_id", "")
	v.SetDefault("feed.secret_env", "ENVELOPES_FEED_SECRET")
	v.SetDefault("ui.date_format", "02/01")
	v.SetDefault("ui.currency_symbol", "$")
	v.SetDefault("ui.timezone", "Australia/Melbourne")

	v.SetConfigType("toml")

	cfgPath := os.Getenv("ENVELOPES_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "envelopes"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("ENVELOPES")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// read config file if present
	_ = v.ReadInConfig()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}

// Save writes the provided config to disk, creating the config directory if needed.
func Save(cfg Config) error {
	path := os.Getenv("ENVELOPES_CONFIG")
	if path == "" {
		path = filepath.Join(os.Getenv("HOME"), ".config", "envelopes", "config.toml")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.Set("database.path", cfg.Database.Path)
	v.Set("feed.base_url", cfg.Feed.BaseURL)
	v.Set("feed.client_id", cfg.Feed.ClientID)
	v.Set("feed.secret_env", cfg.Feed.SecretEnv)
	v.Set("ui.date_format", cfg.UI.DateFormat)
	v.Set("ui.currency_symbol", cfg.UI.CurrencySymbol)
	v.Set("ui.timezone", cfg.UI.Timezone)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
