// Package config loads tfdigest settings from a YAML file and the
// environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Report  ReportConfig  `mapstructure:"report"`
	History HistoryConfig `mapstructure:"history"`
	Notify  NotifyConfig  `mapstructure:"notify"`
	Server  ServerConfig  `mapstructure:"server"`
}

type ReportConfig struct {
	// Limit bounds the categorized address lists: -1 hides them, 0 shows
	// everything, N truncates after N entries.
	Limit         int    `mapstructure:"limit"`
	GroupByModule bool   `mapstructure:"group_by_module"`
	Detail        bool   `mapstructure:"detail"`
	Alphabetical  bool   `mapstructure:"alphabetical"`
	Color         bool   `mapstructure:"color"`
	Output        string `mapstructure:"output"`
}

type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
	// RetentionDays of 0 keeps runs forever.
	RetentionDays int    `mapstructure:"retention_days"`
	PruneInterval string `mapstructure:"prune_interval"`
}

type NotifyConfig struct {
	Stdout  StdoutConfig  `mapstructure:"stdout"`
	Webhook WebhookConfig `mapstructure:"webhook"`
}

type StdoutConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type WebhookConfig struct {
	Enabled bool              `mapstructure:"enabled"`
	URL     string            `mapstructure:"url"`
	Headers map[string]string `mapstructure:"headers"`
}

type ServerConfig struct {
	Listen     string `mapstructure:"listen"`
	ReadOnly   bool   `mapstructure:"read_only"`
	APIToken   string `mapstructure:"api_token"`
	CORSOrigin string `mapstructure:"cors_origin"`
}

// Load reads the configuration from file and environment variables.
// Secret-bearing fields (API token, webhook headers) support ${VAR}
// expansion.
func Load(cfgFile string) (*Config, error) {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".tfdigest"))
		}
		viper.AddConfigPath(".")
		viper.SetConfigName("tfdigest")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("TFDIGEST")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Defaults
	viper.SetDefault("report.limit", -1)
	viper.SetDefault("report.group_by_module", false)
	viper.SetDefault("report.detail", false)
	viper.SetDefault("report.alphabetical", false)
	viper.SetDefault("report.color", true)
	viper.SetDefault("report.output", "text")
	viper.SetDefault("history.enabled", false)
	viper.SetDefault("history.path", "./data/tfdigest.db")
	viper.SetDefault("history.retention_days", 0)
	viper.SetDefault("history.prune_interval", "24h")
	viper.SetDefault("notify.stdout.enabled", false)
	viper.SetDefault("notify.webhook.enabled", false)
	// Empty-string defaults keep these keys reachable via env override.
	viper.SetDefault("notify.webhook.url", "")
	viper.SetDefault("server.listen", ":8080")
	viper.SetDefault("server.read_only", false)
	viper.SetDefault("server.api_token", "")
	viper.SetDefault("server.cors_origin", "*")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Server.APIToken = os.ExpandEnv(cfg.Server.APIToken)
	for k, v := range cfg.Notify.Webhook.Headers {
		cfg.Notify.Webhook.Headers[k] = os.ExpandEnv(v)
	}

	return &cfg, nil
}
