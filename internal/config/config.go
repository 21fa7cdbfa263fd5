package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	ShutdownTimeout string `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`

	Server   ServerConfig   `mapstructure:"server"   yaml:"server"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Storage  StorageConfig  `mapstructure:"storage"  yaml:"storage"`
	Auth     AuthConfig     `mapstructure:"auth"     yaml:"auth"`
	Log      LogConfig      `mapstructure:"log"      yaml:"log"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

type StorageConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir"`
	// QuotaBytes is the per-user storage limit reported by the quota
	// endpoint. It is advisory; uploads are not rejected against it.
	QuotaBytes int64 `mapstructure:"quota_bytes" yaml:"quota_bytes"`
}

type AuthConfig struct {
	// Secret signs access tokens. Set VRIL_AUTH_SECRET in production;
	// the default exists so a bare `vril serve` works locally.
	Secret   string `mapstructure:"secret"    yaml:"secret"`
	TokenTTL string `mapstructure:"token_ttl" yaml:"token_ttl"`
}

// Load unmarshals the already-initialized viper state into a Config.
func Load() (*Config, error) {
	cfg := &Config{}

	setDefaults()

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return cfg, nil
}
