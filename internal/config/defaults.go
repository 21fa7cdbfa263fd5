package config

import "github.com/spf13/viper"

func GetDefault() Config {
	return Config{
		ShutdownTimeout: "10s",

		Server: ServerConfig{
			Addr: ":8080",
		},
		Database: DatabaseConfig{
			Path: "vril.db",
		},
		Storage: StorageConfig{
			Dir:        "uploads",
			QuotaBytes: 15 * 1024 * 1024 * 1024,
		},
		Auth: AuthConfig{
			Secret:   "dev-insecure-secret",
			TokenTTL: "24h",
		},
		Log: LogConfig{
			Level:      "INFO",
			TimeFormat: "2006-01-02 15:04:05",
			File:       "",
			NoColor:    false,
			JSON:       false,
			NoTerminal: false,
			Rotation: LogRotationConfig{
				MaxSize:    128,
				MaxBackups: 5,
				MaxAge:     16,
				Compress:   false,
			},
		},
	}
}

func setDefaults() {
	defaults := GetDefault()

	viper.SetDefault("shutdown_timeout", defaults.ShutdownTimeout)

	viper.SetDefault("server.addr", defaults.Server.Addr)
	viper.SetDefault("database.path", defaults.Database.Path)
	viper.SetDefault("storage.dir", defaults.Storage.Dir)
	viper.SetDefault("storage.quota_bytes", defaults.Storage.QuotaBytes)
	viper.SetDefault("auth.secret", defaults.Auth.Secret)
	viper.SetDefault("auth.token_ttl", defaults.Auth.TokenTTL)

	viper.SetDefault("log.level", defaults.Log.Level)
	viper.SetDefault("log.time_format", defaults.Log.TimeFormat)
	viper.SetDefault("log.file", defaults.Log.File)
	viper.SetDefault("log.no_color", defaults.Log.NoColor)
	viper.SetDefault("log.json", defaults.Log.JSON)
	viper.SetDefault("log.no_terminal", defaults.Log.NoTerminal)
	viper.SetDefault("log.rotation.max_size", defaults.Log.Rotation.MaxSize)
	viper.SetDefault("log.rotation.max_backups", defaults.Log.Rotation.MaxBackups)
	viper.SetDefault("log.rotation.max_age", defaults.Log.Rotation.MaxAge)
	viper.SetDefault("log.rotation.compress", defaults.Log.Rotation.Compress)
}
