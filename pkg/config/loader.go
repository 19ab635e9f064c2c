package config

import (
	"log/slog"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from a YAML file and environment variables.
func Load(logger *slog.Logger, fileName string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.address", ":4000")
	v.SetDefault("server.name", "presenced")
	v.SetDefault("server.allowedOrigins", []string{"localhost:3000"})
	v.SetDefault("server.auth.jwtSecret", "default-secret-key-change-me")
	v.SetDefault("server.auth.timeout", "5s")
	v.SetDefault("server.connectionLimit.maxPerIdentity", 5)
	v.SetDefault("server.connectionLimit.mode", "cycle")
	v.SetDefault("transport.readTimeout", "60s")
	v.SetDefault("transport.pingInterval", "25s")
	v.SetDefault("transport.sendBuffer", 256)
	v.SetDefault("presence.staleAfter", "5m")
	v.SetDefault("health.interval", "30s")
	v.SetDefault("health.pingThreshold.degradedMs", 2000)
	v.SetDefault("health.pingThreshold.unhealthyMs", 5000)
	v.SetDefault("search.minQueryLength", 2)
	v.SetDefault("search.perTypeLimit", 5)
	v.SetDefault("search.totalLimit", 10)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("directory.dsn", "careerbox.db")
	v.SetDefault("bridge.natsUrl", "")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.structured", true)

	v.SetConfigName(fileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("PRESENCED")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		logger.Warn("config file not found, relying on defaults and env vars")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
