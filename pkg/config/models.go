package config

import "time"

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Transport TransportConfig `mapstructure:"transport"`
	Presence  PresenceConfig  `mapstructure:"presence"`
	Health    HealthConfig    `mapstructure:"health"`
	Search    SearchConfig    `mapstructure:"search"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Directory DirectoryConfig `mapstructure:"directory"`
	Bridge    BridgeConfig    `mapstructure:"bridge"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

type ServerConfig struct {
	Address         string                `mapstructure:"address"`
	Name            string                `mapstructure:"name"` // server identity reported on /status
	AllowedOrigins  []string              `mapstructure:"allowedOrigins"`
	Auth            AuthConfig            `mapstructure:"auth"`
	ConnectionLimit ConnectionLimitConfig `mapstructure:"connectionLimit"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwtSecret"`
	Timeout   time.Duration `mapstructure:"timeout"` // bound on the session-store lookup
}

type ConnectionLimitConfig struct {
	MaxPerIdentity int    `mapstructure:"maxPerIdentity"`
	Mode           string `mapstructure:"mode"` // "reject" or "cycle"
}

type TransportConfig struct {
	ReadTimeout  time.Duration `mapstructure:"readTimeout"`
	PingInterval time.Duration `mapstructure:"pingInterval"` // advisory, sent to clients
	SendBuffer   int           `mapstructure:"sendBuffer"`
}

type PresenceConfig struct {
	StaleAfter time.Duration `mapstructure:"staleAfter"`
}

type HealthConfig struct {
	Interval      time.Duration `mapstructure:"interval"`
	PingThreshold PingThreshold `mapstructure:"pingThreshold"`
}

type PingThreshold struct {
	DegradedMs  int64 `mapstructure:"degradedMs"`
	UnhealthyMs int64 `mapstructure:"unhealthyMs"`
}

type SearchConfig struct {
	MinQueryLength int `mapstructure:"minQueryLength"`
	PerTypeLimit   int `mapstructure:"perTypeLimit"`
	TotalLimit     int `mapstructure:"totalLimit"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type DirectoryConfig struct {
	DSN string `mapstructure:"dsn"` // sqlite path or ":memory:"
}

type BridgeConfig struct {
	NATSUrl string `mapstructure:"natsUrl"` // empty disables the cross-instance bridge
}

type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Structured bool   `mapstructure:"structured"`
}
