package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config is the full application configuration, loaded from .env and
// environment variables.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Ledger   LedgerConfig
	Stats    StatsConfig
	Auth     AuthConfig
	LogLevel string
}

type ServerConfig struct {
	Port            string
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	// EntryTTL bounds how stale a cached user/project row may get.
	EntryTTL time.Duration
}

type LedgerConfig struct {
	BaseURL string
	APIKey  string
	// Timeout applies per gateway call. There is no automatic retry: a
	// transfer that times out marks the bill FAILED.
	Timeout time.Duration
}

type StatsConfig struct {
	UpdateInterval time.Duration
}

type AuthConfig struct {
	JWTSecret   string
	JWTExpiry   time.Duration
	APIKeySalt  string
	Argon2Time  uint32
	Argon2MemKB uint32
}

// Load reads .env (when present), applies environment overrides and defaults,
// and returns the typed configuration.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")
	viper.AutomaticEnv()

	// Missing .env is fine; env vars alone are a full configuration.
	_ = viper.ReadInConfig()

	bindings := map[string]string{
		"server.port":             "PORT",
		"server.shutdown_timeout": "SHUTDOWN_TIMEOUT",
		"database.host":           "DATABASE_HOST",
		"database.port":           "DATABASE_PORT",
		"database.user":           "DATABASE_USER",
		"database.password":       "DATABASE_PASSWORD",
		"database.name":           "DATABASE_NAME",
		"database.ssl_mode":       "DATABASE_SSL_MODE",
		"redis.host":              "REDIS_HOST",
		"redis.port":              "REDIS_PORT",
		"redis.password":          "REDIS_PASSWORD",
		"redis.db":                "REDIS_DB",
		"redis.entry_ttl":         "REDIS_ENTRY_TTL",
		"ledger.base_url":         "LEDGER_BASE_URL",
		"ledger.api_key":          "LEDGER_API_KEY",
		"ledger.timeout":          "LEDGER_TIMEOUT",
		"stats.update_interval":   "STATS_UPDATE_INTERVAL",
		"auth.jwt_secret":         "JWT_SECRET_KEY",
		"auth.jwt_expiry":         "JWT_EXPIRY",
		"auth.api_key_salt":       "API_KEY_SALT",
		"log.level":               "LOG_LEVEL",
	}
	for key, env := range bindings {
		if err := viper.BindEnv(key, env); err != nil {
			return nil, err
		}
	}

	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.shutdown_timeout", 30*time.Second)

	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", "5432")
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "password")
	viper.SetDefault("database.name", "campusmint")
	viper.SetDefault("database.ssl_mode", "disable")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", "6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.entry_ttl", 5*time.Minute)

	viper.SetDefault("ledger.base_url", "http://localhost:9090")
	viper.SetDefault("ledger.timeout", 10*time.Second)

	viper.SetDefault("stats.update_interval", 5*time.Minute)

	viper.SetDefault("auth.jwt_expiry", 24*time.Hour)
	viper.SetDefault("auth.argon2_time", 3)
	viper.SetDefault("auth.argon2_mem_kb", 64*1024)

	viper.SetDefault("log.level", "info")

	return &Config{
		Server: ServerConfig{
			Port:            viper.GetString("server.port"),
			ShutdownTimeout: viper.GetDuration("server.shutdown_timeout"),
		},
		Database: DatabaseConfig{
			Host:            viper.GetString("database.host"),
			Port:            viper.GetString("database.port"),
			User:            viper.GetString("database.user"),
			Password:        viper.GetString("database.password"),
			Name:            viper.GetString("database.name"),
			SSLMode:         viper.GetString("database.ssl_mode"),
			MaxOpenConns:    viper.GetInt("database.max_open_conns"),
			MaxIdleConns:    viper.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: viper.GetDuration("database.conn_max_lifetime"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("redis.host"),
			Port:     viper.GetString("redis.port"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
			EntryTTL: viper.GetDuration("redis.entry_ttl"),
		},
		Ledger: LedgerConfig{
			BaseURL: viper.GetString("ledger.base_url"),
			APIKey:  viper.GetString("ledger.api_key"),
			Timeout: viper.GetDuration("ledger.timeout"),
		},
		Stats: StatsConfig{
			UpdateInterval: viper.GetDuration("stats.update_interval"),
		},
		Auth: AuthConfig{
			JWTSecret:   viper.GetString("auth.jwt_secret"),
			JWTExpiry:   viper.GetDuration("auth.jwt_expiry"),
			APIKeySalt:  viper.GetString("auth.api_key_salt"),
			Argon2Time:  viper.GetUint32("auth.argon2_time"),
			Argon2MemKB: viper.GetUint32("auth.argon2_mem_kb"),
		},
		LogLevel: viper.GetString("log.level"),
	}, nil
}
