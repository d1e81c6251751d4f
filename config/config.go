// config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Store   StoreConfig   `yaml:"store"`
	Glimpse GlimpseConfig `yaml:"glimpse"`
	Tokens  TokensConfig  `yaml:"tokens"`
	Oracle  OracleConfig  `yaml:"oracle"`
	Events  EventsConfig  `yaml:"events"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
}

type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type StoreConfig struct {
	Type  string      `yaml:"type"`
	Redis RedisConfig `yaml:"redis"`
}

type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
}

type GlimpseConfig struct {
	TTL time.Duration `yaml:"ttl"`
}

type TokensConfig struct {
	MintEpoch time.Duration `yaml:"mint_epoch"`
}

type OracleConfig struct {
	Type      string        `yaml:"type"`
	Timeout   time.Duration `yaml:"timeout"`
	KeyPrefix string        `yaml:"key_prefix"`
	// Mutual seeds the static oracle with befriended pairs.
	Mutual [][2]string `yaml:"mutual"`
}

type EventsConfig struct {
	Log          bool   `yaml:"log"`
	RedisStream  string `yaml:"redis_stream"`
	StreamMaxLen int64  `yaml:"stream_max_len"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			RequestTimeout:  30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Store: StoreConfig{
			Type: "memory",
			Redis: RedisConfig{
				Addr:      "localhost:6379",
				Password:  "",
				DB:        0,
				KeyPrefix: "glimpse:",
			},
		},
		Glimpse: GlimpseConfig{
			TTL: 24 * time.Hour,
		},
		Tokens: TokensConfig{
			MintEpoch: time.Second,
		},
		Oracle: OracleConfig{
			Type:      "static",
			Timeout:   2 * time.Second,
			KeyPrefix: "social:",
		},
		Events: EventsConfig{
			Log:          true,
			StreamMaxLen: 10000,
		},
		Log: LogConfig{
			Level: "info",
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFromFile(path); err != nil {
			return nil, err
		}
	}

	cfg.loadFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // File not found is OK, use defaults
		}
		return fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	return nil
}

func (c *Config) loadFromEnv() {
	// Server
	if v := os.Getenv("HOST"); v != "" {
		c.Server.Host = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}

	if v := os.Getenv("STORE_TYPE"); v != "" {
		c.Store.Type = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Store.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Store.Redis.Password = v
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			c.Store.Redis.DB = db
		}
	}
	if v := os.Getenv("REDIS_KEY_PREFIX"); v != "" {
		c.Store.Redis.KeyPrefix = v
	}

	if v := os.Getenv("GLIMPSE_TTL"); v != "" {
		if ttl, err := time.ParseDuration(v); err == nil {
			c.Glimpse.TTL = ttl
		}
	}
	if v := os.Getenv("MINT_EPOCH"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Tokens.MintEpoch = d
		}
	}

	if v := os.Getenv("ORACLE_TYPE"); v != "" {
		c.Oracle.Type = v
	}
	if v := os.Getenv("ORACLE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Oracle.Timeout = d
		}
	}

	if v := os.Getenv("EVENTS_REDIS_STREAM"); v != "" {
		c.Events.RedisStream = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("METRICS_ENABLED"); v != "" {
		c.Metrics.Enabled = v == "true" || v == "1"
	}
}

func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}

	if c.Store.Type != "memory" && c.Store.Type != "redis" {
		return fmt.Errorf("invalid store type: %s (must be 'memory' or 'redis')", c.Store.Type)
	}

	if c.Oracle.Type != "static" && c.Oracle.Type != "redis" {
		return fmt.Errorf("invalid oracle type: %s (must be 'static' or 'redis')", c.Oracle.Type)
	}

	if c.NeedsRedis() && c.Store.Redis.Addr == "" {
		return fmt.Errorf("redis addr is required when redis is used")
	}

	if c.Glimpse.TTL <= 0 {
		return fmt.Errorf("glimpse ttl must be positive")
	}

	if c.Tokens.MintEpoch < 0 {
		return fmt.Errorf("mint_epoch must not be negative")
	}

	if c.Oracle.Timeout < 0 {
		return fmt.Errorf("oracle timeout must not be negative")
	}

	for i, pair := range c.Oracle.Mutual {
		if pair[0] == "" || pair[1] == "" {
			return fmt.Errorf("oracle.mutual[%d]: both identities are required", i)
		}
	}

	return nil
}

// NeedsRedis reports whether any component is configured to talk to Redis.
func (c *Config) NeedsRedis() bool {
	return c.Store.Type == "redis" || c.Oracle.Type == "redis" || c.Events.RedisStream != ""
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
