// Package config loads service settings from defaults, an optional YAML file
// and environment variables, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const EnvConfigPath = "SHOECART_CONFIG"

type Config struct {
	App       AppConfig       `yaml:"app"`
	Inventory InventoryConfig `yaml:"inventory"`
	Storage   StorageConfig   `yaml:"storage"`
	Notify    NotifyConfig    `yaml:"notify"`
	Auth      AuthConfig      `yaml:"auth"`
	Tracing   TracingConfig   `yaml:"tracing"`
}

type AppConfig struct {
	Port     string `yaml:"port"`
	Env      string `yaml:"env"`
	LogLevel string `yaml:"log_level"`
}

type InventoryConfig struct {
	// Driver is "http" (remote API) or "mysql" (catalog tables).
	Driver  string        `yaml:"driver"`
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
	DSN     string        `yaml:"dsn"`
}

type StorageConfig struct {
	// Driver is one of memory, mysql, postgres, redis.
	Driver    string        `yaml:"driver"`
	DSN       string        `yaml:"dsn"`
	KeyPrefix string        `yaml:"key_prefix"`
	TTL       time.Duration `yaml:"ttl"`
	// CartIdleTTL drops in-memory carts not opened for this long. Zero keeps them.
	CartIdleTTL time.Duration `yaml:"cart_idle_ttl"`
}

type NotifyConfig struct {
	FeedCapacity int      `yaml:"feed_capacity"`
	KafkaBrokers []string `yaml:"kafka_brokers"`
	KafkaTopic   string   `yaml:"kafka_topic"`
}

type AuthConfig struct {
	JWTSecret  string        `yaml:"jwt_secret"`
	SessionTTL time.Duration `yaml:"session_ttl"`
}

type TracingConfig struct {
	Endpoint    string  `yaml:"endpoint"`
	Probability float64 `yaml:"probability"`
}

func Default() Config {
	return Config{
		App: AppConfig{
			Port:     "8080",
			Env:      "dev",
			LogLevel: "info",
		},
		Inventory: InventoryConfig{
			Driver:  "http",
			BaseURL: "http://localhost:3333",
			Timeout: 5 * time.Second,
		},
		Storage: StorageConfig{
			Driver:      "memory",
			KeyPrefix:   "@RocketShoes:cart",
			CartIdleTTL: 30 * time.Minute,
		},
		Notify: NotifyConfig{
			FeedCapacity: 20,
			KafkaTopic:   "cart-notifications",
		},
		Auth: AuthConfig{
			JWTSecret:  "change-me",
			SessionTTL: 30 * 24 * time.Hour,
		},
		Tracing: TracingConfig{
			Probability: 1.0,
		},
	}
}

// Load reads the file named by SHOECART_CONFIG, if any, then applies env overrides.
func Load() (Config, error) {
	cfg := Default()
	if path := os.Getenv(EnvConfigPath); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.App.Port = getenv("APP_PORT", c.App.Port)
	c.App.Env = getenv("APP_ENV", c.App.Env)
	c.App.LogLevel = getenv("LOG_LEVEL", c.App.LogLevel)

	c.Inventory.Driver = getenv("INVENTORY_DRIVER", c.Inventory.Driver)
	c.Inventory.BaseURL = getenv("INVENTORY_URL", c.Inventory.BaseURL)
	c.Inventory.DSN = getenv("INVENTORY_DSN", c.Inventory.DSN)

	c.Storage.Driver = getenv("STORAGE_DRIVER", c.Storage.Driver)
	c.Storage.DSN = getenv("STORAGE_DSN", c.Storage.DSN)
	c.Storage.KeyPrefix = getenv("STORAGE_KEY_PREFIX", c.Storage.KeyPrefix)

	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Notify.KafkaBrokers = splitList(v)
	}
	c.Notify.KafkaTopic = getenv("KAFKA_TOPIC", c.Notify.KafkaTopic)

	c.Auth.JWTSecret = getenv("JWT_SECRET", c.Auth.JWTSecret)
	c.Tracing.Endpoint = getenv("OTEL_EXPORTER_OTLP_ENDPOINT", c.Tracing.Endpoint)

	var err error
	if c.Inventory.Timeout, err = getenvDuration("INVENTORY_TIMEOUT", c.Inventory.Timeout); err != nil {
		return err
	}
	if c.Storage.TTL, err = getenvDuration("STORAGE_TTL", c.Storage.TTL); err != nil {
		return err
	}
	if c.Storage.CartIdleTTL, err = getenvDuration("CART_IDLE_TTL", c.Storage.CartIdleTTL); err != nil {
		return err
	}
	if c.Auth.SessionTTL, err = getenvDuration("SESSION_TTL", c.Auth.SessionTTL); err != nil {
		return err
	}
	if c.Notify.FeedCapacity, err = getenvInt("NOTIFY_FEED_CAPACITY", c.Notify.FeedCapacity); err != nil {
		return err
	}
	return nil
}

func (c Config) Validate() error {
	switch c.Storage.Driver {
	case "memory":
	case "mysql", "postgres", "redis":
		if c.Storage.DSN == "" {
			return fmt.Errorf("storage driver %q needs a dsn", c.Storage.Driver)
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	switch c.Inventory.Driver {
	case "http":
		if c.Inventory.BaseURL == "" {
			return fmt.Errorf("inventory base url is required")
		}
	case "mysql":
		if c.Inventory.DSN == "" {
			return fmt.Errorf("inventory driver mysql needs a dsn")
		}
	default:
		return fmt.Errorf("unknown inventory driver %q", c.Inventory.Driver)
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("jwt secret is required")
	}
	return nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvInt(k string, def int) (int, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", k, err)
	}
	return n, nil
}

func getenvDuration(k string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", k, err)
	}
	return d, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
