package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aretw0/signoff/internal/logging"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. SIGNOFF_STORE_DRIVER.
const EnvPrefix = "SIGNOFF"

// Storage drivers.
const (
	DriverMemory = "memory"
	DriverFile   = "file"
	DriverRedis  = "redis"
)

// Config holds the configuration for the signoff binary.
type Config struct {
	Workflows struct {
		Source string `mapstructure:"source"`
		Dir    string `mapstructure:"dir"`
	} `mapstructure:"workflows"`
	Store struct {
		Driver     string `mapstructure:"driver"`
		Dir        string `mapstructure:"dir"`
		HistoryDir string `mapstructure:"history_dir"`
	} `mapstructure:"store"`
	Redis struct {
		Addr     string        `mapstructure:"addr"`
		Password string        `mapstructure:"password"`
		DB       int           `mapstructure:"db"`
		Prefix   string        `mapstructure:"prefix"`
		TTL      time.Duration `mapstructure:"ttl"`
		LockTTL  time.Duration `mapstructure:"lock_ttl"`
	} `mapstructure:"redis"`
	HTTP struct {
		Addr           string        `mapstructure:"addr"`
		IdempotencyTTL time.Duration `mapstructure:"idempotency_ttl"`
	} `mapstructure:"http"`
	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`
	Metrics struct {
		Enabled bool `mapstructure:"enabled"`
	} `mapstructure:"metrics"`
	Encryption struct {
		Key          string   `mapstructure:"key"`
		FallbackKeys []string `mapstructure:"fallback_keys"`
	} `mapstructure:"encryption"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("workflows.source", DriverFile)
	v.SetDefault("workflows.dir", "workflows")
	v.SetDefault("store.driver", DriverFile)
	v.SetDefault("store.dir", ".signoff/instances")
	v.SetDefault("store.history_dir", ".signoff/history")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "signoff:")
	v.SetDefault("redis.ttl", time.Duration(0))
	v.SetDefault("redis.lock_ttl", 10*time.Second)
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.idempotency_ttl", 24*time.Hour)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", string(logging.FormatText))
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("encryption.key", "")
	v.SetDefault("encryption.fallback_keys", []string{})
}

// Load reads configuration into v from defaults, an optional file and the
// environment, in increasing precedence. Flags bound on v win over all three.
// An empty configFile looks for signoff.yaml in the working directory and in
// .signoff/, and tolerates its absence. A named file must exist.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if v == nil {
		v = viper.New()
	}
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName("signoff")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(".signoff")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() {
	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	c.Workflows.Source = strings.ToLower(strings.TrimSpace(c.Workflows.Source))
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverMemory, DriverFile, DriverRedis:
	default:
		return fmt.Errorf("store.driver: unknown driver %q (want memory, file or redis)", c.Store.Driver)
	}
	switch c.Workflows.Source {
	case DriverFile:
		if c.Workflows.Dir == "" {
			return errors.New("workflows.dir: required when workflows.source is file")
		}
	case DriverRedis:
	default:
		return fmt.Errorf("workflows.source: unknown source %q (want file or redis)", c.Workflows.Source)
	}
	switch logging.Format(c.Log.Format) {
	case logging.FormatText, logging.FormatJSON:
	default:
		return fmt.Errorf("log.format: unknown format %q", c.Log.Format)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if c.Redis.TTL < 0 || c.Redis.LockTTL < 0 {
		return errors.New("redis: ttl values must not be negative")
	}
	if _, _, err := c.EncryptionKeys(); err != nil {
		return err
	}
	return nil
}

// UsesRedis reports whether any component needs a Redis connection.
func (c *Config) UsesRedis() bool {
	return c.Store.Driver == DriverRedis || c.Workflows.Source == DriverRedis
}

// EncryptionKeys decodes the base64 keys. A nil active key means encryption is off.
func (c *Config) EncryptionKeys() (active []byte, fallback [][]byte, err error) {
	if c.Encryption.Key == "" {
		if len(c.Encryption.FallbackKeys) > 0 {
			return nil, nil, errors.New("encryption.fallback_keys: set without encryption.key")
		}
		return nil, nil, nil
	}
	active, err = decodeKey("encryption.key", c.Encryption.Key)
	if err != nil {
		return nil, nil, err
	}
	for i, k := range c.Encryption.FallbackKeys {
		key, err := decodeKey(fmt.Sprintf("encryption.fallback_keys[%d]", i), k)
		if err != nil {
			return nil, nil, err
		}
		fallback = append(fallback, key)
	}
	return active, fallback, nil
}

func decodeKey(name, s string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("%s: not valid base64: %w", name, err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("%s: must decode to 32 bytes, got %d", name, len(key))
	}
	return key, nil
}
