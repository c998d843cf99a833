// Package config loads the settings of the ardentid server binary from a YAML
// file, an optional .env file and ARDENTID_* environment variables, in that
// order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/MrEthical07/ardentid"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const envPrefix = "ARDENTID_"

type Config struct {
	App struct {
		// dev | prod
		Env     string `yaml:"env"`
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	Server struct {
		Addr            string `yaml:"addr"`
		ReadTimeout     string `yaml:"read_timeout"`
		WriteTimeout    string `yaml:"write_timeout"`
		ShutdownTimeout string `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	Storage struct {
		// memory | postgres
		Driver   string `yaml:"driver"`
		DSN      string `yaml:"dsn"`
		MaxConns int32  `yaml:"max_conns"`
		Migrate  bool   `yaml:"migrate"`
	} `yaml:"storage"`

	Cache struct {
		// memory | redis
		Kind            string `yaml:"kind"`
		CleanupInterval string `yaml:"cleanup_interval"`
		Redis           struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
			Embedded bool   `yaml:"embedded"`
		} `yaml:"redis"`
	} `yaml:"cache"`

	Mail struct {
		// smtp | log
		Driver    string `yaml:"driver"`
		Templates string `yaml:"templates"`
		SMTP      struct {
			Host               string `yaml:"host"`
			Port               int    `yaml:"port"`
			Username           string `yaml:"username"`
			Password           string `yaml:"password"`
			From               string `yaml:"from"`
			TLSMode            string `yaml:"tls_mode"`
			InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
		} `yaml:"smtp"`
	} `yaml:"mail"`

	JWT struct {
		Secret        string `yaml:"secret"`
		ExpiryMinutes int    `yaml:"expiry_minutes"`
		Issuer        string `yaml:"issuer"`
		Audience      string `yaml:"audience"`
	} `yaml:"jwt"`

	OTP struct {
		SecretTTL string `yaml:"secret_ttl"`
	} `yaml:"otp"`

	Password struct {
		MemoryKB    uint32 `yaml:"memory_kb"`
		Time        uint32 `yaml:"time"`
		Parallelism uint8  `yaml:"parallelism"`
	} `yaml:"password"`

	Audit struct {
		Enabled    bool `yaml:"enabled"`
		BufferSize int  `yaml:"buffer_size"`
	} `yaml:"audit"`

	Metrics struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"metrics"`
}

// Load reads path (skipped when empty), overlays the environment and applies
// defaults. envFile, when non-empty, is loaded into the process environment
// first; a missing envFile is not an error.
func Load(path, envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if err := c.applyEnv(); err != nil {
		return nil, err
	}
	c.applyDefaults()
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.App.Name == "" {
		c.App.Name = "ardentid"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.ReadTimeout == "" {
		c.Server.ReadTimeout = "10s"
	}
	if c.Server.WriteTimeout == "" {
		c.Server.WriteTimeout = "30s"
	}
	if c.Server.ShutdownTimeout == "" {
		c.Server.ShutdownTimeout = "15s"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "memory"
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if c.Cache.CleanupInterval == "" {
		c.Cache.CleanupInterval = "1m"
	}
	if c.Cache.Redis.Prefix == "" {
		c.Cache.Redis.Prefix = "aotp"
	}
	if c.Mail.Driver == "" {
		c.Mail.Driver = "log"
	}
	if c.Mail.SMTP.Port == 0 {
		c.Mail.SMTP.Port = 587
	}
	if c.JWT.ExpiryMinutes == 0 {
		c.JWT.ExpiryMinutes = 60
	}
	if c.OTP.SecretTTL == "" {
		c.OTP.SecretTTL = "5m"
	}
	if c.Audit.BufferSize == 0 {
		c.Audit.BufferSize = 1024
	}
}

func (c *Config) validate() error {
	for name, v := range map[string]string{
		"server.read_timeout":     c.Server.ReadTimeout,
		"server.write_timeout":    c.Server.WriteTimeout,
		"server.shutdown_timeout": c.Server.ShutdownTimeout,
		"cache.cleanup_interval":  c.Cache.CleanupInterval,
		"otp.secret_ttl":          c.OTP.SecretTTL,
	} {
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}

	switch c.Storage.Driver {
	case "memory":
	case "postgres":
		if c.Storage.DSN == "" {
			return errors.New("storage.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown storage.driver %q", c.Storage.Driver)
	}

	switch c.Cache.Kind {
	case "memory":
	case "redis":
		if c.Cache.Redis.Addr == "" && !c.Cache.Redis.Embedded {
			return errors.New("cache.redis.addr is required unless cache.redis.embedded is set")
		}
	default:
		return fmt.Errorf("unknown cache.kind %q", c.Cache.Kind)
	}

	switch c.Mail.Driver {
	case "log", "smtp":
	default:
		return fmt.Errorf("unknown mail.driver %q", c.Mail.Driver)
	}

	if strings.TrimSpace(c.JWT.Secret) == "" {
		return ardentid.ErrSigningKeyMissing
	}
	return nil
}

func (c *Config) applyEnv() error {
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(envPrefix + key); ok {
			*dst = v
		}
	}
	var firstErr error
	integer := func(key string, dst *int) {
		v, ok := os.LookupEnv(envPrefix + key)
		if !ok {
			return
		}
		n, err := strconv.Atoi(v)
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("%s%s: %w", envPrefix, key, err)
			return
		}
		*dst = n
	}
	boolean := func(key string, dst *bool) {
		v, ok := os.LookupEnv(envPrefix + key)
		if !ok {
			return
		}
		b, err := strconv.ParseBool(v)
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("%s%s: %w", envPrefix, key, err)
			return
		}
		*dst = b
	}

	str("ENV", &c.App.Env)
	str("LOG_LEVEL", &c.Log.Level)
	str("ADDR", &c.Server.Addr)
	str("STORAGE_DRIVER", &c.Storage.Driver)
	str("DATABASE_URL", &c.Storage.DSN)
	str("CACHE_KIND", &c.Cache.Kind)
	str("REDIS_ADDR", &c.Cache.Redis.Addr)
	str("REDIS_PASSWORD", &c.Cache.Redis.Password)
	boolean("REDIS_EMBEDDED", &c.Cache.Redis.Embedded)
	str("MAIL_DRIVER", &c.Mail.Driver)
	str("MAIL_TEMPLATES", &c.Mail.Templates)
	str("SMTP_HOST", &c.Mail.SMTP.Host)
	integer("SMTP_PORT", &c.Mail.SMTP.Port)
	str("SMTP_USERNAME", &c.Mail.SMTP.Username)
	str("SMTP_PASSWORD", &c.Mail.SMTP.Password)
	str("SMTP_FROM", &c.Mail.SMTP.From)
	str("SMTP_TLS_MODE", &c.Mail.SMTP.TLSMode)
	str("JWT_SECRET", &c.JWT.Secret)
	integer("JWT_EXPIRY_MINUTES", &c.JWT.ExpiryMinutes)
	str("JWT_ISSUER", &c.JWT.Issuer)
	str("JWT_AUDIENCE", &c.JWT.Audience)
	boolean("AUDIT_ENABLED", &c.Audit.Enabled)
	boolean("METRICS_ENABLED", &c.Metrics.Enabled)

	return firstErr
}

// Duration parses a duration field already checked by Load.
func Duration(v string) time.Duration {
	d, _ := time.ParseDuration(v)
	return d
}

// Engine translates the file settings into an engine configuration.
func (c *Config) Engine() ardentid.Config {
	cfg := ardentid.DefaultConfig()

	if c.Password.MemoryKB > 0 {
		cfg.Password.Memory = c.Password.MemoryKB
	}
	if c.Password.Time > 0 {
		cfg.Password.Time = c.Password.Time
	}
	if c.Password.Parallelism > 0 {
		cfg.Password.Parallelism = c.Password.Parallelism
	}

	cfg.OTP.SecretTTL = Duration(c.OTP.SecretTTL)
	cfg.JWT.Secret = []byte(c.JWT.Secret)
	cfg.JWT.ExpiryMinutes = c.JWT.ExpiryMinutes
	cfg.JWT.Issuer = c.JWT.Issuer
	cfg.JWT.Audience = c.JWT.Audience
	cfg.Cache.RedisPrefix = c.Cache.Redis.Prefix
	cfg.Cache.CleanupInterval = Duration(c.Cache.CleanupInterval)
	cfg.Audit.Enabled = c.Audit.Enabled
	cfg.Audit.BufferSize = c.Audit.BufferSize
	cfg.Metrics.Enabled = c.Metrics.Enabled
	cfg.Metrics.EnableLatencyHistograms = c.Metrics.Enabled

	return cfg
}
