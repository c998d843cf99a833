package ardentid

import (
	"errors"
	"time"

	"github.com/MrEthical07/ardentid/otp"
	"github.com/MrEthical07/ardentid/password"
)

// Config groups every engine tunable. Obtain defaults from [DefaultConfig],
// adjust, and pass to [Builder.WithConfig]. The engine never reads
// configuration from the environment.
type Config struct {
	Password PasswordConfig
	OTP      OTPConfig
	JWT      JWTConfig
	Cache    CacheConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds the Argon2id cost parameters. Stored envelopes do not
// record them, so changing any value invalidates existing hashes.
type PasswordConfig struct {
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
}

/*
====================================
OTP CONFIG
====================================
*/

// OTPConfig controls code generation and the lifetime of cached secrets.
type OTPConfig struct {
	Period      int // seconds
	Digits      int
	Skew        int
	SecretBytes int
	SecretTTL   time.Duration
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig controls access-token signing. Secret is required.
type JWTConfig struct {
	Secret        []byte
	ExpiryMinutes int
	Issuer        string
	Audience      string
}

/*
====================================
CACHE CONFIG
====================================
*/

// CacheConfig applies to the built-in secret caches. RedisPrefix is used when
// a Redis client is supplied; CleanupInterval drives the in-memory janitor
// otherwise.
type CacheConfig struct {
	RedisPrefix     string
	CleanupInterval time.Duration
}

/*
====================================
AUDIT CONFIG
====================================
*/

type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

/*
====================================
METRICS CONFIG
====================================
*/

type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the production defaults except for JWT.Secret, which
// has no default.
func DefaultConfig() Config {
	pw := password.DefaultConfig()
	code := otp.DefaultConfig()

	return Config{
		Password: PasswordConfig{
			Memory:      pw.Memory,
			Time:        pw.Time,
			Parallelism: pw.Parallelism,
		},
		OTP: OTPConfig{
			Period:      code.Period,
			Digits:      code.Digits,
			Skew:        code.Skew,
			SecretBytes: code.SecretBytes,
			SecretTTL:   5 * time.Minute,
		},
		JWT: JWTConfig{
			ExpiryMinutes: 60,
		},
		Cache: CacheConfig{
			RedisPrefix:     "aotp",
			CleanupInterval: time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.Secret = cloneBytes(cfg.JWT.Secret)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate checks structural constraints. Cost parameters are additionally
// checked by the password and otp packages during Build.
func (c *Config) Validate() error {
	// JWT
	if len(c.JWT.Secret) == 0 {
		return ErrSigningKeyMissing
	}
	if c.JWT.ExpiryMinutes <= 0 {
		return errors.New("JWT ExpiryMinutes must be > 0")
	}

	// OTP
	if c.OTP.Period <= 0 {
		return errors.New("OTP Period must be > 0")
	}
	if c.OTP.SecretTTL <= 0 {
		return errors.New("OTP SecretTTL must be > 0")
	}
	if c.OTP.SecretBytes <= 0 {
		return errors.New("OTP SecretBytes must be > 0")
	}

	// Cache
	if c.Cache.CleanupInterval < 0 {
		return errors.New("Cache CleanupInterval must be >= 0")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	// Metrics
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	return nil
}
