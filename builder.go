package ardentid

import (
	"errors"
	"time"

	internalaudit "github.com/MrEthical07/ardentid/internal/audit"
	"github.com/MrEthical07/ardentid/internal/stores"
	"github.com/MrEthical07/ardentid/jwt"
	"github.com/MrEthical07/ardentid/otp"
	"github.com/MrEthical07/ardentid/password"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Builder assembles an [Engine]. Configure it with the With* methods, then
// call Build once; a Builder cannot be reused.
type Builder struct {
	config Config
	redis  redis.UniversalClient
	cache  SecretCache

	users     UserStore
	mailer    Mailer
	logger    *zap.Logger
	auditSink AuditSink

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis stores OTP secrets in Redis. Without it, and without
// WithSecretCache, secrets live in process memory.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithSecretCache overrides the built-in caches.
func (b *Builder) WithSecretCache(cache SecretCache) *Builder {
	b.cache = cache
	return b
}

func (b *Builder) WithUserStore(users UserStore) *Builder {
	b.users = users
	return b
}

func (b *Builder) WithMailer(m Mailer) *Builder {
	b.mailer = m
	return b
}

func (b *Builder) WithLogger(l *zap.Logger) *Builder {
	b.logger = l
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration, constructs every component and returns
// a ready Engine. A missing JWT secret yields [ErrSigningKeyMissing].
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.users == nil {
		return nil, errors.New("user store required")
	}
	if b.mailer == nil {
		return nil, errors.New("mailer required")
	}

	hasher, err := password.NewArgon2(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
	})
	if err != nil {
		return nil, err
	}

	codes, err := otp.New(otp.Config{
		Period:      cfg.OTP.Period,
		Digits:      cfg.OTP.Digits,
		Skew:        cfg.OTP.Skew,
		Algorithm:   "SHA1",
		SecretBytes: cfg.OTP.SecretBytes,
	})
	if err != nil {
		return nil, err
	}

	tokens, err := jwt.NewManager(jwt.Config{
		Secret:   cloneBytes(cfg.JWT.Secret),
		TTL:      time.Duration(cfg.JWT.ExpiryMinutes) * time.Minute,
		Issuer:   cfg.JWT.Issuer,
		Audience: cfg.JWT.Audience,
	})
	if err != nil {
		return nil, err
	}

	cache, cacheKind := b.cache, cacheCustom
	switch {
	case cache != nil:
	case b.redis != nil:
		cache, cacheKind = stores.NewRedisSecretCache(b.redis, cfg.Cache.RedisPrefix), cacheRedis
	default:
		cache, cacheKind = stores.NewMemorySecretCache(cfg.Cache.CleanupInterval), cacheMemory
	}

	log := b.logger
	if log == nil {
		log = zap.NewNop()
	}

	engine := &Engine{
		config:    cloneConfig(cfg),
		users:     b.users,
		mailer:    b.mailer,
		cache:     cache,
		cacheKind: cacheKind,
		hasher:    hasher,
		otp:       codes,
		tokens:    tokens,
		logger:    log.Named("engine"),
		metrics:   NewMetrics(cfg.Metrics),
		audit: internalaudit.NewDispatcher(internalaudit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
			Logger:     log,
		}, b.auditSink),
	}

	b.built = true

	return engine, nil
}
