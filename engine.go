package ardentid

import (
	"context"
	"time"

	internalaudit "github.com/MrEthical07/ardentid/internal/audit"
	"github.com/MrEthical07/ardentid/internal/logger"
	"github.com/MrEthical07/ardentid/jwt"
	"github.com/MrEthical07/ardentid/otp"
	"github.com/MrEthical07/ardentid/password"
	"go.uber.org/zap"
)

// Engine runs the authentication and verification flows. It is immutable
// after [Builder.Build] and safe for concurrent use.
type Engine struct {
	config Config
	users  UserStore
	mailer Mailer
	cache  SecretCache
	// cacheKind is one of the cache* constants, for SecurityReport.
	cacheKind string
	hasher    *password.Argon2
	otp       *otp.TOTP
	tokens    *jwt.Manager
	audit     *internalaudit.Dispatcher
	metrics   *Metrics
	logger    *zap.Logger
}

// Close flushes pending audit events. The engine must not be used afterwards.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
	_ = e.logger.Sync()
}

// AuditDropped reports how many audit events were discarded because the
// dispatcher buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// HashPassword returns a password envelope under the engine's cost
// parameters. Stores seeding users out of band use it so that Authenticate
// can verify them.
func (e *Engine) HashPassword(plain string) (string, error) {
	if e == nil || e.hasher == nil {
		return "", ErrEngineNotReady
	}

	start := time.Now()
	envelope, err := e.hasher.Hash(plain)
	e.metricObserve(MetricPasswordHashLatency, time.Since(start))
	return envelope, err
}

// ParseToken verifies an access token issued by this engine and returns its
// claims. Every failure is reported as [ErrTokenInvalid].
func (e *Engine) ParseToken(token string) (*jwt.Claims, error) {
	if e == nil || e.tokens == nil {
		return nil, ErrEngineNotReady
	}

	claims, err := e.tokens.Parse(token)
	if err != nil {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) metricObserve(id MetricID, d time.Duration) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Observe(id, d)
}

func (e *Engine) log(ctx context.Context, op string) *zap.Logger {
	return logger.From(ctx, e.logger).With(logger.Op(op))
}
