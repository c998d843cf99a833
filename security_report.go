package ardentid

import (
	"time"

	"github.com/MrEthical07/ardentid/internal/security"
	"github.com/MrEthical07/ardentid/password"
)

const (
	cacheRedis  = "redis"
	cacheMemory = "memory"
	cacheCustom = "custom"
)

// SecurityReport summarizes the effective security settings of an Engine.
type SecurityReport = security.Report

// PasswordConfigReport is the Argon2id section of a SecurityReport.
type PasswordConfigReport = security.PasswordReport

// SecurityReport describes the engine's configuration along with warnings
// for settings weaker than recommended. It never includes the signing key.
func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	return security.BuildReport(security.ReportInput{
		SigningKeyBytes: len(e.config.JWT.Secret),
		TokenTTL:        time.Duration(e.config.JWT.ExpiryMinutes) * time.Minute,
		Issuer:          e.config.JWT.Issuer,
		Audience:        e.config.JWT.Audience,
		Password: PasswordConfigReport{
			Memory:      e.config.Password.Memory,
			Time:        e.config.Password.Time,
			Parallelism: e.config.Password.Parallelism,
			SaltLength:  password.SaltLength,
			KeyLength:   password.KeyLength,
		},
		OTPPeriod:      time.Duration(e.config.OTP.Period) * time.Second,
		OTPDigits:      e.config.OTP.Digits,
		OTPSkew:        e.config.OTP.Skew,
		SecretTTL:      e.config.OTP.SecretTTL,
		SecretCache:    e.cacheKind,
		AuditEnabled:   e.config.Audit.Enabled,
		MetricsEnabled: e.config.Metrics.Enabled,
	})
}
