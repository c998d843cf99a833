package security

import (
	"fmt"
	"time"
)

const (
	minSigningKeyBytes = 32
	// OWASP's Argon2id floor.
	minArgon2MemoryKB = 19 * 1024
	maxTokenTTL       = 24 * time.Hour
	maxSecretTTL      = 15 * time.Minute
)

type PasswordReport struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  int
	KeyLength   int
}

type Report struct {
	SigningAlgorithm string
	SigningKeyBytes  int
	TokenTTL         time.Duration
	IssuerSet        bool
	AudienceSet      bool
	Argon2           PasswordReport
	OTPPeriod        time.Duration
	OTPDigits        int
	OTPSkew          int
	SecretTTL        time.Duration
	SecretCache      string
	AuditEnabled     bool
	MetricsEnabled   bool
	Warnings         []string
}

type ReportInput struct {
	SigningKeyBytes int
	TokenTTL        time.Duration
	Issuer          string
	Audience        string
	Password        PasswordReport
	OTPPeriod       time.Duration
	OTPDigits       int
	OTPSkew         int
	SecretTTL       time.Duration
	SecretCache     string
	AuditEnabled    bool
	MetricsEnabled  bool
}

func BuildReport(input ReportInput) Report {
	r := Report{
		SigningAlgorithm: "HS256",
		SigningKeyBytes:  input.SigningKeyBytes,
		TokenTTL:         input.TokenTTL,
		IssuerSet:        input.Issuer != "",
		AudienceSet:      input.Audience != "",
		Argon2:           input.Password,
		OTPPeriod:        input.OTPPeriod,
		OTPDigits:        input.OTPDigits,
		OTPSkew:          input.OTPSkew,
		SecretTTL:        input.SecretTTL,
		SecretCache:      input.SecretCache,
		AuditEnabled:     input.AuditEnabled,
		MetricsEnabled:   input.MetricsEnabled,
	}

	if input.SigningKeyBytes < minSigningKeyBytes {
		r.Warnings = append(r.Warnings, fmt.Sprintf("jwt secret is %d bytes; use at least %d", input.SigningKeyBytes, minSigningKeyBytes))
	}
	if input.Password.Memory < minArgon2MemoryKB {
		r.Warnings = append(r.Warnings, fmt.Sprintf("argon2 memory %d KB is below %d KB", input.Password.Memory, minArgon2MemoryKB))
	}
	if input.TokenTTL > maxTokenTTL {
		r.Warnings = append(r.Warnings, fmt.Sprintf("token lifetime %s exceeds %s", input.TokenTTL, maxTokenTTL))
	}
	if input.SecretTTL > maxSecretTTL {
		r.Warnings = append(r.Warnings, fmt.Sprintf("otp secret ttl %s exceeds %s", input.SecretTTL, maxSecretTTL))
	}
	if input.SecretCache == "memory" {
		r.Warnings = append(r.Warnings, "otp secrets are held per process; replicas do not share them")
	}
	if !r.IssuerSet || !r.AudienceSet {
		r.Warnings = append(r.Warnings, "tokens carry no issuer or audience restriction")
	}
	return r
}
