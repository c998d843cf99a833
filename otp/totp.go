package otp

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/binary"
	"errors"
	"fmt"
	"hash"
	"io"
	"strings"
	"time"
)

var (
	// ErrEmptySecret is returned when a code is requested for a zero-length secret.
	ErrEmptySecret = errors.New("otp: empty secret")
	// ErrUnsupportedAlgorithm is returned for HMAC algorithms other than SHA1, SHA256 and SHA512.
	ErrUnsupportedAlgorithm = errors.New("otp: unsupported algorithm")
)

// Config defines the time-step parameters shared by generation and validation.
type Config struct {
	Period      int // seconds per step
	Digits      int
	Skew        int // steps accepted on each side of the current one
	Algorithm   string
	SecretBytes int
}

// DefaultConfig returns a 300 second step, 6 digits, one step of skew,
// HMAC-SHA1 and 20-byte secrets.
func DefaultConfig() Config {
	return Config{
		Period:      300,
		Digits:      6,
		Skew:        1,
		Algorithm:   "SHA1",
		SecretBytes: 20,
	}
}

// TOTP generates and validates RFC 6238 codes. It holds no per-secret state
// and is safe for concurrent use.
type TOTP struct {
	config Config
	mac    func() hash.Hash
	now    func() time.Time
	rand   io.Reader
}

// New validates cfg and returns a TOTP bound to the wall clock.
func New(cfg Config) (*TOTP, error) {
	if cfg.Algorithm == "" {
		cfg.Algorithm = "SHA1"
	}
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	mac, err := hmacFunc(cfg.Algorithm)
	if err != nil {
		return nil, err
	}

	return &TOTP{
		config: cfg,
		mac:    mac,
		now:    time.Now,
		rand:   rand.Reader,
	}, nil
}

// Config returns the parameters t was built with.
func (t *TOTP) Config() Config {
	return t.config
}

// NewSecret returns Config.SecretBytes of cryptographically random data.
func (t *TOTP) NewSecret() ([]byte, error) {
	secret := make([]byte, t.config.SecretBytes)
	if _, err := io.ReadFull(t.rand, secret); err != nil {
		return nil, err
	}
	return secret, nil
}

// Generate returns the code for the current time step.
func (t *TOTP) Generate(secret []byte) (string, error) {
	return t.GenerateAt(secret, t.now())
}

// GenerateAt returns the code for the step containing at.
func (t *TOTP) GenerateAt(secret []byte, at time.Time) (string, error) {
	if len(secret) == 0 {
		return "", ErrEmptySecret
	}
	return t.hotp(secret, t.counter(at)), nil
}

// Validate reports whether code matches the current step or any step within
// Config.Skew of it. Malformed codes and empty secrets validate as false.
func (t *TOTP) Validate(secret []byte, code string) bool {
	return t.ValidateAt(secret, code, t.now())
}

// ValidateAt is Validate evaluated at the given instant.
func (t *TOTP) ValidateAt(secret []byte, code string, at time.Time) bool {
	trimmed := strings.TrimSpace(code)
	if len(trimmed) != t.config.Digits || !isNumeric(trimmed) {
		return false
	}
	if len(secret) == 0 {
		return false
	}

	base := t.counter(at)
	matched := 0
	for step := -t.config.Skew; step <= t.config.Skew; step++ {
		counter := base + int64(step)
		if counter < 0 {
			continue
		}
		// No early exit, so every candidate step costs the same.
		matched |= subtle.ConstantTimeCompare([]byte(t.hotp(secret, counter)), []byte(trimmed))
	}

	return matched == 1
}

func (t *TOTP) counter(at time.Time) int64 {
	return at.Unix() / int64(t.config.Period)
}

func (t *TOTP) hotp(secret []byte, counter int64) string {
	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], uint64(counter))

	mac := hmac.New(t.mac, secret)
	_, _ = mac.Write(msg[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	bin := (uint32(sum[offset])&0x7f)<<24 |
		uint32(sum[offset+1])<<16 |
		uint32(sum[offset+2])<<8 |
		uint32(sum[offset+3])

	mod := uint32(1)
	for i := 0; i < t.config.Digits; i++ {
		mod *= 10
	}

	return fmt.Sprintf("%0*d", t.config.Digits, bin%mod)
}

func hmacFunc(algorithm string) (func() hash.Hash, error) {
	switch strings.ToUpper(algorithm) {
	case "SHA1":
		return sha1.New, nil
	case "SHA256":
		return sha256.New, nil
	case "SHA512":
		return sha512.New, nil
	default:
		return nil, ErrUnsupportedAlgorithm
	}
}

func validateConfig(cfg Config) error {
	if cfg.Period <= 0 {
		return errors.New("otp: period must be > 0")
	}
	if cfg.Digits < 6 || cfg.Digits > 8 {
		return errors.New("otp: digits must be between 6 and 8")
	}
	if cfg.Skew < 0 || cfg.Skew > 10 {
		return errors.New("otp: skew must be between 0 and 10")
	}
	if cfg.SecretBytes < 16 {
		return errors.New("otp: secret must be at least 16 bytes")
	}
	return nil
}

func isNumeric(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
