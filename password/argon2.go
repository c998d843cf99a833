package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"io"

	"golang.org/x/crypto/argon2"
)

const (
	// SaltLength is the number of random salt bytes leading every envelope.
	SaltLength = 16
	// KeyLength is the number of derived digest bytes following the salt.
	KeyLength = 32
	// EnvelopeLength is the decoded size of a well-formed envelope.
	EnvelopeLength = SaltLength + KeyLength

	minMemoryKB    uint32 = 8 * 1024
	minTimeCost    uint32 = 1
	minParallelism uint8  = 1
)

// Config holds the Argon2id cost parameters. The envelope does not record
// them, so every hash verified by an Argon2 must have been produced with the
// same Config.
type Config struct {
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
}

// DefaultConfig returns parallelism 8, 4 iterations and 128 MiB of memory.
func DefaultConfig() Config {
	return Config{
		Memory:      128 * 1024,
		Time:        4,
		Parallelism: 8,
	}
}

// Argon2 hashes passwords into base64(salt || digest) envelopes.
//
// Argon2 is immutable after construction and safe for concurrent use.
type Argon2 struct {
	config Config
	rand   io.Reader
}

// NewArgon2 validates cfg and returns a hasher bound to it.
func NewArgon2(cfg Config) (*Argon2, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return &Argon2{config: cfg, rand: rand.Reader}, nil
}

// Hash derives a digest for password under a fresh random salt and returns
// the encoded envelope. The only error source is the random reader.
func (a *Argon2) Hash(password string) (string, error) {
	// Password processing uses raw string bytes exactly as provided (no Unicode normalization).
	envelope := make([]byte, EnvelopeLength)
	salt := envelope[:SaltLength]
	if _, err := io.ReadFull(a.rand, salt); err != nil {
		return "", err
	}

	copy(envelope[SaltLength:], a.derive(password, salt))

	return base64.StdEncoding.EncodeToString(envelope), nil
}

// Verify reports whether password matches envelope. Malformed envelopes
// (bad base64, wrong length) verify as false.
func (a *Argon2) Verify(envelope, password string) bool {
	raw, err := base64.StdEncoding.DecodeString(envelope)
	if err != nil || len(raw) != EnvelopeLength {
		return false
	}

	salt := raw[:SaltLength]
	stored := raw[SaltLength:]
	computed := a.derive(password, salt)

	return subtle.ConstantTimeCompare(computed, stored) == 1
}

// Config returns the cost parameters the hasher was built with.
func (a *Argon2) Config() Config {
	return a.config
}

func (a *Argon2) derive(password string, salt []byte) []byte {
	return argon2.IDKey(
		[]byte(password),
		salt,
		a.config.Time,
		a.config.Memory,
		a.config.Parallelism,
		KeyLength,
	)
}

func validateConfig(cfg Config) error {
	if cfg.Memory < minMemoryKB {
		return errors.New("password memory must be >= 8192 KB")
	}
	if cfg.Time < minTimeCost {
		return errors.New("password time must be >= 1")
	}
	if cfg.Parallelism < minParallelism {
		return errors.New("password parallelism must be >= 1")
	}

	return nil
}
