package ardentid

import (
	"context"
	"io"
	"strings"
	"time"

	internalaudit "github.com/MrEthical07/ardentid/internal/audit"
	"go.uber.org/zap"
)

// AccountStatus represents the lifecycle state of a user account.
type AccountStatus uint8

const (
	StatusPendingVerification AccountStatus = iota
	StatusActive
	StatusSuspended
)

func (s AccountStatus) String() string {
	switch s {
	case StatusPendingVerification:
		return "PendingVerification"
	case StatusActive:
		return "Active"
	case StatusSuspended:
		return "Suspended"
	default:
		return "Unknown"
	}
}

// ParseAccountStatus is the inverse of AccountStatus.String.
func ParseAccountStatus(s string) (AccountStatus, bool) {
	switch s {
	case "PendingVerification":
		return StatusPendingVerification, true
	case "Active":
		return StatusActive, true
	case "Suspended":
		return StatusSuspended, true
	default:
		return 0, false
	}
}

// UserRecord is the credential record owned by a [UserStore]. Email is
// matched case-sensitively.
type UserRecord struct {
	ID             string
	Email          string
	PasswordHash   string
	GivenName      string
	FamilyName     string
	Status         AccountStatus
	EmailConfirmed bool
	Roles          []string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// DisplayName is the given name, or the email when no given name is set.
func (u UserRecord) DisplayName() string {
	if strings.TrimSpace(u.GivenName) != "" {
		return u.GivenName
	}
	return u.Email
}

// UserStore is the persistence contract the engine consumes.
//
// FindByEmail returns [ErrUserNotFound] (possibly wrapped) when no record
// matches; any other error is treated as a dependency failure. Insert returns
// [ErrDuplicateIdentity] when the email is already taken. MarkEmailConfirmed
// sets EmailConfirmed=true and Status=Active in one write.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (UserRecord, error)
	Insert(ctx context.Context, user UserRecord) (string, error)
	MarkEmailConfirmed(ctx context.Context, userID string) error
}

// Mailer renders the template identified by templateKey with placeholders and
// delivers it to the recipient.
type Mailer interface {
	Send(ctx context.Context, to, templateKey string, placeholders map[string]string) error
}

// SecretCache holds one live OTP secret per (purpose, email). Expired entries
// behave as absent. Remove is a compare-and-delete: it deletes the entry only
// while it still holds the given secret and reports whether this call did so,
// so at most one of several concurrent callers observes true and a secret
// issued after the read is never removed.
type SecretCache interface {
	Put(ctx context.Context, purpose, email string, secret []byte, ttl time.Duration) error
	Get(ctx context.Context, purpose, email string) ([]byte, bool, error)
	Remove(ctx context.Context, purpose, email string, secret []byte) (bool, error)
}

// AuthenticationResult is returned by [Engine.Authenticate]. Every failed
// login produces the zero value, whatever the reason.
type AuthenticationResult struct {
	UserID  string
	Success bool
	Token   string
}

// RegisterRequest is the input for [Engine.Register].
type RegisterRequest struct {
	Email      string
	Password   string
	GivenName  string
	FamilyName string
}

// RegisterResult is returned by [Engine.Register].
type RegisterResult struct {
	UserID  string
	Message string
}

// AuditEvent is one login, registration or verification outcome.
type AuditEvent = internalaudit.Event

// AuditSink receives audit events from the engine's dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink drops audit events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink forwards audit events to a buffered channel.
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink writes audit events as JSON lines.
type JSONWriterSink = internalaudit.JSONWriterSink

// ZapSink logs audit events through zap.
type ZapSink = internalaudit.ZapSink

// NewChannelSink returns a sink backed by a channel with the given buffer.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink returns a sink writing one JSON object per line to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// NewZapSink returns a sink logging through l under the "audit" name.
func NewZapSink(l *zap.Logger) *ZapSink {
	return internalaudit.NewZapSink(l)
}
