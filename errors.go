package ardentid

import (
	"errors"

	"github.com/MrEthical07/ardentid/internal/stores"
	"github.com/MrEthical07/ardentid/jwt"
)

var (
	// ErrUserNotFound is returned by a UserStore when no record matches, and
	// by GenerateOTP for unknown recipients.
	ErrUserNotFound = errors.New("user not found")
	// ErrDuplicateIdentity is returned by Register when the email is taken.
	ErrDuplicateIdentity = errors.New("a user with this email address already exists")
	// ErrUnknownPurpose is returned for OTP purposes outside the closed set.
	ErrUnknownPurpose = errors.New("invalid otp purpose specified")
	// ErrInvalidRequest is returned for structurally empty inputs.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrEngineNotReady is returned when a required collaborator is missing.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrMailDelivery wraps Mailer failures during GenerateOTP.
	ErrMailDelivery = errors.New("verification mail delivery failed")
	// ErrTokenInvalid is returned by ParseToken for any unverifiable token.
	ErrTokenInvalid = errors.New("invalid token")

	// ErrSigningKeyMissing is returned by Build when no JWT secret is configured.
	ErrSigningKeyMissing = jwt.ErrSigningKeyMissing
	// ErrCacheUnavailable wraps secret cache transport failures.
	ErrCacheUnavailable = stores.ErrSecretCacheUnavailable
)
