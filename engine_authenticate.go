package ardentid

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/ardentid/internal/logger"
	"github.com/MrEthical07/ardentid/jwt"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const registerSuccessMessage = "User registered successfully."

// errInvalidCredentials classifies failed logins in audit events. It is
// never returned to callers.
var errInvalidCredentials = errors.New("invalid credentials")

type loginOutcome uint8

const (
	loginNotFound loginOutcome = iota + 1
	loginWrongPassword
	loginSuccess
)

func (o loginOutcome) String() string {
	switch o {
	case loginNotFound:
		return "not_found"
	case loginWrongPassword:
		return "wrong_password"
	case loginSuccess:
		return "success"
	default:
		return "unknown"
	}
}

// Authenticate checks email and password. An unknown email and a wrong
// password both yield the zero AuthenticationResult with a nil error, so the
// caller cannot tell them apart. Store and signing failures are returned as
// errors.
func (e *Engine) Authenticate(ctx context.Context, email, password string) (AuthenticationResult, error) {
	if e == nil || e.users == nil || e.hasher == nil || e.tokens == nil {
		return AuthenticationResult{}, ErrEngineNotReady
	}
	log := e.log(ctx, "authenticate").With(logger.Email(email))

	outcome, user, err := e.checkCredentials(ctx, email, password)
	if err != nil {
		log.Error("login lookup failed", logger.Err(err))
		e.metricInc(MetricDependencyFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, "", email, "", err, nil)
		return AuthenticationResult{}, err
	}

	if outcome != loginSuccess {
		switch outcome {
		case loginNotFound:
			log.Warn("login attempt for non-existent email")
		default:
			log.Warn("failed login attempt", logger.UserID(user.ID))
		}
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, user.ID, email, "", errInvalidCredentials, func() map[string]string {
			return map[string]string{"reason": outcome.String()}
		})
		return AuthenticationResult{}, nil
	}

	token, err := e.tokens.Issue(jwt.Principal{
		UserID: user.ID,
		Email:  user.Email,
		Roles:  user.Roles,
	})
	if err != nil {
		log.Error("token signing failed", logger.UserID(user.ID), logger.Err(err))
		e.metricInc(MetricDependencyFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, user.ID, email, "", err, nil)
		return AuthenticationResult{}, fmt.Errorf("issue token: %w", err)
	}

	log.Info("user logged in", logger.UserID(user.ID))
	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, user.ID, email, "", nil, nil)

	return AuthenticationResult{
		UserID:  user.ID,
		Success: true,
		Token:   token,
	}, nil
}

func (e *Engine) checkCredentials(ctx context.Context, email, password string) (loginOutcome, UserRecord, error) {
	user, err := e.users.FindByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return loginNotFound, UserRecord{}, nil
	}
	if err != nil {
		return 0, UserRecord{}, fmt.Errorf("find user: %w", err)
	}

	start := time.Now()
	ok := e.hasher.Verify(user.PasswordHash, password)
	e.metricObserve(MetricPasswordHashLatency, time.Since(start))
	if !ok {
		return loginWrongPassword, user, nil
	}

	return loginSuccess, user, nil
}

// Register creates a PendingVerification account. An email that is already
// registered yields [ErrDuplicateIdentity]; the store's own duplicate report
// on Insert is treated the same way.
func (e *Engine) Register(ctx context.Context, req RegisterRequest) (RegisterResult, error) {
	if e == nil || e.users == nil || e.hasher == nil {
		return RegisterResult{}, ErrEngineNotReady
	}
	log := e.log(ctx, "register").With(logger.Email(req.Email))

	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		log.Warn("registration rejected: empty email or password")
		return RegisterResult{}, ErrInvalidRequest
	}

	_, err := e.users.FindByEmail(ctx, req.Email)
	switch {
	case err == nil:
		return RegisterResult{}, e.registerDuplicate(ctx, log, req.Email)
	case !errors.Is(err, ErrUserNotFound):
		return RegisterResult{}, e.registerFailed(ctx, log, req.Email, fmt.Errorf("find user: %w", err))
	}

	hash, err := e.HashPassword(req.Password)
	if err != nil {
		return RegisterResult{}, e.registerFailed(ctx, log, req.Email, fmt.Errorf("hash password: %w", err))
	}

	now := time.Now().UTC()
	user := UserRecord{
		ID:             uuid.NewString(),
		Email:          req.Email,
		PasswordHash:   hash,
		GivenName:      req.GivenName,
		FamilyName:     req.FamilyName,
		Status:         StatusPendingVerification,
		EmailConfirmed: false,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	id, err := e.users.Insert(ctx, user)
	if errors.Is(err, ErrDuplicateIdentity) {
		return RegisterResult{}, e.registerDuplicate(ctx, log, req.Email)
	}
	if err != nil {
		return RegisterResult{}, e.registerFailed(ctx, log, req.Email, fmt.Errorf("insert user: %w", err))
	}

	log.Info("user registered", logger.UserID(id))
	e.metricInc(MetricRegisterSuccess)
	e.emitAudit(ctx, auditEventRegisterSuccess, true, id, req.Email, "", nil, nil)

	return RegisterResult{UserID: id, Message: registerSuccessMessage}, nil
}

func (e *Engine) registerDuplicate(ctx context.Context, log *zap.Logger, email string) error {
	log.Warn("registration rejected: email already registered")
	e.metricInc(MetricRegisterDuplicate)
	e.emitAudit(ctx, auditEventRegisterDuplicate, false, "", email, "", ErrDuplicateIdentity, nil)
	return ErrDuplicateIdentity
}

func (e *Engine) registerFailed(ctx context.Context, log *zap.Logger, email string, err error) error {
	log.Error("registration failed", logger.Err(err))
	e.metricInc(MetricDependencyFailure)
	e.emitAudit(ctx, auditEventRegisterFailure, false, "", email, "", err, nil)
	return err
}
