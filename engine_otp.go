package ardentid

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/ardentid/internal/logger"
	"go.uber.org/zap"
)

const (
	placeholderUserName = "UserName"
	placeholderOTP      = "Otp"
)

// GenerateOTP issues a fresh secret for (purpose, email), replacing any live
// one, and mails the resulting code to the user. The returned message names
// the purpose. An unknown purpose is rejected before any lookup or write.
//
// When the mailer fails the secret stays cached and the error wraps
// [ErrMailDelivery]; a later GenerateOTP replaces it.
func (e *Engine) GenerateOTP(ctx context.Context, email string, purpose OTPPurpose) (string, error) {
	if e == nil || e.users == nil || e.mailer == nil || e.cache == nil || e.otp == nil {
		return "", ErrEngineNotReady
	}
	log := e.log(ctx, "generate_otp").With(logger.Email(email), logger.Purpose(purpose.String()))

	templateKey, err := purpose.TemplateKey()
	if err != nil {
		log.Warn("otp generation rejected: unknown purpose", zap.Int("purpose_value", int(purpose)))
		e.emitAudit(ctx, auditEventOTPIssueFailure, false, "", email, "", err, nil)
		return "", err
	}

	user, err := e.users.FindByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		log.Warn("otp requested for non-existent email")
		e.emitAudit(ctx, auditEventOTPIssueFailure, false, "", email, purpose.String(), err, nil)
		return "", err
	}
	if err != nil {
		return "", e.issueFailed(ctx, log, "", email, purpose, fmt.Errorf("find user: %w", err))
	}

	secret, err := e.otp.NewSecret()
	if err != nil {
		return "", e.issueFailed(ctx, log, user.ID, email, purpose, fmt.Errorf("generate secret: %w", err))
	}
	if err := e.cache.Put(ctx, purpose.String(), email, secret, e.config.OTP.SecretTTL); err != nil {
		return "", e.issueFailed(ctx, log, user.ID, email, purpose, fmt.Errorf("store secret: %w", err))
	}

	code, err := e.otp.Generate(secret)
	if err != nil {
		return "", e.issueFailed(ctx, log, user.ID, email, purpose, fmt.Errorf("generate code: %w", err))
	}

	placeholders := map[string]string{
		placeholderUserName: user.DisplayName(),
		placeholderOTP:      code,
	}
	if err := e.mailer.Send(ctx, user.Email, templateKey, placeholders); err != nil {
		log.Error("verification mail failed", logger.UserID(user.ID), logger.Err(err))
		e.metricInc(MetricOTPSendFailure)
		e.emitAudit(ctx, auditEventOTPIssueFailure, false, user.ID, email, purpose.String(), ErrMailDelivery, nil)
		return "", fmt.Errorf("%w: %w", ErrMailDelivery, err)
	}

	log.Info("verification code sent", logger.UserID(user.ID))
	e.metricInc(MetricOTPIssued)
	e.emitAudit(ctx, auditEventOTPIssued, true, user.ID, email, purpose.String(), nil, nil)

	return fmt.Sprintf("A verification code for %s has been sent to your email.", purpose), nil
}

func (e *Engine) issueFailed(ctx context.Context, log *zap.Logger, userID, email string, purpose OTPPurpose, err error) error {
	log.Error("otp generation failed", logger.Err(err))
	e.metricInc(MetricDependencyFailure)
	e.emitAudit(ctx, auditEventOTPIssueFailure, false, userID, email, purpose.String(), err, nil)
	return err
}

// VerifyOTP checks code against the live secret for (purpose, email). An
// unknown purpose, a missing or expired secret, a wrong code and an unknown
// user all yield false with a nil error. A wrong code leaves the secret in
// place.
//
// On success the secret is removed before any side effect, so a code
// verifies at most once even under concurrent calls. The removal only
// succeeds while the secret read is still current: if GenerateOTP replaced it
// in between, the old code fails and the new one stays valid. For
// [PurposeEmailConfirmation] the user is then marked confirmed and active; if
// that write fails the error is returned and the code is already spent.
func (e *Engine) VerifyOTP(ctx context.Context, email string, purpose OTPPurpose, code string) (bool, error) {
	if e == nil || e.users == nil || e.cache == nil || e.otp == nil {
		return false, ErrEngineNotReady
	}
	log := e.log(ctx, "verify_otp").With(logger.Email(email), logger.Purpose(purpose.String()))

	if !purpose.Valid() {
		log.Warn("otp verification rejected: unknown purpose", zap.Int("purpose_value", int(purpose)))
		e.metricInc(MetricOTPVerifyFailure)
		e.emitAudit(ctx, auditEventOTPRejected, false, "", email, "", ErrUnknownPurpose, nil)
		return false, nil
	}

	secret, ok, err := e.cache.Get(ctx, purpose.String(), email)
	if err != nil {
		return false, e.verifyFailed(ctx, log, "", email, purpose, fmt.Errorf("load secret: %w", err))
	}
	if !ok {
		log.Warn("otp verification failed: no live secret")
		e.verifyRejected(ctx, "", email, purpose, "no_secret")
		return false, nil
	}

	if !e.otp.Validate(secret, code) {
		log.Warn("otp verification failed: code mismatch")
		e.verifyRejected(ctx, "", email, purpose, "mismatch")
		return false, nil
	}

	user, err := e.users.FindByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		log.Warn("otp verification failed: user no longer exists")
		e.verifyRejected(ctx, "", email, purpose, "user_not_found")
		return false, nil
	}
	if err != nil {
		return false, e.verifyFailed(ctx, log, "", email, purpose, fmt.Errorf("find user: %w", err))
	}

	removed, err := e.cache.Remove(ctx, purpose.String(), email, secret)
	if err != nil {
		return false, e.verifyFailed(ctx, log, user.ID, email, purpose, fmt.Errorf("consume secret: %w", err))
	}
	if !removed {
		log.Warn("otp verification failed: code consumed or superseded", logger.UserID(user.ID))
		e.verifyRejected(ctx, user.ID, email, purpose, "consumed_or_superseded")
		return false, nil
	}

	if purpose == PurposeEmailConfirmation {
		if err := e.users.MarkEmailConfirmed(ctx, user.ID); err != nil {
			return false, e.verifyFailed(ctx, log, user.ID, email, purpose, fmt.Errorf("confirm email: %w", err))
		}
	}

	log.Info("otp verified", logger.UserID(user.ID))
	e.metricInc(MetricOTPVerifySuccess)
	e.emitAudit(ctx, auditEventOTPVerified, true, user.ID, email, purpose.String(), nil, nil)

	return true, nil
}

func (e *Engine) verifyRejected(ctx context.Context, userID, email string, purpose OTPPurpose, reason string) {
	e.metricInc(MetricOTPVerifyFailure)
	e.emitAudit(ctx, auditEventOTPRejected, false, userID, email, purpose.String(), errInvalidCode, func() map[string]string {
		return map[string]string{"reason": reason}
	})
}

func (e *Engine) verifyFailed(ctx context.Context, log *zap.Logger, userID, email string, purpose OTPPurpose, err error) error {
	log.Error("otp verification failed", logger.Err(err))
	e.metricInc(MetricDependencyFailure)
	e.emitAudit(ctx, auditEventOTPRejected, false, userID, email, purpose.String(), err, nil)
	return err
}
