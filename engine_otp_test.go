package ardentid

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"
)

func newOTPFixture(t *testing.T) (*Engine, *mockUserStore, *mockMailer) {
	t.Helper()

	_, rdb := newTestRedis(t)
	users := newMockUserStore()
	mailer := &mockMailer{}
	engine := newTestEngine(t, rdb, users, mailer)
	users.add(seedUser(t, engine, "alice@example.com", "Abc123!@"))
	return engine, users, mailer
}

func wrongCode(t *testing.T, engine *Engine, purpose OTPPurpose, email string) string {
	t.Helper()

	secret, ok, err := engine.cache.Get(context.Background(), purpose.String(), email)
	if err != nil || !ok {
		t.Fatalf("expected live secret, ok=%v err=%v", ok, err)
	}
	for i := 0; i < 1000000; i++ {
		candidate := strconv.Itoa(100000 + i)
		if !engine.otp.Validate(secret, candidate) {
			return candidate
		}
	}
	t.Fatal("no invalid code found")
	return ""
}

func TestGenerateOTPSendsCode(t *testing.T) {
	engine, _, mailer := newOTPFixture(t)

	msg, err := engine.GenerateOTP(context.Background(), "alice@example.com", PurposeEmailConfirmation)
	if err != nil {
		t.Fatalf("GenerateOTP failed: %v", err)
	}
	if msg != "A verification code for EmailConfirmation has been sent to your email." {
		t.Fatalf("unexpected message: %q", msg)
	}

	mail := mailer.last(t)
	if mail.To != "alice@example.com" || mail.TemplateKey != TemplateAccountActivation {
		t.Fatalf("unexpected mail: %+v", mail)
	}
	if mail.Placeholders["UserName"] != "Alice" {
		t.Fatalf("expected UserName placeholder, got %q", mail.Placeholders["UserName"])
	}
	code := mail.Placeholders["Otp"]
	if len(code) != 6 {
		t.Fatalf("expected 6-digit code, got %q", code)
	}

	secret, ok, err := engine.cache.Get(context.Background(), "EmailConfirmation", "alice@example.com")
	if err != nil || !ok {
		t.Fatalf("expected cached secret, ok=%v err=%v", ok, err)
	}
	if len(secret) != 20 {
		t.Fatalf("expected 20-byte secret, got %d", len(secret))
	}
	if !engine.otp.Validate(secret, code) {
		t.Fatal("expected mailed code to match cached secret")
	}
}

func TestGenerateOTPPasswordResetTemplate(t *testing.T) {
	engine, _, mailer := newOTPFixture(t)

	msg, err := engine.GenerateOTP(context.Background(), "alice@example.com", PurposePasswordReset)
	if err != nil {
		t.Fatalf("GenerateOTP failed: %v", err)
	}
	if msg != "A verification code for PasswordReset has been sent to your email." {
		t.Fatalf("unexpected message: %q", msg)
	}
	if mailer.last(t).TemplateKey != TemplatePasswordReset {
		t.Fatalf("expected PasswordReset template, got %q", mailer.last(t).TemplateKey)
	}
}

func TestEmailConfirmationScenario(t *testing.T) {
	engine, users, mailer := newOTPFixture(t)
	ctx := context.Background()

	if _, err := engine.GenerateOTP(ctx, "alice@example.com", PurposeEmailConfirmation); err != nil {
		t.Fatalf("GenerateOTP failed: %v", err)
	}
	code := mailer.last(t).Placeholders["Otp"]

	ok, err := engine.VerifyOTP(ctx, "alice@example.com", PurposeEmailConfirmation, code)
	if err != nil || !ok {
		t.Fatalf("expected verification to succeed, ok=%v err=%v", ok, err)
	}

	user, _ := users.get("alice@example.com")
	if !user.EmailConfirmed || user.Status != StatusActive {
		t.Fatalf("expected confirmed active user, got %+v", user)
	}

	ok, err = engine.VerifyOTP(ctx, "alice@example.com", PurposeEmailConfirmation, code)
	if err != nil || ok {
		t.Fatalf("expected replay to fail, ok=%v err=%v", ok, err)
	}

	snap := engine.MetricsSnapshot()
	if snap.Counters[MetricOTPIssued] != 1 || snap.Counters[MetricOTPVerifySuccess] != 1 || snap.Counters[MetricOTPVerifyFailure] != 1 {
		t.Fatalf("unexpected counters: %+v", snap.Counters)
	}
}

func TestPasswordResetVerifyDoesNotConfirmEmail(t *testing.T) {
	engine, users, mailer := newOTPFixture(t)
	ctx := context.Background()

	if _, err := engine.GenerateOTP(ctx, "alice@example.com", PurposePasswordReset); err != nil {
		t.Fatalf("GenerateOTP failed: %v", err)
	}
	ok, err := engine.VerifyOTP(ctx, "alice@example.com", PurposePasswordReset, mailer.last(t).Placeholders["Otp"])
	if err != nil || !ok {
		t.Fatalf("expected verification to succeed, ok=%v err=%v", ok, err)
	}
	if users.confirmCalls != 0 {
		t.Fatal("expected no confirmation write for password reset")
	}
	user, _ := users.get("alice@example.com")
	if user.EmailConfirmed {
		t.Fatal("expected email to stay unconfirmed")
	}
}

func TestVerifyOTPPurposesAreIsolated(t *testing.T) {
	engine, _, mailer := newOTPFixture(t)
	ctx := context.Background()

	if _, err := engine.GenerateOTP(ctx, "alice@example.com", PurposePasswordReset); err != nil {
		t.Fatalf("GenerateOTP failed: %v", err)
	}
	code := mailer.last(t).Placeholders["Otp"]

	ok, err := engine.VerifyOTP(ctx, "alice@example.com", PurposeEmailConfirmation, code)
	if err != nil || ok {
		t.Fatalf("expected cross-purpose verification to fail, ok=%v err=%v", ok, err)
	}
	ok, err = engine.VerifyOTP(ctx, "alice@example.com", PurposePasswordReset, code)
	if err != nil || !ok {
		t.Fatalf("expected same-purpose verification to succeed, ok=%v err=%v", ok, err)
	}
}

func TestVerifyOTPMismatchKeepsSecret(t *testing.T) {
	engine, _, mailer := newOTPFixture(t)
	ctx := context.Background()

	if _, err := engine.GenerateOTP(ctx, "alice@example.com", PurposeEmailConfirmation); err != nil {
		t.Fatalf("GenerateOTP failed: %v", err)
	}
	code := mailer.last(t).Placeholders["Otp"]
	bad := wrongCode(t, engine, PurposeEmailConfirmation, "alice@example.com")

	ok, err := engine.VerifyOTP(ctx, "alice@example.com", PurposeEmailConfirmation, bad)
	if err != nil || ok {
		t.Fatalf("expected mismatch to fail, ok=%v err=%v", ok, err)
	}

	ok, err = engine.VerifyOTP(ctx, "alice@example.com", PurposeEmailConfirmation, code)
	if err != nil || !ok {
		t.Fatalf("expected correct code to still verify, ok=%v err=%v", ok, err)
	}
}

func TestVerifyOTPWithoutSecret(t *testing.T) {
	engine, _, _ := newOTPFixture(t)

	ok, err := engine.VerifyOTP(context.Background(), "alice@example.com", PurposeEmailConfirmation, "123456")
	if err != nil || ok {
		t.Fatalf("expected false without a secret, ok=%v err=%v", ok, err)
	}
}

func TestVerifyOTPExpiredSecret(t *testing.T) {
	mr, rdb := newTestRedis(t)
	users := newMockUserStore()
	mailer := &mockMailer{}
	engine := newTestEngine(t, rdb, users, mailer)
	users.add(seedUser(t, engine, "alice@example.com", "Abc123!@"))
	ctx := context.Background()

	if _, err := engine.GenerateOTP(ctx, "alice@example.com", PurposeEmailConfirmation); err != nil {
		t.Fatalf("GenerateOTP failed: %v", err)
	}
	mr.FastForward(5*time.Minute + time.Second)

	ok, err := engine.VerifyOTP(ctx, "alice@example.com", PurposeEmailConfirmation, mailer.last(t).Placeholders["Otp"])
	if err != nil || ok {
		t.Fatalf("expected expired secret to fail, ok=%v err=%v", ok, err)
	}
}

func TestVerifyOTPSingleUseUnderConcurrency(t *testing.T) {
	engine, users, mailer := newOTPFixture(t)
	ctx := context.Background()

	if _, err := engine.GenerateOTP(ctx, "alice@example.com", PurposeEmailConfirmation); err != nil {
		t.Fatalf("GenerateOTP failed: %v", err)
	}
	code := mailer.last(t).Placeholders["Otp"]

	var successes atomic.Int32
	var g errgroup.Group
	for i := 0; i < 16; i++ {
		g.Go(func() error {
			ok, err := engine.VerifyOTP(ctx, "alice@example.com", PurposeEmailConfirmation, code)
			if err != nil {
				return err
			}
			if ok {
				successes.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := successes.Load(); got != 1 {
		t.Fatalf("expected exactly one success, got %d", got)
	}
	if users.confirmCalls != 1 {
		t.Fatalf("expected exactly one confirmation, got %d", users.confirmCalls)
	}
}

func TestGenerateOTPReplacesPreviousSecret(t *testing.T) {
	engine, _, mailer := newOTPFixture(t)
	ctx := context.Background()

	if _, err := engine.GenerateOTP(ctx, "alice@example.com", PurposeEmailConfirmation); err != nil {
		t.Fatalf("GenerateOTP failed: %v", err)
	}
	first, _, _ := engine.cache.Get(ctx, "EmailConfirmation", "alice@example.com")

	if _, err := engine.GenerateOTP(ctx, "alice@example.com", PurposeEmailConfirmation); err != nil {
		t.Fatalf("GenerateOTP failed: %v", err)
	}
	second, _, _ := engine.cache.Get(ctx, "EmailConfirmation", "alice@example.com")

	if string(first) == string(second) {
		t.Fatal("expected a fresh secret on regeneration")
	}
	if mailer.count() != 2 {
		t.Fatalf("expected two mails, got %d", mailer.count())
	}

	ok, err := engine.VerifyOTP(ctx, "alice@example.com", PurposeEmailConfirmation, mailer.last(t).Placeholders["Otp"])
	if err != nil || !ok {
		t.Fatalf("expected latest code to verify, ok=%v err=%v", ok, err)
	}
}

func TestGenerateOTPUnknownUser(t *testing.T) {
	engine, _, mailer := newOTPFixture(t)

	_, err := engine.GenerateOTP(context.Background(), "nobody@example.com", PurposeEmailConfirmation)
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if mailer.count() != 0 {
		t.Fatal("expected no mail for unknown user")
	}
	if _, ok, _ := engine.cache.Get(context.Background(), "EmailConfirmation", "nobody@example.com"); ok {
		t.Fatal("expected no cached secret for unknown user")
	}
}

func TestUnknownPurposeHasNoSideEffects(t *testing.T) {
	engine, users, mailer := newOTPFixture(t)
	ctx := context.Background()
	bogus := OTPPurpose(42)

	if _, err := engine.GenerateOTP(ctx, "alice@example.com", bogus); !errors.Is(err, ErrUnknownPurpose) {
		t.Fatalf("GenerateOTP: expected ErrUnknownPurpose, got %v", err)
	}
	if ok, err := engine.VerifyOTP(ctx, "alice@example.com", bogus, "123456"); ok || err != nil {
		t.Fatalf("VerifyOTP: expected false with nil error, ok=%v err=%v", ok, err)
	}
	if engine.MetricsSnapshot().Counters[MetricOTPVerifyFailure] != 1 {
		t.Fatal("expected unknown purpose to count as a verify failure")
	}

	if users.findCalls != 0 {
		t.Fatalf("expected no user lookups, got %d", users.findCalls)
	}
	if mailer.count() != 0 {
		t.Fatal("expected no mail")
	}
	if _, ok, _ := engine.cache.Get(ctx, bogus.String(), "alice@example.com"); ok {
		t.Fatal("expected no cached secret")
	}
}

func TestGenerateOTPMailFailureKeepsSecret(t *testing.T) {
	engine, _, mailer := newOTPFixture(t)
	mailer.sendErr = errors.New("smtp: connection refused")
	ctx := context.Background()

	_, err := engine.GenerateOTP(ctx, "alice@example.com", PurposeEmailConfirmation)
	if !errors.Is(err, ErrMailDelivery) {
		t.Fatalf("expected ErrMailDelivery, got %v", err)
	}
	if !errors.Is(err, mailer.sendErr) {
		t.Fatalf("expected the mailer error to stay in the chain, got %v", err)
	}
	if _, ok, _ := engine.cache.Get(ctx, "EmailConfirmation", "alice@example.com"); !ok {
		t.Fatal("expected secret to stay cached after mail failure")
	}
	if engine.MetricsSnapshot().Counters[MetricOTPSendFailure] != 1 {
		t.Fatal("expected send failure metric")
	}
}

func TestVerifyOTPUserRemovedAfterIssue(t *testing.T) {
	engine, users, mailer := newOTPFixture(t)
	ctx := context.Background()

	if _, err := engine.GenerateOTP(ctx, "alice@example.com", PurposeEmailConfirmation); err != nil {
		t.Fatalf("GenerateOTP failed: %v", err)
	}
	code := mailer.last(t).Placeholders["Otp"]

	users.mu.Lock()
	delete(users.byEmail, "alice@example.com")
	users.mu.Unlock()

	ok, err := engine.VerifyOTP(ctx, "alice@example.com", PurposeEmailConfirmation, code)
	if err != nil || ok {
		t.Fatalf("expected false for removed user, ok=%v err=%v", ok, err)
	}
	if _, live, _ := engine.cache.Get(ctx, "EmailConfirmation", "alice@example.com"); !live {
		t.Fatal("expected secret to remain when user lookup misses")
	}
}

func TestVerifyOTPConfirmFailureConsumesCode(t *testing.T) {
	engine, users, mailer := newOTPFixture(t)
	ctx := context.Background()

	if _, err := engine.GenerateOTP(ctx, "alice@example.com", PurposeEmailConfirmation); err != nil {
		t.Fatalf("GenerateOTP failed: %v", err)
	}
	code := mailer.last(t).Placeholders["Otp"]
	users.confirmErr = errBackend

	ok, err := engine.VerifyOTP(ctx, "alice@example.com", PurposeEmailConfirmation, code)
	if ok || !errors.Is(err, errBackend) {
		t.Fatalf("expected backend error, ok=%v err=%v", ok, err)
	}

	users.confirmErr = nil
	ok, err = engine.VerifyOTP(ctx, "alice@example.com", PurposeEmailConfirmation, code)
	if err != nil || ok {
		t.Fatalf("expected consumed code to fail, ok=%v err=%v", ok, err)
	}
}

func TestVerifyOTPCacheUnavailable(t *testing.T) {
	mr, rdb := newTestRedis(t)
	users := newMockUserStore()
	engine := newTestEngine(t, rdb, users, &mockMailer{})
	mr.Close()

	ok, err := engine.VerifyOTP(context.Background(), "alice@example.com", PurposeEmailConfirmation, "123456")
	if ok || !errors.Is(err, ErrCacheUnavailable) {
		t.Fatalf("expected ErrCacheUnavailable, ok=%v err=%v", ok, err)
	}
}

// reissueOnRead replaces the secret through GenerateOTP right after the first
// read, the way a user re-requesting a code mid-verification would.
type reissueOnRead struct {
	SecretCache
	once    sync.Once
	reissue func()
}

func (c *reissueOnRead) Get(ctx context.Context, purpose, email string) ([]byte, bool, error) {
	secret, ok, err := c.SecretCache.Get(ctx, purpose, email)
	c.once.Do(c.reissue)
	return secret, ok, err
}

func TestVerifyOTPRegenerateDuringVerify(t *testing.T) {
	engine, _, mailer := newOTPFixture(t)
	ctx := context.Background()

	if _, err := engine.GenerateOTP(ctx, "alice@example.com", PurposePasswordReset); err != nil {
		t.Fatalf("GenerateOTP failed: %v", err)
	}
	stale := mailer.last(t).Placeholders["Otp"]

	engine.cache = &reissueOnRead{
		SecretCache: engine.cache,
		reissue: func() {
			if _, err := engine.GenerateOTP(ctx, "alice@example.com", PurposePasswordReset); err != nil {
				t.Errorf("GenerateOTP during verify failed: %v", err)
			}
		},
	}

	ok, err := engine.VerifyOTP(ctx, "alice@example.com", PurposePasswordReset, stale)
	if err != nil || ok {
		t.Fatalf("expected superseded code to fail, ok=%v err=%v", ok, err)
	}
	if mailer.count() != 2 {
		t.Fatalf("expected a second mail, got %d", mailer.count())
	}

	fresh := mailer.last(t).Placeholders["Otp"]
	ok, err = engine.VerifyOTP(ctx, "alice@example.com", PurposePasswordReset, fresh)
	if err != nil || !ok {
		t.Fatalf("expected freshly mailed code to verify, ok=%v err=%v", ok, err)
	}
}
