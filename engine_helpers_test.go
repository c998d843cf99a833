package ardentid

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type mockUserStore struct {
	mu      sync.Mutex
	byEmail map[string]UserRecord

	findErr    error
	insertErr  error
	confirmErr error

	findCalls    int
	insertCalls  int
	confirmCalls int
}

func newMockUserStore(users ...UserRecord) *mockUserStore {
	m := &mockUserStore{byEmail: make(map[string]UserRecord)}
	for _, u := range users {
		m.byEmail[u.Email] = u
	}
	return m
}

func (m *mockUserStore) FindByEmail(_ context.Context, email string) (UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.findCalls++

	if m.findErr != nil {
		return UserRecord{}, m.findErr
	}
	user, ok := m.byEmail[email]
	if !ok {
		return UserRecord{}, ErrUserNotFound
	}
	return user, nil
}

func (m *mockUserStore) Insert(_ context.Context, user UserRecord) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.insertCalls++

	if m.insertErr != nil {
		return "", m.insertErr
	}
	if _, ok := m.byEmail[user.Email]; ok {
		return "", ErrDuplicateIdentity
	}
	m.byEmail[user.Email] = user
	return user.ID, nil
}

func (m *mockUserStore) MarkEmailConfirmed(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.confirmCalls++

	if m.confirmErr != nil {
		return m.confirmErr
	}
	for email, u := range m.byEmail {
		if u.ID != userID {
			continue
		}
		u.EmailConfirmed = true
		u.Status = StatusActive
		u.UpdatedAt = time.Now().UTC()
		m.byEmail[email] = u
		return nil
	}
	return ErrUserNotFound
}

func (m *mockUserStore) get(email string) (UserRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byEmail[email]
	return u, ok
}

type sentMail struct {
	To           string
	TemplateKey  string
	Placeholders map[string]string
}

type mockMailer struct {
	mu      sync.Mutex
	sent    []sentMail
	sendErr error
}

func (m *mockMailer) Send(_ context.Context, to, templateKey string, placeholders map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sendErr != nil {
		return m.sendErr
	}
	copied := make(map[string]string, len(placeholders))
	for k, v := range placeholders {
		copied[k] = v
	}
	m.sent = append(m.sent, sentMail{To: to, TemplateKey: templateKey, Placeholders: copied})
	return nil
}

func (m *mockMailer) last(t testing.TB) sentMail {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		t.Fatal("expected a mail to have been sent")
	}
	return m.sent[len(m.sent)-1]
}

func (m *mockMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})
	return mr, client
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Password = PasswordConfig{Memory: 8 * 1024, Time: 1, Parallelism: 1}
	cfg.JWT.Secret = []byte("test-signing-key-0123456789abcdef")
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true
	return cfg
}

type testEngineOption func(*Builder)

func withAudit(sink AuditSink) testEngineOption {
	return func(b *Builder) {
		b.config.Audit.Enabled = true
		b.config.Audit.DropIfFull = false
		b.WithAuditSink(sink)
	}
}

func newTestEngine(t *testing.T, rdb *redis.Client, users UserStore, mailer Mailer, opts ...testEngineOption) *Engine {
	t.Helper()

	b := New().WithConfig(testConfig()).WithUserStore(users).WithMailer(mailer)
	if rdb != nil {
		b.WithRedis(rdb)
	}
	for _, opt := range opts {
		opt(b)
	}

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

func seedUser(t *testing.T, engine *Engine, email, plain string) UserRecord {
	t.Helper()

	hash, err := engine.HashPassword(plain)
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	now := time.Now().UTC()
	return UserRecord{
		ID:           "u-" + email,
		Email:        email,
		PasswordHash: hash,
		GivenName:    "Alice",
		Status:       StatusPendingVerification,
		Roles:        []string{"member"},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

var errBackend = errors.New("backend down")

func (m *mockUserStore) add(u UserRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byEmail[u.Email] = u
}
