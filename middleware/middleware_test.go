package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MrEthical07/ardentid"
	"github.com/MrEthical07/ardentid/internal/logger"
	"github.com/MrEthical07/ardentid/jwt"
	chimw "github.com/go-chi/chi/v5/middleware"
	gojwt "github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeParser struct{}

func (fakeParser) ParseToken(token string) (*jwt.Claims, error) {
	if token != "good" {
		return nil, errors.New("bad token")
	}
	return &jwt.Claims{Email: "a@x.io", RegisteredClaims: gojwt.RegisteredClaims{Subject: "u1"}}, nil
}

func TestGuard(t *testing.T) {
	var seen *jwt.Claims
	h := Guard(fakeParser{}, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = ClaimsFromContext(r.Context())
	}))

	cases := map[string]int{
		"":            http.StatusUnauthorized,
		"Bearer":      http.StatusUnauthorized,
		"Bearer   ":   http.StatusUnauthorized,
		"Basic good":  http.StatusUnauthorized,
		"Bearer bad":  http.StatusUnauthorized,
		"Bearer good": http.StatusOK,
		"bearer good": http.StatusOK,
	}
	for header, want := range cases {
		seen = nil
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != want {
			t.Fatalf("%q: expected %d, got %d", header, want, rec.Code)
		}
		if want == http.StatusOK && (seen == nil || seen.Subject != "u1") {
			t.Fatalf("%q: expected claims in context", header)
		}
	}
}

func TestGuardCustomDeny(t *testing.T) {
	deny := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	h := Guard(nil, deny)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("next must not run")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/me", nil))
	if rec.Code != http.StatusTeapot {
		t.Fatalf("expected custom deny, got %d", rec.Code)
	}
}

func TestTxnAndAccessLog(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	var txn string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		txn = ardentid.TxnFromContext(r.Context())
		logger.From(r.Context(), nil).Info("inside")
		w.WriteHeader(http.StatusNotFound)
	})
	h := chimw.RequestID(Txn(base)(AccessLog(base)(inner)))

	req := httptest.NewRequest(http.MethodPost, "/v1/x", nil)
	req.Header.Set("X-Request-Id", "req-42")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if txn != "req-42" {
		t.Fatalf("expected txn from request id, got %q", txn)
	}
	inside := logs.FilterMessage("inside").All()
	if len(inside) != 1 || inside[0].ContextMap()["txn"] != "req-42" {
		t.Fatalf("expected request logger with txn, got %+v", inside)
	}
	access := logs.FilterMessage("request").All()
	if len(access) != 1 {
		t.Fatalf("expected one access log, got %d", len(access))
	}
	if access[0].Level != zapcore.WarnLevel || access[0].ContextMap()["status"] != int64(404) {
		t.Fatalf("unexpected access log: %+v", access[0])
	}
}

func TestClientIP(t *testing.T) {
	if got := clientIP("203.0.113.9:5555"); got != "203.0.113.9" {
		t.Fatalf("unexpected ip %q", got)
	}
	if got := clientIP("unix"); got != "unix" {
		t.Fatalf("unexpected fallback %q", got)
	}
}
