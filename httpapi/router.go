package httpapi

import (
	"context"
	"net/http"

	"github.com/MrEthical07/ardentid"
	"github.com/MrEthical07/ardentid/jwt"
	"github.com/MrEthical07/ardentid/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Engine is the subset of *ardentid.Engine the handlers call.
type Engine interface {
	Authenticate(ctx context.Context, email, password string) (ardentid.AuthenticationResult, error)
	Register(ctx context.Context, req ardentid.RegisterRequest) (ardentid.RegisterResult, error)
	GenerateOTP(ctx context.Context, email string, purpose ardentid.OTPPurpose) (string, error)
	VerifyOTP(ctx context.Context, email string, purpose ardentid.OTPPurpose, code string) (bool, error)
	ParseToken(token string) (*jwt.Claims, error)
}

// Options configures NewRouter. Engine is required.
type Options struct {
	Engine Engine
	Logger *zap.Logger
	// Metrics, when set, is mounted at GET /metrics.
	Metrics http.Handler
	// RequestMetrics, when set, records per-route counters and latency.
	RequestMetrics *RequestMetrics
	// Health runs on GET /healthz; a nil Health always reports ok.
	Health func(ctx context.Context) error
}

type handler struct {
	engine Engine
	logger *zap.Logger
	health func(ctx context.Context) error
}

// NewRouter builds the API router.
func NewRouter(opts Options) http.Handler {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	h := &handler{engine: opts.Engine, logger: log.Named("http"), health: opts.Health}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Txn(h.logger))
	r.Use(middleware.AccessLog(h.logger))
	if opts.RequestMetrics != nil {
		r.Use(opts.RequestMetrics.Middleware)
	}
	r.Use(chimw.Recoverer)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeFailure(w, r, http.StatusNotFound, CodeNotFound, "", "Route not found.", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeFailure(w, r, http.StatusMethodNotAllowed, CodeBadRequest, "", "Method not allowed.", nil)
	})

	r.Get("/healthz", h.healthz)
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	r.Route("/v1/authenticate", func(r chi.Router) {
		r.Put("/authentication", h.authenticate)
		r.Post("/register", h.register)
		r.With(middleware.Guard(opts.Engine, http.HandlerFunc(h.unauthorized))).Get("/me", h.me)
	})
	r.Route("/v1/verification", func(r chi.Router) {
		r.Post("/generate-otp", h.generateOTP)
		r.Post("/verify-otp", h.verifyOTP)
	})

	return r
}

func (h *handler) healthz(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		if err := h.health(r.Context()); err != nil {
			h.logger.Warn("health check failed", zap.Error(err))
			writeFailure(w, r, http.StatusServiceUnavailable, CodeInternalError, "", "unavailable", nil)
			return
		}
	}
	writeSuccess(w, r, "ok", nil)
}

func (h *handler) unauthorized(w http.ResponseWriter, r *http.Request) {
	writeFailure(w, r, http.StatusUnauthorized, CodeUnauthorized, ErrCodeUnauthorized, "A valid bearer token is required.", nil)
}
