package middleware

import (
	"net"
	"net/http"
	"time"

	"github.com/MrEthical07/ardentid"
	"github.com/MrEthical07/ardentid/internal/logger"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Txn must run after chi's RequestID (and RealIP, when used). It attaches the
// request ID as the engine transaction ID and a logger carrying it.
func Txn(base *zap.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = zap.NewNop()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			txn := chimw.GetReqID(ctx)

			ctx = ardentid.WithTxn(ctx, txn)
			ctx = ardentid.WithClientIP(ctx, clientIP(r.RemoteAddr))
			ctx = logger.ToContext(ctx, base.With(logger.Txn(txn)))

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AccessLog logs method, route, status and latency of every request.
func AccessLog(base *zap.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = zap.NewNop()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			l := logger.From(r.Context(), base)
			fields := []zap.Field{
				logger.Method(r.Method),
				logger.Path(r.URL.Path),
				logger.Status(status),
				logger.Duration(time.Since(start)),
				zap.Int("bytes", ww.BytesWritten()),
			}
			switch {
			case status >= 500:
				l.Error("request", fields...)
			case status >= 400:
				l.Warn("request", fields...)
			default:
				l.Info("request", fields...)
			}
		})
	}
}

func clientIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
