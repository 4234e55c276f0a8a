package httpapi

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"simplestorage/internal/infrastructure/telemetry"
)

const (
	throttledMessage = "ThrottlerException: Too Many Requests"
	allowedMethods   = "GET, HEAD, OPTIONS"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) instrument(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		ctx := telemetry.ExtractHTTPHeaders(r.Context(), r.Header)
		next(recorder, r.WithContext(ctx))
		s.metrics.ObserveRequest(route, r.Method, recorder.status, time.Since(start))
	}
}

// throttle rejects clients that exhausted any rule. Limiter failures let the
// request through.
func (s *Server) throttle(next http.HandlerFunc) http.HandlerFunc {
	if s.limiter == nil {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		decision, err := s.limiter.Allow(r.Context(), clientKey(r))
		if err != nil {
			slog.Warn("throttle check failed", "err", err)
			next(w, r)
			return
		}
		if !decision.Allowed {
			s.metrics.IncThrottled(decision.Rule)
			seconds := int(math.Ceil(decision.RetryAfter.Seconds()))
			w.Header().Set("Retry-After", strconv.Itoa(max(seconds, 1)))
			respondError(w, http.StatusTooManyRequests, throttledMessage)
			return
		}
		next(w, r)
	}
}

func readOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead:
			next(w, r)
		default:
			w.Header().Set("Allow", allowedMethods)
			respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	}
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
