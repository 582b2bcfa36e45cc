package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/coldwatch/coldwatch-server/internal/auth"
	"github.com/coldwatch/coldwatch-server/internal/metrics"
	"github.com/coldwatch/coldwatch-server/internal/ratelimit"
)

type contextKey string

const identityKey contextKey = "identity"

// identityFrom returns the resolved caller, or nil on unauthenticated
// routes.
func identityFrom(r *http.Request) *auth.Identity {
	identity, _ := r.Context().Value(identityKey).(*auth.Identity)
	return identity
}

// authMiddleware resolves the caller through the credential chain and
// rejects requests no strategy could authenticate.
func (s *RESTServer) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity := s.resolver.Resolve(r)
		if identity == nil {
			s.respondError(w, r, http.StatusUnauthorized, codeUnauthenticated, "authentication required")
			return
		}

		ctx := context.WithValue(r.Context(), identityKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// rateLimit enforces the per-caller fixed window for one traffic class.
// The key is the authenticated user when present, the client IP
// otherwise. A limiter backend failure fails open.
func (s *RESTServer) rateLimit(class ratelimit.Class) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.RemoteAddr
			if identity := identityFrom(r); identity != nil {
				key = identity.UserID.String()
			}

			res, err := s.limiter.Allow(r.Context(), key, class)
			if err != nil {
				log.Error().Err(err).Str("class", string(class)).Msg("Rate limiter unavailable")
				next.ServeHTTP(w, r)
				return
			}

			setRateLimitHeaders(w, res)

			if !res.Allowed {
				metrics.RateLimited.WithLabelValues(string(class)).Inc()
				retryAfter := int(time.Until(res.ResetTime).Seconds()) + 1
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				s.respondError(w, r, http.StatusTooManyRequests, codeRateLimited, "rate limit exceeded")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// requestLogger emits one structured event per request.
func (s *RESTServer) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote", r.RemoteAddr).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("Request")
	})
}

// metricsMiddleware records request counts and latency per route pattern.
func (s *RESTServer) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}

		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(ww.Status())).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
