package httputil

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/opsdesk/opsdesk-backend/pkg/actor"
	"github.com/opsdesk/opsdesk-backend/pkg/errors"
	"github.com/opsdesk/opsdesk-backend/pkg/logger"
	"github.com/opsdesk/opsdesk-backend/pkg/messaging"
	"github.com/opsdesk/opsdesk-backend/pkg/permissions"
	"github.com/opsdesk/opsdesk-backend/pkg/tenant"
)

type contextKey string

const RequestIDKey contextKey = "request_id"

// RequestID middleware adds a request ID to each request and reuses it as
// the correlation ID of any message published while serving it.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
		ctx = messaging.WithCorrelationID(ctx, requestID)
		w.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Logger middleware logs HTTP requests
func Logger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			event := log.Info().
				Str("request_id", GetRequestID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", wrapped.statusCode).
				Dur("duration", time.Since(start)).
				Str("remote_addr", r.RemoteAddr)

			// Actor and tenant are attached by inner middleware on the
			// request copy, so read them back from the headers.
			if userID := r.Header.Get("X-User-ID"); userID != "" {
				event = event.Str("user_id", userID)
			}
			if tenantID := r.Header.Get("X-Tenant-ID"); tenantID != "" {
				event = event.Str("tenant_id", tenantID)
			}

			event.Msg("HTTP request")
		})
	}
}

// Recoverer middleware recovers from panics
func Recoverer(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.Error().
						Interface("panic", err).
						Str("request_id", GetRequestID(r.Context())).
						Str("path", r.URL.Path).
						Msg("panic recovered")

					Error(w, errors.Internal("an unexpected error occurred"))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// GetRequestID retrieves the request ID from context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

// TenantMiddleware extracts the tenant from the X-Tenant-ID header set by
// the API gateway and adds it to the request context.
//
// Security: missing tenant context returns 403 Forbidden (fail-fast), a
// malformed one 400. /health is allowed without tenant context for monitoring.
func TenantMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		tenantID := r.Header.Get("X-Tenant-ID")
		if tenantID == "" {
			Error(w, errors.Forbidden("missing tenant context"))
			return
		}
		if _, err := uuid.Parse(tenantID); err != nil {
			Error(w, errors.BadRequest("invalid tenant id"))
			return
		}

		next.ServeHTTP(w, r.WithContext(tenant.WithTenantID(r.Context(), tenantID)))
	})
}

// ActorMiddleware builds the acting user from gateway headers:
//   - X-User-ID: user UUID
//   - X-User-Email: user email
//   - X-User-Permissions: comma-separated permission list
//
// Requests without X-User-ID proceed without an actor and fail any
// RequirePermission check.
func ActorMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get("X-User-ID")
		if userID == "" {
			next.ServeHTTP(w, r)
			return
		}

		tenantID, _ := tenant.TenantID(r.Context())
		a := &actor.Actor{
			ID:          userID,
			Email:       r.Header.Get("X-User-Email"),
			TenantID:    tenantID,
			Permissions: permissions.Parse(r.Header.Get("X-User-Permissions")),
		}

		next.ServeHTTP(w, r.WithContext(actor.WithActor(r.Context(), a)))
	})
}

// RequirePermission rejects requests whose actor lacks the given permission
func RequirePermission(permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			a := actor.FromContext(r.Context())
			if a == nil || !permissions.HasPermission(a.Permissions, permission) {
				Error(w, errors.Forbidden("missing permission "+permission))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
