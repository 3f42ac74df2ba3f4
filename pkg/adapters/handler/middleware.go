package handler

import (
	"context"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/ivanhernandez-dev/url-shortener/pkg/core/domain"
	"github.com/ivanhernandez-dev/url-shortener/pkg/ports"
)

type contextKey string

const identityKey contextKey = "identity"

// IdentityFromContext returns the caller attached by Authenticate.
func IdentityFromContext(ctx context.Context) (*domain.Identity, bool) {
	identity, ok := ctx.Value(identityKey).(*domain.Identity)
	return identity, ok && identity != nil
}

// WithIdentity attaches identity to ctx.
func WithIdentity(ctx context.Context, identity *domain.Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

type Middleware struct {
	resolver ports.IdentityResolver
	logger   *log.Logger
}

func NewMiddleware(resolver ports.IdentityResolver, logger *log.Logger) *Middleware {
	return &Middleware{resolver: resolver, logger: logger}
}

// Authenticate resolves the bearer token, if any, and attaches the caller
// to the request context. Requests without a valid token continue
// anonymously.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		identity, err := m.resolver.Resolve(r.Context(), token)
		if err != nil {
			m.logger.Printf("token resolution failed: %v", err)
		}
		if identity != nil {
			r = r.WithContext(WithIdentity(r.Context(), identity))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireIdentity rejects requests that Authenticate left anonymous.
func (m *Middleware) RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := IdentityFromContext(r.Context()); !ok {
			writeMessage(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequestLogger writes one line per request.
func (m *Middleware) RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		m.logger.Printf("%s %s %d %s ip=%s", r.Method, r.URL.Path, rec.status, time.Since(start), clientIP(r))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// extractToken reads a bearer token, falling back to the auth_token cookie.
func extractToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	if cookie, err := r.Cookie("auth_token"); err == nil {
		return cookie.Value
	}
	return ""
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
