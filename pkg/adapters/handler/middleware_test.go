package handler

import (
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/ivanhernandez-dev/url-shortener/pkg/adapters/auth"
	"github.com/ivanhernandez-dev/url-shortener/pkg/core/domain"
)

const testSecret = "testservlet"

func TestRequireIdentity(t *testing.T) {
	resolver := auth.NewJWTResolver(testSecret)
	mw := NewMiddleware(resolver, log.New(io.Discard, "", 0))
	userID := uuid.New()

	tests := []struct {
		name           string
		header         string
		cookieValue    string
		expectedStatus int
	}{
		{
			name:           "No Token",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Invalid Cookie",
			cookieValue:    "invalid",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Invalid Bearer",
			header:         "Bearer invalid",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Expired Bearer",
			header:         "Bearer " + generateTestToken(t, resolver, userID, -time.Minute),
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Valid Cookie",
			cookieValue:    generateTestToken(t, resolver, userID, 5*time.Minute),
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Valid Bearer",
			header:         "Bearer " + generateTestToken(t, resolver, userID, 5*time.Minute),
			expectedStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/v1/my-urls", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookieValue != "" {
				req.AddCookie(&http.Cookie{Name: "auth_token", Value: tt.cookieValue})
			}

			var seen *domain.Identity
			rr := httptest.NewRecorder()
			handler := mw.Authenticate(mw.RequireIdentity(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen, _ = IdentityFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			})))

			handler.ServeHTTP(rr, req)

			if status := rr.Code; status != tt.expectedStatus {
				t.Errorf("handler returned wrong status code: got %v want %v",
					status, tt.expectedStatus)
			}
			if tt.expectedStatus == http.StatusOK && (seen == nil || seen.UserID != userID) {
				t.Errorf("identity not attached: %+v", seen)
			}
		})
	}
}

func TestAuthenticateLeavesAnonymousRequestsAlone(t *testing.T) {
	mw := NewMiddleware(auth.NewJWTResolver(testSecret), log.New(io.Discard, "", 0))

	called := false
	handler := mw.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		if _, ok := IdentityFromContext(r.Context()); ok {
			t.Error("expected no identity")
		}
	}))

	req := httptest.NewRequest("GET", "/r/abc", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if !called {
		t.Fatal("next handler was not called")
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	if got := clientIP(req); got != "10.0.0.1" {
		t.Errorf("got %q", got)
	}

	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	if got := clientIP(req); got != "203.0.113.7" {
		t.Errorf("got %q", got)
	}
}

func generateTestToken(t *testing.T, resolver *auth.JWTResolver, userID uuid.UUID, ttl time.Duration) string {
	t.Helper()
	tokenString, err := resolver.Sign(domain.Identity{UserID: userID}, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
	})
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}
	return tokenString
}
