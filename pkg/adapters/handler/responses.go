package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/ivanhernandez-dev/url-shortener/pkg/core/domain"
)

type ShortURLResponse struct {
	ShortURL    string     `json:"short_url"`
	ShortCode   string     `json:"short_code"`
	OriginalURL string     `json:"original_url"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

type URLStatsResponse struct {
	ShortCode      string     `json:"short_code"`
	OriginalURL    string     `json:"original_url"`
	AccessCount    int64      `json:"access_count"`
	CreatedAt      time.Time  `json:"created_at"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	LastAccessedAt *time.Time `json:"last_accessed_at,omitempty"`
}

type ErrorResponse struct {
	Status    int               `json:"status"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

func shortURL(baseURL, code string) string {
	return baseURL + "/r/" + code
}

func newShortURLResponse(link *domain.ShortLink, baseURL string) ShortURLResponse {
	return ShortURLResponse{
		ShortURL:    shortURL(baseURL, link.ShortCode),
		ShortCode:   link.ShortCode,
		OriginalURL: link.OriginalURL,
		CreatedAt:   link.CreatedAt,
		ExpiresAt:   link.ExpiresAt,
	}
}

func newURLStatsResponse(link *domain.ShortLink) URLStatsResponse {
	return URLStatsResponse{
		ShortCode:      link.ShortCode,
		OriginalURL:    link.OriginalURL,
		AccessCount:    link.AccessCount,
		CreatedAt:      link.CreatedAt,
		ExpiresAt:      link.ExpiresAt,
		LastAccessedAt: link.LastAccessedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Status: status, Message: message, Timestamp: time.Now()})
}

func writeValidationErrors(w http.ResponseWriter, errs map[string]string) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{
		Status:    http.StatusBadRequest,
		Message:   "Validation failed",
		Errors:    errs,
		Timestamp: time.Now(),
	})
}

// reportError forwards err to Sentry when the request carries a hub.
func reportError(r *http.Request, err error) {
	if hub := sentry.GetHubFromContext(r.Context()); hub != nil {
		hub.CaptureException(err)
	}
}
