package handler

import (
	"log"
	"net/http"

	"github.com/ivanhernandez-dev/url-shortener/pkg/config"
	"github.com/ivanhernandez-dev/url-shortener/pkg/ports"
)

// NewRouter creates and configures the main application router
func NewRouter(cfg *config.Config, service ports.LinkService, resolver ports.IdentityResolver, logger *log.Logger) http.Handler {
	h := NewHTTPHandler(service, cfg.BaseURL, logger)
	mw := NewMiddleware(resolver, logger)

	mux := http.NewServeMux()

	// Public Routes
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "ok"})
	})
	mux.HandleFunc("GET /r/{short_code}", h.Redirect)
	mux.HandleFunc("POST /api/v1/urls", h.Create)
	mux.HandleFunc("GET /api/v1/urls/{short_code}/stats", h.Stats)
	mux.HandleFunc("GET /api/v1/urls/{short_code}/qr", h.QRCode)
	mux.HandleFunc("DELETE /api/v1/urls/{short_code}", h.Delete)

	// Owner-scoped Routes
	protectedMux := http.NewServeMux()
	protectedMux.HandleFunc("GET /api/v1/my-urls", h.ListMine)
	protectedMux.HandleFunc("POST /api/v1/my-urls", h.CreateMine)
	protectedMux.HandleFunc("GET /api/v1/my-urls/{short_code}/stats", h.MyStats)
	protectedMux.HandleFunc("DELETE /api/v1/my-urls/{short_code}", h.DeleteMine)

	protected := mw.RequireIdentity(protectedMux)
	mux.Handle("/api/v1/my-urls", protected)
	mux.Handle("/api/v1/my-urls/", protected)

	return mw.RequestLogger(mw.Authenticate(mux))
}
