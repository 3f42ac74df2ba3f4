package handler

import (
	"encoding/json"
	"log"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ivanhernandez-dev/url-shortener/pkg/core/domain"
	"github.com/ivanhernandez-dev/url-shortener/pkg/ports"
	"github.com/skip2/go-qrcode"
)

const (
	maxURLLength  = 2048
	defaultQRSize = 256
)

var aliasPattern = regexp.MustCompile(`^[A-Za-z0-9]{3,64}$`)

type HTTPHandler struct {
	service ports.LinkService
	baseURL string
	logger  *log.Logger
}

func NewHTTPHandler(service ports.LinkService, baseURL string, logger *log.Logger) *HTTPHandler {
	return &HTTPHandler{
		service: service,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

// CreateURLRequest payload
type CreateURLRequest struct {
	OriginalURL string     `json:"original_url"`
	CustomAlias string     `json:"custom_alias,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// validate checks the payload shape. A past expires_at is accepted; the link
// is stored and resolves as expired.
func (req *CreateURLRequest) validate() map[string]string {
	errs := map[string]string{}
	if strings.TrimSpace(req.OriginalURL) == "" {
		errs["original_url"] = "Original URL is required"
	} else if !isHTTPURL(req.OriginalURL) {
		errs["original_url"] = "Invalid URL format"
	}
	if req.CustomAlias != "" && !aliasPattern.MatchString(req.CustomAlias) {
		errs["custom_alias"] = "Alias must be 3-64 letters or digits"
	}
	return errs
}

func isHTTPURL(raw string) bool {
	if len(raw) > maxURLLength {
		return false
	}
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Create an anonymous link
func (h *HTTPHandler) Create(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, nil)
}

// CreateMine creates a link owned by the caller
func (h *HTTPHandler) CreateMine(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())
	h.create(w, r, identity)
}

func (h *HTTPHandler) create(w http.ResponseWriter, r *http.Request, owner *domain.Identity) {
	var req CreateURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if errs := req.validate(); len(errs) > 0 {
		writeValidationErrors(w, errs)
		return
	}

	link, err := h.service.Create(r.Context(), domain.CreateLinkRequest{
		OriginalURL: req.OriginalURL,
		Alias:       req.CustomAlias,
		ExpiresAt:   req.ExpiresAt,
		Owner:       owner,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, newShortURLResponse(link, h.baseURL))
}

// Redirect to original URL
func (h *HTTPHandler) Redirect(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("short_code")
	if code == "" {
		writeMessage(w, http.StatusBadRequest, "Short code missing")
		return
	}

	originalURL, err := h.service.Resolve(r.Context(), code)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	http.Redirect(w, r, originalURL, http.StatusFound)
}

// Stats for any link
func (h *HTTPHandler) Stats(w http.ResponseWriter, r *http.Request) {
	link, err := h.service.Stats(r.Context(), r.PathValue("short_code"), nil)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newURLStatsResponse(link))
}

// MyStats for a link owned by the caller
func (h *HTTPHandler) MyStats(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())
	link, err := h.service.Stats(r.Context(), r.PathValue("short_code"), &identity.UserID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newURLStatsResponse(link))
}

// Delete any link
func (h *HTTPHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), r.PathValue("short_code"), nil); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteMine deletes a link owned by the caller
func (h *HTTPHandler) DeleteMine(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())
	if err := h.service.Delete(r.Context(), r.PathValue("short_code"), &identity.UserID); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListMine lists the caller's links
func (h *HTTPHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())
	links, err := h.service.ListByOwner(r.Context(), identity.UserID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := make([]ShortURLResponse, 0, len(links))
	for i := range links {
		resp = append(resp, newShortURLResponse(&links[i], h.baseURL))
	}
	writeJSON(w, http.StatusOK, resp)
}

// QRCode renders the short URL of a link as a PNG
func (h *HTTPHandler) QRCode(w http.ResponseWriter, r *http.Request) {
	link, err := h.service.Stats(r.Context(), r.PathValue("short_code"), nil)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	size := defaultQRSize
	if s, err := strconv.Atoi(r.URL.Query().Get("size")); err == nil && s >= 64 && s <= 1024 {
		size = s
	}

	png, err := qrcode.Encode(shortURL(h.baseURL, link.ShortCode), qrcode.Medium, size)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case domain.IsNotFound(err):
		writeMessage(w, http.StatusNotFound, "URL not found: "+r.PathValue("short_code"))
	case domain.IsExpired(err):
		writeMessage(w, http.StatusGone, "URL has expired: "+r.PathValue("short_code"))
	case domain.IsAliasConflict(err):
		writeMessage(w, http.StatusConflict, "Custom alias already exists")
	default:
		h.logger.Printf("%s %s: %v", r.Method, r.URL.Path, err)
		reportError(r, err)
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
	}
}
