package domain

import (
	"time"

	"github.com/google/uuid"
)

// ShortLink represents a shortened URL
type ShortLink struct {
	ID             int64      `json:"id"`
	ShortCode      string     `json:"short_code"`
	OriginalURL    string     `json:"original_url"`
	OwnerID        *uuid.UUID `json:"owner_id,omitempty"`
	TenantID       *uuid.UUID `json:"tenant_id,omitempty"` // only set together with OwnerID
	CreatedAt      time.Time  `json:"created_at"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	AccessCount    int64      `json:"access_count"`
	LastAccessedAt *time.Time `json:"last_accessed_at,omitempty"`
}

// IsExpired reports whether the link can no longer be resolved at now.
// Links without an expiry never expire.
func (l *ShortLink) IsExpired(now time.Time) bool {
	return l.ExpiresAt != nil && now.After(*l.ExpiresAt)
}

// OwnedBy reports whether the link belongs to ownerID.
func (l *ShortLink) OwnedBy(ownerID uuid.UUID) bool {
	return l.OwnerID != nil && *l.OwnerID == ownerID
}

// Identity is the caller resolved from a bearer token.
type Identity struct {
	UserID   uuid.UUID  `json:"user_id"`
	TenantID *uuid.UUID `json:"tenant_id,omitempty"`
}

// CreateLinkRequest carries the inputs of a create operation.
// A nil Owner creates an anonymous link.
type CreateLinkRequest struct {
	OriginalURL string
	Alias       string
	ExpiresAt   *time.Time
	Owner       *Identity
}
