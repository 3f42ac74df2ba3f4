package ports

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/ivanhernandez-dev/url-shortener/pkg/core/domain"
)

// ErrDuplicateCode is returned by LinkRepository.Create when the short code
// violates the store's uniqueness constraint.
var ErrDuplicateCode = errors.New("short code already stored")

// LinkRepository defines storage operations for links
type LinkRepository interface {
	// Create inserts link and sets its ID. Returns ErrDuplicateCode when the code is taken.
	Create(ctx context.Context, link *domain.ShortLink) error
	// GetByShortCode returns nil, nil when the code does not exist.
	GetByShortCode(ctx context.Context, code string) (*domain.ShortLink, error)
	ExistsByShortCode(ctx context.Context, code string) (bool, error)
	// GetByShortCodeAndOwner returns nil, nil unless the code exists and belongs to ownerID.
	GetByShortCodeAndOwner(ctx context.Context, code string, ownerID uuid.UUID) (*domain.ShortLink, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.ShortLink, error)
	DeleteByShortCode(ctx context.Context, code string) error // Idempotent
	// Save overwrites the mutable fields of the stored record with the same code.
	Save(ctx context.Context, link *domain.ShortLink) error

	// RecordAccess atomically increments the access count and stamps the
	// access time. Returns nil, nil when the code does not exist.
	RecordAccess(ctx context.Context, code string, at time.Time) (*domain.ShortLink, error)

	Dump(ctx context.Context) ([]domain.ShortLink, error) // For migration
	Close() error
}

// LinkService defines the business logic operations
type LinkService interface {
	Create(ctx context.Context, req domain.CreateLinkRequest) (*domain.ShortLink, error)
	Resolve(ctx context.Context, code string) (string, error)
	// Stats and Delete are owner-scoped when ownerID is non-nil.
	Stats(ctx context.Context, code string, ownerID *uuid.UUID) (*domain.ShortLink, error)
	Delete(ctx context.Context, code string, ownerID *uuid.UUID) error
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.ShortLink, error)
}

// IdentityResolver turns a bearer token into a caller identity.
// A nil identity with a nil error means the token is not active.
type IdentityResolver interface {
	Resolve(ctx context.Context, token string) (*domain.Identity, error)
}
