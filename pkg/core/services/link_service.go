package services

import (
	"context"
	"errors"
	"io"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/ivanhernandez-dev/url-shortener/pkg/core/domain"
	"github.com/ivanhernandez-dev/url-shortener/pkg/ports"
)

const defaultMaxAttempts = 10

type LinkService struct {
	repo        ports.LinkRepository
	resolver    *UniquenessResolver
	logger      *log.Logger
	now         func() time.Time
	maxAttempts int
}

type Option func(*LinkService)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *LinkService) { s.now = now }
}

func WithLogger(logger *log.Logger) Option {
	return func(s *LinkService) { s.logger = logger }
}

// WithMaxAttempts bounds both the generate-and-check loop and the number of
// inserts retried after losing a uniqueness race.
func WithMaxAttempts(n int) Option {
	return func(s *LinkService) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

func NewLinkService(repo ports.LinkRepository, gen CodeGenerator, opts ...Option) *LinkService {
	s := &LinkService{
		repo:        repo,
		logger:      log.New(io.Discard, "", 0),
		now:         time.Now,
		maxAttempts: defaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.resolver = NewUniquenessResolver(repo, gen, s.maxAttempts)
	return s
}

func (s *LinkService) Create(ctx context.Context, req domain.CreateLinkRequest) (*domain.ShortLink, error) {
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		code, err := s.resolver.Resolve(ctx, req.Alias)
		if err != nil {
			return nil, s.logFailure("create", err)
		}

		link := &domain.ShortLink{
			ShortCode:   code,
			OriginalURL: req.OriginalURL,
			CreatedAt:   s.now(),
			ExpiresAt:   req.ExpiresAt,
			AccessCount: 0,
		}
		if req.Owner != nil {
			ownerID := req.Owner.UserID
			link.OwnerID = &ownerID
			if req.Owner.TenantID != nil {
				tenantID := *req.Owner.TenantID
				link.TenantID = &tenantID
			}
		}

		err = s.repo.Create(ctx, link)
		if err == nil {
			return link, nil
		}
		if !errors.Is(err, ports.ErrDuplicateCode) {
			return nil, s.logFailure("create", domain.NewPersistenceError("insert link", err))
		}
		// Another writer took the code between the check and the insert.
		if req.Alias != "" {
			return nil, domain.ErrAliasConflict
		}
		s.logger.Printf("short code %q taken concurrently, retrying (attempt %d/%d)", code, attempt, s.maxAttempts)
	}
	return nil, s.logFailure("create", domain.NewPersistenceError("insert link", errCodeSpaceExhausted))
}

func (s *LinkService) Resolve(ctx context.Context, code string) (string, error) {
	link, err := s.repo.GetByShortCode(ctx, code)
	if err != nil {
		return "", s.logFailure("resolve", domain.NewPersistenceError("find link", err))
	}
	if link == nil {
		return "", domain.ErrNotFound
	}

	now := s.now()
	if link.IsExpired(now) {
		return "", domain.ErrExpired
	}

	updated, err := s.repo.RecordAccess(ctx, code, now)
	if err != nil {
		return "", s.logFailure("resolve", domain.NewPersistenceError("record access", err))
	}
	if updated == nil {
		// Deleted between the read and the increment.
		return "", domain.ErrNotFound
	}
	return link.OriginalURL, nil
}

func (s *LinkService) Stats(ctx context.Context, code string, ownerID *uuid.UUID) (*domain.ShortLink, error) {
	link, err := s.find(ctx, code, ownerID)
	if err != nil {
		return nil, s.logFailure("stats", err)
	}
	return link, nil
}

func (s *LinkService) Delete(ctx context.Context, code string, ownerID *uuid.UUID) error {
	if ownerID == nil {
		exists, err := s.repo.ExistsByShortCode(ctx, code)
		if err != nil {
			return s.logFailure("delete", domain.NewPersistenceError("check link", err))
		}
		if !exists {
			return domain.ErrNotFound
		}
	} else if _, err := s.find(ctx, code, ownerID); err != nil {
		return s.logFailure("delete", err)
	}

	if err := s.repo.DeleteByShortCode(ctx, code); err != nil {
		return s.logFailure("delete", domain.NewPersistenceError("delete link", err))
	}
	return nil
}

func (s *LinkService) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.ShortLink, error) {
	links, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, s.logFailure("list", domain.NewPersistenceError("list links", err))
	}
	if links == nil {
		links = []domain.ShortLink{}
	}
	return links, nil
}

// find looks a link up by code, restricted to ownerID when given. A link
// owned by someone else is reported exactly like a missing one.
func (s *LinkService) find(ctx context.Context, code string, ownerID *uuid.UUID) (*domain.ShortLink, error) {
	var (
		link *domain.ShortLink
		err  error
	)
	if ownerID == nil {
		link, err = s.repo.GetByShortCode(ctx, code)
	} else {
		link, err = s.repo.GetByShortCodeAndOwner(ctx, code, *ownerID)
	}
	if err != nil {
		return nil, domain.NewPersistenceError("find link", err)
	}
	if link == nil {
		return nil, domain.ErrNotFound
	}
	return link, nil
}

func (s *LinkService) logFailure(op string, err error) error {
	var perr *domain.PersistenceError
	if errors.As(err, &perr) {
		s.logger.Printf("%s failed: %s: %v", op, perr.Op, perr.Err)
	}
	return err
}

var _ ports.LinkService = (*LinkService)(nil)
