// Package repository selects a link store from a database URL.
package repository

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ivanhernandez-dev/url-shortener/pkg/adapters/repository/gormstore"
	"github.com/ivanhernandez-dev/url-shortener/pkg/adapters/repository/redisstore"
	"github.com/ivanhernandez-dev/url-shortener/pkg/adapters/repository/sqlite"
	"github.com/ivanhernandez-dev/url-shortener/pkg/core/domain"
	"github.com/ivanhernandez-dev/url-shortener/pkg/ports"
)

// Open returns the store matching dbURL:
//
//	redis://, rediss://   Redis
//	mysql://user:pw@tcp(host:3306)/db?parseTime=true   MySQL through GORM
//	anything else         SQLite file or Turso (libsql://, wss://)
func Open(ctx context.Context, dbURL string) (ports.LinkRepository, error) {
	switch {
	case strings.HasPrefix(dbURL, "redis://"), strings.HasPrefix(dbURL, "rediss://"):
		return redisstore.NewRedisRepository(ctx, dbURL)
	case strings.HasPrefix(dbURL, "mysql://"):
		return gormstore.NewMySQLRepository(strings.TrimPrefix(dbURL, "mysql://"))
	default:
		return sqlite.NewSQLiteRepository(dbURL)
	}
}

// WithTimeout bounds every call to repo by timeout. A non-positive timeout
// returns repo unchanged.
func WithTimeout(repo ports.LinkRepository, timeout time.Duration) ports.LinkRepository {
	if timeout <= 0 {
		return repo
	}
	return &timeoutRepository{next: repo, timeout: timeout}
}

type timeoutRepository struct {
	next    ports.LinkRepository
	timeout time.Duration
}

func (t *timeoutRepository) Create(ctx context.Context, link *domain.ShortLink) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Create(ctx, link)
}

func (t *timeoutRepository) GetByShortCode(ctx context.Context, code string) (*domain.ShortLink, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.GetByShortCode(ctx, code)
}

func (t *timeoutRepository) ExistsByShortCode(ctx context.Context, code string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.ExistsByShortCode(ctx, code)
}

func (t *timeoutRepository) GetByShortCodeAndOwner(ctx context.Context, code string, ownerID uuid.UUID) (*domain.ShortLink, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.GetByShortCodeAndOwner(ctx, code, ownerID)
}

func (t *timeoutRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.ShortLink, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.ListByOwner(ctx, ownerID)
}

func (t *timeoutRepository) DeleteByShortCode(ctx context.Context, code string) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.DeleteByShortCode(ctx, code)
}

func (t *timeoutRepository) Save(ctx context.Context, link *domain.ShortLink) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Save(ctx, link)
}

func (t *timeoutRepository) RecordAccess(ctx context.Context, code string, at time.Time) (*domain.ShortLink, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.RecordAccess(ctx, code, at)
}

// Dump is not bounded; exports scan the whole store.
func (t *timeoutRepository) Dump(ctx context.Context) ([]domain.ShortLink, error) {
	return t.next.Dump(ctx)
}

func (t *timeoutRepository) Close() error {
	return t.next.Close()
}

var _ ports.LinkRepository = (*timeoutRepository)(nil)
