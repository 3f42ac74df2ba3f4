// Package gormstore stores links through GORM, for deployments backed by
// MySQL.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ivanhernandez-dev/url-shortener/pkg/core/domain"
	"github.com/ivanhernandez-dev/url-shortener/pkg/ports"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type linkRecord struct {
	ID             int64     `gorm:"primaryKey;autoIncrement"`
	ShortCode      string    `gorm:"size:64;uniqueIndex;not null"`
	OriginalURL    string    `gorm:"type:text;not null"`
	OwnerID        *string   `gorm:"size:36;index"`
	TenantID       *string   `gorm:"size:36;check:chk_links_tenant_owner,tenant_id IS NULL OR owner_id IS NOT NULL"`
	CreatedAt      time.Time `gorm:"not null"`
	ExpiresAt      *time.Time
	AccessCount    int64 `gorm:"not null;default:0"`
	LastAccessedAt *time.Time
}

func (linkRecord) TableName() string { return "links" }

type GormRepository struct {
	db *gorm.DB
}

// NewMySQLRepository opens a MySQL database. The DSN must enable parseTime.
func NewMySQLRepository(dsn string) (*GormRepository, error) {
	return Open(mysql.Open(dsn))
}

// Open connects through dialector and migrates the links table.
func Open(dialector gorm.Dialector) (*GormRepository, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&linkRecord{}); err != nil {
		return nil, fmt.Errorf("migrate links: %w", err)
	}
	return &GormRepository{db: db}, nil
}

func toRecord(link *domain.ShortLink) linkRecord {
	return linkRecord{
		ID:             link.ID,
		ShortCode:      link.ShortCode,
		OriginalURL:    link.OriginalURL,
		OwnerID:        uuidString(link.OwnerID),
		TenantID:       uuidString(link.TenantID),
		CreatedAt:      link.CreatedAt.UTC(),
		ExpiresAt:      utc(link.ExpiresAt),
		AccessCount:    link.AccessCount,
		LastAccessedAt: utc(link.LastAccessedAt),
	}
}

func (rec *linkRecord) toDomain() (*domain.ShortLink, error) {
	link := &domain.ShortLink{
		ID:             rec.ID,
		ShortCode:      rec.ShortCode,
		OriginalURL:    rec.OriginalURL,
		CreatedAt:      rec.CreatedAt,
		ExpiresAt:      rec.ExpiresAt,
		AccessCount:    rec.AccessCount,
		LastAccessedAt: rec.LastAccessedAt,
	}
	var err error
	if link.OwnerID, err = parseUUID(rec.OwnerID); err != nil {
		return nil, err
	}
	if link.TenantID, err = parseUUID(rec.TenantID); err != nil {
		return nil, err
	}
	return link, nil
}

func uuidString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

func parseUUID(s *string) (*uuid.UUID, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(*s)
	if err != nil {
		return nil, fmt.Errorf("parse uuid %q: %w", *s, err)
	}
	return &id, nil
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "Duplicate entry")
}

func (r *GormRepository) Create(ctx context.Context, link *domain.ShortLink) error {
	rec := toRecord(link)
	rec.ID = 0 // assigned by the database
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return ports.ErrDuplicateCode
		}
		return err
	}
	link.ID = rec.ID
	return nil
}

func (r *GormRepository) first(db *gorm.DB, query string, args ...interface{}) (*domain.ShortLink, error) {
	var rec linkRecord
	err := db.Where(query, args...).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec.toDomain()
}

func (r *GormRepository) GetByShortCode(ctx context.Context, code string) (*domain.ShortLink, error) {
	return r.first(r.db.WithContext(ctx), "short_code = ?", code)
}

func (r *GormRepository) ExistsByShortCode(ctx context.Context, code string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&linkRecord{}).Where("short_code = ?", code).Count(&n).Error
	return n > 0, err
}

func (r *GormRepository) GetByShortCodeAndOwner(ctx context.Context, code string, ownerID uuid.UUID) (*domain.ShortLink, error) {
	return r.first(r.db.WithContext(ctx), "short_code = ? AND owner_id = ?", code, ownerID.String())
}

func (r *GormRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.ShortLink, error) {
	var recs []linkRecord
	err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID.String()).Order("created_at DESC").Find(&recs).Error
	if err != nil {
		return nil, err
	}
	return toDomainList(recs)
}

func (r *GormRepository) DeleteByShortCode(ctx context.Context, code string) error {
	return r.db.WithContext(ctx).Where("short_code = ?", code).Delete(&linkRecord{}).Error
}

func (r *GormRepository) Save(ctx context.Context, link *domain.ShortLink) error {
	return r.db.WithContext(ctx).Model(&linkRecord{}).
		Where("short_code = ?", link.ShortCode).
		Updates(map[string]interface{}{
			"expires_at":       utc(link.ExpiresAt),
			"access_count":     link.AccessCount,
			"last_accessed_at": utc(link.LastAccessedAt),
		}).Error
}

func (r *GormRepository) RecordAccess(ctx context.Context, code string, at time.Time) (*domain.ShortLink, error) {
	var link *domain.ShortLink
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&linkRecord{}).
			Where("short_code = ?", code).
			Updates(map[string]interface{}{
				"access_count":     gorm.Expr("access_count + ?", 1),
				"last_accessed_at": at.UTC(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		var err error
		link, err = r.first(tx, "short_code = ?", code)
		return err
	})
	if err != nil {
		return nil, err
	}
	return link, nil
}

func (r *GormRepository) Dump(ctx context.Context) ([]domain.ShortLink, error) {
	var recs []linkRecord
	if err := r.db.WithContext(ctx).Order("id").Find(&recs).Error; err != nil {
		return nil, err
	}
	return toDomainList(recs)
}

func (r *GormRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func toDomainList(recs []linkRecord) ([]domain.ShortLink, error) {
	links := make([]domain.ShortLink, 0, len(recs))
	for i := range recs {
		link, err := recs[i].toDomain()
		if err != nil {
			return nil, err
		}
		links = append(links, *link)
	}
	return links, nil
}

var _ ports.LinkRepository = (*GormRepository)(nil)
