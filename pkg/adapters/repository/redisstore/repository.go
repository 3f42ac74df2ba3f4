// Package redisstore keeps links in Redis hashes.
//
// Layout:
//
//	link:{code}          hash with the link fields
//	links:id             counter used to assign link IDs
//	owner:{uuid}:links   set of codes owned by a user
package redisstore

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ivanhernandez-dev/url-shortener/pkg/core/domain"
	"github.com/ivanhernandez-dev/url-shortener/pkg/ports"
	"github.com/redis/go-redis/v9"
)

const (
	linkKeyPrefix = "link:"
	idCounterKey  = "links:id"
)

// createScript writes the hash only if the code is free; the EXISTS check
// and the write run atomically inside Redis.
var createScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	return 0
end
redis.call('HSET', KEYS[1], unpack(ARGV))
if KEYS[2] ~= '' then
	redis.call('SADD', KEYS[2], ARGV[2])
end
return 1
`)

var recordAccessScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return 0
end
redis.call('HINCRBY', KEYS[1], 'access_count', 1)
redis.call('HSET', KEYS[1], 'last_accessed_at', ARGV[1])
return 1
`)

// saveScript overwrites the mutable fields only while the hash exists, so a
// concurrent delete never leaves a partial record behind.
var saveScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return 0
end
redis.call('HSET', KEYS[1], 'expires_at', ARGV[1], 'access_count', ARGV[2], 'last_accessed_at', ARGV[3])
return 1
`)

type RedisRepository struct {
	client *redis.Client
}

// NewRedisRepository connects using a redis:// or rediss:// URL.
func NewRedisRepository(ctx context.Context, redisURL string) (*RedisRepository, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	return NewFromClient(ctx, redis.NewClient(opts))
}

func NewFromClient(ctx context.Context, client *redis.Client) (*RedisRepository, error) {
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return &RedisRepository{client: client}, nil
}

func linkKey(code string) string { return linkKeyPrefix + code }

func ownerKey(ownerID uuid.UUID) string { return "owner:" + ownerID.String() + ":links" }

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func formatUUID(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}

func parseUUID(s string) (*uuid.UUID, error) {
	if s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// fields flattens a link into HSET arguments. short_code must stay second
// because createScript reads it from ARGV[2].
func fields(link *domain.ShortLink) []interface{} {
	return []interface{}{
		"short_code", link.ShortCode,
		"id", strconv.FormatInt(link.ID, 10),
		"original_url", link.OriginalURL,
		"owner_id", formatUUID(link.OwnerID),
		"tenant_id", formatUUID(link.TenantID),
		"created_at", link.CreatedAt.UTC().Format(time.RFC3339Nano),
		"expires_at", formatTime(link.ExpiresAt),
		"access_count", strconv.FormatInt(link.AccessCount, 10),
		"last_accessed_at", formatTime(link.LastAccessedAt),
	}
}

func decode(h map[string]string) (*domain.ShortLink, error) {
	if len(h) == 0 {
		return nil, nil
	}
	var (
		link domain.ShortLink
		err  error
	)
	link.ShortCode = h["short_code"]
	link.OriginalURL = h["original_url"]
	if link.ID, err = strconv.ParseInt(h["id"], 10, 64); err != nil {
		return nil, fmt.Errorf("decode id: %w", err)
	}
	if link.AccessCount, err = strconv.ParseInt(h["access_count"], 10, 64); err != nil {
		return nil, fmt.Errorf("decode access_count: %w", err)
	}
	createdAt, err := parseTime(h["created_at"])
	if err != nil || createdAt == nil {
		return nil, fmt.Errorf("decode created_at %q: %v", h["created_at"], err)
	}
	link.CreatedAt = *createdAt
	if link.ExpiresAt, err = parseTime(h["expires_at"]); err != nil {
		return nil, fmt.Errorf("decode expires_at: %w", err)
	}
	if link.LastAccessedAt, err = parseTime(h["last_accessed_at"]); err != nil {
		return nil, fmt.Errorf("decode last_accessed_at: %w", err)
	}
	if link.OwnerID, err = parseUUID(h["owner_id"]); err != nil {
		return nil, fmt.Errorf("decode owner_id: %w", err)
	}
	if link.TenantID, err = parseUUID(h["tenant_id"]); err != nil {
		return nil, fmt.Errorf("decode tenant_id: %w", err)
	}
	return &link, nil
}

func (r *RedisRepository) Create(ctx context.Context, link *domain.ShortLink) error {
	id, err := r.client.Incr(ctx, idCounterKey).Result()
	if err != nil {
		return err
	}

	stored := *link
	stored.ID = id
	owner := ""
	if link.OwnerID != nil {
		owner = ownerKey(*link.OwnerID)
	}

	created, err := createScript.Run(ctx, r.client, []string{linkKey(link.ShortCode), owner}, fields(&stored)...).Int()
	if err != nil {
		return err
	}
	if created == 0 {
		return ports.ErrDuplicateCode
	}
	link.ID = id
	return nil
}

func (r *RedisRepository) GetByShortCode(ctx context.Context, code string) (*domain.ShortLink, error) {
	h, err := r.client.HGetAll(ctx, linkKey(code)).Result()
	if err != nil {
		return nil, err
	}
	return decode(h)
}

func (r *RedisRepository) ExistsByShortCode(ctx context.Context, code string) (bool, error) {
	n, err := r.client.Exists(ctx, linkKey(code)).Result()
	return n > 0, err
}

func (r *RedisRepository) GetByShortCodeAndOwner(ctx context.Context, code string, ownerID uuid.UUID) (*domain.ShortLink, error) {
	link, err := r.GetByShortCode(ctx, code)
	if err != nil || link == nil {
		return nil, err
	}
	if !link.OwnedBy(ownerID) {
		return nil, nil
	}
	return link, nil
}

func (r *RedisRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.ShortLink, error) {
	codes, err := r.client.SMembers(ctx, ownerKey(ownerID)).Result()
	if err != nil {
		return nil, err
	}
	return r.getMany(ctx, codes)
}

func (r *RedisRepository) DeleteByShortCode(ctx context.Context, code string) error {
	owner, err := r.client.HGet(ctx, linkKey(code), "owner_id").Result()
	if err != nil && err != redis.Nil {
		return err
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, linkKey(code))
		if owner != "" {
			pipe.SRem(ctx, "owner:"+owner+":links", code)
		}
		return nil
	})
	return err
}

func (r *RedisRepository) Save(ctx context.Context, link *domain.ShortLink) error {
	return saveScript.Run(ctx, r.client, []string{linkKey(link.ShortCode)},
		formatTime(link.ExpiresAt),
		strconv.FormatInt(link.AccessCount, 10),
		formatTime(link.LastAccessedAt),
	).Err()
}

func (r *RedisRepository) RecordAccess(ctx context.Context, code string, at time.Time) (*domain.ShortLink, error) {
	updated, err := recordAccessScript.Run(ctx, r.client, []string{linkKey(code)}, formatTime(&at)).Int()
	if err != nil {
		return nil, err
	}
	if updated == 0 {
		return nil, nil
	}
	return r.GetByShortCode(ctx, code)
}

func (r *RedisRepository) Dump(ctx context.Context) ([]domain.ShortLink, error) {
	var codes []string
	iter := r.client.Scan(ctx, 0, linkKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		codes = append(codes, strings.TrimPrefix(iter.Val(), linkKeyPrefix))
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return r.getMany(ctx, codes)
}

func (r *RedisRepository) Close() error {
	return r.client.Close()
}

func (r *RedisRepository) getMany(ctx context.Context, codes []string) ([]domain.ShortLink, error) {
	if len(codes) == 0 {
		return []domain.ShortLink{}, nil
	}
	cmds := make([]*redis.MapStringStringCmd, len(codes))
	_, err := r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, code := range codes {
			cmds[i] = pipe.HGetAll(ctx, linkKey(code))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	links := make([]domain.ShortLink, 0, len(codes))
	for _, cmd := range cmds {
		link, err := decode(cmd.Val())
		if err != nil {
			return nil, err
		}
		// Deleted between listing and fetching.
		if link == nil {
			continue
		}
		links = append(links, *link)
	}
	return links, nil
}

var _ ports.LinkRepository = (*RedisRepository)(nil)
