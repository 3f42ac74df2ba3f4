package redisstore

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ivanhernandez-dev/url-shortener/pkg/core/domain"
	"github.com/ivanhernandez-dev/url-shortener/pkg/ports"
	"github.com/redis/go-redis/v9"
)

func TestFieldsDecode(t *testing.T) {
	owner := uuid.New()
	now := time.Now().UTC()
	link := &domain.ShortLink{
		ID:          7,
		ShortCode:   "abc1234",
		OriginalURL: "https://example.com",
		OwnerID:     &owner,
		CreatedAt:   now,
		AccessCount: 5,
	}

	args := fields(link)
	if args[1] != "abc1234" {
		t.Fatalf("short_code must be the first value, got %v", args[1])
	}

	h := map[string]string{}
	for i := 0; i < len(args); i += 2 {
		h[args[i].(string)] = args[i+1].(string)
	}
	got, err := decode(h)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != 7 || got.AccessCount != 5 || *got.OwnerID != owner || !got.CreatedAt.Equal(now) {
		t.Errorf("unexpected link %+v", got)
	}
	if got.ExpiresAt != nil || got.TenantID != nil {
		t.Errorf("empty fields must decode as nil: %+v", got)
	}

	if missing, err := decode(map[string]string{}); missing != nil || err != nil {
		t.Errorf("expected nil, nil for empty hash")
	}
}

// newTestRepo connects to REDIS_ADDR and skips the test when it is unset.
func newTestRepo(t *testing.T) *RedisRepository {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	repo, err := NewFromClient(context.Background(), redis.NewClient(&redis.Options{Addr: addr}))
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestRedisLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	owner := uuid.New()
	code := "t-" + uuid.NewString()[:8]
	t.Cleanup(func() { _ = repo.DeleteByShortCode(ctx, code) })

	link := &domain.ShortLink{ShortCode: code, OriginalURL: "https://a.example", OwnerID: &owner, CreatedAt: time.Now()}
	if err := repo.Create(ctx, link); err != nil {
		t.Fatal(err)
	}
	if err := repo.Create(ctx, &domain.ShortLink{ShortCode: code, OriginalURL: "https://b.example", CreatedAt: time.Now()}); !errors.Is(err, ports.ErrDuplicateCode) {
		t.Fatalf("expected ErrDuplicateCode, got %v", err)
	}

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.RecordAccess(ctx, code, time.Now()); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	got, err := repo.GetByShortCodeAndOwner(ctx, code, owner)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.AccessCount != n {
		t.Fatalf("expected %d accesses, got %+v", n, got)
	}

	links, err := repo.ListByOwner(ctx, owner)
	if err != nil || len(links) != 1 {
		t.Fatalf("expected 1 owned link, got %d (%v)", len(links), err)
	}

	if err := repo.DeleteByShortCode(ctx, code); err != nil {
		t.Fatal(err)
	}
	links, _ = repo.ListByOwner(ctx, owner)
	if len(links) != 0 {
		t.Error("owner index not cleaned up")
	}
	if missing, err := repo.RecordAccess(ctx, code, time.Now()); missing != nil || err != nil {
		t.Errorf("expected nil, nil after delete, got %v, %v", missing, err)
	}
}

func TestRedisSaveMissingCode(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	code := "t-" + uuid.NewString()[:8]
	t.Cleanup(func() { _ = repo.DeleteByShortCode(ctx, code) })

	at := time.Now()
	if err := repo.Save(ctx, &domain.ShortLink{ShortCode: code, AccessCount: 9, LastAccessedAt: &at}); err != nil {
		t.Fatal(err)
	}
	if exists, _ := repo.ExistsByShortCode(ctx, code); exists {
		t.Fatal("Save must not create a record for a missing code")
	}

	link := &domain.ShortLink{ShortCode: code, OriginalURL: "https://a.example", CreatedAt: time.Now()}
	if err := repo.Create(ctx, link); err != nil {
		t.Fatal(err)
	}
	link.AccessCount = 9
	link.LastAccessedAt = &at
	if err := repo.Save(ctx, link); err != nil {
		t.Fatal(err)
	}
	got, err := repo.GetByShortCode(ctx, code)
	if err != nil {
		t.Fatal(err)
	}
	if got.AccessCount != 9 || got.LastAccessedAt == nil || got.OriginalURL != "https://a.example" {
		t.Errorf("unexpected link after save %+v", got)
	}
}
