package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ivanhernandez-dev/url-shortener/pkg/core/domain"
	"github.com/ivanhernandez-dev/url-shortener/pkg/ports"
)

// memoryRepo is a map-backed LinkRepository with failure hooks.
type memoryRepo struct {
	mu     sync.Mutex
	links  map[string]*domain.ShortLink
	nextID int64

	// racing holds codes that a concurrent writer claims between the
	// existence check and the insert.
	racing    map[string]bool
	createErr error
	readErr   error
	accessErr error
	deleteErr error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{links: map[string]*domain.ShortLink{}, racing: map[string]bool{}}
}

func (m *memoryRepo) Create(_ context.Context, link *domain.ShortLink) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	if m.racing[link.ShortCode] {
		delete(m.racing, link.ShortCode)
		m.nextID++
		m.links[link.ShortCode] = &domain.ShortLink{ID: m.nextID, ShortCode: link.ShortCode, OriginalURL: "https://winner.example"}
		return ports.ErrDuplicateCode
	}
	if _, ok := m.links[link.ShortCode]; ok {
		return ports.ErrDuplicateCode
	}
	m.nextID++
	link.ID = m.nextID
	stored := *link
	m.links[link.ShortCode] = &stored
	return nil
}

func (m *memoryRepo) GetByShortCode(_ context.Context, code string) (*domain.ShortLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return nil, m.readErr
	}
	link, ok := m.links[code]
	if !ok {
		return nil, nil
	}
	cp := *link
	return &cp, nil
}

func (m *memoryRepo) ExistsByShortCode(_ context.Context, code string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return false, m.readErr
	}
	_, ok := m.links[code]
	return ok, nil
}

func (m *memoryRepo) GetByShortCodeAndOwner(ctx context.Context, code string, ownerID uuid.UUID) (*domain.ShortLink, error) {
	link, err := m.GetByShortCode(ctx, code)
	if err != nil || link == nil || !link.OwnedBy(ownerID) {
		return nil, err
	}
	return link, nil
}

func (m *memoryRepo) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]domain.ShortLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return nil, m.readErr
	}
	var links []domain.ShortLink
	for _, l := range m.links {
		if l.OwnedBy(ownerID) {
			links = append(links, *l)
		}
	}
	sort.Slice(links, func(i, j int) bool { return links[i].ID < links[j].ID })
	return links, nil
}

func (m *memoryRepo) DeleteByShortCode(_ context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.links, code)
	return nil
}

func (m *memoryRepo) Save(_ context.Context, link *domain.ShortLink) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if stored, ok := m.links[link.ShortCode]; ok {
		stored.ExpiresAt = link.ExpiresAt
		stored.AccessCount = link.AccessCount
		stored.LastAccessedAt = link.LastAccessedAt
	}
	return nil
}

func (m *memoryRepo) RecordAccess(_ context.Context, code string, at time.Time) (*domain.ShortLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.accessErr != nil {
		return nil, m.accessErr
	}
	link, ok := m.links[code]
	if !ok {
		return nil, nil
	}
	link.AccessCount++
	link.LastAccessedAt = &at
	cp := *link
	return &cp, nil
}

func (m *memoryRepo) Dump(_ context.Context) ([]domain.ShortLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	links := make([]domain.ShortLink, 0, len(m.links))
	for _, l := range m.links {
		links = append(links, *l)
	}
	return links, nil
}

func (m *memoryRepo) Close() error { return nil }

var _ ports.LinkRepository = (*memoryRepo)(nil)

// sequenceGenerator hands out codes in order, repeating the last one.
type sequenceGenerator struct {
	mu    sync.Mutex
	codes []string
	calls int
}

func (g *sequenceGenerator) NewCode(_ context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	i := g.calls
	if i >= len(g.codes) {
		i = len(g.codes) - 1
	}
	g.calls++
	return g.codes[i], nil
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
