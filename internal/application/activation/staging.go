package activation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tapcard-api/internal/domain"
)

// Staging holds deferred claim intents keyed by a client-held claim ticket.
// Peek on a missing or expired ticket returns an error wrapping domain.ErrNotFound.
type Staging interface {
	Stage(ctx context.Context, ticket string, intent domain.DeferredClaimIntent) error
	Peek(ctx context.Context, ticket string) (*domain.DeferredClaimIntent, error)
	Clear(ctx context.Context, ticket string) error
}

type memoryEntry struct {
	intent    domain.DeferredClaimIntent
	expiresAt time.Time
}

// MemoryStaging is a process-local Staging used in development and tests.
type MemoryStaging struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]memoryEntry
}

func NewMemoryStaging(ttl time.Duration) *MemoryStaging {
	return &MemoryStaging{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]memoryEntry),
	}
}

func (m *MemoryStaging) Stage(_ context.Context, ticket string, intent domain.DeferredClaimIntent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.evictExpired()
	m.entries[ticket] = memoryEntry{intent: intent, expiresAt: m.now().Add(m.ttl)}
	return nil
}

func (m *MemoryStaging) Peek(_ context.Context, ticket string) (*domain.DeferredClaimIntent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[ticket]
	if !ok || !m.now().Before(e.expiresAt) {
		delete(m.entries, ticket)
		return nil, fmt.Errorf("claim intent not found: %w", domain.ErrNotFound)
	}
	intent := e.intent
	return &intent, nil
}

func (m *MemoryStaging) Clear(_ context.Context, ticket string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, ticket)
	return nil
}

// evictExpired must be called with mu held.
func (m *MemoryStaging) evictExpired() {
	now := m.now()
	for k, e := range m.entries {
		if !now.Before(e.expiresAt) {
			delete(m.entries, k)
		}
	}
}
