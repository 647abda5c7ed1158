package redisinfra

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/tapcard-api/internal/domain"
)

// ClaimStaging keeps deferred claim intents keyed by the visitor's claim
// ticket until signup or login completes. Entries expire after ttl.
type ClaimStaging struct {
	kv  KV
	ttl time.Duration
}

func NewClaimStaging(kv KV, ttl time.Duration) *ClaimStaging {
	return &ClaimStaging{kv: kv, ttl: ttl}
}

func intentKey(ticket string) string {
	return fmt.Sprintf("claim_intent:%s", ticket)
}

// Stage overwrites any intent already held under ticket.
func (s *ClaimStaging) Stage(ctx context.Context, ticket string, intent domain.DeferredClaimIntent) error {
	data, err := json.Marshal(intent)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, intentKey(ticket), data, s.ttl)
}

func (s *ClaimStaging) Peek(ctx context.Context, ticket string) (*domain.DeferredClaimIntent, error) {
	data, err := s.kv.Get(ctx, intentKey(ticket))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("claim intent not found: %w", domain.ErrNotFound)
		}
		return nil, err
	}
	var intent domain.DeferredClaimIntent
	if err := json.Unmarshal([]byte(data), &intent); err != nil {
		return nil, fmt.Errorf("decode claim intent: %w", err)
	}
	return &intent, nil
}

func (s *ClaimStaging) Clear(ctx context.Context, ticket string) error {
	return s.kv.Del(ctx, intentKey(ticket))
}
