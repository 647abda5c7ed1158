package redisinfra

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tapcard-api/internal/domain"
)

type fakeKV struct {
	data map[string]string
	ttls map[string]time.Duration
	err  error
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeKV) Ping(context.Context) error { return f.err }
func (f *fakeKV) Close() error               { return nil }

func (f *fakeKV) Set(_ context.Context, key string, value interface{}, exp time.Duration) error {
	if f.err != nil {
		return f.err
	}
	f.data[key] = string(value.([]byte))
	f.ttls[key] = exp
	return nil
}

func (f *fakeKV) Get(_ context.Context, key string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	v, ok := f.data[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (f *fakeKV) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(f.data, k)
	}
	return f.err
}

func TestClaimStaging_StagePeekClear(t *testing.T) {
	kv := newFakeKV()
	s := NewClaimStaging(kv, time.Hour)
	ctx := context.Background()
	intent := domain.DeferredClaimIntent{ActivationCode: "CARD-ABC123", RecordID: "rec1", StagedAt: time.Now().UTC().Truncate(time.Second)}

	require.NoError(t, s.Stage(ctx, "t1", intent))
	assert.Equal(t, time.Hour, kv.ttls["claim_intent:t1"])

	got, err := s.Peek(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, intent.ActivationCode, got.ActivationCode)
	assert.Equal(t, intent.RecordID, got.RecordID)
	assert.True(t, intent.StagedAt.Equal(got.StagedAt))

	// Peek does not consume.
	_, err = s.Peek(ctx, "t1")
	require.NoError(t, err)

	require.NoError(t, s.Clear(ctx, "t1"))
	_, err = s.Peek(ctx, "t1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestClaimStaging_StageOverwrites(t *testing.T) {
	s := NewClaimStaging(newFakeKV(), time.Hour)
	ctx := context.Background()

	require.NoError(t, s.Stage(ctx, "t1", domain.DeferredClaimIntent{ActivationCode: "CARD-AAAAAA", RecordID: "a"}))
	require.NoError(t, s.Stage(ctx, "t1", domain.DeferredClaimIntent{ActivationCode: "CARD-BBBBBB", RecordID: "b"}))

	got, err := s.Peek(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "CARD-BBBBBB", got.ActivationCode)
}

func TestClaimStaging_BackendError(t *testing.T) {
	kv := newFakeKV()
	kv.err = errors.New("connection refused")
	s := NewClaimStaging(kv, time.Hour)

	_, err := s.Peek(context.Background(), "t1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
}

func TestClaimStaging_CorruptPayload(t *testing.T) {
	kv := newFakeKV()
	kv.data["claim_intent:t1"] = "{not json"
	_, err := NewClaimStaging(kv, time.Hour).Peek(context.Background(), "t1")
	assert.ErrorContains(t, err, "decode claim intent")
}
