package activation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tapcard-api/internal/domain"
)

func TestVerify_BadFormat_NeverTouchesStore(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, NewMemoryStaging(time.Hour), nil)

	for _, raw := range []string{"", "CARD-", "CARD-12345", "CARD-1234567", "CARX-123456", "CARD-12345!", "CARD 123456"} {
		_, err := svc.Verify(context.Background(), raw)
		assert.ErrorIs(t, err, domain.ErrBadFormat, "input %q", raw)
	}
	assert.Equal(t, 0, store.reads)
}

func TestVerify_NormalizesInput(t *testing.T) {
	store := newMemStore()
	store.seed(testCode)
	rec, err := newTestService(store, NewMemoryStaging(time.Hour), nil).Verify(context.Background(), "  card-7k2q9z\n")
	require.NoError(t, err)
	assert.Equal(t, testCode, rec.ActivationCode)
}

func TestVerify_UnknownAndClaimed_Indistinguishable(t *testing.T) {
	store := newMemStore()
	store.seed(testCode)
	svc := newTestService(store, NewMemoryStaging(time.Hour), nil)
	ctx := context.Background()
	_, err := svc.ClaimForUser(ctx, testCode, "u1")
	require.NoError(t, err)

	_, errClaimed := svc.Verify(ctx, testCode)
	_, errUnknown := svc.Verify(ctx, "CARD-000000")

	assert.Equal(t, domain.ErrNotClaimable, errClaimed)
	assert.Equal(t, domain.ErrNotClaimable, errUnknown)
	assert.Equal(t, errClaimed.Error(), errUnknown.Error())
}

func TestVerify_IsReadOnly(t *testing.T) {
	store := newMemStore()
	store.seed(testCode)
	svc := newTestService(store, NewMemoryStaging(time.Hour), nil)
	before := store.writeCount()

	for i := 0; i < 3; i++ {
		_, err := svc.Verify(context.Background(), testCode)
		require.NoError(t, err)
	}
	assert.Equal(t, before, store.writeCount())
	assert.Equal(t, domain.ActivationUnclaimed, store.record(testCode).Status)
}

func TestVerify_StoreError_IsNotNotClaimable(t *testing.T) {
	store := newMemStore()
	store.findErr = errors.New("timeout")
	_, err := newTestService(store, NewMemoryStaging(time.Hour), nil).Verify(context.Background(), testCode)
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrNotClaimable)
}
