package redis

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/bnema/collab-lifecycle/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	addr := os.Getenv("CLC_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("CLC_TEST_REDIS_ADDR not set")
	}

	store, err := Connect(context.Background(), addr, "clc-test-"+uuid.NewString())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStoreIncrementStopsAtLimit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for want := 1; want <= 2; want++ {
		count, err := store.Increment(ctx, "acc-1", "2026-02", domain.ActionProposal, 2)
		require.NoError(t, err)
		assert.Equal(t, want, count)
	}

	_, err := store.Increment(ctx, "acc-1", "2026-02", domain.ActionProposal, 2)
	var quotaErr *domain.QuotaExceededError
	require.ErrorAs(t, err, &quotaErr)
	assert.Equal(t, 2, quotaErr.Count)

	count, err := store.Count(ctx, "acc-1", "2026-02", domain.ActionProposal)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	require.NoError(t, store.PurgeUsage(ctx, "acc-1"))
	count, err = store.Count(ctx, "acc-1", "2026-02", domain.ActionProposal)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestStoreConcurrentIncrementsNeverOvershoot(t *testing.T) {
	store := newTestStore(t)

	const (
		workers = 40
		limit   = 10
	)
	var wg sync.WaitGroup
	errCh := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Increment(context.Background(), "acc-1", "2026-02", domain.ActionRequest, limit)
			errCh <- err
		}()
	}
	wg.Wait()
	close(errCh)

	succeeded := 0
	for err := range errCh {
		if err == nil {
			succeeded++
			continue
		}
		require.ErrorIs(t, err, domain.ErrQuotaExceeded)
	}
	assert.Equal(t, limit, succeeded)
}

func TestFieldJoinsMonthAndAction(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "2026-02:request", field("2026-02", domain.ActionRequest))
	assert.Equal(t, "clc:usage:acc-1", NewStore(nil, " clc: ").key("acc-1"))
}
