package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/bnema/collab-lifecycle/internal/domain"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()

	config := viper.New()
	config.Set("store.sqlite_path", filepath.Join(t.TempDir(), "lifecycle.db"))

	repo, err := NewRepository(config)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestRepositoryRoundTrip(t *testing.T) {
	t.Parallel()

	repo := newTestRepository(t)
	ctx := context.Background()
	now := time.Date(2026, 2, 14, 11, 0, 0, 0, time.UTC)
	expiry := domain.EndOfDayUTC(now.AddDate(0, 1, 0))

	account := domain.NewAccount("acc-1", "brand@example.com", domain.KindCompany, now)
	account.Status = domain.StatusActive
	account.Plan = domain.PlanEnterprise
	account.PlanExpiry = &expiry
	account.LastLoginAt = domain.TimePtr(now.Add(123 * time.Nanosecond))
	account.Profile = domain.Profile{DisplayName: "Brand", WebsiteURL: "https://brand.example", Categories: []string{"food"}}

	require.NoError(t, repo.Create(ctx, account))
	require.ErrorIs(t, repo.Create(ctx, account), domain.ErrAccountExists)

	got, err := repo.GetByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, account, got)

	accounts, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.Account{account}, accounts)

	_, err = repo.GetByID(ctx, "missing")
	require.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestRepositoryMutateRollsBackOnError(t *testing.T) {
	t.Parallel()

	repo := newTestRepository(t)
	ctx := context.Background()
	now := time.Date(2026, 2, 14, 11, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Create(ctx, domain.NewAccount("acc-1", "a@example.com", domain.KindInfluencer, now)))

	stop := errors.New("stop")
	_, err := repo.Mutate(ctx, "acc-1", func(account *domain.Account) error {
		account.Status = domain.StatusActive
		return stop
	})
	require.ErrorIs(t, err, stop)

	got, err := repo.GetByID(ctx, "acc-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusProfilePending, got.Status)

	updated, err := repo.Mutate(ctx, "acc-1", func(account *domain.Account) error {
		account.Status = domain.StatusPending
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, updated.Status)
}

func TestRepositoryConcurrentIncrementsNeverOvershoot(t *testing.T) {
	t.Parallel()

	repo := newTestRepository(t)

	const (
		workers = 25
		limit   = 10
	)
	start := make(chan struct{})
	errCh := make(chan error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := repo.Increment(context.Background(), "acc-1", "2026-02", domain.ActionRequest, limit)
			errCh <- err
		}()
	}
	close(start)
	wg.Wait()
	close(errCh)

	succeeded := 0
	for err := range errCh {
		if err == nil {
			succeeded++
			continue
		}
		var quotaErr *domain.QuotaExceededError
		require.ErrorAs(t, err, &quotaErr)
		assert.Equal(t, limit, quotaErr.Count)
	}
	assert.Equal(t, limit, succeeded)

	count, err := repo.Count(context.Background(), "acc-1", "2026-02", domain.ActionRequest)
	require.NoError(t, err)
	assert.Equal(t, limit, count)
}

func TestRepositoryDeleteRemovesUsage(t *testing.T) {
	t.Parallel()

	repo := newTestRepository(t)
	ctx := context.Background()
	now := time.Date(2026, 2, 14, 11, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Create(ctx, domain.NewAccount("acc-1", "a@example.com", domain.KindInfluencer, now)))
	_, err := repo.Increment(ctx, "acc-1", "2026-02", domain.ActionRequest, domain.Unlimited)
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, "acc-1", nil))
	require.ErrorIs(t, repo.Delete(ctx, "acc-1", nil), domain.ErrAccountNotFound)

	count, err := repo.Count(ctx, "acc-1", "2026-02", domain.ActionRequest)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestRepositorySettingsAndUpgradeRequests(t *testing.T) {
	t.Parallel()

	repo := newTestRepository(t)
	ctx := context.Background()
	now := time.Date(2026, 2, 14, 11, 0, 0, 0, time.UTC)

	settings, err := repo.GetPlanSettings(ctx, domain.KindInfluencer)
	require.NoError(t, err)
	assert.Nil(t, settings.MonthlyLimit)

	limit := 4
	require.NoError(t, repo.SavePlanSettings(ctx, domain.PlanSettings{Kind: domain.KindInfluencer, MonthlyLimit: &limit}))
	settings, err = repo.GetPlanSettings(ctx, domain.KindInfluencer)
	require.NoError(t, err)
	assert.Equal(t, 4, settings.EffectiveLimit())

	request := domain.UpgradeRequest{ID: "up-1", AccountID: "acc-1", DepositorName: "KIM", Status: domain.UpgradePending, CreatedAt: now}
	require.NoError(t, repo.CreateUpgradeRequest(ctx, request))

	pending, err := repo.ListUpgradeRequests(ctx, domain.UpgradePending)
	require.NoError(t, err)
	assert.Equal(t, []domain.UpgradeRequest{request}, pending)

	request.Status = domain.UpgradeCompleted
	request.CompletedAt = domain.TimePtr(now.Add(time.Hour))
	require.NoError(t, repo.SaveUpgradeRequest(ctx, request))

	got, err := repo.GetUpgradeRequest(ctx, "up-1")
	require.NoError(t, err)
	assert.Equal(t, request, got)

	all, err := repo.ListUpgradeRequests(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
