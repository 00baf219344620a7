package application

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	tomlrepo "github.com/bnema/collab-lifecycle/internal/adapters/repo/toml"
	"github.com/bnema/collab-lifecycle/internal/domain"
	"github.com/bnema/collab-lifecycle/internal/ports"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var baseNow = time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock(now time.Time) *fixedClock {
	return &fixedClock{now: now}
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

func newTestStore(t *testing.T) *tomlrepo.Repository {
	t.Helper()

	config := viper.New()
	config.Set("store.path", filepath.Join(t.TempDir(), "lifecycle.toml"))
	repo, err := tomlrepo.NewRepository(config)
	require.NoError(t, err)
	return repo
}

func seed(t *testing.T, store ports.AccountStore, accounts ...domain.Account) {
	t.Helper()
	for _, account := range accounts {
		require.NoError(t, store.Create(context.Background(), account))
	}
}

func mustGet(t *testing.T, store ports.AccountStore, id domain.AccountID) domain.Account {
	t.Helper()
	account, err := store.GetByID(context.Background(), id)
	require.NoError(t, err)
	return account
}

// accountIn returns an account resting in status with the fields that status
// requires.
func accountIn(id domain.AccountID, kind domain.Kind, status domain.Status) domain.Account {
	account := domain.NewAccount(id, string(id)+"@example.com", kind, baseNow.AddDate(-2, 0, 0))
	account.Status = status
	account.LastLoginAt = domain.TimePtr(baseNow.AddDate(0, -1, 0))
	if status == domain.StatusDeletionRequested {
		account.DeletionRequestedAt = domain.TimePtr(baseNow.AddDate(0, 0, -1))
	}
	return account
}

func adminAccount(id domain.AccountID) domain.Account {
	account := accountIn(id, domain.KindCompany, domain.StatusActive)
	account.Role = domain.RoleAdmin
	return account
}

func activeAccount(id domain.AccountID, kind domain.Kind) domain.Account {
	return accountIn(id, kind, domain.StatusActive)
}

func intPtr(v int) *int {
	return &v
}

func mockAnyContext() interface{} {
	return mock.Anything
}

var errStoreTimeout = errors.New("store timeout")

// flakyStore fails the first failures calls of Increment and Mutate with a
// transient error before delegating.
type flakyStore struct {
	ports.Store
	failures int32
	calls    atomic.Int32
}

func (f *flakyStore) fail() bool {
	return f.calls.Add(1) <= f.failures
}

func (f *flakyStore) Increment(ctx context.Context, id domain.AccountID, month domain.MonthKey, action domain.ActionKind, limit int) (int, error) {
	if f.fail() {
		return 0, domain.Transient(errStoreTimeout)
	}
	return f.Store.Increment(ctx, id, month, action, limit)
}

func (f *flakyStore) Mutate(ctx context.Context, id domain.AccountID, fn ports.MutateFunc) (domain.Account, error) {
	if f.fail() {
		return domain.Account{}, domain.Transient(errStoreTimeout)
	}
	return f.Store.Mutate(ctx, id, fn)
}

// memoryUsage is an external counter backend with purge support.
type memoryUsage struct {
	mu     sync.Mutex
	counts map[string]int
}

func newMemoryUsage() *memoryUsage {
	return &memoryUsage{counts: map[string]int{}}
}

func usageKey(id domain.AccountID, month domain.MonthKey, action domain.ActionKind) string {
	return string(id) + "|" + string(month) + "|" + string(action)
}

func (m *memoryUsage) Increment(_ context.Context, id domain.AccountID, month domain.MonthKey, action domain.ActionKind, limit int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := usageKey(id, month, action)
	if limit != domain.Unlimited && m.counts[key] >= limit {
		return 0, &domain.QuotaExceededError{Action: action, Month: month, Count: m.counts[key], Limit: limit}
	}
	m.counts[key]++
	return m.counts[key], nil
}

func (m *memoryUsage) Count(_ context.Context, id domain.AccountID, month domain.MonthKey, action domain.ActionKind) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[usageKey(id, month, action)], nil
}

func (m *memoryUsage) PurgeUsage(_ context.Context, id domain.AccountID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.counts {
		if len(key) > len(id) && key[:len(id)+1] == string(id)+"|" {
			delete(m.counts, key)
		}
	}
	return nil
}
