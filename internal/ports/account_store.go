package ports

import (
	"context"

	"github.com/bnema/collab-lifecycle/internal/domain"
)

// MutateFunc edits an account in place. Returning an error aborts the
// mutation and nothing is written.
type MutateFunc func(account *domain.Account) error

type AccountStore interface {
	Create(ctx context.Context, account domain.Account) error
	GetByID(ctx context.Context, id domain.AccountID) (domain.Account, error)
	List(ctx context.Context) ([]domain.Account, error)
	// Mutate reads the account, applies fn and writes the result as one
	// atomic unit with respect to every other writer of the same account.
	Mutate(ctx context.Context, id domain.AccountID, fn MutateFunc) (domain.Account, error)
	// Delete removes the account and its usage records once precondition
	// accepts the current record. Check and delete happen atomically; a nil
	// precondition deletes unconditionally.
	Delete(ctx context.Context, id domain.AccountID, precondition func(domain.Account) error) error
}

type UsageStore interface {
	// Increment atomically checks the stored count against limit and, when
	// below it, writes count+1. A full counter yields *domain.QuotaExceededError
	// and no write.
	Increment(ctx context.Context, id domain.AccountID, month domain.MonthKey, action domain.ActionKind, limit int) (int, error)
	Count(ctx context.Context, id domain.AccountID, month domain.MonthKey, action domain.ActionKind) (int, error)
}

type SettingsStore interface {
	GetPlanSettings(ctx context.Context, kind domain.Kind) (domain.PlanSettings, error)
	SavePlanSettings(ctx context.Context, settings domain.PlanSettings) error
}

type UpgradeRequestStore interface {
	CreateUpgradeRequest(ctx context.Context, request domain.UpgradeRequest) error
	GetUpgradeRequest(ctx context.Context, id domain.UpgradeRequestID) (domain.UpgradeRequest, error)
	ListUpgradeRequests(ctx context.Context, status domain.UpgradeStatus) ([]domain.UpgradeRequest, error)
	SaveUpgradeRequest(ctx context.Context, request domain.UpgradeRequest) error
}

// Store is the full persistence surface a backend provides.
type Store interface {
	AccountStore
	UsageStore
	SettingsStore
	UpgradeRequestStore
	Close() error
}

// UsagePurger is implemented by usage backends that live outside the account
// store and must drop an account's counters on hard delete.
type UsagePurger interface {
	PurgeUsage(ctx context.Context, id domain.AccountID) error
}
