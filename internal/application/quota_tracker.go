package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bnema/collab-lifecycle/internal/domain"
	"github.com/bnema/collab-lifecycle/internal/ports"
)

// QuotaTracker enforces the monthly action cap of free accounts.
type QuotaTracker struct {
	plans        *PlanLifecycle
	usage        ports.UsageStore
	planSettings ports.SettingsStore
	settings     settings
}

func NewQuotaTracker(plans *PlanLifecycle, usage ports.UsageStore, planSettings ports.SettingsStore, opts ...Option) *QuotaTracker {
	return &QuotaTracker{
		plans:        plans,
		usage:        usage,
		planSettings: planSettings,
		settings:     newSettings(opts),
	}
}

// TryConsume records one action for the current month or refuses with a
// *domain.QuotaExceededError. Paid plans are never counted.
func (q *QuotaTracker) TryConsume(ctx context.Context, id domain.AccountID, action domain.ActionKind, now time.Time) (domain.ConsumeResult, error) {
	account, err := q.plans.EnsureCurrent(ctx, id, now)
	if err != nil {
		return domain.ConsumeResult{}, err
	}

	if account.Status != domain.StatusActive {
		return domain.ConsumeResult{}, fmt.Errorf("%w: account %s is %s", domain.ErrUnauthorized, id, account.Status)
	}
	if action != account.ActionKind() {
		return domain.ConsumeResult{}, fmt.Errorf("%w: %s accounts cannot record %q", domain.ErrInvalidAction, account.Kind, action)
	}

	month := domain.MonthKeyFor(now)
	result := domain.ConsumeResult{AccountID: id, Action: action, Month: month, Limit: domain.Unlimited}
	if account.Plan.IsPaid() {
		return result, nil
	}

	result.Limit = q.MonthlyLimit(ctx, account.Kind)

	count, err := retry(ctx, q.settings, "increment usage", func() (int, error) {
		return q.usage.Increment(ctx, id, month, action, result.Limit)
	})
	if err != nil {
		var quotaErr *domain.QuotaExceededError
		if errors.As(err, &quotaErr) {
			q.settings.logger.Debug().
				Str("account_id", string(id)).
				Str("month", string(month)).
				Int("count", quotaErr.Count).
				Int("limit", quotaErr.Limit).
				Msg("monthly quota exceeded")
			return domain.ConsumeResult{}, quotaErr
		}
		return domain.ConsumeResult{}, fmt.Errorf("increment usage: %w", err)
	}

	result.Count = count
	return result, nil
}

// MonthlyLimit resolves the free-plan cap for kind. Missing or unreadable
// settings fall back to domain.DefaultMonthlyLimit; the failure is only
// logged.
func (q *QuotaTracker) MonthlyLimit(ctx context.Context, kind domain.Kind) int {
	planSettings, err := q.planSettings.GetPlanSettings(ctx, kind)
	if err != nil {
		q.settings.logger.Warn().
			Err(fmt.Errorf("%w: %w", domain.ErrSettingsUnavailable, err)).
			Str("kind", string(kind)).
			Int("fallback_limit", domain.DefaultMonthlyLimit).
			Msg("plan settings unreadable, using default limit")
		return domain.DefaultMonthlyLimit
	}
	return planSettings.EffectiveLimit()
}

// Usage reports the current month's count and limit for account without
// recording anything.
func (q *QuotaTracker) Usage(ctx context.Context, account domain.Account, now time.Time) (used, limit int, err error) {
	month := domain.MonthKeyFor(now)
	used, err = retry(ctx, q.settings, "read usage", func() (int, error) {
		return q.usage.Count(ctx, account.ID, month, account.ActionKind())
	})
	if err != nil {
		return 0, 0, fmt.Errorf("read usage: %w", err)
	}

	if account.Plan.IsPaid() {
		return used, domain.Unlimited, nil
	}
	return used, q.MonthlyLimit(ctx, account.Kind), nil
}
