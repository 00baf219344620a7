package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bnema/collab-lifecycle/internal/domain"
	"github.com/bnema/collab-lifecycle/internal/ports"
)

// PlanLifecycle downgrades expired paid plans and applies administrator plan
// edits.
type PlanLifecycle struct {
	accounts ports.AccountStore
	settings settings
}

func NewPlanLifecycle(accounts ports.AccountStore, opts ...Option) *PlanLifecycle {
	return &PlanLifecycle{accounts: accounts, settings: newSettings(opts)}
}

// EnsureCurrent returns the account with any lapsed paid plan downgraded to
// free. The downgrade is idempotent: a concurrent second call finds the
// account already on free and leaves it alone.
func (p *PlanLifecycle) EnsureCurrent(ctx context.Context, id domain.AccountID, now time.Time) (domain.Account, error) {
	account, err := retry(ctx, p.settings, "get account", func() (domain.Account, error) {
		return p.accounts.GetByID(ctx, id)
	})
	if err != nil {
		return domain.Account{}, fmt.Errorf("get account by id: %w", err)
	}
	if !account.PlanExpired(now) {
		return account, nil
	}

	downgraded := false
	account, err = retry(ctx, p.settings, "downgrade plan", func() (domain.Account, error) {
		downgraded = false
		return p.accounts.Mutate(ctx, id, func(account *domain.Account) error {
			if !account.PlanExpired(now) {
				return nil
			}
			downgraded = account.DowngradeToFree()
			account.UpdatedAt = now
			return nil
		})
	})
	if err != nil {
		return domain.Account{}, fmt.Errorf("downgrade expired plan: %w", err)
	}

	if downgraded {
		p.settings.logger.Info().
			Str("account_id", string(id)).
			Time("now", now).
			Msg("expired plan downgraded to free")
	}

	return account, nil
}

// SetPlan applies an administrator plan edit. Paid plans expire at the end
// of ExpiryDate in UTC.
func (p *PlanLifecycle) SetPlan(ctx context.Context, cmd SetPlanCommand, now time.Time) (domain.Account, error) {
	if err := p.authorizeAdmin(ctx, cmd.ActorID, cmd.TargetID); err != nil {
		return domain.Account{}, err
	}
	if !cmd.Plan.Valid() {
		return domain.Account{}, fmt.Errorf("%w: unknown plan %q", domain.ErrInvalidPlan, cmd.Plan)
	}
	if cmd.Plan.IsPaid() && cmd.ExpiryDate == nil {
		return domain.Account{}, fmt.Errorf("%w: %s plan needs an expiry date", domain.ErrInvalidPlan, cmd.Plan)
	}
	if cmd.FollowerSearchLimit != nil && !domain.ValidFollowerSearchLimit(*cmd.FollowerSearchLimit) {
		return domain.Account{}, fmt.Errorf("%w: follower search limit %d not offered", domain.ErrInvalidPlan, *cmd.FollowerSearchLimit)
	}

	account, err := retry(ctx, p.settings, "set plan", func() (domain.Account, error) {
		return p.accounts.Mutate(ctx, cmd.TargetID, func(account *domain.Account) error {
			if cmd.FollowerSearchLimit != nil && account.Kind != domain.KindCompany {
				return fmt.Errorf("%w: follower search limit applies to companies only", domain.ErrInvalidPlan)
			}

			account.Plan = cmd.Plan
			account.PlanExpiry = nil
			if cmd.Plan.IsPaid() {
				account.PlanExpiry = domain.TimePtr(domain.EndOfDayUTC(*cmd.ExpiryDate))
			}
			if cmd.FollowerSearchLimit != nil {
				account.FollowerSearchLimit = *cmd.FollowerSearchLimit
			}
			account.UpdatedAt = now
			return nil
		})
	})
	if err != nil {
		return domain.Account{}, fmt.Errorf("set plan for %s: %w", cmd.TargetID, err)
	}

	p.settings.logger.Info().
		Str("account_id", string(account.ID)).
		Str("actor_id", string(cmd.ActorID)).
		Str("plan", string(account.Plan)).
		Msg("plan changed")

	return account, nil
}

// authorizeAdmin requires actorID to be an administrator other than target.
func (p *PlanLifecycle) authorizeAdmin(ctx context.Context, actorID, target domain.AccountID) error {
	return requireAdmin(ctx, p.accounts, p.settings, actorID, target)
}

func requireAdmin(ctx context.Context, accounts ports.AccountStore, s settings, actorID, target domain.AccountID) error {
	if actorID == "" {
		return fmt.Errorf("%w: missing actor", domain.ErrUnauthorized)
	}
	if target != "" && actorID == target {
		return fmt.Errorf("%w: administrators cannot edit their own account", domain.ErrUnauthorized)
	}

	actor, err := retry(ctx, s, "resolve actor", func() (domain.Account, error) {
		return accounts.GetByID(ctx, actorID)
	})
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return fmt.Errorf("%w: unknown actor %s", domain.ErrUnauthorized, actorID)
		}
		return fmt.Errorf("get actor by id: %w", err)
	}
	if !actor.IsAdmin() {
		return fmt.Errorf("%w: %s is not an administrator", domain.ErrUnauthorized, actorID)
	}
	return nil
}
