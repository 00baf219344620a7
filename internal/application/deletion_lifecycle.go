package application

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/bnema/collab-lifecycle/internal/domain"
	"github.com/bnema/collab-lifecycle/internal/ports"
)

// DeletionLifecycle runs the owner-requested deletion with its grace period
// and the administrator's irreversible purge.
type DeletionLifecycle struct {
	accounts ports.AccountStore
	machine  *StateMachine
	// purger drops counters kept outside the account store. Nil when the
	// account store owns them.
	purger   ports.UsagePurger
	settings settings
}

func NewDeletionLifecycle(accounts ports.AccountStore, machine *StateMachine, purger ports.UsagePurger, opts ...Option) *DeletionLifecycle {
	return &DeletionLifecycle{accounts: accounts, machine: machine, purger: purger, settings: newSettings(opts)}
}

func (d *DeletionLifecycle) RequestDeletion(ctx context.Context, id domain.AccountID, confirmed bool, now time.Time) (domain.Account, error) {
	return d.machine.Transition(ctx, TransitionCommand{
		ActorID:   id,
		TargetID:  id,
		To:        domain.StatusDeletionRequested,
		Confirmed: confirmed,
	}, now)
}

func (d *DeletionLifecycle) CancelDeletion(ctx context.Context, id domain.AccountID, now time.Time) (domain.Account, error) {
	return d.machine.Transition(ctx, TransitionCommand{
		ActorID:      id,
		TargetID:     id,
		To:           domain.StatusActive,
		ExpectedFrom: domain.StatusDeletionRequested,
	}, now)
}

func (d *DeletionLifecycle) EligibleForHardDelete(account domain.Account, now time.Time) bool {
	return domain.EligibleForHardDelete(account, now)
}

func (d *DeletionLifecycle) ScheduledPurgeAt(account domain.Account) (time.Time, bool) {
	return domain.ScheduledPurgeAt(account)
}

// ScanPurgeable lists deletion requests whose grace period is over, earliest
// purge date first.
func (d *DeletionLifecycle) ScanPurgeable(ctx context.Context, now time.Time) ([]PurgeCandidate, error) {
	accounts, err := retry(ctx, d.settings, "list accounts", func() ([]domain.Account, error) {
		return d.accounts.List(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	var candidates []PurgeCandidate
	for _, account := range accounts {
		if !domain.EligibleForHardDelete(account, now) {
			continue
		}
		purgeAt, _ := domain.ScheduledPurgeAt(account)
		candidates = append(candidates, PurgeCandidate{
			Account:     account,
			RequestedAt: *account.DeletionRequestedAt,
			PurgeAt:     purgeAt,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if !candidates[i].PurgeAt.Equal(candidates[j].PurgeAt) {
			return candidates[i].PurgeAt.Before(candidates[j].PurgeAt)
		}
		return candidates[i].Account.ID < candidates[j].Account.ID
	})

	return candidates, nil
}

// HardDelete removes the account and its usage records. Purging the
// principal at the identity provider is left to the caller.
func (d *DeletionLifecycle) HardDelete(ctx context.Context, actorID, id domain.AccountID, now time.Time) (domain.Account, error) {
	account, err := d.machine.Transition(ctx, TransitionCommand{
		ActorID:  actorID,
		TargetID: id,
		To:       domain.StatusDeleted,
	}, now)
	if err != nil {
		return domain.Account{}, err
	}

	if d.purger != nil {
		_, err := retry(ctx, d.settings, "purge usage", func() (struct{}, error) {
			return struct{}{}, d.purger.PurgeUsage(ctx, id)
		})
		if err != nil {
			d.settings.logger.Error().Err(err).Str("account_id", string(id)).Msg("account deleted but usage counters remain")
			return account, fmt.Errorf("purge usage for %s: %w", id, err)
		}
	}

	return account, nil
}
