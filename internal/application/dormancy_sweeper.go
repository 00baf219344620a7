package application

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/bnema/collab-lifecycle/internal/domain"
	"github.com/bnema/collab-lifecycle/internal/ports"
)

// DormancySweeper reports inactive accounts. Scans never change anything;
// dormancy is applied one account at a time by an administrator.
type DormancySweeper struct {
	accounts ports.AccountStore
	machine  *StateMachine
	settings settings
}

func NewDormancySweeper(accounts ports.AccountStore, machine *StateMachine, opts ...Option) *DormancySweeper {
	return &DormancySweeper{accounts: accounts, machine: machine, settings: newSettings(opts)}
}

func (d *DormancySweeper) Scan(ctx context.Context, now time.Time) (DormancyReport, error) {
	accounts, err := retry(ctx, d.settings, "list accounts", func() ([]domain.Account, error) {
		return d.accounts.List(ctx)
	})
	if err != nil {
		return DormancyReport{}, fmt.Errorf("list accounts: %w", err)
	}

	report := DormancyReport{GeneratedAt: now}
	eligibleBefore := domain.DormancyCutoff(now)
	noticeBefore := domain.DormancyNoticeCutoff(now)

	for _, account := range accounts {
		if account.Status != domain.StatusActive || account.IsAdmin() || account.LastLoginAt == nil {
			continue
		}

		lastLogin := *account.LastLoginAt
		candidate := DormancyCandidate{
			Account:     account,
			LastLoginAt: lastLogin,
			DormantFrom: lastLogin.AddDate(0, domain.DormancyAfterMonths, 0),
		}

		switch {
		case lastLogin.Before(eligibleBefore):
			report.Eligible = append(report.Eligible, candidate)
		case lastLogin.Before(noticeBefore):
			report.Approaching = append(report.Approaching, candidate)
		}
	}

	sortCandidates(report.Approaching)
	sortCandidates(report.Eligible)

	d.settings.logger.Info().
		Int("approaching", len(report.Approaching)).
		Int("eligible", len(report.Eligible)).
		Msg("dormancy scan finished")

	return report, nil
}

// MarkDormant moves one eligible account to dormant.
func (d *DormancySweeper) MarkDormant(ctx context.Context, actorID, id domain.AccountID, now time.Time) (domain.Account, error) {
	return d.machine.Transition(ctx, TransitionCommand{
		ActorID:      actorID,
		TargetID:     id,
		To:           domain.StatusDormant,
		ExpectedFrom: domain.StatusActive,
	}, now)
}

// sortCandidates orders oldest login first, ties broken by account id.
func sortCandidates(candidates []DormancyCandidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		if !candidates[i].LastLoginAt.Equal(candidates[j].LastLoginAt) {
			return candidates[i].LastLoginAt.Before(candidates[j].LastLoginAt)
		}
		return candidates[i].Account.ID < candidates[j].Account.ID
	})
}
