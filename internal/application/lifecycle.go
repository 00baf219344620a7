package application

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/bnema/collab-lifecycle/internal/domain"
	"github.com/bnema/collab-lifecycle/internal/ports"
)

// Lifecycle is the inbound surface of the core. Each call reads fresh state,
// runs its atomic store operations and hands back a snapshot; nothing is kept
// between calls.
type Lifecycle struct {
	accounts ports.AccountStore
	clock    ports.Clock
	settings settings

	Machine  *StateMachine
	Plans    *PlanLifecycle
	Quota    *QuotaTracker
	Dormancy *DormancySweeper
	Deletion *DeletionLifecycle
	Upgrades *UpgradeService
	Settings *SettingsService
}

// NewLifecycle wires the components over store. usage may be nil, in which
// case store keeps the monthly counters too.
func NewLifecycle(store ports.Store, usage ports.UsageStore, clock ports.Clock, opts ...Option) *Lifecycle {
	if clock == nil {
		clock = ports.SystemClock{}
	}

	var purger ports.UsagePurger
	if usage == nil {
		usage = store
	} else if p, ok := usage.(ports.UsagePurger); ok {
		purger = p
	}

	machine := NewStateMachine(store, opts...)
	plans := NewPlanLifecycle(store, opts...)
	quota := NewQuotaTracker(plans, usage, store, opts...)

	return &Lifecycle{
		accounts: store,
		clock:    clock,
		settings: newSettings(opts),
		Machine:  machine,
		Plans:    plans,
		Quota:    quota,
		Dormancy: NewDormancySweeper(store, machine, opts...),
		Deletion: NewDeletionLifecycle(store, machine, purger, opts...),
		Upgrades: NewUpgradeService(store, store, clock, nil, opts...),
		Settings: NewSettingsService(store, store, opts...),
	}
}

// Register creates the account record for a new principal. Registering an
// existing principal returns its current snapshot.
func (l *Lifecycle) Register(ctx context.Context, principal Principal, kind domain.Kind) (domain.AccountSnapshot, error) {
	if principal.ID == "" {
		return domain.AccountSnapshot{}, fmt.Errorf("%w: missing principal", domain.ErrUnauthorized)
	}
	if !kind.Valid() {
		return domain.AccountSnapshot{}, fmt.Errorf("%w: unknown account kind %q", domain.ErrInvalidProfile, kind)
	}

	now := l.clock.Now()
	account := domain.NewAccount(principal.ID, principal.Email, kind, now)
	_, err := retry(ctx, l.settings, "create account", func() (struct{}, error) {
		return struct{}{}, l.accounts.Create(ctx, account)
	})
	if err != nil && !errors.Is(err, domain.ErrAccountExists) {
		return domain.AccountSnapshot{}, fmt.Errorf("register account: %w", err)
	}
	if err == nil {
		l.settings.logger.Info().Str("account_id", string(principal.ID)).Str("kind", string(kind)).Msg("account registered")
	}

	return l.Snapshot(ctx, principal.ID)
}

// OnLogin brings the plan up to date, stamps the login time unless the
// account is dormant or awaiting deletion, and returns the snapshot.
func (l *Lifecycle) OnLogin(ctx context.Context, id domain.AccountID) (domain.AccountSnapshot, error) {
	now := l.clock.Now()

	account, err := l.Plans.EnsureCurrent(ctx, id, now)
	if err != nil {
		return domain.AccountSnapshot{}, err
	}

	if account.Status.TracksLogin() {
		account, err = retry(ctx, l.settings, "record login", func() (domain.Account, error) {
			return l.accounts.Mutate(ctx, id, func(account *domain.Account) error {
				if account.Status.TracksLogin() {
					account.LastLoginAt = domain.TimePtr(now)
				}
				return nil
			})
		})
		if err != nil {
			return domain.AccountSnapshot{}, fmt.Errorf("record login: %w", err)
		}
	}

	return l.snapshot(ctx, account)
}

// Snapshot returns the current view of an account without recording a login.
func (l *Lifecycle) Snapshot(ctx context.Context, id domain.AccountID) (domain.AccountSnapshot, error) {
	account, err := l.Plans.EnsureCurrent(ctx, id, l.clock.Now())
	if err != nil {
		return domain.AccountSnapshot{}, err
	}
	return l.snapshot(ctx, account)
}

func (l *Lifecycle) RequestTransition(ctx context.Context, cmd TransitionCommand) (domain.AccountSnapshot, error) {
	now := l.clock.Now()
	if cmd.To == domain.StatusDeleted {
		account, err := l.Deletion.HardDelete(ctx, cmd.ActorID, cmd.TargetID, now)
		if err != nil {
			return domain.AccountSnapshot{}, err
		}
		return domain.NewSnapshot(account), nil
	}

	account, err := l.Machine.Transition(ctx, cmd, now)
	if err != nil {
		return domain.AccountSnapshot{}, err
	}
	return l.snapshot(ctx, account)
}

// CompleteProfile submits the owner's profile for review.
func (l *Lifecycle) CompleteProfile(ctx context.Context, id domain.AccountID, profile domain.Profile) (domain.AccountSnapshot, error) {
	return l.RequestTransition(ctx, TransitionCommand{
		ActorID:  id,
		TargetID: id,
		To:       domain.StatusPending,
		Profile:  &profile,
	})
}

func (l *Lifecycle) TryConsume(ctx context.Context, id domain.AccountID, action domain.ActionKind) (domain.ConsumeResult, error) {
	return l.Quota.TryConsume(ctx, id, action, l.clock.Now())
}

func (l *Lifecycle) ScanDormancy(ctx context.Context) (DormancyReport, error) {
	return l.Dormancy.Scan(ctx, l.clock.Now())
}

func (l *Lifecycle) MarkDormant(ctx context.Context, actorID, id domain.AccountID) (domain.AccountSnapshot, error) {
	account, err := l.Dormancy.MarkDormant(ctx, actorID, id, l.clock.Now())
	if err != nil {
		return domain.AccountSnapshot{}, err
	}
	return l.snapshot(ctx, account)
}

func (l *Lifecycle) RequestDeletion(ctx context.Context, id domain.AccountID, confirmed bool) (domain.AccountSnapshot, error) {
	account, err := l.Deletion.RequestDeletion(ctx, id, confirmed, l.clock.Now())
	if err != nil {
		return domain.AccountSnapshot{}, err
	}
	return l.snapshot(ctx, account)
}

func (l *Lifecycle) CancelDeletion(ctx context.Context, id domain.AccountID) (domain.AccountSnapshot, error) {
	account, err := l.Deletion.CancelDeletion(ctx, id, l.clock.Now())
	if err != nil {
		return domain.AccountSnapshot{}, err
	}
	return l.snapshot(ctx, account)
}

func (l *Lifecycle) ScanPurgeable(ctx context.Context) ([]PurgeCandidate, error) {
	return l.Deletion.ScanPurgeable(ctx, l.clock.Now())
}

func (l *Lifecycle) HardDelete(ctx context.Context, actorID, id domain.AccountID) (domain.AccountSnapshot, error) {
	return l.RequestTransition(ctx, TransitionCommand{ActorID: actorID, TargetID: id, To: domain.StatusDeleted})
}

func (l *Lifecycle) SetPlan(ctx context.Context, cmd SetPlanCommand) (domain.AccountSnapshot, error) {
	account, err := l.Plans.SetPlan(ctx, cmd, l.clock.Now())
	if err != nil {
		return domain.AccountSnapshot{}, err
	}
	return l.snapshot(ctx, account)
}

func (l *Lifecycle) RequestUpgrade(ctx context.Context, id domain.AccountID, depositorName string) (domain.UpgradeRequest, error) {
	return l.Upgrades.Request(ctx, id, depositorName)
}

func (l *Lifecycle) CompleteUpgrade(ctx context.Context, actorID domain.AccountID, requestID domain.UpgradeRequestID) (domain.UpgradeRequest, error) {
	return l.Upgrades.Complete(ctx, actorID, requestID)
}

func (l *Lifecycle) PendingUpgrades(ctx context.Context) ([]domain.UpgradeRequest, error) {
	return l.Upgrades.Pending(ctx)
}

func (l *Lifecycle) snapshot(ctx context.Context, account domain.Account) (domain.AccountSnapshot, error) {
	snapshot := domain.NewSnapshot(account)
	snapshot.Month = domain.MonthKeyFor(l.clock.Now())

	used, limit, err := l.Quota.Usage(ctx, account, l.clock.Now())
	if err != nil {
		return domain.AccountSnapshot{}, err
	}
	snapshot.MonthlyUsed = used
	snapshot.MonthlyLimit = limit

	return snapshot, nil
}

func (l *Lifecycle) PlanSettings(ctx context.Context, kind domain.Kind) (domain.PlanSettings, error) {
	return l.Settings.Get(ctx, kind)
}

func (l *Lifecycle) SavePlanSettings(ctx context.Context, cmd SaveSettingsCommand) error {
	return l.Settings.Save(ctx, cmd)
}

// Snapshots returns the current view of every account, ordered by id.
func (l *Lifecycle) Snapshots(ctx context.Context) ([]domain.AccountSnapshot, error) {
	accounts, err := retry(ctx, l.settings, "list accounts", func() ([]domain.Account, error) {
		return l.accounts.List(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	sort.Slice(accounts, func(i, j int) bool { return accounts[i].ID < accounts[j].ID })

	snapshots := make([]domain.AccountSnapshot, 0, len(accounts))
	for _, account := range accounts {
		snapshot, err := l.Snapshot(ctx, account.ID)
		if errors.Is(err, domain.ErrAccountNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snapshot)
	}
	return snapshots, nil
}
