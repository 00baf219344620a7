package application

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bnema/collab-lifecycle/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var persistedStatuses = []domain.Status{
	domain.StatusProfilePending,
	domain.StatusPending,
	domain.StatusActive,
	domain.StatusSuspended,
	domain.StatusRejected,
	domain.StatusDormant,
	domain.StatusDeletionRequested,
}

func TestStateMachineRejectsEveryPairOutsideTheTable(t *testing.T) {
	t.Parallel()

	targets := append(append([]domain.Status(nil), persistedStatuses...), domain.StatusDeleted)

	for _, from := range persistedStatuses {
		for _, to := range targets {
			if _, ok := domain.LookupEdge(from, to); ok {
				continue
			}

			from, to := from, to
			t.Run(string(from)+"->"+string(to), func(t *testing.T) {
				t.Parallel()

				store := newTestStore(t)
				target := accountIn("target", domain.KindInfluencer, from)
				seed(t, store, target, adminAccount("admin"))
				machine := NewStateMachine(store)

				for _, actor := range []domain.AccountID{"admin", "target"} {
					_, err := machine.Transition(context.Background(), TransitionCommand{
						ActorID:   actor,
						TargetID:  "target",
						To:        to,
						Confirmed: true,
					}, baseNow)
					require.ErrorIs(t, err, domain.ErrInvalidTransition)
				}

				assert.Equal(t, target, mustGet(t, store, "target"))
			})
		}
	}
}

func TestStateMachineAdminCannotChangeOwnStatus(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	admin := adminAccount("admin")
	admin.LastLoginAt = domain.TimePtr(baseNow.AddDate(-2, 0, 0))
	seed(t, store, admin)
	machine := NewStateMachine(store)

	for _, to := range []domain.Status{domain.StatusSuspended, domain.StatusDormant} {
		_, err := machine.Transition(context.Background(), TransitionCommand{
			ActorID:  "admin",
			TargetID: "admin",
			To:       to,
		}, baseNow)
		require.ErrorIs(t, err, domain.ErrUnauthorized)
	}

	assert.Equal(t, admin, mustGet(t, store, "admin"))
}

func TestStateMachineAdminEdgesRejectNonAdmins(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	seed(t, store, accountIn("target", domain.KindCompany, domain.StatusPending), activeAccount("peer", domain.KindCompany))
	machine := NewStateMachine(store)

	_, err := machine.Transition(context.Background(), TransitionCommand{
		ActorID:  "peer",
		TargetID: "target",
		To:       domain.StatusActive,
	}, baseNow)
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = machine.Transition(context.Background(), TransitionCommand{
		ActorID:  "ghost",
		TargetID: "target",
		To:       domain.StatusActive,
	}, baseNow)
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = machine.Transition(context.Background(), TransitionCommand{
		TargetID: "target",
		To:       domain.StatusActive,
	}, baseNow)
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	assert.Equal(t, domain.StatusPending, mustGet(t, store, "target").Status)
}

func TestStateMachineOwnerEdgesRejectAdministrators(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	seed(t, store, activeAccount("target", domain.KindInfluencer), adminAccount("admin"))
	machine := NewStateMachine(store)

	_, err := machine.Transition(context.Background(), TransitionCommand{
		ActorID:   "admin",
		TargetID:  "target",
		To:        domain.StatusDeletionRequested,
		Confirmed: true,
	}, baseNow)
	require.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.Equal(t, domain.StatusActive, mustGet(t, store, "target").Status)
}

func TestStateMachineAdminApprovesPending(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	seed(t, store, accountIn("target", domain.KindCompany, domain.StatusPending), adminAccount("admin"))
	machine := NewStateMachine(store)

	account, err := machine.Transition(context.Background(), TransitionCommand{
		ActorID:  "admin",
		TargetID: "target",
		To:       domain.StatusActive,
	}, baseNow)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, account.Status)
	assert.Equal(t, baseNow, account.UpdatedAt)
	assert.Equal(t, account, mustGet(t, store, "target"))
}

func TestStateMachineProfileCompletionGuard(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	seed(t, store, accountIn("brand", domain.KindCompany, domain.StatusProfilePending))
	machine := NewStateMachine(store)

	_, err := machine.Transition(context.Background(), TransitionCommand{
		ActorID:  "brand",
		TargetID: "brand",
		To:       domain.StatusPending,
		Profile:  &domain.Profile{DisplayName: "Brand"},
	}, baseNow)
	var transitionErr *domain.TransitionError
	require.ErrorAs(t, err, &transitionErr)
	assert.Contains(t, transitionErr.Reason, "WebsiteURL")
	assert.Equal(t, domain.StatusProfilePending, mustGet(t, store, "brand").Status)

	profile := domain.Profile{DisplayName: "Brand", WebsiteURL: "https://brand.example"}
	account, err := machine.Transition(context.Background(), TransitionCommand{
		ActorID:  "brand",
		TargetID: "brand",
		To:       domain.StatusPending,
		Profile:  &profile,
	}, baseNow)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, account.Status)
	assert.Equal(t, profile, mustGet(t, store, "brand").Profile)
}

func TestStateMachineDormantReactivationStampsLogin(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	dormant := accountIn("creator", domain.KindInfluencer, domain.StatusDormant)
	dormant.LastLoginAt = domain.TimePtr(baseNow.AddDate(-2, 0, 0))
	seed(t, store, dormant)
	machine := NewStateMachine(store)

	account, err := machine.Transition(context.Background(), TransitionCommand{
		ActorID:  "creator",
		TargetID: "creator",
		To:       domain.StatusActive,
	}, baseNow)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, account.Status)
	require.NotNil(t, account.LastLoginAt)
	assert.Equal(t, baseNow, *account.LastLoginAt)
}

func TestStateMachineStaleExpectedStatusIsRefused(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	seed(t, store, accountIn("target", domain.KindCompany, domain.StatusSuspended), adminAccount("admin"))
	machine := NewStateMachine(store)

	_, err := machine.Transition(context.Background(), TransitionCommand{
		ActorID:      "admin",
		TargetID:     "target",
		To:           domain.StatusActive,
		ExpectedFrom: domain.StatusRejected,
	}, baseNow)
	var transitionErr *domain.TransitionError
	require.ErrorAs(t, err, &transitionErr)
	assert.Contains(t, transitionErr.Reason, "stale state")
	assert.Equal(t, domain.StatusSuspended, mustGet(t, store, "target").Status)
}

func TestStateMachineConcurrentDecisionsHaveOneWinner(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	seed(t, store, accountIn("target", domain.KindCompany, domain.StatusPending), adminAccount("admin-a"), adminAccount("admin-b"))
	machine := NewStateMachine(store)

	commands := []TransitionCommand{
		{ActorID: "admin-a", TargetID: "target", To: domain.StatusActive, ExpectedFrom: domain.StatusPending},
		{ActorID: "admin-b", TargetID: "target", To: domain.StatusRejected, ExpectedFrom: domain.StatusPending},
	}

	start := make(chan struct{})
	errs := make([]error, len(commands))
	var wg sync.WaitGroup
	for i, cmd := range commands {
		wg.Add(1)
		go func(i int, cmd TransitionCommand) {
			defer wg.Done()
			<-start
			_, errs[i] = machine.Transition(context.Background(), cmd, baseNow)
		}(i, cmd)
	}
	close(start)
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		require.ErrorIs(t, err, domain.ErrInvalidTransition)
	}
	assert.Equal(t, 1, succeeded)

	final := mustGet(t, store, "target").Status
	assert.Contains(t, []domain.Status{domain.StatusActive, domain.StatusRejected}, final)
}

func TestStateMachineRetriesTransientMutations(t *testing.T) {
	t.Parallel()

	store := &flakyStore{Store: newTestStore(t), failures: 2}
	seed(t, store, accountIn("target", domain.KindCompany, domain.StatusSuspended), adminAccount("admin"))
	machine := NewStateMachine(store, WithMaxAttempts(3))

	account, err := machine.Transition(context.Background(), TransitionCommand{
		ActorID:  "admin",
		TargetID: "target",
		To:       domain.StatusActive,
	}, baseNow)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, account.Status)
	assert.EqualValues(t, 3, store.calls.Load())
}

func TestStateMachineSurfacesTransientAfterMaxAttempts(t *testing.T) {
	t.Parallel()

	store := &flakyStore{Store: newTestStore(t), failures: 10}
	seed(t, store, accountIn("target", domain.KindCompany, domain.StatusSuspended), adminAccount("admin"))
	machine := NewStateMachine(store, WithMaxAttempts(2))

	_, err := machine.Transition(context.Background(), TransitionCommand{
		ActorID:  "admin",
		TargetID: "target",
		To:       domain.StatusActive,
	}, baseNow)
	require.ErrorIs(t, err, domain.ErrTransient)
	assert.EqualValues(t, 2, store.calls.Load())
	assert.Equal(t, domain.StatusSuspended, mustGet(t, store, "target").Status)
}

func TestStateMachineStoreTimeoutIsTransient(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	seed(t, store, activeAccount("creator", domain.KindInfluencer))
	machine := NewStateMachine(store)

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	_, err := machine.Transition(ctx, TransitionCommand{
		ActorID:   "creator",
		TargetID:  "creator",
		To:        domain.StatusDeletionRequested,
		Confirmed: true,
	}, baseNow)
	require.Error(t, err)
	assert.True(t, domain.IsTransient(err))
	assert.Equal(t, domain.StatusActive, mustGet(t, store, "creator").Status)
}
