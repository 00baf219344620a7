package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bnema/collab-lifecycle/internal/domain"
	"github.com/bnema/collab-lifecycle/internal/ports"
)

// StateMachine is the only writer of account status. Every change runs as one
// conditional store mutation: the edge, actor and guard are evaluated against
// the record read inside the mutation.
type StateMachine struct {
	accounts ports.AccountStore
	settings settings
}

func NewStateMachine(accounts ports.AccountStore, opts ...Option) *StateMachine {
	return &StateMachine{accounts: accounts, settings: newSettings(opts)}
}

// Transition applies cmd at now and returns the resulting account. Reaching
// StatusDeleted removes the record; the returned account is the last state it
// had, with Status set to StatusDeleted.
func (m *StateMachine) Transition(ctx context.Context, cmd TransitionCommand, now time.Time) (domain.Account, error) {
	if !cmd.To.Valid() {
		return domain.Account{}, &domain.TransitionError{To: cmd.To, Reason: "unknown status"}
	}

	actor, err := m.resolveActor(ctx, cmd)
	if err != nil {
		return domain.Account{}, err
	}

	in := domain.TransitionInput{Now: now, Confirmed: cmd.Confirmed, Profile: cmd.Profile}

	if cmd.To == domain.StatusDeleted {
		return m.delete(ctx, cmd, actor, in)
	}

	account, err := retry(ctx, m.settings, "transition", func() (domain.Account, error) {
		return m.accounts.Mutate(ctx, cmd.TargetID, func(account *domain.Account) error {
			edge, err := m.check(*account, cmd, actor, in)
			if err != nil {
				return err
			}
			edge.Apply(account, in)
			return nil
		})
	})
	if err != nil {
		m.logRefusal(cmd, err)
		return domain.Account{}, fmt.Errorf("transition account %s to %s: %w", cmd.TargetID, cmd.To, err)
	}

	m.settings.logger.Info().
		Str("account_id", string(account.ID)).
		Str("actor_id", string(cmd.ActorID)).
		Str("status", string(account.Status)).
		Msg("account status changed")

	return account, nil
}

func (m *StateMachine) delete(ctx context.Context, cmd TransitionCommand, actor *domain.Account, in domain.TransitionInput) (domain.Account, error) {
	var last domain.Account
	_, err := retry(ctx, m.settings, "hard delete", func() (struct{}, error) {
		return struct{}{}, m.accounts.Delete(ctx, cmd.TargetID, func(account domain.Account) error {
			if _, err := m.check(account, cmd, actor, in); err != nil {
				return err
			}
			last = account
			return nil
		})
	})
	if err != nil {
		m.logRefusal(cmd, err)
		return domain.Account{}, fmt.Errorf("hard delete account %s: %w", cmd.TargetID, err)
	}

	last.Status = domain.StatusDeleted
	last.UpdatedAt = in.Now
	m.settings.logger.Info().
		Str("account_id", string(cmd.TargetID)).
		Str("actor_id", string(cmd.ActorID)).
		Msg("account hard deleted")

	return last, nil
}

// check evaluates edge existence, then the actor rule, then the guard.
func (m *StateMachine) check(account domain.Account, cmd TransitionCommand, actor *domain.Account, in domain.TransitionInput) (domain.Edge, error) {
	if cmd.ExpectedFrom != "" && account.Status != cmd.ExpectedFrom {
		return domain.Edge{}, &domain.TransitionError{
			From:   account.Status,
			To:     cmd.To,
			Reason: fmt.Sprintf("stale state: expected %s", cmd.ExpectedFrom),
		}
	}

	edge, ok := domain.LookupEdge(account.Status, cmd.To)
	if !ok {
		return domain.Edge{}, &domain.TransitionError{From: account.Status, To: cmd.To}
	}

	principal := account
	if actor != nil {
		principal = *actor
	}
	if err := edge.Authorize(principal, account.ID); err != nil {
		return domain.Edge{}, err
	}

	if err := edge.CheckGuard(account, in); err != nil {
		return domain.Edge{}, err
	}

	return edge, nil
}

// resolveActor loads the acting account. A nil result means the actor is the
// target itself and is read inside the mutation.
func (m *StateMachine) resolveActor(ctx context.Context, cmd TransitionCommand) (*domain.Account, error) {
	if cmd.ActorID == "" {
		return nil, fmt.Errorf("%w: missing actor", domain.ErrUnauthorized)
	}
	if cmd.ActorID == cmd.TargetID {
		return nil, nil
	}

	actor, err := retry(ctx, m.settings, "resolve actor", func() (domain.Account, error) {
		return m.accounts.GetByID(ctx, cmd.ActorID)
	})
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, fmt.Errorf("%w: unknown actor %s", domain.ErrUnauthorized, cmd.ActorID)
		}
		return nil, fmt.Errorf("get actor by id: %w", err)
	}

	return &actor, nil
}

func (m *StateMachine) logRefusal(cmd TransitionCommand, err error) {
	if domain.IsTransient(err) {
		return
	}
	m.settings.logger.Debug().
		Err(err).
		Str("account_id", string(cmd.TargetID)).
		Str("actor_id", string(cmd.ActorID)).
		Str("to", string(cmd.To)).
		Msg("transition refused")
}
