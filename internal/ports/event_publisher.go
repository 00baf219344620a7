package ports

import (
	"context"
	"time"

	"github.com/bnema/collab-lifecycle/internal/domain"
)

// Event types published after a change commits.
const (
	EventRegistered       = "account.registered"
	EventStatusChanged    = "account.status_changed"
	EventDeleted          = "account.deleted"
	EventPlanChanged      = "account.plan_changed"
	EventUpgradeRequested = "upgrade.requested"
	EventUpgradeCompleted = "upgrade.completed"
)

type LifecycleEvent struct {
	Type      string           `json:"type"`
	AccountID domain.AccountID `json:"account_id"`
	ActorID   domain.AccountID `json:"actor_id,omitempty"`
	Status    domain.Status    `json:"status,omitempty"`
	Plan      domain.Plan      `json:"plan,omitempty"`
	At        time.Time        `json:"at"`
}

type EventPublisher interface {
	Publish(ctx context.Context, event LifecycleEvent) error
	Close() error
}
