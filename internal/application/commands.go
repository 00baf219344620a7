package application

import (
	"time"

	"github.com/bnema/collab-lifecycle/internal/domain"
)

// Principal is the authenticated caller handed over by the identity provider.
type Principal struct {
	ID    domain.AccountID
	Email string
}

type TransitionCommand struct {
	ActorID  domain.AccountID
	TargetID domain.AccountID
	To       domain.Status
	// ExpectedFrom, when set, makes the change conditional on the status the
	// caller last saw.
	ExpectedFrom domain.Status
	Confirmed    bool
	Profile      *domain.Profile
}

type SetPlanCommand struct {
	ActorID  domain.AccountID
	TargetID domain.AccountID
	Plan     domain.Plan
	// ExpiryDate is the last calendar day of a paid plan. The time of day is
	// ignored.
	ExpiryDate          *time.Time
	FollowerSearchLimit *int
}

type SaveSettingsCommand struct {
	ActorID  domain.AccountID
	Settings domain.PlanSettings
}
