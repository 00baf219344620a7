package domain

import (
	"fmt"
	"time"
)

const (
	DormancyAfterMonths  = 12
	DormancyNoticeMonths = 11

	DeletionGracePeriod = 30 * 24 * time.Hour
)

// ActorRule says who may fire an edge.
type ActorRule int

const (
	// ActorOwner edges are fired by the account holder on their own account.
	ActorOwner ActorRule = iota + 1
	// ActorAdmin edges require an administrator acting on someone else.
	ActorAdmin
	// ActorAdminOrOwner edges accept either.
	ActorAdminOrOwner
)

func (r ActorRule) String() string {
	switch r {
	case ActorOwner:
		return "owner"
	case ActorAdmin:
		return "admin"
	case ActorAdminOrOwner:
		return "admin or owner"
	default:
		return "unknown"
	}
}

type Edge struct {
	From    Status
	To      Status
	Actor   ActorRule
	Trigger string
}

// TransitionInput carries the per-request facts guards look at.
type TransitionInput struct {
	Now       time.Time
	Confirmed bool
	Profile   *Profile
}

var transitionTable = []Edge{
	{From: StatusProfilePending, To: StatusPending, Actor: ActorOwner, Trigger: "profile completion"},
	{From: StatusPending, To: StatusActive, Actor: ActorAdmin, Trigger: "approve"},
	{From: StatusPending, To: StatusRejected, Actor: ActorAdmin, Trigger: "reject"},
	{From: StatusActive, To: StatusSuspended, Actor: ActorAdmin, Trigger: "suspend"},
	{From: StatusSuspended, To: StatusActive, Actor: ActorAdmin, Trigger: "reactivate"},
	{From: StatusRejected, To: StatusActive, Actor: ActorAdmin, Trigger: "reactivate"},
	{From: StatusDormant, To: StatusActive, Actor: ActorAdminOrOwner, Trigger: "reactivate"},
	{From: StatusActive, To: StatusDormant, Actor: ActorAdmin, Trigger: "set dormant"},
	{From: StatusActive, To: StatusDeletionRequested, Actor: ActorOwner, Trigger: "request deletion"},
	{From: StatusDeletionRequested, To: StatusActive, Actor: ActorOwner, Trigger: "cancel deletion"},
	{From: StatusDeletionRequested, To: StatusDeleted, Actor: ActorAdmin, Trigger: "hard delete"},
}

// Transitions returns a copy of the legal edges.
func Transitions() []Edge {
	return append([]Edge(nil), transitionTable...)
}

func LookupEdge(from, to Status) (Edge, bool) {
	for _, edge := range transitionTable {
		if edge.From == from && edge.To == to {
			return edge, true
		}
	}
	return Edge{}, false
}

// Authorize checks actor against the edge's actor rule for target.
func (e Edge) Authorize(actor Account, target AccountID) error {
	self := actor.ID == target
	switch e.Actor {
	case ActorOwner:
		if self {
			return nil
		}
	case ActorAdmin:
		if actor.IsAdmin() && !self {
			return nil
		}
		if self {
			return fmt.Errorf("%w: %s on own account", ErrUnauthorized, e.Trigger)
		}
	case ActorAdminOrOwner:
		if self || actor.IsAdmin() {
			return nil
		}
	}

	return fmt.Errorf("%w: %s requires %s", ErrUnauthorized, e.Trigger, e.Actor)
}

// CheckGuard evaluates the edge guard against the current account state.
func (e Edge) CheckGuard(account Account, in TransitionInput) error {
	switch {
	case e.From == StatusProfilePending && e.To == StatusPending:
		profile := account.Profile
		if in.Profile != nil {
			profile = *in.Profile
		}
		if err := profile.Validate(account.Kind); err != nil {
			return e.refuse(err.Error())
		}
	case e.From == StatusActive && e.To == StatusDormant:
		if account.LastLoginAt == nil {
			return e.refuse("no recorded login")
		}
		if !account.LastLoginAt.Before(DormancyCutoff(in.Now)) {
			return e.refuse(fmt.Sprintf("last login within %d months", DormancyAfterMonths))
		}
	case e.To == StatusDeletionRequested:
		if !in.Confirmed {
			return e.refuse("deletion not confirmed")
		}
	case e.To == StatusDeleted:
		if !EligibleForHardDelete(account, in.Now) {
			return e.refuse("grace period not elapsed")
		}
	}

	return nil
}

// Apply mutates account into the edge's target state.
func (e Edge) Apply(account *Account, in TransitionInput) {
	account.Status = e.To
	account.UpdatedAt = in.Now

	switch {
	case e.To == StatusDeletionRequested:
		account.DeletionRequestedAt = TimePtr(in.Now)
	case e.From == StatusDeletionRequested:
		account.DeletionRequestedAt = nil
	case e.From == StatusDormant:
		account.LastLoginAt = TimePtr(in.Now)
	case e.From == StatusProfilePending && in.Profile != nil:
		account.Profile = *in.Profile
	}
}

func (e Edge) refuse(reason string) error {
	return &TransitionError{From: e.From, To: e.To, Reason: reason}
}

// DormancyCutoff is the instant before which a login makes an account
// eligible for dormancy.
func DormancyCutoff(now time.Time) time.Time {
	return now.AddDate(0, -DormancyAfterMonths, 0)
}

// DormancyNoticeCutoff is the instant before which a login puts an account in
// the advance-notice window.
func DormancyNoticeCutoff(now time.Time) time.Time {
	return now.AddDate(0, -DormancyNoticeMonths, 0)
}

func ScheduledPurgeAt(account Account) (time.Time, bool) {
	if account.DeletionRequestedAt == nil {
		return time.Time{}, false
	}
	return account.DeletionRequestedAt.Add(DeletionGracePeriod), true
}

func EligibleForHardDelete(account Account, now time.Time) bool {
	purgeAt, ok := ScheduledPurgeAt(account)
	if !ok || account.Status != StatusDeletionRequested {
		return false
	}
	return now.After(purgeAt)
}
