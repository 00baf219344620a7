package domain

import (
	"fmt"
	"time"
)

type AccountID string

type Kind string

const (
	KindInfluencer Kind = "INFLUENCER"
	KindCompany    Kind = "COMPANY"
)

func (k Kind) Valid() bool {
	return k == KindInfluencer || k == KindCompany
}

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type Status string

const (
	StatusProfilePending    Status = "profile_pending"
	StatusPending           Status = "pending"
	StatusActive            Status = "active"
	StatusSuspended         Status = "suspended"
	StatusRejected          Status = "rejected"
	StatusDormant           Status = "dormant"
	StatusDeletionRequested Status = "deletion_requested"

	// StatusDeleted is the terminal pseudo-status reached by a hard delete.
	// It is never persisted.
	StatusDeleted Status = "deleted"
)

func (s Status) Valid() bool {
	switch s {
	case StatusProfilePending, StatusPending, StatusActive, StatusSuspended,
		StatusRejected, StatusDormant, StatusDeletionRequested, StatusDeleted:
		return true
	default:
		return false
	}
}

// TracksLogin reports whether a session in this status refreshes LastLoginAt.
func (s Status) TracksLogin() bool {
	return s != StatusDormant && s != StatusDeletionRequested
}

type Account struct {
	ID                  AccountID
	Email               string
	Kind                Kind
	Role                Role
	Status              Status
	Plan                Plan
	PlanExpiry          *time.Time
	LastLoginAt         *time.Time
	DeletionRequestedAt *time.Time
	FollowerSearchLimit int
	Profile             Profile
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// NewAccount returns the record a freshly signed-up principal starts with.
func NewAccount(id AccountID, email string, kind Kind, now time.Time) Account {
	account := Account{
		ID:        id,
		Email:     email,
		Kind:      kind,
		Role:      RoleUser,
		Status:    StatusProfilePending,
		Plan:      PlanFree,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if kind == KindCompany {
		account.FollowerSearchLimit = DefaultFollowerSearchLimit
	}

	return account
}

func (a Account) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// ActionKind is the quota-consuming action available to the account's kind.
func (a Account) ActionKind() ActionKind {
	if a.Kind == KindCompany {
		return ActionProposal
	}
	return ActionRequest
}

// CheckInvariants validates the cross-field rules every persisted account obeys.
func (a Account) CheckInvariants() error {
	if !a.Kind.Valid() {
		return fmt.Errorf("account %s: unknown kind %q", a.ID, a.Kind)
	}
	if !a.Status.Valid() || a.Status == StatusDeleted {
		return fmt.Errorf("account %s: unknown status %q", a.ID, a.Status)
	}
	if !a.Plan.Valid() {
		return fmt.Errorf("account %s: unknown plan %q", a.ID, a.Plan)
	}
	if a.Plan.IsPaid() != (a.PlanExpiry != nil) {
		return fmt.Errorf("account %s: plan %s with expiry set=%t", a.ID, a.Plan, a.PlanExpiry != nil)
	}
	if (a.Status == StatusDeletionRequested) != (a.DeletionRequestedAt != nil) {
		return fmt.Errorf("account %s: status %s with deletion timestamp set=%t", a.ID, a.Status, a.DeletionRequestedAt != nil)
	}

	return nil
}

// Clone returns a copy that shares no pointers with a.
func (a Account) Clone() Account {
	a.PlanExpiry = cloneTime(a.PlanExpiry)
	a.LastLoginAt = cloneTime(a.LastLoginAt)
	a.DeletionRequestedAt = cloneTime(a.DeletionRequestedAt)
	if a.Profile.Categories != nil {
		a.Profile.Categories = append([]string(nil), a.Profile.Categories...)
	}
	return a
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// TimePtr is a small helper for optional timestamps.
func TimePtr(t time.Time) *time.Time {
	return &t
}
