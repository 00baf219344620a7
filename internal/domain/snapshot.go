package domain

import "time"

// AccountSnapshot is what every lifecycle call hands back to its caller. The
// caller passes it along instead of keeping ambient session state.
type AccountSnapshot struct {
	Account      Account
	Action       ActionKind
	Month        MonthKey
	MonthlyLimit int
	MonthlyUsed  int
	PurgeAt      *time.Time
}

func NewSnapshot(account Account) AccountSnapshot {
	snapshot := AccountSnapshot{
		Account:      account,
		Action:       account.ActionKind(),
		MonthlyLimit: Unlimited,
	}
	if purgeAt, ok := ScheduledPurgeAt(account); ok {
		snapshot.PurgeAt = &purgeAt
	}
	return snapshot
}

type UpgradeRequestID string

type UpgradeStatus string

const (
	UpgradePending   UpgradeStatus = "pending"
	UpgradeCompleted UpgradeStatus = "completed"
)

// UpgradeRequest records that an account holder reported a manual payment.
// Nothing here moves money or changes the plan.
type UpgradeRequest struct {
	ID            UpgradeRequestID
	AccountID     AccountID
	DepositorName string
	Status        UpgradeStatus
	CreatedAt     time.Time
	CompletedAt   *time.Time
}
