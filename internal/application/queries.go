package application

import (
	"time"

	"github.com/bnema/collab-lifecycle/internal/domain"
)

type DormancyCandidate struct {
	Account     domain.Account
	LastLoginAt time.Time
	// DormantFrom is when twelve months without a login have passed.
	DormantFrom time.Time
}

type DormancyReport struct {
	GeneratedAt time.Time
	Approaching []DormancyCandidate
	Eligible    []DormancyCandidate
}

type PurgeCandidate struct {
	Account     domain.Account
	RequestedAt time.Time
	PurgeAt     time.Time
}
