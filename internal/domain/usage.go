package domain

import (
	"fmt"
	"time"
)

type ActionKind string

const (
	ActionProposal ActionKind = "proposal"
	ActionRequest  ActionKind = "request"
)

func (k ActionKind) Valid() bool {
	return k == ActionProposal || k == ActionRequest
}

// MonthKey identifies a calendar month as YYYY-MM.
type MonthKey string

const monthKeyLayout = "2006-01"

func MonthKeyFor(t time.Time) MonthKey {
	return MonthKey(t.UTC().Format(monthKeyLayout))
}

func ParseMonthKey(raw string) (MonthKey, error) {
	if _, err := time.Parse(monthKeyLayout, raw); err != nil {
		return "", fmt.Errorf("invalid month key %q: %w", raw, err)
	}
	return MonthKey(raw), nil
}

type UsageRecord struct {
	AccountID AccountID
	Month     MonthKey
	Action    ActionKind
	Count     int
}

type ConsumeResult struct {
	AccountID AccountID
	Action    ActionKind
	Month     MonthKey
	Count     int
	Limit     int
}

func (r ConsumeResult) Unlimited() bool {
	return r.Limit == Unlimited
}

// Remaining is the number of actions left this month, or Unlimited.
func (r ConsumeResult) Remaining() int {
	if r.Unlimited() {
		return Unlimited
	}
	if r.Count >= r.Limit {
		return 0
	}
	return r.Limit - r.Count
}
