package domain

import "time"

type Plan string

const (
	PlanFree       Plan = "free"
	PlanPro        Plan = "pro"
	PlanEnterprise Plan = "enterprise"
)

const (
	// Unlimited is the limit value meaning "no cap".
	Unlimited = -1

	DefaultMonthlyLimit        = 10
	DefaultFollowerSearchLimit = 10_000
)

// FollowerSearchLimitOptions are the values an administrator may assign.
var FollowerSearchLimitOptions = []int{10_000, 50_000, 100_000, Unlimited}

func (p Plan) Valid() bool {
	switch p {
	case PlanFree, PlanPro, PlanEnterprise:
		return true
	default:
		return false
	}
}

func (p Plan) IsPaid() bool {
	return p == PlanPro || p == PlanEnterprise
}

// PlanExpired reports whether a paid plan has passed its expiry at now.
func (a Account) PlanExpired(now time.Time) bool {
	return a.Plan.IsPaid() && a.PlanExpiry != nil && now.After(*a.PlanExpiry)
}

// DowngradeToFree applies the expiry downgrade. It reports false when a is
// already on the free plan.
func (a *Account) DowngradeToFree() bool {
	if a.Plan == PlanFree && a.PlanExpiry == nil {
		return false
	}

	a.Plan = PlanFree
	a.PlanExpiry = nil
	if a.Kind == KindCompany {
		a.FollowerSearchLimit = DefaultFollowerSearchLimit
	}
	return true
}

// EndOfDayUTC moves a calendar date to its last representable millisecond in UTC.
func EndOfDayUTC(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), time.UTC)
}

func ValidFollowerSearchLimit(limit int) bool {
	for _, option := range FollowerSearchLimitOptions {
		if option == limit {
			return true
		}
	}
	return false
}

type PlanSettings struct {
	Kind Kind
	// MonthlyLimit is nil when the administrator never set one.
	MonthlyLimit        *int
	Price               string
	PaymentInstructions string
}

// SettingsKey is the document key holding the settings for kind.
func SettingsKey(kind Kind) string {
	if kind == KindCompany {
		return "companyPlan"
	}
	return "influencerPlan"
}

// EffectiveLimit resolves the monthly cap, falling back to DefaultMonthlyLimit.
func (s PlanSettings) EffectiveLimit() int {
	if s.MonthlyLimit == nil || *s.MonthlyLimit < 0 {
		return DefaultMonthlyLimit
	}
	return *s.MonthlyLimit
}
