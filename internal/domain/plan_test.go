package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanExpired(t *testing.T) {
	t.Parallel()

	account := Account{Plan: PlanPro, PlanExpiry: TimePtr(now)}
	assert.False(t, account.PlanExpired(now))
	assert.True(t, account.PlanExpired(now.Add(time.Millisecond)))

	account = Account{Plan: PlanFree}
	assert.False(t, account.PlanExpired(now.AddDate(10, 0, 0)))
}

func TestDowngradeToFree(t *testing.T) {
	t.Parallel()

	company := Account{Kind: KindCompany, Plan: PlanEnterprise, PlanExpiry: TimePtr(now), FollowerSearchLimit: Unlimited}
	require.True(t, company.DowngradeToFree())
	assert.Equal(t, PlanFree, company.Plan)
	assert.Nil(t, company.PlanExpiry)
	assert.Equal(t, DefaultFollowerSearchLimit, company.FollowerSearchLimit)
	assert.False(t, company.DowngradeToFree())

	influencer := Account{Kind: KindInfluencer, Plan: PlanPro, PlanExpiry: TimePtr(now)}
	require.True(t, influencer.DowngradeToFree())
	assert.Zero(t, influencer.FollowerSearchLimit)
}

func TestEndOfDayUTC(t *testing.T) {
	t.Parallel()

	day := time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 6, 30, 23, 59, 59, 999_000_000, time.UTC), EndOfDayUTC(day))
}

func TestFollowerSearchLimitOptions(t *testing.T) {
	t.Parallel()

	for _, limit := range []int{10_000, 50_000, 100_000, Unlimited} {
		assert.True(t, ValidFollowerSearchLimit(limit), "%d", limit)
	}
	for _, limit := range []int{0, 20_000, 1_000_000} {
		assert.False(t, ValidFollowerSearchLimit(limit), "%d", limit)
	}
}

func TestPlanSettingsEffectiveLimit(t *testing.T) {
	t.Parallel()

	limit := 3
	assert.Equal(t, DefaultMonthlyLimit, PlanSettings{}.EffectiveLimit())
	assert.Equal(t, 3, PlanSettings{MonthlyLimit: &limit}.EffectiveLimit())
	zero := 0
	assert.Equal(t, 0, PlanSettings{MonthlyLimit: &zero}.EffectiveLimit())
	assert.Equal(t, "companyPlan", SettingsKey(KindCompany))
	assert.Equal(t, "influencerPlan", SettingsKey(KindInfluencer))
}

func TestMonthKeyUsesUTC(t *testing.T) {
	t.Parallel()

	seoul := time.FixedZone("KST", 9*60*60)
	local := time.Date(2026, 2, 1, 8, 0, 0, 0, seoul)
	assert.Equal(t, MonthKey("2026-01"), MonthKeyFor(local))

	_, err := ParseMonthKey("2026-13")
	assert.Error(t, err)
	key, err := ParseMonthKey("2026-02")
	require.NoError(t, err)
	assert.Equal(t, MonthKey("2026-02"), key)
}

func TestConsumeResultRemaining(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 2, ConsumeResult{Count: 8, Limit: 10}.Remaining())
	assert.Equal(t, 0, ConsumeResult{Count: 12, Limit: 10}.Remaining())
	assert.Equal(t, Unlimited, ConsumeResult{Limit: Unlimited}.Remaining())
}

func TestQuotaExceededErrorMatchesSentinel(t *testing.T) {
	t.Parallel()

	err := error(&QuotaExceededError{Action: ActionProposal, Month: "2026-03", Count: 3, Limit: 3})
	assert.ErrorIs(t, err, ErrQuotaExceeded)
	assert.Equal(t, "monthly proposal quota exceeded for 2026-03: 3/3", err.Error())
	assert.True(t, IsTransient(Transient(err)))
	assert.Nil(t, Transient(nil))
}

func TestCompanyProfileValidation(t *testing.T) {
	t.Parallel()

	assert.ErrorIs(t, Profile{WebsiteURL: "not a url"}.Validate(KindCompany), ErrInvalidProfile)
	assert.NoError(t, Profile{WebsiteURL: " https://brand.example.com "}.Validate(KindCompany))
	assert.ErrorIs(t, Profile{InstagramURL: "https://instagram.com/x", FollowerCount: -1}.Validate(KindInfluencer), ErrInvalidProfile)
	assert.ErrorIs(t, Profile{}.Validate("AGENCY"), ErrInvalidProfile)
}
