package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAccountDefaults(t *testing.T) {
	t.Parallel()

	company := NewAccount("brand", "b@example.com", KindCompany, now)
	assert.Equal(t, StatusProfilePending, company.Status)
	assert.Equal(t, PlanFree, company.Plan)
	assert.Equal(t, RoleUser, company.Role)
	assert.Equal(t, DefaultFollowerSearchLimit, company.FollowerSearchLimit)
	assert.Equal(t, ActionProposal, company.ActionKind())
	require.NoError(t, company.CheckInvariants())

	influencer := NewAccount("creator", "c@example.com", KindInfluencer, now)
	assert.Zero(t, influencer.FollowerSearchLimit)
	assert.Equal(t, ActionRequest, influencer.ActionKind())
}

func TestCheckInvariants(t *testing.T) {
	t.Parallel()

	valid := NewAccount("creator", "c@example.com", KindInfluencer, now)

	tests := []struct {
		name   string
		mutate func(*Account)
	}{
		{name: "paid plan without expiry", mutate: func(a *Account) { a.Plan = PlanPro }},
		{name: "free plan with expiry", mutate: func(a *Account) { a.PlanExpiry = TimePtr(now) }},
		{name: "deletion requested without timestamp", mutate: func(a *Account) { a.Status = StatusDeletionRequested }},
		{name: "deletion timestamp while active", mutate: func(a *Account) {
			a.Status = StatusActive
			a.DeletionRequestedAt = TimePtr(now)
		}},
		{name: "deleted is never stored", mutate: func(a *Account) { a.Status = StatusDeleted }},
		{name: "unknown kind", mutate: func(a *Account) { a.Kind = "AGENCY" }},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			account := valid.Clone()
			tt.mutate(&account)
			assert.Error(t, account.CheckInvariants())
		})
	}
}

func TestCloneSharesNoPointers(t *testing.T) {
	t.Parallel()

	account := NewAccount("creator", "c@example.com", KindInfluencer, now)
	account.LastLoginAt = TimePtr(now)
	account.Profile.Categories = []string{"beauty"}

	clone := account.Clone()
	*clone.LastLoginAt = now.Add(time.Hour)
	clone.Profile.Categories[0] = "travel"

	assert.Equal(t, now, *account.LastLoginAt)
	assert.Equal(t, "beauty", account.Profile.Categories[0])
}

func TestTracksLogin(t *testing.T) {
	t.Parallel()

	assert.True(t, StatusActive.TracksLogin())
	assert.True(t, StatusSuspended.TracksLogin())
	assert.False(t, StatusDormant.TracksLogin())
	assert.False(t, StatusDeletionRequested.TracksLogin())
}
