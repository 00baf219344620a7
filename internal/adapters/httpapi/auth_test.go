package httpapi

import (
	"testing"
	"time"

	"github.com/bnema/collab-lifecycle/internal/application"
	"github.com/bnema/collab-lifecycle/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndVerify(t *testing.T) {
	t.Parallel()

	auth := NewAuthenticator([]byte("key"), "collab")
	auth.now = func() time.Time { return apiNow }

	token, err := auth.Issue(application.Principal{ID: "creator", Email: "c@example.com"}, time.Hour)
	require.NoError(t, err)

	principal, err := auth.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, domain.AccountID("creator"), principal.ID)
	assert.Equal(t, "c@example.com", principal.Email)
}

func TestVerifyRejectsBadTokens(t *testing.T) {
	t.Parallel()

	auth := NewAuthenticator([]byte("key"), "collab")
	auth.now = func() time.Time { return apiNow }
	expired, err := auth.Issue(application.Principal{ID: "creator"}, -time.Minute)
	require.NoError(t, err)

	other := NewAuthenticator([]byte("other-key"), "collab")
	other.now = auth.now
	forged, err := other.Issue(application.Principal{ID: "creator"}, time.Hour)
	require.NoError(t, err)

	wrongIssuer := NewAuthenticator([]byte("key"), "someone-else")
	wrongIssuer.now = auth.now
	foreign, err := wrongIssuer.Issue(application.Principal{ID: "creator"}, time.Hour)
	require.NoError(t, err)

	noSubject, err := auth.Issue(application.Principal{}, time.Hour)
	require.NoError(t, err)

	for name, token := range map[string]string{
		"expired":      expired,
		"forged":       forged,
		"wrong issuer": foreign,
		"no subject":   noSubject,
		"garbage":      "not.a.token",
	} {
		_, err := auth.Verify(token)
		assert.Error(t, err, name)
	}
}
