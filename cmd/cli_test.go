package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bnema/collab-lifecycle/internal/adapters/httpapi"
	"github.com/bnema/collab-lifecycle/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionPrintsBuildVersion(t *testing.T) {
	stdout, _, err := executeCLI(t, t.TempDir(), "version")
	require.NoError(t, err)
	assert.Equal(t, "dev\n", stdout)
}

func TestRegisterRequiresKindFlag(t *testing.T) {
	_, _, err := executeCLI(t, t.TempDir(), "register", "--as", "inf-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag(s) \"kind\" not set")
}

func TestCommandsRequireActingAccount(t *testing.T) {
	_, _, err := executeCLI(t, t.TempDir(), "consume", "request")
	require.Error(t, err)
	assert.ErrorIs(t, err, errNoActor)
}

func TestActorFallsBackToEnvironment(t *testing.T) {
	home := t.TempDir()
	t.Setenv("CLC_ACTOR", "inf-1")

	stdout, _, err := executeCLI(t, home, "register", "--kind", "influencer", "--email", "inf@example.com")
	require.NoError(t, err)
	assert.Contains(t, stdout, "inf@example.com (inf-1)")
}

func TestRegisterRendersNewAccount(t *testing.T) {
	home := t.TempDir()

	stdout, _, err := executeCLI(t, home, "register", "--as", "inf-1", "--kind", "influencer", "--email", "inf@example.com")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Account Lifecycle")
	assert.Contains(t, stdout, "accounts: 1")
	assert.Contains(t, stdout, "inf@example.com (inf-1)")
	assert.Contains(t, stdout, "plan: free")

	_, err = os.Stat(filepath.Join(home, ".collab", "lifecycle.toml"))
	assert.NoError(t, err)
}

func TestOnboardingApprovalAndQuota(t *testing.T) {
	home := t.TempDir()
	seedAdmin(t, home, "admin-1")
	mustRun(t, home, "register", "--as", "inf-1", "--kind", "influencer", "--email", "inf@example.com")

	_, _, err := executeCLI(t, home, "transition", "inf-1", "active", "--as", "admin-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	stdout := mustRun(t, home, "profile", "complete", "--as", "inf-1",
		"--display-name", "Inf", "--instagram-url", "https://instagram.com/inf", "--followers", "1200", "--json")
	assert.Equal(t, domain.StatusPending, decodeSnapshots(t, stdout)[0].Account.Status)

	stdout = mustRun(t, home, "transition", "inf-1", "active", "--as", "admin-1", "--expect-from", "pending", "--json")
	assert.Equal(t, domain.StatusActive, decodeSnapshots(t, stdout)[0].Account.Status)

	mustRun(t, home, "settings", "set", "influencer", "--monthly-limit", "1", "--as", "admin-1")

	stdout = mustRun(t, home, "consume", "request", "--as", "inf-1")
	assert.Contains(t, stdout, "1/1 used, 0 left")

	_, _, err = executeCLI(t, home, "consume", "request", "--as", "inf-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrQuotaExceeded)

	_, _, err = executeCLI(t, home, "consume", "proposal", "--as", "inf-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidAction)
}

func TestTransitionRejectsUnknownStatus(t *testing.T) {
	_, _, err := executeCLI(t, t.TempDir(), "transition", "inf-1", "archived", "--as", "admin-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown status \"archived\"")
}

func TestNonAdminCannotApprove(t *testing.T) {
	home := t.TempDir()
	mustRun(t, home, "register", "--as", "inf-1", "--kind", "influencer")
	mustRun(t, home, "register", "--as", "inf-2", "--kind", "influencer")
	mustRun(t, home, "profile", "complete", "--as", "inf-2", "--instagram-url", "https://instagram.com/two")

	_, _, err := executeCLI(t, home, "transition", "inf-2", "active", "--as", "inf-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestDeletionRequestCancelAndEarlyPurge(t *testing.T) {
	home := t.TempDir()
	seedAdmin(t, home, "admin-1")
	seedActiveCompany(t, home, "admin-1", "co-1")

	_, _, err := executeCLI(t, home, "deletion", "request", "--as", "co-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deletion not confirmed")

	stdout := mustRun(t, home, "deletion", "request", "--confirm", "--as", "co-1", "--json")
	snapshot := decodeSnapshots(t, stdout)[0]
	assert.Equal(t, domain.StatusDeletionRequested, snapshot.Account.Status)
	require.NotNil(t, snapshot.PurgeAt)

	stdout = mustRun(t, home, "deletion", "purgeable")
	assert.Contains(t, stdout, "Nothing to purge.")

	_, _, err = executeCLI(t, home, "deletion", "purge", "co-1", "--as", "admin-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "grace period not elapsed")

	stdout = mustRun(t, home, "deletion", "cancel", "--as", "co-1", "--json")
	snapshot = decodeSnapshots(t, stdout)[0]
	assert.Equal(t, domain.StatusActive, snapshot.Account.Status)
	assert.Nil(t, snapshot.Account.DeletionRequestedAt)
}

func TestPlanSetRequiresExpiryForPaidPlans(t *testing.T) {
	home := t.TempDir()
	seedAdmin(t, home, "admin-1")
	seedActiveCompany(t, home, "admin-1", "co-1")

	_, _, err := executeCLI(t, home, "plan", "set", "co-1", "pro", "--as", "admin-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidPlan)

	_, _, err = executeCLI(t, home, "plan", "set", "co-1", "pro", "--expires", "30/06/2030", "--as", "admin-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--expires must be YYYY-MM-DD")

	stdout := mustRun(t, home, "plan", "set", "co-1", "pro", "--expires", "2030-06-30",
		"--follower-search-limit", "50000", "--as", "admin-1", "--json")
	account := decodeSnapshots(t, stdout)[0].Account
	assert.Equal(t, domain.PlanPro, account.Plan)
	assert.Equal(t, 50_000, account.FollowerSearchLimit)
	require.NotNil(t, account.PlanExpiry)
	assert.Equal(t, "2030-06-30T23:59:59.999Z", account.PlanExpiry.UTC().Format("2006-01-02T15:04:05.000Z07:00"))
}

func TestUpgradeRequestListAndComplete(t *testing.T) {
	home := t.TempDir()
	seedAdmin(t, home, "admin-1")
	seedActiveCompany(t, home, "admin-1", "co-1")

	stdout := mustRun(t, home, "upgrade", "request", "--depositor", "  Kim Co  ", "--as", "co-1", "--json")
	var requests []domain.UpgradeRequest
	require.NoError(t, json.Unmarshal([]byte(stdout), &requests))
	require.Len(t, requests, 1)
	assert.Equal(t, "Kim Co", requests[0].DepositorName)

	stdout = mustRun(t, home, "upgrade", "list")
	assert.Contains(t, stdout, string(requests[0].ID))
	assert.Contains(t, stdout, "Kim Co")

	_, _, err := executeCLI(t, home, "upgrade", "complete", string(requests[0].ID), "--as", "co-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	stdout = mustRun(t, home, "upgrade", "complete", string(requests[0].ID), "--as", "admin-1", "--json")
	assert.Contains(t, stdout, `"Status": "completed"`)

	stdout = mustRun(t, home, "upgrade", "list")
	assert.Contains(t, stdout, "No pending upgrade requests.")
}

func TestSettingsShowFallsBackToDefault(t *testing.T) {
	stdout := mustRun(t, t.TempDir(), "settings", "show", "company")
	assert.Contains(t, stdout, "kind: COMPANY")
	assert.Contains(t, stdout, "monthly limit: 10 (default)")
}

func TestSettingsSetIsAdminOnly(t *testing.T) {
	home := t.TempDir()
	mustRun(t, home, "register", "--as", "inf-1", "--kind", "influencer")

	_, _, err := executeCLI(t, home, "settings", "set", "influencer", "--monthly-limit", "3", "--as", "inf-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestDormancyScanReportsEmptyReview(t *testing.T) {
	home := t.TempDir()
	seedAdmin(t, home, "admin-1")
	seedActiveCompany(t, home, "admin-1", "co-1")
	mustRun(t, home, "login", "--as", "co-1")

	stdout := mustRun(t, home, "dormancy", "scan")
	assert.Contains(t, stdout, "Dormancy Review")
	assert.Contains(t, stdout, "eligible now: 0")

	_, _, err := executeCLI(t, home, "dormancy", "mark", "co-1", "--as", "admin-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "last login within 12 months")
}

func TestStatusJSONListsEveryAccount(t *testing.T) {
	home := t.TempDir()
	mustRun(t, home, "register", "--as", "b-2", "--kind", "company", "--email", "b@example.com")
	mustRun(t, home, "register", "--as", "a-1", "--kind", "influencer")

	stdout := mustRun(t, home, "status", "--json")
	snapshots := decodeSnapshots(t, stdout)
	require.Len(t, snapshots, 2)
	assert.Equal(t, domain.AccountID("a-1"), snapshots[0].Account.ID)
	assert.Equal(t, domain.AccountID("b-2"), snapshots[1].Account.ID)

	stdout = mustRun(t, home, "status", "--account", "b-2")
	assert.Contains(t, stdout, "accounts: 1")
	assert.Contains(t, stdout, "b@example.com (b-2)")
}

func TestStatusUnknownAccount(t *testing.T) {
	_, _, err := executeCLI(t, t.TempDir(), "status", "--account", "ghost")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestConfigFileSelectsSQLiteStore(t *testing.T) {
	home := t.TempDir()
	writeConfig(t, home, "[store]\ndriver = \"sqlite\"\n")

	mustRun(t, home, "register", "--as", "inf-1", "--kind", "influencer")

	_, err := os.Stat(filepath.Join(home, ".collab", "lifecycle.db"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(home, ".collab", "lifecycle.toml"))
	assert.True(t, os.IsNotExist(err))
}

func TestUnknownStoreDriverFromEnvironment(t *testing.T) {
	t.Setenv("CLC_STORE_DRIVER", "mongo")

	_, _, err := executeCLI(t, t.TempDir(), "status")
	require.Error(t, err)
	assert.ErrorIs(t, err, errUnknownDriver)
}

func TestTokenIssueSignsVerifiableToken(t *testing.T) {
	t.Setenv("CLC_SIGNING_KEY", "test-signing-key")

	stdout := mustRun(t, t.TempDir(), "token", "issue", "inf-1", "--email", "inf@example.com")
	token := strings.TrimSpace(stdout)
	assert.Len(t, strings.Split(token, "."), 3)

	principal, err := httpapi.NewAuthenticator([]byte("test-signing-key"), "collab-lifecycle").Verify(token)
	require.NoError(t, err)
	assert.Equal(t, domain.AccountID("inf-1"), principal.ID)
	assert.Equal(t, "inf@example.com", principal.Email)
}

func TestTokenIssueReadsKeyFromSecretFile(t *testing.T) {
	home := t.TempDir()
	secretsDir := filepath.Join(home, ".collab", "secrets")
	require.NoError(t, os.MkdirAll(secretsDir, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(secretsDir, "signing-key"), []byte("file-key\n"), 0o600))
	writeConfig(t, home, "[auth]\nsigning_key_ref = \"file://signing-key\"\n")

	stdout := mustRun(t, home, "token", "issue", "inf-1")
	_, err := httpapi.NewAuthenticator([]byte("file-key"), "collab-lifecycle").Verify(strings.TrimSpace(stdout))
	assert.NoError(t, err)
}

func TestTokenIssueFailsWithoutKey(t *testing.T) {
	_, _, err := executeCLI(t, t.TempDir(), "token", "issue", "inf-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "resolve signing key env://CLC_SIGNING_KEY")
}

func TestServeAnswersHealthUntilCancelled(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	app, err := wireApp()
	require.NoError(t, err)
	require.NoError(t, app.open(context.Background()))
	t.Cleanup(func() { _ = app.close() })

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- app.serve(ctx, listener, []byte("test-signing-key"), "off")
	}()

	resp, err := http.Get("http://" + listener.Addr().String() + "/health")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get("http://" + listener.Addr().String() + "/v1/me")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	cancel()
	assert.NoError(t, <-done)
}

func TestServeReleasesListenerOnBadScanSchedule(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	app, err := wireApp()
	require.NoError(t, err)
	require.NoError(t, app.open(context.Background()))
	t.Cleanup(func() { _ = app.close() })

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	err = app.serve(context.Background(), listener, []byte("test-signing-key"), "not a cron")
	require.Error(t, err)

	_, err = listener.Accept()
	assert.ErrorIs(t, err, net.ErrClosed)
}

func executeCLI(t *testing.T, home string, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("HOME", home)

	root := newRootCmd()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetArgs(args)

	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func mustRun(t *testing.T, home string, args ...string) string {
	t.Helper()

	stdout, stderr, err := executeCLI(t, home, args...)
	require.NoError(t, err, "clc %s: %s", strings.Join(args, " "), stderr)
	return stdout
}

func seedAdmin(t *testing.T, home string, id string) {
	t.Helper()

	mustRun(t, home, "register", "--as", id, "--kind", "company", "--email", id+"@example.com")
	stdout := mustRun(t, home, "admin", "grant", id)
	require.Equal(t, id+"\tadmin\n", stdout)
}

func seedActiveCompany(t *testing.T, home, adminID, id string) {
	t.Helper()

	mustRun(t, home, "register", "--as", id, "--kind", "company", "--email", id+"@example.com")
	mustRun(t, home, "profile", "complete", "--as", id, "--website-url", "https://example.com/"+id)
	mustRun(t, home, "transition", id, "active", "--as", adminID)
}

func decodeSnapshots(t *testing.T, stdout string) []domain.AccountSnapshot {
	t.Helper()

	var snapshots []domain.AccountSnapshot
	require.NoError(t, json.Unmarshal([]byte(stdout), &snapshots), stdout)
	return snapshots
}

func writeConfig(t *testing.T, home, content string) {
	t.Helper()

	dir := filepath.Join(home, ".collab")
	require.NoError(t, os.MkdirAll(dir, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, configFileName), []byte(content), 0o600))
}
