package integration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nbhub/projects-api/internal/services"
	"github.com/nbhub/projects-api/tests/testutil"
)

func TestSharingService_Integration_InviteLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	tdb := setupTest(t)
	usersPath := t.TempDir()
	svc := services.NewSharingService(tdb.DB, usersPath)
	ctx := context.Background()

	testutil.MakeWorkspaceDir(t, usersPath, "kchen", "analysis")

	share, err := svc.Create(ctx, services.ShareSpec{
		Owner:   "kchen",
		Dir:     "analysis",
		Invites: []string{"mlopez", "asmith"},
	})
	require.NoError(t, err)
	require.Len(t, share.Invites, 2)

	// Sharing the same directory twice is rejected.
	_, err = svc.Create(ctx, services.ShareSpec{
		Owner:   "kchen",
		Dir:     "analysis",
		Invites: []string{"tnguyen"},
	})
	assert.ErrorIs(t, err, services.ErrShareExists)

	// mlopez accepts their invite.
	var mlopezInvite, asmithInvite = share.Invites[0], share.Invites[1]
	if mlopezInvite.Invitee != "mlopez" {
		mlopezInvite, asmithInvite = asmithInvite, mlopezInvite
	}
	accepted, err := svc.Accept(ctx, mlopezInvite.ID, "mlopez", "")
	require.NoError(t, err)
	assert.True(t, accepted.Accepted)

	// Reconcile {mlopez, asmith} -> {mlopez, tnguyen}: mlopez keeps their
	// accepted invite, asmith is dropped, tnguyen joins as pending.
	diff, updated, err := svc.UpdateInvites(ctx, share.ID, "kchen", []string{"mlopez", "tnguyen"})
	require.NoError(t, err)
	require.NotNil(t, updated)
	require.Len(t, diff.Retained, 1)
	assert.Equal(t, mlopezInvite.ID, diff.Retained[0].ID)
	assert.True(t, diff.Retained[0].Accepted)
	require.Len(t, diff.Removed, 1)
	assert.Equal(t, asmithInvite.ID, diff.Removed[0].ID)
	require.Len(t, diff.Added, 1)
	assert.Equal(t, "tnguyen", diff.Added[0].Invitee)
	assert.False(t, diff.Added[0].Accepted)

	withMe, err := svc.SharedWithMe(ctx, "tnguyen")
	require.NoError(t, err)
	assert.Len(t, withMe, 1)

	// tnguyen declines; mlopez remains so the share survives.
	_, shareDeleted, err := svc.Reject(ctx, diff.Added[0].ID, "tnguyen", "")
	require.NoError(t, err)
	assert.False(t, shareDeleted)

	// mlopez declines last; the share itself is removed.
	_, shareDeleted, err = svc.Reject(ctx, mlopezInvite.ID, "mlopez", "")
	require.NoError(t, err)
	assert.True(t, shareDeleted)

	_, err = svc.Get(ctx, share.ID)
	assert.ErrorIs(t, err, services.ErrShareNotFound)
}

func TestSharingService_Integration_TokenClaim(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	tdb := setupTest(t)
	usersPath := t.TempDir()
	svc := services.NewSharingService(tdb.DB, usersPath)
	ctx := context.Background()

	testutil.MakeWorkspaceDir(t, usersPath, "kchen", "analysis")

	share, err := svc.Create(ctx, services.ShareSpec{
		Owner:   "kchen",
		Dir:     "analysis",
		Invites: []string{"mlopez@example.com"},
	})
	require.NoError(t, err)
	invite := share.Invites[0]

	// Without the emailed token another account cannot claim the invite.
	_, err = svc.Accept(ctx, invite.ID, "mlopez", "wrong-token")
	assert.ErrorIs(t, err, services.ErrPermission)

	// With it, the invite is rewritten to the claiming account.
	token := services.InviteToken(invite.ID, "mlopez@example.com")
	claimed, err := svc.Accept(ctx, invite.ID, "mlopez", token)
	require.NoError(t, err)
	assert.Equal(t, "mlopez", claimed.Invitee)
	assert.True(t, claimed.Accepted)
}

func TestSharingService_Integration_OwnerRemove(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	tdb := setupTest(t)
	usersPath := t.TempDir()
	svc := services.NewSharingService(tdb.DB, usersPath)
	ctx := context.Background()

	testutil.MakeWorkspaceDir(t, usersPath, "kchen", "analysis")

	share, err := svc.Create(ctx, services.ShareSpec{
		Owner:   "kchen",
		Dir:     "analysis",
		Invites: []string{"mlopez"},
	})
	require.NoError(t, err)

	_, err = svc.Remove(ctx, share.ID, "mlopez")
	assert.ErrorIs(t, err, services.ErrPermission)

	_, err = svc.Remove(ctx, share.ID, "kchen")
	require.NoError(t, err)

	_, err = svc.Get(ctx, share.ID)
	assert.ErrorIs(t, err, services.ErrShareNotFound)
}
