package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nbhub/projects-api/internal/database"
	"github.com/nbhub/projects-api/internal/models"
)

func setupSharingService(t *testing.T) (*SharingService, pgxmock.PgxPoolIface, string) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	db := &database.DB{Pool: mock}
	usersPath := t.TempDir()
	return NewSharingService(db, usersPath), mock, usersPath
}

func expectShareGet(mock pgxmock.PgxPoolIface, shareID uuid.UUID, owner, dir string, invites ...models.Invite) {
	mock.ExpectQuery(`SELECT .+ FROM shares WHERE id`).
		WithArgs(shareID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "owner", "dir", "created"}).
			AddRow(shareID, owner, dir, time.Now()))

	rows := pgxmock.NewRows([]string{"id", "share_id", "invitee", "accepted", "created"})
	for _, inv := range invites {
		rows.AddRow(inv.ID, shareID, inv.Invitee, inv.Accepted, time.Now())
	}
	mock.ExpectQuery(`SELECT .+ FROM invites WHERE share_id`).
		WithArgs(shareID).
		WillReturnRows(rows)
}

func TestSharingService_Create(t *testing.T) {
	svc, mock, usersPath := setupSharingService(t)
	ctx := context.Background()
	require.NoError(t, os.MkdirAll(filepath.Join(usersPath, "kchen", "analysis"), 0o755))

	shareID := uuid.New()
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO shares`).
		WithArgs("kchen", "analysis").
		WillReturnRows(pgxmock.NewRows([]string{"id", "owner", "dir", "created"}).
			AddRow(shareID, "kchen", "analysis", now))
	mock.ExpectQuery(`INSERT INTO invites`).
		WithArgs(shareID, "mlopez").
		WillReturnRows(pgxmock.NewRows([]string{"id", "share_id", "invitee", "accepted", "created"}).
			AddRow(uuid.New(), shareID, "mlopez", false, now))
	mock.ExpectCommit()

	share, err := svc.Create(ctx, ShareSpec{Owner: "kchen", Dir: "analysis", Invites: []string{"mlopez"}})

	require.NoError(t, err)
	assert.Equal(t, shareID, share.ID)
	require.Len(t, share.Invites, 1)
	assert.Equal(t, "mlopez", share.Invites[0].Invitee)
	assert.False(t, share.Invites[0].Accepted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSharingService_Create_MissingFields(t *testing.T) {
	svc, mock, _ := setupSharingService(t)

	_, err := svc.Create(context.Background(), ShareSpec{})

	var specErr *SpecError
	require.ErrorAs(t, err, &specErr)
	assert.ElementsMatch(t, []string{"owner", "dir", "invites"}, specErr.Missing)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSharingService_Create_SelfInvite(t *testing.T) {
	svc, _, usersPath := setupSharingService(t)
	require.NoError(t, os.MkdirAll(filepath.Join(usersPath, "kchen", "analysis"), 0o755))

	_, err := svc.Create(context.Background(), ShareSpec{
		Owner:   "kchen",
		Dir:     "analysis",
		Invites: []string{"mlopez", "kchen"},
	})

	assert.ErrorIs(t, err, ErrSelfInvite)
}

func TestSharingService_Create_MissingDirectory(t *testing.T) {
	svc, _, _ := setupSharingService(t)

	_, err := svc.Create(context.Background(), ShareSpec{
		Owner:   "kchen",
		Dir:     "nonexistent",
		Invites: []string{"mlopez"},
	})

	assert.ErrorIs(t, err, ErrInvalidProject)
}

func TestSharingService_UpdateInvites_Diff(t *testing.T) {
	svc, mock, _ := setupSharingService(t)
	ctx := context.Background()
	shareID := uuid.New()

	kept := models.Invite{ID: uuid.New(), Invitee: "mlopez", Accepted: true}
	dropped := models.Invite{ID: uuid.New(), Invitee: "asmith"}
	expectShareGet(mock, shareID, "kchen", "analysis", kept, dropped)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM invites`).
		WithArgs(dropped.ID).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectQuery(`INSERT INTO invites`).
		WithArgs(shareID, "tnguyen").
		WillReturnRows(pgxmock.NewRows([]string{"id", "share_id", "invitee", "accepted", "created"}).
			AddRow(uuid.New(), shareID, "tnguyen", false, time.Now()))
	mock.ExpectCommit()

	diff, share, err := svc.UpdateInvites(ctx, shareID, "kchen", []string{"mlopez", "tnguyen"})

	require.NoError(t, err)
	require.NotNil(t, share)

	require.Len(t, diff.Removed, 1)
	assert.Equal(t, "asmith", diff.Removed[0].Invitee)
	require.Len(t, diff.Added, 1)
	assert.Equal(t, "tnguyen", diff.Added[0].Invitee)
	require.Len(t, diff.Retained, 1)
	assert.Equal(t, "mlopez", diff.Retained[0].Invitee)
	// Retained invites keep their id and accepted state.
	assert.Equal(t, kept.ID, diff.Retained[0].ID)
	assert.True(t, diff.Retained[0].Accepted)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSharingService_UpdateInvites_EmptyListDeletesShare(t *testing.T) {
	svc, mock, _ := setupSharingService(t)
	shareID := uuid.New()

	invite := models.Invite{ID: uuid.New(), Invitee: "mlopez"}
	expectShareGet(mock, shareID, "kchen", "analysis", invite)

	mock.ExpectExec(`DELETE FROM shares`).
		WithArgs(shareID).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	diff, share, err := svc.UpdateInvites(context.Background(), shareID, "kchen", nil)

	require.NoError(t, err)
	assert.Nil(t, share)
	require.Len(t, diff.Removed, 1)
	assert.Equal(t, "mlopez", diff.Removed[0].Invitee)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSharingService_UpdateInvites_NotOwner(t *testing.T) {
	svc, mock, _ := setupSharingService(t)
	shareID := uuid.New()
	expectShareGet(mock, shareID, "kchen", "analysis")

	_, _, err := svc.UpdateInvites(context.Background(), shareID, "mlopez", []string{"tnguyen"})

	assert.ErrorIs(t, err, ErrPermission)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSharingService_Accept_ByTarget(t *testing.T) {
	svc, mock, _ := setupSharingService(t)
	inviteID := uuid.New()
	shareID := uuid.New()

	mock.ExpectQuery(`SELECT .+ FROM invites WHERE id`).
		WithArgs(inviteID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "share_id", "invitee", "accepted", "created"}).
			AddRow(inviteID, shareID, "mlopez", false, time.Now()))
	mock.ExpectQuery(`UPDATE invites SET invitee`).
		WithArgs("mlopez", inviteID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "share_id", "invitee", "accepted", "created"}).
			AddRow(inviteID, shareID, "mlopez", true, time.Now()))

	invite, err := svc.Accept(context.Background(), inviteID, "mlopez", "")

	require.NoError(t, err)
	assert.True(t, invite.Accepted)
	assert.Equal(t, "mlopez", invite.Invitee)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSharingService_Accept_WithTokenClaimsInvite(t *testing.T) {
	svc, mock, _ := setupSharingService(t)
	inviteID := uuid.New()
	shareID := uuid.New()
	token := InviteToken(inviteID, "mlopez@example.com")

	mock.ExpectQuery(`SELECT .+ FROM invites WHERE id`).
		WithArgs(inviteID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "share_id", "invitee", "accepted", "created"}).
			AddRow(inviteID, shareID, "mlopez@example.com", false, time.Now()))
	mock.ExpectQuery(`UPDATE invites SET invitee`).
		WithArgs("mlopez", inviteID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "share_id", "invitee", "accepted", "created"}).
			AddRow(inviteID, shareID, "mlopez", true, time.Now()))

	invite, err := svc.Accept(context.Background(), inviteID, "mlopez", token)

	require.NoError(t, err)
	assert.True(t, invite.Accepted)
	assert.Equal(t, "mlopez", invite.Invitee)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSharingService_Accept_WrongUserWithoutToken(t *testing.T) {
	svc, mock, _ := setupSharingService(t)
	inviteID := uuid.New()

	mock.ExpectQuery(`SELECT .+ FROM invites WHERE id`).
		WithArgs(inviteID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "share_id", "invitee", "accepted", "created"}).
			AddRow(inviteID, uuid.New(), "mlopez@example.com", false, time.Now()))

	_, err := svc.Accept(context.Background(), inviteID, "intruder", "bogus-token")

	assert.ErrorIs(t, err, ErrPermission)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSharingService_Reject_LastInviteDeletesShare(t *testing.T) {
	svc, mock, _ := setupSharingService(t)
	inviteID := uuid.New()
	shareID := uuid.New()

	mock.ExpectQuery(`SELECT .+ FROM invites WHERE id`).
		WithArgs(inviteID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "share_id", "invitee", "accepted", "created"}).
			AddRow(inviteID, shareID, "mlopez", false, time.Now()))
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM shares .+ FOR UPDATE`).
		WithArgs(shareID).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(shareID))
	mock.ExpectExec(`DELETE FROM invites`).
		WithArgs(inviteID).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectQuery(`SELECT COUNT`).
		WithArgs(shareID).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(`DELETE FROM shares`).
		WithArgs(shareID).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectCommit()

	invite, shareDeleted, err := svc.Reject(context.Background(), inviteID, "mlopez", "")

	require.NoError(t, err)
	assert.True(t, shareDeleted)
	assert.Equal(t, "mlopez", invite.Invitee)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSharingService_Reject_OthersRemain(t *testing.T) {
	svc, mock, _ := setupSharingService(t)
	inviteID := uuid.New()
	shareID := uuid.New()

	mock.ExpectQuery(`SELECT .+ FROM invites WHERE id`).
		WithArgs(inviteID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "share_id", "invitee", "accepted", "created"}).
			AddRow(inviteID, shareID, "mlopez", false, time.Now()))
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM shares .+ FOR UPDATE`).
		WithArgs(shareID).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(shareID))
	mock.ExpectExec(`DELETE FROM invites`).
		WithArgs(inviteID).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectQuery(`SELECT COUNT`).
		WithArgs(shareID).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectCommit()

	_, shareDeleted, err := svc.Reject(context.Background(), inviteID, "mlopez", "")

	require.NoError(t, err)
	assert.False(t, shareDeleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSharingService_Remove_OwnerOnly(t *testing.T) {
	svc, mock, _ := setupSharingService(t)
	shareID := uuid.New()
	expectShareGet(mock, shareID, "kchen", "analysis")

	_, err := svc.Remove(context.Background(), shareID, "mlopez")

	assert.ErrorIs(t, err, ErrPermission)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSharingService_SharedWithMe(t *testing.T) {
	svc, mock, _ := setupSharingService(t)
	shareID := uuid.New()

	mock.ExpectQuery(`SELECT DISTINCT .+ FROM shares`).
		WithArgs("mlopez").
		WillReturnRows(pgxmock.NewRows([]string{"id", "owner", "dir", "created"}).
			AddRow(shareID, "kchen", "analysis", time.Now()))
	mock.ExpectQuery(`SELECT .+ FROM invites WHERE share_id`).
		WithArgs(shareID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "share_id", "invitee", "accepted", "created"}).
			AddRow(uuid.New(), shareID, "mlopez", true, time.Now()))

	shares, err := svc.SharedWithMe(context.Background(), "mlopez")

	require.NoError(t, err)
	require.Len(t, shares, 1)
	assert.Equal(t, "kchen", shares[0].Owner)
	require.Len(t, shares[0].Invites, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}
