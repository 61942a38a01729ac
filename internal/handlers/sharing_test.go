package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
	driftmw "github.com/m1z23r/drift/pkg/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/nbhub/projects-api/internal/middleware"
	"github.com/nbhub/projects-api/internal/models"
	"github.com/nbhub/projects-api/internal/services"
	"github.com/nbhub/projects-api/pkg/dto"
	"github.com/nbhub/projects-api/tests/testutil"
)

func setupSharingTest(t *testing.T) (*testutil.MockSharingService, *testutil.MockSpawnerService, *testutil.MockEmailService, *SharingHandler, *services.JWTService) {
	t.Helper()
	mockSharing := new(testutil.MockSharingService)
	mockSpawners := new(testutil.MockSpawnerService)
	mockEmail := new(testutil.MockEmailService)
	handler := NewSharingHandler(mockSharing, mockSpawners, mockEmail)
	jwtSvc := services.NewJWTService("test-secret-key", 15*time.Minute)
	return mockSharing, mockSpawners, mockEmail, handler, jwtSvc
}

func newSharingApp(handler *SharingHandler, jwtSvc *services.JWTService) http.Handler {
	app := drift.New()
	app.Use(driftmw.BodyParser())
	app.Use(middleware.Auth(jwtSvc))
	app.Get("/sharing", handler.List)
	app.Post("/sharing", handler.Create)
	app.Get("/sharing/:id", handler.Get)
	app.Put("/sharing/:id", handler.Update)
	app.Delete("/sharing/:id", handler.Remove)
	app.Post("/sharing/invite/:id", handler.Accept)
	app.Delete("/sharing/invite/:id", handler.Reject)
	return app
}

func sampleShare(owner, dir string, invitees ...string) *models.Share {
	share := &models.Share{
		ID:      uuid.New(),
		Owner:   owner,
		Dir:     dir,
		Created: time.Now(),
	}
	for _, invitee := range invitees {
		share.Invites = append(share.Invites, models.Invite{
			ID:      uuid.New(),
			ShareID: share.ID,
			Invitee: invitee,
			Created: time.Now(),
		})
	}
	return share
}

func TestSharingHandler_List_EnrichesFromSpawner(t *testing.T) {
	mockSharing, mockSpawners, _, handler, jwtSvc := setupSharingTest(t)

	started := time.Now()
	byMe := sampleShare("kchen", "analysis", "mlopez")
	withMe := sampleShare("tnguyen", "figures", "kchen")

	mockSharing.On("SharedByMe", mock.Anything, "kchen").Return([]models.Share{*byMe}, nil)
	mockSharing.On("SharedWithMe", mock.Anything, "kchen").Return([]models.Share{*withMe}, nil)
	mockSpawners.On("Spawner", mock.Anything, "kchen", "analysis").Return(&models.Spawner{
		Name:        "analysis",
		UserOptions: `{"name":"Analysis","image":"python:3.11"}`,
		Started:     &started,
	}, nil)
	mockSpawners.On("Spawner", mock.Anything, "tnguyen", "figures").
		Return(nil, services.ErrSpawnerNotFound)

	app := newSharingApp(handler, jwtSvc)

	req := httptest.NewRequest(http.MethodGet, "/sharing", nil)
	req.Header.Set("Authorization", "Bearer "+authToken(t, jwtSvc, "kchen", false))
	rec := httptest.NewRecorder()

	app.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var response dto.SharingListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	require.Len(t, response.SharedByMe, 1)
	require.NotNil(t, response.SharedByMe[0].Project)
	assert.Equal(t, "Analysis", response.SharedByMe[0].Project.Name)
	assert.True(t, response.SharedByMe[0].Project.Active)
	require.Len(t, response.SharedWithMe, 1)
	assert.Nil(t, response.SharedWithMe[0].Project)

	mockSharing.AssertExpectations(t)
	mockSpawners.AssertExpectations(t)
}

func TestSharingHandler_Create_Success(t *testing.T) {
	mockSharing, _, mockEmail, handler, jwtSvc := setupSharingTest(t)

	share := sampleShare("kchen", "analysis", "mlopez")
	mockSharing.On("Create", mock.Anything, services.ShareSpec{
		Owner:   "kchen",
		Dir:     "analysis",
		Invites: []string{"mlopez"},
	}).Return(share, nil)
	mockEmail.On("IsConfigured").Return(false)

	app := newSharingApp(handler, jwtSvc)

	body, _ := json.Marshal(dto.CreateShareRequest{Dir: "analysis", Invites: []string{"mlopez"}})
	req := httptest.NewRequest(http.MethodPost, "/sharing", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+authToken(t, jwtSvc, "kchen", false))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	app.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)

	var response dto.ShareResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, share.ID, response.ID)
	require.Len(t, response.Invites, 1)
	assert.Equal(t, "mlopez", response.Invites[0].User)
	assert.False(t, response.Invites[0].Accepted)

	mockSharing.AssertExpectations(t)
}

func TestSharingHandler_Create_EmailsInvitees(t *testing.T) {
	mockSharing, _, mockEmail, handler, jwtSvc := setupSharingTest(t)

	share := sampleShare("kchen", "analysis", "mlopez@example.com", "tnguyen")
	mockSharing.On("Create", mock.Anything, mock.Anything).Return(share, nil)
	mockEmail.On("IsConfigured").Return(true)
	mockEmail.On("SendShareInvite", "mlopez@example.com", "kchen", "analysis", share.Invites[0].ID).
		Return(nil)

	app := newSharingApp(handler, jwtSvc)

	body, _ := json.Marshal(dto.CreateShareRequest{Dir: "analysis", Invites: []string{"mlopez@example.com", "tnguyen"}})
	req := httptest.NewRequest(http.MethodPost, "/sharing", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+authToken(t, jwtSvc, "kchen", false))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	app.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	// Only the email-shaped invitee gets mail.
	mockEmail.AssertNumberOfCalls(t, "SendShareInvite", 1)
	mockEmail.AssertExpectations(t)
}

func TestSharingHandler_Create_ForOtherUserForbidden(t *testing.T) {
	mockSharing, _, _, handler, jwtSvc := setupSharingTest(t)

	app := newSharingApp(handler, jwtSvc)

	body, _ := json.Marshal(dto.CreateShareRequest{Owner: "mlopez", Dir: "analysis", Invites: []string{"tnguyen"}})
	req := httptest.NewRequest(http.MethodPost, "/sharing", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+authToken(t, jwtSvc, "kchen", false))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	app.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	mockSharing.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestSharingHandler_Create_SelfInvite(t *testing.T) {
	mockSharing, _, _, handler, jwtSvc := setupSharingTest(t)

	mockSharing.On("Create", mock.Anything, mock.Anything).Return(nil, services.ErrSelfInvite)

	app := newSharingApp(handler, jwtSvc)

	body, _ := json.Marshal(dto.CreateShareRequest{Dir: "analysis", Invites: []string{"kchen"}})
	req := httptest.NewRequest(http.MethodPost, "/sharing", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+authToken(t, jwtSvc, "kchen", false))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	app.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "cannot invite yourself")
}

func TestSharingHandler_Get_MissingShareIsBadRequest(t *testing.T) {
	mockSharing, _, _, handler, jwtSvc := setupSharingTest(t)

	shareID := uuid.New()
	mockSharing.On("Get", mock.Anything, shareID).Return(nil, services.ErrShareNotFound)

	app := newSharingApp(handler, jwtSvc)

	req := httptest.NewRequest(http.MethodGet, "/sharing/"+shareID.String(), nil)
	req.Header.Set("Authorization", "Bearer "+authToken(t, jwtSvc, "kchen", false))
	rec := httptest.NewRecorder()

	app.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "does not exist")
}

func TestSharingHandler_Accept_MissingInviteIsBadRequest(t *testing.T) {
	mockSharing, _, _, handler, jwtSvc := setupSharingTest(t)

	inviteID := uuid.New()
	mockSharing.On("Accept", mock.Anything, inviteID, "mlopez", "").
		Return(nil, services.ErrInviteNotFound)

	app := newSharingApp(handler, jwtSvc)

	req := httptest.NewRequest(http.MethodPost, "/sharing/invite/"+inviteID.String(), nil)
	req.Header.Set("Authorization", "Bearer "+authToken(t, jwtSvc, "mlopez", false))
	rec := httptest.NewRecorder()

	app.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "does not exist")
}

func TestSharingHandler_Update_NotifiesOnlyAddedInvitees(t *testing.T) {
	mockSharing, _, mockEmail, handler, jwtSvc := setupSharingTest(t)

	share := sampleShare("kchen", "analysis", "mlopez@example.com", "tnguyen@example.com")
	added := share.Invites[1]
	diff := &services.InviteDiff{
		Added:    []models.Invite{added},
		Retained: []models.Invite{share.Invites[0]},
	}

	mockSharing.On("UpdateInvites", mock.Anything, share.ID, "kchen",
		[]string{"mlopez@example.com", "tnguyen@example.com"}).Return(diff, share, nil)
	mockEmail.On("IsConfigured").Return(true)
	mockEmail.On("SendShareInvite", "tnguyen@example.com", "kchen", "analysis", added.ID).Return(nil)

	app := newSharingApp(handler, jwtSvc)

	body, _ := json.Marshal(dto.UpdateShareRequest{Invites: []string{"mlopez@example.com", "tnguyen@example.com"}})
	req := httptest.NewRequest(http.MethodPut, "/sharing/"+share.ID.String(), bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+authToken(t, jwtSvc, "kchen", false))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	app.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	mockEmail.AssertNumberOfCalls(t, "SendShareInvite", 1)
	mockSharing.AssertExpectations(t)
	mockEmail.AssertExpectations(t)
}

func TestSharingHandler_Update_EmptyListDeletesShare(t *testing.T) {
	mockSharing, _, _, handler, jwtSvc := setupSharingTest(t)

	shareID := uuid.New()
	diff := &services.InviteDiff{Removed: []models.Invite{{ID: uuid.New(), Invitee: "mlopez"}}}
	mockSharing.On("UpdateInvites", mock.Anything, shareID, "kchen", []string(nil)).
		Return(diff, nil, nil)

	app := newSharingApp(handler, jwtSvc)

	body, _ := json.Marshal(dto.UpdateShareRequest{})
	req := httptest.NewRequest(http.MethodPut, "/sharing/"+shareID.String(), bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+authToken(t, jwtSvc, "kchen", false))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	app.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var response map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, true, response["deleted"])
}

func TestSharingHandler_Update_NotOwner(t *testing.T) {
	mockSharing, _, _, handler, jwtSvc := setupSharingTest(t)

	shareID := uuid.New()
	mockSharing.On("UpdateInvites", mock.Anything, shareID, "mlopez", []string{"tnguyen"}).
		Return(nil, nil, services.ErrPermission)

	app := newSharingApp(handler, jwtSvc)

	body, _ := json.Marshal(dto.UpdateShareRequest{Invites: []string{"tnguyen"}})
	req := httptest.NewRequest(http.MethodPut, "/sharing/"+shareID.String(), bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+authToken(t, jwtSvc, "mlopez", false))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	app.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSharingHandler_Accept_Success(t *testing.T) {
	mockSharing, _, _, handler, jwtSvc := setupSharingTest(t)

	inviteID := uuid.New()
	mockSharing.On("Accept", mock.Anything, inviteID, "mlopez", "").
		Return(&models.Invite{ID: inviteID, Invitee: "mlopez", Accepted: true}, nil)

	app := newSharingApp(handler, jwtSvc)

	req := httptest.NewRequest(http.MethodPost, "/sharing/invite/"+inviteID.String(), nil)
	req.Header.Set("Authorization", "Bearer "+authToken(t, jwtSvc, "mlopez", false))
	rec := httptest.NewRecorder()

	app.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var response dto.AcceptInviteResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.True(t, response.Accepted)
	assert.Equal(t, "mlopez", response.User)
}

func TestSharingHandler_Accept_WithEmailedToken(t *testing.T) {
	mockSharing, _, _, handler, jwtSvc := setupSharingTest(t)

	inviteID := uuid.New()
	token := services.InviteToken(inviteID, "mlopez@example.com")
	mockSharing.On("Accept", mock.Anything, inviteID, "mlopez", token).
		Return(&models.Invite{ID: inviteID, Invitee: "mlopez", Accepted: true}, nil)

	app := newSharingApp(handler, jwtSvc)

	req := httptest.NewRequest(http.MethodPost, "/sharing/invite/"+inviteID.String()+"?token="+token, nil)
	req.Header.Set("Authorization", "Bearer "+authToken(t, jwtSvc, "mlopez", false))
	rec := httptest.NewRecorder()

	app.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	mockSharing.AssertExpectations(t)
}

func TestSharingHandler_Accept_Forbidden(t *testing.T) {
	mockSharing, _, _, handler, jwtSvc := setupSharingTest(t)

	inviteID := uuid.New()
	mockSharing.On("Accept", mock.Anything, inviteID, "intruder", "").
		Return(nil, services.ErrPermission)

	app := newSharingApp(handler, jwtSvc)

	req := httptest.NewRequest(http.MethodPost, "/sharing/invite/"+inviteID.String(), nil)
	req.Header.Set("Authorization", "Bearer "+authToken(t, jwtSvc, "intruder", false))
	rec := httptest.NewRecorder()

	app.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSharingHandler_Reject_LastInviteDeletesShare(t *testing.T) {
	mockSharing, _, _, handler, jwtSvc := setupSharingTest(t)

	inviteID := uuid.New()
	mockSharing.On("Reject", mock.Anything, inviteID, "mlopez", "").
		Return(&models.Invite{ID: inviteID, Invitee: "mlopez"}, true, nil)

	app := newSharingApp(handler, jwtSvc)

	req := httptest.NewRequest(http.MethodDelete, "/sharing/invite/"+inviteID.String(), nil)
	req.Header.Set("Authorization", "Bearer "+authToken(t, jwtSvc, "mlopez", false))
	rec := httptest.NewRecorder()

	app.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var response dto.AcceptInviteResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.True(t, response.Deleted)
}

func TestSharingHandler_Remove_Success(t *testing.T) {
	mockSharing, _, _, handler, jwtSvc := setupSharingTest(t)

	share := sampleShare("kchen", "analysis", "mlopez")
	mockSharing.On("Remove", mock.Anything, share.ID, "kchen").Return(share, nil)

	app := newSharingApp(handler, jwtSvc)

	req := httptest.NewRequest(http.MethodDelete, "/sharing/"+share.ID.String(), nil)
	req.Header.Set("Authorization", "Bearer "+authToken(t, jwtSvc, "kchen", false))
	rec := httptest.NewRecorder()

	app.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	mockSharing.AssertExpectations(t)
}
