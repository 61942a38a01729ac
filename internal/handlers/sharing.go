package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"

	"github.com/nbhub/projects-api/internal/middleware"
	"github.com/nbhub/projects-api/internal/models"
	"github.com/nbhub/projects-api/internal/services"
	"github.com/nbhub/projects-api/pkg/dto"
)

type SharingHandler struct {
	sharingService SharingServiceInterface
	spawnerService SpawnerServiceInterface
	emailService   EmailServiceInterface
}

func NewSharingHandler(
	sharingService SharingServiceInterface,
	spawnerService SpawnerServiceInterface,
	emailService EmailServiceInterface,
) *SharingHandler {
	return &SharingHandler{
		sharingService: sharingService,
		spawnerService: spawnerService,
		emailService:   emailService,
	}
}

// List returns the caller's shares in both directions, enriched with live
// spawner metadata where the hub knows the directory.
func (h *SharingHandler) List(c *drift.Context) {
	username := middleware.GetUsername(c)
	if username == "" {
		c.Unauthorized("not authenticated")
		return
	}

	ctx := context.Background()

	byMe, err := h.sharingService.SharedByMe(ctx, username)
	if err != nil {
		c.InternalServerError("failed to list shares")
		return
	}
	withMe, err := h.sharingService.SharedWithMe(ctx, username)
	if err != nil {
		c.InternalServerError("failed to list shares")
		return
	}

	_ = c.JSON(http.StatusOK, dto.SharingListResponse{
		SharedByMe:   h.enrichShares(ctx, byMe),
		SharedWithMe: h.enrichShares(ctx, withMe),
	})
}

// Create shares the caller's project directory with the listed users and
// mails each invitee that looks like an email address.
func (h *SharingHandler) Create(c *drift.Context) {
	username := middleware.GetUsername(c)
	if username == "" {
		c.Unauthorized("not authenticated")
		return
	}

	var req dto.CreateShareRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	owner := strings.TrimSpace(req.Owner)
	if owner == "" {
		owner = username
	}
	if owner != username && !middleware.IsAdmin(c) {
		c.Forbidden("only the project owner can share it")
		return
	}

	share, err := h.sharingService.Create(context.Background(), services.ShareSpec{
		Owner:   owner,
		Dir:     req.Dir,
		Invites: req.Invites,
	})
	if err != nil {
		h.respondSharingError(c, err)
		return
	}

	h.notifyInvitees(share.Owner, share.Dir, share.Invites)

	_ = c.JSON(http.StatusCreated, dto.NewShareResponse(share))
}

func (h *SharingHandler) Get(c *drift.Context) {
	username := middleware.GetUsername(c)
	if username == "" {
		c.Unauthorized("not authenticated")
		return
	}

	shareID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.BadRequest("invalid share id")
		return
	}

	share, err := h.sharingService.Get(context.Background(), shareID)
	if err != nil {
		h.respondSharingError(c, err)
		return
	}

	if share.Owner != username && !isInvitee(share, username) && !middleware.IsAdmin(c) {
		c.Forbidden("not a participant of this share")
		return
	}

	_ = c.JSON(http.StatusOK, dto.NewShareResponse(share))
}

// Update replaces the invite list. Retained invitees keep their accepted
// state, only the newly added ones are notified, and emptying the list
// removes the share.
func (h *SharingHandler) Update(c *drift.Context) {
	username := middleware.GetUsername(c)
	if username == "" {
		c.Unauthorized("not authenticated")
		return
	}

	shareID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.BadRequest("invalid share id")
		return
	}

	var req dto.UpdateShareRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	diff, share, err := h.sharingService.UpdateInvites(context.Background(), shareID, username, req.Invites)
	if err != nil {
		h.respondSharingError(c, err)
		return
	}

	if share == nil {
		_ = c.JSON(http.StatusOK, map[string]any{"id": shareID, "deleted": true})
		return
	}

	h.notifyInvitees(share.Owner, share.Dir, diff.Added)

	_ = c.JSON(http.StatusOK, dto.NewShareResponse(share))
}

func (h *SharingHandler) Remove(c *drift.Context) {
	username := middleware.GetUsername(c)
	if username == "" {
		c.Unauthorized("not authenticated")
		return
	}

	shareID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.BadRequest("invalid share id")
		return
	}

	share, err := h.sharingService.Remove(context.Background(), shareID, username)
	if err != nil {
		h.respondSharingError(c, err)
		return
	}

	_ = c.JSON(http.StatusOK, dto.NewShareResponse(share))
}

// Accept marks the invite accepted. Callers who are not the invite's
// target must present the token from the emailed link, which claims the
// invite for them.
func (h *SharingHandler) Accept(c *drift.Context) {
	username := middleware.GetUsername(c)
	if username == "" {
		c.Unauthorized("not authenticated")
		return
	}

	inviteID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.BadRequest("invalid invite id")
		return
	}

	invite, err := h.sharingService.Accept(context.Background(), inviteID, username, c.QueryParam("token"))
	if err != nil {
		h.respondSharingError(c, err)
		return
	}

	_ = c.JSON(http.StatusOK, dto.AcceptInviteResponse{
		ID:       invite.ID,
		User:     invite.Invitee,
		Accepted: invite.Accepted,
	})
}

// Reject declines the invite. Declining the last invite removes the share
// itself, which is reported in the response.
func (h *SharingHandler) Reject(c *drift.Context) {
	username := middleware.GetUsername(c)
	if username == "" {
		c.Unauthorized("not authenticated")
		return
	}

	inviteID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.BadRequest("invalid invite id")
		return
	}

	invite, shareDeleted, err := h.sharingService.Reject(context.Background(), inviteID, username, c.QueryParam("token"))
	if err != nil {
		h.respondSharingError(c, err)
		return
	}

	_ = c.JSON(http.StatusOK, dto.AcceptInviteResponse{
		ID:      invite.ID,
		User:    invite.Invitee,
		Deleted: shareDeleted,
	})
}

func (h *SharingHandler) enrichShares(ctx context.Context, shares []models.Share) []dto.ShareResponse {
	responses := dto.NewShareResponses(shares)
	for i := range shares {
		sp, err := h.spawnerService.Spawner(ctx, shares[i].Owner, shares[i].Dir)
		if err != nil {
			if !errors.Is(err, services.ErrSpawnerNotFound) {
				log.Printf("Failed to look up spawner for %s/%s: %v", shares[i].Owner, shares[i].Dir, err)
			}
			continue
		}
		project := dto.NewUserProjectResponse(sp)
		responses[i].Project = &project
	}
	return responses
}

func (h *SharingHandler) notifyInvitees(owner, projectName string, invites []models.Invite) {
	if !h.emailService.IsConfigured() {
		return
	}
	for _, invite := range invites {
		if !strings.Contains(invite.Invitee, "@") {
			continue
		}
		if err := h.emailService.SendShareInvite(invite.Invitee, owner, projectName, invite.ID); err != nil {
			log.Printf("Failed to send invite email to %s: %v", invite.Invitee, err)
		}
	}
}

func (h *SharingHandler) respondSharingError(c *drift.Context, err error) {
	var specErr *services.SpecError
	switch {
	case errors.As(err, &specErr):
		c.BadRequest(specErr.Error())
	case errors.Is(err, services.ErrShareExists):
		c.BadRequest("this project is already shared")
	case errors.Is(err, services.ErrSelfInvite):
		c.BadRequest("cannot invite yourself to your own project")
	case errors.Is(err, services.ErrInvalidProject):
		c.BadRequest("project directory does not exist")
	case errors.Is(err, services.ErrPermission):
		c.Forbidden("permission denied")
	case errors.Is(err, services.ErrShareNotFound):
		c.BadRequest("share id does not exist")
	case errors.Is(err, services.ErrInviteNotFound):
		c.BadRequest("invite id does not exist")
	default:
		c.InternalServerError("sharing operation failed")
	}
}

func isInvitee(share *models.Share, username string) bool {
	for _, invite := range share.Invites {
		if invite.Invitee == username {
			return true
		}
	}
	return false
}
