package dto

import (
	"github.com/google/uuid"

	"github.com/nbhub/projects-api/internal/models"
)

type CreateShareRequest struct {
	Owner   string   `json:"owner"`
	Dir     string   `json:"dir"`
	Invites []string `json:"invites"`
}

type UpdateShareRequest struct {
	Invites []string `json:"invites"`
}

type InviteResponse struct {
	ID       uuid.UUID `json:"id"`
	User     string    `json:"user"`
	Accepted bool      `json:"accepted"`
}

type ShareResponse struct {
	ID      uuid.UUID        `json:"id"`
	Owner   string           `json:"owner"`
	Dir     string           `json:"dir"`
	Invites []InviteResponse `json:"invites"`

	// Project is display metadata pulled from the owner's spawner record,
	// present only when the hub knows about the shared directory.
	Project *UserProjectResponse `json:"project,omitempty"`
}

func NewShareResponse(s *models.Share) ShareResponse {
	resp := ShareResponse{
		ID:      s.ID,
		Owner:   s.Owner,
		Dir:     s.Dir,
		Invites: make([]InviteResponse, len(s.Invites)),
	}
	for i, inv := range s.Invites {
		resp.Invites[i] = InviteResponse{ID: inv.ID, User: inv.Invitee, Accepted: inv.Accepted}
	}
	return resp
}

func NewShareResponses(shares []models.Share) []ShareResponse {
	out := make([]ShareResponse, len(shares))
	for i := range shares {
		out[i] = NewShareResponse(&shares[i])
	}
	return out
}

// SharingListResponse splits the caller's shares by direction: shares they
// own versus shares where they are an invitee.
type SharingListResponse struct {
	SharedByMe   []ShareResponse `json:"shared_by_me"`
	SharedWithMe []ShareResponse `json:"shared_with_me"`
}

// AcceptInviteResponse reports the invite after a state transition. Deleted
// is set when rejecting the last invite tore down the whole share.
type AcceptInviteResponse struct {
	ID       uuid.UUID `json:"id"`
	User     string    `json:"user"`
	Accepted bool      `json:"accepted"`
	Deleted  bool      `json:"deleted,omitempty"`
}
