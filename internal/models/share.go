package models

import (
	"time"

	"github.com/google/uuid"
)

// Share is a private sharing grant rooted at one owner's project directory.
// A share always carries at least one invite; removing the last invite
// removes the share itself.
type Share struct {
	ID      uuid.UUID `json:"id"`
	Owner   string    `json:"owner"`
	Dir     string    `json:"dir"`
	Created time.Time `json:"created"`
	Invites []Invite  `json:"invites"`
}

// Invite is one collaborator's relationship to a share. It starts pending
// and either becomes accepted or is removed by an explicit reject/unshare.
type Invite struct {
	ID       uuid.UUID `json:"id"`
	ShareID  uuid.UUID `json:"-"`
	Invitee  string    `json:"user"`
	Accepted bool      `json:"accepted"`
	Created  time.Time `json:"-"`
}

const (
	InviteStatusPending  = "pending"
	InviteStatusAccepted = "accepted"
)
