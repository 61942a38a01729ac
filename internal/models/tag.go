package models

import "github.com/google/uuid"

// Tag is a free-text label attached to published projects. Tags are created
// lazily the first time a label is referenced and never deleted. Protected
// tags may only be assigned by allow-listed users; pinned tags are always
// surfaced in library listings.
type Tag struct {
	ID          uuid.UUID `json:"id"`
	Label       string    `json:"label"`
	Description string    `json:"description"`
	Protected   bool      `json:"protected"`
	Pinned      bool      `json:"pinned"`
}
