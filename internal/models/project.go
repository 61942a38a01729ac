package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Project is a workspace directory published to the library. Personal
// (unpublished) projects exist only on disk; a row here means the project
// has been published at least once. Deletion is logical: the row and its
// update history survive, only the zip artifact is removed.
type Project struct {
	ID          uuid.UUID  `json:"id"`
	Owner       string     `json:"owner"`
	Dir         string     `json:"dir"`
	Image       string     `json:"image"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Author      string     `json:"author"`
	Quality     string     `json:"quality"`
	Citation    string     `json:"citation"`
	Copied      int        `json:"copied"`
	Deleted     bool       `json:"deleted"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
	Created     time.Time  `json:"created"`
	Updated     time.Time  `json:"updated"`

	Tags    []Tag    `json:"-"`
	Updates []Update `json:"-"`
}

// TagsString renders the tag labels as the comma-joined form the clients
// submit and display.
func (p *Project) TagsString() string {
	labels := make([]string, len(p.Tags))
	for i, t := range p.Tags {
		labels[i] = t.Label
	}
	return strings.Join(labels, ",")
}

// LatestComment is the comment of the most recent update record, or empty
// if the history has not been loaded.
func (p *Project) LatestComment() string {
	if len(p.Updates) == 0 {
		return ""
	}
	return p.Updates[0].Comment
}

// Update is an immutable audit record appended on every successful publish
// or edit.
type Update struct {
	ID        uuid.UUID `json:"id"`
	ProjectID uuid.UUID `json:"project_id"`
	Comment   string    `json:"comment"`
	Updated   time.Time `json:"updated"`
}
