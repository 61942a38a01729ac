package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/nbhub/projects-api/internal/archive"
	"github.com/nbhub/projects-api/internal/models"
)

type PublishProjectRequest struct {
	Dir         string `json:"dir"`
	Image       string `json:"image"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Author      string `json:"author"`
	Quality     string `json:"quality"`
	Citation    string `json:"citation"`
	Tags        string `json:"tags"`
}

type UpdateProjectRequest struct {
	Image       *string `json:"image,omitempty"`
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Author      *string `json:"author,omitempty"`
	Quality     *string `json:"quality,omitempty"`
	Citation    *string `json:"citation,omitempty"`
	Tags        *string `json:"tags,omitempty"`
	Comment     *string `json:"comment,omitempty"`
}

type ProjectResponse struct {
	ID          uuid.UUID       `json:"id"`
	Owner       string          `json:"owner"`
	Dir         string          `json:"dir"`
	Image       string          `json:"image"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Author      string          `json:"author"`
	Quality     string          `json:"quality"`
	Citation    string          `json:"citation"`
	Tags        string          `json:"tags"`
	Copied      int             `json:"copied"`
	Deleted     bool            `json:"deleted"`
	Comment     string          `json:"comment"`
	Created     time.Time       `json:"created"`
	Updated     time.Time       `json:"updated"`
	Files       []archive.Entry `json:"files,omitempty"`
}

func NewProjectResponse(p *models.Project) ProjectResponse {
	return ProjectResponse{
		ID:          p.ID,
		Owner:       p.Owner,
		Dir:         p.Dir,
		Image:       p.Image,
		Name:        p.Name,
		Description: p.Description,
		Author:      p.Author,
		Quality:     p.Quality,
		Citation:    p.Citation,
		Tags:        p.TagsString(),
		Copied:      p.Copied,
		Deleted:     p.Deleted,
		Comment:     p.LatestComment(),
		Created:     p.Created,
		Updated:     p.Updated,
	}
}

func NewProjectResponses(projects []models.Project) []ProjectResponse {
	out := make([]ProjectResponse, len(projects))
	for i := range projects {
		out[i] = NewProjectResponse(&projects[i])
	}
	return out
}

// LibraryResponse is the library listing plus the tag labels the client
// renders as pinned filters and admin-only badges.
type LibraryResponse struct {
	Projects  []ProjectResponse `json:"projects"`
	Pinned    []string          `json:"pinned"`
	Protected []string          `json:"protected"`
}

// CopyProjectResponse points the client at the freshly provisioned named
// server for its copy of a library project.
type CopyProjectResponse struct {
	ID   uuid.UUID `json:"id"`
	Slug string    `json:"slug"`
	Name string    `json:"name"`
	URL  string    `json:"url"`
}
