package dto

import (
	"encoding/json"
	"time"

	"github.com/nbhub/projects-api/internal/models"
)

// UserProjectResponse is one workspace project as the hub sees it: the
// spawner slug plus the display metadata stashed in its user options.
type UserProjectResponse struct {
	Slug         string     `json:"slug"`
	Active       bool       `json:"active"`
	LastActivity *time.Time `json:"last_activity,omitempty"`

	Image       string `json:"image"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Author      string `json:"author"`
	Quality     string `json:"quality"`
	Tags        string `json:"tags"`
}

// spawnerOptions mirrors the user_options blob the client submits when it
// starts a named server. Unknown keys are ignored.
type spawnerOptions struct {
	Image       string `json:"image"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Author      string `json:"author"`
	Quality     string `json:"quality"`
	Tags        string `json:"tags"`
}

func NewUserProjectResponse(sp *models.Spawner) UserProjectResponse {
	resp := UserProjectResponse{
		Slug:         sp.Name,
		Active:       sp.Active(),
		LastActivity: sp.LastActivity,
	}

	var opts spawnerOptions
	if sp.UserOptions != "" {
		if err := json.Unmarshal([]byte(sp.UserOptions), &opts); err == nil {
			resp.Image = opts.Image
			resp.Name = opts.Name
			resp.Description = opts.Description
			resp.Author = opts.Author
			resp.Quality = opts.Quality
			resp.Tags = opts.Tags
		}
	}
	if resp.Name == "" {
		resp.Name = sp.Name
	}
	return resp
}

type UserResponse struct {
	Name     string                `json:"name"`
	BaseURL  string                `json:"base_url"`
	Admin    bool                  `json:"admin"`
	Projects []UserProjectResponse `json:"projects"`
}
