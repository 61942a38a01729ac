package handlers

import (
	"context"
	"net/http"

	"github.com/m1z23r/drift/pkg/drift"

	"github.com/nbhub/projects-api/internal/middleware"
	"github.com/nbhub/projects-api/pkg/dto"
)

type UserHandler struct {
	spawnerService SpawnerServiceInterface
	baseURL        string
}

func NewUserHandler(spawnerService SpawnerServiceInterface, baseURL string) *UserHandler {
	return &UserHandler{spawnerService: spawnerService, baseURL: baseURL}
}

// Get reports the authenticated user and their workspace projects as the
// hub sees them.
func (h *UserHandler) Get(c *drift.Context) {
	username := middleware.GetUsername(c)
	if username == "" {
		c.Unauthorized("not authenticated")
		return
	}

	spawners, err := h.spawnerService.UserSpawners(context.Background(), username)
	if err != nil {
		c.InternalServerError("failed to load workspace projects")
		return
	}

	projects := make([]dto.UserProjectResponse, len(spawners))
	for i := range spawners {
		projects[i] = dto.NewUserProjectResponse(&spawners[i])
	}

	_ = c.JSON(http.StatusOK, dto.UserResponse{
		Name:     username,
		BaseURL:  h.baseURL,
		Admin:    middleware.IsAdmin(c),
		Projects: projects,
	})
}
